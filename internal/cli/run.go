// Package cli wires the skill-router commands to stdin/stdout/stderr.
//
// The default invocation (no arguments) is the hook path: it reads the
// UserPromptSubmit JSON envelope from stdin, routes, and emits at most one
// systemMessage object on stdout. The hook path always exits 0; operator
// commands (refresh, cache, repl, print-config) report errors normally.
package cli

import (
	"io"
)

// Run is the main entry point. Returns the process exit code.
func Run(stdin io.Reader, out, errOut io.Writer, args []string, env map[string]string) int {
	if len(args) < 2 {
		return cmdRoute(stdin, out, errOut, env)
	}

	cmd := args[1]
	rest := args[2:]

	switch cmd {
	case "route":
		return cmdRoute(stdin, out, errOut, env)
	case "refresh":
		return cmdRefresh(out, errOut, env, rest)
	case "cache":
		return cmdCache(out, errOut, env, rest)
	case "repl":
		return cmdRepl(out, errOut, env, rest)
	case "print-config":
		return cmdPrintConfig(out, errOut, env)
	case "-h", "--help", "help":
		printUsage(out)

		return 0
	default:
		fprintln(errOut, "error: unknown command:", cmd)
		printUsage(errOut)

		return 1
	}
}

func printUsage(w io.Writer) {
	fprintln(w, "Usage: skill-router [command]")
	fprintln(w)
	fprintln(w, "Without a command, reads {\"prompt\": ...} from stdin and emits at most")
	fprintln(w, "one {\"systemMessage\": ...} object on stdout. Never exits nonzero and")
	fprintln(w, "never blocks the prompt, whatever happens.")
	fprintln(w)
	fprintln(w, "Commands:")
	fprintln(w, "  route                  Explicit form of the default hook invocation")
	fprintln(w, "  refresh [--quiet]      Force-fetch the skill index into the cache")
	fprintln(w, "  cache [--json]         Show cache contents and freshness")
	fprintln(w, "  repl [--top N]         Interactive match debugging shell")
	fprintln(w, "  print-config           Show resolved configuration")
	fprintln(w)
	fprintln(w, "Configuration comes from SKILL_ROUTER_* environment variables layered")
	fprintln(w, "over ~/.config/skill-router/config.json (JSONC allowed).")
}
