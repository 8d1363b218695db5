package cli

import (
	"io"

	"skillrouter/internal/router"
)

// cmdPrintConfig shows the effective configuration and where it came from.
func cmdPrintConfig(out, errOut io.Writer, env map[string]string) int {
	cfg, sources, err := router.LoadConfig(env)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	fprintf(out, "%s", router.FormatConfig(cfg))
	fprintln(out)
	fprintln(out, "# sources")

	if sources.File == "" {
		fprintln(out, "(defaults and environment only)")
	} else {
		fprintln(out, "config_file="+sources.File)
	}

	return 0
}
