package cli

import (
	"context"
	"io"

	flag "github.com/spf13/pflag"

	"skillrouter/internal/router"
)

// cmdRefresh force-fetches the index into the cache. This is an operator
// command: unlike the hook path it reports failures and exits nonzero.
func cmdRefresh(out, errOut io.Writer, env map[string]string, args []string) int {
	flags := flag.NewFlagSet("refresh", flag.ContinueOnError)
	flags.SetOutput(errOut)
	quiet := flags.BoolP("quiet", "q", false, "suppress the summary line")

	err := flags.Parse(args)
	if err != nil {
		return 1
	}

	cfg, _, err := router.LoadConfig(env)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	debugOut := io.Discard
	if cfg.Debug {
		debugOut = errOut
	}

	r := router.New(cfg, debugOut)

	idx, err := r.Refresh(context.Background())
	if err != nil {
		fprintln(errOut, "error: refreshing index:", err)

		return 1
	}

	if !*quiet {
		if idx.GeneratedAt != "" {
			fprintf(out, "fetched index: %d skills (generated_at %s)\n", len(idx.Skills), idx.GeneratedAt)
		} else {
			fprintf(out, "fetched index: %d skills\n", len(idx.Skills))
		}
	}

	return 0
}
