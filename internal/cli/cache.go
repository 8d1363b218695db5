package cli

import (
	"encoding/json"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"skillrouter/internal/router"
)

// cmdCache prints cache contents and freshness for diagnostics.
func cmdCache(out, errOut io.Writer, env map[string]string, args []string) int {
	flags := flag.NewFlagSet("cache", flag.ContinueOnError)
	flags.SetOutput(errOut)
	asJSON := flags.Bool("json", false, "machine-readable output")

	err := flags.Parse(args)
	if err != nil {
		return 1
	}

	cfg, _, err := router.LoadConfig(env)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	stats := router.New(cfg, io.Discard).CacheStats()

	if *asJSON {
		data, marshalErr := json.MarshalIndent(stats, "", "  ")
		if marshalErr != nil {
			fprintln(errOut, "error:", marshalErr)

			return 1
		}

		fprintln(out, string(data))

		return 0
	}

	fprintf(out, "cache_dir=%s\n", stats.Dir)
	fprintf(out, "index_cached=%t\n", stats.IndexCached)

	if stats.IndexCached {
		fprintf(out, "index_fetched_at=%d\n", stats.IndexFetchedAt)
		fprintf(out, "index_skills=%d\n", stats.IndexSkills)
	}

	fprintf(out, "index_freshness=%s\n", stats.IndexFreshness)
	fprintf(out, "body_count=%d\n", stats.BodyCount)

	if len(stats.BodyIDs) > 0 {
		fprintf(out, "body_ids=%s\n", strings.Join(stats.BodyIDs, ","))
	}

	return 0
}
