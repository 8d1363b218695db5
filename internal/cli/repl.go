package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"skillrouter/internal/index"
	"skillrouter/internal/match"
	"skillrouter/internal/router"
)

var replCommands = []string{"help", "lang", "reload", "exit", "quit"}

// cmdRepl runs an interactive shell for match debugging: every line typed
// is scored against the loaded index and the ranked results are printed
// with their per-level breakdown.
func cmdRepl(out, errOut io.Writer, env map[string]string, args []string) int {
	flags := flag.NewFlagSet("repl", flag.ContinueOnError)
	flags.SetOutput(errOut)
	top := flags.IntP("top", "n", 5, "number of ranked skills to display")

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

	idx, err := r.LoadIndex(context.Background())
	if err != nil {
		fprintln(errOut, "error: loading index:", err)

		return 1
	}

	session := &replSession{
		out:     out,
		router:  r,
		cfg:     cfg,
		idx:     idx,
		top:     *top,
		history: filepath.Join(cfg.CacheDir, "repl_history"),
	}

	runErr := session.run()
	if runErr != nil {
		fprintln(errOut, "error:", runErr)

		return 1
	}

	return 0
}

type replSession struct {
	out     io.Writer
	router  *router.Router
	cfg     router.Config
	idx     index.Index
	top     int
	history string
	liner   *liner.State
}

func (s *replSession) run() error {
	s.liner = liner.NewLiner()
	defer func() { _ = s.liner.Close() }()

	s.liner.SetCtrlCAborts(true)
	s.liner.SetCompleter(func(line string) []string {
		var matches []string

		for _, cmd := range replCommands {
			if strings.HasPrefix(cmd, strings.ToLower(line)) {
				matches = append(matches, cmd)
			}
		}

		return matches
	})

	if f, err := os.Open(s.history); err == nil {
		_, _ = s.liner.ReadHistory(f)
		_ = f.Close()
	}

	fprintf(s.out, "skill-router repl - %d skills loaded (threshold=%g, gap=%g)\n",
		len(s.idx.Skills), s.cfg.Threshold, s.cfg.AmbiguityGap)
	fprintln(s.out, "Type a prompt to score it, or 'help' for commands.")
	fprintln(s.out)

	for {
		line, err := s.liner.Prompt("skill-router> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fprintln(s.out)
				s.saveHistory()

				return nil
			}

			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		s.liner.AppendHistory(line)

		cmd, rest, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "exit", "quit", "q":
			s.saveHistory()

			return nil
		case "help", "?":
			s.printHelp()
		case "lang":
			fprintf(s.out, "detected language: %s\n", match.Detect(rest))
		case "reload":
			s.reload()
		default:
			s.score(line)
		}
	}
}

func (s *replSession) printHelp() {
	fprintln(s.out, "Commands:")
	fprintln(s.out, "  <prompt>      Score the prompt against all skills")
	fprintln(s.out, "  lang <text>   Show the detected language class")
	fprintln(s.out, "  reload        Reload the index (three-tier policy)")
	fprintln(s.out, "  exit          Leave the repl")
}

func (s *replSession) reload() {
	idx, err := s.router.LoadIndex(context.Background())
	if err != nil {
		fprintf(s.out, "reload failed: %v\n", err)

		return
	}

	s.idx = idx
	fprintf(s.out, "reloaded: %d skills\n", len(idx.Skills))
}

func (s *replSession) score(prompt string) {
	ranked := s.router.Rank(prompt, s.idx)
	if len(ranked) == 0 {
		fprintf(s.out, "no match above threshold (lang=%s)\n", match.Detect(prompt))

		return
	}

	fprintf(s.out, "%-4s %-24s %7s %6s %6s %6s %6s\n",
		"#", "skill", "total", "L2", "L3", "L4", "L5")

	for i, entry := range ranked {
		if i >= s.top {
			fprintf(s.out, "... %d more\n", len(ranked)-s.top)

			break
		}

		rec := entry.Record
		fprintf(s.out, "%-4d %-24s %7.1f %6.1f %6.1f %6.1f %6.1f\n",
			i+1, entry.Skill.ID, rec.Total, rec.Trigger, rec.Intent, rec.TagOverlap, rec.DescOverlap)
	}

	sel, _ := s.router.Select(ranked)
	if sel.Ambiguous {
		fprintf(s.out, "winner: %s (ambiguous with %s, gap %.1f)\n",
			sel.Best.ID, sel.RunnerUp.ID, sel.Score-sel.RunnerUpScore)
	} else {
		fprintf(s.out, "winner: %s\n", sel.Best.ID)
	}
}

func (s *replSession) saveHistory() {
	f, err := os.Create(s.history)
	if err != nil {
		return
	}

	_, _ = s.liner.WriteHistory(f)
	_ = f.Close()
}
