// Package main provides skill-router, a prompt-time hook that injects at
// most one skill document as a system message.
package main

import (
	"os"
	"strings"

	"skillrouter/internal/cli"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env))
}
