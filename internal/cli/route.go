package cli

import (
	"context"
	"encoding/json"
	"io"

	"skillrouter/internal/inject"
	"skillrouter/internal/router"
)

// hookInput is the stdin envelope from the host assistant. Unknown fields
// are ignored.
type hookInput struct {
	Prompt string `json:"prompt"`
}

// cmdRoute is the hook path. Whatever goes wrong — malformed stdin, config
// errors, registry failures, even a panic — it emits nothing and returns 0.
// The contract "never block the user's input" outranks error visibility.
func cmdRoute(stdin io.Reader, out, errOut io.Writer, env map[string]string) (code int) {
	debugOut := io.Discard
	if router.DebugEnabled(env) {
		debugOut = errOut
	}

	defer func() {
		if r := recover(); r != nil {
			fprintf(debugOut, "[skill-router][debug] panic recovered: %v\n", r)

			code = 0
		}
	}()

	cfg, _, err := router.LoadConfig(env)
	if err != nil {
		fprintf(debugOut, "[skill-router][debug] config error: %v\n", err)

		return 0
	}

	raw, err := io.ReadAll(stdin)
	if err != nil {
		fprintf(debugOut, "[skill-router][debug] reading stdin: %v\n", err)

		return 0
	}

	var in hookInput

	unmarshalErr := json.Unmarshal(raw, &in)
	if unmarshalErr != nil {
		fprintf(debugOut, "[skill-router][debug] malformed hook input: %v\n", unmarshalErr)

		return 0
	}

	r := router.New(cfg, errOut)

	text, ok := r.Route(context.Background(), in.Prompt)
	if !ok {
		return 0
	}

	writeErr := inject.WriteEnvelope(out, text)
	if writeErr != nil {
		fprintf(debugOut, "[skill-router][debug] emit failed: %v\n", writeErr)
	}

	return 0
}
