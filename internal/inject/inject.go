// Package inject formats the winning skill into the systemMessage envelope
// emitted on stdout.
package inject

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"skillrouter/internal/match"
)

const (
	beginMarker = "--- BEGIN SKILL INSTRUCTIONS ---"
	endMarker   = "--- END SKILL INSTRUCTIONS ---"

	// notePad aligns the note's second line under the text that follows
	// the "[skill-router] " prefix.
	notePad = "               "
)

// Truncate cuts body to at most maxBytes bytes without splitting a UTF-8
// sequence. The cut point backs up to the nearest rune boundary.
func Truncate(body []byte, maxBytes int) []byte {
	if maxBytes <= 0 {
		return nil
	}

	if len(body) <= maxBytes {
		return body
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}

	return body[:cut]
}

// Format renders the injection text for a selection and its (already
// truncated) body. Scores are rendered as integers, truncated not rounded.
func Format(sel match.Selection, body string) string {
	var lines []string

	lines = append(lines, fmt.Sprintf(
		"[skill-router] Automatically loaded skill: **%s** (category: %s, score: %d)",
		sel.Best.Name, sel.Best.Category, int(sel.Score)))

	if sel.Ambiguous {
		lines = append(lines,
			fmt.Sprintf("[skill-router] Note: also considered %s (score: %d).",
				sel.RunnerUp.Name, int(sel.RunnerUpScore)),
			notePad+"If the loaded skill seems wrong, the user may have meant the other one.")
	}

	lines = append(lines,
		"",
		beginMarker,
		body,
		endMarker,
		"",
		"[skill-router] Apply these skill instructions to the user's request.",
		"If the skill doesn't seem relevant, ignore these instructions and respond normally.")

	return strings.Join(lines, "\n")
}

type envelope struct {
	SystemMessage string `json:"systemMessage"`
}

// WriteEnvelope emits the single-object JSON envelope on w. Non-ASCII text
// passes through unescaped.
func WriteEnvelope(w io.Writer, text string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	err := enc.Encode(envelope{SystemMessage: text})
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	return nil
}
