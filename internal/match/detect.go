// Package match implements the language detector, the five-level scoring
// engine, and the winner selection over a skill index.
//
// Scoring is a pure function of the (prompt, index) pair: for a fixed pair
// the ranked output is identical across runs.
package match

// Lang is the detected prompt language class.
type Lang int

const (
	// LangEN covers English-only prompts and the no-letters default.
	LangEN Lang = iota
	// LangZH covers Chinese-only prompts.
	LangZH
	// LangBoth covers mixed prompts.
	LangBoth
)

func (l Lang) String() string {
	switch l {
	case LangZH:
		return "zh"
	case LangBoth:
		return "both"
	default:
		return "en"
	}
}

// A character is "Chinese" if it falls in the CJK Unified Ideographs block.
const (
	cjkFirst = 0x4E00
	cjkLast  = 0x9FFF
)

// Detect classifies a prompt as English-only, Chinese-only, or mixed.
// Prompts with neither Chinese characters nor ASCII letters default to
// English.
func Detect(prompt string) Lang {
	var hasZH, hasEN bool

	for _, r := range prompt {
		switch {
		case r >= cjkFirst && r <= cjkLast:
			hasZH = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasEN = true
		}

		if hasZH && hasEN {
			return LangBoth
		}
	}

	if hasZH {
		return LangZH
	}

	return LangEN
}
