package match

import "skillrouter/internal/index"

// Selection is the routing outcome for one prompt: the winning skill, and
// the runner-up when the result is ambiguous.
type Selection struct {
	Best  index.Descriptor
	Score float64

	// Ambiguous is set when the runner-up trails the winner by less than
	// the ambiguity gap. The winner is still injected; the runner-up is
	// informational only.
	Ambiguous     bool
	RunnerUp      index.Descriptor
	RunnerUpScore float64
}

// Select picks the winner from a ranked list. The list must already be
// sorted (total descending, id ascending); ties therefore resolve to the
// lexically smallest id. Returns false when the list is empty.
func (m *Matcher) Select(ranked []Ranked) (Selection, bool) {
	if len(ranked) == 0 {
		return Selection{}, false
	}

	sel := Selection{
		Best:  ranked[0].Skill,
		Score: ranked[0].Record.Total,
	}

	if len(ranked) > 1 && ranked[0].Record.Total-ranked[1].Record.Total < m.gap {
		sel.Ambiguous = true
		sel.RunnerUp = ranked[1].Skill
		sel.RunnerUpScore = ranked[1].Record.Total
	}

	return sel, true
}
