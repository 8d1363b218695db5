package match

import (
	"strings"
	"unicode"
)

// tokens splits text on non-alphanumeric characters, lowercases, and
// returns the distinct set. CJK runs come through as single tokens.
func tokens(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}

	return set
}

// stopWords is the closed set of common function words dropped from
// description tokens before the overlap ratio is computed. Stable by
// construction; extending it changes scores, so treat edits as behavior
// changes.
var stopWords = map[string]struct{}{
	// English
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "can": {}, "shall": {},
	"to": {}, "of": {}, "in": {}, "for": {}, "on": {}, "with": {}, "at": {},
	"by": {}, "from": {}, "as": {}, "into": {}, "through": {}, "during": {},
	"before": {}, "after": {}, "and": {}, "but": {}, "or": {}, "nor": {},
	"not": {}, "so": {}, "yet": {}, "both": {}, "either": {}, "neither": {},
	"each": {}, "every": {}, "all": {}, "any": {}, "few": {}, "more": {},
	"most": {}, "other": {}, "some": {}, "such": {}, "no": {}, "only": {},
	"own": {}, "same": {}, "than": {}, "too": {}, "very": {}, "just": {},
	"that": {}, "this": {}, "it": {}, "its": {},
	// Chinese
	"的": {}, "了": {}, "是": {}, "我": {}, "你": {}, "他": {}, "她": {},
	"在": {}, "把": {}, "请": {}, "帮": {}, "吗": {}, "呢": {}, "和": {},
	"与": {}, "或": {}, "一个": {}, "这个": {}, "那个": {},
}

// descriptionTokens returns the distinct tokens of a short description with
// stop words removed.
func descriptionTokens(description string) map[string]struct{} {
	set := tokens(description)

	for w := range stopWords {
		delete(set, w)
	}

	return set
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
