package match

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"skillrouter/internal/index"
)

// Weights are the per-level contributions to the weighted total. They must
// sum to 1.0.
type Weights struct {
	Trigger     float64
	Intent      float64
	Tags        float64
	Description float64
}

// DefaultWeights returns the standard level weights.
func DefaultWeights() Weights {
	return Weights{Trigger: 0.40, Intent: 0.35, Tags: 0.15, Description: 0.10}
}

// Record is the transient per-skill, per-prompt score breakdown. Raw level
// scores are in [0,100]; Total is the weighted sum.
type Record struct {
	Excluded    bool
	Trigger     float64
	Intent      float64
	TagOverlap  float64
	DescOverlap float64
	Total       float64
}

// Ranked pairs a descriptor with its score record.
type Ranked struct {
	Skill  index.Descriptor
	Record Record
}

// Matcher scores skills against prompts.
type Matcher struct {
	weights   Weights
	threshold float64
	gap       float64
}

// NewMatcher returns a Matcher with the given weights, score threshold, and
// ambiguity gap.
func NewMatcher(weights Weights, threshold, gap float64) *Matcher {
	return &Matcher{weights: weights, threshold: threshold, gap: gap}
}

// Score computes the full record for one skill. Exclusion short-circuits
// the scored levels.
func (m *Matcher) Score(prompt string, desc index.Descriptor, lang Lang) Record {
	promptLower := strings.ToLower(prompt)

	if isExcluded(promptLower, desc.NegativeKeywords, lang) {
		return Record{Excluded: true}
	}

	promptTokens := tokens(prompt)

	rec := Record{
		Trigger:     triggerScore(promptLower, desc.TriggerKeywords, lang),
		Intent:      intentScore(prompt, desc.IntentPatterns, lang),
		TagOverlap:  tagOverlapScore(promptTokens, desc.Tags),
		DescOverlap: descOverlapScore(promptTokens, desc.ShortDescription),
	}

	rec.Total = m.weights.Trigger*rec.Trigger +
		m.weights.Intent*rec.Intent +
		m.weights.Tags*rec.TagOverlap +
		m.weights.Description*rec.DescOverlap

	return rec
}

// Rank scores every skill in the index and returns the non-excluded,
// above-threshold records sorted by total descending, id ascending.
func (m *Matcher) Rank(prompt string, idx index.Index) []Ranked {
	lang := Detect(prompt)

	ranked := make([]Ranked, 0, len(idx.Skills))

	for _, desc := range idx.Skills {
		rec := m.Score(prompt, desc, lang)
		if rec.Excluded || rec.Total < m.threshold {
			continue
		}

		ranked = append(ranked, Ranked{Skill: desc, Record: rec})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Record.Total != ranked[j].Record.Total {
			return ranked[i].Record.Total > ranked[j].Record.Total
		}

		return ranked[i].Skill.ID < ranked[j].Skill.ID
	})

	return ranked
}

// ---------- Level 1: negative-keyword hard exclusion ----------

// isExcluded applies the veto layer. A single multi-word negative hit
// excludes outright; single-word negatives need two hits in the prompt
// (repeats count) so frequent lone tokens do not over-filter.
func isExcluded(promptLower string, neg index.Bilingual, lang Lang) bool {
	var multi, single int

	switch lang {
	case LangZH:
		multi, single = negativeHits(promptLower, neg.ZH, true)
		if multi == 0 && single == 0 {
			multi, single = negativeHits(promptLower, neg.EN, false)
		}
	case LangBoth:
		zhMulti, zhSingle := negativeHits(promptLower, neg.ZH, true)
		enMulti, enSingle := negativeHits(promptLower, neg.EN, false)
		multi, single = zhMulti+enMulti, zhSingle+enSingle
	default:
		multi, single = negativeHits(promptLower, neg.EN, false)
	}

	return multi >= 1 || single >= 2
}

// negativeHits counts matched multi-word negatives and total occurrences of
// single-word negatives. "Multi-word" means 2+ whitespace-split tokens.
func negativeHits(promptLower string, phrases []string, zh bool) (multi, single int) {
	for _, phrase := range phrases {
		phraseLower := strings.ToLower(phrase)

		if len(strings.Fields(phraseLower)) >= 2 {
			if occurrences(promptLower, phraseLower, zh) > 0 {
				multi++
			}

			continue
		}

		single += occurrences(promptLower, phraseLower, zh)
	}

	return multi, single
}

// ---------- Level 2: trigger keywords ----------

// triggerScore ladder: 1 hit = 40, each further hit +15, capped at 100.
func triggerScore(promptLower string, kw index.Bilingual, lang Lang) float64 {
	var hits int

	switch lang {
	case LangZH:
		hits = phraseHits(promptLower, kw.ZH, true)
		if hits == 0 {
			hits = phraseHits(promptLower, kw.EN, false)
		}
	case LangBoth:
		hits = phraseHits(promptLower, kw.ZH, true) + phraseHits(promptLower, kw.EN, false)
	default:
		hits = phraseHits(promptLower, kw.EN, false)
	}

	if hits == 0 {
		return 0
	}

	return min(100, 40+15*float64(hits-1))
}

// phraseHits counts distinct phrases with at least one occurrence, not the
// total occurrence count.
func phraseHits(promptLower string, phrases []string, zh bool) int {
	var hits int

	for _, phrase := range phrases {
		if occurrences(promptLower, strings.ToLower(phrase), zh) > 0 {
			hits++
		}
	}

	return hits
}

// ---------- Level 3: intent patterns ----------

// intentScore ladder: 1 hit = 50, each further hit +35, capped at 100. A
// single intent pattern is worth more than a single trigger phrase because
// patterns are higher specificity.
func intentScore(prompt string, patterns index.Bilingual, lang Lang) float64 {
	var hits int

	switch lang {
	case LangZH:
		hits = patternHits(prompt, patterns.ZH)
		if hits == 0 {
			hits = patternHits(prompt, patterns.EN)
		}
	case LangBoth:
		hits = patternHits(prompt, patterns.ZH) + patternHits(prompt, patterns.EN)
	default:
		hits = patternHits(prompt, patterns.EN)
	}

	if hits == 0 {
		return 0
	}

	return min(100, 50+35*float64(hits-1))
}

// patternHits compiles each pattern source case-insensitively and counts
// the distinct patterns that match anywhere in the prompt. Sources that do
// not compile are skipped.
func patternHits(prompt string, sources []string) int {
	var hits int

	for _, src := range sources {
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			continue
		}

		if re.MatchString(prompt) {
			hits++
		}
	}

	return hits
}

// ---------- Level 4: tag overlap ----------

func tagOverlapScore(promptTokens map[string]struct{}, tags []string) float64 {
	if len(tags) == 0 {
		return 0
	}

	tagSet := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tagSet[strings.ToLower(tag)] = struct{}{}
	}

	var matched int

	for tag := range tagSet {
		if _, ok := promptTokens[tag]; ok {
			matched++
		}
	}

	return min(100, 100*float64(matched)/float64(max(1, len(tagSet))))
}

// ---------- Level 5: description overlap ----------

func descOverlapScore(promptTokens map[string]struct{}, description string) float64 {
	descTokens := descriptionTokens(description)
	if len(descTokens) == 0 {
		return 0
	}

	var matched int

	for tok := range descTokens {
		if _, ok := promptTokens[tok]; ok {
			matched++
		}
	}

	return min(100, 100*float64(matched)/float64(len(descTokens)))
}

// ---------- Phrase matching primitives ----------

// occurrences counts matches of phrase in promptLower. Chinese phrases use
// plain substring matching; English phrases require the match to be bounded
// by non-ASCII-alphanumeric characters or the string edges.
func occurrences(promptLower, phraseLower string, zh bool) int {
	if phraseLower == "" {
		return 0
	}

	if zh {
		return strings.Count(promptLower, phraseLower)
	}

	var count int

	for start := 0; ; {
		i := strings.Index(promptLower[start:], phraseLower)
		if i < 0 {
			break
		}

		i += start

		if boundedAt(promptLower, i, len(phraseLower)) {
			count++
			start = i + len(phraseLower)
		} else {
			start = i + 1
		}
	}

	return count
}

// boundedAt reports whether the match at [i, i+n) sits on word boundaries.
func boundedAt(s string, i, n int) bool {
	if i > 0 {
		prev, _ := utf8.DecodeLastRuneInString(s[:i])
		if isASCIIAlnum(prev) {
			return false
		}
	}

	if i+n < len(s) {
		next, _ := utf8.DecodeRuneInString(s[i+n:])
		if isASCIIAlnum(next) {
			return false
		}
	}

	return true
}
