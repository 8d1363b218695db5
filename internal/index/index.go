// Package index defines the skill index data model and the single parsing
// boundary that converts the loose on-wire representation into validated,
// structurally complete records.
//
// Everywhere past [Parse], optional sets are present as empty slices, never
// as nil-means-wildcard.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
)

// Parse errors.
var (
	ErrInvalid     = errors.New("invalid skill index")
	errNoSkills    = errors.New("missing skills list")
	errMissingID   = errors.New("skill missing id")
	errBadID       = errors.New("skill id must be lowercase-hyphen form")
	errDuplicateID = errors.New("duplicate skill id")
)

// Bilingual holds one phrase list per supported language.
type Bilingual struct {
	EN []string `json:"en"`
	ZH []string `json:"zh"`
}

// Descriptor is one validated skill entry from the index.
type Descriptor struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	ShortDescription string    `json:"short_description"`
	Tags             []string  `json:"tags"`
	TriggerKeywords  Bilingual `json:"trigger_keywords"`
	IntentPatterns   Bilingual `json:"intent_patterns"`
	NegativeKeywords Bilingual `json:"negative_keywords"`
	BodyPath         string    `json:"body_path"`
	BodyHash         string    `json:"body_hash"`
}

// Index is the catalog of all skill descriptors, without bodies.
type Index struct {
	GeneratedAt string       `json:"generated_at"`
	Skills      []Descriptor `json:"skills"`
}

// Wire types mirror the loose registry format: optional keys, string-keyed
// language maps. They exist only inside Parse.

type wireIndex struct {
	GeneratedAt string      `json:"generated_at"`
	Skills      []wireSkill `json:"skills"`
}

type wireSkill struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Category         string              `json:"category"`
	ShortDescription string              `json:"short_description"`
	Tags             []string            `json:"tags"`
	TriggerKeywords  map[string][]string `json:"trigger_keywords"`
	IntentPatterns   map[string][]string `json:"intent_patterns"`
	NegativeKeywords map[string][]string `json:"negative_keywords"`
	BodyPath         string              `json:"body_path"`
	BodyHash         string              `json:"body_hash"`
}

// Parse converts raw index bytes into a validated Index.
//
// The input is standardized from JSONC first, so registries may carry
// comments and trailing commas in index.json. Every returned descriptor is
// structurally complete: absent sets come back as empty, names default to
// the id, categories default to "unknown".
func Parse(data []byte) (Index, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Index{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var wire wireIndex

	unmarshalErr := json.Unmarshal(standardized, &wire)
	if unmarshalErr != nil {
		return Index{}, fmt.Errorf("%w: %w", ErrInvalid, unmarshalErr)
	}

	if wire.Skills == nil {
		return Index{}, fmt.Errorf("%w: %w", ErrInvalid, errNoSkills)
	}

	idx := Index{
		GeneratedAt: wire.GeneratedAt,
		Skills:      make([]Descriptor, 0, len(wire.Skills)),
	}

	seen := make(map[string]bool, len(wire.Skills))

	for _, ws := range wire.Skills {
		desc, descErr := validateSkill(ws)
		if descErr != nil {
			return Index{}, fmt.Errorf("%w: %w", ErrInvalid, descErr)
		}

		if seen[desc.ID] {
			return Index{}, fmt.Errorf("%w: %w: %s", ErrInvalid, errDuplicateID, desc.ID)
		}

		seen[desc.ID] = true
		idx.Skills = append(idx.Skills, desc)
	}

	return idx, nil
}

func validateSkill(ws wireSkill) (Descriptor, error) {
	if ws.ID == "" {
		return Descriptor{}, errMissingID
	}

	if !validID(ws.ID) {
		return Descriptor{}, fmt.Errorf("%w: %q", errBadID, ws.ID)
	}

	name := ws.Name
	if name == "" {
		name = ws.ID
	}

	category := ws.Category
	if category == "" {
		category = "unknown"
	}

	return Descriptor{
		ID:               ws.ID,
		Name:             name,
		Category:         category,
		ShortDescription: ws.ShortDescription,
		Tags:             normalizeSet(ws.Tags),
		TriggerKeywords:  normalizeBilingual(ws.TriggerKeywords),
		IntentPatterns:   normalizeBilingual(ws.IntentPatterns),
		NegativeKeywords: normalizeBilingual(ws.NegativeKeywords),
		BodyPath:         ws.BodyPath,
		BodyHash:         strings.ToLower(ws.BodyHash),
	}, nil
}

// validID reports whether id is in lowercase-hyphen form (also used as a
// cache filename component, so this doubles as path-safety validation).
func validID(id string) bool {
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
			if i == 0 || i == len(id)-1 {
				return false
			}
		default:
			return false
		}
	}

	return id != ""
}

func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}

func normalizeBilingual(m map[string][]string) Bilingual {
	return Bilingual{
		EN: normalizeSet(m["en"]),
		ZH: normalizeSet(m["zh"]),
	}
}
