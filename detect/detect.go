// Package detect finds story entities (characters, locations and so on)
// mentioned in imported text. Detection is best effort, callers are expected
// to log failures and continue without entities.
package detect

import (
	"context"
	"slices"
	"strings"
)

// Candidate is an entity found in text.
type Candidate struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Detector looks for entities of requested types in text.
type Detector interface {
	Detect(ctx context.Context, text string, types []string) ([]Candidate, error)
}

// normalize drops candidates with empty names or types outside of allowed
// list and merges duplicates by case-insensitive name.
func normalize(candidates []Candidate, types []string) []Candidate {
	var out []Candidate
	index := make(map[string]int)
	for _, c := range candidates {
		c.Name = strings.TrimSpace(c.Name)
		c.Type = strings.ToLower(strings.TrimSpace(c.Type))
		if c.Name == "" || (len(types) > 0 && !slices.Contains(types, c.Type)) {
			continue
		}
		key := strings.ToLower(c.Name)
		if i, ok := index[key]; ok {
			out[i].Aliases = mergeAliases(out[i].Aliases, c.Aliases, out[i].Name)
			if out[i].Description == "" {
				out[i].Description = c.Description
			}
			continue
		}
		c.Aliases = mergeAliases(nil, c.Aliases, c.Name)
		index[key] = len(out)
		out = append(out, c)
	}
	return out
}

func mergeAliases(have, add []string, name string) []string {
	for _, a := range add {
		a = strings.TrimSpace(a)
		if a == "" || strings.EqualFold(a, name) {
			continue
		}
		if slices.ContainsFunc(have, func(h string) bool { return strings.EqualFold(h, a) }) {
			continue
		}
		have = append(have, a)
	}
	return have
}
