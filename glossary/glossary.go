// Package glossary derives reference appendix from story entities.
package glossary

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/maruel/natural"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"folio/project"
)

// MaxBackstory is the longest character backstory used as description.
const MaxBackstory = 200

type Field struct {
	Label string
	Value string
}

type Entry struct {
	ID          string
	Name        string
	Type        string
	Aliases     []string
	Description string
	Fields      []Field
}

// Section groups entries of a single entity type.
type Section struct {
	Type    string
	Title   string
	Entries []Entry
}

type Options struct {
	// Types lists entity types to include, order of the list becomes order
	// of sections. Empty list means default types.
	Types []string
	// OnlyReferenced limits glossary to entities referenced in exported
	// content.
	OnlyReferenced bool
}

// Build filters entities by type (and by references when requested), groups
// them by type in requested order and sorts every group by name.
func Build(entities []project.Entity, opts Options, referenced map[string]struct{}) []Section {
	types := opts.Types
	if len(types) == 0 {
		types = project.DefaultEntityTypes
	}

	groups := make(map[string][]Entry)
	for i := range entities {
		e := &entities[i]
		if !slices.Contains(types, e.Type) {
			continue
		}
		if opts.OnlyReferenced {
			if _, ok := referenced[e.ID]; !ok {
				continue
			}
		}
		groups[e.Type] = append(groups[e.Type], makeEntry(e))
	}

	var sections []Section
	seen := make(map[string]bool)
	for _, t := range types {
		if seen[t] || len(groups[t]) == 0 {
			continue
		}
		seen[t] = true
		entries := groups[t]
		slices.SortStableFunc(entries, func(a, b Entry) int {
			return compareNames(a.Name, b.Name)
		})
		sections = append(sections, Section{Type: t, Title: SectionTitle(t), Entries: entries})
	}
	return sections
}

// compareNames orders names naturally ("Guard 2" before "Guard 10") ignoring
// case.
func compareNames(a, b string) int {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	switch {
	case natural.Less(la, lb):
		return -1
	case natural.Less(lb, la):
		return 1
	}
	return strings.Compare(a, b)
}

var sectionTitles = map[string]string{
	project.EntityCharacter: "Characters",
	project.EntityLocation:  "Locations",
	project.EntityItem:      "Items",
	project.EntityFaction:   "Factions",
	project.EntityEvent:     "Events",
	project.EntityConcept:   "Concepts",
}

// SectionTitle returns human readable title for entity type.
func SectionTitle(entityType string) string {
	if title, ok := sectionTitles[entityType]; ok {
		return title
	}
	return cases.Title(language.English).String(strings.ReplaceAll(entityType, "_", " "))
}

var descriptionKeys = []string{"description", "summary", "bio", "overview"}

var typeFields = map[string][]string{
	project.EntityCharacter: {"archetype", "goals"},
	project.EntityLocation:  {"climate", "atmosphere"},
	project.EntityItem:      {"category", "rarity"},
	project.EntityFaction:   {"goals"},
}

func makeEntry(e *project.Entity) Entry {
	entry := Entry{
		ID:          e.ID,
		Name:        e.Name,
		Type:        e.Type,
		Aliases:     slices.Clone(e.Aliases),
		Description: description(e),
	}
	caser := cases.Title(language.English)
	for _, key := range typeFields[e.Type] {
		if v := valueString(e.Properties[key]); v != "" {
			entry.Fields = append(entry.Fields, Field{Label: caser.String(key), Value: v})
		}
	}
	return entry
}

func description(e *project.Entity) string {
	if s := strings.TrimSpace(e.Notes); s != "" {
		return s
	}
	for _, key := range descriptionKeys {
		if s := valueString(e.Properties[key]); s != "" {
			return s
		}
	}
	if e.Type == project.EntityCharacter {
		if s := valueString(e.Properties["backstory"]); s != "" {
			return truncate(s, MaxBackstory)
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

// valueString renders property value for display, lists are joined with
// commas.
func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []string:
		return joinValues(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, valueString(item))
		}
		return joinValues(parts)
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func joinValues(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
