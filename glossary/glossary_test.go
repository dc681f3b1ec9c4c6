package glossary

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"folio/project"
)

func entities() []project.Entity {
	return []project.Entity{
		{ID: "c2", Name: "bob", Type: "character", Notes: "  Notes win  ", Properties: map[string]any{"description": "ignored"}},
		{ID: "c1", Name: "Alice", Type: "character", Aliases: []string{"Al"}, Properties: map[string]any{
			"summary":   "Protagonist",
			"archetype": "Hero",
			"goals":     []any{"find home", "", "survive"},
		}},
		{ID: "c10", Name: "Guard 10", Type: "character"},
		{ID: "c3", Name: "Guard 2", Type: "character", Properties: map[string]any{"backstory": strings.Repeat("x", 250)}},
		{ID: "l1", Name: "Paris", Type: "location", Properties: map[string]any{"overview": "City", "climate": "mild", "atmosphere": ""}},
		{ID: "i1", Name: "Sword", Type: "item", Properties: map[string]any{"category": "weapon", "rarity": 3.0}},
		{ID: "f1", Name: "Order", Type: "faction", Properties: map[string]any{"bio": "Secret", "goals": "power"}},
		{ID: "x1", Name: "Thing", Type: "creature", Properties: map[string]any{"description": "odd"}},
		{ID: "l2", Name: "Location with backstory", Type: "location", Properties: map[string]any{"backstory": "not used"}},
	}
}

func TestBuildOrdering(t *testing.T) {
	sections := Build(entities(), Options{Types: []string{"location", "character", "location"}}, nil)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if sections[0].Type != "location" || sections[1].Type != "character" {
		t.Errorf("section order = %s, %s", sections[0].Type, sections[1].Type)
	}
	if sections[0].Title != "Locations" || sections[1].Title != "Characters" {
		t.Errorf("titles = %s, %s", sections[0].Title, sections[1].Title)
	}

	var names []string
	for _, e := range sections[1].Entries {
		names = append(names, e.Name)
	}
	want := []string{"Alice", "bob", "Guard 2", "Guard 10"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestBuildDefaultTypes(t *testing.T) {
	sections := Build(entities(), Options{}, nil)
	var types []string
	for _, s := range sections {
		types = append(types, s.Type)
	}
	want := []string{"character", "location", "item", "faction"}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("types = %v, want %v", types, want)
	}
}

func TestBuildOnlyReferenced(t *testing.T) {
	refs := map[string]struct{}{"c1": {}, "i1": {}, "missing": {}}
	sections := Build(entities(), Options{OnlyReferenced: true}, refs)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if len(sections[0].Entries) != 1 || sections[0].Entries[0].ID != "c1" {
		t.Errorf("characters = %+v", sections[0].Entries)
	}
	if len(sections[1].Entries) != 1 || sections[1].Entries[0].ID != "i1" {
		t.Errorf("items = %+v", sections[1].Entries)
	}

	if got := Build(entities(), Options{OnlyReferenced: true}, nil); len(got) != 0 {
		t.Errorf("nil reference set must produce empty glossary, got %+v", got)
	}
	if got := Build(nil, Options{}, nil); len(got) != 0 {
		t.Errorf("Build(nil) = %+v", got)
	}
}

func TestEntryDetails(t *testing.T) {
	byID := map[string]Entry{}
	for _, s := range Build(entities(), Options{Types: []string{"character", "location", "item", "faction", "creature"}}, nil) {
		for _, e := range s.Entries {
			byID[e.ID] = e
		}
	}

	tests := []struct {
		id          string
		description string
		fields      []Field
	}{
		{"c2", "Notes win", nil},
		{"c1", "Protagonist", []Field{{"Archetype", "Hero"}, {"Goals", "find home, survive"}}},
		{"l1", "City", []Field{{"Climate", "mild"}}},
		{"i1", "", []Field{{"Category", "weapon"}, {"Rarity", "3"}}},
		{"f1", "Secret", []Field{{"Goals", "power"}}},
		{"x1", "odd", nil},
		{"l2", "", nil},
	}
	for _, tt := range tests {
		e, ok := byID[tt.id]
		if !ok {
			t.Errorf("entry %s is missing", tt.id)
			continue
		}
		if e.Description != tt.description {
			t.Errorf("%s description = %q, want %q", tt.id, e.Description, tt.description)
		}
		if !reflect.DeepEqual(e.Fields, tt.fields) {
			t.Errorf("%s fields = %+v, want %+v", tt.id, e.Fields, tt.fields)
		}
	}

	backstory := byID["c3"].Description
	if !strings.HasSuffix(backstory, "…") || utf8.RuneCountInString(backstory) != MaxBackstory+1 {
		t.Errorf("backstory was not truncated properly: %d runes", utf8.RuneCountInString(backstory))
	}
	if byID["x1"].Type != "creature" {
		t.Errorf("unexpected type %q", byID["x1"].Type)
	}
	if got := SectionTitle("plot_point"); got != "Plot Point" {
		t.Errorf("SectionTitle() = %q", got)
	}
}
