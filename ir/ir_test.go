package ir

import (
	"testing"
)

func TestHeadingClampsLevel(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-3, 1}, {0, 1}, {1, 1}, {4, 4}, {6, 6}, {7, 6}, {42, 6},
	}
	for _, tt := range tests {
		if got := Heading(tt.in, Text("x")).Level; got != tt.want {
			t.Errorf("Heading(%d).Level = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOrderedListStart(t *testing.T) {
	b := OrderedList(1, []Block{Paragraph(Text("a"))})
	if b.Start != nil {
		t.Errorf("default start should not be stored, got %d", *b.Start)
	}
	if b.StartNumber() != 1 {
		t.Errorf("StartNumber() = %d, want 1", b.StartNumber())
	}
	b = OrderedList(0)
	if b.Start == nil || b.StartNumber() != 0 {
		t.Errorf("StartNumber() = %d, want 0", b.StartNumber())
	}
}

func TestTextCopiesMarks(t *testing.T) {
	marks := []Mark{Bold()}
	in := Text("a", marks...)
	marks[0] = Italic()
	if !HasMark(in, MarkBold) || HasMark(in, MarkItalic) {
		t.Errorf("marks were shared with caller: %+v", in.Marks)
	}
	if in := Text("plain"); in.Marks != nil {
		t.Errorf("expected nil marks, got %+v", in.Marks)
	}
}

func TestEntityMark(t *testing.T) {
	in := Text("Alice", Bold(), Entity("e1", "character"))
	m, ok := EntityMark(in)
	if !ok {
		t.Fatal("entity mark not found")
	}
	if m.EntityID != "e1" || m.EntityType != "character" {
		t.Errorf("EntityMark() = %+v", m)
	}
	if _, ok := EntityMark(Text("Bob", Italic())); ok {
		t.Error("unexpected entity mark")
	}
	if _, ok := EntityMark(HardBreak()); ok {
		t.Error("unexpected entity mark on hard break")
	}
}

func TestAddMark(t *testing.T) {
	base := []Mark{Bold()}
	got := AddMark(base, Bold())
	if len(got) != 1 {
		t.Errorf("duplicate mark added: %+v", got)
	}
	got = AddMark(base, Link("https://a"))
	if len(got) != 2 || len(base) != 1 {
		t.Errorf("AddMark() = %+v, base = %+v", got, base)
	}
	got = AddMark(got, Link("https://b"))
	if len(got) != 3 {
		t.Errorf("links with different href must both be kept: %+v", got)
	}
}

func TestBlocksToText(t *testing.T) {
	blocks := []Block{
		Heading(1, Text("Title")),
		Paragraph(Text("one "), Text("two", Bold()), HardBreak(), Text("three")),
		Blockquote(Paragraph(Text("quoted"))),
		BulletList([]Block{Paragraph(Text("a"))}, []Block{Paragraph(Text("b"))}),
		HorizontalRule(),
		CodeBlock("x := 1", "go"),
		SceneBreak("", ""),
	}
	want := "Title\n\none two\nthree\n\nquoted\n\na\n\nb\n\nx := 1"
	if got := BlocksToText(blocks); got != want {
		t.Errorf("BlocksToText() =\n%q\nwant\n%q", got, want)
	}
	if got := WordCount(blocks); got != 10 {
		t.Errorf("WordCount() = %d, want 10", got)
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := BlocksToText(nil); got != "" {
		t.Errorf("BlocksToText(nil) = %q", got)
	}
	if got := InlinesToText(nil); got != "" {
		t.Errorf("InlinesToText(nil) = %q", got)
	}
	if got := WordCount(nil); got != 0 {
		t.Errorf("WordCount(nil) = %d", got)
	}
	if got := EntityIDs(nil); len(got) != 0 {
		t.Errorf("EntityIDs(nil) = %v", got)
	}
}

func TestEntityIDs(t *testing.T) {
	blocks := []Block{
		Paragraph(Text("Alice", Entity("c1", "character")), Text(" met "), Text("Bob", Entity("c2", "character"))),
		Blockquote(Paragraph(Text("in Paris", Entity("l1", "location")))),
		OrderedList(3, []Block{Paragraph(Text("Alice again", Entity("c1", "character")))}),
	}
	got := EntityIDs(blocks)
	for _, id := range []string{"c1", "c2", "l1"} {
		if _, ok := got[id]; !ok {
			t.Errorf("missing %s in %v", id, got)
		}
	}
	if len(got) != 3 {
		t.Errorf("EntityIDs() = %v, want 3 ids", got)
	}

	sections := []Section{
		{ID: "s1", Title: "One", Level: 1, Blocks: blocks[:1]},
		{ID: "s2", Title: "Two", Level: 2, Blocks: blocks[1:2]},
	}
	refs := ReferencedEntities(sections)
	if len(refs) != 3 {
		t.Errorf("ReferencedEntities() = %v", refs)
	}
}
