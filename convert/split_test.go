package convert

import (
	"fmt"
	"testing"

	"folio/ir"
	"folio/parse"
	"folio/project"
)

func countKind(blocks []ir.Block, kind ir.BlockKind) int {
	n := 0
	for _, b := range blocks {
		if b.Kind == kind {
			n++
		}
	}
	return n
}

func TestSplit_PlainTextScenario(t *testing.T) {
	defer sequentialIDs()()

	blocks := parse.TextToBlocks("CHAPTER ONE\n\nShe walked in.\n\nScene break.\n\nCHAPTER TWO\n\nLater that day.")
	drafts := Split(blocks, "manuscript.txt")

	if len(drafts) != 2 {
		t.Fatalf("Split() produced %d drafts, want 2", len(drafts))
	}
	want := []struct {
		title string
		text  string
	}{
		{"CHAPTER ONE", "She walked in."},
		{"CHAPTER TWO", "Later that day."},
	}
	for i, d := range drafts {
		if d.Type != project.TypeChapter {
			t.Errorf("draft %d type = %q, want chapter", i, d.Type)
		}
		if d.ParentID != "" {
			t.Errorf("draft %d parent = %q, want root", i, d.ParentID)
		}
		if d.OrderIndex != i {
			t.Errorf("draft %d orderIndex = %d, want %d", i, d.OrderIndex, i)
		}
		if d.Title != want[i].title {
			t.Errorf("draft %d title = %q, want %q", i, d.Title, want[i].title)
		}
		if n := countKind(d.Blocks, ir.BlockParagraph); n != 1 {
			t.Errorf("draft %d has %d paragraphs, want 1", i, n)
			continue
		}
		for _, b := range d.Blocks {
			if b.Kind == ir.BlockParagraph && ir.InlinesToText(b.Inlines) != want[i].text {
				t.Errorf("draft %d paragraph = %q, want %q", i, ir.InlinesToText(b.Inlines), want[i].text)
			}
		}
	}
	if drafts[0].WordCount != 3 {
		t.Errorf("first draft word count = %d, want 3", drafts[0].WordCount)
	}
}

func para(text string) ir.Block {
	return ir.Paragraph(ir.Text(text))
}

func TestSplit_Invariants(t *testing.T) {
	tests := []struct {
		name   string
		blocks []ir.Block
	}{
		{"empty", nil},
		{"no headings", []ir.Block{para("a"), para("b"), ir.HorizontalRule(), para("c")}},
		{"scene before chapter", []ir.Block{ir.Heading(2, ir.Text("Opening")), para("a"), ir.Heading(1, ir.Text("One")), para("b")}},
		{"content before first chapter", []ir.Block{para("a"), ir.Heading(1, ir.Text("One")), para("b"), ir.Heading(2, ir.Text("S1")), para("c")}},
		{"deep headings are content", []ir.Block{ir.Heading(1, ir.Text("One")), ir.Heading(3, ir.Text("Note")), para("a"), ir.Heading(6, ir.Text("Tiny"))}},
		{"many scenes", []ir.Block{
			ir.Heading(1, ir.Text("One")), ir.Heading(2), para("a"), ir.Heading(2, ir.Text("S2")), para("b"),
			ir.Heading(1), ir.Heading(2, ir.Text("S1")), para("c"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts := Split(tt.blocks, "book.md")

			if len(drafts) == 0 {
				t.Fatal("Split() produced no drafts")
			}

			// every non structural block ends up in exactly one draft
			seen := make(map[string]int)
			for _, d := range drafts {
				for _, b := range d.Blocks {
					seen[fmt.Sprintf("%v", b)]++
				}
			}
			for _, b := range tt.blocks {
				if b.Kind == ir.BlockHeading && b.Level <= 2 {
					continue
				}
				key := fmt.Sprintf("%v", b)
				if seen[key] == 0 {
					t.Errorf("block %s lost", key)
				}
				seen[key]--
			}
			for key, n := range seen {
				if n != 0 {
					t.Errorf("block %s placed %d extra times", key, n)
				}
			}

			// scenes follow their chapters
			chapters := make(map[string]bool)
			for i, d := range drafts {
				if d.Title == "" {
					t.Errorf("draft %d has no title", i)
				}
				switch d.Type {
				case project.TypeChapter:
					chapters[d.ID] = true
				case project.TypeScene:
					if !chapters[d.ParentID] {
						t.Errorf("scene %q parent %q does not precede it", d.Title, d.ParentID)
					}
				default:
					t.Errorf("unexpected draft type %q", d.Type)
				}
			}
		})
	}
}

func TestSplit_NoHeadings(t *testing.T) {
	blocks := []ir.Block{para("a"), para("b"), para("c")}
	drafts := Split(blocks, "/tmp/My Story.docx")
	if len(drafts) != 1 {
		t.Fatalf("Split() produced %d drafts, want 1", len(drafts))
	}
	if drafts[0].Title != "My Story" || drafts[0].Type != project.TypeChapter {
		t.Errorf("draft = %q/%q, want chapter My Story", drafts[0].Title, drafts[0].Type)
	}
	if len(drafts[0].Blocks) != 3 {
		t.Errorf("draft has %d blocks, want 3", len(drafts[0].Blocks))
	}
}

func TestSplit_Structure(t *testing.T) {
	defer sequentialIDs()()

	blocks := []ir.Block{
		ir.Heading(2, ir.Text("Prelude")), para("a"),
		ir.Heading(1), para("b"),
		ir.Heading(2), para("c"),
		ir.Heading(2, ir.Text("Dusk")), para("d"),
	}
	drafts := Split(blocks, "novel.md")

	want := []struct {
		title, typ, parent string
		order              int
	}{
		{"novel", project.TypeChapter, "", 0},
		{"Prelude", project.TypeScene, "d1", 0},
		{"Chapter 2", project.TypeChapter, "", 1},
		{"Scene 1", project.TypeScene, "d3", 0},
		{"Dusk", project.TypeScene, "d3", 1},
	}
	if len(drafts) != len(want) {
		t.Fatalf("Split() produced %d drafts, want %d", len(drafts), len(want))
	}
	for i, w := range want {
		d := drafts[i]
		if d.Title != w.title || d.Type != w.typ || d.ParentID != w.parent || d.OrderIndex != w.order {
			t.Errorf("draft %d = {%q %q %q %d}, want {%q %q %q %d}", i, d.Title, d.Type, d.ParentID, d.OrderIndex, w.title, w.typ, w.parent, w.order)
		}
	}
}

func TestBaseTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"draft.md", "draft"},
		{"/a/b/The Book.epub", "The Book"},
		{"", "Untitled"},
		{".md", "Untitled"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := baseTitle(tt.in); got != tt.want {
			t.Errorf("baseTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
