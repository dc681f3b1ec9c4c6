package markdown

import (
	"context"
	"errors"
	"strings"
	"testing"

	"folio/glossary"
	"folio/ir"
	"folio/parse"
	"folio/project"
	"folio/render"
)

func renderString(t *testing.T, in *render.Input) string {
	t.Helper()
	res, err := New(nil).Render(context.Background(), in)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if res.MimeType != "text/markdown" {
		t.Errorf("MimeType = %q", res.MimeType)
	}
	return string(res.Data)
}

func TestMarkOrder(t *testing.T) {
	all := ir.Text("x", ir.Bold(), ir.Link("http://a.com"), ir.Italic(), ir.Entity("e1", "character"), ir.Strike(), ir.Code())

	tests := []struct {
		name  string
		links bool
		in    ir.Inline
		want  string
	}{
		{"all marks with glossary", true, all, "***~~[`x`](#entity-e1)~~***"},
		{"all marks without glossary", false, all, "***~~[`x`](http://a.com)~~***"},
		{"bold italic", false, ir.Text("word", ir.Italic(), ir.Bold()), "***word***"},
		{"underline", false, ir.Text("u", ir.Underline(), ir.Bold()), "**<u>u</u>**"},
		{"spaces outside", false, ir.Text(" a b ", ir.Bold()), " **a b** "},
		{"entity plain", false, ir.Text("Alice", ir.Entity("c1", "character")), "Alice"},
		{"code with backtick", false, ir.Text("a`b", ir.Code()), "``a`b``"},
		{"escaped", false, ir.Text("a*b_c [d]"), `a\*b\_c \[d\]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &writer{links: tt.links}
			if got := w.text(tt.in); got != tt.want {
				t.Errorf("text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBlocks(t *testing.T) {
	tests := []struct {
		name  string
		block ir.Block
		want  string
	}{
		{"heading", ir.Heading(3, ir.Text("Deep")), "### Deep"},
		{"paragraph number", ir.Paragraph(ir.Text("1984. A year")), `1984\. A year`},
		{"hard break", ir.Paragraph(ir.Text("a"), ir.HardBreak(), ir.Text("b")), "a\\\nb"},
		{"number after hard break", ir.Paragraph(ir.Text("x"), ir.HardBreak(), ir.Text("1. y")), "x\\\n1\\. y"},
		{"paren number after hard break", ir.Paragraph(ir.Text("x"), ir.HardBreak(), ir.Text(" 2) y")), "x\\\n 2\\) y"},
		{"setext underline after hard break", ir.Paragraph(ir.Text("x"), ir.HardBreak(), ir.Text("===")), "x\\\n\\==="},
		{"fence after hard break", ir.Paragraph(ir.Text("x"), ir.HardBreak(), ir.Text("~~~")), "x\\\n\\~\\~\\~"},
		{"entity reference", ir.Paragraph(ir.Text("AT&amp;T")), `AT\&amp;T`},
		{"blockquote", ir.Blockquote(ir.Paragraph(ir.Text("one")), ir.Paragraph(ir.Text("two"))), "> one\n>\n> two"},
		{"bullets", ir.BulletList([]ir.Block{ir.Paragraph(ir.Text("a"))}, []ir.Block{ir.Paragraph(ir.Text("b"))}), "- a\n- b"},
		{"ordered", ir.OrderedList(3, []ir.Block{ir.Paragraph(ir.Text("c"))}, []ir.Block{ir.Paragraph(ir.Text("d"))}), "3. c\n4. d"},
		{"nested", ir.BulletList([]ir.Block{
			ir.Paragraph(ir.Text("a")),
			ir.BulletList([]ir.Block{ir.Paragraph(ir.Text("b"))}),
		}), "- a\n\n  - b"},
		{"code", ir.CodeBlock("x := 1\n", "go"), "```go\nx := 1\n```"},
		{"code fence", ir.CodeBlock("```", ""), "````\n```\n````"},
		{"rule", ir.HorizontalRule(), "---"},
		{"scene", ir.SceneBreak("s1", "Scene"), "* * *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &writer{}
			if got := w.renderBlock(&tt.block); got != tt.want {
				t.Errorf("renderBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapesSurviveParsing(t *testing.T) {
	tests := []struct {
		name  string
		block ir.Block
	}{
		{"ordered marker", ir.Paragraph(ir.Text("x"), ir.HardBreak(), ir.Text("1. y"))},
		{"setext underline", ir.Paragraph(ir.Text("x"), ir.HardBreak(), ir.Text("==="))},
		{"thematic break", ir.Paragraph(ir.Text("x"), ir.HardBreak(), ir.Text("---"))},
		{"code fence", ir.Paragraph(ir.Text("x"), ir.HardBreak(), ir.Text("~~~"))},
		{"character reference", ir.Paragraph(ir.Text("AT&amp;T & co"))},
		{"punctuation", ir.Paragraph(ir.Text("#1 <b> *a* _b_ [c] `d` | e + f ! g"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &writer{}
			md := w.renderBlock(&tt.block)
			got, err := parse.NewMarkdown(nil).Parse(context.Background(), []byte(md), "test.md")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != 1 || got[0].Kind != ir.BlockParagraph {
				t.Fatalf("%q parsed into %+v, want single paragraph", md, got)
			}
			if want := ir.InlinesToText(tt.block.Inlines); ir.InlinesToText(got[0].Inlines) != want {
				t.Errorf("%q parsed text = %q, want %q", md, ir.InlinesToText(got[0].Inlines), want)
			}
		})
	}
}

func TestRenderDocument(t *testing.T) {
	in := &render.Input{
		Project: &project.Project{Title: "My Book", Author: "Jane Doe"},
		Sections: []ir.Section{
			{ID: "c1", Title: "Chapter One", Level: 1, Blocks: []ir.Block{
				ir.Paragraph(ir.Text("Met "), ir.Text("Alice", ir.Entity("e1", "character")), ir.Text(".")),
			}},
			{ID: "s1", Title: "Arrival", Level: 2, Blocks: []ir.Block{ir.Paragraph(ir.Text("Text."))}},
		},
		Glossary: []glossary.Section{{Type: "character", Title: "Characters", Entries: []glossary.Entry{
			{ID: "e1", Name: "Alice", Aliases: []string{"Al"}, Description: "Hero", Fields: []glossary.Field{{Label: "Goals", Value: "home"}}},
		}}},
		Options: render.Options{
			IncludeTitlePage:    true,
			IncludeTOC:          true,
			PreserveEntityMarks: true,
			Glossary:            render.GlossaryOptions{Include: true},
		},
	}
	got := renderString(t, in)

	for _, want := range []string{
		"# My Book\n\n*Jane Doe*\n\n* * *\n",
		"## Table of Contents\n\n- [Chapter One](#chapter-one)\n  - [Arrival](#arrival)\n",
		"# Chapter One\n\nMet [Alice](#entity-e1).\n",
		"## Arrival\n\nText.\n",
		"# Glossary\n\n## Characters\n\n<a id=\"entity-e1\"></a>\n### Alice\n\n*Also known as: Al*\n\nHero\n\n- **Goals:** home\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q\n%s", want, got)
		}
	}
	if strings.Index(got, "# Chapter One") > strings.Index(got, "## Arrival") {
		t.Error("sections out of order")
	}
}

func TestRenderMinimal(t *testing.T) {
	in := &render.Input{Sections: []ir.Section{{Title: "Same", Level: 1}, {Title: "Same", Level: 1}}, Options: render.Options{IncludeTOC: true}}
	got := renderString(t, in)
	if !strings.Contains(got, "(#same)") || !strings.Contains(got, "(#same-1)") {
		t.Errorf("duplicate anchors were not made unique:\n%s", got)
	}
	if strings.Contains(got, "Untitled") {
		t.Errorf("title page rendered without option:\n%s", got)
	}

	res, err := New(nil).Render(context.Background(), &render.Input{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if string(res.Data) != "\n" || res.FileName != "Untitled.md" {
		t.Errorf("empty render = %q, %q", res.Data, res.FileName)
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Render(ctx, &render.Input{Sections: []ir.Section{{Title: "A"}}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}
