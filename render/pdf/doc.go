package pdf

import (
	"strconv"
	"strings"

	"folio/glossary"
	"folio/ir"
	"folio/render"
)

// NodeKind distinguishes layout nodes.
type NodeKind int

const (
	NodePageBreak NodeKind = iota
	NodeTitle
	NodeAuthor
	NodeHeading
	NodeParagraph
	NodeCode
	NodeRule
	NodeSceneBreak
	NodeTOCEntry
)

// Span is a run of text with uniform styling.
type Span struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
	Code      bool
	Highlight bool
	// Link is external URL, Target is anchor inside the document.
	Link   string
	Target string
	// Break ends current line.
	Break bool
}

// Node is a single laid out block. Documents are flat lists of nodes,
// nesting of quotes and lists is expressed with Indent.
type Node struct {
	Kind   NodeKind
	Level  int
	Indent int
	Italic bool
	// Marker is list item bullet or number printed in front of the first line.
	Marker string
	Spans  []Span
	Text   string
	// Anchor names position other nodes can link to.
	Anchor string
	// Bookmark adds outline entry at Level.
	Bookmark bool
}

// Doc is declarative description of PDF document, layout engine turns it into
// pages.
type Doc struct {
	Title  string
	Author string
	Nodes  []Node
}

func (d *Doc) add(n Node) {
	d.Nodes = append(d.Nodes, n)
}

// Anchors returns all anchors defined in the document.
func (d *Doc) Anchors() []string {
	var out []string
	for _, n := range d.Nodes {
		if n.Anchor != "" {
			out = append(out, n.Anchor)
		}
	}
	return out
}

func sectionAnchor(i int) string {
	return "section-" + strconv.Itoa(i+1)
}

// Build converts renderer input into document tree.
func Build(in *render.Input) *Doc {
	d := &Doc{Title: in.Title(), Author: in.Author()}

	b := &builder{doc: d, marks: in.Options.PreserveEntityMarks}

	if in.Options.IncludeTitlePage {
		d.add(Node{Kind: NodeTitle, Text: d.Title})
		if d.Author != "" {
			d.add(Node{Kind: NodeAuthor, Text: d.Author})
		}
	}

	if in.Options.IncludeTOC && len(in.Sections) > 0 {
		if len(d.Nodes) > 0 {
			d.add(Node{Kind: NodePageBreak})
		}
		d.add(Node{Kind: NodeHeading, Level: 1, Spans: []Span{{Text: "Table of Contents"}}})
		for i := range in.Sections {
			s := &in.Sections[i]
			d.add(Node{
				Kind:   NodeTOCEntry,
				Indent: max(0, s.Level-1),
				Spans:  []Span{{Text: sectionTitle(s), Target: sectionAnchor(i)}},
			})
		}
	}

	for i := range in.Sections {
		s := &in.Sections[i]
		level := 1
		if s.Level > 1 {
			level = 2
		}
		if level == 1 && len(d.Nodes) > 0 {
			d.add(Node{Kind: NodePageBreak})
		}
		d.add(Node{
			Kind:     NodeHeading,
			Level:    level,
			Spans:    []Span{{Text: sectionTitle(s)}},
			Anchor:   sectionAnchor(i),
			Bookmark: true,
		})
		b.blocks(s.Blocks, 0, false)
	}

	if len(in.Glossary) > 0 {
		b.glossary(in.Glossary)
	}
	return d
}

func sectionTitle(s *ir.Section) string {
	if s.Title == "" {
		return "Untitled"
	}
	return s.Title
}

type builder struct {
	doc *Doc
	// highlight entity references
	marks bool
}

func (b *builder) blocks(blocks []ir.Block, indent int, quote bool) {
	for i := range blocks {
		b.block(&blocks[i], indent, quote, "")
	}
}

// block adds nodes for a single block, marker is prepended to the first
// produced node of a list item.
func (b *builder) block(block *ir.Block, indent int, quote bool, marker string) {
	switch block.Kind {
	case ir.BlockHeading:
		// content headings are always below section headings
		b.doc.add(Node{Kind: NodeHeading, Level: min(block.Level+2, 6), Indent: indent, Marker: marker, Spans: b.spans(block.Inlines)})
	case ir.BlockParagraph:
		b.doc.add(Node{Kind: NodeParagraph, Indent: indent, Italic: quote, Marker: marker, Spans: b.spans(block.Inlines)})
	case ir.BlockBlockquote:
		b.blocks(block.Blocks, indent+1, true)
	case ir.BlockBulletList:
		for _, item := range block.Items {
			b.item(item, indent, quote, "•")
		}
	case ir.BlockOrderedList:
		start := block.StartNumber()
		for i, item := range block.Items {
			b.item(item, indent, quote, strconv.Itoa(start+i)+".")
		}
	case ir.BlockCode:
		b.doc.add(Node{Kind: NodeCode, Indent: indent, Marker: marker, Text: strings.TrimSuffix(block.Text, "\n")})
	case ir.BlockHorizontalRule:
		b.doc.add(Node{Kind: NodeRule, Indent: indent})
	case ir.BlockSceneBreak:
		b.doc.add(Node{Kind: NodeSceneBreak})
	}
}

func (b *builder) item(item []ir.Block, indent int, quote bool, marker string) {
	if len(item) == 0 {
		b.doc.add(Node{Kind: NodeParagraph, Indent: indent + 1, Marker: marker})
		return
	}
	for i := range item {
		m := ""
		if i == 0 {
			m = marker
		}
		b.block(&item[i], indent+1, quote, m)
	}
}

func (b *builder) spans(inlines []ir.Inline) []Span {
	spans := make([]Span, 0, len(inlines))
	for _, in := range inlines {
		if in.Kind == ir.InlineHardBreak {
			spans = append(spans, Span{Break: true})
			continue
		}
		s := Span{
			Text:      in.Text,
			Bold:      ir.HasMark(in, ir.MarkBold),
			Italic:    ir.HasMark(in, ir.MarkItalic),
			Underline: ir.HasMark(in, ir.MarkUnderline),
			Strike:    ir.HasMark(in, ir.MarkStrike),
			Code:      ir.HasMark(in, ir.MarkCode),
		}
		for _, m := range in.Marks {
			if m.Kind == ir.MarkLink && isExternal(m.Href) {
				s.Link = m.Href
			}
		}
		// entity references are highlighted, never linked
		if b.marks && ir.HasMark(in, ir.MarkEntity) {
			s.Highlight = true
		}
		spans = append(spans, s)
	}
	return spans
}

func isExternal(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") || strings.HasPrefix(href, "mailto:")
}

func (b *builder) glossary(sections []glossary.Section) {
	d := b.doc
	d.add(Node{Kind: NodePageBreak})
	d.add(Node{Kind: NodeHeading, Level: 1, Spans: []Span{{Text: "Glossary"}}, Bookmark: true})
	for _, gs := range sections {
		d.add(Node{Kind: NodeHeading, Level: 2, Spans: []Span{{Text: gs.Title}}})
		for _, e := range gs.Entries {
			d.add(Node{Kind: NodeParagraph, Spans: []Span{{Text: e.Name, Bold: true}}})
			if len(e.Aliases) > 0 {
				d.add(Node{Kind: NodeParagraph, Indent: 1, Italic: true, Spans: []Span{{Text: "Also known as: " + strings.Join(e.Aliases, ", ")}}})
			}
			if e.Description != "" {
				d.add(Node{Kind: NodeParagraph, Indent: 1, Spans: []Span{{Text: e.Description}}})
			}
			for _, f := range e.Fields {
				d.add(Node{Kind: NodeParagraph, Indent: 1, Spans: []Span{{Text: f.Label + ": ", Bold: true}, {Text: f.Value}}})
			}
		}
	}
}
