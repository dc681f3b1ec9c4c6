// Package docx renders exported sections as Word document.
package docx

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
	"go.uber.org/zap"

	"folio/common"
	"folio/glossary"
	"folio/ir"
	"folio/render"
)

// Sizes are in half points.
const (
	titleSize  = "56"
	authorSize = "32"
	codeFont   = "Courier New"
	quoteColor = "555555"
	entityMark = "yellow"
)

type Renderer struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log.Named("docx")}
}

func (r *Renderer) Render(ctx context.Context, in *render.Input) (*render.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &writer{doc: docx.New().WithDefaultTheme(), log: r.log, marks: in.Options.PreserveEntityMarks}

	if in.Options.IncludeTitlePage {
		w.titlePage(in.Title(), in.Author())
	}
	if in.Options.IncludeTOC && len(in.Sections) > 0 {
		w.toc(in.Sections)
	}
	for i := range in.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w.section(&in.Sections[i])
	}
	if len(in.Glossary) > 0 {
		w.glossary(in.Glossary)
	}

	var buf bytes.Buffer
	if _, err := w.doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("unable to write document: %w", err)
	}
	r.log.Debug("DOCX rendered", zap.Int("paragraphs", w.paragraphs), zap.Int("bytes", buf.Len()))

	return &render.Result{
		Data:     buf.Bytes(),
		MimeType: common.FormatDocx.MimeType(),
		FileName: in.FileName(common.FormatDocx.Ext()),
	}, nil
}

type writer struct {
	doc        *docx.Docx
	log        *zap.Logger
	paragraphs int
	// marks enables entity highlighting
	marks bool
	// pageBreak is set once anything is written, next chapter starts new page
	pageBreak bool
}

// para starts new paragraph, empty style keeps Normal.
func (w *writer) para(style string) *docx.Paragraph {
	p := w.doc.AddParagraph()
	if style != "" {
		p.Style(style)
	}
	w.paragraphs++
	w.pageBreak = true
	return p
}

func (w *writer) newPage() {
	if w.pageBreak {
		w.doc.AddParagraph().AddPageBreaks()
		w.pageBreak = false
	}
}

func headingStyle(level int) string {
	return "Heading" + strconv.Itoa(min(max(level, 1), 6))
}

func (w *writer) titlePage(title, author string) {
	p := w.para("Title")
	p.Justification("center")
	p.AddText(title).Bold().Size(titleSize)
	if author != "" {
		p := w.para("")
		p.Justification("center")
		p.AddText(author).Italic().Size(authorSize)
	}
}

func (w *writer) toc(sections []ir.Section) {
	w.newPage()
	w.para(headingStyle(1)).AddText("Table of Contents").Bold()
	for i := range sections {
		s := &sections[i]
		indent := strings.Repeat("    ", max(0, s.Level-1))
		w.para("").AddText(indent + sectionTitle(s))
	}
}

func (w *writer) section(s *ir.Section) {
	level := 1
	if s.Level > 1 {
		level = 2
	} else {
		w.newPage()
	}
	w.para(headingStyle(level)).AddText(sectionTitle(s)).Bold()
	w.blocks(s.Blocks, 0, false)
}

func sectionTitle(s *ir.Section) string {
	if s.Title == "" {
		return "Untitled"
	}
	return s.Title
}

func (w *writer) blocks(blocks []ir.Block, depth int, quote bool) {
	for i := range blocks {
		w.block(&blocks[i], depth, quote, "")
	}
}

// block writes single block, prefix is printed before first paragraph of
// list item.
func (w *writer) block(b *ir.Block, depth int, quote bool, prefix string) {
	switch b.Kind {
	case ir.BlockHeading:
		// content headings stay below section headings
		w.inlines(w.para(headingStyle(b.Level+2)), b.Inlines, quote, prefix)
	case ir.BlockParagraph:
		style := ""
		if quote {
			style = "Quote"
		}
		w.inlines(w.para(style), b.Inlines, quote, prefix)
	case ir.BlockBlockquote:
		w.blocks(b.Blocks, depth, true)
	case ir.BlockBulletList:
		for _, item := range b.Items {
			w.item(item, depth, quote, "•\t")
		}
	case ir.BlockOrderedList:
		start := b.StartNumber()
		for i, item := range b.Items {
			w.item(item, depth, quote, strconv.Itoa(start+i)+".\t")
		}
	case ir.BlockCode:
		for line := range strings.SplitSeq(strings.TrimSuffix(b.Text, "\n"), "\n") {
			p := w.para("HTMLPreformatted")
			if prefix != "" {
				p.AddText(prefix)
				prefix = ""
			}
			p.AddText(line).Font(codeFont, codeFont, codeFont, "default")
		}
	case ir.BlockHorizontalRule, ir.BlockSceneBreak:
		p := w.para("")
		p.Justification("center")
		p.AddText("* * *")
	}
}

func (w *writer) item(item []ir.Block, depth int, quote bool, marker string) {
	prefix := strings.Repeat("    ", depth) + marker
	if len(item) == 0 {
		w.para("").AddText(prefix)
		return
	}
	for i := range item {
		w.block(&item[i], depth+1, quote, prefix)
		prefix = strings.Repeat("    ", depth+1)
	}
}

// inlines adds runs to paragraph, hard break continues in new paragraph of
// the same style.
func (w *writer) inlines(p *docx.Paragraph, inlines []ir.Inline, quote bool, prefix string) {
	if prefix != "" {
		p.AddText(prefix)
	}
	for _, in := range inlines {
		if in.Kind == ir.InlineHardBreak {
			style := ""
			if p.Properties != nil && p.Properties.Style != nil {
				style = p.Properties.Style.Val
			}
			p = w.para(style)
			continue
		}
		if in.Text == "" {
			continue
		}

		entity := w.marks && ir.HasMark(in, ir.MarkEntity)
		if href := linkHref(in); href != "" && !entity {
			p.AddLink(in.Text, href)
			continue
		}

		run := p.AddText(in.Text)
		if ir.HasMark(in, ir.MarkBold) {
			run.Bold()
		}
		if ir.HasMark(in, ir.MarkItalic) || quote {
			run.Italic()
		}
		if ir.HasMark(in, ir.MarkUnderline) {
			run.Underline("single")
		}
		if ir.HasMark(in, ir.MarkCode) {
			run.Font(codeFont, codeFont, codeFont, "default")
		}
		if ir.HasMark(in, ir.MarkStrike) {
			run.Strike(true)
		}
		if quote {
			run.Color(quoteColor)
		}
		if entity {
			run.Highlight(entityMark)
		}
	}
}

func linkHref(in ir.Inline) string {
	for _, m := range in.Marks {
		if m.Kind == ir.MarkLink {
			return m.Href
		}
	}
	return ""
}

func (w *writer) glossary(sections []glossary.Section) {
	w.newPage()
	w.para(headingStyle(1)).AddText("Glossary").Bold()
	for _, gs := range sections {
		w.para(headingStyle(2)).AddText(gs.Title).Bold()
		for _, e := range gs.Entries {
			w.para("").AddText(e.Name).Bold()
			if len(e.Aliases) > 0 {
				w.para("").AddText("Also known as: " + strings.Join(e.Aliases, ", ")).Italic()
			}
			if e.Description != "" {
				w.para("").AddText(e.Description)
			}
			for _, f := range e.Fields {
				p := w.para("")
				p.AddText(f.Label + ": ").Bold()
				p.AddText(f.Value)
			}
		}
	}
}
