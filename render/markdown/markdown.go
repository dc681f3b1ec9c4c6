// Package markdown renders exported sections as CommonMark text.
package markdown

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"folio/common"
	"folio/glossary"
	"folio/ir"
	"folio/render"
)

const sceneBreak = "* * *"

type Renderer struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log.Named("markdown")}
}

func (r *Renderer) Render(ctx context.Context, in *render.Input) (*render.Result, error) {
	w := &writer{links: in.Options.EntityLinks(), anchors: make(map[string]int)}

	if in.Options.IncludeTitlePage {
		w.block("# " + escapeText(in.Title()))
		if author := in.Author(); author != "" {
			w.block("*" + escapeText(author) + "*")
		}
		w.block(sceneBreak)
	}

	// anchors must be stable between TOC and headings
	ids := make([]string, len(in.Sections))
	for i := range in.Sections {
		ids[i] = w.anchor(in.Sections[i].Title)
	}

	if in.Options.IncludeTOC && len(in.Sections) > 0 {
		var toc []string
		for i := range in.Sections {
			s := &in.Sections[i]
			indent := strings.Repeat("  ", max(0, s.Level-1))
			toc = append(toc, fmt.Sprintf("%s- [%s](#%s)", indent, escapeText(sectionTitle(s)), ids[i]))
		}
		w.block("## Table of Contents")
		w.block(strings.Join(toc, "\n"))
	}

	for i := range in.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := &in.Sections[i]
		level := 1
		if s.Level > 1 {
			level = 2
		}
		w.block(strings.Repeat("#", level) + " " + escapeText(sectionTitle(s)))
		w.blocks(s.Blocks)
	}

	if len(in.Glossary) > 0 {
		w.glossary(in.Glossary)
	}

	r.log.Debug("Markdown rendered", zap.Int("sections", len(in.Sections)), zap.Int("bytes", w.buf.Len()))
	return &render.Result{
		Data:     []byte(w.String()),
		MimeType: common.FormatMarkdown.MimeType(),
		FileName: in.FileName(common.FormatMarkdown.Ext()),
	}, nil
}

func sectionTitle(s *ir.Section) string {
	if s.Title == "" {
		return "Untitled"
	}
	return s.Title
}

type writer struct {
	buf     strings.Builder
	links   bool
	anchors map[string]int
}

func (w *writer) String() string {
	return strings.TrimRight(w.buf.String(), "\n") + "\n"
}

// block appends already rendered block separated by blank line.
func (w *writer) block(s string) {
	if s == "" {
		return
	}
	if w.buf.Len() > 0 {
		w.buf.WriteString("\n")
	}
	w.buf.WriteString(s)
	w.buf.WriteString("\n")
}

func (w *writer) blocks(blocks []ir.Block) {
	for i := range blocks {
		w.block(w.renderBlock(&blocks[i]))
	}
}

// anchor returns unique slug for heading text the way most Markdown viewers
// generate heading ids.
func (w *writer) anchor(title string) string {
	id := slug.Make(title)
	if id == "" {
		id = "section"
	}
	n := w.anchors[id]
	w.anchors[id] = n + 1
	if n > 0 {
		return id + "-" + strconv.Itoa(n)
	}
	return id
}

func (w *writer) renderBlocks(blocks []ir.Block) string {
	parts := make([]string, 0, len(blocks))
	for i := range blocks {
		if s := w.renderBlock(&blocks[i]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (w *writer) renderBlock(b *ir.Block) string {
	switch b.Kind {
	case ir.BlockHeading:
		return strings.Repeat("#", min(max(b.Level, 1), 6)) + " " + w.inlines(b.Inlines)
	case ir.BlockParagraph:
		return escapeLineStart(w.inlines(b.Inlines))
	case ir.BlockBlockquote:
		return prefixLines(w.renderBlocks(b.Blocks), "> ", ">")
	case ir.BlockBulletList:
		return w.list(b.Items, func(int) string { return "- " })
	case ir.BlockOrderedList:
		start := b.StartNumber()
		return w.list(b.Items, func(i int) string { return strconv.Itoa(start+i) + ". " })
	case ir.BlockCode:
		fence := strings.Repeat("`", max(3, longestRun(b.Text, '`')+1))
		return fence + b.Language + "\n" + strings.TrimSuffix(b.Text, "\n") + "\n" + fence
	case ir.BlockHorizontalRule:
		return "---"
	case ir.BlockSceneBreak:
		return sceneBreak
	}
	return ""
}

func (w *writer) list(items [][]ir.Block, marker func(int) string) string {
	tight := true
	for _, item := range items {
		if len(item) > 1 {
			tight = false
		}
	}
	parts := make([]string, 0, len(items))
	for i, item := range items {
		m := marker(i)
		body := w.renderBlocks(item)
		parts = append(parts, m+indentTail(body, strings.Repeat(" ", len(m))))
	}
	if tight {
		return strings.Join(parts, "\n")
	}
	return strings.Join(parts, "\n\n")
}

func (w *writer) inlines(inlines []ir.Inline) string {
	var sb strings.Builder
	for _, in := range inlines {
		switch in.Kind {
		case ir.InlineHardBreak:
			sb.WriteString("\\\n")
		case ir.InlineText:
			sb.WriteString(w.text(in))
		}
	}
	return sb.String()
}

// text wraps inline text with markers in fixed inside-out order: code,
// entity, link, underline, strike, italic, bold. Surrounding spaces are kept
// outside of the markers so emphasis stays valid.
func (w *writer) text(in ir.Inline) string {
	raw := strings.ReplaceAll(in.Text, "\n", " ")
	core := strings.TrimSpace(raw)
	if core == "" {
		return raw
	}
	lead := raw[:strings.Index(raw, core)]
	trail := raw[len(lead)+len(core):]

	var s string
	if ir.HasMark(in, ir.MarkCode) {
		s = codeSpan(core)
	} else {
		s = escapeText(core)
	}

	linked := false
	if m, ok := ir.EntityMark(in); ok && w.links {
		s = "[" + s + "](#" + ir.EntityAnchor(m.EntityID) + ")"
		linked = true
	}
	if !linked {
		for _, m := range in.Marks {
			if m.Kind == ir.MarkLink && m.Href != "" {
				s = "[" + s + "](" + escapeURL(m.Href) + ")"
				break
			}
		}
	}
	if ir.HasMark(in, ir.MarkUnderline) {
		s = "<u>" + s + "</u>"
	}
	if ir.HasMark(in, ir.MarkStrike) {
		s = "~~" + s + "~~"
	}
	if ir.HasMark(in, ir.MarkItalic) {
		s = "*" + s + "*"
	}
	if ir.HasMark(in, ir.MarkBold) {
		s = "**" + s + "**"
	}
	return lead + s + trail
}

func (w *writer) glossary(sections []glossary.Section) {
	w.block("# Glossary")
	for _, sec := range sections {
		w.block("## " + escapeText(sec.Title))
		for _, e := range sec.Entries {
			w.block(fmt.Sprintf(`<a id="%s"></a>`, ir.EntityAnchor(e.ID)) + "\n### " + escapeText(e.Name))
			if len(e.Aliases) > 0 {
				w.block("*Also known as: " + escapeText(strings.Join(e.Aliases, ", ")) + "*")
			}
			if e.Description != "" {
				w.block(escapeLineStart(escapeText(e.Description)))
			}
			if len(e.Fields) > 0 {
				lines := make([]string, 0, len(e.Fields))
				for _, f := range e.Fields {
					lines = append(lines, "- **"+escapeText(f.Label)+":** "+escapeText(f.Value))
				}
				w.block(strings.Join(lines, "\n"))
			}
		}
	}
}

var escaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`,
	"#", `\#`, "+", `\+`, "-", `\-`, "!", `\!`, "<", `\<`, ">", `\>`, "|", `\|`,
	"~", `\~`, "&", `\&`,
)

func escapeText(s string) string {
	return escaper.Replace(s)
}

// escapeLineStart keeps every line of a paragraph (lines follow hard
// breaks) from starting ordered list or underlining setext heading.
func escapeLineStart(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = escapeLine(l)
	}
	return strings.Join(lines, "\n")
}

func escapeLine(l string) string {
	body := strings.TrimLeft(l, " ")
	indent := l[:len(l)-len(body)]

	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	switch {
	case i > 0 && i < len(body) && (body[i] == '.' || body[i] == ')'):
		return indent + body[:i] + `\` + body[i:]
	case strings.HasPrefix(body, "="):
		return indent + `\` + body
	}
	return l
}

func escapeURL(href string) string {
	return strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29").Replace(href)
}

func codeSpan(s string) string {
	fence := strings.Repeat("`", longestRun(s, '`')+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		s = " " + s + " "
	}
	return fence + s + fence
}

func longestRun(s string, c byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			best = max(best, cur)
		} else {
			cur = 0
		}
	}
	return best
}

func prefixLines(s, prefix, empty string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = empty
		} else {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

func indentTail(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
