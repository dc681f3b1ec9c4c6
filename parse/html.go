package parse

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"folio/ir"
)

// HTMLToBlocks parses HTML document or fragment and converts its body to IR.
func HTMLToBlocks(src string, log *zap.Logger) ([]ir.Block, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, malformed("unable to parse html: %v", err)
	}
	if body := findElement(doc, atom.Body); body != nil {
		return FromHTML(body, log), nil
	}
	return FromHTML(doc, log), nil
}

// FromHTML converts children of the node to IR blocks. Block level tags map
// directly to blocks, generic containers are transparent and inline tags
// accumulate marks which are applied to every text node below them.
func FromHTML(root *html.Node, log *zap.Logger) []ir.Block {
	if log == nil {
		log = zap.NewNop()
	}
	if root == nil {
		return nil
	}
	c := &htmlConverter{log: log.Named("html")}
	return c.blocks(root)
}

type htmlConverter struct {
	log *zap.Logger
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func skipped(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Meta, atom.Link, atom.Noscript, atom.Template:
		return true
	}
	return false
}

// isInlineElement reports whether element belongs to phrasing content and
// therefore contributes to implicit paragraph when found among blocks.
func isInlineElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.A, atom.Abbr, atom.B, atom.Bdi, atom.Bdo, atom.Br, atom.Cite, atom.Code, atom.Data,
		atom.Del, atom.Dfn, atom.Em, atom.I, atom.Img, atom.Ins, atom.Kbd, atom.Mark, atom.Q,
		atom.S, atom.Samp, atom.Small, atom.Span, atom.Strike, atom.Strong, atom.Sub, atom.Sup,
		atom.Time, atom.Tt, atom.U, atom.Var, atom.Wbr, atom.Font, atom.Big:
		return true
	}
	return false
}

// isBlockElement reports whether element maps to IR block or is a container
// holding blocks.
func isBlockElement(n *html.Node) bool {
	return n.Type == html.ElementNode && !isInlineElement(n)
}

func (c *htmlConverter) blocks(parent *html.Node) []ir.Block {
	var (
		out     []ir.Block
		pending []*html.Node
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		var inlines []ir.Inline
		for _, n := range pending {
			c.inline(n, nil, false, &inlines)
		}
		pending = nil
		if inlines = normalizeInlines(inlines); len(inlines) > 0 {
			out = append(out, ir.Paragraph(inlines...))
		}
	}

	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.TextNode:
			pending = append(pending, n)
			continue
		case html.ElementNode:
		default:
			continue
		}
		if skipped(n.DataAtom) {
			continue
		}
		if isInlineElement(n) {
			pending = append(pending, n)
			continue
		}
		flush()
		out = append(out, c.block(n)...)
	}
	flush()
	return out
}

func (c *htmlConverter) block(n *html.Node) []ir.Block {
	if level := headingLevel(n.DataAtom); level > 0 {
		if inlines := c.inlines(n); len(inlines) > 0 {
			return []ir.Block{ir.Heading(level, inlines...)}
		}
		// empty headings are structural markers, splitter names them
		return []ir.Block{ir.Heading(level)}
	}

	switch n.DataAtom {
	case atom.P:
		if inlines := c.inlines(n); len(inlines) > 0 {
			return []ir.Block{ir.Paragraph(inlines...)}
		}
		return nil
	case atom.Blockquote:
		return []ir.Block{ir.Blockquote(c.blocks(n)...)}
	case atom.Ul:
		return []ir.Block{ir.BulletList(c.items(n)...)}
	case atom.Ol:
		start := 1
		if s := attr(n, "start"); s != "" {
			if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				start = v
			}
		}
		return []ir.Block{ir.OrderedList(start, c.items(n)...)}
	case atom.Li:
		return c.item(n)
	case atom.Pre:
		return []ir.Block{ir.CodeBlock(strings.TrimSuffix(rawText(n), "\n"), codeLanguage(n))}
	case atom.Hr:
		return []ir.Block{ir.HorizontalRule()}
	case atom.Img, atom.Svg, atom.Picture, atom.Video, atom.Audio, atom.Object, atom.Iframe:
		c.log.Debug("Dropping embedded media", zap.String("tag", n.Data))
		return nil
	}
	// div, section, article, body, table and everything else we do not know
	// about is treated as transparent container
	return c.blocks(n)
}

func (c *htmlConverter) items(list *html.Node) [][]ir.Block {
	var items [][]ir.Block
	for n := list.FirstChild; n != nil; n = n.NextSibling {
		switch {
		case n.Type == html.ElementNode && n.DataAtom == atom.Li:
			items = append(items, c.item(n))
		case n.Type == html.ElementNode && !skipped(n.DataAtom):
			if blocks := c.block(n); len(blocks) > 0 {
				items = append(items, blocks)
			}
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) != "":
			items = append(items, []ir.Block{ir.Paragraph(normalizeInlines([]ir.Inline{ir.Text(n.Data)})...)})
		}
	}
	return items
}

// item converts list item. Items with inline content only become single
// paragraph, items with nested blocks are converted fully.
func (c *htmlConverter) item(li *html.Node) []ir.Block {
	for n := li.FirstChild; n != nil; n = n.NextSibling {
		if isBlockElement(n) && !skipped(n.DataAtom) {
			return c.blocks(li)
		}
	}
	inlines := c.inlines(li)
	if len(inlines) == 0 {
		return nil
	}
	return []ir.Block{ir.Paragraph(inlines...)}
}

func (c *htmlConverter) inlines(n *html.Node) []ir.Inline {
	var out []ir.Inline
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.inline(child, nil, false, &out)
	}
	return normalizeInlines(out)
}

// inline walks inline content accumulating marks on the way down, so nested
// marks compose on each text node.
func (c *htmlConverter) inline(n *html.Node, marks []ir.Mark, pre bool, out *[]ir.Inline) {
	switch n.Type {
	case html.TextNode:
		text := n.Data
		if !pre {
			text = collapseSpace(text)
		}
		if text != "" {
			*out = append(*out, ir.Text(text, marks...))
		}
		return
	case html.ElementNode:
	default:
		return
	}
	if skipped(n.DataAtom) {
		return
	}

	switch n.DataAtom {
	case atom.Br:
		*out = append(*out, ir.HardBreak())
		return
	case atom.Img, atom.Svg, atom.Picture, atom.Video, atom.Audio, atom.Object, atom.Iframe:
		c.log.Debug("Dropping inline media", zap.String("tag", n.Data))
		return
	case atom.Pre:
		pre = true
	}

	if id := attr(n, "data-entity-id"); id != "" {
		marks = ir.AddMark(marks, ir.Entity(id, attr(n, "data-entity-type")))
	} else {
		switch n.DataAtom {
		case atom.Strong, atom.B:
			marks = ir.AddMark(marks, ir.Bold())
		case atom.Em, atom.I, atom.Cite, atom.Dfn, atom.Var:
			marks = ir.AddMark(marks, ir.Italic())
		case atom.Del, atom.S, atom.Strike:
			marks = ir.AddMark(marks, ir.Strike())
		case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
			marks = ir.AddMark(marks, ir.Code())
		case atom.U, atom.Ins:
			marks = ir.AddMark(marks, ir.Underline())
		case atom.A:
			href := attr(n, "href")
			if _, id, ok := strings.Cut(href, "#"+ir.EntityAnchorPrefix); ok && id != "" {
				// glossary reference produced by our own renderers
				marks = ir.AddMark(marks, ir.Entity(id, attr(n, "data-entity-type")))
			} else if href != "" {
				marks = ir.AddMark(marks, ir.Link(href))
			}
		case atom.Span, atom.Font, atom.Mark, atom.Q, atom.Small, atom.Big, atom.Sub, atom.Sup, atom.Abbr, atom.Time, atom.Data, atom.Bdi, atom.Bdo:
		default:
			if isBlockElement(n) {
				c.log.Debug("Block element inside inline content", zap.String("tag", n.Data))
			}
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.inline(child, marks, pre, out)
	}
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

// codeLanguage looks for "language-x" or "lang-x" class on pre or its code
// child.
func codeLanguage(pre *html.Node) string {
	candidates := []*html.Node{pre}
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			candidates = append(candidates, c)
		}
	}
	for _, n := range candidates {
		if lang := attr(n, "data-language"); lang != "" {
			return lang
		}
		for _, class := range strings.Fields(attr(n, "class")) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok && lang != "" {
				return lang
			}
			if lang, ok := strings.CutPrefix(class, "lang-"); ok && lang != "" {
				return lang
			}
		}
	}
	return ""
}

func collapseSpace(s string) string {
	if s == "" {
		return s
	}
	var buf strings.Builder
	buf.Grow(len(s))
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				buf.WriteByte(' ')
			}
			space = true
		default:
			buf.WriteRune(r)
			space = false
		}
	}
	return buf.String()
}

func sameMarks(a, b []ir.Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}

// normalizeInlines merges adjacent text with identical marks, collapses
// spaces across node boundaries and trims whitespace at line edges.
// Code marked text is never trimmed inside.
func normalizeInlines(in []ir.Inline) []ir.Inline {
	var out []ir.Inline
	for _, cur := range in {
		if cur.Kind == ir.InlineText {
			if len(out) > 0 {
				last := &out[len(out)-1]
				if last.Kind == ir.InlineText && strings.HasSuffix(last.Text, " ") && strings.HasPrefix(cur.Text, " ") && !ir.HasMark(cur, ir.MarkCode) {
					cur.Text = cur.Text[1:]
				}
				if cur.Text == "" {
					continue
				}
				if last.Kind == ir.InlineText && sameMarks(last.Marks, cur.Marks) {
					last.Text += cur.Text
					continue
				}
			}
			if cur.Text == "" {
				continue
			}
		}
		out = append(out, cur)
	}

	// trim at start, end and around hard breaks
	for i := range out {
		if out[i].Kind != ir.InlineText || ir.HasMark(out[i], ir.MarkCode) {
			continue
		}
		if i == 0 || out[i-1].Kind == ir.InlineHardBreak {
			out[i].Text = strings.TrimLeft(out[i].Text, " ")
		}
		if i == len(out)-1 || out[i+1].Kind == ir.InlineHardBreak {
			out[i].Text = strings.TrimRight(out[i].Text, " ")
		}
	}
	res := out[:0]
	for _, cur := range out {
		if cur.Kind == ir.InlineText && cur.Text == "" {
			continue
		}
		res = append(res, cur)
	}
	if len(res) == 0 {
		return nil
	}
	return res
}
