package editor

import (
	"strings"

	"go.uber.org/zap"

	"folio/ir"
)

// ToIR converts editor document to IR blocks. It never fails: unknown
// blocks degrade to paragraphs with whatever text could be extracted or are
// dropped, unknown marks are dropped. Everything unexpected is logged.
func ToIR(doc *Node, log *zap.Logger) []ir.Block {
	if log == nil {
		log = zap.NewNop()
	}
	if doc == nil {
		return nil
	}
	c := &forward{log: log.Named("editor")}
	if doc.Type == "doc" {
		return c.blocks(doc.Content)
	}
	return c.blocks([]*Node{doc})
}

type forward struct {
	log *zap.Logger
}

func isInline(n *Node) bool {
	return n.Type == "text" || n.Type == "hardBreak"
}

// blocks converts list of sibling nodes. Runs of inline nodes found on block
// level are gathered into implicit paragraphs.
func (c *forward) blocks(nodes []*Node) []ir.Block {
	var (
		out     []ir.Block
		pending []*Node
	)
	flush := func() {
		if len(pending) > 0 {
			if inlines := c.inlines(pending); len(inlines) > 0 {
				out = append(out, ir.Paragraph(inlines...))
			}
			pending = nil
		}
	}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if isInline(n) {
			pending = append(pending, n)
			continue
		}
		flush()
		out = append(out, c.block(n)...)
	}
	flush()
	return out
}

func (c *forward) block(n *Node) []ir.Block {
	switch n.Type {
	case "doc":
		return c.blocks(n.Content)
	case "paragraph":
		return []ir.Block{ir.Paragraph(c.inlines(n.Content)...)}
	case "heading":
		return []ir.Block{ir.Heading(n.attrInt("level", 1), c.inlines(n.Content)...)}
	case "blockquote":
		return []ir.Block{ir.Blockquote(c.blocks(n.Content)...)}
	case "bulletList":
		return []ir.Block{ir.BulletList(c.items(n.Content)...)}
	case "orderedList":
		return []ir.Block{ir.OrderedList(n.attrInt("start", 1), c.items(n.Content)...)}
	case "listItem":
		// list item outside of list
		return c.blocks(n.Content)
	case "codeBlock":
		return []ir.Block{ir.CodeBlock(plainText(n), n.attrString("language"))}
	case "horizontalRule":
		return []ir.Block{ir.HorizontalRule()}
	case "sceneBreak":
		return []ir.Block{ir.SceneBreak(n.attrString("sceneId"), n.attrString("sceneName"))}
	case "scene":
		return append([]ir.Block{ir.SceneBreak(n.attrString("sceneId"), n.attrString("sceneName"))}, c.blocks(n.Content)...)
	}

	inlines := c.extract(n)
	if len(inlines) == 0 {
		c.log.Warn("Dropping unsupported editor block", zap.String("type", n.Type))
		return nil
	}
	c.log.Warn("Unsupported editor block converted to paragraph", zap.String("type", n.Type))
	return []ir.Block{ir.Paragraph(inlines...)}
}

func (c *forward) items(nodes []*Node) [][]ir.Block {
	var items [][]ir.Block
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Type == "listItem" {
			items = append(items, c.blocks(n.Content))
			continue
		}
		items = append(items, c.blocks([]*Node{n}))
	}
	return items
}

func (c *forward) inlines(nodes []*Node) []ir.Inline {
	var out []ir.Inline
	for _, n := range nodes {
		if n == nil {
			continue
		}
		switch n.Type {
		case "text":
			if n.Text == "" {
				continue
			}
			out = append(out, ir.Text(n.Text, c.marks(n.Marks)...))
		case "hardBreak":
			out = append(out, ir.HardBreak())
		default:
			// inline atoms (mentions and such) keep whatever text they have
			c.log.Debug("Unsupported inline node", zap.String("type", n.Type))
			out = append(out, c.extract(n)...)
		}
	}
	return out
}

// extract recursively collects inline content from any node.
func (c *forward) extract(n *Node) []ir.Inline {
	if isInline(n) {
		return c.inlines([]*Node{n})
	}
	var out []ir.Inline
	for _, child := range n.Content {
		if child != nil {
			out = append(out, c.extract(child)...)
		}
	}
	return out
}

func (c *forward) marks(marks []Mark) []ir.Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]ir.Mark, 0, len(marks))
	for _, m := range marks {
		switch m.Type {
		case "bold", "strong":
			out = append(out, ir.Bold())
		case "italic", "em":
			out = append(out, ir.Italic())
		case "strike", "strikethrough":
			out = append(out, ir.Strike())
		case "code":
			out = append(out, ir.Code())
		case "underline":
			out = append(out, ir.Underline())
		case "link":
			out = append(out, ir.Link(m.attrString("href")))
		case "entity":
			out = append(out, ir.Entity(m.attrString("entityId"), m.attrString("entityType")))
		default:
			c.log.Warn("Dropping unsupported editor mark", zap.String("type", m.Type))
		}
	}
	return out
}

func plainText(n *Node) string {
	if n.Type == "text" {
		return n.Text
	}
	if n.Type == "hardBreak" {
		return "\n"
	}
	var buf strings.Builder
	for _, child := range n.Content {
		if child != nil {
			buf.WriteString(plainText(child))
		}
	}
	return buf.String()
}
