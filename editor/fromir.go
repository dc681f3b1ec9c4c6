package editor

import (
	"folio/common"
	"folio/ir"
)

// Options control IR to editor tree conversion.
type Options struct {
	SceneBreaks    common.SceneBreakMode
	EnsureNonEmpty bool
}

// WithSceneBreaks selects what happens to scene breaks: they become
// horizontal rules (default), are dropped or kept as scene break atoms.
func WithSceneBreaks(mode common.SceneBreakMode) func(*Options) {
	return func(o *Options) {
		o.SceneBreaks = mode
	}
}

// WithAllowEmpty permits empty document to be produced. By default single
// empty paragraph is synthesized since editor cannot show empty document.
func WithAllowEmpty() func(*Options) {
	return func(o *Options) {
		o.EnsureNonEmpty = false
	}
}

// FromIR converts IR blocks to editor document.
func FromIR(blocks []ir.Block, options ...func(*Options)) *Node {
	opts := Options{SceneBreaks: common.SceneBreakModeRule, EnsureNonEmpty: true}
	for _, apply := range options {
		apply(&opts)
	}

	doc := &Node{Type: "doc", Content: reverseBlocks(blocks, &opts)}
	if len(doc.Content) == 0 && opts.EnsureNonEmpty {
		doc.Content = []*Node{{Type: "paragraph"}}
	}
	return doc
}

func reverseBlocks(blocks []ir.Block, opts *Options) []*Node {
	var out []*Node
	for i := range blocks {
		if n := reverseBlock(&blocks[i], opts); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// nonEmpty makes sure container node has at least one child block, editor
// schema requires that.
func nonEmpty(nodes []*Node) []*Node {
	if len(nodes) == 0 {
		return []*Node{{Type: "paragraph"}}
	}
	return nodes
}

func reverseBlock(b *ir.Block, opts *Options) *Node {
	switch b.Kind {
	case ir.BlockParagraph:
		return &Node{Type: "paragraph", Content: reverseInlines(b.Inlines)}
	case ir.BlockHeading:
		return &Node{
			Type:    "heading",
			Attrs:   map[string]any{"level": b.Level},
			Content: reverseInlines(b.Inlines),
		}
	case ir.BlockBlockquote:
		return &Node{Type: "blockquote", Content: nonEmpty(reverseBlocks(b.Blocks, opts))}
	case ir.BlockBulletList:
		return &Node{Type: "bulletList", Content: reverseItems(b.Items, opts)}
	case ir.BlockOrderedList:
		return &Node{
			Type:    "orderedList",
			Attrs:   map[string]any{"start": b.StartNumber()},
			Content: reverseItems(b.Items, opts),
		}
	case ir.BlockCode:
		n := &Node{Type: "codeBlock"}
		if b.Language != "" {
			n.Attrs = map[string]any{"language": b.Language}
		}
		if b.Text != "" {
			n.Content = []*Node{{Type: "text", Text: b.Text}}
		}
		return n
	case ir.BlockHorizontalRule:
		return &Node{Type: "horizontalRule"}
	case ir.BlockSceneBreak:
		switch opts.SceneBreaks {
		case common.SceneBreakModeDrop:
			return nil
		case common.SceneBreakModeKeep:
			attrs := map[string]any{}
			if b.SceneID != "" {
				attrs["sceneId"] = b.SceneID
			}
			if b.SceneName != "" {
				attrs["sceneName"] = b.SceneName
			}
			if len(attrs) == 0 {
				attrs = nil
			}
			return &Node{Type: "sceneBreak", Attrs: attrs}
		default:
			return &Node{Type: "horizontalRule"}
		}
	}
	return nil
}

func reverseItems(items [][]ir.Block, opts *Options) []*Node {
	out := make([]*Node, 0, len(items))
	for _, item := range items {
		out = append(out, &Node{Type: "listItem", Content: nonEmpty(reverseBlocks(item, opts))})
	}
	return out
}

func reverseInlines(inlines []ir.Inline) []*Node {
	var out []*Node
	for _, in := range inlines {
		switch in.Kind {
		case ir.InlineText:
			// editor does not allow empty text nodes
			if in.Text == "" {
				continue
			}
			out = append(out, &Node{Type: "text", Text: in.Text, Marks: reverseMarks(in.Marks)})
		case ir.InlineHardBreak:
			out = append(out, &Node{Type: "hardBreak"})
		}
	}
	return out
}

func reverseMarks(marks []ir.Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]Mark, 0, len(marks))
	for _, m := range marks {
		switch m.Kind {
		case ir.MarkLink:
			out = append(out, Mark{Type: "link", Attrs: map[string]any{"href": m.Href}})
		case ir.MarkEntity:
			out = append(out, Mark{Type: "entity", Attrs: map[string]any{
				"entityId":   m.EntityID,
				"entityType": m.EntityType,
			}})
		default:
			out = append(out, Mark{Type: string(m.Kind)})
		}
	}
	return out
}
