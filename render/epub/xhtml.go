package epub

import (
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"folio/ir"
)

func (b *book) appendBlocks(parent *etree.Element, blocks []ir.Block) {
	for i := range blocks {
		b.appendBlock(parent, &blocks[i])
	}
}

func (b *book) appendBlock(parent *etree.Element, block *ir.Block) {
	switch block.Kind {
	case ir.BlockHeading:
		level := min(max(block.Level, 1), 6)
		b.appendInlines(parent.CreateElement("h"+strconv.Itoa(level)), block.Inlines)
	case ir.BlockParagraph:
		b.appendInlines(parent.CreateElement("p"), block.Inlines)
	case ir.BlockBlockquote:
		b.appendBlocks(parent.CreateElement("blockquote"), block.Blocks)
	case ir.BlockBulletList:
		b.appendItems(parent.CreateElement("ul"), block.Items)
	case ir.BlockOrderedList:
		ol := parent.CreateElement("ol")
		if start := block.StartNumber(); start != 1 {
			ol.CreateAttr("start", strconv.Itoa(start))
		}
		b.appendItems(ol, block.Items)
	case ir.BlockCode:
		code := parent.CreateElement("pre").CreateElement("code")
		if block.Language != "" {
			code.CreateAttr("class", "language-"+block.Language)
		}
		code.SetText(block.Text)
	case ir.BlockHorizontalRule:
		parent.CreateElement("hr")
	case ir.BlockSceneBreak:
		hr := parent.CreateElement("hr")
		hr.CreateAttr("class", "scene-break")
		if block.SceneID != "" {
			hr.CreateAttr("data-scene-id", block.SceneID)
		}
	default:
		b.log.Debug("Unknown block skipped", zap.String("kind", string(block.Kind)))
	}
}

func (b *book) appendItems(list *etree.Element, items [][]ir.Block) {
	for _, item := range items {
		li := list.CreateElement("li")
		if len(item) == 1 && item[0].Kind == ir.BlockParagraph {
			// tight item
			b.appendInlines(li, item[0].Inlines)
			continue
		}
		b.appendBlocks(li, item)
	}
}

func (b *book) appendInlines(parent *etree.Element, inlines []ir.Inline) {
	for _, in := range inlines {
		switch in.Kind {
		case ir.InlineHardBreak:
			parent.CreateElement("br")
		case ir.InlineText:
			b.appendText(parent, in)
		}
	}
}

// appendText nests mark elements in fixed order, outermost first: strong,
// em, s, u, a (link), entity, code.
func (b *book) appendText(parent *etree.Element, in ir.Inline) {
	cur := parent
	if ir.HasMark(in, ir.MarkBold) {
		cur = cur.CreateElement("strong")
	}
	if ir.HasMark(in, ir.MarkItalic) {
		cur = cur.CreateElement("em")
	}
	if ir.HasMark(in, ir.MarkStrike) {
		cur = cur.CreateElement("s")
	}
	if ir.HasMark(in, ir.MarkUnderline) {
		cur = cur.CreateElement("u")
	}

	entity, isEntity := ir.EntityMark(in)
	isEntity = isEntity && b.entityMarks
	if !(isEntity && b.entityLink) {
		for _, m := range in.Marks {
			if m.Kind == ir.MarkLink && m.Href != "" {
				cur = cur.CreateElement("a")
				cur.CreateAttr("href", m.Href)
				break
			}
		}
	}
	if isEntity {
		if b.entityLink {
			cur = cur.CreateElement("a")
			cur.CreateAttr("href", glossaryFile+"#"+ir.EntityAnchor(entity.EntityID))
		} else {
			cur = cur.CreateElement("span")
		}
		cur.CreateAttr("class", "entity")
		cur.CreateAttr("data-entity-id", entity.EntityID)
		if entity.EntityType != "" {
			cur.CreateAttr("data-entity-type", entity.EntityType)
		}
	}
	if ir.HasMark(in, ir.MarkCode) {
		cur = cur.CreateElement("code")
	}
	cur.CreateText(in.Text)
}
