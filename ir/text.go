package ir

import (
	"strings"
)

// InlinesToText projects inline content to plain text, hard breaks become
// new lines.
func InlinesToText(inlines []Inline) string {
	var buf strings.Builder
	for _, in := range inlines {
		switch in.Kind {
		case InlineText:
			buf.WriteString(in.Text)
		case InlineHardBreak:
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// BlocksToText projects any block tree to a linear text approximation with
// blocks separated by empty lines. It is used for entity scanning and word
// counts, not for rendering.
func BlocksToText(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for i := range blocks {
		if s := blockText(&blocks[i]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func blockText(b *Block) string {
	switch b.Kind {
	case BlockHeading, BlockParagraph:
		return InlinesToText(b.Inlines)
	case BlockBlockquote:
		return BlocksToText(b.Blocks)
	case BlockBulletList, BlockOrderedList:
		parts := make([]string, 0, len(b.Items))
		for _, item := range b.Items {
			if s := BlocksToText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n\n")
	case BlockCode:
		return b.Text
	case BlockSceneBreak:
		return b.SceneName
	}
	return ""
}

// WordCount returns number of whitespace separated words in the block tree.
func WordCount(blocks []Block) int {
	return len(strings.Fields(BlocksToText(blocks)))
}

// WalkInlines calls fn for every inline in the block tree in document order.
func WalkInlines(blocks []Block, fn func(Inline)) {
	for i := range blocks {
		b := &blocks[i]
		for _, in := range b.Inlines {
			fn(in)
		}
		WalkInlines(b.Blocks, fn)
		for _, item := range b.Items {
			WalkInlines(item, fn)
		}
	}
}

// EntityIDs returns set of entity ids referenced by blocks.
func EntityIDs(blocks []Block) map[string]struct{} {
	set := make(map[string]struct{})
	CollectEntityIDs(blocks, set)
	return set
}

// CollectEntityIDs adds ids of all entity marks found in blocks to the set.
func CollectEntityIDs(blocks []Block, set map[string]struct{}) {
	WalkInlines(blocks, func(in Inline) {
		for _, m := range in.Marks {
			if m.Kind == MarkEntity && m.EntityID != "" {
				set[m.EntityID] = struct{}{}
			}
		}
	})
}

// ReferencedEntities scans all sections and returns set of referenced
// entity ids.
func ReferencedEntities(sections []Section) map[string]struct{} {
	set := make(map[string]struct{})
	for i := range sections {
		CollectEntityIDs(sections[i].Blocks, set)
	}
	return set
}
