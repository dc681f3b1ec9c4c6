package ir

// Text creates text inline with optional marks.
func Text(text string, marks ...Mark) Inline {
	in := Inline{Kind: InlineText, Text: text}
	if len(marks) > 0 {
		in.Marks = append([]Mark(nil), marks...)
	}
	return in
}

// HardBreak creates line break inline.
func HardBreak() Inline {
	return Inline{Kind: InlineHardBreak}
}

func Bold() Mark      { return Mark{Kind: MarkBold} }
func Italic() Mark    { return Mark{Kind: MarkItalic} }
func Strike() Mark    { return Mark{Kind: MarkStrike} }
func Code() Mark      { return Mark{Kind: MarkCode} }
func Underline() Mark { return Mark{Kind: MarkUnderline} }

func Link(href string) Mark {
	return Mark{Kind: MarkLink, Href: href}
}

func Entity(id, entityType string) Mark {
	return Mark{Kind: MarkEntity, EntityID: id, EntityType: entityType}
}

func Paragraph(inlines ...Inline) Block {
	return Block{Kind: BlockParagraph, Inlines: inlines}
}

// Heading creates heading block, level is clamped to 1..6.
func Heading(level int, inlines ...Inline) Block {
	return Block{Kind: BlockHeading, Level: min(max(level, 1), 6), Inlines: inlines}
}

func Blockquote(blocks ...Block) Block {
	return Block{Kind: BlockBlockquote, Blocks: blocks}
}

func BulletList(items ...[]Block) Block {
	return Block{Kind: BlockBulletList, Items: items}
}

// OrderedList creates numbered list. Start value of 1 is not stored since it
// is the default.
func OrderedList(start int, items ...[]Block) Block {
	b := Block{Kind: BlockOrderedList, Items: items}
	if start != 1 {
		b.Start = &start
	}
	return b
}

func CodeBlock(text, language string) Block {
	return Block{Kind: BlockCode, Text: text, Language: language}
}

func HorizontalRule() Block {
	return Block{Kind: BlockHorizontalRule}
}

func SceneBreak(id, name string) Block {
	return Block{Kind: BlockSceneBreak, SceneID: id, SceneName: name}
}

// HasMark reports whether inline carries mark of requested kind.
func HasMark(in Inline, kind MarkKind) bool {
	for _, m := range in.Marks {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

// EntityMark returns first entity mark of the inline if any.
func EntityMark(in Inline) (Mark, bool) {
	for _, m := range in.Marks {
		if m.Kind == MarkEntity {
			return m, true
		}
	}
	return Mark{}, false
}

// AddMark returns new mark slice with m appended unless identical mark is
// already present. Source slice is never modified.
func AddMark(marks []Mark, m Mark) []Mark {
	for _, have := range marks {
		if have.Same(m) {
			return marks
		}
	}
	out := make([]Mark, 0, len(marks)+1)
	out = append(out, marks...)
	return append(out, m)
}

// EntityAnchorPrefix starts every glossary anchor id.
const EntityAnchorPrefix = "entity-"

// EntityAnchor returns glossary anchor id for the entity.
func EntityAnchor(id string) string {
	return EntityAnchorPrefix + id
}
