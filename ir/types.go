// Package ir defines the format neutral intermediate representation every
// converter in the program targets: blocks, inlines and marks.
package ir

// MarkKind distinguishes inline styling marks.
type MarkKind string

const (
	MarkBold      MarkKind = "bold"
	MarkItalic    MarkKind = "italic"
	MarkStrike    MarkKind = "strike"
	MarkCode      MarkKind = "code"
	MarkUnderline MarkKind = "underline"
	MarkLink      MarkKind = "link"
	MarkEntity    MarkKind = "entity"
)

// Mark is a single styling mark applied to a text inline. Only link and
// entity marks carry attributes.
type Mark struct {
	Kind       MarkKind `json:"type"`
	Href       string   `json:"href,omitempty"`
	EntityID   string   `json:"entityId,omitempty"`
	EntityType string   `json:"entityType,omitempty"`
}

// Same reports whether two marks are of the same kind with the same
// attributes.
func (m Mark) Same(o Mark) bool {
	return m.Kind == o.Kind && m.Href == o.Href && m.EntityID == o.EntityID && m.EntityType == o.EntityType
}

// InlineKind distinguishes inline content.
type InlineKind string

const (
	InlineText      InlineKind = "text"
	InlineHardBreak InlineKind = "hardBreak"
)

// Inline is a piece of inline content: marked text or a hard line break.
// Inline sequences never contain blocks.
type Inline struct {
	Kind  InlineKind `json:"type"`
	Text  string     `json:"text,omitempty"`
	Marks []Mark     `json:"marks,omitempty"`
}

// BlockKind distinguishes the different kinds of block content.
type BlockKind string

const (
	BlockHeading        BlockKind = "heading"
	BlockParagraph      BlockKind = "paragraph"
	BlockBlockquote     BlockKind = "blockquote"
	BlockBulletList     BlockKind = "bulletList"
	BlockOrderedList    BlockKind = "orderedList"
	BlockCode           BlockKind = "codeBlock"
	BlockHorizontalRule BlockKind = "horizontalRule"
	BlockSceneBreak     BlockKind = "sceneBreak"
)

// Block stores a single block keeping the original ordering of its
// children. Which fields are meaningful depends on Kind:
//
//	heading        Level, Inlines
//	paragraph      Inlines
//	blockquote     Blocks
//	bulletList     Items
//	orderedList    Items, Start
//	codeBlock      Text, Language
//	horizontalRule -
//	sceneBreak     SceneID, SceneName
type Block struct {
	Kind      BlockKind `json:"type"`
	Level     int       `json:"level,omitempty"`
	Inlines   []Inline  `json:"inlines,omitempty"`
	Blocks    []Block   `json:"blocks,omitempty"`
	Items     [][]Block `json:"items,omitempty"`
	Start     *int      `json:"start,omitempty"`
	Text      string    `json:"text,omitempty"`
	Language  string    `json:"language,omitempty"`
	SceneID   string    `json:"sceneId,omitempty"`
	SceneName string    `json:"sceneName,omitempty"`
}

// StartNumber returns the first number of an ordered list.
func (b *Block) StartNumber() int {
	if b.Start == nil {
		return 1
	}
	return *b.Start
}

// Section is one flattened chapter (level 1) or scene (level 2) ready for
// export. The heading text is consumed into Title and is not repeated in
// Blocks.
type Section struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Level  int     `json:"level"`
	Blocks []Block `json:"blocks"`
}
