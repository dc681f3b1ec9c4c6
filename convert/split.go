package convert

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"folio/ir"
	"folio/project"
)

// newID generates draft ids, replaced in tests.
var newID = func() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// splitState is accumulated while walking imported block stream.
type splitState struct {
	base     string
	drafts   []*project.DocumentDraft
	chapter  *project.DocumentDraft
	current  *project.DocumentDraft
	pending  []ir.Block
	chapters int
	scenes   int
}

// Split turns linear block stream into chapter and scene drafts. Level 1
// headings start chapters, level 2 headings start scenes of the current
// chapter, everything else is content of whatever document is open. Content
// before the first heading goes into implicit chapter named after the
// source. No block is ever lost: each ends up in exactly one draft.
func Split(blocks []ir.Block, sourceName string) []project.DocumentDraft {
	s := &splitState{base: baseTitle(sourceName)}
	for _, b := range blocks {
		s.step(b)
	}
	return s.finish()
}

func baseTitle(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base = strings.TrimSpace(base); base == "" || base == "." {
		return "Untitled"
	}
	return base
}

func (s *splitState) step(b ir.Block) {
	if b.Kind != ir.BlockHeading || b.Level > 2 {
		s.pending = append(s.pending, b)
		return
	}

	title := strings.TrimSpace(ir.InlinesToText(b.Inlines))
	s.flush()
	if b.Level == 1 {
		if title == "" {
			title = "Chapter " + strconv.Itoa(s.chapters+1)
		}
		s.startChapter(title)
		return
	}

	if s.chapter == nil {
		s.startChapter(s.base)
	}
	if title == "" {
		title = "Scene " + strconv.Itoa(s.scenes+1)
	}
	scene := &project.DocumentDraft{
		ID:         newID(),
		ParentID:   s.chapter.ID,
		Type:       project.TypeScene,
		Title:      title,
		OrderIndex: s.scenes,
	}
	s.scenes++
	s.drafts = append(s.drafts, scene)
	s.current = scene
}

func (s *splitState) startChapter(title string) {
	ch := &project.DocumentDraft{
		ID:         newID(),
		Type:       project.TypeChapter,
		Title:      title,
		OrderIndex: s.chapters,
	}
	s.chapters++
	s.scenes = 0
	s.drafts = append(s.drafts, ch)
	s.chapter, s.current = ch, ch
}

// flush moves pending blocks into currently open document, opening implicit
// chapter when there is none yet.
func (s *splitState) flush() {
	if len(s.pending) == 0 {
		return
	}
	if s.current == nil {
		s.startChapter(s.base)
	}
	s.current.Blocks = append(s.current.Blocks, s.pending...)
	s.pending = nil
}

func (s *splitState) finish() []project.DocumentDraft {
	s.flush()
	if len(s.drafts) == 0 {
		s.startChapter(s.base)
	}
	out := make([]project.DocumentDraft, 0, len(s.drafts))
	for _, d := range s.drafts {
		d.WordCount = ir.WordCount(d.Blocks)
		out = append(out, *d)
	}
	return out
}
