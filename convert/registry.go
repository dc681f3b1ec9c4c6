package convert

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"folio/common"
	"folio/parse"
	"folio/render"
	"folio/render/docx"
	"folio/render/epub"
	"folio/render/markdown"
	"folio/render/pdf"
)

type parserSlot struct {
	once   sync.Once
	parser parse.Parser
}

type rendererSlot struct {
	once     sync.Once
	renderer render.Renderer
}

// Registry maps formats to parsers and renderers. Backends are constructed
// on first use and reused afterwards. Registry is safe for concurrent use.
type Registry struct {
	log       *zap.Logger
	parsers   map[common.Format]*parserSlot
	renderers map[common.Format]*rendererSlot
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		log:       log,
		parsers:   make(map[common.Format]*parserSlot),
		renderers: make(map[common.Format]*rendererSlot),
	}
	for _, f := range common.FormatValues() {
		r.parsers[f] = &parserSlot{}
		if f.CanExport() {
			r.renderers[f] = &rendererSlot{}
		}
	}
	return r
}

// Parser returns parser for the format.
func (r *Registry) Parser(f common.Format) (parse.Parser, error) {
	slot, ok := r.parsers[f]
	if !ok {
		return nil, fmt.Errorf("%w: no parser for %s", ErrUnsupportedFormat, f)
	}
	slot.once.Do(func() {
		r.log.Debug("Initializing parser", zap.Stringer("format", f))
		switch f {
		case common.FormatMarkdown:
			slot.parser = parse.NewMarkdown(r.log)
		case common.FormatDocx:
			slot.parser = parse.NewDocx(r.log)
		case common.FormatEpub:
			slot.parser = parse.NewEpub(r.log)
		case common.FormatPdf:
			slot.parser = parse.NewPdf(r.log)
		case common.FormatText:
			slot.parser = parse.NewText(r.log)
		}
	})
	if slot.parser == nil {
		return nil, fmt.Errorf("%w: no parser for %s", ErrUnsupportedFormat, f)
	}
	return slot.parser, nil
}

// Renderer returns renderer for the format.
func (r *Registry) Renderer(f common.Format) (render.Renderer, error) {
	slot, ok := r.renderers[f]
	if !ok {
		return nil, fmt.Errorf("%w: unable to export to %s", ErrUnsupportedFormat, f)
	}
	slot.once.Do(func() {
		r.log.Debug("Initializing renderer", zap.Stringer("format", f))
		switch f {
		case common.FormatMarkdown:
			slot.renderer = markdown.New(r.log)
		case common.FormatDocx:
			slot.renderer = docx.New(r.log)
		case common.FormatEpub:
			slot.renderer = epub.New(r.log)
		case common.FormatPdf:
			slot.renderer = pdf.New(r.log)
		case common.FormatText:
			// import only
		}
	})
	if slot.renderer == nil {
		return nil, fmt.Errorf("%w: unable to export to %s", ErrUnsupportedFormat, f)
	}
	return slot.renderer, nil
}
