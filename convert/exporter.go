package convert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"folio/common"
	"folio/config"
	"folio/editor"
	"folio/glossary"
	"folio/ir"
	"folio/project"
	"folio/render"
	"folio/story"
)

// ExportSource supplies everything export needs from the stores.
type ExportSource interface {
	Project(ctx context.Context, id string) (*project.Project, error)
	Documents(ctx context.Context, projectID string) ([]project.Document, error)
	Entities(ctx context.Context, projectID string) ([]project.Entity, error)
}

// ExportRequest describes single export.
type ExportRequest struct {
	ProjectID string
	Format    common.Format
	Options   render.Options
	// OpenDocumentID and OpenContent replace stored content of the document
	// currently being edited.
	OpenDocumentID string
	OpenContent    *editor.Node
	// NameTemplate, when not empty, is expanded to produce output file name.
	NameTemplate  string
	Transliterate bool
}

// Exporter collects project documents in reading order and renders them
// into requested format.
type Exporter struct {
	registry *Registry
	source   ExportSource
	rpt      *config.Report
	log      *zap.Logger
}

func NewExporter(registry *Registry, source ExportSource, log *zap.Logger, options ...func(*Exporter)) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	ex := &Exporter{
		registry: registry,
		source:   source,
		log:      log.Named("export"),
	}
	for _, apply := range options {
		apply(ex)
	}
	return ex
}

// WithExportReport stores intermediate results into debug report.
func WithExportReport(rpt *config.Report) func(*Exporter) {
	return func(ex *Exporter) {
		ex.rpt = rpt
	}
}

// Export renders project. Returned result carries sanitized file name.
func (ex *Exporter) Export(ctx context.Context, req ExportRequest) (*render.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	renderer, err := ex.registry.Renderer(req.Format)
	if err != nil {
		return nil, err
	}

	proj, err := ex.source.Project(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("unable to load project: %w", err)
	}
	docs, err := ex.source.Documents(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("unable to load documents: %w", err)
	}

	sections, err := ex.sections(docs, &req)
	if err != nil {
		return nil, err
	}

	opts := req.Options
	if opts.Language == "" {
		opts.Language = proj.Language
	}
	in := &render.Input{Project: proj, Sections: sections, Options: opts}

	if opts.Glossary.Include {
		entities, err := ex.source.Entities(ctx, req.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("unable to load entities: %w", err)
		}
		referenced := ir.ReferencedEntities(sections)
		in.Glossary = glossary.Build(entities, glossary.Options{
			Types:          opts.Glossary.Types,
			OnlyReferenced: opts.Glossary.OnlyReferenced,
		}, referenced)
		ex.log.Debug("Glossary prepared", zap.Int("entities", len(entities)), zap.Int("referenced", len(referenced)), zap.Int("sections", len(in.Glossary)))
	}
	storeDebug(ex.rpt, ex.log, "export-sections.json", sections)

	start := time.Now()
	res, err := renderer.Render(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("unable to render %s: %w", req.Format, err)
	}
	res.FileName = outputFileName(proj, &req, ex.log)
	ex.log.Debug("Document rendered", zap.Stringer("format", req.Format), zap.Int("bytes", len(res.Data)), zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// sections builds export sections in reading order: chapters are level 1,
// anything nested deeper is level 2.
func (ex *Exporter) sections(docs []project.Document, req *ExportRequest) ([]ir.Section, error) {
	var (
		out  []ir.Section
		walk func(nodes []*story.Node, depth int) error
	)
	walk = func(nodes []*story.Node, depth int) error {
		for _, n := range nodes {
			blocks, err := ex.documentBlocks(n.Doc, req)
			if err != nil {
				return err
			}
			out = append(out, makeSection(n.Doc, min(depth, 2), blocks))
			if err := walk(n.Children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(story.Build(docs), 1); err != nil {
		return nil, err
	}
	return out, nil
}

func (ex *Exporter) documentBlocks(d *project.Document, req *ExportRequest) ([]ir.Block, error) {
	if req.OpenContent != nil && d.ID == req.OpenDocumentID {
		return editor.ToIR(req.OpenContent, ex.log), nil
	}
	if len(d.Content) == 0 {
		return nil, nil
	}
	node, err := editor.Parse(d.Content)
	if err != nil {
		return nil, fmt.Errorf("unable to read content of %q: %w", d.Title, err)
	}
	return editor.ToIR(node, ex.log), nil
}

// makeSection consumes leading heading into section title when it repeats
// document title or when document has no title.
func makeSection(d *project.Document, level int, blocks []ir.Block) ir.Section {
	s := ir.Section{ID: d.ID, Title: strings.TrimSpace(d.Title), Level: level, Blocks: blocks}
	if len(blocks) == 0 || blocks[0].Kind != ir.BlockHeading {
		return s
	}
	heading := strings.TrimSpace(ir.InlinesToText(blocks[0].Inlines))
	switch {
	case s.Title == "":
		s.Title = heading
	case !strings.EqualFold(heading, s.Title):
		return s
	}
	s.Blocks = blocks[1:]
	return s
}
