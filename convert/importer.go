package convert

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"folio/common"
	"folio/config"
	"folio/detect"
	"folio/editor"
	"folio/ir"
	"folio/project"
)

// DocumentStore persists project documents.
type DocumentStore interface {
	Documents(ctx context.Context, projectID string) ([]project.Document, error)
	CreateDocument(ctx context.Context, d *project.Document) error
	DeleteDocuments(ctx context.Context, projectID string) (int, error)
}

// EntityStore persists world entities.
type EntityStore interface {
	Entities(ctx context.Context, projectID string) ([]project.Entity, error)
	UpsertEntity(ctx context.Context, projectID string, u project.EntityUpsert) (string, error)
}

// Phase names import step reported to progress callback.
type Phase string

const (
	PhaseDetect   Phase = "detect"
	PhaseRead     Phase = "read"
	PhaseParse    Phase = "parse"
	PhaseSplit    Phase = "split"
	PhaseCleanup  Phase = "cleanup"
	PhaseCreate   Phase = "create"
	PhaseEntities Phase = "entities"
	PhaseDone     Phase = "done"
)

// Progress is called at every phase boundary, done and total are only
// meaningful for phases which process several items.
type Progress func(phase Phase, done, total int)

// ImportRequest describes single import.
type ImportRequest struct {
	ProjectID string
	// Name is source file name, used for format detection and implicit
	// chapter title.
	Name     string
	MimeType string
	Source   io.Reader
	// Format is format name or "auto".
	Format         string
	Mode           common.ImportMode
	DetectEntities bool
	EntityTypes    []string
	Progress       Progress
}

// ImportResult reports what has been done. When Outcome is cancelled
// Documents lists what was created before cancellation was noticed.
type ImportResult struct {
	Outcome   common.Outcome
	Format    common.Format
	Documents []project.Document
	Entities  []string
	Deleted   int
}

// Importer reads external document, splits it into chapters and scenes and
// stores them. Entity detection is optional and never fails import.
type Importer struct {
	registry *Registry
	docs     DocumentStore
	entities EntityStore
	detector detect.Detector
	rpt      *config.Report
	log      *zap.Logger
}

func NewImporter(registry *Registry, docs DocumentStore, entities EntityStore, log *zap.Logger, options ...func(*Importer)) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	im := &Importer{
		registry: registry,
		docs:     docs,
		entities: entities,
		log:      log.Named("import"),
	}
	for _, apply := range options {
		apply(im)
	}
	return im
}

// WithDetector sets entity detector used when request asks for detection.
func WithDetector(d detect.Detector) func(*Importer) {
	return func(im *Importer) {
		im.detector = d
	}
}

// WithReport stores intermediate results into debug report.
func WithReport(rpt *config.Report) func(*Importer) {
	return func(im *Importer) {
		im.rpt = rpt
	}
}

func (im *Importer) progress(req *ImportRequest, phase Phase, done, total int) {
	im.log.Debug("Import phase", zap.String("phase", string(phase)), zap.Int("done", done), zap.Int("total", total))
	if req.Progress != nil {
		req.Progress(phase, done, total)
	}
}

func cancelled(res *ImportResult) (*ImportResult, error) {
	res.Outcome = common.OutcomeCancelled
	return res, nil
}

// Import runs the whole import. Cancellation is checked at every phase
// boundary and before each store mutation, it is reported as cancelled
// outcome rather than error.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	res := &ImportResult{Outcome: common.OutcomeCompleted}
	if ctx.Err() != nil {
		return cancelled(res)
	}

	im.progress(&req, PhaseDetect, 0, 0)
	format, detectErr := ResolveFormat(req.Format, req.Name, req.MimeType, nil)
	needSniff := detectErr != nil && (req.Format == "" || strings.EqualFold(req.Format, "auto"))
	if detectErr != nil && !needSniff {
		return nil, detectErr
	}
	if req.Source == nil {
		return nil, fmt.Errorf("no import source for %q", req.Name)
	}

	im.progress(&req, PhaseRead, 0, 0)
	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: req.Source})
	if ctx.Err() != nil {
		return cancelled(res)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %q: %w", req.Name, err)
	}
	if needSniff {
		if format, err = DetectFormat(req.Name, req.MimeType, data[:min(len(data), 8192)]); err != nil {
			return nil, err
		}
	}
	res.Format = format
	if !format.Binary() {
		if data, err = decodeText(data); err != nil {
			return nil, fmt.Errorf("unable to read %q: %w", req.Name, err)
		}
	}

	im.progress(&req, PhaseParse, 0, 0)
	parser, err := im.registry.Parser(format)
	if err != nil {
		return nil, err
	}
	blocks, err := parser.Parse(ctx, data, req.Name)
	if ctx.Err() != nil {
		return cancelled(res)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to parse %s document %q: %w", format, req.Name, err)
	}

	im.progress(&req, PhaseSplit, 0, 0)
	drafts := Split(blocks, req.Name)
	im.log.Debug("Document split", zap.String("source", req.Name), zap.Int("blocks", len(blocks)), zap.Int("drafts", len(drafts)))
	storeDebug(im.rpt, im.log, "import-"+baseTitle(req.Name)+"-drafts.json", drafts)

	if ctx.Err() != nil {
		return cancelled(res)
	}
	offset := 0
	if req.Mode == common.ImportModeAppend {
		existing, err := im.docs.Documents(ctx, req.ProjectID)
		if err != nil {
			if ctx.Err() != nil {
				return cancelled(res)
			}
			return nil, fmt.Errorf("unable to list existing documents: %w", err)
		}
		offset = nextRootIndex(existing)
	}

	// drafts are serialized before any store mutation
	docs := make([]*project.Document, 0, len(drafts))
	for _, d := range drafts {
		doc, err := materialize(req.ProjectID, d, offset)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if ctx.Err() != nil {
		return cancelled(res)
	}

	if req.Mode == common.ImportModeReplace {
		im.progress(&req, PhaseCleanup, 0, 0)
		if res.Deleted, err = im.docs.DeleteDocuments(ctx, req.ProjectID); err != nil {
			if ctx.Err() != nil {
				return cancelled(res)
			}
			return nil, fmt.Errorf("unable to remove existing documents: %w", err)
		}
	}

	for i, doc := range docs {
		if ctx.Err() != nil {
			im.log.Info("Import cancelled", zap.Int("created", len(res.Documents)), zap.Int("total", len(docs)))
			im.reportIncomplete(&req, res, len(docs))
			return cancelled(res)
		}
		im.progress(&req, PhaseCreate, i, len(docs))
		if err := im.docs.CreateDocument(ctx, doc); err != nil {
			im.reportIncomplete(&req, res, len(docs))
			if ctx.Err() != nil {
				return cancelled(res)
			}
			return nil, fmt.Errorf("unable to create document %q: %w", doc.Title, err)
		}
		res.Documents = append(res.Documents, *doc)
	}

	if req.DetectEntities {
		if ctx.Err() != nil {
			return cancelled(res)
		}
		im.progress(&req, PhaseEntities, 0, 0)
		ids, err := im.detectEntities(ctx, &req, drafts)
		res.Entities = ids
		if ctx.Err() != nil {
			return cancelled(res)
		}
		if err != nil {
			// detection is best effort, documents are already in place
			im.log.Warn("Entity detection failed, skipping entities", zap.String("source", req.Name), zap.Error(err))
		}
	}

	im.progress(&req, PhaseDone, len(res.Documents), len(drafts))
	return res, nil
}

// reportIncomplete warns when replace import removed existing documents but
// stopped before all new ones were stored.
func (im *Importer) reportIncomplete(req *ImportRequest, res *ImportResult, total int) {
	if req.Mode != common.ImportModeReplace || res.Deleted == 0 {
		return
	}
	im.log.Warn("Replace import did not complete, project lost its previous documents",
		zap.String("source", req.Name),
		zap.Int("deleted", res.Deleted),
		zap.Int("created", len(res.Documents)),
		zap.Int("total", total))
}

// nextRootIndex returns order index past all existing root documents.
func nextRootIndex(docs []project.Document) int {
	next := 0
	for _, d := range docs {
		if d.ParentID == "" && d.OrderIndex+1 > next {
			next = d.OrderIndex + 1
		}
	}
	return next
}

func materialize(projectID string, d project.DocumentDraft, rootOffset int) (*project.Document, error) {
	content, err := editor.Marshal(editor.FromIR(d.Blocks))
	if err != nil {
		return nil, fmt.Errorf("unable to serialize document %q: %w", d.Title, err)
	}
	doc := &project.Document{
		ID:         d.ID,
		ProjectID:  projectID,
		ParentID:   d.ParentID,
		OrderIndex: d.OrderIndex,
		Type:       d.Type,
		Title:      d.Title,
		Content:    content,
		WordCount:  d.WordCount,
	}
	if doc.ParentID == "" {
		doc.OrderIndex += rootOffset
	}
	return doc, nil
}

// detectEntities runs detector over imported text and upserts found
// entities, matching existing ones by name or alias. Returns ids of affected
// entities.
func (im *Importer) detectEntities(ctx context.Context, req *ImportRequest, drafts []project.DocumentDraft) ([]string, error) {
	if im.detector == nil {
		return nil, fmt.Errorf("no entity detector configured")
	}
	types := req.EntityTypes
	if len(types) == 0 {
		types = project.DefaultEntityTypes
	}

	var sb strings.Builder
	for _, d := range drafts {
		if text := ir.BlocksToText(d.Blocks); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	}

	start := time.Now()
	candidates, err := im.detector.Detect(ctx, sb.String(), types)
	if err != nil {
		return nil, err
	}
	im.log.Debug("Entities detected", zap.Int("count", len(candidates)), zap.Duration("elapsed", time.Since(start)))
	if len(candidates) == 0 {
		return nil, nil
	}

	existing, err := im.entities.Entities(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("unable to list entities: %w", err)
	}

	var ids []string
	for _, u := range planUpserts(existing, candidates) {
		if ctx.Err() != nil {
			return ids, ctx.Err()
		}
		id, err := im.entities.UpsertEntity(ctx, req.ProjectID, u)
		if err != nil {
			return ids, fmt.Errorf("unable to store entity %q: %w", u.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// planUpserts matches candidates against existing entities by
// case-insensitive name or alias. Matched entities get candidate name and
// aliases as additional aliases, the rest are created.
func planUpserts(existing []project.Entity, candidates []detect.Candidate) []project.EntityUpsert {
	index := make(map[string]*project.Entity)
	for i := range existing {
		e := &existing[i]
		index[strings.ToLower(e.Name)] = e
		for _, a := range e.Aliases {
			if key := strings.ToLower(a); index[key] == nil {
				index[key] = e
			}
		}
	}

	var out []project.EntityUpsert
	for _, c := range candidates {
		match := index[strings.ToLower(c.Name)]
		for _, a := range c.Aliases {
			if match != nil {
				break
			}
			match = index[strings.ToLower(a)]
		}
		if match == nil {
			out = append(out, project.EntityUpsert{Name: c.Name, Type: c.Type, Aliases: c.Aliases, Notes: c.Description})
			continue
		}
		aliases := append([]string{c.Name}, c.Aliases...)
		out = append(out, project.EntityUpsert{ID: match.ID, Name: match.Name, Type: match.Type, Aliases: aliases, Notes: c.Description})
	}
	return out
}

// storeDebug puts JSON dump of v into debug report when one is requested.
func storeDebug(rpt *config.Report, log *zap.Logger, name string, v any) {
	if err := rpt.StoreJSON(name, v); err != nil {
		log.Debug("Unable to dump debug data", zap.String("name", name), zap.Error(err))
	}
}

// ctxReader stops reading as soon as context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
