package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"folio/archive"
	"folio/common"
	"folio/config"
	"folio/detect"
	"folio/project"
	"folio/render"
	"folio/state"
	"folio/story"
)

// Init creates new project and prints its id.
func Init(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("init")

	title := strings.TrimSpace(cmd.String("title"))
	if title == "" {
		title = strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	}
	if title == "" {
		return errors.New("no project title has been specified")
	}

	st, err := env.Store()
	if err != nil {
		return err
	}
	p := &project.Project{
		Title:    title,
		Author:   cmd.String("author"),
		Language: cmd.String("language"),
		Synopsis: cmd.String("synopsis"),
	}
	if err := st.CreateProject(ctx, p); err != nil {
		return fmt.Errorf("unable to create project: %w", err)
	}
	log.Info("Project created", zap.String("id", p.ID), zap.String("title", p.Title))
	fmt.Fprintln(cmd.Root().Writer, p.ID)
	return nil
}

// List prints projects or, when project is specified, its document tree.
func List(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	st, err := env.Store()
	if err != nil {
		return err
	}
	out := cmd.Root().Writer

	projectID := cmd.String("project")
	if projectID == "" {
		projects, err := st.Projects(ctx)
		if err != nil {
			return fmt.Errorf("unable to list projects: %w", err)
		}
		for _, p := range projects {
			fmt.Fprintf(out, "%s\t%s\t%s\n", p.ID, p.Title, p.Author)
		}
		return nil
	}

	p, err := st.Project(ctx, projectID)
	if err != nil {
		return fmt.Errorf("unable to load project: %w", err)
	}
	docs, err := st.Documents(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("unable to load documents: %w", err)
	}
	entities, err := st.Entities(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("unable to load entities: %w", err)
	}

	tw := story.NewTreeWriter(out)
	tw.Line(0, "%s (%d documents, %d entities)", p.Title, len(docs), len(entities))
	if p.Synopsis != "" {
		tw.Field(1, "synopsis", p.Synopsis)
	}
	if err := story.Outline(tw, story.Build(docs), 1); err != nil {
		return fmt.Errorf("unable to write outline: %w", err)
	}
	if cmd.Bool("entities") {
		for _, e := range entities {
			tw.Line(1, "%s [%s] %s", e.Name, e.Type, strings.Join(e.Aliases, ", "))
		}
	}
	return tw.Err()
}

// Import brings one or more external documents into project. Source could be
// a file, a directory or a zip archive, directories and archives are
// processed in natural name order.
func Import(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("import")

	projectID := cmd.String("project")
	if projectID == "" {
		return errors.New("no project has been specified")
	}
	if cmd.Args().Len() == 0 {
		return errors.New("no input source has been specified")
	}

	st, err := env.Store()
	if err != nil {
		return err
	}
	if _, err := st.Project(ctx, projectID); err != nil {
		return fmt.Errorf("unable to load project %s: %w", projectID, err)
	}

	cfg := env.Cfg.Import
	req := ImportRequest{
		ProjectID:      projectID,
		Format:         cfg.Format,
		Mode:           cfg.Mode,
		DetectEntities: cfg.DetectEntities,
		EntityTypes:    cfg.EntityTypes,
	}
	if cmd.IsSet("format") {
		req.Format = cmd.String("format")
	}
	if cmd.IsSet("mode") {
		if req.Mode, err = common.ParseImportMode(cmd.String("mode")); err != nil {
			return fmt.Errorf("unknown import mode: %w", err)
		}
	}
	if cmd.IsSet("detect-entities") {
		req.DetectEntities = cmd.Bool("detect-entities")
	}
	if cmd.IsSet("entity-types") {
		req.EntityTypes = cmd.StringSlice("entity-types")
	}

	options := []func(*Importer){WithReport(env.Rpt)}
	if req.DetectEntities {
		d, closer, err := newDetector(&cfg.Detection, log)
		if err != nil {
			log.Warn("Entity detection is not available, skipping", zap.Error(err))
			req.DetectEntities = false
		} else {
			defer closer()
			options = append(options, WithDetector(d))
		}
	}
	im := NewImporter(NewRegistry(log), st, st, log, options...)

	var sources []importSource
	for _, arg := range cmd.Args().Slice() {
		found, err := collectSources(arg, log)
		if err != nil {
			return err
		}
		sources = append(sources, found...)
	}
	if len(sources) == 0 {
		return errors.New("nothing to import")
	}

	log.Info("Processing starting", zap.Int("sources", len(sources)), zap.String("project", projectID), zap.Stringer("mode", req.Mode))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	failed := 0
	for i, src := range sources {
		r := req
		if i > 0 {
			// only the first source may replace content, the rest follow it
			r.Mode = common.ImportModeAppend
		}
		res, err := importOne(ctx, im, src, r, log)
		if err != nil {
			failed++
			log.Error("Unable to import file", zap.String("file", src.name), zap.Error(err))
			continue
		}
		if res.Outcome == common.OutcomeCancelled {
			log.Warn("Import cancelled", zap.String("file", src.name), zap.Int("created", len(res.Documents)))
			return ctx.Err()
		}
	}
	if failed == len(sources) {
		return errors.New("unable to import any of the sources")
	}
	if env.Rpt != nil {
		if docs, err := st.Documents(ctx, projectID); err == nil {
			var sb strings.Builder
			if err := story.Outline(story.NewTreeWriter(&sb), story.Build(docs), 0); err == nil {
				env.Rpt.StoreData("outline.txt", []byte(sb.String()))
			}
		}
	}
	if path := env.Cfg.Store.Path; env.Rpt != nil && path != "" && path != ":memory:" {
		if err := env.Rpt.StoreCopy("store", path); err != nil {
			log.Debug("Unable to copy store into report", zap.Error(err))
		}
	}
	return nil
}

func importOne(ctx context.Context, im *Importer, src importSource, req ImportRequest, log *zap.Logger) (res *ImportResult, rerr error) {
	log.Info("Import starting", zap.String("from", src.name))
	defer func(start time.Time) {
		// parsers of foreign formats may choke on malformed input, do not
		// stop the whole batch because of it
		if r := recover(); r != nil {
			log.Error("Import ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.ByteString("stack", debug.Stack()))
			res, rerr = nil, fmt.Errorf("import panic: %v", r)
		} else if rerr == nil {
			log.Info("Import completed", zap.Duration("elapsed", time.Since(start)),
				zap.Stringer("format", res.Format), zap.Int("documents", len(res.Documents)), zap.Int("entities", len(res.Entities)), zap.Int("deleted", res.Deleted))
		}
	}(time.Now())

	rc, err := src.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	req.Name = src.name
	req.Source = rc
	req.Progress = func(phase Phase, done, total int) {
		if phase == PhaseCreate && total > 0 {
			log.Debug("Creating documents", zap.Int("done", done), zap.Int("total", total))
		}
	}
	return im.Import(ctx, req)
}

type importSource struct {
	name string
	open func() (io.ReadCloser, error)
}

func isArchiveFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

func isImportable(name string) bool {
	_, ok := formatByExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// collectSources expands path into list of importable files.
func collectSources(path string, log *zap.Logger) ([]importSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input source was not found (%s): %w", path, err)
	}

	switch {
	case fi.Mode().IsDir():
		var out []importSource
		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn("Skipping path", zap.String("path", p), zap.Error(err))
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !isImportable(p) {
				log.Debug("Skipping file, format not recognized", zap.String("file", p))
				return nil
			}
			out = append(out, fileSource(p))
			return nil
		})
		if err != nil {
			return nil, err
		}
		sortSources(out)
		return out, nil

	case !fi.Mode().IsRegular():
		return nil, fmt.Errorf("unexpected path mode for (%s)", path)

	case isArchiveFile(path):
		return archiveSources(path, log)
	}
	return []importSource{fileSource(path)}, nil
}

func fileSource(path string) importSource {
	return importSource{
		name: path,
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

func archiveSources(path string, log *zap.Logger) ([]importSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read archive: %w", err)
	}
	arc, err := archive.Open(data)
	if err != nil {
		return nil, err
	}
	var out []importSource
	err = arc.Walk("", func(f *zip.File) error {
		if !isImportable(f.Name) {
			log.Debug("Skipping file in archive, format not recognized", zap.String("archive", path), zap.String("file", f.Name))
			return nil
		}
		out = append(out, importSource{name: f.Name, open: f.Open})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSources(out)
	return out, nil
}

func sortSources(sources []importSource) {
	slices.SortStableFunc(sources, func(a, b importSource) int {
		switch {
		case natural.Less(a.name, b.name):
			return -1
		case natural.Less(b.name, a.name):
			return 1
		}
		return 0
	})
}

// newDetector selects entity detection engine. Auto engine uses hosted model
// when API key is configured and local heuristic otherwise.
func newDetector(cfg *config.DetectionConfig, log *zap.Logger) (detect.Detector, func(), error) {
	engine := cfg.Engine
	if engine == "" || engine == "auto" {
		engine = "local"
		if cfg.APIKey.IsSet() {
			engine = "remote"
		}
	}
	log.Debug("Entity detection engine selected", zap.String("engine", engine))

	if engine == "remote" {
		if !cfg.APIKey.IsSet() {
			return nil, nil, detect.ErrNoKey
		}
		c := detect.NewClient(cfg.Endpoint, cfg.Model, cfg.APIKey.Value(), cfg.Timeout, log)
		return c, c.Close, nil
	}

	tag, err := language.Parse(cfg.Language)
	if err != nil {
		tag = language.English
	}
	return detect.NewHeuristic(tag, log), func() {}, nil
}

// Export renders project into requested format and writes result into
// destination directory.
func Export(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("export")

	projectID := cmd.String("project")
	if projectID == "" {
		return errors.New("no project has been specified")
	}

	var err error
	dst := cmd.Args().Get(0)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	cfg := env.Cfg.Export
	format := cfg.Format
	if cmd.IsSet("to") {
		if format, err = common.ParseFormat(cmd.String("to")); err != nil {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, cmd.String("to"))
		}
	}
	if !format.CanExport() {
		return fmt.Errorf("%w: %s is import only", ErrUnsupportedFormat, format)
	}

	if cfg.StylesheetPath != "" && env.Stylesheet == nil {
		if env.Stylesheet, err = os.ReadFile(cfg.StylesheetPath); err != nil {
			return fmt.Errorf("unable to read style css from %q: %w", cfg.StylesheetPath, err)
		}
	}
	env.Overwrite = env.Overwrite || cmd.Bool("overwrite")

	req := ExportRequest{
		ProjectID: projectID,
		Format:    format,
		Options: render.Options{
			IncludeTitlePage:    cfg.IncludeTitlePage,
			IncludeTOC:          cfg.IncludeTOC,
			PreserveEntityMarks: cfg.PreserveEntityMarks,
			Glossary: render.GlossaryOptions{
				Include:        cfg.Glossary.Include,
				Types:          cfg.Glossary.Types,
				OnlyReferenced: cfg.Glossary.OnlyReferenced,
			},
			Language:   cfg.Language,
			Stylesheet: env.Stylesheet,
			FixZip:     cfg.FixZip,
			PageSize:   cfg.PDF.PageSize,
			FontSize:   cfg.PDF.FontSize,
		},
		NameTemplate:  cfg.FileNameTemplate,
		Transliterate: cfg.FileNameTransliterate,
	}
	if cmd.IsSet("glossary") {
		req.Options.Glossary.Include = cmd.Bool("glossary")
	}
	if cmd.IsSet("marks") {
		req.Options.PreserveEntityMarks = cmd.Bool("marks")
	}
	if cmd.IsSet("name") {
		// explicit name wins over configured template
		req.Options.FileName = cmd.String("name")
		req.NameTemplate = ""
	}

	st, err := env.Store()
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("project", projectID), zap.String("destination", dst), zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res, err := NewExporter(NewRegistry(log), st, log, WithExportReport(env.Rpt)).Export(ctx, req)
	if err != nil {
		return err
	}
	path, err := WriteResult(res.Data, dst, res.FileName, env.Overwrite, log)
	if err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	log.Info("Document written", zap.String("file", path), zap.Int("bytes", len(res.Data)))

	env.Rpt.Store("result"+format.Ext(), path)
	return nil
}
