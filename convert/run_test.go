package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"folio/config"
	"folio/detect"
	"folio/state"
)

// setupTestEnv creates a test environment with proper context, logger and
// private in-memory store.
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Store.Path = ":memory:"
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.Cfg = cfg
	t.Cleanup(func() { env.CloseStore() })
	return ctx, env
}

// testApp mirrors command line of the program without global context
// initialization.
func testApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "folio",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Action: Init,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}},
					&cli.StringFlag{Name: "language", Aliases: []string{"l"}, Value: "en"},
					&cli.StringFlag{Name: "synopsis"},
				},
			},
			{
				Name:   "list",
				Action: List,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}},
					&cli.BoolFlag{Name: "entities", Aliases: []string{"e"}},
				},
			},
			{
				Name:   "import",
				Action: Import,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}},
					&cli.StringFlag{Name: "mode", Aliases: []string{"m"}},
					&cli.BoolFlag{Name: "detect-entities", Aliases: []string{"de"}},
					&cli.StringSliceFlag{Name: "entity-types"},
				},
			},
			{
				Name:   "export",
				Action: Export,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}},
					&cli.StringFlag{Name: "to"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}},
					&cli.BoolFlag{Name: "glossary", Aliases: []string{"g"}},
					&cli.BoolFlag{Name: "marks"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}},
				},
			},
		},
	}
}

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	err := testApp(out).Run(ctx, append([]string{"folio"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRun_InitImportExport(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	dir := t.TempDir()

	out, err := run(t, ctx, "init", "--author", "Ann Reed", "Harbor", "Lights")
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		t.Fatal("init did not print project id")
	}

	src := filepath.Join(dir, "src")
	writeFile(t, filepath.Join(src, "part10.md"), "# Chapter Ten\n\nLast words.\n")
	writeFile(t, filepath.Join(src, "part2.md"), "# Chapter Two\n\nFirst words of the harbor.\n")
	writeFile(t, filepath.Join(src, "cover.png"), "not a document")

	if _, err := run(t, ctx, "import", "-p", id, src); err != nil {
		t.Fatalf("import error = %v", err)
	}

	out, err = run(t, ctx, "list", "-p", id)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	two, ten := strings.Index(out, "Chapter Two"), strings.Index(out, "Chapter Ten")
	if two < 0 || ten < 0 || two > ten {
		t.Errorf("list output should have Chapter Two before Chapter Ten, got:\n%s", out)
	}
	if !strings.HasPrefix(out, "Harbor Lights") {
		t.Errorf("list output should start with project title, got:\n%s", out)
	}

	dst := filepath.Join(dir, "out")
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, ctx, "export", "-p", id, "--to", "markdown", "--name", "book", dst); err != nil {
		t.Fatalf("export error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "book.md"))
	if err != nil {
		t.Fatalf("exported file is missing: %v", err)
	}
	if !strings.Contains(string(data), "First words of the harbor.") {
		t.Errorf("exported markdown lacks imported text:\n%s", data)
	}

	// second export into the same place requires overwrite
	if _, err := run(t, ctx, "export", "-p", id, "--to", "markdown", "--name", "book", dst); !errors.Is(err, os.ErrExist) {
		t.Errorf("export without overwrite error = %v, want os.ErrExist", err)
	}
	if _, err := run(t, ctx, "export", "-p", id, "--to", "markdown", "--name", "book", "--ow", dst); err != nil {
		t.Errorf("export with overwrite error = %v", err)
	}

	out, err = run(t, ctx, "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, id) {
		t.Errorf("project list does not mention %s:\n%s", id, out)
	}
}

func TestRun_Errors(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# One\n\nText.\n")

	tests := []struct {
		name string
		args []string
	}{
		{"init without title", []string{"init"}},
		{"import without project", []string{"import", filepath.Join(dir, "a.md")}},
		{"import without source", []string{"import", "-p", "x"}},
		{"import unknown project", []string{"import", "-p", "missing", filepath.Join(dir, "a.md")}},
		{"export text", []string{"export", "-p", "x", "--to", "text", dir}},
		{"export unknown format", []string{"export", "-p", "x", "--to", "rtf", dir}},
		{"export unknown project", []string{"export", "-p", "missing", dir}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, ctx, tt.args...); err == nil {
				t.Errorf("%v: expected error, got nil", tt.args)
			}
		})
	}
}

func TestRun_ImportBadMode(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# One\n\nText.\n")

	out, err := run(t, ctx, "init", "Title")
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	_, err = run(t, ctx, "import", "-p", strings.TrimSpace(out), "-m", "merge", filepath.Join(dir, "a.md"))
	if err == nil || !strings.Contains(err.Error(), "import mode") {
		t.Errorf("import error = %v, want unknown import mode", err)
	}
}

func TestRun_ImportRemoteDetectionWithoutKey(t *testing.T) {
	ctx, env := setupTestEnv(t)
	core, logs := observer.New(zap.WarnLevel)
	env.Log = zap.New(core)
	env.Cfg.Import.Detection.Engine = "remote"
	env.Cfg.Import.Detection.APIKey = ""

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# One\n\nMara Quill sailed.\n")

	out, err := run(t, ctx, "init", "Title")
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	id := strings.TrimSpace(out)
	if _, err := run(t, ctx, "import", "-p", id, "--detect-entities", filepath.Join(dir, "a.md")); err != nil {
		t.Fatalf("import error = %v, detection must not abort import", err)
	}
	if n := logs.FilterMessage("Entity detection is not available, skipping").Len(); n != 1 {
		t.Errorf("got %d detection warnings, want 1", n)
	}
	out, err = run(t, ctx, "list", "-p", id)
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out, "One") {
		t.Errorf("imported chapter is missing from list:\n%s", out)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	if _, err := run(t, ctx, "init", "Title"); !errors.Is(err, context.Canceled) {
		t.Errorf("init error = %v, want context.Canceled", err)
	}
}

func TestCollectSources_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ch10.md"), "ten")
	writeFile(t, filepath.Join(dir, "ch2.md"), "two")
	writeFile(t, filepath.Join(dir, "notes.xyz"), "skip")
	writeFile(t, filepath.Join(dir, "sub", "ch1.txt"), "one")

	got, err := collectSources(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("collectSources() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "ch2.md"),
		filepath.Join(dir, "ch10.md"),
		filepath.Join(dir, "sub", "ch1.txt"),
	}
	if len(got) != len(want) {
		t.Fatalf("collectSources() = %d sources, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].name != want[i] {
			t.Errorf("source[%d] = %q, want %q", i, got[i].name, want[i])
		}
	}

	rc, err := got[0].open()
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	defer rc.Close()
	if data, _ := io.ReadAll(rc); string(data) != "two" {
		t.Errorf("source content = %q, want %q", data, "two")
	}
}

func TestCollectSources_Archive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.ZIP")
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, content := range map[string]string{"b10.md": "ten", "b9.md": "nine", "image.png": "png", "dir/": ""} {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		f.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, buf.String())

	got, err := collectSources(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("collectSources() error = %v", err)
	}
	if len(got) != 2 || got[0].name != "b9.md" || got[1].name != "b10.md" {
		t.Fatalf("collectSources() = %v, want b9.md, b10.md", got)
	}
	rc, err := got[1].open()
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	defer rc.Close()
	if data, _ := io.ReadAll(rc); string(data) != "ten" {
		t.Errorf("archived content = %q, want %q", data, "ten")
	}
}

func TestCollectSources_Errors(t *testing.T) {
	log := zaptest.NewLogger(t)
	if _, err := collectSources(filepath.Join(t.TempDir(), "missing.md"), log); err == nil {
		t.Error("collectSources() for missing path expected error")
	}
	bad := filepath.Join(t.TempDir(), "broken.zip")
	writeFile(t, bad, "this is not an archive")
	if _, err := collectSources(bad, log); err == nil {
		t.Error("collectSources() for broken archive expected error")
	}
}

func TestCollectSources_SingleFile(t *testing.T) {
	// explicitly named file is imported even when extension is unknown
	path := filepath.Join(t.TempDir(), "manuscript")
	writeFile(t, path, "text")
	got, err := collectSources(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("collectSources() error = %v", err)
	}
	if len(got) != 1 || got[0].name != path {
		t.Errorf("collectSources() = %v, want single %s", got, path)
	}
}

func TestIsArchiveFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.zip", true},
		{"dir/A.ZIP", true},
		{"a.epub", false},
		{"zip", false},
	}
	for _, tt := range tests {
		if got := isArchiveFile(tt.path); got != tt.want {
			t.Errorf("isArchiveFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestNewDetector(t *testing.T) {
	log := zaptest.NewLogger(t)
	tests := []struct {
		name       string
		cfg        config.DetectionConfig
		wantRemote bool
		wantErr    error
	}{
		{"auto without key", config.DetectionConfig{Engine: "auto", Language: "en"}, false, nil},
		{"auto with key", config.DetectionConfig{Engine: "auto", APIKey: "k", Model: "m"}, true, nil},
		{"empty engine", config.DetectionConfig{Language: "bogus tag"}, false, nil},
		{"local ignores key", config.DetectionConfig{Engine: "local", APIKey: "k"}, false, nil},
		{"remote", config.DetectionConfig{Engine: "remote", APIKey: "k", Model: "m"}, true, nil},
		{"remote without key", config.DetectionConfig{Engine: "remote"}, false, detect.ErrNoKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, closer, err := newDetector(&tt.cfg, log)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("newDetector() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("newDetector() error = %v", err)
			}
			defer closer()
			_, remote := d.(*detect.Client)
			if remote != tt.wantRemote {
				t.Errorf("newDetector() = %T, remote %v, want %v", d, remote, tt.wantRemote)
			}
		})
	}
}
