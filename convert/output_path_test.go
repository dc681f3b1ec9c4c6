package convert

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"folio/common"
	"folio/project"
	"folio/render"
)

func TestOutputFileName(t *testing.T) {
	p := &project.Project{ID: "p1", Title: "Мост через реку", Author: "Ann Reed"}

	tests := []struct {
		name string
		req  ExportRequest
		want string
	}{
		{"title", ExportRequest{Format: common.FormatEpub}, "Мост через реку.epub"},
		{"transliterated title", ExportRequest{Format: common.FormatEpub, Transliterate: true}, "most-cherez-reku.epub"},
		{"requested name", ExportRequest{Format: common.FormatDocx, Options: render.Options{FileName: "draft v2"}}, "draft v2.docx"},
		{"requested name with extension", ExportRequest{Format: common.FormatPdf, Options: render.Options{FileName: "final.pdf"}}, "final.pdf"},
		{"template wins", ExportRequest{Format: common.FormatMarkdown, Options: render.Options{FileName: "ignored"}, NameTemplate: "{{ .Author }}"}, "Ann Reed.md"},
		{"template path uses last segment", ExportRequest{Format: common.FormatMarkdown, NameTemplate: "{{ .Author }}/{{ .ProjectID }}"}, "p1.md"},
		{"broken template falls back", ExportRequest{Format: common.FormatMarkdown, NameTemplate: "{{ .Author"}, "Мост через реку.md"},
		{"empty template result falls back", ExportRequest{Format: common.FormatMarkdown, NameTemplate: "{{ if false }}x{{ end }}"}, "Мост через реку.md"},
		{"separators removed", ExportRequest{Format: common.FormatMarkdown, Options: render.Options{FileName: "..hidden"}}, "hidden.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputFileName(p, &tt.req, zaptest.NewLogger(t)); got != tt.want {
				t.Errorf("outputFileName() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := outputFileName(&project.Project{}, &ExportRequest{Format: common.FormatMarkdown}, zaptest.NewLogger(t)); got != "Untitled.md" {
		t.Errorf("outputFileName() for untitled project = %q", got)
	}
}

func TestWriteResult(t *testing.T) {
	log := zaptest.NewLogger(t)
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteResult([]byte("one"), dir, "book.md", false, log)
	if err != nil {
		t.Fatalf("WriteResult() error = %v", err)
	}
	if path != filepath.Join(dir, "book.md") {
		t.Errorf("WriteResult() path = %q", path)
	}

	if _, err := WriteResult([]byte("two"), dir, "book.md", false, log); !errors.Is(err, os.ErrExist) {
		t.Errorf("WriteResult() without overwrite error = %v, want os.ErrExist", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "one" {
		t.Errorf("existing file changed to %q", data)
	}

	if _, err := WriteResult([]byte("two"), dir, "book.md", true, log); err != nil {
		t.Fatalf("WriteResult() with overwrite error = %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "two" {
		t.Errorf("file = %q, want overwritten content", data)
	}
}
