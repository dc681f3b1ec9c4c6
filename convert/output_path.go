package convert

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"folio/config"
	"folio/project"
)

// outputFileName returns sanitized name of exported file. Name comes from
// expanded template when one is configured, otherwise from requested file
// name or project title. Template may produce path separators, only the
// last segment is used.
func outputFileName(p *project.Project, req *ExportRequest, log *zap.Logger) string {
	base := req.Options.FileName
	if base == "" {
		base = p.Title
	}
	if req.NameTemplate != "" {
		if expanded, err := expandTemplate(p, config.FileNameTemplateFieldName, req.NameTemplate, req.Format); err != nil {
			log.Warn("Unable to prepare output filename", zap.Error(err))
		} else if expanded = strings.TrimSpace(filepath.Base(filepath.FromSlash(expanded))); expanded != "" && expanded != "." && expanded != string(os.PathSeparator) {
			base = expanded
		}
	}
	ext := req.Format.Ext()
	base = strings.TrimSuffix(strings.TrimSpace(base), ext)
	if base == "" {
		base = "Untitled"
	}
	return cleanFileName(base, req.Transliterate) + ext
}

func cleanFileName(name string, transliterate bool) string {
	if transliterate {
		name = slug.Make(name)
	}
	return config.CleanFileName(name)
}

// WriteResult saves exported data into dir under name returned by export.
// Existing file is only replaced when overwrite is set.
func WriteResult(data []byte, dir, name string, overwrite bool, log *zap.Logger) (string, error) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return "", &os.PathError{Op: "export", Path: path, Err: os.ErrExist}
		}
		log.Warn("Overwriting existing file", zap.String("file", path))
	} else if !os.IsNotExist(err) {
		return "", err
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
