package convert

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"

	"folio/common"
	"folio/config"
	"folio/project"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context   string
	Title     string
	Author    string
	Language  string
	Date      string
	Format    string
	ProjectID string
}

// now is replaced in tests
var now = time.Now

func expandTemplate(p *project.Project, name config.TemplateFieldName, field string, format common.Format) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:   string(name),
		Title:     p.Title,
		Author:    p.Author,
		Language:  p.Language,
		Date:      now().Format("2006-01-02"),
		Format:    format.String(),
		ProjectID: p.ID,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
