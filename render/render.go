// Package render defines contract shared by all output format renderers.
package render

import (
	"context"

	"folio/glossary"
	"folio/ir"
	"folio/project"
)

// GlossaryOptions select which entities end up in the glossary appendix.
type GlossaryOptions struct {
	Include        bool     `yaml:"include"`
	Types          []string `yaml:"types"`
	OnlyReferenced bool     `yaml:"only_referenced"`
}

// Options are export options common to all formats.
type Options struct {
	IncludeTitlePage    bool
	IncludeTOC          bool
	PreserveEntityMarks bool
	Glossary            GlossaryOptions
	// FileName is the requested base file name without extension, may be empty.
	FileName string
	// Language is BCP 47 tag of the content.
	Language string
	// Stylesheet replaces default CSS for formats which use it.
	Stylesheet []byte
	// FixZip rewrites zip based packages without data descriptors.
	FixZip bool
	// PageSize and FontSize are used by paginated formats.
	PageSize string
	FontSize float64
}

// EntityLinks reports whether entity marks should become links to glossary
// anchors.
func (o *Options) EntityLinks() bool {
	return o.PreserveEntityMarks && o.Glossary.Include
}

// Input is everything renderer needs to produce document.
type Input struct {
	Project  *project.Project
	Sections []ir.Section
	Glossary []glossary.Section
	Options  Options
}

// Title returns project title or a placeholder.
func (in *Input) Title() string {
	if in.Project != nil && in.Project.Title != "" {
		return in.Project.Title
	}
	return "Untitled"
}

// Author returns project author, may be empty.
func (in *Input) Author() string {
	if in.Project != nil {
		return in.Project.Author
	}
	return ""
}

// FileName returns requested or title based file name with extension.
// Orchestrator sanitizes it before use.
func (in *Input) FileName(ext string) string {
	if in.Options.FileName != "" {
		return in.Options.FileName + ext
	}
	return in.Title() + ext
}

// Result is rendered document.
type Result struct {
	Data     []byte
	MimeType string
	FileName string
}

// Renderer produces document in a single output format.
type Renderer interface {
	Render(ctx context.Context, in *Input) (*Result, error)
}
