// Package common keeps enums shared by configuration, converters and command
// line so that configuration package does not have to depend on converters.
package common

// Supported document formats.
// ENUM(markdown, docx, epub, pdf, text)
type Format int

// Binary reports whether format is read as raw bytes rather than decoded
// text.
func (f Format) Binary() bool {
	return f == FormatDocx || f == FormatEpub || f == FormatPdf
}

// CanExport reports whether there is a renderer for the format.
func (f Format) CanExport() bool {
	return f.IsValid() && f != FormatText
}

func (f Format) Ext() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatDocx:
		return ".docx"
	case FormatEpub:
		return ".epub"
	case FormatPdf:
		return ".pdf"
	case FormatText:
		return ".txt"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

func (f Format) MimeType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown"
	case FormatDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatEpub:
		return "application/epub+zip"
	case FormatPdf:
		return "application/pdf"
	case FormatText:
		return "text/plain"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// How imported documents are merged into the project.
// ENUM(append, replace)
type ImportMode int

// What happens to scene breaks when IR is converted back to editor tree.
// ENUM(rule, drop, keep)
type SceneBreakMode int

// Outcome of import operation.
// ENUM(completed, cancelled)
type Outcome int
