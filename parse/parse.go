// Package parse converts external documents (Markdown, DOCX, EPUB, PDF and
// plain text) to IR blocks. DOCX, EPUB and Markdown are first turned into
// HTML which is converted by a single shared HTML walker.
package parse

import (
	"context"
	"errors"
	"fmt"

	"folio/ir"
)

// ErrMalformed is returned when source document structure is broken beyond
// repair (invalid container, missing package entries and such).
var ErrMalformed = errors.New("malformed document")

// Parser converts source document data to IR. Name is the source file name
// and is only used for diagnostics.
type Parser interface {
	Parse(ctx context.Context, data []byte, name string) ([]ir.Block, error)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
