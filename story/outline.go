package story

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TreeWriter writes indented outline, two spaces per level. First write
// error is kept and all following writes are skipped.
type TreeWriter struct {
	w   io.Writer
	err error
}

func NewTreeWriter(w io.Writer) *TreeWriter {
	return &TreeWriter{w: w}
}

// Err returns first error encountered while writing.
func (tw *TreeWriter) Err() error {
	return tw.err
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, strings.Repeat("  ", depth)+format+"\n", args...)
}

// Field writes labeled value quoting it when not empty.
func (tw *TreeWriter) Field(depth int, label, value string) {
	if value != "" {
		value = strconv.Quote(value)
	}
	tw.Line(depth, "%s: %s", label, value)
}

// Outline writes document forest as produced by Build starting at depth.
func Outline(tw *TreeWriter, nodes []*Node, depth int) error {
	for _, n := range nodes {
		tw.Line(depth, "%s [%s, %d words] %s", n.Doc.Title, n.Doc.Type, n.Doc.WordCount, n.Doc.ID)
		Outline(tw, n.Children, depth+1)
	}
	return tw.Err()
}
