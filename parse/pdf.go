package parse

import (
	"bytes"
	"context"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"folio/ir"
)

// Pdf extracts plain text from PDF pages and runs it through plain text
// heuristics. Only text survives, there is no styling information.
type Pdf struct {
	log *zap.Logger
}

func NewPdf(log *zap.Logger) *Pdf {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pdf{log: log.Named("pdf")}
}

func (p *Pdf) Parse(ctx context.Context, data []byte, name string) (blocks []ir.Block, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// pdf library panics on some damaged files
	defer func() {
		if r := recover(); r != nil {
			blocks, err = nil, malformed("%s: %v", name, r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, malformed("%s: %v", name, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			p.log.Warn("Unable to extract page text, skipping", zap.String("file", name), zap.Int("page", i), zap.Error(err))
			continue
		}
		pages = append(pages, reflow(text))
	}
	return TextToBlocks(strings.Join(pages, "\n\n")), nil
}

// reflow joins visually wrapped lines inside blank line separated blocks,
// undoing end of line hyphenation.
func reflow(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for para := range strings.SplitSeq(text, "\n\n") {
		var buf strings.Builder
		for line := range strings.SplitSeq(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if buf.Len() > 0 {
				s := buf.String()
				if strings.HasSuffix(s, "-") && !strings.HasSuffix(s, " -") {
					buf.Reset()
					buf.WriteString(strings.TrimSuffix(s, "-"))
				} else {
					buf.WriteByte(' ')
				}
			}
			buf.WriteString(line)
		}
		if buf.Len() > 0 {
			out = append(out, buf.String())
		}
	}
	return strings.Join(out, "\n\n")
}
