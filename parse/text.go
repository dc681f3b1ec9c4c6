package parse

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"folio/ir"
)

// Text parses plain text manuscripts. Paragraphs are separated by blank
// lines, single line paragraphs which look like headings or scene markers
// are reclassified.
type Text struct {
	log *zap.Logger
}

func NewText(log *zap.Logger) *Text {
	if log == nil {
		log = zap.NewNop()
	}
	return &Text{log: log.Named("text")}
}

func (p *Text) Parse(ctx context.Context, data []byte, name string) ([]ir.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := decodeText(data)
	if err != nil {
		p.log.Warn("Unable to decode text, using it as is", zap.String("file", name), zap.Error(err))
		text = strings.TrimPrefix(string(data), "\ufeff")
	}
	return TextToBlocks(text), nil
}

// decodeText detects encoding of the data (BOM, then content sniffing) and
// converts it to UTF-8 dropping any byte order mark.
func decodeText(data []byte) (string, error) {
	enc, _, _ := charset.DetermineEncoding(data, "text/plain")
	out, _, err := transform.Bytes(xunicode.BOMOverride(enc.NewDecoder()), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

var (
	reSceneMarker = regexp.MustCompile(`^(?:(?:[*~]\s*){3,}|(?:#\s*){1,3}|(?i:scene\s+break)\.?)$`)
	reChapter     = regexp.MustCompile(`(?i)^(?:chapter|part|book)\s+(?:\d+|[ivxlcdm]+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|thirty|forty|fifty|first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|last|final)\b`)
	reSpecial     = regexp.MustCompile(`(?i)^(?:prologue|epilogue|interlude|afterword|foreword|introduction)(?:\s*[:.\-–—]\s*.*)?$`)
	reEnumerator  = regexp.MustCompile(`^(?:[IVXLCDM]+|\d{1,3})(?:\.|\)|\s+-)(?:\s+.*)?$`)
)

const (
	maxHeadingLen    = 100
	maxCapsHeaderLen = 60
)

// TextToBlocks converts decoded plain text to IR.
func TextToBlocks(text string) []ir.Block {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var (
		out  []ir.Block
		para []string
	)
	flush := func() {
		if len(para) > 0 {
			out = append(out, classify(para))
			para = nil
		}
	}
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	flush()
	return out
}

func classify(lines []string) ir.Block {
	if len(lines) == 1 {
		line := lines[0]
		if reSceneMarker.MatchString(line) {
			return ir.HorizontalRule()
		}
		if level := headingLevelOf(line); level > 0 {
			return ir.Heading(level, ir.Text(line))
		}
	}
	inlines := make([]ir.Inline, 0, 2*len(lines)-1)
	for i, line := range lines {
		if i > 0 {
			inlines = append(inlines, ir.HardBreak())
		}
		inlines = append(inlines, ir.Text(line))
	}
	return ir.Paragraph(inlines...)
}

func headingLevelOf(line string) int {
	n := utf8.RuneCountInString(line)
	if n > maxHeadingLen {
		return 0
	}
	if reChapter.MatchString(line) || reSpecial.MatchString(line) {
		return 1
	}
	if n <= maxCapsHeaderLen && isAllCaps(line) {
		return 2
	}
	if n <= maxCapsHeaderLen && reEnumerator.MatchString(line) {
		return 2
	}
	return 0
}

// isAllCaps reports whether line has at least two letters and none of them
// is lower case.
func isAllCaps(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if unicode.IsLower(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 2
}
