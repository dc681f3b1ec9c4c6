package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	margin     = 20.0
	indentStep = 8.0
	ptToMM     = 25.4 / 72
)

var (
	highlightColor = [3]int{255, 243, 176}
	codeColor      = [3]int{240, 240, 240}
	linkColor      = [3]int{20, 60, 160}
)

type layout struct {
	pdf *fpdf.Fpdf
	// cp1252 translation for core fonts
	tr    func(string) string
	size  float64
	lineH float64
	links map[string]int
	pageW float64
	pageH float64
}

// Layout places document nodes on pages and returns PDF file content.
func Layout(ctx context.Context, d *Doc, pageSize string, fontSize float64) ([]byte, error) {
	if pageSize == "" {
		pageSize = "A4"
	}
	if fontSize <= 0 {
		fontSize = 11
	}

	pdf := fpdf.New("P", "mm", pageSize, "")
	if pdf.Err() {
		return nil, fmt.Errorf("unable to initialize document: %w", pdf.Error())
	}
	registerFonts(pdf)
	if pdf.Err() {
		return nil, fmt.Errorf("unable to load fonts: %w", pdf.Error())
	}
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(d.Title, true)
	if d.Author != "" {
		pdf.SetAuthor(d.Author, true)
	}

	w, h := pdf.GetPageSize()
	l := &layout{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		size:  fontSize,
		lineH: fontSize * ptToMM * 1.45,
		links: make(map[string]int),
		pageW: w,
		pageH: h,
	}
	for _, a := range d.Anchors() {
		l.links[a] = pdf.AddLink()
	}

	pdf.AddPage()
	for i := range d.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.node(&d.Nodes[i])
		if pdf.Err() {
			return nil, pdf.Error()
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *layout) node(n *Node) {
	pdf := l.pdf
	if n.Anchor != "" {
		pdf.SetLink(l.links[n.Anchor], -1, -1)
	}

	switch n.Kind {
	case NodePageBreak:
		pdf.AddPage()
	case NodeTitle:
		pdf.SetY(l.pageH / 3)
		pdf.SetFont(textFamily, "B", l.size*2.4)
		pdf.MultiCell(0, l.size*2.4*ptToMM*1.3, n.Text, "", "C", false)
	case NodeAuthor:
		pdf.Ln(l.lineH)
		pdf.SetFont(textFamily, "I", l.size*1.4)
		pdf.MultiCell(0, l.size*1.4*ptToMM*1.3, n.Text, "", "C", false)
	case NodeHeading:
		size := l.headingSize(n.Level)
		if pdf.GetY() > margin+1 {
			pdf.Ln(l.lineH * 0.8)
		}
		if n.Bookmark {
			pdf.Bookmark(spansText(n.Spans), max(0, n.Level-1), -1)
		}
		l.flow(n, size, true)
		pdf.Ln(l.lineH * 0.4)
	case NodeParagraph, NodeTOCEntry:
		l.flow(n, l.size, false)
		pdf.Ln(l.lineH * 0.35)
	case NodeCode:
		x := margin + float64(n.Indent)*indentStep
		pdf.SetX(x)
		family := l.codeFamily(n.Text)
		pdf.SetFont(family, "", l.size*0.9)
		pdf.SetFillColor(codeColor[0], codeColor[1], codeColor[2])
		pdf.MultiCell(l.pageW-margin-x, l.lineH, l.encode(family, n.Text), "", "L", true)
		pdf.Ln(l.lineH * 0.35)
	case NodeRule:
		x := margin + float64(n.Indent)*indentStep
		y := pdf.GetY() + l.lineH/2
		pdf.SetDrawColor(128, 128, 128)
		pdf.Line(x, y, l.pageW-margin, y)
		pdf.Ln(l.lineH)
	case NodeSceneBreak:
		pdf.SetFont(textFamily, "", l.size)
		pdf.CellFormat(0, l.lineH*2, "* * *", "", 1, "C", false, 0, "")
	}
}

func (l *layout) headingSize(level int) float64 {
	switch level {
	case 1:
		return l.size * 1.8
	case 2:
		return l.size * 1.5
	case 3:
		return l.size * 1.3
	default:
		return l.size * 1.15
	}
}

// flow writes spans word by word wrapping at right margin. Cells are used
// instead of Write so that highlighting and links cover exact words.
func (l *layout) flow(n *Node, size float64, bold bool) {
	pdf := l.pdf
	lineH := size * ptToMM * 1.45
	x0 := margin + float64(n.Indent)*indentStep
	maxX := l.pageW - margin

	if n.Marker != "" {
		pdf.SetFont(textFamily, "", size)
		pdf.SetX(max(margin, x0-indentStep))
		pdf.CellFormat(indentStep-1.5, lineH, n.Marker, "", 0, "R", false, 0, "")
	}
	pdf.SetX(x0)

	newLine := func() {
		pdf.Ln(lineH)
		pdf.SetX(x0)
	}

	for _, s := range n.Spans {
		if s.Break {
			newLine()
			continue
		}
		family := l.setFont(size, bold, n.Italic, &s)
		for _, token := range strings.SplitAfter(s.Text, " ") {
			if token == "" {
				continue
			}
			text := l.encode(family, token)
			width := pdf.GetStringWidth(text)
			if x := pdf.GetX(); x > x0 && x+pdf.GetStringWidth(strings.TrimRight(text, " ")) > maxX {
				newLine()
				text = strings.TrimLeft(text, " ")
				if text == "" {
					continue
				}
				width = pdf.GetStringWidth(text)
			}
			l.cell(&s, text, width, lineH)
		}
	}
	pdf.Ln(lineH)
}

// setFont selects font for span and returns its family.
func (l *layout) setFont(size float64, bold, italic bool, s *Span) string {
	family, style := textFamily, ""
	if bold || s.Bold {
		style += "B"
	}
	if italic || s.Italic {
		style += "I"
	}
	if s.Underline || s.Link != "" || s.Target != "" {
		style += "U"
	}
	if s.Code {
		family = l.codeFamily(s.Text)
	}
	l.pdf.SetFont(family, style, size)
	if s.Link != "" || s.Target != "" {
		l.pdf.SetTextColor(linkColor[0], linkColor[1], linkColor[2])
	} else {
		l.pdf.SetTextColor(0, 0, 0)
	}
	return family
}

// codeFamily returns monospaced core font unless text has characters it
// cannot represent.
func (l *layout) codeFamily(text string) string {
	if fitsCoreFont(text) {
		return monoFamily
	}
	return textFamily
}

// encode converts text for the font family, core fonts expect cp1252.
func (l *layout) encode(family, text string) string {
	if family == monoFamily {
		return l.tr(text)
	}
	return text
}

func (l *layout) cell(s *Span, text string, width, lineH float64) {
	pdf := l.pdf
	if s.Highlight {
		pdf.SetFillColor(highlightColor[0], highlightColor[1], highlightColor[2])
	}
	link := 0
	if s.Target != "" {
		link = l.links[s.Target]
	}
	pdf.CellFormat(width, lineH, text, "", 0, "L", s.Highlight, link, s.Link)
	if s.Strike {
		// cell could have moved to the next page, take position after it
		x, y := pdf.GetX()-width, pdf.GetY()
		pdf.SetDrawColor(0, 0, 0)
		pdf.Line(x, y+lineH/2, x+width, y+lineH/2)
	}
}

func spansText(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		if s.Break {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteString(s.Text)
	}
	return sb.String()
}
