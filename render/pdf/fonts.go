package pdf

import (
	_ "embed"
	"sync"
	"unicode"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/encoding/charmap"
)

// DejaVu Sans Condensed covers Latin, Greek and Cyrillic scripts.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
	//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
	fontItalic []byte
	//go:embed fonts/DejaVuSansCondensed-BoldOblique.ttf
	fontBoldItalic []byte
)

const (
	textFamily = "DejaVu"
	// core font, only used for code which fits into cp1252
	monoFamily = "Courier"
)

func registerFonts(pdf *fpdf.Fpdf) {
	pdf.AddUTF8FontFromBytes(textFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(textFamily, "B", fontBold)
	pdf.AddUTF8FontFromBytes(textFamily, "I", fontItalic)
	pdf.AddUTF8FontFromBytes(textFamily, "BI", fontBoldItalic)
}

var textFont = sync.OnceValues(func() (*sfnt.Font, error) {
	return sfnt.Parse(fontRegular)
})

// fitsCoreFont reports whether text could be drawn with core font without
// losing characters.
func fitsCoreFont(text string) bool {
	enc := charmap.Windows1252.NewEncoder()
	_, err := enc.String(text)
	return err == nil
}

// MissingGlyphs returns distinct characters of the document which embedded
// text font cannot draw, in order of appearance.
func MissingGlyphs(d *Doc) ([]rune, error) {
	f, err := textFont()
	if err != nil {
		return nil, err
	}

	var (
		buf     sfnt.Buffer
		missing []rune
		seen    = make(map[rune]struct{})
	)
	check := func(s string) {
		for _, r := range s {
			if unicode.IsSpace(r) || unicode.IsControl(r) {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			if gi, err := f.GlyphIndex(&buf, r); err != nil || gi == 0 {
				missing = append(missing, r)
			}
		}
	}

	check(d.Title)
	check(d.Author)
	for i := range d.Nodes {
		n := &d.Nodes[i]
		check(n.Text)
		check(n.Marker)
		for _, s := range n.Spans {
			check(s.Text)
		}
	}
	return missing, nil
}
