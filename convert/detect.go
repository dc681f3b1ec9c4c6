package convert

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"

	"folio/common"
)

// ErrUnsupportedFormat is returned when document format is unknown or
// cannot be detected.
var ErrUnsupportedFormat = errors.New("unsupported format")

var formatByExt = map[string]common.Format{
	".md":       common.FormatMarkdown,
	".markdown": common.FormatMarkdown,
	".mdown":    common.FormatMarkdown,
	".mkd":      common.FormatMarkdown,
	".docx":     common.FormatDocx,
	".epub":     common.FormatEpub,
	".pdf":      common.FormatPdf,
	".txt":      common.FormatText,
	".text":     common.FormatText,
}

var formatByMime = map[string]common.Format{
	"text/markdown":   common.FormatMarkdown,
	"text/x-markdown": common.FormatMarkdown,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": common.FormatDocx,
	"application/epub+zip": common.FormatEpub,
	"application/pdf":      common.FormatPdf,
	"text/plain":           common.FormatText,
}

// DetectFormat finds out source document format looking at file name
// extension first, then at declared MIME type and finally at the content
// itself. Head is the beginning of the file, it may be nil.
func DetectFormat(name, mimeType string, head []byte) (common.Format, error) {
	if f, ok := formatByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return f, nil
	}
	if mimeType != "" {
		if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
			if f, ok := formatByMime[mt]; ok {
				return f, nil
			}
		}
	}
	if f, ok := sniffFormat(head); ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: unable to detect format of %q", ErrUnsupportedFormat, name)
}

func sniffFormat(head []byte) (common.Format, bool) {
	if len(head) == 0 {
		return 0, false
	}
	switch {
	case filetype.Is(head, "epub"):
		return common.FormatEpub, true
	case filetype.Is(head, "docx"):
		return common.FormatDocx, true
	case filetype.Is(head, "pdf"):
		return common.FormatPdf, true
	}
	if detectUTF(head) != encUnknown {
		return common.FormatText, true
	}
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		// some other known binary
		return 0, false
	}
	if utf8.Valid(head) && !bytes.ContainsRune(head, 0) {
		return common.FormatText, true
	}
	return 0, false
}

// ResolveFormat returns requested format or detects one when request is
// "auto" or empty.
func ResolveFormat(requested, name, mimeType string, head []byte) (common.Format, error) {
	if requested == "" || strings.EqualFold(requested, "auto") {
		return DetectFormat(name, mimeType, head)
	}
	f, err := common.ParseFormat(requested)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, requested)
	}
	return f, nil
}

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// detectUTF looks for byte order mark. UTF-32LE must be checked before
// UTF-16LE as their marks share prefix.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case bytes.HasPrefix(buf, []byte{0xEF, 0xBB, 0xBF}):
		return encUTF8
	case bytes.HasPrefix(buf, []byte{0x00, 0x00, 0xFE, 0xFF}):
		return encUTF32BigEndian
	case bytes.HasPrefix(buf, []byte{0xFF, 0xFE, 0x00, 0x00}):
		return encUTF32LittleEndian
	case bytes.HasPrefix(buf, []byte{0xFE, 0xFF}):
		return encUTF16BigEndian
	case bytes.HasPrefix(buf, []byte{0xFF, 0xFE}):
		return encUTF16LittleEndian
	}
	return encUnknown
}

func (e srcEncoding) decoder() *encoding.Decoder {
	switch e {
	case encUnknown, encUTF8:
		return unicode.UTF8BOM.NewDecoder()
	case encUTF16BigEndian:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case encUTF16LittleEndian:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case encUTF32BigEndian:
		return utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder()
	case encUTF32LittleEndian:
		return utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder()
	default:
		// this should never happen
		panic(fmt.Sprintf("unexpected source encoding %d", e))
	}
}

// decodeText converts textual source to UTF-8 dropping byte order mark.
func decodeText(data []byte) ([]byte, error) {
	enc := detectUTF(data)
	if enc == encUnknown {
		return data, nil
	}
	out, err := enc.decoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode text: %w", err)
	}
	return out, nil
}
