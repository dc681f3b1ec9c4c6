package parse

import (
	"context"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"folio/archive"
	"folio/ir"
)

// Epub reads OCF package: container, package document, manifest and spine.
// Content documents are converted in spine order.
type Epub struct {
	log *zap.Logger
}

func NewEpub(log *zap.Logger) *Epub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Epub{log: log.Named("epub")}
}

const epubContainer = "META-INF/container.xml"

type manifestItem struct {
	href       string
	mediaType  string
	properties []string
}

func (p *Epub) Parse(ctx context.Context, data []byte, name string) ([]ir.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pkg, err := archive.Open(data)
	if err != nil {
		return nil, malformed("%s: %v", name, err)
	}

	opfPath, err := rootFile(pkg)
	if err != nil {
		return nil, malformed("%s: %v", name, err)
	}
	manifest, spine, err := readPackage(pkg, opfPath)
	if err != nil {
		return nil, malformed("%s: %v", name, err)
	}

	base := path.Dir(opfPath)
	var blocks []ir.Block
	for _, idref := range spine {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := manifest[idref]
		if slices.Contains(item.properties, "nav") {
			continue
		}
		if !isHTMLMediaType(item.mediaType) {
			p.log.Debug("Skipping non html spine item", zap.String("href", item.href), zap.String("media-type", item.mediaType))
			continue
		}

		href := item.href
		if i := strings.IndexByte(href, '#'); i >= 0 {
			href = href[:i]
		}
		if unescaped, err := url.PathUnescape(href); err == nil {
			href = unescaped
		}
		full := path.Join(base, href)
		content, err := pkg.Read(full)
		if err != nil {
			return nil, malformed("%s: spine item %q: %v", name, idref, err)
		}
		blocks = append(blocks, p.contentBlocks(content, full)...)
	}
	return blocks, nil
}

func rootFile(pkg *archive.Archive) (string, error) {
	doc, err := readXML(pkg, epubContainer)
	if err != nil {
		return "", err
	}
	var (
		first     string
		rootfiles []*etree.Element
	)
	if rfs := childLocal(doc.Root(), "rootfiles"); rfs != nil {
		rootfiles = rfs.ChildElements()
	}
	for _, rf := range rootfiles {
		if rf.Tag != "rootfile" {
			continue
		}
		full := attrLocal(rf, "full-path")
		if full == "" {
			continue
		}
		if attrLocal(rf, "media-type") == "application/oebps-package+xml" {
			return full, nil
		}
		if first == "" {
			first = full
		}
	}
	if first == "" {
		return "", malformed("container has no rootfile")
	}
	return first, nil
}

func readPackage(pkg *archive.Archive, opfPath string) (map[string]manifestItem, []string, error) {
	doc, err := readXML(pkg, opfPath)
	if err != nil {
		return nil, nil, err
	}
	root := doc.Root()

	manifestEl := childLocal(root, "manifest")
	if manifestEl == nil {
		return nil, nil, malformed("package document has no manifest")
	}
	manifest := make(map[string]manifestItem)
	for _, it := range manifestEl.ChildElements() {
		if it.Tag != "item" {
			continue
		}
		id := attrLocal(it, "id")
		if id == "" {
			continue
		}
		manifest[id] = manifestItem{
			href:       attrLocal(it, "href"),
			mediaType:  attrLocal(it, "media-type"),
			properties: strings.Fields(attrLocal(it, "properties")),
		}
	}

	spineEl := childLocal(root, "spine")
	if spineEl == nil {
		return nil, nil, malformed("package document has no spine")
	}
	var spine []string
	for _, ref := range spineEl.ChildElements() {
		if ref.Tag != "itemref" {
			continue
		}
		idref := attrLocal(ref, "idref")
		if _, ok := manifest[idref]; !ok {
			return nil, nil, malformed("spine references missing manifest entry %q", idref)
		}
		spine = append(spine, idref)
	}
	return manifest, spine, nil
}

func isHTMLMediaType(mt string) bool {
	switch strings.ToLower(strings.TrimSpace(mt)) {
	case "application/xhtml+xml", "text/html", "application/html", "text/xml", "application/xml":
		return true
	}
	return false
}

// contentBlocks converts single content document. XHTML is parsed strictly
// first so that self closing elements are understood, documents which are
// not well formed go through lenient HTML parser.
func (p *Epub) contentBlocks(data []byte, name string) []ir.Block {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err == nil && doc.Root() != nil {
		if body := findLocal(doc.Root(), "body"); body != nil {
			if kind := auxiliaryKind(body); kind != "" {
				p.log.Debug("Skipping generated content document", zap.String("file", name), zap.String("type", kind))
				return nil
			}
			return FromHTML(etreeToHTML(body), p.log)
		}
	} else {
		p.log.Debug("Content document is not well formed XML, using HTML parser", zap.String("file", name), zap.Error(err))
	}

	blocks, err := HTMLToBlocks(string(data), p.log)
	if err != nil {
		p.log.Warn("Unable to parse content document, skipping", zap.String("file", name), zap.Error(err))
		return nil
	}
	return blocks
}

// auxiliaryTypes are structural semantics of content documents produced
// for the publication rather than written by the author.
var auxiliaryTypes = []string{"titlepage", "halftitlepage", "cover", "toc", "landmarks", "glossary"}

// auxiliaryKind returns structural semantic of body (or of its only top
// level element) when it names generated content, empty string otherwise.
func auxiliaryKind(body *etree.Element) string {
	els := []*etree.Element{body}
	if children := body.ChildElements(); len(children) == 1 {
		els = append(els, children[0])
	}
	for _, el := range els {
		for _, a := range el.Attr {
			if a.Space != "epub" || a.Key != "type" {
				continue
			}
			for _, t := range strings.Fields(a.Value) {
				if slices.Contains(auxiliaryTypes, t) {
					return t
				}
			}
		}
	}
	return ""
}

// etreeToHTML converts XML element tree to HTML node tree. Namespace
// prefixes are dropped and element names are matched case insensitively.
func etreeToHTML(el *etree.Element) *html.Node {
	tag := strings.ToLower(el.Tag)
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: a.Key, Val: a.Value})
	}
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			n.AppendChild(etreeToHTML(t))
		case *etree.CharData:
			n.AppendChild(&html.Node{Type: html.TextNode, Data: t.Data})
		}
	}
	return n
}
