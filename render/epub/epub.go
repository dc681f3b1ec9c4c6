// Package epub renders exported sections as EPUB 3 publication.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"folio/common"
	"folio/css"
	"folio/glossary"
	"folio/ir"
	"folio/render"
)

const (
	mimetypeContent = "application/epub+zip"
	oebpsDir        = "OEBPS"
	stylesheetName  = "styles.css"
	titleFile       = "title.xhtml"
	navFile         = "nav.xhtml"
	glossaryFile    = "glossary.xhtml"
)

//go:embed default.css
var defaultCSS []byte

type chapterData struct {
	ID       string
	Filename string
	Title    string
	Level    int
	Doc      *etree.Document
}

type Renderer struct {
	log *zap.Logger
	now func() time.Time
}

func New(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log.Named("epub"), now: time.Now}
}

// Render produces complete OCF container in memory.
func (r *Renderer) Render(ctx context.Context, in *render.Input) (*render.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	b := &book{
		in:          in,
		id:          "urn:uuid:" + id.String(),
		lang:        r.language(in),
		entityLink:  in.Options.EntityLinks(),
		entityMarks: in.Options.PreserveEntityMarks,
		log:         r.log,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := writeMimetype(zw); err != nil {
		return nil, fmt.Errorf("unable to write mimetype: %w", err)
	}
	if err := writeContainer(zw); err != nil {
		return nil, fmt.Errorf("unable to write container: %w", err)
	}

	var chapters []chapterData
	if in.Options.IncludeTitlePage {
		chapters = append(chapters, b.titlePage())
	}
	for i := range in.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chapters = append(chapters, b.section(i+1, &in.Sections[i]))
	}
	if len(in.Glossary) > 0 {
		chapters = append(chapters, b.glossary(in.Glossary))
	}

	for i := range chapters {
		if err := writeXMLToZip(zw, path.Join(oebpsDir, chapters[i].Filename), chapters[i].Doc); err != nil {
			return nil, fmt.Errorf("unable to write chapter %s: %w", chapters[i].ID, err)
		}
	}

	style := defaultCSS
	if len(in.Options.Stylesheet) > 0 {
		res, err := css.Sanitize(in.Options.Stylesheet, r.log)
		if err != nil {
			return nil, err
		}
		if len(res.Removed) > 0 {
			r.log.Warn("Stylesheet references external resources which are not packaged, ignoring them", zap.Strings("removed", res.Removed))
		}
		style = res.Data
	}
	if err := writeDataToZip(zw, path.Join(oebpsDir, stylesheetName), style); err != nil {
		return nil, fmt.Errorf("unable to write stylesheet: %w", err)
	}
	if err := b.writeNav(zw, chapters); err != nil {
		return nil, fmt.Errorf("unable to write NAV: %w", err)
	}
	if err := b.writeNCX(zw, chapters); err != nil {
		return nil, fmt.Errorf("unable to write NCX: %w", err)
	}
	if err := b.writeOPF(zw, chapters, r.now()); err != nil {
		return nil, fmt.Errorf("unable to write OPF: %w", err)
	}

	// make sure buffers are flushed before continuing
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("unable to close output archive: %w", err)
	}

	data := buf.Bytes()
	if in.Options.FixZip {
		if data, err = copyZipWithoutDataDescriptors(data); err != nil {
			return nil, err
		}
	}

	r.log.Debug("EPUB rendered", zap.Int("chapters", len(chapters)), zap.Int("bytes", len(data)))
	return &render.Result{
		Data:     data,
		MimeType: common.FormatEpub.MimeType(),
		FileName: in.FileName(common.FormatEpub.Ext()),
	}, nil
}

func (r *Renderer) language(in *render.Input) string {
	lang := in.Options.Language
	if lang == "" && in.Project != nil {
		lang = in.Project.Language
	}
	if lang == "" {
		return "en"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		r.log.Warn("Invalid content language, using default", zap.String("language", lang), zap.Error(err))
		return "en"
	}
	return tag.String()
}

// copyZipWithoutDataDescriptors rewrites archive so that no entry uses data
// descriptor, some readers do not handle them.
func copyZipWithoutDataDescriptors(data []byte) ([]byte, error) {
	r, err := fixzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unable to read archive: %w", err)
	}

	var out bytes.Buffer
	w := fixzip.NewWriter(&out)
	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return nil, fmt.Errorf("unable to write archive entry (%s): %w", file.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("unable to close archive: %w", err)
	}
	return out.Bytes(), nil
}

func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mimetypeContent)
	return err
}

func writeContainer(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfiles := container.CreateElement("rootfiles")
	rootfile := rootfiles.CreateElement("rootfile")
	rootfile.CreateAttr("full-path", path.Join(oebpsDir, "content.opf"))
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	return writeXMLToZip(zw, "META-INF/container.xml", doc)
}

type book struct {
	in   *render.Input
	id   string
	lang string
	// entity marks are dropped unless entityMarks is set, entityLink
	// additionally turns them into glossary links
	entityMarks bool
	entityLink  bool
	log         *zap.Logger
}

func (b *book) titlePage() chapterData {
	doc, body := b.createXHTMLDocument(b.in.Title())
	sec := body.CreateElement("section")
	sec.CreateAttr("epub:type", "titlepage")
	sec.CreateAttr("class", "title-page")
	h1 := sec.CreateElement("h1")
	h1.SetText(b.in.Title())
	if author := b.in.Author(); author != "" {
		p := sec.CreateElement("p")
		p.CreateAttr("class", "author")
		p.SetText(author)
	}
	return chapterData{ID: "title-page", Filename: titleFile, Title: b.in.Title(), Level: 1, Doc: doc}
}

func (b *book) section(num int, s *ir.Section) chapterData {
	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	level := 1
	if s.Level > 1 {
		level = 2
	}

	doc, body := b.createXHTMLDocument(title)
	sec := body.CreateElement("section")
	sec.CreateAttr("epub:type", "chapter")
	h := sec.CreateElement("h" + strconv.Itoa(level))
	h.SetText(title)
	b.appendBlocks(sec, s.Blocks)

	return chapterData{
		ID:       fmt.Sprintf("section-%04d", num),
		Filename: fmt.Sprintf("section-%04d.xhtml", num),
		Title:    title,
		Level:    level,
		Doc:      doc,
	}
}

func (b *book) glossary(sections []glossary.Section) chapterData {
	doc, body := b.createXHTMLDocument("Glossary")
	sec := body.CreateElement("section")
	sec.CreateAttr("epub:type", "glossary")
	sec.CreateElement("h1").SetText("Glossary")

	for _, gs := range sections {
		sec.CreateElement("h2").SetText(gs.Title)
		for _, e := range gs.Entries {
			div := sec.CreateElement("div")
			div.CreateAttr("class", "glossary-entry")
			div.CreateAttr("id", ir.EntityAnchor(e.ID))
			div.CreateElement("h3").SetText(e.Name)
			if len(e.Aliases) > 0 {
				p := div.CreateElement("p")
				p.CreateAttr("class", "aliases")
				p.SetText("Also known as: " + strings.Join(e.Aliases, ", "))
			}
			if e.Description != "" {
				div.CreateElement("p").SetText(e.Description)
			}
			if len(e.Fields) > 0 {
				dl := div.CreateElement("dl")
				for _, f := range e.Fields {
					dl.CreateElement("dt").SetText(f.Label)
					dl.CreateElement("dd").SetText(f.Value)
				}
			}
		}
	}
	return chapterData{ID: "glossary", Filename: glossaryFile, Title: "Glossary", Level: 1, Doc: doc}
}

// createXHTMLDocument creates a standard XHTML document structure with head elements
func (b *book) createXHTMLDocument(title string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective("DOCTYPE html")

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	html.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")
	html.CreateAttr("xml:lang", b.lang)
	html.CreateAttr("lang", b.lang)

	head := html.CreateElement("head")

	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")

	head.CreateElement("title").SetText(title)

	link := head.CreateElement("link")
	link.CreateAttr("rel", "stylesheet")
	link.CreateAttr("type", "text/css")
	link.CreateAttr("href", stylesheetName)

	return doc, html.CreateElement("body")
}

func (b *book) writeOPF(zw *zip.Writer, chapters []chapterData, now time.Time) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("unique-identifier", "BookId")
	pkg.CreateAttr("version", "3.0")
	pkg.CreateAttr("xml:lang", b.lang)

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	metadata.CreateAttr("xmlns:opf", "http://www.idpf.org/2007/opf")

	metadata.CreateElement("dc:title").SetText(b.in.Title())

	dcIdentifier := metadata.CreateElement("dc:identifier")
	dcIdentifier.CreateAttr("id", "BookId")
	dcIdentifier.SetText(b.id)

	metadata.CreateElement("dc:language").SetText(b.lang)

	if author := b.in.Author(); author != "" {
		dcCreator := metadata.CreateElement("dc:creator")
		dcCreator.CreateAttr("id", "creator0")
		dcCreator.SetText(author)

		roleMeta := metadata.CreateElement("meta")
		roleMeta.CreateAttr("refines", "#creator0")
		roleMeta.CreateAttr("property", "role")
		roleMeta.CreateAttr("scheme", "marc:relators")
		roleMeta.SetText("aut")
	}
	if b.in.Project != nil && b.in.Project.Synopsis != "" {
		metadata.CreateElement("dc:description").SetText(b.in.Project.Synopsis)
	}

	// EPUB3 requires dcterms:modified metadata
	modifiedMeta := metadata.CreateElement("meta")
	modifiedMeta.CreateAttr("property", "dcterms:modified")
	modifiedMeta.SetText(now.UTC().Format("2006-01-02T15:04:05Z"))

	manifest := pkg.CreateElement("manifest")
	addItem := func(id, href, mediaType, properties string) {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", id)
		item.CreateAttr("href", href)
		item.CreateAttr("media-type", mediaType)
		if properties != "" {
			item.CreateAttr("properties", properties)
		}
	}
	addItem("nav", navFile, "application/xhtml+xml", "nav")
	addItem("ncx", "toc.ncx", "application/x-dtbncx+xml", "")
	addItem("style", stylesheetName, "text/css", "")
	for _, chapter := range chapters {
		addItem(chapter.ID, chapter.Filename, "application/xhtml+xml", "")
	}

	spine := pkg.CreateElement("spine")
	spine.CreateAttr("toc", "ncx")
	addRef := func(idref string) {
		spine.CreateElement("itemref").CreateAttr("idref", idref)
	}
	start := 0
	if len(chapters) > 0 && chapters[0].Filename == titleFile {
		addRef(chapters[0].ID)
		start = 1
	}
	if b.in.Options.IncludeTOC {
		addRef("nav")
	}
	for _, chapter := range chapters[start:] {
		addRef(chapter.ID)
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "content.opf"), doc)
}

func (b *book) writeNav(zw *zip.Writer, chapters []chapterData) error {
	doc, body := b.createXHTMLDocument("Table of Contents")

	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")
	nav.CreateAttr("role", "doc-toc")
	nav.CreateElement("h1").SetText("Table of Contents")

	ol := nav.CreateElement("ol")
	var parent *etree.Element
	for _, chapter := range chapters {
		target := ol
		if chapter.Level > 1 && parent != nil {
			// scenes nest under the preceding chapter
			target = parent.SelectElement("ol")
			if target == nil {
				target = parent.CreateElement("ol")
			}
		}
		li := target.CreateElement("li")
		a := li.CreateElement("a")
		a.CreateAttr("href", chapter.Filename)
		a.SetText(chapter.Title)
		if chapter.Level <= 1 {
			parent = li
		}
	}

	landmarksNav := body.CreateElement("nav")
	landmarksNav.CreateAttr("epub:type", "landmarks")
	landmarksNav.CreateAttr("id", "landmarks")
	landmarksNav.CreateAttr("hidden", "")

	landmarksOL := landmarksNav.CreateElement("ol")
	for _, chapter := range chapters {
		if chapter.Filename == titleFile {
			continue
		}
		li := landmarksOL.CreateElement("li")
		a := li.CreateElement("a")
		a.CreateAttr("epub:type", "bodymatter")
		a.CreateAttr("href", chapter.Filename)
		a.SetText("Start")
		break
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, navFile), doc)
}

func (b *book) writeNCX(zw *zip.Writer, chapters []chapterData) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	ncx := doc.CreateElement("ncx")
	ncx.CreateAttr("xmlns", "http://www.daisy.org/z3986/2005/ncx/")
	ncx.CreateAttr("version", "2005-1")

	head := ncx.CreateElement("head")

	metaUID := head.CreateElement("meta")
	metaUID.CreateAttr("name", "dtb:uid")
	metaUID.CreateAttr("content", b.id)

	maxDepth := 1
	for _, chapter := range chapters {
		maxDepth = max(maxDepth, chapter.Level)
	}
	metaDepth := head.CreateElement("meta")
	metaDepth.CreateAttr("name", "dtb:depth")
	metaDepth.CreateAttr("content", strconv.Itoa(maxDepth))

	ncx.CreateElement("docTitle").CreateElement("text").SetText(b.in.Title())

	navMap := ncx.CreateElement("navMap")

	playOrder := 0
	var parent *etree.Element
	for _, chapter := range chapters {
		playOrder++
		target := navMap
		if chapter.Level > 1 && parent != nil {
			target = parent
		}
		navPoint := target.CreateElement("navPoint")
		navPoint.CreateAttr("id", "nav-"+chapter.ID)
		navPoint.CreateAttr("playOrder", strconv.Itoa(playOrder))

		navPoint.CreateElement("navLabel").CreateElement("text").SetText(chapter.Title)
		navPoint.CreateElement("content").CreateAttr("src", chapter.Filename)
		if chapter.Level <= 1 {
			parent = navPoint
		}
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "toc.ncx"), doc)
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
