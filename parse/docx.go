package parse

import (
	"context"
	"html"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"folio/archive"
	"folio/ir"
)

// Docx converts WordprocessingML package to HTML using paragraph and
// character style names and then to IR through shared HTML walker. Images
// and other drawings are dropped.
type Docx struct {
	log *zap.Logger
}

func NewDocx(log *zap.Logger) *Docx {
	if log == nil {
		log = zap.NewNop()
	}
	return &Docx{log: log.Named("docx")}
}

const (
	docxDocument  = "word/document.xml"
	docxStyles    = "word/styles.xml"
	docxNumbering = "word/numbering.xml"
	docxRels      = "word/_rels/document.xml.rels"
)

func (p *Docx) Parse(ctx context.Context, data []byte, name string) ([]ir.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pkg, err := archive.Open(data)
	if err != nil {
		return nil, malformed("%s: %v", name, err)
	}
	if !pkg.Has(docxDocument) {
		return nil, malformed("%s: %s is missing", name, docxDocument)
	}

	doc, err := readXML(pkg, docxDocument)
	if err != nil {
		return nil, malformed("%s: %v", name, err)
	}
	body := findLocal(doc.Root(), "body")
	if body == nil {
		return nil, malformed("%s: document has no body", name)
	}

	w := &docxWriter{
		log:       p.log,
		styles:    map[string]string{},
		rels:      map[string]string{},
		numFormat: map[string]map[string]string{},
	}
	// optional parts, their absence only reduces fidelity
	if pkg.Has(docxStyles) {
		if styles, err := readXML(pkg, docxStyles); err == nil {
			w.loadStyles(styles)
		} else {
			p.log.Warn("Unable to read styles", zap.String("file", name), zap.Error(err))
		}
	}
	if pkg.Has(docxRels) {
		if rels, err := readXML(pkg, docxRels); err == nil {
			w.loadRels(rels)
		} else {
			p.log.Warn("Unable to read relationships", zap.String("file", name), zap.Error(err))
		}
	}
	if pkg.Has(docxNumbering) {
		if numbering, err := readXML(pkg, docxNumbering); err == nil {
			w.loadNumbering(numbering)
		} else {
			p.log.Warn("Unable to read numbering", zap.String("file", name), zap.Error(err))
		}
	}

	w.container(body)
	w.finish()
	return HTMLToBlocks(w.buf.String(), p.log)
}

func readXML(pkg *archive.Archive, name string) (*etree.Document, error) {
	data, err := pkg.Read(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, malformed("%s has no root element", name)
	}
	return doc, nil
}

// findLocal does depth first search for element by local name ignoring
// namespace prefixes.
func findLocal(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findLocal(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func childLocal(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func attrLocal(el *etree.Element, key string) string {
	if el == nil {
		return ""
	}
	for _, a := range el.Attr {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// toggle interprets OOXML on/off property like <w:b/> or <w:b w:val="0"/>.
func toggle(el *etree.Element) bool {
	if el == nil {
		return false
	}
	switch strings.ToLower(attrLocal(el, "val")) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

type paraKind int

const (
	paraNormal paraKind = iota
	paraHeading
	paraQuote
	paraCode
	paraBullet
	paraNumber
)

// normalizeStyle turns style names and ids into comparable keys:
// "Heading 1", "heading1" and "Heading1" all become "heading1".
func normalizeStyle(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
}

func classifyStyle(key string) (paraKind, int) {
	switch key {
	case "title":
		return paraHeading, 1
	case "subtitle":
		return paraHeading, 2
	case "quote", "intensequote", "blockquote", "blocktext":
		return paraQuote, 0
	case "code", "sourcecode", "htmlpreformatted", "codeblock", "preformattedtext":
		return paraCode, 0
	case "listbullet", "listbullet2", "listbullet3":
		return paraBullet, 0
	case "listnumber", "listnumber2", "listnumber3":
		return paraNumber, 0
	}
	if rest, ok := strings.CutPrefix(key, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
		return paraHeading, min(int(rest[0]-'0'), 6)
	}
	return paraNormal, 0
}

func isCodeCharStyle(key string) bool {
	switch key {
	case "code", "htmlcode", "sourcecode", "verbatimchar", "inlinecode", "codechar":
		return true
	}
	return false
}

type openList struct {
	tag   string
	level int
}

type docxWriter struct {
	log       *zap.Logger
	buf       strings.Builder
	styles    map[string]string            // style id -> normalized name
	rels      map[string]string            // relationship id -> target
	numFormat map[string]map[string]string // num id -> level -> format
	lists     []openList
	quote     bool
	code      []string
}

func (w *docxWriter) loadStyles(doc *etree.Document) {
	for _, st := range doc.Root().ChildElements() {
		if st.Tag != "style" {
			continue
		}
		id := attrLocal(st, "styleId")
		if id == "" {
			continue
		}
		name := attrLocal(childLocal(st, "name"), "val")
		if name == "" {
			name = id
		}
		w.styles[id] = normalizeStyle(name)
	}
}

func (w *docxWriter) loadRels(doc *etree.Document) {
	for _, rel := range doc.Root().ChildElements() {
		if id := attrLocal(rel, "Id"); id != "" {
			w.rels[id] = attrLocal(rel, "Target")
		}
	}
}

func (w *docxWriter) loadNumbering(doc *etree.Document) {
	abstract := map[string]map[string]string{}
	for _, el := range doc.Root().ChildElements() {
		if el.Tag != "abstractNum" {
			continue
		}
		levels := map[string]string{}
		for _, lvl := range el.ChildElements() {
			if lvl.Tag == "lvl" {
				levels[attrLocal(lvl, "ilvl")] = attrLocal(childLocal(lvl, "numFmt"), "val")
			}
		}
		abstract[attrLocal(el, "abstractNumId")] = levels
	}
	for _, el := range doc.Root().ChildElements() {
		if el.Tag != "num" {
			continue
		}
		if levels, ok := abstract[attrLocal(childLocal(el, "abstractNumId"), "val")]; ok {
			w.numFormat[attrLocal(el, "numId")] = levels
		}
	}
}

func (w *docxWriter) styleKey(id string) string {
	if key, ok := w.styles[id]; ok {
		return key
	}
	return normalizeStyle(id)
}

// container emits block content of body, table cells and content controls.
func (w *docxWriter) container(el *etree.Element) {
	for _, c := range el.ChildElements() {
		switch c.Tag {
		case "p":
			w.paragraph(c)
		case "tbl":
			for _, tr := range c.ChildElements() {
				if tr.Tag != "tr" {
					continue
				}
				for _, tc := range tr.ChildElements() {
					if tc.Tag == "tc" {
						w.container(tc)
					}
				}
			}
		case "sdt":
			if content := childLocal(c, "sdtContent"); content != nil {
				w.container(content)
			}
		case "customXml", "ins", "smartTag":
			w.container(c)
		case "sectPr", "bookmarkStart", "bookmarkEnd", "del":
		default:
			w.log.Debug("Skipping unsupported body element", zap.String("tag", c.Tag))
		}
	}
}

func (w *docxWriter) paragraph(p *etree.Element) {
	ppr := childLocal(p, "pPr")
	kind, level := classifyStyle(w.styleKey(attrLocal(childLocal(ppr, "pStyle"), "val")))

	listLevel := 0
	if numPr := childLocal(ppr, "numPr"); numPr != nil {
		numID := attrLocal(childLocal(numPr, "numId"), "val")
		ilvl := attrLocal(childLocal(numPr, "ilvl"), "val")
		if numID != "" && numID != "0" && kind != paraHeading {
			kind = paraBullet
			if format := w.numFormat[numID][ilvl]; format != "" && format != "bullet" && format != "none" {
				kind = paraNumber
			}
			for _, ch := range ilvl {
				if ch >= '0' && ch <= '9' {
					listLevel = listLevel*10 + int(ch-'0')
				}
			}
		}
	}

	var content strings.Builder
	w.runs(p, &content)
	inner := content.String()

	if kind != paraCode {
		w.flushCode()
	}
	if kind != paraQuote && w.quote {
		w.buf.WriteString("</blockquote>")
		w.quote = false
	}
	if kind != paraBullet && kind != paraNumber {
		w.closeLists(-1)
	}

	switch kind {
	case paraHeading:
		tag := "h" + string(rune('0'+level))
		w.buf.WriteString("<" + tag + ">" + inner + "</" + tag + ">")
	case paraQuote:
		if !w.quote {
			w.buf.WriteString("<blockquote>")
			w.quote = true
		}
		w.buf.WriteString("<p>" + inner + "</p>")
	case paraCode:
		w.code = append(w.code, plainRuns(p))
	case paraBullet, paraNumber:
		tag := "ul"
		if kind == paraNumber {
			tag = "ol"
		}
		w.listItem(tag, listLevel, inner)
	default:
		w.buf.WriteString("<p>" + inner + "</p>")
	}
}

func (w *docxWriter) listItem(tag string, level int, inner string) {
	w.closeLists(level)
	if n := len(w.lists); n > 0 && w.lists[n-1].level == level {
		if w.lists[n-1].tag != tag {
			w.buf.WriteString("</li></" + w.lists[n-1].tag + ">")
			w.lists = w.lists[:n-1]
		} else {
			w.buf.WriteString("</li>")
		}
	}
	for len(w.lists) == 0 || w.lists[len(w.lists)-1].level < level {
		next := 0
		if len(w.lists) > 0 {
			next = w.lists[len(w.lists)-1].level + 1
		}
		if next > level {
			break
		}
		w.buf.WriteString("<" + tag + ">")
		w.lists = append(w.lists, openList{tag: tag, level: next})
		if next < level {
			// level was skipped, give it an item to hang on
			w.buf.WriteString("<li>")
		}
	}
	w.buf.WriteString("<li>" + inner)
}

// closeLists closes all open lists deeper than level.
func (w *docxWriter) closeLists(level int) {
	for len(w.lists) > 0 && w.lists[len(w.lists)-1].level > level {
		w.buf.WriteString("</li></" + w.lists[len(w.lists)-1].tag + ">")
		w.lists = w.lists[:len(w.lists)-1]
	}
}

func (w *docxWriter) flushCode() {
	if len(w.code) == 0 {
		return
	}
	w.buf.WriteString("<pre><code>" + html.EscapeString(strings.Join(w.code, "\n")) + "</code></pre>")
	w.code = nil
}

func (w *docxWriter) finish() {
	w.flushCode()
	if w.quote {
		w.buf.WriteString("</blockquote>")
		w.quote = false
	}
	w.closeLists(-1)
}

// runs emits inline HTML for paragraph content.
func (w *docxWriter) runs(el *etree.Element, out *strings.Builder) {
	for _, c := range el.ChildElements() {
		switch c.Tag {
		case "r":
			w.run(c, out)
		case "hyperlink":
			href := ""
			if id := attrLocal(c, "id"); id != "" {
				href = w.rels[id]
			}
			if anchor := attrLocal(c, "anchor"); anchor != "" && href == "" {
				href = "#" + anchor
			}
			if href != "" {
				out.WriteString(`<a href="` + html.EscapeString(href) + `">`)
			}
			w.runs(c, out)
			if href != "" {
				out.WriteString("</a>")
			}
		case "ins", "smartTag", "customXml", "fldSimple", "sdtContent":
			w.runs(c, out)
		case "sdt":
			if content := childLocal(c, "sdtContent"); content != nil {
				w.runs(content, out)
			}
		}
	}
}

func (w *docxWriter) run(r *etree.Element, out *strings.Builder) {
	var text strings.Builder
	for _, c := range r.ChildElements() {
		switch c.Tag {
		case "t":
			text.WriteString(html.EscapeString(c.Text()))
		case "tab", "ptab":
			text.WriteString("\t")
		case "br":
			// page and column breaks carry no meaning for manuscript flow
			if t := attrLocal(c, "type"); t == "" || t == "textWrapping" {
				text.WriteString("<br/>")
			}
		case "cr":
			text.WriteString("<br/>")
		case "noBreakHyphen":
			text.WriteString("-")
		case "sym":
			text.WriteString(" ")
		case "drawing", "pict", "object":
			w.log.Debug("Dropping embedded drawing")
		}
	}
	if text.Len() == 0 {
		return
	}

	var open, close []string
	wrap := func(tag string) {
		open = append(open, "<"+tag+">")
		close = append([]string{"</" + tag + ">"}, close...)
	}
	if rpr := childLocal(r, "rPr"); rpr != nil {
		if toggle(childLocal(rpr, "b")) {
			wrap("strong")
		}
		if toggle(childLocal(rpr, "i")) {
			wrap("em")
		}
		if u := childLocal(rpr, "u"); u != nil && strings.ToLower(attrLocal(u, "val")) != "none" {
			wrap("u")
		}
		if toggle(childLocal(rpr, "strike")) || toggle(childLocal(rpr, "dstrike")) {
			wrap("del")
		}
		if isCodeCharStyle(w.styleKey(attrLocal(childLocal(rpr, "rStyle"), "val"))) {
			wrap("code")
		}
	}
	out.WriteString(strings.Join(open, ""))
	out.WriteString(text.String())
	out.WriteString(strings.Join(close, ""))
}

// plainRuns returns unformatted text of the paragraph, used for code blocks.
func plainRuns(p *etree.Element) string {
	var buf strings.Builder
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			switch c.Tag {
			case "t":
				buf.WriteString(c.Text())
			case "tab":
				buf.WriteString("\t")
			case "br", "cr":
				buf.WriteString("\n")
			case "pPr", "rPr", "del":
			default:
				walk(c)
			}
		}
	}
	walk(p)
	return buf.String()
}
