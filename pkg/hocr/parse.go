package hocr

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// lineClasses are the hOCR classes tesseract uses for line-level elements.
var lineClasses = []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

// ParseHOCR converts raw hOCR data into a structured HOCR object.
func ParseHOCR(data []byte) (HOCR, error) {
	result := HOCR{Metadata: make(map[string]string)}

	decoded, err := decodeCharset(data)
	if err != nil {
		return result, err
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return result, fmt.Errorf("failed to parse hOCR html: %w", err)
	}

	extractDocumentMeta(&result, doc)

	walk(doc, func(n *html.Node, class string) bool {
		if class != "ocr_page" {
			return false
		}
		result.Pages = append(result.Pages, parsePage(n))
		return true
	})

	if len(result.Pages) == 0 {
		return result, fmt.Errorf("no ocr_page elements found in HOCR data")
	}
	return result, nil
}

// ParseTitle breaks down an hOCR title attribute into its components
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// ParseBoundingBoxFromTitle extracts a bounding box from a title string
// Returns nil if the title carries no complete bbox.
func ParseBoundingBoxFromTitle(title string) *BoundingBox {
	bbox, ok := ParseTitle(title)["bbox"]
	if !ok || len(bbox) < 4 {
		return nil
	}
	var v [4]float64
	for i := range v {
		f, err := strconv.ParseFloat(bbox[i], 64)
		if err != nil {
			return nil
		}
		v[i] = f
	}
	result := NewBoundingBox(v[0], v[1], v[2], v[3])
	return &result
}

// decodeCharset converts single-byte encoded hOCR to UTF-8. Tesseract always
// writes UTF-8; other producers occasionally declare latin-1.
func decodeCharset(data []byte) ([]byte, error) {
	switch declaredCharset(data) {
	case "", "utf-8", "utf8":
		return data, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Bytes(data)
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Bytes(data)
	default:
		return nil, fmt.Errorf("unsupported hOCR charset %q", declaredCharset(data))
	}
}

func declaredCharset(data []byte) string {
	head := data
	if len(head) > 2048 {
		head = head[:2048]
	}
	idx := bytes.Index(bytes.ToLower(head), []byte("charset="))
	if idx < 0 {
		return ""
	}
	rest := string(head[idx+len("charset="):])
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == '/' || r == ' '
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// extractDocumentMeta extracts document-level metadata from <html> and <head>
func extractDocumentMeta(result *HOCR, doc *html.Node) {
	var head *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "html":
				if lang := attr(n, "lang"); lang != "" {
					result.Language = lang
				} else if lang := attr(n, "xml:lang"); lang != "" {
					result.Language = lang
				}
			case "head":
				head = n
				return
			case "body":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if head == nil {
		return
	}

	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "title":
			if c.FirstChild != nil {
				result.Title = c.FirstChild.Data
			}
		case "meta":
			name, content := attr(c, "name"), attr(c, "content")
			if name == "" || content == "" {
				continue
			}
			switch {
			case strings.HasPrefix(name, "ocr-"):
				result.Metadata[name] = content
			case name == "description":
				result.Description = content
			case name == "dc.language":
				result.Language = content
			}
		}
	}
}

// element holds the attributes shared by every hOCR element.
type element struct {
	id, lang, title string
	bbox            BoundingBox
	props           map[string][]string
}

func readElement(n *html.Node) element {
	e := element{id: attr(n, "id"), lang: attr(n, "lang"), title: attr(n, "title")}
	e.props = ParseTitle(e.title)
	if bbox := ParseBoundingBoxFromTitle(e.title); bbox != nil {
		e.bbox = *bbox
	}
	return e
}

// metadata flattens the title properties that are not mapped to fields.
func (e element) metadata(skip ...string) map[string]string {
	m := make(map[string]string)
	for k, v := range e.props {
		if k == "bbox" || contains(skip, k) {
			continue
		}
		m[k] = strings.Join(v, " ")
	}
	return m
}

func parsePage(n *html.Node) Page {
	e := readElement(n)
	page := Page{
		ID:       e.id,
		Title:    e.title,
		Lang:     e.lang,
		BBox:     e.bbox,
		Metadata: e.metadata("image", "ppageno", "scan_res"),
	}
	if image, ok := e.props["image"]; ok && len(image) > 0 {
		page.ImageName = strings.Trim(strings.Join(image, " "), `"`)
	}
	if ppageno, ok := e.props["ppageno"]; ok && len(ppageno) > 0 {
		page.PageNumber, _ = strconv.Atoi(ppageno[0])
	}
	if res, ok := e.props["scan_res"]; ok && len(res) > 0 {
		page.ScanRes, _ = strconv.ParseFloat(res[0], 64)
	}

	walkChildren(n, func(c *html.Node, class string) bool {
		switch {
		case class == "ocr_carea":
			page.Areas = append(page.Areas, parseArea(c))
		case class == "ocr_par":
			page.Paragraphs = append(page.Paragraphs, parseParagraph(c))
		case isLineClass(class):
			page.Lines = append(page.Lines, parseLine(c, class))
		default:
			return false
		}
		return true
	})
	return page
}

func parseArea(n *html.Node) Area {
	e := readElement(n)
	area := Area{ID: e.id, Lang: e.lang, BBox: e.bbox, Metadata: e.metadata()}
	walkChildren(n, func(c *html.Node, class string) bool {
		switch {
		case class == "ocr_par":
			area.Paragraphs = append(area.Paragraphs, parseParagraph(c))
		case isLineClass(class):
			area.Lines = append(area.Lines, parseLine(c, class))
		case class == "ocrx_word":
			area.Words = append(area.Words, parseWord(c))
		default:
			return false
		}
		return true
	})
	return area
}

func parseParagraph(n *html.Node) Paragraph {
	e := readElement(n)
	par := Paragraph{ID: e.id, Lang: e.lang, BBox: e.bbox, Metadata: e.metadata()}
	walkChildren(n, func(c *html.Node, class string) bool {
		switch {
		case isLineClass(class):
			par.Lines = append(par.Lines, parseLine(c, class))
		case class == "ocrx_word":
			par.Words = append(par.Words, parseWord(c))
		default:
			return false
		}
		return true
	})
	return par
}

func parseLine(n *html.Node, class string) Line {
	e := readElement(n)
	line := Line{
		ID:        e.id,
		Lang:      e.lang,
		LineClass: class,
		BBox:      e.bbox,
		Metadata:  e.metadata("baseline"),
	}
	if baseline, ok := e.props["baseline"]; ok {
		line.Baseline = strings.Join(baseline, " ")
	}
	walkChildren(n, func(c *html.Node, class string) bool {
		if class != "ocrx_word" {
			return false
		}
		line.Words = append(line.Words, parseWord(c))
		return true
	})
	return line
}

func parseWord(n *html.Node) Word {
	e := readElement(n)
	word := Word{
		ID:       e.id,
		Lang:     e.lang,
		BBox:     e.bbox,
		Text:     textContent(n),
		Metadata: e.metadata("x_wconf", "lang"),
	}
	if conf, ok := e.props["x_wconf"]; ok && len(conf) > 0 {
		word.Confidence, _ = strconv.ParseFloat(conf[0], 64)
	}
	if lang, ok := e.props["lang"]; ok && len(lang) > 0 {
		word.Lang = lang[0]
	}
	return word
}

// walk visits n and its descendants in document order. visit receives each
// element with its hOCR class and returns true when it consumed the element,
// in which case its subtree is not descended into.
func walk(n *html.Node, visit func(*html.Node, string) bool) {
	if n.Type == html.ElementNode && visit(n, hocrClass(n)) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func walkChildren(n *html.Node, visit func(*html.Node, string) bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// hocrClass returns the first ocr_* or ocrx_* class token of an element.
func hocrClass(n *html.Node) string {
	for _, token := range strings.Fields(attr(n, "class")) {
		if strings.HasPrefix(token, "ocr_") || strings.HasPrefix(token, "ocrx_") {
			return token
		}
	}
	return ""
}

func isLineClass(class string) bool {
	return contains(lineClasses, class)
}

// textContent gets all text from a node and its children
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return strings.TrimSpace(b.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
