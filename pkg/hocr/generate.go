package hocr

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"strings"
	"text/template"
)

//go:embed templates/hocr.tmpl
var templateFS embed.FS

var hocrTemplate = template.Must(template.New("hocr.tmpl").Funcs(template.FuncMap{
	"trim":  strings.TrimSpace,
	"title": boxTitle,
	"esc":   html.EscapeString,
}).ParseFS(templateFS, "templates/hocr.tmpl"))

// GenerateHOCRDocument creates an hOCR HTML document from the HOCR struct
// using the embedded template.
func GenerateHOCRDocument(doc *HOCR) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("hOCR document is nil")
	}
	var buf bytes.Buffer
	if err := hocrTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("error rendering hOCR template: %w", err)
	}
	return buf.String(), nil
}

// boxTitle renders a title attribute value: the bbox followed by extra
// "key value" properties.
func boxTitle(b BoundingBox, extra ...string) string {
	parts := []string{fmt.Sprintf("bbox %d %d %d %d", int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))}
	for _, e := range extra {
		if strings.TrimSpace(e) != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "; ")
}

// PageTitle returns the title attribute for an ocr_page element.
func (p Page) PageTitle() string {
	var extra []string
	if p.ImageName != "" {
		extra = append(extra, fmt.Sprintf("image %q", p.ImageName))
	}
	extra = append(extra, fmt.Sprintf("ppageno %d", p.PageNumber))
	if p.ScanRes > 0 {
		extra = append(extra, fmt.Sprintf("scan_res %d %d", int(p.ScanRes), int(p.ScanRes)))
	}
	return boxTitle(p.BBox, extra...)
}

// WordTitle returns the title attribute for an ocrx_word element.
func (w Word) WordTitle() string {
	return boxTitle(w.BBox, fmt.Sprintf("x_wconf %d", int(w.Confidence)))
}

// LineTitle returns the title attribute for a line element.
func (l Line) LineTitle() string {
	if l.Baseline == "" {
		return boxTitle(l.BBox)
	}
	return boxTitle(l.BBox, "baseline "+l.Baseline)
}
