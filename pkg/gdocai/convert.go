package gdocai

import (
	"math"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/pdfocr/pkg/ocr"
)

// WordsFromPage converts the tokens of a Document AI page into words in
// pixels of a width x height image. Tokens are numbered by the line that
// contains them; tokens outside every line get a line of their own.
func WordsFromPage(page *documentaipb.Document_Page, fullText string, width, height float64) []ocr.Word {
	if page == nil {
		return nil
	}
	if (width <= 0 || height <= 0) && page.Dimension != nil {
		width, height = float64(page.Dimension.Width), float64(page.Dimension.Height)
	}

	lineOf := func(token *documentaipb.Document_Page_Token) int {
		for lidx, line := range page.Lines {
			if isElementInParent(token.Layout, line.Layout) {
				return lidx
			}
		}
		return -1
	}

	var words []ocr.Word
	nextLoose := len(page.Lines)
	for _, token := range page.Tokens {
		text := strings.TrimSpace(textFromLayout(token.Layout, fullText))
		text = strings.ReplaceAll(text, "\r", "")
		text = strings.ReplaceAll(text, "\n", " ")
		if text == "" {
			continue
		}
		left, top, right, bottom, ok := tokenBox(token.Layout, page.Dimension, width, height)
		if !ok {
			continue
		}
		line := lineOf(token)
		if line < 0 {
			line = nextLoose
			nextLoose++
		}
		words = append(words, ocr.Word{
			Text:       text,
			Left:       left,
			Top:        top,
			Width:      right - left,
			Height:     bottom - top,
			Confidence: float64(token.GetLayout().GetConfidence()) * 100,
			Line:       line,
		})
	}
	return words
}

// tokenBox returns the pixel extent of a layout. Normalized vertices are
// scaled to the image; absolute vertices are rescaled from the page
// dimension reported by Document AI.
func tokenBox(layout *documentaipb.Document_Page_Layout, dim *documentaipb.Document_Page_Dimension, width, height float64) (left, top, right, bottom float64, ok bool) {
	poly := layout.GetBoundingPoly()
	if poly == nil {
		return 0, 0, 0, 0, false
	}
	left, top = math.Inf(1), math.Inf(1)
	right, bottom = math.Inf(-1), math.Inf(-1)
	extend := func(x, y float64) {
		left, right = math.Min(left, x), math.Max(right, x)
		top, bottom = math.Min(top, y), math.Max(bottom, y)
	}

	switch {
	case len(poly.NormalizedVertices) > 0:
		for _, v := range poly.NormalizedVertices {
			extend(float64(v.X)*width, float64(v.Y)*height)
		}
	case len(poly.Vertices) > 0 && dim != nil && dim.Width > 0 && dim.Height > 0:
		sx, sy := width/float64(dim.Width), height/float64(dim.Height)
		for _, v := range poly.Vertices {
			extend(float64(v.X)*sx, float64(v.Y)*sy)
		}
	default:
		return 0, 0, 0, 0, false
	}
	return left, top, right, bottom, right > left && bottom > top
}

// PageText returns the text of a page, or the whole document text when the
// page carries no text anchor.
func PageText(doc *documentaipb.Document, page *documentaipb.Document_Page) string {
	text := textFromLayout(page.GetLayout(), doc.GetText())
	if text == "" && len(doc.GetPages()) == 1 {
		text = doc.GetText()
	}
	return strings.TrimRight(text, "\n")
}
