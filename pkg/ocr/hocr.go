package ocr

import (
	"fmt"
	"strings"

	"github.com/gardar/pdfocr/pkg/hocr"
)

// WordsFromHOCR flattens a parsed hOCR page into words in reading order,
// numbering lines as they appear.
func WordsFromHOCR(page hocr.Page) []Word {
	var words []Word
	for _, line := range page.WordsByLine() {
		for _, w := range line.Words {
			text := strings.TrimSpace(w.Text)
			if text == "" {
				continue
			}
			words = append(words, Word{
				Text:       text,
				Left:       w.BBox.X1,
				Top:        w.BBox.Y1,
				Width:      w.BBox.Width(),
				Height:     w.BBox.Height(),
				Confidence: w.Confidence,
				Line:       line.Line,
			})
		}
	}
	return words
}

// ResultFromHOCR builds a Result from a parsed hOCR page. The text is the
// page's plain text rendering.
func ResultFromHOCR(page hocr.Page, engine string) Result {
	return Result{
		Text:   page.Text(),
		Words:  WordsFromHOCR(page),
		Width:  int(page.BBox.Width()),
		Height: int(page.BBox.Height()),
		DPI:    page.ScanRes,
		Engine: engine,
	}
}

// HOCRPage converts a result into an hOCR page so that results from any
// engine can be exported. pageNumber is 1-based; words are grouped into
// lines by their Line index inside a single block.
func HOCRPage(res Result, pageNumber int, imageName string) hocr.Page {
	page := hocr.Page{
		ID:         fmt.Sprintf("page_%d", pageNumber),
		PageNumber: pageNumber - 1,
		ImageName:  imageName,
		ScanRes:    res.DPI,
		BBox:       hocr.NewBoundingBox(0, 0, float64(res.Width), float64(res.Height)),
	}

	par := hocr.Paragraph{ID: fmt.Sprintf("par_%d_1", pageNumber)}
	var line *hocr.Line
	lineIndex := -1
	for i, w := range res.Words {
		if line == nil || w.Line != lineIndex {
			par.Lines = append(par.Lines, hocr.Line{
				ID:        fmt.Sprintf("line_%d_%d", pageNumber, len(par.Lines)+1),
				LineClass: "ocr_line",
			})
			line = &par.Lines[len(par.Lines)-1]
			lineIndex = w.Line
		}
		box := hocr.NewBoundingBox(w.Left, w.Top, w.Right(), w.Bottom())
		line.Words = append(line.Words, hocr.Word{
			ID:         fmt.Sprintf("word_%d_%d", pageNumber, i+1),
			Text:       w.Text,
			BBox:       box,
			Confidence: w.Confidence,
		})
		line.BBox = line.BBox.Union(box)
		par.BBox = par.BBox.Union(box)
	}
	if len(par.Lines) > 0 {
		page.Areas = []hocr.Area{{
			ID:         fmt.Sprintf("block_%d_1", pageNumber),
			BBox:       par.BBox,
			Paragraphs: []hocr.Paragraph{par},
		}}
	}
	return page
}

// HOCRDocument wraps pages recognized by engine into a document ready for
// hocr.GenerateHOCRDocument.
func HOCRDocument(engine, language string, pages ...hocr.Page) *hocr.HOCR {
	return &hocr.HOCR{
		Language: language,
		Metadata: map[string]string{
			"ocr-system":       engine,
			"ocr-capabilities": "ocr_page ocr_carea ocr_par ocr_line ocrx_word ocrp_wconf",
		},
		Pages: pages,
	}
}
