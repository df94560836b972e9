package pdfocr

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/gardar/pdfocr/pkg/layout"
	"github.com/gardar/pdfocr/pkg/ocr"
)

// ErrEncoding is returned when too many words cannot be represented in the
// PDF core fonts. The page is still written, with '?' for the missing
// characters.
var ErrEncoding = errors.New("character encoding issues")

// encodingTracker counts words that did not survive latin-1 encoding.
type encodingTracker struct {
	words, failed int
}

func (t *encodingTracker) add(words []string) {
	for _, w := range words {
		t.words++
		if _, ok := encodeLatin1(w); !ok {
			t.failed++
		}
	}
}

// err reports more than 10% failed words.
func (t *encodingTracker) err() error {
	if t.words > 0 && t.failed > 0 && t.failed > t.words/10 {
		return fmt.Errorf("%w in %d of %d words", ErrEncoding, t.failed, t.words)
	}
	return nil
}

// encodeLatin1 converts text to ISO-8859-1 for the core fonts, replacing
// unsupported runes with '?'. ok is false when anything was replaced.
func encodeLatin1(s string) (string, bool) {
	out := make([]byte, 0, len(s))
	ok := true
	for _, r := range s {
		b, valid := charmap.ISO8859_1.EncodeRune(r)
		if !valid {
			b = '?'
			ok = false
		}
		out = append(out, b)
	}
	return string(out), ok
}

// layerName formats the optional content group name of a page.
func layerName(base string, pageNum int) string {
	if pageNum > 0 {
		return fmt.Sprintf("%s (Page %d)", base, pageNum)
	}
	return base
}

// drawOCRLayer draws the text runs onto a layer of the current page. Run
// coordinates have their origin at the bottom-left of a page pageHeight
// points tall; dpi is the resolution of the word boxes kept in the runs.
func (w *Writer) drawOCRLayer(runs []layout.Run, pageNum int, pageHeight, dpi float64) error {
	pdf := w.pdf
	cfg := w.config

	layer := pdf.AddLayer(layerName(cfg.LayerName, pageNum), true)
	pdf.BeginLayer(layer)

	if cfg.Debug {
		pdf.SetTextColor(255, 0, 0) // highlight text in red
		pdf.SetDrawColor(255, 0, 0)
		pdf.SetLineWidth(0.5)
	} else {
		pdf.SetAlpha(0.0, "Normal") // hide text from normal view
	}

	var enc encodingTracker
	for _, run := range runs {
		for _, word := range run.Words {
			enc.add([]string{word.Text})
		}
		text, _ := encodeLatin1(run.Text)
		pdf.SetFont(cfg.Font.Name, cfg.Font.Style, run.FontSize)
		pdf.Text(run.X, pageHeight-run.Y, text)

		if cfg.Debug {
			for _, word := range run.Words {
				drawWordBox(w, word, dpi)
			}
		}
	}

	if cfg.Debug {
		pdf.SetTextColor(0, 0, 0)
		pdf.SetDrawColor(0, 0, 0)
	} else {
		pdf.SetAlpha(1.0, "Normal")
	}
	pdf.EndLayer()

	if err := pdf.Error(); err != nil {
		return err
	}
	return enc.err()
}

// drawWordBox outlines a word box given in pixels at dpi.
func drawWordBox(w *Writer, word ocr.Word, dpi float64) {
	w.pdf.Rect(
		layout.ToPoints(word.Left, dpi),
		layout.ToPoints(word.Top, dpi),
		layout.ToPoints(word.Width, dpi),
		layout.ToPoints(word.Height, dpi),
		"D",
	)
}
