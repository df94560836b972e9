package pdfocr

import (
	"fmt"
	"math"
	"strings"

	"github.com/gardar/pdfocr/pkg/layout"
)

// Composer puts one recognized page into the output document. Every call
// adds at least one page to w unless an error is returned before anything
// was drawn. ErrEncoding is returned after the page was written.
type Composer interface {
	Compose(w *Writer, p Page) error
}

// NewComposer returns the composer for config.Mode.
func NewComposer(config OCRConfig) (Composer, error) {
	switch config.Mode {
	case ModeInvisible, "":
		return InvisibleComposer{}, nil
	case ModeVisible:
		return VisibleComposer{}, nil
	case ModeReflow:
		return ReflowComposer{}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", config.Mode)
	}
}

// InvisibleComposer keeps the original page and adds the recognized words
// as hidden text at their positions.
type InvisibleComposer struct{}

// Compose implements Composer.
func (InvisibleComposer) Compose(w *Writer, p Page) error {
	placer := layout.NewPlacer(w.config.Placement, w.measure)
	runs, err := placer.Place(p.Result.Words, p.dpi(), p.Height)
	if err != nil {
		return err
	}
	if err := w.beginPage(p); err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}
	return w.drawOCRLayer(runs, p.Number, p.Height, p.dpi())
}

// VisibleComposer keeps the original page and prints the recognized text
// over it, each line on a white band whose opacity is the configured
// transparency.
type VisibleComposer struct{}

// Compose implements Composer.
func (VisibleComposer) Compose(w *Writer, p Page) error {
	if err := w.beginPage(p); err != nil {
		return err
	}
	text := strings.TrimSpace(p.Result.Text)
	if text == "" {
		words := make([]string, 0, len(p.Result.Words))
		for _, word := range p.Result.Confident() {
			words = append(words, word.Text)
		}
		text = strings.Join(words, " ")
	}
	if text == "" {
		return nil
	}

	pdf := w.pdf
	cfg := w.config
	dpi := p.dpi()
	heightPx := p.Height * dpi / layout.PointsPerInch
	fontPx := math.Max(12, math.Min(24, math.Floor(heightPx/40)))
	scale := layout.PointsPerInch / dpi
	fontSize := fontPx * scale
	lineHeight := (fontPx + 5) * scale
	margin := 50 * scale
	pad := 5 * scale

	font := layout.Font{Family: cfg.Font.Name, Style: cfg.Font.Style, Size: fontSize}
	lines := layout.Wrap(text, p.Width-2*margin, font, w.measure)

	var enc encodingTracker
	pdf.SetFillColor(255, 255, 255)
	pdf.SetTextColor(0, 0, 0)
	y := margin
	for _, line := range lines {
		if y+lineHeight >= p.Height-margin {
			break
		}
		enc.add(strings.Fields(line))
		width := w.measure(line, font)

		pdf.SetAlpha(float64(cfg.Transparency)/255, "Normal")
		pdf.Rect(margin, y-2*scale, width+2*pad, lineHeight+2*scale, "F")
		pdf.SetAlpha(1, "Normal")

		latin1, _ := encodeLatin1(line)
		pdf.SetFont(font.Family, font.Style, font.Size)
		pdf.Text(margin+pad, y+fontSize*cfg.Font.AscentRatio+pad/2, latin1)
		y += lineHeight
	}
	if err := pdf.Error(); err != nil {
		return err
	}
	return enc.err()
}

// ReflowComposer replaces the page with the recognized text typeset as
// paragraphs on one or more fresh pages.
type ReflowComposer struct{}

// Compose implements Composer.
func (ReflowComposer) Compose(w *Writer, p Page) error {
	pdf := w.pdf
	cfg := w.config
	paragraphs := cfg.Reflow.Paragraphs(layout.SplitLines(p.Result.Text))
	pages := cfg.Flow.Flow(paragraphs, p.Number, w.measure)

	var enc encodingTracker
	draw := func(line layout.FlowLine) {
		enc.add(strings.Fields(line.Text))
		latin1, _ := encodeLatin1(line.Text)
		pdf.SetFont(line.Font.Family, line.Font.Style, line.Font.Size)
		pdf.Text(line.X, cfg.Flow.PageHeight-line.Y, latin1)
	}

	pdf.SetTextColor(0, 0, 0)
	for _, page := range pages {
		w.addPage(cfg.Flow.PageWidth, cfg.Flow.PageHeight)
		pdf.SetFont(page.Header.Font.Family, page.Header.Font.Style, page.Header.Font.Size)
		headerText, _ := encodeLatin1(page.Header.Text)
		pdf.Text(page.Header.X, cfg.Flow.PageHeight-page.Header.Y, headerText)
		for _, line := range page.Lines {
			draw(line)
		}
	}
	if err := pdf.Error(); err != nil {
		return err
	}
	return enc.err()
}
