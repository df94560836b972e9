package layout

import (
	"fmt"
	"math"

	"github.com/gardar/pdfocr/pkg/ocr"
)

// PointsPerInch is the PDF user space unit.
const PointsPerInch = 72.0

// PlacementConfig holds the heuristics used to turn word boxes into text
// runs. The defaults were tuned by eye on scanned office documents.
type PlacementConfig struct {
	MinFontSize   float64 `yaml:"min_font_size"`   // lower clamp for the estimated font size
	MaxFontSize   float64 `yaml:"max_font_size"`   // upper clamp for the estimated font size
	SameLineRatio float64 `yaml:"same_line_ratio"` // baseline distance, in font sizes, still on one line
	GapSpaces     float64 `yaml:"gap_spaces"`      // horizontal gap, in space widths, still joined by a space
}

// DefaultPlacement returns the placement heuristics used by the converter.
func DefaultPlacement() PlacementConfig {
	return PlacementConfig{
		MinFontSize:   8,
		MaxFontSize:   14,
		SameLineRatio: 0.5,
		GapSpaces:     3,
	}
}

// Validate checks that the heuristics describe a usable range.
func (c PlacementConfig) Validate() error {
	if c.MinFontSize <= 0 || c.MaxFontSize < c.MinFontSize {
		return fmt.Errorf("invalid font size range [%v, %v]", c.MinFontSize, c.MaxFontSize)
	}
	if c.SameLineRatio <= 0 {
		return fmt.Errorf("same line ratio must be positive, got %v", c.SameLineRatio)
	}
	if c.GapSpaces < 0 {
		return fmt.Errorf("gap spaces must not be negative, got %v", c.GapSpaces)
	}
	return nil
}

// ToPoints converts a pixel distance at dpi into points.
func ToPoints(px, dpi float64) float64 {
	return px * PointsPerInch / dpi
}

// FontSize estimates the font size of a word from its box height. No font
// metrics are consulted; the clamp keeps tall noise boxes and tiny specks
// readable.
func (c PlacementConfig) FontSize(heightPx, dpi float64) float64 {
	return clamp(ToPoints(heightPx, dpi), c.MinFontSize, c.MaxFontSize)
}

// SameLine reports whether two baselines belong to the same visual line for
// a run set in fontSize.
func (c PlacementConfig) SameLine(y1, y2, fontSize float64) bool {
	return math.Abs(y1-y2) < fontSize*c.SameLineRatio
}

// Position maps a word box to its baseline origin in points with the origin
// at the bottom-left of a page pageHeight points tall.
func Position(w ocr.Word, dpi, pageHeight float64) (x, y float64) {
	x = ToPoints(w.Left, dpi)
	y = pageHeight - ToPoints(w.Top+w.Height, dpi)
	return x, y
}

// Run is a piece of text drawn with a single text operation.
type Run struct {
	Text     string
	X        float64 // left edge in points
	Y        float64 // baseline in points, origin bottom-left
	FontSize float64
	Right    float64    // right edge of the last word box in points
	Words    []ocr.Word // source boxes, kept for debug rendering
}

// Width of the run's box extent in points.
func (r Run) Width() float64 { return r.Right - r.X }

// Placer turns the words of one page into positioned text runs.
type Placer struct {
	Config  PlacementConfig
	Measure Measurer
}

// NewPlacer returns a placer using cfg and the given measurer. A nil
// measurer falls back to ApproxMeasure.
func NewPlacer(cfg PlacementConfig, measure Measurer) Placer {
	if measure == nil {
		measure = ApproxMeasure
	}
	return Placer{Config: cfg, Measure: measure}
}

// Place converts the words of a page rasterized at dpi into text runs for a
// page pageHeight points tall. Words with confidence <= 0 or without text are
// dropped; consecutive words on the same line that are close enough are
// joined with a single space.
func (p Placer) Place(words []ocr.Word, dpi, pageHeight float64) ([]Run, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("dpi must be positive, got %v", dpi)
	}
	measure := p.Measure
	if measure == nil {
		measure = ApproxMeasure
	}

	var runs []Run
	var cur *Run
	var prevY float64
	for _, w := range words {
		if w.Confidence <= 0 || w.Text == "" {
			continue
		}
		x, y := Position(w, dpi, pageHeight)
		right := ToPoints(w.Right(), dpi)

		if cur != nil && p.Config.SameLine(prevY, y, cur.FontSize) {
			space := measure(" ", Font{Family: bodyFamily, Size: cur.FontSize})
			if x-cur.Right < p.Config.GapSpaces*space {
				cur.Text += " " + w.Text
				cur.Right = max(cur.Right, right)
				cur.Words = append(cur.Words, w)
				prevY = y
				continue
			}
		}

		runs = append(runs, Run{
			Text:     w.Text,
			X:        x,
			Y:        y,
			FontSize: p.Config.FontSize(w.Height, dpi),
			Right:    right,
			Words:    []ocr.Word{w},
		})
		cur = &runs[len(runs)-1]
		prevY = y
	}
	return runs, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
