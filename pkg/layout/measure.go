package layout

// bodyFamily is the family used when only a size matters.
const bodyFamily = "Helvetica"

// Font selects a face for width measurement and drawing.
type Font struct {
	Family string  // e.g. "Helvetica"
	Style  string  // "", "B", "I" or "BI"
	Size   float64 // points
}

// Measurer returns the rendered width of text in points.
type Measurer func(text string, font Font) float64

// ApproxMeasure estimates widths with Helvetica's average advance: 0.278 em
// for a space, 0.556 em for everything else, bold 5% wider. It is good
// enough for tests and for callers that have no font metrics at hand.
func ApproxMeasure(text string, font Font) float64 {
	var em float64
	for _, r := range text {
		if r == ' ' {
			em += 0.278
		} else {
			em += 0.556
		}
	}
	if font.Style == "B" || font.Style == "BI" {
		em *= 1.05
	}
	return em * font.Size
}
