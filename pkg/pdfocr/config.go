package pdfocr

import (
	"fmt"
	"io"
	"strings"

	"github.com/gardar/pdfocr/pkg/layout"
)

// Mode selects how recognized text is put on the output page.
type Mode string

const (
	// ModeInvisible draws the original page and hides the text over it in a
	// toggleable layer, producing a searchable PDF.
	ModeInvisible Mode = "invisible"
	// ModeVisible draws the text over the page on semi-transparent white
	// bands, producing a page whose text can be read and edited.
	ModeVisible Mode = "visible"
	// ModeReflow replaces the page with freshly typeset paragraphs.
	ModeReflow Mode = "reflow"
)

// Modes lists the valid modes.
var Modes = []Mode{ModeInvisible, ModeVisible, ModeReflow}

// ParseMode parses a mode name as given on the command line.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// OCRConfig holds user options for putting OCR text into a PDF
type OCRConfig struct {
	Mode         Mode                   // Composition variant
	Debug        bool                   // Draw text in red with word boxes
	Force        bool                   // Force reapply OCR even if layer already exists
	LayerName    string                 // Base name of OCR layer (page number will be appended)
	StartPage    int                    // First source page the hOCR input refers to
	DumpPDF      bool                   // Dump PDF structure for debugging
	LogWarnings  bool                   // Whether to print warnings
	Logger       io.Writer              // Custom logger for warnings (nil = stdout)
	Transparency int                    // Alpha of the bands behind visible text, 0-255
	Font         FontConfig             // Face of the text layer
	Placement    layout.PlacementConfig // Word box to text run heuristics
	Reflow       layout.ReflowConfig    // Paragraph detection
	Flow         layout.FlowConfig      // Reflowed page geometry
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() OCRConfig {
	return OCRConfig{
		Mode:         ModeInvisible,
		LayerName:    "OCR Text", // Will be formatted as "OCR Text (Page X)" in the final PDF
		StartPage:    1,
		LogWarnings:  true,
		Transparency: 128,
		Font:         DefaultFont,
		Placement:    layout.DefaultPlacement(),
		Reflow:       layout.DefaultReflow(),
		Flow:         layout.DefaultFlow(),
	}
}

// Validate checks the options that would otherwise fail in the middle of
// a document.
func (c OCRConfig) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil && c.Mode != "" {
		return err
	}
	if c.StartPage < 1 {
		return fmt.Errorf("start page must be at least 1, got %d", c.StartPage)
	}
	if c.Transparency < 0 || c.Transparency > 255 {
		return fmt.Errorf("transparency must be between 0 and 255, got %d", c.Transparency)
	}
	if strings.TrimSpace(c.LayerName) == "" {
		return fmt.Errorf("layer name must not be empty")
	}
	return c.Placement.Validate()
}

// FontConfig contains font settings for OCR text rendering
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Vertical positioning ratio
}

// DefaultFont sets the default font to Helvetica which is tried and tested for the OCR layer
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        10,
	AscentRatio: 0.718,
}
