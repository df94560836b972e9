package ocr

import (
	"context"
	"errors"
	"strings"
)

// ErrEngineUnavailable is returned by Probe when the engine cannot run on
// this machine (binary missing, library not linked, credentials absent).
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Image is a rasterized page handed to an engine.
type Image struct {
	// PNG holds the encoded page bitmap.
	PNG []byte
	// Width and Height are the bitmap size in pixels.
	Width, Height int
	// DPI is the resolution the page was rasterized at.
	DPI float64
	// PageNumber is the 1-based page the image was rendered from.
	PageNumber int
}

// Word is a recognized token with its box in image pixels, origin top-left.
type Word struct {
	Text       string
	Left       float64
	Top        float64
	Width      float64
	Height     float64
	Confidence float64 // 0-100; <= 0 means the engine considers it noise
	Line       int     // index of the text line the word belongs to
}

// Right edge of the word box in pixels.
func (w Word) Right() float64 { return w.Left + w.Width }

// Bottom edge of the word box in pixels.
func (w Word) Bottom() float64 { return w.Top + w.Height }

// Result is the OCR output for a single page image.
type Result struct {
	// Text is the plain text with one line per recognized line and blank
	// lines between blocks.
	Text string
	// Words are the recognized words in reading order.
	Words []Word
	// Width, Height and DPI echo the image that was recognized.
	Width, Height int
	DPI           float64
	// Engine names the engine that produced the result.
	Engine string
}

// Confident returns the words with a positive confidence and non-empty text.
func (r Result) Confident() []Word {
	out := make([]Word, 0, len(r.Words))
	for _, w := range r.Words {
		if w.Confidence > 0 && w.Text != "" {
			out = append(out, w)
		}
	}
	return out
}

// Empty reports whether the page yielded no usable text.
func (r Result) Empty() bool {
	return len(r.Confident()) == 0 && strings.TrimSpace(r.Text) == ""
}

// Engine recognizes text on page images.
type Engine interface {
	// Name identifies the engine in logs and hOCR metadata.
	Name() string
	// Recognize runs OCR on one page image.
	Recognize(ctx context.Context, img Image) (Result, error)
}

// Prober is implemented by engines that can verify their dependencies
// before a run starts. Probe returns a human readable version string.
type Prober interface {
	Probe(ctx context.Context) (string, error)
}

// Options are the recognition settings shared by all engines.
type Options struct {
	// Languages are tesseract language codes, e.g. "eng" or "deu".
	Languages []string
	// PageSegMode is tesseract's --psm value; zero leaves the engine default.
	PageSegMode int
	// Threads caps the engine's internal parallelism; zero means unlimited.
	Threads int
}

// DefaultOptions mirrors the settings the converter has always used:
// English and page segmentation mode 6 (a single uniform block of text).
func DefaultOptions() Options {
	return Options{Languages: []string{"eng"}, PageSegMode: 6}
}
