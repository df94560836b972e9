package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/gardar/pdfocr/pkg/pdfocr"
)

// Sink receives pages in order and writes the run's output file.
type Sink interface {
	// Page adds a recognized page. pdfocr.ErrEncoding means the page was
	// written with replaced characters.
	Page(p pdfocr.Page) error
	// Passthrough adds a page that was not recognized because it already
	// carries text; p.Result.Text holds that text.
	Passthrough(p pdfocr.Page) error
	// Blank adds a placeholder for a page that failed.
	Blank(number int, width, height float64) error
	// Close writes the output.
	Close() error
}

// PDFSink composes pages into a PDF written on Close.
type PDFSink struct {
	path     string
	writer   *pdfocr.Writer
	composer pdfocr.Composer
}

// NewPDFSink returns a sink writing to path. sourcePDF, when not nil, is
// the input document whose pages become the page backgrounds.
func NewPDFSink(path string, config pdfocr.OCRConfig, sourcePDF []byte) (*PDFSink, error) {
	composer, err := pdfocr.NewComposer(config)
	if err != nil {
		return nil, err
	}
	w := pdfocr.NewWriter(config)
	if sourcePDF != nil {
		w.SetSourcePDF(sourcePDF)
	}
	return &PDFSink{path: path, writer: w, composer: composer}, nil
}

// Page implements Sink. A page that could not be started is replaced by
// a blank page so page numbering is preserved.
func (s *PDFSink) Page(p pdfocr.Page) error {
	before := s.writer.PageCount()
	err := s.composer.Compose(s.writer, p)
	if err != nil && !errors.Is(err, pdfocr.ErrEncoding) && s.writer.PageCount() == before {
		s.writer.AddBlankPage(p.Width, p.Height)
	}
	return err
}

// Passthrough implements Sink. The page keeps its background only.
func (s *PDFSink) Passthrough(p pdfocr.Page) error {
	p.Result.Words = nil
	before := s.writer.PageCount()
	err := (pdfocr.InvisibleComposer{}).Compose(s.writer, p)
	if err != nil && s.writer.PageCount() == before {
		s.writer.AddBlankPage(p.Width, p.Height)
	}
	return err
}

// Blank implements Sink.
func (s *PDFSink) Blank(_ int, width, height float64) error {
	s.writer.AddBlankPage(width, height)
	return s.writer.Err()
}

// PageCount returns the pages written so far.
func (s *PDFSink) PageCount() int { return s.writer.PageCount() }

// Close implements Sink.
func (s *PDFSink) Close() error {
	return s.writer.WriteFile(s.path)
}

// Optimize rewrites the closed output with pdfcpu, dropping duplicate and
// unused objects.
func (s *PDFSink) Optimize() error {
	if err := api.OptimizeFile(s.path, "", pdfcpuConfig()); err != nil {
		return fmt.Errorf("failed to optimize %s: %w", s.path, err)
	}
	return nil
}

// TextSink writes recognized text as UTF-8, each page introduced by a
// "=== PAGE N ===" line. Pages without text keep their marker.
type TextSink struct {
	path string
	b    strings.Builder
}

// NewTextSink returns a sink writing to path.
func NewTextSink(path string) *TextSink {
	return &TextSink{path: path}
}

func (s *TextSink) write(number int, text string) {
	if s.b.Len() > 0 {
		s.b.WriteString("\n")
	}
	fmt.Fprintf(&s.b, "=== PAGE %d ===\n", number)
	if text != "" {
		s.b.WriteString(text)
		s.b.WriteString("\n")
	}
}

// Page implements Sink.
func (s *TextSink) Page(p pdfocr.Page) error {
	s.write(p.Number, strings.TrimSpace(p.Result.Text))
	return nil
}

// Passthrough implements Sink.
func (s *TextSink) Passthrough(p pdfocr.Page) error { return s.Page(p) }

// Blank implements Sink.
func (s *TextSink) Blank(number int, _, _ float64) error {
	s.write(number, "")
	return nil
}

// Close implements Sink.
func (s *TextSink) Close() error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(s.b.String()); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
