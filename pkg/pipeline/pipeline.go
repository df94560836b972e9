// Package pipeline drives the page loop: open the input, rasterize each page,
// recognize it and hand the result to a Sink, collecting a typed result per
// page. Large PDFs can be split into chunks and folders converted in batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gardar/pdfocr/pkg/hocr"
	"github.com/gardar/pdfocr/pkg/ocr"
	"github.com/gardar/pdfocr/pkg/pdfocr"
	"github.com/gardar/pdfocr/pkg/source"
)

var (
	// ErrInputNotFound is returned when the input path does not exist.
	ErrInputNotFound = errors.New("input not found")
	// ErrOutput is returned when the output could not be written.
	ErrOutput = errors.New("failed to write output")
)

// Placeholder size for pages whose size could not be read.
const (
	letterWidth  = 612
	letterHeight = 792
)

// Pipeline converts documents with one engine and one configuration.
type Pipeline struct {
	Config Config
	Engine ocr.Engine

	// Open opens an input document; source.Open by default.
	Open func(path string, dpi float64) (source.Document, error)
	// TextPages returns the text of PDF pages that already carry enough
	// of it; pdfocr.NativeText by default.
	TextPages func(path string) (map[int]string, error)
}

// New validates cfg and returns a pipeline using engine.
func New(cfg Config, engine ocr.Engine) (*Pipeline, error) {
	if engine == nil {
		return nil, fmt.Errorf("no OCR engine")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{Config: cfg, Engine: engine, Open: source.Open, TextPages: nativeText}, nil
}

// Convert turns the document at input into a PDF at output.
func (p *Pipeline) Convert(ctx context.Context, input, output string) (Summary, error) {
	return p.run(ctx, input, output, func(doc source.Document) (Sink, error) {
		var src []byte
		if pdf, ok := doc.(source.PDF); ok {
			data, err := os.ReadFile(pdf.PDFPath())
			if err != nil {
				return nil, err
			}
			if err := pdfocr.CheckSource(data, p.Config.PDFConfig()); err != nil {
				return nil, err
			}
			if p.Config.ImportSource {
				src = data
			}
		}
		return NewPDFSink(output, p.Config.PDFConfig(), src)
	})
}

// ExtractText writes the recognized text of the document at input to output.
func (p *Pipeline) ExtractText(ctx context.Context, input, output string) (Summary, error) {
	return p.run(ctx, input, output, func(source.Document) (Sink, error) {
		return NewTextSink(output), nil
	})
}

func (p *Pipeline) run(ctx context.Context, input, output string, newSink func(source.Document) (Sink, error)) (Summary, error) {
	summary := Summary{Input: input, Output: output}
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return summary, fmt.Errorf("%w: %s", ErrInputNotFound, input)
		}
		return summary, err
	}
	if !info.IsDir() {
		summary.InputSize = info.Size()
	}

	doc, err := p.Open(input, p.Config.EffectiveDPI())
	if err != nil {
		return summary, fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer doc.Close()
	summary.Total = doc.NumPages()

	sink, err := newSink(doc)
	if err != nil {
		return summary, err
	}

	log := p.Config.logger().WithFields(logrus.Fields{"file": input, "pages": summary.Total})
	log.Info("processing document")

	results, hocrPages, runErr := p.Process(ctx, doc, sink)
	summary.Pages = results
	if runErr != nil {
		return summary, runErr
	}

	if err := sink.Close(); err != nil {
		return summary, fmt.Errorf("%w %s after %d of %d pages: %v",
			ErrOutput, output, summary.Processed(), summary.Total, err)
	}
	if pdf, ok := sink.(*PDFSink); ok && p.Config.Optimize {
		if err := pdf.Optimize(); err != nil {
			log.WithError(err).Warn("output kept unoptimized")
		}
	}
	if p.Config.WriteHOCR {
		if err := p.writeHOCR(output, hocrPages); err != nil {
			return summary, fmt.Errorf("%w: %v", ErrOutput, err)
		}
	}
	if info, err := os.Stat(output); err == nil {
		summary.OutputSize = info.Size()
	}
	log.WithField("processed", summary.Processed()).Info("document done")
	return summary, nil
}

// Process runs every page of doc through the engine into sink, one page at
// a time. Page failures are recorded and the loop continues; only
// cancellation stops it early. The hOCR pages of recognized pages are
// returned for export.
func (p *Pipeline) Process(ctx context.Context, doc source.Document, sink Sink) ([]PageResult, []hocr.Page, error) {
	total := doc.NumPages()
	skip := p.textPages(doc)
	out := p.Config.progress()

	results := make([]PageResult, 0, total)
	var hocrPages []hocr.Page
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return results, hocrPages, err
		}
		fmt.Fprintf(out, "Page %d/%d... ", n, total)
		res, hp, err := p.processPage(ctx, doc, n, skip, sink)
		if err != nil {
			fmt.Fprintln(out)
			return results, hocrPages, err
		}
		if hp != nil {
			hocrPages = append(hocrPages, *hp)
		}
		fmt.Fprintln(out, res.Status.Symbol())
		results = append(results, res)

		entry := p.Config.logger().WithFields(logrus.Fields{"page": n, "status": res.Status, "words": res.Words})
		if res.Err != nil {
			entry.WithError(res.Err).Warn("page not fully processed")
		} else {
			entry.Debug("page done")
		}
	}
	return results, hocrPages, nil
}

// processPage returns the result of page n. A non-nil error means the run
// was cancelled.
func (p *Pipeline) processPage(ctx context.Context, doc source.Document, n int, skip map[int]string, sink Sink) (PageResult, *hocr.Page, error) {
	res := PageResult{Page: n}
	fail := func(err error, width, height float64) (PageResult, *hocr.Page, error) {
		res.Status = StatusFailed
		res.Err = err
		if berr := sink.Blank(n, width, height); berr != nil {
			res.Err = fmt.Errorf("%v; placeholder: %w", err, berr)
		}
		return res, nil, nil
	}

	width, height, err := doc.PageSize(n)
	if err != nil {
		return fail(err, letterWidth, letterHeight)
	}
	page := pdfocr.Page{Number: n, Width: width, Height: height}

	img, err := doc.Render(n, p.Config.EffectiveDPI())
	if text, ok := skip[n]; ok {
		if err == nil {
			page.Image = img
		}
		page.Result.Text = text
		res.Status = StatusSkipped
		if err := sink.Passthrough(page); err != nil {
			res.Status = StatusFailed
			res.Err = err
		}
		return res, nil, nil
	}
	if err != nil {
		return fail(fmt.Errorf("rasterize: %w", err), width, height)
	}
	page.Image = img

	result, err := p.Engine.Recognize(ctx, img)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, nil, ctxErr
		}
		return fail(fmt.Errorf("ocr: %w", err), width, height)
	}
	if result.DPI <= 0 {
		result.DPI = img.DPI
	}
	page.Result = result
	res.Words = len(result.Confident())

	switch err := sink.Page(page); {
	case errors.Is(err, pdfocr.ErrEncoding):
		res.Status = StatusWarning
		res.Err = err
	case err != nil:
		res.Status = StatusFailed
		res.Err = err
		return res, nil, nil
	case result.Empty(), res.Words == 0 && p.hiddenLayerOnly(sink):
		res.Status = StatusEmpty
	default:
		res.Status = StatusSuccess
	}

	hp := ocr.HOCRPage(result, n, fmt.Sprintf("page_%04d.png", n))
	return res, &hp, nil
}

// hiddenLayerOnly reports whether sink writes nothing but positioned words,
// so a page without confident words gains no searchable text.
func (p *Pipeline) hiddenLayerOnly(sink Sink) bool {
	if _, ok := sink.(*PDFSink); !ok {
		return false
	}
	mode := p.Config.PDFConfig().Mode
	return mode == pdfocr.ModeInvisible || mode == ""
}

// textPages returns the pages to pass through when SkipText is set.
func (p *Pipeline) textPages(doc source.Document) map[int]string {
	pdf, ok := doc.(source.PDF)
	if !p.Config.SkipText || !ok || p.TextPages == nil {
		return nil
	}
	pages, err := p.TextPages(pdf.PDFPath())
	if err != nil {
		p.Config.logger().WithError(err).Warn("cannot read native text, recognizing every page")
		return nil
	}
	return pages
}

// nativeText extracts the text of pages that already have enough of it.
func nativeText(path string) (map[int]string, error) {
	return pdfocr.NativeText(path, pdfocr.DefaultNativeTextChars)
}

// writeHOCR writes the recognized pages next to output.
func (p *Pipeline) writeHOCR(output string, pages []hocr.Page) error {
	doc := ocr.HOCRDocument(p.Engine.Name(), strings.Join(p.Config.Languages, "+"), pages...)
	html, err := hocr.GenerateHOCRDocument(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(HOCRPath(output), []byte(html), 0o644)
}

// HOCRPath is where the hOCR export of output is written.
func HOCRPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".hocr"
}
