package pdfocr

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/gardar/pdfocr/pkg/layout"
	"github.com/gardar/pdfocr/pkg/ocr"
)

// Page is one source page ready to be composed.
type Page struct {
	Number        int     // 1-based page number in the source document
	Width, Height float64 // page size in points
	Image         ocr.Image
	Result        ocr.Result
}

// dpi returns the resolution word boxes were measured at.
func (p Page) dpi() float64 {
	if p.Image.DPI > 0 {
		return p.Image.DPI
	}
	if p.Result.DPI > 0 {
		return p.Result.DPI
	}
	return layout.PointsPerInch
}

// Writer accumulates composed pages into a single output PDF.
type Writer struct {
	pdf      *fpdf.Fpdf
	importer *gofpdi.Importer
	source   io.ReadSeeker
	config   OCRConfig
	pages    int
	images   int
}

// NewWriter returns an empty output document.
func NewWriter(config OCRConfig) *Writer {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.SetCreator("pdfocr", true)
	return &Writer{pdf: pdf, config: config}
}

// SetSourcePDF makes the pages of data available as page backgrounds.
// Without a source PDF, backgrounds are drawn from the page images.
func (w *Writer) SetSourcePDF(data []byte) {
	w.source = io.ReadSeeker(bytes.NewReader(data))
	w.importer = gofpdi.NewImporter()
}

// PageCount returns the number of pages written so far.
func (w *Writer) PageCount() int { return w.pages }

// Err returns the first error recorded by the PDF generator.
func (w *Writer) Err() error { return w.pdf.Error() }

// AddBlankPage adds an empty page, used as a placeholder for pages that
// could not be processed.
func (w *Writer) AddBlankPage(width, height float64) {
	w.addPage(width, height)
}

func (w *Writer) addPage(width, height float64) {
	w.pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
	w.pages++
}

// beginPage adds a page of the source size with the original content as
// background.
func (w *Writer) beginPage(p Page) error {
	if w.source == nil {
		if _, err := detectImageType(p.Image.PNG); err != nil {
			return fmt.Errorf("page %d has no usable image: %w", p.Number, err)
		}
	}
	w.addPage(p.Width, p.Height)
	if w.source != nil {
		return w.importPage(p)
	}
	w.images++
	name := fmt.Sprintf("page%d_%d", p.Number, w.images)
	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: "PNG"}
	if t, err := detectImageType(p.Image.PNG); err == nil {
		opts.ImageType = t
	}
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.Image.PNG))
	w.pdf.ImageOptions(name, 0, 0, p.Width, p.Height, false, opts, 0, "")
	return w.pdf.Error()
}

// importPage draws page p.Number of the source PDF. The importer panics on
// malformed input.
func (w *Writer) importPage(p Page) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to import page %d: %v", p.Number, r)
		}
	}()
	tpl := w.importer.ImportPageFromStream(w.pdf, &w.source, p.Number, "/MediaBox")
	w.importer.UseImportedTemplate(w.pdf, tpl, 0, 0, p.Width, 0)
	return w.pdf.Error()
}

// measure returns the width of text in points for layout.
func (w *Writer) measure(text string, f layout.Font) float64 {
	family := f.Family
	if family == "" {
		family = w.config.Font.Name
	}
	w.pdf.SetFont(family, f.Style, f.Size)
	latin1, _ := encodeLatin1(text)
	return w.pdf.GetStringWidth(latin1)
}

// Output writes the finished PDF to out.
func (w *Writer) Output(out io.Writer) error {
	if w.pages == 0 {
		return fmt.Errorf("no pages to write")
	}
	if err := w.pdf.Output(out); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

// WriteFile writes the finished PDF to path.
func (w *Writer) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := w.Output(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Bytes returns the finished PDF.
func (w *Writer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
