package source

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"github.com/gardar/pdfocr/pkg/ocr"
)

// FitzDocument is a PDF opened with MuPDF.
type FitzDocument struct {
	path string
	doc  *fitz.Document
}

// OpenPDF opens the PDF at path.
func OpenPDF(path string) (*FitzDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	return &FitzDocument{path: path, doc: doc}, nil
}

// PDFPath implements PDF.
func (d *FitzDocument) PDFPath() string { return d.path }

// NumPages implements Document.
func (d *FitzDocument) NumPages() int { return d.doc.NumPage() }

// PageSize implements Document.
func (d *FitzDocument) PageSize(page int) (float64, float64, error) {
	if err := checkPage(page, d.NumPages()); err != nil {
		return 0, 0, err
	}
	bounds, err := d.doc.Bound(page - 1)
	if err != nil {
		return 0, 0, fmt.Errorf("error reading page %d bounds: %w", page, err)
	}
	return float64(bounds.Dx()), float64(bounds.Dy()), nil
}

// Render implements Document.
func (d *FitzDocument) Render(page int, dpi float64) (ocr.Image, error) {
	if err := checkPage(page, d.NumPages()); err != nil {
		return ocr.Image{}, err
	}
	data, err := d.doc.ImagePNG(page-1, dpi)
	if err != nil {
		return ocr.Image{}, fmt.Errorf("error rendering page %d: %w", page, err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ocr.Image{}, fmt.Errorf("error reading rendered page %d: %w", page, err)
	}
	return ocr.Image{PNG: data, Width: cfg.Width, Height: cfg.Height, DPI: dpi, PageNumber: page}, nil
}

// Close implements Document.
func (d *FitzDocument) Close() error { return d.doc.Close() }
