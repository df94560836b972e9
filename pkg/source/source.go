// Package source opens the documents the converter reads: PDF files, which
// are rasterized with MuPDF, and folders of scanned page images.
//
// Pages are numbered from 1 and page sizes are in PDF points.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gardar/pdfocr/pkg/ocr"
)

// ErrUnsupported is returned by Open for files that are neither PDFs nor
// supported images.
var ErrUnsupported = errors.New("unsupported input")

// Document is a source of page images.
type Document interface {
	// NumPages returns the number of pages.
	NumPages() int
	// PageSize returns the size of page in points.
	PageSize(page int) (width, height float64, err error)
	// Render rasterizes page at dpi.
	Render(page int, dpi float64) (ocr.Image, error)
	Close() error
}

// PDF is implemented by documents backed by a PDF file, whose pages can be
// imported as they are instead of as images.
type PDF interface {
	PDFPath() string
}

// Open opens path as a PDF, an image folder or a single image. dpi is the
// resolution assumed for image pages.
func Open(path string, dpi float64) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		dir, err := OpenImageDir(path, dpi)
		if err != nil {
			return nil, err
		}
		return dir, nil
	}
	switch {
	case strings.EqualFold(filepath.Ext(path), ".pdf"):
		doc, err := OpenPDF(path)
		if err != nil {
			return nil, err
		}
		return doc, nil
	case IsImage(path):
		if dpi <= 0 {
			return nil, fmt.Errorf("dpi must be positive, got %v", dpi)
		}
		return &ImageDir{Dir: filepath.Dir(path), Files: []string{filepath.Base(path)}, DPI: dpi}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

func checkPage(page, count int) error {
	if page < 1 || page > count {
		return fmt.Errorf("page %d out of range 1-%d", page, count)
	}
	return nil
}
