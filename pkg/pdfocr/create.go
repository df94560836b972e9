package pdfocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/gardar/pdfocr/pkg/hocr"
	"github.com/gardar/pdfocr/pkg/layout"
	"github.com/gardar/pdfocr/pkg/ocr"
)

// createPDFFromImage builds a new PDF from images with their corresponding OCR data.
// This function assumes inputs have been validated by the caller.
func createPDFFromImage(hOCRData hocr.HOCR, imagesData [][]byte, config OCRConfig) ([]byte, error) {
	composer, err := NewComposer(config)
	if err != nil {
		return nil, err
	}
	w := NewWriter(config)

	for i := config.StartPage - 1; i < len(hOCRData.Pages) && i < len(imagesData); i++ {
		page := hocrPage(hOCRData.Pages[i], i+1)
		img, err := imageFromBytes(imagesData[i], page.dpi())
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		img.PageNumber = page.Number
		page.Image = img

		if err := composer.Compose(w, page); err != nil {
			if !isEncodingIssue(err) {
				return nil, fmt.Errorf("failed to draw OCR layer for page %d: %w", i+1, err)
			}
			warnf(config, "page %d: %v", i+1, err)
		}
	}
	return w.Bytes()
}

// hocrPage turns a parsed hOCR page into a page to compose. The hOCR bbox
// is in pixels at the page's scan resolution, or in points without one.
func hocrPage(p hocr.Page, number int) Page {
	res := ocr.ResultFromHOCR(p, "hocr")
	if res.DPI <= 0 {
		res.DPI = layout.PointsPerInch
	}
	// Files without x_wconf carry no confidence at all; keep every word.
	if len(res.Confident()) == 0 {
		for i := range res.Words {
			res.Words[i].Confidence = 100
		}
	}
	return Page{
		Number: number,
		Width:  layout.ToPoints(p.BBox.X2, res.DPI),
		Height: layout.ToPoints(p.BBox.Y2, res.DPI),
		Result: res,
	}
}

// imageFromBytes validates an encoded page image and wraps it for the
// writer, re-encoding formats fpdf cannot embed.
func imageFromBytes(data []byte, dpi float64) (ocr.Image, error) {
	if len(data) == 0 {
		return ocr.Image{}, fmt.Errorf("image is empty")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ocr.Image{}, fmt.Errorf("invalid format: %w", err)
	}
	switch format {
	case "png", "jpeg", "gif":
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return ocr.Image{}, fmt.Errorf("failed to decode %s: %w", format, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return ocr.Image{}, err
		}
		data = buf.Bytes()
	}
	return ocr.Image{PNG: data, Width: cfg.Width, Height: cfg.Height, DPI: dpi}, nil
}

// detectImageType tries to figure out whether the data is PNG, JPEG, etc.
func detectImageType(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image config: %w", err)
	}
	return strings.ToUpper(format), nil
}
