package pdfocr

import (
	"fmt"

	"github.com/gardar/pdfocr/pkg/hocr"
)

// modifyExistingPDF imports pages from an existing PDF and overlays OCR text layer.
// hOCR page i describes source page StartPage+i.
func modifyExistingPDF(inputPDFData []byte, hOCRData hocr.HOCR, config OCRConfig) ([]byte, error) {
	composer, err := NewComposer(config)
	if err != nil {
		return nil, err
	}
	w := NewWriter(config)
	w.SetSourcePDF(inputPDFData)

	for i, hp := range hOCRData.Pages {
		page := hocrPage(hp, i+config.StartPage)
		if err := composer.Compose(w, page); err != nil {
			if !isEncodingIssue(err) {
				return nil, fmt.Errorf("page %d: %w", page.Number, err)
			}
			warnf(config, "page %d: %v", page.Number, err)
		}
	}
	return w.Bytes()
}
