// Package pdfocr writes OCR results into PDF documents.
//
// Pages are added to a Writer by a Composer, one of three variants:
//
//   - InvisibleComposer keeps the original page and hides the recognized text
//     in a toggleable layer at the word positions, making the page searchable
//     and selectable
//   - VisibleComposer prints the text over the page on semi-transparent bands
//   - ReflowComposer replaces the page with the text typeset as paragraphs
//
// The page background comes either from a source PDF (imported page by page)
// or from the rendered page image.
//
// ApplyOCR and AssembleWithOCR do the same for OCR produced elsewhere: they
// take hOCR (raw HTML or parsed) and lay it over an existing PDF or a set of
// images. Existing OCR layers are detected to prevent duplication.
package pdfocr

import (
	"fmt"

	"github.com/gardar/pdfocr/pkg/hocr"
)

// parseHOCRInput accepts either raw hOCR data ([]byte) or a parsed struct (*hocr.HOCR).
func parseHOCRInput(hocrInput interface{}) (hocr.HOCR, error) {
	switch h := hocrInput.(type) {
	case []byte:
		parsed, err := hocr.ParseHOCR(h)
		if err != nil {
			return hocr.HOCR{}, fmt.Errorf("failed to parse HOCR data: %w", err)
		}
		return parsed, nil
	case *hocr.HOCR:
		if h == nil {
			return hocr.HOCR{}, fmt.Errorf("HOCR struct is nil")
		}
		return *h, nil
	default:
		return hocr.HOCR{}, fmt.Errorf("unsupported HOCR input type: %T", hocrInput)
	}
}

// AssembleWithOCR is a high-level function for creating a PDF from images
// and applying the HOCR text overlay.
// It accepts either raw HOCR data ([]byte) or a parsed HOCR struct (*hocr.HOCR).
func AssembleWithOCR(
	hocrInput interface{},
	imagesData [][]byte,
	config OCRConfig,
) ([]byte, error) {
	hocrStruct, err := parseHOCRInput(hocrInput)
	if err != nil {
		return nil, err
	}

	// Validate inputs
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(hocrStruct.Pages) == 0 {
		return nil, fmt.Errorf("HOCR data contains no pages")
	}
	if len(imagesData) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}
	if len(imagesData) < len(hocrStruct.Pages) {
		return nil, fmt.Errorf("not enough images (%d) for HOCR pages (%d)",
			len(imagesData), len(hocrStruct.Pages))
	}
	for i, imgData := range imagesData {
		if len(imgData) == 0 {
			return nil, fmt.Errorf("image %d is empty", i+1)
		}
		imageType, err := detectImageType(imgData)
		if err != nil {
			return nil, fmt.Errorf("image %d has invalid format: %w", i+1, err)
		}
		if config.Debug {
			logf(config, "Image %d is of type: %s", i+1, imageType)
		}
	}

	finalPDF, err := createPDFFromImage(hocrStruct, imagesData, config)
	if err != nil {
		return nil, fmt.Errorf("error creating PDF from images: %w", err)
	}
	return finalPDF, nil
}

// ApplyOCR is a high-level function for taking an existing PDF and applying hOCR overlays.
// It performs validation and safety checks.
// It accepts either raw hOCR data ([]byte) or a parsed hOCR struct (*hocr.HOCR).
func ApplyOCR(
	inputPDFData []byte,
	hocrInput interface{},
	config OCRConfig,
) ([]byte, error) {
	hocrStruct, err := parseHOCRInput(hocrInput)
	if err != nil {
		return nil, err
	}

	// Validate inputs
	if len(inputPDFData) == 0 {
		return nil, fmt.Errorf("input PDF data is empty")
	}
	if len(hocrStruct.Pages) == 0 {
		return nil, fmt.Errorf("HOCR data contains no pages")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := CheckSource(inputPDFData, config); err != nil {
		return nil, err
	}

	finalPDF, err := modifyExistingPDF(inputPDFData, hocrStruct, config)
	if err != nil {
		return nil, fmt.Errorf("error modifying existing PDF: %w", err)
	}
	return finalPDF, nil
}

// CheckSource refuses a PDF that already carries an OCR layer named after
// config.LayerName unless config.Force is set. Detected layers and warnings
// are reported to the configured logger.
func CheckSource(pdfData []byte, config OCRConfig) error {
	if config.DumpPDF {
		dumpPDFStructure(pdfData, 2000, getLogger(config))
	}

	layerResult, err := CheckExistingOCRLayers(pdfData, config.LayerName)
	if err != nil {
		return fmt.Errorf("layer detection failed: %w", err)
	}

	if len(layerResult.Layers) > 0 && config.Debug {
		logf(config, "Existing layers detected in PDF:")
		for i, layer := range layerResult.Layers {
			logf(config, "  %d. %q", i+1, layer)
		}
	}
	for _, warning := range layerResult.Warnings {
		warnf(config, "%s", warning)
	}

	if layerResult.HasOCRLayer && !config.Force {
		return fmt.Errorf("%w (layer '%s'), use --force to reapply",
			ErrHasOCR, layerResult.OCRLayerName)
	} else if layerResult.HasOCRLayer {
		warnf(config, "file already has OCR; reapplying due to --force will result in duplicate OCR data")
	}
	return nil
}
