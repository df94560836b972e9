package pdfocr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrHasOCR is returned when the source already carries an OCR layer.
var ErrHasOCR = errors.New("file already has OCR")

// ocgPatterns find optional content group names in raw PDF bytes, covering
// the dictionary layouts written by common producers.
var ocgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/Type\s*/OCG\s*/Name\s*\(([^)]+)\)`),
	regexp.MustCompile(`/Title\s*\(([^)]+)\)`),
	regexp.MustCompile(`/OCG\s*<<[^>]*?/Name\s*\(([^)]+)\)`),
	regexp.MustCompile(`<</Type/OCG/Name\(([^)]+)\)`),
	regexp.MustCompile(`/OCProperties.*?/OCGs\s*\[\s*.*?/Name\s*\(([^)]+)\)`),
	regexp.MustCompile(`/Name\s*\(([^)]+)\)[\s\S]{1,50}/Type\s*/OCG`),
}

// detectPDFLayers attempts to find layer names in the raw PDF data.
func detectPDFLayers(pdfData []byte) ([]string, error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("empty PDF data")
	}

	content := string(pdfData)
	var layers []string
	for _, regex := range ocgPatterns {
		for _, match := range regex.FindAllStringSubmatch(content, -1) {
			if len(match) < 2 {
				continue
			}
			layer := unescapePDFString(match[1])
			// fpdf and most writers store names as UTF-16BE with a BOM
			if decoded, err := decodeUTF16BE([]byte(layer)); err == nil {
				layer = decoded
			}
			layers = append(layers, layer)
		}
	}

	unique := make([]string, 0, len(layers))
	seen := make(map[string]bool)
	for _, l := range layers {
		if !seen[l] {
			seen[l] = true
			unique = append(unique, l)
		}
	}
	return unique, nil
}

// LayerCheckResult contains the results of checking for OCR layers
type LayerCheckResult struct {
	Layers       []string // All detected layers
	HasOCRLayer  bool     // True if the specified OCR layer exists
	OCRLayerName string   // Name of the detected OCR layer (if any)
	Warnings     []string // Any warnings about potential OCR layers
}

// CheckExistingOCRLayers checks for existing OCR layers in a PDF
func CheckExistingOCRLayers(pdfData []byte, ocrLayerName string) (LayerCheckResult, error) {
	result := LayerCheckResult{}

	layers, err := detectPDFLayers(pdfData)
	if err != nil {
		return result, fmt.Errorf("cannot analyze layers: %w", err)
	}
	result.Layers = layers

	// Lenient: escaped parentheses inside the name may survive extraction.
	pageLayerPattern := regexp.MustCompile(fmt.Sprintf(`^%s\s*\(Page\s*\d+.*`, regexp.QuoteMeta(ocrLayerName)))

	for _, layer := range layers {
		if layer == ocrLayerName || pageLayerPattern.MatchString(layer) {
			result.HasOCRLayer = true
			result.OCRLayerName = layer
			break
		}

		if strings.Contains(strings.ToLower(layer), "ocr") &&
			!strings.HasPrefix(layer, ocrLayerName) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Existing layer detected that might contain OCR: %s", layer))
		}
	}

	return result, nil
}

// OCRDetectionResult contains comprehensive OCR detection information
type OCRDetectionResult struct {
	HasOCR       bool // True if any OCR is detected by any method
	HasLayerOCR  bool // True if OCR layers are detected
	HasTextLayer bool // True if the pages already carry extractable text

	LayerInfo LayerCheckResult // Details from layer detection
	TextPages []int            // Pages with native text, when checked

	Warnings []string // Warnings from any detection method
}

// DetectOCR performs OCR detection using available methods. pdfPath is
// optional; when set, pages are also checked for native text.
func DetectOCR(pdfData []byte, pdfPath string, config OCRConfig) (OCRDetectionResult, error) {
	result := OCRDetectionResult{}

	layerResult, err := CheckExistingOCRLayers(pdfData, config.LayerName)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Layer detection error: %v", err))
	} else {
		result.LayerInfo = layerResult
		result.HasLayerOCR = layerResult.HasOCRLayer
		result.Warnings = append(result.Warnings, layerResult.Warnings...)
		if !result.HasLayerOCR && len(layerResult.Warnings) > 0 {
			result.Warnings = append(result.Warnings, "Potential OCR layers were detected")
		}
	}

	if pdfPath != "" {
		pages, err := NativeTextPages(pdfPath, DefaultNativeTextChars)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Text detection error: %v", err))
		} else {
			result.TextPages = pages
			result.HasTextLayer = len(pages) > 0
		}
	}

	result.HasOCR = result.HasLayerOCR || result.HasTextLayer
	return result, nil
}
