// Package hocr implements parsing, manipulation, and generation of hOCR data,
// which is an HTML-based standard format for representing OCR results.
//
// The tesseract engine in this module asks tesseract for hOCR output and
// reads word boxes and paragraph structure from it; the pipeline can also
// write all recognized pages back out as a single hOCR sidecar document.
//
// The package implements the hierarchical structure defined in the hOCR format:
// Document → Pages → Areas → Paragraphs → Lines → Words, with metadata at each level.
//
// Main Functions:
//
// - ParseHOCR: Parses hOCR data from HTML into the object model
// - GenerateHOCRDocument: Generates valid hOCR HTML from the object model
// - Page.Text, Page.WordsByLine: flatten a page for text output and layout
package hocr
