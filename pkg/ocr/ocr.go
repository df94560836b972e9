// Package ocr defines the contract between the converter and OCR engines:
// a page image goes in, plain text and word boxes with confidences come out.
//
// Word boxes are in image pixels with the origin at the top-left, as every
// engine reports them. Conversion into PDF space happens in package layout.
package ocr
