// Package libtess recognizes pages in-process through the libtesseract
// binding. It needs cgo and the tesseract development headers; it is only
// built with the gosseract tag.
package libtess
