package pdfocr

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// DefaultNativeTextChars is how many non-space characters a page needs to
// count as already carrying text.
const DefaultNativeTextChars = 50

// NativeText returns the extractable text of every page of the PDF at path
// with more than minChars non-space characters, keyed by 1-based page.
// Pages whose content cannot be decoded are left out. The PDF reader panics
// on some malformed files; that is returned as an error.
func NativeText(path string, minChars int) (pages map[int]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("failed to read text of %s: %v", path, r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages = make(map[int]string)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if countVisible(text) > minChars {
			pages[i] = text
		}
	}
	return pages, nil
}

// NativeTextPages returns the sorted pages NativeText reports.
func NativeTextPages(path string, minChars int) ([]int, error) {
	text, err := NativeText(path, minChars)
	if err != nil {
		return nil, err
	}
	pages := make([]int, 0, len(text))
	for n := range text {
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages, nil
}

func countVisible(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
