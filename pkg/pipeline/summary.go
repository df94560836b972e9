package pipeline

import (
	"fmt"
	"io"
)

// Status is the outcome of one page.
type Status string

const (
	StatusSuccess Status = "success" // text recognized and written
	StatusEmpty   Status = "empty"   // no text found, page written without text
	StatusWarning Status = "warning" // written, but some characters were replaced
	StatusFailed  Status = "failed"  // a blank placeholder was written
	StatusSkipped Status = "skipped" // already had text, passed through
)

// Symbol is the progress mark printed for the status.
func (s Status) Symbol() string {
	switch s {
	case StatusSuccess:
		return "✓"
	case StatusEmpty:
		return "○"
	case StatusWarning:
		return "⚠"
	case StatusFailed:
		return "✗"
	default:
		return "-"
	}
}

// PageResult is what happened to one page.
type PageResult struct {
	Page   int
	Status Status
	Words  int
	Err    error // reason for failed and warning pages
}

// Summary describes one converted document.
type Summary struct {
	Input, Output string
	Total         int
	Pages         []PageResult
	InputSize     int64
	OutputSize    int64
}

// Count returns the number of pages with status s.
func (s Summary) Count(st Status) int {
	n := 0
	for _, p := range s.Pages {
		if p.Status == st {
			n++
		}
	}
	return n
}

// Processed counts the pages that made it into the output with content.
func (s Summary) Processed() int {
	return len(s.Pages) - s.Count(StatusFailed)
}

// Failed returns the results of failed pages.
func (s Summary) Failed() []PageResult {
	var out []PageResult
	for _, p := range s.Pages {
		if p.Status == StatusFailed {
			out = append(out, p)
		}
	}
	return out
}

// Write prints the end-of-run report.
func (s Summary) Write(w io.Writer) {
	fmt.Fprintf(w, "Processed %d/%d pages (%s %d  %s %d  %s %d  %s %d  %s %d)\n",
		s.Processed(), s.Total,
		StatusSuccess.Symbol(), s.Count(StatusSuccess),
		StatusEmpty.Symbol(), s.Count(StatusEmpty),
		StatusWarning.Symbol(), s.Count(StatusWarning),
		StatusFailed.Symbol(), s.Count(StatusFailed),
		StatusSkipped.Symbol(), s.Count(StatusSkipped),
	)
	for _, p := range s.Failed() {
		fmt.Fprintf(w, "  page %d: %v\n", p.Page, p.Err)
	}
	if s.Output != "" {
		fmt.Fprintf(w, "Output: %s\n", s.Output)
	}
	if s.InputSize > 0 {
		fmt.Fprintf(w, "Input size: %s\n", FormatMB(s.InputSize))
	}
	if s.OutputSize > 0 {
		fmt.Fprintf(w, "Output size: %s\n", FormatMB(s.OutputSize))
	}
}

// FormatMB formats a byte count in megabytes with one decimal.
func FormatMB(n int64) string {
	return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
}
