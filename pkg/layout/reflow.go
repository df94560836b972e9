package layout

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Paragraph is a block of reflowed text.
type Paragraph struct {
	Text    string
	Heading bool
}

// ReflowConfig holds the paragraph detection heuristics.
type ReflowConfig struct {
	ShortLine   int    `yaml:"short_line"`  // lines shorter than this end a paragraph
	HeadingMax  int    `yaml:"heading_max"` // upper-case paragraphs shorter than this are headings
	Terminators string `yaml:"terminators"` // line endings that end a paragraph
}

// DefaultReflow returns the paragraph heuristics used by the converter.
func DefaultReflow() ReflowConfig {
	return ReflowConfig{ShortLine: 40, HeadingMax: 60, Terminators: ".!?:;"}
}

// Paragraphs groups OCR lines into paragraphs using the default heuristics.
func Paragraphs(lines []string) []Paragraph {
	return DefaultReflow().Paragraphs(lines)
}

// Paragraphs groups OCR lines into paragraphs. A blank line ends the current
// paragraph. A line that is short or ends with a terminator is added and
// ends the paragraph; any other line is accumulated.
func (c ReflowConfig) Paragraphs(lines []string) []Paragraph {
	var out []Paragraph
	var buf []string
	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.Join(buf, " ")
		out = append(out, Paragraph{Text: text, Heading: c.IsHeading(text)})
		buf = buf[:0]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		buf = append(buf, line)
		if utf8.RuneCountInString(line) < c.ShortLine || c.terminated(line) {
			flush()
		}
	}
	flush()
	return out
}

// SplitLines splits OCR text into lines for Paragraphs.
func SplitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

func (c ReflowConfig) terminated(line string) bool {
	last, _ := utf8.DecodeLastRuneInString(line)
	return strings.ContainsRune(c.Terminators, last)
}

// IsHeading reports whether text is short and entirely upper-case: it has at
// least one cased letter and no lower-case ones.
func (c ReflowConfig) IsHeading(text string) bool {
	if utf8.RuneCountInString(text) >= c.HeadingMax {
		return false
	}
	cased := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// Wrap breaks text into lines whose rendered width stays under width. A
// single word wider than width is placed on a line of its own.
func Wrap(text string, width float64, font Font, measure Measurer) []string {
	if measure == nil {
		measure = ApproxMeasure
	}
	var lines []string
	var cur []string
	for _, word := range strings.Fields(text) {
		candidate := strings.Join(append(cur, word), " ")
		if measure(candidate, font) < width {
			cur = append(cur, word)
			continue
		}
		if len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
		}
		cur = []string{word}
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}

// FlowConfig describes the reflowed text page.
type FlowConfig struct {
	PageWidth         float64 `yaml:"page_width"`
	PageHeight        float64 `yaml:"page_height"`
	Margin            float64 `yaml:"margin"`
	HeaderGap         float64 `yaml:"header_gap"` // distance from the header to the first line
	HeaderFont        Font    `yaml:"-"`
	HeadingFont       Font    `yaml:"-"`
	BodyFont          Font    `yaml:"-"`
	HeadingLineHeight float64 `yaml:"heading_line_height"`
	BodyLineHeight    float64 `yaml:"body_line_height"`
}

// DefaultFlow lays text out on US Letter with one inch margins.
func DefaultFlow() FlowConfig {
	return FlowConfig{
		PageWidth:         612,
		PageHeight:        792,
		Margin:            72,
		HeaderGap:         30,
		HeaderFont:        Font{Family: "Helvetica", Style: "B", Size: 14},
		HeadingFont:       Font{Family: "Helvetica", Style: "B", Size: 12},
		BodyFont:          Font{Family: "Helvetica", Size: 11},
		HeadingLineHeight: 20,
		BodyLineHeight:    14,
	}
}

// FlowLine is one line of text placed on a flowed page.
type FlowLine struct {
	Text string
	X, Y float64 // baseline origin in points, origin bottom-left
	Font Font
}

// FlowPage is one output page of reflowed text.
type FlowPage struct {
	Header FlowLine
	Lines  []FlowLine
}

// Flow lays out the paragraphs recognized on source page pageNumber. Each
// output page starts with a "Page N" header; when the text runs past the
// bottom margin a new page headed "Page N (continued)" is started.
func (c FlowConfig) Flow(paragraphs []Paragraph, pageNumber int, measure Measurer) []FlowPage {
	top := c.PageHeight - c.Margin
	bottom := c.Margin
	usable := c.PageWidth - 2*c.Margin

	newPage := func(continued bool) FlowPage {
		title := fmt.Sprintf("Page %d", pageNumber)
		if continued {
			title += " (continued)"
		}
		return FlowPage{Header: FlowLine{Text: title, X: c.Margin, Y: top, Font: c.HeaderFont}}
	}

	pages := []FlowPage{newPage(false)}
	y := top - c.HeaderGap
	for _, par := range paragraphs {
		if strings.TrimSpace(par.Text) == "" {
			continue
		}
		font, lineHeight := c.BodyFont, c.BodyLineHeight
		if par.Heading {
			font, lineHeight = c.HeadingFont, c.HeadingLineHeight
		}
		for _, line := range Wrap(par.Text, usable, font, measure) {
			if y <= bottom {
				pages = append(pages, newPage(true))
				y = top - c.HeaderGap
			}
			current := &pages[len(pages)-1]
			current.Lines = append(current.Lines, FlowLine{Text: line, X: c.Margin, Y: y, Font: font})
			y -= lineHeight
		}
		y -= lineHeight * 0.5
	}
	return pages
}
