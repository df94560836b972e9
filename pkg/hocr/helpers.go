package hocr

import (
	"strings"
)

// ExtractHOCRText extracts all text from an HOCR document. Pages are
// separated by a form feed, see Page.Text for the layout within a page.
func ExtractHOCRText(doc *HOCR) string {
	pages := make([]string, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		pages = append(pages, page.Text())
	}
	return strings.Join(pages, "\f")
}

// Text renders the page as plain text: one line per hOCR line and an empty
// line after every paragraph or area, the same shape tesseract's txt
// renderer produces.
func (p Page) Text() string {
	var b strings.Builder
	for _, block := range p.blocks() {
		for _, line := range block {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// blocks groups the page text into paragraph-like blocks of lines.
func (p Page) blocks() [][]string {
	var blocks [][]string
	addParagraph := func(par Paragraph) {
		var lines []string
		for _, line := range par.Lines {
			lines = appendLine(lines, line.Words)
		}
		lines = appendLine(lines, par.Words)
		if len(lines) > 0 {
			blocks = append(blocks, lines)
		}
	}

	for _, area := range p.Areas {
		for _, par := range area.Paragraphs {
			addParagraph(par)
		}
		var loose []string
		for _, line := range area.Lines {
			loose = appendLine(loose, line.Words)
		}
		loose = appendLine(loose, area.Words)
		if len(loose) > 0 {
			blocks = append(blocks, loose)
		}
	}
	for _, par := range p.Paragraphs {
		addParagraph(par)
	}
	var loose []string
	for _, line := range p.Lines {
		loose = appendLine(loose, line.Words)
	}
	if len(loose) > 0 {
		blocks = append(blocks, loose)
	}
	return blocks
}

func appendLine(lines []string, words []Word) []string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w.Text != "" {
			parts = append(parts, w.Text)
		}
	}
	if len(parts) == 0 {
		return lines
	}
	return append(lines, strings.Join(parts, " "))
}

// LineWords is a word together with the index of the line it belongs to.
type LineWords struct {
	Line  int
	Words []Word
}

// WordsByLine flattens the page into its lines in reading order. Words that
// sit directly under an area or paragraph form their own line.
func (p Page) WordsByLine() []LineWords {
	var out []LineWords
	add := func(words []Word) {
		if len(words) > 0 {
			out = append(out, LineWords{Line: len(out), Words: words})
		}
	}
	addParagraph := func(par Paragraph) {
		for _, line := range par.Lines {
			add(line.Words)
		}
		add(par.Words)
	}

	for _, area := range p.Areas {
		for _, par := range area.Paragraphs {
			addParagraph(par)
		}
		for _, line := range area.Lines {
			add(line.Words)
		}
		add(area.Words)
	}
	for _, par := range p.Paragraphs {
		addParagraph(par)
	}
	for _, line := range p.Lines {
		add(line.Words)
	}
	return out
}
