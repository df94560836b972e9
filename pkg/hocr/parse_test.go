package hocr

import (
	"testing"
)

const tesseractPage = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN"
    "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <title></title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name='ocr-system' content='tesseract 5.3.0' />
  <meta name='ocr-capabilities' content='ocr_page ocr_carea ocr_par ocr_line ocrx_word ocrp_wconf'/>
 </head>
 <body>
  <div class='ocr_page' id='page_1' title='image "page.png"; bbox 0 0 1700 2200; ppageno 0; scan_res 200 200'>
   <div class='ocr_carea' id='block_1_1' title="bbox 100 100 900 260">
    <p class='ocr_par' id='par_1_1' lang='eng' title="bbox 100 100 400 140">
     <span class='ocr_header' id='line_1_1' title="bbox 100 100 400 140; baseline 0 -8; x_size 40">
      <span class='ocrx_word' id='word_1_1' title='bbox 100 100 400 140; x_wconf 96'>HEADER</span>
     </span>
    </p>
    <p class='ocr_par' id='par_1_2' lang='eng' title="bbox 100 200 900 260">
     <span class='ocr_line' id='line_1_2' title="bbox 100 200 900 230; baseline 0 -5; x_size 30">
      <span class='ocrx_word' id='word_1_2' title='bbox 100 200 220 230; x_wconf 91'>Body</span>
      <span class='ocrx_word' id='word_1_3' title='bbox 235 200 330 230; x_wconf 0'> </span>
      <span class='ocrx_word' id='word_1_4' title='bbox 345 200 480 230; x_wconf 88'><strong>text.</strong></span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>
`

func TestParseHOCRTesseractPage(t *testing.T) {
	doc, err := ParseHOCR([]byte(tesseractPage))
	if err != nil {
		t.Fatalf("ParseHOCR() error = %v", err)
	}
	if doc.Language != "en" {
		t.Errorf("Language = %q, want en", doc.Language)
	}
	if doc.Metadata["ocr-system"] != "tesseract 5.3.0" {
		t.Errorf("ocr-system = %q", doc.Metadata["ocr-system"])
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}

	page := doc.Pages[0]
	if page.ImageName != "page.png" {
		t.Errorf("ImageName = %q", page.ImageName)
	}
	if page.ScanRes != 200 {
		t.Errorf("ScanRes = %v, want 200", page.ScanRes)
	}
	if page.BBox != NewBoundingBox(0, 0, 1700, 2200) {
		t.Errorf("BBox = %+v", page.BBox)
	}
	if len(page.Areas) != 1 || len(page.Areas[0].Paragraphs) != 2 {
		t.Fatalf("unexpected structure: %+v", page.Areas)
	}

	header := page.Areas[0].Paragraphs[0].Lines[0]
	if header.Class() != "ocr_header" {
		t.Errorf("header line class = %q", header.Class())
	}
	if header.Baseline != "0 -8" {
		t.Errorf("Baseline = %q", header.Baseline)
	}
	if header.Metadata["x_size"] != "40" {
		t.Errorf("x_size metadata = %q", header.Metadata["x_size"])
	}

	words := page.Areas[0].Paragraphs[1].Lines[0].Words
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(words))
	}
	if words[0].Text != "Body" || words[0].Confidence != 91 || words[0].Lang != "" {
		t.Errorf("unexpected first word: %+v", words[0])
	}
	if words[2].Text != "text." {
		t.Errorf("nested markup not flattened: %q", words[2].Text)
	}
}

func TestPageText(t *testing.T) {
	doc, err := ParseHOCR([]byte(tesseractPage))
	if err != nil {
		t.Fatalf("ParseHOCR() error = %v", err)
	}
	if got, want := doc.Pages[0].Text(), "HEADER\n\nBody text."; got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}

	lines := doc.Pages[0].WordsByLine()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].Line != 1 || len(lines[1].Words) != 3 {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestParseHOCRLatin1(t *testing.T) {
	data := []byte(`<html><head><meta http-equiv="Content-Type" content="text/html; charset=iso-8859-1"></head>` +
		`<body><div class="ocr_page" title="bbox 0 0 10 10"><span class="ocr_line" title="bbox 0 0 5 5">` +
		`<span class="ocrx_word" title="bbox 0 0 5 5; x_wconf 90">caf` + "\xe9" + `</span></span></div></body></html>`)
	doc, err := ParseHOCR(data)
	if err != nil {
		t.Fatalf("ParseHOCR() error = %v", err)
	}
	if len(doc.Pages) != 1 || len(doc.Pages[0].Lines) != 1 {
		t.Fatalf("unexpected structure: %+v", doc.Pages)
	}
	if got := doc.Pages[0].Lines[0].Words[0].Text; got != "café" {
		t.Fatalf("decoded word = %q, want café", got)
	}
}

func TestParseHOCRNoPages(t *testing.T) {
	if _, err := ParseHOCR([]byte("<html><body><p>nothing</p></body></html>")); err == nil {
		t.Fatal("expected error for document without ocr_page")
	}
}

func TestParseTitle(t *testing.T) {
	props := ParseTitle("bbox 1 2 3 4; x_wconf 95;  baseline 0.01 -3")
	if len(props["bbox"]) != 4 || props["x_wconf"][0] != "95" || len(props["baseline"]) != 2 {
		t.Fatalf("unexpected props: %v", props)
	}
	if ParseBoundingBoxFromTitle("x_wconf 95") != nil {
		t.Fatal("expected nil bbox for title without bbox")
	}
	if ParseBoundingBoxFromTitle("bbox 1 2 x 4") != nil {
		t.Fatal("expected nil bbox for malformed bbox")
	}
}
