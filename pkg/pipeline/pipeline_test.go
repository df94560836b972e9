package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"

	"github.com/gardar/pdfocr/pkg/hocr"
	"github.com/gardar/pdfocr/pkg/ocr"
	"github.com/gardar/pdfocr/pkg/pdfocr"
	"github.com/gardar/pdfocr/pkg/source"
)

type fakeDoc struct {
	pages   int
	badSize map[int]bool
	closed  bool
}

func (d *fakeDoc) NumPages() int { return d.pages }

func (d *fakeDoc) PageSize(page int) (float64, float64, error) {
	if d.badSize[page] {
		return 0, 0, fmt.Errorf("broken page %d", page)
	}
	return 100, 100, nil
}

func (d *fakeDoc) Render(page int, dpi float64) (ocr.Image, error) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ocr.Image{}, err
	}
	return ocr.Image{PNG: buf.Bytes(), Width: 20, Height: 20, DPI: dpi, PageNumber: page}, nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

// fakePDFDoc reports a PDF path so native text detection applies.
type fakePDFDoc struct {
	*fakeDoc
	path string
}

func (d fakePDFDoc) PDFPath() string { return d.path }

type fakeEngine struct {
	words map[int][]ocr.Word
	fail  map[int]bool
	calls []int
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Recognize(ctx context.Context, img ocr.Image) (ocr.Result, error) {
	e.calls = append(e.calls, img.PageNumber)
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	if e.fail[img.PageNumber] {
		return ocr.Result{}, errors.New("engine exploded")
	}
	words := e.words[img.PageNumber]
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return ocr.Result{
		Text:   strings.Join(texts, " "),
		Words:  words,
		Width:  img.Width,
		Height: img.Height,
		DPI:    img.DPI,
		Engine: e.Name(),
	}, nil
}

func word(text string) []ocr.Word {
	return []ocr.Word{{Text: text, Left: 2, Top: 2, Width: 10, Height: 4, Confidence: 90}}
}

func testPipeline(t *testing.T, doc source.Document, engine ocr.Engine) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DPI = 72
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	cfg.Logger = logger
	cfg.Progress = &bytes.Buffer{}
	p, err := New(cfg, engine)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p.Open = func(string, float64) (source.Document, error) { return doc, nil }
	return p
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestProcessContinuesAfterFailedPage(t *testing.T) {
	doc := &fakeDoc{pages: 4, badSize: map[int]bool{4: true}}
	engine := &fakeEngine{
		words: map[int][]ocr.Word{1: word("one"), 3: word("three")},
		fail:  map[int]bool{2: true},
	}
	p := testPipeline(t, doc, engine)
	sink, err := NewPDFSink(filepath.Join(t.TempDir(), "out.pdf"), p.Config.PDFConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	results, pages, err := p.Process(context.Background(), doc, sink)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []Status{StatusSuccess, StatusFailed, StatusSuccess, StatusFailed}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, st := range want {
		if results[i].Status != st {
			t.Errorf("page %d status = %s, want %s (err %v)", i+1, results[i].Status, st, results[i].Err)
		}
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "engine exploded") {
		t.Errorf("page 2 error = %v", results[1].Err)
	}
	if sink.PageCount() != 4 {
		t.Errorf("PageCount() = %d, want 4 with placeholders", sink.PageCount())
	}
	if len(pages) != 2 {
		t.Errorf("got %d hOCR pages, want 2", len(pages))
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestZeroWordPageStillWritten(t *testing.T) {
	doc := &fakeDoc{pages: 2}
	engine := &fakeEngine{words: map[int][]ocr.Word{2: word("text")}}
	p := testPipeline(t, doc, engine)
	sink, err := NewPDFSink(filepath.Join(t.TempDir(), "out.pdf"), p.Config.PDFConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	results, _, err := p.Process(context.Background(), doc, sink)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != StatusEmpty {
		t.Errorf("page 1 status = %s, want empty", results[0].Status)
	}
	if sink.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want 2", sink.PageCount())
	}
}

func TestUnconfidentTextIsEmptyInInvisibleMode(t *testing.T) {
	ghost := []ocr.Word{{Text: "ghost", Left: 2, Top: 2, Width: 10, Height: 4, Confidence: 0}}
	for _, tt := range []struct {
		mode string
		want Status
	}{
		{"invisible", StatusEmpty},
		{"visible", StatusSuccess},
	} {
		doc := &fakeDoc{pages: 1}
		p := testPipeline(t, doc, &fakeEngine{words: map[int][]ocr.Word{1: ghost}})
		p.Config.Mode = tt.mode
		sink, err := NewPDFSink(filepath.Join(t.TempDir(), "out.pdf"), p.Config.PDFConfig(), nil)
		if err != nil {
			t.Fatal(err)
		}
		results, _, err := p.Process(context.Background(), doc, sink)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].Status != tt.want || results[0].Words != 0 {
			t.Errorf("%s: page status = %s (%d words), want %s", tt.mode, results[0].Status, results[0].Words, tt.want)
		}
	}
}

func TestProcessStopsOnCancel(t *testing.T) {
	doc := &fakeDoc{pages: 3}
	engine := &fakeEngine{}
	p := testPipeline(t, doc, engine)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, _, err := p.Process(ctx, doc, NewTextSink(filepath.Join(t.TempDir(), "out.txt")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() error = %v, want context.Canceled", err)
	}
	if len(results) != 0 || len(engine.calls) != 0 {
		t.Errorf("cancelled run processed pages: %v", engine.calls)
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scan.pdf")
	touch(t, input)
	output := filepath.Join(dir, "out.pdf")

	doc := &fakeDoc{pages: 2}
	p := testPipeline(t, doc, &fakeEngine{words: map[int][]ocr.Word{1: word("Hello"), 2: word("again")}})
	p.Config.WriteHOCR = true

	summary, err := p.Convert(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if summary.Total != 2 || summary.Processed() != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.OutputSize == 0 {
		t.Error("output size not recorded")
	}
	if !doc.closed {
		t.Error("document not closed")
	}

	data, err := os.ReadFile(HOCRPath(output))
	if err != nil {
		t.Fatalf("hOCR sidecar missing: %v", err)
	}
	parsed, err := hocr.ParseHOCR(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Pages) != 2 {
		t.Errorf("hOCR has %d pages, want 2", len(parsed.Pages))
	}
}

func TestConvertOptimize(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scan.pdf")
	touch(t, input)
	output := filepath.Join(dir, "out.pdf")

	p := testPipeline(t, &fakeDoc{pages: 3}, &fakeEngine{words: map[int][]ocr.Word{1: word("Hello"), 3: word("again")}})
	p.Config.Optimize = true
	summary, err := p.Convert(context.Background(), input, output)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	n, err := api.PageCountFile(output)
	if err != nil {
		t.Fatalf("optimized output unreadable: %v", err)
	}
	if n != 3 {
		t.Errorf("optimized output has %d pages, want 3", n)
	}
	info, err := os.Stat(output)
	if err != nil {
		t.Fatal(err)
	}
	if summary.OutputSize != info.Size() {
		t.Errorf("OutputSize = %d, want size after optimizing %d", summary.OutputSize, info.Size())
	}
}

func TestConvertMissingInput(t *testing.T) {
	p := testPipeline(t, &fakeDoc{pages: 1}, &fakeEngine{})
	_, err := p.Convert(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), "out.pdf")
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("Convert() error = %v, want ErrInputNotFound", err)
	}
}

func TestConvertOutputFailure(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scan.pdf")
	touch(t, input)
	p := testPipeline(t, &fakeDoc{pages: 1}, &fakeEngine{words: map[int][]ocr.Word{1: word("x")}})

	_, err := p.Convert(context.Background(), input, filepath.Join(dir, "missing", "out.pdf"))
	if !errors.Is(err, ErrOutput) {
		t.Fatalf("Convert() error = %v, want ErrOutput", err)
	}
	if !strings.Contains(err.Error(), "after 1 of 1 pages") {
		t.Errorf("error does not report progress: %v", err)
	}
}

func TestExtractText(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scan.pdf")
	touch(t, input)
	output := filepath.Join(dir, "out.txt")

	p := testPipeline(t, &fakeDoc{pages: 3}, &fakeEngine{words: map[int][]ocr.Word{1: word("first"), 3: word("third")}})
	if _, err := p.ExtractText(context.Background(), input, output); err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	want := "=== PAGE 1 ===\nfirst\n\n=== PAGE 2 ===\n\n=== PAGE 3 ===\nthird\n"
	if string(data) != want {
		t.Errorf("text output = %q, want %q", data, want)
	}
}

func TestTextSinkKeepsFailedPages(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.txt")
	sink := NewTextSink(output)
	if err := sink.Page(pdfocr.Page{Number: 1, Result: ocr.Result{Text: "  first \n"}}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Blank(2, 612, 792); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if want := "=== PAGE 1 ===\nfirst\n\n=== PAGE 2 ===\n"; string(data) != want {
		t.Errorf("text output = %q, want %q", data, want)
	}
}

func TestSkipText(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "mixed.pdf")
	touch(t, input)
	output := filepath.Join(dir, "out.txt")

	doc := fakePDFDoc{fakeDoc: &fakeDoc{pages: 2}, path: input}
	engine := &fakeEngine{words: map[int][]ocr.Word{2: word("scanned")}}
	p := testPipeline(t, doc, engine)
	p.Config.SkipText = true
	p.TextPages = func(string) (map[int]string, error) {
		return map[int]string{1: "native text"}, nil
	}

	summary, err := p.ExtractText(context.Background(), input, output)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Pages[0].Status != StatusSkipped {
		t.Errorf("page 1 status = %s, want skipped", summary.Pages[0].Status)
	}
	if len(engine.calls) != 1 || engine.calls[0] != 2 {
		t.Errorf("engine calls = %v, want [2]", engine.calls)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "native text") || !strings.Contains(string(data), "scanned") {
		t.Errorf("text output = %q", data)
	}
}

func TestSkipTextUnreadablePDF(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.pdf")
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	off := b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 2\n0000000000 65535 f \n%010d 00000 n \n", off)
	fmt.Fprintf(&b, "trailer\n<< /Size 2 /Root 1 0 R /Broken > 1 >>\nstartxref\n%d\n%%%%EOF\n", xref)
	if err := os.WriteFile(input, b.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	doc := fakePDFDoc{fakeDoc: &fakeDoc{pages: 2}, path: input}
	engine := &fakeEngine{words: map[int][]ocr.Word{1: word("one"), 2: word("two")}}
	p := testPipeline(t, doc, engine)
	p.Config.SkipText = true

	summary, err := p.ExtractText(context.Background(), input, filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if len(engine.calls) != 2 {
		t.Errorf("engine calls = %v, want every page recognized", engine.calls)
	}
	for _, r := range summary.Pages {
		if r.Status != StatusSuccess {
			t.Errorf("page %d status = %s, want success", r.Page, r.Status)
		}
	}
}

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		total, per int
		want       []int
	}{
		{120, 50, []int{50, 50, 20}},
		{100, 50, []int{50, 50}},
		{7, 10, []int{7}},
		{0, 50, nil},
	}
	for _, tt := range tests {
		chunks, err := PlanChunks(tt.total, tt.per)
		if err != nil {
			t.Fatalf("PlanChunks(%d, %d) error = %v", tt.total, tt.per, err)
		}
		if len(chunks) != len(tt.want) {
			t.Fatalf("PlanChunks(%d, %d) = %d chunks, want %d", tt.total, tt.per, len(chunks), len(tt.want))
		}
		for i, c := range chunks {
			if c.Pages() != tt.want[i] || c.Index != i+1 {
				t.Errorf("PlanChunks(%d, %d)[%d] = %+v", tt.total, tt.per, i, c)
			}
		}
	}

	chunks, _ := PlanChunks(120, 50)
	if last := chunks[2]; last.Selection() != "101-120" || last.SliceName() != "chunk_003.pdf" || last.OutputName() != "searchable_chunk_003.pdf" {
		t.Errorf("last chunk = %+v", last)
	}
	if _, err := PlanChunks(10, 0); err == nil {
		t.Error("expected error for zero pages per chunk")
	}
}

func writePDF(t *testing.T, path string, pages int) {
	t.Helper()
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, fmt.Sprintf("page %d", i))
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
}

func TestRunChunks(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "big.pdf")
	writePDF(t, input, 5)
	outDir := filepath.Join(dir, "big_chunks")

	p := testPipeline(t, nil, &fakeEngine{})
	p.Open = source.Open
	p.Config.ChunkSize = 2
	p.Config.ImportSource = false

	summary, err := p.RunChunks(context.Background(), input, outDir)
	if err != nil {
		t.Fatalf("RunChunks() error = %v", err)
	}
	if summary.Total != 5 || len(summary.Chunks) != 3 || summary.Succeeded() != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	for _, c := range summary.Chunks {
		if c.Err != nil {
			t.Errorf("chunk %d: %v", c.Chunk.Index, c.Err)
		}
		if _, err := os.Stat(filepath.Join(outDir, c.Chunk.SliceName())); !os.IsNotExist(err) {
			t.Errorf("slice %s not removed", c.Chunk.SliceName())
		}
	}
	n, err := api.PageCountFile(filepath.Join(outDir, "searchable_chunk_003.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("last chunk has %d pages, want 1", n)
	}
}

func TestBatch(t *testing.T) {
	in := t.TempDir()
	for _, name := range []string{"a.pdf", "B.PDF", "searchable_old.pdf"} {
		touch(t, filepath.Join(in, name))
	}
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	files, err := BatchInputs(in, "searchable")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(files, ",") != "B.PDF,a.pdf" {
		t.Errorf("BatchInputs() = %v", files)
	}

	out := filepath.Join(t.TempDir(), "converted")
	p := testPipeline(t, nil, &fakeEngine{words: map[int][]ocr.Word{1: word("x")}})
	p.Open = func(string, float64) (source.Document, error) { return &fakeDoc{pages: 1}, nil }

	summary, err := p.Batch(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if summary.Succeeded() != 2 || len(summary.Failed) != 0 {
		t.Errorf("summary = %+v", summary)
	}
	for _, name := range []string{"searchable_a.pdf", "searchable_B.PDF"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	if _, err := p.Batch(context.Background(), filepath.Join(in, "nope"), out); !errors.Is(err, ErrInputNotFound) {
		t.Errorf("Batch(missing) error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfocr.yml")
	yml := `dpi: 300
mode: reflow
languages: [eng, deu]
placement:
  max_font_size: 16
documentai:
  project_id: demo
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.DPI != 300 || cfg.Mode != "reflow" || len(cfg.Languages) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Placement.MaxFontSize != 16 || cfg.Placement.MinFontSize != 8 {
		t.Errorf("placement = %+v, want defaults kept", cfg.Placement)
	}
	if cfg.ChunkSize != 50 || cfg.Transparency != 128 {
		t.Errorf("defaults lost: chunk %d transparency %d", cfg.ChunkSize, cfg.Transparency)
	}
	if cfg.DocumentAI.ProjectID != "demo" {
		t.Errorf("documentai = %+v", cfg.DocumentAI)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.EffectiveDPI() != 200 {
		t.Errorf("default dpi = %v", cfg.EffectiveDPI())
	}
	cfg.HighQuality = true
	if cfg.EffectiveDPI() != 300 {
		t.Errorf("high quality dpi = %v", cfg.EffectiveDPI())
	}

	bad := DefaultConfig()
	bad.Mode = "loud"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown mode")
	}
	bad = DefaultConfig()
	bad.SkipText = true
	bad.ImportSource = false
	if err := bad.Validate(); err == nil {
		t.Error("expected error for skip_text without import_source")
	}
}

func TestSummaryWrite(t *testing.T) {
	s := Summary{
		Total: 3,
		Pages: []PageResult{
			{Page: 1, Status: StatusSuccess},
			{Page: 2, Status: StatusFailed, Err: errors.New("boom")},
			{Page: 3, Status: StatusEmpty},
		},
		InputSize:  1572864,
		OutputSize: 3 * 1024 * 1024,
	}
	var buf bytes.Buffer
	s.Write(&buf)
	out := buf.String()
	for _, want := range []string{"Processed 2/3 pages", "✓ 1", "○ 1", "✗ 1", "page 2: boom", "Input size: 1.5 MB", "Output size: 3.0 MB"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
