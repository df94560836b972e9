package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/sirupsen/logrus"

	"github.com/gardar/pdfocr/pkg/ocr"
	"github.com/gardar/pdfocr/pkg/pdfocr"
	"github.com/gardar/pdfocr/pkg/pipeline"
)

type stubEngine struct{}

func (stubEngine) Name() string { return "stub" }

func (stubEngine) Recognize(_ context.Context, img ocr.Image) (ocr.Result, error) {
	return ocr.Result{
		Text:  "stub text",
		Words: []ocr.Word{{Text: "stub", Left: 1, Top: 1, Width: 8, Height: 4, Confidence: 80}},
		DPI:   img.DPI, Width: img.Width, Height: img.Height,
	}, nil
}

func init() {
	engines["stub"] = func(pipeline.Config, options, logrus.FieldLogger) (ocr.Engine, error) {
		return stubEngine{}, nil
	}
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeImage(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 40, 20))); err != nil {
		t.Fatal(err)
	}
}

func TestRunUsageErrors(t *testing.T) {
	if code, _, _ := runCLI(); code != 2 {
		t.Errorf("no command exit = %d, want 2", code)
	}
	if code, _, _ := runCLI("--engine", "nope", "probe"); code != 2 {
		t.Errorf("unknown engine exit = %d, want 2", code)
	}
	if code, _, _ := runCLI("--mode", "loud", "probe"); code != 2 {
		t.Errorf("unknown mode exit = %d, want 2", code)
	}
}

func TestRunMissingInput(t *testing.T) {
	code, _, stderr := runCLI("--engine", "stub", "convert", filepath.Join(t.TempDir(), "missing.pdf"))
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "input not found") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunTextFromImageFolder(t *testing.T) {
	dir := t.TempDir()
	pages := filepath.Join(dir, "pages")
	if err := os.Mkdir(pages, 0o755); err != nil {
		t.Fatal(err)
	}
	writeImage(t, filepath.Join(pages, "001.png"))
	writeImage(t, filepath.Join(pages, "002.png"))
	out := filepath.Join(dir, "pages.txt")

	code, stdout, stderr := runCLI("--engine", "stub", "--dpi", "72", "text", pages, "-o", out)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "=== PAGE 2 ===\nstub text") {
		t.Errorf("text = %q", data)
	}
	if !strings.Contains(stdout, "Processed 2/2 pages") {
		t.Errorf("stdout = %q", stdout)
	}

	// second run refuses to overwrite
	if code, _, _ := runCLI("--engine", "stub", "text", pages, "-o", out); code != 1 {
		t.Errorf("overwrite exit = %d, want 1", code)
	}
	if code, _, _ := runCLI("--engine", "stub", "--overwrite", "text", pages, "-o", out); code != 0 {
		t.Errorf("--overwrite exit = %d, want 0", code)
	}
}

func TestRunConvertDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	pages := filepath.Join(dir, "scan")
	if err := os.Mkdir(pages, 0o755); err != nil {
		t.Fatal(err)
	}
	writeImage(t, filepath.Join(pages, "p1.png"))

	code, _, stderr := runCLI("--engine", "stub", "--mode", "reflow", "convert", pages)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "searchable_scan.pdf")); err != nil {
		t.Errorf("default output missing: %v", err)
	}
}

const hocrDoc = `<html><body>
<div class='ocr_page' id='page_1' title='bbox 0 0 200 100; ppageno 0'>
  <span class='ocr_line' id='line_1_1' title='bbox 10 10 120 30'>
    <span class='ocrx_word' id='word_1_1' title='bbox 10 10 120 30; x_wconf 90'>Applied</span>
  </span>
</div>
</body></html>`

func TestRunApply(t *testing.T) {
	dir := t.TempDir()
	hocrPath := filepath.Join(dir, "doc.hocr")
	if err := os.WriteFile(hocrPath, []byte(hocrDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	pdfPath := filepath.Join(dir, "doc.pdf")
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: 200, Ht: 100})
	pdf.Rect(5, 5, 20, 20, "D")
	if err := pdf.OutputFileAndClose(pdfPath); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "doc_ocr.pdf")

	code, _, stderr := runCLI("apply", "--hocr", hocrPath, "--pdf", pdfPath, "-o", out)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	res, err := pdfocr.CheckExistingOCRLayers(data, "OCR Text")
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasOCRLayer {
		t.Errorf("applied PDF has no OCR layer: %q", res.Layers)
	}

	code, stdout, stderr := runCLI("--engine", "stub", "probe", out)
	if code != 0 {
		t.Fatalf("probe exit = %d, stderr = %s", code, stderr)
	}
	for _, want := range []string{"OCR layer: OCR Text (Page 1", "Pages with native text: none", "stub: no probe available"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("probe output %q does not contain %q", stdout, want)
		}
	}
	if code, _, _ := runCLI("--engine", "stub", "probe", filepath.Join(dir, "missing.pdf")); code != 1 {
		t.Errorf("probe of missing file exit = %d, want 1", code)
	}

	// applying again to the result is refused without --force
	again := filepath.Join(dir, "again.pdf")
	if code, _, _ := runCLI("apply", "--hocr", hocrPath, "--pdf", out, "-o", again); code != 1 {
		t.Errorf("reapply exit = %d, want 1", code)
	}

	if code, _, _ := runCLI("apply", "--hocr", hocrPath, "-o", again); code != 1 {
		t.Errorf("apply without input exit = %d, want 1", code)
	}
}

func TestRunProbeGDocAIWithoutConfig(t *testing.T) {
	code, _, stderr := runCLI("--engine", "gdocai", "probe")
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if stderr == "" {
		t.Error("no error reported")
	}
}

func TestOptionsApply(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	o := options{lang: "eng+deu", psm: -1, transparency: 0, noImport: true, highQuality: true}
	o.apply(&cfg)
	if strings.Join(cfg.Languages, ",") != "eng,deu" {
		t.Errorf("Languages = %v", cfg.Languages)
	}
	if cfg.PageSegMode != 6 {
		t.Errorf("PageSegMode = %d, want default kept", cfg.PageSegMode)
	}
	if cfg.Transparency != 0 {
		t.Errorf("Transparency = %d, want 0", cfg.Transparency)
	}
	if cfg.ImportSource || cfg.EffectiveDPI() != 300 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestDefaultOutput(t *testing.T) {
	got := defaultOutput(filepath.Join("in", "scan.pdf"), "searchable", ".pdf")
	if want := filepath.Join("in", "searchable_scan.pdf"); got != want {
		t.Errorf("defaultOutput() = %q, want %q", got, want)
	}
	got = defaultOutput(filepath.Join("in", "pages")+string(filepath.Separator), "extracted", ".txt")
	if want := filepath.Join("in", "extracted_pages.txt"); got != want {
		t.Errorf("defaultOutput(dir) = %q, want %q", got, want)
	}
}
