package gdocai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gardar/pdfocr/pkg/ocr"
)

// Engine recognizes page images with a Document AI OCR processor.
type Engine struct {
	Config    *Config
	Processor Processor
	// DumpDir, when set, receives the raw API response of every page as
	// page_NNNN.json.
	DumpDir string
}

// NewEngine returns an engine calling the processor described by cfg.
func NewEngine(cfg *Config) *Engine {
	return &Engine{Config: cfg, Processor: ClientProcessor{Config: cfg}}
}

// Name implements ocr.Engine.
func (e *Engine) Name() string { return "gdocai" }

// Probe checks the processor configuration and that credentials are
// available. The API itself is not called.
func (e *Engine) Probe(ctx context.Context) (string, error) {
	if err := e.Config.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
	}
	credentials := e.Config.CredentialsFile
	if credentials == "" {
		credentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if credentials == "" {
		return "", fmt.Errorf("%w: GOOGLE_APPLICATION_CREDENTIALS is not set", ocr.ErrEngineUnavailable)
	}
	if _, err := os.Stat(credentials); err != nil {
		return "", fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
	}
	return "Document AI " + e.Config.ProcessorName(), nil
}

// Recognize implements ocr.Engine.
func (e *Engine) Recognize(ctx context.Context, img ocr.Image) (ocr.Result, error) {
	doc, err := e.Processor.Process(ctx, img.PNG, "image/png")
	if err != nil {
		return ocr.Result{}, err
	}
	if e.DumpDir != "" {
		if err := e.dump(img.PageNumber, doc); err != nil {
			return ocr.Result{}, err
		}
	}
	if len(doc.GetPages()) != 1 {
		return ocr.Result{}, fmt.Errorf("expected 1 page in result, got %d", len(doc.GetPages()))
	}
	page := doc.Pages[0]
	return ocr.Result{
		Text:   PageText(doc, page),
		Words:  WordsFromPage(page, doc.Text, float64(img.Width), float64(img.Height)),
		Width:  img.Width,
		Height: img.Height,
		DPI:    img.DPI,
		Engine: e.Name(),
	}, nil
}

func (e *Engine) dump(pageNumber int, doc any) error {
	data, err := ToJSON(doc)
	if err != nil {
		return fmt.Errorf("failed to encode API response: %w", err)
	}
	if err := os.MkdirAll(e.DumpDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(e.DumpDir, fmt.Sprintf("page_%04d.json", pageNumber))
	return os.WriteFile(path, []byte(data), 0o644)
}
