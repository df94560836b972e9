//go:build gosseract

package libtess

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/gardar/pdfocr/pkg/hocr"
	"github.com/gardar/pdfocr/pkg/ocr"
)

// Engine implements ocr.Engine on top of a fresh gosseract client per page.
type Engine struct {
	Options       ocr.Options
	clientFactory func() *gosseract.Client
}

// New returns an engine using opts.
func New(opts ocr.Options) *Engine {
	return &Engine{Options: opts, clientFactory: gosseract.NewClient}
}

// Name implements ocr.Engine.
func (e *Engine) Name() string { return "gosseract" }

// Probe reports the linked libtesseract version and checks that the
// configured languages have trained data installed.
func (e *Engine) Probe(ctx context.Context) (string, error) {
	installed, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
	}
	for _, lang := range e.Options.Languages {
		if !contains(installed, lang) {
			return "", fmt.Errorf("%w: language %q is not installed", ocr.ErrEngineUnavailable, lang)
		}
	}
	return "libtesseract " + gosseract.Version(), nil
}

// Recognize implements ocr.Engine. libtesseract cannot be interrupted, so
// ctx is only checked before work starts.
func (e *Engine) Recognize(ctx context.Context, img ocr.Image) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(img.PNG); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(e.Options.Languages) > 0 {
		if err := c.SetLanguage(e.Options.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if e.Options.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.Options.PageSegMode)); err != nil {
			return ocr.Result{}, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if img.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(int(img.DPI))); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}

	out, err := c.HOCRText()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	res, err := pageResult(out, e.Name())
	if err != nil {
		return ocr.Result{}, err
	}

	if text, err := c.Text(); err == nil {
		res.Text = strings.TrimRight(text, "\n\f")
	}
	res.Width, res.Height, res.DPI = img.Width, img.Height, img.DPI
	return res, nil
}

// pageResult reads the single page of an hOCR fragment.
func pageResult(fragment, engine string) (ocr.Result, error) {
	doc, err := hocr.ParseHOCR([]byte(wrapHOCR(fragment)))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("parse hOCR: %w", err)
	}
	if len(doc.Pages) == 0 {
		return ocr.Result{}, errors.New("tesseract produced no page")
	}
	return ocr.ResultFromHOCR(doc.Pages[0], engine), nil
}

// wrapHOCR turns the page fragment returned by the API into a document.
func wrapHOCR(fragment string) string {
	if strings.Contains(fragment, "<html") {
		return fragment
	}
	return `<html><head><meta http-equiv="Content-Type" content="text/html;charset=utf-8"/></head><body>` +
		fragment + `</body></html>`
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
