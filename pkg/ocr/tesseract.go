package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gardar/pdfocr/pkg/hocr"
)

// TesseractCLI runs the tesseract executable once per page and reads back
// its hOCR and plain text renderings.
type TesseractCLI struct {
	// Binary is the executable to run; empty means "tesseract" on PATH.
	Binary  string
	Options Options
	// TempDir is where per-page scratch directories are created; empty
	// means os.TempDir.
	TempDir string
	Logger  logrus.FieldLogger
}

// NewTesseractCLI returns an engine using the tesseract found on PATH.
func NewTesseractCLI(opts Options, logger logrus.FieldLogger) *TesseractCLI {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TesseractCLI{Options: opts, Logger: logger}
}

// Name implements Engine.
func (t *TesseractCLI) Name() string { return "tesseract" }

func (t *TesseractCLI) binary() string {
	if t.Binary != "" {
		return t.Binary
	}
	return "tesseract"
}

func (t *TesseractCLI) logger() logrus.FieldLogger {
	if t.Logger == nil {
		return logrus.StandardLogger()
	}
	return t.Logger
}

// Probe checks that the executable runs and that every configured language
// is installed. It returns the first line of `tesseract --version`.
func (t *TesseractCLI) Probe(ctx context.Context) (string, error) {
	bin, err := exec.LookPath(t.binary())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	out, err := exec.CommandContext(ctx, bin, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s --version: %v", ErrEngineUnavailable, bin, err)
	}
	version := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])

	if len(t.Options.Languages) == 0 {
		return version, nil
	}
	out, err = exec.CommandContext(ctx, bin, "--list-langs").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s --list-langs: %v", ErrEngineUnavailable, bin, err)
	}
	installed := parseLanguages(out)
	for _, lang := range t.Options.Languages {
		if !installed[lang] {
			return "", fmt.Errorf("%w: language %q is not installed", ErrEngineUnavailable, lang)
		}
	}
	return version, nil
}

// parseLanguages reads the output of `tesseract --list-langs`, which starts
// with a "List of available languages" header.
func parseLanguages(out []byte) map[string]bool {
	langs := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") {
			continue
		}
		langs[line] = true
	}
	return langs
}

// Args returns the command line used to recognize input into the files
// outBase.hocr and outBase.txt.
func (t *TesseractCLI) Args(input, outBase string, dpi float64) []string {
	args := []string{input, outBase}
	if dpi > 0 {
		args = append(args, "--dpi", strconv.Itoa(int(dpi)))
	}
	if len(t.Options.Languages) > 0 {
		args = append(args, "-l", strings.Join(t.Options.Languages, "+"))
	}
	if t.Options.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(t.Options.PageSegMode))
	}
	return append(args, "hocr", "txt")
}

// Recognize implements Engine. The page image is written to a scratch
// directory that is removed before Recognize returns.
func (t *TesseractCLI) Recognize(ctx context.Context, img Image) (Result, error) {
	if len(img.PNG) == 0 {
		return Result{}, errors.New("empty page image")
	}
	dir, err := os.MkdirTemp(t.TempDir, "pdfocr-")
	if err != nil {
		return Result{}, fmt.Errorf("error creating scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "page.png")
	if err := os.WriteFile(input, img.PNG, 0o600); err != nil {
		return Result{}, fmt.Errorf("error writing page image: %w", err)
	}
	outBase := filepath.Join(dir, "page")

	cmd := exec.CommandContext(ctx, t.binary(), t.Args(input, outBase, img.DPI)...)
	cmd.Env = os.Environ()
	if t.Options.Threads > 0 {
		cmd.Env = append(cmd.Env, "OMP_THREAD_LIMIT="+strconv.Itoa(t.Options.Threads))
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	t.logger().WithField("page", img.PageNumber).Debugf("running %v", cmd.Args)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	data, err := os.ReadFile(outBase + ".hocr")
	if err != nil {
		return Result{}, fmt.Errorf("error reading hOCR output: %w", err)
	}
	doc, err := hocr.ParseHOCR(data)
	if err != nil {
		return Result{}, fmt.Errorf("error parsing hOCR output: %w", err)
	}
	if len(doc.Pages) == 0 {
		return Result{}, errors.New("tesseract produced no page")
	}
	res := ResultFromHOCR(doc.Pages[0], t.Name())

	if txt, err := os.ReadFile(outBase + ".txt"); err == nil {
		res.Text = strings.TrimRight(string(txt), "\n\f")
	}
	res.Width, res.Height, res.DPI = img.Width, img.Height, img.DPI
	return res, nil
}
