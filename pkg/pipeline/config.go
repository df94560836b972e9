package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gardar/pdfocr/pkg/gdocai"
	"github.com/gardar/pdfocr/pkg/layout"
	"github.com/gardar/pdfocr/pkg/ocr"
	"github.com/gardar/pdfocr/pkg/pdfocr"
)

// Resolutions offered by the converter.
const (
	DefaultDPI     = 200
	HighQualityDPI = 300
)

// Config is everything a run needs. Nothing is read from the environment
// or the working directory.
type Config struct {
	DPI          float64  `yaml:"dpi"`
	HighQuality  bool     `yaml:"high_quality"` // render at HighQualityDPI
	Engine       string   `yaml:"engine"`       // tesseract, gosseract or gdocai
	Languages    []string `yaml:"languages"`
	PageSegMode  int      `yaml:"psm"`
	Threads      int      `yaml:"threads"`
	Mode         string   `yaml:"mode"` // invisible, visible or reflow
	Transparency int      `yaml:"transparency"`
	ChunkSize    int      `yaml:"chunk_size"`
	OutputPrefix string   `yaml:"output_prefix"`
	SkipText     bool     `yaml:"skip_text"`     // pass through pages that already have text
	Force        bool     `yaml:"force"`         // overlay even when an OCR layer exists
	ImportSource bool     `yaml:"import_source"` // use the source PDF page as background
	WriteHOCR    bool     `yaml:"hocr"`          // write an hOCR file next to the output
	Optimize     bool     `yaml:"optimize"`      // shrink the output PDF with pdfcpu
	LayerName    string   `yaml:"layer_name"`
	Debug        bool     `yaml:"debug"`

	Placement  layout.PlacementConfig `yaml:"placement"`
	Reflow     layout.ReflowConfig    `yaml:"reflow"`
	DocumentAI gdocai.Config          `yaml:"documentai"`

	// Logger receives structured diagnostics.
	Logger logrus.FieldLogger `yaml:"-"`
	// Progress receives the per-page status line and the run summary.
	Progress io.Writer `yaml:"-"`
}

// DefaultConfig returns the settings the converter uses without a config file.
func DefaultConfig() Config {
	return Config{
		DPI:          DefaultDPI,
		Engine:       "tesseract",
		Languages:    []string{"eng"},
		PageSegMode:  6,
		Mode:         string(pdfocr.ModeInvisible),
		Transparency: 128,
		ChunkSize:    50,
		OutputPrefix: "searchable",
		ImportSource: true,
		LayerName:    "OCR Text",
		Placement:    layout.DefaultPlacement(),
		Reflow:       layout.DefaultReflow(),
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// EffectiveDPI is the rasterization resolution after HighQuality.
func (c Config) EffectiveDPI() float64 {
	if c.HighQuality {
		return HighQualityDPI
	}
	return c.DPI
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.EffectiveDPI() <= 0 {
		return fmt.Errorf("dpi must be positive, got %v", c.EffectiveDPI())
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("at least one language is required")
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1, got %d", c.ChunkSize)
	}
	if c.SkipText && !c.ImportSource {
		return fmt.Errorf("skip_text needs import_source, rasterized pages would lose their text")
	}
	if strings.TrimSpace(c.OutputPrefix) == "" {
		return fmt.Errorf("output prefix must not be empty")
	}
	return c.PDFConfig().Validate()
}

// OCROptions returns the engine settings.
func (c Config) OCROptions() ocr.Options {
	return ocr.Options{
		Languages:   c.Languages,
		PageSegMode: c.PageSegMode,
		Threads:     c.Threads,
	}
}

// PDFConfig returns the composition settings.
func (c Config) PDFConfig() pdfocr.OCRConfig {
	out := pdfocr.DefaultConfig()
	out.Mode = pdfocr.Mode(strings.ToLower(c.Mode))
	out.Transparency = c.Transparency
	out.Force = c.Force
	out.Debug = c.Debug
	out.Placement = c.Placement
	out.Reflow = c.Reflow
	if c.LayerName != "" {
		out.LayerName = c.LayerName
	}
	out.Logger = c.logWriter()
	return out
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		return l
	}
	return c.Logger
}

func (c Config) progress() io.Writer {
	if c.Progress == nil {
		return io.Discard
	}
	return c.Progress
}

// logWriter routes composer messages into the structured log.
func (c Config) logWriter() io.Writer {
	return logWriter{log: c.logger()}
}

type logWriter struct {
	log logrus.FieldLogger
}

func (w logWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSpace(string(p))
	if rest, ok := strings.CutPrefix(msg, "Warning: "); ok {
		w.log.Warn(rest)
	} else if msg != "" {
		w.log.Debug(msg)
	}
	return len(p), nil
}
