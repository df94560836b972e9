// pdfocr converts scanned PDFs and folders of page images into searchable or
// editable PDFs, or into plain text.
//
// Each page is rasterized, recognized by an OCR engine and written back:
// as an invisible text layer over the original page (the default), as
// visible text over the page, or as freshly typeset paragraphs.
//
// Usage:
//
//	pdfocr [flags] <command> [args]
//
// Commands:
//
//	convert <input>             PDF or image folder to PDF
//	text <input>                PDF or image folder to a UTF-8 text file
//	chunks <input.pdf>          convert a large PDF in slices of --pages-per-chunk pages
//	batch <in-dir> <out-dir>    convert every PDF in a folder
//	probe [input.pdf]           check that the OCR engine can run and report
//	                            existing OCR layers and native text of a PDF
//	apply --hocr f.hocr ...     lay an existing hOCR file over a PDF or images
//
// Configuration:
//
// Settings are read from an optional YAML file (--config) and overridden by
// flags:
//
//	dpi: 200
//	languages: [eng]
//	psm: 6
//	mode: invisible
//	transparency: 128
//	optimize: true
//	chunk_size: 50
//	engine: tesseract
//	documentai:
//	  project_id: "your-gcp-project-id"
//	  location: "us"
//	  processor_id: "your-processor-id"
//
// Examples:
//
//	pdfocr convert scan.pdf
//	pdfocr --mode visible --high-quality convert scan.pdf -o editable.pdf
//	pdfocr --lang eng+deu text ./pages -o pages.txt
//	pdfocr --write-hocr convert scan.pdf
//	pdfocr --optimize convert scan.pdf
//	pdfocr chunks --pages-per-chunk 25 huge.pdf
//	pdfocr apply --hocr document.hocr --pdf document.pdf -o document_searchable.pdf
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/gardar/pdfocr/pkg/ocr"
	"github.com/gardar/pdfocr/pkg/pdfocr"
	"github.com/gardar/pdfocr/pkg/pipeline"
	"github.com/gardar/pdfocr/pkg/source"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the global flags. Zero values and -1 mean "not given".
type options struct {
	config       string
	engine       string
	tesseract    string
	lang         string
	dpi          float64
	highQuality  bool
	psm          int
	threads      int
	mode         string
	transparency int
	skipText     bool
	force        bool
	noImport     bool
	hocr         bool
	optimize     bool
	dumpDir      string
	overwrite    bool
	debug        bool
	verbose      bool
	quiet        bool
}

// apply merges the flags that were given into cfg.
func (o options) apply(cfg *pipeline.Config) {
	if o.engine != "" {
		cfg.Engine = o.engine
	}
	if o.lang != "" {
		cfg.Languages = strings.Split(o.lang, "+")
	}
	if o.dpi > 0 {
		cfg.DPI = o.dpi
	}
	if o.psm >= 0 {
		cfg.PageSegMode = o.psm
	}
	if o.threads > 0 {
		cfg.Threads = o.threads
	}
	if o.mode != "" {
		cfg.Mode = o.mode
	}
	if o.transparency >= 0 {
		cfg.Transparency = o.transparency
	}
	cfg.HighQuality = cfg.HighQuality || o.highQuality
	cfg.SkipText = cfg.SkipText || o.skipText
	cfg.Force = cfg.Force || o.force
	cfg.WriteHOCR = cfg.WriteHOCR || o.hocr
	cfg.Optimize = cfg.Optimize || o.optimize
	cfg.Debug = cfg.Debug || o.debug
	if o.noImport {
		cfg.ImportSource = false
	}
}

func newLogger(o options, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case o.verbose:
		log.SetLevel(logrus.DebugLevel)
	case o.quiet:
		log.SetLevel(logrus.WarnLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func run(args []string, stdout, stderr io.Writer) int {
	var o options
	app := kingpin.New("pdfocr", "Converts scanned documents into searchable or editable PDFs")
	app.UsageWriter(stdout)
	app.ErrorWriter(stderr)
	app.Terminate(nil)

	app.Flag("config", "YAML configuration file").Short('c').StringVar(&o.config)
	app.Flag("engine", "OCR engine").EnumVar(&o.engine, engineNames()...)
	app.Flag("tesseract", "tesseract executable").StringVar(&o.tesseract)
	app.Flag("lang", "recognition languages, e.g. eng+deu").Short('l').StringVar(&o.lang)
	app.Flag("dpi", "rasterization resolution").Default("0").Float64Var(&o.dpi)
	app.Flag("high-quality", "rasterize at 300 dpi").BoolVar(&o.highQuality)
	app.Flag("psm", "tesseract page segmentation mode").Default("-1").IntVar(&o.psm)
	app.Flag("threads", "OCR engine threads").Default("0").IntVar(&o.threads)
	app.Flag("mode", "text placement").EnumVar(&o.mode, modeNames()...)
	app.Flag("transparency", "alpha of the bands behind visible text, 0-255").Default("-1").IntVar(&o.transparency)
	app.Flag("skip-text", "pass through pages that already have text").BoolVar(&o.skipText)
	app.Flag("force", "convert even when the PDF already has an OCR layer").Short('f').BoolVar(&o.force)
	app.Flag("no-import", "draw rasterized pages instead of importing the source PDF").BoolVar(&o.noImport)
	app.Flag("write-hocr", "also write the recognized words as hOCR").BoolVar(&o.hocr)
	app.Flag("optimize", "shrink the output PDF after writing it").BoolVar(&o.optimize)
	app.Flag("dump-dir", "directory for raw Document AI responses").StringVar(&o.dumpDir)
	app.Flag("overwrite", "overwrite existing output files").BoolVar(&o.overwrite)
	app.Flag("debug", "draw the text layer in red with word boxes").Short('d').BoolVar(&o.debug)
	app.Flag("verbose", "log every page").Short('v').BoolVar(&o.verbose)
	app.Flag("quiet", "log warnings and errors only").Short('q').BoolVar(&o.quiet)

	convertCmd := app.Command("convert", "Convert a PDF or image folder to PDF")
	convertInput := convertCmd.Arg("input", "PDF file or image folder").Required().String()
	convertOutput := convertCmd.Flag("output", "output PDF").Short('o').String()

	textCmd := app.Command("text", "Extract the text of a PDF or image folder")
	textInput := textCmd.Arg("input", "PDF file or image folder").Required().String()
	textOutput := textCmd.Flag("output", "output text file").Short('o').String()

	chunksCmd := app.Command("chunks", "Convert a large PDF in slices")
	chunksInput := chunksCmd.Arg("input", "PDF file").Required().String()
	chunksDir := chunksCmd.Flag("out-dir", "directory for the converted slices").String()
	chunksSize := chunksCmd.Flag("pages-per-chunk", "pages per slice").Default("0").Int()

	batchCmd := app.Command("batch", "Convert every PDF in a folder")
	batchIn := batchCmd.Arg("in-dir", "folder with PDFs").Required().String()
	batchOut := batchCmd.Arg("out-dir", "folder for the results").Required().String()

	probeCmd := app.Command("probe", "Check that the OCR engine is usable and inspect a PDF for existing text")
	probeInput := probeCmd.Arg("pdf", "PDF to check for OCR layers and native text").String()

	applyCmd := app.Command("apply", "Lay an existing hOCR file over a PDF or page images")
	applyHOCR := applyCmd.Flag("hocr", "multi-page hOCR file").Required().String()
	applyPDF := applyCmd.Flag("pdf", "existing PDF to add the OCR layer to").String()
	applyImages := applyCmd.Flag("image-dir", "directory of page images to build a new PDF from").String()
	applyOutput := applyCmd.Flag("output", "output PDF").Short('o').Required().String()
	applyStart := applyCmd.Flag("start-page", "first page the hOCR refers to").Default("1").Int()
	applyDump := applyCmd.Flag("debug-pdf", "dump the PDF structure").Bool()

	command, err := app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "pdfocr: %v\n", err)
		return 2
	}
	if command == "" {
		return 0
	}

	log := newLogger(o, stderr)
	cfg := pipeline.DefaultConfig()
	if o.config != "" {
		if cfg, err = pipeline.LoadConfig(o.config); err != nil {
			log.WithError(err).Error("failed to load config")
			return 1
		}
	}
	o.apply(&cfg)
	if command == chunksCmd.FullCommand() && *chunksSize > 0 {
		cfg.ChunkSize = *chunksSize
	}
	cfg.Logger = log
	cfg.Progress = stdout
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("invalid configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{opts: o, cfg: cfg, log: log, stdout: stdout}
	switch command {
	case convertCmd.FullCommand():
		err = c.convert(ctx, *convertInput, *convertOutput)
	case textCmd.FullCommand():
		err = c.text(ctx, *textInput, *textOutput)
	case chunksCmd.FullCommand():
		err = c.chunks(ctx, *chunksInput, *chunksDir)
	case batchCmd.FullCommand():
		err = c.batch(ctx, *batchIn, *batchOut)
	case probeCmd.FullCommand():
		err = c.probe(ctx, *probeInput)
	case applyCmd.FullCommand():
		err = c.apply(*applyHOCR, *applyPDF, *applyImages, *applyOutput, *applyStart, *applyDump)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("interrupted")
			return 130
		}
		log.Error(err)
		return 1
	}
	return 0
}

func modeNames() []string {
	names := make([]string, len(pdfocr.Modes))
	for i, m := range pdfocr.Modes {
		names[i] = string(m)
	}
	return names
}

type cli struct {
	opts   options
	cfg    pipeline.Config
	log    *logrus.Logger
	stdout io.Writer
}

// pipeline checks the engine and returns a ready pipeline.
func (c *cli) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	engine, err := newEngine(c.cfg, c.opts, c.log)
	if err != nil {
		return nil, err
	}
	if prober, ok := engine.(ocr.Prober); ok {
		version, err := prober.Probe(ctx)
		if err != nil {
			return nil, err
		}
		c.log.WithField("engine", engine.Name()).Debugf("using %s", version)
	}
	return pipeline.New(c.cfg, engine)
}

func checkInput(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", pipeline.ErrInputNotFound, path)
		}
		return err
	}
	return nil
}

func (c *cli) checkOutput(path string) error {
	if _, err := os.Stat(path); err == nil && !c.opts.overwrite {
		return fmt.Errorf("output file %s already exists, use --overwrite to replace it", path)
	}
	return nil
}

// defaultOutput names the output next to the input: dir/<prefix>_<name><ext>.
func defaultOutput(input, prefix, ext string) string {
	base := filepath.Base(filepath.Clean(input))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(filepath.Clean(input)), prefix+"_"+base+ext)
}

func (c *cli) convert(ctx context.Context, input, output string) error {
	if err := checkInput(input); err != nil {
		return err
	}
	if output == "" {
		output = defaultOutput(input, c.cfg.OutputPrefix, ".pdf")
	}
	if err := c.checkOutput(output); err != nil {
		return err
	}
	p, err := c.pipeline(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Processing: %s\n", input)
	summary, err := p.Convert(ctx, input, output)
	summary.Write(c.stdout)
	return err
}

func (c *cli) text(ctx context.Context, input, output string) error {
	if err := checkInput(input); err != nil {
		return err
	}
	if output == "" {
		output = defaultOutput(input, "extracted", ".txt")
	}
	if err := c.checkOutput(output); err != nil {
		return err
	}
	p, err := c.pipeline(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Extracting text from: %s\n", input)
	summary, err := p.ExtractText(ctx, input, output)
	summary.Write(c.stdout)
	return err
}

func (c *cli) chunks(ctx context.Context, input, outDir string) error {
	if err := checkInput(input); err != nil {
		return err
	}
	if outDir == "" {
		outDir = strings.TrimSuffix(input, filepath.Ext(input)) + "_chunks"
	}
	p, err := c.pipeline(ctx)
	if err != nil {
		return err
	}
	summary, err := p.RunChunks(ctx, input, outDir)
	if err != nil {
		return err
	}
	if failed := len(summary.Chunks) - summary.Succeeded(); failed > 0 {
		return fmt.Errorf("%d of %d chunks failed", failed, len(summary.Chunks))
	}
	return nil
}

func (c *cli) batch(ctx context.Context, inDir, outDir string) error {
	if err := checkInput(inDir); err != nil {
		return err
	}
	p, err := c.pipeline(ctx)
	if err != nil {
		return err
	}
	summary, err := p.Batch(ctx, inDir, outDir)
	if err != nil {
		return err
	}
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d files failed", len(summary.Failed))
	}
	return nil
}

func (c *cli) probe(ctx context.Context, input string) error {
	if input != "" {
		if err := c.inspect(input); err != nil {
			return err
		}
	}
	engine, err := newEngine(c.cfg, c.opts, c.log)
	if err != nil {
		return err
	}
	prober, ok := engine.(ocr.Prober)
	if !ok {
		fmt.Fprintf(c.stdout, "%s: no probe available\n", engine.Name())
		return nil
	}
	version, err := prober.Probe(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s found: %s\n", engine.Name(), version)
	return nil
}

// inspect reports the OCR layers and native text pages of the PDF at input.
func (c *cli) inspect(input string) error {
	if err := checkInput(input); err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to read input PDF: %w", err)
	}
	res, err := pdfocr.DetectOCR(data, input, c.cfg.PDFConfig())
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		c.log.WithField("file", input).Warn(w)
	}

	fmt.Fprintf(c.stdout, "%s:\n", input)
	if res.HasLayerOCR {
		fmt.Fprintf(c.stdout, "  OCR layer: %s\n", res.LayerInfo.OCRLayerName)
	} else {
		fmt.Fprintln(c.stdout, "  OCR layer: none")
	}
	if len(res.LayerInfo.Layers) > 0 {
		fmt.Fprintf(c.stdout, "  Layers: %s\n", strings.Join(res.LayerInfo.Layers, ", "))
	}
	if res.HasTextLayer {
		pages := make([]string, len(res.TextPages))
		for i, n := range res.TextPages {
			pages[i] = strconv.Itoa(n)
		}
		fmt.Fprintf(c.stdout, "  Pages with native text: %s\n", strings.Join(pages, ", "))
	} else {
		fmt.Fprintln(c.stdout, "  Pages with native text: none")
	}
	return nil
}

// apply lays an hOCR file produced elsewhere over a PDF or a folder of
// page images.
func (c *cli) apply(hocrPath, pdfPath, imageDir, output string, startPage int, dumpPDF bool) error {
	if (pdfPath == "") == (imageDir == "") {
		return fmt.Errorf("exactly one of --pdf or --image-dir is required")
	}
	if err := c.checkOutput(output); err != nil {
		return err
	}

	config := c.cfg.PDFConfig()
	config.StartPage = startPage
	config.DumpPDF = dumpPDF

	hOCR, err := os.ReadFile(hocrPath)
	if err != nil {
		return fmt.Errorf("failed to read hOCR file: %w", err)
	}

	var finalPDF []byte
	if imageDir != "" {
		entries, err := os.ReadDir(imageDir)
		if err != nil {
			return fmt.Errorf("error accessing image directory: %w", err)
		}
		var imagePaths []string
		for _, e := range entries {
			if !e.IsDir() && source.IsImage(e.Name()) {
				imagePaths = append(imagePaths, filepath.Join(imageDir, e.Name()))
			}
		}
		sort.Strings(imagePaths)
		fmt.Fprintf(c.stdout, "Found %d image files in %s\n", len(imagePaths), imageDir)

		imagesData := make([][]byte, 0, len(imagePaths))
		for _, imgPath := range imagePaths {
			imgBytes, err := os.ReadFile(imgPath)
			if err != nil {
				return fmt.Errorf("failed to read image %s: %w", imgPath, err)
			}
			imagesData = append(imagesData, imgBytes)
		}
		if finalPDF, err = pdfocr.AssembleWithOCR(hOCR, imagesData, config); err != nil {
			return fmt.Errorf("error creating PDF from images: %w", err)
		}
	} else {
		inputData, err := os.ReadFile(pdfPath)
		if err != nil {
			return fmt.Errorf("failed to read input PDF: %w", err)
		}
		if finalPDF, err = pdfocr.ApplyOCR(inputData, hOCR, config); err != nil {
			return fmt.Errorf("error applying OCR to existing PDF: %w", err)
		}
	}

	if err := os.WriteFile(output, finalPDF, 0o644); err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrOutput, err)
	}
	fmt.Fprintf(c.stdout, "%s OCR-enhanced PDF created: %s\n", pipeline.StatusSuccess.Symbol(), output)
	return nil
}
