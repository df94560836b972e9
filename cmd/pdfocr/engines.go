package main

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/gardar/pdfocr/pkg/gdocai"
	"github.com/gardar/pdfocr/pkg/ocr"
	"github.com/gardar/pdfocr/pkg/pipeline"
)

// engineFactory builds an engine from the run configuration.
type engineFactory func(cfg pipeline.Config, o options, log logrus.FieldLogger) (ocr.Engine, error)

// engines maps --engine values to factories. Optional engines register
// themselves from build-tagged files.
var engines = map[string]engineFactory{
	"tesseract": func(cfg pipeline.Config, o options, log logrus.FieldLogger) (ocr.Engine, error) {
		t := ocr.NewTesseractCLI(cfg.OCROptions(), log)
		if o.tesseract != "" {
			t.Binary = o.tesseract
		}
		return t, nil
	},
	"gdocai": func(cfg pipeline.Config, o options, _ logrus.FieldLogger) (ocr.Engine, error) {
		docai := cfg.DocumentAI
		e := gdocai.NewEngine(&docai)
		e.DumpDir = o.dumpDir
		return e, nil
	},
}

func engineNames() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newEngine(cfg pipeline.Config, o options, log logrus.FieldLogger) (ocr.Engine, error) {
	factory, ok := engines[cfg.Engine]
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine %q (available: %v)", ocr.ErrEngineUnavailable, cfg.Engine, engineNames())
	}
	return factory(cfg, o, log)
}
