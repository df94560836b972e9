//go:build gosseract

package main

import (
	"github.com/sirupsen/logrus"

	"github.com/gardar/pdfocr/pkg/ocr"
	"github.com/gardar/pdfocr/pkg/ocr/libtess"
	"github.com/gardar/pdfocr/pkg/pipeline"
)

func init() {
	engines["gosseract"] = func(cfg pipeline.Config, _ options, _ logrus.FieldLogger) (ocr.Engine, error) {
		return libtess.New(cfg.OCROptions()), nil
	}
}
