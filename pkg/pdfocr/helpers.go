package pdfocr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

func unescapePDFString(s string) string {
	s = strings.ReplaceAll(s, "\\(", "(")
	s = strings.ReplaceAll(s, "\\)", ")")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return s
}

func decodeUTF16BE(b []byte) (string, error) {
	if len(b) < 2 {
		return "", fmt.Errorf("input too short for UTF-16BE")
	}
	if b[0] != 0xFE || b[1] != 0xFF {
		return "", fmt.Errorf("no BOM detected, cannot confirm UTF-16BE")
	}
	b = b[2:]
	runes := make([]rune, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		runes = append(runes, rune(uint16(b[i])<<8|uint16(b[i+1])))
	}
	return string(runes), nil
}

// isEncodingIssue reports whether err only means some characters were
// replaced; the page itself was written.
func isEncodingIssue(err error) bool {
	return errors.Is(err, ErrEncoding)
}

// getLogger returns the appropriate io.Writer to use for logging
// based on the configuration settings, defaulting to os.Stdout if nil.
func getLogger(config OCRConfig) io.Writer {
	if config.Logger == nil {
		return os.Stdout
	}
	return config.Logger
}

func logf(config OCRConfig, format string, args ...interface{}) {
	fmt.Fprintf(getLogger(config), format+"\n", args...)
}

func warnf(config OCRConfig, format string, args ...interface{}) {
	if config.LogWarnings {
		logf(config, "Warning: "+format, args...)
	}
}

// dumpPDFStructure is a debug utility that prints out
// the first N bytes of the PDF plus any /OCG layer references.
func dumpPDFStructure(pdfData []byte, byteCount int, logger io.Writer) {
	if byteCount > len(pdfData) {
		byteCount = len(pdfData)
	}

	fmt.Fprintln(logger, "===== PDF STRUCTURE DUMP (FIRST", byteCount, "BYTES) =====")
	fmt.Fprintln(logger, string(pdfData[:byteCount]))
	fmt.Fprintln(logger, "===== END PDF STRUCTURE DUMP =====")

	ocgIndex := bytes.Index(pdfData, []byte("/OCG"))
	if ocgIndex >= 0 {
		start := max(ocgIndex-20, 0)
		end := min(ocgIndex+100, len(pdfData))
		fmt.Fprintln(logger, "===== OCG CONTEXT =====")
		fmt.Fprintln(logger, string(pdfData[start:end]))
		fmt.Fprintln(logger, "===== END OCG CONTEXT =====")
	}
}
