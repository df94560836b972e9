package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// BatchSummary describes a folder conversion.
type BatchSummary struct {
	Files  []Summary
	Failed map[string]error
}

// Succeeded counts the converted files.
func (s BatchSummary) Succeeded() int { return len(s.Files) }

// BatchInputs lists the PDFs in dir that are not outputs of an earlier
// run, sorted by name.
func BatchInputs(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, dir)
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		if strings.HasPrefix(name, prefix+"_") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// BatchOutputName is the converted name of a batch input.
func BatchOutputName(prefix, name string) string {
	return prefix + "_" + name
}

// Batch converts every PDF in inDir to <prefix>_<name> in outDir. A failed
// file is recorded and the batch continues.
func (p *Pipeline) Batch(ctx context.Context, inDir, outDir string) (BatchSummary, error) {
	summary := BatchSummary{Failed: map[string]error{}}
	files, err := BatchInputs(inDir, p.Config.OutputPrefix)
	if err != nil {
		return summary, err
	}
	out := p.Config.progress()
	if len(files) == 0 {
		fmt.Fprintf(out, "No PDF files found in %s\n", inDir)
		return summary, nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrOutput, err)
	}
	fmt.Fprintf(out, "Found %d PDF files to process\n", len(files))

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		fmt.Fprintf(out, "\nProcessing: %s\n", name)
		input := filepath.Join(inDir, name)
		output := filepath.Join(outDir, BatchOutputName(p.Config.OutputPrefix, name))

		s, err := p.Convert(ctx, input, output)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if err != nil {
			summary.Failed[name] = err
			p.Config.logger().WithFields(logrus.Fields{"file": name}).WithError(err).Error("conversion failed")
			fmt.Fprintf(out, "%s %s: %v\n", StatusFailed.Symbol(), name, err)
			continue
		}
		s.Write(out)
		summary.Files = append(summary.Files, s)
	}

	fmt.Fprintf(out, "\nBatch conversion complete\n")
	fmt.Fprintf(out, "%s Successful: %d\n", StatusSuccess.Symbol(), summary.Succeeded())
	fmt.Fprintf(out, "%s Failed: %d\n", StatusFailed.Symbol(), len(summary.Failed))
	return summary, nil
}
