package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
)

// Chunk is a contiguous range of source pages, 1-based and inclusive.
type Chunk struct {
	Index       int // 1-based
	First, Last int
}

// Pages returns the number of pages in the chunk.
func (c Chunk) Pages() int { return c.Last - c.First + 1 }

// Selection is the pdfcpu page selection of the chunk.
func (c Chunk) Selection() string { return fmt.Sprintf("%d-%d", c.First, c.Last) }

// SliceName is the file the chunk is cut into.
func (c Chunk) SliceName() string { return fmt.Sprintf("chunk_%03d.pdf", c.Index) }

// OutputName is the converted chunk.
func (c Chunk) OutputName() string { return fmt.Sprintf("searchable_chunk_%03d.pdf", c.Index) }

// PlanChunks splits total pages into ceil(total/perChunk) chunks; every
// chunk but the last has perChunk pages.
func PlanChunks(total, perChunk int) ([]Chunk, error) {
	if perChunk < 1 {
		return nil, fmt.Errorf("pages per chunk must be at least 1, got %d", perChunk)
	}
	if total < 0 {
		return nil, fmt.Errorf("negative page count %d", total)
	}
	chunks := make([]Chunk, 0, (total+perChunk-1)/perChunk)
	for first := 1; first <= total; first += perChunk {
		chunks = append(chunks, Chunk{
			Index: len(chunks) + 1,
			First: first,
			Last:  min(first+perChunk-1, total),
		})
	}
	return chunks, nil
}

// ChunkResult is the outcome of one chunk.
type ChunkResult struct {
	Chunk   Chunk
	Output  string
	Summary Summary
	Err     error
}

// ChunkSummary describes a chunked run.
type ChunkSummary struct {
	Input  string
	Total  int
	Chunks []ChunkResult
}

// Succeeded counts the chunks converted without error.
func (s ChunkSummary) Succeeded() int {
	n := 0
	for _, c := range s.Chunks {
		if c.Err == nil {
			n++
		}
	}
	return n
}

// pdfcpuConfig returns a configuration that does not touch the user's
// pdfcpu config directory.
func pdfcpuConfig() *model.Configuration {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// RunChunks converts the PDF at input in slices of Config.ChunkSize pages,
// writing searchable_chunk_NNN.pdf files to outDir. A slice is deleted once
// its conversion succeeded and kept otherwise. A failed chunk does not
// stop the run; cancellation does.
func (p *Pipeline) RunChunks(ctx context.Context, input, outDir string) (ChunkSummary, error) {
	summary := ChunkSummary{Input: input}
	if _, err := os.Stat(input); err != nil {
		if os.IsNotExist(err) {
			return summary, fmt.Errorf("%w: %s", ErrInputNotFound, input)
		}
		return summary, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrOutput, err)
	}

	conf := pdfcpuConfig()
	total, err := api.PageCountFile(input)
	if err != nil {
		return summary, fmt.Errorf("failed to count pages of %s: %w", input, err)
	}
	summary.Total = total

	chunks, err := PlanChunks(total, p.Config.ChunkSize)
	if err != nil {
		return summary, err
	}
	out := p.Config.progress()
	fmt.Fprintf(out, "Processing %d pages in %d chunks of %d\n", total, len(chunks), p.Config.ChunkSize)

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log := p.Config.logger().WithFields(logrus.Fields{"chunk": c.Index, "pages": c.Selection()})
		fmt.Fprintf(out, "Chunk %d: pages %d-%d\n", c.Index, c.First, c.Last)

		res := ChunkResult{Chunk: c, Output: filepath.Join(outDir, c.OutputName())}
		slice := filepath.Join(outDir, c.SliceName())
		if err := api.TrimFile(input, slice, []string{c.Selection()}, conf); err != nil {
			res.Err = fmt.Errorf("failed to slice chunk %d: %w", c.Index, err)
			log.WithError(res.Err).Error("chunk failed")
			summary.Chunks = append(summary.Chunks, res)
			continue
		}

		res.Summary, res.Err = p.Convert(ctx, slice, res.Output)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if res.Err != nil {
			log.WithError(res.Err).Error("chunk failed, slice kept")
			fmt.Fprintf(out, "%s Chunk %d failed\n", StatusFailed.Symbol(), c.Index)
		} else {
			if err := os.Remove(slice); err != nil {
				log.WithError(err).Warn("cannot remove slice")
			}
			fmt.Fprintf(out, "%s Chunk %d completed\n", StatusSuccess.Symbol(), c.Index)
		}
		summary.Chunks = append(summary.Chunks, res)
	}
	fmt.Fprintf(out, "Processed %d/%d chunks\n", summary.Succeeded(), len(chunks))
	return summary, nil
}
