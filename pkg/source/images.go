package source

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/gardar/pdfocr/pkg/ocr"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ImageDir treats every image in a folder as one page, in file name order.
// Images are assumed to be scanned at DPI.
type ImageDir struct {
	Dir   string
	Files []string
	DPI   float64
}

// OpenImageDir lists the images in dir.
func OpenImageDir(dir string, dpi float64) (*ImageDir, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("dpi must be positive, got %v", dpi)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImage(e.Name()) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	sort.Strings(files)
	return &ImageDir{Dir: dir, Files: files, DPI: dpi}, nil
}

// NumPages implements Document.
func (d *ImageDir) NumPages() int { return len(d.Files) }

// Path returns the file backing page.
func (d *ImageDir) Path(page int) string {
	return filepath.Join(d.Dir, d.Files[page-1])
}

// PageSize implements Document. The size follows from the pixel size at
// the folder's DPI.
func (d *ImageDir) PageSize(page int) (float64, float64, error) {
	if err := checkPage(page, d.NumPages()); err != nil {
		return 0, 0, err
	}
	f, err := os.Open(d.Path(page))
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image config for %s: %w", d.Files[page-1], err)
	}
	return float64(cfg.Width) * 72 / d.DPI, float64(cfg.Height) * 72 / d.DPI, nil
}

// Render implements Document. Images are used at their own resolution, so
// dpi is ignored in favor of the folder DPI. Formats other than PNG are
// re-encoded.
func (d *ImageDir) Render(page int, dpi float64) (ocr.Image, error) {
	if err := checkPage(page, d.NumPages()); err != nil {
		return ocr.Image{}, err
	}
	data, err := os.ReadFile(d.Path(page))
	if err != nil {
		return ocr.Image{}, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ocr.Image{}, fmt.Errorf("failed to decode %s: %w", d.Files[page-1], err)
	}
	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return ocr.Image{}, fmt.Errorf("failed to encode %s as PNG: %w", d.Files[page-1], err)
		}
		data = buf.Bytes()
	}
	b := img.Bounds()
	return ocr.Image{PNG: data, Width: b.Dx(), Height: b.Dy(), DPI: d.DPI, PageNumber: page}, nil
}

// Close implements Document.
func (d *ImageDir) Close() error { return nil }
