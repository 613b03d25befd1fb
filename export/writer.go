package export

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/tiff"
)

// Image formats a region can be written in, in write order.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpg"
	FormatTIFF = "tif"
	FormatSVG  = "svg"
)

// DrawingsDir is the subdirectory holding page and region images.
const DrawingsDir = "drawings"

// Vectorizer traces a bitmap into an SVG file.
type Vectorizer interface {
	Trace(ctx context.Context, img image.Image, outSVG string) error
}

// Options configure a Writer.
type Options struct {
	JPEGQuality int        // 1..100, 95 when zero
	TIFF        bool       // also write .tif
	Vectorizer  Vectorizer // nil skips svg
	Logger      *slog.Logger
}

// Writer places output files under a root directory, creating
// directories as needed.
type Writer struct {
	root    string
	quality int
	tiff    bool
	vec     Vectorizer
	logger  *slog.Logger
}

func NewWriter(root string, opts Options) *Writer {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 95
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Writer{
		root:    root,
		quality: min(opts.JPEGQuality, 100),
		tiff:    opts.TIFF,
		vec:     opts.Vectorizer,
		logger:  opts.Logger,
	}
}

// Root is the output directory.
func (w *Writer) Root() string { return w.root }

// RegionName is the base file name of region i (1-based) on page n.
func RegionName(n, i int) string {
	return fmt.Sprintf("page_%d_drawing_%d", n, i)
}

// WritePage saves the rendered page n as drawings/page_<n>.png and
// returns its path.
func (w *Writer) WritePage(n int, img image.Image) (string, error) {
	path := filepath.Join(w.root, DrawingsDir, fmt.Sprintf("page_%d.png", n))
	if err := writeFile(path, func(f io.Writer) error { return png.Encode(f, img) }); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRegion saves region i of page n in every enabled format and
// returns the formats written, in order. A failed trace only drops svg.
func (w *Writer) WriteRegion(ctx context.Context, n, i int, img image.Image) ([]string, error) {
	base := filepath.Join(w.root, DrawingsDir, RegionName(n, i))

	if err := writeFile(base+".png", func(f io.Writer) error { return png.Encode(f, img) }); err != nil {
		return nil, err
	}
	formats := []string{FormatPNG}

	if err := writeFile(base+".jpg", func(f io.Writer) error {
		return jpeg.Encode(f, img, &jpeg.Options{Quality: w.quality})
	}); err != nil {
		return formats, err
	}
	formats = append(formats, FormatJPEG)

	if w.tiff {
		if err := writeFile(base+".tif", func(f io.Writer) error {
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
		}); err != nil {
			return formats, err
		}
		formats = append(formats, FormatTIFF)
	}

	if w.vec != nil {
		if err := w.vec.Trace(ctx, img, base+".svg"); err != nil {
			w.logger.Warn("export.svg.failed", "page", n, "region", i, "error", err)
		} else {
			formats = append(formats, FormatSVG)
		}
	}
	return formats, nil
}

// writeFile creates path and its directory and fills it with encode.
func writeFile(path string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
