package drawpipe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tsawler/drawpipe/model"
	"github.com/tsawler/drawpipe/reader"
)

// Extractor provides a fluent interface for configuring a run. Each
// configuration method returns a new Extractor, so a partially configured
// Extractor can be shared and extended safely.
type Extractor struct {
	filename string
	reader   *reader.Reader

	config Config
	logger *slog.Logger

	// Accumulated error (fail-fast)
	err error
}

// clone creates a shallow copy of the Extractor with a deep copy of the
// config. The reader is not shared.
func (e *Extractor) clone() *Extractor {
	return &Extractor{
		filename: e.filename,
		config:   e.config.clone(),
		logger:   e.logger,
		err:      e.err,
	}
}

// ensureReader opens the reader if not already open.
func (e *Extractor) ensureReader() error {
	if e.reader != nil {
		return nil
	}
	if e.filename == "" {
		return fmt.Errorf("no filename specified")
	}
	r, err := reader.Open(e.filename)
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}
	e.reader = r
	return nil
}

// Close releases the reader opened by PageCount, PageInfo or DrawPaths.
// It is safe to call Close multiple times.
func (e *Extractor) Close() error {
	if e.reader == nil {
		return nil
	}
	err := e.reader.Close()
	e.reader = nil
	return err
}

// ============================================================================
// Configuration
// ============================================================================

// Config replaces the whole configuration.
func (e *Extractor) Config(cfg Config) *Extractor {
	newExt := e.clone()
	newExt.config = cfg.clone()
	return newExt
}

// Logger sets the structured logger; nil means slog.Default().
func (e *Extractor) Logger(l *slog.Logger) *Extractor {
	newExt := e.clone()
	newExt.logger = l
	return newExt
}

// OutputDir sets the directory all files are written under.
func (e *Extractor) OutputDir(dir string) *Extractor {
	newExt := e.clone()
	newExt.config.OutputDir = dir
	return newExt
}

// DPI sets the rendering resolution of the raster path.
func (e *Extractor) DPI(dpi int) *Extractor {
	newExt := e.clone()
	newExt.config.DPI = dpi
	return newExt
}

// MinArea sets the contour area a drawing must exceed, in pixels².
func (e *Extractor) MinArea(area float64) *Extractor {
	newExt := e.clone()
	newExt.config.MinArea = area
	return newExt
}

// Padding sets the pixels added around each detected drawing.
func (e *Extractor) Padding(px int) *Extractor {
	newExt := e.clone()
	newExt.config.Padding = px
	return newExt
}

func (e *Extractor) JPEGQuality(q int) *Extractor {
	newExt := e.clone()
	newExt.config.JPEGQuality = q
	return newExt
}

// Pages specifies which pages to process (1-indexed).
// Multiple calls are cumulative.
//
// Example:
//
//	summary, err := drawpipe.Open("doc.pdf").Pages(1, 3, 5).Run(ctx)
func (e *Extractor) Pages(pages ...int) *Extractor {
	newExt := e.clone()
	newExt.config.Pages = append(newExt.config.Pages, pages...)
	return newExt
}

// PageRange specifies a range of pages to process (1-indexed, inclusive).
func (e *Extractor) PageRange(start, end int) *Extractor {
	newExt := e.clone()
	if start > end {
		newExt.err = fmt.Errorf("invalid page range %d-%d", start, end)
		return newExt
	}
	for i := start; i <= end; i++ {
		newExt.config.Pages = append(newExt.config.Pages, i)
	}
	return newExt
}

// Formats enables extra region formats such as "tif".
func (e *Extractor) Formats(formats ...string) *Extractor {
	newExt := e.clone()
	newExt.config.Formats = append(newExt.config.Formats, formats...)
	return newExt
}

// NoVector skips the vector path.
func (e *Extractor) NoVector() *Extractor {
	newExt := e.clone()
	newExt.config.Vector = false
	return newExt
}

// NoRaster skips the raster path.
func (e *Extractor) NoRaster() *Extractor {
	newExt := e.clone()
	newExt.config.Raster = false
	return newExt
}

// Rasterizer selects the page renderer: "auto", "native" or "pdftoppm".
func (e *Extractor) Rasterizer(mode string) *Extractor {
	newExt := e.clone()
	newExt.config.Rasterizer = mode
	return newExt
}

// NoTrace disables SVG export even when potrace is installed.
func (e *Extractor) NoTrace() *Extractor {
	newExt := e.clone()
	newExt.config.Trace = TraceOff
	return newExt
}

// Workbook also writes drawings_info.xlsx.
func (e *Extractor) Workbook() *Extractor {
	newExt := e.clone()
	newExt.config.Workbook = true
	return newExt
}

// ============================================================================
// Terminal operations
// ============================================================================

// Run executes the pipeline with the accumulated configuration.
//
// Example:
//
//	summary, err := drawpipe.Open("plans.pdf").OutputDir("out").Run(ctx)
func (e *Extractor) Run(ctx context.Context) (*Summary, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.filename == "" {
		return nil, fmt.Errorf("no filename specified")
	}
	p, err := New(e.config, e.logger)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, e.filename)
}

// PageCount returns the number of pages. The reader stays open for further
// calls until Close.
func (e *Extractor) PageCount() (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if err := e.ensureReader(); err != nil {
		return 0, err
	}
	return e.reader.PageCount()
}

// PageInfo returns the geometry of page n (1-indexed).
func (e *Extractor) PageInfo(n int) (model.PageInfo, error) {
	if e.err != nil {
		return model.PageInfo{}, e.err
	}
	if err := e.ensureReader(); err != nil {
		return model.PageInfo{}, err
	}
	if n < 1 {
		return model.PageInfo{}, fmt.Errorf("page %d out of range", n)
	}
	return e.reader.PageInfo(n - 1)
}

// DrawPaths returns the painted paths of page n (1-indexed) in page space.
// On a damaged content stream the paths read before the damage are
// returned with the error.
func (e *Extractor) DrawPaths(n int) ([]model.DrawPath, error) {
	if _, err := e.PageInfo(n); err != nil {
		return nil, err
	}
	return e.reader.DrawPaths(n - 1)
}
