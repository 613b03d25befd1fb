package drawpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tsawler/drawpipe/clean"
	"github.com/tsawler/drawpipe/detect"
	"github.com/tsawler/drawpipe/export"
	"github.com/tsawler/drawpipe/internal/runner"
	"github.com/tsawler/drawpipe/model"
	"github.com/tsawler/drawpipe/raster"
	"github.com/tsawler/drawpipe/reader"
	"github.com/tsawler/drawpipe/trace"
	"github.com/tsawler/drawpipe/vector"
)

// Summary reports what a run did.
type Summary struct {
	RunID            string `json:"run_id"`
	Title            string `json:"title,omitempty"`
	PagesProcessed   int    `json:"pages_processed"` // pages with no render failure
	PagesFailed      int    `json:"pages_failed"`
	RegionsFound     int    `json:"regions_found"`
	VectorPages      int    `json:"vector_pages"`
	FormatViolations int    `json:"format_violations"`
	Manifest         string `json:"manifest,omitempty"`
	Workbook         string `json:"workbook,omitempty"`
}

// Pipeline runs both extraction paths over the pages of a PDF, one page
// at a time in ascending order.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	runner runner.Runner
}

// New validates cfg and returns a pipeline. A nil logger uses
// slog.Default().
func New(cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg.clone(), logger: logger, runner: runner.Exec{}}, nil
}

// run holds the per-run collaborators, built once before the first page.
type run struct {
	doc        *reader.Reader
	logger     *slog.Logger
	rasterizer raster.Rasterizer
	detector   *detect.Detector
	cleaner    *clean.Cleaner
	writer     *export.Writer
	manifest   *export.Manifest
	summary    *Summary
}

// Run processes the PDF at pdfPath. Page failures are logged and counted;
// an unreadable PDF, an unwritable output directory, a failed manifest
// write or a cancelled context end the run with an error.
func (p *Pipeline) Run(ctx context.Context, pdfPath string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", summary.RunID)

	doc, err := reader.Open(pdfPath)
	if err != nil {
		return summary, NewError(CodeInput, "failed to open "+pdfPath, fmt.Errorf("%w: %w", ErrUnreadablePDF, err))
	}
	defer doc.Close()

	pageCount, err := doc.PageCount()
	if err != nil {
		return summary, NewError(CodeInput, "failed to read page tree", fmt.Errorf("%w: %w", ErrUnreadablePDF, err))
	}
	indices, err := resolvePages(p.cfg.Pages, pageCount)
	if err != nil {
		return summary, NewError(CodeConfig, err.Error(), ErrInvalidConfig)
	}
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return summary, NewError(CodeOutput, "failed to create output directory", fmt.Errorf("%w: %w", ErrOutput, err))
	}
	meta := doc.Metadata()
	summary.Title = meta.Title
	logger.Info("run.start",
		"file", pdfPath,
		"pdf_version", doc.Version().String(),
		"title", meta.Title,
		"producer", meta.Producer,
		"repaired", doc.Repaired(),
		"pages", len(indices),
		"output_dir", p.cfg.OutputDir,
	)

	rn := &run{doc: doc, logger: logger, summary: summary}
	if p.cfg.Raster {
		if err := p.prepareRaster(ctx, rn, pdfPath); err != nil {
			return summary, err
		}
	}

	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		info, err := doc.PageInfo(idx)
		if err != nil {
			logger.Error("page.load.failed", "page", idx+1, "error", err)
			summary.PagesFailed++
			continue
		}
		plog := logger.With("page", info.Number())

		if p.cfg.Vector {
			p.vectorPage(rn, info, plog)
		}
		if p.cfg.Raster {
			if err := p.rasterPage(ctx, rn, info, plog); err != nil {
				return summary, err
			}
			continue
		}
		summary.PagesProcessed++
	}

	if p.cfg.Raster {
		path, err := rn.writer.WriteManifest(rn.manifest)
		if err != nil {
			return summary, NewError(CodeOutput, "failed to write manifest", fmt.Errorf("%w: %w", ErrOutput, err))
		}
		summary.Manifest = path
		if p.cfg.Workbook {
			path, err := rn.writer.WriteWorkbook(rn.manifest)
			if err != nil {
				return summary, NewError(CodeOutput, "failed to write workbook", fmt.Errorf("%w: %w", ErrOutput, err))
			}
			summary.Workbook = path
		}
	}

	logger.Info("run.complete",
		"pages_processed", summary.PagesProcessed,
		"pages_failed", summary.PagesFailed,
		"regions", summary.RegionsFound,
		"vector_pages", summary.VectorPages,
		"format_violations", summary.FormatViolations,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}

// prepareRaster picks the rasterizer and probes for the vectorizer once
// for the whole run.
func (p *Pipeline) prepareRaster(ctx context.Context, rn *run, pdfPath string) error {
	rasterizer, err := raster.New(rn.doc, pdfPath, raster.Options{
		Mode:         p.cfg.Rasterizer,
		PdftoppmPath: p.cfg.PdftoppmPath,
		Runner:       p.runner,
		Logger:       rn.logger,
	})
	if err != nil {
		return NewError(CodeConfig, err.Error(), ErrInvalidConfig)
	}
	rn.logger.Info("raster.backend", "backend", rasterizer.Name())

	var vec export.Vectorizer
	if p.cfg.Trace == TraceAuto {
		tracer := trace.New(p.cfg.PotracePath, p.runner, rn.logger)
		if tracer.Probe(ctx) == trace.Available {
			vec = tracer
		}
	}

	rn.rasterizer = rasterizer
	rn.detector = detect.New(detect.Options{
		Threshold: detect.DefaultOptions().Threshold,
		MinArea:   p.cfg.MinArea,
		Padding:   p.cfg.Padding,
	})
	rn.cleaner = clean.New(p.cfg.Clean)
	rn.writer = export.NewWriter(p.cfg.OutputDir, export.Options{
		JPEGQuality: p.cfg.JPEGQuality,
		TIFF:        p.cfg.wants(export.FormatTIFF),
		Vectorizer:  vec,
		Logger:      rn.logger,
	})
	rn.manifest = export.NewManifest()
	return nil
}

// vectorPage rebuilds the page's paths as a vector PDF. A damaged content
// stream still yields the paths painted before the damage.
func (p *Pipeline) vectorPage(rn *run, info model.PageInfo, logger *slog.Logger) {
	start := time.Now()
	paths, err := rn.doc.DrawPaths(info.Index)
	if err != nil {
		logger.Warn("vector.page.damaged", "paths", len(paths), "error", err)
	}

	res := vector.RenderPage(info, paths, p.cfg.OutputDir)
	switch res.Status {
	case vector.StatusOK:
		rn.summary.VectorPages++
		logger.Info("vector.page.ok", "file", res.File, "paths", res.Paths, "duration_ms", time.Since(start).Milliseconds())
	case vector.StatusFormatViolation:
		rn.summary.FormatViolations++
		logger.Warn("vector.page.format_violation",
			"path", res.Violation.Path,
			"item", res.Violation.Item,
			"tag", res.Violation.Tag,
		)
	default:
		logger.Error("vector.page.write_failed", "error", res.Err)
	}
}

// rasterPage renders, segments, cleans and exports one page. Render and
// write failures skip the page and leave no manifest key; only
// cancellation is returned.
func (p *Pipeline) rasterPage(ctx context.Context, rn *run, info model.PageInfo, logger *slog.Logger) error {
	start := time.Now()
	img, err := raster.Render(ctx, rn.rasterizer, info, p.cfg.DPI)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ctx.Err()
		}
		logger.Error("page.render.failed", "backend", rn.rasterizer.Name(), "error", err)
		rn.summary.PagesFailed++
		return nil
	}

	n := info.Number()
	exportFailed := func(err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Error("page.export.failed", "error", err)
		rn.summary.PagesFailed++
		return nil
	}
	if _, err := rn.writer.WritePage(n, img); err != nil {
		return exportFailed(fmt.Errorf("failed to write page %d: %w", n, err))
	}

	regions := rn.detector.Detect(img, info.Index)
	entries := make([]export.Entry, 0, len(regions))
	for i, region := range regions {
		cleaned := rn.cleaner.Clean(detect.Crop(img, region))
		formats, err := rn.writer.WriteRegion(ctx, n, i+1, cleaned)
		if err != nil {
			return exportFailed(fmt.Errorf("failed to write region %d of page %d: %w", i+1, n, err))
		}
		entries = append(entries, export.Entry{
			Filename:    export.RegionName(n, i+1),
			Coordinates: region.Coordinates(),
			Formats:     formats,
		})
	}

	// the page key appears only once every region is on disk
	rn.manifest.AddPage(n)
	for _, e := range entries {
		rn.manifest.Add(n, e)
	}

	rn.summary.PagesProcessed++
	rn.summary.RegionsFound += len(regions)
	logger.Info("page.regions",
		"regions", len(regions),
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
