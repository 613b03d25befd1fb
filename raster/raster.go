package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/tsawler/drawpipe/internal/runner"
	"github.com/tsawler/drawpipe/model"
)

// ErrRenderFailure is matched by every *RenderError.
var ErrRenderFailure = errors.New("render failure")

// RenderError reports a page that could not be rasterized.
type RenderError struct {
	Page  int // 1-based
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render page %d: %v", e.Page, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

func (e *RenderError) Is(target error) bool { return target == ErrRenderFailure }

// Rasterizer renders a page to an opaque RGBA bitmap at dpi, scaled by
// dpi/72 from PDF points.
type Rasterizer interface {
	Rasterize(ctx context.Context, page model.PageInfo, dpi int) (*image.RGBA, error)
	Name() string
}

// Backend names accepted by New.
const (
	ModeAuto     = "auto"
	ModeNative   = "native"
	ModePdftoppm = "pdftoppm"
)

// Options selects and configures a backend.
type Options struct {
	Mode         string
	PdftoppmPath string // defaults to "pdftoppm" on PATH
	Runner       runner.Runner
	Logger       *slog.Logger
}

// New picks the backend once for a run. Auto prefers pdftoppm when it is
// installed and falls back to the native renderer.
func New(doc Document, pdfPath string, opts Options) (Rasterizer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	binary := opts.PdftoppmPath
	if binary == "" {
		binary = ModePdftoppm
	}

	switch opts.Mode {
	case ModeNative:
		return NewNative(doc, logger), nil
	case ModePdftoppm:
		resolved := runner.LookPath(binary)
		if resolved == "" {
			return nil, fmt.Errorf("rasterizer %q not found", binary)
		}
		return NewPoppler(resolved, pdfPath, opts.Runner, logger), nil
	case ModeAuto, "":
		if resolved := runner.LookPath(binary); resolved != "" {
			return NewPoppler(resolved, pdfPath, opts.Runner, logger), nil
		}
		return NewNative(doc, logger), nil
	}
	return nil, fmt.Errorf("unknown rasterizer mode %q", opts.Mode)
}

// Render runs r for one page and reports every failure, panics included,
// as a *RenderError.
func Render(ctx context.Context, r Rasterizer, page model.PageInfo, dpi int) (img *image.RGBA, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			img, err = nil, &RenderError{Page: page.Number(), Cause: fmt.Errorf("%s backend panicked: %v", r.Name(), rec)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, &RenderError{Page: page.Number(), Cause: err}
	}
	img, err = r.Rasterize(ctx, page, dpi)
	if err != nil {
		var re *RenderError
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, &RenderError{Page: page.Number(), Cause: err}
	}
	return img, nil
}
