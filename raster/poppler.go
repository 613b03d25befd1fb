package raster

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"github.com/tsawler/drawpipe/internal/runner"
	"github.com/tsawler/drawpipe/model"
)

// Poppler renders pages with the pdftoppm command-line tool.
type Poppler struct {
	binary  string
	pdfPath string
	runner  runner.Runner
	logger  *slog.Logger
}

// NewPoppler uses binary to render pages of the PDF at pdfPath. A nil
// runner executes the real command.
func NewPoppler(binary, pdfPath string, r runner.Runner, logger *slog.Logger) *Poppler {
	if r == nil {
		r = runner.Exec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poppler{binary: binary, pdfPath: pdfPath, runner: r, logger: logger}
}

func (p *Poppler) Name() string { return ModePdftoppm }

func (p *Poppler) Rasterize(ctx context.Context, page model.PageInfo, dpi int) (*image.RGBA, error) {
	tmpDir, err := os.MkdirTemp("", "drawpipe-ppm-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	n := strconv.Itoa(page.Number())
	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := p.runner.Run(ctx, p.binary, p.logger,
		"-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-png", "-singlefile", p.pdfPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, runner.Truncate(strings.TrimSpace(string(errb)), 512))
	}

	f, err := os.Open(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image: %w", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pdftoppm output: %w", err)
	}
	return Opaque(decoded), nil
}

// Opaque flattens img onto white and returns it as RGBA with its origin
// at (0,0).
func Opaque(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}
