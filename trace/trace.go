// Package trace vectorizes cleaned drawings with the potrace command-line
// tool when it is installed. Its absence is a missing capability, not an
// error: Probe reports it once and callers skip SVG output.
package trace

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/bmp"

	"github.com/tsawler/drawpipe/internal/runner"
)

// ErrUnavailable is returned by Trace when potrace could not be found.
var ErrUnavailable = errors.New("potrace is not available")

// Availability is the outcome of probing for the vectorizer.
type Availability int

const (
	Unavailable Availability = iota
	Available
)

func (a Availability) String() string {
	if a == Available {
		return "available"
	}
	return "unavailable"
}

// Tracer runs potrace. The zero value is not usable; call New.
type Tracer struct {
	binary string
	runner runner.Runner
	logger *slog.Logger
	look   func(string) string

	once  sync.Once
	avail Availability
	path  string
}

// New returns a tracer for binary, "potrace" when empty. A nil runner
// executes the real command.
func New(binary string, r runner.Runner, logger *slog.Logger) *Tracer {
	if binary == "" {
		binary = "potrace"
	}
	if r == nil {
		r = runner.Exec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{binary: binary, runner: r, logger: logger, look: runner.LookPath}
}

// Probe checks once whether potrace can be run and remembers the answer
// for the life of the tracer.
func (t *Tracer) Probe(ctx context.Context) Availability {
	t.once.Do(func() {
		path := t.look(t.binary)
		if path == "" {
			t.logger.Info("trace.probe", "available", false, "binary", t.binary, "reason", "not found")
			return
		}
		if _, errb, err := t.runner.Run(ctx, path, t.logger, "--version"); err != nil {
			t.logger.Info("trace.probe", "available", false, "binary", path,
				"error", err, "stderr", runner.Truncate(strings.TrimSpace(string(errb)), 256))
			return
		}
		t.avail, t.path = Available, path
		t.logger.Info("trace.probe", "available", true, "binary", path)
	})
	return t.avail
}

// Trace writes an SVG outline of img to outSVG. Dark pixels become filled
// shapes.
func (t *Tracer) Trace(ctx context.Context, img image.Image, outSVG string) error {
	if t.Probe(ctx) != Available {
		return ErrUnavailable
	}

	tmpDir, err := os.MkdirTemp("", "drawpipe-trace-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	in := filepath.Join(tmpDir, "region.bmp")
	if err := writeBMP(in, img); err != nil {
		return err
	}
	if _, errb, err := t.runner.Run(ctx, t.path, t.logger, "-s", "-o", outSVG, in); err != nil {
		return fmt.Errorf("potrace failed: %w: %s", err, runner.Truncate(strings.TrimSpace(string(errb)), 512))
	}
	if _, err := os.Stat(outSVG); err != nil {
		return fmt.Errorf("potrace produced no output: %w", err)
	}
	return nil
}

func writeBMP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create bitmap: %w", err)
	}
	if err := bmp.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode bitmap: %w", err)
	}
	return f.Close()
}
