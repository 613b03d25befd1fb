package drawpipe

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tsawler/drawpipe/model"
)

func TestExtractor_Immutable(t *testing.T) {
	base := Open("doc.pdf").Pages(1)
	a := base.Pages(2).DPI(150)
	b := base.Pages(3).NoVector()

	if !reflect.DeepEqual(base.config.Pages, []int{1}) {
		t.Errorf("expected base pages [1], got %v", base.config.Pages)
	}
	if !reflect.DeepEqual(a.config.Pages, []int{1, 2}) || a.config.DPI != 150 {
		t.Errorf("unexpected config for a: %+v", a.config)
	}
	if !reflect.DeepEqual(b.config.Pages, []int{1, 3}) || !b.config.Raster || b.config.Vector {
		t.Errorf("unexpected config for b: %+v", b.config)
	}
	if base.config.DPI != 300 || !base.config.Vector {
		t.Errorf("expected base to keep defaults, got %+v", base.config)
	}
}

func TestExtractor_Options(t *testing.T) {
	e := Open("doc.pdf").
		OutputDir("out").
		MinArea(500).
		Padding(4).
		JPEGQuality(80).
		PageRange(2, 4).
		Formats("tif").
		NoRaster().
		Rasterizer("native").
		NoTrace().
		Workbook()

	want := DefaultConfig()
	want.OutputDir = "out"
	want.MinArea = 500
	want.Padding = 4
	want.JPEGQuality = 80
	want.Pages = []int{2, 3, 4}
	want.Formats = []string{"tif"}
	want.Raster = false
	want.Rasterizer = "native"
	want.Trace = TraceOff
	want.Workbook = true
	if !reflect.DeepEqual(e.config, want) {
		t.Errorf("config = %+v, want %+v", e.config, want)
	}

	cfg := DefaultConfig()
	cfg.DPI = 72
	if got := Open("x.pdf").Config(cfg).config.DPI; got != 72 {
		t.Errorf("expected Config to replace the settings, got dpi %d", got)
	}
}

func TestExtractor_Errors(t *testing.T) {
	if _, err := Open("doc.pdf").PageRange(5, 2).Run(context.Background()); err == nil {
		t.Error("expected error for reversed page range")
	}
	if _, err := Open("").Run(context.Background()); err == nil {
		t.Error("expected error without a filename")
	}
	if _, err := Open("nonexistent.pdf").PageCount(); err == nil {
		t.Error("expected error for non-existent file")
	}
	if _, err := Open("doc.pdf").DPI(-1).Run(context.Background()); err == nil {
		t.Error("expected invalid dpi to be rejected")
	}
}

func TestExtractor_Reading(t *testing.T) {
	pdf := writePDF(t, rectangle, "1 0 0 RG 0 0 m 200 100 l S")
	ext := Open(pdf)
	defer ext.Close()

	count, err := ext.PageCount()
	if err != nil || count != 2 {
		t.Fatalf("expected 2 pages, got %d (%v)", count, err)
	}

	info, err := ext.PageInfo(2)
	if err != nil {
		t.Fatalf("PageInfo failed: %v", err)
	}
	if info.Index != 1 || info.Width != 200 || info.Height != 100 {
		t.Errorf("unexpected page info %+v", info)
	}

	paths, err := ext.DrawPaths(1)
	if err != nil {
		t.Fatalf("DrawPaths failed: %v", err)
	}
	if len(paths) != 1 || len(paths[0].Items) != 1 || paths[0].Items[0].Kind != model.KindRect {
		t.Fatalf("expected a single rectangle, got %+v", paths)
	}
	if r := paths[0].Items[0].Rect; r.X0 != 10 || r.Y0 != 40 || r.X1 != 110 || r.Y1 != 90 {
		t.Errorf("expected rectangle in top-left page space, got %+v", r)
	}

	if _, err := ext.PageInfo(3); err == nil {
		t.Error("expected error for page 3")
	}
	if err := ext.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := ext.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestExtractor_Run(t *testing.T) {
	pdf := writePDF(t, rectangle)
	out := filepath.Join(t.TempDir(), "out")

	summary, err := Open(pdf).OutputDir(out).Rasterizer("native").NoTrace().Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.RegionsFound != 1 {
		t.Errorf("expected 1 region, got %d", summary.RegionsFound)
	}
	if _, err := os.Stat(filepath.Join(out, "drawings_info.json")); err != nil {
		t.Errorf("expected manifest: %v", err)
	}
}
