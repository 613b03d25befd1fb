package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tsawler/drawpipe/model"
	"github.com/tsawler/drawpipe/vector"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errb bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSamplePDF(t *testing.T) string {
	t.Helper()
	content := "0 g 10 10 100 50 re f"
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(t.TempDir(), "plans.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeDump(t *testing.T, d vector.Dump) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paths.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := vector.EncodeDump(f, d); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "text", false},
		{"debug", "json", false},
		{"WARN", "JSON", false},
		{"loud", "text", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			_, err := newLogger(&bytes.Buffer{}, tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractCommand(t *testing.T) {
	pdf := writeSamplePDF(t)
	dir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "extract", pdf, "--output-dir", dir, "--rasterizer", "native", "--trace", "off", "--log-level", "error")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if !strings.Contains(out, "Processed 1 pages (0 failed), 1 drawings, 1 vector pages") {
		t.Errorf("unexpected summary:\n%s", out)
	}
	for _, name := range []string{"drawings_info.json", "vectors/page_1.pdf", "drawings/page_1_drawing_1.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	if _, err := execute(t, "extract", pdf, "--output-dir", dir, "--dpi", "0"); err == nil {
		t.Error("expected invalid dpi to fail")
	}
	if _, err := execute(t, "extract", pdf, "--log-format", "xml"); err == nil {
		t.Error("expected invalid log format to fail")
	}
}

func TestPathsCommand(t *testing.T) {
	pdf := writeSamplePDF(t)

	out, err := execute(t, "paths", pdf, "--page", "1")
	if err != nil {
		t.Fatalf("paths failed: %v", err)
	}
	d, err := vector.DecodeDump(strings.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a path dump: %v\n%s", err, out)
	}
	if d.Page != 1 || d.Width != 200 || d.Height != 100 || len(d.Paths) != 1 {
		t.Errorf("unexpected dump %+v", d)
	}

	if _, err := execute(t, "paths", pdf, "--page", "2"); err == nil {
		t.Error("expected error for a missing page")
	}
}

func TestRedrawCommand(t *testing.T) {
	dump := writeDump(t, vector.Dump{
		Page:   1,
		Width:  200,
		Height: 100,
		Paths: []model.DrawPath{{
			Items: []model.DrawItem{
				model.Rectangle(model.Rect{X0: 10, Y0: 40, X1: 110, Y1: 90}),
				model.Line(model.Point{X: 0, Y: 0}, model.Point{X: 200, Y: 100}),
			},
		}},
	})

	t.Run("dry run", func(t *testing.T) {
		out, err := execute(t, "redraw", dump, "--dry-run")
		if err != nil {
			t.Fatalf("redraw failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected 4 lines, got:\n%s", out)
		}
		for i, prefix := range []string{"rect ", "line ", "finish ", "commit (1 paths)"} {
			if !strings.HasPrefix(lines[i], prefix) {
				t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
			}
		}
	})

	t.Run("pdf", func(t *testing.T) {
		pdf := filepath.Join(t.TempDir(), "redrawn.pdf")
		if _, err := execute(t, "redraw", dump, "-o", pdf, "--width", "300"); err != nil {
			t.Fatalf("redraw failed: %v", err)
		}
		data, err := os.ReadFile(pdf)
		if err != nil || !bytes.HasPrefix(data, []byte("%PDF-")) {
			t.Errorf("expected a pdf, got err %v", err)
		}
	})

	t.Run("missing output", func(t *testing.T) {
		if _, err := execute(t, "redraw", dump); err == nil {
			t.Error("expected error without --output")
		}
	})

	t.Run("format violation", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(bad, []byte(`[{"items": [{"kind": "arc"}]}]`), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := execute(t, "redraw", bad, "--dry-run")
		if err == nil || !strings.Contains(err.Error(), "arc") {
			t.Errorf("expected format violation naming the tag, got %v", err)
		}
	})
}

func TestProbeCommand(t *testing.T) {
	out, err := execute(t, "probe", "--pdftoppm", "no-such-pdftoppm", "--potrace", "no-such-potrace")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !strings.Contains(out, "pdftoppm: unavailable") || !strings.Contains(out, "potrace:  unavailable") {
		t.Errorf("unexpected probe output:\n%s", out)
	}
}
