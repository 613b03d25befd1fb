package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/tsawler/drawpipe/model"
	"github.com/tsawler/drawpipe/reader"
)

func buildPDF(objs []string) []byte {
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
	return buf.Bytes()
}

func stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// samplePage is 200x100pt: a black rectangle, a red 4pt line and a
// two-pixel red/blue image.
func samplePage(t *testing.T) (*reader.Reader, model.PageInfo) {
	t.Helper()
	content := "0 g 10 30 100 50 re f 1 0 0 RG 4 w 0 50 m 200 50 l S q 20 0 0 10 150 10 cm /Im0 Do Q"
	data := buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] /Contents 4 0 R /Resources << /XObject << /Im0 5 0 R >> >> >>",
		stream("", content),
		stream("/Type /XObject /Subtype /Image /Width 2 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8", "\xff\x00\x00\x00\x00\xff"),
	})
	r, err := reader.FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	info, err := r.PageInfo(0)
	if err != nil {
		t.Fatalf("PageInfo failed: %v", err)
	}
	return r, info
}

// near allows for rounding in coverage and interpolation.
func near(a, b color.RGBA) bool {
	diff := func(x, y uint8) bool {
		d := int(x) - int(y)
		return d >= -3 && d <= 3
	}
	return diff(a.R, b.R) && diff(a.G, b.G) && diff(a.B, b.B) && diff(a.A, b.A)
}

func TestNative_Rasterize(t *testing.T) {
	doc, page := samplePage(t)
	img, err := Render(context.Background(), NewNative(doc, nil), page, 72)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("expected 200x100 image, got %v", b)
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"background", 5, 5, color.RGBA{255, 255, 255, 255}},
		{"rectangle", 30, 40, color.RGBA{0, 0, 0, 255}},
		{"line over rectangle", 60, 50, color.RGBA{255, 0, 0, 255}},
		{"line", 180, 50, color.RGBA{255, 0, 0, 255}},
		{"below rectangle", 50, 75, color.RGBA{255, 255, 255, 255}},
		{"image left", 152, 85, color.RGBA{255, 0, 0, 255}},
		{"image right", 167, 85, color.RGBA{0, 0, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := img.RGBAAt(tt.x, tt.y); !near(got, tt.want) {
				t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}

	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			t.Fatalf("expected opaque output, found alpha %d", img.Pix[i])
		}
	}
}

func TestNative_Scale(t *testing.T) {
	doc, page := samplePage(t)
	img, err := Render(context.Background(), NewNative(doc, nil), page, 144)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Fatalf("expected 400x200 image, got %v", b)
	}
	if got := img.RGBAAt(210, 120); !near(got, color.RGBA{0, 0, 0, 255}) {
		t.Errorf("expected scaled rectangle at (210,120), got %v", got)
	}
	if got := img.RGBAAt(230, 120); !near(got, color.RGBA{255, 255, 255, 255}) {
		t.Errorf("expected background right of the rectangle, got %v", got)
	}
}

func TestNative_DamagedContent(t *testing.T) {
	data := buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 50 50] /Contents 4 0 R >>",
		stream("", "0 0 m 10 10 l S (broken"),
	})
	doc, err := reader.FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	page, _ := doc.PageInfo(0)

	_, err = Render(context.Background(), NewNative(doc, nil), page, 72)
	if !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("expected render failure, got %v", err)
	}
	var re *RenderError
	if !errors.As(err, &re) || re.Page != 1 {
		t.Errorf("expected RenderError for page 1, got %v", err)
	}
}

func TestStrokeOutline(t *testing.T) {
	line := []polyline{{pts: []model.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}}}

	butt := strokeOutline(line, 0.2, 0)
	// two segments and one round join; thin strokes are widened to a pixel
	if len(butt) != 3 {
		t.Fatalf("expected 3 polygons, got %d", len(butt))
	}
	if d := butt[0].pts[0].Distance(butt[0].pts[3]); d < 0.999 || d > 1.001 {
		t.Errorf("expected minimum width 1, got %v", d)
	}

	round := strokeOutline(line, 2, 1)
	if len(round) != 5 {
		t.Errorf("expected caps at both ends, got %d polygons", len(round))
	}

	square := strokeOutline(line, 2, 2)
	if square[0].pts[0].X != -1 {
		t.Errorf("expected square cap to extend the start, got %v", square[0].pts[0])
	}
}

func TestClipPolygon(t *testing.T) {
	square := []model.Point{{X: -5, Y: -5}, {X: 5, Y: -5}, {X: 5, Y: 5}, {X: -5, Y: 5}}
	got := clipPolygon(square, model.Rect{X1: 10, Y1: 10})
	if len(got) != 4 {
		t.Fatalf("expected 4 points, got %v", got)
	}
	for _, p := range got {
		if p.X < 0 || p.Y < 0 || p.X > 5 || p.Y > 5 {
			t.Errorf("point %v outside the clip", p)
		}
	}
	if out := clipPolygon(square, model.Rect{X0: 20, Y0: 20, X1: 30, Y1: 30}); len(out) != 0 {
		t.Errorf("expected nothing inside a disjoint clip, got %v", out)
	}
}

type fakeRasterizer struct {
	img    *image.RGBA
	err    error
	panics bool
}

func (f *fakeRasterizer) Name() string { return "fake" }

func (f *fakeRasterizer) Rasterize(ctx context.Context, page model.PageInfo, dpi int) (*image.RGBA, error) {
	if f.panics {
		panic("boom")
	}
	return f.img, f.err
}

func TestRender_Errors(t *testing.T) {
	page := model.PageInfo{Index: 2, Width: 10, Height: 10}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		r    *fakeRasterizer
		msg  string
	}{
		{"backend error", context.Background(), &fakeRasterizer{err: errors.New("corrupt page")}, "corrupt page"},
		{"panic", context.Background(), &fakeRasterizer{panics: true}, "panicked: boom"},
		{"cancelled", cancelled, &fakeRasterizer{}, "context canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Render(tt.ctx, tt.r, page, 72)
			if img != nil {
				t.Error("expected no image")
			}
			if !errors.Is(err, ErrRenderFailure) {
				t.Fatalf("expected ErrRenderFailure, got %v", err)
			}
			var re *RenderError
			if !errors.As(err, &re) || re.Page != 3 {
				t.Errorf("expected page 3, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("expected %q in %q", tt.msg, err.Error())
			}
		})
	}
}

type fakeRunner struct {
	args   []string
	img    image.Image
	stderr string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.args = append([]string{name}, args...)
	if f.err != nil {
		return nil, []byte(f.stderr), f.err
	}
	out, err := os.Create(args[len(args)-1] + ".png")
	if err != nil {
		return nil, nil, err
	}
	defer out.Close()
	return nil, nil, png.Encode(out, f.img)
}

func TestPoppler_Rasterize(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.SetNRGBA(1, 1, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	// fully transparent pixels come back white

	fr := &fakeRunner{img: src}
	p := NewPoppler("pdftoppm", "in.pdf", fr, nil)
	img, err := Render(context.Background(), p, model.PageInfo{Index: 1}, 300)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "pdftoppm -r 300 -f 2 -l 2 -png -singlefile in.pdf"
	if got := strings.Join(fr.args[:len(fr.args)-1], " "); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("expected 4x3 image, got %v", b)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("expected white background, got %v", got)
	}
	if got := img.RGBAAt(1, 1); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("expected black pixel, got %v", got)
	}
}

func TestPoppler_Failure(t *testing.T) {
	fr := &fakeRunner{err: errors.New("exit status 1"), stderr: "Syntax Error: broken xref\n"}
	_, err := Render(context.Background(), NewPoppler("pdftoppm", "in.pdf", fr, nil), model.PageInfo{}, 300)
	if !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("expected render failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken xref") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	doc, _ := samplePage(t)

	r, err := New(doc, "in.pdf", Options{Mode: ModeNative})
	if err != nil || r.Name() != ModeNative {
		t.Errorf("expected native backend, got %v, %v", r, err)
	}

	r, err = New(doc, "in.pdf", Options{Mode: ModeAuto, PdftoppmPath: "drawpipe-no-such-pdftoppm"})
	if err != nil || r.Name() != ModeNative {
		t.Errorf("expected auto to fall back to native, got %v, %v", r, err)
	}

	if _, err := New(doc, "in.pdf", Options{Mode: ModePdftoppm, PdftoppmPath: "drawpipe-no-such-pdftoppm"}); err == nil {
		t.Error("expected error for a missing pdftoppm")
	}
	if _, err := New(doc, "in.pdf", Options{Mode: "cairo"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}
