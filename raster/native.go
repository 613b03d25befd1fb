package raster

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"github.com/tsawler/drawpipe/core"
	"github.com/tsawler/drawpipe/graphicsstate"
	"github.com/tsawler/drawpipe/model"
	"github.com/tsawler/drawpipe/reader"
)

// Document is what the native renderer needs from an open PDF.
type Document interface {
	RunPage(index int, handler graphicsstate.Handler, base model.Matrix) error
	LoadImage(stream *core.Stream) (*reader.PageImage, error)
}

// Native paints path fills, strokes and images in pure Go. Text, shadings
// and clipping are not rendered; even-odd fills use the nonzero rule.
type Native struct {
	doc    Document
	logger *slog.Logger
}

func NewNative(doc Document, logger *slog.Logger) *Native {
	if logger == nil {
		logger = slog.Default()
	}
	return &Native{doc: doc, logger: logger}
}

func (n *Native) Name() string { return ModeNative }

func (n *Native) Rasterize(ctx context.Context, page model.PageInfo, dpi int) (*image.RGBA, error) {
	w, h := page.PixelSize(dpi)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	p := &painter{
		dst:    dst,
		ras:    vector.NewRasterizer(w, h),
		doc:    n.doc,
		logger: n.logger.With("page", page.Number()),
	}
	if err := n.doc.RunPage(page.Index, p, page.DeviceMatrix(dpi)); err != nil {
		return nil, err
	}
	return dst, ctx.Err()
}

// painter receives paint events in device space from the content
// processor and draws them onto dst.
type painter struct {
	dst    *image.RGBA
	ras    *vector.Rasterizer
	doc    Document
	logger *slog.Logger
}

var _ graphicsstate.Handler = (*painter)(nil)

// polyline is a flattened subpath in device pixels.
type polyline struct {
	pts    []model.Point
	closed bool
}

func (p *painter) PaintPath(path *graphicsstate.Path, paint graphicsstate.Paint, gs *graphicsstate.GraphicsState) {
	lines := flatten(path, gs.CTM)
	if len(lines) == 0 {
		return
	}
	if paint.Fill {
		p.fill(lines, uniform(gs.FillColor, gs.FillAlpha))
	}
	if paint.Stroke {
		p.fill(strokeOutline(lines, gs.StrokeWidth(), gs.LineCap), uniform(gs.StrokeColor, gs.StrokeAlpha))
	}
}

func uniform(c model.RGB, alpha float64) *image.Uniform {
	return image.NewUniform(color.NRGBA{R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: unit8(alpha)})
}

func unit8(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// fill paints the polygons with the nonzero rule.
func (p *painter) fill(polys []polyline, src image.Image) {
	b := p.dst.Bounds()
	clip := model.Rect{X1: float64(b.Dx()), Y1: float64(b.Dy())}

	p.ras.Reset(b.Dx(), b.Dy())
	p.ras.DrawOp = draw.Over
	drawn := false
	for _, poly := range polys {
		pts := clipPolygon(poly.pts, clip)
		if len(pts) < 3 {
			continue
		}
		p.ras.MoveTo(float32(pts[0].X), float32(pts[0].Y))
		for _, pt := range pts[1:] {
			p.ras.LineTo(float32(pt.X), float32(pt.Y))
		}
		p.ras.ClosePath()
		drawn = true
	}
	if drawn {
		p.ras.Draw(p.dst, b, src, image.Point{})
	}
}

func (p *painter) PaintImage(stream *core.Stream, gs *graphicsstate.GraphicsState) {
	img, err := p.doc.LoadImage(stream)
	if err != nil {
		p.logger.Debug("image skipped", "error", err)
		return
	}
	m := gs.CTM
	if m.Determinant() == 0 {
		return
	}

	// image space is the unit square with row 0 at the top
	w, h := float64(img.Width), float64(img.Height)
	aff := f64.Aff3{
		m[0] / w, -m[2] / h, m[2] + m[4],
		m[1] / w, -m[3] / h, m[3] + m[5],
	}

	if img.Stencil {
		mask, err := img.ToStencil()
		if err != nil {
			p.logger.Debug("image mask skipped", "error", err)
			return
		}
		draw.BiLinear.Transform(p.dst, aff, uniform(gs.FillColor, gs.FillAlpha), mask.Bounds(), draw.Over,
			&draw.Options{SrcMask: mask})
		return
	}

	src, err := img.ToImage()
	if err != nil {
		p.logger.Debug("image skipped", "error", err)
		return
	}
	draw.BiLinear.Transform(p.dst, aff, src, src.Bounds(), draw.Over, nil)
}

// flatten converts a user space path to device space polylines, with
// curves subdivided.
func flatten(path *graphicsstate.Path, m model.Matrix) []polyline {
	var out []polyline
	var cur *polyline
	var last model.Point

	start := func(pt model.Point) {
		out = append(out, polyline{pts: []model.Point{pt}})
		cur = &out[len(out)-1]
	}

	for _, seg := range path.Segments {
		switch seg.Type {
		case graphicsstate.PathMoveTo:
			last = m.Transform(seg.Points[0])
			start(last)
		case graphicsstate.PathLineTo:
			if cur == nil {
				start(last)
			}
			last = m.Transform(seg.Points[0])
			cur.pts = append(cur.pts, last)
		case graphicsstate.PathCurveTo:
			if cur == nil {
				start(last)
			}
			c1, c2, end := m.Transform(seg.Points[0]), m.Transform(seg.Points[1]), m.Transform(seg.Points[2])
			cur.pts = appendCubic(cur.pts, last, c1, c2, end)
			last = end
		case graphicsstate.PathClosePath:
			if cur != nil {
				cur.closed = true
				last = cur.pts[0]
				cur = nil
			}
		case graphicsstate.PathRect:
			rect := polyline{closed: true}
			for _, pt := range seg.Points {
				rect.pts = append(rect.pts, m.Transform(pt))
			}
			out = append(out, rect)
			last = rect.pts[0]
			cur = nil
		}
	}
	return out
}

// appendCubic appends the flattened curve after p0.
func appendCubic(pts []model.Point, p0, c1, c2, p1 model.Point) []model.Point {
	length := p0.Distance(c1) + c1.Distance(c2) + c2.Distance(p1)
	n := int(math.Ceil(length / 4))
	if n < 4 {
		n = 4
	} else if n > 64 {
		n = 64
	}
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		pts = append(pts, model.Point{
			X: a*p0.X + b*c1.X + c*c2.X + d*p1.X,
			Y: a*p0.Y + b*c1.Y + c*c2.Y + d*p1.Y,
		})
	}
	return pts
}

// strokeOutline turns polylines into polygons covering their stroke. Every
// polygon winds the same way so overlaps never cancel under the nonzero
// rule. Joins are rounded; strokes are at least one pixel wide.
func strokeOutline(lines []polyline, width float64, lineCap int) []polyline {
	if width < 1 || math.IsNaN(width) {
		width = 1
	}
	hw := width / 2

	var out []polyline
	for _, l := range lines {
		pts := l.pts
		if l.closed && len(pts) > 1 && pts[0] != pts[len(pts)-1] {
			pts = append(append([]model.Point(nil), pts...), pts[0])
		}
		for i := 0; i+1 < len(pts); i++ {
			if q, ok := segmentQuad(pts[i], pts[i+1], hw, extension(l.closed, lineCap, i, len(pts))); ok {
				out = append(out, q)
			}
		}
		for i, pt := range pts {
			interior := l.closed || (i > 0 && i < len(pts)-1)
			if interior || lineCap == graphicsstate.CapRound {
				out = append(out, disc(pt, hw))
			}
		}
	}
	return out
}

// extension reports which ends of segment i a square cap extends.
func extension(closed bool, lineCap, i, n int) [2]bool {
	if closed || lineCap != graphicsstate.CapSquare {
		return [2]bool{}
	}
	return [2]bool{i == 0, i+2 == n}
}

func segmentQuad(a, b model.Point, hw float64, ext [2]bool) (polyline, bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return polyline{}, false
	}
	ux, uy := dx/length, dy/length
	if ext[0] {
		a = model.Point{X: a.X - ux*hw, Y: a.Y - uy*hw}
	}
	if ext[1] {
		b = model.Point{X: b.X + ux*hw, Y: b.Y + uy*hw}
	}
	nx, ny := -uy*hw, ux*hw
	return polyline{closed: true, pts: []model.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}}, true
}

// disc approximates a circle with a 12-gon wound like segmentQuad.
func disc(c model.Point, r float64) polyline {
	const n = 12
	poly := polyline{closed: true, pts: make([]model.Point, n)}
	for i := 0; i < n; i++ {
		a := -2 * math.Pi * float64(i) / n
		poly.pts[i] = model.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return poly
}

// clipPolygon clips a closed polygon to r (Sutherland-Hodgman). Clipping
// each subpath separately keeps nonzero coverage inside r unchanged.
func clipPolygon(pts []model.Point, r model.Rect) []model.Point {
	type edge struct {
		inside func(model.Point) bool
		cross  func(a, b model.Point) model.Point
	}
	atX := func(a, b model.Point, x float64) model.Point {
		t := (x - a.X) / (b.X - a.X)
		return model.Point{X: x, Y: a.Y + t*(b.Y-a.Y)}
	}
	atY := func(a, b model.Point, y float64) model.Point {
		t := (y - a.Y) / (b.Y - a.Y)
		return model.Point{X: a.X + t*(b.X-a.X), Y: y}
	}
	edges := []edge{
		{func(p model.Point) bool { return p.X >= r.X0 }, func(a, b model.Point) model.Point { return atX(a, b, r.X0) }},
		{func(p model.Point) bool { return p.X <= r.X1 }, func(a, b model.Point) model.Point { return atX(a, b, r.X1) }},
		{func(p model.Point) bool { return p.Y >= r.Y0 }, func(a, b model.Point) model.Point { return atY(a, b, r.Y0) }},
		{func(p model.Point) bool { return p.Y <= r.Y1 }, func(a, b model.Point) model.Point { return atY(a, b, r.Y1) }},
	}

	out := pts
	for _, e := range edges {
		if len(out) == 0 {
			break
		}
		in := out
		out = nil
		prev := in[len(in)-1]
		for _, p := range in {
			switch {
			case e.inside(p):
				if !e.inside(prev) {
					out = append(out, e.cross(prev, p))
				}
				out = append(out, p)
			case e.inside(prev):
				out = append(out, e.cross(prev, p))
			}
			prev = p
		}
	}
	return out
}
