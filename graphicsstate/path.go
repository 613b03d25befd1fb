package graphicsstate

import (
	"math"

	"github.com/tsawler/drawpipe/model"
)

// PathSegmentType defines the type of path segment
type PathSegmentType int

const (
	// PathMoveTo starts a new subpath
	PathMoveTo PathSegmentType = iota
	// PathLineTo draws a line to a point
	PathLineTo
	// PathCurveTo draws a cubic Bézier curve
	PathCurveTo
	// PathClosePath closes the current subpath
	PathClosePath
	// PathRect is a complete rectangular subpath from the re operator
	PathRect
)

// PathSegment represents a single segment of a path
type PathSegment struct {
	Type PathSegmentType

	// MoveTo, LineTo: the point
	// CurveTo: control point 1, control point 2, end point
	// Rect: corners (x,y), (x+w,y), (x+w,y+h), (x,y+h)
	Points []model.Point
}

// Path represents a graphics path being constructed, in user space.
type Path struct {
	Segments []PathSegment

	CurrentPoint    model.Point
	SubpathStart    model.Point
	HasCurrentPoint bool
}

// NewPath creates a new empty path
func NewPath() *Path {
	return &Path{
		Segments: make([]PathSegment, 0),
	}
}

// MoveTo starts a new subpath at the specified point (m operator)
func (p *Path) MoveTo(x, y float64) {
	pt := model.Point{X: x, Y: y}
	p.Segments = append(p.Segments, PathSegment{
		Type:   PathMoveTo,
		Points: []model.Point{pt},
	})
	p.CurrentPoint = pt
	p.SubpathStart = pt
	p.HasCurrentPoint = true
}

// LineTo appends a line segment from current point to (x, y) (l operator)
func (p *Path) LineTo(x, y float64) {
	if !p.HasCurrentPoint {
		p.MoveTo(x, y)
		return
	}

	pt := model.Point{X: x, Y: y}
	p.Segments = append(p.Segments, PathSegment{
		Type:   PathLineTo,
		Points: []model.Point{pt},
	})
	p.CurrentPoint = pt
}

// CurveTo appends a cubic Bézier curve (c operator)
func (p *Path) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	if !p.HasCurrentPoint {
		p.MoveTo(x1, y1)
	}

	p.Segments = append(p.Segments, PathSegment{
		Type: PathCurveTo,
		Points: []model.Point{
			{X: x1, Y: y1},
			{X: x2, Y: y2},
			{X: x3, Y: y3},
		},
	})
	p.CurrentPoint = model.Point{X: x3, Y: y3}
}

// CurveToV appends a curve whose first control point is the current point (v operator)
func (p *Path) CurveToV(x2, y2, x3, y3 float64) {
	if !p.HasCurrentPoint {
		return
	}
	p.CurveTo(p.CurrentPoint.X, p.CurrentPoint.Y, x2, y2, x3, y3)
}

// CurveToY appends a curve whose second control point is the end point (y operator)
func (p *Path) CurveToY(x1, y1, x3, y3 float64) {
	if !p.HasCurrentPoint {
		return
	}
	p.CurveTo(x1, y1, x3, y3, x3, y3)
}

// ClosePath closes the current subpath (h operator)
func (p *Path) ClosePath() {
	if !p.HasCurrentPoint {
		return
	}
	p.Segments = append(p.Segments, PathSegment{Type: PathClosePath})
	p.CurrentPoint = p.SubpathStart
}

// Rectangle appends a rectangle as a complete subpath (re operator)
func (p *Path) Rectangle(x, y, width, height float64) {
	origin := model.Point{X: x, Y: y}
	p.Segments = append(p.Segments, PathSegment{
		Type: PathRect,
		Points: []model.Point{
			origin,
			{X: x + width, Y: y},
			{X: x + width, Y: y + height},
			{X: x, Y: y + height},
		},
	})
	p.CurrentPoint = origin
	p.SubpathStart = origin
	p.HasCurrentPoint = true
}

// IsEmpty returns true if the path has no segments
func (p *Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// Closed reports whether the last subpath was closed, either by h or
// because it is a rectangle.
func (p *Path) Closed() bool {
	if len(p.Segments) == 0 {
		return false
	}
	t := p.Segments[len(p.Segments)-1].Type
	return t == PathClosePath || t == PathRect
}

// closeTolerance is the distance below which a closing segment is
// degenerate and not emitted as a line item.
const closeTolerance = 1e-6

// Items converts the path into draw items with every point mapped through
// m. Rectangles stay rectangles only while m keeps them axis-aligned;
// otherwise they become quads. Moves produce no item.
func (p *Path) Items(m model.Matrix) []model.DrawItem {
	var items []model.DrawItem
	var cur, start model.Point

	for _, seg := range p.Segments {
		switch seg.Type {
		case PathMoveTo:
			cur = m.Transform(seg.Points[0])
			start = cur

		case PathLineTo:
			pt := m.Transform(seg.Points[0])
			items = append(items, model.Line(cur, pt))
			cur = pt

		case PathCurveTo:
			c1 := m.Transform(seg.Points[0])
			c2 := m.Transform(seg.Points[1])
			end := m.Transform(seg.Points[2])
			items = append(items, model.Curve(cur, c1, c2, end))
			cur = end

		case PathClosePath:
			if cur.Distance(start) > closeTolerance {
				items = append(items, model.Line(cur, start))
			}
			cur = start

		case PathRect:
			var c [4]model.Point
			for i, pt := range seg.Points {
				c[i] = m.Transform(pt)
			}
			if axisAligned(m) {
				items = append(items, model.Rectangle(model.NewRectFromPoints(c[0], c[2])))
			} else {
				// corners in page space, where y grows downward
				items = append(items, model.QuadItem(model.Quad{UL: c[3], UR: c[2], LL: c[0], LR: c[1]}))
			}
			cur = c[0]
			start = cur
		}
	}
	return items
}

// axisAligned reports whether m maps axis-aligned rectangles to
// axis-aligned rectangles (no rotation other than multiples of 90°, no
// shear).
func axisAligned(m model.Matrix) bool {
	const eps = 1e-9
	return (math.Abs(m[1]) < eps && math.Abs(m[2]) < eps) ||
		(math.Abs(m[0]) < eps && math.Abs(m[3]) < eps)
}
