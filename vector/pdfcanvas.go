package vector

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/tsawler/drawpipe/model"
)

type segOp byte

const (
	segMove segOp = iota
	segLine
	segCurve
	segClose
)

type segment struct {
	op  segOp
	pts []model.Point
}

// PDFCanvas draws onto a single gofpdf page sized like the source page.
// Coordinates are page space points with a top-left origin, which is
// gofpdf's own convention for the "pt" unit.
type PDFCanvas struct {
	pdf  *gofpdf.Fpdf
	path string

	segs    []segment
	current model.Point
	open    bool // a subpath is in progress at current
}

// NewPDFCanvas starts a one-page document of width x height points.
// Commit writes it to path.
func NewPDFCanvas(width, height float64, path string) *PDFCanvas {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("drawpipe", true)
	pdf.AddPage()
	return &PDFCanvas{pdf: pdf, path: path}
}

func (c *PDFCanvas) moveIfNeeded(p model.Point) {
	if !c.open || c.current != p {
		c.segs = append(c.segs, segment{op: segMove, pts: []model.Point{p}})
	}
	c.open = true
	c.current = p
}

func (c *PDFCanvas) lineTo(p model.Point) {
	c.segs = append(c.segs, segment{op: segLine, pts: []model.Point{p}})
	c.current = p
}

func (c *PDFCanvas) closeSubpath() {
	c.segs = append(c.segs, segment{op: segClose})
	c.open = false
}

func (c *PDFCanvas) Line(p0, p1 model.Point) {
	c.moveIfNeeded(p0)
	c.lineTo(p1)
}

func (c *PDFCanvas) Rect(r model.Rect) {
	c.open = false
	c.moveIfNeeded(model.Point{X: r.X0, Y: r.Y0})
	c.lineTo(model.Point{X: r.X1, Y: r.Y0})
	c.lineTo(model.Point{X: r.X1, Y: r.Y1})
	c.lineTo(model.Point{X: r.X0, Y: r.Y1})
	c.closeSubpath()
}

// Quad is drawn as the closed polygon ul, ll, lr, ur.
func (c *PDFCanvas) Quad(q model.Quad) {
	c.open = false
	c.moveIfNeeded(q.UL)
	c.lineTo(q.LL)
	c.lineTo(q.LR)
	c.lineTo(q.UR)
	c.closeSubpath()
}

func (c *PDFCanvas) Curve(p0, c1, c2, p1 model.Point) {
	c.moveIfNeeded(p0)
	c.segs = append(c.segs, segment{op: segCurve, pts: []model.Point{c1, c2, p1}})
	c.current = p1
}

// Finish paints the accumulated path and starts a new one. A style with
// neither stroke nor fill color is stroked in opaque black.
func (c *PDFCanvas) Finish(style Style) {
	if len(c.segs) == 0 {
		return
	}
	if style.ClosePath && c.segs[len(c.segs)-1].op != segClose {
		c.closeSubpath()
	}

	stroke, fill := style.Color != nil, style.Fill != nil
	if !stroke && !fill {
		style.Color = &model.RGB{}
		style.StrokeOpacity = 1
		stroke = true
	}
	c.applyStyle(style)

	switch {
	case stroke && fill && style.StrokeOpacity == style.FillOpacity:
		c.paint(style.StrokeOpacity, fillOp("DF", style.EvenOdd))
	case stroke && fill:
		c.paint(style.FillOpacity, fillOp("F", style.EvenOdd))
		c.paint(style.StrokeOpacity, "D")
	case fill:
		c.paint(style.FillOpacity, fillOp("F", style.EvenOdd))
	default:
		c.paint(style.StrokeOpacity, "D")
	}

	c.segs = c.segs[:0]
	c.open = false
}

func fillOp(op string, evenOdd bool) string {
	if evenOdd {
		return op + "*"
	}
	return op
}

var (
	capNames  = [...]string{"butt", "round", "square"}
	joinNames = [...]string{"miter", "round", "bevel"}
)

func (c *PDFCanvas) applyStyle(s Style) {
	c.pdf.SetLineWidth(s.Width)
	c.pdf.SetLineCapStyle(capNames[s.LineCap])
	c.pdf.SetLineJoinStyle(joinNames[s.LineJoin])
	if s.Dash != nil {
		c.pdf.SetDashPattern(s.Dash.Array, s.Dash.Phase)
	} else {
		c.pdf.SetDashPattern([]float64{}, 0)
	}
	if s.Color != nil {
		r, g, b := rgb255(*s.Color)
		c.pdf.SetDrawColor(r, g, b)
	}
	if s.Fill != nil {
		r, g, b := rgb255(*s.Fill)
		c.pdf.SetFillColor(r, g, b)
	}
}

func (c *PDFCanvas) paint(alpha float64, op string) {
	c.pdf.SetAlpha(alpha, "Normal")
	for _, s := range c.segs {
		switch s.op {
		case segMove:
			c.pdf.MoveTo(s.pts[0].X, s.pts[0].Y)
		case segLine:
			c.pdf.LineTo(s.pts[0].X, s.pts[0].Y)
		case segCurve:
			c.pdf.CurveBezierCubicTo(s.pts[0].X, s.pts[0].Y, s.pts[1].X, s.pts[1].Y, s.pts[2].X, s.pts[2].Y)
		case segClose:
			c.pdf.ClosePath()
		}
	}
	c.pdf.DrawPath(op)
}

func rgb255(c model.RGB) (r, g, b int) {
	return int(c[0]*255 + 0.5), int(c[1]*255 + 0.5), int(c[2]*255 + 0.5)
}

// Commit writes the document to the canvas path, creating its directory.
func (c *PDFCanvas) Commit() error {
	if err := c.pdf.Error(); err != nil {
		return fmt.Errorf("failed to build vector page: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create vector directory: %w", err)
	}
	if err := c.pdf.OutputFileAndClose(c.path); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.path, err)
	}
	return nil
}

// Output writes the document to w instead of the canvas path.
func (c *PDFCanvas) Output(w io.Writer) error {
	if err := c.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write vector page: %w", err)
	}
	return nil
}
