package vector

import (
	"fmt"

	"github.com/tsawler/drawpipe/model"
)

// Canvas receives the shapes of one page. Item calls accumulate a path,
// Finish paints it with a style, Commit completes the page.
type Canvas interface {
	Line(p0, p1 model.Point)
	Rect(r model.Rect)
	Quad(q model.Quad)
	Curve(p0, c1, c2, p1 model.Point)
	Finish(style Style)
	Commit() error
}

// Call is one recorded canvas call.
type Call struct {
	Op     string
	Points []model.Point
	Rect   *model.Rect
	Style  *Style
}

func (c Call) String() string {
	switch {
	case c.Rect != nil:
		return fmt.Sprintf("%s %v", c.Op, *c.Rect)
	case c.Style != nil:
		return fmt.Sprintf("%s %+v", c.Op, *c.Style)
	case len(c.Points) > 0:
		return fmt.Sprintf("%s %v", c.Op, c.Points)
	}
	return c.Op
}

// RecordingCanvas keeps every call instead of drawing.
type RecordingCanvas struct {
	Calls   []Call
	Commits int
}

func (rc *RecordingCanvas) Line(p0, p1 model.Point) {
	rc.Calls = append(rc.Calls, Call{Op: "line", Points: []model.Point{p0, p1}})
}

func (rc *RecordingCanvas) Rect(r model.Rect) {
	rc.Calls = append(rc.Calls, Call{Op: "rect", Rect: &r})
}

func (rc *RecordingCanvas) Quad(q model.Quad) {
	rc.Calls = append(rc.Calls, Call{Op: "quad", Points: []model.Point{q.UL, q.UR, q.LL, q.LR}})
}

func (rc *RecordingCanvas) Curve(p0, c1, c2, p1 model.Point) {
	rc.Calls = append(rc.Calls, Call{Op: "curve", Points: []model.Point{p0, c1, c2, p1}})
}

func (rc *RecordingCanvas) Finish(style Style) {
	rc.Calls = append(rc.Calls, Call{Op: "finish", Style: &style})
}

func (rc *RecordingCanvas) Commit() error {
	rc.Commits++
	return nil
}
