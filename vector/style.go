package vector

import (
	"math"

	"github.com/tsawler/drawpipe/model"
)

// Line cap and join codes, as used by PDF.
const (
	CapButt   = 0
	CapRound  = 1
	CapSquare = 2

	JoinMiter = 0
	JoinRound = 1
	JoinBevel = 2
)

// Style is a path style with every value present and in range.
type Style struct {
	Fill          *model.RGB  // nil: not filled
	Color         *model.RGB  // nil: not stroked
	Dash          *model.Dash // nil: solid
	EvenOdd       bool
	ClosePath     bool
	LineJoin      int
	LineCap       int
	Width         float64
	StrokeOpacity float64
	FillOpacity   float64
}

// DefaultStyle is what NormalizeStyle returns for an empty RawStyle.
func DefaultStyle() Style {
	return Style{
		EvenOdd:       true,
		Width:         1,
		StrokeOpacity: 1,
		FillOpacity:   1,
	}
}

// NormalizeStyle turns a recorded style into one a canvas can paint.
// Absent and out-of-range values fall back to defaults; it never fails.
func NormalizeStyle(raw model.RawStyle) Style {
	s := DefaultStyle()

	s.Fill = clampRGB(raw.Fill)
	s.Color = clampRGB(raw.Color)
	s.Dash = normalizeDash(raw.Dashes)

	if raw.EvenOdd != nil {
		s.EvenOdd = *raw.EvenOdd
	}
	if raw.ClosePath != nil {
		s.ClosePath = *raw.ClosePath
	}
	if raw.LineJoin != nil && *raw.LineJoin >= JoinMiter && *raw.LineJoin <= JoinBevel {
		s.LineJoin = *raw.LineJoin
	}
	s.LineCap = maxCap(raw.LineCap)

	if w := raw.Width; w != nil && !math.IsNaN(*w) && !math.IsInf(*w, 0) && *w >= 0 {
		s.Width = *w
	}
	s.StrokeOpacity = opacity(raw.StrokeOpacity)
	s.FillOpacity = opacity(raw.FillOpacity)
	return s
}

// opacity keeps values in [0,1] and maps everything else to opaque.
func opacity(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || *v < 0 || *v > 1 {
		return 1
	}
	return *v
}

// maxCap picks the largest cap code of a per-subpath list.
func maxCap(caps []int) int {
	if len(caps) == 0 {
		return CapButt
	}
	m := caps[0]
	for _, c := range caps[1:] {
		if c > m {
			m = c
		}
	}
	switch {
	case m < CapButt:
		return CapButt
	case m > CapSquare:
		return CapSquare
	}
	return m
}

func clampRGB(c *model.RGB) *model.RGB {
	if c == nil {
		return nil
	}
	var out model.RGB
	for i, v := range c {
		switch {
		case math.IsNaN(v) || v < 0:
			out[i] = 0
		case v > 1:
			out[i] = 1
		default:
			out[i] = v
		}
	}
	return &out
}

// normalizeDash drops patterns that cannot be drawn.
func normalizeDash(d *model.Dash) *model.Dash {
	if d == nil || len(d.Array) == 0 {
		return nil
	}
	total := 0.0
	for _, v := range d.Array {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		total += v
	}
	if total == 0 {
		return nil
	}
	out := model.Dash{Array: append([]float64(nil), d.Array...), Phase: d.Phase}
	if math.IsNaN(out.Phase) || math.IsInf(out.Phase, 0) || out.Phase < 0 {
		out.Phase = 0
	}
	return &out
}
