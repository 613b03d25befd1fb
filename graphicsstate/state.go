package graphicsstate

import (
	"fmt"

	"github.com/tsawler/drawpipe/core"
	"github.com/tsawler/drawpipe/model"
)

// Line cap and join codes as they appear in content streams.
const (
	CapButt   = 0
	CapRound  = 1
	CapSquare = 2

	JoinMiter = 0
	JoinRound = 1
	JoinBevel = 2
)

// GraphicsState represents the parts of the PDF graphics state that affect
// how paths and images are painted.
type GraphicsState struct {
	// Current Transformation Matrix
	CTM model.Matrix

	// Graphics state stack (for q/Q operators)
	stack []*GraphicsState

	// Line attributes, in user space units
	LineWidth float64
	LineCap   int
	LineJoin  int
	Dash      model.Dash

	StrokeColor model.RGB
	FillColor   model.RGB

	// Constant alpha from ExtGState /CA and /ca
	StrokeAlpha float64
	FillAlpha   float64
}

// NewGraphicsState creates a new graphics state with default values
func NewGraphicsState() *GraphicsState {
	return &GraphicsState{
		CTM:         model.Identity(),
		LineWidth:   1.0,
		StrokeAlpha: 1.0,
		FillAlpha:   1.0,
	}
}

// Clone creates a copy of the graphics state without its stack
func (gs *GraphicsState) Clone() *GraphicsState {
	clone := *gs
	clone.stack = nil
	if gs.Dash.Array != nil {
		clone.Dash.Array = append([]float64(nil), gs.Dash.Array...)
	}
	return &clone
}

// Save pushes the current graphics state onto the stack (q operator)
func (gs *GraphicsState) Save() {
	gs.stack = append(gs.stack, gs.Clone())
}

// Restore pops a graphics state from the stack (Q operator)
func (gs *GraphicsState) Restore() error {
	if len(gs.stack) == 0 {
		return fmt.Errorf("graphics state stack underflow")
	}

	saved := gs.stack[len(gs.stack)-1]
	stack := gs.stack[:len(gs.stack)-1]
	*gs = *saved
	gs.stack = stack
	return nil
}

// Depth returns the number of saved states.
func (gs *GraphicsState) Depth() int { return len(gs.stack) }

// Transform concatenates m onto the CTM (cm operator). m applies first.
func (gs *GraphicsState) Transform(m model.Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

func (gs *GraphicsState) SetLineWidth(width float64) {
	gs.LineWidth = width
}

func (gs *GraphicsState) SetLineCap(c int) {
	gs.LineCap = c
}

func (gs *GraphicsState) SetLineJoin(join int) {
	gs.LineJoin = join
}

func (gs *GraphicsState) SetDash(d model.Dash) {
	gs.Dash = d
}

// SetStrokeColorSpace handles CS. The color resets to the space's initial
// value, black for every device space.
func (gs *GraphicsState) SetStrokeColorSpace() {
	gs.StrokeColor = model.RGB{}
}

// SetFillColorSpace handles cs.
func (gs *GraphicsState) SetFillColorSpace() {
	gs.FillColor = model.RGB{}
}

// SetStrokeColor handles SC/SCN. The component count selects gray, RGB or
// CMYK; other counts leave the color unchanged.
func (gs *GraphicsState) SetStrokeColor(components []float64) {
	if c, ok := toRGB(components); ok {
		gs.StrokeColor = c
	}
}

// SetFillColor handles sc/scn.
func (gs *GraphicsState) SetFillColor(components []float64) {
	if c, ok := toRGB(components); ok {
		gs.FillColor = c
	}
}

// ApplyExtGState copies the line and alpha entries of an ExtGState
// dictionary (gs operator). Unknown and malformed entries are skipped.
func (gs *GraphicsState) ApplyExtGState(dict core.Dict) {
	if v, ok := dict.GetNumber("LW"); ok {
		gs.LineWidth = v
	}
	if v, ok := dict.GetNumber("LC"); ok {
		gs.LineCap = int(v)
	}
	if v, ok := dict.GetNumber("LJ"); ok {
		gs.LineJoin = int(v)
	}
	if arr, ok := dict.GetArray("D"); ok && len(arr) == 2 {
		if dashes, ok := arr[0].(core.Array); ok {
			if vals, ok := dashes.Floats(); ok {
				phase, _ := core.Number(arr[1])
				gs.Dash = model.Dash{Array: vals, Phase: phase}
			}
		}
	}
	if v, ok := dict.GetNumber("CA"); ok {
		gs.StrokeAlpha = v
	}
	if v, ok := dict.GetNumber("ca"); ok {
		gs.FillAlpha = v
	}
}

// StrokeWidth returns the line width scaled into the CTM's target space.
func (gs *GraphicsState) StrokeWidth() float64 {
	return gs.LineWidth * gs.CTM.ExpansionFactor()
}

// ScaledDash returns the dash pattern scaled like StrokeWidth.
func (gs *GraphicsState) ScaledDash() model.Dash {
	f := gs.CTM.ExpansionFactor()
	d := model.Dash{Phase: gs.Dash.Phase * f}
	for _, v := range gs.Dash.Array {
		d.Array = append(d.Array, v*f)
	}
	return d
}

// toRGB maps 1 (gray), 3 (RGB) or 4 (CMYK) components to RGB.
func toRGB(c []float64) (model.RGB, bool) {
	switch len(c) {
	case 1:
		return model.RGB{c[0], c[0], c[0]}, true
	case 3:
		return model.RGB{c[0], c[1], c[2]}, true
	case 4:
		r, g, b := cmykToRGB(c[0], c[1], c[2], c[3])
		return model.RGB{r, g, b}, true
	}
	return model.RGB{}, false
}

// cmykToRGB performs the naive device conversion.
func cmykToRGB(c, m, y, k float64) (r, g, b float64) {
	r = (1 - c) * (1 - k)
	g = (1 - m) * (1 - k)
	b = (1 - y) * (1 - k)
	return
}
