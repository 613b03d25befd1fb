package graphicsstate

import (
	"github.com/tsawler/drawpipe/contentstream"
	"github.com/tsawler/drawpipe/core"
	"github.com/tsawler/drawpipe/model"
)

// ObjectResolver resolves indirect references found in resource
// dictionaries.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Paint describes what a painting operator does with the current path.
type Paint struct {
	Stroke  bool
	Fill    bool
	EvenOdd bool
}

// Handler receives everything the Processor paints. The graphics state is
// only valid for the duration of the call.
type Handler interface {
	PaintPath(path *Path, paint Paint, gs *GraphicsState)
	PaintImage(img *core.Stream, gs *GraphicsState)
}

// maxFormDepth bounds Form XObject nesting.
const maxFormDepth = 32

// Processor runs content stream operations through the graphics state and
// reports painted paths and images to a Handler. Text, shading and
// clipping operators are read but have no effect.
type Processor struct {
	resolver ObjectResolver
	handler  Handler
	gs       *GraphicsState
	path     *Path
	active   map[*core.Stream]bool
}

// NewProcessor creates a processor. A nil resolver treats every object as
// already resolved.
func NewProcessor(resolver ObjectResolver, handler Handler) *Processor {
	return &Processor{resolver: resolver, handler: handler}
}

// Run processes operations with the given resources, starting from a CTM
// of base.
func (p *Processor) Run(ops []contentstream.Operation, resources core.Dict, base model.Matrix) {
	p.gs = NewGraphicsState()
	p.gs.CTM = base
	p.path = NewPath()
	p.active = make(map[*core.Stream]bool)
	p.run(ops, resources)
}

// RunBytes parses content stream data and processes it. When the data is
// damaged, the operations before the damage are still processed and the
// parse error is returned.
func (p *Processor) RunBytes(data []byte, resources core.Dict, base model.Matrix) error {
	ops, err := contentstream.NewParser(data).Parse()
	p.Run(ops, resources, base)
	return err
}

func (p *Processor) run(ops []contentstream.Operation, resources core.Dict) {
	for _, op := range ops {
		p.processOperation(op, resources)
	}
}

// processOperation processes a single content stream operation
func (p *Processor) processOperation(op contentstream.Operation, resources core.Dict) {
	gs := p.gs
	switch op.Operator {
	// Graphics state operators
	case "q":
		gs.Save()
	case "Q":
		// unbalanced Q is ignored
		_ = gs.Restore()
	case "cm":
		if m, ok := matrixFrom(op.Operands); ok {
			gs.Transform(m)
		}
	case "w":
		if v, ok := numbers(op.Operands, 1); ok {
			gs.SetLineWidth(v[0])
		}
	case "J":
		if v, ok := numbers(op.Operands, 1); ok {
			gs.SetLineCap(int(v[0]))
		}
	case "j":
		if v, ok := numbers(op.Operands, 1); ok {
			gs.SetLineJoin(int(v[0]))
		}
	case "d":
		if len(op.Operands) == 2 {
			if arr, ok := op.Operands[0].(core.Array); ok {
				if vals, ok := arr.Floats(); ok {
					phase, _ := core.Number(op.Operands[1])
					gs.SetDash(model.Dash{Array: vals, Phase: phase})
				}
			}
		}
	case "gs":
		if name, ok := lastName(op.Operands); ok {
			if dict, ok := p.resolveDict(p.resource(resources, "ExtGState", name)); ok {
				gs.ApplyExtGState(dict)
			}
		}

	// Color operators
	case "G":
		if v, ok := numbers(op.Operands, 1); ok {
			gs.SetStrokeColor(v)
		}
	case "g":
		if v, ok := numbers(op.Operands, 1); ok {
			gs.SetFillColor(v)
		}
	case "RG":
		if v, ok := numbers(op.Operands, 3); ok {
			gs.SetStrokeColor(v)
		}
	case "rg":
		if v, ok := numbers(op.Operands, 3); ok {
			gs.SetFillColor(v)
		}
	case "K":
		if v, ok := numbers(op.Operands, 4); ok {
			gs.SetStrokeColor(v)
		}
	case "k":
		if v, ok := numbers(op.Operands, 4); ok {
			gs.SetFillColor(v)
		}
	case "CS":
		gs.SetStrokeColorSpace()
	case "cs":
		gs.SetFillColorSpace()
	case "SC", "SCN":
		gs.SetStrokeColor(leadingNumbers(op.Operands))
	case "sc", "scn":
		gs.SetFillColor(leadingNumbers(op.Operands))

	// Path construction operators
	case "m":
		if v, ok := numbers(op.Operands, 2); ok {
			p.path.MoveTo(v[0], v[1])
		}
	case "l":
		if v, ok := numbers(op.Operands, 2); ok {
			p.path.LineTo(v[0], v[1])
		}
	case "c":
		if v, ok := numbers(op.Operands, 6); ok {
			p.path.CurveTo(v[0], v[1], v[2], v[3], v[4], v[5])
		}
	case "v":
		if v, ok := numbers(op.Operands, 4); ok {
			p.path.CurveToV(v[0], v[1], v[2], v[3])
		}
	case "y":
		if v, ok := numbers(op.Operands, 4); ok {
			p.path.CurveToY(v[0], v[1], v[2], v[3])
		}
	case "h":
		p.path.ClosePath()
	case "re":
		if v, ok := numbers(op.Operands, 4); ok {
			p.path.Rectangle(v[0], v[1], v[2], v[3])
		}

	// Path painting operators
	case "S":
		p.paint(Paint{Stroke: true})
	case "s":
		p.path.ClosePath()
		p.paint(Paint{Stroke: true})
	case "f", "F":
		p.paint(Paint{Fill: true})
	case "f*":
		p.paint(Paint{Fill: true, EvenOdd: true})
	case "B":
		p.paint(Paint{Stroke: true, Fill: true})
	case "B*":
		p.paint(Paint{Stroke: true, Fill: true, EvenOdd: true})
	case "b":
		p.path.ClosePath()
		p.paint(Paint{Stroke: true, Fill: true})
	case "b*":
		p.path.ClosePath()
		p.paint(Paint{Stroke: true, Fill: true, EvenOdd: true})
	case "n":
		p.path = NewPath()

	// XObjects and inline images
	case "Do":
		if name, ok := lastName(op.Operands); ok {
			p.doXObject(p.resource(resources, "XObject", name), resources)
		}
	case "BI":
		if len(op.Operands) == 2 {
			dict, _ := op.Operands[0].(core.Dict)
			data, _ := op.Operands[1].(core.String)
			if dict != nil {
				p.handler.PaintImage(&core.Stream{Dict: p.inlineColorSpace(dict, resources), Data: []byte(data)}, gs)
			}
		}
	}
}

func (p *Processor) paint(paint Paint) {
	if !p.path.IsEmpty() {
		p.handler.PaintPath(p.path, paint, p.gs)
	}
	p.path = NewPath()
}

func (p *Processor) doXObject(obj core.Object, resources core.Dict) {
	resolved, err := p.resolve(obj)
	if err != nil {
		return
	}
	stream, ok := resolved.(*core.Stream)
	if !ok {
		return
	}
	switch subtype, _ := stream.Dict.GetName("Subtype"); subtype {
	case "Image":
		p.handler.PaintImage(stream, p.gs)
	case "Form":
		p.runForm(stream, resources)
	}
}

// runForm executes a Form XObject with its own matrix and resources. A
// form that is already executing is skipped to break reference cycles.
func (p *Processor) runForm(form *core.Stream, parent core.Dict) {
	if p.active[form] || len(p.active) >= maxFormDepth {
		return
	}
	data, err := form.Decode()
	if err != nil {
		return
	}
	// damaged forms contribute whatever parsed
	ops, _ := contentstream.NewParser(data).Parse()

	resources := parent
	if dict, ok := p.resolveDict(form.Dict.Get("Resources")); ok {
		resources = dict
	}

	depth := p.gs.Depth()
	p.gs.Save()
	if arr, ok := form.Dict.GetArray("Matrix"); ok {
		if m, ok := matrixFrom(arr); ok {
			p.gs.Transform(m)
		}
	}
	outer := p.path
	p.path = NewPath()
	p.active[form] = true

	p.run(ops, resources)

	delete(p.active, form)
	p.path = outer
	for p.gs.Depth() > depth {
		_ = p.gs.Restore()
	}
}

// inlineColorSpace replaces a named inline image color space with its
// resource definition.
func (p *Processor) inlineColorSpace(dict core.Dict, resources core.Dict) core.Dict {
	name, ok := dict.GetName("ColorSpace")
	if !ok {
		return dict
	}
	switch name {
	case "DeviceGray", "DeviceRGB", "DeviceCMYK", "Indexed":
		return dict
	}
	cs, err := p.resolve(p.resource(resources, "ColorSpace", name))
	if err != nil || cs == nil {
		return dict
	}
	out := make(core.Dict, len(dict))
	for k, v := range dict {
		out[k] = v
	}
	out["ColorSpace"] = cs
	return out
}

func (p *Processor) resolve(obj core.Object) (core.Object, error) {
	if obj == nil || p.resolver == nil {
		return obj, nil
	}
	return p.resolver.Resolve(obj)
}

func (p *Processor) resolveDict(obj core.Object) (core.Dict, bool) {
	resolved, err := p.resolve(obj)
	if err != nil {
		return nil, false
	}
	dict, ok := resolved.(core.Dict)
	return dict, ok
}

// resource looks up resources/<category>/<name>, unresolved.
func (p *Processor) resource(resources core.Dict, category string, name core.Name) core.Object {
	dict, ok := p.resolveDict(resources.Get(category))
	if !ok {
		return nil
	}
	return dict.Get(string(name))
}

// numbers returns the last n operands as floats.
func numbers(operands []core.Object, n int) ([]float64, bool) {
	if len(operands) < n {
		return nil, false
	}
	vals := make([]float64, n)
	for i, obj := range operands[len(operands)-n:] {
		v, ok := core.Number(obj)
		if !ok {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

// leadingNumbers returns the numeric operands before any pattern name.
func leadingNumbers(operands []core.Object) []float64 {
	var vals []float64
	for _, obj := range operands {
		v, ok := core.Number(obj)
		if !ok {
			break
		}
		vals = append(vals, v)
	}
	return vals
}

func lastName(operands []core.Object) (core.Name, bool) {
	if len(operands) == 0 {
		return "", false
	}
	name, ok := operands[len(operands)-1].(core.Name)
	return name, ok
}

func matrixFrom(operands []core.Object) (model.Matrix, bool) {
	v, ok := numbers(operands, 6)
	if !ok || len(operands) != 6 {
		return model.Matrix{}, false
	}
	return model.Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}, true
}

// GraphicsExtractor enumerates a page's DrawPaths: every painted path in
// paint order, with coordinates in page space.
type GraphicsExtractor struct {
	processor *Processor
	paths     []model.DrawPath
}

// NewGraphicsExtractor creates a new graphics extractor
func NewGraphicsExtractor(resolver ObjectResolver) *GraphicsExtractor {
	ge := &GraphicsExtractor{}
	ge.processor = NewProcessor(resolver, ge)
	return ge
}

// Extract processes operations, mapping user space through pageMatrix.
func (ge *GraphicsExtractor) Extract(ops []contentstream.Operation, resources core.Dict, pageMatrix model.Matrix) {
	ge.processor.Run(ops, resources, pageMatrix)
}

// ExtractFromBytes parses and processes raw content stream data.
func (ge *GraphicsExtractor) ExtractFromBytes(data []byte, resources core.Dict, pageMatrix model.Matrix) error {
	return ge.processor.RunBytes(data, resources, pageMatrix)
}

// Paths returns the DrawPaths collected so far.
func (ge *GraphicsExtractor) Paths() []model.DrawPath {
	return ge.paths
}

// PaintPath records one painted path.
func (ge *GraphicsExtractor) PaintPath(path *Path, paint Paint, gs *GraphicsState) {
	items := path.Items(gs.CTM)
	if len(items) == 0 {
		return
	}
	ge.paths = append(ge.paths, model.DrawPath{Items: items, Style: rawStyle(path, paint, gs)})
}

// PaintImage ignores images; they are not DrawPaths.
func (ge *GraphicsExtractor) PaintImage(*core.Stream, *GraphicsState) {}

func rawStyle(path *Path, paint Paint, gs *GraphicsState) model.RawStyle {
	closed := path.Closed()
	style := model.RawStyle{ClosePath: &closed}

	switch {
	case paint.Fill && paint.Stroke:
		style.Type = model.PaintFillStroke
	case paint.Fill:
		style.Type = model.PaintFill
	default:
		style.Type = model.PaintStroke
	}

	if paint.Fill {
		fill := gs.FillColor
		evenOdd := paint.EvenOdd
		alpha := gs.FillAlpha
		style.Fill = &fill
		style.EvenOdd = &evenOdd
		style.FillOpacity = &alpha
	}
	if paint.Stroke {
		color := gs.StrokeColor
		width := gs.StrokeWidth()
		join := gs.LineJoin
		alpha := gs.StrokeAlpha
		style.Color = &color
		style.Width = &width
		style.LineJoin = &join
		style.LineCap = []int{gs.LineCap, gs.LineCap, gs.LineCap}
		style.StrokeOpacity = &alpha
		if len(gs.Dash.Array) > 0 {
			dash := gs.ScaledDash()
			style.Dashes = &dash
		}
	}
	return style
}
