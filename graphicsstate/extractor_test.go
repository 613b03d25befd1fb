package graphicsstate

import (
	"fmt"
	"testing"

	"github.com/tsawler/drawpipe/core"
	"github.com/tsawler/drawpipe/model"
)

type mapResolver map[int]core.Object

func (m mapResolver) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.IndirectRef)
	if !ok {
		return obj, nil
	}
	resolved, ok := m[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return resolved, nil
}

// pageFlip maps a 200pt tall page into top-left page space.
var pageFlip = model.Matrix{1, 0, 0, -1, 0, 200}

func extract(t *testing.T, content string, resources core.Dict, resolver ObjectResolver) []model.DrawPath {
	t.Helper()
	ge := NewGraphicsExtractor(resolver)
	if err := ge.ExtractFromBytes([]byte(content), resources, pageFlip); err != nil {
		t.Fatalf("ExtractFromBytes failed: %v", err)
	}
	return ge.Paths()
}

func TestGraphicsExtractor_StrokedLine(t *testing.T) {
	paths := extract(t, "2 w 1 0 0 RG 1 J [3 1] 0 d 0 100 m 200 100 l S", nil, nil)
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}

	p := paths[0]
	if len(p.Items) != 1 || p.Items[0].Kind != model.KindLine {
		t.Fatalf("expected one line, got %+v", p.Items)
	}
	if p.Items[0].Points[0] != (model.Point{X: 0, Y: 100}) || p.Items[0].Points[1] != (model.Point{X: 200, Y: 100}) {
		t.Errorf("unexpected points %v", p.Items[0].Points)
	}

	s := p.Style
	if s.Type != model.PaintStroke {
		t.Errorf("expected stroke, got %q", s.Type)
	}
	if s.Color == nil || *s.Color != (model.RGB{1, 0, 0}) {
		t.Errorf("expected red stroke, got %v", s.Color)
	}
	if s.Fill != nil || s.EvenOdd != nil || s.FillOpacity != nil {
		t.Errorf("expected no fill attributes on a stroke, got %+v", s)
	}
	if s.Width == nil || *s.Width != 2 {
		t.Errorf("expected width 2, got %v", s.Width)
	}
	if len(s.LineCap) != 3 || s.LineCap[0] != CapRound {
		t.Errorf("expected round caps, got %v", s.LineCap)
	}
	if s.Dashes == nil || s.Dashes.String() != "[3 1] 0" {
		t.Errorf("expected dash [3 1] 0, got %v", s.Dashes)
	}
	if s.ClosePath == nil || *s.ClosePath {
		t.Errorf("expected open path, got %v", s.ClosePath)
	}
}

func TestGraphicsExtractor_PaintOperators(t *testing.T) {
	tests := []struct {
		op       string
		typ      string
		evenOdd  *bool
		closed   bool
		numItems int
	}{
		{"S", model.PaintStroke, nil, false, 2},
		{"s", model.PaintStroke, nil, true, 3},
		{"f", model.PaintFill, boolPtr(false), false, 2},
		{"F", model.PaintFill, boolPtr(false), false, 2},
		{"f*", model.PaintFill, boolPtr(true), false, 2},
		{"B", model.PaintFillStroke, boolPtr(false), false, 2},
		{"B*", model.PaintFillStroke, boolPtr(true), false, 2},
		{"b", model.PaintFillStroke, boolPtr(false), true, 3},
		{"b*", model.PaintFillStroke, boolPtr(true), true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			paths := extract(t, "10 10 m 50 10 l 50 50 l "+tt.op, nil, nil)
			if len(paths) != 1 {
				t.Fatalf("expected 1 path, got %d", len(paths))
			}
			s := paths[0].Style
			if s.Type != tt.typ {
				t.Errorf("expected type %q, got %q", tt.typ, s.Type)
			}
			if (s.EvenOdd == nil) != (tt.evenOdd == nil) || (s.EvenOdd != nil && *s.EvenOdd != *tt.evenOdd) {
				t.Errorf("expected even_odd %v, got %v", tt.evenOdd, s.EvenOdd)
			}
			if *s.ClosePath != tt.closed {
				t.Errorf("expected closePath %v, got %v", tt.closed, *s.ClosePath)
			}
			if len(paths[0].Items) != tt.numItems {
				t.Errorf("expected %d items, got %d", tt.numItems, len(paths[0].Items))
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestGraphicsExtractor_EndPathAndEmpty(t *testing.T) {
	paths := extract(t, "0 0 m 10 10 l W n S f 5 5 m f", nil, nil)
	if len(paths) != 0 {
		t.Errorf("expected no paths, got %+v", paths)
	}
}

func TestGraphicsExtractor_OrderAndState(t *testing.T) {
	content := `
		q 0 0 1 rg 10 10 50 50 re f Q
		0.5 g 0 0 0 1 K
		q 2 0 0 2 0 0 cm 1 1 m 5 1 l S Q
		0 0 m 1 1 l B`
	paths := extract(t, content, nil, nil)
	if len(paths) != 3 {
		t.Fatalf("expected 3 paths, got %d", len(paths))
	}

	rect := paths[0]
	if rect.Items[0].Kind != model.KindRect || *rect.Items[0].Rect != (model.Rect{X0: 10, Y0: 140, X1: 60, Y1: 190}) {
		t.Errorf("unexpected rectangle %+v", rect.Items[0])
	}
	if *rect.Style.Fill != (model.RGB{0, 0, 1}) {
		t.Errorf("expected blue fill, got %v", *rect.Style.Fill)
	}

	scaled := paths[1]
	if *scaled.Style.Width != 2 {
		t.Errorf("expected width scaled by the CTM, got %v", *scaled.Style.Width)
	}
	if scaled.Items[0].Points[1] != (model.Point{X: 10, Y: 198}) {
		t.Errorf("expected scaled end point, got %v", scaled.Items[0].Points[1])
	}

	last := paths[2]
	if *last.Style.Fill != (model.RGB{0.5, 0.5, 0.5}) || *last.Style.Color != (model.RGB{}) {
		t.Errorf("expected gray fill and CMYK black stroke, got %v %v", *last.Style.Fill, *last.Style.Color)
	}
	if *last.Style.Width != 1 {
		t.Errorf("expected width restored to 1, got %v", *last.Style.Width)
	}
}

func TestGraphicsExtractor_SCNAndExtGState(t *testing.T) {
	resources := core.Dict{
		"ExtGState": core.IndirectRef{Number: 5},
	}
	resolver := mapResolver{
		5: core.Dict{"GS1": core.IndirectRef{Number: 6}},
		6: core.Dict{"CA": core.Real(0.3), "ca": core.Real(0.6), "LW": core.Int(4)},
	}
	content := "/CS0 CS 0.2 0.4 0.6 SCN /P0 scn /Pattern cs /P1 scn /GS1 gs 0 0 m 10 0 l B"
	paths := extract(t, content, resources, resolver)
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	s := paths[0].Style
	if *s.Color != (model.RGB{0.2, 0.4, 0.6}) {
		t.Errorf("expected SCN color, got %v", *s.Color)
	}
	if *s.Fill != (model.RGB{}) {
		t.Errorf("expected pattern fill to leave black, got %v", *s.Fill)
	}
	if *s.StrokeOpacity != 0.3 || *s.FillOpacity != 0.6 || *s.Width != 4 {
		t.Errorf("expected ExtGState values, got %v %v %v", *s.StrokeOpacity, *s.FillOpacity, *s.Width)
	}
}

func TestGraphicsExtractor_FormXObject(t *testing.T) {
	form := &core.Stream{
		Dict: core.Dict{
			"Type":    core.Name("XObject"),
			"Subtype": core.Name("Form"),
			"Matrix":  core.Array{core.Int(1), core.Int(0), core.Int(0), core.Int(1), core.Int(100), core.Int(0)},
			"Resources": core.Dict{
				"XObject": core.Dict{"Self": core.IndirectRef{Number: 9}},
			},
		},
		// the self reference must not recurse forever; the unbalanced q is
		// unwound when the form ends
		Data: []byte("q 3 w 0 0 m 10 0 l S /Self Do"),
	}
	resolver := mapResolver{9: form}
	resources := core.Dict{"XObject": core.Dict{"Fm0": core.IndirectRef{Number: 9}}}

	paths := extract(t, "0 0 m /Fm0 Do 5 5 l S", resources, resolver)
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}

	inner := paths[0]
	if inner.Items[0].Points[0] != (model.Point{X: 100, Y: 200}) {
		t.Errorf("expected form matrix applied, got %v", inner.Items[0].Points)
	}
	if *inner.Style.Width != 3 {
		t.Errorf("expected form width 3, got %v", *inner.Style.Width)
	}

	outer := paths[1]
	if len(outer.Items) != 1 || outer.Items[0].Points[0] != (model.Point{X: 0, Y: 200}) {
		t.Errorf("expected the outer path to survive the form, got %+v", outer.Items)
	}
	if *outer.Style.Width != 1 {
		t.Errorf("expected state restored after the form, got width %v", *outer.Style.Width)
	}
}

type imageCounter struct {
	images []*core.Stream
}

func (c *imageCounter) PaintPath(*Path, Paint, *GraphicsState) {}

func (c *imageCounter) PaintImage(img *core.Stream, gs *GraphicsState) {
	c.images = append(c.images, img)
}

func TestProcessor_Images(t *testing.T) {
	image := &core.Stream{Dict: core.Dict{"Subtype": core.Name("Image")}, Data: []byte{0}}
	resources := core.Dict{
		"XObject":    core.Dict{"Im0": image},
		"ColorSpace": core.Dict{"CS0": core.Name("DeviceRGB")},
	}
	counter := &imageCounter{}
	p := NewProcessor(nil, counter)
	err := p.RunBytes([]byte("/Im0 Do BI /W 1 /H 1 /CS /CS0 /BPC 8 ID \x01\x02\x03 EI /Missing Do"), resources, model.Identity())
	if err != nil {
		t.Fatalf("RunBytes failed: %v", err)
	}
	if len(counter.images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(counter.images))
	}
	if counter.images[0] != image {
		t.Error("expected the XObject stream to be passed through")
	}
	if cs, _ := counter.images[1].Dict.GetName("ColorSpace"); cs != "DeviceRGB" {
		t.Errorf("expected named color space resolved, got %v", counter.images[1].Dict.Get("ColorSpace"))
	}
}

func TestProcessor_DamagedContent(t *testing.T) {
	ge := NewGraphicsExtractor(nil)
	err := ge.ExtractFromBytes([]byte("0 0 m 10 10 l S (unterminated"), nil, model.Identity())
	if err == nil {
		t.Fatal("expected parse error")
	}
	if len(ge.Paths()) != 1 {
		t.Errorf("expected the path before the damage, got %d", len(ge.Paths()))
	}
}
