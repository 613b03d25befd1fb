package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ItemKind tags a DrawItem. The values match the short operator-style
// names used in path dumps.
type ItemKind string

const (
	KindLine  ItemKind = "l"
	KindRect  ItemKind = "re"
	KindQuad  ItemKind = "qu"
	KindCurve ItemKind = "c"
)

// Valid reports whether k is one of the four known kinds.
func (k ItemKind) Valid() bool {
	switch k {
	case KindLine, KindRect, KindQuad, KindCurve:
		return true
	}
	return false
}

// pointCount is the number of points each kind carries. Rectangles carry a
// Rect instead.
func (k ItemKind) pointCount() int {
	switch k {
	case KindLine:
		return 2
	case KindQuad, KindCurve:
		return 4
	}
	return 0
}

// DrawItem is one primitive of a DrawPath.
//
//	l   Points = [p0, p1]
//	re  Rect
//	qu  Points = [ul, ur, ll, lr]
//	c   Points = [p0, c1, c2, p1]
type DrawItem struct {
	Kind   ItemKind `json:"kind"`
	Points []Point  `json:"points,omitempty"`
	Rect   *Rect    `json:"rect,omitempty"`
}

func Line(p0, p1 Point) DrawItem {
	return DrawItem{Kind: KindLine, Points: []Point{p0, p1}}
}

func Rectangle(r Rect) DrawItem {
	return DrawItem{Kind: KindRect, Rect: &r}
}

func QuadItem(q Quad) DrawItem {
	return DrawItem{Kind: KindQuad, Points: []Point{q.UL, q.UR, q.LL, q.LR}}
}

func Curve(p0, c1, c2, p1 Point) DrawItem {
	return DrawItem{Kind: KindCurve, Points: []Point{p0, c1, c2, p1}}
}

// WellFormed reports whether the item has a known kind and the operands
// that kind requires.
func (it DrawItem) WellFormed() bool {
	if !it.Kind.Valid() {
		return false
	}
	if it.Kind == KindRect {
		return it.Rect != nil
	}
	return len(it.Points) == it.Kind.pointCount()
}

// Quad returns the item's corners. Only meaningful for KindQuad.
func (it DrawItem) Quad() Quad {
	return Quad{UL: it.Points[0], UR: it.Points[1], LL: it.Points[2], LR: it.Points[3]}
}

// Paint operators recorded in RawStyle.Type.
const (
	PaintFill       = "f"
	PaintStroke     = "s"
	PaintFillStroke = "fs"
)

// RGB is a color with components nominally in [0,1].
type RGB [3]float64

// Dash is a dash pattern: on/off lengths and a starting phase.
type Dash struct {
	Array []float64 `json:"array"`
	Phase float64   `json:"phase"`
}

// String formats the pattern the way PDF writes it: "[3 2] 0".
func (d Dash) String() string {
	parts := make([]string, len(d.Array))
	for i, v := range d.Array {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "] " + strconv.FormatFloat(d.Phase, 'f', -1, 64)
}

// ParseDash parses "[a b ...] phase".
func ParseDash(s string) (Dash, error) {
	s = strings.TrimSpace(s)
	lb, rb := strings.IndexByte(s, '['), strings.IndexByte(s, ']')
	if lb != 0 || rb < 0 {
		return Dash{}, fmt.Errorf("invalid dash %q", s)
	}
	var d Dash
	for _, f := range strings.Fields(s[1:rb]) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Dash{}, fmt.Errorf("invalid dash %q: %w", s, err)
		}
		d.Array = append(d.Array, v)
	}
	if rest := strings.TrimSpace(s[rb+1:]); rest != "" {
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return Dash{}, fmt.Errorf("invalid dash phase %q: %w", s, err)
		}
		d.Phase = v
	}
	return d, nil
}

// RawStyle is the style of a DrawPath exactly as recorded. Every field is
// optional; nil means absent.
type RawStyle struct {
	Fill          *RGB     `json:"fill"`
	Color         *RGB     `json:"color"`
	Dashes        *Dash    `json:"dashes"`
	EvenOdd       *bool    `json:"even_odd"`
	ClosePath     *bool    `json:"closePath"`
	LineJoin      *int     `json:"lineJoin"`
	LineCap       []int    `json:"lineCap"`
	Width         *float64 `json:"width"`
	StrokeOpacity *float64 `json:"stroke_opacity"`
	FillOpacity   *float64 `json:"fill_opacity"`
	Type          string   `json:"type,omitempty"`
}

// UnmarshalJSON decodes leniently: a value of the wrong JSON type leaves
// the field absent instead of failing the whole document. Dashes accept
// both the "[3 2] 0" string form and {"array":[...],"phase":n}.
func (s *RawStyle) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = RawStyle{
		Fill:          decodeRGB(fields["fill"]),
		Color:         decodeRGB(fields["color"]),
		Dashes:        decodeDash(fields["dashes"]),
		EvenOdd:       decodeBool(fields["even_odd"]),
		ClosePath:     decodeBool(fields["closePath"]),
		LineJoin:      decodeInt(fields["lineJoin"]),
		LineCap:       decodeIntList(fields["lineCap"]),
		Width:         decodeFloat(fields["width"]),
		StrokeOpacity: decodeFloat(fields["stroke_opacity"]),
		FillOpacity:   decodeFloat(fields["fill_opacity"]),
	}
	var typ string
	if json.Unmarshal(fields["type"], &typ) == nil {
		s.Type = typ
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeFloat(raw json.RawMessage) *float64 {
	var v float64
	if isNull(raw) || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return &v
}

func decodeBool(raw json.RawMessage) *bool {
	var v bool
	if isNull(raw) || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	return &v
}

func decodeInt(raw json.RawMessage) *int {
	f := decodeFloat(raw)
	if f == nil || *f != math.Trunc(*f) {
		return nil
	}
	v := int(*f)
	return &v
}

func decodeIntList(raw json.RawMessage) []int {
	if isNull(raw) {
		return nil
	}
	if v := decodeInt(raw); v != nil {
		return []int{*v}
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) != nil {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		if v := decodeInt(item); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func decodeRGB(raw json.RawMessage) *RGB {
	var list []float64
	if isNull(raw) || json.Unmarshal(raw, &list) != nil || len(list) != 3 {
		return nil
	}
	return &RGB{list[0], list[1], list[2]}
}

func decodeDash(raw json.RawMessage) *Dash {
	if isNull(raw) {
		return nil
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		d, err := ParseDash(str)
		if err != nil {
			return nil
		}
		return &d
	}
	var d Dash
	if json.Unmarshal(raw, &d) != nil {
		return nil
	}
	return &d
}

// DrawPath is one painted path: its items in construction order and the
// style it was painted with.
type DrawPath struct {
	Items []DrawItem
	Style RawStyle
}

// MarshalJSON writes the style keys and "items" side by side in one object.
func (p DrawPath) MarshalJSON() ([]byte, error) {
	type style RawStyle
	return json.Marshal(struct {
		style
		Items []DrawItem `json:"items"`
	}{style(p.Style), p.Items})
}

// UnmarshalJSON reads the flat form written by MarshalJSON.
func (p *DrawPath) UnmarshalJSON(data []byte) error {
	var items struct {
		Items []DrawItem `json:"items"`
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	var style RawStyle
	if err := style.UnmarshalJSON(data); err != nil {
		return err
	}
	p.Items = items.Items
	p.Style = style
	return nil
}
