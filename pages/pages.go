package pages

import (
	"bytes"
	"fmt"

	"github.com/tsawler/drawpipe/core"
	"github.com/tsawler/drawpipe/model"
)

// ObjectResolver resolves indirect references for the page tree.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// inheritable lists the page attributes a /Pages node passes to its kids.
var inheritable = []string{"MediaBox", "CropBox", "Resources", "Rotate"}

// letter is the MediaBox assumed when no node in the chain supplies one.
var letter = [4]float64{0, 0, 612, 792}

// Catalog is the document catalog.
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Pages returns the root /Pages node.
func (c *Catalog) Pages() (core.Dict, error) {
	obj := c.dict.Get("Pages")
	if obj == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}
	resolved, err := c.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", resolved)
	}
	return dict, nil
}

// PageTree flattens the page tree into document order.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
}

func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// Count returns the number of leaf pages actually reachable. /Count is
// not trusted since damaged files often get it wrong.
func (t *PageTree) Count() (int, error) {
	pages, err := t.Pages()
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// GetPage returns the page at a 0-based index.
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(pages))
	}
	return pages[index], nil
}

// Pages returns all pages in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages == nil {
		t.pages = make([]*Page, 0)
		visited := make(map[core.IndirectRef]bool)
		if err := t.walk(t.root, core.Dict{}, visited, 0); err != nil {
			t.pages = nil
			return nil, fmt.Errorf("failed to traverse page tree: %w", err)
		}
	}
	return t.pages, nil
}

const maxTreeDepth = 64

func (t *PageTree) walk(node core.Dict, inherited core.Dict, visited map[core.IndirectRef]bool, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}

	typ, _ := node.GetName("Type")
	kidsObj := node.Get("Kids")
	if typ == "Page" || (typ == "" && kidsObj == nil) {
		t.pages = append(t.pages, &Page{
			Index:     len(t.pages),
			dict:      node,
			inherited: inherited,
			resolver:  t.resolver,
		})
		return nil
	}

	// nearer ancestors override farther ones
	scope := make(core.Dict, len(inherited))
	for k, v := range inherited {
		scope[k] = v
	}
	for _, key := range inheritable {
		if v := node.Get(key); v != nil {
			scope[key] = v
		}
	}

	kidsResolved, err := t.resolver.Resolve(kidsObj)
	if err != nil {
		return fmt.Errorf("failed to resolve /Kids: %w", err)
	}
	kids, ok := kidsResolved.(core.Array)
	if !ok {
		return fmt.Errorf("invalid /Kids type: %T", kidsResolved)
	}
	for i, kid := range kids {
		if ref, ok := kid.(core.IndirectRef); ok {
			if visited[ref] {
				continue
			}
			visited[ref] = true
		}
		resolved, err := t.resolver.Resolve(kid)
		if err != nil {
			return fmt.Errorf("failed to resolve kid %d: %w", i, err)
		}
		dict, ok := resolved.(core.Dict)
		if !ok {
			continue
		}
		if err := t.walk(dict, scope, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Page is a leaf of the page tree.
type Page struct {
	Index     int // 0-based position in document order
	dict      core.Dict
	inherited core.Dict
	resolver  ObjectResolver
}

// NewPage builds a page directly from its dictionary, with no ancestors.
func NewPage(index int, dict core.Dict, resolver ObjectResolver) *Page {
	return &Page{Index: index, dict: dict, inherited: core.Dict{}, resolver: resolver}
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict { return p.dict }

// attr looks up a key on the page, then on its ancestors, resolving
// references.
func (p *Page) attr(key string) (core.Object, error) {
	obj := p.dict.Get(key)
	if obj == nil {
		obj = p.inherited.Get(key)
	}
	if obj == nil {
		return nil, nil
	}
	return p.resolver.Resolve(obj)
}

// MediaBox returns the normalized media box, US Letter when absent or
// malformed.
func (p *Page) MediaBox() model.Rect {
	if box, ok := p.box("MediaBox"); ok {
		return box
	}
	return model.Rect{X0: letter[0], Y0: letter[1], X1: letter[2], Y1: letter[3]}
}

// CropBox returns the visible area: the crop box clipped to the media box,
// or the media box itself.
func (p *Page) CropBox() model.Rect {
	media := p.MediaBox()
	if crop, ok := p.box("CropBox"); ok {
		if clipped := crop.Intersect(media); !clipped.IsEmpty() {
			return clipped
		}
	}
	return media
}

func (p *Page) box(key string) (model.Rect, bool) {
	obj, err := p.attr(key)
	if err != nil || obj == nil {
		return model.Rect{}, false
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return model.Rect{}, false
	}
	vals := make([]float64, 4)
	for i, elem := range arr {
		resolved, err := p.resolver.Resolve(elem)
		if err != nil {
			return model.Rect{}, false
		}
		v, ok := core.Number(resolved)
		if !ok {
			return model.Rect{}, false
		}
		vals[i] = v
	}
	r := model.NewRectFromPoints(model.Point{X: vals[0], Y: vals[1]}, model.Point{X: vals[2], Y: vals[3]})
	if r.IsEmpty() {
		return model.Rect{}, false
	}
	return r, true
}

// Resources returns the resource dictionary, empty when absent.
func (p *Page) Resources() (core.Dict, error) {
	obj, err := p.attr("Resources")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	if dict, ok := obj.(core.Dict); ok {
		return dict, nil
	}
	return core.Dict{}, nil
}

// Contents returns the page content streams in order.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj := p.dict.Get("Contents")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}
	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i, elem := range v {
			r, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			if s, ok := r.(*core.Stream); ok {
				streams = append(streams, s)
			}
		}
		return streams, nil
	}
	return nil, fmt.Errorf("invalid Contents type: %T", resolved)
}

// ContentData decodes and concatenates the content streams. Streams are
// joined with a newline so tokens never fuse across the boundary.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, s := range streams {
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to decode content stream %d: %w", i, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270.
func (p *Page) Rotate() int {
	obj, err := p.attr("Rotate")
	if err != nil {
		return 0
	}
	v, ok := core.Number(obj)
	if !ok {
		return 0
	}
	r := int(v) % 360
	if r < 0 {
		r += 360
	}
	return r / 90 * 90
}

// Width returns the displayed width in points, after rotation.
func (p *Page) Width() float64 {
	box := p.CropBox()
	if p.Rotate()%180 != 0 {
		return box.Height()
	}
	return box.Width()
}

// Height returns the displayed height in points, after rotation.
func (p *Page) Height() float64 {
	box := p.CropBox()
	if p.Rotate()%180 != 0 {
		return box.Width()
	}
	return box.Height()
}

// Matrix maps PDF user space (origin bottom-left of the media box) into
// page space: origin at the top-left of the visible, rotated page, y down.
func (p *Page) Matrix() model.Matrix {
	box := p.CropBox()
	x0, y0 := box.X0, box.Y0
	w, h := box.Width(), box.Height()
	switch p.Rotate() {
	case 90:
		return model.Matrix{0, 1, 1, 0, -y0, -x0}
	case 180:
		return model.Matrix{-1, 0, 0, 1, x0 + w, -y0}
	case 270:
		return model.Matrix{0, -1, -1, 0, h + y0, w + x0}
	}
	return model.Matrix{1, 0, 0, -1, -x0, h + y0}
}

// Info returns the page geometry as a value.
func (p *Page) Info() model.PageInfo {
	return model.PageInfo{
		Index:    p.Index,
		Width:    p.Width(),
		Height:   p.Height(),
		Rotation: p.Rotate(),
		Matrix:   p.Matrix(),
	}
}
