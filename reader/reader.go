package reader

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/tsawler/drawpipe/core"
	"github.com/tsawler/drawpipe/graphicsstate"
	"github.com/tsawler/drawpipe/model"
	"github.com/tsawler/drawpipe/pages"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader reads a PDF held entirely in memory. It is not safe for
// concurrent use.
type Reader struct {
	data       []byte
	xrefTable  *core.XRefTable
	trailer    core.Dict
	version    PDFVersion
	objCache   map[int]core.Object
	objStreams map[int]*core.ObjectStream
	loading    map[int]bool
	pageTree   *pages.PageTree
	repaired   bool
}

// Ensure Reader implements the resolver interfaces of its collaborators
var (
	_ pages.ObjectResolver         = (*Reader)(nil)
	_ graphicsstate.ObjectResolver = (*Reader)(nil)
	_ core.ReferenceResolver       = (*Reader)(nil)
)

// headerWindow is how far into the file the %PDF- marker may appear.
const headerWindow = 1024

var headerPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// Open reads a PDF file and returns a Reader
func Open(filename string) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return FromBytes(data)
}

// FromBytes parses a PDF from memory. When the cross-reference data is
// missing or does not lead to a catalog, the table is rebuilt by scanning
// the file for objects.
func FromBytes(data []byte) (*Reader, error) {
	version, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	r := &Reader{
		data:    data,
		version: version,
	}
	r.reset()

	xrefParser := core.NewXRefParser(data)
	table, err := xrefParser.ParseAll()
	if err == nil {
		r.xrefTable = table
		r.trailer = table.Trailer
		if _, cerr := r.GetCatalog(); cerr == nil {
			return r, nil
		}
	}

	rebuilt, rerr := xrefParser.Rebuild()
	if rerr != nil {
		if err == nil {
			err = fmt.Errorf("catalog unreachable")
		}
		return nil, fmt.Errorf("failed to load xref: %w (repair failed: %v)", err, rerr)
	}
	r.reset()
	r.xrefTable = rebuilt
	r.trailer = rebuilt.Trailer
	r.repaired = true
	return r, nil
}

func (r *Reader) reset() {
	r.objCache = make(map[int]core.Object)
	r.objStreams = make(map[int]*core.ObjectStream)
	r.loading = make(map[int]bool)
	r.pageTree = nil
}

// Close releases the file data and caches.
func (r *Reader) Close() error {
	r.data = nil
	r.reset()
	return nil
}

// parseHeader finds the %PDF-x.y marker near the start of the file.
func parseHeader(data []byte) (PDFVersion, error) {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	m := headerPattern.FindSubmatch(window)
	if m == nil {
		return PDFVersion{}, fmt.Errorf("no %%PDF- header in the first %d bytes", headerWindow)
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Repaired reports whether the cross-reference table had to be rebuilt.
func (r *Reader) Repaired() bool {
	return r.repaired
}

// FileSize returns the size of the PDF in bytes
func (r *Reader) FileSize() int64 {
	return int64(len(r.data))
}

// GetObject loads an object by its number, from the file body or from an
// object stream. Loaded objects are cached.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.xrefTable.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref table", objNum)
	}
	if r.loading[objNum] {
		return nil, fmt.Errorf("object %d refers to itself while loading", objNum)
	}
	r.loading[objNum] = true
	defer delete(r.loading, objNum)

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefInUse:
		obj, err = r.loadDirect(objNum, entry)
	case core.XRefCompressed:
		obj, err = r.loadCompressed(objNum, entry)
	default:
		return nil, fmt.Errorf("object %d is not in use", objNum)
	}
	if err != nil {
		return nil, err
	}

	r.objCache[objNum] = obj
	return obj, nil
}

func (r *Reader) loadDirect(objNum int, entry *core.XRefEntry) (core.Object, error) {
	if entry.Offset < 0 || entry.Offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("object %d: offset %d outside file", objNum, entry.Offset)
	}
	parser := core.NewParserAt(r.data, int(entry.Offset))
	parser.SetReferenceResolver(r)
	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d: %w", objNum, err)
	}
	if indObj.Ref.Number != objNum {
		return nil, fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
	}
	return indObj.Object, nil
}

func (r *Reader) loadCompressed(objNum int, entry *core.XRefEntry) (core.Object, error) {
	objStm, ok := r.objStreams[entry.StreamObj]
	if !ok {
		container, err := r.GetObject(entry.StreamObj)
		if err != nil {
			return nil, fmt.Errorf("failed to load object stream %d: %w", entry.StreamObj, err)
		}
		stream, ok := container.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is not a stream: %T", entry.StreamObj, container)
		}
		objStm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.StreamObj, err)
		}
		r.objStreams[entry.StreamObj] = objStm
	}

	obj, num, err := objStm.GetObjectByIndex(entry.Index)
	if err == nil && num == objNum {
		return obj, nil
	}
	// the index is only a hint; fall back to a search by number
	obj, _, err = objStm.GetObjectByNumber(objNum)
	if err != nil {
		return nil, fmt.Errorf("object %d in object stream %d: %w", objNum, entry.StreamObj, err)
	}
	return obj, nil
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve resolves an object if it's an indirect reference, otherwise returns it as-is
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// maxResolveDepth bounds ResolveDeep on deeply nested structures.
const maxResolveDepth = 32

// ResolveDeep recursively resolves all indirect references in an object.
// A reference back to an object that is already being resolved, such as a
// page's /Parent, is left as a reference. Streams are returned as-is.
func (r *Reader) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.resolveDeep(obj, make(map[int]bool), 0)
}

func (r *Reader) resolveDeep(obj core.Object, active map[int]bool, depth int) (core.Object, error) {
	if depth > maxResolveDepth {
		return nil, fmt.Errorf("object nesting deeper than %d", maxResolveDepth)
	}
	if ref, ok := obj.(core.IndirectRef); ok {
		if active[ref.Number] {
			return ref, nil
		}
		active[ref.Number] = true
		defer delete(active, ref.Number)
	}
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}

	switch v := resolved.(type) {
	case core.Array:
		result := make(core.Array, len(v))
		for i, elem := range v {
			if result[i], err = r.resolveDeep(elem, active, depth+1); err != nil {
				return nil, err
			}
		}
		return result, nil

	case core.Dict:
		result := make(core.Dict, len(v))
		for key, val := range v {
			if result[key], err = r.resolveDeep(val, active, depth+1); err != nil {
				return nil, err
			}
		}
		return result, nil

	default:
		return resolved, nil
	}
}

// GetCatalog returns the document catalog (root object)
func (r *Reader) GetCatalog() (core.Dict, error) {
	ref, ok := r.trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer missing /Root reference")
	}
	obj, err := r.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return catalog, nil
}

// GetInfo returns the document info dictionary, nil when absent
func (r *Reader) GetInfo() (core.Dict, error) {
	infoObj := r.trailer.Get("Info")
	if infoObj == nil {
		return nil, nil
	}
	obj, err := r.Resolve(infoObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve info: %w", err)
	}
	info, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("info is not a dictionary: %T", obj)
	}
	return info, nil
}

// NumObjects returns the trailer's /Size
func (r *Reader) NumObjects() int {
	size, _ := r.trailer.GetInt("Size")
	return int(size)
}

// XRefTable returns the cross-reference table
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount() (int, error) {
	if err := r.ensurePageTree(); err != nil {
		return 0, err
	}
	return r.pageTree.Count()
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.GetPage(index)
}

// PageInfo returns the geometry of the page at index.
func (r *Reader) PageInfo(index int) (model.PageInfo, error) {
	page, err := r.GetPage(index)
	if err != nil {
		return model.PageInfo{}, err
	}
	return page.Info(), nil
}

// ensurePageTree loads the page tree if not already loaded
func (r *Reader) ensurePageTree() error {
	if r.pageTree != nil {
		return nil
	}
	catalog, err := r.GetCatalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}
	root, err := pages.NewCatalog(catalog, r).Pages()
	if err != nil {
		return err
	}
	r.pageTree = pages.NewPageTree(root, r)
	return nil
}

// RunPage runs the page's content through a graphics processor that
// reports to handler, with the CTM starting at base. A damaged content
// stream is processed up to the damage and the parse error returned.
func (r *Reader) RunPage(index int, handler graphicsstate.Handler, base model.Matrix) error {
	page, err := r.GetPage(index)
	if err != nil {
		return err
	}
	data, err := page.ContentData()
	if err != nil {
		return fmt.Errorf("page %d: %w", index+1, err)
	}
	resources, err := page.Resources()
	if err != nil {
		return fmt.Errorf("page %d: %w", index+1, err)
	}
	if err := graphicsstate.NewProcessor(r, handler).RunBytes(data, resources, base); err != nil {
		return fmt.Errorf("page %d: damaged content stream: %w", index+1, err)
	}
	return nil
}

// DrawPaths enumerates the page's painted paths in paint order, with
// coordinates in page space. On a damaged content stream the paths before
// the damage are returned together with the error.
func (r *Reader) DrawPaths(index int) ([]model.DrawPath, error) {
	page, err := r.GetPage(index)
	if err != nil {
		return nil, err
	}
	ge := graphicsstate.NewGraphicsExtractor(r)
	err = r.RunPage(index, ge, page.Matrix())
	return ge.Paths(), err
}
