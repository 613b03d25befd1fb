package core

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

// XRefType distinguishes the three kinds of cross-reference entries.
type XRefType int

const (
	XRefFree XRefType = iota
	XRefInUse
	XRefCompressed
)

// XRefEntry locates one object. In-use entries carry a file offset,
// compressed entries the containing object stream and index within it.
type XRefEntry struct {
	Type       XRefType
	Offset     int64
	Generation int
	StreamObj  int
	Index      int
}

// XRefTable maps object numbers to entries and keeps the newest trailer.
type XRefTable struct {
	Entries map[int]*XRefEntry
	Trailer Dict
}

func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]*XRefEntry), Trailer: make(Dict)}
}

func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	e, ok := x.Entries[objNum]
	return e, ok
}

func (x *XRefTable) Size() int { return len(x.Entries) }

// mergeOlder adds entries from an older section without overriding newer ones.
func (x *XRefTable) mergeOlder(older *XRefTable) {
	for num, e := range older.Entries {
		if _, ok := x.Entries[num]; !ok {
			x.Entries[num] = e
		}
	}
	for k, v := range older.Trailer {
		if !x.Trailer.Has(k) {
			x.Trailer[k] = v
		}
	}
}

// XRefParser reads cross-reference sections from a whole file held in memory.
type XRefParser struct {
	data []byte
}

func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

// FindXRef returns the offset recorded after the last startxref keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	tail := x.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	lex := NewLexer(tail[idx+len("startxref"):])
	tok, err := lex.NextToken()
	if err != nil || tok.Type != TokenInteger {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	off, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil || off < 0 || off >= int64(len(x.data)) {
		return 0, fmt.Errorf("startxref offset %q out of range", tok.Value)
	}
	return off, nil
}

// ParseXRef parses one section at offset: either a classic "xref" table with
// its trailer or a cross-reference stream object.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, fmt.Errorf("xref offset %d out of range", offset)
	}
	lex := NewLexer(x.data)
	lex.SetPos(int(offset))
	tok, err := lex.NextToken()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Type == TokenKeyword && string(tok.Value) == "xref":
		return x.parseTable(lex)
	case tok.Type == TokenInteger:
		return x.parseStream(int(offset))
	}
	return nil, fmt.Errorf("no xref section at offset %d", offset)
}

func (x *XRefParser) parseTable(lex *Lexer) (*XRefTable, error) {
	table := NewXRefTable()
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("xref subsection header at offset %d", tok.Pos)
		}
		countTok, err := lex.NextToken()
		if err != nil || countTok.Type != TokenInteger {
			return nil, fmt.Errorf("xref subsection count at offset %d", tok.Pos)
		}
		start, _ := strconv.Atoi(string(tok.Value))
		count, _ := strconv.Atoi(string(countTok.Value))
		for i := 0; i < count; i++ {
			off, err1 := lex.NextToken()
			gen, err2 := lex.NextToken()
			kind, err3 := lex.NextToken()
			if err1 != nil || err2 != nil || err3 != nil || off.Type != TokenInteger || gen.Type != TokenInteger {
				return nil, fmt.Errorf("xref entry %d malformed", start+i)
			}
			o, _ := strconv.ParseInt(string(off.Value), 10, 64)
			g, _ := strconv.Atoi(string(gen.Value))
			e := &XRefEntry{Type: XRefFree, Offset: o, Generation: g}
			if string(kind.Value) == "n" {
				e.Type = XRefInUse
			}
			if _, dup := table.Entries[start+i]; !dup {
				table.Entries[start+i] = e
			}
		}
	}

	trailer, err := NewParserAt(x.data, lex.Pos()).ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %T, not a dictionary", trailer)
	}
	table.Trailer = dict
	return table, nil
}

func (x *XRefParser) parseStream(offset int) (*XRefTable, error) {
	obj, err := NewParserAt(x.data, offset).ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	stream, ok := obj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream: object %d is not a stream", obj.Ref.Number)
	}
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, fmt.Errorf("xref stream: object %d has type %q", obj.Ref.Number, t)
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}

	wArr, _ := stream.Dict.GetArray("W")
	w, ok := wArr.Floats()
	if !ok || len(w) != 3 {
		return nil, fmt.Errorf("xref stream: invalid /W")
	}
	widths := [3]int{int(w[0]), int(w[1]), int(w[2])}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen <= 0 {
		return nil, fmt.Errorf("xref stream: empty /W")
	}

	size, _ := stream.Dict.GetInt("Size")
	index := []int{0, int(size)}
	if arr, ok := stream.Dict.GetArray("Index"); ok {
		if vals, ok := arr.Floats(); ok && len(vals)%2 == 0 {
			index = index[:0]
			for _, v := range vals {
				index = append(index, int(v))
			}
		}
	}

	table := NewXRefTable()
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		for n := 0; n < index[i+1]; n++ {
			if pos+rowLen > len(data) {
				break
			}
			row := data[pos : pos+rowLen]
			pos += rowLen
			kind := 1
			if widths[0] > 0 {
				kind = int(beUint(row[:widths[0]]))
			}
			f2 := beUint(row[widths[0] : widths[0]+widths[1]])
			f3 := beUint(row[widths[0]+widths[1]:])
			e := &XRefEntry{}
			switch kind {
			case 0:
				e.Type = XRefFree
				e.Generation = int(f3)
			case 1:
				e.Type = XRefInUse
				e.Offset = int64(f2)
				e.Generation = int(f3)
			case 2:
				e.Type = XRefCompressed
				e.StreamObj = int(f2)
				e.Index = int(f3)
			default:
				continue
			}
			table.Entries[index[i]+n] = e
		}
	}

	trailer := make(Dict, len(stream.Dict))
	for k, v := range stream.Dict {
		switch k {
		case "Filter", "DecodeParms", "Length", "W", "Index", "Type":
			continue
		}
		trailer[k] = v
	}
	table.Trailer = trailer
	return table, nil
}

func beUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// ParseAll follows startxref, every /Prev link and hybrid /XRefStm
// sections, and returns one table where newer entries win.
func (x *XRefParser) ParseAll() (*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}
	merged := NewXRefTable()
	seen := map[int64]bool{}
	for first := true; ; first = false {
		if seen[offset] {
			break
		}
		seen[offset] = true
		table, err := x.ParseXRef(offset)
		if err != nil {
			if first {
				return nil, err
			}
			break
		}
		if stm, ok := table.Trailer.GetInt("XRefStm"); ok && !seen[int64(stm)] {
			seen[int64(stm)] = true
			if hybrid, err := x.ParseXRef(int64(stm)); err == nil {
				table.mergeOlder(hybrid)
			}
		}
		merged.mergeOlder(table)
		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	delete(merged.Trailer, "Prev")
	delete(merged.Trailer, "XRefStm")
	return merged, nil
}

var objHeader = regexp.MustCompile(`(?m)(?:^|[\r\n\s])(\d+)\s+(\d+)\s+obj\b`)

// Rebuild reconstructs a table by scanning for object headers. It is the
// fallback for files whose xref data is missing or broken. The trailer is
// taken from the last trailer dictionary, or synthesized from the last
// catalog object found.
func (x *XRefParser) Rebuild() (*XRefTable, error) {
	table := NewXRefTable()
	for _, m := range objHeader.FindAllSubmatchIndex(x.data, -1) {
		num, _ := strconv.Atoi(string(x.data[m[2]:m[3]]))
		gen, _ := strconv.Atoi(string(x.data[m[4]:m[5]]))
		table.Entries[num] = &XRefEntry{Type: XRefInUse, Offset: int64(m[2]), Generation: gen}
	}
	if len(table.Entries) == 0 {
		return nil, fmt.Errorf("no objects found")
	}

	if idx := bytes.LastIndex(x.data, []byte("trailer")); idx >= 0 {
		if obj, err := NewParserAt(x.data, idx+len("trailer")).ParseObject(); err == nil {
			if dict, ok := obj.(Dict); ok {
				table.Trailer = dict
			}
		}
	}
	if !table.Trailer.Has("Root") {
		for num, e := range table.Entries {
			obj, err := NewParserAt(x.data, int(e.Offset)).ParseIndirectObject()
			if err != nil {
				continue
			}
			var dict Dict
			switch v := obj.Object.(type) {
			case Dict:
				dict = v
			case *Stream:
				dict = v.Dict
				if root, ok := dict.GetIndirectRef("Root"); ok {
					table.Trailer["Root"] = root
					continue
				}
			}
			if t, _ := dict.GetName("Type"); t == "Catalog" {
				table.Trailer["Root"] = IndirectRef{Number: num, Generation: e.Generation}
			}
		}
	}
	if !table.Trailer.Has("Root") {
		return nil, fmt.Errorf("no document catalog found")
	}
	return table, nil
}
