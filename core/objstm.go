package core

import (
	"fmt"
)

// ObjectStream is a /Type /ObjStm stream holding several compressed objects.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	extends *IndirectRef
	decoded []byte
	entries []objStmEntry
	cache   map[int]Object
}

type objStmEntry struct {
	num    int
	offset int
}

// NewObjectStream validates the /Type, /N and /First entries of stream.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("object stream is nil")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream (type %q)", t)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream: invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream: invalid /First")
	}
	os := &ObjectStream{stream: stream, n: int(n), first: int(first), cache: make(map[int]Object)}
	if ref, ok := stream.Dict.GetIndirectRef("Extends"); ok {
		os.extends = &ref
	}
	return os, nil
}

func (os *ObjectStream) N() int                { return os.n }
func (os *ObjectStream) First() int            { return os.first }
func (os *ObjectStream) Extends() *IndirectRef { return os.extends }

func (os *ObjectStream) load() error {
	if os.decoded != nil {
		return nil
	}
	data, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("decode object stream: %w", err)
	}
	if os.first > len(data) {
		return fmt.Errorf("object stream: /First %d beyond data length %d", os.first, len(data))
	}
	p := NewParser(data[:os.first])
	entries := make([]objStmEntry, 0, os.n)
	for i := 0; i < os.n; i++ {
		num, err1 := p.ParseObject()
		off, err2 := p.ParseObject()
		ni, ok1 := num.(Int)
		oi, ok2 := off.(Int)
		if err1 != nil || err2 != nil || !ok1 || !ok2 {
			return fmt.Errorf("object stream header: bad pair %d", i)
		}
		entries = append(entries, objStmEntry{num: int(ni), offset: int(oi)})
	}
	os.decoded = data
	os.entries = entries
	return nil
}

// GetObjectByIndex parses the index-th object. It also returns the object's number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.entries) {
		return nil, 0, fmt.Errorf("object stream index %d out of range [0, %d)", index, len(os.entries))
	}
	e := os.entries[index]
	if obj, ok := os.cache[index]; ok {
		return obj, e.num, nil
	}
	start := os.first + e.offset
	if start >= len(os.decoded) {
		return nil, 0, fmt.Errorf("object %d: offset %d beyond data", e.num, start)
	}
	obj, err := NewParserAt(os.decoded, start).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object %d in object stream: %w", e.num, err)
	}
	os.cache[index] = obj
	return obj, e.num, nil
}

// GetObjectByNumber finds an object by number and returns it with its index.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	for i, e := range os.entries {
		if e.num == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, i, err
		}
	}
	return nil, 0, fmt.Errorf("object %d not found in object stream", objNum)
}

// ObjectNumbers lists the object numbers stored in the stream.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	nums := make([]int, len(os.entries))
	for i, e := range os.entries {
		nums[i] = e.num
	}
	return nums, nil
}
