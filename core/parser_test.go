package core

import (
	"errors"
	"io"
	"testing"
)

func TestParserScalars(t *testing.T) {
	tests := []struct {
		input    string
		expected Object
	}{
		{"null", Null{}},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"42", Int(42)},
		{"-7", Int(-7)},
		{"3.5", Real(3.5)},
		{"-.25", Real(-0.25)},
		{"4.", Real(4)},
		{"(text)", String("text")},
		{"<414243>", String("ABC")},
		{"/Name", Name("Name")},
		{"5 0 R", IndirectRef{Number: 5, Generation: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			obj, err := NewParser([]byte(tt.input)).ParseObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj != tt.expected {
				t.Errorf("Expected %#v, got %#v", tt.expected, obj)
			}
		})
	}
}

func TestParserIntegersAreNotReferences(t *testing.T) {
	p := NewParser([]byte("1 2 3 R 4"))
	want := []Object{Int(1), IndirectRef{Number: 2, Generation: 3}, Int(4)}
	for i, w := range want {
		obj, err := p.ParseObject()
		if err != nil {
			t.Fatalf("object %d: unexpected error: %v", i, err)
		}
		if obj != w {
			t.Errorf("object %d: expected %v, got %v", i, w, obj)
		}
	}
	if _, err := p.ParseObject(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestParserContainers(t *testing.T) {
	obj, err := NewParser([]byte("<< /Type /Page /MediaBox [0 0 612 792] /Parent 3 0 R /Res << /X [1 [2]] >> /Empty >>")).ParseObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dict, ok := obj.(Dict)
	if !ok {
		t.Fatalf("Expected Dict, got %T", obj)
	}
	if name, _ := dict.GetName("Type"); name != "Page" {
		t.Errorf("Expected /Type /Page, got %v", name)
	}
	box, _ := dict.GetArray("MediaBox")
	vals, ok := box.Floats()
	if !ok || len(vals) != 4 || vals[3] != 792 {
		t.Errorf("Expected MediaBox [0 0 612 792], got %v", box)
	}
	if ref, _ := dict.GetIndirectRef("Parent"); ref.Number != 3 {
		t.Errorf("Expected Parent 3 0 R, got %v", ref)
	}
	res, _ := dict["Res"].(Dict)
	x, _ := res.GetArray("X")
	if len(x) != 2 {
		t.Errorf("Expected nested array of 2, got %v", x)
	}
	if _, ok := dict.Get("Empty").(Null); !ok {
		t.Errorf("Expected missing value to read as null, got %v", dict.Get("Empty"))
	}
}

func TestParserErrors(t *testing.T) {
	for _, input := range []string{"[1 2", "<< /A 1", "<< 1 2 >>", "endobj"} {
		t.Run(input, func(t *testing.T) {
			if _, err := NewParser([]byte(input)).ParseObject(); err == nil {
				t.Errorf("Expected error for %q", input)
			}
		})
	}
}

func TestParseIndirectObject(t *testing.T) {
	obj, err := NewParser([]byte("7 0 obj\n<< /A (b) >>\nendobj")).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.Ref.Number != 7 || obj.Ref.Generation != 0 {
		t.Errorf("Expected ref 7 0, got %v", obj.Ref)
	}
	if _, ok := obj.Object.(Dict); !ok {
		t.Errorf("Expected Dict, got %T", obj.Object)
	}

	if _, err := NewParser([]byte("7 0 foo")).ParseIndirectObject(); err == nil {
		t.Error("Expected error for missing obj keyword")
	}
}

type mapResolver map[int]Object

func (m mapResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := m[ref.Number]; ok {
		return obj, nil
	}
	return nil, errors.New("not found")
}

func TestParseStream(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		resolver ReferenceResolver
		expected string
	}{
		{"direct length", "1 0 obj\n<< /Length 5 >>\nstream\r\nhello\nendstream\nendobj", nil, "hello"},
		{"binary data", "1 0 obj\n<< /Length 4 >>\nstream\n\x00\xff)(\nendstream\nendobj", nil, "\x00\xff)("},
		{"indirect length", "1 0 obj\n<< /Length 9 0 R >>\nstream\nabc\nendstream\nendobj", mapResolver{9: Int(3)}, "abc"},
		{"unresolvable length", "1 0 obj\n<< /Length 9 0 R >>\nstream\nabc\nendstream\nendobj", nil, "abc"},
		{"wrong length", "1 0 obj\n<< /Length 99 >>\nstream\nabcd\r\nendstream\nendobj", nil, "abcd"},
		{"missing endobj", "1 0 obj\n<< /Length 2 >>\nstream\nab\nendstream\n", nil, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser([]byte(tt.input))
			if tt.resolver != nil {
				p.SetReferenceResolver(tt.resolver)
			}
			obj, err := p.ParseIndirectObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s, ok := obj.Object.(*Stream)
			if !ok {
				t.Fatalf("Expected *Stream, got %T", obj.Object)
			}
			if string(s.Data) != tt.expected {
				t.Errorf("Expected data %q, got %q", tt.expected, s.Data)
			}
		})
	}
}

func TestParseStreamMissingEndstream(t *testing.T) {
	_, err := NewParser([]byte("1 0 obj\n<< >>\nstream\nabc")).ParseIndirectObject()
	if err == nil {
		t.Error("Expected error for stream without endstream")
	}
}
