package contentstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/drawpipe/core"
)

// Operation is one content stream operator with the operands that preceded it.
//
// Inline images are reported as a single "BI" operation whose operands are
// the image dictionary (keys and values expanded to their full names) and
// the raw image data as a core.String.
type Operation struct {
	Operator string
	Operands []core.Object
}

// Parser splits a content stream into operations. Each parser owns its
// operand stack, so parsers are safe to use from separate goroutines.
type Parser struct {
	objects  *core.Parser
	lexer    *core.Lexer
	operands []core.Object
	ops      []Operation
}

// NewParser creates a parser over decoded content stream data.
func NewParser(data []byte) *Parser {
	objects := core.NewParser(data)
	return &Parser{objects: objects, lexer: objects.Lexer()}
}

// Parse returns every operation in order. On a syntax error it returns the
// operations read so far together with the error.
func (p *Parser) Parse() ([]Operation, error) {
	for {
		mark := p.lexer.Pos()
		tok, err := p.lexer.NextToken()
		if err != nil {
			return p.ops, fmt.Errorf("content stream at offset %d: %w", mark, err)
		}
		if tok.Type == core.TokenEOF {
			return p.ops, nil
		}

		if tok.Type == core.TokenKeyword && !isLiteralKeyword(string(tok.Value)) {
			op := string(tok.Value)
			if op == "BI" {
				if err := p.parseInlineImage(); err != nil {
					return p.ops, err
				}
				continue
			}
			p.emit(op)
			continue
		}

		p.lexer.SetPos(mark)
		obj, err := p.objects.ParseObject()
		if errors.Is(err, io.EOF) {
			return p.ops, nil
		}
		if err != nil {
			return p.ops, fmt.Errorf("content stream operand at offset %d: %w", mark, err)
		}
		p.operands = append(p.operands, obj)
	}
}

func isLiteralKeyword(s string) bool {
	return s == "true" || s == "false" || s == "null"
}

func (p *Parser) emit(op string) {
	operands := make([]core.Object, len(p.operands))
	copy(operands, p.operands)
	p.ops = append(p.ops, Operation{Operator: op, Operands: operands})
	p.operands = p.operands[:0]
}

// parseInlineImage reads "BI key value ... ID data EI".
func (p *Parser) parseInlineImage() error {
	start := p.lexer.Pos()
	dict := make(core.Dict)
	for {
		mark := p.lexer.Pos()
		tok, err := p.lexer.NextToken()
		if err != nil {
			return fmt.Errorf("inline image at offset %d: %w", start, err)
		}
		switch {
		case tok.Type == core.TokenEOF:
			return fmt.Errorf("inline image at offset %d: missing ID", start)
		case tok.Type == core.TokenKeyword && string(tok.Value) == "ID":
			data, err := p.lexer.ReadInlineImage()
			if err != nil {
				return err
			}
			p.operands = append(p.operands[:0], dict, core.String(data))
			p.emit("BI")
			return nil
		case tok.Type != core.TokenName:
			return fmt.Errorf("inline image key at offset %d is not a name", mark)
		}
		value, err := p.objects.ParseObject()
		if err != nil {
			return fmt.Errorf("inline image value for /%s: %w", tok.Value, err)
		}
		key := string(tok.Value)
		if full, ok := inlineKeys[key]; ok {
			key = full
		}
		dict[key] = expandInlineValue(value)
	}
}

var inlineKeys = map[string]string{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"W":   "Width",
}

var inlineValues = map[string]string{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
	"AHx":  "ASCIIHexDecode",
	"A85":  "ASCII85Decode",
	"LZW":  "LZWDecode",
	"Fl":   "FlateDecode",
	"RL":   "RunLengthDecode",
	"CCF":  "CCITTFaxDecode",
	"DCT":  "DCTDecode",
}

func expandInlineValue(obj core.Object) core.Object {
	switch v := obj.(type) {
	case core.Name:
		if full, ok := inlineValues[string(v)]; ok {
			return core.Name(full)
		}
	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			out[i] = expandInlineValue(elem)
		}
		return out
	}
	return obj
}
