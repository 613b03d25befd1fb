package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references. The parser uses it for
// stream /Length values stored as separate objects.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds PDF objects from lexer tokens. Lookahead for "n g R" is done
// by saving and restoring the lexer position.
type Parser struct {
	lexer    *Lexer
	resolver ReferenceResolver
}

// NewParser returns a parser at the start of data.
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// NewParserAt returns a parser positioned at offset.
func NewParserAt(data []byte, offset int) *Parser {
	p := NewParser(data)
	p.lexer.SetPos(offset)
	return p
}

// SetReferenceResolver installs the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// Lexer exposes the underlying lexer.
func (p *Parser) Lexer() *Lexer { return p.lexer }

// ParseObject parses the next direct object. It returns io.EOF at end of input.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	return p.parseFrom(tok)
}

func (p *Parser) parseFrom(tok Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
	case TokenInteger:
		return p.parseInteger(tok)
	case TokenReal:
		return parseReal(tok)
	case TokenString, TokenHexString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	}
	return nil, fmt.Errorf("unexpected token %q at offset %d", tok.Value, tok.Pos)
}

func parseReal(tok Token) (Object, error) {
	s := string(tok.Value)
	if len(s) > 0 && s[len(s)-1] == '.' {
		s += "0"
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid real %q at offset %d: %w", tok.Value, tok.Pos, err)
	}
	return Real(v), nil
}

// parseInteger returns an Int, or an IndirectRef when followed by "gen R".
func (p *Parser) parseInteger(tok Token) (Object, error) {
	n, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(tok.Value), 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid integer %q at offset %d", tok.Value, tok.Pos)
		}
		return Real(f), nil
	}

	mark := p.lexer.Pos()
	gen, err := p.lexer.NextToken()
	if err == nil && gen.Type == TokenInteger {
		r, err := p.lexer.NextToken()
		if err == nil && r.Type == TokenIndirectRef {
			g, _ := strconv.Atoi(string(gen.Value))
			return IndirectRef{Number: int(n), Generation: g}, nil
		}
	}
	p.lexer.SetPos(mark)
	return Int(n), nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, errors.New("unexpected EOF in array")
		}
		obj, err := p.parseFrom(tok)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	dict := make(Dict)
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, errors.New("unexpected EOF in dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("dictionary key at offset %d is not a name", tok.Pos)
		}
		key := string(tok.Value)
		vtok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if vtok.Type == TokenDictEnd {
			// "/Key >>" with the value missing
			dict[key] = Null{}
			return dict, nil
		}
		value, err := p.parseFrom(vtok)
		if err != nil {
			return nil, fmt.Errorf("dictionary value for /%s: %w", key, err)
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses "n g obj <object> [stream ... endstream] endobj".
// A missing endobj is tolerated.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	numTok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	genTok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	objTok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if numTok.Type != TokenInteger || genTok.Type != TokenInteger ||
		objTok.Type != TokenKeyword || string(objTok.Value) != "obj" {
		return nil, fmt.Errorf("expected object header at offset %d", numTok.Pos)
	}
	num, _ := strconv.Atoi(string(numTok.Value))
	gen, _ := strconv.Atoi(string(genTok.Value))

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	mark := p.lexer.Pos()
	tok, err := p.lexer.NextToken()
	if err == nil && tok.Type == TokenKeyword && string(tok.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d %d: stream must follow a dictionary", num, gen)
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
		}
		obj = stream
		mark = p.lexer.Pos()
		tok, err = p.lexer.NextToken()
	}
	if err != nil || tok.Type != TokenKeyword || string(tok.Value) != "endobj" {
		p.lexer.SetPos(mark)
	}

	return &IndirectObject{Ref: IndirectRef{Number: num, Generation: gen}, Object: obj}, nil
}

// parseStream reads stream data after the stream keyword. When /Length is
// missing or wrong the data runs up to the next endstream keyword.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.lexer.SkipStreamEOL()
	start := p.lexer.Pos()

	if length, ok := p.streamLength(dict); ok && length >= 0 && start+length <= len(p.lexer.Data()) {
		p.lexer.SetPos(start + length)
		mark := p.lexer.Pos()
		tok, err := p.lexer.NextToken()
		if err == nil && tok.Type == TokenKeyword && string(tok.Value) == "endstream" {
			return &Stream{Dict: dict, Data: p.lexer.Data()[start : start+length]}, nil
		}
		p.lexer.SetPos(mark)
	}

	p.lexer.SetPos(start)
	end := p.lexer.IndexFrom([]byte("endstream"))
	if end < 0 {
		return nil, fmt.Errorf("stream at offset %d: missing endstream", start)
	}
	data := bytes.TrimRight(p.lexer.Data()[start:end], "\r\n")
	p.lexer.SetPos(end + len("endstream"))
	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) streamLength(dict Dict) (int, bool) {
	switch v := dict.Get("Length").(type) {
	case Int:
		return int(v), true
	case IndirectRef:
		if p.resolver == nil {
			return 0, false
		}
		resolved, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, false
		}
		if n, ok := resolved.(Int); ok {
			return int(n), true
		}
	}
	return 0, false
}
