package core

import (
	"bytes"
	"fmt"
)

// TokenType is the lexical class of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenKeyword       // true, obj, stream, re, T*, ' ...
	TokenInteger       // 123
	TokenReal          // 3.14
	TokenString        // (hello) with escapes resolved
	TokenHexString     // <48656C6C6F> decoded to bytes
	TokenName          // /Type with #xx escapes resolved
	TokenArrayStart    // [
	TokenArrayEnd      // ]
	TokenDictStart     // <<
	TokenDictEnd       // >>
	TokenIndirectRef   // R
)

// Token is a lexical token. Pos is the byte offset of its first byte.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int
}

// Lexer tokenizes PDF syntax from an in-memory buffer. It is shared by the
// file-level object parser and the content stream parser.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer returns a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the current byte offset.
func (l *Lexer) Pos() int { return l.pos }

// SetPos moves the lexer to an absolute offset, clamped to the buffer.
func (l *Lexer) SetPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

// Data returns the underlying buffer.
func (l *Lexer) Data() []byte { return l.data }

// NextToken returns the next token, skipping whitespace and comments.
func (l *Lexer) NextToken() (Token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	b := l.data[l.pos]
	switch b {
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: start}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if l.peekAt(1) == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if l.peekAt(1) == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return Token{}, fmt.Errorf("unexpected '>' at offset %d", start)
	case '/':
		return l.readName(), nil
	case ')', '{', '}':
		l.pos++
		return Token{}, fmt.Errorf("unexpected '%c' at offset %d", b, start)
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		if tok, ok := l.readNumber(); ok {
			return tok, nil
		}
	}
	return l.readKeyword(), nil
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off < len(l.data) {
		return l.data[l.pos+off]
	}
	return 0
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// SkipStreamEOL consumes the end-of-line marker that follows the stream
// keyword: CRLF, LF or a lone CR.
func (l *Lexer) SkipStreamEOL() {
	switch {
	case l.peekAt(0) == '\r' && l.peekAt(1) == '\n':
		l.pos += 2
	case l.peekAt(0) == '\n', l.peekAt(0) == '\r':
		l.pos++
	}
}

// ReadBytes returns the next n raw bytes.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || l.pos+n > len(l.data) {
		return nil, fmt.Errorf("read %d bytes at offset %d: past end of data", n, l.pos)
	}
	out := l.data[l.pos : l.pos+n]
	l.pos += n
	return out, nil
}

// ReadInlineImage returns the raw bytes between ID and EI and leaves the
// lexer positioned after EI. The single whitespace byte after ID is skipped.
func (l *Lexer) ReadInlineImage() ([]byte, error) {
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	start := l.pos
	for i := start; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		before := i == start || isWhitespace(l.data[i-1])
		after := i+2 >= len(l.data) || isWhitespace(l.data[i+2]) || isDelimiter(l.data[i+2])
		if before && after {
			end := i
			if end > start && isWhitespace(l.data[end-1]) {
				end--
			}
			l.pos = i + 2
			return l.data[start:end], nil
		}
	}
	return nil, fmt.Errorf("inline image at offset %d: missing EI", start)
}

// IndexFrom returns the offset of the next occurrence of sep at or after
// the current position, or -1.
func (l *Lexer) IndexFrom(sep []byte) int {
	i := bytes.Index(l.data[l.pos:], sep)
	if i < 0 {
		return -1
	}
	return l.pos + i
}

func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
			buf.WriteByte(b)
		case '\\':
			l.readEscape(&buf)
		case '\r':
			// EOL inside a literal string reads as LF
			if l.peekAt(0) == '\n' {
				l.pos++
			}
			buf.WriteByte('\n')
		default:
			buf.WriteByte(b)
		}
	}
	return Token{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (l *Lexer) readEscape(buf *bytes.Buffer) {
	if l.pos >= len(l.data) {
		return
	}
	next := l.data[l.pos]
	l.pos++
	switch next {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		if l.peekAt(0) == '\n' {
			l.pos++
		}
	case '\n':
	default:
		if isOctalDigit(next) {
			val := int(next - '0')
			for i := 0; i < 2 && l.pos < len(l.data) && isOctalDigit(l.data[l.pos]); i++ {
				val = val*8 + int(l.data[l.pos]-'0')
				l.pos++
			}
			buf.WriteByte(byte(val))
			return
		}
		buf.WriteByte(next)
	}
}

func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	l.pos++ // <
	var out []byte
	var hi byte
	half := false
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return Token{Type: TokenHexString, Value: out, Pos: start}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return Token{}, fmt.Errorf("invalid hex digit %q at offset %d", b, l.pos-1)
		}
		if half {
			out = append(out, hi<<4|hexValue(b))
		} else {
			hi = hexValue(b)
		}
		half = !half
	}
	return Token{}, fmt.Errorf("unterminated hex string at offset %d", start)
}

func (l *Lexer) readName() Token {
	start := l.pos
	l.pos++ // /
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
		if b == '#' && l.pos+1 < len(l.data) && isHexDigit(l.data[l.pos]) && isHexDigit(l.data[l.pos+1]) {
			buf.WriteByte(hexValue(l.data[l.pos])<<4 | hexValue(l.data[l.pos+1]))
			l.pos += 2
			continue
		}
		buf.WriteByte(b)
	}
	return Token{Type: TokenName, Value: buf.Bytes(), Pos: start}
}

// readNumber consumes a numeric literal. It reports false and leaves the
// position untouched when the bytes do not form a number (a lone "-" or ".").
func (l *Lexer) readNumber() (Token, bool) {
	start := l.pos
	i := l.pos
	if l.data[i] == '-' || l.data[i] == '+' {
		i++
	}
	digits, dot := 0, false
	for ; i < len(l.data); i++ {
		b := l.data[i]
		if isDigit(b) {
			digits++
			continue
		}
		if b == '.' && !dot {
			dot = true
			continue
		}
		// malformed producers emit "--5" or "1-2"; stop at the second sign
		break
	}
	if digits == 0 {
		return Token{}, false
	}
	l.pos = i
	typ := TokenInteger
	if dot {
		typ = TokenReal
	}
	return Token{Type: typ, Value: l.data[start:i], Pos: start}, true
}

func (l *Lexer) readKeyword() Token {
	start := l.pos
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}
	if l.pos == start {
		l.pos++
	}
	value := l.data[start:l.pos]
	if len(value) == 1 && value[0] == 'R' {
		return Token{Type: TokenIndirectRef, Value: value, Pos: start}
	}
	return Token{Type: TokenKeyword, Value: value, Pos: start}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
