package reader

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/drawpipe/core"
)

// Metadata holds the text entries of the document info dictionary.
type Metadata struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
}

// Metadata returns the decoded info dictionary entries. A missing or
// unreadable info dictionary yields empty values.
func (r *Reader) Metadata() Metadata {
	info, err := r.GetInfo()
	if err != nil || info == nil {
		return Metadata{}
	}
	get := func(key string) string {
		obj, err := r.Resolve(info.Get(key))
		if err != nil {
			return ""
		}
		s, ok := obj.(core.String)
		if !ok {
			return ""
		}
		return DecodeTextString(s)
	}
	return Metadata{
		Title:    get("Title"),
		Author:   get("Author"),
		Subject:  get("Subject"),
		Creator:  get("Creator"),
		Producer: get("Producer"),
	}
}

var (
	utf16BOM = []byte{0xFE, 0xFF}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// DecodeTextString decodes a PDF text string: UTF-16BE or UTF-8 when it
// starts with the matching byte order mark, otherwise PDFDocEncoding,
// approximated by Windows-1252.
func DecodeTextString(s core.String) string {
	raw := []byte(s)
	var out string
	switch {
	case bytes.HasPrefix(raw, utf16BOM):
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		out = string(decoded)
	case bytes.HasPrefix(raw, utf8BOM):
		out = string(raw[len(utf8BOM):])
	default:
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return string(raw)
		}
		out = string(decoded)
	}
	return strings.TrimRight(out, "\x00")
}
