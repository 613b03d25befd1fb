package filters

import (
	"errors"
	"fmt"
)

// Params holds decode parameters from a /DecodeParms dictionary with PDF
// objects already converted to Go values (int, float64, bool, string).
type Params map[string]interface{}

// ErrUnsupported is returned for filters that are recognised but not
// implemented.
var ErrUnsupported = errors.New("unsupported filter")

// Passthrough reports whether the named filter leaves its data encoded for
// an image decoder further down the line.
func Passthrough(name string) bool {
	switch name {
	case "DCTDecode", "DCT", "JPXDecode":
		return true
	}
	return false
}

// Decode applies a single named filter.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return FlateDecode(data, params)
	case "ASCIIHexDecode", "AHx":
		return ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return ASCII85Decode(data)
	case "RunLengthDecode", "RL":
		return RunLengthDecode(data)
	case "CCITTFaxDecode", "CCF":
		return CCITTFaxDecode(data, params)
	case "DCTDecode", "DCT", "JPXDecode":
		return data, nil
	case "LZWDecode", "LZW", "JBIG2Decode", "Crypt":
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
	default:
		return nil, fmt.Errorf("unknown filter: %s", name)
	}
}

func intParam(params Params, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func boolParam(params Params, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
