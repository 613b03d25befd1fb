package core

import (
	"fmt"

	"github.com/tsawler/drawpipe/internal/filters"
)

// Filters returns the stream's filter names in application order.
func (s *Stream) Filters() []string {
	switch f := s.Dict.Get("Filter").(type) {
	case Name:
		return []string{string(f)}
	case Array:
		names := make([]string, 0, len(f))
		for _, obj := range f {
			if n, ok := obj.(Name); ok {
				names = append(names, string(n))
			}
		}
		return names
	}
	return nil
}

// ImageCodec returns the trailing image codec filter (DCTDecode or
// JPXDecode) whose output Decode leaves encoded, or "".
func (s *Stream) ImageCodec() string {
	names := s.Filters()
	if len(names) == 0 {
		return ""
	}
	last := names[len(names)-1]
	if filters.Passthrough(last) {
		return last
	}
	return ""
}

// Decode applies the stream's filter chain. Image codec filters pass their
// input through unchanged, see ImageCodec.
func (s *Stream) Decode() ([]byte, error) {
	names := s.Filters()
	data := s.Data
	for i, name := range names {
		out, err := filters.Decode(name, data, s.decodeParams(i))
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, name, err)
		}
		data = out
	}
	return data, nil
}

// decodeParams returns the DecodeParms for the i-th filter. DP is accepted
// as the abbreviated key used by inline images.
func (s *Stream) decodeParams(i int) filters.Params {
	obj := s.Dict.Get("DecodeParms")
	if obj == nil {
		obj = s.Dict.Get("DP")
	}
	switch v := obj.(type) {
	case Dict:
		return toParams(v)
	case Array:
		if d, ok := v.Get(i).(Dict); ok {
			return toParams(d)
		}
	}
	return nil
}

// toParams converts PDF values to the Go primitives the filters expect.
func toParams(dict Dict) filters.Params {
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case Name:
			params[k] = string(obj)
		case String:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
