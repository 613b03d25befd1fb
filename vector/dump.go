package vector

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tsawler/drawpipe/model"
)

// Dump is the JSON form of one page's paths, as written by
// `drawpipe paths` and read back by `drawpipe redraw`.
type Dump struct {
	Page   int              `json:"page"` // 1-based
	Width  float64          `json:"width"`
	Height float64          `json:"height"`
	Paths  []model.DrawPath `json:"paths"`
}

// EncodeDump writes d as indented JSON.
func EncodeDump(w io.Writer, d Dump) error {
	if d.Paths == nil {
		d.Paths = []model.DrawPath{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode paths: %w", err)
	}
	return nil
}

// DecodeDump reads a dump. A bare JSON array of paths is accepted too,
// leaving the page size zero.
func DecodeDump(r io.Reader) (Dump, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Dump{}, fmt.Errorf("failed to read paths: %w", err)
	}
	var d Dump
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &d.Paths); err != nil {
			return Dump{}, fmt.Errorf("failed to decode paths: %w", err)
		}
		return d, nil
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return Dump{}, fmt.Errorf("failed to decode paths: %w", err)
	}
	return d, nil
}

// PageInfo returns the page a dump describes.
func (d Dump) PageInfo() model.PageInfo {
	index := d.Page - 1
	if index < 0 {
		index = 0
	}
	return model.PageInfo{Index: index, Width: d.Width, Height: d.Height, Matrix: model.Identity()}
}
