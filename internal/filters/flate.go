package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FlateDecode inflates zlib data and undoes any TIFF or PNG predictor named
// in params. Streams truncated before the zlib checksum are common in the
// wild, so whatever inflated cleanly before an unexpected EOF is kept.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(out) > 0) {
		return nil, fmt.Errorf("failed to inflate: %w", err)
	}

	predictor := intParam(params, "Predictor", 1)
	if predictor <= 1 {
		return out, nil
	}
	return unpredict(out, predictor, params)
}

// unpredict reverses TIFF predictor 2 and the PNG predictors (10-15).
func unpredict(data []byte, predictor int, params Params) ([]byte, error) {
	colors := intParam(params, "Colors", 1)
	bpc := intParam(params, "BitsPerComponent", 8)
	columns := intParam(params, "Columns", 1)
	if colors < 1 || bpc < 1 || columns < 1 {
		return nil, fmt.Errorf("invalid predictor parameters")
	}

	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8

	switch {
	case predictor == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("TIFF predictor with %d bits per component: %w", bpc, ErrUnsupported)
		}
		out := make([]byte, len(data))
		copy(out, data)
		for start := 0; start+rowLen <= len(out); start += rowLen {
			row := out[start : start+rowLen]
			for i := colors; i < len(row); i++ {
				row[i] += row[i-colors]
			}
		}
		return out, nil

	case predictor >= 10 && predictor <= 15:
		stride := rowLen + 1
		rows := len(data) / stride
		out := make([]byte, rows*rowLen)
		prev := make([]byte, rowLen)
		for r := 0; r < rows; r++ {
			tag := data[r*stride]
			src := data[r*stride+1 : (r+1)*stride]
			cur := out[r*rowLen : (r+1)*rowLen]
			if err := pngRow(tag, src, cur, prev, bpp); err != nil {
				return nil, fmt.Errorf("row %d: %w", r, err)
			}
			prev = cur
		}
		return out, nil
	}

	return nil, fmt.Errorf("predictor %d: %w", predictor, ErrUnsupported)
}

func pngRow(tag byte, src, cur, prev []byte, bpp int) error {
	for i := range src {
		var left, upLeft byte
		if i >= bpp {
			left = cur[i-bpp]
			upLeft = prev[i-bpp]
		}
		up := prev[i]

		switch tag {
		case 0:
			cur[i] = src[i]
		case 1:
			cur[i] = src[i] + left
		case 2:
			cur[i] = src[i] + up
		case 3:
			cur[i] = src[i] + byte((int(left)+int(up))/2)
		case 4:
			cur[i] = src[i] + paeth(left, up, upLeft)
		default:
			return fmt.Errorf("unknown PNG filter type %d", tag)
		}
	}
	return nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
