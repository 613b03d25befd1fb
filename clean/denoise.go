package clean

import (
	"image"
	"math"
)

// minWeight is the smallest patch weight that still contributes.
const minWeight = 0.001

// Denoise applies non-local-means filtering to src. Each output pixel is
// the weighted mean of the pixels within searchWindow whose
// templateWindow patch resembles its own, with weight
// exp(-meanSquaredDifference/h²). Borders reflect without repeating the
// edge pixel.
func Denoise(src *image.Gray, h float64, templateWindow, searchWindow int) *image.Gray {
	b := src.Bounds()
	w, ht := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, ht))
	if w == 0 || ht == 0 {
		return out
	}
	if h <= 0 {
		for y := 0; y < ht; y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return out
	}

	tr, sr := templateWindow/2, searchWindow/2
	n := 2*tr + 1
	pad := tr + sr
	pw, ph := w+2*pad, ht+2*pad
	padded := make([]int32, pw*ph)
	for y := 0; y < ph; y++ {
		sy := reflect101(y-pad, ht)
		for x := 0; x < pw; x++ {
			padded[y*pw+x] = int32(src.Pix[src.PixOffset(b.Min.X+reflect101(x-pad, w), b.Min.Y+sy)])
		}
	}
	lut := weightTable(h, n*n)

	// squared differences are summed over the image grown by the template
	// radius, so every template is one box lookup in the integral image
	dw, dh := w+2*tr, ht+2*tr
	stride := dw + 1
	integral := make([]int64, stride*(dh+1))
	sumW := make([]float64, w*ht)
	sumWI := make([]float64, w*ht)

	for dy := -sr; dy <= sr; dy++ {
		for dx := -sr; dx <= sr; dx++ {
			for y := 0; y < dh; y++ {
				row := (y+sr)*pw + sr
				shifted := row + dy*pw + dx
				base := (y + 1) * stride
				var acc int64
				for x := 0; x < dw; x++ {
					d := padded[row+x] - padded[shifted+x]
					acc += int64(d * d)
					integral[base+x+1] = integral[base-stride+x+1] + acc
				}
			}

			for y := 0; y < ht; y++ {
				top, bottom := y*stride, (y+n)*stride
				for x := 0; x < w; x++ {
					s := integral[bottom+x+n] - integral[top+x+n] - integral[bottom+x] + integral[top+x]
					if s >= int64(len(lut)) {
						continue
					}
					wt := lut[s]
					if wt == 0 {
						continue
					}
					i := y*w + x
					sumW[i] += wt
					sumWI[i] += wt * float64(padded[(y+pad+dy)*pw+x+pad+dx])
				}
			}
		}
	}

	for y := 0; y < ht; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			out.Pix[y*out.Stride+x] = clamp8(math.Round(sumWI[i] / sumW[i]))
		}
	}
	return out
}

// weightTable maps a patch's summed squared difference to its weight.
// Sums past the end of the table weigh nothing.
func weightTable(h float64, area int) []float64 {
	limit := int(math.Ceil(-math.Log(minWeight) * h * h * float64(area)))
	lut := make([]float64, limit+1)
	for s := range lut {
		wt := math.Exp(-float64(s) / float64(area) / (h * h))
		if wt < minWeight {
			wt = 0
		}
		lut[s] = wt
	}
	return lut
}

// reflect101 maps i into [0, n) as gfedcb|abcdefgh|gfedcba.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		} else {
			i = 2*(n-1) - i
		}
	}
	return i
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
