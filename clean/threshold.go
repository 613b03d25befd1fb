package clean

import (
	"image"
	"math"
)

// AdaptiveThreshold compares every pixel with the Gaussian-weighted mean
// of its blockSize x blockSize neighbourhood: the result is 255 where
// src > mean - c and 0 elsewhere. Borders replicate the edge pixel.
func AdaptiveThreshold(src *image.Gray, blockSize int, c float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	kernel := gaussianKernel(blockSize)
	r := len(kernel) / 2
	at := func(x, y int) float64 {
		return float64(src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	rows := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k, kv := range kernel {
				sum += kv * at(clampIndex(x+k-r, w), y)
			}
			rows[y*w+x] = sum
		}
	}

	delta := int(math.Ceil(c))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k, kv := range kernel {
				sum += kv * rows[clampIndex(y+k-r, h)*w+x]
			}
			mean := int(clamp8(math.Round(sum)))
			if int(at(x, y))-mean > -delta {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// gaussianKernel returns a normalized 1D kernel of odd size n with
// sigma 0.3*((n-1)/2 - 1) + 0.8.
func gaussianKernel(n int) []float64 {
	if n%2 == 0 {
		n++
	}
	sigma := 0.3*(float64(n-1)*0.5-1) + 0.8
	k := make([]float64, n)
	var sum float64
	for i := range k {
		x := float64(i - n/2)
		k[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
