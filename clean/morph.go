package clean

import "image"

// Close dilates then erodes src with a k x k square of ones anchored at
// (k/2, k/2). Pixels outside the image are ignored. On a black drawing
// over white this removes dark specks and lines thinner than k.
func Close(src *image.Gray, k int) *image.Gray {
	if k <= 1 {
		return morph(src, 1, true)
	}
	return morph(morph(src, k, true), k, false)
}

// morph takes the maximum (dilate) or minimum of each pixel's kernel
// neighbourhood.
func morph(src *image.Gray, k int, dilate bool) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	anchor := k / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8
			if !dilate {
				v = 255
			}
			for j := 0; j < k; j++ {
				sy := y + j - anchor
				if sy < 0 || sy >= h {
					continue
				}
				for i := 0; i < k; i++ {
					sx := x + i - anchor
					if sx < 0 || sx >= w {
						continue
					}
					p := src.Pix[src.PixOffset(b.Min.X+sx, b.Min.Y+sy)]
					if dilate && p > v || !dilate && p < v {
						v = p
					}
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}
