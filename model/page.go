package model

// PageInfo describes a page as both pipeline paths see it: size after
// /Rotate, and the matrix taking PDF user space to top-left page space.
type PageInfo struct {
	Index    int     `json:"index"` // 0-based
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
	Matrix   Matrix  `json:"matrix"`
}

// Number returns the 1-based page number used in file names.
func (p PageInfo) Number() int { return p.Index + 1 }

// DeviceMatrix maps PDF user space to pixels at the given resolution.
func (p PageInfo) DeviceMatrix(dpi int) Matrix {
	s := float64(dpi) / 72
	return p.Matrix.Multiply(Scale(s, s))
}

// PixelSize returns the raster size of the page at dpi, rounding up the
// way renderers size their output.
func (p PageInfo) PixelSize(dpi int) (w, h int) {
	s := float64(dpi) / 72
	return ceilPositive(p.Width * s), ceilPositive(p.Height * s)
}

func ceilPositive(v float64) int {
	n := int(v)
	if float64(n) < v-1e-6 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
