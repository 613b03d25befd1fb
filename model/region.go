package model

// Region is a detected drawing on a rendered page. The box is in pixels,
// already padded and clamped to the image.
type Region struct {
	Page   int     `json:"page"` // 0-based page index
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Area   float64 `json:"area"` // contour area before padding
}

// Coordinates returns the box as [x, y, w, h].
func (r Region) Coordinates() [4]int {
	return [4]int{r.X, r.Y, r.Width, r.Height}
}
