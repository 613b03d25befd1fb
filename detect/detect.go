package detect

import (
	"image"
	"image/color"
	"math"
	"sort"

	"golang.org/x/image/draw"

	"github.com/tsawler/drawpipe/model"
)

// Options control detection. The defaults assume a page rendered at
// 300 DPI; MinArea and Padding do not scale with resolution.
type Options struct {
	Threshold uint8   // pixels with luma <= Threshold are ink
	MinArea   float64 // contours must enclose more than this, in px²
	Padding   int     // pixels added on each side before clamping
}

// DefaultOptions returns threshold 250, minimum area 10000 and padding 10.
func DefaultOptions() Options {
	return Options{Threshold: 250, MinArea: 10000, Padding: 10}
}

// Detector finds drawing regions on a rendered page.
type Detector struct {
	opts Options
}

func New(opts Options) *Detector {
	return &Detector{opts: opts}
}

// Detect returns the padded bounding boxes of the outer contours of ink
// on img whose area exceeds MinArea, sorted by (y, x, w, h). Contours
// nested inside another shape's holes are not reported.
func (d *Detector) Detect(img image.Image, page int) []model.Region {
	gray := Grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	ink := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x, v := range row {
			ink[y*w+x] = v <= d.opts.Threshold
		}
	}
	b := &binary{w: w, h: h, ink: ink}
	outside := b.outsideBackground()

	var regions []model.Region
	seen := make([]bool, w*h)
	queue := make([]int, 0, 1024)
	for start := range ink {
		if !ink[start] || seen[start] {
			continue
		}

		// label the 8-connected component and test whether it borders the
		// background that reaches the image frame
		seen[start] = true
		queue = append(queue[:0], start)
		external := false
		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%w, i/w
			if !external && b.touchesOutside(x, y, outside) {
				external = true
			}
			for k := 0; k < 8; k++ {
				nx, ny := x+dirX[k], y+dirY[k]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if ink[j] && !seen[j] {
					seen[j] = true
					queue = append(queue, j)
				}
			}
		}
		if !external {
			continue
		}

		contour := b.traceOuter(start%w, start/w)
		area := polygonArea(contour)
		if area <= d.opts.MinArea {
			continue
		}
		regions = append(regions, d.pad(boundingBox(contour), w, h, page, area))
	}

	sort.Slice(regions, func(i, j int) bool {
		a, c := regions[i], regions[j]
		if a.Y != c.Y {
			return a.Y < c.Y
		}
		if a.X != c.X {
			return a.X < c.X
		}
		if a.Width != c.Width {
			return a.Width < c.Width
		}
		return a.Height < c.Height
	})
	return regions
}

// pad grows the box by Padding and clamps it to the w x h image.
func (d *Detector) pad(box image.Rectangle, w, h, page int, area float64) model.Region {
	p := d.opts.Padding
	x0, y0 := max(0, box.Min.X-p), max(0, box.Min.Y-p)
	x1, y1 := min(w, box.Max.X+p), min(h, box.Max.Y+p)
	return model.Region{Page: page, X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Area: area}
}

// Neighbour offsets in chain-code order: east first, then
// counterclockwise on screen.
var (
	dirX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	dirY = [8]int{0, -1, -1, -1, 0, 1, 1, 1}
)

type binary struct {
	w, h int
	ink  []bool
}

func (b *binary) at(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.w && y < b.h && b.ink[y*b.w+x]
}

// outsideBackground marks background pixels 4-connected to the frame.
func (b *binary) outsideBackground() []bool {
	out := make([]bool, b.w*b.h)
	var queue []int
	seed := func(x, y int) {
		i := y*b.w + x
		if !b.ink[i] && !out[i] {
			out[i] = true
			queue = append(queue, i)
		}
	}
	for x := 0; x < b.w; x++ {
		seed(x, 0)
		seed(x, b.h-1)
	}
	for y := 0; y < b.h; y++ {
		seed(0, y)
		seed(b.w-1, y)
	}
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		x, y := i%b.w, i/b.w
		for k := 0; k < 8; k += 2 {
			nx, ny := x+dirX[k], y+dirY[k]
			if nx >= 0 && ny >= 0 && nx < b.w && ny < b.h {
				seed(nx, ny)
			}
		}
	}
	return out
}

// touchesOutside reports whether ink pixel (x, y) lies on the frame or
// next to outside background.
func (b *binary) touchesOutside(x, y int, outside []bool) bool {
	if x == 0 || y == 0 || x == b.w-1 || y == b.h-1 {
		return true
	}
	for k := 0; k < 8; k += 2 {
		if outside[(y+dirY[k])*b.w+x+dirX[k]] {
			return true
		}
	}
	return false
}

// traceOuter follows the outer border of the component whose first pixel
// in raster order is (x, y), the way Suzuki and Abe's border following
// does, and returns the border pixels in order.
func (b *binary) traceOuter(x, y int) []image.Point {
	start := image.Point{X: x, Y: y}

	// clockwise from the west neighbour, which is background
	first := -1
	for k := 0; k < 8; k++ {
		d := (4 - k + 8) % 8
		if b.at(x+dirX[d], y+dirY[d]) {
			first = d
			break
		}
	}
	if first < 0 {
		return []image.Point{start}
	}
	p1 := image.Point{X: x + dirX[first], Y: y + dirY[first]}

	contour := []image.Point{}
	prev, cur := p1, start
	for {
		contour = append(contour, cur)
		back := direction(cur, prev)
		next := prev
		// counterclockwise from just past the previous pixel
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			if b.at(cur.X+dirX[d], cur.Y+dirY[d]) {
				next = image.Point{X: cur.X + dirX[d], Y: cur.Y + dirY[d]}
				break
			}
		}
		if next == start && cur == p1 {
			return contour
		}
		prev, cur = cur, next
	}
}

func direction(from, to image.Point) int {
	dx, dy := to.X-from.X, to.Y-from.Y
	for k := 0; k < 8; k++ {
		if dirX[k] == dx && dirY[k] == dy {
			return k
		}
	}
	return 0
}

// polygonArea is the shoelace area of the closed pixel-centre polygon.
func polygonArea(pts []image.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	sum := 0
	prev := pts[len(pts)-1]
	for _, p := range pts {
		sum += prev.X*p.Y - p.X*prev.Y
		prev = p
	}
	return math.Abs(float64(sum)) / 2
}

func boundingBox(pts []image.Point) image.Rectangle {
	r := image.Rectangle{Min: pts[0], Max: pts[0].Add(image.Pt(1, 1))}
	for _, p := range pts[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}

// Grayscale converts img to 8-bit luma with the fixed-point BT.601
// weights 0.299, 0.587 and 0.114, rounded. The result starts at (0,0).
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		draw.Draw(out, out.Bounds(), g, b.Min, draw.Src)
		return out
	}
	rgba, ok := img.(*image.RGBA)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			var r, g, bl uint32
			if ok {
				i := rgba.PixOffset(b.Min.X+x, b.Min.Y+y)
				r, g, bl = uint32(rgba.Pix[i]), uint32(rgba.Pix[i+1]), uint32(rgba.Pix[i+2])
			} else {
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
				r, g, bl = uint32(c.R), uint32(c.G), uint32(c.B)
			}
			out.Pix[y*out.Stride+x] = uint8((r*4899 + g*9617 + bl*1868 + 8192) >> 14)
		}
	}
	return out
}

// Crop copies the region's pixels out of img.
func Crop(img image.Image, r model.Region) *image.RGBA {
	b := img.Bounds()
	src := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(b.Min).Intersect(b)
	out := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(out, out.Bounds(), img, src.Min, draw.Src)
	return out
}
