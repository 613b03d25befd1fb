package clean

import (
	"image"
	"image/color"
	"testing"
)

func grayImage(w, h int, fill uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	return img
}

func setRect(img *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}

func count(img *image.Gray, v uint8) int {
	n := 0
	for _, p := range img.Pix {
		if p == v {
			n++
		}
	}
	return n
}

func TestClean_BinaryOutput(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	for i := 0; i < len(img.Pix); i += 4 {
		// faint texture on the paper
		v := uint8(238 + (i/4)%3)
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	for y := 20; y < 24; y++ {
		for x := 10; x < 70; x++ {
			img.SetRGBA(x, y, color.RGBA{A: 255})
		}
	}
	for x := 40; x < 44; x++ {
		for y := 5; y < 55; y++ {
			img.SetRGBA(x, y, color.RGBA{R: 20, G: 20, B: 60, A: 255})
		}
	}

	out := New(DefaultOptions()).Clean(img)
	if b := out.Bounds(); b != image.Rect(0, 0, 80, 60) {
		t.Fatalf("expected 80x60 output, got %v", b)
	}
	for i, p := range out.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("pixel %d = %d, expected 0 or 255", i, p)
		}
	}
	if count(out, 0) == 0 || count(out, 255) == 0 {
		t.Errorf("expected both black and white pixels, got %d black and %d white", count(out, 0), count(out, 255))
	}
	if out.GrayAt(30, 22).Y != 0 {
		t.Errorf("expected line pixel (30,22) to be black")
	}
	if out.GrayAt(5, 45).Y != 255 {
		t.Errorf("expected paper pixel (5,45) to be white")
	}
}

func TestClean_UniformInput(t *testing.T) {
	for _, fill := range []uint8{0, 137, 255} {
		out := New(DefaultOptions()).Clean(grayImage(30, 20, fill))
		if n := count(out, 255); n != 30*20 {
			t.Errorf("fill %d: expected every pixel white, got %d of %d", fill, n, 30*20)
		}
	}
}

func TestDenoise(t *testing.T) {
	t.Run("constant image is unchanged", func(t *testing.T) {
		out := Denoise(grayImage(15, 12, 137), 3, 7, 21)
		if n := count(out, 137); n != 15*12 {
			t.Errorf("expected every pixel 137, got %d of %d", n, 15*12)
		}
	})

	t.Run("sharp edge is preserved", func(t *testing.T) {
		img := grayImage(24, 16, 255)
		setRect(img, image.Rect(0, 0, 12, 16), 0)
		out := Denoise(img, 3, 7, 21)
		for y := 0; y < 16; y++ {
			for x := 0; x < 24; x++ {
				if got, want := out.GrayAt(x, y).Y, img.GrayAt(x, y).Y; got != want {
					t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, got, want)
				}
			}
		}
	})

	t.Run("isolated speck is smoothed", func(t *testing.T) {
		img := grayImage(30, 30, 200)
		img.SetGray(15, 15, color.Gray{Y: 206})
		out := Denoise(img, 3, 7, 21)
		if got := out.GrayAt(15, 15).Y; got >= 206 {
			t.Errorf("expected speck to be pulled towards 200, got %d", got)
		}
	})

	t.Run("single pixel image", func(t *testing.T) {
		out := Denoise(grayImage(1, 1, 9), 3, 7, 21)
		if out.Pix[0] != 9 {
			t.Errorf("expected 9, got %d", out.Pix[0])
		}
	})
}

func TestAdaptiveThreshold(t *testing.T) {
	tests := []struct {
		name string
		img  func() *image.Gray
		x, y int
		want uint8
	}{
		{"flat paper is white", func() *image.Gray { return grayImage(20, 20, 200) }, 10, 10, 255},
		{"dark line is black", func() *image.Gray {
			img := grayImage(20, 20, 255)
			setRect(img, image.Rect(0, 9, 20, 12), 0)
			return img
		}, 10, 10, 0},
		{"paper beside a line is white", func() *image.Gray {
			img := grayImage(20, 20, 255)
			setRect(img, image.Rect(0, 9, 20, 12), 0)
			return img
		}, 10, 13, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := AdaptiveThreshold(tt.img(), 11, 2)
			if got := out.GrayAt(tt.x, tt.y).Y; got != tt.want {
				t.Errorf("pixel (%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(11)
	if len(k) != 11 {
		t.Fatalf("expected 11 taps, got %d", len(k))
	}
	var sum float64
	for _, v := range k {
		sum += v
	}
	if sum < 0.999999 || sum > 1.000001 {
		t.Errorf("expected kernel to sum to 1, got %v", sum)
	}
	if k[5] <= k[4] || k[0] != k[10] {
		t.Errorf("expected symmetric kernel peaking at the centre, got %v", k)
	}
}

func TestClose(t *testing.T) {
	img := grayImage(12, 12, 255)
	img.SetGray(1, 1, color.Gray{}) // speck
	setRect(img, image.Rect(5, 5, 8, 8), 0)

	out := Close(img, 2)
	if out.GrayAt(1, 1).Y != 255 {
		t.Errorf("expected speck to be removed")
	}
	if n := count(out, 0); n != 9 {
		t.Errorf("expected 9 black pixels from the 3x3 block, got %d", n)
	}

	if got := Close(img, 1); count(got, 0) != count(img, 0) {
		t.Errorf("expected 1x1 kernel to leave the image unchanged")
	}
}

func TestReflect101(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 5, 0},
		{-1, 5, 1},
		{-3, 5, 3},
		{5, 5, 3},
		{7, 5, 1},
		{-13, 5, 3},
		{4, 1, 0},
	}
	for _, tt := range tests {
		if got := reflect101(tt.i, tt.n); got != tt.want {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestWeightTable(t *testing.T) {
	lut := weightTable(3, 49)
	if lut[0] != 1 {
		t.Errorf("expected identical patches to weigh 1, got %v", lut[0])
	}
	if last := lut[len(lut)-1]; last != 0 {
		t.Errorf("expected the table to end below the cutoff, got %v", last)
	}
	if len(lut) != 3048 {
		t.Errorf("expected 3048 entries, got %d", len(lut))
	}
}
