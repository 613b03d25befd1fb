package clean

import (
	"image"

	"github.com/tsawler/drawpipe/detect"
)

// Options configure the cleaning steps.
type Options struct {
	H              float64 // denoising filter strength
	TemplateWindow int     // patch size compared by the denoiser, odd
	SearchWindow   int     // neighbourhood searched for similar patches, odd
	BlockSize      int     // adaptive threshold neighbourhood, odd
	C              float64 // subtracted from the neighbourhood mean
	CloseKernel    int     // side of the square closing kernel
}

// DefaultOptions returns h 3, windows 7 and 21, block 11, C 2 and a 2x2
// closing kernel.
func DefaultOptions() Options {
	return Options{H: 3, TemplateWindow: 7, SearchWindow: 21, BlockSize: 11, C: 2, CloseKernel: 2}
}

// Cleaner applies the cleaning steps with fixed options.
type Cleaner struct {
	opts Options
}

func New(opts Options) *Cleaner {
	d := DefaultOptions()
	if opts.TemplateWindow <= 0 {
		opts.TemplateWindow = d.TemplateWindow
	}
	if opts.SearchWindow <= 0 {
		opts.SearchWindow = d.SearchWindow
	}
	if opts.BlockSize <= 1 {
		opts.BlockSize = d.BlockSize
	}
	if opts.CloseKernel <= 0 {
		opts.CloseKernel = d.CloseKernel
	}
	return &Cleaner{opts: opts}
}

// Clean returns a binary copy of img: every pixel is 0 or 255. img must
// not be nil.
func (c *Cleaner) Clean(img image.Image) *image.Gray {
	gray := detect.Grayscale(img)
	gray = Denoise(gray, c.opts.H, c.opts.TemplateWindow, c.opts.SearchWindow)
	gray = AdaptiveThreshold(gray, c.opts.BlockSize, c.opts.C)
	return Close(gray, c.opts.CloseKernel)
}
