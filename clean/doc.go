// Package clean turns a cropped drawing into a crisp black-and-white
// bitmap: non-local-means denoising, a Gaussian adaptive threshold and a
// small morphological closing.
//
//	c := clean.New(clean.DefaultOptions())
//	bw := c.Clean(crop) // every pixel is 0 or 255
package clean
