package reader

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/tsawler/drawpipe/core"
)

// PageImage is an image XObject or inline image with its samples decoded
// from the stream filters but not yet converted to pixels.
type PageImage struct {
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       string // family: DeviceGray, DeviceRGB, DeviceCMYK, Indexed, Separation, DeviceN
	Components       int
	Decode           []float64
	Stencil          bool   // ImageMask: samples select where the fill color is painted
	Codec            string // DCTDecode when Data is still JPEG
	Data             []byte
	SMask            *PageImage

	palette []color.NRGBA
}

// maxImagePixels rejects images whose pixel buffer would be unreasonably
// large.
const maxImagePixels = 1 << 26

// LoadImage reads an image stream's dictionary and decodes its data.
func (r *Reader) LoadImage(stream *core.Stream) (*PageImage, error) {
	dict := stream.Dict

	width, err := r.intEntry(dict, "Width")
	if err != nil {
		return nil, err
	}
	height, err := r.intEntry(dict, "Height")
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 || width*height > maxImagePixels {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	img := &PageImage{Width: width, Height: height, BitsPerComponent: 8}
	if mask, _ := dict.GetBool("ImageMask"); mask {
		img.Stencil = true
		img.BitsPerComponent = 1
		img.Components = 1
	} else {
		if bpc, err := r.intEntry(dict, "BitsPerComponent"); err == nil {
			img.BitsPerComponent = bpc
		}
		if err := r.applyColorSpace(img, dict.Get("ColorSpace")); err != nil {
			return nil, err
		}
	}
	switch img.BitsPerComponent {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("unsupported bits per component: %d", img.BitsPerComponent)
	}

	if decodeObj, err := r.Resolve(dict.Get("Decode")); err == nil {
		if arr, ok := decodeObj.(core.Array); ok {
			if vals, ok := arr.Floats(); ok && len(vals) >= 2*img.Components {
				img.Decode = vals
			}
		}
	}

	img.Codec = stream.ImageCodec()
	if img.Codec == "JPXDecode" {
		return nil, fmt.Errorf("unsupported image codec: %s", img.Codec)
	}
	img.Data, err = stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode image stream: %w", err)
	}
	if img.Codec == "DCTDecode" {
		// the JPEG carries its own bit depth
		img.BitsPerComponent = 8
	}

	if smaskObj := dict.Get("SMask"); smaskObj != nil && !img.Stencil {
		if resolved, err := r.Resolve(smaskObj); err == nil {
			if s, ok := resolved.(*core.Stream); ok {
				// a broken soft mask leaves the image opaque
				if smask, err := r.LoadImage(s); err == nil && smask.Components == 1 {
					img.SMask = smask
				}
			}
		}
	}
	return img, nil
}

func (r *Reader) intEntry(dict core.Dict, key string) (int, error) {
	obj, err := r.Resolve(dict.Get(key))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve /%s: %w", key, err)
	}
	v, ok := core.Number(obj)
	if !ok {
		return 0, fmt.Errorf("image missing /%s", key)
	}
	return int(v), nil
}

// applyColorSpace sets the family, component count and palette.
func (r *Reader) applyColorSpace(img *PageImage, obj core.Object) error {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return fmt.Errorf("failed to resolve color space: %w", err)
	}

	switch v := resolved.(type) {
	case nil:
		img.ColorSpace, img.Components = "DeviceGray", 1
		return nil
	case core.Name:
		return setDeviceSpace(img, string(v))
	case core.Array:
		if len(v) == 0 {
			return fmt.Errorf("empty color space array")
		}
		family, _ := v[0].(core.Name)
		switch family {
		case "ICCBased":
			n := 3
			if s, err := r.Resolve(v.Get(1)); err == nil {
				if stream, ok := s.(*core.Stream); ok {
					if count, ok := stream.Dict.GetInt("N"); ok {
						n = int(count)
					}
				}
			}
			return setDeviceSpace(img, componentSpace(n))
		case "CalGray", "CalRGB", "Lab":
			return setDeviceSpace(img, string(family))
		case "Indexed", "I":
			return r.applyIndexed(img, v)
		case "Separation":
			img.ColorSpace, img.Components = "Separation", 1
			return nil
		case "DeviceN":
			names, _ := r.Resolve(v.Get(1))
			arr, ok := names.(core.Array)
			if !ok || len(arr) == 0 {
				return fmt.Errorf("invalid DeviceN color space")
			}
			img.ColorSpace, img.Components = "DeviceN", len(arr)
			return nil
		default:
			return setDeviceSpace(img, string(family))
		}
	}
	return fmt.Errorf("invalid color space type: %T", resolved)
}

func componentSpace(n int) string {
	switch n {
	case 1:
		return "DeviceGray"
	case 4:
		return "DeviceCMYK"
	}
	return "DeviceRGB"
}

func setDeviceSpace(img *PageImage, name string) error {
	switch name {
	case "DeviceGray", "CalGray", "G":
		img.ColorSpace, img.Components = "DeviceGray", 1
	case "DeviceRGB", "CalRGB", "Lab", "RGB":
		img.ColorSpace, img.Components = "DeviceRGB", 3
	case "DeviceCMYK", "CMYK":
		img.ColorSpace, img.Components = "DeviceCMYK", 4
	default:
		return fmt.Errorf("unsupported color space: %s", name)
	}
	return nil
}

// applyIndexed reads [/Indexed base hival lookup] into a palette.
func (r *Reader) applyIndexed(img *PageImage, arr core.Array) error {
	if len(arr) != 4 {
		return fmt.Errorf("invalid Indexed color space")
	}
	base := &PageImage{}
	if err := r.applyColorSpace(base, arr[1]); err != nil {
		return fmt.Errorf("indexed base: %w", err)
	}
	if base.palette != nil {
		return fmt.Errorf("indexed base cannot be indexed")
	}
	hivalObj, _ := r.Resolve(arr[2])
	hival, ok := core.Number(hivalObj)
	if !ok || hival < 0 {
		return fmt.Errorf("invalid Indexed hival")
	}

	lookupObj, err := r.Resolve(arr[3])
	if err != nil {
		return fmt.Errorf("failed to resolve Indexed lookup: %w", err)
	}
	var lookup []byte
	switch v := lookupObj.(type) {
	case core.String:
		lookup = []byte(v)
	case *core.Stream:
		if lookup, err = v.Decode(); err != nil {
			return fmt.Errorf("failed to decode Indexed lookup: %w", err)
		}
	default:
		return fmt.Errorf("invalid Indexed lookup type: %T", lookupObj)
	}

	n := base.Components
	img.palette = make([]color.NRGBA, int(hival)+1)
	comps := make([]float64, n)
	for i := range img.palette {
		if (i+1)*n > len(lookup) {
			break
		}
		for c := 0; c < n; c++ {
			comps[c] = float64(lookup[i*n+c]) / 255
		}
		img.palette[i] = toNRGBA(base.ColorSpace, comps)
	}
	img.ColorSpace, img.Components = "Indexed", 1
	return nil
}

// ToImage converts the samples to pixels. Images with a soft mask come back
// as *image.NRGBA with the mask as alpha.
func (img *PageImage) ToImage() (image.Image, error) {
	if img.Stencil {
		return nil, fmt.Errorf("stencil masks have no color; use ToStencil")
	}

	var base image.Image
	if img.Codec == "DCTDecode" {
		decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode JPEG: %w", err)
		}
		if img.SMask == nil {
			return decoded, nil
		}
		base = decoded
	} else {
		out, err := img.toNRGBA()
		if err != nil {
			return nil, err
		}
		if img.SMask == nil {
			return out, nil
		}
		base = out
	}

	mask, err := img.SMask.grayLevels()
	if err != nil {
		return base, nil
	}
	bounds := base.Bounds()
	out := image.NewNRGBA(bounds)
	draw.Draw(out, bounds, base, bounds.Min, draw.Src)
	mw, mh := img.SMask.Width, img.SMask.Height
	for y := 0; y < bounds.Dy(); y++ {
		my := y * mh / bounds.Dy()
		for x := 0; x < bounds.Dx(); x++ {
			mx := x * mw / bounds.Dx()
			out.Pix[y*out.Stride+x*4+3] = mask[my*mw+mx]
		}
	}
	return out, nil
}

// ToStencil returns the painted area of an image mask as alpha.
func (img *PageImage) ToStencil() (*image.Alpha, error) {
	if !img.Stencil {
		return nil, fmt.Errorf("not an image mask")
	}
	// sample 0 paints unless the decode array is [1 0]
	paintOn := uint32(0)
	if len(img.Decode) >= 2 && img.Decode[0] > img.Decode[1] {
		paintOn = 1
	}
	stride := (img.Width + 7) / 8
	if len(img.Data) < stride*img.Height {
		return nil, fmt.Errorf("insufficient data for image mask: got %d, expected %d", len(img.Data), stride*img.Height)
	}
	out := image.NewAlpha(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*stride:]
		for x := 0; x < img.Width; x++ {
			if sample(row, x, 1) == paintOn {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out, nil
}

// grayLevels returns one 8-bit level per pixel for a single-component
// image, used for soft masks.
func (img *PageImage) grayLevels() ([]byte, error) {
	if img.Codec == "DCTDecode" {
		decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return nil, err
		}
		gray := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		draw.Draw(gray, gray.Bounds(), decoded, decoded.Bounds().Min, draw.Src)
		return gray.Pix, nil
	}
	levels := make([]byte, img.Width*img.Height)
	err := img.eachPixel(func(i int, comps []float64) {
		levels[i] = unit8(comps[0])
	})
	return levels, err
}

func (img *PageImage) toNRGBA() (*image.NRGBA, error) {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	err := img.eachPixel(func(i int, comps []float64) {
		var c color.NRGBA
		if img.palette != nil {
			idx := int(comps[0])
			if idx >= 0 && idx < len(img.palette) {
				c = img.palette[idx]
			} else {
				c = color.NRGBA{A: 255}
			}
		} else {
			c = toNRGBA(img.ColorSpace, comps)
		}
		out.Pix[i*4+0] = c.R
		out.Pix[i*4+1] = c.G
		out.Pix[i*4+2] = c.B
		out.Pix[i*4+3] = 255
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// eachPixel unpacks rows of samples and maps them through the decode
// array. For indexed images the component is the raw palette index.
func (img *PageImage) eachPixel(fn func(i int, comps []float64)) error {
	n, bpc := img.Components, img.BitsPerComponent
	if n <= 0 {
		return fmt.Errorf("image has no color components")
	}
	stride := (img.Width*n*bpc + 7) / 8
	if len(img.Data) < stride*img.Height {
		return fmt.Errorf("insufficient image data: got %d, expected %d", len(img.Data), stride*img.Height)
	}

	maxVal := float64(uint32(1)<<uint(bpc) - 1)
	decode := img.Decode
	if decode == nil {
		decode = make([]float64, 2*n)
		for c := 0; c < n; c++ {
			if img.palette != nil {
				decode[2*c+1] = maxVal
			} else {
				decode[2*c+1] = 1
			}
		}
	}

	comps := make([]float64, n)
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*stride:]
		for x := 0; x < img.Width; x++ {
			for c := 0; c < n; c++ {
				s := float64(sample(row, x*n+c, bpc))
				lo, hi := decode[2*c], decode[2*c+1]
				comps[c] = lo + s*(hi-lo)/maxVal
			}
			fn(y*img.Width+x, comps)
		}
	}
	return nil
}

// sample returns the i-th bpc-bit sample of a row, most significant bit first.
func sample(row []byte, i, bpc int) uint32 {
	switch bpc {
	case 8:
		return uint32(row[i])
	case 16:
		return uint32(row[2*i])<<8 | uint32(row[2*i+1])
	}
	bit := i * bpc
	b := row[bit/8]
	shift := 8 - bpc - bit%8
	return uint32(b>>uint(shift)) & (1<<uint(bpc) - 1)
}

// toNRGBA converts normalized components of a color space family.
func toNRGBA(space string, c []float64) color.NRGBA {
	switch space {
	case "DeviceRGB":
		return color.NRGBA{R: unit8(c[0]), G: unit8(c[1]), B: unit8(c[2]), A: 255}
	case "DeviceCMYK":
		k := 1 - clampUnit(c[3])
		return color.NRGBA{
			R: unit8((1 - clampUnit(c[0])) * k),
			G: unit8((1 - clampUnit(c[1])) * k),
			B: unit8((1 - clampUnit(c[2])) * k),
			A: 255,
		}
	case "Separation", "DeviceN":
		// tints are ink coverage
		ink := 0.0
		for _, v := range c {
			ink += v
		}
		g := unit8(1 - ink)
		return color.NRGBA{R: g, G: g, B: g, A: 255}
	}
	g := unit8(c[0])
	return color.NRGBA{R: g, G: g, B: g, A: 255}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func unit8(v float64) uint8 {
	return uint8(clampUnit(v)*255 + 0.5)
}
