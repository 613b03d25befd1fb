package reader

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/tsawler/drawpipe/core"
)

func imageStream(dict core.Dict, data []byte) *core.Stream {
	if dict["Width"] == nil {
		dict["Width"] = core.Int(2)
	}
	if dict["Height"] == nil {
		dict["Height"] = core.Int(1)
	}
	return &core.Stream{Dict: dict, Data: data}
}

func TestLoadImage_Colors(t *testing.T) {
	tests := []struct {
		name string
		dict core.Dict
		data []byte
		want [2]color.NRGBA
	}{
		{
			name: "gray 8-bit",
			dict: core.Dict{"ColorSpace": core.Name("DeviceGray"), "BitsPerComponent": core.Int(8)},
			data: []byte{0, 255},
			want: [2]color.NRGBA{{0, 0, 0, 255}, {255, 255, 255, 255}},
		},
		{
			name: "gray 1-bit",
			dict: core.Dict{"ColorSpace": core.Name("DeviceGray"), "BitsPerComponent": core.Int(1)},
			data: []byte{0x40},
			want: [2]color.NRGBA{{0, 0, 0, 255}, {255, 255, 255, 255}},
		},
		{
			name: "gray 4-bit",
			dict: core.Dict{"ColorSpace": core.Name("DeviceGray"), "BitsPerComponent": core.Int(4)},
			data: []byte{0xF0},
			want: [2]color.NRGBA{{255, 255, 255, 255}, {0, 0, 0, 255}},
		},
		{
			name: "rgb",
			dict: core.Dict{"ColorSpace": core.Name("DeviceRGB")},
			data: []byte{255, 0, 0, 0, 0, 255},
			want: [2]color.NRGBA{{255, 0, 0, 255}, {0, 0, 255, 255}},
		},
		{
			name: "cmyk",
			dict: core.Dict{"ColorSpace": core.Name("DeviceCMYK")},
			data: []byte{0, 0, 0, 255, 255, 0, 0, 0},
			want: [2]color.NRGBA{{0, 0, 0, 255}, {0, 255, 255, 255}},
		},
		{
			name: "inverted decode",
			dict: core.Dict{"ColorSpace": core.Name("DeviceGray"), "Decode": core.Array{core.Int(1), core.Int(0)}},
			data: []byte{0, 255},
			want: [2]color.NRGBA{{255, 255, 255, 255}, {0, 0, 0, 255}},
		},
		{
			name: "indexed",
			dict: core.Dict{"ColorSpace": core.Array{
				core.Name("Indexed"), core.Name("DeviceRGB"), core.Int(1), core.String("\x00\xff\x00\x10\x20\x30"),
			}},
			data: []byte{1, 0},
			want: [2]color.NRGBA{{0x10, 0x20, 0x30, 255}, {0, 255, 0, 255}},
		},
		{
			name: "icc based",
			dict: core.Dict{"ColorSpace": core.Array{
				core.Name("ICCBased"), &core.Stream{Dict: core.Dict{"N": core.Int(1)}},
			}},
			data: []byte{128, 255},
			want: [2]color.NRGBA{{128, 128, 128, 255}, {255, 255, 255, 255}},
		},
		{
			name: "separation tint",
			dict: core.Dict{"ColorSpace": core.Array{core.Name("Separation"), core.Name("Spot")}},
			data: []byte{255, 0},
			want: [2]color.NRGBA{{0, 0, 0, 255}, {255, 255, 255, 255}},
		},
	}

	r := &Reader{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := r.LoadImage(imageStream(tt.dict, tt.data))
			if err != nil {
				t.Fatalf("LoadImage failed: %v", err)
			}
			out, err := img.ToImage()
			if err != nil {
				t.Fatalf("ToImage failed: %v", err)
			}
			for x, want := range tt.want {
				got := color.NRGBAModel.Convert(out.At(x, 0)).(color.NRGBA)
				if got != want {
					t.Errorf("pixel %d = %v, want %v", x, got, want)
				}
			}
		})
	}
}

func TestLoadImage_Errors(t *testing.T) {
	tests := []struct {
		name string
		dict core.Dict
		data []byte
	}{
		{"missing width", core.Dict{"Width": core.Null{}}, nil},
		{"zero height", core.Dict{"Height": core.Int(0)}, nil},
		{"unsupported bpc", core.Dict{"BitsPerComponent": core.Int(3)}, []byte{0}},
		{"unsupported color space", core.Dict{"ColorSpace": core.Name("Pattern")}, []byte{0}},
		{"jpx", core.Dict{"Filter": core.Name("JPXDecode")}, []byte{0}},
		{"bad DeviceN", core.Dict{"ColorSpace": core.Array{core.Name("DeviceN"), core.Int(1)}}, []byte{0}},
	}

	r := &Reader{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.LoadImage(imageStream(tt.dict, tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestToImage_InsufficientData(t *testing.T) {
	img, err := (&Reader{}).LoadImage(imageStream(core.Dict{"ColorSpace": core.Name("DeviceRGB")}, []byte{1, 2}))
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if _, err := img.ToImage(); err == nil {
		t.Error("expected error for short sample data")
	}
}

func TestToImage_JPEGWithSoftMask(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}

	smask := &core.Stream{
		Dict: core.Dict{"Width": core.Int(2), "Height": core.Int(1), "ColorSpace": core.Name("DeviceGray")},
		Data: []byte{0, 255},
	}
	stream := &core.Stream{
		Dict: core.Dict{
			"Width":      core.Int(4),
			"Height":     core.Int(4),
			"ColorSpace": core.Name("DeviceRGB"),
			"Filter":     core.Name("DCTDecode"),
			"SMask":      smask,
		},
		Data: buf.Bytes(),
	}

	img, err := (&Reader{}).LoadImage(stream)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if img.Codec != "DCTDecode" || img.SMask == nil {
		t.Fatalf("expected JPEG with soft mask, got codec %q smask %v", img.Codec, img.SMask)
	}

	out, err := img.ToImage()
	if err != nil {
		t.Fatalf("ToImage failed: %v", err)
	}
	nrgba, ok := out.(*image.NRGBA)
	if !ok {
		t.Fatalf("expected *image.NRGBA, got %T", out)
	}
	if a := nrgba.NRGBAAt(0, 0).A; a != 0 {
		t.Errorf("expected transparent left half, got alpha %d", a)
	}
	if a := nrgba.NRGBAAt(3, 3).A; a != 255 {
		t.Errorf("expected opaque right half, got alpha %d", a)
	}
}

func TestToStencil(t *testing.T) {
	tests := []struct {
		name   string
		decode core.Object
		want   [2]uint8
	}{
		{"default decode", nil, [2]uint8{255, 0}},
		{"inverted decode", core.Array{core.Int(1), core.Int(0)}, [2]uint8{0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict := core.Dict{"ImageMask": core.Bool(true)}
			if tt.decode != nil {
				dict["Decode"] = tt.decode
			}
			img, err := (&Reader{}).LoadImage(imageStream(dict, []byte{0x40}))
			if err != nil {
				t.Fatalf("LoadImage failed: %v", err)
			}
			if _, err := img.ToImage(); err == nil {
				t.Error("expected ToImage to reject a stencil mask")
			}
			mask, err := img.ToStencil()
			if err != nil {
				t.Fatalf("ToStencil failed: %v", err)
			}
			for x, want := range tt.want {
				if got := mask.AlphaAt(x, 0).A; got != want {
					t.Errorf("alpha at %d = %d, want %d", x, got, want)
				}
			}
		})
	}
}
