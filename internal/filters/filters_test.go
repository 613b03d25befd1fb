package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"testing"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestFlateDecode(t *testing.T) {
	want := []byte("0 0 m 100 100 l S")
	got, err := FlateDecode(deflate(t, want), nil)
	if err != nil {
		t.Fatalf("FlateDecode failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFlateDecode_Truncated(t *testing.T) {
	want := bytes.Repeat([]byte("abcdefgh"), 200)
	enc := deflate(t, want)
	got, err := FlateDecode(enc[:len(enc)-4], nil)
	if err != nil {
		t.Fatalf("Expected truncated checksum to be tolerated, got %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %d bytes, got %d", len(want), len(got))
	}
}

func TestFlateDecode_Invalid(t *testing.T) {
	if _, err := FlateDecode([]byte("not zlib"), nil); err == nil {
		t.Error("Expected error for invalid data")
	}
}

func TestPNGPredictors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"none", []byte{0, 1, 2, 3}, []byte{1, 2, 3}},
		{"sub", []byte{1, 1, 1, 1}, []byte{1, 2, 3}},
		{"up", []byte{0, 1, 2, 3, 2, 1, 1, 1}, []byte{1, 2, 3, 2, 3, 4}},
		{"average", []byte{0, 2, 4, 6, 3, 1, 1, 1}, []byte{2, 4, 6, 2, 4, 6}},
		{"paeth", []byte{0, 1, 2, 3, 4, 0, 0, 0}, []byte{1, 2, 3, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlateDecode(deflate(t, tt.in), Params{"Predictor": 12, "Columns": 3})
			if err != nil {
				t.Fatalf("FlateDecode failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTIFFPredictor(t *testing.T) {
	got, err := FlateDecode(deflate(t, []byte{10, 1, 1, 5, 5, 5}), Params{"Predictor": 2, "Columns": 3})
	if err != nil {
		t.Fatalf("FlateDecode failed: %v", err)
	}
	want := []byte{10, 11, 12, 5, 10, 15}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"48656C6C6F>", []byte("Hello")},
		{"48 65 6c\n6c 6f", []byte("Hello")},
		{"4>", []byte{0x40}},
		{">", []byte{}},
	}
	for _, tt := range tests {
		got, err := ASCIIHexDecode([]byte(tt.in))
		if err != nil {
			t.Fatalf("ASCIIHexDecode(%q) failed: %v", tt.in, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("ASCIIHexDecode(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}

	if _, err := ASCIIHexDecode([]byte("4G")); err == nil {
		t.Error("Expected error for invalid digit")
	}
}

func TestASCII85Decode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"87cURD]i,\"Ebo80~>", "Hello World!"},
		{"z~>", "\x00\x00\x00\x00"},
	}
	for _, tt := range tests {
		got, err := ASCII85Decode([]byte(tt.in))
		if err != nil {
			t.Fatalf("ASCII85Decode(%q) failed: %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("ASCII85Decode(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestRunLengthDecode(t *testing.T) {
	got, err := RunLengthDecode([]byte{2, 'a', 'b', 'c', 254, 'x', 128, 'z'})
	if err != nil {
		t.Fatalf("RunLengthDecode failed: %v", err)
	}
	if string(got) != "abcxxx" {
		t.Errorf("Expected %q, got %q", "abcxxx", got)
	}

	if _, err := RunLengthDecode([]byte{5, 'a'}); err == nil {
		t.Error("Expected error for overrunning literal")
	}
}

func TestDecode_Dispatch(t *testing.T) {
	got, err := Decode("AHx", []byte("414243>"), nil)
	if err != nil || string(got) != "ABC" {
		t.Errorf("Expected ABC, got %q (%v)", got, err)
	}

	jpeg := []byte{0xFF, 0xD8, 0xFF}
	got, err = Decode("DCTDecode", jpeg, nil)
	if err != nil || !bytes.Equal(got, jpeg) {
		t.Errorf("Expected DCT data to pass through unchanged")
	}
	if !Passthrough("DCT") || Passthrough("FlateDecode") {
		t.Error("Passthrough misreports image codecs")
	}

	if _, err := Decode("LZWDecode", nil, nil); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if _, err := Decode("Bogus", nil, nil); err == nil {
		t.Error("Expected error for unknown filter")
	}
}
