package inference

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"
)

func TestPreprocess_OutputSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		targetH       int
		targetW       int
	}{
		{"downscale square", 100, 100, 64, 64},
		{"upscale", 8, 8, 64, 64},
		{"wide to square", 640, 120, 64, 64},
		{"tall to wide", 30, 400, 16, 48},
		{"single pixel", 1, 1, 5, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createTestImage(tt.width, tt.height, color.RGBA{10, 20, 30, 255})
			tensor, err := Preprocess(img, tt.targetH, tt.targetW)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if tensor.Height != tt.targetH || tensor.Width != tt.targetW || tensor.Channels != 3 {
				t.Errorf("Expected %dx%dx3, got %dx%dx%d", tt.targetH, tt.targetW, tensor.Height, tensor.Width, tensor.Channels)
			}
			if len(tensor.Data) != tt.targetH*tt.targetW*3 {
				t.Errorf("Expected %d values, got %d", tt.targetH*tt.targetW*3, len(tensor.Data))
			}
		})
	}
}

func TestPreprocess_ValuesInUnitRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 5), uint8(y * 6), uint8((x + y) * 3), 255})
		}
	}
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})

	tensor, err := Preprocess(img, 64, 64)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for i, v := range tensor.Data {
		if v < 0 || v > 1 {
			t.Fatalf("Expected value in [0,1] at %d, got %v", i, v)
		}
	}
}

func TestPreprocess_UniformColourIsDividedBy255(t *testing.T) {
	img := createTestImage(20, 20, color.RGBA{51, 102, 255, 255})
	tensor, err := Preprocess(img, 8, 8)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	want := [3]float32{51.0 / 255, 102.0 / 255, 1}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			for c := 0; c < 3; c++ {
				if got := tensor.At(y, x, c); math.Abs(float64(got-want[c])) > 1.0/255 {
					t.Fatalf("Expected channel %d ~%v at (%d,%d), got %v", c, want[c], y, x, got)
				}
			}
		}
	}
}

func TestPreprocess_BlackImageIsZero(t *testing.T) {
	tensor, err := Preprocess(createTestImage(100, 100, color.Black), 64, 64)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for i, v := range tensor.Data {
		if v != 0 {
			t.Fatalf("Expected 0 at %d, got %v", i, v)
		}
	}
}

func TestPreprocess_GrayscaleIsReplicated(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range gray.Pix {
		gray.Pix[i] = 128
	}
	tensor, err := Preprocess(gray, 4, 4)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, g, b := tensor.At(y, x, 0), tensor.At(y, x, 1), tensor.At(y, x, 2)
			if r != g || g != b {
				t.Fatalf("Expected equal channels at (%d,%d), got %v %v %v", y, x, r, g, b)
			}
			if math.Abs(float64(r)-128.0/255) > 1.0/255 {
				t.Fatalf("Expected ~%v, got %v", 128.0/255, r)
			}
		}
	}
}

func TestPreprocess_AlphaIsDropped(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 6, 6))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 200, 100, 50, 64
	}
	tensor, err := Preprocess(img, 3, 3)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	want := [3]float64{200.0 / 255, 100.0 / 255, 50.0 / 255}
	for c := 0; c < 3; c++ {
		if got := float64(tensor.At(1, 1, c)); math.Abs(got-want[c]) > 1.0/255 {
			t.Errorf("Expected straight colour %v for channel %d, got %v", want[c], c, got)
		}
	}
}

func TestPreprocess_PalettedIsConverted(t *testing.T) {
	palette := color.Palette{
		color.RGBA{220, 20, 60, 255},
		color.NRGBA{0, 0, 200, 128},
	}
	img := image.NewPaletted(image.Rect(0, 0, 20, 20), palette)
	for y := 10; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.SetColorIndex(x, y, 1)
		}
	}

	tensor, err := Preprocess(img, 4, 4)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if tensor.Channels != RGBChannels || len(tensor.Data) != 4*4*RGBChannels {
		t.Fatalf("Expected a 4x4x3 tensor, got %dx%dx%d", tensor.Height, tensor.Width, tensor.Channels)
	}

	tests := []struct {
		name string
		row  int
		want [3]float64
	}{
		{"opaque entry", 0, [3]float64{220.0 / 255, 20.0 / 255, 60.0 / 255}},
		{"translucent entry keeps straight colour", 3, [3]float64{0, 0, 200.0 / 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for x := 0; x < 4; x++ {
				for c := 0; c < 3; c++ {
					if got := float64(tensor.At(tt.row, x, c)); math.Abs(got-tt.want[c]) > 2.0/255 {
						t.Errorf("Expected channel %d ~%v at (%d,%d), got %v", c, tt.want[c], tt.row, x, got)
					}
				}
			}
		})
	}
}

func TestPreprocess_YCbCrIsConverted(t *testing.T) {
	tests := []struct {
		name      string
		y, cb, cr uint8
		ratio     image.YCbCrSubsampleRatio
	}{
		{"neutral grey", 128, 128, 128, image.YCbCrSubsampleRatio444},
		{"reddish 4:4:4", 81, 90, 240, image.YCbCrSubsampleRatio444},
		{"greenish 4:2:0", 145, 54, 34, image.YCbCrSubsampleRatio420},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewYCbCr(image.Rect(0, 0, 16, 16), tt.ratio)
			for i := range img.Y {
				img.Y[i] = tt.y
			}
			for i := range img.Cb {
				img.Cb[i] = tt.cb
				img.Cr[i] = tt.cr
			}

			tensor, err := Preprocess(img, 5, 5)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			r, g, b := color.YCbCrToRGB(tt.y, tt.cb, tt.cr)
			want := [3]float64{float64(r) / 255, float64(g) / 255, float64(b) / 255}
			for c := 0; c < 3; c++ {
				if got := float64(tensor.At(2, 2, c)); math.Abs(got-want[c]) > 2.0/255 {
					t.Errorf("Expected channel %d ~%v, got %v", c, want[c], got)
				}
			}
		})
	}
}

func TestPreprocess_Deterministic(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 33, 17))
	for y := 0; y < 17; y++ {
		for x := 0; x < 33; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8(x * y), 255})
		}
	}
	a, err := Preprocess(img, 64, 64)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	b, _ := Preprocess(img, 64, 64)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("Expected identical output at %d, got %v and %v", i, a.Data[i], b.Data[i])
		}
	}
}

func TestPreprocess_OffsetBounds(t *testing.T) {
	img := createTestImage(20, 20, color.RGBA{255, 0, 0, 255})
	sub := img.SubImage(image.Rect(5, 5, 15, 15))
	tensor, err := Preprocess(sub, 4, 4)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if tensor.At(0, 0, 0) < 0.99 || tensor.At(0, 0, 1) > 0.01 {
		t.Errorf("Expected pure red, got %v %v", tensor.At(0, 0, 0), tensor.At(0, 0, 1))
	}
}

func TestPreprocess_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		h, w int
	}{
		{"nil image", nil, 64, 64},
		{"zero area", image.NewRGBA(image.Rect(0, 0, 0, 10)), 64, 64},
		{"zero target", createTestImage(4, 4, color.White), 0, 64},
		{"negative target", createTestImage(4, 4, color.White), 64, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Preprocess(tt.img, tt.h, tt.w); !IsInvalidImage(err) {
				t.Errorf("Expected InvalidImageError, got %v", err)
			}
		})
	}
}

func TestDecodeBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(12, 9, color.White), nil); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}

	img, format, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("Expected jpeg, got %s", format)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 9 {
		t.Errorf("Expected 12x9, got %v", img.Bounds())
	}

	if _, _, err := DecodeBytes(nil); !IsInvalidImage(err) {
		t.Errorf("Expected InvalidImageError for empty data, got %v", err)
	}
	if _, _, err := DecodeBytes([]byte{0x89, 0x50, 0x4E, 0x47}); !IsInvalidImage(err) {
		t.Errorf("Expected InvalidImageError for truncated PNG, got %v", err)
	}
}
