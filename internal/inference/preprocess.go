package inference

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// RGBChannels is the channel count every ImageTensor carries.
const RGBChannels = 3

// Preprocess turns img into a targetHeight x targetWidth RGB tensor with
// values in [0,1].
//
// The policy is fixed:
//   - channels are normalised before resizing: alpha is dropped (the
//     straight, non-premultiplied colour is kept), grayscale is replicated
//     into R, G and B, paletted and YCbCr images are converted to RGB;
//   - resizing is bilinear (nfnt/resize.Bilinear) straight to the target
//     size, so the aspect ratio is not preserved;
//   - each 8-bit channel value is divided by 255.
func Preprocess(img image.Image, targetHeight, targetWidth int) (*ImageTensor, error) {
	if img == nil {
		return nil, invalidImage("no image", nil)
	}
	if targetHeight <= 0 || targetWidth <= 0 {
		return nil, invalidImage(fmt.Sprintf("target size must be positive (got %dx%d)", targetHeight, targetWidth), nil)
	}
	if img.Bounds().Empty() {
		return nil, invalidImage("image has zero area", nil)
	}

	rgb := toOpaqueRGB(img)
	resized := resize.Resize(uint(targetWidth), uint(targetHeight), rgb, resize.Bilinear)

	bounds := resized.Bounds()
	if bounds.Dx() != targetWidth || bounds.Dy() != targetHeight {
		return nil, invalidImage(fmt.Sprintf("resize produced %dx%d, want %dx%d",
			bounds.Dy(), bounds.Dx(), targetHeight, targetWidth), nil)
	}

	tensor := &ImageTensor{
		Height:   targetHeight,
		Width:    targetWidth,
		Channels: RGBChannels,
		Data:     make([]float32, targetHeight*targetWidth*RGBChannels),
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(resized.At(x, y)).(color.NRGBA)
			tensor.Data[i] = float32(c.R) / 255.0
			tensor.Data[i+1] = float32(c.G) / 255.0
			tensor.Data[i+2] = float32(c.B) / 255.0
			i += RGBChannels
		}
	}

	return tensor, nil
}

// toOpaqueRGB copies img into an NRGBA image whose alpha is forced to 255.
func toOpaqueRGB(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := (y - bounds.Min.Y) * out.Stride
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			o := row + (x-bounds.Min.X)*4
			out.Pix[o] = c.R
			out.Pix[o+1] = c.G
			out.Pix[o+2] = c.B
			out.Pix[o+3] = 0xff
		}
	}
	return out
}
