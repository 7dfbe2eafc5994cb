package inference

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes JPEG, PNG, GIF, WebP or BMP data. Anything that is not
// a decodable, non-empty image yields an InvalidImageError.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	if r == nil {
		return nil, "", invalidImage("no image data", nil)
	}
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", invalidImage("cannot decode image", err)
	}
	if img.Bounds().Empty() {
		return nil, format, invalidImage("image has zero area", nil)
	}
	return img, format, nil
}

// DecodeBytes is DecodeImage over an in-memory buffer.
func DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", invalidImage("empty image data", nil)
	}
	return DecodeImage(bytes.NewReader(data))
}

// LoadImage opens and decodes the image at path.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, invalidImage("cannot open image file", err)
	}
	defer f.Close()

	img, _, err := DecodeImage(f)
	return img, err
}
