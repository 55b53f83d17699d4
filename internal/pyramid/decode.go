package pyramid

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptySource is returned for source images without pixels.
var ErrEmptySource = errors.New("source image is empty")

// DecodeSource decodes an uploaded raster. PNG, JPEG, GIF, WebP, BMP and
// TIFF are supported; the detected format name is returned alongside.
func DecodeSource(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptySource
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode source image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, format, ErrEmptySource
	}
	return img, format, nil
}
