// Package imaging normalizes arbitrary images into the square pack icon.
//
// [Normalize] decodes PNG, JPEG, GIF, BMP and WebP input and cover-fits it onto a transparent
// [IconSize]×[IconSize] canvas. [IconSource] decides which bytes to normalize: caller supplied bytes,
// embedded track artwork or the configured default icon URL.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// IconSize is the edge length of the pack icon in pixels.
const IconSize = 1080

// MaxSourcePixels bounds the declared size of an input image. Larger images are rejected before decoding.
const MaxSourcePixels = 1 << 25

// ErrTooLarge reports an input image above [MaxSourcePixels].
var ErrTooLarge = fmt.Errorf("image too large")

// Normalize decodes data and returns a PNG encoded [IconSize]×[IconSize] icon.
//
// The image is scaled so that it covers the whole canvas and is centered, cropping the longer axis.
// Images that already have the target size are copied pixel for pixel.
func Normalize(data []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %s image is %dx%d", ErrTooLarge, format, cfg.Width, cfg.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("empty %s image", format)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, IconSize, IconSize))
	if b.Dx() == IconSize && b.Dy() == IconSize {
		draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(canvas, CoverRect(b.Dx(), b.Dy(), IconSize), src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// CoverRect returns the destination rectangle of a w×h image cover-fitted to a size×size canvas.
//
// The rectangle may extend past the canvas on one axis; its origin is negative in that case.
func CoverRect(w, h, size int) image.Rectangle {
	scale := math.Max(float64(size)/float64(w), float64(size)/float64(h))
	sw := int(math.Round(float64(w) * scale))
	sh := int(math.Round(float64(h) * scale))

	x := int(math.Floor(float64(size-sw) / 2))
	y := int(math.Floor(float64(size-sh) / 2))
	return image.Rect(x, y, x+sw, y+sh)
}
