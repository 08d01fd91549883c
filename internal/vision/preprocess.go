package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
)

// Phone photos of receipts are commonly 12MP+, which slows local vision
// models down and blows past their useful input resolution. Anything
// over maxPixels gets downscaled before upload.
const (
	maxPixels   = 1_000_000
	jpegQuality = 85
)

// PrepareImage decodes a receipt photo, downscales it to at most
// maxPixels, and re-encodes it as JPEG. Images already under the limit
// are still re-encoded so the model always receives one format.
func PrepareImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("degenerate image dimensions %dx%d", width, height)
	}

	if pixels := width * height; pixels > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(pixels))
		width = int(float64(width) * scale)
		height = int(float64(height) * scale)
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}

		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		src = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
