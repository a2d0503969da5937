package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
)

// MaxPreviewScale bounds the nearest-neighbour upscale factor of previews.
const MaxPreviewScale = 32

// EncodedImage is a PNG ready to hand back to an MCP client.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := imgio.PNGEncoder()(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Upscale enlarges img by an integer factor with nearest-neighbour
// resampling, so every output pixel stays a crisp square. A factor of 1 or
// less returns img unchanged.
func Upscale(img image.Image, scale int) (image.Image, error) {
	if scale <= 1 {
		return img, nil
	}
	if scale > MaxPreviewScale {
		return nil, fmt.Errorf("scale %d exceeds maximum of %d", scale, MaxPreviewScale)
	}
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor), nil
}

// QuadRegion returns the bounding box of q cut out of img, clamped to the
// image. It is the region that calibration analyses.
func QuadRegion(img image.Image, q geometry.Quad) (*image.NRGBA, error) {
	bounds := img.Bounds()
	rect := geometry.PixelRect(q, bounds.Dx(), bounds.Dy())
	if rect.Empty() {
		return nil, fmt.Errorf("quad (%.1f,%.1f)-(%.1f,%.1f) lies outside image bounds %dx%d",
			q.TopLeft.X, q.TopLeft.Y, q.BottomRight.X, q.BottomRight.Y, bounds.Dx(), bounds.Dy())
	}
	return imaging.Crop(img, rect.Add(bounds.Min)), nil
}

// CropQuad encodes the region of q, optionally upscaled, as a PNG preview.
func CropQuad(img image.Image, q geometry.Quad, scale int) (*EncodedImage, error) {
	cropped, err := QuadRegion(img, q)
	if err != nil {
		return nil, err
	}
	out, err := Upscale(cropped, scale)
	if err != nil {
		return nil, err
	}
	return EncodePNG(out)
}

// SavePNG writes img to path as a PNG file.
func SavePNG(path string, img image.Image) error {
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
