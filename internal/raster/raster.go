// Package raster holds the flat RGBA pixel buffers the pixelation core reads
// from and writes to.
//
// A Buffer is row-major, non-premultiplied RGBA with 4 bytes per pixel. Source
// buffers are treated as read-only by every operation in this module; output
// buffers are always freshly allocated and owned by the caller.
package raster

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrInvalidSize is returned when a buffer is requested with a non-positive
// width or height, or with more than MaxPixels pixels.
var ErrInvalidSize = errors.New("invalid raster dimensions")

// MaxPixels caps the pixel count of a single buffer (1 GiB of RGBA).
const MaxPixels = 1 << 28

// RGBA is a single 8-bit color with straight (non-premultiplied) alpha.
//
// Alpha 0 means fully transparent. Transparent samples are excluded from
// aggregation.
type RGBA struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Transparent is the zero color returned by every aggregator for an empty
// sample set.
var Transparent = RGBA{}

// Buffer is a width x height RGBA raster stored as a flat byte slice.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8 // len = Width*Height*4
}

// New allocates a fully transparent buffer.
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, width, height)
	}
	if width > MaxPixels/height {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidSize, width, height, MaxPixels)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}, nil
}

// Offset returns the index of the first byte of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// InBounds reports whether (x, y) addresses a pixel of the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// At returns the pixel at (x, y), or Transparent when out of bounds.
func (b *Buffer) At(x, y int) RGBA {
	if !b.InBounds(x, y) {
		return Transparent
	}
	i := b.Offset(x, y)
	return RGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
}

// Set writes c at (x, y). Out-of-bounds writes are ignored.
func (b *Buffer) Set(x, y int, c RGBA) {
	if !b.InBounds(x, y) {
		return
	}
	i := b.Offset(x, y)
	b.Pix[i] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
	b.Pix[i+3] = c.A
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Crop copies the pixels inside r (clipped to the buffer) into a new buffer.
// An empty intersection yields a nil buffer.
func (b *Buffer) Crop(r image.Rectangle) *Buffer {
	r = r.Intersect(image.Rect(0, 0, b.Width, b.Height))
	if r.Empty() {
		return nil
	}
	out := &Buffer{Width: r.Dx(), Height: r.Dy(), Pix: make([]uint8, r.Dx()*r.Dy()*4)}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := b.Offset(r.Min.X, y)
		dst := out.Offset(0, y-r.Min.Y)
		copy(out.Pix[dst:dst+r.Dx()*4], b.Pix[src:src+r.Dx()*4])
	}
	return out
}

// OpaqueColors returns every pixel whose alpha is non-zero, in row-major order.
func (b *Buffer) OpaqueColors() []RGBA {
	colors := make([]RGBA, 0, b.Width*b.Height)
	for i := 0; i < len(b.Pix); i += 4 {
		if b.Pix[i+3] == 0 {
			continue
		}
		colors = append(colors, RGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]})
	}
	return colors
}

// FromImage converts any image.Image to a Buffer with straight alpha.
//
// The conversion goes through imaging.Clone, which always yields an
// *image.NRGBA anchored at (0,0), so premultiplied sources (e.g. *image.RGBA
// with partial alpha) are un-premultiplied exactly once.
func FromImage(img image.Image) *Buffer {
	n := imaging.Clone(img)
	w, h := n.Bounds().Dx(), n.Bounds().Dy()
	out := &Buffer{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
	for y := 0; y < h; y++ {
		copy(out.Pix[y*w*4:(y+1)*w*4], n.Pix[y*n.Stride:y*n.Stride+w*4])
	}
	return out
}

// ToImage wraps a copy of the buffer as an *image.NRGBA.
func (b *Buffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}
