package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/pixel-snap-mcp/internal/colorspace"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// Alpha is straight (not premultiplied): 0 is fully transparent, 255 fully opaque.
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ICtCpColor is the perceptual coordinate used for palette and background
// matching. Distances between these values are what the pixelation core
// compares.
type ICtCpColor struct {
	I  float64 `json:"i"`
	Ct float64 `json:"ct"`
	Cp float64 `json:"cp"`
}

// ColorResult contains a color value in multiple representations.
//
// This struct provides the same color in five formats to suit different use cases:
//   - Hex: Compact string format for CSS/web usage
//   - RGB: Standard 8-bit components without alpha
//   - RGBA: 8-bit components with alpha for transparency
//   - HSL: Intuitive hue/saturation/lightness
//   - ICtCp: The perceptual space used for palette and background matching
type ColorResult struct {
	Hex   string     `json:"hex"`   // Hex format "#RRGGBB" (no alpha)
	RGB   RGBColor   `json:"rgb"`   // RGB components
	RGBA  RGBAColor  `json:"rgba"`  // RGBA components with alpha
	HSL   HSLColor   `json:"hsl"`   // HSL representation
	ICtCp ICtCpColor `json:"ictcp"` // Perceptual representation
}

// Describe renders a raster color in every representation of ColorResult.
func Describe(c raster.RGBA) ColorResult {
	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, l := cf.Hsl()
	p := colorspace.FromRGB(c)
	return ColorResult{
		Hex:  HexString(c),
		RGB:  RGBColor{R: c.R, G: c.G, B: c.B},
		RGBA: RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
		ICtCp: ICtCpColor{I: p.I, Ct: p.Ct, Cp: p.Cp},
	}
}

// HexString formats c as "#RRGGBB", dropping alpha.
func HexString(c raster.RGBA) string {
	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	return strings.ToUpper(cf.Hex())
}

// PaletteHex formats each palette entry with HexString.
func PaletteHex(pal []raster.RGBA) []string {
	out := make([]string, len(pal))
	for i, c := range pal {
		out[i] = HexString(c)
	}
	return out
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA". The leading '#' is optional.
func ParseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	hex = strings.TrimPrefix(hex, "#")

	alpha := uint8(255)
	switch len(hex) {
	case 6:
	case 8:
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in color %q: %w", hex, err)
		}
		alpha = uint8(a)
		hex = hex[:6]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are 0-based with origin at top-left. Semi-transparent pixels are
// reported with straight alpha, matching what the pixelation core sees.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	n := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	res := Describe(raster.RGBA{R: n.R, G: n.G, B: n.B, A: n.A})
	return &res, nil
}

// LabeledPoint represents a pixel coordinate with an optional descriptive label.
type LabeledPoint struct {
	X     int    // X coordinate (0-based)
	Y     int    // Y coordinate (0-based)
	Label string // Optional descriptive label for this point
}

// LabeledColorResult combines a color sample with its location and optional label.
type LabeledColorResult struct {
	Label string      `json:"label,omitempty"` // Optional label (empty if not provided)
	X     int         `json:"x"`               // X coordinate that was sampled
	Y     int         `json:"y"`               // Y coordinate that was sampled
	Color ColorResult `json:"color"`           // The color at this location
}

// MultiColorResult contains color samples from multiple points.
//
// Results are returned in the same order as the input points.
type MultiColorResult struct {
	Samples []LabeledColorResult `json:"samples"` // Color samples in input order
}

// SampleColorsMulti extracts colors at multiple pixel coordinates in a single call.
//
// On error no partial results are returned. Sampling the four corners of a
// photographed sprite sheet is the usual way to pick a background color.
func SampleColorsMulti(img image.Image, points []LabeledPoint) (*MultiColorResult, error) {
	results := make([]LabeledColorResult, 0, len(points))

	for _, p := range points {
		c, err := SampleColor(img, p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to sample point (%d,%d): %w", p.X, p.Y, err)
		}
		results = append(results, LabeledColorResult{
			Label: p.Label,
			X:     p.X,
			Y:     p.Y,
			Color: *c,
		})
	}

	return &MultiColorResult{Samples: results}, nil
}
