// Package colorspace implements the simplified SDR ICtCp color model used for
// every perceptual comparison in the pixelation pipeline.
//
// The forward path is sRGB -> linear RGB (standard piecewise transfer) ->
// LMS (fixed BT.2020-derived matrix) -> LMS' (plain power-law gamma instead
// of PQ) -> ICtCp (fixed matrix). The inverse path mirrors it with the exact
// matrix inverses, so a round trip stays within one 8-bit step per channel.
package colorspace

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

const lmsGamma = 2.4

// ICtCp is a color in intensity / tritan / protan coordinates.
type ICtCp struct {
	I  float64 `json:"i"`  // Intensity (achromatic)
	Ct float64 `json:"ct"` // Tritan (blue-yellow)
	Cp float64 `json:"cp"` // Protan (red-green)
}

var (
	rgbToLMS = [3][3]float64{
		{0.412109, 0.523925, 0.063965},
		{0.166748, 0.720459, 0.112793},
		{0.024170, 0.075440, 0.900390},
	}
	lmsToICtCp = [3][3]float64{
		{0.5, 0.5, 0},
		{1.613769, -3.323486, 1.709717},
		{4.378152, -4.245608, -0.132544},
	}

	lmsToRGB   = mustInvert(rgbToLMS)
	ictcpToLMS = mustInvert(lmsToICtCp)
)

// mustInvert inverts a constant 3x3 matrix once at start-up.
func mustInvert(m [3][3]float64) [3][3]float64 {
	a := mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		panic("colorspace: singular conversion matrix: " + err.Error())
	}
	var out [3][3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = inv.At(r, c)
		}
	}
	return out
}

func mul(m [3][3]float64, a, b, c float64) (float64, float64, float64) {
	return m[0][0]*a + m[0][1]*b + m[0][2]*c,
		m[1][0]*a + m[1][1]*b + m[1][2]*c,
		m[2][0]*a + m[2][1]*b + m[2][2]*c
}

func encodeGamma(v float64) float64 {
	return math.Pow(math.Max(0, v), 1/lmsGamma)
}

func decodeGamma(v float64) float64 {
	return math.Pow(math.Max(0, v), lmsGamma)
}

// FromRGB converts an 8-bit color to ICtCp. Alpha is ignored.
func FromRGB(c raster.RGBA) ICtCp {
	r, g, b := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.LinearRgb()

	l, m, s := mul(rgbToLMS, r, g, b)
	i, ct, cp := mul(lmsToICtCp, encodeGamma(l), encodeGamma(m), encodeGamma(s))
	return ICtCp{I: i, Ct: ct, Cp: cp}
}

// ToRGB converts back to an opaque 8-bit color, clamping out-of-gamut values.
func ToRGB(c ICtCp) raster.RGBA {
	lp, mp, sp := mul(ictcpToLMS, c.I, c.Ct, c.Cp)
	r, g, b := mul(lmsToRGB, decodeGamma(lp), decodeGamma(mp), decodeGamma(sp))

	r8, g8, b8 := colorful.LinearRgb(r, g, b).Clamped().RGB255()
	return raster.RGBA{R: r8, G: g8, B: b8, A: 255}
}

// DistanceSquared is the squared Euclidean distance between two colors. It is
// the single perceptual similarity measure used across the pipeline.
func DistanceSquared(a, b ICtCp) float64 {
	di := a.I - b.I
	dct := a.Ct - b.Ct
	dcp := a.Cp - b.Cp
	return di*di + dct*dct + dcp*dcp
}

// Chroma is the distance of c from the achromatic axis.
func Chroma(c ICtCp) float64 {
	return math.Sqrt(c.Ct*c.Ct + c.Cp*c.Cp)
}
