package pixelate

import (
	"math"

	"github.com/ironsheep/pixel-snap-mcp/internal/colorspace"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

const (
	borderBand          = 0.05 // Outer fraction of the output treated as border
	backgroundMinShare  = 0.2  // Majority bucket must cover this share of the border
	backgroundQuantStep = 8
	baseThreshold       = 0.02
	maxThreshold        = 0.3
)

// BackgroundResult reports what RemoveBackground found and did.
type BackgroundResult struct {
	// Detected is true when a dominant border color was found and removed.
	Detected bool `json:"detected"`

	// Color is the quantized background color. Zero when not detected.
	Color raster.RGBA `json:"color"`

	// Threshold is the adaptive ICtCp distance used for matching.
	Threshold float64 `json:"threshold"`

	// BorderPixels is the number of opaque pixels sampled from the border band.
	BorderPixels int `json:"border_pixels"`

	// Removed is the number of pixels whose alpha was zeroed.
	Removed int `json:"removed"`
}

// AdaptiveThreshold returns the ICtCp match distance for a background color.
//
// Bright and saturated colors are spread further apart in ICtCp, so the
// threshold grows with intensity (up to 3x) and chroma (up to 5x) and is
// capped at 0.3. It never decreases as intensity or chroma increase.
func AdaptiveThreshold(bg colorspace.ICtCp) float64 {
	intensityFactor := 1 + math.Min(bg.I*2, 2)
	chromaFactor := 1 + math.Min(colorspace.Chroma(bg)*2, 4)
	return math.Min(baseThreshold*intensityFactor*chromaFactor, maxThreshold)
}

// RemoveBackground detects a uniform field around the output and makes every
// pixel perceptually close to it transparent, in place.
//
// The border band is the outer 5% of the grid on every side. Its opaque pixels
// are bucketed on an 8-level grid and the largest bucket wins, provided it
// covers at least 20% of the band. Removal is global rather than flood-filled
// from the edges: interior pixels of the background color are removed too,
// which keeps the detector working when the grid does not fully enclose the
// background.
func RemoveBackground(buf *raster.Buffer) BackgroundResult {
	var res BackgroundResult
	if buf == nil || buf.Width == 0 || buf.Height == 0 {
		return res
	}

	type bucket struct {
		color raster.RGBA
		count int
	}
	// 252..255 round to the 256 bucket, which is reported as 255.
	quant := func(v uint8) uint8 {
		q := math.Round(float64(v)/backgroundQuantStep) * backgroundQuantStep
		return uint8(math.Min(255, q))
	}

	index := make(map[raster.RGBA]int)
	var buckets []bucket
	w, h := float64(buf.Width), float64(buf.Height)
	for y := 0; y < buf.Height; y++ {
		v := (float64(y) + 0.5) / h
		for x := 0; x < buf.Width; x++ {
			u := (float64(x) + 0.5) / w
			if u >= borderBand && u <= 1-borderBand && v >= borderBand && v <= 1-borderBand {
				continue
			}
			p := buf.At(x, y)
			if p.A == 0 {
				continue
			}
			res.BorderPixels++
			key := raster.RGBA{R: quant(p.R), G: quant(p.G), B: quant(p.B), A: 255}
			if i, ok := index[key]; ok {
				buckets[i].count++
				continue
			}
			index[key] = len(buckets)
			buckets = append(buckets, bucket{color: key, count: 1})
		}
	}
	if len(buckets) == 0 {
		return res
	}

	best := buckets[0]
	for _, b := range buckets[1:] {
		if b.count > best.count {
			best = b
		}
	}
	if float64(best.count) < float64(res.BorderPixels)*backgroundMinShare {
		return res
	}

	bg := colorspace.FromRGB(best.color)
	res.Detected = true
	res.Color = best.color
	res.Threshold = AdaptiveThreshold(bg)
	limit := res.Threshold * res.Threshold

	for i := 0; i < len(buf.Pix); i += 4 {
		if buf.Pix[i+3] == 0 {
			continue
		}
		c := colorspace.FromRGB(raster.RGBA{R: buf.Pix[i], G: buf.Pix[i+1], B: buf.Pix[i+2]})
		if colorspace.DistanceSquared(c, bg) < limit {
			buf.Pix[i+3] = 0
			res.Removed++
		}
	}
	return res
}
