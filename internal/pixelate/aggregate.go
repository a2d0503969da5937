package pixelate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

// ColorMethod selects how a cell's sampled pixels are reduced to one color.
type ColorMethod string

// Supported color methods.
const (
	Mean           ColorMethod = "mean"           // Per-channel rounded average
	Median         ColorMethod = "median"         // Per-channel independent median
	Mode           ColorMethod = "mode"           // Most frequent 16-level bucket
	KernelMedian   ColorMethod = "kernelMedian"   // Gaussian-weighted median over the lattice
	CenterWeighted ColorMethod = "centerWeighted" // Center sample counts four times
	CenterSpot     ColorMethod = "centerSpot"     // Mean of the middle 20% of the lattice
)

// centerSpotRatio is the side fraction of the lattice CenterSpot keeps.
const centerSpotRatio = 0.2

// ColorMethods lists every supported method in display order.
var ColorMethods = []ColorMethod{Mean, Median, Mode, KernelMedian, CenterWeighted, CenterSpot}

// ParseColorMethod validates a method name. An empty name selects Mean.
func ParseColorMethod(name string) (ColorMethod, error) {
	if name == "" {
		return Mean, nil
	}
	for _, m := range ColorMethods {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown color method: %s", name)
}

// Aggregate reduces pixels to a single color using method. Unknown methods
// behave like Mean. Every method returns raster.Transparent for an empty set.
func Aggregate(pixels []raster.RGBA, method ColorMethod) raster.RGBA {
	switch method {
	case Median:
		return medianColor(pixels)
	case Mode:
		return modeColor(pixels)
	case KernelMedian:
		return kernelMedianColor(pixels)
	case CenterWeighted:
		return centerWeightedColor(pixels)
	case CenterSpot:
		return centerSpotColor(pixels)
	default:
		return meanColor(pixels)
	}
}

func round8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

func meanColor(pixels []raster.RGBA) raster.RGBA {
	if len(pixels) == 0 {
		return raster.Transparent
	}
	var r, g, b, a int
	for _, p := range pixels {
		r += int(p.R)
		g += int(p.G)
		b += int(p.B)
		a += int(p.A)
	}
	n := float64(len(pixels))
	return raster.RGBA{
		R: round8(float64(r) / n),
		G: round8(float64(g) / n),
		B: round8(float64(b) / n),
		A: round8(float64(a) / n),
	}
}

// medianColor sorts each channel independently, so the result need not be
// one of the input colors.
func medianColor(pixels []raster.RGBA) raster.RGBA {
	if len(pixels) == 0 {
		return raster.Transparent
	}
	channel := func(get func(raster.RGBA) uint8) uint8 {
		vals := make([]int, len(pixels))
		for i, p := range pixels {
			vals[i] = int(get(p))
		}
		sort.Ints(vals)
		return uint8(vals[len(vals)/2])
	}
	return raster.RGBA{
		R: channel(func(p raster.RGBA) uint8 { return p.R }),
		G: channel(func(p raster.RGBA) uint8 { return p.G }),
		B: channel(func(p raster.RGBA) uint8 { return p.B }),
		A: channel(func(p raster.RGBA) uint8 { return p.A }),
	}
}

// modeColor returns the first-seen original color of the most populated
// 16-level bucket. Ties go to the bucket seen first.
func modeColor(pixels []raster.RGBA) raster.RGBA {
	if len(pixels) == 0 {
		return raster.Transparent
	}

	type bucket struct {
		count int
		color raster.RGBA
	}
	quant := func(v uint8) int { return int(math.Round(float64(v)/16)) * 16 }

	index := make(map[int]int)
	var buckets []bucket
	for _, p := range pixels {
		key := quant(p.R)<<18 | quant(p.G)<<9 | quant(p.B)
		if i, ok := index[key]; ok {
			buckets[i].count++
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, bucket{count: 1, color: p})
	}

	best := buckets[0]
	for _, b := range buckets[1:] {
		if b.count > best.count {
			best = b
		}
	}
	return best.color
}

// latticeSide returns sqrt(n) and whether n is a perfect square.
func latticeSide(n int) (float64, bool) {
	side := math.Sqrt(float64(n))
	return side, side == math.Trunc(side)
}

// kernelMedianColor weights each sample by a Gaussian of its distance from
// the lattice center (sigma^2 = center^2) and takes the weighted median of
// each channel independently.
func kernelMedianColor(pixels []raster.RGBA) raster.RGBA {
	if len(pixels) == 0 {
		return raster.Transparent
	}

	size, _ := latticeSide(len(pixels))
	center := (size - 1) / 2
	weights := make([]float64, len(pixels))
	for i := range pixels {
		if center <= 0 {
			weights[i] = 1
			continue
		}
		row := math.Floor(float64(i) / size)
		col := math.Mod(float64(i), size)
		dx := col - center
		dy := row - center
		weights[i] = math.Exp(-(dx*dx + dy*dy) / (2 * center * center))
	}

	channel := func(get func(raster.RGBA) uint8) uint8 {
		x := make([]float64, len(pixels))
		w := make([]float64, len(pixels))
		for i, p := range pixels {
			x[i] = float64(get(p))
			w[i] = weights[i]
		}
		stat.SortWeighted(x, w)
		return round8(stat.Quantile(0.5, stat.Empirical, x, w))
	}
	return raster.RGBA{
		R: channel(func(p raster.RGBA) uint8 { return p.R }),
		G: channel(func(p raster.RGBA) uint8 { return p.G }),
		B: channel(func(p raster.RGBA) uint8 { return p.B }),
		A: channel(func(p raster.RGBA) uint8 { return p.A }),
	}
}

// centerWeightedColor counts the lattice center four times. Without a well
// defined center (non-square sample count) it degrades to the mean.
func centerWeightedColor(pixels []raster.RGBA) raster.RGBA {
	if len(pixels) == 0 {
		return raster.Transparent
	}
	size, square := latticeSide(len(pixels))
	if !square {
		return meanColor(pixels)
	}
	side := int(size)
	centerIdx := (side/2)*side + side/2

	c := pixels[centerIdx]
	r, g, b, a := 4*int(c.R), 4*int(c.G), 4*int(c.B), 4*int(c.A)
	weight := 4
	for i, p := range pixels {
		if i == centerIdx {
			continue
		}
		r += int(p.R)
		g += int(p.G)
		b += int(p.B)
		a += int(p.A)
		weight++
	}
	w := float64(weight)
	return raster.RGBA{
		R: round8(float64(r) / w),
		G: round8(float64(g) / w),
		B: round8(float64(b) / w),
		A: round8(float64(a) / w),
	}
}

// centerSpotColor averages the innermost sub-square of the lattice, at least
// one sample wide.
func centerSpotColor(pixels []raster.RGBA) raster.RGBA {
	if len(pixels) == 0 {
		return raster.Transparent
	}
	size, square := latticeSide(len(pixels))
	if !square {
		return meanColor(pixels)
	}

	side := int(size)
	start, end := centerSpan(side)
	spot := make([]raster.RGBA, 0, (end-start)*(end-start))
	for row := start; row < end; row++ {
		for col := start; col < end; col++ {
			spot = append(spot, pixels[row*side+col])
		}
	}
	return meanColor(spot)
}

// centerSpan returns the [start, end) index range of the central
// centerSpotRatio of a run of n samples, never empty.
func centerSpan(n int) (start, end int) {
	margin := (1 - centerSpotRatio) / 2
	mid := n / 2
	start = max(0, min(int(math.Floor(margin*float64(n))), mid))
	end = min(n, max(int(math.Ceil((1-margin)*float64(n))), mid+1))
	return start, end
}
