// Package palette reduces the colors of a rendered pixel grid.
//
// Quantization runs k-means++ in ICtCp space so that clusters follow
// perceptual rather than RGB distance. All randomness comes from an injected
// *rand.Rand; passing nil selects a fixed seed, so the same image always
// quantizes the same way.
package palette

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/ironsheep/pixel-snap-mcp/internal/colorspace"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

// ErrInvalidMaxColors is returned when a palette limit is not positive.
var ErrInvalidMaxColors = errors.New("max colors must be positive")

const (
	maxIterations        = 20
	convergenceThreshold = 1e-10
	defaultSeed1         = 0x5eed
	defaultSeed2         = 0x9a1e77e
)

// weightedColor is one distinct RGB value with its occurrence count.
type weightedColor struct {
	rgba  raster.RGBA
	ictcp colorspace.ICtCp
	count int
}

// NewRand returns a deterministic random source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, defaultSeed2))
}

func orDefault(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return NewRand(defaultSeed1)
}

// dedupe collapses colors by RGB (alpha ignored), keeping first-seen order.
func dedupe(colors []raster.RGBA) []weightedColor {
	index := make(map[[3]uint8]int, len(colors))
	unique := make([]weightedColor, 0)
	for _, c := range colors {
		key := [3]uint8{c.R, c.G, c.B}
		if i, ok := index[key]; ok {
			unique[i].count++
			continue
		}
		index[key] = len(unique)
		unique = append(unique, weightedColor{rgba: c, count: 1})
	}
	return unique
}

// Quantize returns a palette of at most maxColors colors for the given cell
// colors.
//
// When there are no more distinct colors than maxColors the distinct colors
// are returned unchanged, so quantizing an already-reduced image is a no-op.
// Otherwise centroids are seeded with k-means++ and refined for up to 20
// rounds, weighting every distinct color by how often it occurs. A
// non-positive maxColors yields nil.
func Quantize(colors []raster.RGBA, maxColors int, rng *rand.Rand) []raster.RGBA {
	if maxColors <= 0 || len(colors) == 0 {
		return nil
	}

	unique := dedupe(colors)
	if len(unique) <= maxColors {
		out := make([]raster.RGBA, len(unique))
		for i, u := range unique {
			out[i] = u.rgba
		}
		return out
	}

	for i := range unique {
		unique[i].ictcp = colorspace.FromRGB(unique[i].rgba)
	}

	centroids := seedCentroids(unique, maxColors, orDefault(rng))
	centroids = lloyd(unique, centroids)

	out := make([]raster.RGBA, len(centroids))
	for i, c := range centroids {
		out[i] = colorspace.ToRGB(c)
	}
	return out
}

// seedCentroids picks k initial centroids with k-means++: the first uniformly
// at random, each next one with probability proportional to its squared
// distance to the nearest centroid chosen so far.
func seedCentroids(colors []weightedColor, k int, rng *rand.Rand) []colorspace.ICtCp {
	if len(colors) <= k {
		out := make([]colorspace.ICtCp, len(colors))
		for i, c := range colors {
			out[i] = c.ictcp
		}
		return out
	}

	used := make([]bool, len(colors))
	first := rng.IntN(len(colors))
	centroids := []colorspace.ICtCp{colors[first].ictcp}
	used[first] = true

	nearest := make([]float64, len(colors))
	for i := range nearest {
		nearest[i] = math.Inf(1)
	}

	for len(centroids) < k {
		last := centroids[len(centroids)-1]
		total := 0.0
		for i, c := range colors {
			if used[i] {
				nearest[i] = 0
				continue
			}
			nearest[i] = math.Min(nearest[i], colorspace.DistanceSquared(c.ictcp, last))
			total += nearest[i]
		}

		chosen := -1
		threshold := rng.Float64() * total
		for i, d := range nearest {
			if used[i] {
				continue
			}
			threshold -= d
			if threshold <= 0 {
				chosen = i
				break
			}
		}
		if chosen < 0 {
			// Rounding left the threshold positive; take the last candidate.
			for i := len(colors) - 1; i >= 0; i-- {
				if !used[i] {
					chosen = i
					break
				}
			}
		}
		used[chosen] = true
		centroids = append(centroids, colors[chosen].ictcp)
	}
	return centroids
}

// lloyd refines centroids by count-weighted assignment rounds. Empty clusters
// keep their previous centroid.
func lloyd(colors []weightedColor, centroids []colorspace.ICtCp) []colorspace.ICtCp {
	type acc struct {
		i, ct, cp float64
		weight    float64
	}
	sums := make([]acc, len(centroids))

	for iter := 0; iter < maxIterations; iter++ {
		for i := range sums {
			sums[i] = acc{}
		}
		for _, c := range colors {
			j := nearestIndex(c.ictcp, centroids)
			w := float64(c.count)
			sums[j].i += c.ictcp.I * w
			sums[j].ct += c.ictcp.Ct * w
			sums[j].cp += c.ictcp.Cp * w
			sums[j].weight += w
		}

		converged := true
		next := make([]colorspace.ICtCp, len(centroids))
		for j, s := range sums {
			if s.weight == 0 {
				next[j] = centroids[j]
				continue
			}
			next[j] = colorspace.ICtCp{I: s.i / s.weight, Ct: s.ct / s.weight, Cp: s.cp / s.weight}
			if colorspace.DistanceSquared(next[j], centroids[j]) > convergenceThreshold {
				converged = false
			}
		}
		centroids = next
		if converged {
			break
		}
	}
	return centroids
}

func nearestIndex(c colorspace.ICtCp, centroids []colorspace.ICtCp) int {
	best := 0
	bestDist := math.Inf(1)
	for i, ct := range centroids {
		if d := colorspace.DistanceSquared(c, ct); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// Remap replaces every opaque pixel of buf with its perceptually nearest
// palette color, keeping the pixel's alpha. An empty palette leaves buf
// untouched.
func Remap(buf *raster.Buffer, pal []raster.RGBA) {
	if buf == nil || len(pal) == 0 {
		return
	}
	centroids := make([]colorspace.ICtCp, len(pal))
	for i, p := range pal {
		centroids[i] = colorspace.FromRGB(p)
	}

	memo := make(map[[3]uint8]raster.RGBA)
	for i := 0; i < len(buf.Pix); i += 4 {
		if buf.Pix[i+3] == 0 {
			continue
		}
		key := [3]uint8{buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]}
		target, ok := memo[key]
		if !ok {
			c := colorspace.FromRGB(raster.RGBA{R: key[0], G: key[1], B: key[2]})
			target = pal[nearestIndex(c, centroids)]
			memo[key] = target
		}
		buf.Pix[i] = target.R
		buf.Pix[i+1] = target.G
		buf.Pix[i+2] = target.B
	}
}

// Apply quantizes buf in place to at most maxColors colors and returns the
// palette used. A buffer without opaque pixels is left unchanged and yields a
// nil palette.
func Apply(buf *raster.Buffer, maxColors int, rng *rand.Rand) ([]raster.RGBA, error) {
	if maxColors <= 0 {
		return nil, ErrInvalidMaxColors
	}
	if buf == nil {
		return nil, nil
	}
	colors := buf.OpaqueColors()
	if len(colors) == 0 {
		return nil, nil
	}
	pal := Quantize(colors, maxColors, rng)
	Remap(buf, pal)
	return pal, nil
}
