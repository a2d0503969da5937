package palette

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/ironsheep/pixel-snap-mcp/internal/colorspace"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

// SuggestMethod selects the palette extraction strategy used by Suggest.
type SuggestMethod int

const (
	SuggestDominant SuggestMethod = iota
	SuggestKMeans
)

// maxSuggestSamples bounds the number of pixels fed to k-means.
const maxSuggestSamples = 12000

func (m SuggestMethod) String() string {
	switch m {
	case SuggestKMeans:
		return "kmeans"
	default:
		return "dominant"
	}
}

// ParseSuggestMethod maps a method name to a SuggestMethod. Empty selects
// SuggestDominant.
func ParseSuggestMethod(name string) (SuggestMethod, error) {
	switch name {
	case "", "dominant":
		return SuggestDominant, nil
	case "kmeans":
		return SuggestKMeans, nil
	default:
		return 0, fmt.Errorf("unknown palette method: %s", name)
	}
}

// Suggest extracts up to k representative colors from img. It is meant to help
// a caller pick a palette size before rendering, not to quantize output.
//
// K-means falls back to the dominant-color method when it produces nothing;
// the second return value is the method that actually produced the colors.
func Suggest(img image.Image, k int, method SuggestMethod) ([]raster.RGBA, SuggestMethod) {
	if k <= 0 || img == nil {
		return nil, method
	}
	if method == SuggestKMeans {
		if p := suggestKMeans(img, k); len(p) != 0 {
			return p, SuggestKMeans
		}
	}
	return suggestDominant(img, k), SuggestDominant
}

type candidate struct {
	color  raster.RGBA
	weight float64
}

func suggestDominant(img image.Image, k int) []raster.RGBA {
	found := dominantcolor.FindWeight(img, max(24, k*8))
	if len(found) == 0 {
		return nil
	}
	cands := make([]candidate, 0, len(found))
	for _, c := range found {
		cands = append(cands, candidate{
			color:  raster.RGBA{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B, A: 255},
			weight: c.Weight,
		})
	}
	return selectDiverse(cands, k)
}

func suggestKMeans(img image.Image, k int) []raster.RGBA {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	step := 1
	if width*height > maxSuggestSamples {
		step = int(math.Sqrt(float64(width*height)/maxSuggestSamples)) + 1
	}

	dataset := make(clusters.Observations, 0, min(width*height, maxSuggestSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			p := colorspace.FromRGB(raster.RGBA{R: c.R, G: c.G, B: c.B})
			dataset = append(dataset, clusters.Coordinates{p.I, p.Ct, p.Cp})
		}
	}
	if len(dataset) == 0 {
		return nil
	}

	workK := min(max(k*4, k+2), len(dataset))
	cc, err := kmeans.New().Partition(dataset, workK)
	if err != nil || len(cc) == 0 {
		return nil
	}

	cands := make([]candidate, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		rgb := colorspace.ToRGB(colorspace.ICtCp{I: c.Center[0], Ct: c.Center[1], Cp: c.Center[2]})
		cands = append(cands, candidate{color: rgb, weight: float64(len(c.Observations))})
	}
	return selectDiverse(cands, k)
}

// selectDiverse greedily picks k candidates, starting from the heaviest and
// then favouring colors far (in ICtCp) from those already chosen, scaled by
// their weight.
func selectDiverse(cands []candidate, k int) []raster.RGBA {
	if len(cands) == 0 {
		return nil
	}
	k = min(k, len(cands))

	maxW := 0.0
	points := make([]colorspace.ICtCp, len(cands))
	for i, c := range cands {
		if c.weight <= 0 {
			cands[i].weight = 1e-6
		}
		maxW = math.Max(maxW, cands[i].weight)
		points[i] = colorspace.FromRGB(c.color)
	}

	seed := 0
	for i := range cands {
		if cands[i].weight > cands[seed].weight {
			seed = i
		}
	}
	selected := []int{seed}
	taken := make([]bool, len(cands))
	taken[seed] = true

	for len(selected) < k {
		bestIdx, bestScore := -1, -1.0
		for i := range cands {
			if taken[i] {
				continue
			}
			minD := math.Inf(1)
			for _, s := range selected {
				minD = math.Min(minD, colorspace.DistanceSquared(points[i], points[s]))
			}
			score := math.Sqrt(minD) * (0.55 + 0.45*math.Sqrt(cands[i].weight/maxW))
			if score > bestScore {
				bestScore, bestIdx = score, i
			}
		}
		if bestIdx < 0 {
			break
		}
		taken[bestIdx] = true
		selected = append(selected, bestIdx)
	}

	out := make([]raster.RGBA, len(selected))
	for i, idx := range selected {
		out[i] = cands[idx].color
	}
	return out
}

// SortByIntensity orders colors from darkest to brightest ICtCp intensity.
func SortByIntensity(pal []raster.RGBA) {
	slices.SortStableFunc(pal, func(a, b raster.RGBA) int {
		ia, ib := colorspace.FromRGB(a).I, colorspace.FromRGB(b).I
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	})
}
