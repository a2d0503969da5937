package calibrate

import (
	"context"
	"fmt"
	"math"

	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

const (
	superSampleRatio     = 0.5
	superOffsetSteps     = 16
	superFineOffsetSteps = 64
	superMinPitch        = 4
	superDefaultGrid     = 16
)

// SuperGridSizes are the grid widths SuperCalibrate tries, in cells.
var SuperGridSizes = []int{8, 12, 14, 16, 18, 20, 24, 28, 32, 40, 48, 64}

// SuperCalibrate finds a grid without an initial estimate. Each grid width in
// SuperGridSizes whose pitch is at least 4px is tried with a 16x16 offset
// search, and the winner's offset is then refined on a 64x64 lattice.
//
// Candidates are ranked by intra-cell variance relative to the contrast
// between cells, which favours grids whose cells are flat but distinct from
// their neighbours. Sampling is stochastic when opts.Rand is set.
//
// The grid width is the winning candidate size and the height follows from
// the pitch. Confidence compares the winner against the 16-cell-wide grid at
// zero offset. Like Calibrate it only fails with ctx.Err().
func SuperCalibrate(ctx context.Context, src *raster.Buffer, q geometry.Quad, opts Options) (Result, error) {
	buf := region(src, q)
	if buf == nil || buf.Width < minRegionSide || buf.Height < minRegionSide {
		opts.report(Progress{Percent: 100, Phase: Done, Label: "Region too small to calibrate"})
		res := Result{GridWidth: superDefaultGrid, GridHeight: superDefaultGrid, Score: math.Inf(1)}
		if buf != nil {
			res.Pitch = float64(buf.Width) / superDefaultGrid
			res.GridHeight = roundGrid(buf.Height, res.Pitch)
		}
		return res, nil
	}

	sc := &scorer{buf: buf, rng: opts.Rand}
	score := func(pitch, ox, oy float64) float64 {
		return sc.contrastScore(pitch, ox, oy, superSampleRatio)
	}

	defaultPitch := float64(buf.Width) / superDefaultGrid
	best := candidate{pitch: defaultPitch, score: math.Inf(1)}
	bestGrid := superDefaultGrid

	result := func() Result {
		res := Result{
			Pitch:      best.pitch,
			OffsetX:    best.offsetX,
			OffsetY:    best.offsetY,
			GridWidth:  bestGrid,
			GridHeight: roundGrid(buf.Height, best.pitch),
			Score:      best.score,
		}
		if !math.IsInf(best.score, 1) {
			res.Confidence = confidence(score(defaultPitch, 0, 0), best.score)
		}
		return res
	}
	bestSize := func() Size {
		return Size{Width: bestGrid, Height: roundGrid(buf.Height, best.pitch)}
	}

	opts.report(Progress{Percent: 5, Phase: CoarseScan, Label: "Testing candidate grid sizes", Best: bestSize()})

	for i, gridSize := range SuperGridSizes {
		pitch := float64(buf.Width) / float64(gridSize)
		if pitch < superMinPitch {
			continue
		}
		cand, err := bestOffset(ctx, score, pitch, superOffsetSteps)
		if cand.score < best.score {
			best, bestGrid = cand, gridSize
		}
		if err != nil {
			return result(), err
		}
		opts.report(Progress{
			Percent: 5 + float64(i+1)/float64(len(SuperGridSizes))*80,
			Phase:   CoarseScan,
			Label:   fmt.Sprintf("Grid %dx%d scored %.2f", gridSize, gridSize, cand.score),
			Best:    bestSize(),
		})
	}

	if !math.IsInf(best.score, 1) {
		opts.report(Progress{
			Percent: 88,
			Phase:   OffsetRefine,
			Label:   fmt.Sprintf("Fine-tuning offset for %dx%d", bestGrid, bestGrid),
			Best:    bestSize(),
		})
		cand, err := bestOffset(ctx, score, best.pitch, superFineOffsetSteps)
		if err != nil {
			return result(), err
		}
		if cand.score < best.score {
			best.offsetX, best.offsetY, best.score = cand.offsetX, cand.offsetY, cand.score
		}
	}

	res := result()
	opts.report(Progress{
		Percent: 100,
		Phase:   Done,
		Label:   fmt.Sprintf("Complete: %dx%d", res.GridWidth, res.GridHeight),
		Best:    Size{res.GridWidth, res.GridHeight},
	})
	return res, nil
}
