// Package calibrate infers the pixel pitch and grid offset of upscaled pixel
// art inside a quad.
//
// The search assumes square source pixels and looks for the pitch and
// sub-cell offset at which the colors inside each grid cell are most uniform.
// Calibrate runs a staged search seeded by the caller's current output size.
// SuperCalibrate tries a fixed ladder of grid sizes and needs no estimate.
//
// Both searches report progress through an optional callback and stop early
// when their context is cancelled, returning the best grid found so far.
package calibrate

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
	"github.com/ironsheep/pixel-snap-mcp/internal/pixelate"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

const (
	coarseSampleRatio   = 0.15
	fineSampleRatio     = 0.2
	baselineSampleRatio = 0.2
	fineSearchRange     = 3.0
	fineStep            = 0.25
	fineOffsetSteps     = 8
	finalOffsetSteps    = 16
	minRegionSide       = 4
)

// Phase is a stage of the calibration state machine.
type Phase int

const (
	CoarseScan Phase = iota
	FineScan
	OffsetRefine
	Done
)

func (p Phase) String() string {
	switch p {
	case CoarseScan:
		return "coarse"
	case FineScan:
		return "fine"
	case OffsetRefine:
		return "offset"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Size is a grid size in cells.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Progress is reported to the ProgressFunc while a search runs.
type Progress struct {
	Percent float64 `json:"percent"` // 0-100
	Phase   Phase   `json:"-"`
	Label   string  `json:"label"`
	Best    Size    `json:"best"`
}

// ProgressFunc receives progress reports. It is called on the searching
// goroutine and should return quickly.
type ProgressFunc func(Progress)

// Options tunes a calibration run. The zero value is valid.
type Options struct {
	// Rand randomizes which cells are sampled when scoring a candidate. Nil
	// samples a fixed stride starting at the first cell.
	Rand *rand.Rand

	// OnProgress, if set, receives progress reports.
	OnProgress ProgressFunc
}

func (o Options) report(p Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}

// Result is the grid a calibration run settled on. Offsets are in source
// pixels relative to the top-left of the quad's bounding box.
type Result struct {
	Pitch      float64 `json:"pitch"`
	OffsetX    float64 `json:"offset_x"`
	OffsetY    float64 `json:"offset_y"`
	GridWidth  int     `json:"grid_width"`
	GridHeight int     `json:"grid_height"`

	// Score is the winning candidate's score. It is only meaningful relative
	// to other scores from the same run and may be +Inf.
	Score float64 `json:"-"`

	// Confidence in [0, 1]; 0.5 means no better than the caller's estimate.
	Confidence float64 `json:"confidence"`
}

// candidate is one (pitch, offset) pairing and its score.
type candidate struct {
	pitch, offsetX, offsetY float64
	score                   float64
}

// region crops the bounding box of q, clamped to src. It returns nil when the
// box misses the source entirely.
func region(src *raster.Buffer, q geometry.Quad) *raster.Buffer {
	if src == nil || src.Width == 0 || src.Height == 0 {
		return nil
	}
	return src.Crop(geometry.PixelRect(q, src.Width, src.Height))
}

func roundGrid(extent int, pitch float64) int {
	return max(1, int(math.Round(float64(extent)/pitch)))
}

func sizeFor(buf *raster.Buffer, pitch float64) Size {
	return Size{Width: roundGrid(buf.Width, pitch), Height: roundGrid(buf.Height, pitch)}
}

// confidence maps the improvement of best over baseline onto [0, 1], with
// 0.5 meaning no improvement.
func confidence(baseline, best float64) float64 {
	switch {
	case math.IsInf(best, 1):
		return 0
	case math.IsInf(baseline, 1):
		return 1
	case baseline <= 0:
		return 0.5
	}
	return math.Max(0, math.Min(1, 0.5+(baseline-best)/baseline))
}

// bestOffset scores steps x steps offsets spread evenly over one cell and
// returns the best. The first of equal scores wins.
func bestOffset(ctx context.Context, score func(pitch, ox, oy float64) float64, pitch float64, steps int) (candidate, error) {
	best := candidate{pitch: pitch, score: math.Inf(1)}
	for ox := 0; ox < steps; ox++ {
		if err := ctx.Err(); err != nil {
			return best, err
		}
		for oy := 0; oy < steps; oy++ {
			offsetX := float64(ox) / float64(steps) * pitch
			offsetY := float64(oy) / float64(steps) * pitch
			if s := score(pitch, offsetX, offsetY); s < best.score {
				best = candidate{pitch: pitch, offsetX: offsetX, offsetY: offsetY, score: s}
			}
		}
	}
	return best, nil
}

// Calibrate searches for the grid pitch and offset that best explain the
// pixel art inside q, starting from the caller's current output size.
//
// The search runs CoarseScan (integer pitches from half to double the
// estimate), FineScan (quarter-pixel pitches within 3px of the coarse
// winner, each with an 8x8 offset search) and OffsetRefine (a 16x16 offset
// search for the winner). The resulting grid is round(W/pitch) x
// round(H/pitch) for the W x H region.
//
// Calibrate never fails because of the geometry. A region smaller than 4x4
// pixels, or one where no candidate produces a finite score, yields the
// estimate with zero confidence. The only error is ctx.Err() after
// cancellation, returned with the best result found so far.
func Calibrate(ctx context.Context, src *raster.Buffer, q geometry.Quad, currentWidth, currentHeight int, method pixelate.ColorMethod, opts Options) (Result, error) {
	currentWidth = max(1, currentWidth)
	currentHeight = max(1, currentHeight)

	buf := region(src, q)
	if buf == nil || buf.Width < minRegionSide || buf.Height < minRegionSide {
		res := Result{GridWidth: currentWidth, GridHeight: currentHeight, Score: math.Inf(1)}
		if buf != nil {
			res.Pitch = estimatePitch(buf, currentWidth, currentHeight)
		}
		opts.report(Progress{Percent: 100, Phase: Done, Label: "Region too small to calibrate", Best: Size{currentWidth, currentHeight}})
		return res, nil
	}

	c := &calibration{
		ctx:      ctx,
		opts:     opts,
		buf:      buf,
		sc:       &scorer{buf: buf, centerSpot: method == pixelate.CenterSpot, rng: opts.Rand},
		estimate: estimatePitch(buf, currentWidth, currentHeight),
		current:  Size{currentWidth, currentHeight},
	}
	return c.run()
}

func estimatePitch(buf *raster.Buffer, currentWidth, currentHeight int) float64 {
	return (float64(buf.Width)/float64(currentWidth) + float64(buf.Height)/float64(currentHeight)) / 2
}

// calibration carries the state of one Calibrate run between phases.
type calibration struct {
	ctx      context.Context
	opts     Options
	buf      *raster.Buffer
	sc       *scorer
	estimate float64
	current  Size
	best     candidate
	phase    Phase
}

func (c *calibration) run() (Result, error) {
	c.best = candidate{pitch: c.estimate, score: math.Inf(1)}
	c.opts.report(Progress{Percent: 5, Phase: CoarseScan, Label: "Analyzing image structure", Best: c.current})

	for c.phase = CoarseScan; c.phase != Done; {
		if err := c.ctx.Err(); err != nil {
			return c.result(), err
		}
		var err error
		switch c.phase {
		case CoarseScan:
			err = c.coarseScan()
			c.phase = FineScan
		case FineScan:
			err = c.fineScan()
			c.phase = OffsetRefine
		case OffsetRefine:
			err = c.offsetRefine()
			c.phase = Done
		}
		if err != nil {
			return c.result(), err
		}
	}

	res := c.result()
	c.opts.report(Progress{
		Percent: 100,
		Phase:   Done,
		Label:   fmt.Sprintf("Complete: %dx%d", res.GridWidth, res.GridHeight),
		Best:    Size{res.GridWidth, res.GridHeight},
	})
	return res, nil
}

// result converts the current best candidate into a Result. Without any
// finite candidate the caller's estimate is returned unchanged.
func (c *calibration) result() Result {
	if math.IsInf(c.best.score, 1) {
		return Result{
			Pitch:      c.estimate,
			GridWidth:  c.current.Width,
			GridHeight: c.current.Height,
			Score:      c.best.score,
		}
	}
	size := sizeFor(c.buf, c.best.pitch)
	baseline := c.sc.varianceScore(c.estimate, 0, 0, baselineSampleRatio)
	return Result{
		Pitch:      c.best.pitch,
		OffsetX:    c.best.offsetX,
		OffsetY:    c.best.offsetY,
		GridWidth:  size.Width,
		GridHeight: size.Height,
		Score:      c.best.score,
		Confidence: confidence(baseline, c.best.score),
	}
}

func (c *calibration) bestSize() Size {
	if math.IsInf(c.best.score, 1) {
		return c.current
	}
	return sizeFor(c.buf, c.best.pitch)
}

func (c *calibration) coarseScan() error {
	minPitch := max(2, int(math.Floor(c.estimate*0.5)))
	maxPitch := int(math.Min(float64(min(c.buf.Width, c.buf.Height))/4, math.Ceil(c.estimate*2)))

	c.opts.report(Progress{
		Percent: 10,
		Phase:   CoarseScan,
		Label:   fmt.Sprintf("Searching pitch range %d-%dpx", minPitch, maxPitch),
		Best:    c.current,
	})

	total := maxPitch - minPitch + 1
	for pitch := minPitch; pitch <= maxPitch; pitch++ {
		if err := c.ctx.Err(); err != nil {
			return err
		}
		p := float64(pitch)
		if s := c.sc.varianceScore(p, 0, 0, coarseSampleRatio); s < c.best.score {
			c.best = candidate{pitch: p, score: s}
		}
		if i := pitch - minPitch; i%5 == 0 {
			c.opts.report(Progress{
				Percent: 10 + float64(i)/float64(total)*40,
				Phase:   CoarseScan,
				Label:   fmt.Sprintf("Coarse search: testing pitch %dpx", pitch),
				Best:    c.bestSize(),
			})
		}
	}

	best := c.bestSize()
	c.opts.report(Progress{
		Percent: 50,
		Phase:   FineScan,
		Label:   fmt.Sprintf("Coarse search complete: %dx%d", best.Width, best.Height),
		Best:    best,
	})
	return nil
}

func (c *calibration) fineScan() error {
	fineMin := math.Max(2, c.best.pitch-fineSearchRange)
	fineMax := c.best.pitch + fineSearchRange
	total := math.Ceil((fineMax - fineMin) / fineStep)
	score := func(pitch, ox, oy float64) float64 {
		return c.sc.varianceScore(pitch, ox, oy, fineSampleRatio)
	}

	iteration := 0
	for pitch := fineMin; pitch <= fineMax; pitch += fineStep {
		iteration++
		cand, err := bestOffset(c.ctx, score, pitch, fineOffsetSteps)
		if cand.score < c.best.score {
			c.best = cand
		}
		if err != nil {
			return err
		}
		if iteration%8 == 0 {
			c.opts.report(Progress{
				Percent: 50 + float64(iteration)/total*35,
				Phase:   FineScan,
				Label:   fmt.Sprintf("Fine search: pitch %.2fpx", pitch),
				Best:    c.bestSize(),
			})
		}
	}
	return nil
}

func (c *calibration) offsetRefine() error {
	if math.IsInf(c.best.score, 1) {
		return nil
	}
	best := c.bestSize()
	c.opts.report(Progress{
		Percent: 88,
		Phase:   OffsetRefine,
		Label:   fmt.Sprintf("Optimizing alignment for %dx%d", best.Width, best.Height),
		Best:    best,
	})

	score := func(pitch, ox, oy float64) float64 {
		return c.sc.varianceScore(pitch, ox, oy, fineSampleRatio)
	}
	cand, err := bestOffset(c.ctx, score, c.best.pitch, finalOffsetSteps)
	if err != nil {
		return err
	}
	if !math.IsInf(cand.score, 1) {
		c.best = cand
	}
	return nil
}
