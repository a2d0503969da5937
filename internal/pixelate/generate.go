package pixelate

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
	"github.com/ironsheep/pixel-snap-mcp/internal/palette"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

// ErrInvalidDimensions is returned when the requested output grid is empty.
var ErrInvalidDimensions = errors.New("invalid output dimensions")

// ErrInvalidSampleSize is returned when the supersample lattice side exceeds
// MaxSampleSize.
var ErrInvalidSampleSize = errors.New("invalid sample size")

// DefaultMaxColors is the palette limit used by DefaultOptions.
const DefaultMaxColors = 32

// Options controls the optional post-processing stages of Generate.
type Options struct {
	// EnableColorLimit quantizes the output to at most MaxColors colors.
	EnableColorLimit bool

	// MaxColors is the palette size when EnableColorLimit is set. Must be
	// positive in that case.
	MaxColors int

	// EnableBackgroundDetection removes a uniform border field before
	// quantization.
	EnableBackgroundDetection bool

	// SampleSize is the per-cell supersample lattice side. Zero means
	// DefaultSampleSize; values above MaxSampleSize are rejected.
	SampleSize int

	// Rand seeds k-means++ palette initialisation. Nil uses a fixed seed, so
	// identical inputs always give identical output.
	Rand *rand.Rand
}

// DefaultOptions matches the defaults of the interactive tool: color limit on
// at 32 colors, background detection on.
func DefaultOptions() Options {
	return Options{
		EnableColorLimit:          true,
		MaxColors:                 DefaultMaxColors,
		EnableBackgroundDetection: true,
		SampleSize:                DefaultSampleSize,
	}
}

// Result is the output of Generate.
type Result struct {
	// Image is the outputWidth x outputHeight raster, owned by the caller.
	Image *raster.Buffer

	// Palette is the quantized palette, nil when the color limit is off or
	// the output has no opaque pixels.
	Palette []raster.RGBA

	// Background reports the background detector outcome. Zero value when
	// detection is disabled.
	Background BackgroundResult
}

// Generate resamples the quad region of src into an outputWidth x
// outputHeight pixel grid.
//
// Each output cell is supersampled through the quad and reduced with method.
// Background removal runs next (if enabled), then palette quantization (if
// enabled). The source buffer is never modified.
//
// Errors are returned only for precondition violations: non-positive or
// oversized output dimensions, a sample size above MaxSampleSize, or a
// non-positive MaxColors with the color limit enabled.
// Degenerate quads and regions outside the source simply produce transparent
// cells.
func Generate(src *raster.Buffer, q geometry.Quad, outputWidth, outputHeight int, method ColorMethod, opts Options) (*Result, error) {
	if outputWidth <= 0 || outputHeight <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, outputWidth, outputHeight)
	}
	if opts.EnableColorLimit && opts.MaxColors <= 0 {
		return nil, fmt.Errorf("%w: got %d", palette.ErrInvalidMaxColors, opts.MaxColors)
	}

	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if sampleSize > MaxSampleSize {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidSampleSize, sampleSize, MaxSampleSize)
	}

	out, err := raster.New(outputWidth, outputHeight)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}

	if src != nil && src.Width > 0 && src.Height > 0 {
		samples := make([]raster.RGBA, 0, sampleSize*sampleSize)
		for y := 0; y < outputHeight; y++ {
			for x := 0; x < outputWidth; x++ {
				samples = sampleCellInto(samples[:0], src, q, x, y, outputWidth, outputHeight, sampleSize)
				out.Set(x, y, Aggregate(samples, method))
			}
		}
	}

	res := &Result{Image: out}
	if opts.EnableBackgroundDetection {
		res.Background = RemoveBackground(out)
	}
	if opts.EnableColorLimit {
		pal, err := palette.Apply(out, opts.MaxColors, opts.Rand)
		if err != nil {
			return nil, fmt.Errorf("color quantization failed: %w", err)
		}
		res.Palette = pal
	}
	return res, nil
}
