package pixelate

import (
	"math"

	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

// DefaultSampleSize is the side of the supersample lattice drawn per cell.
const DefaultSampleSize = 5

// MaxSampleSize bounds the lattice side; a cell never draws more than
// MaxSampleSize^2 samples.
const MaxSampleSize = 32

// SampleCell draws a sampleSize x sampleSize lattice of source pixels for
// output cell (cellX, cellY) of a gridW x gridH grid laid over q.
//
// Lattice points sit at the centers of the lattice sub-cells and are mapped
// through the quad, then nearest-neighbour sampled. Points outside the source
// read as transparent black, and transparent samples are dropped, so the
// result may be empty. Samples are returned row by row, which lets the
// lattice-aware aggregators recover the lattice layout. Sizes above
// MaxSampleSize are clamped to it.
func SampleCell(src *raster.Buffer, q geometry.Quad, cellX, cellY, gridW, gridH, sampleSize int) []raster.RGBA {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	sampleSize = min(sampleSize, MaxSampleSize)
	return sampleCellInto(make([]raster.RGBA, 0, sampleSize*sampleSize), src, q, cellX, cellY, gridW, gridH, sampleSize)
}

// sampleCellInto appends the samples to dst, letting Generate reuse one slice
// for the whole grid.
func sampleCellInto(dst []raster.RGBA, src *raster.Buffer, q geometry.Quad, cellX, cellY, gridW, gridH, sampleSize int) []raster.RGBA {
	u0 := float64(cellX) / float64(gridW)
	u1 := float64(cellX+1) / float64(gridW)
	v0 := float64(cellY) / float64(gridH)
	v1 := float64(cellY+1) / float64(gridH)
	n := float64(sampleSize)

	for j := 0; j < sampleSize; j++ {
		v := v0 + (v1-v0)*(float64(j)+0.5)/n
		for i := 0; i < sampleSize; i++ {
			u := u0 + (u1-u0)*(float64(i)+0.5)/n
			p := geometry.MapQuadPoint(q, u, v)
			px := src.At(int(math.Floor(p.X)), int(math.Floor(p.Y)))
			if px.A > 0 {
				dst = append(dst, px)
			}
		}
	}
	return dst
}
