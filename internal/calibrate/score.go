package calibrate

import (
	"math"
	"math/rand/v2"

	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

const (
	minSampledCells      = 20
	superMinSampledCells = 50
	centerSpotRatio      = 0.2
)

// scorer measures how well a square grid fits a cropped region. Lower scores
// are better. Scores are only comparable within a single scorer.
type scorer struct {
	buf        *raster.Buffer
	centerSpot bool
	rng        *rand.Rand
}

// channelStats accumulates RGB sums and sums of squares over a cell.
type channelStats struct {
	n                int
	sumR, sumG, sumB float64
	sqR, sqG, sqB    float64
}

func (s *channelStats) add(p raster.RGBA) {
	r, g, b := float64(p.R), float64(p.G), float64(p.B)
	s.n++
	s.sumR += r
	s.sumG += g
	s.sumB += b
	s.sqR += r * r
	s.sqG += g * g
	s.sqB += b * b
}

// variance returns the population variance summed over the three channels.
// Fewer than two pixels count as perfectly uniform.
func (s *channelStats) variance() float64 {
	if s.n < 2 {
		return 0
	}
	n := float64(s.n)
	v := 0.0
	for _, c := range [][2]float64{{s.sumR, s.sqR}, {s.sumG, s.sqG}, {s.sumB, s.sqB}} {
		mean := c[0] / n
		v += math.Max(0, c[1]/n-mean*mean)
	}
	return v
}

func (s *channelStats) mean() (r, g, b float64) {
	n := float64(s.n)
	return s.sumR / n, s.sumG / n, s.sumB / n
}

// strideStart picks where a strided walk over total cells begins. With a
// random source the phase is drawn from [0, step), otherwise it is zero.
func (s *scorer) strideStart(step int) int {
	if s.rng == nil || step <= 1 {
		return 0
	}
	return s.rng.IntN(step)
}

// cellStats collects the pixels of the pitch x pitch cell starting at
// (startX, startY). Coordinates may be fractional; the walk steps one pixel at
// a time from the start and floors each position. For centerSpot only the
// middle 20% of the cell is read, matching what rendering samples.
func (s *scorer) cellStats(startX, startY, pitch float64) channelStats {
	w, h := float64(s.buf.Width), float64(s.buf.Height)
	x0, y0 := startX, startY
	x1 := math.Min(startX+pitch, w)
	y1 := math.Min(startY+pitch, h)

	if s.centerSpot {
		margin := pitch * (1 - centerSpotRatio) / 2
		x0 = math.Max(startX, math.Floor(startX+margin))
		x1 = math.Min(x1, math.Ceil(startX+pitch-margin))
		y0 = math.Max(startY, math.Floor(startY+margin))
		y1 = math.Min(y1, math.Ceil(startY+pitch-margin))
	}

	var st channelStats
	for y := y0; y < y1; y++ {
		py := int(math.Floor(y))
		for x := x0; x < x1; x++ {
			st.add(s.buf.At(int(math.Floor(x)), py))
		}
	}
	return st
}

// varianceScore is the mean intra-cell variance of a sample of the cells of a
// grid with the given pitch and offset. A grid smaller than 2x2, or one
// where no sampled cell fits inside the region, scores +Inf.
func (s *scorer) varianceScore(pitch, offsetX, offsetY, sampleRatio float64) float64 {
	w, h := float64(s.buf.Width), float64(s.buf.Height)
	gridW := int(math.Floor((w - offsetX) / pitch))
	gridH := int(math.Floor((h - offsetY) / pitch))
	if gridW < 2 || gridH < 2 {
		return math.Inf(1)
	}

	total := gridW * gridH
	sampleCount := max(minSampledCells, int(math.Floor(float64(total)*sampleRatio)))
	step := max(1, total/sampleCount)

	sum := 0.0
	cells := 0
	for i := s.strideStart(step); i < total; i += step {
		startX := offsetX + float64(i%gridW)*pitch
		startY := offsetY + float64(i/gridW)*pitch
		if startX < 0 || startY < 0 || startX+pitch > w || startY+pitch > h {
			continue
		}
		st := s.cellStats(startX, startY, pitch)
		sum += st.variance()
		cells++
	}
	if cells == 0 {
		return math.Inf(1)
	}
	return sum / float64(cells)
}

// contrastScore rewards grids whose cells are uniform inside but differ from
// each other: mean intra-cell variance divided by the spread of the cell
// means, scaled by pitch so that finer grids are not penalised for having
// more edges. Grids smaller than 4x4 score +Inf.
func (s *scorer) contrastScore(pitch, offsetX, offsetY, sampleRatio float64) float64 {
	w, h := s.buf.Width, s.buf.Height
	gridW := int(math.Floor((float64(w) - offsetX) / pitch))
	gridH := int(math.Floor((float64(h) - offsetY) / pitch))
	if gridW < 4 || gridH < 4 {
		return math.Inf(1)
	}

	total := gridW * gridH
	sampleCount := max(superMinSampledCells, int(math.Floor(float64(total)*sampleRatio)))
	step := max(1, total/sampleCount)
	span := int(math.Floor(pitch))

	intra := 0.0
	var means [][3]float64
	for i := s.strideStart(step); i < total; i += step {
		startX := int(math.Floor(offsetX + float64(i%gridW)*pitch))
		startY := int(math.Floor(offsetY + float64(i/gridW)*pitch))
		endX := min(startX+span, w)
		endY := min(startY+span, h)
		if startX < 0 || startY < 0 {
			continue
		}

		var st channelStats
		for y := startY; y < endY; y++ {
			for x := startX; x < endX; x++ {
				st.add(s.buf.At(x, y))
			}
		}
		if st.n < 2 {
			continue
		}
		intra += st.variance()
		r, g, b := st.mean()
		means = append(means, [3]float64{r, g, b})
	}
	if len(means) < 2 {
		return math.Inf(1)
	}

	var global [3]float64
	for _, m := range means {
		for c := range global {
			global[c] += m[c]
		}
	}
	for c := range global {
		global[c] /= float64(len(means))
	}
	inter := 0.0
	for _, m := range means {
		for c := range global {
			d := m[c] - global[c]
			inter += d * d
		}
	}
	inter /= float64(len(means))

	avgIntra := intra / float64(len(means))
	return avgIntra / (math.Sqrt(inter) + 1) * pitch
}
