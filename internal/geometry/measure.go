package geometry

import (
	"image"
	"math"
)

// Bounds returns the region of interest the calibration search analyses.
//
// The left edge comes from the left corners, the right edge from the right
// corners, the top from the top corners and the bottom from the bottom
// corners, so a rotated quad still yields a sensible box.
func Bounds(q Quad) (minX, minY, maxX, maxY float64) {
	minX = math.Min(q.TopLeft.X, q.BottomLeft.X)
	maxX = math.Max(q.TopRight.X, q.BottomRight.X)
	minY = math.Min(q.TopLeft.Y, q.TopRight.Y)
	maxY = math.Max(q.BottomLeft.Y, q.BottomRight.Y)
	return minX, minY, maxX, maxY
}

// PixelRect converts Bounds to an integer rectangle clipped to a
// width x height source. The result may be empty.
func PixelRect(q Quad, width, height int) image.Rectangle {
	minX, minY, maxX, maxY := Bounds(q)
	x0 := int(math.Max(0, math.Floor(minX)))
	y0 := int(math.Max(0, math.Floor(minY)))
	w := int(math.Floor(maxX - minX))
	h := int(math.Floor(maxY - minY))
	r := image.Rect(x0, y0, x0+w, y0+h)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// EdgeSize returns the average lengths of the horizontal and vertical edge
// pairs of q.
func EdgeSize(q Quad) (width, height float64) {
	top := distance(q.TopLeft, q.TopRight)
	bottom := distance(q.BottomLeft, q.BottomRight)
	left := distance(q.TopLeft, q.BottomLeft)
	right := distance(q.TopRight, q.BottomRight)
	return (top + bottom) / 2, (left + right) / 2
}

// SuggestOutputSize proposes an output grid for q assuming square cells of
// the given pitch. Both dimensions are at least 1.
func SuggestOutputSize(q Quad, pitch float64) (width, height int) {
	if pitch <= 0 {
		pitch = 1
	}
	w, h := EdgeSize(q)
	width = max(1, int(math.Round(w/pitch)))
	height = max(1, int(math.Round(h/pitch)))
	return width, height
}

func distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
