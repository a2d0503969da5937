// Package geometry maps the normalized output grid onto a four-corner region of
// the source image.
//
// A Quad need not be convex or axis-aligned. All functions are pure: they take
// plain values and return new values, and none of them can fail. Degenerate
// (zero-area) quads are accepted and simply sample a single line or point.
package geometry

import "math"

// Skew constants for ApplyPerspectiveSkew.
const (
	isometricAngleDegrees = 30
	isometricScaleFactor  = 0.5
	skewIntensity         = 0.1
	nonIsometricSkew      = 5
)

// Point is a real-valued coordinate in source-image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is the four-corner region of the source mapped onto the output grid.
type Quad struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomLeft  Point `json:"bottom_left"`
	BottomRight Point `json:"bottom_right"`
}

// RectQuad returns the axis-aligned quad covering (x, y)-(x+w, y+h).
func RectQuad(x, y, w, h float64) Quad {
	return Quad{
		TopLeft:     Point{X: x, Y: y},
		TopRight:    Point{X: x + w, Y: y},
		BottomLeft:  Point{X: x, Y: y + h},
		BottomRight: Point{X: x + w, Y: y + h},
	}
}

// MapQuadPoint maps normalized grid coordinates (u, v) in [0,1] to a source
// pixel position.
//
// The top and bottom edges are interpolated by u, then the result is
// interpolated between them by v. The four corners map exactly:
// (0,0)=TopLeft, (1,0)=TopRight, (0,1)=BottomLeft, (1,1)=BottomRight.
func MapQuadPoint(q Quad, u, v float64) Point {
	topX := q.TopLeft.X + (q.TopRight.X-q.TopLeft.X)*u
	topY := q.TopLeft.Y + (q.TopRight.Y-q.TopLeft.Y)*u
	bottomX := q.BottomLeft.X + (q.BottomRight.X-q.BottomLeft.X)*u
	bottomY := q.BottomLeft.Y + (q.BottomRight.Y-q.BottomLeft.Y)*u

	return Point{
		X: topX + (bottomX-topX)*v,
		Y: topY + (bottomY-topY)*v,
	}
}

// Centroid returns the mean of the four corners.
func Centroid(q Quad) Point {
	return Point{
		X: (q.TopLeft.X + q.TopRight.X + q.BottomLeft.X + q.BottomRight.X) / 4,
		Y: (q.TopLeft.Y + q.TopRight.Y + q.BottomLeft.Y + q.BottomRight.Y) / 4,
	}
}

// RotatePoint rotates p about center by angleDegrees (clockwise in image
// coordinates, where Y grows downward).
func RotatePoint(p, center Point, angleDegrees float64) Point {
	rad := angleDegrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	dx := p.X - center.X
	dy := p.Y - center.Y
	return Point{
		X: center.X + dx*cos - dy*sin,
		Y: center.Y + dx*sin + dy*cos,
	}
}

// RotateAroundCenter rotates every corner of q about its centroid.
func RotateAroundCenter(q Quad, angleDegrees float64) Quad {
	c := Centroid(q)
	return Quad{
		TopLeft:     RotatePoint(q.TopLeft, c, angleDegrees),
		TopRight:    RotatePoint(q.TopRight, c, angleDegrees),
		BottomLeft:  RotatePoint(q.BottomLeft, c, angleDegrees),
		BottomRight: RotatePoint(q.BottomRight, c, angleDegrees),
	}
}

// ApplyPerspectiveSkew distorts q to approximate a plane seen at an angle.
//
// In isometric mode each corner is sheared horizontally in proportion to its
// vertical distance from the centroid (30 degree shear scaled by skewX), and
// the top edge is compressed while the bottom edge is expanded by |skewY| to
// fake a receding plane. Otherwise every corner is pushed outward (or inward,
// for negative skew) along both axes by a linear factor of the skew.
func ApplyPerspectiveSkew(q Quad, skewX, skewY float64, isometric bool) Quad {
	if isometric {
		c := Centroid(q)
		shear := math.Tan(isometricAngleDegrees*math.Pi/180) * skewX * skewIntensity
		squash := math.Abs(skewY) * skewIntensity * isometricScaleFactor

		iso := func(p Point, yScale float64) Point {
			return Point{
				X: p.X + (p.Y-c.Y)*shear,
				Y: p.Y * yScale,
			}
		}
		return Quad{
			TopLeft:     iso(q.TopLeft, 1-squash),
			TopRight:    iso(q.TopRight, 1-squash),
			BottomLeft:  iso(q.BottomLeft, 1+squash),
			BottomRight: iso(q.BottomRight, 1+squash),
		}
	}

	dx := skewX * nonIsometricSkew
	dy := skewY * nonIsometricSkew
	return Quad{
		TopLeft:     Point{X: q.TopLeft.X - dx, Y: q.TopLeft.Y - dy},
		TopRight:    Point{X: q.TopRight.X + dx, Y: q.TopRight.Y - dy},
		BottomLeft:  Point{X: q.BottomLeft.X - dx, Y: q.BottomLeft.Y + dy},
		BottomRight: Point{X: q.BottomRight.X + dx, Y: q.BottomRight.Y + dy},
	}
}

// Adjust applies a rotation and then a perspective skew, the order the host
// uses when turning user controls into a sampling quad.
func Adjust(q Quad, rotationDegrees, skewX, skewY float64, isometric bool) Quad {
	if rotationDegrees != 0 {
		q = RotateAroundCenter(q, rotationDegrees)
	}
	if skewX != 0 || skewY != 0 {
		q = ApplyPerspectiveSkew(q, skewX, skewY, isometric)
	}
	return q
}
