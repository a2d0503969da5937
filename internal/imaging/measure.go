package imaging

import (
	"fmt"
	"image"
	"math"
)

// PitchMeasurement is the result of measuring a run of cells between two
// points picked on the source image.
type PitchMeasurement struct {
	DistancePixels float64 `json:"distance_pixels"`
	DeltaX         float64 `json:"delta_x"`
	DeltaY         float64 `json:"delta_y"`
	AngleDegrees   float64 `json:"angle_degrees"`
	Cells          int     `json:"cells"`
	Pitch          float64 `json:"pitch"`

	// LevelRotation is the rotation that brings the measured run back to the
	// nearest axis, in the convention quad_adjust uses.
	LevelRotation float64 `json:"level_rotation"`

	// SuggestedWidth and SuggestedHeight are the whole-image grid implied by
	// the pitch.
	SuggestedWidth  int `json:"suggested_width"`
	SuggestedHeight int `json:"suggested_height"`
}

// MeasurePitch measures the distance between (x1,y1) and (x2,y2), which are
// expected to span cells grid cells along a row or column of the pixel art.
//
// Angles are in degrees with 0 pointing right and 90 pointing down.
func MeasurePitch(img image.Image, x1, y1, x2, y2 float64, cells int) (*PitchMeasurement, error) {
	if cells <= 0 {
		return nil, fmt.Errorf("cells must be positive, got %d", cells)
	}
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	deltaX := x2 - x1
	deltaY := y2 - y1
	distance := math.Hypot(deltaX, deltaY)
	if distance == 0 {
		return nil, fmt.Errorf("points (%.1f,%.1f) and (%.1f,%.1f) coincide", x1, y1, x2, y2)
	}

	angle := math.Atan2(deltaY, deltaX) * 180 / math.Pi
	pitch := distance / float64(cells)

	// Nearest multiple of 90 degrees, so vertical runs level too.
	level := -(angle - 90*math.Round(angle/90))

	return &PitchMeasurement{
		DistancePixels:  math.Round(distance*100) / 100,
		DeltaX:          deltaX,
		DeltaY:          deltaY,
		AngleDegrees:    math.Round(angle*10) / 10,
		Cells:           cells,
		Pitch:           pitch,
		LevelRotation:   math.Round(level*10) / 10,
		SuggestedWidth:  max(1, int(math.Round(width/pitch))),
		SuggestedHeight: max(1, int(math.Round(height/pitch))),
	}, nil
}
