package calibrate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
)

func TestSuperCalibrate_Checkerboard(t *testing.T) {
	src := checkerboard(80, 10, 0)
	var last Progress
	opts := Options{OnProgress: func(p Progress) { last = p }}

	res, err := SuperCalibrate(context.Background(), src, geometry.RectQuad(0, 0, 80, 80), opts)
	if err != nil {
		t.Fatalf("SuperCalibrate failed: %v", err)
	}
	if res.GridWidth != 8 || res.GridHeight != 8 {
		t.Errorf("grid: got %dx%d, want 8x8", res.GridWidth, res.GridHeight)
	}
	if math.Abs(res.Pitch-10) > 1e-9 {
		t.Errorf("Pitch: got %v, want 10", res.Pitch)
	}
	if last.Phase != Done || last.Percent != 100 {
		t.Errorf("last progress: got %+v", last)
	}
}

func TestSuperCalibrate_TinyRegion(t *testing.T) {
	src := checkerboard(3, 1, 0)
	res, err := SuperCalibrate(context.Background(), src, geometry.RectQuad(0, 0, 3, 3), Options{})
	if err != nil {
		t.Fatalf("SuperCalibrate failed: %v", err)
	}
	if res.Confidence != 0 {
		t.Errorf("Confidence: got %v, want 0", res.Confidence)
	}
}

func TestSuperCalibrate_NoCandidateFits(t *testing.T) {
	// 20px wide: every candidate pitch is below 4px except 8 cells (2.5px),
	// so nothing is tried.
	src := checkerboard(20, 5, 0)
	res, err := SuperCalibrate(context.Background(), src, geometry.RectQuad(0, 0, 20, 20), Options{})
	if err != nil {
		t.Fatalf("SuperCalibrate failed: %v", err)
	}
	if res.Confidence != 0 || !math.IsInf(res.Score, 1) {
		t.Errorf("got %+v, want an unscored default grid", res)
	}
	if res.GridWidth != superDefaultGrid {
		t.Errorf("GridWidth: got %d, want %d", res.GridWidth, superDefaultGrid)
	}
}

func TestSuperCalibrate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SuperCalibrate(ctx, checkerboard(80, 10, 0), geometry.RectQuad(0, 0, 80, 80), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestContrastScore(t *testing.T) {
	sc := &scorer{buf: checkerboard(80, 10, 0)}
	if s := sc.contrastScore(10, 0, 0, superSampleRatio); s != 0 {
		t.Errorf("aligned grid: got %v, want 0", s)
	}
	if s := sc.contrastScore(80.0/12, 0, 0, superSampleRatio); s <= 0 {
		t.Errorf("misaligned grid: got %v, want > 0", s)
	}
	if s := sc.contrastScore(40, 0, 0, superSampleRatio); !math.IsInf(s, 1) {
		t.Errorf("2x2 grid: got %v, want +Inf", s)
	}
}
