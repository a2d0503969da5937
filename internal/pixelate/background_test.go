package pixelate

import (
	"testing"

	"github.com/ironsheep/pixel-snap-mcp/internal/colorspace"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

var (
	magenta = raster.RGBA{R: 255, G: 0, B: 255, A: 255}
	gray    = raster.RGBA{R: 128, G: 128, B: 128, A: 255}
)

func TestRemoveBackground_MagentaBorder(t *testing.T) {
	// On a 20x20 grid the 5% band is the outermost ring of pixels.
	buf := framedBuffer(20, 20, 1, magenta, gray)
	buf.Set(10, 10, magenta) // interior patch of the background color

	res := RemoveBackground(buf)
	if !res.Detected {
		t.Fatal("expected background to be detected")
	}
	if res.Color != magenta {
		t.Errorf("Color: got %+v, want %+v", res.Color, magenta)
	}
	if res.BorderPixels != 76 {
		t.Errorf("BorderPixels: got %d, want 76", res.BorderPixels)
	}
	if res.Removed != 77 {
		t.Errorf("Removed: got %d, want 77", res.Removed)
	}
	if got := buf.At(10, 10).A; got != 0 {
		t.Errorf("interior magenta alpha: got %d, want 0", got)
	}
	if got := buf.At(0, 0).A; got != 0 {
		t.Errorf("border alpha: got %d, want 0", got)
	}
	if got := buf.At(5, 5); got != gray {
		t.Errorf("interior gray changed: got %+v", got)
	}
}

func TestRemoveBackground_NearbyShadeRemoved(t *testing.T) {
	buf := framedBuffer(20, 20, 1, magenta, gray)
	buf.Set(7, 7, raster.RGBA{R: 252, G: 2, B: 253, A: 255})

	RemoveBackground(buf)
	if got := buf.At(7, 7).A; got != 0 {
		t.Errorf("near-magenta pixel kept with alpha %d", got)
	}
}

func TestRemoveBackground_TopBucketReportedAs255(t *testing.T) {
	frame := raster.RGBA{R: 253, G: 1, B: 254, A: 255}
	buf := framedBuffer(20, 20, 1, frame, gray)

	res := RemoveBackground(buf)
	if !res.Detected {
		t.Fatal("expected background to be detected")
	}
	if res.Color != magenta {
		t.Errorf("Color: got %+v, want %+v", res.Color, magenta)
	}
	if got := buf.At(0, 0).A; got != 0 {
		t.Errorf("border alpha: got %d, want 0", got)
	}
	if got := buf.At(5, 5); got != gray {
		t.Errorf("interior gray changed: got %+v", got)
	}
}

func TestRemoveBackground_NoDominantColor(t *testing.T) {
	palette := []raster.RGBA{
		{R: 255, G: 0, B: 0, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 255, G: 255, B: 0, A: 255},
		{R: 0, G: 255, B: 255, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
	buf := solidBuffer(20, 20, gray)
	i := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if x == 0 || y == 0 || x == 19 || y == 19 {
				buf.Set(x, y, palette[i%len(palette)])
				i++
			}
		}
	}
	before := buf.Clone()

	res := RemoveBackground(buf)
	if res.Detected {
		t.Fatalf("unexpected detection of %+v", res.Color)
	}
	if res.Removed != 0 {
		t.Errorf("Removed: got %d, want 0", res.Removed)
	}
	for j := range buf.Pix {
		if buf.Pix[j] != before.Pix[j] {
			t.Fatal("buffer modified without a detected background")
		}
	}
}

func TestRemoveBackground_TransparentBorder(t *testing.T) {
	buf, _ := raster.New(10, 10)
	res := RemoveBackground(buf)
	if res.Detected || res.BorderPixels != 0 {
		t.Errorf("got %+v, want zero result", res)
	}
}

func TestRemoveBackground_NilBuffer(t *testing.T) {
	if res := RemoveBackground(nil); res.Detected {
		t.Error("nil buffer reported a background")
	}
}

func TestAdaptiveThreshold(t *testing.T) {
	if got := AdaptiveThreshold(colorspace.ICtCp{}); got != baseThreshold {
		t.Errorf("black: got %v, want %v", got, baseThreshold)
	}

	prev := 0.0
	for _, i := range []float64{0, 0.1, 0.3, 0.6, 1, 2} {
		got := AdaptiveThreshold(colorspace.ICtCp{I: i, Ct: 0.05})
		if got < prev {
			t.Errorf("threshold decreased at I=%v: %v < %v", i, got, prev)
		}
		prev = got
	}

	prev = 0.0
	for _, ct := range []float64{0, 0.05, 0.2, 0.5, 1, 3} {
		got := AdaptiveThreshold(colorspace.ICtCp{I: 0.5, Ct: ct})
		if got < prev {
			t.Errorf("threshold decreased at Ct=%v: %v < %v", ct, got, prev)
		}
		prev = got
	}

	if got := AdaptiveThreshold(colorspace.ICtCp{I: 5, Ct: 5, Cp: 5}); got != maxThreshold {
		t.Errorf("saturated: got %v, want cap %v", got, maxThreshold)
	}
}
