package pixelate

import (
	"testing"

	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

func TestAggregate_EmptyIsTransparent(t *testing.T) {
	for _, m := range append(ColorMethods, ColorMethod("bogus")) {
		t.Run(string(m), func(t *testing.T) {
			if got := Aggregate(nil, m); got != raster.Transparent {
				t.Errorf("got %+v, want {0,0,0,0}", got)
			}
			if got := Aggregate([]raster.RGBA{}, m); got != raster.Transparent {
				t.Errorf("got %+v, want {0,0,0,0}", got)
			}
		})
	}
}

func TestAggregate_UniformInput(t *testing.T) {
	c := raster.RGBA{R: 12, G: 200, B: 99, A: 255}
	pixels := make([]raster.RGBA, 25)
	for i := range pixels {
		pixels[i] = c
	}
	for _, m := range ColorMethods {
		t.Run(string(m), func(t *testing.T) {
			if got := Aggregate(pixels, m); got != c {
				t.Errorf("got %+v, want %+v", got, c)
			}
		})
	}
}

func TestMeanColor_Rounds(t *testing.T) {
	pixels := []raster.RGBA{{R: 0, G: 0, B: 0, A: 255}, {R: 1, G: 2, B: 255, A: 255}}
	got := meanColor(pixels)
	want := raster.RGBA{R: 1, G: 1, B: 128, A: 255} // 0.5 rounds up, as does 127.5
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestMedianColor_ChannelsIndependent(t *testing.T) {
	pixels := []raster.RGBA{
		{R: 255, G: 0, B: 0, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 10, G: 10, B: 10, A: 255},
		{R: 200, G: 200, B: 200, A: 255},
	}
	got := medianColor(pixels)
	// Each channel sorted separately: [0 0 10 200 255] -> 10.
	want := raster.RGBA{R: 10, G: 10, B: 10, A: 255}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestModeColor(t *testing.T) {
	t.Run("returns original color of largest bucket", func(t *testing.T) {
		pixels := []raster.RGBA{
			{R: 250, G: 0, B: 0, A: 255},
			{R: 101, G: 101, B: 101, A: 255},
			{R: 99, G: 100, B: 102, A: 255},
			{R: 100, G: 100, B: 100, A: 255},
		}
		got := modeColor(pixels)
		if got != (raster.RGBA{R: 101, G: 101, B: 101, A: 255}) {
			t.Errorf("got %+v, want first-seen gray", got)
		}
	})

	t.Run("ties resolve to earliest bucket", func(t *testing.T) {
		pixels := []raster.RGBA{
			{R: 0, G: 0, B: 255, A: 255},
			{R: 255, G: 0, B: 0, A: 255},
			{R: 255, G: 0, B: 0, A: 255},
			{R: 0, G: 0, B: 255, A: 255},
		}
		got := modeColor(pixels)
		if got != (raster.RGBA{R: 0, G: 0, B: 255, A: 255}) {
			t.Errorf("got %+v, want blue", got)
		}
	})
}

func lattice(side int, fill, center raster.RGBA) []raster.RGBA {
	pixels := make([]raster.RGBA, side*side)
	for i := range pixels {
		pixels[i] = fill
	}
	pixels[(side/2)*side+side/2] = center
	return pixels
}

func TestCenterWeightedColor(t *testing.T) {
	pixels := lattice(3, raster.RGBA{R: 0, G: 0, B: 0, A: 255}, raster.RGBA{R: 120, G: 240, B: 60, A: 255})
	got := centerWeightedColor(pixels)
	// 4 * center / (4 + 8)
	want := raster.RGBA{R: 40, G: 80, B: 20, A: 255}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	t.Run("non-square falls back to mean", func(t *testing.T) {
		pixels := []raster.RGBA{{R: 0, G: 0, B: 0, A: 255}, {R: 100, G: 100, B: 100, A: 255}}
		if got := centerWeightedColor(pixels); got != meanColor(pixels) {
			t.Errorf("got %+v, want mean %+v", got, meanColor(pixels))
		}
	})
}

func TestCenterSpotColor(t *testing.T) {
	t.Run("5x5 uses only the center sample", func(t *testing.T) {
		pixels := lattice(5, raster.RGBA{R: 0, G: 0, B: 0, A: 255}, raster.RGBA{R: 255, G: 255, B: 255, A: 255})
		if got := centerSpotColor(pixels); got != (raster.RGBA{R: 255, G: 255, B: 255, A: 255}) {
			t.Errorf("got %+v, want white", got)
		}
	})

	t.Run("10x10 uses the middle 2x2", func(t *testing.T) {
		pixels := make([]raster.RGBA, 100)
		for i := range pixels {
			pixels[i] = raster.RGBA{R: 0, G: 0, B: 0, A: 255}
		}
		for _, rc := range [][2]int{{4, 4}, {4, 5}, {5, 4}, {5, 5}} {
			pixels[rc[0]*10+rc[1]] = raster.RGBA{R: 200, G: 100, B: 50, A: 255}
		}
		if got := centerSpotColor(pixels); got != (raster.RGBA{R: 200, G: 100, B: 50, A: 255}) {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("non-square falls back to mean", func(t *testing.T) {
		pixels := []raster.RGBA{{R: 0, G: 0, B: 0, A: 255}, {R: 100, G: 100, B: 100, A: 255}, {R: 200, G: 200, B: 200, A: 255}}
		if got := centerSpotColor(pixels); got != meanColor(pixels) {
			t.Errorf("got %+v, want mean", got)
		}
	})
}

func TestCenterSpan(t *testing.T) {
	tests := []struct {
		n          int
		start, end int
	}{
		{1, 0, 1},
		{3, 1, 2},
		{5, 2, 3},
		{10, 4, 6},
	}
	for _, tt := range tests {
		start, end := centerSpan(tt.n)
		if start != tt.start || end != tt.end {
			t.Errorf("centerSpan(%d): got [%d,%d), want [%d,%d)", tt.n, start, end, tt.start, tt.end)
		}
	}
}

func TestKernelMedianColor_FavoursCenter(t *testing.T) {
	// A bright 3x3 core plus one edge sample: 10 bright samples against 15
	// dark ones, but the Gaussian weights of the bright ones form the
	// majority.
	pixels := make([]raster.RGBA, 25)
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			c := raster.RGBA{R: 0, G: 0, B: 0, A: 255}
			if row >= 1 && row <= 3 && col >= 1 && col <= 3 {
				c = raster.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			pixels[row*5+col] = c
		}
	}
	pixels[2] = raster.RGBA{R: 255, G: 255, B: 255, A: 255}

	if got := kernelMedianColor(pixels); got != (raster.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("got %+v, want white", got)
	}
	// Plain median sees 15 dark vs 10 bright samples.
	if got := medianColor(pixels); got != (raster.RGBA{R: 0, G: 0, B: 0, A: 255}) {
		t.Errorf("median: got %+v, want black", got)
	}
}

func TestKernelMedianColor_SingleSample(t *testing.T) {
	c := raster.RGBA{R: 7, G: 8, B: 9, A: 255}
	if got := kernelMedianColor([]raster.RGBA{c}); got != c {
		t.Errorf("got %+v, want %+v", got, c)
	}
}

func TestParseColorMethod(t *testing.T) {
	for _, m := range ColorMethods {
		got, err := ParseColorMethod(string(m))
		if err != nil || got != m {
			t.Errorf("ParseColorMethod(%q): got %q, %v", m, got, err)
		}
	}
	if got, err := ParseColorMethod(""); err != nil || got != Mean {
		t.Errorf("empty name: got %q, %v", got, err)
	}
	if _, err := ParseColorMethod("average"); err == nil {
		t.Error("expected error for unknown method")
	}
}
