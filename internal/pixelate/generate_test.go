package pixelate

import (
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
	"github.com/ironsheep/pixel-snap-mcp/internal/palette"
	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

func plainOptions() Options {
	return Options{SampleSize: DefaultSampleSize}
}

func TestGenerate_SolidRed(t *testing.T) {
	red := raster.RGBA{R: 255, G: 0, B: 0, A: 255}
	src := solidBuffer(4, 4, red)

	res, err := Generate(src, geometry.RectQuad(0, 0, 4, 4), 2, 2, Mean, plainOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Image.Width != 2 || res.Image.Height != 2 {
		t.Fatalf("got %dx%d, want 2x2", res.Image.Width, res.Image.Height)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := res.Image.At(x, y); got != red {
				t.Errorf("(%d,%d): got %+v, want %+v", x, y, got, red)
			}
		}
	}
	if res.Palette != nil {
		t.Errorf("palette should be nil with the color limit off, got %v", res.Palette)
	}
}

func TestGenerate_AllMethodsOnBlocks(t *testing.T) {
	// 8x8 source made of four 4x4 blocks; a 2x2 grid aligns one cell per block.
	colors := []raster.RGBA{
		{R: 255, G: 0, B: 0, A: 255}, {R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255}, {R: 255, G: 255, B: 0, A: 255},
	}
	src, _ := raster.New(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, colors[(y/4)*2+x/4])
		}
	}

	for _, m := range ColorMethods {
		t.Run(string(m), func(t *testing.T) {
			res, err := Generate(src, geometry.RectQuad(0, 0, 8, 8), 2, 2, m, plainOptions())
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					if got, want := res.Image.At(x, y), colors[y*2+x]; got != want {
						t.Errorf("(%d,%d): got %+v, want %+v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestGenerate_InvalidDimensions(t *testing.T) {
	src := solidBuffer(4, 4, raster.RGBA{R: 1, G: 1, B: 1, A: 255})
	tests := []struct {
		name string
		w, h int
	}{
		{"zero width", 0, 2},
		{"zero height", 2, 0},
		{"negative", -1, 4},
		{"size overflows", math.MaxInt32, math.MaxInt32},
		{"too many pixels", raster.MaxPixels, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(src, geometry.RectQuad(0, 0, 4, 4), tt.w, tt.h, Mean, plainOptions())
			if !errors.Is(err, ErrInvalidDimensions) {
				t.Errorf("got %v, want ErrInvalidDimensions", err)
			}
		})
	}
}

func TestGenerate_InvalidSampleSize(t *testing.T) {
	src := solidBuffer(4, 4, raster.RGBA{R: 1, G: 1, B: 1, A: 255})
	for _, size := range []int{MaxSampleSize + 1, math.MaxInt32} {
		opts := plainOptions()
		opts.SampleSize = size
		_, err := Generate(src, geometry.RectQuad(0, 0, 4, 4), 1, 1, Mean, opts)
		if !errors.Is(err, ErrInvalidSampleSize) {
			t.Errorf("sample size %d: got %v, want ErrInvalidSampleSize", size, err)
		}
	}

	opts := plainOptions()
	opts.SampleSize = MaxSampleSize
	res, err := Generate(src, geometry.RectQuad(0, 0, 4, 4), 1, 1, Mean, opts)
	if err != nil {
		t.Fatalf("Generate at MaxSampleSize failed: %v", err)
	}
	if got := res.Image.At(0, 0); got != (raster.RGBA{R: 1, G: 1, B: 1, A: 255}) {
		t.Errorf("got %v, want solid input color", got)
	}
}

func TestGenerate_InvalidMaxColors(t *testing.T) {
	src := solidBuffer(4, 4, raster.RGBA{R: 1, G: 1, B: 1, A: 255})
	opts := plainOptions()
	opts.EnableColorLimit = true
	opts.MaxColors = 0

	_, err := Generate(src, geometry.RectQuad(0, 0, 4, 4), 2, 2, Mean, opts)
	if !errors.Is(err, palette.ErrInvalidMaxColors) {
		t.Errorf("got %v, want ErrInvalidMaxColors", err)
	}
}

func TestGenerate_DegenerateQuad(t *testing.T) {
	src := solidBuffer(10, 10, raster.RGBA{R: 9, G: 9, B: 9, A: 255})
	p := geometry.Point{X: 100, Y: 100}
	q := geometry.Quad{TopLeft: p, TopRight: p, BottomLeft: p, BottomRight: p}

	res, err := Generate(src, q, 3, 3, Median, plainOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i := 3; i < len(res.Image.Pix); i += 4 {
		if res.Image.Pix[i] != 0 {
			t.Fatal("expected every cell to be transparent")
		}
	}
}

func TestGenerate_SourceUntouched(t *testing.T) {
	src := framedBuffer(16, 16, 2, magenta, gray)
	before := src.Clone()

	if _, err := Generate(src, geometry.RectQuad(0, 0, 16, 16), 8, 8, Mode, DefaultOptions()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i := range src.Pix {
		if src.Pix[i] != before.Pix[i] {
			t.Fatal("source buffer was modified")
		}
	}
}

func TestGenerate_BackgroundAndPalette(t *testing.T) {
	src := framedBuffer(40, 40, 4, magenta, gray)
	src.Set(20, 20, raster.RGBA{R: 10, G: 200, B: 30, A: 255})

	res, err := Generate(src, geometry.RectQuad(0, 0, 40, 40), 20, 20, CenterSpot, DefaultOptions())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !res.Background.Detected {
		t.Fatal("expected magenta frame to be detected")
	}
	if got := res.Image.At(0, 0).A; got != 0 {
		t.Errorf("frame cell alpha: got %d, want 0", got)
	}
	if len(res.Palette) == 0 || len(res.Palette) > DefaultMaxColors {
		t.Errorf("palette size %d out of range", len(res.Palette))
	}
}

func TestGenerate_ColorLimit(t *testing.T) {
	// A horizontal gradient with 16 distinct columns reduced to 4 colors.
	src, _ := raster.New(16, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(x * 16)
			src.Set(x, y, raster.RGBA{R: v, G: v, B: 255 - v, A: 255})
		}
	}
	opts := plainOptions()
	opts.EnableColorLimit = true
	opts.MaxColors = 4

	res, err := Generate(src, geometry.RectQuad(0, 0, 16, 4), 16, 4, Mean, opts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	distinct := make(map[raster.RGBA]bool)
	for _, c := range res.Image.OpaqueColors() {
		distinct[c] = true
	}
	if len(distinct) > 4 {
		t.Errorf("got %d distinct colors, want at most 4", len(distinct))
	}

	again, _ := Generate(src, geometry.RectQuad(0, 0, 16, 4), 16, 4, Mean, opts)
	for i := range res.Image.Pix {
		if res.Image.Pix[i] != again.Image.Pix[i] {
			t.Fatal("output differs between identical runs")
		}
	}
}
