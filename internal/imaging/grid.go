package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/pixel-snap-mcp/internal/geometry"
)

// minLabelSpacing is the minimum distance in preview pixels between two
// coordinate labels.
const minLabelSpacing = 32

// ErrInvalidGrid is returned when the pitch or offsets cannot describe a
// drawable grid over the region.
var ErrInvalidGrid = errors.New("invalid grid")

// GridOverlayResult contains the quad region with a calibrated grid drawn over it.
type GridOverlayResult struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ImageBase64 string  `json:"image_base64"`
	MimeType    string  `json:"mime_type"`
	Pitch       float64 `json:"pitch"`
	OffsetX     float64 `json:"offset_x"`
	OffsetY     float64 `json:"offset_y"`
	Columns     int     `json:"columns"`
	Rows        int     `json:"rows"`
	Scale       int     `json:"scale"`
}

// GridOverlay crops the bounding box of q and draws the grid described by
// pitch and offset over it, so a calibration result can be checked by eye.
//
// Offsets are relative to the top-left of the bounding box, as returned by
// calibration. The crop is upscaled by scale with nearest-neighbour
// resampling before drawing, which keeps lines from hiding whole source
// pixels. With showCoordinates, cell indices are printed at intervals wide
// enough to stay legible. An unparseable gridColorHex falls back to
// semi-transparent red.
//
// The grid must fit the preview: pitch times scale has to be at least one
// preview pixel, and each offset must lie within the region, otherwise
// ErrInvalidGrid is returned.
func GridOverlay(img image.Image, q geometry.Quad, pitch, offsetX, offsetY float64, scale int, showCoordinates bool, gridColorHex string) (*GridOverlayResult, error) {
	if pitch <= 0 || math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		return nil, fmt.Errorf("%w: pitch must be positive, got %v", ErrInvalidGrid, pitch)
	}
	scale = max(1, scale)
	if pitch*float64(scale) < 1 {
		return nil, fmt.Errorf("%w: pitch %v at scale %d is narrower than one preview pixel", ErrInvalidGrid, pitch, scale)
	}

	cropped, err := QuadRegion(img, q)
	if err != nil {
		return nil, err
	}
	rect := cropped.Bounds()
	if !(math.Abs(offsetX) <= float64(rect.Dx())) || !(math.Abs(offsetY) <= float64(rect.Dy())) {
		return nil, fmt.Errorf("%w: offset (%v, %v) outside the %dx%d region", ErrInvalidGrid, offsetX, offsetY, rect.Dx(), rect.Dy())
	}

	gridColor, err := ParseHexColor(gridColorHex)
	if err != nil {
		gridColor = color.NRGBA{255, 0, 0, 160} // Default: semi-transparent red
	}

	scaled, err := Upscale(cropped, scale)
	if err != nil {
		return nil, err
	}
	result := imaging.Clone(scaled)
	width, height := result.Bounds().Dx(), result.Bounds().Dy()
	line := &image.Uniform{C: gridColor}

	s := float64(scale)
	columns := int(math.Floor((float64(rect.Dx()) - offsetX) / pitch))
	rows := int(math.Floor((float64(rect.Dy()) - offsetY) / pitch))

	for k := 0; k <= columns; k++ {
		x := int(math.Round((offsetX + float64(k)*pitch) * s))
		if x < 0 || x >= width {
			continue
		}
		draw.Draw(result, image.Rect(x, 0, x+1, height), line, image.Point{}, draw.Over)
	}
	for k := 0; k <= rows; k++ {
		y := int(math.Round((offsetY + float64(k)*pitch) * s))
		if y < 0 || y >= height {
			continue
		}
		draw.Draw(result, image.Rect(0, y, width, y+1), line, image.Point{}, draw.Over)
	}

	if showCoordinates {
		labelColor := color.NRGBA{255, 255, 255, 255}
		bgColor := color.NRGBA{0, 0, 0, 180}
		every := max(1, int(math.Ceil(minLabelSpacing/(pitch*s))))

		for cy := 0; cy < rows; cy += every {
			for cx := 0; cx < columns; cx += every {
				x := int(math.Round((offsetX+float64(cx)*pitch)*s)) + 2
				y := int(math.Round((offsetY+float64(cy)*pitch)*s)) + 2
				drawLabel(result, x, y, fmt.Sprintf("%d,%d", cx, cy), labelColor, bgColor)
			}
		}
	}

	enc, err := EncodePNG(result)
	if err != nil {
		return nil, err
	}

	return &GridOverlayResult{
		Width:       enc.Width,
		Height:      enc.Height,
		ImageBase64: enc.ImageBase64,
		MimeType:    enc.MimeType,
		Pitch:       pitch,
		OffsetX:     offsetX,
		OffsetY:     offsetY,
		Columns:     max(0, columns),
		Rows:        max(0, rows),
		Scale:       scale,
	}, nil
}

// drawLabel draws a simple text label at the given position using a 3x5
// pixel font for digits and comma.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	// Background box; draw.Draw clips to the image bounds.
	box := image.Rect(x-1, y-1, x+labelWidth, y+labelHeight)
	draw.Draw(img, box, &image.Uniform{C: bg}, image.Point{}, draw.Over)

	bounds := img.Bounds()
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, rowBits := range glyph {
			for col, pixel := range rowBits {
				if pixel == '1' {
					px, py := cx+col, y+row
					if (image.Point{X: px, Y: py}).In(bounds) {
						img.SetNRGBA(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
