package pixelate

import "github.com/ironsheep/pixel-snap-mcp/internal/raster"

// solidBuffer creates a width x height buffer filled with c.
func solidBuffer(width, height int, c raster.RGBA) *raster.Buffer {
	b, _ := raster.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b.Set(x, y, c)
		}
	}
	return b
}

// framedBuffer creates a buffer whose outer band (band pixels wide) is frame
// and whose interior is fill.
func framedBuffer(width, height, band int, frame, fill raster.RGBA) *raster.Buffer {
	b := solidBuffer(width, height, fill)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < band || y < band || x >= width-band || y >= height-band {
				b.Set(x, y, frame)
			}
		}
	}
	return b
}
