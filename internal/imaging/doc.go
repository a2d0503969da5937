// Package imaging is the host-side image layer of the MCP server.
//
// It loads photos and screenshots from disk (applying EXIF orientation),
// converts them to the raster buffers the pixelation core works on, and turns
// results back into base64 PNGs for MCP clients: rendered pixel grids,
// nearest-neighbour previews, quad crops and calibrated grid overlays. It also
// reports individual colors in hex, RGB, HSL and ICtCp so a caller can reason
// about background and palette choices.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Quads are real-valued; the region they cover is their bounding box,
//     floored and clamped to the image
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Cached images and rasters are
// shared between callers and must not be modified; the pixelation core only
// ever reads its source and allocates fresh output.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds
//   - Quads that miss the image entirely
//   - Non-positive grid pitch or an oversized preview scale
//   - File I/O errors during image loading
//   - Encoding errors during image output
//
// # Performance Considerations
//
// For repeated operations on the same image, use ImageCache to avoid redundant
// disk reads and raster conversion. Large photos may consume significant
// memory when cached. Consider using Evict() or Clear() to manage memory for
// long-running processes.
package imaging
