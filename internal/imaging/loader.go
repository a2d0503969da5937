package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/pixel-snap-mcp/internal/raster"
)

// ImageCache provides thread-safe caching of loaded images to avoid redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path, plus the
// flat RGBA raster the pixelation core works on. Once an image is loaded,
// subsequent Load() or Raster() calls for the same path return the cached copy
// without disk I/O or conversion.
//
// ImageCache is safe for concurrent use by multiple goroutines. Cached rasters
// are shared and must be treated as read-only.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// A cached raster roughly doubles the footprint of an image, so long-running
// processes working through many photos should evict them when done.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	src, err := cache.Raster("/path/to/photo.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := pixelate.Generate(src, quad, 64, 64, pixelate.Mean, pixelate.DefaultOptions())
type ImageCache struct {
	mu      sync.RWMutex
	images  map[string]image.Image
	rasters map[string]*raster.Buffer
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images:  make(map[string]image.Image),
		rasters: make(map[string]*raster.Buffer),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Parameters:
//   - path: Absolute or relative file path to the image. Supported formats are
//     PNG, JPEG, GIF, BMP, TIFF and WebP.
//
// Returns:
//   - image.Image: The decoded image, turned upright according to its EXIF
//     orientation tag. Upright-stored images keep their decoder's concrete
//     type (e.g., *image.RGBA, *image.YCbCr); rotated or flipped ones are
//     *image.NRGBA.
//   - error: Non-nil if the file cannot be opened or decoded.
//
// Applying the orientation on load means phone photos come out the right way
// up, so quad coordinates match what the user sees in any viewer.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a decodable image in a supported format
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Raster returns the image at path as a raster.Buffer, converting and caching
// it on first use.
//
// The conversion runs on the upright image returned by Load, so raster
// coordinates and image coordinates agree. The buffer is shared by every
// caller until the path is evicted and must not be modified.
//
// # Errors
//
//   - Returns the Load error if the image cannot be loaded
//   - Returns error if the decoded image has no pixels
func (c *ImageCache) Raster(path string) (*raster.Buffer, error) {
	c.mu.RLock()
	if buf, ok := c.rasters[path]; ok {
		c.mu.RUnlock()
		return buf, nil
	}
	c.mu.RUnlock()

	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	buf := raster.FromImage(img)
	if buf.Width == 0 || buf.Height == 0 {
		return nil, fmt.Errorf("image %s has no pixels", path)
	}

	c.mu.Lock()
	c.rasters[path] = buf
	c.mu.Unlock()

	return buf, nil
}

// Clear removes all images and rasters from the cache, freeing the associated
// memory.
//
// After Clear(), all images must be reloaded from disk on subsequent Load()
// or Raster() calls. Buffers already handed out stay valid.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.rasters = make(map[string]*raster.Buffer)
	c.mu.Unlock()
}

// Evict removes a specific image and its raster from the cache.
//
// Parameters:
//   - path: The exact path string used when the image was loaded.
//
// If the path is not in the cache, this method does nothing.
// After eviction, the next Load() or Raster() call for this path will read
// from disk, picking up any change to the file.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	delete(c.rasters, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels, after EXIF orientation.
	Width int `json:"width"`

	// Height is the image height in pixels, after EXIF orientation.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "gif", "bmp",
	// "tiff", "webp" or "unknown". Detection is based on file extension.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// formatFromExt maps a file extension to a format name.
func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	default:
		return "unknown"
	}
}

// LoadImageInfo loads an image and returns metadata about it.
//
// This function loads the image into the cache (if not already cached) and
// extracts metadata including dimensions, format, color depth, alpha channel
// presence, and file size.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *ImageInfo: Metadata about the image. Width and height are those of the
//     upright image, so a portrait phone photo reports its portrait size.
//   - error: Non-nil if the image cannot be loaded or the file cannot be stat'd.
//
// # Format Detection
//
// The format is determined by file extension, not file contents:
//   - ".png" -> "png"
//   - ".jpg", ".jpeg" -> "jpeg"
//   - ".gif" -> "gif"
//   - ".bmp" -> "bmp"
//   - ".tif", ".tiff" -> "tiff"
//   - ".webp" -> "webp"
//   - Other extensions -> "unknown"
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        formatFromExt(path),
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
//
// This is a lightweight alternative to LoadImageInfo when only the width and
// height are needed, for example to build a whole-image quad. The image is
// loaded into the cache if not already present.
//
// Parameters:
//   - cache: The image cache to use for loading. Must not be nil.
//   - path: Path to the image file.
//
// Returns:
//   - *DimensionsResult: The upright image dimensions.
//   - error: Non-nil if the image cannot be loaded.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
