package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// DefaultMaxBytes is the default size limit for source images (16 MiB).
const DefaultMaxBytes int64 = 16 * 1024 * 1024

// ErrImageTooLarge is returned when a source file exceeds the size limit.
var ErrImageTooLarge = errors.New("image file exceeds size limit")

// DecodeFile reads and decodes the image at path.
//
// If maxBytes is positive, files larger than maxBytes are rejected with
// ErrImageTooLarge. EXIF orientation is applied, so a rotated JPEG decodes with
// its displayed width and height.
func DecodeFile(path string, maxBytes int64) (image.Image, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("failed to open image: %s is a directory", path)
	}
	if maxBytes > 0 && stat.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d bytes", ErrImageTooLarge, stat.Size(), maxBytes)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("failed to decode image: empty bounds %v", bounds)
	}
	return img, nil
}

// ImageCache provides thread-safe caching of decoded images to avoid
// redundant disk reads.
//
// The cache stores decoded image.Image objects keyed by their file path. Cached
// images are shared between callers and must be treated as read-only.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
type ImageCache struct {
	mu       sync.RWMutex
	images   map[string]image.Image
	maxBytes int64
}

// NewImageCache creates an empty cache that rejects files above maxBytes.
// A non-positive maxBytes disables the limit.
func NewImageCache(maxBytes int64) *ImageCache {
	return &ImageCache{
		images:   make(map[string]image.Image),
		maxBytes: maxBytes,
	}
}

// Load retrieves an image from the cache or decodes it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths to
// the same file (e.g., relative vs absolute) result in separate cache entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := DecodeFile(path, c.maxBytes)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a scan image file.
type ImageInfo struct {
	// Width is the displayed image width in pixels (after EXIF orientation).
	Width int `json:"width"`

	// Height is the displayed image height in pixels (after EXIF orientation).
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "gif", "bmp",
	// "tiff", or "unknown".
	Format string `json:"format"`

	// HasAlpha indicates whether the decoded color model carries alpha.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Orientation is the EXIF orientation tag (1-8), 0 when absent.
	Orientation int `json:"orientation,omitempty"`

	// CapturedAt is the EXIF capture time in RFC 3339 form, empty when absent.
	CapturedAt string `json:"captured_at,omitempty"`
}

// LoadImageInfo loads an image through the cache and returns its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	hasAlpha := false
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
	}

	bounds := img.Bounds()
	info := &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        FormatName(path),
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}

	orientation, captured := readExif(path)
	info.Orientation = orientation
	if !captured.IsZero() {
		info.CapturedAt = captured.Format(time.RFC3339)
	}

	return info, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
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

// FormatName maps a file extension to a short format name.
func FormatName(path string) string {
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
	default:
		return "unknown"
	}
}

// readExif returns the orientation tag and capture time, or zero values when
// the file has no readable EXIF block.
func readExif(path string) (int, time.Time) {
	f, err := os.Open(path)
	if err != nil {
		return 0, time.Time{}
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0, time.Time{}
	}

	orientation := 0
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			orientation = v
		}
	}

	captured, err := x.DateTime()
	if err != nil {
		captured = time.Time{}
	}
	return orientation, captured
}
