package imaging

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// createTestImage creates a simple test image file and returns its path.
// The caller is responsible for removing the file.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "test-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if err := png.Encode(tmpFile, img); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

func TestDecodeFile(t *testing.T) {
	imgPath := createTestImage(t, 120, 90, color.RGBA{10, 20, 30, 255})
	defer os.Remove(imgPath)

	img, err := DecodeFile(imgPath, DefaultMaxBytes)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 120 || bounds.Dy() != 90 {
		t.Errorf("unexpected dimensions: got %dx%d, want 120x90", bounds.Dx(), bounds.Dy())
	}

	r, g, b := RGBAt(img, 5, 5)
	if r != 10 || g != 20 || b != 30 {
		t.Errorf("pixel (5,5): got (%d,%d,%d), want (10,20,30)", r, g, b)
	}
}

func TestDecodeFile_TooLarge(t *testing.T) {
	imgPath := createTestImage(t, 64, 64, color.RGBA{255, 255, 255, 255})
	defer os.Remove(imgPath)

	_, err := DecodeFile(imgPath, 10)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}

	// A non-positive limit disables the check.
	if _, err := DecodeFile(imgPath, 0); err != nil {
		t.Errorf("DecodeFile with no limit failed: %v", err)
	}
}

func TestDecodeFile_Invalid(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "invalid-image-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.WriteString("not an image")
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	if _, err := DecodeFile(tmpFile.Name(), DefaultMaxBytes); err == nil {
		t.Error("DecodeFile should fail for invalid image data")
	}
}

func TestDecodeFile_NonExistentAndDirectory(t *testing.T) {
	if _, err := DecodeFile("/nonexistent/path/to/image.png", 0); err == nil {
		t.Error("DecodeFile should fail for non-existent file")
	}
	if _, err := DecodeFile(t.TempDir(), 0); err == nil {
		t.Error("DecodeFile should fail for a directory")
	}
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache(DefaultMaxBytes)
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})
	defer os.Remove(imgPath)

	img1, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	img2, err := cache.Load(imgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if img1 != img2 {
		t.Error("second Load did not return cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestImageCache_Load_RespectsLimit(t *testing.T) {
	cache := NewImageCache(16)
	imgPath := createTestImage(t, 50, 50, color.RGBA{0, 0, 0, 255})
	defer os.Remove(imgPath)

	if _, err := cache.Load(imgPath); !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("expected ErrImageTooLarge, got %v", err)
	}
	if cache.Len() != 0 {
		t.Error("failed load should not populate the cache")
	}
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache(0)
	a := createTestImage(t, 20, 20, color.RGBA{0, 255, 0, 255})
	b := createTestImage(t, 20, 20, color.RGBA{0, 0, 255, 255})
	defer os.Remove(a)
	defer os.Remove(b)

	for _, p := range []string{a, b} {
		if _, err := cache.Load(p); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
	}

	cache.Evict(a)
	if cache.Len() != 1 {
		t.Errorf("after Evict: got %d images, want 1", cache.Len())
	}

	// Should not panic
	cache.Evict("/nonexistent/path")

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear did not empty cache: %d images remain", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache(DefaultMaxBytes)
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})
	defer os.Remove(imgPath)

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	cache := NewImageCache(DefaultMaxBytes)
	imgPath := createTestImage(t, 200, 150, color.RGBA{255, 128, 64, 255})
	defer os.Remove(imgPath)

	info, err := LoadImageInfo(cache, imgPath)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}

	if info.Width != 200 || info.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Error("FileSizeBytes should be positive")
	}
	// PNG files written by image/png carry no EXIF block.
	if info.Orientation != 0 || info.CapturedAt != "" {
		t.Errorf("unexpected EXIF data: orientation=%d captured=%q", info.Orientation, info.CapturedAt)
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct {
		path   string
		format string
	}{
		{"scan.png", "png"},
		{"scan.JPG", "jpeg"},
		{"scan.jpeg", "jpeg"},
		{"scan.gif", "gif"},
		{"scan.bmp", "bmp"},
		{"scan.tif", "tiff"},
		{filepath.Join("a", "b", "scan.tiff"), "tiff"},
		{"scan.xyz", "unknown"},
		{"scan", "unknown"},
	}

	for _, tt := range tests {
		if got := FormatName(tt.path); got != tt.format {
			t.Errorf("FormatName(%q): got %s, want %s", tt.path, got, tt.format)
		}
	}
}

func TestGetDimensions(t *testing.T) {
	cache := NewImageCache(DefaultMaxBytes)
	imgPath := createTestImage(t, 300, 200, color.RGBA{100, 100, 100, 255})
	defer os.Remove(imgPath)

	dims, err := GetDimensions(cache, imgPath)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}

	if dims.Width != 300 || dims.Height != 200 {
		t.Errorf("dimensions: got %dx%d, want 300x200", dims.Width, dims.Height)
	}

	if _, err := GetDimensions(cache, "/nonexistent/image.png"); err == nil {
		t.Error("GetDimensions should fail for non-existent file")
	}
}
