package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// createPatternImage creates an image with different colors in each quadrant
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			switch {
			case x < width/2 && y < height/2:
				c = color.RGBA{255, 0, 0, 255}
			case x >= width/2 && y < height/2:
				c = color.RGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.RGBA{0, 0, 255, 255}
			default:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func decodeCrop(t *testing.T, res *CropResult) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	return img
}

func TestCropRegion(t *testing.T) {
	img := createPatternImage(200, 200)

	res, err := CropRegion(img, image.Rect(110, 110, 190, 170), 1.0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}

	if res.X != 110 || res.Y != 110 {
		t.Errorf("origin: got (%d,%d), want (110,110)", res.X, res.Y)
	}
	if res.Width != 80 || res.Height != 60 {
		t.Errorf("size: got %dx%d, want 80x60", res.Width, res.Height)
	}
	if res.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", res.MimeType)
	}

	cropped := decodeCrop(t, res)
	if r, g, b := RGBAt(cropped, 10, 10); r != 255 || g != 255 || b != 255 {
		t.Errorf("cropped pixel: got (%d,%d,%d), want white", r, g, b)
	}
}

func TestCropRegion_Scale(t *testing.T) {
	img := createPatternImage(100, 100)

	res, err := CropRegion(img, image.Rect(0, 0, 40, 20), 2.0)
	if err != nil {
		t.Fatalf("CropRegion failed: %v", err)
	}
	if res.Width != 80 || res.Height != 40 {
		t.Errorf("scaled size: got %dx%d, want 80x40", res.Width, res.Height)
	}
}

func TestCropRegion_Invalid(t *testing.T) {
	img := createPatternImage(100, 100)

	tests := []struct {
		name  string
		r     image.Rectangle
		scale float64
	}{
		{"outside bounds", image.Rect(50, 50, 150, 90), 1.0},
		{"negative origin", image.Rect(-1, 0, 10, 10), 1.0},
		{"empty", image.Rect(10, 10, 10, 40), 1.0},
		{"scaled to nothing", image.Rect(0, 0, 2, 2), 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CropRegion(img, tt.r, tt.scale); err == nil {
				t.Errorf("CropRegion(%v) should fail", tt.r)
			}
		})
	}
}
