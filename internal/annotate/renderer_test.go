package annotate

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/scan-annotate-mcp/internal/analysis"
	"github.com/ironsheep/scan-annotate-mcp/internal/imaging"
)

var gray = color.RGBA{64, 64, 64, 255}

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func scenarioResult() analysis.Result {
	points := []analysis.DetectionPoint{
		{X: 100, Y: 100, Tier: analysis.TierHigh},
		{X: 200, Y: 150, Tier: analysis.TierHigh},
		{X: 300, Y: 300, Tier: analysis.TierHigh},
	}
	return analysis.Result{
		Label:       analysis.LabelHigh,
		Confidence:  0.85,
		BoundingBox: analysis.BoundingBoxFor(points, 400, 400),
		Points:      points,
	}
}

func rgb(img image.Image, x, y int) color.RGBA {
	r, g, b := imaging.RGBAt(img, x, y)
	return color.RGBA{r, g, b, 255}
}

func countColor(img image.Image, r image.Rectangle, want color.RGBA) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if rgb(img, x, y) == want {
				n++
			}
		}
	}
	return n
}

func newRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	r, err := NewRenderer(opts...)
	require.NoError(t, err)
	return r
}

func TestRender_Scenario(t *testing.T) {
	src := solidImage(400, 400, gray)
	out, err := newRenderer(t).Render(src, scenarioResult())
	require.NoError(t, err)

	assert.Equal(t, src.Bounds(), out.Bounds())

	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	white := color.RGBA{255, 255, 255, 255}

	// Filled center dots.
	assert.Equal(t, red, rgb(out, 100, 100))
	assert.Equal(t, red, rgb(out, 200, 150))
	assert.Equal(t, red, rgb(out, 300, 300))

	// Ring, not filled between dot and ring.
	assert.Equal(t, red, rgb(out, 115, 100))
	assert.Equal(t, gray, rgb(out, 109, 100))

	// Bounding box edges at x=70 and x=330, y=70 and y=330.
	assert.Equal(t, blue, rgb(out, 70, 200))
	assert.Equal(t, blue, rgb(out, 329, 200))
	assert.Equal(t, blue, rgb(out, 250, 70))
	assert.Equal(t, blue, rgb(out, 250, 329))

	// Box interior away from markers is untouched.
	assert.Equal(t, gray, rgb(out, 200, 250))
	assert.Equal(t, gray, rgb(out, 380, 380))

	// "HIGH" label sits up and left of the first point.
	assert.Positive(t, countColor(out, image.Rect(80, 71, 112, 81), red))

	// Overlay text in the top-left corner.
	assert.Positive(t, countColor(out, image.Rect(10, 19, 130, 31), white))
	assert.Positive(t, countColor(out, image.Rect(10, 49, 130, 61), white))
}

func TestRender_DoesNotMutateSource(t *testing.T) {
	src := solidImage(400, 400, gray)
	before := make([]byte, len(src.Pix))
	copy(before, src.Pix)

	out, err := newRenderer(t).Render(src, scenarioResult())
	require.NoError(t, err)

	assert.Equal(t, before, src.Pix)
	assert.NotSame(t, src, out)
}

func TestRender_Deterministic(t *testing.T) {
	src := solidImage(400, 400, gray)
	r := newRenderer(t)

	a, err := r.Render(src, scenarioResult())
	require.NoError(t, err)
	b, err := r.Render(src, scenarioResult())
	require.NoError(t, err)

	assert.Equal(t, a.Pix, b.Pix)
}

func TestRender_TierStyles(t *testing.T) {
	tests := []struct {
		tier  analysis.Tier
		color color.RGBA
		ring  int // outer radius
	}{
		{analysis.TierHigh, color.RGBA{255, 0, 0, 255}, 15},
		{analysis.TierModerate, color.RGBA{255, 165, 0, 255}, 12},
		{analysis.TierLow, color.RGBA{255, 255, 0, 255}, 10},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			points := []analysis.DetectionPoint{{X: 150, Y: 150, Tier: tt.tier}}
			res := analysis.Result{
				Confidence:  0.5,
				BoundingBox: analysis.BoundingBoxFor(points, 300, 300),
				Points:      points,
			}

			out, err := newRenderer(t).Render(solidImage(300, 300, gray), res)
			require.NoError(t, err)

			assert.Equal(t, tt.color, rgb(out, 150, 150), "center dot")
			assert.Equal(t, tt.color, rgb(out, 150+tt.ring, 150), "ring")
			assert.Equal(t, gray, rgb(out, 150+tt.ring+4, 150), "outside ring")
		})
	}
}

func TestDefaultStyles(t *testing.T) {
	styles := DefaultStyles()
	require.Len(t, styles, 3)

	high := styles[analysis.TierHigh]
	assert.Equal(t, 15.0, high.OuterRadius)
	assert.Equal(t, 5.0, high.InnerRadius)
	assert.Equal(t, 3.0, high.StrokeWidth)
	assert.Equal(t, 20, high.LabelOffset)

	assert.Equal(t, 15, styles[analysis.TierModerate].LabelOffset)
	assert.Equal(t, 12.0, styles[analysis.TierModerate].OuterRadius)
	assert.Equal(t, 12, styles[analysis.TierLow].LabelOffset)
	assert.Equal(t, 3.0, styles[analysis.TierLow].InnerRadius)
}

func TestRender_NoPointsSkipsBox(t *testing.T) {
	res := analysis.Result{
		Label:       analysis.LabelLow,
		Confidence:  0.3,
		BoundingBox: analysis.DefaultBoundingBox,
		Points:      []analysis.DetectionPoint{},
	}

	out, err := newRenderer(t).Render(solidImage(300, 300, gray), res)
	require.NoError(t, err)

	// Left edge of the default box would be at x=50.
	assert.Equal(t, gray, rgb(out, 50, 150))
	assert.Positive(t, countColor(out, image.Rect(10, 49, 130, 61), color.RGBA{255, 255, 255, 255}))
}

func TestRender_Errors(t *testing.T) {
	r := newRenderer(t)

	_, err := r.Render(nil, scenarioResult())
	assert.Error(t, err)

	_, err = r.Render(solidImage(200, 200, gray), scenarioResult())
	assert.ErrorIs(t, err, ErrPointOutOfBounds)

	bad := analysis.Result{Points: []analysis.DetectionPoint{{X: 10, Y: 10, Tier: "critical"}}}
	_, err = r.Render(solidImage(50, 50, gray), bad)
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestRender_ShiftedSource(t *testing.T) {
	full := solidImage(500, 500, gray)
	sub := full.SubImage(image.Rect(50, 50, 450, 450))

	out, err := newRenderer(t).Render(sub, scenarioResult())
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 400, 400), out.Bounds())
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, rgb(out, 100, 100))
}

func TestRender_FlattensTransparency(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 200)) // fully transparent
	res := analysis.Result{Points: []analysis.DetectionPoint{}}

	out, err := newRenderer(t).Render(src, res)
	require.NoError(t, err)

	c := out.RGBAAt(150, 150)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, c)
}

func TestRenderer_ArtifactName(t *testing.T) {
	assert.Equal(t, "annotated_scan.png", newRenderer(t).ArtifactName("/uploads/scan.png"))
	assert.Equal(t, "annotated_quick_20240101_120000_x.jpg", newRenderer(t).ArtifactName("quick_20240101_120000_x.jpg"))
	assert.Equal(t, "marked-scan.png", newRenderer(t, WithPrefix("marked-")).ArtifactName("scan.png"))
}

func TestNewRenderer_Palette(t *testing.T) {
	_, err := NewRenderer(WithPalette(Palette{High: "not-a-color"}))
	assert.Error(t, err)

	r := newRenderer(t, WithPalette(Palette{High: "#00FF00"}))
	points := []analysis.DetectionPoint{{X: 100, Y: 100, Tier: analysis.TierHigh}}
	out, err := r.Render(solidImage(200, 200, gray), analysis.Result{
		BoundingBox: analysis.BoundingBoxFor(points, 200, 200),
		Points:      points,
	})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, rgb(out, 100, 100))
}

func TestRender_TranslucentPaletteBlends(t *testing.T) {
	r := newRenderer(t, WithPalette(Palette{High: "#FF000080"}))
	points := []analysis.DetectionPoint{{X: 100, Y: 100, Tier: analysis.TierHigh}}

	out, err := r.Render(solidImage(200, 200, gray), analysis.Result{
		BoundingBox: analysis.BoundingBoxFor(points, 200, 200),
		Points:      points,
	})
	require.NoError(t, err)

	// Half red over gray 64: R = 128 + 64/2, G = B = 64/2.
	c := rgb(out, 100, 100)
	assert.InDelta(t, 160, int(c.R), 3, "red %+v", c)
	assert.InDelta(t, 32, int(c.G), 3, "green %+v", c)
	assert.InDelta(t, 32, int(c.B), 3, "blue %+v", c)
}

func TestNewRenderer_EmptyPrefix(t *testing.T) {
	_, err := NewRenderer(WithPrefix(""))
	assert.ErrorIs(t, err, ErrEmptyPrefix)
}
