// Package annotate burns detection results into a copy of the source image.
package annotate

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/anthonynsimon/bild/clone"

	"github.com/ironsheep/scan-annotate-mcp/internal/analysis"
	"github.com/ironsheep/scan-annotate-mcp/internal/imaging"
)

// DefaultPrefix is prepended to the source base name to name artifacts.
const DefaultPrefix = "annotated_"

// Fixed overlay geometry.
const (
	BoxStrokeWidth = 2

	overlayX           = 10
	overlayConfidenceY = 30
	overlayDetectionsY = 60
)

var (
	// ErrPointOutOfBounds is returned when a detection point lies outside the source image.
	ErrPointOutOfBounds = errors.New("detection point outside image bounds")

	// ErrUnknownTier is returned for points whose tier has no style.
	ErrUnknownTier = errors.New("no style for tier")

	// ErrEmptyPrefix is returned by NewRenderer when the artifact prefix is
	// empty; the artifact would take the source's own name.
	ErrEmptyPrefix = errors.New("artifact prefix must not be empty")
)

// Renderer draws analysis results onto images.
//
// Render never modifies its source image and keeps no state between calls, so
// one Renderer can be shared by concurrent callers.
type Renderer struct {
	styles    map[analysis.Tier]Style
	boxColor  color.RGBA
	textColor color.RGBA
	prefix    string
}

// Option configures a Renderer.
type Option func(*rendererConfig)

type rendererConfig struct {
	palette Palette
	prefix  string
}

// WithPalette overrides annotation colors.
func WithPalette(p Palette) Option {
	return func(c *rendererConfig) { c.palette = p }
}

// WithPrefix overrides the artifact name prefix.
func WithPrefix(prefix string) Option {
	return func(c *rendererConfig) { c.prefix = prefix }
}

// NewRenderer creates a Renderer. It fails when a palette color cannot be
// parsed or the artifact prefix is empty.
func NewRenderer(opts ...Option) (*Renderer, error) {
	cfg := rendererConfig{palette: DefaultPalette, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.prefix == "" {
		return nil, ErrEmptyPrefix
	}

	res, err := cfg.palette.resolve()
	if err != nil {
		return nil, err
	}
	return &Renderer{
		styles:    stylesFor(res),
		boxColor:  res.box,
		textColor: res.text,
		prefix:    cfg.prefix,
	}, nil
}

// ArtifactName returns the name of the annotated artifact for sourcePath:
// the renderer prefix followed by the source base name.
func (r *Renderer) ArtifactName(sourcePath string) string {
	return r.prefix + filepath.Base(sourcePath)
}

// Render returns a new opaque RGBA image with res drawn over a copy of src.
//
// Drawing order is fixed: each point's ring, dot and label in point order,
// then the bounding box, then the two overlay lines. Later draws cover earlier
// ones. The bounding box is only drawn when res has points. Transparent source
// pixels are flattened onto black.
func (r *Renderer) Render(src image.Image, res analysis.Result) (*image.RGBA, error) {
	if src == nil {
		return nil, errors.New("nil source image")
	}

	dst := clone.AsShiftedRGBA(src)
	bounds := dst.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("empty source image %v", src.Bounds())
	}
	flatten(dst)

	for i, p := range res.Points {
		if !(image.Point{X: p.X, Y: p.Y}).In(bounds) {
			return nil, fmt.Errorf("%w: point %d at (%d,%d) in %dx%d image",
				ErrPointOutOfBounds, i, p.X, p.Y, bounds.Dx(), bounds.Dy())
		}
		if _, ok := r.styles[p.Tier]; !ok {
			return nil, fmt.Errorf("%w %q (point %d)", ErrUnknownTier, p.Tier, i)
		}
	}

	canvas := imaging.NewCanvas(dst)

	for _, p := range res.Points {
		st := r.styles[p.Tier]
		canvas.StrokeCircle(p.X, p.Y, st.OuterRadius, st.StrokeWidth, st.Color)
		canvas.FillCircle(p.X, p.Y, st.InnerRadius, st.Color)
		canvas.Text(p.X-st.LabelOffset, p.Y-st.LabelOffset, p.Tier.Marker(), st.Color)
	}

	if len(res.Points) > 0 {
		canvas.StrokeRect(res.BoundingBox.Rect(), BoxStrokeWidth, r.boxColor)
	}

	canvas.Text(overlayX, overlayConfidenceY, fmt.Sprintf("Confidence: %.2f", res.Confidence), r.textColor)
	canvas.Text(overlayX, overlayDetectionsY, fmt.Sprintf("Detections: %d", len(res.Points)), r.textColor)

	return dst, nil
}

// flatten forces every pixel opaque, which composites premultiplied RGBA
// onto black.
func flatten(img *image.RGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
}
