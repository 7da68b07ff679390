package analysis

import (
	"fmt"
	"image"
	"strings"
)

// Tier is the severity classification of a detection.
type Tier string

const (
	TierHigh     Tier = "high"
	TierModerate Tier = "moderate"
	TierLow      Tier = "low"
)

// Marker returns the short label burned into annotated images for this tier.
func (t Tier) Marker() string {
	switch t {
	case TierHigh:
		return "HIGH"
	case TierModerate:
		return "MOD"
	case TierLow:
		return "LOW"
	default:
		return ""
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t == TierHigh || t == TierModerate || t == TierLow
}

// DetectionPoint is a single synthesized region of interest.
type DetectionPoint struct {
	X    int  `json:"x"`    // Horizontal pixel position (0 = leftmost)
	Y    int  `json:"y"`    // Vertical pixel position (0 = topmost)
	Tier Tier `json:"tier"` // Severity tier that produced this point
}

// BoundingBox is an axis-aligned rectangle in pixel coordinates.
//
// (X, Y) is the top-left corner; the right and bottom edges are X+Width and
// Y+Height.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the box to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Within reports whether the box lies inside [0,width] x [0,height].
func (b BoundingBox) Within(width, height int) bool {
	return b.X >= 0 && b.Y >= 0 && b.Width >= 0 && b.Height >= 0 &&
		b.X+b.Width <= width && b.Y+b.Height <= height
}

// Result is the structured outcome of analyzing one image.
//
// A Result is a value: functions that change it return a modified copy and
// never touch the Points backing array of the original.
type Result struct {
	// Label is the human-readable classification, or the failure description
	// for degraded results.
	Label string `json:"label"`

	// Confidence is the score that selected the tier, in [0, 1).
	Confidence float64 `json:"confidence"`

	// BoundingBox encloses all detection points plus padding.
	BoundingBox BoundingBox `json:"bounding_box"`

	// Points are the detection points in generation order. Never nil in
	// results produced by this package.
	Points []DetectionPoint `json:"points"`

	// AnnotatedImage is the artifact name of the rendered image. Empty when
	// no artifact was produced.
	AnnotatedImage string `json:"annotated_image,omitempty"`
}

const errorLabelPrefix = "Error in analysis: "

// Failed returns the degraded result used when the source image cannot be
// decoded or its dimensions are unusable.
func Failed(err error) Result {
	return Result{
		Label:       errorLabelPrefix + err.Error(),
		Confidence:  0.0,
		BoundingBox: BoundingBox{X: 0, Y: 0, Width: 100, Height: 100},
		Points:      []DetectionPoint{},
	}
}

// IsFailed reports whether r is a degraded result produced by Failed.
func (r Result) IsFailed() bool {
	return strings.HasPrefix(r.Label, errorLabelPrefix)
}

// WithArtifact returns a copy of r that references the given artifact.
func (r Result) WithArtifact(name string) Result {
	r.Points = clonePoints(r.Points)
	r.AnnotatedImage = name
	return r
}

// WithRenderFailure returns a copy of r with no artifact and the failure
// cause appended to the label. The remaining fields stay valid.
func (r Result) WithRenderFailure(err error) Result {
	r.Points = clonePoints(r.Points)
	r.AnnotatedImage = ""
	r.Label = fmt.Sprintf("%s (annotation failed: %v)", r.Label, err)
	return r
}

func clonePoints(points []DetectionPoint) []DetectionPoint {
	out := make([]DetectionPoint, len(points))
	copy(out, points)
	return out
}
