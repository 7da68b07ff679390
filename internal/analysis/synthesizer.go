package analysis

import (
	"errors"
	"fmt"
)

const (
	// EdgeMargin keeps sampled points this many pixels away from every edge.
	EdgeMargin = 50

	// BoxPadding expands the bounding box on each side.
	BoxPadding = 30

	// DefaultConfidenceMin is the inclusive lower bound of DrawConfidence.
	DefaultConfidenceMin = 0.3

	// DefaultConfidenceMax is the exclusive upper bound of DrawConfidence.
	DefaultConfidenceMax = 0.9
)

// Labels for each tier.
const (
	LabelHigh     = "High probability of abnormality detected"
	LabelModerate = "Moderate probability of abnormality detected"
	LabelLow      = "Low probability of abnormality detected"
)

// ErrInvalidDimensions is reported for images with a non-positive width or height.
var ErrInvalidDimensions = errors.New("image dimensions must be positive")

// DefaultBoundingBox is used when a result carries no detection points.
var DefaultBoundingBox = BoundingBox{X: 50, Y: 50, Width: 200, Height: 200}

// tierPolicy describes one row of the tiering table.
type tierPolicy struct {
	tier      Tier
	label     string
	minPoints int // inclusive
	maxPoints int // inclusive
}

var (
	highPolicy     = tierPolicy{TierHigh, LabelHigh, 3, 5}
	moderatePolicy = tierPolicy{TierModerate, LabelModerate, 2, 3}
	lowPolicy      = tierPolicy{TierLow, LabelLow, 1, 2}
)

// Classify returns the tier and label for a confidence value.
func Classify(confidence float64) (Tier, string) {
	p := policyFor(confidence)
	return p.tier, p.label
}

func policyFor(confidence float64) tierPolicy {
	switch {
	case confidence > 0.7:
		return highPolicy
	case confidence > 0.4:
		return moderatePolicy
	default:
		return lowPolicy
	}
}

// Synthesizer generates detection results from image dimensions and a
// confidence value.
//
// A Synthesizer is safe for concurrent use if its RandomSource is.
type Synthesizer struct {
	rng           RandomSource
	confidenceMin float64
	confidenceMax float64
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithConfidenceRange sets the range DrawConfidence samples from.
func WithConfidenceRange(min, max float64) Option {
	return func(s *Synthesizer) {
		s.confidenceMin = min
		s.confidenceMax = max
	}
}

// NewSynthesizer creates a Synthesizer that draws all randomness from rng.
func NewSynthesizer(rng RandomSource, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		rng:           rng,
		confidenceMin: DefaultConfidenceMin,
		confidenceMax: DefaultConfidenceMax,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DrawConfidence samples a confidence value uniformly from the configured range.
func (s *Synthesizer) DrawConfidence() float64 {
	return s.confidenceMin + s.rng.Float64()*(s.confidenceMax-s.confidenceMin)
}

// Synthesize builds the detection result for an image of the given size.
//
// The returned result has no annotated image; attaching one is the
// renderer's job. Non-positive dimensions yield a Failed result.
func (s *Synthesizer) Synthesize(width, height int, confidence float64) Result {
	if width <= 0 || height <= 0 {
		return Failed(fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height))
	}

	policy := policyFor(confidence)
	count := intRange(s.rng, policy.minPoints, policy.maxPoints+1)

	points := make([]DetectionPoint, 0, count)
	for i := 0; i < count; i++ {
		x := s.sampleAxis(width)
		y := s.sampleAxis(height)
		points = append(points, DetectionPoint{X: x, Y: y, Tier: policy.tier})
	}

	return Result{
		Label:       policy.label,
		Confidence:  confidence,
		BoundingBox: BoundingBoxFor(points, width, height),
		Points:      points,
	}
}

// sampleAxis picks a coordinate in [EdgeMargin, size-EdgeMargin), falling
// back to the axis center when that range is empty.
func (s *Synthesizer) sampleAxis(size int) int {
	lo, hi := EdgeMargin, size-EdgeMargin
	if hi <= lo {
		return size / 2
	}
	return intRange(s.rng, lo, hi)
}

// BoundingBoxFor returns the padded box enclosing points, clamped to
// [0,width] x [0,height]. With no points it returns DefaultBoundingBox.
func BoundingBoxFor(points []DetectionPoint, width, height int) BoundingBox {
	if len(points) == 0 {
		return DefaultBoundingBox
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	minX = clamp(minX-BoxPadding, 0, width)
	minY = clamp(minY-BoxPadding, 0, height)
	maxX = clamp(maxX+BoxPadding, 0, width)
	maxY = clamp(maxY+BoxPadding, 0, height)

	return BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
