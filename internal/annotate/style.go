package annotate

import (
	"fmt"
	"image/color"

	"github.com/ironsheep/scan-annotate-mcp/internal/analysis"
	"github.com/ironsheep/scan-annotate-mcp/internal/imaging"
)

// Style controls how the markers of one tier are drawn.
type Style struct {
	// OuterRadius is the radius of the outlined ring.
	OuterRadius float64

	// InnerRadius is the radius of the filled center dot.
	InnerRadius float64

	// StrokeWidth is the line width of the ring.
	StrokeWidth float64

	// LabelOffset moves the label baseline up and left of the point by this
	// many pixels on each axis.
	LabelOffset int

	Color color.RGBA
}

// Palette holds the hex colors used for annotation. Empty fields fall back to
// DefaultPalette.
type Palette struct {
	High     string `yaml:"high"`
	Moderate string `yaml:"moderate"`
	Low      string `yaml:"low"`
	Box      string `yaml:"box"`
	Text     string `yaml:"text"`
}

// DefaultPalette is red/orange/yellow markers, a blue box and white text.
var DefaultPalette = Palette{
	High:     "#FF0000",
	Moderate: "#FFA500",
	Low:      "#FFFF00",
	Box:      "#0000FF",
	Text:     "#FFFFFF",
}

// resolved is a Palette parsed into concrete colors.
type resolved struct {
	tiers map[analysis.Tier]color.RGBA
	box   color.RGBA
	text  color.RGBA
}

type paletteEntry struct {
	name string
	hex  string
	def  string
}

func (p Palette) resolve() (resolved, error) {
	entries := []paletteEntry{
		{"high", p.High, DefaultPalette.High},
		{"moderate", p.Moderate, DefaultPalette.Moderate},
		{"low", p.Low, DefaultPalette.Low},
		{"box", p.Box, DefaultPalette.Box},
		{"text", p.Text, DefaultPalette.Text},
	}

	colors := make(map[string]color.RGBA, len(entries))
	for _, e := range entries {
		hex := e.hex
		if hex == "" {
			hex = e.def
		}
		c, err := imaging.ParseHexColor(hex)
		if err != nil {
			return resolved{}, fmt.Errorf("palette %s: %w", e.name, err)
		}
		colors[e.name] = c
	}

	return resolved{
		tiers: map[analysis.Tier]color.RGBA{
			analysis.TierHigh:     colors["high"],
			analysis.TierModerate: colors["moderate"],
			analysis.TierLow:      colors["low"],
		},
		box:  colors["box"],
		text: colors["text"],
	}, nil
}

// tierGeometry is the fixed marker geometry per tier; only colors vary.
var tierGeometry = map[analysis.Tier]Style{
	analysis.TierHigh:     {OuterRadius: 15, InnerRadius: 5, StrokeWidth: 3, LabelOffset: 20},
	analysis.TierModerate: {OuterRadius: 12, InnerRadius: 4, StrokeWidth: 3, LabelOffset: 15},
	analysis.TierLow:      {OuterRadius: 10, InnerRadius: 3, StrokeWidth: 3, LabelOffset: 12},
}

// DefaultStyles returns the tier styles with DefaultPalette colors.
func DefaultStyles() map[analysis.Tier]Style {
	res, _ := DefaultPalette.resolve()
	return stylesFor(res)
}

func stylesFor(res resolved) map[analysis.Tier]Style {
	styles := make(map[analysis.Tier]Style, len(tierGeometry))
	for tier, geom := range tierGeometry {
		geom.Color = res.tiers[tier]
		styles[tier] = geom
	}
	return styles
}
