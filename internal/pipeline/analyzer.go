// Package pipeline wires decoding, detection synthesis, rendering and artifact
// storage into single-image and batch analyses.
//
// Failures never escape as Go errors: an image that cannot be decoded yields
// analysis.Failed, and a render or store failure yields a result without an
// artifact whose label names the cause.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/scan-annotate-mcp/internal/analysis"
	"github.com/ironsheep/scan-annotate-mcp/internal/annotate"
	"github.com/ironsheep/scan-annotate-mcp/internal/imaging"
	"github.com/ironsheep/scan-annotate-mcp/internal/storage"
)

// DefaultWorkers bounds AnalyzeBatch when no worker count is configured.
const DefaultWorkers = 4

// ErrDuplicateArtifact is reported for batch inputs whose artifact name was
// already claimed by an earlier input of the same batch.
var ErrDuplicateArtifact = errors.New("duplicate artifact name in batch")

// Analyzer runs the full analysis of source images. It is safe for
// concurrent use when its synthesizer's random source is.
type Analyzer struct {
	synth    *analysis.Synthesizer
	renderer *annotate.Renderer
	store    storage.Store
	log      log.Interface
	maxBytes int64
	workers  int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. The default is the apex/log package logger.
func WithLogger(l log.Interface) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithMaxBytes sets the source file size limit. Non-positive disables it.
func WithMaxBytes(n int64) Option {
	return func(a *Analyzer) { a.maxBytes = n }
}

// WithWorkers bounds the number of concurrent analyses in AnalyzeBatch.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// NewAnalyzer creates an Analyzer from its collaborators.
func NewAnalyzer(synth *analysis.Synthesizer, renderer *annotate.Renderer, store storage.Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		synth:    synth,
		renderer: renderer,
		store:    store,
		log:      log.Log,
		maxBytes: imaging.DefaultMaxBytes,
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFile analyzes the image at path with a freshly drawn confidence.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) analysis.Result {
	return a.AnalyzeFileWithConfidence(ctx, path, a.synth.DrawConfidence())
}

// AnalyzeFileWithConfidence analyzes the image at path using the given
// confidence instead of drawing one.
func (a *Analyzer) AnalyzeFileWithConfidence(ctx context.Context, path string, confidence float64) analysis.Result {
	logger := a.log.WithField("path", path)

	img, err := imaging.DecodeFile(path, a.maxBytes)
	if err != nil {
		logger.WithError(err).Warn("decode failed")
		return analysis.Failed(err)
	}

	return a.AnalyzeImage(ctx, a.renderer.ArtifactName(path), img, confidence)
}

// AnalyzeImage synthesizes detections for an already decoded image, renders
// them and stores the artifact under artifactName.
func (a *Analyzer) AnalyzeImage(ctx context.Context, artifactName string, img image.Image, confidence float64) analysis.Result {
	logger := a.log.WithField("artifact", artifactName)

	b := img.Bounds()
	res := a.synth.Synthesize(b.Dx(), b.Dy(), confidence)
	if res.IsFailed() {
		logger.Warn(res.Label)
		return res
	}

	logger = logger.WithFields(log.Fields{
		"confidence": fmt.Sprintf("%.2f", res.Confidence),
		"points":     len(res.Points),
	})

	annotated, err := a.renderer.Render(img, res)
	if err != nil {
		logger.WithError(err).Error("render failed")
		return res.WithRenderFailure(err)
	}

	ref, err := a.store.Save(ctx, artifactName, annotated)
	if err != nil {
		logger.WithError(err).Error("store failed")
		return res.WithRenderFailure(err)
	}

	logger.Info("analysis complete")
	return res.WithArtifact(ref)
}

// AnalyzeBatch analyzes paths in parallel and returns one result per path in
// input order.
//
// Once ctx is done no further inputs are started; their results are Failed
// with the context error. Inputs whose artifact name repeats an earlier
// input's are Failed with ErrDuplicateArtifact instead of overwriting it.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, paths []string) []analysis.Result {
	results := make([]analysis.Result, len(paths))
	claimed := make(map[string]bool, len(paths))

	var g errgroup.Group
	g.SetLimit(a.workers)

	for i, path := range paths {
		name := a.renderer.ArtifactName(path)
		if claimed[name] {
			results[i] = analysis.Failed(fmt.Errorf("%w: %s", ErrDuplicateArtifact, name))
			continue
		}
		claimed[name] = true

		if err := ctx.Err(); err != nil {
			results[i] = analysis.Failed(err)
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = analysis.Failed(err)
				return nil
			}
			results[i] = a.AnalyzeFile(ctx, path)
			return nil
		})
	}

	_ = g.Wait()

	a.log.WithFields(log.Fields{"inputs": len(paths), "workers": a.workers}).Debug("batch complete")
	return results
}
