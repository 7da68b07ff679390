// Package analysis synthesizes detection results for a scan image.
//
// A Synthesizer maps an image's pixel dimensions and a confidence value onto a
// severity tier, a tier-sized set of detection points, and a padded bounding
// box around those points. No pixel data is inspected: the output depends only
// on the dimensions, the confidence, and the injected RandomSource, so a fixed
// seed reproduces the exact same Result.
//
// # Tiers
//
//	confidence > 0.7         high      3-5 points
//	0.4 < confidence <= 0.7  moderate  2-3 points
//	confidence <= 0.4        low       1-2 points
//
// # Sampling
//
// Points are drawn from [50, width-50) x [50, height-50). When an axis is 100
// pixels or shorter that range is empty, and every point is placed on the
// center line of that axis (dimension / 2) instead.
//
// # Failures
//
// Failures never surface as Go errors at this level. Failed builds the
// degraded record used for undecodable input, and Result.WithRenderFailure
// folds an annotation failure into an otherwise valid record.
package analysis
