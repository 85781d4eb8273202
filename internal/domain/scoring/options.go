package scoring

import "github.com/okian/drivescore/internal/domain/model"

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithWeights sets the weight set. The caps map is copied so later changes
// by the caller do not leak into scoring.
func WithWeights(w model.ScoreWeights) Option {
	return func(s *WeightedScorer) {
		caps := make(map[string]float64, len(w.Caps))
		for term, limit := range w.Caps {
			if limit >= 0 {
				caps[term] = limit
			}
		}
		w.Caps = caps
		s.weights = w
	}
}
