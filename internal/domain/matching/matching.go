// Package matching decides which enrolled identity, if any, a probe embedding belongs to.
package matching

import (
	"math"

	"github.com/hupe1980/vecgo/distance"

	"github.com/okian/rollcall/internal/domain/model"
)

// DefaultThreshold is the exclusive Euclidean distance bound for a match.
const DefaultThreshold = 0.6

// boundaryTolerance is the relative band around the threshold in which the
// float32 distance is recomputed in float64 before accepting a match.
const boundaryTolerance = 1e-5

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithThreshold sets the acceptance threshold. Non-positive values are ignored.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

// Matcher compares probes against a roster. It holds no mutable state and is
// safe for concurrent use.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a Matcher with the given options.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match returns the roster entry nearest to probe among those strictly closer
// than the threshold. Equal distances resolve to the earlier roster entry.
// Entries whose dimensionality differs from the probe are never candidates.
func (m *Matcher) Match(probe model.Embedding, roster []model.RosterEntry) model.MatchResult {
	if len(probe) == 0 {
		return model.Unknown()
	}

	best := -1
	bestDist := math.Inf(1)
	for i, entry := range roster {
		d, ok := Distance(probe, entry.Embedding)
		if !ok {
			continue
		}
		if math.Abs(d-m.threshold) <= boundaryTolerance*m.threshold {
			d = exactDistance(probe, entry.Embedding)
		}
		if d >= m.threshold {
			continue
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 {
		return model.Unknown()
	}
	return model.Identified(roster[best].Identity, bestDist)
}

// Distance is the Euclidean distance between a and b. It reports false when
// the vectors cannot be compared.
func Distance(a, b model.Embedding) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	d := math.Sqrt(float64(distance.SquaredL2(a, b)))
	if math.IsNaN(d) {
		return 0, false
	}
	return d, true
}

// exactDistance accumulates the squared differences in float64.
func exactDistance(a, b model.Embedding) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
