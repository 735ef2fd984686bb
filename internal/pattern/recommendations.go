// Package pattern implements the advisory half of spec.md §4.7's
// PatternStore: recommendations_for() over the patterns already
// recorded by internal/statestore, and the periodic compaction
// schedule. Recording and storage themselves live in statestore (the
// sqlite connection patterns.db is shared, single-writer state), so
// this package is a read-mostly advisor, never a gate on coordinator
// decisions (spec.md: "recommendations are advisory").
package pattern

import (
	"context"
	"sort"
	"time"

	"codenerd/internal/logging"
	"codenerd/internal/model"
)

const (
	// failureConfidenceFloor is the minimum confidence a failure
	// pattern needs before it is surfaced as a recommendation.
	failureConfidenceFloor = 0.7
	// successConfidenceFloor is the minimum confidence a success
	// pattern needs before it is surfaced as a recommendation.
	successConfidenceFloor = 0.8
	// maxRecommendations bounds recommendations_for's output.
	maxRecommendations = 5

	// compactEvery is how often (in phase executions) NoteExecution
	// runs a compaction pass.
	compactEvery = 50
	// compactMinConfidence drops patterns below this confidence.
	compactMinConfidence = 0.3
	// compactStaleAfter archives patterns unseen for this long.
	compactStaleAfter = 90 * 24 * time.Hour
)

// Store is the subset of statestore.Store this package reads from and
// triggers compaction on, kept narrow to avoid a pattern -> statestore
// import cycle risk as the module grows.
type Store interface {
	Patterns(ctx context.Context, kind model.PatternKind) ([]model.ExecutionPattern, error)
	CompactPatterns(ctx context.Context, minConfidence float64, staleAfter time.Duration) (int64, error)
}

// Recommendation is one advisory suggestion surfaced to a phase or the
// coordinator; it is never binding.
type Recommendation struct {
	Signature   string
	Kind        model.PatternKind
	Confidence  float64
	Occurrences int
	Attributes  map[string]string
}

// Advisor exposes recommendations_for and the periodic compaction
// schedule over a Store.
type Advisor struct {
	store      Store
	executions int
}

// NewAdvisor binds an Advisor to store.
func NewAdvisor(store Store) *Advisor {
	return &Advisor{store: store}
}

// RecommendationsFor returns up to five recommendations relevant to
// phaseName, drawn from recorded failure and success patterns whose
// "phase" attribute equals phaseName or is unset (the signature is not
// consulted), filtered by the
// kind-specific confidence floor and sorted by confidence descending.
// Recommendations are advisory: callers may ignore them freely.
func (a *Advisor) RecommendationsFor(ctx context.Context, phaseName string) ([]Recommendation, error) {
	var out []Recommendation

	failures, err := a.store.Patterns(ctx, model.PatternFailure)
	if err != nil {
		return nil, err
	}
	out = append(out, filterRelevant(failures, phaseName, failureConfidenceFloor)...)

	successes, err := a.store.Patterns(ctx, model.PatternSuccess)
	if err != nil {
		return nil, err
	}
	out = append(out, filterRelevant(successes, phaseName, successConfidenceFloor)...)

	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out, nil
}

func filterRelevant(patterns []model.ExecutionPattern, phaseName string, floor float64) []Recommendation {
	var out []Recommendation
	for _, p := range patterns {
		if p.Confidence < floor {
			continue
		}
		if p.Attributes["phase"] != "" && p.Attributes["phase"] != phaseName {
			continue
		}
		out = append(out, Recommendation{
			Signature:   p.Signature,
			Kind:        p.Kind,
			Confidence:  p.Confidence,
			Occurrences: p.Occurrences,
			Attributes:  p.Attributes,
		})
	}
	return out
}

// NoteExecution increments the execution counter and runs a compaction
// pass every compactEvery executions (spec.md §4.7: "periodically (every
// ~50 phase executions)"). Call once per completed phase invocation.
func (a *Advisor) NoteExecution(ctx context.Context) {
	a.executions++
	if a.executions%compactEvery != 0 {
		return
	}
	n, err := a.store.CompactPatterns(ctx, compactMinConfidence, compactStaleAfter)
	if err != nil {
		logging.Get(logging.CategoryPattern).Error("periodic compaction failed: %v", err)
		return
	}
	logging.Pattern("periodic compaction after %d executions: removed %d patterns", a.executions, n)
}
