package matching

import "context"

// ScoreBreakdown holds the per-dimension sub-scores that make up a total
// compatibility score.
type ScoreBreakdown struct {
	Proximity float64
	Semantic  float64
	Timing    float64
	Energy    float64
	Category  float64
}

// CompatibilityScore is the weighted [0,1] compatibility between a source
// intent and a candidate intent. Scores are transient and never persisted.
type CompatibilityScore struct {
	SourceID    string
	CandidateID string
	Total       float64
	Breakdown   ScoreBreakdown
}

// Matcher is the interface the engine exposes to its callers.
type Matcher interface {
	// FormPod attempts to form a pod around the given intent. It returns the
	// new pod id, or an empty string when no viable pod could be formed.
	// It returns intent.ErrNotFound if the intent is missing, inactive, or
	// expired.
	FormPod(ctx context.Context, intentID string) (string, error)
}
