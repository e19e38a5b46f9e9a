package matching

import (
	"math"
	"time"

	"wanna/internal/domain/geo"
	"wanna/internal/domain/intent"
	"wanna/internal/domain/matching"

	geoService "wanna/internal/service/geo"
)

// Sub-score weights. They sum to 1.0.
const (
	weightProximity = 0.25
	weightSemantic  = 0.30
	weightTiming    = 0.15
	weightEnergy    = 0.15
	weightCategory  = 0.15
)

// ScorerConfig contains configuration for the compatibility scorer.
type ScorerConfig struct {
	// MatchingRadiusMiles is the primary matching radius. Proximity decays
	// linearly to zero at this distance, regardless of any larger fallback
	// radius used to retrieve candidates.
	MatchingRadiusMiles float64
}

// Scorer computes pairwise compatibility between two intents. It is a pure
// function of its inputs and the configured radius.
type Scorer struct {
	config ScorerConfig
}

// NewScorer creates a new compatibility scorer.
func NewScorer(config ScorerConfig) *Scorer {
	return &Scorer{config: config}
}

// Score computes the weighted compatibility between a source intent and a
// candidate intent. The total is always within [0,1].
func (s *Scorer) Score(a, b intent.Intent) matching.CompatibilityScore {
	breakdown := matching.ScoreBreakdown{
		Proximity: s.proximityScore(a, b),
		Semantic:  semanticScore(a.Embedding, b.Embedding),
		Timing:    timingScore(a.CreatedAt, b.CreatedAt),
		Energy:    energyScore(a.Structured.EnergyLevel, b.Structured.EnergyLevel),
		Category:  categoryScore(a.Structured.Category, b.Structured.Category),
	}

	total := weightProximity*breakdown.Proximity +
		weightSemantic*breakdown.Semantic +
		weightTiming*breakdown.Timing +
		weightEnergy*breakdown.Energy +
		weightCategory*breakdown.Category

	// Cosine similarity can go negative, so the weighted sum is clamped to
	// keep the total within [0,1].
	total = math.Max(0, math.Min(1, total))

	return matching.CompatibilityScore{
		SourceID:    a.ID,
		CandidateID: b.ID,
		Total:       total,
		Breakdown:   breakdown,
	}
}

// proximityScore decays linearly from 1.0 at zero distance to 0 at the
// primary matching radius. Candidates retrieved via the fallback radius
// score low or zero here rather than erroring.
func (s *Scorer) proximityScore(a, b intent.Intent) float64 {
	d := geoService.DistanceMiles(
		geo.Point{Latitude: a.Location.Latitude, Longitude: a.Location.Longitude},
		geo.Point{Latitude: b.Location.Latitude, Longitude: b.Location.Longitude},
	)

	return math.Max(0, 1-d/s.config.MatchingRadiusMiles)
}

// semanticScore is the cosine similarity of the two embeddings, or a neutral
// 0.5 when either embedding is absent.
func semanticScore(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.5
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.5
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Guard against float drift outside the natural cosine range.
	return math.Max(-1, math.Min(1, sim))
}

// timingScore is 1.0 for intents created within 10 minutes of each other,
// 0.3 for 60 minutes or more apart, interpolated linearly in between.
func timingScore(a, b time.Time) float64 {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}

	minutes := diff.Minutes()

	switch {
	case minutes <= 10:
		return 1.0
	case minutes >= 60:
		return 0.3
	default:
		return 1.0 - 0.7*(minutes-10)/50
	}
}

// energyScore rewards matching energy levels: exact match 1.0, adjacent
// levels 0.6, opposite ends 0.3, unrecognized values neutral 0.5.
func energyScore(a, b intent.EnergyLevel) float64 {
	rank := map[intent.EnergyLevel]int{
		intent.EnergyLow:    0,
		intent.EnergyMedium: 1,
		intent.EnergyHigh:   2,
	}

	ra, okA := rank[a]
	rb, okB := rank[b]
	if !okA || !okB {
		return 0.5
	}

	switch gap := ra - rb; {
	case gap == 0:
		return 1.0
	case gap == 1 || gap == -1:
		return 0.6
	default:
		return 0.3
	}
}

func categoryScore(a, b intent.Category) float64 {
	if a == b {
		return 1.0
	}
	return 0.3
}
