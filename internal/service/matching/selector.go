package matching

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"wanna/internal/domain/geo"
	"wanna/internal/domain/intent"
	"wanna/internal/domain/matching"
)

// GeoIndexKey is the single logical key under which all active intents are
// indexed.
const GeoIndexKey = "intents:active"

// SelectorConfig contains configuration for the candidate selector.
type SelectorConfig struct {
	// PrimaryRadiusMiles is the radius of the first geo query.
	PrimaryRadiusMiles float64

	// FallbackRadiusMiles is used for exactly one wider query when the
	// primary radius returns nothing. There is no further expansion.
	FallbackRadiusMiles float64

	// AcceptanceThreshold is the minimum total score a candidate must reach.
	AcceptanceThreshold float64
}

// Match pairs a candidate intent with its compatibility score against the
// source.
type Match struct {
	Intent intent.Intent
	Score  matching.CompatibilityScore
}

// Selector retrieves and ranks nearby candidate intents for a source intent.
type Selector struct {
	intents  intent.Store
	geoIndex geo.Index
	scorer   *Scorer
	config   SelectorConfig
}

// NewSelector creates a new candidate selector.
func NewSelector(intents intent.Store, geoIndex geo.Index, scorer *Scorer, config SelectorConfig) *Selector {
	return &Selector{
		intents:  intents,
		geoIndex: geoIndex,
		scorer:   scorer,
		config:   config,
	}
}

// FindMatches returns candidates compatible with the source intent, best
// score first. An empty result is not an error; it means no candidate
// cleared the acceptance threshold. It returns intent.ErrNotFound if the
// source intent is missing, inactive, or expired.
func (s *Selector) FindMatches(ctx context.Context, intentID string) ([]Match, error) {
	source, err := s.intents.GetActive(ctx, intentID)
	if err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading source intent %s: %w", intentID, err)
	}

	candidateIDs, err := s.nearbyCandidates(ctx, *source)
	if err != nil {
		return nil, fmt.Errorf("geo query for intent %s: %w", intentID, err)
	}

	var matches []Match
	for _, id := range candidateIDs {
		candidate, err := s.intents.GetActive(ctx, id)
		if err != nil {
			// Stale geo-index entries for since-expired intents are dropped
			// silently; anything else is a store failure worth surfacing.
			if errors.Is(err, intent.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("loading candidate %s for intent %s: %w", id, intentID, err)
		}

		score := s.scorer.Score(*source, *candidate)
		if score.Total < s.config.AcceptanceThreshold {
			continue
		}

		matches = append(matches, Match{Intent: *candidate, Score: score})
	}

	// Stable sort keeps the geo index's distance ordering for equal totals.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score.Total > matches[j].Score.Total
	})

	return matches, nil
}

// nearbyCandidates queries the geo index at the primary radius, expanding
// once to the fallback radius if nothing is found. The source intent is
// excluded from the results.
func (s *Selector) nearbyCandidates(ctx context.Context, source intent.Intent) ([]string, error) {
	ids, err := s.radiusExcludingSource(ctx, source, s.config.PrimaryRadiusMiles)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		log.Printf("No candidates within %.1f mi of intent %s, expanding to %.1f mi",
			s.config.PrimaryRadiusMiles, source.ID, s.config.FallbackRadiusMiles)

		ids, err = s.radiusExcludingSource(ctx, source, s.config.FallbackRadiusMiles)
		if err != nil {
			return nil, err
		}
	}

	return ids, nil
}

func (s *Selector) radiusExcludingSource(ctx context.Context, source intent.Intent, radiusMiles float64) ([]string, error) {
	ids, err := s.geoIndex.Radius(ctx, GeoIndexKey, source.Location.Longitude, source.Location.Latitude, radiusMiles)
	if err != nil {
		return nil, err
	}

	filtered := ids[:0]
	for _, id := range ids {
		if id != source.ID {
			filtered = append(filtered, id)
		}
	}

	return filtered, nil
}
