package matching

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"wanna/internal/domain/geo"
	"wanna/internal/domain/intent"
	"wanna/internal/domain/pod"

	geoService "wanna/internal/service/geo"
)

// sharedIntentKeywordCap bounds the merged keyword list of a pod.
const sharedIntentKeywordCap = 5

// Notifier delivers pod-formed notifications to members. Failures are logged
// and never block pod creation.
type Notifier interface {
	NotifyPodFormed(ctx context.Context, p pod.Pod) error
}

// IcebreakerGenerator produces an opening message for a freshly formed pod.
type IcebreakerGenerator interface {
	Generate(ctx context.Context, p pod.Pod) error
}

// AssemblerConfig contains configuration for the pod assembler.
type AssemblerConfig struct {
	MinPodSize int
	MaxPodSize int
	PodExpiry  time.Duration
}

// Assembler converts ranked candidate lists into persisted pods.
type Assembler struct {
	selector   *Selector
	intents    intent.Store
	pods       pod.Store
	geoIndex   geo.Index
	geocoder   geo.Geocoder
	notifier   Notifier
	icebreaker IcebreakerGenerator
	config     AssemblerConfig

	now func() time.Time
}

// NewAssembler creates a new pod assembler.
func NewAssembler(
	selector *Selector,
	intents intent.Store,
	pods pod.Store,
	geoIndex geo.Index,
	geocoder geo.Geocoder,
	notifier Notifier,
	icebreaker IcebreakerGenerator,
	config AssemblerConfig,
) *Assembler {
	return &Assembler{
		selector:   selector,
		intents:    intents,
		pods:       pods,
		geoIndex:   geoIndex,
		geocoder:   geocoder,
		notifier:   notifier,
		icebreaker: icebreaker,
		config:     config,
		now:        time.Now,
	}
}

// FormPod attempts to form a pod around the given intent. It returns the new
// pod id, or an empty string when there are no viable candidates or too few
// distinct users; neither is an error, the caller may retry later. It
// returns intent.ErrNotFound if the source intent is missing, inactive, or
// expired.
func (a *Assembler) FormPod(ctx context.Context, intentID string) (string, error) {
	matches, err := a.selector.FindMatches(ctx, intentID)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}

	if max := a.config.MaxPodSize - 1; len(matches) > max {
		matches = matches[:max]
	}

	source, err := a.intents.GetActive(ctx, intentID)
	if err != nil {
		return "", err
	}

	// Dedup by user, first occurrence wins; the source's user always beats
	// any of its own other intents appearing among the matches.
	working := make([]intent.Intent, 0, len(matches)+1)
	working = append(working, *source)
	for _, m := range matches {
		working = append(working, m.Intent)
	}
	members := dedupByUser(working)

	if len(members) < a.config.MinPodSize {
		return "", nil
	}

	points := make([]geo.Point, len(members))
	for i, m := range members {
		points[i] = geo.Point{Latitude: m.Location.Latitude, Longitude: m.Location.Longitude}
	}
	centroid := geoService.Centroid(points)

	now := a.now()

	p := pod.Pod{
		ID:           uuid.New().String(),
		Centroid:     centroid,
		SharedIntent: mergeSharedIntent(members, *source),
		Status:       pod.StatusActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(a.config.PodExpiry),
	}
	for _, m := range members {
		p.IntentIDs = append(p.IntentIDs, m.ID)
		p.UserIDs = append(p.UserIDs, m.UserID)
	}

	// Best-effort name for the centroid. Failure never blocks pod creation.
	if name, err := a.geocoder.ReverseGeocode(ctx, centroid.Latitude, centroid.Longitude); err != nil {
		log.Printf("Reverse geocode failed for pod %s: %v", p.ID, err)
	} else {
		p.LocationName = name
	}

	if err := a.pods.Insert(ctx, p); err != nil {
		return "", fmt.Errorf("inserting pod for intent %s: %w", intentID, err)
	}

	if err := a.intents.MarkMatched(ctx, p.IntentIDs, p.ID, now); err != nil {
		return "", fmt.Errorf("marking intents matched for pod %s: %w", p.ID, err)
	}

	for _, id := range p.IntentIDs {
		if err := a.geoIndex.Remove(ctx, GeoIndexKey, id); err != nil {
			log.Printf("Error removing intent %s from geo index: %v", id, err)
		}
	}

	a.dispatchSideEffects(p)

	return p.ID, nil
}

// dispatchSideEffects fires member notifications and the icebreaker message
// without awaiting them. Failures are logged and never roll back the pod.
func (a *Assembler) dispatchSideEffects(p pod.Pod) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := a.notifier.NotifyPodFormed(ctx, p); err != nil {
			log.Printf("Error notifying members of pod %s: %v", p.ID, err)
		}

		if err := a.icebreaker.Generate(ctx, p); err != nil {
			log.Printf("Error generating icebreaker for pod %s: %v", p.ID, err)
		}
	}()
}

// dedupByUser keeps the first intent seen for each user, preserving order.
func dedupByUser(intents []intent.Intent) []intent.Intent {
	seen := make(map[string]bool, len(intents))
	result := intents[:0:0]

	for _, in := range intents {
		if seen[in.UserID] {
			continue
		}
		seen[in.UserID] = true
		result = append(result, in)
	}

	return result
}

// mergeSharedIntent reduces the members' structured intents into the pod's
// shared intent.
func mergeSharedIntent(members []intent.Intent, source intent.Intent) intent.StructuredIntent {
	keywords := mergeKeywords(members)

	return intent.StructuredIntent{
		Activity:         sharedActivity(members, keywords),
		Category:         dominantCategory(members),
		EnergyLevel:      source.Structured.EnergyLevel,
		SocialPreference: "small_group",
		TimeSensitivity:  "now",
		Keywords:         keywords,
	}
}

// dominantCategory tallies member categories and returns the most frequent,
// breaking ties by first-seen order.
func dominantCategory(members []intent.Intent) intent.Category {
	counts := make(map[intent.Category]int)
	var order []intent.Category

	for _, m := range members {
		c := m.Structured.Category
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	best := order[0]
	for _, c := range order {
		if counts[c] > counts[best] {
			best = c
		}
	}

	return best
}

// mergeKeywords unions member keyword lists in order, deduplicated and capped.
func mergeKeywords(members []intent.Intent) []string {
	seen := make(map[string]bool)
	var merged []string

	for _, m := range members {
		for _, kw := range m.Structured.Keywords {
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			merged = append(merged, kw)
			if len(merged) == sharedIntentKeywordCap {
				return merged
			}
		}
	}

	return merged
}

// sharedActivity labels the pod by its top one or two most common keywords,
// falling back to the dominant category with underscores spelled out.
func sharedActivity(members []intent.Intent, keywords []string) string {
	if len(keywords) == 0 {
		return strings.ReplaceAll(string(dominantCategory(members)), "_", " ")
	}

	counts := make(map[string]int)
	for _, m := range members {
		for _, kw := range m.Structured.Keywords {
			counts[kw]++
		}
	}

	top := make([]string, len(keywords))
	copy(top, keywords)

	// Keywords are already in first-seen order; a stable pass by count keeps
	// that order for ties.
	for i := 1; i < len(top); i++ {
		for j := i; j > 0 && counts[top[j]] > counts[top[j-1]]; j-- {
			top[j], top[j-1] = top[j-1], top[j]
		}
	}

	if len(top) > 2 {
		top = top[:2]
	}

	return strings.Join(top, " ")
}
