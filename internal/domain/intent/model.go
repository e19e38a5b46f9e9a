package intent

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an intent is missing, no longer active, or
// already expired at lookup time.
var ErrNotFound = errors.New("intent not found")

// Status represents the lifecycle status of an intent. Statuses only ever
// advance; an intent is never moved back to active.
type Status string

const (
	StatusActive    Status = "active"
	StatusMatching  Status = "matching"
	StatusMatched   Status = "matched"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Category classifies what kind of activity an intent is about.
type Category string

const (
	CategoryFoodDrink     Category = "food_drink"
	CategorySports        Category = "sports_fitness"
	CategoryEntertainment Category = "entertainment"
	CategoryOutdoors      Category = "outdoors"
	CategoryLearning      Category = "learning"
	CategorySocial        Category = "social"
	CategoryOther         Category = "other"
)

// EnergyLevel describes the social energy a user is bringing.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// Location is a geographic point reported by the user's device.
type Location struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
}

// StructuredIntent is the parsed, machine-usable form of a raw intent text.
type StructuredIntent struct {
	Activity                string
	Category                Category
	EnergyLevel             EnergyLevel
	SocialPreference        string
	TimeSensitivity         string
	DurationEstimateMinutes int
	Keywords                []string
	Confidence              float64
}

// Intent represents a user's time-boxed desire to do an activity somewhere.
type Intent struct {
	ID           string
	UserID       string
	RawText      string
	Structured   StructuredIntent
	Embedding    []float64
	Location     Location
	LocationName string
	Status       Status
	CreatedAt    time.Time
	ExpiresAt    time.Time
	MatchedAt    *time.Time
}

// Expired reports whether the intent's expiry has passed at the given time.
func (i Intent) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Store defines persistence for intents.
type Store interface {
	// Save inserts or updates an intent.
	Save(ctx context.Context, in Intent) error

	// GetActive returns the intent with the given id. It returns ErrNotFound
	// if the intent does not exist, is not in active status, or has expired.
	GetActive(ctx context.Context, id string) (*Intent, error)

	// ListActive returns up to limit active intents created within maxAge,
	// oldest first.
	ListActive(ctx context.Context, maxAge time.Duration, limit int) ([]Intent, error)

	// MarkMatched transitions the given intents to matched and records the
	// pod they joined.
	MarkMatched(ctx context.Context, ids []string, podID string, matchedAt time.Time) error

	// UpdateStatus advances an intent to the given status.
	UpdateStatus(ctx context.Context, id string, status Status) error
}
