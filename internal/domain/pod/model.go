package pod

import (
	"context"
	"time"

	"wanna/internal/domain/geo"
	"wanna/internal/domain/intent"
)

// Status represents the lifecycle status of a pod.
type Status string

const (
	StatusForming   Status = "forming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Pod is a formed group of users derived from compatible intents.
type Pod struct {
	ID           string
	IntentIDs    []string
	UserIDs      []string
	Centroid     geo.Point
	SharedIntent intent.StructuredIntent
	LocationName string
	Status       Status
	CreatedAt    time.Time
	ExpiresAt    time.Time

	// ArrivedUserIDs is updated by the arrival-confirmation flow, never by
	// the matching engine.
	ArrivedUserIDs []string
}

// Store defines persistence for pods.
type Store interface {
	// Insert persists a newly formed pod. A pod is written exactly once by
	// the matching engine.
	Insert(ctx context.Context, p Pod) error

	// Get returns a pod by id.
	Get(ctx context.Context, id string) (*Pod, error)

	// MarkArrived records that a member user has confirmed arrival.
	MarkArrived(ctx context.Context, podID, userID string) error
}
