package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"wanna/internal/domain/pod"
)

// UserSubject returns the NATS subject carrying pod events for one user. The
// WebSocket layer subscribes to it to stream notifications to the client.
func UserSubject(userID string) string {
	return fmt.Sprintf("user.%s.pods", userID)
}

// PodMessagesSubject returns the NATS subject carrying a pod's messages.
func PodMessagesSubject(podID string) string {
	return fmt.Sprintf("pod.%s.messages", podID)
}

// GatewayConfig contains configuration for the notification gateway.
type GatewayConfig struct {
	// EventsTopic is the subject prefix for pod lifecycle events.
	EventsTopic string
}

// Gateway publishes pod-formed notifications over NATS.
type Gateway struct {
	eventBus *nats.Conn
	config   GatewayConfig
}

// NewGateway creates a new notification gateway.
func NewGateway(eventBus *nats.Conn, config GatewayConfig) *Gateway {
	return &Gateway{
		eventBus: eventBus,
		config:   config,
	}
}

// podEvent is the wire form of a pod notification.
type podEvent struct {
	Type         string   `json:"type"`
	PodID        string   `json:"pod_id"`
	Activity     string   `json:"activity"`
	LocationName string   `json:"location_name,omitempty"`
	MemberCount  int      `json:"member_count"`
	UserIDs      []string `json:"user_ids"`
}

// NotifyPodFormed publishes a formed event on the pod topic and on each
// member's user subject.
func (g *Gateway) NotifyPodFormed(ctx context.Context, p pod.Pod) error {
	event := podEvent{
		Type:         "pod_formed",
		PodID:        p.ID,
		Activity:     p.SharedIntent.Activity,
		LocationName: p.LocationName,
		MemberCount:  len(p.UserIDs),
		UserIDs:      p.UserIDs,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling pod event: %w", err)
	}

	topic := fmt.Sprintf("%s.formed", g.config.EventsTopic)
	if err := g.eventBus.Publish(topic, data); err != nil {
		return fmt.Errorf("error publishing pod event: %w", err)
	}

	for _, userID := range p.UserIDs {
		if err := g.eventBus.Publish(UserSubject(userID), data); err != nil {
			return fmt.Errorf("error publishing to user %s: %w", userID, err)
		}
	}

	return nil
}
