package icebreaker

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"wanna/internal/domain/intent"
	"wanna/internal/domain/pod"

	"wanna/internal/service/notify"
)

// templates maps categories to opener templates. %s is replaced with the
// pod's shared activity label.
var templates = map[intent.Category][]string{
	intent.CategoryFoodDrink: {
		"You all wanted %s — who's got a spot in mind?",
		"Pod's here for %s. Anyone a regular around this area?",
	},
	intent.CategorySports: {
		"Everyone's in for %s. What level is everybody at?",
		"%s crew assembled — anyone bringing gear?",
	},
	intent.CategoryEntertainment: {
		"You're all up for %s. Any recommendations nearby?",
		"Group's set for %s — who picked a place already?",
	},
	intent.CategoryOutdoors: {
		"%s it is. Anyone know a good route around here?",
		"You all felt like %s — meet at the centroid pin?",
	},
	intent.CategoryLearning: {
		"Study pod for %s formed. What's everyone working on?",
	},
	intent.CategorySocial: {
		"You're all nearby and up for %s. Say hi!",
	},
	intent.CategoryOther: {
		"A few people nearby wanted %s too. Introduce yourselves!",
	},
}

// Generator produces a pod's first system message and publishes it on the
// pod's messages subject.
type Generator struct {
	eventBus *nats.Conn
	rand     *rand.Rand
}

// NewGenerator creates a new icebreaker generator.
func NewGenerator(eventBus *nats.Conn) *Generator {
	return &Generator{
		eventBus: eventBus,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// message is the wire form of an icebreaker system message.
type message struct {
	Type      string    `json:"type"`
	PodID     string    `json:"pod_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Generate composes an opener for the pod and publishes it. The caller
// treats failures as log-only.
func (g *Generator) Generate(ctx context.Context, p pod.Pod) error {
	content := g.compose(p)

	data, err := json.Marshal(message{
		Type:      "icebreaker",
		PodID:     p.ID,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("error marshaling icebreaker: %w", err)
	}

	if err := g.eventBus.Publish(notify.PodMessagesSubject(p.ID), data); err != nil {
		return fmt.Errorf("error publishing icebreaker: %w", err)
	}

	return nil
}

func (g *Generator) compose(p pod.Pod) string {
	category := p.SharedIntent.Category
	options := templates[category]
	if len(options) == 0 {
		options = templates[intent.CategoryOther]
	}

	activity := p.SharedIntent.Activity
	if activity == "" {
		activity = strings.ReplaceAll(string(category), "_", " ")
	}

	return fmt.Sprintf(options[g.rand.Intn(len(options))], activity)
}
