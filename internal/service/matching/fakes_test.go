package matching

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"wanna/internal/domain/intent"
	"wanna/internal/domain/pod"
)

// fakeIntentStore is an in-memory intent.Store for tests.
type fakeIntentStore struct {
	mu      sync.Mutex
	intents map[string]intent.Intent

	getErr  error
	listErr error
	markErr error

	// listIgnoresExpiry simulates a sweep batch that was read before some of
	// its intents expired.
	listIgnoresExpiry bool

	listStarted chan struct{}
	listBlocked chan struct{}
	listCalls   int
}

func newFakeIntentStore(intents ...intent.Intent) *fakeIntentStore {
	s := &fakeIntentStore{intents: make(map[string]intent.Intent)}
	for _, in := range intents {
		s.intents[in.ID] = in
	}
	return s
}

func (s *fakeIntentStore) Save(ctx context.Context, in intent.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[in.ID] = in
	return nil
}

func (s *fakeIntentStore) GetActive(ctx context.Context, id string) (*intent.Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.getErr != nil {
		return nil, s.getErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intents[id]
	if !ok || in.Status != intent.StatusActive || in.Expired(time.Now()) {
		return nil, intent.ErrNotFound
	}

	return &in, nil
}

func (s *fakeIntentStore) ListActive(ctx context.Context, maxAge time.Duration, limit int) ([]intent.Intent, error) {
	s.mu.Lock()
	s.listCalls++
	started, blocked := s.listStarted, s.listBlocked
	s.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-blocked
	}

	// Mirrors a real driver: a canceled context fails the query.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.listErr != nil {
		return nil, s.listErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)

	var result []intent.Intent
	for _, in := range s.intents {
		if in.Status != intent.StatusActive || in.CreatedAt.Before(cutoff) {
			continue
		}
		if !s.listIgnoresExpiry && in.Expired(time.Now()) {
			continue
		}
		result = append(result, in)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (s *fakeIntentStore) MarkMatched(ctx context.Context, ids []string, podID string, matchedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.markErr != nil {
		return s.markErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		in, ok := s.intents[id]
		if !ok || in.Status != intent.StatusActive {
			continue
		}
		in.Status = intent.StatusMatched
		at := matchedAt
		in.MatchedAt = &at
		s.intents[id] = in
	}

	return nil
}

func (s *fakeIntentStore) UpdateStatus(ctx context.Context, id string, status intent.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intents[id]
	if !ok {
		return intent.ErrNotFound
	}
	in.Status = status
	s.intents[id] = in

	return nil
}

func (s *fakeIntentStore) get(id string) intent.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intents[id]
}

func (s *fakeIntentStore) listCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// fakePodStore is an in-memory pod.Store for tests.
type fakePodStore struct {
	mu        sync.Mutex
	pods      map[string]pod.Pod
	insertErr error
}

func newFakePodStore() *fakePodStore {
	return &fakePodStore{pods: make(map[string]pod.Pod)}
}

func (s *fakePodStore) Insert(ctx context.Context, p pod.Pod) error {
	if s.insertErr != nil {
		return s.insertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pods[p.ID] = p

	return nil
}

func (s *fakePodStore) Get(ctx context.Context, id string) (*pod.Pod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[id]
	if !ok {
		return nil, errors.New("pod not found")
	}

	return &p, nil
}

func (s *fakePodStore) MarkArrived(ctx context.Context, podID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[podID]
	if !ok {
		return errors.New("pod not found")
	}
	p.ArrivedUserIDs = append(p.ArrivedUserIDs, userID)
	s.pods[podID] = p

	return nil
}

func (s *fakePodStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pods)
}

// fakeNotifier records notified pods, optionally failing.
type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	notified []string
}

func (n *fakeNotifier) NotifyPodFormed(ctx context.Context, p pod.Pod) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.notified = append(n.notified, p.ID)

	return nil
}

func (n *fakeNotifier) notifiedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notified)
}

// fakeIcebreaker optionally fails; generated content is irrelevant here.
type fakeIcebreaker struct {
	err error
}

func (g *fakeIcebreaker) Generate(ctx context.Context, p pod.Pod) error {
	return g.err
}

// fakeGeocoder returns a fixed name, optionally failing.
type fakeGeocoder struct {
	name string
	err  error
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.name, nil
}
