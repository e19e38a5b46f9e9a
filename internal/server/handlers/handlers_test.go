package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"wanna/internal/adapter/storage"
	"wanna/internal/domain/intent"
	"wanna/internal/domain/pod"
	"wanna/internal/service/matching"

	geoService "wanna/internal/service/geo"
)

type memIntentStore struct {
	mu      sync.Mutex
	intents map[string]intent.Intent
}

func newMemIntentStore() *memIntentStore {
	return &memIntentStore{intents: make(map[string]intent.Intent)}
}

func (s *memIntentStore) Save(ctx context.Context, in intent.Intent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[in.ID] = in
	return nil
}

func (s *memIntentStore) GetActive(ctx context.Context, id string) (*intent.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intents[id]
	if !ok || in.Status != intent.StatusActive || in.Expired(time.Now()) {
		return nil, intent.ErrNotFound
	}
	return &in, nil
}

func (s *memIntentStore) ListActive(ctx context.Context, maxAge time.Duration, limit int) ([]intent.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)

	var result []intent.Intent
	for _, in := range s.intents {
		if in.Status == intent.StatusActive && !in.Expired(time.Now()) && !in.CreatedAt.Before(cutoff) {
			result = append(result, in)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *memIntentStore) MarkMatched(ctx context.Context, ids []string, podID string, matchedAt time.Time) error {
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

func (s *memIntentStore) UpdateStatus(ctx context.Context, id string, status intent.Status) error {
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

func (s *memIntentStore) get(id string) intent.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intents[id]
}

type memPodStore struct {
	mu   sync.Mutex
	pods map[string]pod.Pod
}

func newMemPodStore() *memPodStore {
	return &memPodStore{pods: make(map[string]pod.Pod)}
}

func (s *memPodStore) Insert(ctx context.Context, p pod.Pod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pods[p.ID] = p
	return nil
}

func (s *memPodStore) Get(ctx context.Context, id string) (*pod.Pod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[id]
	if !ok {
		return nil, storage.ErrPodNotFound
	}
	return &p, nil
}

func (s *memPodStore) MarkArrived(ctx context.Context, podID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[podID]
	if !ok {
		return storage.ErrPodNotFound
	}
	for _, u := range p.ArrivedUserIDs {
		if u == userID {
			return nil
		}
	}
	p.ArrivedUserIDs = append(p.ArrivedUserIDs, userID)
	s.pods[podID] = p
	return nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyPodFormed(ctx context.Context, p pod.Pod) error { return nil }

type noopIcebreaker struct{}

func (noopIcebreaker) Generate(ctx context.Context, p pod.Pod) error { return nil }

type testEnv struct {
	intents *memIntentStore
	pods    *memPodStore
	index   *geoService.MemoryIndex
	router  *chi.Mux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		intents: newMemIntentStore(),
		pods:    newMemPodStore(),
		index:   geoService.NewMemoryIndex(),
	}

	scorer := matching.NewScorer(matching.ScorerConfig{MatchingRadiusMiles: 3})
	selector := matching.NewSelector(env.intents, env.index, scorer, matching.SelectorConfig{
		PrimaryRadiusMiles:  3,
		FallbackRadiusMiles: 10,
		AcceptanceThreshold: 0.40,
	})
	assembler := matching.NewAssembler(
		selector,
		env.intents,
		env.pods,
		env.index,
		geoService.NewGeocoderService(),
		noopNotifier{},
		noopIcebreaker{},
		matching.AssemblerConfig{MinPodSize: 2, MaxPodSize: 5, PodExpiry: 4 * time.Hour},
	)
	scheduler := matching.NewScheduler(env.intents, assembler, matching.SchedulerConfig{
		SweepInterval: time.Hour,
		RecencyWindow: 6 * time.Hour,
		BatchLimit:    50,
	})

	intentHandler := NewIntentHandler(env.intents, env.index, scheduler, 30*time.Minute)
	podHandler := NewPodHandler(env.pods)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/intents", func(r chi.Router) {
			r.Post("/", intentHandler.CreateIntent)
			r.Get("/{id}", intentHandler.GetIntent)
			r.Post("/{id}/cancel", intentHandler.CancelIntent)
		})
		r.Route("/pods", func(r chi.Router) {
			r.Get("/{id}", podHandler.GetPod)
			r.Post("/{id}/arrive", podHandler.ConfirmArrival)
		})
	})
	env.router = r

	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func createIntentBody(userID string, lat, lon float64) map[string]any {
	return map[string]any{
		"user_id":  userID,
		"raw_text": "anyone up for coffee?",
		"structured": map[string]any{
			"Activity":    "coffee",
			"Category":    "food_drink",
			"EnergyLevel": "medium",
			"Keywords":    []string{"coffee"},
		},
		"location": map[string]any{
			"Latitude":  lat,
			"Longitude": lon,
		},
	}
}

func TestCreateIntentNoMatchYet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/intents", createIntentBody("u1", 37.7749, -122.4194))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Intent intent.Intent `json:"intent"`
		PodID  string        `json:"pod_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.NotEmpty(t, resp.Intent.ID)
	require.Equal(t, intent.StatusActive, resp.Intent.Status)
	require.Empty(t, resp.PodID)

	// The intent landed in the store and the geo index.
	members, err := env.index.Radius(context.Background(), matching.GeoIndexKey, -122.4194, 37.7749, 1)
	require.NoError(t, err)
	require.Equal(t, []string{resp.Intent.ID}, members)
}

func TestCreateIntentFormsPodImmediately(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/intents", createIntentBody("u1", 37.7749, -122.4194))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/intents", createIntentBody("u2", 37.7760, -122.4180))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		PodID string `json:"pod_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.PodID)

	// The pod is immediately retrievable.
	rec = env.do(t, http.MethodGet, "/api/v1/pods/"+resp.PodID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var p pod.Pod
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Len(t, p.UserIDs, 2)
	require.ElementsMatch(t, []string{"u1", "u2"}, p.UserIDs)
}

func TestCreateIntentValidation(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/intents", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/intents", createIntentBody("", 37.7749, -122.4194))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetIntentNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/intents/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelIntent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/intents", createIntentBody("u1", 37.7749, -122.4194))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Intent intent.Intent `json:"intent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id := resp.Intent.ID

	rec = env.do(t, http.MethodPost, "/api/v1/intents/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, intent.StatusCancelled, env.intents.get(id).Status)

	// Cancelled intents no longer resolve and no longer sit in the geo index.
	rec = env.do(t, http.MethodGet, "/api/v1/intents/"+id, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	members, err := env.index.Radius(context.Background(), matching.GeoIndexKey, -122.4194, 37.7749, 1)
	require.NoError(t, err)
	require.Empty(t, members)

	// Cancelling twice is fine; the status transition is idempotent here.
	rec = env.do(t, http.MethodPost, "/api/v1/intents/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPodNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/pods/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmArrival(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.pods.Insert(context.Background(), pod.Pod{
		ID:      "p1",
		UserIDs: []string{"u1", "u2"},
		Status:  pod.StatusActive,
	}))

	rec := env.do(t, http.MethodPost, "/api/v1/pods/p1/arrive", map[string]string{"user_id": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	p, err := env.pods.Get(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, p.ArrivedUserIDs)

	rec = env.do(t, http.MethodPost, "/api/v1/pods/p1/arrive", map[string]string{"user_id": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
