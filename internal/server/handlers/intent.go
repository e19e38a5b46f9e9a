package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wanna/internal/domain/geo"
	"wanna/internal/domain/intent"
	"wanna/internal/service/matching"
)

// IntentHandler handles intent-related HTTP requests
type IntentHandler struct {
	intents       intent.Store
	geoIndex      geo.Index
	scheduler     *matching.Scheduler
	defaultExpiry time.Duration
}

// NewIntentHandler creates a new intent handler
func NewIntentHandler(intents intent.Store, geoIndex geo.Index, scheduler *matching.Scheduler, defaultExpiry time.Duration) *IntentHandler {
	return &IntentHandler{
		intents:       intents,
		geoIndex:      geoIndex,
		scheduler:     scheduler,
		defaultExpiry: defaultExpiry,
	}
}

// CreateIntent creates a new intent, indexes it, and immediately attempts a
// match. Matching is best-effort; intent creation succeeds regardless.
func (h *IntentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	type createIntentRequest struct {
		UserID     string                  `json:"user_id"`
		RawText    string                  `json:"raw_text"`
		Structured intent.StructuredIntent `json:"structured"`
		Embedding  []float64               `json:"embedding"`
		Location   intent.Location         `json:"location"`
	}

	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing user ID", nil)
		return
	}

	now := time.Now()
	in := intent.Intent{
		ID:         uuid.New().String(),
		UserID:     req.UserID,
		RawText:    req.RawText,
		Structured: req.Structured,
		Embedding:  req.Embedding,
		Location:   req.Location,
		Status:     intent.StatusActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(h.defaultExpiry),
	}

	if err := h.intents.Save(r.Context(), in); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to save intent", err)
		return
	}

	if err := h.geoIndex.Add(r.Context(), matching.GeoIndexKey, in.Location.Longitude, in.Location.Latitude, in.ID); err != nil {
		// The periodic sweep will still find the intent through the store.
		log.Printf("Error indexing intent %s: %v", in.ID, err)
	}

	podID := h.scheduler.TriggerImmediateMatch(r.Context(), in.ID)

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"intent": in,
		"pod_id": podID,
	})
}

// GetIntent returns a specific intent by ID
func (h *IntentHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing intent ID", nil)
		return
	}

	in, err := h.intents.GetActive(r.Context(), id)
	if err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Intent not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to get intent", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, in)
}

// CancelIntent cancels an active intent and drops it from the geo index.
func (h *IntentHandler) CancelIntent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing intent ID", nil)
		return
	}

	if err := h.intents.UpdateStatus(r.Context(), id, intent.StatusCancelled); err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Intent not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to cancel intent", err)
		}
		return
	}

	if err := h.geoIndex.Remove(r.Context(), matching.GeoIndexKey, id); err != nil {
		log.Printf("Error removing cancelled intent %s from geo index: %v", id, err)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(intent.StatusCancelled)})
}
