package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wanna/internal/adapter/storage"
	"wanna/internal/domain/pod"
)

// PodHandler handles pod-related HTTP requests
type PodHandler struct {
	pods pod.Store
}

// NewPodHandler creates a new pod handler
func NewPodHandler(pods pod.Store) *PodHandler {
	return &PodHandler{
		pods: pods,
	}
}

// GetPod returns a specific pod by ID
func (h *PodHandler) GetPod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing pod ID", nil)
		return
	}

	p, err := h.pods.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrPodNotFound) {
			respondWithError(w, http.StatusNotFound, "Pod not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to get pod", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// ConfirmArrival records that a member user has arrived at the pod location.
func (h *PodHandler) ConfirmArrival(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing pod ID", nil)
		return
	}

	type arrivalRequest struct {
		UserID string `json:"user_id"`
	}

	var req arrivalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing user ID", nil)
		return
	}

	if err := h.pods.MarkArrived(r.Context(), id, req.UserID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to confirm arrival", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "arrived"})
}
