package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/domain"
)

// ProfileStore is the persistence slice the handlers need.
type ProfileStore interface {
	SaveRawInterests(ctx context.Context, raw *domain.RawInterests) error
	LoadRawInterests(ctx context.Context, userID string) (*domain.RawInterests, error)
	LoadProfileResult(ctx context.Context, userID string) (*domain.TasteProfileResult, error)
}

// RunStarter triggers profiling runs.
type RunStarter interface {
	Start(raw *domain.RawInterests) bool
	IsActive(userID string) bool
}

// ReadyChecker reports whether a backing service is reachable.
type ReadyChecker interface {
	IsConnected(ctx context.Context) bool
}

type Handlers struct {
	store  ProfileStore
	runs   RunStarter
	cache  ReadyChecker
	logger *zap.Logger
}

func NewHandlers(store ProfileStore, runs RunStarter, cache ReadyChecker, logger *zap.Logger) *Handlers {
	return &Handlers{
		store:  store,
		runs:   runs,
		cache:  cache,
		logger: logger,
	}
}

type onboardingResponse struct {
	Accepted bool   `json:"accepted"`
	Started  bool   `json:"started"`
	Redirect string `json:"redirect"`
}

// Onboarding accepts the completed chat answers, persists them and kicks off
// a profiling run. A duplicate submission while a run is active is accepted
// but does not start a second run.
func (h *Handlers) Onboarding(w http.ResponseWriter, r *http.Request) {
	var raw domain.RawInterests
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	raw.UserID = strings.TrimSpace(raw.UserID)
	if raw.UserID == "" {
		h.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if len(raw.Entries()) == 0 {
		h.writeError(w, http.StatusBadRequest, "at least one interest is required")
		return
	}

	if err := h.store.SaveRawInterests(r.Context(), &raw); err != nil {
		h.logger.Error("Failed to save onboarding interests",
			zap.String("user_id", raw.UserID),
			zap.Error(err),
		)
		h.writeError(w, http.StatusInternalServerError, "failed to save interests")
		return
	}

	started := h.runs.Start(&raw)

	h.writeJSON(w, http.StatusAccepted, onboardingResponse{
		Accepted: true,
		Started:  started,
		Redirect: "/profiling",
	})
}

// Profile returns the persisted taste profile, or 404 while none exists. The
// response distinguishes "still running" from "never ran" via the status field.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	result, err := h.store.LoadProfileResult(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.String("user_id", userID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if result == nil {
		status := "not_found"
		if h.runs.IsActive(userID) {
			status = "in_progress"
		}
		h.writeJSON(w, http.StatusNotFound, map[string]string{"status": status})
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Interests returns the raw onboarding answers for the user.
func (h *Handlers) Interests(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	raw, err := h.store.LoadRawInterests(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load interests", zap.String("user_id", userID), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load interests")
		return
	}
	if raw == nil {
		h.writeError(w, http.StatusNotFound, "no interests recorded")
		return
	}

	h.writeJSON(w, http.StatusOK, raw)
}

// Health reports liveness plus cache reachability. The cache being down
// degrades performance but does not fail the check.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	cacheOK := h.cache == nil || h.cache.IsConnected(r.Context())
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"cache":  cacheOK,
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
