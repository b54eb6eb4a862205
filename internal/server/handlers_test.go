package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/domain"
)

type fakeStore struct {
	interests map[string]*domain.RawInterests
	profiles  map[string]*domain.TasteProfileResult
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		interests: make(map[string]*domain.RawInterests),
		profiles:  make(map[string]*domain.TasteProfileResult),
	}
}

func (s *fakeStore) SaveRawInterests(_ context.Context, raw *domain.RawInterests) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.interests[raw.UserID] = raw
	return nil
}

func (s *fakeStore) LoadRawInterests(_ context.Context, userID string) (*domain.RawInterests, error) {
	return s.interests[userID], nil
}

func (s *fakeStore) LoadProfileResult(_ context.Context, userID string) (*domain.TasteProfileResult, error) {
	return s.profiles[userID], nil
}

type fakeRuns struct {
	active  map[string]bool
	started []string
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{active: make(map[string]bool)}
}

func (r *fakeRuns) Start(raw *domain.RawInterests) bool {
	if r.active[raw.UserID] {
		return false
	}
	r.active[raw.UserID] = true
	r.started = append(r.started, raw.UserID)
	return true
}

func (r *fakeRuns) IsActive(userID string) bool { return r.active[userID] }

func newTestRouter(store *fakeStore, runs *fakeRuns) http.Handler {
	handlers := NewHandlers(store, runs, nil, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/healthz", handlers.Health)
	r.Post("/api/onboarding", handlers.Onboarding)
	r.Get("/api/profile/{userID}", handlers.Profile)
	r.Get("/api/interests/{userID}", handlers.Interests)
	return r
}

func TestOnboardingStartsRun(t *testing.T) {
	store := newFakeStore()
	runs := newFakeRuns()
	router := newTestRouter(store, runs)

	body := `{"user_id":"u1","name":"Alex","age":29,"gender":"female","music":["Radiohead"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/onboarding", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp onboardingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Accepted || !resp.Started {
		t.Fatalf("expected accepted+started, got %+v", resp)
	}
	if store.interests["u1"] == nil {
		t.Fatalf("expected interests persisted before run start")
	}
	if len(runs.started) != 1 {
		t.Fatalf("expected one run started, got %d", len(runs.started))
	}
}

func TestOnboardingDuplicateIsAcceptedNotStarted(t *testing.T) {
	store := newFakeStore()
	runs := newFakeRuns()
	runs.active["u1"] = true
	router := newTestRouter(store, runs)

	body := `{"user_id":"u1","music":["Radiohead"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/onboarding", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp onboardingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Started {
		t.Fatalf("expected duplicate submission not to start a run")
	}
}

func TestOnboardingValidation(t *testing.T) {
	router := newTestRouter(newFakeStore(), newFakeRuns())

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing user id", `{"music":["Radiohead"]}`},
		{"no interests", `{"user_id":"u1","music":["  "]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/onboarding", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestProfileNotFoundDistinguishesActiveRun(t *testing.T) {
	store := newFakeStore()
	runs := newFakeRuns()
	runs.active["u1"] = true
	router := newTestRouter(store, runs)

	req := httptest.NewRequest(http.MethodGet, "/api/profile/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "in_progress") {
		t.Fatalf("expected in_progress status, got %s", rec.Body.String())
	}
}

func TestProfileReturnsPersistedResult(t *testing.T) {
	store := newFakeStore()
	store.profiles["u1"] = &domain.TasteProfileResult{FinalAnalysis: "layered and atmospheric"}
	router := newTestRouter(store, newFakeRuns())

	req := httptest.NewRequest(http.MethodGet, "/api/profile/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result domain.TasteProfileResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if result.FinalAnalysis != "layered and atmospheric" {
		t.Fatalf("unexpected profile payload: %+v", result)
	}
}

func TestInterestsRoundTrip(t *testing.T) {
	store := newFakeStore()
	store.interests["u1"] = &domain.RawInterests{UserID: "u1", Music: []string{"Radiohead"}}
	router := newTestRouter(store, newFakeRuns())

	req := httptest.NewRequest(http.MethodGet, "/api/interests/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/interests/nobody", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newFakeStore(), newFakeRuns())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
