package profiler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/domain"
	"github.com/arim/tastemap-go/internal/events"
)

type blockingRunner struct {
	release chan struct{}
	result  *domain.TasteProfileResult
	err     error
	runs    int
	mu      sync.Mutex
}

func (r *blockingRunner) Run(ctx context.Context, _ *domain.RawInterests) (*domain.TasteProfileResult, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.result, r.err
}

type memoryStore struct {
	mu    sync.Mutex
	saved map[string]*domain.TasteProfileResult
	err   error
}

func (s *memoryStore) SaveProfileResult(_ context.Context, userID string, result *domain.TasteProfileResult) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string]*domain.TasteProfileResult)
	}
	s.saved[userID] = result
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []*events.Event
}

func (s *recordingSink) Deliver(_ string, event *events.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return true
}

func (s *recordingSink) countByType(t events.Type) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestStartRunsAndPersists(t *testing.T) {
	runner := &blockingRunner{result: &domain.TasteProfileResult{FinalAnalysis: "done"}}
	store := &memoryStore{}
	sink := &recordingSink{}
	o := New(runner, store, sink, time.Minute, zap.NewNop())

	if !o.Start(&domain.RawInterests{UserID: "u1"}) {
		t.Fatalf("expected start to be accepted")
	}
	o.Wait()

	if store.saved["u1"] == nil {
		t.Fatalf("expected result persisted")
	}
	if sink.countByType(events.TypeAgentStarted) != 1 {
		t.Fatalf("expected exactly one agent_started")
	}
	if sink.countByType(events.TypeAgentCompleted) != 1 {
		t.Fatalf("expected exactly one agent_completed")
	}
}

func TestStartIsIdempotentWhileActive(t *testing.T) {
	runner := &blockingRunner{
		release: make(chan struct{}),
		result:  &domain.TasteProfileResult{},
	}
	store := &memoryStore{}
	sink := &recordingSink{}
	o := New(runner, store, sink, time.Minute, zap.NewNop())

	if !o.Start(&domain.RawInterests{UserID: "u1"}) {
		t.Fatalf("expected first start to be accepted")
	}
	if o.Start(&domain.RawInterests{UserID: "u1"}) {
		t.Fatalf("expected duplicate start to be rejected")
	}
	if !o.IsActive("u1") {
		t.Fatalf("expected run to be active")
	}

	close(runner.release)
	o.Wait()

	if sink.countByType(events.TypeAgentStarted) != 1 {
		t.Fatalf("expected exactly one agent_started for duplicate starts")
	}
	runner.mu.Lock()
	runs := runner.runs
	runner.mu.Unlock()
	if runs != 1 {
		t.Fatalf("expected a single run, got %d", runs)
	}

	// slot freed after completion
	if o.IsActive("u1") {
		t.Fatalf("expected run slot to clear after completion")
	}
	if !o.Start(&domain.RawInterests{UserID: "u1"}) {
		t.Fatalf("expected restart after completion to be accepted")
	}
	o.Wait()
}

func TestRunFailureEmitsErrorMessage(t *testing.T) {
	runner := &blockingRunner{err: errors.New("boom")}
	store := &memoryStore{}
	sink := &recordingSink{}
	o := New(runner, store, sink, time.Minute, zap.NewNop())

	o.Start(&domain.RawInterests{UserID: "u1"})
	o.Wait()

	if sink.countByType(events.TypeAgentCompleted) != 0 {
		t.Fatalf("expected no agent_completed on failure")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	found := false
	for _, e := range sink.events {
		if e.Type != events.TypeMessage {
			continue
		}
		if data, ok := e.Data.(events.MessageData); ok && data.Stage == "error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a terminal error message")
	}
}

func TestPersistFailureEmitsErrorMessage(t *testing.T) {
	runner := &blockingRunner{result: &domain.TasteProfileResult{}}
	store := &memoryStore{err: errors.New("db down")}
	sink := &recordingSink{}
	o := New(runner, store, sink, time.Minute, zap.NewNop())

	o.Start(&domain.RawInterests{UserID: "u1"})
	o.Wait()

	if sink.countByType(events.TypeAgentCompleted) != 0 {
		t.Fatalf("expected no agent_completed when persistence fails")
	}
}

func TestShutdownCancelsInFlightRuns(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	store := &memoryStore{}
	sink := &recordingSink{}
	o := New(runner, store, sink, time.Minute, zap.NewNop())

	o.Start(&domain.RawInterests{UserID: "u1"})

	done := make(chan struct{})
	go func() {
		o.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected shutdown to cancel the blocked run")
	}
}
