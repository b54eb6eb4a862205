package profiler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arim/tastemap-go/internal/constants"
	"github.com/arim/tastemap-go/internal/domain"
	"github.com/arim/tastemap-go/internal/events"
)

// Runner executes one profiling run end to end.
type Runner interface {
	Run(ctx context.Context, raw *domain.RawInterests) (*domain.TasteProfileResult, error)
}

// ResultStore persists completed profiles.
type ResultStore interface {
	SaveProfileResult(ctx context.Context, userID string, result *domain.TasteProfileResult) error
}

// EventSink receives lifecycle events.
type EventSink interface {
	Deliver(userID string, event *events.Event) bool
}

// Orchestrator owns run lifecycles: at most one active run per user, runs
// tracked for graceful shutdown, lifecycle events emitted around each run.
type Orchestrator struct {
	runner     Runner
	store      ResultStore
	sink       EventSink
	runTimeout time.Duration
	logger     *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	active map[string]bool
}

func New(runner Runner, store ResultStore, sink EventSink, runTimeout time.Duration, logger *zap.Logger) *Orchestrator {
	if runTimeout <= 0 {
		runTimeout = constants.PipelineDefaults.RunTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		runner:     runner,
		store:      store,
		sink:       sink,
		runTimeout: runTimeout,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
		active:     make(map[string]bool),
	}
}

// Start launches a profiling run for the user unless one is already active.
// Returns false when the start was rejected; a rejected start emits nothing.
func (o *Orchestrator) Start(raw *domain.RawInterests) bool {
	userID := raw.UserID

	o.mu.Lock()
	if o.active[userID] {
		o.mu.Unlock()
		o.logger.Info("Profiling run already active, ignoring start", zap.String("user_id", userID))
		return false
	}
	o.active[userID] = true
	o.mu.Unlock()

	o.sink.Deliver(userID, events.New(events.TypeAgentStarted, userID, events.LifecycleData{
		Redirect: "/profiling",
	}))

	o.wg.Add(1)
	go o.run(userID, raw)

	return true
}

func (o *Orchestrator) run(userID string, raw *domain.RawInterests) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		delete(o.active, userID)
		o.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(o.baseCtx, o.runTimeout)
	defer cancel()

	started := time.Now()
	result, err := o.runner.Run(ctx, raw)
	if err != nil {
		o.logger.Error("Profiling run failed",
			zap.String("user_id", userID),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		o.sink.Deliver(userID, events.New(events.TypeMessage, userID, events.MessageData{
			Stage: "error",
			Text:  "Something went wrong while building your profile. Please try again.",
		}))
		return
	}

	if err := o.store.SaveProfileResult(ctx, userID, result); err != nil {
		o.logger.Error("Failed to persist profile result",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		o.sink.Deliver(userID, events.New(events.TypeMessage, userID, events.MessageData{
			Stage: "error",
			Text:  "Your profile was built but could not be saved. Please try again.",
		}))
		return
	}

	o.logger.Info("Profiling run complete",
		zap.String("user_id", userID),
		zap.Duration("elapsed", time.Since(started)),
	)

	o.sink.Deliver(userID, events.New(events.TypeAgentCompleted, userID, events.LifecycleData{
		Redirect: "/dashboard",
	}))
}

// IsActive reports whether the user currently has a run in flight.
func (o *Orchestrator) IsActive(userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active[userID]
}

// Shutdown cancels in-flight runs and waits for them to unwind.
func (o *Orchestrator) Shutdown() {
	o.cancel()
	o.wg.Wait()
}

// Wait blocks until all active runs finish without cancelling them.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
