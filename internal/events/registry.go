package events

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// CloseReasonSuperseded is passed to a channel that is replaced by a newer
// connection for the same user.
const CloseReasonSuperseded = "superseded"

// Channel is one live push connection. Send must be safe to call from
// multiple goroutines; a returned error marks the channel dead and it will
// be pruned on the next delivery.
type Channel interface {
	Send(data []byte) error
	CloseWithReason(reason string) error
}

// Registry maps a user identity to at most one live push channel. It is an
// explicit instance handed around via dependency injection so tests can run
// isolated registries.
type Registry struct {
	mu       sync.RWMutex
	channels map[string][]Channel
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		channels: make(map[string][]Channel),
		logger:   logger,
	}
}

// Register stores ch as the user's push channel. Any existing channel is
// closed with a "superseded" reason first, keeping at most one open channel
// per user.
func (r *Registry) Register(userID string, ch Channel) {
	r.mu.Lock()
	existing := r.channels[userID]
	r.channels[userID] = []Channel{ch}
	r.mu.Unlock()

	for _, old := range existing {
		if err := old.CloseWithReason(CloseReasonSuperseded); err != nil {
			r.logger.Debug("Failed to close superseded channel",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	r.logger.Info("Channel registered",
		zap.String("user_id", userID),
		zap.Int("superseded", len(existing)),
	)
}

// Unregister removes ch for the user; the user entry disappears entirely
// once its last channel is gone.
func (r *Registry) Unregister(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := r.channels[userID][:0]
	for _, existing := range r.channels[userID] {
		if existing != ch {
			remaining = append(remaining, existing)
		}
	}

	if len(remaining) == 0 {
		delete(r.channels, userID)
	} else {
		r.channels[userID] = remaining
	}

	r.logger.Info("Channel unregistered",
		zap.String("user_id", userID),
		zap.Int("remaining", len(remaining)),
	)
}

// Deliver serializes the event and writes it to every channel registered for
// the user, pruning channels whose write fails. It reports whether at least
// one channel accepted the write. No channel is the expected common case
// before the UI subscribes, never an error, and delivery failures are never
// propagated to callers.
func (r *Registry) Deliver(userID string, event *Event) bool {
	r.mu.RLock()
	channels := make([]Channel, len(r.channels[userID]))
	copy(channels, r.channels[userID])
	r.mu.RUnlock()

	if len(channels) == 0 {
		return false
	}

	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("Failed to serialize event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return false
	}

	delivered := false
	var dead []Channel
	for _, ch := range channels {
		if err := ch.Send(data); err != nil {
			dead = append(dead, ch)
			continue
		}
		delivered = true
	}

	for _, ch := range dead {
		r.Unregister(userID, ch)
	}

	return delivered
}

// IsOnline reports whether the user currently has a registered channel.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[userID]) > 0
}
