package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type enumerates the progress event kinds shared by every pipeline stage.
type Type string

const (
	TypeMessage        Type = "message"
	TypeInsight        Type = "insight"
	TypeTimelineUpdate Type = "timeline_update"
	TypeAgentStarted   Type = "agent_started"
	TypeAgentCompleted Type = "agent_completed"
	TypeConnected      Type = "connected"
	TypePing           Type = "ping"
	TypePong           Type = "pong"
)

// Event is the uniform envelope for all progress communication. The same
// envelope serializes identically over any transport.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Data      any       `json:"data,omitempty"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// New builds an envelope with a unique ID. Timestamp plus a random suffix is
// enough for client-side deduplication and ordering.
func New(t Type, userID string, data any) *Event {
	now := time.Now()
	return &Event{
		ID:        fmt.Sprintf("%d_%s", now.UnixNano(), uuid.NewString()[:8]),
		Type:      t,
		Data:      data,
		UserID:    userID,
		Timestamp: now,
	}
}

// MessageData is the payload of a message event. Stage labels the pipeline
// stage the message belongs to; an error-stage message is terminal for the run.
type MessageData struct {
	Stage string `json:"stage"`
	Text  string `json:"text"`
}

// InsightData is the payload of an insight event.
type InsightData struct {
	Stage    string `json:"stage"`
	Kind     string `json:"kind"`
	Category string `json:"category,omitempty"`
	Payload  any    `json:"payload,omitempty"`
}

// TimelineData re-emits the whole timeline so the client always holds
// consistent state even if it missed an earlier update.
type TimelineData struct {
	Items any `json:"items"`
}

// LifecycleData is carried by agent_started and agent_completed events. The
// redirect target tells the UI which page to navigate to.
type LifecycleData struct {
	Redirect string `json:"redirect"`
}

// SummaryData reports stage completion counts, e.g. how many of the input
// entities resolved successfully.
type SummaryData struct {
	Stage      string `json:"stage"`
	Successful int    `json:"successful"`
	Total      int    `json:"total"`
}
