package events

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type fakeChannel struct {
	sent         [][]byte
	sendErr      error
	closeReasons []string
}

func (f *fakeChannel) Send(data []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeChannel) CloseWithReason(reason string) error {
	f.closeReasons = append(f.closeReasons, reason)
	return nil
}

func TestRegisterSupersedesExistingChannel(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	first := &fakeChannel{}
	second := &fakeChannel{}

	registry.Register("u1", first)
	registry.Register("u1", second)

	if len(first.closeReasons) != 1 || first.closeReasons[0] != CloseReasonSuperseded {
		t.Fatalf("expected first channel closed with superseded reason, got %v", first.closeReasons)
	}

	if !registry.Deliver("u1", New(TypeMessage, "u1", nil)) {
		t.Fatalf("expected delivery to succeed")
	}
	if len(first.sent) != 0 {
		t.Fatalf("superseded channel should not receive writes, got %d", len(first.sent))
	}
	if len(second.sent) != 1 {
		t.Fatalf("expected one write on the new channel, got %d", len(second.sent))
	}
}

func TestDeliverWithoutChannelIsSilentNoop(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	if registry.Deliver("nobody", New(TypeInsight, "nobody", nil)) {
		t.Fatalf("expected delivery to report false when no channel is open")
	}
	if registry.IsOnline("nobody") {
		t.Fatalf("expected user to be offline")
	}
}

func TestDeliverPrunesDeadChannels(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	dead := &fakeChannel{sendErr: errors.New("connection closed")}
	registry.Register("u1", dead)

	if registry.Deliver("u1", New(TypeMessage, "u1", nil)) {
		t.Fatalf("expected delivery to fail for a dead channel")
	}
	if registry.IsOnline("u1") {
		t.Fatalf("expected dead channel to be pruned")
	}
}

func TestUnregisterRemovesUserEntry(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	ch := &fakeChannel{}
	registry.Register("u1", ch)
	if !registry.IsOnline("u1") {
		t.Fatalf("expected user online after register")
	}

	registry.Unregister("u1", ch)
	if registry.IsOnline("u1") {
		t.Fatalf("expected user offline after unregister")
	}
}

func TestEventEnvelopeSerialization(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	ch := &fakeChannel{}
	registry.Register("u1", ch)

	event := New(TypeTimelineUpdate, "u1", TimelineData{Items: []string{"a"}})
	registry.Deliver("u1", event)

	if len(ch.sent) != 1 {
		t.Fatalf("expected one serialized event, got %d", len(ch.sent))
	}

	var decoded Event
	if err := json.Unmarshal(ch.sent[0], &decoded); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if decoded.Type != TypeTimelineUpdate {
		t.Fatalf("unexpected type %q", decoded.Type)
	}
	if decoded.UserID != "u1" {
		t.Fatalf("unexpected user id %q", decoded.UserID)
	}
	if decoded.ID == "" || !strings.Contains(decoded.ID, "_") {
		t.Fatalf("expected timestamp_suffix event id, got %q", decoded.ID)
	}
}

func TestEventIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ev := New(TypePing, "u1", nil)
		if _, dup := seen[ev.ID]; dup {
			t.Fatalf("duplicate event id %q", ev.ID)
		}
		seen[ev.ID] = struct{}{}
	}
}
