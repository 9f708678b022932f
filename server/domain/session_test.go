package domain_test

import (
	"testing"
	"time"

	domain "dogfight/server/domain"
)

func TestSession_CloseOnlyOnce(t *testing.T) {
	s := domain.NewSession()
	if !s.Close() {
		t.Fatal("first Close should return true")
	}
	if s.Close() {
		t.Fatal("second Close should return false")
	}
	if !s.IsClosed() {
		t.Fatal("session should be closed")
	}
}

func TestSession_IsIdle(t *testing.T) {
	s := domain.NewSession()

	if ok, reason := s.IsIdle(0); ok || reason != domain.IdleDisabled {
		t.Fatalf("timeout 0: got (%v, %v), want (false, disabled)", ok, reason)
	}
	if ok, _ := s.IsIdle(time.Hour); ok {
		t.Fatal("fresh session should not be idle")
	}

	time.Sleep(5 * time.Millisecond)
	s.TouchRead()
	ok, reason := s.IsIdle(time.Millisecond)
	if !ok {
		t.Fatal("session should be idle")
	}
	if reason.Has(domain.IdleRead) {
		t.Fatalf("read was just touched: %v", reason)
	}
	if !reason.Dead() {
		t.Fatalf("pong idle should be dead: %v", reason)
	}
}

func TestIdleReason_String(t *testing.T) {
	tests := []struct {
		reason domain.IdleReason
		want   string
	}{
		{domain.IdleNone, "none"},
		{domain.IdleDisabled, "disabled"},
		{domain.IdleRead, "read"},
		{domain.IdleRead | domain.IdlePong, "read|pong"},
		{domain.IdleRead | domain.IdleWrite | domain.IdlePong, "read|write|pong"},
	}
	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("IdleReason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestParseSessionID(t *testing.T) {
	id := domain.NewSessionID()
	got, err := domain.ParseSessionID(id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Fatalf("got %q, want %q", got, id)
	}
	if _, err := domain.ParseSessionID("not-a-uuid"); err == nil {
		t.Fatal("expected error for invalid id")
	}
}
