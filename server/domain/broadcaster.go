package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Event はコアが生成する送信イベントです。
type Event struct {
	Name    string
	Payload any
}

type TargetKind uint8

const (
	TargetAll TargetKind = iota
	TargetSession
	TargetAllExcept
)

// Target はイベントの宛先の選択子です。
type Target struct {
	Kind      TargetKind
	SessionID SessionID
}

func ToAll() Target { return Target{Kind: TargetAll} }
func ToSession(id SessionID) Target { return Target{Kind: TargetSession, SessionID: id} }
func ToAllExcept(id SessionID) Target { return Target{Kind: TargetAllExcept, SessionID: id} }

// Includes は id が宛先に含まれるかを返します。
func (t Target) Includes(id SessionID) bool {
	switch t.Kind {
	case TargetSession:
		return id == t.SessionID
	case TargetAllExcept:
		return id != t.SessionID
	default:
		return true
	}
}

//go:generate go tool mockgen -destination=./mocks/broadcaster_mock.go -package=mocks . Broadcaster

// Broadcaster はイベントを宛先に配送します。送信は投げっぱなしで、呼び出し側をブロックしません。
type Broadcaster interface {
	Publish(ctx context.Context, event Event, target Target)
}

// Subscriber はHubに登録される送信キューです。満杯のときは ErrBackpressure を返す必要があります。
type Subscriber interface {
	Send(data []byte) error
}

// Registry はセッションの送信キューを登録・解除します。
type Registry interface {
	Register(id SessionID, sub Subscriber)
	Unregister(id SessionID)
}

// Hub はセッションごとの有界キューへイベントをファンアウトします。
// キューが満杯のセッションには新しいイベントを破棄 (drop-new) します。
type Hub struct {
	codec   Codec
	metrics MetricsRecorder

	mu          sync.RWMutex
	subscribers map[SessionID]Subscriber
}

func NewHub(codec Codec, metrics MetricsRecorder) *Hub {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Hub{
		codec:       codec,
		metrics:     metrics,
		subscribers: make(map[SessionID]Subscriber),
	}
}

var (
	_ Broadcaster = (*Hub)(nil)
	_ Registry    = (*Hub)(nil)
)

func (h *Hub) Register(id SessionID, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[id] = sub
}

func (h *Hub) Unregister(id SessionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) Publish(ctx context.Context, event Event, target Target) {
	data, err := h.codec.Encode(event.Name, event.Payload)
	if err != nil {
		slog.ErrorContext(ctx, "hub: encode failed", "event", event.Name, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if target.Kind == TargetSession {
		if sub, ok := h.subscribers[target.SessionID]; ok {
			h.send(ctx, target.SessionID, sub, event.Name, data)
		}
		return
	}
	for id, sub := range h.subscribers {
		if !target.Includes(id) {
			continue
		}
		h.send(ctx, id, sub, event.Name, data)
	}
}

func (h *Hub) send(ctx context.Context, id SessionID, sub Subscriber, name string, data []byte) {
	err := sub.Send(data)
	if err == nil {
		return
	}
	if errors.Is(err, ErrBackpressure) {
		h.metrics.IncrementCounter(ctx, CounterDroppedSends, 1)
		slog.WarnContext(ctx, "hub: send queue full, event dropped", "sessionID", id, "event", name)
		return
	}
	slog.DebugContext(ctx, "hub: send failed", "sessionID", id, "event", name, "err", err)
}
