package domain_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	domain "dogfight/server/domain"
	"dogfight/server/domain/mocks"

	"go.uber.org/mock/gomock"
)

func testEndpointConfig() domain.EndpointConfig {
	return domain.EndpointConfig{
		WriteQueueSize: 8,
		TickInterval:   16 * time.Millisecond,
		ShipModel:      "Bob",
	}
}

func TestNewSessionEndpoint_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	c := domain.NewConnection(s.ID(), mocks.NewMockTransport(ctrl))
	hub := domain.NewHub(domain.JSONCodec{}, nil)

	_, err := domain.NewSessionEndpoint(context.Background(), s, c, domain.JSONCodec{}, hub, nil, testEndpointConfig())
	if !errors.Is(err, domain.ErrInitializationFailed) {
		t.Fatalf("got %v, want ErrInitializationFailed", err)
	}

	se, err := domain.NewSessionEndpoint(context.Background(), s, c, domain.JSONCodec{}, hub, mocks.NewMockIntentSink(ctrl), testEndpointConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if se == nil {
		t.Fatal("endpoint is nil")
	}
}

func TestSessionEndpoint_SendBackpressure(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	c := domain.NewConnection(s.ID(), mocks.NewMockTransport(ctrl))
	cfg := testEndpointConfig()
	cfg.WriteQueueSize = 1

	se, err := domain.NewSessionEndpoint(context.Background(), s, c, domain.JSONCodec{}, domain.NewHub(domain.JSONCodec{}, nil), mocks.NewMockIntentSink(ctrl), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := se.Send([]byte("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := se.Send([]byte("b")); !errors.Is(err, domain.ErrBackpressure) {
		t.Fatalf("got %v, want ErrBackpressure", err)
	}
}

// 接続から切断までの一連の流れ: welcome送信, join, intent転送, 切断時のleave
func TestSessionEndpoint_Lifecycle(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	sink := mocks.NewMockIntentSink(ctrl)
	hub := domain.NewHub(domain.JSONCodec{}, nil)

	written := make(chan []byte, 8)
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, data []byte) error {
		written <- data
		return nil
	}).AnyTimes()

	var welcome []byte
	first := tr.EXPECT().Read(gomock.Any()).DoAndReturn(func(context.Context) ([]byte, error) {
		select {
		case welcome = <-written:
		case <-time.After(time.Second):
			return nil, errors.New("welcome was not written")
		}
		return []byte(`{"type":"fire_bullet","payload":{"position":{"x":0,"y":0,"z":0},"velocity":{"x":0,"y":0,"z":-10}}}`), nil
	})
	second := tr.EXPECT().Read(gomock.Any()).Return([]byte(`{{{`), nil).After(first)
	tr.EXPECT().Read(gomock.Any()).Return(nil, io.EOF).After(second)
	tr.EXPECT().Close(domain.CloseNormal, gomock.Any()).Return(nil).Times(1)

	gomock.InOrder(
		sink.EXPECT().Submit(gomock.Any(), gomock.AssignableToTypeOf(domain.JoinIntent{})).DoAndReturn(func(_ context.Context, in domain.Intent) error {
			join := in.(domain.JoinIntent)
			if join.SessionID != s.ID() || join.ShipModel != "Bob" || join.Subscriber == nil {
				t.Errorf("unexpected join intent: %+v", join)
			}
			join.Result <- nil
			return nil
		}),
		sink.EXPECT().TrySubmit(domain.FireBulletIntent{SessionID: s.ID(), Velocity: domain.Vec3{Z: -10}}).Return(nil),
		sink.EXPECT().Submit(gomock.Any(), domain.LeaveIntent{SessionID: s.ID()}).Return(nil),
	)

	c := domain.NewConnection(s.ID(), tr)
	se, err := domain.NewSessionEndpoint(context.Background(), s, c, domain.JSONCodec{}, hub, sink, testEndpointConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- se.Run() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint did not stop after read error")
	}

	var env struct {
		Type    string         `json:"type"`
		Payload domain.Welcome `json:"payload"`
	}
	if err := json.Unmarshal(welcome, &env); err != nil {
		t.Fatalf("unmarshal welcome: %v", err)
	}
	if env.Type != domain.EventWelcome || env.Payload.ID != s.ID() || env.Payload.TickIntervalMs != 16 {
		t.Fatalf("unexpected welcome: %+v", env)
	}
	if !s.IsClosed() {
		t.Fatal("session should be closed")
	}
	if hub.Count() != 0 {
		t.Fatal("endpoint should be unregistered from hub")
	}
}

func TestSessionEndpoint_JoinFailureSkipsLeave(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	sink := mocks.NewMockIntentSink(ctrl)

	tr.EXPECT().Close(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	sink.EXPECT().Submit(gomock.Any(), gomock.AssignableToTypeOf(domain.JoinIntent{})).Return(context.Canceled)

	c := domain.NewConnection(s.ID(), tr)
	se, err := domain.NewSessionEndpoint(context.Background(), s, c, domain.JSONCodec{}, domain.NewHub(domain.JSONCodec{}, nil), sink, testEndpointConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := se.Run(); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

// 参加を拒否されたらキューに残ったフレームを送ってから閉じ、leaveは送らない
func TestSessionEndpoint_JoinRejectedFlushesAndCloses(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	sink := mocks.NewMockIntentSink(ctrl)
	hub := domain.NewHub(domain.JSONCodec{}, nil)

	var written []string
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, data []byte) error {
		env, err := domain.JSONCodec{}.Decode(data)
		if err != nil {
			return err
		}
		written = append(written, env.Type)
		return nil
	}).Times(2)
	tr.EXPECT().Close(domain.CloseNormal, gomock.Any()).Return(nil).Times(1)

	sink.EXPECT().Submit(gomock.Any(), gomock.AssignableToTypeOf(domain.JoinIntent{})).DoAndReturn(func(_ context.Context, in domain.Intent) error {
		join := in.(domain.JoinIntent)
		// Roomの代わりに登録してerrorイベントを配送し、拒否を返す
		hub.Register(join.SessionID, join.Subscriber)
		hub.Publish(context.Background(), domain.Event{
			Name:    domain.EventError,
			Payload: domain.ErrorPayload{Code: domain.ErrorCodeArenaFull},
		}, domain.ToSession(join.SessionID))
		join.Result <- errors.New("arena is full")
		return nil
	})

	c := domain.NewConnection(s.ID(), tr)
	se, err := domain.NewSessionEndpoint(context.Background(), s, c, domain.JSONCodec{}, hub, sink, testEndpointConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := se.Run(); !errors.Is(err, domain.ErrJoinRejected) {
		t.Fatalf("got %v, want ErrJoinRejected", err)
	}
	if len(written) != 2 || written[0] != domain.EventWelcome || written[1] != domain.EventError {
		t.Fatalf("written = %v, want [welcome error]", written)
	}
	if !s.IsClosed() {
		t.Fatal("session should be closed")
	}
	if hub.Count() != 0 {
		t.Fatalf("hub.Count() = %d, want 0", hub.Count())
	}
}
