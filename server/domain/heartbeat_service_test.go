package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "dogfight/server/domain"
	"dogfight/server/domain/mocks"

	"go.uber.org/mock/gomock"
)

func TestHeartbeatService_PingTouchesPong(t *testing.T) {
	ctrl := gomock.NewController(t)

	session := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)

	pinged := make(chan struct{}, 1)
	tr.EXPECT().Ping(gomock.Any()).DoAndReturn(func(context.Context) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	}).MinTimes(1)

	hb := domain.NewHeartbeatService(20*time.Millisecond, session, tr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hb.Run(ctx) }()

	select {
	case <-pinged:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ping")
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.IsPongIdle(time.Second) {
		t.Fatal("pong should have been touched")
	}
}

func TestHeartbeatService_ReturnsErrorOnPingFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	session := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	pingErr := errors.New("broken pipe")
	tr.EXPECT().Ping(gomock.Any()).Return(pingErr).Times(1)

	hb := domain.NewHeartbeatService(10*time.Millisecond, session, tr)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := hb.Run(ctx)
	if !errors.Is(err, pingErr) {
		t.Fatalf("got %v, want %v", err, pingErr)
	}
}

func TestHeartbeatService_StopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)

	session := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Ping(gomock.Any()).Return(nil).AnyTimes()

	hb := domain.NewHeartbeatService(50*time.Millisecond, session, tr)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = hb.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
		// 正常終了
	case <-time.After(1 * time.Second):
		t.Fatal("HeartbeatService did not stop after context cancel")
	}
}
