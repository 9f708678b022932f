package domain

import (
	"context"
	"time"
)

// MetricsRecorder はシミュレーションと配信の計測値を受け取ります。
type MetricsRecorder interface {
	RecordTick(ctx context.Context, duration time.Duration)
	IncrementCounter(ctx context.Context, name string, delta int64)
}

// カウンタ名
const (
	CounterDroppedSends    = "hub.dropped_sends"
	CounterRejectedIntents = "arena.rejected_intents"
	CounterExpiredBullets  = "arena.expired_bullets"
	CounterSkippedTicks    = "room.skipped_ticks"
)

type NopMetrics struct{}

func (NopMetrics) RecordTick(ctx context.Context, duration time.Duration) {}
func (NopMetrics) IncrementCounter(ctx context.Context, name string, delta int64) {}

var _ MetricsRecorder = NopMetrics{}
