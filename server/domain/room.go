package domain

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type RoomID string

var ErrRoomBusy = errors.New("room inbox is full")

const tracerName = "dogfight/server/domain"

// RoomConfig はRoomのtick駆動パラメータです。
type RoomConfig struct {
	TickInterval time.Duration
	InboxSize    int
	// MaxCatchUpTicks は1回の起床で追いつきのために実行するtickの上限です。超過分は破棄します。
	MaxCatchUpTicks int
}

func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		TickInterval:    16 * time.Millisecond,
		InboxSize:       1024,
		MaxCatchUpTicks: 5,
	}
}

// Room はワールドを所有する唯一のゴルーチンです。
// Intentは到着順に即時処理し、tickはティッカーから駆動します。
type Room struct {
	ID RoomID

	application Application // 外部からアプリケーションロジックを注入できる
	metrics     MetricsRecorder
	tracer      trace.Tracer
	now         func() time.Time

	inbox    chan Intent
	cfg      RoomConfig
	registry Registry
}

type RoomOption func(*Room)

// WithRegistry を指定すると JoinIntent.Subscriber をjoin処理の直前に登録し、joinが失敗したら解除します。
func WithRegistry(registry Registry) RoomOption {
	return func(r *Room) { r.registry = registry }
}

func NewRoom(id RoomID, application Application, metrics MetricsRecorder, cfg RoomConfig, opts ...RoomOption) *Room {
	def := DefaultRoomConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.MaxCatchUpTicks <= 0 {
		cfg.MaxCatchUpTicks = def.MaxCatchUpTicks
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	r := &Room{
		ID:          id,
		application: application,
		metrics:     metrics,
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
		inbox:       make(chan Intent, cfg.InboxSize),
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Room) TickInterval() time.Duration {
	return r.cfg.TickInterval
}

func (r *Room) Submit(ctx context.Context, intent Intent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.inbox <- intent:
		return nil
	}
}

func (r *Room) TrySubmit(intent Intent) error {
	select {
	case r.inbox <- intent:
		return nil
	default:
		return ErrRoomBusy
	}
}

func (r *Room) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "room started", "roomID", r.ID, "tickInterval", r.cfg.TickInterval)
	last := r.now()
	var debt time.Duration

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "room stopped", "roomID", r.ID)
			return nil
		case intent := <-r.inbox:
			r.handle(ctx, intent)
		case <-ticker.C:
			now := r.now()
			debt += now.Sub(last)
			last = now

			var ticks, skipped int
			ticks, skipped, debt = catchUp(debt, r.cfg.TickInterval, r.cfg.MaxCatchUpTicks)
			if skipped > 0 {
				r.metrics.IncrementCounter(ctx, CounterSkippedTicks, int64(skipped))
				slog.WarnContext(ctx, "room fell behind, dropping ticks", "roomID", r.ID, "skipped", skipped)
			}
			for range ticks {
				r.tick(ctx, now)
			}
		}
	}
}

func (r *Room) handle(ctx context.Context, intent Intent) {
	join, isJoin := intent.(JoinIntent)
	subscribed := isJoin && join.Subscriber != nil && r.registry != nil
	if subscribed {
		r.registry.Register(join.SessionID, join.Subscriber)
	}

	err := r.application.HandleIntent(ctx, intent)
	if err != nil {
		slog.DebugContext(ctx, "intent rejected", "roomID", r.ID, "sender", intent.Sender(), "err", err)
	}
	if !isJoin {
		return
	}
	// 拒否された参加者には以後のイベントを配送しない
	if err != nil && subscribed {
		r.registry.Unregister(join.SessionID)
	}
	if join.Result != nil {
		select {
		case join.Result <- err:
		default:
		}
	}
}

func (r *Room) tick(ctx context.Context, now time.Time) {
	ctx, span := r.tracer.Start(ctx, "room.tick", trace.WithAttributes(attribute.String("room.id", string(r.ID))))
	defer span.End()

	start := time.Now()
	r.application.Tick(ctx, now)
	elapsed := time.Since(start)

	r.metrics.RecordTick(ctx, elapsed)
	if elapsed > r.cfg.TickInterval {
		slog.WarnContext(ctx, "tick exceeded budget", "roomID", r.ID, "elapsed", elapsed, "budget", r.cfg.TickInterval)
	}
}

// catchUp は蓄積した遅れから実行すべきtick数を求めます。
// 上限を超えた分はskippedとして返し、端数だけを次回に持ち越します。
func catchUp(debt, interval time.Duration, maxTicks int) (ticks, skipped int, remaining time.Duration) {
	if interval <= 0 || debt < interval {
		return 0, 0, debt
	}
	n := int(debt / interval)
	remaining = debt % interval
	if n > maxTicks {
		return maxTicks, n - maxTicks, remaining
	}
	return n, 0, remaining
}
