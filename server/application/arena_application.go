package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dogfight/server/domain"
	"dogfight/server/state"
)

var (
	ErrArenaFull       = errors.New("arena is full")
	ErrAlreadyJoined   = errors.New("player already joined")
	ErrBulletCapacity  = errors.New("bullet capacity reached")
	ErrFireRateLimited = errors.New("fire rate limited")
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrUnknownIntent   = errors.New("unknown intent")
)

// Clock はIntent処理時の現在時刻を返します。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ArenaApplication はアリーナのゲームルールを実装する domain.Application です。
// Roomのゴルーチンからのみ呼ばれるため、内部状態はロックしません。
type ArenaApplication struct {
	world       state.World
	broadcaster domain.Broadcaster
	validator   Validator
	metrics     domain.MetricsRecorder
	clock       Clock
	rules       Rules

	dt       float64 // tick1回あたりの秒数
	lastFire map[domain.SessionID]time.Time
	seq      uint64
}

type Option func(*ArenaApplication)

func WithClock(clock Clock) Option {
	return func(a *ArenaApplication) {
		if clock != nil {
			a.clock = clock
		}
	}
}

func WithValidator(v Validator) Option {
	return func(a *ArenaApplication) {
		if v != nil {
			a.validator = v
		}
	}
}

func WithMetrics(m domain.MetricsRecorder) Option {
	return func(a *ArenaApplication) {
		if m != nil {
			a.metrics = m
		}
	}
}

func NewArenaApplication(world state.World, broadcaster domain.Broadcaster, rules Rules, opts ...Option) *ArenaApplication {
	if rules.DeathPolicy == "" {
		rules.DeathPolicy = DeathPolicyRespawn
	}
	app := &ArenaApplication{
		world:       world,
		broadcaster: broadcaster,
		validator:   SimpleValidator{},
		metrics:     domain.NopMetrics{},
		clock:       systemClock{},
		rules:       rules,
		dt:          rules.tickSeconds(),
		lastFire:    make(map[domain.SessionID]time.Time),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

var _ domain.Application = (*ArenaApplication)(nil)

func (app *ArenaApplication) HandleIntent(ctx context.Context, intent domain.Intent) error {
	var err error
	switch in := intent.(type) {
	case domain.JoinIntent:
		err = app.join(ctx, in)
	case domain.UpdatePositionIntent:
		err = app.updatePosition(ctx, in)
	case domain.FireBulletIntent:
		err = app.fireBullet(ctx, in)
	case domain.LeaveIntent:
		app.leave(ctx, in)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownIntent, intent)
	}
	if err != nil {
		app.metrics.IncrementCounter(ctx, domain.CounterRejectedIntents, 1)
	}
	return err
}

func (app *ArenaApplication) join(ctx context.Context, in domain.JoinIntent) error {
	if _, ok := app.world.Player(in.SessionID); ok {
		return fmt.Errorf("%w: %s", ErrAlreadyJoined, in.SessionID)
	}
	if app.rules.MaxPlayers > 0 && app.world.PlayerCount() >= app.rules.MaxPlayers {
		app.broadcaster.Publish(ctx, domain.Event{
			Name: domain.EventError,
			Payload: domain.ErrorPayload{
				Code:    domain.ErrorCodeArenaFull,
				Message: fmt.Sprintf("arena is full (%d players)", app.rules.MaxPlayers),
			},
		}, domain.ToSession(in.SessionID))
		return ErrArenaFull
	}

	ship := in.ShipModel
	if ship == "" {
		ship = DefaultShipModel
	}
	player := domain.Player{
		ID:         in.SessionID,
		ShipModel:  ship,
		LastUpdate: app.clock.Now().UnixMilli(),
		Health:     MaxHealth,
		MaxHealth:  MaxHealth,
	}

	// 参加者本人には自分を除いた既存プレイヤーの一覧を送る
	roster := app.world.Players()
	app.world.PutPlayer(player)

	app.broadcaster.Publish(ctx, domain.Event{Name: domain.EventPlayersList, Payload: roster}, domain.ToSession(player.ID))
	app.broadcaster.Publish(ctx, domain.Event{Name: domain.EventPlayerJoined, Payload: player}, domain.ToAllExcept(player.ID))

	slog.InfoContext(ctx, "player joined", "playerID", player.ID, "shipModel", ship, "players", app.world.PlayerCount())
	return nil
}

func (app *ArenaApplication) updatePosition(ctx context.Context, in domain.UpdatePositionIntent) error {
	player, ok := app.world.Player(in.SessionID)
	if !ok {
		return nil
	}
	if err := app.validator.UpdatePosition(in); err != nil {
		return err
	}

	player.Position = in.Position
	player.Rotation = in.Rotation
	player.Velocity = in.Velocity
	player.LastUpdate = app.clock.Now().UnixMilli()
	app.world.PutPlayer(player)

	app.broadcaster.Publish(ctx, domain.Event{
		Name: domain.EventPlayerMoved,
		Payload: domain.PlayerMoved{
			ID:        player.ID,
			Position:  player.Position,
			Rotation:  player.Rotation,
			Velocity:  player.Velocity,
			Health:    player.Health,
			MaxHealth: player.MaxHealth,
		},
	}, domain.ToAllExcept(player.ID))
	return nil
}

func (app *ArenaApplication) fireBullet(ctx context.Context, in domain.FireBulletIntent) error {
	if _, ok := app.world.Player(in.SessionID); !ok {
		return nil
	}
	if err := app.validator.FireBullet(in); err != nil {
		return err
	}
	if app.rules.MaxBullets > 0 && app.world.BulletCount() >= app.rules.MaxBullets {
		return fmt.Errorf("%w: %d active", ErrBulletCapacity, app.rules.MaxBullets)
	}
	if app.rules.MaxBulletsPerPlayer > 0 && app.world.BulletCountOwnedBy(in.SessionID) >= app.rules.MaxBulletsPerPlayer {
		return fmt.Errorf("%w: %d active for %s", ErrBulletCapacity, app.rules.MaxBulletsPerPlayer, in.SessionID)
	}

	now := app.clock.Now()
	if app.rules.FireCooldown > 0 {
		if last, ok := app.lastFire[in.SessionID]; ok && now.Sub(last) < app.rules.FireCooldown {
			return ErrFireRateLimited
		}
		app.lastFire[in.SessionID] = now
	}

	bullet := domain.Bullet{
		ID:        fmt.Sprintf("%s_%d_%d", in.SessionID, now.UnixMilli(), app.seq),
		PlayerID:  in.SessionID,
		Position:  in.Position,
		Velocity:  in.Velocity,
		Timestamp: now.UnixMilli(),
	}
	app.seq++
	app.world.PutBullet(bullet)

	app.broadcaster.Publish(ctx, domain.Event{Name: domain.EventBulletFired, Payload: bullet}, domain.ToAll())
	return nil
}

func (app *ArenaApplication) leave(ctx context.Context, in domain.LeaveIntent) {
	existed := app.world.DeletePlayer(in.SessionID)
	removed := app.world.DeleteBulletsOwnedBy(in.SessionID)
	delete(app.lastFire, in.SessionID)
	if !existed {
		return
	}

	app.broadcaster.Publish(ctx, domain.Event{Name: domain.EventPlayerLeft, Payload: in.SessionID}, domain.ToAllExcept(in.SessionID))
	slog.InfoContext(ctx, "player left", "playerID", in.SessionID, "removedBullets", len(removed), "players", app.world.PlayerCount())
}
