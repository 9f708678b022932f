package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dogfight/server/application"
	"dogfight/server/domain"
	"dogfight/server/handler"
	"dogfight/utils"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	botMoveSpeed    = 30.0
	botBulletSpeed  = 80.0
	botMuzzleOffset = 2.0 // 自機の当たり判定の外から撃つ
)

var errBotOut = errors.New("bot is out of the arena")

type botConfig struct {
	url          string
	codec        domain.Codec
	tokens       *handler.TokenVerifier
	ship         string
	fireInterval time.Duration
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	botCount := utils.GetEnvInt("BOT_COUNT", 5)

	codec, err := domain.NewCodec(utils.GetEnvDefault("WIRE_CODEC", "json"))
	if err != nil {
		slog.Error("invalid codec", "err", err)
		os.Exit(1)
	}

	cfg := botConfig{
		url:          fmt.Sprintf("ws://%s:%s/ws", addr, port),
		codec:        codec,
		ship:         utils.GetEnvDefault("BOT_SHIP_MODEL", "Bot"),
		fireInterval: utils.GetEnvDuration("BOT_FIRE_INTERVAL", 500*time.Millisecond),
	}
	if secret := os.Getenv("JOIN_TOKEN_SECRET"); secret != "" {
		cfg.tokens = handler.NewTokenVerifier(secret)
	}

	slog.Info("starting bots", "count", botCount, "url", cfg.url, "codec", codec.Name())

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, id, cfg)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, id int, cfg botConfig) {
	logger := slog.With("bot", id)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := botSession(ctx, logger, cfg); err != nil {
			logger.Warn("bot session ended", "err", err)
		}
		// 再接続前に少し待つ
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func dialURL(cfg botConfig) (string, error) {
	if cfg.tokens == nil {
		return cfg.url, nil
	}
	token, err := cfg.tokens.Issue(uuid.NewString(), cfg.ship, time.Hour)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return cfg.url + "?token=" + token, nil
}

func botSession(ctx context.Context, logger *slog.Logger, cfg botConfig) error {
	url, err := dialURL(cfg)
	if err != nil {
		return err
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected")

	msgType := websocket.MessageText
	if cfg.codec.Binary() {
		msgType = websocket.MessageBinary
	}

	view := newWorldView()
	var mu sync.Mutex
	readErr := make(chan error, 1)

	// 受信ループ
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			env, err := cfg.codec.Decode(data)
			if err != nil {
				logger.Debug("drop malformed event", "err", err)
				continue
			}
			mu.Lock()
			err = view.apply(cfg.codec, env)
			mu.Unlock()
			if err != nil {
				logger.Debug("failed to apply event", "type", env.Type, "err", err)
			}
		}
	}()

	controller := application.NewRuleBotController()
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	last := time.Now()
	var lastFire time.Time

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "shutdown")
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			mu.Lock()
			if view.out(now) {
				mu.Unlock()
				conn.Close(websocket.StatusNormalClosure, "out of arena")
				return errBotOut
			}
			view.advance(now)
			self, ok := view.self()
			if !ok || self.IsDead() {
				mu.Unlock()
				continue
			}
			action := controller.Decide(self, view.playerList(), view.bulletList())
			next := self
			next.Position = self.Position.Add(action.MoveDirection.Scale(botMoveSpeed * dt))
			next.Velocity = action.MoveDirection.Scale(botMoveSpeed)
			view.players[self.ID] = next
			mu.Unlock()

			if err := send(ctx, conn, cfg.codec, msgType, domain.MsgUpdatePosition, domain.UpdatePositionPayload{
				Position: next.Position,
				Rotation: next.Rotation,
				Velocity: next.Velocity,
			}); err != nil {
				return err
			}

			if action.Fire && now.Sub(lastFire) >= cfg.fireInterval {
				lastFire = now
				dir := action.FireDirection.Normalize()
				if err := send(ctx, conn, cfg.codec, msgType, domain.MsgFireBullet, domain.FireBulletPayload{
					Position: next.Position.Add(dir.Scale(botMuzzleOffset)),
					Velocity: dir.Scale(botBulletSpeed),
				}); err != nil {
					return err
				}
			}
		}
	}
}

func send(ctx context.Context, conn *websocket.Conn, codec domain.Codec, msgType websocket.MessageType, name string, payload any) error {
	data, err := codec.Encode(name, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := conn.Write(ctx, msgType, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
