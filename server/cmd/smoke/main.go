package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"dogfight/server"
	"dogfight/server/application"
	"dogfight/server/domain"
	"dogfight/server/handler"
	"dogfight/server/state/memory"
	"dogfight/utils"

	"github.com/coder/websocket"
)

// スモークテスト: サーバーをプロセス内で起動し、2クライアントで参加から被弾までを確認する
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slog.SetLogLoggerLevel(slog.LevelDebug)

	addr := utils.GetEnvDefault("SMOKE_ADDR", "localhost:9091")
	codec := domain.JSONCodec{}

	// 初期化
	world := memory.NewConcurrentStore(memory.NewStore(nil))
	hub := domain.NewHub(codec, domain.NopMetrics{})
	app := application.NewArenaApplication(world, hub, application.DefaultRules())
	room := domain.NewRoom("smoke", app, domain.NopMetrics{}, domain.DefaultRoomConfig(), domain.WithRegistry(hub))

	accept := handler.NewAcceptHandler(hub, room, codec, domain.DefaultEndpointConfig(), handler.WithBaseContext(ctx))
	srv := server.NewServer(addr, server.Route(accept, handler.NewHealthHandler(world, time.Now())))

	// 起動
	go func() {
		if err := room.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			slog.ErrorContext(ctx, "room error", "err", err)
		}
	}()
	go func() {
		if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "server error", "err", err)
		}
	}()
	slog.Info("server started", "addr", addr)
	time.Sleep(100 * time.Millisecond)

	err := scenario(ctx, "ws://"+addr+"/ws", codec)
	if err != nil {
		slog.Error("SMOKE TEST FAILED", "err", err)
	} else {
		slog.Info("SMOKE TEST PASSED")
	}

	// クリーンアップ
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	if err != nil {
		os.Exit(1)
	}
}

type smokeClient struct {
	conn  *websocket.Conn
	codec domain.Codec
	id    domain.SessionID
}

func dial(ctx context.Context, url string, codec domain.Codec) (*smokeClient, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	c := &smokeClient{conn: conn, codec: codec}
	env, err := c.await(ctx, domain.EventWelcome)
	if err != nil {
		conn.CloseNow()
		return nil, err
	}
	welcome, err := domain.DecodePayload[domain.Welcome](codec, env)
	if err != nil {
		conn.CloseNow()
		return nil, err
	}
	c.id = welcome.ID
	slog.Info("welcome received", "id", c.id, "tickIntervalMs", welcome.TickIntervalMs)
	return c, nil
}

// await は指定したイベントが届くまで読み進めます。それ以外のイベントは読み捨てます。
func (c *smokeClient) await(ctx context.Context, name string) (domain.Envelope, error) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return domain.Envelope{}, fmt.Errorf("waiting for %s: %w", name, err)
		}
		env, err := c.codec.Decode(data)
		if err != nil {
			return domain.Envelope{}, err
		}
		if env.Type == name {
			return env, nil
		}
	}
}

func (c *smokeClient) send(ctx context.Context, name string, payload any) error {
	data, err := c.codec.Encode(name, payload)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func scenario(ctx context.Context, url string, codec domain.Codec) error {
	shooter, err := dial(ctx, url, codec)
	if err != nil {
		return fmt.Errorf("shooter: %w", err)
	}
	defer shooter.conn.Close(websocket.StatusNormalClosure, "done")

	target, err := dial(ctx, url, codec)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}

	env, err := target.await(ctx, domain.EventPlayersList)
	if err != nil {
		return err
	}
	roster, err := domain.DecodePayload[[]domain.Player](codec, env)
	if err != nil {
		return err
	}
	if len(roster) != 1 || roster[0].ID != shooter.id {
		return fmt.Errorf("unexpected roster: %+v", roster)
	}

	env, err = shooter.await(ctx, domain.EventPlayerJoined)
	if err != nil {
		return err
	}
	joined, err := domain.DecodePayload[domain.Player](codec, env)
	if err != nil {
		return err
	}
	if joined.ID != target.id {
		return fmt.Errorf("joined %s, want %s", joined.ID, target.id)
	}

	// target を x=10 に移動させ、shooter から撃つ
	if err := target.send(ctx, domain.MsgUpdatePosition, domain.UpdatePositionPayload{Position: domain.Vec3{X: 10}}); err != nil {
		return err
	}
	if _, err := shooter.await(ctx, domain.EventPlayerMoved); err != nil {
		return err
	}
	if err := shooter.send(ctx, domain.MsgFireBullet, domain.FireBulletPayload{
		Position: domain.Vec3{X: 5},
		Velocity: domain.Vec3{X: 100},
	}); err != nil {
		return err
	}

	env, err = target.await(ctx, domain.EventPlayerHit)
	if err != nil {
		return err
	}
	hit, err := domain.DecodePayload[domain.PlayerHit](codec, env)
	if err != nil {
		return err
	}
	if hit.PlayerID != target.id || hit.Health != application.MaxHealth-application.HitDamage {
		return fmt.Errorf("unexpected hit: %+v", hit)
	}
	slog.Info("hit confirmed", "target", hit.PlayerID, "health", hit.Health)

	target.conn.Close(websocket.StatusNormalClosure, "leaving")
	env, err = shooter.await(ctx, domain.EventPlayerLeft)
	if err != nil {
		return err
	}
	left, err := domain.DecodePayload[domain.SessionID](codec, env)
	if err != nil {
		return err
	}
	if left != target.id {
		return fmt.Errorf("left %s, want %s", left, target.id)
	}
	return nil
}
