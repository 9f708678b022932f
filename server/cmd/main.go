package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dogfight/server"
	"dogfight/server/application"
	"dogfight/server/config"
	"dogfight/server/domain"
	"dogfight/server/handler"
	"dogfight/server/state/memory"
	"dogfight/server/telemetry"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, os.Stderr, telemetry.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		LogLevel:    cfg.LogLevel,
		LogFormat:   cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Error("telemetry shutdown failed", "err", err)
		}
	}()

	if err := run(ctx, cfg); err != nil {
		slog.ErrorContext(ctx, "server stopped with error", "err", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "server shutdown complete")
}

func run(ctx context.Context, cfg config.Config) error {
	codec, err := domain.NewCodec(cfg.WireCodec)
	if err != nil {
		return err
	}
	metrics, err := telemetry.NewOTelMetrics()
	if err != nil {
		return err
	}

	world := memory.NewConcurrentStore(memory.NewStore(nil))
	hub := domain.NewHub(codec, metrics)
	app := application.NewArenaApplication(world, hub, cfg.Rules, application.WithMetrics(metrics))
	room := domain.NewRoom("default", app, metrics, cfg.RoomConfig(), domain.WithRegistry(hub))

	var opts []handler.AcceptOption
	opts = append(opts, handler.WithBaseContext(ctx), handler.WithOriginPatterns(cfg.AllowedOrigins))
	if cfg.JoinTokenSecret != "" {
		opts = append(opts, handler.WithTokenVerifier(handler.NewTokenVerifier(cfg.JoinTokenSecret)))
	}
	accept := handler.NewAcceptHandler(hub, room, codec, cfg.EndpointConfig(), opts...)
	health := handler.NewHealthHandler(world, time.Now())
	s := server.NewServer(cfg.ListenAddr(), server.Route(accept, health))

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return room.Run(ctx)
	})
	eg.Go(func() error {
		slog.InfoContext(ctx, "server listening", "addr", s.Addr(), "codec", codec.Name(), "deathPolicy", cfg.Rules.DeathPolicy)
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		slog.InfoContext(ctx, "shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
			if err := s.Close(); err != nil {
				slog.ErrorContext(ctx, "forced close failed", "error", err)
			}
		}
		return nil
	})
	return eg.Wait()
}
