package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"dogfight/server/application"
	"dogfight/server/domain"
	"dogfight/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string
	Port string

	TickInterval    time.Duration
	MaxCatchUpTicks int
	RoomInboxSize   int
	WireCodec       string

	Rules application.Rules

	SessionWriteQueue int
	PingInterval      time.Duration
	IdleTimeout       time.Duration
	AllowedOrigins    []string
	JoinTokenSecret   string

	LogLevel     slog.Level
	LogFormat    string
	OTLPEndpoint string
	OTLPInsecure bool
	ServiceName  string
}

// Load は .env があれば読み込んだうえで環境変数から設定を組み立てます。
// 既に設定されている環境変数は .env で上書きされません。
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	rules := application.DefaultRules()
	policy, err := application.ParseDeathPolicy(utils.GetEnvDefault("DEATH_POLICY", string(rules.DeathPolicy)))
	if err != nil {
		return Config{}, err
	}
	rules.DeathPolicy = policy
	rules.MaxPlayers = utils.GetEnvInt("MAX_PLAYERS", rules.MaxPlayers)
	rules.MaxBullets = utils.GetEnvInt("MAX_BULLETS", rules.MaxBullets)
	rules.MaxBulletsPerPlayer = utils.GetEnvInt("MAX_BULLETS_PER_PLAYER", rules.MaxBulletsPerPlayer)
	rules.FireCooldown = utils.GetEnvDuration("FIRE_COOLDOWN", rules.FireCooldown)

	room := domain.DefaultRoomConfig()
	endpoint := domain.DefaultEndpointConfig()

	cfg := Config{
		Addr: utils.GetEnvDefault("ADDR", "localhost"),
		Port: utils.GetEnvDefault("PORT", "9090"),

		TickInterval:    utils.GetEnvDuration("TICK_INTERVAL", room.TickInterval),
		MaxCatchUpTicks: utils.GetEnvInt("MAX_CATCH_UP_TICKS", room.MaxCatchUpTicks),
		RoomInboxSize:   utils.GetEnvInt("ROOM_INBOX_SIZE", room.InboxSize),
		WireCodec:       utils.GetEnvDefault("WIRE_CODEC", "json"),

		Rules: rules,

		SessionWriteQueue: utils.GetEnvInt("SESSION_WRITE_QUEUE", endpoint.WriteQueueSize),
		PingInterval:      utils.GetEnvDuration("PING_INTERVAL", endpoint.PingInterval),
		IdleTimeout:       utils.GetEnvDuration("IDLE_TIMEOUT", endpoint.IdleTimeout),
		AllowedOrigins:    utils.GetEnvList("ALLOWED_ORIGINS"),
		JoinTokenSecret:   utils.GetEnvDefault("JOIN_TOKEN_SECRET", ""),

		LogFormat:    utils.GetEnvDefault("LOG_FORMAT", "text"),
		OTLPEndpoint: utils.GetEnvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: utils.GetEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		ServiceName:  utils.GetEnvDefault("SERVICE_NAME", "dogfight"),
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("TICK_INTERVAL (%s) must be positive", cfg.TickInterval)
	}
	// シミュレーションの1tickの時間はRoomのtick間隔と一致させる
	cfg.Rules.TickInterval = cfg.TickInterval
	if err := cfg.LogLevel.UnmarshalText([]byte(utils.GetEnvDefault("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if _, err := domain.NewCodec(cfg.WireCodec); err != nil {
		return Config{}, err
	}
	if cfg.IdleTimeout > 0 && cfg.PingInterval > 0 && cfg.IdleTimeout <= cfg.PingInterval {
		return Config{}, fmt.Errorf("IDLE_TIMEOUT (%s) must be longer than PING_INTERVAL (%s)", cfg.IdleTimeout, cfg.PingInterval)
	}
	return cfg, nil
}

func (c Config) ListenAddr() string {
	return c.Addr + ":" + c.Port
}

func (c Config) RoomConfig() domain.RoomConfig {
	return domain.RoomConfig{
		TickInterval:    c.TickInterval,
		InboxSize:       c.RoomInboxSize,
		MaxCatchUpTicks: c.MaxCatchUpTicks,
	}
}

func (c Config) EndpointConfig() domain.EndpointConfig {
	return domain.EndpointConfig{
		WriteQueueSize: c.SessionWriteQueue,
		PingInterval:   c.PingInterval,
		IdleTimeout:    c.IdleTimeout,
		TickInterval:   c.TickInterval,
	}
}
