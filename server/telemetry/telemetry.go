package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Options はテレメトリの出力先です。Endpoint が空の場合はOTLPエクスポートを行いません。
type Options struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
	LogLevel    slog.Level
	LogFormat   string // text | json
}

// ShutdownFunc はバッファ済みのテレメトリをフラッシュして停止します。
type ShutdownFunc func(context.Context) error

// Setup はデフォルトロガーとトレーサープロバイダを設定します。
func Setup(ctx context.Context, w io.Writer, opts Options) (ShutdownFunc, error) {
	local := newLocalHandler(w, opts)
	if opts.Endpoint == "" {
		slog.SetDefault(slog.New(local))
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))

	traceExp, err := otlptracegrpc.New(ctx, traceOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logExp, err := otlploggrpc.New(ctx, logOptions(opts)...)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)

	remote := otelslog.NewHandler(opts.ServiceName, otelslog.WithLoggerProvider(lp))
	slog.SetDefault(slog.New(slog.NewMultiHandler(local, remote)))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), lp.Shutdown(ctx))
	}, nil
}

func newLocalHandler(w io.Writer, opts Options) slog.Handler {
	hopts := &slog.HandlerOptions{Level: opts.LogLevel}
	if opts.LogFormat == "json" {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

func traceOptions(opts Options) []otlptracegrpc.Option {
	if strings.Contains(opts.Endpoint, "://") {
		return []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(opts.Endpoint)}
	}
	out := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		out = append(out, otlptracegrpc.WithInsecure())
	}
	return out
}

func logOptions(opts Options) []otlploggrpc.Option {
	if strings.Contains(opts.Endpoint, "://") {
		return []otlploggrpc.Option{otlploggrpc.WithEndpointURL(opts.Endpoint)}
	}
	out := []otlploggrpc.Option{otlploggrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		out = append(out, otlploggrpc.WithInsecure())
	}
	return out
}
