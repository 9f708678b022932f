package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	adapterwebsocket "dogfight/server/adapter/websocket"
	"dogfight/server/domain"

	"github.com/coder/websocket"
)

type AcceptHandler struct {
	registry domain.Registry
	sink     domain.IntentSink
	codec    domain.Codec
	cfg      domain.EndpointConfig

	verifier       *TokenVerifier
	originPatterns []string
	baseCtx        context.Context
}

type AcceptOption func(*AcceptHandler)

// WithTokenVerifier を指定すると参加トークンを必須にします。
func WithTokenVerifier(v *TokenVerifier) AcceptOption {
	return func(h *AcceptHandler) { h.verifier = v }
}

// WithOriginPatterns は許可するOriginを指定します。空の場合はOriginチェックを行いません。
func WithOriginPatterns(patterns []string) AcceptOption {
	return func(h *AcceptHandler) { h.originPatterns = patterns }
}

// WithBaseContext はセッションの親コンテキストを指定します。キャンセルで全セッションが閉じます。
func WithBaseContext(ctx context.Context) AcceptOption {
	return func(h *AcceptHandler) { h.baseCtx = ctx }
}

func NewAcceptHandler(registry domain.Registry, sink domain.IntentSink, codec domain.Codec, cfg domain.EndpointConfig, opts ...AcceptOption) *AcceptHandler {
	h := &AcceptHandler{
		registry: registry,
		sink:     sink,
		codec:    codec,
		cfg:      cfg,
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg := h.cfg
	if h.verifier != nil {
		claims, err := h.verifier.Verify(bearerToken(r))
		if err != nil {
			slog.WarnContext(ctx, "rejected connection", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Ship != "" {
			cfg.ShipModel = claims.Ship
		}
	}

	opts := &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
	if len(h.originPatterns) == 0 {
		opts.InsecureSkipVerify = true // 開発用: Origin チェックをスキップ
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	session := domain.NewSession()
	transport := adapterwebsocket.NewTransportFrom(conn, h.codec.Binary())
	connection := domain.NewConnection(session.ID(), transport)
	endpoint, err := domain.NewSessionEndpoint(h.baseCtx, session, connection, h.codec, h.registry, h.sink, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create session endpoint", "err", err)
		_ = conn.Close(websocket.StatusInternalError, "initialization failed")
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "sessionID", session.ID(), "remote", r.RemoteAddr)
	if err := endpoint.Run(); err != nil {
		if errors.Is(err, domain.ErrJoinRejected) {
			slog.InfoContext(ctx, "join rejected, connection closed", "sessionID", session.ID(), "err", err)
			return
		}
		slog.WarnContext(ctx, "session endpoint stopped with error", "sessionID", session.ID(), "err", err)
		return
	}
	slog.DebugContext(ctx, "connection closed", "sessionID", session.ID())
}

// bearerToken はAuthorizationヘッダ、なければ token クエリパラメータからトークンを取り出します。
// ブラウザのWebSocketはヘッダを付けられないためクエリも受け付けます。
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}
