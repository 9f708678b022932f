package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
	// ErrEndpointClosed は既に閉じたエンドポイントへ送信した場合に返されるエラーです。
	ErrEndpointClosed = errors.New("session endpoint is closed")
	// ErrJoinRejected はRoomが参加を拒否した場合に返されるエラーです。
	ErrJoinRejected = errors.New("join rejected")
)

const (
	leaveSubmitTimeout = 2 * time.Second
	flushTimeout       = time.Second
)

// EndpointConfig はSessionEndpointの動作パラメータです。
type EndpointConfig struct {
	WriteQueueSize int
	// PingInterval が0以下のときハートビートとアイドル切断は無効になります。
	PingInterval time.Duration
	IdleTimeout  time.Duration
	TickInterval time.Duration
	ShipModel    string
}

func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		WriteQueueSize: 256,
		PingInterval:   10 * time.Second,
		IdleTimeout:    30 * time.Second,
		TickInterval:   16 * time.Millisecond,
	}
}

type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    *Session
	connection *Connection
	codec      Codec
	registry   Registry
	sink       IntentSink
	cfg        EndpointConfig

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
	joined atomic.Bool
	left   atomic.Bool
}

func NewSessionEndpoint(ctx context.Context, session *Session, connection *Connection, codec Codec, registry Registry, sink IntentSink, cfg EndpointConfig) (*SessionEndpoint, error) {
	if session == nil || connection == nil || codec == nil || registry == nil || sink == nil {
		return nil, ErrInitializationFailed
	}
	if cfg.WriteQueueSize <= 0 {
		cfg.WriteQueueSize = DefaultEndpointConfig().WriteQueueSize
	}
	ctx, cancel := context.WithCancel(ctx)
	se := &SessionEndpoint{
		ctx:        ctx,
		cancel:     cancel,
		session:    session,
		connection: connection,
		codec:      codec,
		registry:   registry,
		sink:       sink,
		cfg:        cfg,
		ctrlCh:     make(chan endpointEvent, 16),
		writeCh:    make(chan []byte, cfg.WriteQueueSize),
	}
	return se, nil
}

// Run はセッションの生存期間中ブロックします。
// Hubへの登録はRoomがjoin処理時に行います。終了時にはjoin済みなら必ずLeaveIntentを1度だけ送り、Hubから登録を外します。
// 参加が拒否された場合は書き込みキューに残ったフレーム (error イベント) を送ってから閉じます。
func (se *SessionEndpoint) Run() error {
	id := se.session.ID()
	defer se.registry.Unregister(id)
	defer se.leave()
	defer se.close()

	welcome, err := se.codec.Encode(EventWelcome, Welcome{
		ID:             id,
		TickIntervalMs: float64(se.cfg.TickInterval) / float64(time.Millisecond),
	})
	if err != nil {
		return fmt.Errorf("encode welcome: %w", err)
	}
	if err := se.Send(welcome); err != nil {
		return err
	}

	result := make(chan error, 1)
	join := JoinIntent{SessionID: id, ShipModel: se.cfg.ShipModel, Subscriber: se, Result: result}
	if err := se.sink.Submit(se.ctx, join); err != nil {
		return fmt.Errorf("submit join: %w", err)
	}
	// 投入済みのjoinは結果を待たずに処理され得るので、ここからleaveの対象にする
	se.joined.Store(true)
	select {
	case err := <-result:
		if err != nil {
			se.joined.Store(false)
			se.flush()
			return fmt.Errorf("%w: %v", ErrJoinRejected, err)
		}
	case <-se.ctx.Done():
		return se.ctx.Err()
	}

	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	if se.cfg.PingInterval > 0 {
		hb := NewHeartbeatService(se.cfg.PingInterval, se.session, se.connection)
		eg.Go(func() error {
			if err := hb.Run(ctx); err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evPingFailed, err: err})
			}
			return nil
		})
	}

	return eg.Wait()
}

// Send はエンコード済みのフレームを書き込みキューに積みます。
// キューが満杯のときは ErrBackpressure を返し、フレームは破棄されます。
func (se *SessionEndpoint) Send(data []byte) error {
	if se.closed.Load() {
		return ErrEndpointClosed
	}
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: nil})
}

func (se *SessionEndpoint) ForceClose() {
	se.close()
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			if se.cfg.PingInterval <= 0 {
				continue
			}
			ok, reason := se.session.IsIdle(se.cfg.IdleTimeout)
			if ok && reason.Dead() {
				se.handleControlEvent(ctx, endpointEvent{
					kind: evClose,
					err:  errors.New(reason.String()),
				})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		data, err := se.connection.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
			}
			return
		}
		se.session.TouchRead()
		se.handleData(ctx, data)
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			if err := se.connection.Write(ctx, data); err != nil {
				if ctx.Err() == nil {
					se.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				}
				return
			}
			se.session.TouchWrite()
		}
	}
}

// flush は書き込みキューに残ったフレームを同期的に送ります。writeLoop が動いていないときだけ呼びます。
func (se *SessionEndpoint) flush() {
	ctx, cancel := context.WithTimeout(se.ctx, flushTimeout)
	defer cancel()
	for {
		select {
		case data := <-se.writeCh:
			if err := se.connection.Write(ctx, data); err != nil {
				slog.DebugContext(ctx, "flush failed", "sessionID", se.session.ID(), "err", err)
				return
			}
		default:
			return
		}
	}
}

func (se *SessionEndpoint) close() {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.cancel()
	se.session.Close()
	se.connection.Close("session closed")
}

// leave はjoin済みの場合に限りLeaveIntentを1度だけ送ります。
func (se *SessionEndpoint) leave() {
	if !se.joined.Load() || !se.left.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), leaveSubmitTimeout)
	defer cancel()
	if err := se.sink.Submit(ctx, LeaveIntent{SessionID: se.session.ID()}); err != nil {
		slog.Error("failed to submit leave", "sessionID", se.session.ID(), "err", err)
	}
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	intent, err := DecodeIntent(se.codec, se.session.ID(), data)
	if err != nil {
		slog.WarnContext(ctx, "dropping inbound message", "sessionID", se.session.ID(), "err", err)
		return
	}
	if err := se.sink.TrySubmit(intent); err != nil {
		slog.WarnContext(ctx, "intent dropped", "sessionID", se.session.ID(), "err", err)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		slog.InfoContext(ctx, "closing session", "sessionID", se.session.ID(), "reason", ev.err)
		se.close()
	case evReadError, evWriteError, evPingFailed:
		slog.DebugContext(ctx, "connection lost", "sessionID", se.session.ID(), "event", ev.kind, "err", ev.err)
		se.close()
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}
