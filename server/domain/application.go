package domain

import (
	"context"
	"time"
)

//go:generate go tool mockgen -destination=./mocks/application_mock.go -package=mocks . Application,IntentSink

// Application はRoomに注入されるゲームロジックです。
// Roomのゴルーチンからのみ呼び出されるため、実装側でロックは不要です。
type Application interface {
	HandleIntent(ctx context.Context, intent Intent) error
	Tick(ctx context.Context, now time.Time)
}

// IntentSink はセッションからのIntentを受け付ける入口です。
type IntentSink interface {
	// Submit は受け付けられるまでブロックします。join/leaveのように落とせないIntentに使います。
	Submit(ctx context.Context, intent Intent) error
	// TrySubmit はキューが満杯のとき ErrRoomBusy を返します。
	TrySubmit(intent Intent) error
}
