package adapterwebsocket

import (
	"context"

	"dogfight/server/domain"

	"github.com/coder/websocket"
)

type wsTransport struct {
	conn        *websocket.Conn
	messageType websocket.MessageType
}

// NewTransportFrom は接続をTransportとして包みます。
// binary が true のときはバイナリフレーム、それ以外はテキストフレームで書き込みます。
func NewTransportFrom(conn *websocket.Conn, binary bool) domain.Transport {
	mt := websocket.MessageText
	if binary {
		mt = websocket.MessageBinary
	}
	return &wsTransport{conn: conn, messageType: mt}
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, t.messageType, data)
}

// Ping はpongを受け取るまでブロックします。pongの処理には並行するReadが必要です。
func (t *wsTransport) Ping(ctx context.Context) error {
	return t.conn.Ping(ctx)
}

func (t *wsTransport) Close(code int32, reason string) error {
	return t.conn.Close(websocket.StatusCode(code), reason)
}
