package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// クライアント → サーバー
const (
	MsgUpdatePosition = "update_position"
	MsgFireBullet     = "fire_bullet"
)

// サーバー → クライアント
const (
	EventWelcome         = "welcome"
	EventError           = "error"
	EventPlayersList     = "players_list"
	EventPlayerJoined    = "player_joined"
	EventPlayerMoved     = "player_moved"
	EventBulletFired     = "bullet_fired"
	EventPlayerHit       = "player_hit"
	EventPlayerDied      = "player_died"
	EventPlayerRespawned = "player_respawned"
	EventPlayerLeft      = "player_left"
)

// エラーイベントのコード
const (
	ErrorCodeArenaFull = "arena_full"
)

var (
	ErrEmptyMessage     = errors.New("empty message")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrUnknownCodec     = errors.New("unknown codec")
)

// Welcome は接続直後に送信者本人へ通知するメッセージです。
type Welcome struct {
	ID             SessionID `json:"id" msgpack:"id"`
	TickIntervalMs float64   `json:"tickIntervalMs" msgpack:"tickIntervalMs"`
}

type ErrorPayload struct {
	Code    string `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
}

type PlayerMoved struct {
	ID        SessionID `json:"id" msgpack:"id"`
	Position  Vec3      `json:"position" msgpack:"position"`
	Rotation  Vec3      `json:"rotation" msgpack:"rotation"`
	Velocity  Vec3      `json:"velocity" msgpack:"velocity"`
	Health    float64   `json:"health" msgpack:"health"`
	MaxHealth float64   `json:"maxHealth" msgpack:"maxHealth"`
}

type PlayerHit struct {
	PlayerID  SessionID `json:"playerId" msgpack:"playerId"`
	Health    float64   `json:"health" msgpack:"health"`
	MaxHealth float64   `json:"maxHealth" msgpack:"maxHealth"`
}

type PlayerRespawned struct {
	ID        SessionID `json:"id" msgpack:"id"`
	Position  Vec3      `json:"position" msgpack:"position"`
	Rotation  Vec3      `json:"rotation" msgpack:"rotation"`
	Velocity  Vec3      `json:"velocity" msgpack:"velocity"`
	ShipModel string    `json:"shipModel" msgpack:"shipModel"`
	Health    float64   `json:"health" msgpack:"health"`
	MaxHealth float64   `json:"maxHealth" msgpack:"maxHealth"`
}

// UpdatePositionPayload は update_position の送信用ペイロードです。
type UpdatePositionPayload struct {
	Position Vec3 `json:"position" msgpack:"position"`
	Rotation Vec3 `json:"rotation" msgpack:"rotation"`
	Velocity Vec3 `json:"velocity" msgpack:"velocity"`
}

// FireBulletPayload は fire_bullet の送信用ペイロードです。
type FireBulletPayload struct {
	Position Vec3 `json:"position" msgpack:"position"`
	Velocity Vec3 `json:"velocity" msgpack:"velocity"`
}

// Envelope はデコード済みのメッセージ種別と、未デコードのペイロードです。
type Envelope struct {
	Type    string
	Payload []byte
}

// Codec はメッセージのワイヤエンコーディングを担当します。
type Codec interface {
	Name() string
	// Binary はバイナリフレームで送るべきかを返します。
	Binary() bool
	Encode(msgType string, payload any) ([]byte, error)
	Decode(data []byte) (Envelope, error)
	Unmarshal(payload []byte, v any) error
}

// NewCodec は名前からCodecを返します。
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// DecodePayload はペイロードを型Tとしてデコードします。
func DecodePayload[T any](c Codec, env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, fmt.Errorf("%w: empty payload for type %q", ErrMalformedPayload, env.Type)
	}
	if err := c.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return out, nil
}

// JSONCodec は {"type": ..., "payload": ...} 形式のJSONテキストメッセージです。
type JSONCodec struct{}

type jsonEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(msgType string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, errors.New("trying to encode empty message type")
	}
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(jsonEnvelope{Type: msgType, Payload: raw})
}

func (JSONCodec) Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	var e jsonEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if e.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedPayload)
	}
	return Envelope{Type: e.Type, Payload: e.Payload}, nil
}

func (JSONCodec) Unmarshal(payload []byte, v any) error {
	return json.Unmarshal(payload, v)
}

// MsgpackCodec は同じエンベロープ構造をMessagePackのバイナリで表現します。
type MsgpackCodec struct{}

type msgpackEnvelope struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(msgType string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, errors.New("trying to encode empty message type")
	}
	var raw msgpack.RawMessage
	if payload != nil {
		b, err := msgpack.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return msgpack.Marshal(msgpackEnvelope{Type: msgType, Payload: raw})
}

func (MsgpackCodec) Decode(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, ErrEmptyMessage
	}
	var e msgpackEnvelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if e.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedPayload)
	}
	return Envelope{Type: e.Type, Payload: e.Payload}, nil
}

func (MsgpackCodec) Unmarshal(payload []byte, v any) error {
	return msgpack.Unmarshal(payload, v)
}

// wireVec3 は欠損フィールドを検出するためのデコード専用の型です。
type wireVec3 struct {
	X *float64 `json:"x" msgpack:"x"`
	Y *float64 `json:"y" msgpack:"y"`
	Z *float64 `json:"z" msgpack:"z"`
}

func (w *wireVec3) vec(field string) (Vec3, error) {
	if w == nil || w.X == nil || w.Y == nil || w.Z == nil {
		return Vec3{}, fmt.Errorf("%w: %s must have x, y and z", ErrMalformedPayload, field)
	}
	return Vec3{X: *w.X, Y: *w.Y, Z: *w.Z}, nil
}

type updatePositionWire struct {
	Position *wireVec3 `json:"position" msgpack:"position"`
	Rotation *wireVec3 `json:"rotation" msgpack:"rotation"`
	Velocity *wireVec3 `json:"velocity" msgpack:"velocity"`
}

type fireBulletWire struct {
	Position *wireVec3 `json:"position" msgpack:"position"`
	Velocity *wireVec3 `json:"velocity" msgpack:"velocity"`
}

// DecodeIntent はクライアントからのメッセージをIntentに変換します。
// ベクトルが1成分でも欠けている場合は ErrMalformedPayload を返し、部分的な値は返しません。
func DecodeIntent(c Codec, sender SessionID, data []byte) (Intent, error) {
	env, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case MsgUpdatePosition:
		w, err := DecodePayload[updatePositionWire](c, env)
		if err != nil {
			return nil, err
		}
		pos, err := w.Position.vec("position")
		if err != nil {
			return nil, err
		}
		rot, err := w.Rotation.vec("rotation")
		if err != nil {
			return nil, err
		}
		vel, err := w.Velocity.vec("velocity")
		if err != nil {
			return nil, err
		}
		return UpdatePositionIntent{SessionID: sender, Position: pos, Rotation: rot, Velocity: vel}, nil
	case MsgFireBullet:
		w, err := DecodePayload[fireBulletWire](c, env)
		if err != nil {
			return nil, err
		}
		pos, err := w.Position.vec("position")
		if err != nil {
			return nil, err
		}
		vel, err := w.Velocity.vec("velocity")
		if err != nil {
			return nil, err
		}
		return FireBulletIntent{SessionID: sender, Position: pos, Velocity: vel}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}
