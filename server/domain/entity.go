package domain

// Player は接続中のプレイヤー1人分の状態です。
// 位置・回転・速度はクライアント申告値をそのまま信頼します。
type Player struct {
	ID         SessionID `json:"id" msgpack:"id"`
	Position   Vec3      `json:"position" msgpack:"position"`
	Rotation   Vec3      `json:"rotation" msgpack:"rotation"`
	Velocity   Vec3      `json:"velocity" msgpack:"velocity"`
	ShipModel  string    `json:"shipModel" msgpack:"shipModel"`
	LastUpdate int64     `json:"lastUpdate" msgpack:"lastUpdate"` // unix ms
	Health     float64   `json:"health" msgpack:"health"`
	MaxHealth  float64   `json:"maxHealth" msgpack:"maxHealth"`
}

func (p Player) IsDead() bool {
	return p.Health <= 0
}

// Bullet は飛翔中の弾丸です。
type Bullet struct {
	ID        string    `json:"id" msgpack:"id"`
	PlayerID  SessionID `json:"playerId" msgpack:"playerId"`
	Position  Vec3      `json:"position" msgpack:"position"`
	Velocity  Vec3      `json:"velocity" msgpack:"velocity"`
	Timestamp int64     `json:"timestamp" msgpack:"timestamp"` // unix ms
}
