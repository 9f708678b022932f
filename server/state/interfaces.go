package state

import (
	"dogfight/server/domain"
)

// World はアリーナ内のプレイヤーと弾の集合です。
// 列挙は挿入順で、同じ操作列からは同じ順序が得られます。
type World interface {
	PutPlayer(p domain.Player)
	Player(id domain.SessionID) (domain.Player, bool)
	DeletePlayer(id domain.SessionID) bool
	Players() []domain.Player
	PlayerCount() int

	PutBullet(b domain.Bullet)
	Bullet(id string) (domain.Bullet, bool)
	DeleteBullet(id string) bool
	Bullets() []domain.Bullet
	BulletCount() int
	// BulletCountOwnedBy は指定プレイヤーが発射した生存中の弾の数を返します。
	BulletCountOwnedBy(owner domain.SessionID) int
	// DeleteBulletsOwnedBy は指定プレイヤーの弾を全て削除し、削除したIDを返します。
	DeleteBulletsOwnedBy(owner domain.SessionID) []string
}

// Stats は別ゴルーチンから参照される集計値です。
type Stats struct {
	Players int `json:"players"`
	Bullets int `json:"bullets"`
}

// StatsReader はステータス表示などの読み取り専用の参照口です。
type StatsReader interface {
	Stats() Stats
}
