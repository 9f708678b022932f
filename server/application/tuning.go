package application

import (
	"fmt"
	"time"
)

const (
	BulletHalfExtent = 0.2
	PlayerHalfExtent = 1.5
	BulletTTL        = 5 * time.Second
	HitDamage        = 10.0
	MaxHealth        = 100.0

	// DamageZoneStart を超えるとダメージが発生し、ArenaHalfSize で最大になる
	DamageZoneStart      = 180.0
	ArenaHalfSize        = 200.0
	BoundaryDamagePerSec = 20.0

	// TickDelta は Rules.TickInterval 未指定時のtick1回あたりのシミュレーション時間 (秒)
	TickDelta = 0.016

	DefaultShipModel = "Bob"
)

// DeathPolicy はHPが0になったプレイヤーの扱いです。
type DeathPolicy string

const (
	// DeathPolicyRespawn は原点で全回復して復活させます。
	DeathPolicyRespawn DeathPolicy = "respawn"
	// DeathPolicyEliminate はプレイヤーと弾を削除し、以後復活させません。
	DeathPolicyEliminate DeathPolicy = "eliminate"
)

func ParseDeathPolicy(s string) (DeathPolicy, error) {
	switch DeathPolicy(s) {
	case "", DeathPolicyRespawn:
		return DeathPolicyRespawn, nil
	case DeathPolicyEliminate:
		return DeathPolicyEliminate, nil
	default:
		return "", fmt.Errorf("unknown death policy %q", s)
	}
}

// Rules はアリーナごとに変更できるパラメータです。0は無制限を表します。
type Rules struct {
	DeathPolicy         DeathPolicy
	MaxPlayers          int
	MaxBullets          int
	MaxBulletsPerPlayer int
	FireCooldown        time.Duration
	// TickInterval はRoomのtick間隔で、1tickで進めるシミュレーション時間になります。0なら TickDelta。
	TickInterval        time.Duration
}

// tickSeconds はtick1回あたりのシミュレーション時間を秒で返します。
func (r Rules) tickSeconds() float64 {
	if r.TickInterval <= 0 {
		return TickDelta
	}
	return r.TickInterval.Seconds()
}

func DefaultRules() Rules {
	return Rules{
		DeathPolicy:         DeathPolicyRespawn,
		MaxPlayers:          32,
		MaxBullets:          2048,
		MaxBulletsPerPlayer: 64,
		TickInterval:        16 * time.Millisecond,
	}
}
