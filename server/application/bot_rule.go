package application

import (
	"math"
	"math/rand/v2"

	"dogfight/server/domain"
)

const (
	botDangerDist  = 8.0  // 弾丸回避を始める距離
	botNoiseAngle  = 0.52 // ±30度 (π/6 ≈ 0.52 rad)
	rushChance     = 0.02 // 毎tick 2% の確率で突撃
	botFireRange   = 120.0
	botRetreatZone = DamageZoneStart - 10 // これより外側では中心へ戻る
)

// RuleBotController はルールベースのボットAIです。
// ボットごとに異なる個性パラメータを持ちます。
type RuleBotController struct {
	CloseRange float64 // 後退を始める距離
	MidRange   float64 // ストレイフを始める距離
	StrafeSign float64 // +1: 反時計回り, -1: 時計回り
}

// NewRuleBotController はランダムな個性を持つボットAIを生成します。
func NewRuleBotController() *RuleBotController {
	strafeSign := 1.0
	if rand.Float64() < 0.5 {
		strafeSign = -1.0
	}
	return &RuleBotController{
		CloseRange: 10.0 + rand.Float64()*10.0, // 10〜20
		MidRange:   40.0 + rand.Float64()*30.0, // 40〜70
		StrafeSign: strafeSign,
	}
}

func (r *RuleBotController) Decide(self domain.Player, players []domain.Player, bullets []domain.Bullet) BotAction {
	// 境界ダメージ域に入りそうなら中心へ戻る
	if self.Position.MaxAbs() > botRetreatZone {
		return BotAction{MoveDirection: self.Position.Scale(-1).Normalize()}
	}

	// 被弾回避を優先
	if dir, ok := r.evadeBullet(self, bullets); ok {
		return BotAction{MoveDirection: addNoise(dir)}
	}

	// 最寄り敵に対する行動
	nearest, ok := r.findNearestEnemy(self, players)
	if !ok {
		return BotAction{}
	}

	delta := nearest.Position.Sub(self.Position)
	dist := delta.Length()
	if dist < 0.001 {
		return BotAction{}
	}
	n := delta.Scale(1 / dist)

	action := BotAction{
		Fire:          dist < botFireRange,
		FireDirection: n,
	}

	// ランダム突撃: 一定確率で距離に関係なく接近
	if rand.Float64() < rushChance {
		action.MoveDirection = addNoise(n)
		return action
	}

	switch {
	case dist < r.CloseRange:
		// 近距離: 後退
		action.MoveDirection = n.Scale(-1)
	case dist < r.MidRange:
		// 中距離: 水平面での横移動（ストレイフ方向はボットごとに異なる）
		action.MoveDirection = domain.Vec3{X: -n.Z * r.StrafeSign, Z: n.X * r.StrafeSign}.Normalize()
	default:
		// 遠距離: 接近
		action.MoveDirection = n
	}
	action.MoveDirection = addNoise(action.MoveDirection)
	return action
}

// evadeBullet は自分に向かってくる弾丸を回避する方向を返します。
func (r *RuleBotController) evadeBullet(self domain.Player, bullets []domain.Bullet) (domain.Vec3, bool) {
	closestDist := math.MaxFloat64
	var closest *domain.Bullet

	for i := range bullets {
		b := &bullets[i]
		if b.PlayerID == self.ID {
			continue
		}
		toSelf := self.Position.Sub(b.Position)
		dist := toSelf.Length()
		if dist > botDangerDist {
			continue
		}

		// 弾丸が自分に向かっているか確認（内積 > 0）
		dot := toSelf.X*b.Velocity.X + toSelf.Y*b.Velocity.Y + toSelf.Z*b.Velocity.Z
		if dot <= 0 {
			continue
		}

		if dist < closestDist {
			closestDist = dist
			closest = b
		}
	}

	if closest == nil {
		return domain.Vec3{}, false
	}

	// 弾丸の進行方向に対して水平面で垂直に回避
	v := closest.Velocity
	dir := domain.Vec3{X: -v.Z, Z: v.X}.Normalize()
	if dir == (domain.Vec3{}) {
		// 真上/真下から来る弾は横へ逃げる
		dir = domain.Vec3{X: 1}
	}
	return dir, true
}

// findNearestEnemy は最寄りの生存敵を探します。
func (r *RuleBotController) findNearestEnemy(self domain.Player, players []domain.Player) (domain.Player, bool) {
	var nearest domain.Player
	found := false
	nearestDistSq := math.MaxFloat64

	for _, other := range players {
		if other.ID == self.ID || other.IsDead() {
			continue
		}
		d := other.Position.Sub(self.Position)
		distSq := d.X*d.X + d.Y*d.Y + d.Z*d.Z
		if distSq < nearestDistSq {
			nearestDistSq = distSq
			nearest = other
			found = true
		}
	}
	return nearest, found
}

// addNoise は水平面の移動方向に ±30度 のランダムノイズを加えます。
func addNoise(dir domain.Vec3) domain.Vec3 {
	noise := (rand.Float64()*2 - 1) * botNoiseAngle
	cos := math.Cos(noise)
	sin := math.Sin(noise)
	return domain.Vec3{
		X: dir.X*cos - dir.Z*sin,
		Y: dir.Y,
		Z: dir.X*sin + dir.Z*cos,
	}
}
