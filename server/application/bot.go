package application

import "dogfight/server/domain"

// BotAction はボットの行動を表します。
type BotAction struct {
	// MoveDirection は単位ベクトル、またはその場に留まる場合はゼロベクトルです。
	MoveDirection domain.Vec3
	Fire          bool
	// FireDirection は Fire が true のときの射撃方向 (単位ベクトル) です。
	FireDirection domain.Vec3
}

// BotController はボットの意思決定インターフェースです。
type BotController interface {
	Decide(self domain.Player, players []domain.Player, bullets []domain.Bullet) BotAction
}
