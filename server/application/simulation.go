package application

import (
	"context"
	"log/slog"
	"math"
	"time"

	"dogfight/server/domain"
)

// Tick はシミュレーションをtick間隔ぶん (Rules.TickInterval) 進めます。
// 弾の寿命判定と移動、弾とプレイヤーの衝突、境界ダメージの順に処理します。
func (app *ArenaApplication) Tick(ctx context.Context, now time.Time) {
	app.stepBullets(ctx, now.UnixMilli())
	app.stepDamageZone(ctx)
}

func (app *ArenaApplication) stepBullets(ctx context.Context, nowMs int64) {
	ttl := BulletTTL.Milliseconds()
	players := app.world.Players()
	gone := make(map[domain.SessionID]struct{})
	expired := 0

	for _, b := range app.world.Bullets() {
		// このtick中に所有者ごと消えた弾はスキップする
		if _, ok := app.world.Bullet(b.ID); !ok {
			continue
		}
		// 寿命切れは衝突より優先
		if nowMs-b.Timestamp > ttl {
			app.world.DeleteBullet(b.ID)
			expired++
			continue
		}
		b.Position = b.Position.Add(b.Velocity.Scale(app.dt))

		hit := -1
		for i := range players {
			p := &players[i]
			if p.ID == b.PlayerID {
				continue
			}
			if _, ok := gone[p.ID]; ok {
				continue
			}
			if domain.Overlaps(b.Position, BulletHalfExtent, p.Position, PlayerHalfExtent) {
				hit = i
				break
			}
		}
		if hit < 0 {
			app.world.PutBullet(b)
			continue
		}

		app.world.DeleteBullet(b.ID)
		victim := &players[hit]
		victim.Health = math.Max(0, victim.Health-HitDamage)
		app.world.PutPlayer(*victim)
		app.publishHit(ctx, *victim)
		slog.DebugContext(ctx, "bullet hit", "bulletID", b.ID, "attacker", b.PlayerID, "victim", victim.ID, "health", victim.Health)

		if victim.IsDead() {
			if app.kill(ctx, victim) {
				gone[victim.ID] = struct{}{}
			}
		}
	}

	if expired > 0 {
		app.metrics.IncrementCounter(ctx, domain.CounterExpiredBullets, int64(expired))
	}
}

func (app *ArenaApplication) stepDamageZone(ctx context.Context) {
	for _, p := range app.world.Players() {
		dmg := zoneDamage(p.Position.MaxAbs(), app.dt)
		if dmg == 0 {
			continue
		}
		before := p.Health
		p.Health = math.Max(0, p.Health-dmg)
		app.world.PutPlayer(p)

		if p.IsDead() {
			app.kill(ctx, &p)
			continue
		}
		if math.Floor(before) != math.Floor(p.Health) {
			app.publishHit(ctx, p)
		}
	}
}

// zoneDamage は1tickあたりの境界ダメージを返します。
// DamageZoneStart ちょうどでは0、ArenaHalfSize 以上では最大になります。
func zoneDamage(maxAbs, dt float64) float64 {
	if maxAbs <= DamageZoneStart {
		return 0
	}
	t := (math.Min(maxAbs, ArenaHalfSize) - DamageZoneStart) / (ArenaHalfSize - DamageZoneStart)
	return BoundaryDamagePerSec * t * dt
}

// kill は死亡イベントを送り、死亡ポリシーを適用します。
// プレイヤーがワールドから取り除かれた場合は true を返します。
func (app *ArenaApplication) kill(ctx context.Context, p *domain.Player) bool {
	app.broadcaster.Publish(ctx, domain.Event{Name: domain.EventPlayerDied, Payload: p.ID}, domain.ToAll())
	slog.InfoContext(ctx, "player died", "playerID", p.ID, "policy", app.rules.DeathPolicy)

	if app.rules.DeathPolicy == DeathPolicyEliminate {
		app.world.DeletePlayer(p.ID)
		app.world.DeleteBulletsOwnedBy(p.ID)
		delete(app.lastFire, p.ID)
		return true
	}

	p.Position = domain.Vec3{}
	p.Rotation = domain.Vec3{}
	p.Velocity = domain.Vec3{}
	p.Health = p.MaxHealth
	p.LastUpdate = app.clock.Now().UnixMilli()
	app.world.PutPlayer(*p)

	app.broadcaster.Publish(ctx, domain.Event{
		Name: domain.EventPlayerRespawned,
		Payload: domain.PlayerRespawned{
			ID:        p.ID,
			Position:  p.Position,
			Rotation:  p.Rotation,
			Velocity:  p.Velocity,
			ShipModel: p.ShipModel,
			Health:    p.Health,
			MaxHealth: p.MaxHealth,
		},
	}, domain.ToAll())
	return false
}

func (app *ArenaApplication) publishHit(ctx context.Context, p domain.Player) {
	app.broadcaster.Publish(ctx, domain.Event{
		Name:    domain.EventPlayerHit,
		Payload: domain.PlayerHit{PlayerID: p.ID, Health: p.Health, MaxHealth: p.MaxHealth},
	}, domain.ToAll())
}
