package main

import (
	"time"

	"dogfight/server/application"
	"dogfight/server/domain"
)

// worldView はサーバーから受け取ったイベントで組み立てるボット側の世界像です。
// 弾丸の除去は通知されないため、受信後はローカルで移動させTTLで捨てます。
type worldView struct {
	selfID      domain.SessionID
	players     map[domain.SessionID]domain.Player
	bullets     map[string]trackedBullet
	removed     bool
	selfDiedAt  time.Time
	lastAdvance time.Time
}

// respawnGrace を過ぎても復活しなければ脱落したとみなします。
const respawnGrace = 2 * time.Second

type trackedBullet struct {
	bullet   domain.Bullet
	received time.Time
}

func newWorldView() *worldView {
	return &worldView{
		players: make(map[domain.SessionID]domain.Player),
		bullets: make(map[string]trackedBullet),
	}
}

func (w *worldView) apply(codec domain.Codec, env domain.Envelope) error {
	switch env.Type {
	case domain.EventWelcome:
		msg, err := domain.DecodePayload[domain.Welcome](codec, env)
		if err != nil {
			return err
		}
		w.selfID = msg.ID
		// 自分自身は players_list に含まれないので初期状態を置いておく
		w.players[msg.ID] = domain.Player{ID: msg.ID, Health: application.MaxHealth, MaxHealth: application.MaxHealth}
	case domain.EventPlayersList:
		list, err := domain.DecodePayload[[]domain.Player](codec, env)
		if err != nil {
			return err
		}
		for _, p := range list {
			w.players[p.ID] = p
		}
	case domain.EventPlayerJoined:
		p, err := domain.DecodePayload[domain.Player](codec, env)
		if err != nil {
			return err
		}
		w.players[p.ID] = p
	case domain.EventPlayerMoved:
		msg, err := domain.DecodePayload[domain.PlayerMoved](codec, env)
		if err != nil {
			return err
		}
		p := w.players[msg.ID]
		p.ID = msg.ID
		p.Position, p.Rotation, p.Velocity = msg.Position, msg.Rotation, msg.Velocity
		p.Health, p.MaxHealth = msg.Health, msg.MaxHealth
		w.players[msg.ID] = p
	case domain.EventPlayerHit:
		msg, err := domain.DecodePayload[domain.PlayerHit](codec, env)
		if err != nil {
			return err
		}
		if p, ok := w.players[msg.PlayerID]; ok {
			p.Health, p.MaxHealth = msg.Health, msg.MaxHealth
			w.players[msg.PlayerID] = p
		}
	case domain.EventPlayerRespawned:
		msg, err := domain.DecodePayload[domain.PlayerRespawned](codec, env)
		if err != nil {
			return err
		}
		if msg.ID == w.selfID {
			w.selfDiedAt = time.Time{}
		}
		w.players[msg.ID] = domain.Player{
			ID:        msg.ID,
			Position:  msg.Position,
			Rotation:  msg.Rotation,
			Velocity:  msg.Velocity,
			ShipModel: msg.ShipModel,
			Health:    msg.Health,
			MaxHealth: msg.MaxHealth,
		}
	case domain.EventPlayerDied:
		id, err := domain.DecodePayload[domain.SessionID](codec, env)
		if err != nil {
			return err
		}
		if p, ok := w.players[id]; ok {
			p.Health = 0
			w.players[id] = p
		}
		if id == w.selfID {
			w.selfDiedAt = time.Now()
		}
	case domain.EventPlayerLeft:
		id, err := domain.DecodePayload[domain.SessionID](codec, env)
		if err != nil {
			return err
		}
		w.removePlayer(id)
	case domain.EventBulletFired:
		b, err := domain.DecodePayload[domain.Bullet](codec, env)
		if err != nil {
			return err
		}
		w.bullets[b.ID] = trackedBullet{bullet: b, received: time.Now()}
	case domain.EventError:
		msg, err := domain.DecodePayload[domain.ErrorPayload](codec, env)
		if err != nil {
			return err
		}
		if msg.Code == domain.ErrorCodeArenaFull {
			w.removed = true
		}
	}
	return nil
}

// removePlayer はプレイヤーと、そのプレイヤーの弾丸を取り除きます。
// 自分自身が消えた場合は removed として扱います。
func (w *worldView) removePlayer(id domain.SessionID) {
	delete(w.players, id)
	for bid, tb := range w.bullets {
		if tb.bullet.PlayerID == id {
			delete(w.bullets, bid)
		}
	}
	if id == w.selfID {
		w.removed = true
	}
}

// out はこのボットがもうアリーナで行動できない場合に true を返します。
func (w *worldView) out(now time.Time) bool {
	if w.removed {
		return true
	}
	return !w.selfDiedAt.IsZero() && now.Sub(w.selfDiedAt) > respawnGrace
}

// advance は追跡中の弾丸を前回からの経過時間分だけ進め、TTLを過ぎたものを捨てます。
func (w *worldView) advance(now time.Time) {
	if w.lastAdvance.IsZero() {
		w.lastAdvance = now
		return
	}
	dt := now.Sub(w.lastAdvance).Seconds()
	w.lastAdvance = now
	for id, tb := range w.bullets {
		if now.Sub(tb.received) > application.BulletTTL {
			delete(w.bullets, id)
			continue
		}
		tb.bullet.Position = tb.bullet.Position.Add(tb.bullet.Velocity.Scale(dt))
		w.bullets[id] = tb
	}
}

func (w *worldView) self() (domain.Player, bool) {
	if w.selfID.IsEmpty() {
		return domain.Player{}, false
	}
	p, ok := w.players[w.selfID]
	return p, ok
}

func (w *worldView) playerList() []domain.Player {
	out := make([]domain.Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	return out
}

func (w *worldView) bulletList() []domain.Bullet {
	out := make([]domain.Bullet, 0, len(w.bullets))
	for _, tb := range w.bullets {
		out = append(out, tb.bullet)
	}
	return out
}
