package memory

import (
	"dogfight/server/domain"
	"dogfight/server/state"
)

// Store はインメモリのプレイヤー・弾状態を保持する共通ストレージ。
// 並行実装・単一ループ実装は本ストアをラップして利用し、ロック戦略のみを差し替える。
type Store struct {
	players *orderedMap[domain.SessionID, domain.Player]
	bullets *orderedMap[string, domain.Bullet]
	// owned はプレイヤーごとの生存弾数
	owned map[domain.SessionID]int
}

// NewStore は初期状態をコピーしつつストアを生成する。
func NewStore(players []domain.Player) *Store {
	store := &Store{
		players: newOrderedMap[domain.SessionID, domain.Player](),
		bullets: newOrderedMap[string, domain.Bullet](),
		owned:   make(map[domain.SessionID]int),
	}
	for _, p := range players {
		store.players.set(p.ID, p)
	}
	return store
}

func (s *Store) putPlayer(p domain.Player) {
	s.players.set(p.ID, p)
}

func (s *Store) player(id domain.SessionID) (domain.Player, bool) {
	return s.players.get(id)
}

func (s *Store) deletePlayer(id domain.SessionID) bool {
	return s.players.delete(id)
}

func (s *Store) putBullet(b domain.Bullet) {
	if _, ok := s.bullets.get(b.ID); !ok {
		s.owned[b.PlayerID]++
	}
	s.bullets.set(b.ID, b)
}

func (s *Store) bullet(id string) (domain.Bullet, bool) {
	return s.bullets.get(id)
}

func (s *Store) deleteBullet(id string) bool {
	b, ok := s.bullets.get(id)
	if !ok {
		return false
	}
	s.bullets.delete(id)
	s.release(b.PlayerID)
	return true
}

func (s *Store) deleteBulletsOwnedBy(owner domain.SessionID) []string {
	if s.owned[owner] == 0 {
		return nil
	}
	var removed []string
	for _, b := range s.bullets.values() {
		if b.PlayerID != owner {
			continue
		}
		s.bullets.delete(b.ID)
		removed = append(removed, b.ID)
	}
	delete(s.owned, owner)
	return removed
}

func (s *Store) release(owner domain.SessionID) {
	n := s.owned[owner] - 1
	if n <= 0 {
		delete(s.owned, owner)
		return
	}
	s.owned[owner] = n
}

func (s *Store) stats() state.Stats {
	return state.Stats{Players: s.players.len(), Bullets: s.bullets.len()}
}
