package memory

import (
	"dogfight/server/domain"
	"dogfight/server/state"
)

// SingleThreadStore はロックを取らずに Store を公開します。
// 単一のゴルーチンからのみ触る場合に使います。
type SingleThreadStore struct {
	base *Store
}

func NewSingleThreadStore(base *Store) *SingleThreadStore {
	return &SingleThreadStore{base: base}
}

func (s *SingleThreadStore) PutPlayer(p domain.Player) { s.base.putPlayer(p) }

func (s *SingleThreadStore) Player(id domain.SessionID) (domain.Player, bool) {
	return s.base.player(id)
}

func (s *SingleThreadStore) DeletePlayer(id domain.SessionID) bool { return s.base.deletePlayer(id) }
func (s *SingleThreadStore) Players() []domain.Player              { return s.base.players.values() }
func (s *SingleThreadStore) PlayerCount() int                      { return s.base.players.len() }
func (s *SingleThreadStore) PutBullet(b domain.Bullet)             { s.base.putBullet(b) }

func (s *SingleThreadStore) Bullet(id string) (domain.Bullet, bool) {
	return s.base.bullet(id)
}

func (s *SingleThreadStore) DeleteBullet(id string) bool { return s.base.deleteBullet(id) }
func (s *SingleThreadStore) Bullets() []domain.Bullet    { return s.base.bullets.values() }
func (s *SingleThreadStore) BulletCount() int            { return s.base.bullets.len() }

func (s *SingleThreadStore) BulletCountOwnedBy(owner domain.SessionID) int {
	return s.base.owned[owner]
}

func (s *SingleThreadStore) DeleteBulletsOwnedBy(owner domain.SessionID) []string {
	return s.base.deleteBulletsOwnedBy(owner)
}

func (s *SingleThreadStore) Stats() state.Stats { return s.base.stats() }

var (
	_ state.World       = (*SingleThreadStore)(nil)
	_ state.StatsReader = (*SingleThreadStore)(nil)
)
