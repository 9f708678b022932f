package memory

import (
	"sync"

	"dogfight/server/domain"
	"dogfight/server/state"
)

// ConcurrentStore は Store をラップし、排他制御付きで World を実装する。
// 書き込みはRoomのゴルーチンのみが行い、Statsは任意のゴルーチンから読める。
type ConcurrentStore struct {
	base *Store
	mu   sync.RWMutex
}

// NewConcurrentStore は新しい ConcurrentStore を生成する。
func NewConcurrentStore(base *Store) *ConcurrentStore {
	return &ConcurrentStore{base: base}
}

func (c *ConcurrentStore) PutPlayer(p domain.Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base.putPlayer(p)
}

func (c *ConcurrentStore) Player(id domain.SessionID) (domain.Player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.player(id)
}

func (c *ConcurrentStore) DeletePlayer(id domain.SessionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.deletePlayer(id)
}

func (c *ConcurrentStore) Players() []domain.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.players.values()
}

func (c *ConcurrentStore) PlayerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.players.len()
}

func (c *ConcurrentStore) PutBullet(b domain.Bullet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base.putBullet(b)
}

func (c *ConcurrentStore) Bullet(id string) (domain.Bullet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.bullet(id)
}

func (c *ConcurrentStore) DeleteBullet(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.deleteBullet(id)
}

func (c *ConcurrentStore) Bullets() []domain.Bullet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.bullets.values()
}

func (c *ConcurrentStore) BulletCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.bullets.len()
}

func (c *ConcurrentStore) BulletCountOwnedBy(owner domain.SessionID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.owned[owner]
}

func (c *ConcurrentStore) DeleteBulletsOwnedBy(owner domain.SessionID) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.deleteBulletsOwnedBy(owner)
}

func (c *ConcurrentStore) Stats() state.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.stats()
}

var (
	_ state.World       = (*ConcurrentStore)(nil)
	_ state.StatsReader = (*ConcurrentStore)(nil)
)
