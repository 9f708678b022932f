package application

import (
	"context"
	"time"

	"dogfight/server/domain"
	"dogfight/server/state/memory"
)

type published struct {
	event  domain.Event
	target domain.Target
}

type recordingBroadcaster struct {
	events []published
}

func (r *recordingBroadcaster) Publish(_ context.Context, event domain.Event, target domain.Target) {
	r.events = append(r.events, published{event: event, target: target})
}

func (r *recordingBroadcaster) named(name string) []published {
	var out []published
	for _, p := range r.events {
		if p.event.Name == name {
			out = append(out, p)
		}
	}
	return out
}

func (r *recordingBroadcaster) names() []string {
	out := make([]string, 0, len(r.events))
	for _, p := range r.events {
		out = append(out, p.event.Name)
	}
	return out
}

func (r *recordingBroadcaster) reset() {
	r.events = nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type testArena struct {
	app   *ArenaApplication
	world *memory.SingleThreadStore
	rec   *recordingBroadcaster
	clock *fakeClock
}

func newTestArena(rules Rules) *testArena {
	world := memory.NewSingleThreadStore(memory.NewStore(nil))
	rec := &recordingBroadcaster{}
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	return &testArena{
		app:   NewArenaApplication(world, rec, rules, WithClock(clock)),
		world: world,
		rec:   rec,
		clock: clock,
	}
}

func (a *testArena) join(ids ...domain.SessionID) {
	for _, id := range ids {
		if err := a.app.HandleIntent(context.Background(), domain.JoinIntent{SessionID: id}); err != nil {
			panic(err)
		}
	}
}

func (a *testArena) fire(id domain.SessionID, pos, vel domain.Vec3) error {
	return a.app.HandleIntent(context.Background(), domain.FireBulletIntent{SessionID: id, Position: pos, Velocity: vel})
}

func (a *testArena) moveTo(id domain.SessionID, pos domain.Vec3) {
	p, ok := a.world.Player(id)
	if !ok {
		panic("unknown player " + id)
	}
	p.Position = pos
	a.world.PutPlayer(p)
}

func (a *testArena) tick() {
	a.app.Tick(context.Background(), a.clock.Now())
}

func (a *testArena) player(id domain.SessionID) domain.Player {
	p, _ := a.world.Player(id)
	return p
}
