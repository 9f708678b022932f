package application

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"dogfight/server/domain"
	"dogfight/server/domain/mocks"
	"dogfight/server/state/memory"

	"go.uber.org/mock/gomock"
)

func TestArena_JoinSendsRosterAndAnnounces(t *testing.T) {
	a := newTestArena(DefaultRules())
	a.join("A")

	lists := a.rec.named(domain.EventPlayersList)
	if len(lists) != 1 {
		t.Fatalf("players_list count = %d, want 1", len(lists))
	}
	if roster := lists[0].event.Payload.([]domain.Player); roster == nil || len(roster) != 0 {
		t.Fatalf("first joiner roster = %#v, want empty non-nil slice", roster)
	}

	a.rec.reset()
	a.join("B")

	if got := a.rec.names(); len(got) != 2 || got[0] != domain.EventPlayersList || got[1] != domain.EventPlayerJoined {
		t.Fatalf("events = %v", got)
	}
	list := a.rec.events[0]
	if list.target != domain.ToSession("B") {
		t.Errorf("players_list target = %+v", list.target)
	}
	roster := list.event.Payload.([]domain.Player)
	if len(roster) != 1 || roster[0].ID != "A" {
		t.Errorf("roster = %+v, want [A]", roster)
	}
	joined := a.rec.events[1]
	if joined.target != domain.ToAllExcept("B") {
		t.Errorf("player_joined target = %+v", joined.target)
	}

	b := a.player("B")
	want := domain.Player{ID: "B", ShipModel: DefaultShipModel, LastUpdate: a.clock.Now().UnixMilli(), Health: 100, MaxHealth: 100}
	if b != want {
		t.Errorf("player B = %+v, want %+v", b, want)
	}
	if joined.event.Payload.(domain.Player) != want {
		t.Errorf("player_joined payload = %+v", joined.event.Payload)
	}
}

func TestArena_JoinKeepsShipModel(t *testing.T) {
	a := newTestArena(DefaultRules())
	if err := a.app.HandleIntent(context.Background(), domain.JoinIntent{SessionID: "A", ShipModel: "Striker"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if got := a.player("A").ShipModel; got != "Striker" {
		t.Fatalf("ShipModel = %q, want Striker", got)
	}
	if err := a.app.HandleIntent(context.Background(), domain.JoinIntent{SessionID: "A"}); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("duplicate join: got %v, want ErrAlreadyJoined", err)
	}
}

func TestArena_JoinRejectedWhenFull(t *testing.T) {
	rules := DefaultRules()
	rules.MaxPlayers = 1
	a := newTestArena(rules)
	a.join("A")
	a.rec.reset()

	err := a.app.HandleIntent(context.Background(), domain.JoinIntent{SessionID: "B"})
	if !errors.Is(err, ErrArenaFull) {
		t.Fatalf("got %v, want ErrArenaFull", err)
	}
	if a.world.PlayerCount() != 1 {
		t.Fatalf("PlayerCount() = %d, want 1", a.world.PlayerCount())
	}
	if len(a.rec.events) != 1 {
		t.Fatalf("events = %v, want a single error event", a.rec.names())
	}
	ev := a.rec.events[0]
	payload, ok := ev.event.Payload.(domain.ErrorPayload)
	if ev.event.Name != domain.EventError || !ok || payload.Code != domain.ErrorCodeArenaFull || ev.target != domain.ToSession("B") {
		t.Fatalf("unexpected rejection event: %+v", ev)
	}
}

func TestArena_UpdatePosition(t *testing.T) {
	a := newTestArena(DefaultRules())
	a.join("A", "B")
	a.rec.reset()
	a.clock.advance(time.Second)

	in := domain.UpdatePositionIntent{
		SessionID: "A",
		Position:  domain.Vec3{X: 1, Y: 2, Z: 3},
		Rotation:  domain.Vec3{Y: 1.57},
		Velocity:  domain.Vec3{Z: -5},
	}
	if err := a.app.HandleIntent(context.Background(), in); err != nil {
		t.Fatalf("update: %v", err)
	}
	first := a.player("A")

	// 同じ更新を繰り返しても状態は変わらない
	if err := a.app.HandleIntent(context.Background(), in); err != nil {
		t.Fatalf("update: %v", err)
	}
	second := a.player("A")
	if first != second {
		t.Fatalf("update is not idempotent: %+v vs %+v", first, second)
	}
	if second.Position != in.Position || second.Rotation != in.Rotation || second.Velocity != in.Velocity {
		t.Fatalf("kinematics not applied: %+v", second)
	}
	if second.LastUpdate != a.clock.Now().UnixMilli() {
		t.Errorf("LastUpdate = %d, want %d", second.LastUpdate, a.clock.Now().UnixMilli())
	}

	moved := a.rec.named(domain.EventPlayerMoved)
	if len(moved) != 2 {
		t.Fatalf("player_moved count = %d, want 2", len(moved))
	}
	if moved[0].target != domain.ToAllExcept("A") {
		t.Errorf("player_moved target = %+v", moved[0].target)
	}
	want := domain.PlayerMoved{ID: "A", Position: in.Position, Rotation: in.Rotation, Velocity: in.Velocity, Health: 100, MaxHealth: 100}
	if moved[0].event.Payload.(domain.PlayerMoved) != want {
		t.Errorf("payload = %+v, want %+v", moved[0].event.Payload, want)
	}
}

func TestArena_UpdatePositionRejectsNonFinite(t *testing.T) {
	a := newTestArena(DefaultRules())
	a.join("A")
	a.rec.reset()

	err := a.app.HandleIntent(context.Background(), domain.UpdatePositionIntent{
		SessionID: "A",
		Position:  domain.Vec3{X: math.NaN()},
		Velocity:  domain.Vec3{Y: math.Inf(1)},
	})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("got %v, want ErrInvalidPayload", err)
	}
	if p := a.player("A"); p.Position != (domain.Vec3{}) {
		t.Fatalf("state mutated by invalid update: %+v", p)
	}
	if len(a.rec.events) != 0 {
		t.Fatalf("unexpected events: %v", a.rec.names())
	}
}

func TestArena_StaleIntentsAreNoops(t *testing.T) {
	a := newTestArena(DefaultRules())

	if err := a.app.HandleIntent(context.Background(), domain.UpdatePositionIntent{SessionID: "ghost"}); err != nil {
		t.Fatalf("update from unknown sender: %v", err)
	}
	if err := a.fire("ghost", domain.Vec3{}, domain.Vec3{X: 1}); err != nil {
		t.Fatalf("fire from unknown sender: %v", err)
	}
	if a.world.BulletCount() != 0 || a.world.PlayerCount() != 0 {
		t.Fatalf("stale intents mutated the world: %+v", a.world.Stats())
	}
	if len(a.rec.events) != 0 {
		t.Fatalf("unexpected events: %v", a.rec.names())
	}
}

func TestArena_FireBullet(t *testing.T) {
	a := newTestArena(DefaultRules())
	a.join("A")
	a.rec.reset()

	if err := a.fire("A", domain.Vec3{X: 1}, domain.Vec3{Z: -100}); err != nil {
		t.Fatalf("fire: %v", err)
	}
	if err := a.fire("A", domain.Vec3{X: 1}, domain.Vec3{Z: -100}); err != nil {
		t.Fatalf("fire: %v", err)
	}

	bullets := a.world.Bullets()
	if len(bullets) != 2 {
		t.Fatalf("BulletCount = %d, want 2", len(bullets))
	}
	if bullets[0].ID == bullets[1].ID {
		t.Fatalf("bullet ids collide: %s", bullets[0].ID)
	}
	b := bullets[0]
	if b.PlayerID != "A" || b.Timestamp != a.clock.Now().UnixMilli() || b.Velocity.Z != -100 {
		t.Errorf("unexpected bullet: %+v", b)
	}
	fired := a.rec.named(domain.EventBulletFired)
	if len(fired) != 2 || fired[0].target != domain.ToAll() {
		t.Fatalf("bullet_fired events = %+v", fired)
	}
	if fired[0].event.Payload.(domain.Bullet) != b {
		t.Errorf("bullet_fired payload = %+v, want %+v", fired[0].event.Payload, b)
	}
}

func TestArena_FireCapacity(t *testing.T) {
	rules := DefaultRules()
	rules.MaxBulletsPerPlayer = 2
	rules.MaxBullets = 3
	a := newTestArena(rules)
	a.join("A", "B")

	for i := 0; i < 2; i++ {
		if err := a.fire("A", domain.Vec3{}, domain.Vec3{}); err != nil {
			t.Fatalf("fire %d: %v", i, err)
		}
	}
	if err := a.fire("A", domain.Vec3{}, domain.Vec3{}); !errors.Is(err, ErrBulletCapacity) {
		t.Fatalf("per-player cap: got %v, want ErrBulletCapacity", err)
	}
	if err := a.fire("B", domain.Vec3{}, domain.Vec3{}); err != nil {
		t.Fatalf("fire B: %v", err)
	}
	if err := a.fire("B", domain.Vec3{}, domain.Vec3{}); !errors.Is(err, ErrBulletCapacity) {
		t.Fatalf("global cap: got %v, want ErrBulletCapacity", err)
	}
	if a.world.BulletCount() != 3 {
		t.Fatalf("BulletCount() = %d, want 3", a.world.BulletCount())
	}
}

func TestArena_FireCooldown(t *testing.T) {
	rules := DefaultRules()
	rules.FireCooldown = 100 * time.Millisecond
	a := newTestArena(rules)
	a.join("A")

	if err := a.fire("A", domain.Vec3{}, domain.Vec3{}); err != nil {
		t.Fatalf("first fire: %v", err)
	}
	a.clock.advance(50 * time.Millisecond)
	if err := a.fire("A", domain.Vec3{}, domain.Vec3{}); !errors.Is(err, ErrFireRateLimited) {
		t.Fatalf("got %v, want ErrFireRateLimited", err)
	}
	a.clock.advance(50 * time.Millisecond)
	if err := a.fire("A", domain.Vec3{}, domain.Vec3{}); err != nil {
		t.Fatalf("fire after cooldown: %v", err)
	}
}

func TestArena_FireRejectsNonFinite(t *testing.T) {
	a := newTestArena(DefaultRules())
	a.join("A")
	if err := a.fire("A", domain.Vec3{}, domain.Vec3{X: math.Inf(-1)}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("got %v, want ErrInvalidPayload", err)
	}
	if a.world.BulletCount() != 0 {
		t.Fatal("invalid fire stored a bullet")
	}
}

func TestArena_LeaveCascadesBullets(t *testing.T) {
	a := newTestArena(DefaultRules())
	a.join("A", "B")
	_ = a.fire("A", domain.Vec3{}, domain.Vec3{X: 1})
	_ = a.fire("A", domain.Vec3{}, domain.Vec3{X: -1})
	_ = a.fire("B", domain.Vec3{}, domain.Vec3{Y: 1})
	a.rec.reset()

	if err := a.app.HandleIntent(context.Background(), domain.LeaveIntent{SessionID: "A"}); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, ok := a.world.Player("A"); ok {
		t.Fatal("player A still present")
	}
	for _, b := range a.world.Bullets() {
		if b.PlayerID == "A" {
			t.Fatalf("bullet %s of departed player survived", b.ID)
		}
	}
	if a.world.BulletCount() != 1 {
		t.Fatalf("BulletCount() = %d, want 1", a.world.BulletCount())
	}

	// 2回目のleaveは何も送らない
	_ = a.app.HandleIntent(context.Background(), domain.LeaveIntent{SessionID: "A"})

	left := a.rec.named(domain.EventPlayerLeft)
	if len(left) != 1 {
		t.Fatalf("player_left count = %d, want 1", len(left))
	}
	if left[0].target != domain.ToAllExcept("A") || left[0].event.Payload != domain.SessionID("A") {
		t.Fatalf("unexpected player_left: %+v", left[0])
	}
}

func TestArena_LeavePublishesThroughBroadcaster(t *testing.T) {
	ctrl := gomock.NewController(t)
	bc := mocks.NewMockBroadcaster(ctrl)
	world := memory.NewSingleThreadStore(memory.NewStore([]domain.Player{{ID: "A", Health: 100, MaxHealth: 100}}))
	app := NewArenaApplication(world, bc, DefaultRules())

	bc.EXPECT().Publish(gomock.Any(), domain.Event{Name: domain.EventPlayerLeft, Payload: domain.SessionID("A")}, domain.ToAllExcept("A")).Times(1)

	ctx := context.Background()
	if err := app.HandleIntent(ctx, domain.LeaveIntent{SessionID: "A"}); err != nil {
		t.Fatalf("leave: %v", err)
	}
	// 存在しないプレイヤーのleaveではPublishされない
	if err := app.HandleIntent(ctx, domain.LeaveIntent{SessionID: "nobody"}); err != nil {
		t.Fatalf("leave: %v", err)
	}
}

type unknownIntent struct{}

func (unknownIntent) Sender() domain.SessionID { return "x" }

func TestArena_UnknownIntent(t *testing.T) {
	a := newTestArena(DefaultRules())
	if err := a.app.HandleIntent(context.Background(), unknownIntent{}); !errors.Is(err, ErrUnknownIntent) {
		t.Fatalf("got %v, want ErrUnknownIntent", err)
	}
}

func TestParseDeathPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DeathPolicy
		wantErr bool
	}{
		{"", DeathPolicyRespawn, false},
		{"respawn", DeathPolicyRespawn, false},
		{"eliminate", DeathPolicyEliminate, false},
		{"explode", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDeathPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDeathPolicy(%q) = (%q, %v), want %q", tt.in, got, err, tt.want)
		}
	}
}
