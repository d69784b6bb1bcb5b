package system

import (
	"testing"
	"time"

	"github.com/armoralley/server/internal/core/ecs"
	"github.com/armoralley/server/internal/core/event"
	"github.com/armoralley/server/internal/world"
	"go.uber.org/zap"
)

type scriptedEntity struct {
	id       ecs.EntityID
	kind     ecs.Kind
	state    *ecs.State
	animated int
	animate  func() bool
}

func (e *scriptedEntity) ID() ecs.EntityID  { return e.id }
func (e *scriptedEntity) Kind() ecs.Kind    { return e.kind }
func (e *scriptedEntity) State() *ecs.State { return e.state }
func (e *scriptedEntity) Animate() bool {
	e.animated++
	if e.animate != nil {
		return e.animate()
	}
	return false
}

func newWorld(strict bool) *world.State {
	return world.NewState(world.Options{
		FrameDuration: 10 * time.Millisecond,
		ViewWidth:     100,
		ViewHeight:    100,
		Strict:        strict,
		Log:           zap.NewNop(),
	})
}

func spawn(t *testing.T, ws *world.State, kind ecs.Kind) *scriptedEntity {
	t.Helper()
	e := &scriptedEntity{id: ws.Registry.NewID(), kind: kind, state: &ecs.State{Width: 5, Height: 5}}
	if err := ws.Admit(e); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestChainedDestructionShrinksByTwo(t *testing.T) {
	ws := newWorld(true)
	e0 := spawn(t, ws, "tank")
	e1 := spawn(t, ws, "tank")
	e2 := spawn(t, ws, "tank")
	e0.animate = func() bool {
		ws.Registry.Remove("tank", e1)
		return true
	}

	sys := NewEntitySystem(ws, nil, nil)
	sys.Update(0)

	coll := ws.Registry.Collection("tank")
	if len(coll) != 1 || coll[0].ID() != e2.id {
		t.Fatalf("expected only e2 to remain, got %d entities", len(coll))
	}
	if e0.animated != 1 || e2.animated != 1 {
		t.Errorf("survivors must animate exactly once: e0=%d e2=%d", e0.animated, e2.animated)
	}
	if e1.animated > 1 {
		t.Errorf("e1 animated %d times", e1.animated)
	}
}

func TestFirstEntityDestroysBothInPair(t *testing.T) {
	ws := newWorld(true)
	e0 := spawn(t, ws, "tank")
	e1 := spawn(t, ws, "tank")
	e0.animate = func() bool {
		ws.Release(e1)
		return true
	}

	before := len(ws.Registry.Collection("tank"))
	NewEntitySystem(ws, nil, nil).Update(0)
	after := len(ws.Registry.Collection("tank"))

	if before-after != 2 {
		t.Fatalf("expected collection to shrink by 2, went %d -> %d", before, after)
	}
	if ws.Registry.Contains(e0.id) || ws.Registry.Contains(e1.id) {
		t.Error("destroyed entities still registered")
	}
	// reverse iteration: e1 animates first, e0 then releases it
	if e0.animated != 1 || e1.animated != 1 {
		t.Errorf("expected one animate each, e0=%d e1=%d", e0.animated, e1.animated)
	}
}

func TestRemovedBeforeTurnIsNeverAnimated(t *testing.T) {
	ws := newWorld(true)
	first := spawn(t, ws, "tank")
	spawn(t, ws, "tank")
	last := spawn(t, ws, "tank")
	last.animate = func() bool {
		ws.Release(first)
		return true
	}

	NewEntitySystem(ws, nil, nil).Update(0)
	if first.animated != 0 {
		t.Errorf("entity released earlier in the pass was animated %d times", first.animated)
	}
	if n := len(ws.Registry.Collection("tank")); n != 1 {
		t.Errorf("expected 1 survivor, got %d", n)
	}
}

func TestFinishedEntityIsNeverAnimatedAgain(t *testing.T) {
	ws := newWorld(true)
	e := spawn(t, ws, "smoke")
	e.animate = func() bool { return true }
	sys := NewEntitySystem(ws, nil, nil)
	for i := 0; i < 3; i++ {
		sys.Update(0)
	}
	if e.animated != 1 {
		t.Errorf("expected a single animate call, got %d", e.animated)
	}
	if ws.Registry.Contains(e.id) {
		t.Error("finished entity still registered")
	}
}

func TestSpawnDuringPassWaitsForNextFrame(t *testing.T) {
	ws := newWorld(true)
	parent := spawn(t, ws, "tank")
	var child *scriptedEntity
	parent.animate = func() bool {
		if child == nil {
			child = spawn(t, ws, "tank")
		}
		return false
	}
	sys := NewEntitySystem(ws, nil, nil)
	sys.Update(0)
	if child.animated != 0 {
		t.Error("entity admitted mid-pass animated in the same frame")
	}
	sys.Update(0)
	if child.animated != 1 {
		t.Errorf("expected child animated next frame, got %d", child.animated)
	}
}

func TestRemovalEventDeliveredNextFrame(t *testing.T) {
	ws := newWorld(true)
	e := spawn(t, ws, "van")
	e.animate = func() bool { return true }
	var got []event.EntityRemoved
	event.Subscribe(ws.Bus, func(ev event.EntityRemoved) { got = append(got, ev) })

	dispatch := NewEventDispatchSystem(ws)
	entities := NewEntitySystem(ws, nil, nil)
	dispatch.Update(0)
	entities.Update(0)
	if len(got) != 0 {
		t.Fatal("event delivered in the frame it was emitted")
	}
	dispatch.Update(0)
	if len(got) != 1 || got[0].ID != e.id || got[0].Kind != "van" {
		t.Errorf("unexpected events %+v", got)
	}
}

func TestBattleOverNarrowsAfterConsecutiveFrames(t *testing.T) {
	ws := newWorld(true)
	tank := spawn(t, ws, "tank")
	smoke := spawn(t, ws, "smoke")

	over := []bool{true, false, true, true, false, false}
	frame := 0
	sys := NewEntitySystem(ws, []ecs.Kind{"smoke"}, func() bool { return over[frame] })
	overEvents := 0
	event.Subscribe(ws.Bus, func(event.BattleOver) { overEvents++ })

	narrowedAt := -1
	for frame = 0; frame < len(over); frame++ {
		sys.Update(0)
		if sys.Narrowed() && narrowedAt < 0 {
			narrowedAt = frame
		}
	}
	if narrowedAt != 3 {
		t.Fatalf("expected narrowing on frame 3, got %d", narrowedAt)
	}
	if tank.animated != 4 {
		t.Errorf("tank should stop after narrowing: animated %d", tank.animated)
	}
	if smoke.animated != len(over) {
		t.Errorf("cosmetic kind must keep animating: %d", smoke.animated)
	}
	ws.Bus.SwapBuffers()
	ws.Bus.DispatchAll()
	if overEvents != 1 {
		t.Errorf("expected one BattleOver event, got %d", overEvents)
	}
}

func TestMalformedStateSkippedOutsideStrictMode(t *testing.T) {
	ws := newWorld(false)
	bad := spawn(t, ws, "tank")
	good := spawn(t, ws, "tank")
	bad.state = nil

	NewEntitySystem(ws, nil, nil).Update(0)
	if bad.animated != 0 {
		t.Error("entity without state was animated")
	}
	if good.animated != 1 {
		t.Error("fault stopped the pass")
	}
}

func TestMalformedStatePanicsInStrictMode(t *testing.T) {
	ws := newWorld(true)
	bad := spawn(t, ws, "tank")
	bad.state = nil
	defer func() {
		if recover() == nil {
			t.Error("strict mode did not panic")
		}
	}()
	NewEntitySystem(ws, nil, nil).Update(0)
}

func TestTimerSystemAdvancesOncePerFrame(t *testing.T) {
	ws := newWorld(true)
	fired := false
	ws.Timers.Schedule(func() { fired = true }, 20*time.Millisecond)
	sys := NewTimerSystem(ws)
	sys.Update(0)
	if fired {
		t.Fatal("fired after one frame")
	}
	sys.Update(0)
	if !fired {
		t.Error("not fired after two frames")
	}
}
