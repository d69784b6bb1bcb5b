package mirror

import (
	"testing"

	"github.com/armoralley/server/internal/core/ecs"
	"github.com/armoralley/server/internal/world"
)

type stubEntity struct {
	id    ecs.EntityID
	kind  ecs.Kind
	state ecs.State
}

func (e *stubEntity) ID() ecs.EntityID  { return e.id }
func (e *stubEntity) Kind() ecs.Kind    { return e.kind }
func (e *stubEntity) State() *ecs.State { return &e.state }
func (e *stubEntity) Animate() bool     { return false }

func TestCaptureEncodesRegistryInOrder(t *testing.T) {
	ws := world.NewState(world.Options{ViewWidth: 100, ViewHeight: 100, Strict: true})
	ws.Registry.DeclareKinds("tank", "van")
	van := &stubEntity{id: ws.Registry.NewID(), kind: "van", state: ecs.State{X: 40, Width: 5, Height: 5, IsEnemy: true}}
	tank := &stubEntity{id: ws.Registry.NewID(), kind: "tank", state: ecs.State{X: 10, Width: 5, Height: 5, VX: 1}}
	ws.Admit(van)
	ws.Admit(tank)
	ws.EndFrame()

	b, err := Encode(Capture(ws, "match"))
	if err != nil {
		t.Fatal(err)
	}
	snap, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Frame != 1 || snap.Match != "match" || snap.Digest != world.Digest(ws.Registry) {
		t.Errorf("header mismatch: %+v", snap)
	}
	if len(snap.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(snap.Entities))
	}
	first, second := snap.Entities[0], snap.Entities[1]
	if first.Kind != "tank" || first.ID != uint64(tank.id) || first.VX != 1 {
		t.Errorf("first entity should be the tank, got %+v", first)
	}
	if second.Kind != "van" || !second.Enemy || second.X != 40 {
		t.Errorf("second entity should be the van, got %+v", second)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Error("expected decode error")
	}
}
