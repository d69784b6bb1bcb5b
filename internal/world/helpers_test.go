package world

import (
	"testing"

	"github.com/armoralley/server/internal/core/ecs"
)

type testEntity struct {
	id    ecs.EntityID
	kind  ecs.Kind
	state ecs.State
}

func (e *testEntity) ID() ecs.EntityID  { return e.id }
func (e *testEntity) Kind() ecs.Kind    { return e.kind }
func (e *testEntity) State() *ecs.State { return &e.state }
func (e *testEntity) Animate() bool     { return false }
func (e *testEntity) moveTo(ws *State, x float64) {
	e.state.X = x
	ws.Zones.RefreshZone(e)
}

func newTestState() *State {
	return NewState(Options{ViewWidth: 100, ViewHeight: 100, Strict: true})
}

func admit(t *testing.T, ws *State, kind ecs.Kind, st ecs.State) *testEntity {
	t.Helper()
	if st.Width == 0 {
		st.Width = 10
	}
	if st.Height == 0 {
		st.Height = 10
	}
	e := &testEntity{id: ws.Registry.NewID(), kind: kind, state: st}
	if err := ws.Admit(e); err != nil {
		t.Fatalf("admit %s: %v", kind, err)
	}
	return e
}

type fakeNode struct {
	transforms [][2]float64
	cleared    int
}

func (n *fakeNode) SetTransform(x, y float64) { n.transforms = append(n.transforms, [2]float64{x, y}) }
func (n *fakeNode) ClearTransform()           { n.cleared++ }

type fakeLayer struct {
	attached map[Node]bool
	attaches int
	detaches int
}

func newFakeLayer() *fakeLayer { return &fakeLayer{attached: make(map[Node]bool)} }

func (l *fakeLayer) Attach(n Node) { l.attached[n] = true; l.attaches++ }
func (l *fakeLayer) Detach(n Node) { delete(l.attached, n); l.detaches++ }
