package world

import (
	"testing"

	"github.com/armoralley/server/internal/core/ecs"
)

func TestCollisionCheck(t *testing.T) {
	a := Box{X: 100, Y: 0, Width: 10, Height: 10, Facing: 1}
	tests := []struct {
		name      string
		a, b      Box
		lookahead float64
		want      bool
	}{
		{"overlap", a, Box{X: 105, Width: 10, Height: 10}, 0, true},
		{"touching edge", a, Box{X: 110, Width: 10, Height: 10}, 0, true},
		{"gap without lookahead", a, Box{X: 115, Width: 10, Height: 10}, 0, false},
		{"gap within lookahead", a, Box{X: 115, Width: 10, Height: 10}, 5, true},
		{"lookahead only ahead", a, Box{X: 85, Width: 10, Height: 10}, 20, false},
		{"facing left pads left", Box{X: 100, Width: 10, Height: 10, Facing: -1}, Box{X: 85, Width: 10, Height: 10}, 5, true},
		{"vertical miss", a, Box{X: 105, Y: 30, Width: 10, Height: 10}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollisionCheck(tt.a, tt.b, tt.lookahead); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNearbyTestPicksClosestAhead(t *testing.T) {
	ws := newTestState()
	src := admit(t, ws, "tank", ecs.State{X: 100, VX: 1})
	far := admit(t, ws, "tank", ecs.State{X: 150, IsEnemy: true})
	near := admit(t, ws, "tank", ecs.State{X: 130, IsEnemy: true})
	admit(t, ws, "tank", ecs.State{X: 60, IsEnemy: true}) // behind
	admit(t, ws, "tank", ecs.State{X: 125})               // friendly

	var hits []ecs.Entity
	misses := 0
	found := ws.Proximity.NearbyTest(NearbyQuery{
		Source:    src,
		Kinds:     []ecs.Kind{"tank"},
		Lookahead: 100,
		OnHit:     func(e ecs.Entity) { hits = append(hits, e) },
		OnMiss:    func() { misses++ },
	})
	if !found || misses != 0 || len(hits) != 1 {
		t.Fatalf("expected exactly one hit, got found=%v hits=%d misses=%d", found, len(hits), misses)
	}
	if hits[0].ID() != near.id {
		t.Errorf("expected nearest %s, got %s (far=%s)", near.id, hits[0].ID(), far.id)
	}
}

func TestNearbyTestMisses(t *testing.T) {
	tests := []struct {
		name   string
		target ecs.State
		kinds  []ecs.Kind
	}{
		{"behind", ecs.State{X: 50, IsEnemy: true}, []ecs.Kind{"tank"}},
		{"out of range", ecs.State{X: 200, IsEnemy: true}, []ecs.Kind{"tank"}},
		{"dead", ecs.State{X: 120, IsEnemy: true, Dead: true}, []ecs.Kind{"tank"}},
		{"wrong kind", ecs.State{X: 120, IsEnemy: true}, []ecs.Kind{"van"}},
		{"no kinds", ecs.State{X: 120, IsEnemy: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newTestState()
			src := admit(t, ws, "tank", ecs.State{X: 100, VX: 1})
			admit(t, ws, "tank", tt.target)
			hit, miss := 0, 0
			ws.Proximity.NearbyTest(NearbyQuery{
				Source:    src,
				Kinds:     tt.kinds,
				Lookahead: 40,
				OnHit:     func(ecs.Entity) { hit++ },
				OnMiss:    func() { miss++ },
			})
			if hit != 0 || miss != 1 {
				t.Errorf("expected one miss, got hit=%d miss=%d", hit, miss)
			}
		})
	}
}

func TestNearbyTestTieBreaksByAdmission(t *testing.T) {
	ws := newTestState()
	src := admit(t, ws, "tank", ecs.State{X: 100, VX: -1, IsEnemy: true})
	first := admit(t, ws, "infantry", ecs.State{X: 70, Y: 0})
	admit(t, ws, "infantry", ecs.State{X: 70, Y: 20})

	for i := 0; i < 10; i++ {
		var got ecs.EntityID
		ws.Proximity.NearbyTest(NearbyQuery{
			Source:    src,
			Kinds:     []ecs.Kind{"infantry"},
			Lookahead: 50,
			OnHit:     func(e ecs.Entity) { got = e.ID() },
		})
		if got != first.id {
			t.Fatalf("run %d: expected earlier-admitted %s, got %s", i, first.id, got)
		}
	}
}

func TestCollisionTestReportsEveryOverlap(t *testing.T) {
	ws := newTestState()
	src := admit(t, ws, "gunfire", ecs.State{X: 100, Width: 30, VX: 1})
	a := admit(t, ws, "infantry", ecs.State{X: 105, IsEnemy: true})
	b := admit(t, ws, "infantry", ecs.State{X: 115, IsEnemy: true})
	admit(t, ws, "infantry", ecs.State{X: 300, IsEnemy: true})

	var got []ecs.EntityID
	n := ws.Proximity.CollisionTest(CollisionQuery{
		Source: src,
		Kinds:  []ecs.Kind{"infantry"},
		OnHit:  func(e ecs.Entity) { got = append(got, e.ID()) },
	})
	if n != 2 || len(got) != 2 || got[0] != a.id || got[1] != b.id {
		t.Errorf("expected [%s %s] in admission order, got %v", a.id, b.id, got)
	}
}

func TestCollisionTestSkipsTargetsKilledByEarlierHit(t *testing.T) {
	ws := newTestState()
	src := admit(t, ws, "gunfire", ecs.State{X: 100, Width: 30, VX: 1})
	a := admit(t, ws, "infantry", ecs.State{X: 105, IsEnemy: true})
	b := admit(t, ws, "infantry", ecs.State{X: 115, IsEnemy: true})

	n := ws.Proximity.CollisionTest(CollisionQuery{
		Source: src,
		Kinds:  []ecs.Kind{"infantry"},
		OnHit: func(e ecs.Entity) {
			if e.ID() == a.id {
				ws.Release(b)
			}
		},
	})
	if n != 1 {
		t.Errorf("released target was still reported, hits=%d", n)
	}
}

func TestCollisionApproachFrame(t *testing.T) {
	ws := newTestState()
	a := admit(t, ws, "tank", ecs.State{X: 100, Width: 10, VX: 1})
	admit(t, ws, "tank", ecs.State{X: 140, Width: 10, IsEnemy: true})

	frame := 0
	for f := 1; f <= 100 && frame == 0; f++ {
		a.moveTo(ws, a.state.X+a.state.VX)
		hits := ws.Proximity.CollisionTest(CollisionQuery{
			Source:    a,
			Kinds:     []ecs.Kind{"tank"},
			Lookahead: 8,
		})
		if hits > 0 {
			frame = f
		}
	}
	if frame != 22 {
		t.Errorf("expected first collision on frame 22, got %d", frame)
	}
}

func TestNearbyTestReentrantFromOnHit(t *testing.T) {
	ws := newTestState()
	src := admit(t, ws, "tank", ecs.State{X: 100, VX: 1})
	enemy := admit(t, ws, "tank", ecs.State{X: 130, IsEnemy: true})
	admit(t, ws, "van", ecs.State{X: 140, IsEnemy: true})

	var outer ecs.EntityID
	inner := 0
	ws.Proximity.NearbyTest(NearbyQuery{
		Source:    src,
		Kinds:     []ecs.Kind{"tank"},
		Lookahead: 100,
		OnHit: func(e ecs.Entity) {
			outer = e.ID()
			inner = ws.Proximity.CollisionTest(CollisionQuery{
				Source:    e,
				Kinds:     []ecs.Kind{"van"},
				Targets:   TargetFriendly,
				Lookahead: 0,
			})
		},
	})
	if outer != enemy.id {
		t.Errorf("outer query corrupted by nested query: got %s", outer)
	}
	if inner != 1 {
		t.Errorf("expected nested query to see the van, got %d", inner)
	}
}
