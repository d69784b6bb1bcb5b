package unit

import (
	"fmt"

	"github.com/armoralley/server/internal/core/ecs"
	"github.com/armoralley/server/internal/data"
	"github.com/armoralley/server/internal/scripting"
	"github.com/armoralley/server/internal/world"
)

// Visual builds the render node for a freshly spawned unit. It belongs to the
// drawing layer; a headless simulation passes nil.
type Visual interface {
	Build(kind ecs.Kind, id ecs.EntityID) (world.Node, world.Layer)
}

// Factory builds catalogue-driven units and admits them into the simulation.
type Factory struct {
	world  *world.State
	units  *data.UnitTable
	lua    *scripting.Engine
	visual Visual
}

// NewFactory declares the catalogue's collection order on the registry.
// lua and visual may be nil.
func NewFactory(ws *world.State, units *data.UnitTable, lua *scripting.Engine, visual Visual) *Factory {
	ws.Registry.DeclareKinds(units.Order()...)
	return &Factory{world: ws, units: units, lua: lua, visual: visual}
}

func (f *Factory) Units() *data.UnitTable { return f.units }

// Spawn creates a unit of kind at (x, y) on the given side.
func (f *Factory) Spawn(kind ecs.Kind, x, y float64, enemy bool) (*Unit, error) {
	tpl := f.units.Get(kind)
	if tpl == nil {
		return nil, fmt.Errorf("spawn %q: %w", kind, data.ErrUnknownKind)
	}
	u := &Unit{
		id:      f.world.Registry.NewID(),
		kind:    kind,
		tpl:     tpl,
		factory: f,
		hp:      tpl.HP,
	}
	u.state = ecs.State{
		X:       x,
		Y:       y,
		Width:   tpl.Width,
		Height:  tpl.Height,
		VX:      tpl.Speed,
		IsEnemy: enemy,
		Static:  tpl.Static,
	}
	if enemy {
		u.state.VX = -tpl.Speed
	}
	if err := f.world.Admit(u); err != nil {
		return nil, err
	}
	if f.visual != nil {
		if node, layer := f.visual.Build(kind, u.id); node != nil {
			f.world.Culling.Register(u.id, node, layer, nil)
			f.world.Culling.SetPosition(u, x, y)
		}
	}
	if life := tpl.LifetimeDuration(); life > 0 {
		u.lifeTimer = f.world.Timers.Schedule(u.Die, life)
	}
	return u, nil
}

// Tether binds child to anchor: when the anchor dies or is released the child dies too.
func (f *Factory) Tether(child, anchor *Unit) {
	child.anchor = anchor.id
	anchor.tethered = append(anchor.tethered, child.id)
}

// SpawnList places every entry of a spawn list and returns the unit count.
func (f *Factory) SpawnList(entries []data.SpawnEntry) (int, error) {
	n := 0
	for _, s := range entries {
		for i := 0; i < s.Count; i++ {
			x := s.X + float64(i)*s.Spacing
			u, err := f.Spawn(ecs.Kind(s.Kind), x, s.Y, s.Enemy)
			if err != nil {
				return n, err
			}
			n++
			if s.Tether == "" {
				continue
			}
			child, err := f.Spawn(ecs.Kind(s.Tether), x, s.Y+u.state.Height, s.Enemy)
			if err != nil {
				return n, err
			}
			f.Tether(child, u)
			n++
		}
	}
	return n, nil
}

// lookup resolves a handle to a live unit built by this factory.
func (f *Factory) lookup(id ecs.EntityID) (*Unit, bool) {
	e, ok := f.world.Registry.Get(id)
	if !ok {
		return nil, false
	}
	u, ok := e.(*Unit)
	return u, ok
}

// damage applies amount to target if its kind is damageable.
func (f *Factory) damage(target ecs.Entity, amount int, attacker *Unit) {
	if !f.units.Can(target.Kind(), data.CapDamageable) {
		return
	}
	t, ok := f.lookup(target.ID())
	if !ok {
		return
	}
	if f.lua != nil {
		amount = f.lua.CalcDamage(string(attacker.kind), string(t.kind), amount)
	}
	t.Hit(amount, attacker)
}

// armed counts live armed units per side.
func (f *Factory) armed() (friendly, enemy int) {
	f.world.Registry.Each(func(e ecs.Entity) {
		st := e.State()
		if st.Dead || !f.units.Can(e.Kind(), data.CapArmed) {
			return
		}
		if st.IsEnemy {
			enemy++
		} else {
			friendly++
		}
	})
	return friendly, enemy
}

// BattleOver reports whether either side has no armed unit left alive.
func (f *Factory) BattleOver() bool {
	friendly, enemy := f.armed()
	return friendly == 0 || enemy == 0
}

// Winner names the side still holding armed units: "friendly", "enemy",
// "draw" when neither does, or "" while both still fight.
func (f *Factory) Winner() string {
	friendly, enemy := f.armed()
	switch {
	case friendly > 0 && enemy > 0:
		return ""
	case friendly > 0:
		return "friendly"
	case enemy > 0:
		return "enemy"
	}
	return "draw"
}
