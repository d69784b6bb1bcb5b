package unit

import (
	"github.com/armoralley/server/internal/core/ecs"
	"github.com/armoralley/server/internal/data"
	"github.com/armoralley/server/internal/scripting"
	"github.com/armoralley/server/internal/world"
)

// Unit is a catalogue-driven entity: vehicles, infantry, aircraft, munitions
// and cosmetic particles all share it and differ by template capabilities.
type Unit struct {
	id      ecs.EntityID
	kind    ecs.Kind
	tpl     *data.UnitTemplate
	state   ecs.State
	factory *Factory

	hp       int
	finished bool
	holding  bool
	owner    ecs.EntityID // munitions: the unit that fired
	anchor   ecs.EntityID
	tethered []ecs.EntityID

	deathTimer *world.TimerHandle
	lifeTimer  *world.TimerHandle
	cooldown   *world.TimerHandle
}

func (u *Unit) ID() ecs.EntityID     { return u.id }
func (u *Unit) Kind() ecs.Kind       { return u.kind }
func (u *Unit) State() *ecs.State    { return &u.state }
func (u *Unit) HP() int              { return u.hp }
func (u *Unit) Holding() bool        { return u.holding }
func (u *Unit) Owner() ecs.EntityID  { return u.owner }
func (u *Unit) Anchor() ecs.EntityID { return u.anchor }

// Animate advances the unit one frame. It returns true once, on the frame
// after the death delay has elapsed.
func (u *Unit) Animate() bool {
	if u.state.Dead {
		return u.finished
	}
	w := u.factory.world

	if u.anchor != ecs.NoEntity {
		if a, ok := u.factory.lookup(u.anchor); !ok || a.state.Dead {
			u.detach()
			if u.state.Dead {
				return false
			}
		}
	}

	caps := u.tpl.Caps()
	var target ecs.Entity
	var gap float64
	if len(u.tpl.TargetKinds()) > 0 && !caps.Has(data.CapMunition) {
		w.Proximity.NearbyTest(world.NearbyQuery{
			Source:    u,
			Kinds:     u.tpl.TargetKinds(),
			Lookahead: u.tpl.Lookahead,
			OnHit: func(t ecs.Entity) {
				target = t
				gap, _ = world.Ahead(&u.state, t.State())
			},
		})
	}

	d := u.decide(target, gap)
	u.holding = d.Hold
	if !d.Hold {
		u.move()
	}
	if d.Fire && caps.Has(data.CapArmed) {
		u.fire()
	}
	if caps.Has(data.CapMunition) {
		u.impact()
	}
	if !u.state.Dead && u.outOfBounds() {
		u.Die()
	}
	return false
}

func (u *Unit) canFire() bool {
	return u.tpl.Munition != "" && (u.cooldown == nil || u.cooldown.Fired())
}

// decide asks the kind's script when one exists; otherwise ground units halt
// and fire at whatever is ahead of them.
func (u *Unit) decide(target ecs.Entity, gap float64) scripting.Decision {
	if lua := u.factory.lua; lua != nil && lua.HasDecider(string(u.kind)) {
		ctx := scripting.UnitContext{
			Kind:    string(u.kind),
			Frame:   u.factory.world.Frame(),
			X:       u.state.X,
			Y:       u.state.Y,
			HP:      u.hp,
			MaxHP:   u.tpl.HP,
			Enemy:   u.state.IsEnemy,
			CanFire: u.canFire(),
		}
		if target != nil {
			ctx.HasTarget = true
			ctx.TargetKind = string(target.Kind())
			ctx.TargetGap = gap
		}
		if d, ok := lua.Decide(ctx); ok {
			return d
		}
	}
	if target == nil {
		return scripting.Decision{}
	}
	return scripting.Decision{Hold: true, Fire: u.canFire()}
}

func (u *Unit) move() {
	if u.state.VX == 0 && u.state.VY == 0 {
		return
	}
	w := u.factory.world
	u.state.X += u.state.VX
	u.state.Y += u.state.VY
	w.Zones.RefreshZone(u)
	w.Culling.SetPosition(u, u.state.X, u.state.Y)
}

func (u *Unit) fire() {
	if !u.canFire() {
		return
	}
	f := u.factory
	mk := ecs.Kind(u.tpl.Munition)
	mt := f.units.Get(mk)
	x := u.state.X + u.state.Width
	if u.state.Facing() < 0 {
		x = u.state.X - mt.Width
	}
	y := u.state.Y + (u.state.Height-mt.Height)/2
	m, err := f.Spawn(mk, x, y, u.state.IsEnemy)
	if err != nil {
		return
	}
	m.owner = u.id
	if u.state.Facing() < 0 {
		m.state.VX = -mt.Speed
	} else {
		m.state.VX = mt.Speed
	}
	u.cooldown = f.world.Timers.Schedule(nil, u.tpl.CooldownDuration())
}

// impact damages every live target the munition overlaps, then spends it.
func (u *Unit) impact() {
	targets := u.tpl.TargetKinds()
	if len(targets) == 0 {
		return
	}
	owner, _ := u.factory.lookup(u.owner)
	attacker := u
	if owner != nil {
		attacker = owner
	}
	hits := u.factory.world.Proximity.CollisionTest(world.CollisionQuery{
		Source: u,
		Kinds:  targets,
		OnHit: func(t ecs.Entity) {
			u.factory.damage(t, u.tpl.Damage, attacker)
		},
	})
	if hits == 0 {
		return
	}
	if u.tpl.Impact != "" {
		u.factory.Spawn(ecs.Kind(u.tpl.Impact), u.state.X, u.state.Y, u.state.IsEnemy)
	}
	u.Die()
}

func (u *Unit) outOfBounds() bool {
	ww := u.factory.world.View.WorldWidth()
	if ww <= 0 {
		return false
	}
	return u.state.X+u.state.Width < 0 || u.state.X > ww
}

// Hit applies damage. Capturable units switch sides at zero hit points
// instead of dying.
func (u *Unit) Hit(amount int, attacker *Unit) {
	if u.state.Dead || amount <= 0 {
		return
	}
	u.hp -= amount
	if u.hp > 0 {
		return
	}
	if u.tpl.Caps().Has(data.CapCapturable) && attacker != nil && attacker.state.IsEnemy != u.state.IsEnemy {
		u.capture(attacker.state.IsEnemy)
		return
	}
	u.Die()
}

// capture switches u and everything tethered to it to the given side.
func (u *Unit) capture(enemy bool) {
	u.hp = u.tpl.HP
	u.state.IsEnemy = enemy
	zones := u.factory.world.Zones
	zones.ChangeOwnership(u)
	for _, id := range u.tethered {
		child, ok := u.factory.lookup(id)
		if !ok || child.state.Dead {
			continue
		}
		child.state.IsEnemy = enemy
		child.state.VX = -child.state.VX
		zones.ChangeOwnership(child)
	}
}

// Die starts the death sequence: the unit stops, its pending timers are
// cancelled, tethered units are cut loose (and die if their kind is
// tethered), and Animate reports completion once the death delay has elapsed.
func (u *Unit) Die() {
	if u.state.Dead {
		return
	}
	u.state.Dead = true
	u.state.VX, u.state.VY = 0, 0
	u.lifeTimer.Reset()
	u.cooldown.Reset()
	f := u.factory
	u.deathTimer = f.world.Timers.Schedule(func() { u.finished = true }, u.tpl.DeathDelayDuration())

	for _, id := range u.tethered {
		if child, ok := f.lookup(id); ok {
			child.detach()
		}
	}
	u.tethered = nil
}

// detach drops the anchor link. Tethered kinds cannot outlive their anchor.
func (u *Unit) detach() {
	u.anchor = ecs.NoEntity
	if u.tpl.Caps().Has(data.CapTethered) {
		u.Die()
	}
}
