package world

import "github.com/armoralley/server/internal/core/ecs"

// Node is an entity's render resource, built and owned by the visual layer.
type Node interface {
	SetTransform(x, y float64)
	ClearTransform()
}

// Layer is the render container a Node attaches to.
type Layer interface {
	Attach(n Node)
	Detach(n Node)
}

type sprite struct {
	node     Node
	parent   Layer
	attached bool
	x, y     float64
	hasPos   bool
	onChange func(onScreen bool)
	checked  uint64 // stale generation this static entity was last evaluated in
}

// Culling tracks each entity's on/off-screen state, attaches render nodes only
// while visible and suppresses positional writes for everything off screen.
// Simulation keeps advancing off-screen entities; only the transform is skipped.
type Culling struct {
	view    *Viewport
	sprites *ecs.Store[sprite]
	stale   uint64
	writes  uint64
}

func NewCulling(view *Viewport) *Culling {
	c := &Culling{
		view:    view,
		sprites: ecs.NewStore[sprite](),
		stale:   1,
	}
	view.OnResize(c.MarkStale)
	return c
}

// Register binds a render node to an entity. The node is assumed attached to
// parent already; the first update detaches it if the entity is off screen.
// onChange may be nil.
func (c *Culling) Register(id ecs.EntityID, node Node, parent Layer, onChange func(onScreen bool)) {
	c.sprites.Set(id, &sprite{node: node, parent: parent, attached: node != nil, onChange: onChange})
}

// Unregister detaches and forgets the entity's render node.
func (c *Culling) Unregister(id ecs.EntityID) {
	sp, ok := c.sprites.Get(id)
	if !ok {
		return
	}
	if sp.attached && sp.parent != nil {
		sp.parent.Detach(sp.node)
	}
	c.sprites.Remove(id)
}

// Remove implements ecs.Removable so registry removal releases render state.
func (c *Culling) Remove(id ecs.EntityID) { c.Unregister(id) }

// IsOnScreen reports whether [x, x+width) intersects the viewport.
func (c *Culling) IsOnScreen(st *ecs.State) bool {
	return c.view.Intersects(st.X, st.Width)
}

// UpdateIsOnScreen applies the on/off transition for e and returns whether it
// is on screen. force re-applies the transition even when the state did not
// change and ignores the static-entity skip.
func (c *Culling) UpdateIsOnScreen(e ecs.Entity, force bool) bool {
	st := e.State()
	sp, _ := c.sprites.Get(e.ID())

	if st.Static && !force && sp != nil && sp.checked == c.stale && st.OnScreen != ecs.VisibilityUnknown {
		return st.OnScreen == ecs.VisibilityOn
	}
	if sp != nil {
		sp.checked = c.stale
	}

	on := c.IsOnScreen(st)
	next := ecs.VisibilityOff
	if on {
		next = ecs.VisibilityOn
	}
	if next == st.OnScreen && !force {
		return on
	}
	st.OnScreen = next
	if sp == nil {
		return on
	}

	if on {
		c.show(sp)
	} else {
		c.hide(sp)
	}
	if sp.onChange != nil {
		sp.onChange(on)
	}
	return on
}

func (c *Culling) show(sp *sprite) {
	if sp.node == nil {
		return
	}
	if !sp.attached && sp.parent != nil {
		sp.parent.Attach(sp.node)
		sp.attached = true
	}
	if sp.hasPos {
		sp.node.SetTransform(sp.x, sp.y)
		c.writes++
	}
}

// hide keeps the parent reference so show can re-attach without a lookup, and
// clears the transform so no stale composited state is retained.
func (c *Culling) hide(sp *sprite) {
	if sp.node == nil {
		return
	}
	if sp.attached && sp.parent != nil {
		sp.parent.Detach(sp.node)
		sp.attached = false
	}
	sp.node.ClearTransform()
}

// SetPosition records the entity's last known position and writes the
// transform only when the entity is on screen with its node attached. Writes
// for entities without a registered node are dropped; the next off→on
// transition replays the recorded position.
func (c *Culling) SetPosition(e ecs.Entity, x, y float64) {
	sp, ok := c.sprites.Get(e.ID())
	if !ok {
		return
	}
	sp.x, sp.y, sp.hasPos = x, y, true
	if e.State().OnScreen != ecs.VisibilityOn || !sp.attached || sp.node == nil {
		return
	}
	sp.node.SetTransform(x, y)
	c.writes++
}

// MarkStale forces static entities to be re-evaluated on their next update.
func (c *Culling) MarkStale() { c.stale++ }

// Writes returns the number of transform writes issued so far.
func (c *Culling) Writes() uint64 { return c.writes }

// Tracked returns the number of entities with a registered render node.
func (c *Culling) Tracked() int { return c.sprites.Len() }
