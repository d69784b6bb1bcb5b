package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/armoralley/server/internal/core/ecs"
)

var ErrZoneTooNarrow = errors.New("zone narrower than query reach")

// Side partitions zone membership by ownership.
type Side uint8

const (
	SideFriendly Side = iota
	SideEnemy
)

func SideOf(st *ecs.State) Side {
	if st.IsEnemy {
		return SideEnemy
	}
	return SideFriendly
}

func (s Side) Opposite() Side { return 1 - s }

type zoneKey struct {
	zone int32
	side Side
	kind ecs.Kind
}

type membership struct {
	zone int32
	side Side
	kind ecs.Kind
}

// ZoneIndex buckets entities along the horizontal axis into fixed-width zones,
// partitioned by side and kind. A 3-zone neighbourhood around a source covers
// every target within one zone width, so zone width must be at least the
// largest lookahead plus the widest entity.
// Accessed only from the game loop goroutine; no locks.
type ZoneIndex struct {
	width   float64
	cells   map[zoneKey]map[ecs.EntityID]struct{}
	members *ecs.Store[membership]
}

func NewZoneIndex(width float64) *ZoneIndex {
	if width <= 0 {
		width = 512
	}
	return &ZoneIndex{
		width:   width,
		cells:   make(map[zoneKey]map[ecs.EntityID]struct{}),
		members: ecs.NewStore[membership](),
	}
}

func (z *ZoneIndex) Width() float64 { return z.width }

// CheckReach fails when a query reaching reach units past its source could
// land outside the 3-zone neighbourhood and miss targets.
func (z *ZoneIndex) CheckReach(reach float64) error {
	if reach > z.width {
		return fmt.Errorf("%w: width %g, reach %g", ErrZoneTooNarrow, z.width, reach)
	}
	return nil
}

// ZoneOf maps a world x coordinate to its zone.
func (z *ZoneIndex) ZoneOf(x float64) int32 {
	return int32(math.Floor(x / z.width))
}

// Zone returns the zone an entity was last indexed into.
func (z *ZoneIndex) Zone(id ecs.EntityID) (int32, bool) {
	m, ok := z.members.Get(id)
	if !ok {
		return 0, false
	}
	return m.zone, true
}

// RefreshZone re-indexes e from its current x and side. No-op when neither changed.
func (z *ZoneIndex) RefreshZone(e ecs.Entity) {
	st := e.State()
	z.place(e.ID(), membership{zone: z.ZoneOf(st.X), side: SideOf(st), kind: e.Kind()})
}

// ChangeOwnership moves e to the partition matching its current side while
// keeping the zone it was last indexed into.
func (z *ZoneIndex) ChangeOwnership(e ecs.Entity) {
	st := e.State()
	next := membership{zone: z.ZoneOf(st.X), side: SideOf(st), kind: e.Kind()}
	if cur, ok := z.members.Get(e.ID()); ok {
		next.zone = cur.zone
	}
	z.place(e.ID(), next)
}

// LeaveAllZones drops every membership of id.
func (z *ZoneIndex) LeaveAllZones(id ecs.EntityID) {
	m, ok := z.members.Get(id)
	if !ok {
		return
	}
	z.unlink(id, *m)
	z.members.Remove(id)
}

// Remove implements ecs.Removable so registry removal unlinks zones.
func (z *ZoneIndex) Remove(id ecs.EntityID) { z.LeaveAllZones(id) }

func (z *ZoneIndex) place(id ecs.EntityID, next membership) {
	if cur, ok := z.members.Get(id); ok {
		if *cur == next {
			return
		}
		z.unlink(id, *cur)
		*cur = next
	} else {
		m := next
		z.members.Set(id, &m)
	}
	k := zoneKey(next)
	cell := z.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		z.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (z *ZoneIndex) unlink(id ecs.EntityID, m membership) {
	k := zoneKey(m)
	if cell := z.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(z.cells, k)
		}
	}
}

// Gather appends ids of the given kinds and side found in zone and its two
// neighbours. Order is unspecified; callers sort by registry sequence.
func (z *ZoneIndex) Gather(out []ecs.EntityID, zone int32, side Side, kinds []ecs.Kind) []ecs.EntityID {
	for dz := int32(-1); dz <= 1; dz++ {
		for _, kind := range kinds {
			for id := range z.cells[zoneKey{zone: zone + dz, side: side, kind: kind}] {
				out = append(out, id)
			}
		}
	}
	return out
}

// Count returns how many entities of kind and side sit in zone.
func (z *ZoneIndex) Count(zone int32, side Side, kind ecs.Kind) int {
	return len(z.cells[zoneKey{zone: zone, side: side, kind: kind}])
}

// Indexed returns the number of entities with a zone membership.
func (z *ZoneIndex) Indexed() int { return z.members.Len() }
