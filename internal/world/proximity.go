package world

import (
	"sort"

	"github.com/armoralley/server/internal/core/ecs"
)

// Box is an axis-aligned rectangle with a facing used to place lookahead padding.
type Box struct {
	X, Y          float64
	Width, Height float64
	Facing        float64 // +1 right, -1 left
}

func BoxOf(st *ecs.State) Box {
	return Box{X: st.X, Y: st.Y, Width: st.Width, Height: st.Height, Facing: st.Facing()}
}

// CollisionCheck reports whether a, extended by lookahead on the side it faces,
// overlaps b. Edges that touch count as overlapping.
func CollisionCheck(a, b Box, lookahead float64) bool {
	left, right := a.X, a.X+a.Width
	if a.Facing < 0 {
		left -= lookahead
	} else {
		right += lookahead
	}
	if right < b.X || left > b.X+b.Width {
		return false
	}
	return a.Y <= b.Y+b.Height && a.Y+a.Height >= b.Y
}

// Targeting selects which ownership partition a query scans.
type Targeting uint8

const (
	TargetOpposing Targeting = iota
	TargetFriendly
	TargetAny
)

// NearbyQuery finds the single closest target ahead of Source.
type NearbyQuery struct {
	Source    ecs.Entity
	Kinds     []ecs.Kind
	Lookahead float64
	Targets   Targeting
	OnHit     func(target ecs.Entity)
	OnMiss    func()
}

// CollisionQuery finds every live target overlapping Source.
type CollisionQuery struct {
	Source    ecs.Entity
	Kinds     []ecs.Kind
	Lookahead float64
	Targets   Targeting
	OnHit     func(target ecs.Entity)
}

type candidate struct {
	entity ecs.Entity
	seq    uint64
}

// Proximity answers nearby and collision queries from the zone index.
// Results are ordered by registry admission sequence, never by map order.
type Proximity struct {
	zones    *ZoneIndex
	registry *ecs.Registry
	ids      []ecs.EntityID
	cands    []candidate
	depth    int
}

func NewProximity(zones *ZoneIndex, registry *ecs.Registry) *Proximity {
	return &Proximity{
		zones:    zones,
		registry: registry,
		ids:      make([]ecs.EntityID, 0, 64),
		cands:    make([]candidate, 0, 64),
	}
}

// Ahead returns the gap between source and target along source's facing and
// whether target lies ahead. Rightward: target's left edge is at or beyond the
// source's left edge, gap measured from the source's right edge. Leftward mirrors it.
func Ahead(source, target *ecs.State) (gap float64, ok bool) {
	if source.Facing() < 0 {
		if target.X+target.Width > source.X+source.Width {
			return 0, false
		}
		gap = source.X - (target.X + target.Width)
	} else {
		if target.X < source.X {
			return 0, false
		}
		gap = target.X - (source.X + source.Width)
	}
	if gap < 0 {
		gap = 0
	}
	return gap, true
}

// NearbyTest calls OnHit with the closest qualifying target within lookahead,
// or OnMiss when there is none. Equal distances resolve to the earlier-admitted
// target. Returns whether a target was found.
func (p *Proximity) NearbyTest(q NearbyQuery) bool {
	src := q.Source.State()
	cands := p.collect(p.acquire(), q.Source, q.Kinds, q.Targets)

	var target ecs.Entity
	var bestGap float64
	var bestSeq uint64
	for _, c := range cands {
		gap, ok := Ahead(src, c.entity.State())
		if !ok || gap > q.Lookahead {
			continue
		}
		if target == nil || gap < bestGap || (gap == bestGap && c.seq < bestSeq) {
			target, bestGap, bestSeq = c.entity, gap, c.seq
		}
	}
	p.release(cands)

	if target == nil {
		if q.OnMiss != nil {
			q.OnMiss()
		}
		return false
	}
	if q.OnHit != nil {
		q.OnHit(target)
	}
	return true
}

// CollisionTest calls OnHit once for each overlapping target that is still
// alive when its turn comes, in admission order. Returns the hit count.
func (p *Proximity) CollisionTest(q CollisionQuery) int {
	src := BoxOf(q.Source.State())
	cands := p.collect(p.acquire(), q.Source, q.Kinds, q.Targets)
	defer p.release(cands)
	sort.Slice(cands, func(i, j int) bool { return cands[i].seq < cands[j].seq })

	hits := 0
	for _, c := range cands {
		st := c.entity.State()
		// an earlier OnHit in this call may have killed or released the target
		if st.Dead || !p.registry.Contains(c.entity.ID()) {
			continue
		}
		if !CollisionCheck(src, BoxOf(st), q.Lookahead) {
			continue
		}
		hits++
		if q.OnHit != nil {
			q.OnHit(c.entity)
		}
	}
	return hits
}

// acquire hands out the shared candidate buffer, or a fresh one when a query
// is issued from inside another query's callback.
func (p *Proximity) acquire() []candidate {
	p.depth++
	if p.depth > 1 {
		return make([]candidate, 0, 16)
	}
	return p.cands[:0]
}

func (p *Proximity) release(c []candidate) {
	p.depth--
	if p.depth == 0 {
		clear(c)
		p.cands = c[:0]
	}
}

func (p *Proximity) collect(out []candidate, source ecs.Entity, kinds []ecs.Kind, targeting Targeting) []candidate {
	p.ids = p.ids[:0]
	if len(kinds) == 0 {
		return out
	}
	st := source.State()
	zone, ok := p.zones.Zone(source.ID())
	if !ok {
		zone = p.zones.ZoneOf(st.X)
	}
	side := SideOf(st)
	switch targeting {
	case TargetOpposing:
		p.ids = p.zones.Gather(p.ids, zone, side.Opposite(), kinds)
	case TargetFriendly:
		p.ids = p.zones.Gather(p.ids, zone, side, kinds)
	default:
		p.ids = p.zones.Gather(p.ids, zone, SideFriendly, kinds)
		p.ids = p.zones.Gather(p.ids, zone, SideEnemy, kinds)
	}
	self := source.ID()
	for _, id := range p.ids {
		if id == self {
			continue
		}
		e, ok := p.registry.Get(id)
		if !ok || e.State().Dead {
			continue
		}
		out = append(out, candidate{entity: e, seq: p.registry.Seq(id)})
	}
	return out
}
