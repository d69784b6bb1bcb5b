package system

import (
	"fmt"
	"time"

	"github.com/armoralley/server/internal/core/ecs"
	"github.com/armoralley/server/internal/core/event"
	coresys "github.com/armoralley/server/internal/core/system"
	"github.com/armoralley/server/internal/world"
	"go.uber.org/zap"
)

// BattleOverFrames is how many consecutive frames the battle-over predicate
// must hold before the active set narrows.
const BattleOverFrames = 2

// EntitySystem is the animate pass. Phase 1 (Entities).
//
// Each frame it walks every active collection in registry order. Within a
// collection it iterates a snapshot in reverse; entries released earlier in
// the pass (chained destruction) are skipped, and entries admitted during the
// pass wait for the next frame.
type EntitySystem struct {
	world      *world.State
	cosmetic   []ecs.Kind
	battleOver func() bool
	overFrames int
	streak     int
	narrowed   bool
	scratch    []ecs.Entity
}

// NewEntitySystem creates the pass. cosmetic lists the kinds that keep
// animating after the battle ends; battleOver may be nil.
func NewEntitySystem(ws *world.State, cosmetic []ecs.Kind, battleOver func() bool) *EntitySystem {
	return &EntitySystem{
		world:      ws,
		cosmetic:   cosmetic,
		battleOver: battleOver,
		overFrames: BattleOverFrames,
		scratch:    make([]ecs.Entity, 0, 128),
	}
}

// SetBattleOverFrames overrides BattleOverFrames.
func (s *EntitySystem) SetBattleOverFrames(n int) {
	if n > 0 {
		s.overFrames = n
	}
}

func (s *EntitySystem) Phase() coresys.Phase { return coresys.PhaseEntities }

func (s *EntitySystem) Update(_ time.Duration) {
	for _, kind := range s.activeKinds() {
		s.animateCollection(kind)
	}
	s.checkBattleOver()
}

// Narrowed reports whether the battle-over transition has happened.
func (s *EntitySystem) Narrowed() bool { return s.narrowed }

func (s *EntitySystem) activeKinds() []ecs.Kind {
	if s.narrowed {
		return s.cosmetic
	}
	return s.world.Registry.Kinds()
}

func (s *EntitySystem) animateCollection(kind ecs.Kind) {
	reg := s.world.Registry
	s.scratch = append(s.scratch[:0], reg.Collection(kind)...)
	for i := len(s.scratch) - 1; i >= 0; i-- {
		e := s.scratch[i]
		if !reg.Contains(e.ID()) {
			continue
		}
		st := e.State()
		if st == nil {
			s.world.Fault(fmt.Errorf("animate %s %s: %w: state vanished", kind, e.ID(), ecs.ErrMalformed))
			continue
		}
		s.world.Culling.UpdateIsOnScreen(e, false)
		if e.Animate() {
			s.release(e, st)
		}
	}
	clear(s.scratch)
	s.scratch = s.scratch[:0]
}

func (s *EntitySystem) release(e ecs.Entity, st *ecs.State) {
	id, kind := e.ID(), e.Kind()
	if !s.world.Release(e) {
		return
	}
	event.Emit(s.world.Bus, event.EntityRemoved{
		Frame:   s.world.Frame(),
		ID:      id,
		Kind:    kind,
		IsEnemy: st.IsEnemy,
	})
}

// checkBattleOver narrows the active set to cosmetic kinds once the predicate
// has held for overFrames consecutive frames. The transition is permanent.
func (s *EntitySystem) checkBattleOver() {
	if s.narrowed || s.battleOver == nil {
		return
	}
	if !s.battleOver() {
		s.streak = 0
		return
	}
	s.streak++
	if s.streak < s.overFrames {
		return
	}
	s.narrowed = true
	event.Emit(s.world.Bus, event.BattleOver{Frame: s.world.Frame()})
	s.world.Log.Info("battle over, animating cosmetic collections only",
		zap.Uint64("frame", s.world.Frame()),
		zap.Int("cosmetic_kinds", len(s.cosmetic)),
	)
}
