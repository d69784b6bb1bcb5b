package system

import (
	"time"

	coresys "github.com/armoralley/server/internal/core/system"
	"github.com/armoralley/server/internal/world"
)

// EventDispatchSystem delivers the previous frame's events before any entity
// animates. Phase 0 (Events).
type EventDispatchSystem struct {
	world *world.State
}

func NewEventDispatchSystem(ws *world.State) *EventDispatchSystem {
	return &EventDispatchSystem{world: ws}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.world.Bus.SwapBuffers()
	s.world.Bus.DispatchAll()
}
