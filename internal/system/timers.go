package system

import (
	"time"

	coresys "github.com/armoralley/server/internal/core/system"
	"github.com/armoralley/server/internal/world"
)

// TimerSystem advances frame timers once per frame. Phase 3 (Timers).
// Because it only runs inside a simulated frame, pausing the loop pauses every timer.
type TimerSystem struct {
	world *world.State
}

func NewTimerSystem(ws *world.State) *TimerSystem {
	return &TimerSystem{world: ws}
}

func (s *TimerSystem) Phase() coresys.Phase { return coresys.PhaseTimers }

func (s *TimerSystem) Update(_ time.Duration) {
	s.world.Timers.Advance()
}
