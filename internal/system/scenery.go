package system

import (
	"time"

	coresys "github.com/armoralley/server/internal/core/system"
	"github.com/armoralley/server/internal/world"
)

// ScenerySystem scrolls background layers by the camera movement since the
// previous frame. Phase 2 (Scenery), after every collection has animated.
type ScenerySystem struct {
	world *world.State
}

func NewScenerySystem(ws *world.State) *ScenerySystem {
	return &ScenerySystem{world: ws}
}

func (s *ScenerySystem) Phase() coresys.Phase { return coresys.PhaseScenery }

func (s *ScenerySystem) Update(_ time.Duration) {
	s.world.Scenery.Scroll(s.world.View.TakeDelta())
}
