package system

import "time"

// Phase defines execution ordering within a single simulation frame.
type Phase int

const (
	PhaseEvents   Phase = iota // 0: deliver last frame's events
	PhaseEntities              // 1: animate pass over every active collection
	PhaseScenery               // 2: background scroll by camera delta
	PhaseTimers                // 3: advance frame timers
	PhaseOutput                // 4: mirror snapshots
	PhasePersist               // 5: journal frame digests
)

// System is the interface every per-frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
