package system

import (
	"time"

	coresys "github.com/armoralley/server/internal/core/system"
	"github.com/armoralley/server/internal/mirror"
	"github.com/armoralley/server/internal/world"
	"go.uber.org/zap"
)

// Broadcaster receives encoded snapshots. mirror.Hub implements it.
type Broadcaster interface {
	Broadcast(msg []byte)
	Count() int
}

// MirrorSystem publishes a snapshot every N frames while anyone is watching.
// Phase 4 (Output).
type MirrorSystem struct {
	world *world.State
	out   Broadcaster
	match string
	every int
	count int
	sent  int
}

func NewMirrorSystem(ws *world.State, out Broadcaster, match string, every int) *MirrorSystem {
	if every <= 0 {
		every = 1
	}
	return &MirrorSystem{world: ws, out: out, match: match, every: every}
}

func (s *MirrorSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *MirrorSystem) Update(_ time.Duration) {
	s.count++
	if s.count < s.every {
		return
	}
	s.count = 0
	if s.out.Count() == 0 {
		return
	}
	msg, err := mirror.Encode(mirror.Capture(s.world, s.match))
	if err != nil {
		s.world.Log.Error("mirror snapshot", zap.Error(err))
		return
	}
	s.out.Broadcast(msg)
	s.sent++
}

// Sent returns the number of snapshots broadcast.
func (s *MirrorSystem) Sent() int { return s.sent }
