package system

import (
	"time"

	coresys "github.com/armoralley/server/internal/core/system"
	"github.com/armoralley/server/internal/persist"
	"github.com/armoralley/server/internal/world"
	"go.uber.org/zap"
)

// DigestSink accepts digest batches without blocking. persist.Journal
// implements it.
type DigestSink interface {
	Submit(batch []persist.FrameDigest) bool
}

// JournalSystem records a digest of every frame and hands them to the sink in
// batches. Phase 5 (Persist).
type JournalSystem struct {
	world   *world.State
	sink    DigestSink
	every   int
	pending []persist.FrameDigest
	lost    int
}

func NewJournalSystem(ws *world.State, sink DigestSink, every int) *JournalSystem {
	if every <= 0 {
		every = 1
	}
	return &JournalSystem{world: ws, sink: sink, every: every, pending: make([]persist.FrameDigest, 0, every)}
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) {
	s.pending = append(s.pending, persist.FrameDigest{
		Frame:    s.world.Frame(),
		Digest:   world.Digest(s.world.Registry),
		Entities: s.world.Registry.Len(),
	})
	if len(s.pending) >= s.every {
		s.Flush()
	}
}

// Flush submits whatever is pending. Called at shutdown for the final partial batch.
func (s *JournalSystem) Flush() {
	if len(s.pending) == 0 {
		return
	}
	batch := s.pending
	s.pending = make([]persist.FrameDigest, 0, s.every)
	if !s.sink.Submit(batch) {
		s.lost += len(batch)
		s.world.Log.Warn("journal queue full, digests dropped",
			zap.Uint64("first_frame", batch[0].Frame),
			zap.Int("frames", len(batch)),
		)
	}
}

// Lost returns the number of frame digests the sink refused.
func (s *JournalSystem) Lost() int { return s.lost }
