package world

import (
	"fmt"
	"time"

	"github.com/armoralley/server/internal/core/ecs"
	"github.com/armoralley/server/internal/core/event"
	"go.uber.org/zap"
)

// Options sizes a simulation.
type Options struct {
	FrameDuration time.Duration
	ZoneWidth     float64
	ViewWidth     float64
	ViewHeight    float64
	WorldWidth    float64
	// Strict panics on malformed entities instead of logging and skipping them.
	Strict bool
	Log    *zap.Logger
}

// State is the simulation context. Every subsystem and entity constructor
// receives it explicitly; nothing in the simulation reads package globals.
// Accessed only from the game loop goroutine; no locks.
type State struct {
	Log       *zap.Logger
	Registry  *ecs.Registry
	Zones     *ZoneIndex
	Proximity *Proximity
	Culling   *Culling
	Timers    *Timers
	View      *Viewport
	Scenery   *Scenery
	Bus       *event.Bus
	Strict    bool

	frame uint64
}

func NewState(opts Options) *State {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	reg := ecs.NewRegistry()
	zones := NewZoneIndex(opts.ZoneWidth)
	view := NewViewport(opts.ViewWidth, opts.ViewHeight, opts.WorldWidth)
	culling := NewCulling(view)
	reg.Track(zones)
	reg.Track(culling)
	return &State{
		Log:       log,
		Registry:  reg,
		Zones:     zones,
		Proximity: NewProximity(zones, reg),
		Culling:   culling,
		Timers:    NewTimers(opts.FrameDuration),
		View:      view,
		Scenery:   NewScenery(),
		Bus:       event.NewBus(),
		Strict:    opts.Strict,
	}
}

// Frame returns the number of completed simulation frames.
func (s *State) Frame() uint64 { return s.frame }

// EndFrame is called by the loop once every phase of a frame has run.
func (s *State) EndFrame() { s.frame++ }

// Admit registers e and indexes it into its zone. A malformed entity is a
// programming error: strict simulations panic, others log and reject it.
func (s *State) Admit(e ecs.Entity) error {
	if e == nil {
		return s.Fault(fmt.Errorf("admit: %w: nil entity", ecs.ErrMalformed))
	}
	if err := s.Registry.Add(e.Kind(), e); err != nil {
		return s.Fault(fmt.Errorf("admit: %w", err))
	}
	s.Zones.RefreshZone(e)
	return nil
}

// Release removes e from its collection, zones and render tracking.
func (s *State) Release(e ecs.Entity) bool {
	return s.Registry.Remove(e.Kind(), e)
}

// Fault reports a precondition violation according to the strictness mode
// and returns err for callers that propagate it.
func (s *State) Fault(err error) error {
	if s.Strict {
		panic(err)
	}
	s.Log.Error("simulation fault", zap.Uint64("frame", s.frame), zap.Error(err))
	return err
}
