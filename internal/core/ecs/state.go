package ecs

import (
	"fmt"
	"math"
)

// Kind tags an entity type. Every kind owns exactly one registry collection.
type Kind string

// Visibility is the tri-state on-screen flag. Only the culling tracker writes it.
type Visibility uint8

const (
	VisibilityUnknown Visibility = iota
	VisibilityOn
	VisibilityOff
)

func (v Visibility) String() string {
	switch v {
	case VisibilityOn:
		return "on"
	case VisibilityOff:
		return "off"
	default:
		return "unknown"
	}
}

// State is the record every admitted entity exposes to the simulation core.
type State struct {
	X, Y          float64
	Width, Height float64
	VX, VY        float64
	IsEnemy       bool
	Dead          bool
	OnScreen      Visibility
	// Static entities never move once placed; culling skips them until the
	// viewport is marked stale.
	Static bool
}

// Facing returns +1 for rightward travel and -1 for leftward travel.
// A stationary entity faces by side: friendly right, enemy left.
func (s *State) Facing() float64 {
	switch {
	case s.VX > 0:
		return 1
	case s.VX < 0:
		return -1
	case s.IsEnemy:
		return -1
	default:
		return 1
	}
}

// Validate reports why the record cannot be simulated, or nil.
func (s *State) Validate() error {
	fields := [...]struct {
		name string
		v    float64
	}{{"x", s.X}, {"y", s.Y}, {"width", s.Width}, {"height", s.Height}, {"vx", s.VX}, {"vy", s.VY}}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s is not finite", f.name)
		}
	}
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("negative size %gx%g", s.Width, s.Height)
	}
	return nil
}

// Entity is the admission contract. Animate is called once per frame and
// returns true exactly once: the frame the entity has finished its death
// cleanup and may be released.
type Entity interface {
	ID() EntityID
	Kind() Kind
	State() *State
	Animate() bool
}
