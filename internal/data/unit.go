package data

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/armoralley/server/internal/core/ecs"
	"gopkg.in/yaml.v3"
)

var ErrUnknownKind = errors.New("data: unknown unit kind")

// Capability is one interaction a unit kind supports. Interactions are
// dispatched by checking the target kind's capability set, never by probing
// the target for methods.
type Capability uint32

const (
	CapDamageable Capability = 1 << iota // takes damage from munitions and collisions
	CapArmed                             // fires its munition at nearby targets
	CapMunition                          // deals damage on contact and then dies
	CapCapturable                        // changes side instead of dying
	CapTethered                          // dies with the entity it is tethered to
)

var capabilityNames = map[string]Capability{
	"damageable": CapDamageable,
	"armed":      CapArmed,
	"munition":   CapMunition,
	"capturable": CapCapturable,
	"tethered":   CapTethered,
}

// Caps is a capability set.
type Caps uint32

func (c Caps) Has(cap Capability) bool { return uint32(c)&uint32(cap) != 0 }

// String lists the set's capability names in declaration order.
func (c Caps) String() string {
	var names []string
	for _, n := range [...]string{"damageable", "armed", "munition", "capturable", "tethered"} {
		if c.Has(capabilityNames[n]) {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// UnitTemplate describes one unit kind.
type UnitTemplate struct {
	Kind         string   `yaml:"kind"`
	Order        int      `yaml:"order"` // collection order; lower animates first
	Width        float64  `yaml:"width"`
	Height       float64  `yaml:"height"`
	Speed        float64  `yaml:"speed"` // px per frame, positive = toward the enemy
	HP           int      `yaml:"hp"`
	Damage       int      `yaml:"damage"`
	Lookahead    float64  `yaml:"lookahead"`
	Targets      []string `yaml:"targets"`
	Munition     string   `yaml:"munition"`
	Impact       string   `yaml:"impact"` // kind spawned where a munition hits
	FireCooldown int      `yaml:"fire_cooldown_ms"`
	DeathDelay   int      `yaml:"death_delay_ms"`
	Lifetime     int      `yaml:"lifetime_ms"` // 0 = lives until destroyed
	Cosmetic     bool     `yaml:"cosmetic"`    // keeps animating after the battle ends
	Static       bool     `yaml:"static"`
	Capabilities []string `yaml:"capabilities"`

	caps    Caps
	targets []ecs.Kind
}

func (t *UnitTemplate) Caps() Caps              { return t.caps }
func (t *UnitTemplate) TargetKinds() []ecs.Kind { return t.targets }

func (t *UnitTemplate) CooldownDuration() time.Duration {
	return time.Duration(t.FireCooldown) * time.Millisecond
}
func (t *UnitTemplate) DeathDelayDuration() time.Duration {
	return time.Duration(t.DeathDelay) * time.Millisecond
}
func (t *UnitTemplate) LifetimeDuration() time.Duration {
	return time.Duration(t.Lifetime) * time.Millisecond
}

type unitListFile struct {
	Units []*UnitTemplate `yaml:"units"`
}

// UnitTable holds every unit template indexed by kind.
type UnitTable struct {
	units map[ecs.Kind]*UnitTemplate
	order []ecs.Kind
}

// Get returns the template for kind, or nil if none is defined.
func (t *UnitTable) Get(kind ecs.Kind) *UnitTemplate {
	return t.units[kind]
}

// Count returns the number of unit kinds.
func (t *UnitTable) Count() int {
	return len(t.units)
}

// Order returns every kind sorted by collection order.
func (t *UnitTable) Order() []ecs.Kind {
	return t.order
}

// Reach is the farthest a nearby query can need to look past a source's zone:
// the largest lookahead plus the widest unit.
func (t *UnitTable) Reach() float64 {
	var look, width float64
	for _, u := range t.units {
		look = max(look, u.Lookahead)
		width = max(width, u.Width)
	}
	return look + width
}

// Cosmetic returns the kinds that keep animating after the battle ends, in
// collection order.
func (t *UnitTable) Cosmetic() []ecs.Kind {
	var out []ecs.Kind
	for _, k := range t.order {
		if t.units[k].Cosmetic {
			out = append(out, k)
		}
	}
	return out
}

// Can reports whether kind has cap. Unknown kinds have no capabilities.
func (t *UnitTable) Can(kind ecs.Kind, cap Capability) bool {
	u := t.units[kind]
	return u != nil && u.caps.Has(cap)
}

// LoadUnitTable loads unit templates from a YAML file.
func LoadUnitTable(path string) (*UnitTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit_list: %w", err)
	}
	return ParseUnitTable(raw)
}

// ParseUnitTable builds a table from YAML and checks cross references.
func ParseUnitTable(raw []byte) (*UnitTable, error) {
	var f unitListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse unit_list: %w", err)
	}
	t := &UnitTable{units: make(map[ecs.Kind]*UnitTemplate, len(f.Units))}
	for _, u := range f.Units {
		if u.Kind == "" {
			return nil, fmt.Errorf("parse unit_list: unit without kind")
		}
		k := ecs.Kind(u.Kind)
		if _, dup := t.units[k]; dup {
			return nil, fmt.Errorf("parse unit_list: duplicate kind %q", u.Kind)
		}
		for _, name := range u.Capabilities {
			c, ok := capabilityNames[name]
			if !ok {
				return nil, fmt.Errorf("parse unit_list: %s: unknown capability %q", u.Kind, name)
			}
			u.caps |= Caps(c)
		}
		t.units[k] = u
		t.order = append(t.order, k)
	}
	for _, u := range f.Units {
		for _, target := range u.Targets {
			if _, ok := t.units[ecs.Kind(target)]; !ok {
				return nil, fmt.Errorf("%w: %s targets %q", ErrUnknownKind, u.Kind, target)
			}
			u.targets = append(u.targets, ecs.Kind(target))
		}
		if u.Munition != "" {
			if _, ok := t.units[ecs.Kind(u.Munition)]; !ok {
				return nil, fmt.Errorf("%w: %s fires %q", ErrUnknownKind, u.Kind, u.Munition)
			}
		}
		if u.Impact != "" {
			if _, ok := t.units[ecs.Kind(u.Impact)]; !ok {
				return nil, fmt.Errorf("%w: %s leaves %q", ErrUnknownKind, u.Kind, u.Impact)
			}
		}
	}
	sort.SliceStable(t.order, func(i, j int) bool {
		return t.units[t.order[i]].Order < t.units[t.order[j]].Order
	})
	return t, nil
}
