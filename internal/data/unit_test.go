package data

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/armoralley/server/internal/core/ecs"
)

const sampleUnits = `
units:
  - kind: smoke
    order: 9
    cosmetic: true
  - kind: tank
    order: 0
    width: 58
    height: 18
    speed: 1
    hp: 20
    targets: [tank, bunker]
    munition: gunfire
    fire_cooldown_ms: 300
    death_delay_ms: 600
    capabilities: [damageable, armed]
  - kind: bunker
    order: 3
    static: true
    capabilities: [damageable, capturable]
  - kind: gunfire
    order: 5
    impact: smoke
    lifetime_ms: 1000
    capabilities: [munition]
`

func TestParseUnitTable(t *testing.T) {
	units, err := ParseUnitTable([]byte(sampleUnits))
	if err != nil {
		t.Fatal(err)
	}
	if units.Count() != 4 {
		t.Fatalf("expected 4 kinds, got %d", units.Count())
	}
	order := units.Order()
	want := []ecs.Kind{"tank", "bunker", "gunfire", "smoke"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}

	tank := units.Get("tank")
	if !units.Can("tank", CapArmed) || units.Can("tank", CapCapturable) {
		t.Errorf("tank capabilities wrong: %s", tank.Caps())
	}
	if tank.CooldownDuration() != 300*time.Millisecond || tank.DeathDelayDuration() != 600*time.Millisecond {
		t.Error("millisecond fields not converted")
	}
	if len(tank.TargetKinds()) != 2 || tank.TargetKinds()[1] != "bunker" {
		t.Errorf("targets not resolved: %v", tank.TargetKinds())
	}
	if got := units.Cosmetic(); len(got) != 1 || got[0] != "smoke" {
		t.Errorf("expected [smoke] cosmetic, got %v", got)
	}
	if units.Can("missing", CapDamageable) {
		t.Error("unknown kind reported a capability")
	}
	if got := units.Get("bunker").Caps().String(); got != "damageable,capturable" {
		t.Errorf("unexpected caps string %q", got)
	}
}

func TestParseUnitTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		unknown bool
		msg     string
	}{
		{"missing kind", "units:\n  - order: 1\n", false, "without kind"},
		{"duplicate", "units:\n  - kind: a\n  - kind: a\n", false, "duplicate"},
		{"bad capability", "units:\n  - kind: a\n    capabilities: [flying]\n", false, "unknown capability"},
		{"unknown target", "units:\n  - kind: a\n    targets: [b]\n", true, "targets"},
		{"unknown munition", "units:\n  - kind: a\n    munition: b\n", true, "fires"},
		{"unknown impact", "units:\n  - kind: a\n    impact: b\n", true, "leaves"},
		{"bad yaml", "units: [", false, "parse unit_list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUnitTable([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrUnknownKind) != tt.unknown {
				t.Errorf("ErrUnknownKind mismatch: %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("expected %q in %q", tt.msg, err)
			}
		})
	}
}

func TestParseSpawnList(t *testing.T) {
	units, err := ParseUnitTable([]byte(sampleUnits))
	if err != nil {
		t.Fatal(err)
	}
	spawns, err := ParseSpawnList([]byte(`
spawns:
  - kind: tank
    x: 10
    count: 3
    spacing: 80
  - kind: bunker
    x: 500
    enemy: true
`), units)
	if err != nil {
		t.Fatal(err)
	}
	if len(spawns) != 2 || spawns[0].Count != 3 || spawns[1].Count != 1 || !spawns[1].Enemy {
		t.Errorf("unexpected spawns %+v", spawns)
	}

	for _, bad := range []string{
		"spawns:\n  - kind: helicopter\n",
		"spawns:\n  - kind: bunker\n    tether: balloon\n",
	} {
		if _, err := ParseSpawnList([]byte(bad), units); !errors.Is(err, ErrUnknownKind) {
			t.Errorf("expected ErrUnknownKind for %q, got %v", bad, err)
		}
	}
}

func TestUnitTableReach(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want float64
	}{
		{"empty", "units: []", 0},
		{"sample", sampleUnits, 58},
		{"lookahead and width from different kinds", `
units:
  - kind: tank
    width: 58
    lookahead: 80
  - kind: bomber
    width: 100
`, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := ParseUnitTable([]byte(tt.yaml))
			if err != nil {
				t.Fatal(err)
			}
			if got := units.Reach(); got != tt.want {
				t.Errorf("expected reach %g, got %g", tt.want, got)
			}
		})
	}
}
