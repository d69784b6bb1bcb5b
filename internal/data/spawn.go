package data

import (
	"fmt"
	"os"

	"github.com/armoralley/server/internal/core/ecs"
	"gopkg.in/yaml.v3"
)

// SpawnEntry places one or more units when a battle starts.
type SpawnEntry struct {
	Kind    string  `yaml:"kind"`
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Enemy   bool    `yaml:"enemy"`
	Count   int     `yaml:"count"`   // default 1
	Spacing float64 `yaml:"spacing"` // x step between copies
	Tether  string  `yaml:"tether"`  // optional kind spawned tethered above each copy
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// LoadSpawnList loads the opening spawn list and checks kinds against units.
func LoadSpawnList(path string, units *UnitTable) ([]SpawnEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_list: %w", err)
	}
	return ParseSpawnList(raw, units)
}

func ParseSpawnList(raw []byte, units *UnitTable) ([]SpawnEntry, error) {
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_list: %w", err)
	}
	for i := range f.Spawns {
		s := &f.Spawns[i]
		if s.Count <= 0 {
			s.Count = 1
		}
		if units.Get(ecs.Kind(s.Kind)) == nil {
			return nil, fmt.Errorf("%w: spawn %d uses %q", ErrUnknownKind, i, s.Kind)
		}
		if s.Tether != "" && units.Get(ecs.Kind(s.Tether)) == nil {
			return nil, fmt.Errorf("%w: spawn %d tethers %q", ErrUnknownKind, i, s.Tether)
		}
	}
	return f.Spawns, nil
}
