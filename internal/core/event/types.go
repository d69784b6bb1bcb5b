package event

import "github.com/armoralley/server/internal/core/ecs"

// EntityRemoved is emitted when the animate pass releases an entity.
type EntityRemoved struct {
	Frame   uint64
	ID      ecs.EntityID
	Kind    ecs.Kind
	IsEnemy bool
}

// BattleOver is emitted once, the frame the active set narrows to cosmetic kinds.
type BattleOver struct {
	Frame uint64
}
