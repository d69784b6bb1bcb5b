package ecs

// Removable is implemented by every side table keyed by entity id so the
// registry can drop an entity's auxiliary data when it is released.
type Removable interface {
	Remove(id EntityID)
}

// Store is a side table of per-entity records held by pointer. Zones and the
// culling tracker keep their per-entity bookkeeping here, addressed weakly by id.
type Store[T any] struct {
	data map[EntityID]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{data: make(map[EntityID]*T, 256)}
}

func (s *Store[T]) Set(id EntityID, c *T) { s.data[id] = c }

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id EntityID) { delete(s.data, id) }

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int { return len(s.data) }

// Each visits records in unspecified order. Callers needing determinism must
// order by registry sequence themselves.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for id, c := range s.data {
		fn(id, c)
	}
}
