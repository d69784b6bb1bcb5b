package ecs

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID = errors.New("ecs: duplicate entity id")
	ErrMalformed   = errors.New("ecs: malformed entity")
)

type entry struct {
	kind   Kind
	seq    uint64
	entity Entity
}

// Registry owns entity lifetime: one ordered collection per kind, iterated in
// a fixed kind order. Insertion order inside a collection equals admission
// sequence order, which is the deterministic tie-break used by proximity queries.
type Registry struct {
	pool    *EntityPool
	order   []Kind
	colls   map[Kind][]Entity
	index   map[EntityID]entry
	tables  []Removable
	nextSeq uint64
}

func NewRegistry() *Registry {
	return &Registry{
		pool:   NewEntityPool(),
		order:  make([]Kind, 0, 32),
		colls:  make(map[Kind][]Entity, 32),
		index:  make(map[EntityID]entry, 512),
		tables: make([]Removable, 0, 4),
	}
}

// NewID issues a handle for an entity a factory is about to build.
func (r *Registry) NewID() EntityID { return r.pool.Create() }

// DeclareKinds fixes the collection iteration order. Kinds first seen by Add
// later are appended after the declared ones.
func (r *Registry) DeclareKinds(kinds ...Kind) {
	for _, k := range kinds {
		r.ensureKind(k)
	}
}

func (r *Registry) ensureKind(k Kind) {
	if _, ok := r.colls[k]; ok {
		return
	}
	r.colls[k] = make([]Entity, 0, 16)
	r.order = append(r.order, k)
}

// Track registers a side table that is cleared whenever an entity is removed.
func (r *Registry) Track(t Removable) {
	r.tables = append(r.tables, t)
}

// Add admits e into the collection for kind.
func (r *Registry) Add(kind Kind, e Entity) error {
	if e == nil {
		return fmt.Errorf("%w: nil entity", ErrMalformed)
	}
	id := e.ID()
	if e.Kind() != kind {
		return fmt.Errorf("%w: %s declares kind %q, added as %q", ErrMalformed, id, e.Kind(), kind)
	}
	st := e.State()
	if st == nil {
		return fmt.Errorf("%w: %s %s has no state", ErrMalformed, kind, id)
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformed, kind, id, err)
	}
	if _, dup := r.index[id]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if !r.pool.Alive(id) {
		return fmt.Errorf("%w: %s %s was not issued by this registry", ErrMalformed, kind, id)
	}
	r.ensureKind(kind)
	r.nextSeq++
	r.index[id] = entry{kind: kind, seq: r.nextSeq, entity: e}
	r.colls[kind] = append(r.colls[kind], e)
	return nil
}

// Remove splices e out of its collection, clears tracked side tables and
// retires its handle. Returns false if e was not registered under kind.
func (r *Registry) Remove(kind Kind, e Entity) bool {
	if e == nil {
		return false
	}
	id := e.ID()
	ent, ok := r.index[id]
	if !ok || ent.kind != kind {
		return false
	}
	coll := r.colls[kind]
	for i, other := range coll {
		if other.ID() == id {
			copy(coll[i:], coll[i+1:])
			coll[len(coll)-1] = nil
			r.colls[kind] = coll[:len(coll)-1]
			break
		}
	}
	delete(r.index, id)
	for _, t := range r.tables {
		t.Remove(id)
	}
	r.pool.Destroy(id)
	return true
}

// Get resolves a handle. Stale handles of released entities resolve to false.
func (r *Registry) Get(id EntityID) (Entity, bool) {
	ent, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return ent.entity, true
}

func (r *Registry) Contains(id EntityID) bool {
	_, ok := r.index[id]
	return ok
}

// Seq returns the admission sequence of a live entity, or 0.
func (r *Registry) Seq(id EntityID) uint64 {
	return r.index[id].seq
}

// Collection returns the live slice for kind. Callers must not modify it and
// must not hold it across a Remove.
func (r *Registry) Collection(kind Kind) []Entity {
	return r.colls[kind]
}

// Kinds returns the collection order.
func (r *Registry) Kinds() []Kind {
	return r.order
}

func (r *Registry) Len() int { return len(r.index) }

// Each visits every live entity in collection order, then insertion order.
func (r *Registry) Each(fn func(Entity)) {
	for _, k := range r.order {
		for _, e := range r.colls[k] {
			fn(e)
		}
	}
}
