package world

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/armoralley/server/internal/core/ecs"
)

// Digest hashes every live entity's id, kind and simulated state in registry
// order. Two mirrored simulations that agree frame by frame produce equal digests.
func Digest(reg *ecs.Registry) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	reg.Each(func(e ecs.Entity) {
		st := e.State()
		put(uint64(e.ID()))
		h.Write([]byte(e.Kind()))
		put(math.Float64bits(st.X))
		put(math.Float64bits(st.Y))
		put(math.Float64bits(st.VX))
		put(math.Float64bits(st.VY))
		var flags uint64
		if st.Dead {
			flags |= 1
		}
		if st.IsEnemy {
			flags |= 2
		}
		put(flags)
	})
	return h.Sum64()
}
