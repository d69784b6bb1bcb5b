package mirror

import (
	"fmt"

	"github.com/armoralley/server/internal/core/ecs"
	"github.com/armoralley/server/internal/world"
	"github.com/vmihailenco/msgpack/v5"
)

// EntitySnapshot is one entity as seen by mirrors.
type EntitySnapshot struct {
	ID       uint64  `msgpack:"id"`
	Kind     string  `msgpack:"k"`
	X        float64 `msgpack:"x"`
	Y        float64 `msgpack:"y"`
	VX       float64 `msgpack:"vx"`
	VY       float64 `msgpack:"vy"`
	Enemy    bool    `msgpack:"e,omitempty"`
	Dead     bool    `msgpack:"d,omitempty"`
	OnScreen uint8   `msgpack:"s,omitempty"`
}

// Snapshot is a frame-stamped view of the whole registry. Mirrors compare
// Digest against their own simulation to detect divergence.
type Snapshot struct {
	Match    string           `msgpack:"match"`
	Frame    uint64           `msgpack:"frame"`
	Digest   uint64           `msgpack:"digest"`
	Entities []EntitySnapshot `msgpack:"entities"`
}

// Capture copies the registry in collection order.
func Capture(ws *world.State, match string) Snapshot {
	s := Snapshot{
		Match:    match,
		Frame:    ws.Frame(),
		Digest:   world.Digest(ws.Registry),
		Entities: make([]EntitySnapshot, 0, ws.Registry.Len()),
	}
	ws.Registry.Each(func(e ecs.Entity) {
		st := e.State()
		s.Entities = append(s.Entities, EntitySnapshot{
			ID:       uint64(e.ID()),
			Kind:     string(e.Kind()),
			X:        st.X,
			Y:        st.Y,
			VX:       st.VX,
			VY:       st.VY,
			Enemy:    st.IsEnemy,
			Dead:     st.Dead,
			OnScreen: uint8(st.OnScreen),
		})
	})
	return s
}

func Encode(s Snapshot) ([]byte, error) {
	b, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot %d: %w", s.Frame, err)
	}
	return b, nil
}

func Decode(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
