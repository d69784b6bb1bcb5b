package world

// SceneryLayer is a background strip that scrolls independently of entities.
type SceneryLayer struct {
	Name     string
	Parallax float64 // 1 moves with the camera, 0 never moves
	Offset   float64
	node     Node
}

// Scenery holds the parallax background layers advanced once per frame.
type Scenery struct {
	layers []*SceneryLayer
}

func NewScenery() *Scenery { return &Scenery{} }

func (s *Scenery) AddLayer(name string, parallax float64, node Node) *SceneryLayer {
	l := &SceneryLayer{Name: name, Parallax: parallax, node: node}
	s.layers = append(s.layers, l)
	return l
}

// Scroll shifts every layer by the camera delta scaled by its parallax.
// A zero delta writes nothing.
func (s *Scenery) Scroll(delta float64) {
	if delta == 0 {
		return
	}
	for _, l := range s.layers {
		l.Offset -= delta * l.Parallax
		if l.node != nil {
			l.node.SetTransform(l.Offset, 0)
		}
	}
}

func (s *Scenery) Layers() []*SceneryLayer { return s.layers }
