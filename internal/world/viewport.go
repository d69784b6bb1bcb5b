package world

// Viewport is the camera window over the battlefield's horizontal axis.
type Viewport struct {
	scrollLeft float64
	width      float64
	height     float64
	worldWidth float64
	lastScroll float64
	onResize   []func()
}

func NewViewport(width, height, worldWidth float64) *Viewport {
	return &Viewport{width: width, height: height, worldWidth: worldWidth}
}

func (v *Viewport) ScrollLeft() float64 { return v.scrollLeft }
func (v *Viewport) Width() float64      { return v.width }
func (v *Viewport) Height() float64     { return v.height }
func (v *Viewport) WorldWidth() float64 { return v.worldWidth }

// ScrollTo moves the camera, clamped to the world bounds when they are known.
func (v *Viewport) ScrollTo(x float64) {
	if v.worldWidth > v.width {
		x = min(max(x, 0), v.worldWidth-v.width)
	}
	v.scrollLeft = x
}

func (v *Viewport) ScrollBy(dx float64) { v.ScrollTo(v.scrollLeft + dx) }

// Resize changes the viewport size and notifies stale listeners.
func (v *Viewport) Resize(width, height float64) {
	v.width, v.height = width, height
	for _, fn := range v.onResize {
		fn()
	}
}

func (v *Viewport) OnResize(fn func()) {
	v.onResize = append(v.onResize, fn)
}

// Intersects reports whether [x, x+width) overlaps [scrollLeft, scrollLeft+viewWidth).
func (v *Viewport) Intersects(x, width float64) bool {
	return x < v.scrollLeft+v.width && x+width > v.scrollLeft
}

// TakeDelta returns how far the camera moved since the previous call.
func (v *Viewport) TakeDelta() float64 {
	d := v.scrollLeft - v.lastScroll
	v.lastScroll = v.scrollLeft
	return d
}
