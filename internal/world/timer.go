package world

import "time"

// TimerHandle is a pending one-shot callback counted in simulation frames.
type TimerHandle struct {
	target    uint64
	count     uint64
	fired     bool
	cancelled bool
	fn        func()
}

// Reset cancels the timer. Cancellation is observed at the next Advance;
// repeated resets and resets after firing are no-ops.
func (h *TimerHandle) Reset() {
	if h == nil || h.fired {
		return
	}
	h.cancelled = true
}

func (h *TimerHandle) Fired() bool     { return h.fired }
func (h *TimerHandle) Cancelled() bool { return h.cancelled }

// Remaining returns the number of advances left before the callback fires.
func (h *TimerHandle) Remaining() uint64 {
	if h.fired || h.cancelled || h.count >= h.target {
		return 0
	}
	return h.target - h.count
}

// Timers schedules frame-counted callbacks. Because the counters only move in
// Advance, pausing the game loop pauses every pending timer.
type Timers struct {
	frame   time.Duration
	pending []*TimerHandle
}

func NewTimers(frameDuration time.Duration) *Timers {
	if frameDuration <= 0 {
		frameDuration = time.Second / 30
	}
	return &Timers{
		frame:   frameDuration,
		pending: make([]*TimerHandle, 0, 64),
	}
}

// FramesFor converts a wall-clock delay into whole frames, rounding down.
func (t *Timers) FramesFor(delay time.Duration) uint64 {
	if delay <= 0 {
		return 0
	}
	return uint64(delay / t.frame)
}

// Schedule registers fn to run after delay worth of frames. The callback never
// runs inside Schedule: a zero delay fires on the next Advance.
func (t *Timers) Schedule(fn func(), delay time.Duration) *TimerHandle {
	target := t.FramesFor(delay)
	if target == 0 {
		target = 1
	}
	h := &TimerHandle{target: target, fn: fn}
	t.pending = append(t.pending, h)
	return h
}

// Advance moves every timer pending at entry forward one frame. Timers
// scheduled by callbacks during this call start counting on the next Advance.
func (t *Timers) Advance() {
	n := len(t.pending)
	for i := 0; i < n; i++ {
		h := t.pending[i]
		if h.cancelled || h.fired {
			continue
		}
		h.count++
		if h.count >= h.target {
			h.fired = true
			if h.fn != nil {
				h.fn()
			}
		}
	}
	live := t.pending[:0]
	for _, h := range t.pending {
		if !h.cancelled && !h.fired {
			live = append(live, h)
		}
	}
	clear(t.pending[len(live):])
	t.pending = live
}

// Pending returns the number of timers not yet fired or retired.
func (t *Timers) Pending() int { return len(t.pending) }

func (t *Timers) FrameDuration() time.Duration { return t.frame }
