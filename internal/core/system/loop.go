package system

import "time"

// FrameSource is the platform's per-frame callback. RequestFrame schedules cb
// for the next display frame; ts is the time since the source started.
type FrameSource interface {
	RequestFrame(cb func(ts time.Duration))
}

// LoopConfig paces the loop.
type LoopConfig struct {
	// FrameDuration is the minimum wall-clock interval between simulated frames.
	FrameDuration time.Duration
	// Refresh is the frame source period. Callbacks arriving within half a
	// refresh of FrameDuration count as due.
	Refresh time.Duration
	// Unlimited simulates on every callback regardless of elapsed time.
	Unlimited bool
	// AfterStep runs once per simulated frame after every phase.
	AfterStep func()
}

// Loop is the cooperative frame scheduler. The wall clock only paces it:
// simulation advances exclusively through Step, one logical frame at a time.
type Loop struct {
	runner  *Runner
	source  FrameSource
	cfg     LoopConfig
	minStep time.Duration
	running bool
	epoch   uint64
	last    time.Duration
	primed  bool
	frames  uint64
	skipped uint64
}

func NewLoop(runner *Runner, source FrameSource, cfg LoopConfig) *Loop {
	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = time.Second / 30
	}
	return &Loop{runner: runner, source: source, cfg: cfg, minStep: cfg.FrameDuration - cfg.Refresh/2}
}

// Start begins requesting frame callbacks. No-op if already running.
func (l *Loop) Start() {
	if l.running {
		return
	}
	l.running = true
	l.primed = false
	l.epoch++
	l.requestNext()
}

// Stop halts scheduling. Registry, zones, culling and timers keep their state,
// so a later Start resumes exactly where the simulation paused.
func (l *Loop) Stop() {
	if !l.running {
		return
	}
	l.running = false
	l.epoch++
}

func (l *Loop) IsRunning() bool { return l.running }

// Tick is the frame callback. Callbacks arriving sooner than FrameDuration
// minus half a refresh after the last simulated frame are skipped but still
// reschedule.
func (l *Loop) Tick(ts time.Duration) {
	if !l.running {
		return
	}
	if l.primed && !l.cfg.Unlimited && ts-l.last < l.minStep {
		l.skipped++
		l.requestNext()
		return
	}
	l.last = ts
	l.primed = true
	l.Step()
	if l.running {
		l.requestNext()
	}
}

// Step simulates exactly one logical frame. It needs no clock and is the entry
// point for deterministic tests and lockstep replays.
func (l *Loop) Step() {
	l.runner.Tick(l.cfg.FrameDuration)
	l.frames++
	if l.cfg.AfterStep != nil {
		l.cfg.AfterStep()
	}
}

// Frames returns the number of simulated frames.
func (l *Loop) Frames() uint64 { return l.frames }

// Skipped returns the number of callbacks dropped by rate limiting.
func (l *Loop) Skipped() uint64 { return l.skipped }

func (l *Loop) requestNext() {
	epoch := l.epoch
	l.source.RequestFrame(func(ts time.Duration) {
		// a Stop/Start pair must not leave two callback chains alive
		if epoch != l.epoch {
			return
		}
		l.Tick(ts)
	})
}
