package system

import (
	"context"
	"sync"
	"time"
)

// TickerSource drives frame callbacks from a time.Ticker on the goroutine that
// calls Run. All simulation work happens on that goroutine; other goroutines
// reach the simulation only through Post.
type TickerSource struct {
	interval time.Duration
	start    time.Time
	pending  func(time.Duration)
	posts    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewTickerSource creates a source firing at the display refresh interval.
func NewTickerSource(refresh time.Duration) *TickerSource {
	if refresh <= 0 {
		refresh = time.Second / 60
	}
	return &TickerSource{
		interval: refresh,
		posts:    make(chan func(), 64),
		done:     make(chan struct{}),
	}
}

func (s *TickerSource) RequestFrame(cb func(ts time.Duration)) {
	s.pending = cb
}

// Post queues fn to run on the loop goroutine between frames. It reports
// false, without blocking, once Run has returned.
func (s *TickerSource) Post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.posts <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Run delivers callbacks until ctx is cancelled.
func (s *TickerSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.stopOnce.Do(func() { close(s.done) })
	s.start = time.Now()

	for {
		select {
		case t := <-ticker.C:
			if cb := s.pending; cb != nil {
				s.pending = nil
				cb(t.Sub(s.start))
			}
		case fn := <-s.posts:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ManualSource holds the requested callback until Fire is called. Used by tests
// and by replay tools that step the loop without a clock.
type ManualSource struct {
	pending  func(time.Duration)
	Requests int
}

func (m *ManualSource) RequestFrame(cb func(ts time.Duration)) {
	m.pending = cb
	m.Requests++
}

// Fire delivers the pending callback, if any.
func (m *ManualSource) Fire(ts time.Duration) bool {
	cb := m.pending
	if cb == nil {
		return false
	}
	m.pending = nil
	cb(ts)
	return true
}

func (m *ManualSource) Pending() bool { return m.pending != nil }
