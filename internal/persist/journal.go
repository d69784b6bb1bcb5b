package persist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DigestWriter persists digest batches. MatchRepo implements it.
type DigestWriter interface {
	WriteDigests(ctx context.Context, id uuid.UUID, batch []FrameDigest) (int64, error)
}

// Journal moves digest batches off the game loop. Submit never blocks; Run
// drains the queue on its own goroutine until Close.
type Journal struct {
	match   uuid.UUID
	w       DigestWriter
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	in      chan []FrameDigest
	closed  bool
	dropped int
	written int64
	done    chan struct{}
}

func NewJournal(match uuid.UUID, w DigestWriter, queue int, log *zap.Logger) *Journal {
	if queue <= 0 {
		queue = 8
	}
	return &Journal{
		match:   match,
		w:       w,
		log:     log,
		timeout: 10 * time.Second,
		in:      make(chan []FrameDigest, queue),
		done:    make(chan struct{}),
	}
}

func (j *Journal) Match() uuid.UUID { return j.match }

// Submit hands batch to the writer. The caller must not reuse batch. It
// returns false when the queue is full or the journal is closed.
func (j *Journal) Submit(batch []FrameDigest) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return false
	}
	select {
	case j.in <- batch:
		return true
	default:
		j.dropped++
		return false
	}
}

// Run writes batches until Close has been called and the queue is empty.
func (j *Journal) Run(ctx context.Context) {
	defer close(j.done)
	for batch := range j.in {
		wctx, cancel := context.WithTimeout(ctx, j.timeout)
		n, err := j.w.WriteDigests(wctx, j.match, batch)
		cancel()
		if err != nil {
			j.log.Error("journal write failed", zap.String("match", j.match.String()), zap.Error(err))
			continue
		}
		j.mu.Lock()
		j.written += n
		j.mu.Unlock()
	}
}

// Close stops accepting batches and waits for Run to finish writing.
func (j *Journal) Close() {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.in)
	}
	j.mu.Unlock()
	<-j.done
}

// Stats returns rows written and batches dropped so far.
func (j *Journal) Stats() (written int64, dropped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written, j.dropped
}
