package daemon

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/domain"
)

const (
	// DefaultQueueSize bounds the number of undelivered status events.
	DefaultQueueSize = 256

	// DefaultHistoryKeep bounds the history table after each prune.
	DefaultHistoryKeep = 500
)

// StatusQueue carries status events from the loop to a shell. Pushing never
// blocks: when the buffer is full the oldest event is dropped.
type StatusQueue struct {
	ch      chan domain.StatusEvent
	now     func() time.Time
	mu      sync.Mutex // serializes the drop-then-send in Push
	dropped atomic.Int64
}

// NewStatusQueue creates a queue holding up to size events.
func NewStatusQueue(size int) *StatusQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &StatusQueue{
		ch:  make(chan domain.StatusEvent, size),
		now: time.Now,
	}
}

// Push enqueues a message stamped with the current time.
func (q *StatusQueue) Push(msg string) {
	q.PushEvent(domain.StatusEvent{At: q.now(), Message: msg})
}

// PushEvent enqueues an event without blocking.
func (q *StatusQueue) PushEvent(ev domain.StatusEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case q.ch <- ev:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// Sink adapts the queue to a domain.StatusSink.
func (q *StatusQueue) Sink() domain.StatusSink {
	return q.Push
}

// C exposes the receive side for select loops.
func (q *StatusQueue) C() <-chan domain.StatusEvent {
	return q.ch
}

// Drain returns every event currently buffered without waiting.
func (q *StatusQueue) Drain() []domain.StatusEvent {
	var out []domain.StatusEvent
	for {
		select {
		case ev := <-q.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (q *StatusQueue) Dropped() int64 {
	return q.dropped.Load()
}

// Tee fans a message out to every non-nil sink.
func Tee(sinks ...domain.StatusSink) domain.StatusSink {
	return func(msg string) {
		for _, s := range sinks {
			if s != nil {
				s(msg)
			}
		}
	}
}

// LogSink writes each status message to the logger.
func LogSink(logger *zap.Logger) domain.StatusSink {
	return func(msg string) {
		logger.Info(msg)
	}
}

// Recorder persists drained events to the history store and trims it
// every pruneEvery appends.
type Recorder struct {
	store      domain.HistoryStore
	keep       int
	pruneEvery int
	logger     *zap.Logger

	mu      sync.Mutex
	appends int
}

// NewRecorder creates a recorder. A nil store makes Record a no-op.
func NewRecorder(store domain.HistoryStore, keep int, logger *zap.Logger) *Recorder {
	every := keep / 10
	if every < 1 {
		every = 1
	}
	return &Recorder{
		store:      store,
		keep:       keep,
		pruneEvery: every,
		logger:     logger,
	}
}

// Record stores one event. Failures are logged, never returned.
func (r *Recorder) Record(ev domain.StatusEvent) {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.Append(ev); err != nil {
		r.logger.Warn("failed to record status event", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.appends++
	prune := r.keep > 0 && r.appends%r.pruneEvery == 0
	r.mu.Unlock()

	if prune {
		if err := r.store.Prune(r.keep); err != nil {
			r.logger.Warn("failed to prune status history", zap.Error(err))
		}
	}
}

// Recent returns stored events for seeding a log view. Errors yield nil.
func (r *Recorder) Recent(limit int) []domain.StatusEvent {
	if r == nil || r.store == nil {
		return nil
	}
	events, err := r.store.Recent(limit)
	if err != nil {
		r.logger.Warn("failed to load status history", zap.Error(err))
		return nil
	}
	return events
}
