// Package scheduler drives the delivered/read auto-advance for freshly
// sent outgoing messages. Each message gets two independent timers,
// keyed by message id, running detached from the request that created
// the message. Applying a transition goes through the store's guard, so
// a message advanced (or failed) out of band is never overwritten here.
package scheduler

import (
	"sync"
	"time"

	"github.com/matheus3301/inboxd/internal/store"
	"go.uber.org/zap"
)

// ApplyFunc applies one scheduled status transition. Implementations
// must tolerate transitions that are no longer valid.
type ApplyFunc func(messageID string, to store.Status)

// Scheduler tracks pending auto-transition timers per message.
type Scheduler struct {
	deliveredAfter time.Duration
	readAfter      time.Duration
	logger         *zap.Logger

	mu      sync.Mutex
	apply   ApplyFunc
	pending map[string]*entry
	stopped bool
}

type entry struct {
	timers []*time.Timer
	fired  int
}

// New creates a scheduler with the given delays. Bind must be called
// before Schedule.
func New(deliveredAfter, readAfter time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		deliveredAfter: deliveredAfter,
		readAfter:      readAfter,
		logger:         logger,
		pending:        make(map[string]*entry),
	}
}

// Bind sets the transition callback. Kept separate from New because the
// facade that applies transitions is constructed after the scheduler.
func (s *Scheduler) Bind(apply ApplyFunc) {
	s.mu.Lock()
	s.apply = apply
	s.mu.Unlock()
}

// Schedule registers the two deferred transitions for an outgoing
// message: delivered after the short delay, read after the long one.
// Returns immediately; the caller never blocks on the transitions.
func (s *Scheduler) Schedule(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	e := &entry{}
	e.timers = []*time.Timer{
		time.AfterFunc(s.deliveredAfter, func() { s.fire(messageID, store.StatusDelivered) }),
		time.AfterFunc(s.readAfter, func() { s.fire(messageID, store.StatusRead) }),
	}
	s.pending[messageID] = e
}

// Cancel discards any pending timers for a message. Reserved for
// message/conversation deletion; nothing in the send path calls it.
func (s *Scheduler) Cancel(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[messageID]; ok {
		for _, t := range e.timers {
			t.Stop()
		}
		delete(s.pending, messageID)
	}
}

// Stop cancels all pending timers and rejects further scheduling.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, e := range s.pending {
		for _, t := range e.timers {
			t.Stop()
		}
		delete(s.pending, id)
	}
}

// PendingCount returns how many messages still have timers outstanding.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) fire(messageID string, to store.Status) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	apply := s.apply
	if e, ok := s.pending[messageID]; ok {
		e.fired++
		if e.fired == len(e.timers) {
			delete(s.pending, messageID)
		}
	}
	s.mu.Unlock()

	if apply == nil {
		s.logger.Warn("scheduled transition with no applier bound",
			zap.String("message_id", messageID), zap.String("status", string(to)))
		return
	}
	apply(messageID, to)
}
