// Package schedule provides one-shot, cancelable deferred tasks keyed by
// phone number, used to place follow-up calls.
package schedule

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FireFunc runs when a task's delay elapses. It receives the phone key.
type FireFunc func(phone string)

// Scheduler keeps at most one outstanding task per phone.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*task
	fire   FireFunc
	logger zerolog.Logger
}

type task struct {
	id    uuid.UUID
	timer *time.Timer
}

// New creates a Scheduler that invokes fire when a task elapses.
func New(fire FireFunc, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		tasks:  make(map[string]*task),
		fire:   fire,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Schedule registers a one-shot task for phone. It reports whether a task was
// registered; a pending task for the same phone makes it a no-op, so a
// recurring trigger never duplicates the deferred call.
func (s *Scheduler) Schedule(phone string, delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.tasks[phone]; pending {
		return false
	}

	id := uuid.New()
	t := &task{id: id}
	t.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		cur, ok := s.tasks[phone]
		if !ok || cur.id != id {
			// Cancelled or superseded between firing and locking.
			s.mu.Unlock()
			return
		}
		delete(s.tasks, phone)
		s.mu.Unlock()

		s.logger.Info().Str("phone", phone).Str("task", id.String()).Msg("deferred task firing")
		s.fire(phone)
	})
	s.tasks[phone] = t

	s.logger.Info().
		Str("phone", phone).
		Str("task", id.String()).
		Dur("delay", delay).
		Msg("deferred task scheduled")
	return true
}

// Cancel removes a pending task for phone, reporting whether one existed.
func (s *Scheduler) Cancel(phone string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[phone]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, phone)
	s.logger.Info().Str("phone", phone).Msg("deferred task cancelled")
	return true
}

// Pending reports whether a task is outstanding for phone.
func (s *Scheduler) Pending(phone string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[phone]
	return ok
}

// Stop cancels every pending task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for phone, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, phone)
	}
}
