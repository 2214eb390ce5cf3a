package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Scheduler is the single process-wide deadline loop. It keeps two
// in-memory maps of unix-second deadlines and, once per second, hands
// every expired entry back to the coordinator, which re-enters the
// engine under the table's own lock.
type Scheduler struct {
	clock  quartz.Clock
	coord  *Coordinator
	logger *log.Logger

	mu       sync.Mutex
	actions  map[string]int64
	autoDeal map[string]int64
}

func NewScheduler(coord *Coordinator, clock quartz.Clock, logger *log.Logger) *Scheduler {
	s := &Scheduler{
		clock:    clock,
		coord:    coord,
		logger:   logger.WithPrefix("scheduler"),
		actions:  make(map[string]int64),
		autoDeal: make(map[string]int64),
	}
	coord.SetTimers(s)
	return s
}

func (s *Scheduler) SetActionDeadline(code string, at int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[code] = at
}

func (s *Scheduler) ClearActionDeadline(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actions, code)
}

func (s *Scheduler) SetAutoDealDeadline(code string, at int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoDeal[code] = at
}

func (s *Scheduler) ClearAutoDealDeadline(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.autoDeal, code)
}

// Run ticks once per second until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick snapshots expired entries, removes them from the maps, and
// dispatches each. The coordinator re-registers any deadline that was
// moved by a concurrent action.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.Now().Unix()

	s.mu.Lock()
	var expiredActions, expiredDeals []string
	for code, at := range s.actions {
		if at <= now {
			expiredActions = append(expiredActions, code)
			delete(s.actions, code)
		}
	}
	for code, at := range s.autoDeal {
		if at <= now {
			expiredDeals = append(expiredDeals, code)
			delete(s.autoDeal, code)
		}
	}
	s.mu.Unlock()

	for _, code := range expiredActions {
		s.coord.HandleActionTimeout(ctx, code)
	}
	for _, code := range expiredDeals {
		s.coord.HandleAutoDeal(ctx, code)
	}
}
