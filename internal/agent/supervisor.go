package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Circuit breaker tuning for background loops.
const (
	breakerBaseBackoff = 5 * time.Minute
	breakerMaxBackoff  = 2 * time.Hour
)

// loop is one registered periodic job with its breaker state.
type loop struct {
	name                string
	interval            time.Duration
	maxFailures         int
	fn                  func(ctx context.Context) error
	lastRun             time.Time
	consecutiveFailures int
	backoffUntil        time.Time
	lastErr             error
}

// LoopStatus is the externally visible state of one loop.
type LoopStatus struct {
	Name                string
	LastRun             time.Time
	ConsecutiveFailures int
	BackoffUntil        time.Time
	BackoffRemaining    time.Duration
	LastError           string
}

// Supervisor runs registered loops on their intervals, tripping a per-loop
// circuit breaker after repeated failures. It never starts implicitly:
// callers own Start and Stop.
type Supervisor struct {
	mu     sync.Mutex
	loops  []*loop
	now    func() time.Time
	tick   time.Duration
	cancel context.CancelFunc
	done   chan struct{}
}

type SupervisorOption func(*Supervisor)

// WithSupervisorClock injects a clock so breaker tests need no real delays.
func WithSupervisorClock(now func() time.Time) SupervisorOption {
	return func(s *Supervisor) { s.now = now }
}

func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		now:  time.Now,
		tick: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a loop. Must be called before Start.
func (s *Supervisor) Register(name string, interval time.Duration, maxFailures int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loops = append(s.loops, &loop{
		name:        name,
		interval:    interval,
		maxFailures: maxFailures,
		fn:          fn,
	})
}

// Start begins ticking until the context is cancelled or Stop is called.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return fmt.Errorf("supervisor already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		log.Println("Loop supervisor started...")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runDue(ctx)
			}
		}
	}()
	return nil
}

// Stop cancels the ticker and waits for the current pass to finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// runDue runs every loop whose interval has elapsed and whose breaker is
// closed. A loop inside its backoff window is skipped entirely, not even
// attempted.
func (s *Supervisor) runDue(ctx context.Context) {
	s.mu.Lock()
	due := make([]*loop, 0, len(s.loops))
	now := s.now()
	for _, l := range s.loops {
		if now.Before(l.backoffUntil) {
			continue
		}
		if !l.lastRun.IsZero() && now.Sub(l.lastRun) < l.interval {
			continue
		}
		due = append(due, l)
	}
	s.mu.Unlock()

	for _, l := range due {
		s.runOne(ctx, l)
	}
}

func (s *Supervisor) runOne(ctx context.Context, l *loop) {
	err := l.fn(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	l.lastRun = s.now()
	l.lastErr = err

	if err == nil {
		l.consecutiveFailures = 0
		l.backoffUntil = time.Time{}
		return
	}

	l.consecutiveFailures++
	log.Printf("Loop %s failed (%d consecutive): %v", l.name, l.consecutiveFailures, err)
	if l.consecutiveFailures >= l.maxFailures {
		backoff := breakerBaseBackoff
		for i := l.consecutiveFailures - l.maxFailures; i > 0; i-- {
			backoff *= 3
			if backoff >= breakerMaxBackoff {
				break
			}
		}
		if backoff > breakerMaxBackoff {
			backoff = breakerMaxBackoff
		}
		l.backoffUntil = s.now().Add(backoff)
		log.Printf("Loop %s circuit open: backing off %s", l.name, backoff)
	}
}

// Status reports per-loop state: last run, failure count, remaining backoff.
func (s *Supervisor) Status() []LoopStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]LoopStatus, 0, len(s.loops))
	for _, l := range s.loops {
		st := LoopStatus{
			Name:                l.name,
			LastRun:             l.lastRun,
			ConsecutiveFailures: l.consecutiveFailures,
			BackoffUntil:        l.backoffUntil,
		}
		if l.backoffUntil.After(now) {
			st.BackoffRemaining = l.backoffUntil.Sub(now)
		}
		if l.lastErr != nil {
			st.LastError = l.lastErr.Error()
		}
		out = append(out, st)
	}
	return out
}
