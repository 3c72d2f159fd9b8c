// Package guard serializes access to resources that tolerate only one user
// at a time, such as a driven browser session. The lock is a single database
// row per resource label, so it survives a crashed process and can be
// reclaimed once it goes stale.
package guard

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rohan/orbit/internal/store"
)

// DefaultStaleAfter is how old a lock must be before a new caller may
// forcibly reclaim it.
const DefaultStaleAfter = 5 * time.Minute

// LockStore is the persistence surface the guard needs. *store.Store
// satisfies it.
type LockStore interface {
	GetLock(ctx context.Context, label string) (*store.LockRecord, error)
	ClaimLock(ctx context.Context, rec store.LockRecord, staleBefore time.Time) (bool, error)
	DeleteLock(ctx context.Context, label, holder string) (bool, error)
}

// BusyError reports a refusal because the resource is held by someone else.
type BusyError struct {
	Label  string
	Holder string
	Age    time.Duration
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("resource %s is busy: held by %s for %.0fs, try again shortly", e.Label, e.Holder, e.Age.Seconds())
}

// Acquisition is the outcome of an Acquire call.
type Acquisition struct {
	Acquired   bool
	Reason     string
	AgeSeconds float64
}

// Guard is the exclusive lock for one resource label.
type Guard struct {
	locks      LockStore
	label      string
	staleAfter time.Duration

	// reclaim terminates whatever external process still holds the
	// resource before a stale lock is taken over. May be nil.
	reclaim func(ctx context.Context) error

	now func() time.Time
}

type Option func(*Guard)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithReclaim sets the cleanup hook run before a stale lock is taken over.
func WithReclaim(fn func(ctx context.Context) error) Option {
	return func(g *Guard) { g.reclaim = fn }
}

func New(locks LockStore, label string, staleAfter time.Duration, opts ...Option) *Guard {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	g := &Guard{
		locks:      locks,
		label:      label,
		staleAfter: staleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire claims the resource for holder. An absent lock is claimed
// immediately; a fresh lock is refused with the current holder and its age;
// a stale lock is forcibly reclaimed after running the reclaim hook. The
// claim itself is a single conditional write, so two callers racing for the
// same label can never both win: the loser sees the winner's row and is
// refused.
func (g *Guard) Acquire(ctx context.Context, holder string) (Acquisition, error) {
	rec, err := g.locks.GetLock(ctx, g.label)
	if err != nil {
		return Acquisition{}, err
	}

	var reclaimedFrom string
	var reclaimedAge time.Duration
	if rec != nil {
		age := g.now().Sub(rec.StartedAt)
		if rec.Holder == holder {
			return Acquisition{Acquired: true, AgeSeconds: age.Seconds()}, nil
		}
		if age < g.staleAfter {
			busy := &BusyError{Label: g.label, Holder: rec.Holder, Age: age}
			return Acquisition{Reason: busy.Error(), AgeSeconds: age.Seconds()}, nil
		}
		// Stale: terminate the previous user before taking over the lock.
		if g.reclaim != nil {
			if err := g.reclaim(ctx); err != nil {
				log.Printf("Warning: reclaim hook for %s failed: %v", g.label, err)
			}
		}
		reclaimedFrom = rec.Holder
		reclaimedAge = age
	}

	claimed, err := g.claim(ctx, holder)
	if err != nil {
		return Acquisition{}, err
	}
	if !claimed {
		// A concurrent caller won the row between the read and the write.
		cur, err := g.locks.GetLock(ctx, g.label)
		if err != nil {
			return Acquisition{}, err
		}
		if cur == nil {
			return Acquisition{Reason: fmt.Sprintf("resource %s is busy, try again shortly", g.label)}, nil
		}
		age := g.now().Sub(cur.StartedAt)
		busy := &BusyError{Label: g.label, Holder: cur.Holder, Age: age}
		return Acquisition{Reason: busy.Error(), AgeSeconds: age.Seconds()}, nil
	}

	if reclaimedFrom != "" {
		return Acquisition{
			Acquired:   true,
			Reason:     fmt.Sprintf("reclaimed stale lock from %s (%.0fs old)", reclaimedFrom, reclaimedAge.Seconds()),
			AgeSeconds: reclaimedAge.Seconds(),
		}, nil
	}
	return Acquisition{Acquired: true}, nil
}

// Release deletes the lock only when holder still owns it. Releasing a lock
// held by someone else is a no-op.
func (g *Guard) Release(ctx context.Context, holder string) error {
	_, err := g.locks.DeleteLock(ctx, g.label, holder)
	return err
}

// CheckForPeriodicCaller reports whether an Acquire by holder would succeed,
// without claiming. Scheduled callers use it to silently skip a cycle.
func (g *Guard) CheckForPeriodicCaller(ctx context.Context, holder string) bool {
	rec, err := g.locks.GetLock(ctx, g.label)
	if err != nil {
		return false
	}
	if rec == nil || rec.Holder == holder {
		return true
	}
	return g.now().Sub(rec.StartedAt) >= g.staleAfter
}

func (g *Guard) claim(ctx context.Context, holder string) (bool, error) {
	now := g.now()
	return g.locks.ClaimLock(ctx, store.LockRecord{
		Label:     g.label,
		Holder:    holder,
		StartedAt: now,
	}, now.Add(-g.staleAfter))
}
