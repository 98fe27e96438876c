// Package limiter bounds how many units of work run at once. One Limiter is
// shared by every caller in the process, so concurrent batches draw from the
// same permit pool.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrInvalidLimit is returned by New for a non-positive permit count.
	ErrInvalidLimit = errors.New("limit must be positive")
	// ErrPanic wraps a recovered panic from a unit of work.
	ErrPanic = errors.New("work panicked")
)

// Limiter is a fixed-size permit pool.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
}

// New creates a Limiter with n permits.
func New(n int) (*Limiter, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(n)),
		capacity: n,
	}, nil
}

// Capacity returns the permit count.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// InFlight returns the number of permits currently held.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Do runs fn while holding one permit. It blocks until a permit is free or
// ctx is done. The permit is released when fn returns or panics; a panic is
// returned as an error wrapping ErrPanic.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context)) (err error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inFlight.Add(1)

	defer func() {
		l.inFlight.Add(-1)
		l.sem.Release(1)
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	fn(ctx)
	return nil
}

// SubmitAll runs work for every item, at most Capacity at a time across the
// whole process, and returns results aligned with items. When a unit cannot
// acquire a permit or panics, fail builds its result from the error instead.
// One unit's failure never affects another's permit.
func SubmitAll[T, R any](
	ctx context.Context,
	l *Limiter,
	items []T,
	work func(ctx context.Context, item T) R,
	fail func(item T, err error) R,
) []R {
	results := make([]R, len(items))

	var g errgroup.Group
	g.SetLimit(l.capacity)

	for i, item := range items {
		g.Go(func() error {
			err := l.Do(ctx, func(ctx context.Context) {
				results[i] = work(ctx, item)
			})
			if err != nil {
				results[i] = fail(item, err)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
