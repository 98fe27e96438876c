package limiter_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lauripelkonen/erp-agent-sub000/internal/limiter"
)

func TestNewRejectsNonPositive(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := limiter.New(n); !errors.Is(err, limiter.ErrInvalidLimit) {
			t.Errorf("New(%d) err = %v, want ErrInvalidLimit", n, err)
		}
	}
}

type result struct {
	index int
	err   error
}

func TestSubmitAllOrderAndBound(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		items int
	}{
		{"sequential", 1, 5},
		{"default", 2, 7},
		{"full parallelism", 8, 8},
		{"more permits than items", 16, 3},
		{"empty", 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := limiter.New(tt.limit)
			if err != nil {
				t.Fatal(err)
			}

			var running, peak atomic.Int64
			items := make([]int, tt.items)
			for i := range items {
				items[i] = i
			}

			got := limiter.SubmitAll(context.Background(), l, items,
				func(_ context.Context, i int) result {
					n := running.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					// later items finish first
					time.Sleep(time.Duration(tt.items-i) * time.Millisecond)
					running.Add(-1)
					return result{index: i}
				},
				func(i int, err error) result { return result{index: i, err: err} },
			)

			if len(got) != tt.items {
				t.Fatalf("got %d results, want %d", len(got), tt.items)
			}
			for i, r := range got {
				if r.index != i || r.err != nil {
					t.Errorf("result[%d] = %+v", i, r)
				}
			}
			if p := peak.Load(); p > int64(tt.limit) {
				t.Errorf("peak concurrency %d exceeds limit %d", p, tt.limit)
			}
			if tt.limit >= tt.items && tt.items > 1 && peak.Load() < 2 {
				t.Errorf("expected parallel execution, peak = %d", peak.Load())
			}
			if l.InFlight() != 0 {
				t.Errorf("InFlight = %d after completion", l.InFlight())
			}
		})
	}
}

func TestSubmitAllRecoversPanic(t *testing.T) {
	l, _ := limiter.New(1)

	got := limiter.SubmitAll(context.Background(), l, []int{0, 1, 2},
		func(_ context.Context, i int) result {
			if i == 1 {
				panic("boom")
			}
			return result{index: i}
		},
		func(i int, err error) result { return result{index: i, err: err} },
	)

	if !errors.Is(got[1].err, limiter.ErrPanic) {
		t.Errorf("result[1].err = %v, want ErrPanic", got[1].err)
	}
	if got[0].err != nil || got[2].err != nil {
		t.Errorf("panic leaked into siblings: %+v", got)
	}
	if l.InFlight() != 0 {
		t.Errorf("permit not released, InFlight = %d", l.InFlight())
	}
}

func TestSubmitAllCancelledBeforeAcquire(t *testing.T) {
	l, _ := limiter.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	got := limiter.SubmitAll(ctx, l, []string{"a"},
		func(context.Context, string) error { ran.Store(true); return nil },
		func(_ string, err error) error { return err },
	)

	if ran.Load() {
		t.Error("work ran without a permit")
	}
	if !errors.Is(got[0], context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", got[0])
	}
}

func TestLimiterSharedAcrossBatches(t *testing.T) {
	l, _ := limiter.New(2)

	var running, peak atomic.Int64
	work := func(_ context.Context, _ int) int {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return 0
	}
	fail := func(int, error) int { return -1 }

	done := make(chan struct{})
	for range 3 {
		go func() {
			limiter.SubmitAll(context.Background(), l, []int{1, 2, 3}, work, fail)
			done <- struct{}{}
		}()
	}
	for range 3 {
		<-done
	}

	if peak.Load() > 2 {
		t.Errorf("peak across batches = %d, want <= 2", peak.Load())
	}
}

func TestSubmitAllBoundProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("never exceeds N and preserves order", prop.ForAll(
		func(n, k int) bool {
			l, err := limiter.New(n)
			if err != nil {
				return false
			}

			var running, peak atomic.Int64
			items := make([]string, k)
			for i := range items {
				items[i] = fmt.Sprint(i)
			}

			got := limiter.SubmitAll(context.Background(), l, items,
				func(_ context.Context, s string) string {
					c := running.Add(1)
					for {
						p := peak.Load()
						if c <= p || peak.CompareAndSwap(p, c) {
							break
						}
					}
					time.Sleep(100 * time.Microsecond)
					running.Add(-1)
					return s
				},
				func(string, error) string { return "" },
			)

			if len(got) != k || peak.Load() > int64(n) {
				return false
			}
			for i, s := range got {
				if s != items[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
