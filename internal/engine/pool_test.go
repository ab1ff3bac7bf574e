package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/types"
)

func TestRunBoundedProcessesAll(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	var sum atomic.Int64
	RunBounded(context.Background(), items, 4, func(ctx context.Context, n int) {
		sum.Add(int64(n))
	})
	if got := sum.Load(); got != 1225 {
		t.Errorf("expected sum 1225, got %d", got)
	}
}

func TestRunBoundedRespectsLimit(t *testing.T) {
	for _, limit := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			var active, maxActive atomic.Int32
			items := make([]int, 40)

			RunBounded(context.Background(), items, limit, func(ctx context.Context, _ int) {
				n := active.Add(1)
				for {
					m := maxActive.Load()
					if n <= m || maxActive.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				active.Add(-1)
			})

			if got := maxActive.Load(); got > int32(limit) {
				t.Errorf("observed %d in flight, limit %d", got, limit)
			}
		})
	}
}

func TestRunBoundedNonPositiveLimit(t *testing.T) {
	var count atomic.Int32
	RunBounded(context.Background(), []int{1, 2, 3}, 0, func(ctx context.Context, _ int) {
		count.Add(1)
	})
	if count.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", count.Load())
	}
}

func TestRunBoundedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var count atomic.Int32
	RunBounded(ctx, []int{1, 2, 3}, 2, func(ctx context.Context, _ int) {
		count.Add(1)
	})
	if count.Load() != 0 {
		t.Errorf("expected no calls after cancellation, got %d", count.Load())
	}
}

func TestArticleSetConcurrentAdd(t *testing.T) {
	set := NewArticleSet()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := types.NewArticle(types.SourceTuoiTre, "https://tuoitre.vn/a.htm", "A", "c")
			if set.Add(a) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winner, got %d", wins.Load())
	}
	if set.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", set.Len())
	}
}

func TestArticleSetFirstSeenWins(t *testing.T) {
	set := NewArticleSet()
	first := types.NewArticle(types.SourceVnExpress, "https://vnexpress.net/a.html", "A", "c1")
	second := types.NewArticle(types.SourceVnExpress, "https://VNEXPRESS.net/a.html#box", "A", "c2")

	fresh := set.Claim([]*types.Article{first, second})
	if len(fresh) != 1 || fresh[0] != first {
		t.Fatalf("expected only the first article, got %v", fresh)
	}
	if set.Add(types.NewArticle(types.SourceVnExpress, "https://vnexpress.net/a.html", "A", "c3")) {
		t.Error("canonical href was already claimed")
	}
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://VnExpress.net/a.html", "https://vnexpress.net/a.html"},
		{"https://vnexpress.net:443/a.html#comments", "https://vnexpress.net/a.html"},
		{"https://tuoitre.vn/a.htm?b=2&a=1", "https://tuoitre.vn/a.htm?a=1&b=2"},
		{"https://tuoitre.vn", "https://tuoitre.vn/"},
	}
	for _, tt := range tests {
		if got := CanonicalizeURL(tt.in); got != tt.want {
			t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type countingCycler struct {
	calls atomic.Int32
	onRun func(n int32)
}

func (c *countingCycler) RunCycle(ctx context.Context) CycleReport {
	n := c.calls.Add(1)
	if c.onRun != nil {
		c.onRun(n)
	}
	return CycleReport{ID: fmt.Sprintf("cycle-%d", n), Source: types.SourceTuoiTre}
}

func TestSchedulerMaxCycles(t *testing.T) {
	c := &countingCycler{}
	s := NewScheduler(c, config.DelayRange{}, testLogger(), WithMaxCycles(3))

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.calls.Load() != 3 || s.Cycles() != 3 {
		t.Errorf("expected 3 cycles, got %d", c.calls.Load())
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &countingCycler{onRun: func(n int32) {
		if n == 2 {
			cancel()
		}
	}}
	s := NewScheduler(c, config.DelayRange{Min: time.Hour, Max: time.Hour}, testLogger())
	s.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	err := s.Run(ctx)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c.calls.Load() != 2 {
		t.Errorf("expected 2 cycles, got %d", c.calls.Load())
	}
}

func TestSchedulerWaitsRandomDelay(t *testing.T) {
	var delays []time.Duration
	c := &countingCycler{}
	delay := config.DelayRange{Min: 5 * time.Second, Max: 10 * time.Second}
	s := NewScheduler(c, delay, testLogger(), WithMaxCycles(4))
	s.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(delays) != 3 {
		t.Fatalf("expected 3 pauses between 4 cycles, got %d", len(delays))
	}
	for _, d := range delays {
		if d < delay.Min || d > delay.Max {
			t.Errorf("delay %s outside [%s, %s]", d, delay.Min, delay.Max)
		}
	}
}
