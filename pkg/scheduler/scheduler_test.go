package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// periodic resumes every interval until it has run limit times (limit < 0
// never finishes).
type periodic struct {
	name     string
	interval time.Duration
	limit    int
	times    []time.Duration
}

func (p *periodic) Name() string { return p.name }

func (p *periodic) Resume(now time.Duration) (time.Duration, bool, error) {
	p.times = append(p.times, now)
	if p.limit >= 0 && len(p.times) >= p.limit {
		return 0, true, nil
	}
	return now + p.interval, false, nil
}

type failing struct{ panics bool }

func (f *failing) Name() string { return "failing" }

func (f *failing) Resume(now time.Duration) (time.Duration, bool, error) {
	if f.panics {
		panic("boom")
	}
	return 0, false, errors.New("broken")
}

func secs(vals ...float64) []time.Duration {
	out := make([]time.Duration, len(vals))
	for i, v := range vals {
		out[i] = time.Duration(v * float64(time.Second))
	}
	return out
}

func TestAdvanceTo(t *testing.T) {
	t.Run("resumes in time order", func(t *testing.T) {
		s := New()
		a := &periodic{name: "a", interval: time.Second, limit: 3}
		b := &periodic{name: "b", interval: 2 * time.Second, limit: -1}
		if err := s.Schedule(a, 2*time.Second); err != nil {
			t.Fatal(err)
		}
		if err := s.Schedule(b, 0); err != nil {
			t.Fatal(err)
		}

		s.AdvanceTo(10 * time.Second)

		if diff := cmp.Diff(secs(2, 3, 4), a.times); diff != "" {
			t.Errorf("task a times (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(secs(0, 2, 4, 6, 8, 10), b.times); diff != "" {
			t.Errorf("task b times (-want +got):\n%s", diff)
		}
		if s.Now() != 10*time.Second {
			t.Errorf("Now() = %v, want 10s", s.Now())
		}
		if s.Pending() != 1 {
			t.Errorf("Pending() = %d, want 1", s.Pending())
		}
	})

	t.Run("immediate resumption waits one frame", func(t *testing.T) {
		s := New(WithFrame(100 * time.Millisecond))
		p := &periodic{name: "tight", interval: 0, limit: -1}
		if err := s.Schedule(p, 0); err != nil {
			t.Fatal(err)
		}
		s.AdvanceTo(time.Second)
		if len(p.times) != 11 {
			t.Fatalf("resumed %d times in 1s at 100ms frames, want 11", len(p.times))
		}
	})

	t.Run("failing task is dropped without affecting others", func(t *testing.T) {
		for _, panics := range []bool{false, true} {
			s := New()
			ok := &periodic{name: "ok", interval: time.Second, limit: -1}
			_ = s.Schedule(&failing{panics: panics}, 0)
			_ = s.Schedule(ok, 0)
			s.AdvanceTo(3 * time.Second)
			if len(ok.times) != 4 {
				t.Errorf("panics=%v: sibling resumed %d times, want 4", panics, len(ok.times))
			}
			if diff := cmp.Diff([]string{"failing"}, s.Failed()); diff != "" {
				t.Errorf("panics=%v: Failed() mismatch:\n%s", panics, diff)
			}
		}
	})
}

func TestStop(t *testing.T) {
	s := New()
	p := &periodic{name: "p", interval: time.Second, limit: -1}
	_ = s.Schedule(p, 0)
	s.AdvanceTo(2 * time.Second)
	s.Stop()

	before := len(p.times)
	s.AdvanceTo(10 * time.Second)
	if len(p.times) != before {
		t.Fatalf("task resumed after Stop: %d -> %d", before, len(p.times))
	}
	if err := s.Schedule(p, 0); !errors.Is(err, ErrStopped) {
		t.Fatalf("Schedule after Stop = %v, want ErrStopped", err)
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending() after Stop = %d", s.Pending())
	}
}

type counting struct {
	n atomic.Int32
}

func (c *counting) Name() string { return "counting" }

func (c *counting) Resume(now time.Duration) (time.Duration, bool, error) {
	c.n.Add(1)
	return now + 5*time.Millisecond, false, nil
}

func TestRunRealTime(t *testing.T) {
	s := New()
	c := &counting{}
	_ = s.Schedule(c, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() = %v, want deadline exceeded", err)
	}
	if got := c.n.Load(); got < 2 {
		t.Fatalf("task resumed %d times in 100ms", got)
	}
}

func TestRunReturnsOnStop(t *testing.T) {
	s := New()
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() after Stop = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
