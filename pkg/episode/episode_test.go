package episode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/boristopalov/arenas/pkg/core"
)

type fakeEnv struct {
	mu        sync.Mutex
	resets    int
	simulated time.Duration
	runs      int
	resetErr  error
	block     bool
}

func (f *fakeEnv) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.resetErr
}

func (f *fakeEnv) Simulate(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulated += d
	return nil
}

func (f *fakeEnv) Run(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.runs++
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeEnv) GetState() core.State {
	return core.State{Arenas: []core.ArenaState{{ID: 0}}}
}

func (f *fakeEnv) Close() error { return nil }

func TestRunner(t *testing.T) {
	t.Run("simulates every episode", func(t *testing.T) {
		env := &fakeEnv{}
		r, err := NewRunner(env, WithEpisodes(3), WithLength(10*time.Second))
		if err != nil {
			t.Fatal(err)
		}
		if err := r.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if env.resets != 3 || env.simulated != 30*time.Second || env.runs != 0 {
			t.Errorf("resets=%d simulated=%v runs=%d", env.resets, env.simulated, env.runs)
		}
		status := r.GetStatus()
		if status.Running || status.Episode != 3 || status.RunID != r.GetID() {
			t.Errorf("status = %+v", status)
		}
		if status.EndTime.Before(status.StartTime) {
			t.Error("end time before start time")
		}
	})

	t.Run("realtime uses Run", func(t *testing.T) {
		env := &fakeEnv{}
		r, err := NewRunner(env, WithEpisodes(2), WithRealtime(true))
		if err != nil {
			t.Fatal(err)
		}
		if err := r.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		if env.runs != 2 || env.simulated != 0 {
			t.Errorf("runs=%d simulated=%v", env.runs, env.simulated)
		}
	})

	t.Run("reset error recorded", func(t *testing.T) {
		boom := errors.New("boom")
		r, err := NewRunner(&fakeEnv{resetErr: boom}, WithEpisodes(2))
		if err != nil {
			t.Fatal(err)
		}
		if err := r.Run(context.Background()); !errors.Is(err, boom) {
			t.Fatalf("Run = %v, want boom", err)
		}
		if errs := r.GetStatus().Errors; len(errs) != 1 {
			t.Errorf("Errors = %v", errs)
		}
	})

	t.Run("stop cancels", func(t *testing.T) {
		env := &fakeEnv{block: true}
		r, err := NewRunner(env, WithEpisodes(5), WithRealtime(true))
		if err != nil {
			t.Fatal(err)
		}
		done := make(chan error, 1)
		go func() { done <- r.Run(context.Background()) }()

		deadline := time.After(time.Second)
		for !r.GetStatus().Running {
			select {
			case <-deadline:
				t.Fatal("runner never started")
			case <-time.After(5 * time.Millisecond):
			}
		}
		if err := r.Stop(); err != nil {
			t.Fatal(err)
		}
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Run = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Run did not return after Stop")
		}
		if len(r.GetStatus().Errors) != 0 {
			t.Error("cancellation should not be recorded as an error")
		}
	})

	t.Run("invalid options", func(t *testing.T) {
		if _, err := NewRunner(&fakeEnv{}, WithEpisodes(0)); err == nil {
			t.Error("expected error for zero episodes")
		}
		if _, err := NewRunner(&fakeEnv{}, WithLength(0)); err == nil {
			t.Error("expected error for zero length")
		}
	})
}
