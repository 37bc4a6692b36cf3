// Package episode runs a sequence of fixed-length episodes on an environment.
package episode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/boristopalov/arenas/pkg/core"
)

var ErrAlreadyRunning = errors.New("runner already running")

type Runner struct {
	id       string
	env      core.Environment
	episodes int
	length   time.Duration
	realtime bool
	log      zerolog.Logger

	mu     sync.RWMutex
	status core.Status
	cancel context.CancelFunc
}

type RunnerParams struct {
	Episodes int
	Length   time.Duration
	Realtime bool
	Logger   zerolog.Logger
}

type RunnerOption func(*RunnerParams)

func WithEpisodes(n int) RunnerOption {
	return func(p *RunnerParams) {
		p.Episodes = n
	}
}

func WithLength(d time.Duration) RunnerOption {
	return func(p *RunnerParams) {
		p.Length = d
	}
}

// WithRealtime runs episodes against wall time instead of simulating them.
func WithRealtime(realtime bool) RunnerOption {
	return func(p *RunnerParams) {
		p.Realtime = realtime
	}
}

func WithLogger(l zerolog.Logger) RunnerOption {
	return func(p *RunnerParams) {
		p.Logger = l
	}
}

func defaultRunnerParams() *RunnerParams {
	return &RunnerParams{
		Episodes: 1,
		Length:   30 * time.Second,
		Logger:   zerolog.Nop(),
	}
}

func NewRunner(env core.Environment, opts ...RunnerOption) (*Runner, error) {
	params := defaultRunnerParams()
	for _, opt := range opts {
		opt(params)
	}
	if params.Episodes < 1 {
		return nil, fmt.Errorf("episodes must be at least 1, got %d", params.Episodes)
	}
	if params.Length <= 0 {
		return nil, fmt.Errorf("episode length must be positive, got %v", params.Length)
	}

	id := uuid.New().String()
	return &Runner{
		id:       id,
		env:      env,
		episodes: params.Episodes,
		length:   params.Length,
		realtime: params.Realtime,
		log:      params.Logger.With().Str("run", id).Logger(),
		status:   core.Status{RunID: id},
	}, nil
}

func (r *Runner) GetID() string {
	return r.id
}

// Run resets the environment and plays each episode in turn.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.status.Running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.status.Running = true
	r.status.StartTime = time.Now()
	r.status.Errors = nil
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		r.status.Running = false
		r.status.EndTime = time.Now()
		r.cancel = nil
		r.mu.Unlock()
	}()

	err := r.runLoop(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.mu.Lock()
		r.status.Errors = append(r.status.Errors, err)
		r.mu.Unlock()
	}
	return err
}

func (r *Runner) runLoop(ctx context.Context) error {
	for i := 1; i <= r.episodes; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.mu.Lock()
		r.status.Episode = i
		r.mu.Unlock()

		if err := r.step(ctx); err != nil {
			return fmt.Errorf("episode %d: %w", i, err)
		}

		state := r.env.GetState()
		spawners := 0
		for _, a := range state.Arenas {
			spawners += len(a.Spawners)
		}
		r.log.Info().
			Int("episode", i).
			Int("arenas", len(state.Arenas)).
			Int("spawners", spawners).
			Dur("elapsed", state.Elapsed).
			Msg("episode finished")
	}
	return nil
}

func (r *Runner) step(ctx context.Context) error {
	if err := r.env.Reset(); err != nil {
		return err
	}
	if r.realtime {
		return r.env.Run(ctx, r.length)
	}
	return r.env.Simulate(r.length)
}

// Stop cancels a run in progress.
func (r *Runner) Stop() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

func (r *Runner) GetStatus() core.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := r.status
	status.Errors = append([]error(nil), r.status.Errors...)
	return status
}

var _ core.Runner = (*Runner)(nil)
