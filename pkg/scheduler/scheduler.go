// Package scheduler runs cooperative tasks that suspend until a resumption
// time. All tasks resume on one goroutine; they never run simultaneously.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultFrame is the step used when a task asks to resume immediately.
const DefaultFrame = 20 * time.Millisecond

var ErrStopped = errors.New("scheduler stopped")

// Task is a resumable unit of work. Resume is called at or after the time the
// task asked for. It returns the next resumption time, or done when the task
// has nothing left to do.
type Task interface {
	Name() string
	Resume(now time.Duration) (next time.Duration, done bool, err error)
}

type entry struct {
	at    time.Duration
	seq   uint64
	task  Task
	index int
}

type taskQueue []*entry

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].at == q[j].at {
		return q[i].seq < q[j].seq
	}
	return q[i].at < q[j].at
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// Scheduler orders tasks by resumption time on a virtual clock.
type Scheduler struct {
	mu      sync.Mutex
	queue   taskQueue
	now     time.Duration
	seq     uint64
	frame   time.Duration
	stopped bool
	wake    chan struct{}

	// held while a task runs so Stop can wait for it
	exec sync.Mutex

	clock  Clock
	log    zerolog.Logger
	failed []string
}

type Option func(*Scheduler)

// WithFrame sets the delay applied when a task yields a time that is not in
// the future. Non-positive values are ignored.
func WithFrame(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.frame = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.log = l
	}
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		frame: DefaultFrame,
		wake:  make(chan struct{}, 1),
		clock: SystemClock{},
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	heap.Init(&s.queue)
	return s
}

// Schedule queues task to resume after d from the current virtual time.
func (s *Scheduler) Schedule(task Task, after time.Duration) error {
	if after < 0 {
		after = 0
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.push(task, s.now+after)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *Scheduler) push(task Task, at time.Duration) {
	s.seq++
	heap.Push(&s.queue, &entry{at: at, seq: s.seq, task: task})
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Frame returns the deferral step.
func (s *Scheduler) Frame() time.Duration {
	return s.frame
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Failed returns the names of tasks dropped because they failed.
func (s *Scheduler) Failed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failed))
	copy(out, s.failed)
	return out
}

// Advance moves the virtual clock forward by d.
func (s *Scheduler) Advance(d time.Duration) int {
	return s.AdvanceTo(s.Now() + d)
}

// AdvanceTo resumes every task due at or before t, in time order, and leaves
// the clock at t. It returns the number of resumptions.
func (s *Scheduler) AdvanceTo(t time.Duration) int {
	resumed := 0
	for {
		s.mu.Lock()
		if s.stopped || len(s.queue) == 0 || s.queue[0].at > t {
			if !s.stopped && t > s.now {
				s.now = t
			}
			s.mu.Unlock()
			return resumed
		}
		e := heap.Pop(&s.queue).(*entry)
		s.now = e.at
		s.exec.Lock()
		s.mu.Unlock()

		next, done, err := resume(e.task, e.at)
		s.exec.Unlock()
		resumed++

		s.mu.Lock()
		switch {
		case err != nil:
			s.failed = append(s.failed, e.task.Name())
			s.log.Error().Err(err).Str("task", e.task.Name()).Dur("at", e.at).Msg("task failed, dropping")
		case done || s.stopped:
		default:
			if next <= e.at {
				next = e.at + s.frame
			}
			s.push(e.task, next)
		}
		s.mu.Unlock()
	}
}

func resume(task Task, now time.Duration) (next time.Duration, done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name(), r)
		}
	}()
	return task.Resume(now)
}

// Run drives the queue against the clock until ctx ends or Stop is called.
// Tasks already queued keep their offsets from the current virtual time.
func (s *Scheduler) Run(ctx context.Context) error {
	base := s.clock.Now().Add(-s.Now())
	for {
		if s.Stopped() {
			return nil
		}

		wait, ok := s.untilNext(base)
		switch {
		case !ok:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
			}
		case wait > 0:
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-s.wake:
			case <-timer.C:
			}
			timer.Stop()
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		s.AdvanceTo(s.clock.Now().Sub(base))
	}
}

func (s *Scheduler) untilNext(base time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].at - s.clock.Now().Sub(base), true
}

// Stop discards all queued tasks and waits for a running task to return.
// No task resumes after Stop returns. Stop must not be called from a task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.queue = nil
	s.mu.Unlock()

	s.exec.Lock()
	s.exec.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stopped reports whether Stop was called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
