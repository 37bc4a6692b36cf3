// Package spawner implements the goal spawner: a timed, resumable process
// that creates goal entities around a host body and grows them from an
// initial to a ripened size before releasing them to physics.
//
// A spawner is a scheduler task. It moves Idle -> Spawning after its initial
// delay and Spawning -> Dormant when its budget runs out. While any spawned
// goal is still ripening the spawner keeps resuming every frame.
package spawner

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/boristopalov/arenas/pkg/journal"
	"github.com/boristopalov/arenas/pkg/variation"
	"github.com/boristopalov/arenas/pkg/world"
)

// DefaultFrame is the ripening step.
const DefaultFrame = 20 * time.Millisecond

// Polar band for variable positions, in half-turns: spawns stay between
// 0.2π and 0.8π from straight up.
const (
	polarOffset = 0.2
	polarSpan   = 0.6
)

type State int

const (
	Idle State = iota
	Spawning
	Dormant
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Spawning:
		return "spawning"
	case Dormant:
		return "dormant"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type growth struct {
	entity world.Entity
	born   time.Duration
	target float64
}

type GoalSpawner struct {
	cfg   Config
	name  string
	arena int
	host  world.Entity
	stage world.Instantiator

	// guards the fields below; Resume runs on the scheduler goroutine
	mu        sync.Mutex
	streams   *variation.Streams
	remaining int
	state     State
	nextSpawn time.Duration
	spawned   int
	released  int
	growing   []*growth

	frame   time.Duration
	journal *journal.Journal
	log     zerolog.Logger
}

type Option func(*GoalSpawner)

func WithName(name string) Option {
	return func(s *GoalSpawner) {
		s.name = name
	}
}

// WithArena tags journal entries and logs with the owning arena.
func WithArena(id int) Option {
	return func(s *GoalSpawner) {
		s.arena = id
	}
}

func WithJournal(j *journal.Journal) Option {
	return func(s *GoalSpawner) {
		s.journal = j
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *GoalSpawner) {
		s.log = l
	}
}

func WithFrame(d time.Duration) Option {
	return func(s *GoalSpawner) {
		if d > 0 {
			s.frame = d
		}
	}
}

// New validates cfg and builds a spawner around host. Goals are created
// through stage.
func New(cfg Config, host world.Entity, stage world.Instantiator, opts ...Option) (*GoalSpawner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if host == nil || stage == nil {
		return nil, fmt.Errorf("%w: host and stage are required", ErrInvalidConfig)
	}

	s := &GoalSpawner{
		cfg:       cfg,
		name:      cfg.Name,
		host:      host,
		stage:     stage,
		remaining: cfg.Count,
		frame:     DefaultFrame,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.name == "" {
		s.name = "spawner-" + host.ID()
	}
	s.log = s.log.With().Str("spawner", s.name).Int("arena", s.arena).Logger()

	s.overridePlacement()
	s.streams = variation.NewStreams(cfg.Seeds, cfg.channels()...)
	return s, nil
}

// overridePlacement pins the host to unit isotropic scale; the spawner's own
// size controls replace any generic size or colour randomisation.
func (s *GoalSpawner) overridePlacement() {
	if s.cfg.Size != nil || s.cfg.RandomColour {
		s.log.Debug().Msg("ignoring generic size/colour settings on spawner body")
	}
	s.cfg.Size = nil
	s.cfg.RandomColour = false
	s.host.SetSize(mgl64.Vec3{1, 1, 1})
}

func (s *GoalSpawner) Name() string { return s.name }
func (s *GoalSpawner) Config() Config { return s.cfg }
func (s *GoalSpawner) Host() world.Entity { return s.host }

// Streams exposes the allocated variation streams.
func (s *GoalSpawner) Streams() *variation.Streams { return s.streams }

func (s *GoalSpawner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *GoalSpawner) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

func (s *GoalSpawner) Spawned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned
}

func (s *GoalSpawner) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func (s *GoalSpawner) Growing() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.growing)
}

// Delay is the wait before the first tick.
func (s *GoalSpawner) Delay() time.Duration {
	return s.cfg.Delay.Duration()
}

// Resume implements scheduler.Task.
func (s *GoalSpawner) Resume(now time.Duration) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Idle {
		s.state = Spawning
		s.nextSpawn = now
		s.log.Debug().Dur("at", now).Msg("spawning started")
	}

	s.ripen(now)

	if s.state == Spawning && now >= s.nextSpawn {
		if err := s.advance(now); err != nil {
			return 0, true, err
		}
	}
	return s.wake(now)
}

// advance runs one spawning tick.
func (s *GoalSpawner) advance(now time.Duration) error {
	if s.remaining == 0 {
		s.state = Dormant
		s.record(journal.Event{Kind: journal.KindDormant, At: now})
		s.log.Debug().Dur("at", now).Int("spawned", s.spawned).Msg("spawner dormant")
		return nil
	}
	if _, err := s.spawnOne(now); err != nil {
		return err
	}
	if !s.cfg.Infinite() {
		s.remaining--
	}
	s.nextSpawn = now + s.cfg.Interval.Duration()
	return nil
}

func (s *GoalSpawner) wake(now time.Duration) (time.Duration, bool, error) {
	var next time.Duration
	has := false
	if s.state == Spawning {
		next, has = s.nextSpawn, true
	}
	if len(s.growing) > 0 {
		if f := now + s.frame; !has || f < next {
			next, has = f, true
		}
	}
	if !has {
		return 0, true, nil
	}
	return next, false, nil
}

// SpawnOne creates a single goal at the next computed offset and starts it
// ripening. It does not touch the budget.
func (s *GoalSpawner) SpawnOne(now time.Duration) (world.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawnOne(now)
}

func (s *GoalSpawner) spawnOne(now time.Duration) (world.Entity, error) {
	offset := s.cfg.DefaultOffset.Vec3()
	if s.cfg.VariablePosition {
		theta, phi := s.drawAngles()
		offset = offset.Add(sphericalToCartesian(s.cfg.SphericalRadius, theta, phi))
	}
	template := s.pickTemplate()

	pos := s.host.Position().Add(offset)
	goal, err := s.stage.Instantiate(template, pos)
	if err != nil {
		return nil, fmt.Errorf("spawner %s: instantiate %s: %w", s.name, template, err)
	}
	goal.SetParent(s.host.ID())
	goal.SetEnabled(false)
	goal.SetSize(uniform(s.cfg.InitialSize))
	if s.cfg.Colour != nil {
		goal.SetColour(world.EmissionColor, *s.cfg.Colour)
	}
	goal.SetPhysics(false)
	goal.SetEnabled(true)
	s.spawned++

	s.record(journal.Event{
		Kind:     journal.KindSpawn,
		Entity:   goal.ID(),
		Template: template,
		Position: pos,
		Size:     s.cfg.InitialSize,
		At:       now,
	})
	s.log.Debug().Str("template", template).Str("entity", goal.ID()).Dur("at", now).Msg("goal spawned")

	target := s.ripenedSize()
	if s.cfg.RipenTime.Duration() <= 0 {
		s.release(goal, target, now)
	} else {
		s.growing = append(s.growing, &growth{entity: goal, born: now, target: target})
	}
	return goal, nil
}

func (s *GoalSpawner) ripen(now time.Duration) {
	if len(s.growing) == 0 {
		return
	}
	ripenTime := s.cfg.RipenTime.Duration()
	kept := s.growing[:0]
	for _, g := range s.growing {
		elapsed := now - g.born
		if elapsed >= ripenTime {
			s.release(g.entity, g.target, now)
			continue
		}
		p := float64(elapsed) / float64(ripenTime)
		g.entity.SetSize(uniform(s.cfg.InitialSize + (g.target-s.cfg.InitialSize)*p))
		kept = append(kept, g)
	}
	for i := len(kept); i < len(s.growing); i++ {
		s.growing[i] = nil
	}
	s.growing = kept
}

func (s *GoalSpawner) release(goal world.Entity, size float64, now time.Duration) {
	goal.SetSize(uniform(size))
	goal.SetPhysics(true)
	s.released++
	s.record(journal.Event{
		Kind:     journal.KindRelease,
		Entity:   goal.ID(),
		Template: goal.Template(),
		Position: goal.Position(),
		Size:     size,
		At:       now,
	})
}

func (s *GoalSpawner) pickTemplate() string {
	if rng, ok := s.streams.Get(variation.EntityChoice); ok {
		return s.cfg.Templates[rng.IntN(len(s.cfg.Templates))]
	}
	return s.cfg.Templates[0]
}

// ripenedSize is the final size of the next goal; with variable size it is
// drawn from [initial, ripened].
func (s *GoalSpawner) ripenedSize() float64 {
	rng, ok := s.streams.Get(variation.Size)
	if !ok {
		return s.cfg.RipenedSize
	}
	return s.cfg.InitialSize + rng.Float64()*(s.cfg.RipenedSize-s.cfg.InitialSize)
}

// drawAngles returns the polar angle theta and azimuthal angle phi.
func (s *GoalSpawner) drawAngles() (float64, float64) {
	h, _ := s.streams.Get(variation.HorizontalAngle)
	v, _ := s.streams.Get(variation.VerticalAngle)
	phi := h.Float64() * 2 * math.Pi
	theta := polarAngle(v.Float64())
	return theta, phi
}

func polarAngle(u float64) float64 {
	return (u*polarSpan + polarOffset) * math.Pi
}

// sphericalToCartesian converts to the engine's y-up axes.
func sphericalToCartesian(r, theta, phi float64) mgl64.Vec3 {
	v := mgl64.SphericalToCartesian(r, theta, phi)
	return mgl64.Vec3{v.X(), v.Z(), v.Y()}
}

func uniform(size float64) mgl64.Vec3 {
	return mgl64.Vec3{size, size, size}
}

func (s *GoalSpawner) record(e journal.Event) {
	if s.journal == nil {
		return
	}
	e.Arena = s.arena
	e.Spawner = s.name
	s.journal.Record(e)
}
