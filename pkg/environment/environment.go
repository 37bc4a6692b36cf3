// Package environment assembles a multi-arena training environment: it
// applies the resolved configuration once, lays out the arenas, and runs each
// arena's goal spawners on a shared cooperative scheduler.
package environment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/boristopalov/arenas/pkg/agent"
	"github.com/boristopalov/arenas/pkg/config"
	"github.com/boristopalov/arenas/pkg/core"
	"github.com/boristopalov/arenas/pkg/journal"
	"github.com/boristopalov/arenas/pkg/layout"
	"github.com/boristopalov/arenas/pkg/messaging"
	"github.com/boristopalov/arenas/pkg/scheduler"
	"github.com/boristopalov/arenas/pkg/world"
)

var (
	ErrClosed   = errors.New("environment closed")
	ErrNotReset = errors.New("environment has not been reset")
)

type Manager struct {
	resolved config.Resolved
	stage    world.Stage
	template string
	store    *config.ArenasConfigurations
	channel  *messaging.SideChannel
	journal  *journal.Journal
	sensors  agent.Sensors
	plan     layout.Plan
	arenas   []*TrainingArena
	frame    time.Duration
	clock    scheduler.Clock

	mu      sync.Mutex
	sched   *scheduler.Scheduler
	episode int
	closed  bool

	log zerolog.Logger
}

type ManagerParams struct {
	Template string
	Broker   messaging.Broker
	Store    *config.ArenasConfigurations
	Journal  *journal.Journal
	Frame    time.Duration
	Clock    scheduler.Clock
	Logger   zerolog.Logger
}

type Option func(*ManagerParams)

// WithTemplate sets the arena template to lay out.
func WithTemplate(name string) Option {
	return func(p *ManagerParams) {
		p.Template = name
	}
}

// WithBroker sets the broker the configuration channel subscribes to.
func WithBroker(b messaging.Broker) Option {
	return func(p *ManagerParams) {
		p.Broker = b
	}
}

func WithStore(s *config.ArenasConfigurations) Option {
	return func(p *ManagerParams) {
		p.Store = s
	}
}

func WithJournal(j *journal.Journal) Option {
	return func(p *ManagerParams) {
		p.Journal = j
	}
}

func WithFrame(d time.Duration) Option {
	return func(p *ManagerParams) {
		p.Frame = d
	}
}

func WithClock(c scheduler.Clock) Option {
	return func(p *ManagerParams) {
		p.Clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *ManagerParams) {
		p.Logger = l
	}
}

func defaultManagerParams() *ManagerParams {
	return &ManagerParams{
		Template: world.ArenaTemplate,
		Broker:   messaging.NewBroker(),
		Store:    config.NewArenasConfigurations(),
		Journal:  journal.New(4096),
		Frame:    scheduler.DefaultFrame,
		Clock:    scheduler.SystemClock{},
		Logger:   zerolog.Nop(),
	}
}

// New applies resolved to stage and lays out the arenas. Any error is a
// fatal configuration error; nothing is left subscribed.
func New(resolved config.Resolved, stage world.Stage, opts ...Option) (*Manager, error) {
	params := defaultManagerParams()
	for _, opt := range opts {
		opt(params)
	}

	m := &Manager{
		resolved: resolved,
		stage:    stage,
		template: params.Template,
		store:    params.Store,
		journal:  params.Journal,
		frame:    params.Frame,
		clock:    params.Clock,
		log:      params.Logger,
		channel: messaging.NewSideChannel(params.Broker,
			messaging.WithChannelLogger(params.Logger)),
	}
	m.store.SetNumberOfArenas(resolved.NumberOfArenas)

	sensors, err := stage.Sensors(m.template, world.AgentPath)
	if err != nil {
		return nil, fmt.Errorf("find agent sensors: %w", err)
	}
	m.sensors = sensors
	m.applySensors()

	if err := m.configurePlayerMode(); err != nil {
		return nil, err
	}

	engine := layout.NewEngine(stage, layout.WithLogger(m.log))
	plan, entities, err := engine.Build(m.template, resolved.NumberOfArenas)
	if err != nil {
		return nil, err
	}
	m.plan = plan
	for i, e := range entities {
		m.arenas = append(m.arenas, newTrainingArena(i, e, stage, m.log))
	}

	if err := m.channel.Register(); err != nil {
		return nil, err
	}

	m.log.Info().
		Int("arenas", resolved.NumberOfArenas).
		Bool("player_mode", resolved.PlayerMode).
		Int("resolution", resolved.Resolution).
		Bool("grayscale", resolved.Grayscale).
		Bool("ray_casts", resolved.UseRayCasts).
		Bool("receive_configuration", resolved.ReceiveConfiguration).
		Msg("environment ready")
	return m, nil
}

// applySensors configures the agent's observations. It runs once.
func (m *Manager) applySensors() {
	r := m.resolved
	if r.UseRayCasts {
		m.sensors.ConfigureRays(r.RaysPerSide, r.RayMaxDegrees)
		m.sensors.SetRaysEnabled(true)
		m.sensors.SetCameraEnabled(false)
		return
	}
	m.sensors.ConfigureCamera(r.Resolution, r.Resolution, r.Grayscale)
	m.sensors.SetCameraEnabled(true)
	m.sensors.SetRaysEnabled(false)
}

func (m *Manager) configurePlayerMode() error {
	player := m.resolved.PlayerMode
	if err := m.stage.SetActive(world.ScoreTag, player); err != nil {
		return fmt.Errorf("player mode: %w", err)
	}
	if err := m.stage.SetActive(world.ControlsTag, player); err != nil {
		return fmt.Errorf("player mode: %w", err)
	}
	if player {
		m.sensors.SetBehavior(agent.BehaviorHeuristicOnly)
	} else {
		m.sensors.SetBehavior(agent.BehaviorDefault)
	}
	return nil
}

// Reset applies pending deliveries and starts a new episode: every arena
// reads its configuration once and its spawners are scheduled afresh.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	applied, err := m.channel.Drain(m.store.UpdateWithConfigurationsReceived)
	if err != nil {
		m.log.Warn().Err(err).Msg("rejected arena configuration")
	}
	if applied > 0 {
		m.log.Info().Int("deliveries", applied).Msg("arena configurations received")
	}

	if m.sched != nil {
		m.sched.Stop()
	}
	sched := scheduler.New(
		scheduler.WithFrame(m.frame),
		scheduler.WithClock(m.clock),
		scheduler.WithLogger(m.log),
	)
	for _, a := range m.arenas {
		if err := a.reset(m.store.Get(a.ID()), m.journal, m.frame); err != nil {
			m.sched = nil
			return err
		}
		for _, sp := range a.spawners {
			if err := sched.Schedule(sp, sp.Delay()); err != nil {
				return err
			}
		}
	}
	m.sched = sched
	m.episode++
	m.log.Debug().Int("episode", m.episode).Msg("environment reset")
	return nil
}

func (m *Manager) current() (*scheduler.Scheduler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.closed:
		return nil, ErrClosed
	case m.sched == nil:
		return nil, ErrNotReset
	}
	return m.sched, nil
}

// Simulate advances the episode's virtual clock by d.
func (m *Manager) Simulate(d time.Duration) error {
	sched, err := m.current()
	if err != nil {
		return err
	}
	sched.Advance(d)
	return nil
}

// Run drives the episode against wall time for d, or until ctx ends when d
// is zero, while applying side-channel deliveries to the store as they
// arrive. Deliveries take effect at the next Reset.
func (m *Manager) Run(ctx context.Context, d time.Duration) error {
	sched, err := m.current()
	if err != nil {
		return err
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if d > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		if err := sched.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return m.channel.Listen(gctx, m.receive)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (m *Manager) receive(payload []byte) error {
	if err := m.store.UpdateWithConfigurationsReceived(payload); err != nil {
		return err
	}
	m.log.Info().Int("bytes", len(payload)).Msg("arena configurations received")
	return nil
}

// Close stops every spawner and unregisters the configuration channel. It
// is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.sched != nil {
		m.sched.Stop()
	}
	if err := m.channel.Unregister(); err != nil {
		return err
	}
	m.log.Info().Int("episodes", m.episode).Msg("environment closed")
	return nil
}

// GetState snapshots every arena's spawners.
func (m *Manager) GetState() core.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := core.State{
		Episode:   m.episode,
		Timestamp: time.Now(),
	}
	if m.sched != nil {
		state.Elapsed = m.sched.Now()
	}
	for _, a := range m.arenas {
		as := core.ArenaState{ID: a.ID()}
		for _, sp := range a.spawners {
			as.Spawners = append(as.Spawners, core.SpawnerState{
				Name:      sp.Name(),
				Status:    sp.State().String(),
				Spawned:   sp.Spawned(),
				Remaining: sp.Remaining(),
				Growing:   sp.Growing(),
			})
		}
		state.Arenas = append(state.Arenas, as)
	}
	return state
}

func (m *Manager) Arenas() []*TrainingArena {
	out := make([]*TrainingArena, len(m.arenas))
	copy(out, m.arenas)
	return out
}

func (m *Manager) Plan() layout.Plan { return m.plan }
func (m *Manager) Journal() *journal.Journal { return m.journal }
func (m *Manager) Config() config.Resolved { return m.resolved }
func (m *Manager) Store() *config.ArenasConfigurations { return m.store }
func (m *Manager) Channel() *messaging.SideChannel { return m.channel }

// Failed lists spawners dropped from the current episode after an error.
func (m *Manager) Failed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sched == nil {
		return nil
	}
	return m.sched.Failed()
}

func (m *Manager) Episode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.episode
}

var _ core.Environment = (*Manager)(nil)
