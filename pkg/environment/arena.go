package environment

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/boristopalov/arenas/pkg/config"
	"github.com/boristopalov/arenas/pkg/journal"
	"github.com/boristopalov/arenas/pkg/spawner"
	"github.com/boristopalov/arenas/pkg/world"
)

// TrainingArena is one laid-out arena and the spawners of its current
// episode.
type TrainingArena struct {
	id       int
	entity   world.Entity
	stage    world.Stage
	config   config.ArenaConfiguration
	spawners []*spawner.GoalSpawner
	log      zerolog.Logger
}

func newTrainingArena(id int, entity world.Entity, stage world.Stage, log zerolog.Logger) *TrainingArena {
	return &TrainingArena{
		id:     id,
		entity: entity,
		stage:  stage,
		log:    log.With().Int("arena", id).Logger(),
	}
}

func (a *TrainingArena) ID() int { return a.id }
func (a *TrainingArena) Entity() world.Entity { return a.entity }
func (a *TrainingArena) Configuration() config.ArenaConfiguration { return a.config }

func (a *TrainingArena) Spawners() []*spawner.GoalSpawner {
	out := make([]*spawner.GoalSpawner, len(a.spawners))
	copy(out, a.spawners)
	return out
}

// clear destroys the previous episode's spawner hosts and everything they
// spawned.
func (a *TrainingArena) clear() {
	for _, sp := range a.spawners {
		if err := a.stage.Destroy(sp.Host().ID()); err != nil {
			a.log.Warn().Err(err).Str("spawner", sp.Name()).Msg("destroy spawner host")
		}
	}
	a.spawners = nil
}

// reset rebuilds the spawners from cfg. On error no spawner of this arena
// is left in the world.
func (a *TrainingArena) reset(cfg config.ArenaConfiguration, j *journal.Journal, frame time.Duration) error {
	a.clear()
	a.config = cfg

	origin := a.entity.Position()
	for i, sc := range cfg.Spawners {
		hostTemplate := sc.Host
		if hostTemplate == "" {
			hostTemplate = world.SpawnerTemplate
		}
		host, err := a.stage.Instantiate(hostTemplate, origin.Add(sc.Position.Vec3()))
		if err != nil {
			a.clear()
			return fmt.Errorf("arena %d spawner %d: %w", a.id, i, err)
		}
		host.SetParent(a.entity.ID())

		name := sc.Name
		if name == "" {
			name = fmt.Sprintf("spawner-%d", i)
		}
		sp, err := spawner.New(sc, host, a.stage,
			spawner.WithName(fmt.Sprintf("arena-%d/%s", a.id, name)),
			spawner.WithArena(a.id),
			spawner.WithJournal(j),
			spawner.WithFrame(frame),
			spawner.WithLogger(a.log),
		)
		if err != nil {
			_ = a.stage.Destroy(host.ID())
			a.clear()
			return fmt.Errorf("arena %d spawner %d: %w", a.id, i, err)
		}
		a.spawners = append(a.spawners, sp)
	}
	a.log.Debug().Int("spawners", len(a.spawners)).Int("time_limit", cfg.TimeLimit).Msg("arena reset")
	return nil
}
