package core

import (
	"time"
)

// State is a snapshot of an environment.
type State struct {
	Arenas    []ArenaState
	Episode   int
	Elapsed   time.Duration
	Timestamp time.Time
}

type ArenaState struct {
	ID       int
	Spawners []SpawnerState
}

type SpawnerState struct {
	Name      string
	Status    string
	Spawned   int
	Remaining int
	Growing   int
}

// Status tracks one run of episodes.
type Status struct {
	RunID     string
	Running   bool
	Episode   int
	StartTime time.Time
	EndTime   time.Time
	Errors    []error
}
