package journal

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

type Kind string

const (
	KindSpawn   Kind = "spawn"
	KindRelease Kind = "release"
	KindDormant Kind = "dormant"
)

// Event records one spawner lifecycle step.
type Event struct {
	Kind     Kind
	Arena    int
	Spawner  string
	Entity   string
	Template string
	Position mgl64.Vec3
	Size     float64
	At       time.Duration
}

// Journal keeps the most recent events up to a fixed capacity.
type Journal struct {
	events   []Event
	capacity int
	total    map[Kind]int
	mu       sync.RWMutex
}

func New(capacity int) *Journal {
	if capacity < 1 {
		capacity = 1
	}
	return &Journal{
		events:   make([]Event, 0, capacity),
		capacity: capacity,
		total:    make(map[Kind]int),
	}
}

// Events returns a copy of the retained events, oldest first.
func (j *Journal) Events() []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	events := make([]Event, len(j.events))
	copy(events, j.events)
	return events
}

// Record appends e, evicting the oldest event when full.
func (j *Journal) Record(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.events = append(j.events, e)
	j.total[e.Kind]++
	if len(j.events) > j.capacity {
		j.events = j.events[1:]
	}
}

// Count returns how many events of kind were ever recorded, evicted or not.
func (j *Journal) Count(kind Kind) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.total[kind]
}

// Filter returns retained events for one arena.
func (j *Journal) Filter(arena int) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Event
	for _, e := range j.events {
		if e.Arena == arena {
			out = append(out, e)
		}
	}
	return out
}
