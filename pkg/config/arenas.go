package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/boristopalov/arenas/pkg/spawner"
)

//go:embed defaults.yaml
var defaultArenasYAML []byte

var ErrInvalidArena = errors.New("invalid arena configuration")

// ArenaConfiguration is the record one arena reads when it resets.
type ArenaConfiguration struct {
	TimeLimit int              `yaml:"t"`
	PassMark  float64          `yaml:"pass_mark"`
	Spawners  []spawner.Config `yaml:"spawners"`
	// Params keeps keys this package does not interpret.
	Params map[string]any `yaml:",inline"`
}

func (c ArenaConfiguration) Validate() error {
	if c.TimeLimit < 0 {
		return fmt.Errorf("%w: negative time limit %d", ErrInvalidArena, c.TimeLimit)
	}
	for i, s := range c.Spawners {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("spawner %d: %w", i, err)
		}
	}
	return nil
}

type arenasFile struct {
	Arenas map[int]ArenaConfiguration `yaml:"arenas"`
}

// ParseArenas decodes an `arenas:` document and validates every record.
func ParseArenas(data []byte) (map[int]ArenaConfiguration, error) {
	var f arenasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode arenas: %w", err)
	}
	for id, c := range f.Arenas {
		if id < 0 {
			return nil, fmt.Errorf("%w: negative arena id %d", ErrInvalidArena, id)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("arena %d: %w", id, err)
		}
	}
	return f.Arenas, nil
}

// ArenasConfigurations maps arena ids to their records. Deliveries may come
// from the side-channel goroutine while arenas read, so access is locked.
type ArenasConfigurations struct {
	mu             sync.RWMutex
	configs        map[int]ArenaConfiguration
	numberOfArenas int
	fallback       ArenaConfiguration
}

// NewArenasConfigurations returns an empty store whose fallback record is
// the embedded default configuration.
func NewArenasConfigurations() *ArenasConfigurations {
	defaults, err := ParseArenas(defaultArenasYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded arena defaults: %v", err))
	}
	return &ArenasConfigurations{
		configs:        make(map[int]ArenaConfiguration),
		numberOfArenas: 1,
		fallback:       defaults[0],
	}
}

func (a *ArenasConfigurations) SetNumberOfArenas(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.numberOfArenas = n
}

func (a *ArenasConfigurations) NumberOfArenas() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.numberOfArenas
}

// Add stores the record for one arena.
func (a *ArenasConfigurations) Add(id int, c ArenaConfiguration) error {
	if id < 0 {
		return fmt.Errorf("%w: negative arena id %d", ErrInvalidArena, id)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("arena %d: %w", id, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configs[id] = c
	return nil
}

// Get returns the record for id, or the default record when none was set.
func (a *ArenasConfigurations) Get(id int) ArenaConfiguration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if c, ok := a.configs[id]; ok {
		return c
	}
	return a.fallback
}

// Has reports whether id has its own record.
func (a *ArenasConfigurations) Has(id int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.configs[id]
	return ok
}

// IDs returns the ids with their own record, ascending.
func (a *ArenasConfigurations) IDs() []int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]int, 0, len(a.configs))
	for id := range a.configs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// UpdateWithConfigurationsReceived replaces the records of every arena id
// present in data. Nothing changes if any record is invalid.
func (a *ArenasConfigurations) UpdateWithConfigurationsReceived(data []byte) error {
	received, err := ParseArenas(data)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, c := range received {
		a.configs[id] = c
	}
	return nil
}

// LoadFile applies an arenas YAML file.
func (a *ArenasConfigurations) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read arenas %s: %w", path, err)
	}
	return a.UpdateWithConfigurationsReceived(data)
}
