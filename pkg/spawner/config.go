package spawner

import (
	"errors"
	"fmt"
	"time"

	"github.com/boristopalov/arenas/pkg/variation"
	"github.com/boristopalov/arenas/pkg/world"
)

// Unbounded is the spawn budget of a spawner that never runs out.
const Unbounded = -1

var (
	ErrNoTemplates   = errors.New("spawner has no candidate templates")
	ErrInvalidBudget = errors.New("spawn budget must be -1 (unbounded) or >= 0")
	ErrInvalidConfig = errors.New("invalid spawner config")
)

// Seconds is a duration written as a number of seconds in config files.
type Seconds float64

func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// Config describes one goal spawner. It is not modified after the spawner is
// built.
type Config struct {
	Name string `yaml:"name"`
	// Host is the spawner body's prefab; empty means the default tree.
	Host string `yaml:"host"`
	// Position of the spawner body relative to the arena origin.
	Position world.Vector `yaml:"position"`

	// Generic prefab placement fields. The spawner ignores both and always
	// places its body at unit scale with its authored colour.
	Size         *world.Vector `yaml:"size"`
	RandomColour bool          `yaml:"random_colour"`

	Templates        []string        `yaml:"templates"`
	InitialSize      float64         `yaml:"initial_size"`
	RipenedSize      float64         `yaml:"ripened_size"`
	VariableSize     bool            `yaml:"variable_size"`
	VariablePosition bool            `yaml:"variable_position"`
	SphericalRadius  float64         `yaml:"spherical_radius"`
	DefaultOffset    world.Vector    `yaml:"default_offset"`
	RipenTime        Seconds         `yaml:"ripen_seconds"`
	Interval         Seconds         `yaml:"interval_seconds"`
	Delay            Seconds         `yaml:"delay_seconds"`
	Count            int             `yaml:"count"`
	Seeds            variation.Seeds `yaml:"seeds"`
	Colour           *world.Colour   `yaml:"colour"`
}

// Validate reports configuration errors that make the spawner unusable.
func (c Config) Validate() error {
	if len(c.Templates) == 0 {
		return ErrNoTemplates
	}
	for i, t := range c.Templates {
		if t == "" {
			return fmt.Errorf("%w: template %d is empty", ErrInvalidConfig, i)
		}
	}
	if c.Count < Unbounded {
		return fmt.Errorf("%w: got %d", ErrInvalidBudget, c.Count)
	}
	switch {
	case c.InitialSize < 0, c.RipenedSize < 0:
		return fmt.Errorf("%w: sizes must be non-negative", ErrInvalidConfig)
	case c.SphericalRadius < 0:
		return fmt.Errorf("%w: spherical radius must be non-negative", ErrInvalidConfig)
	case c.RipenTime < 0, c.Interval < 0, c.Delay < 0:
		return fmt.Errorf("%w: timings must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// Infinite reports whether the budget is unbounded.
func (c Config) Infinite() bool {
	return c.Count == Unbounded
}

// channels lists the variation streams the config needs.
func (c Config) channels() []variation.Channel {
	var out []variation.Channel
	if len(c.Templates) > 1 {
		out = append(out, variation.EntityChoice)
	}
	if c.VariableSize {
		out = append(out, variation.Size)
	}
	if c.VariablePosition {
		out = append(out, variation.HorizontalAngle, variation.VerticalAngle)
	}
	return out
}
