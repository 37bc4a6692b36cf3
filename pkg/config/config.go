// Package config resolves the environment configuration from editor
// overrides, process arguments and compiled or file-based defaults, and
// stores per-arena configuration records.
package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

var ErrInvalidDefaults = errors.New("invalid defaults")

// Defaults are the lowest-priority values. They can be overridden from a
// TOML file.
type Defaults struct {
	MinimumResolution    int `toml:"minimum_resolution"`
	MaximumResolution    int `toml:"maximum_resolution"`
	DefaultResolution    int `toml:"default_resolution"`
	DefaultRaysPerSide   int `toml:"rays_per_side"`
	DefaultRayMaxDegrees int `toml:"ray_max_degrees"`
}

func DefaultDefaults() Defaults {
	return Defaults{
		MinimumResolution:    4,
		MaximumResolution:    512,
		DefaultResolution:    84,
		DefaultRaysPerSide:   2,
		DefaultRayMaxDegrees: 60,
	}
}

func (d Defaults) Validate() error {
	switch {
	case d.MinimumResolution < 1:
		return fmt.Errorf("%w: minimum_resolution %d < 1", ErrInvalidDefaults, d.MinimumResolution)
	case d.MaximumResolution < d.MinimumResolution:
		return fmt.Errorf("%w: maximum_resolution %d < minimum_resolution %d",
			ErrInvalidDefaults, d.MaximumResolution, d.MinimumResolution)
	case d.DefaultRaysPerSide < 0:
		return fmt.Errorf("%w: rays_per_side %d < 0", ErrInvalidDefaults, d.DefaultRaysPerSide)
	case d.DefaultRayMaxDegrees < 0:
		return fmt.Errorf("%w: ray_max_degrees %d < 0", ErrInvalidDefaults, d.DefaultRayMaxDegrees)
	}
	return nil
}

// LoadDefaults reads path over the compiled defaults. Keys missing from the
// file keep their compiled value. An empty path returns the compiled
// defaults.
func LoadDefaults(path string) (Defaults, error) {
	d := DefaultDefaults()
	if path == "" {
		return d, nil
	}

	var file Defaults
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return Defaults{}, fmt.Errorf("decode defaults %s: %w", path, err)
	}
	if meta.IsDefined("minimum_resolution") {
		d.MinimumResolution = file.MinimumResolution
	}
	if meta.IsDefined("maximum_resolution") {
		d.MaximumResolution = file.MaximumResolution
	}
	if meta.IsDefined("default_resolution") {
		d.DefaultResolution = file.DefaultResolution
	}
	if meta.IsDefined("rays_per_side") {
		d.DefaultRaysPerSide = file.DefaultRaysPerSide
	}
	if meta.IsDefined("ray_max_degrees") {
		d.DefaultRayMaxDegrees = file.DefaultRayMaxDegrees
	}
	if err := d.Validate(); err != nil {
		return Defaults{}, err
	}
	return d, nil
}

// EditorOverrides are the interactive-run values. They win over everything
// else, but only when Enabled.
type EditorOverrides struct {
	Enabled        bool
	NumberOfArenas int
	PlayerMode     bool
	Resolution     int
	Grayscale      bool
}

func DefaultEditorOverrides() EditorOverrides {
	return EditorOverrides{
		NumberOfArenas: 1,
		PlayerMode:     true,
		Resolution:     500,
		Grayscale:      false,
	}
}
