// Package world defines the engine collaborators the environment consumes:
// entity instantiation and removal, the physics toggle, bounding-box
// queries, sensor lookup and tagged scene objects. Scene is an in-memory
// implementation used by the CLI and tests.
package world

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/boristopalov/arenas/pkg/agent"
)

// EmissionColor is the shader property a colour override is written to.
const EmissionColor = "_EmissionColor"

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrNotFound        = errors.New("scene object not found")
)

// Vector is the configuration-file form of a 3D vector.
type Vector struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
	Z float64 `yaml:"z" toml:"z"`
}

func (v Vector) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// Colour is an HDR RGBA colour.
type Colour struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
	A float64 `yaml:"a"`
}

// Entity is a live object in the world.
type Entity interface {
	ID() string
	Template() string
	Position() mgl64.Vec3
	Size() mgl64.Vec3
	SetParent(parentID string)
	SetEnabled(enabled bool)
	SetSize(size mgl64.Vec3)
	// SetPhysics enables gravity and disables kinematic mode when true, and
	// the reverse when false.
	SetPhysics(enabled bool)
	SetColour(property string, c Colour)
}

// Instantiator creates and removes entities.
type Instantiator interface {
	// Instantiate creates an entity of template at pos with default facing.
	Instantiate(template string, pos mgl64.Vec3) (Entity, error)
	// Destroy removes the entity and everything parented to it.
	Destroy(id string) error
}

// Bounds answers bounding-box queries on templates.
type Bounds interface {
	// Extents returns the half-size of the template's world-space box,
	// including nested children.
	Extents(template string) (mgl64.Vec3, error)
	// HasChild reports whether template has a child at the slash-separated path.
	HasChild(template, path string) bool
}

// Stage is everything the environment needs from the engine.
type Stage interface {
	Instantiator
	Bounds
	// Sensors returns the sensor component on the child at path.
	Sensors(template, path string) (agent.Sensors, error)
	// MoveObserver places the tagged observer camera.
	MoveObserver(tag string, pos mgl64.Vec3) error
	// SetActive toggles a tagged scene object.
	SetActive(tag string, active bool) error
}
