package agent

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// BehaviorType selects who drives the agent's actions.
type BehaviorType int

const (
	BehaviorDefault BehaviorType = iota
	BehaviorHeuristicOnly
	BehaviorInferenceOnly
)

func (b BehaviorType) String() string {
	switch b {
	case BehaviorDefault:
		return "default"
	case BehaviorHeuristicOnly:
		return "heuristic-only"
	case BehaviorInferenceOnly:
		return "inference-only"
	default:
		return fmt.Sprintf("behavior(%d)", int(b))
	}
}

// Sensors is the observation surface of a learning agent.
type Sensors interface {
	// ConfigureCamera sets the image observation size and colour mode.
	ConfigureCamera(width, height int, grayscale bool)
	SetCameraEnabled(enabled bool)
	// ConfigureRays sets the ray count per side and the angular spread.
	ConfigureRays(raysPerDirection, maxRayDegrees int)
	SetRaysEnabled(enabled bool)
	SetBehavior(b BehaviorType)
}

// CameraSensor describes an image observation.
type CameraSensor struct {
	Enabled   bool
	Width     int
	Height    int
	Grayscale bool
}

// RaySensor describes a ray-cast observation.
type RaySensor struct {
	Enabled          bool
	RaysPerDirection int
	MaxRayDegrees    int
}

// Agent is the sensor-bearing learner placed in every arena.
type Agent struct {
	id       string
	mu       sync.RWMutex
	camera   CameraSensor
	rays     RaySensor
	behavior BehaviorType
}

type AgentParams struct {
	AgentID string
	Camera  CameraSensor
	Rays    RaySensor
}

type AgentOption func(*AgentParams)

func WithAgentID(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

func WithCamera(c CameraSensor) AgentOption {
	return func(p *AgentParams) {
		p.Camera = c
	}
}

func WithRays(r RaySensor) AgentOption {
	return func(p *AgentParams) {
		p.Rays = r
	}
}

func defaultAgentParams() *AgentParams {
	return &AgentParams{
		AgentID: "agent-" + uuid.New().String(),
		Camera: CameraSensor{
			Enabled: true,
			Width:   84,
			Height:  84,
		},
		Rays: RaySensor{
			Enabled:          true,
			RaysPerDirection: 2,
			MaxRayDegrees:    60,
		},
	}
}

// NewAgent creates an agent with a camera and a ray sensor.
func NewAgent(opts ...AgentOption) *Agent {
	params := defaultAgentParams()
	for _, opt := range opts {
		opt(params)
	}
	return &Agent{
		id:     params.AgentID,
		camera: params.Camera,
		rays:   params.Rays,
	}
}

func (a *Agent) GetID() string {
	return a.id
}

func (a *Agent) ConfigureCamera(width, height int, grayscale bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera.Width = width
	a.camera.Height = height
	a.camera.Grayscale = grayscale
}

func (a *Agent) SetCameraEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera.Enabled = enabled
}

func (a *Agent) ConfigureRays(raysPerDirection, maxRayDegrees int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rays.RaysPerDirection = raysPerDirection
	a.rays.MaxRayDegrees = maxRayDegrees
}

func (a *Agent) SetRaysEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rays.Enabled = enabled
}

func (a *Agent) SetBehavior(b BehaviorType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.behavior = b
}

func (a *Agent) Camera() CameraSensor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

func (a *Agent) Rays() RaySensor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rays
}

func (a *Agent) Behavior() BehaviorType {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.behavior
}

var _ Sensors = (*Agent)(nil)
