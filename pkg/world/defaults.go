package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/boristopalov/arenas/pkg/agent"
)

const (
	ArenaTemplate   = "TrainingArena"
	AgentPath       = "AAI3Agent/Agent"
	SpawnerTemplate = "GoalSpawner"

	ObserverTag = "MainCamera"
	ScoreTag    = "score"
	ControlsTag = "playerControls"
)

// GoalTemplates are the goal prefabs registered by DefaultScene.
var GoalTemplates = []string{"GoodGoal", "GoodGoalMulti", "BadGoal", "GoodGoalBounce"}

// DefaultScene builds a scene with a 40x40 training arena, a goal spawner
// tree, the goal prefabs and the tagged objects the environment expects.
func DefaultScene() *Scene {
	s := NewScene()
	s.Register(&Template{
		Name:    ArenaTemplate,
		Extents: mgl64.Vec3{20, 0.5, 20},
		Children: []*Template{
			{
				Name:    "Walls",
				Offset:  mgl64.Vec3{0, 2.5, 0},
				Extents: mgl64.Vec3{20.5, 2.5, 20.5},
			},
			{
				Name:   "AAI3Agent",
				Offset: mgl64.Vec3{0, 1, 0},
				Children: []*Template{
					{Name: "Agent", Extents: mgl64.Vec3{0.5, 0.5, 0.5}, Agent: agent.NewAgent()},
				},
			},
		},
	})
	s.Register(&Template{Name: SpawnerTemplate, Offset: mgl64.Vec3{0, 2.5, 0}, Extents: mgl64.Vec3{1.5, 2.5, 1.5}})
	for _, name := range GoalTemplates {
		s.Register(&Template{Name: name, Extents: mgl64.Vec3{0.5, 0.5, 0.5}})
	}
	s.Tag(ObserverTag, true)
	s.Tag(ScoreTag, false)
	s.Tag(ControlsTag, false)
	return s
}
