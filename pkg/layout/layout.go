// Package layout arranges N copies of an arena template on a grid and places
// an overhead observer above the whole set.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"github.com/boristopalov/arenas/pkg/world"
)

const (
	// Margin is the gap between neighbouring arenas.
	Margin = 5.0
	// ObserverHeightPerColumn scales the observer height with the grid size.
	ObserverHeightPerColumn = 50.0
)

var (
	ErrInvalidCount     = errors.New("arena count must be at least 1")
	ErrMissingStructure = errors.New("arena template is missing required structure")
)

type Placement struct {
	ID       int
	Column   int
	Row      int
	Position mgl64.Vec3
}

// Plan is a computed grid.
type Plan struct {
	Columns    int
	Rows       int
	CellWidth  float64
	CellDepth  float64
	Placements []Placement
	Observer   mgl64.Vec3
}

// NewPlan lays out count arenas whose half-size is extents.
func NewPlan(extents mgl64.Vec3, count int) (Plan, error) {
	if count < 1 {
		return Plan{}, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}
	columns := int(math.Round(math.Sqrt(float64(count))))
	rows := (count + columns - 1) / columns

	p := Plan{
		Columns:    columns,
		Rows:       rows,
		CellWidth:  2*extents.X() + Margin,
		CellDepth:  2*extents.Z() + Margin,
		Placements: make([]Placement, count),
	}
	for i := range p.Placements {
		col, row := i%columns, i/columns
		p.Placements[i] = Placement{
			ID:       i,
			Column:   col,
			Row:      row,
			Position: mgl64.Vec3{float64(col) * p.CellWidth, 0, float64(row) * p.CellDepth},
		}
	}
	p.Observer = mgl64.Vec3{
		float64(columns) * p.CellWidth / 2,
		ObserverHeightPerColumn * float64(max(columns, rows)),
		float64(rows) * p.CellDepth / 2,
	}
	return p, nil
}

// Engine instantiates planned arenas on a stage.
type Engine struct {
	stage    world.Stage
	required []string
	observer string
	log      zerolog.Logger
}

type Option func(*Engine)

// WithRequired replaces the child paths every arena template must carry.
func WithRequired(paths ...string) Option {
	return func(e *Engine) {
		e.required = paths
	}
}

func WithObserver(tag string) Option {
	return func(e *Engine) {
		e.observer = tag
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

func NewEngine(stage world.Stage, opts ...Option) *Engine {
	e := &Engine{
		stage:    stage,
		required: []string{world.AgentPath},
		observer: world.ObserverTag,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build checks the template, plans the grid, creates count arenas and moves
// the observer. Arenas are returned in id order.
func (e *Engine) Build(template string, count int) (Plan, []world.Entity, error) {
	for _, path := range e.required {
		if !e.stage.HasChild(template, path) {
			return Plan{}, nil, fmt.Errorf("%w: %s has no %s", ErrMissingStructure, template, path)
		}
	}
	extents, err := e.stage.Extents(template)
	if err != nil {
		return Plan{}, nil, err
	}
	plan, err := NewPlan(extents, count)
	if err != nil {
		return Plan{}, nil, err
	}

	arenas := make([]world.Entity, 0, count)
	for _, p := range plan.Placements {
		a, err := e.stage.Instantiate(template, p.Position)
		if err != nil {
			return Plan{}, nil, fmt.Errorf("instantiate arena %d: %w", p.ID, err)
		}
		arenas = append(arenas, a)
	}
	if err := e.stage.MoveObserver(e.observer, plan.Observer); err != nil {
		return Plan{}, nil, err
	}

	e.log.Info().
		Int("arenas", count).
		Int("columns", plan.Columns).
		Int("rows", plan.Rows).
		Float64("cell_width", plan.CellWidth).
		Float64("cell_depth", plan.CellDepth).
		Msg("arenas laid out")
	return plan, arenas, nil
}
