package world

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/boristopalov/arenas/pkg/agent"
)

// Template is an authored prefab. Offset is relative to the parent and
// Extents is the half-size of the template's own box.
type Template struct {
	Name     string
	Offset   mgl64.Vec3
	Extents  mgl64.Vec3
	Children []*Template
	// Agent is set on children that carry sensors.
	Agent *agent.Agent
}

// bounds returns the min and max corners of t and its children relative to
// t's parent.
func (t *Template) bounds() (mgl64.Vec3, mgl64.Vec3) {
	lo := t.Offset.Sub(t.Extents)
	hi := t.Offset.Add(t.Extents)
	for _, c := range t.Children {
		clo, chi := c.bounds()
		clo, chi = clo.Add(t.Offset), chi.Add(t.Offset)
		for i := 0; i < 3; i++ {
			lo[i] = math.Min(lo[i], clo[i])
			hi[i] = math.Max(hi[i], chi[i])
		}
	}
	return lo, hi
}

func (t *Template) child(path string) (*Template, bool) {
	cur := t
	for _, name := range strings.Split(path, "/") {
		var next *Template
		for _, c := range cur.Children {
			if c.Name == name {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Body is an entity in a Scene.
type Body struct {
	scene    *Scene
	id       string
	template string
	position mgl64.Vec3
	size     mgl64.Vec3
	parent   string
	enabled  bool
	physics  bool
	colours  map[string]Colour
}

func (b *Body) ID() string       { return b.id }
func (b *Body) Template() string { return b.template }

func (b *Body) Position() mgl64.Vec3 {
	b.scene.mu.RLock()
	defer b.scene.mu.RUnlock()
	return b.position
}

func (b *Body) Size() mgl64.Vec3 {
	b.scene.mu.RLock()
	defer b.scene.mu.RUnlock()
	return b.size
}

func (b *Body) Parent() string {
	b.scene.mu.RLock()
	defer b.scene.mu.RUnlock()
	return b.parent
}

func (b *Body) Enabled() bool {
	b.scene.mu.RLock()
	defer b.scene.mu.RUnlock()
	return b.enabled
}

// Physics reports whether gravity is on and kinematic mode off.
func (b *Body) Physics() bool {
	b.scene.mu.RLock()
	defer b.scene.mu.RUnlock()
	return b.physics
}

func (b *Body) Colour(property string) (Colour, bool) {
	b.scene.mu.RLock()
	defer b.scene.mu.RUnlock()
	c, ok := b.colours[property]
	return c, ok
}

func (b *Body) SetParent(parentID string) {
	b.scene.mu.Lock()
	defer b.scene.mu.Unlock()
	b.parent = parentID
}

func (b *Body) SetEnabled(enabled bool) {
	b.scene.mu.Lock()
	defer b.scene.mu.Unlock()
	b.enabled = enabled
}

func (b *Body) SetSize(size mgl64.Vec3) {
	b.scene.mu.Lock()
	defer b.scene.mu.Unlock()
	b.size = size
}

func (b *Body) SetPhysics(enabled bool) {
	b.scene.mu.Lock()
	defer b.scene.mu.Unlock()
	b.physics = enabled
}

func (b *Body) SetColour(property string, c Colour) {
	b.scene.mu.Lock()
	defer b.scene.mu.Unlock()
	if b.colours == nil {
		b.colours = make(map[string]Colour)
	}
	b.colours[property] = c
}

// Scene is an in-memory Stage.
type Scene struct {
	mu        sync.RWMutex
	templates map[string]*Template
	bodies    map[string]*Body
	order     []string
	tagged    map[string]*Tagged
}

// Tagged is a named scene object such as the observer camera.
type Tagged struct {
	Position mgl64.Vec3
	Active   bool
}

func NewScene() *Scene {
	return &Scene{
		templates: make(map[string]*Template),
		bodies:    make(map[string]*Body),
		tagged:    make(map[string]*Tagged),
	}
}

// Register adds or replaces a template.
func (s *Scene) Register(t *Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.Name] = t
}

// Tag adds a tagged object.
func (s *Scene) Tag(tag string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagged[tag] = &Tagged{Active: active}
}

func (s *Scene) Tagged(tag string) (Tagged, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tagged[tag]
	if !ok {
		return Tagged{}, false
	}
	return *t, true
}

func (s *Scene) template(name string) (*Template, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return t, nil
}

func (s *Scene) Instantiate(template string, pos mgl64.Vec3) (Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.template(template); err != nil {
		return nil, err
	}
	b := &Body{
		scene:    s,
		id:       uuid.New().String(),
		template: template,
		position: pos,
		size:     mgl64.Vec3{1, 1, 1},
		enabled:  true,
		physics:  true,
	}
	s.bodies[b.id] = b
	s.order = append(s.order, b.id)
	return b, nil
}

func (s *Scene) Destroy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bodies[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	doomed := map[string]bool{id: true}
	// parents precede children in creation order
	for _, bid := range s.order {
		if b := s.bodies[bid]; b != nil && doomed[b.parent] {
			doomed[bid] = true
		}
	}
	kept := s.order[:0]
	for _, bid := range s.order {
		if doomed[bid] {
			delete(s.bodies, bid)
			continue
		}
		kept = append(kept, bid)
	}
	s.order = kept
	return nil
}

// Entity looks up a live body.
func (s *Scene) Entity(id string) (*Body, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bodies[id]
	return b, ok
}

// Entities returns live bodies of template in creation order; an empty
// template matches all.
func (s *Scene) Entities(template string) []*Body {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Body
	for _, id := range s.order {
		b := s.bodies[id]
		if template == "" || b.template == template {
			out = append(out, b)
		}
	}
	return out
}

// Children returns live bodies parented to id.
func (s *Scene) Children(id string) []*Body {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Body
	for _, bid := range s.order {
		if b := s.bodies[bid]; b.parent == id {
			out = append(out, b)
		}
	}
	return out
}

func (s *Scene) Extents(template string) (mgl64.Vec3, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.template(template)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	// measure from the template's own origin
	lo, hi := t.bounds()
	lo, hi = lo.Sub(t.Offset), hi.Sub(t.Offset)
	var ext mgl64.Vec3
	for i := 0; i < 3; i++ {
		ext[i] = math.Max(math.Abs(lo[i]), math.Abs(hi[i]))
	}
	return ext, nil
}

func (s *Scene) HasChild(template, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[template]
	if !ok {
		return false
	}
	_, ok = t.child(path)
	return ok
}

func (s *Scene) Sensors(template, path string) (agent.Sensors, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.template(template)
	if err != nil {
		return nil, err
	}
	c, ok := t.child(path)
	if !ok || c.Agent == nil {
		return nil, fmt.Errorf("%w: sensors at %s/%s", ErrNotFound, template, path)
	}
	return c.Agent, nil
}

func (s *Scene) MoveObserver(tag string, pos mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tagged[tag]
	if !ok {
		return fmt.Errorf("%w: tag %s", ErrNotFound, tag)
	}
	t.Position = pos
	return nil
}

func (s *Scene) SetActive(tag string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tagged[tag]
	if !ok {
		return fmt.Errorf("%w: tag %s", ErrNotFound, tag)
	}
	t.Active = active
	return nil
}

var _ Stage = (*Scene)(nil)
