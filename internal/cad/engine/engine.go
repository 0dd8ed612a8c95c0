package engine

import (
	"fmt"
	"slices"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/feature"
	"cad-service/internal/cad/kernel"
	"cad-service/internal/cad/plane"
	"cad-service/internal/cad/sketch"
	"cad-service/internal/common/logging"
)

// ============================================================
// Engine
// ============================================================

// Options: настройки движка одной сессии.
type Options struct {
	BooleanDeflection float64
	DefaultQuality    float64
	DisplaySize       float64
}

// DefaultOptions: значения по умолчанию.
func DefaultOptions() Options {
	return Options{
		BooleanDeflection: kernel.DefaultDeflection,
		DefaultQuality:    kernel.DefaultDeflection,
		DisplaySize:       100,
	}
}

// Shape: зарегистрированное тело. Тело после регистрации не меняется.
type Shape struct {
	ID     string
	Solid  *kernel.Solid
	Valid  bool
	Source string
}

// Engine хранит плоскости, эскизы, тела и операции одной сессии.
// Собственной синхронизации нет: вызывающий слой сериализует вызовы.
type Engine struct {
	opts Options

	planes   map[string]*plane.Plane
	sketches map[string]*sketch.Sketch
	shapes   map[string]*Shape
	features map[string]*feature.Extrude

	planeOrder   []string
	sketchOrder  []string
	shapeOrder   []string
	featureOrder []string

	seq map[string]int
}

// New создаёт пустой движок. Нулевые поля opts заменяются значениями по умолчанию.
func New(opts Options) *Engine {
	def := DefaultOptions()
	if !(opts.BooleanDeflection > 0) {
		opts.BooleanDeflection = def.BooleanDeflection
	}
	if !(opts.DefaultQuality > 0) {
		opts.DefaultQuality = def.DefaultQuality
	}
	if !(opts.DisplaySize > 0) {
		opts.DisplaySize = def.DisplaySize
	}
	e := &Engine{opts: opts}
	e.reset()
	return e
}

func (e *Engine) reset() {
	e.planes = make(map[string]*plane.Plane)
	e.sketches = make(map[string]*sketch.Sketch)
	e.shapes = make(map[string]*Shape)
	e.features = make(map[string]*feature.Extrude)
	e.planeOrder, e.sketchOrder, e.shapeOrder, e.featureOrder = nil, nil, nil, nil
	e.seq = make(map[string]int)
}

func (e *Engine) Options() Options {
	return e.opts
}

// Clear удаляет всё содержимое сессии и сбрасывает счётчики id.
func (e *Engine) Clear() {
	logging.Logf("[ENGINE] clear: %d plane(s), %d sketch(es), %d shape(s)", len(e.planes), len(e.sketches), len(e.shapes))
	e.reset()
}

// nextID выдаёт следующий свободный id вида prefix_N.
func (e *Engine) nextID(prefix string, taken func(string) bool) string {
	for {
		e.seq[prefix]++
		id := fmt.Sprintf("%s_%d", prefix, e.seq[prefix])
		if !taken(id) {
			return id
		}
	}
}

func (e *Engine) hasShape(id string) bool {
	_, ok := e.shapes[id]
	return ok
}

func (e *Engine) registerShape(s *Shape) {
	if _, ok := e.shapes[s.ID]; !ok {
		e.shapeOrder = append(e.shapeOrder, s.ID)
	}
	e.shapes[s.ID] = s
}

// ============================================================
// Lookups
// ============================================================

// Plane возвращает плоскость по id.
func (e *Engine) Plane(id string) (*plane.Plane, error) {
	p, ok := e.planes[id]
	if !ok {
		return nil, domain.NotFound("plane", id)
	}
	return p, nil
}

// Sketch возвращает эскиз вместе с его плоскостью.
func (e *Engine) Sketch(id string) (*sketch.Sketch, *plane.Plane, error) {
	s, ok := e.sketches[id]
	if !ok {
		return nil, nil, domain.NotFound("sketch", id)
	}
	p, err := e.Plane(s.PlaneID)
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}

// Shape возвращает зарегистрированное тело.
func (e *Engine) Shape(id string) (*Shape, error) {
	s, ok := e.shapes[id]
	if !ok {
		return nil, domain.NotFound("shape", id)
	}
	return s, nil
}

// Feature возвращает операцию выдавливания.
func (e *Engine) Feature(id string) (*feature.Extrude, error) {
	f, ok := e.features[id]
	if !ok {
		return nil, domain.NotFound("feature", id)
	}
	return f, nil
}

func (e *Engine) PlaneIDs() []string   { return slices.Clone(e.planeOrder) }
func (e *Engine) SketchIDs() []string  { return slices.Clone(e.sketchOrder) }
func (e *Engine) ShapeIDs() []string   { return slices.Clone(e.shapeOrder) }
func (e *Engine) FeatureIDs() []string { return slices.Clone(e.featureOrder) }

// solids открывает тела движка для feature.ShapeLookup.
type solids struct{ e *Engine }

func (s solids) Solid(id string) (*kernel.Solid, bool) {
	sh, ok := s.e.shapes[id]
	if !ok {
		return nil, false
	}
	return sh.Solid, true
}

func (s solids) SolidIDs() []string { return s.e.ShapeIDs() }
