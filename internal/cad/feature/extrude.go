package feature

import (
	"fmt"
	"math"
	"strings"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"
	"cad-service/internal/cad/kernel"
	"cad-service/internal/cad/plane"
	"cad-service/internal/cad/sketch"
	"cad-service/internal/common/logging"

	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Extrude Feature
// ============================================================

// Type: способ задания глубины выдавливания.
type Type string

const (
	Blind      Type = "blind"
	Symmetric  Type = "symmetric"
	ThroughAll Type = "through_all"
	ToSurface  Type = "to_surface"
)

// ParseType принимает имена в любом регистре, дефис равен подчёркиванию.
func ParseType(s string) (Type, error) {
	if s == "" {
		return Blind, nil
	}
	t := Type(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch t {
	case Blind, Symmetric, ThroughAll, ToSurface:
		return t, nil
	}
	return "", domain.Unsupported("extrude type %q", s)
}

// Params: параметры выдавливания. Direction == nil означает нормаль плоскости.
type Params struct {
	Type          Type
	Distance      float64
	Distance2     float64
	Direction     *r3.Vec
	Reverse       bool
	TaperAngle    float64
	TargetShapeID string
}

// ShapeLookup: доступ к уже зарегистрированным телам сессии.
type ShapeLookup interface {
	Solid(id string) (*kernel.Solid, bool)
	SolidIDs() []string
}

// Source: эскиз и его плоскость.
type Source struct {
	Sketch *sketch.Sketch
	Plane  *plane.Plane
}

// Extrude: операция выдавливания грани эскиза (целиком или одного элемента).
type Extrude struct {
	ID            string
	SketchID      string
	ElementID     string
	Params        Params
	ResultShapeID string
	Valid         bool
}

// New создаёт ещё не выполненную операцию.
func New(id, sketchID, elementID string, p Params) *Extrude {
	if p.Type == "" {
		p.Type = Blind
	}
	return &Extrude{ID: id, SketchID: sketchID, ElementID: elementID, Params: p}
}

// sweep: начальный сдвиг профиля и вектор протяжки.
type sweep struct {
	profile sketch.Profile
	start   r3.Vec
	vec     r3.Vec
}

// Validate проверяет, что выдавливание можно построить, ничего не строя.
func (f *Extrude) Validate(src Source, shapes ShapeLookup, deflection float64) error {
	_, err := f.plan(src, shapes, deflection)
	return err
}

// CanExtrude: то же, что Validate, в виде флага.
func (f *Extrude) CanExtrude(src Source, shapes ShapeLookup, deflection float64) bool {
	return f.Validate(src, shapes, deflection) == nil
}

// Execute строит тело. Отверстия профиля вычитаются, несколько областей
// объединяются. Результат проходит kernel.Check; при неудаче операция
// помечается невалидной.
func (f *Extrude) Execute(src Source, shapes ShapeLookup, deflection float64) (*kernel.Solid, error) {
	f.Valid = false
	sw, err := f.plan(src, shapes, deflection)
	if err != nil {
		logging.Logf("[EXTRUDE] %s rejected: %v", f.SketchID, err)
		return nil, err
	}

	var result *kernel.Solid
	for i, region := range sw.profile.Regions {
		body, err := kernel.Prism(edges(region.Outer, src.Plane, sw.start), src.Plane.Normal, sw.vec)
		if err != nil {
			return nil, err
		}
		for _, hole := range region.Holes {
			cut, err := kernel.Prism(edges(hole, src.Plane, sw.start), src.Plane.Normal, sw.vec)
			if err != nil {
				return nil, err
			}
			body = kernel.Subtract(body, cut, deflection)
		}
		if i == 0 {
			result = body
		} else {
			result = kernel.Union(result, body, deflection)
		}
	}

	if err := kernel.Check(result, deflection); err != nil {
		logging.Logf("[EXTRUDE] %s produced an invalid solid: %v", f.SketchID, err)
		return nil, err
	}
	f.Valid = true
	logging.Logf("[EXTRUDE] %s: %d region(s), %s, sweep %.6g", f.SketchID, len(sw.profile.Regions), f.Params.Type, r3.Norm(sw.vec))
	return result, nil
}

func (f *Extrude) plan(src Source, shapes ShapeLookup, deflection float64) (sweep, error) {
	if src.Sketch == nil || src.Plane == nil {
		return sweep{}, domain.NotFound("sketch", f.SketchID)
	}
	p := f.Params
	if p.TaperAngle != 0 {
		return sweep{}, domain.Unsupported("taper angle %g", p.TaperAngle)
	}

	var profile sketch.Profile
	var err error
	if f.ElementID != "" {
		profile, err = src.Sketch.FaceFromElement(f.ElementID)
	} else {
		profile, err = src.Sketch.Face()
	}
	if err != nil {
		return sweep{}, err
	}

	dir := src.Plane.Normal
	if p.Direction != nil {
		d, ok := geom.Unit3(*p.Direction)
		if !ok || !geom.Finite3(*p.Direction) {
			return sweep{}, domain.Degenerate("extrude direction has zero length")
		}
		dir = d
	}
	if p.Reverse {
		dir = r3.Scale(-1, dir)
	}
	along := r3.Dot(dir, src.Plane.Normal)
	if math.Abs(along) <= 1e-9 {
		return sweep{}, domain.Degenerate("extrude direction is parallel to plane %s", src.Plane.ID)
	}

	sw := sweep{profile: profile}
	switch p.Type {
	case Blind:
		if !(p.Distance > geom.Epsilon) {
			return sweep{}, domain.Degenerate("blind extrude needs a positive distance, got %g", p.Distance)
		}
		sw.vec = r3.Scale(p.Distance, dir)
	case Symmetric:
		if !(p.Distance > geom.Epsilon) || !(p.Distance2 > geom.Epsilon) {
			return sweep{}, domain.Degenerate("symmetric extrude needs two positive distances, got %g and %g", p.Distance, p.Distance2)
		}
		sw.start = r3.Scale(-p.Distance2, dir)
		sw.vec = r3.Sub(r3.Scale(p.Distance, dir), sw.start)
	case ThroughAll:
		var far float64
		for _, id := range shapes.SolidIDs() {
			s, _ := shapes.Solid(id)
			if d, ok := reach(s, src.Plane, dir, along, deflection, false); ok {
				far = math.Max(far, d)
			}
		}
		if far <= geom.Epsilon {
			return sweep{}, domain.Degenerate("no shape ahead of plane %s", src.Plane.ID)
		}
		sw.vec = r3.Scale(far+math.Max(1e-3, far*0.01), dir)
	case ToSurface:
		target, ok := shapes.Solid(p.TargetShapeID)
		if !ok {
			return sweep{}, domain.NotFound("shape", p.TargetShapeID)
		}
		near, ok := reach(target, src.Plane, dir, along, deflection, true)
		if !ok {
			return sweep{}, domain.Degenerate("shape %q is not ahead of plane %s", p.TargetShapeID, src.Plane.ID)
		}
		sw.vec = r3.Scale(near, dir)
	default:
		return sweep{}, domain.Unsupported("extrude type %q", p.Type)
	}
	return sw, nil
}

// reach: длина протяжки вдоль dir, при которой плоскость эскиза доходит до
// дальней (nearest == false) или ближней вершины тела впереди плоскости.
func reach(s *kernel.Solid, pl *plane.Plane, dir r3.Vec, along, deflection float64, nearest bool) (float64, bool) {
	if s == nil {
		return 0, false
	}
	best, found := 0.0, false
	for _, v := range kernel.Vertices(s, deflection) {
		t := pl.Distance(v) / along
		if t <= geom.Epsilon {
			continue
		}
		if !found || (nearest && t < best) || (!nearest && t > best) {
			best, found = t, true
		}
	}
	return best, found
}

// edges переводит контур эскиза в рёбра ядра в мировых координатах.
func edges(l sketch.Loop, pl *plane.Plane, offset r3.Vec) []kernel.Edge {
	out := make([]kernel.Edge, 0, len(l.Segments))
	for _, g := range l.Segments {
		var e kernel.Edge
		if g.Arc {
			e = kernel.ArcEdge{
				Center: pl.To3D(g.Center),
				U:      pl.U,
				V:      pl.V,
				Radius: g.Radius,
				Start:  g.StartAngle,
				Sweep:  g.Sweep,
				From:   pl.To3D(g.Start),
				To:     pl.To3D(g.End),
			}
		} else {
			e = kernel.LineEdge{A: pl.To3D(g.Start), B: pl.To3D(g.End)}
		}
		out = append(out, e.Translate(offset))
	}
	return out
}

func (f *Extrude) String() string {
	return fmt.Sprintf("%s(%s/%s %s)", f.ID, f.SketchID, f.ElementID, f.Params.Type)
}
