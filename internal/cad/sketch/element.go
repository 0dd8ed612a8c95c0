package sketch

import (
	"math"
	"slices"
	"strings"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"

	"gonum.org/v1/gonum/spatial/r2"
)

// ============================================================
// Element Types
// ============================================================

type Type string

const (
	Line      Type = "line"
	Circle    Type = "circle"
	Arc       Type = "arc"
	Rectangle Type = "rectangle"
	Polygon   Type = "polygon"
	Fillet    Type = "fillet"
	Chamfer   Type = "chamfer"
)

// ParseType разбирает имя типа элемента без учёта регистра.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case Line, Circle, Arc, Rectangle, Polygon, Fillet, Chamfer:
		return t, nil
	}
	return "", domain.Degenerate("unknown element type %q", s)
}

// ============================================================
// Element
// ============================================================

// Element: 2D-примитив эскиза в локальных координатах плоскости.
//
// Rectangle и Polygon являются контейнерами: собственной геометрии у них нет, рёбра
// хранятся отдельными Line с ParentID. Corner/Center/Width/Height/Radius/Angle
// контейнера: опорные параметры для отображения.
// Fillet и Chamfer хранят в Refs id двух соединяемых линий.
type Element struct {
	ID   string
	Type Type

	Start r2.Vec
	End   r2.Vec

	Center    r2.Vec
	Radius    float64
	Clockwise bool

	Corner r2.Vec
	Width  float64
	Height float64
	Sides  int
	Angle  float64

	ParentID string
	Children []string
	Refs     []string
}

// IsComposite: контейнер с дочерними линиями.
func (e Element) IsComposite() bool {
	return e.Type == Rectangle || e.Type == Polygon
}

// IsLinear: отрезок (линия или фаска).
func (e Element) IsLinear() bool {
	return e.Type == Line || e.Type == Chamfer
}

// IsArc: дуга окружности (дуга или скругление).
func (e Element) IsArc() bool {
	return e.Type == Arc || e.Type == Fillet
}

// Length: длина отрезка, для остальных типов 0.
func (e Element) Length() float64 {
	if !e.IsLinear() {
		return 0
	}
	return geom.Dist(e.Start, e.End)
}

// ArcAngles возвращает начальный угол и знаковый угол дуги (против часовой > 0).
func (e Element) ArcAngles() (start, sweep float64) {
	start = geom.Angle(r2.Sub(e.Start, e.Center))
	end := geom.Angle(r2.Sub(e.End, e.Center))
	if e.Clockwise {
		return start, -geom.CCWSweep(end, start)
	}
	return start, geom.CCWSweep(start, end)
}

// OnArc проверяет, что точка окружности лежит в пределах дуги.
func (e Element) OnArc(p r2.Vec) bool {
	start, sweep := e.ArcAngles()
	a := geom.Angle(r2.Sub(p, e.Center))
	if sweep < 0 {
		return geom.CCWSweep(a, start) <= -sweep+1e-9 || geom.SamePoint(p, e.Start, 1e-9)
	}
	return geom.CCWSweep(start, a) <= sweep+1e-9 || geom.SamePoint(p, e.Start, 1e-9)
}

func (e *Element) clone() *Element {
	c := *e
	c.Children = slices.Clone(e.Children)
	c.Refs = slices.Clone(e.Refs)
	return &c
}

// Params: плоские параметры для визуализации (parameters_2d).
func (e Element) Params() map[string]float64 {
	switch e.Type {
	case Line, Chamfer:
		return map[string]float64{
			"start_x": e.Start.X, "start_y": e.Start.Y,
			"end_x": e.End.X, "end_y": e.End.Y,
			"length": e.Length(),
		}
	case Circle:
		return map[string]float64{"center_x": e.Center.X, "center_y": e.Center.Y, "radius": e.Radius}
	case Arc, Fillet:
		start, sweep := e.ArcAngles()
		return map[string]float64{
			"center_x": e.Center.X, "center_y": e.Center.Y, "radius": e.Radius,
			"start_x": e.Start.X, "start_y": e.Start.Y,
			"end_x": e.End.X, "end_y": e.End.Y,
			"start_angle": start, "sweep_angle": sweep,
		}
	case Rectangle:
		return map[string]float64{
			"corner_x": e.Corner.X, "corner_y": e.Corner.Y,
			"width": e.Width, "height": e.Height, "angle": e.Angle,
		}
	case Polygon:
		return map[string]float64{
			"center_x": e.Center.X, "center_y": e.Center.Y, "radius": e.Radius,
			"sides": float64(e.Sides), "angle": e.Angle,
		}
	}
	return map[string]float64{}
}

// ============================================================
// Rigid transforms
// ============================================================

// mapPoints применяет f ко всем точкам элемента. Для контейнера двигается
// только опорная точка, дочерние линии обрабатываются отдельно.
func (e *Element) mapPoints(f func(r2.Vec) r2.Vec) {
	e.Start = f(e.Start)
	e.End = f(e.End)
	e.Center = f(e.Center)
	e.Corner = f(e.Corner)
}

func (e *Element) translate(d r2.Vec) {
	e.mapPoints(func(p r2.Vec) r2.Vec { return r2.Add(p, d) })
}

func (e *Element) rotate(center r2.Vec, angle float64) {
	e.mapPoints(func(p r2.Vec) r2.Vec { return geom.Rotate(p, center, angle) })
	if e.IsComposite() {
		e.Angle = normalizeAngle(e.Angle + angle)
	}
}

// reflect отражает элемент относительно прямой (a, b). Отражение меняет
// направление обхода дуг.
func (e *Element) reflect(a, b r2.Vec) {
	e.mapPoints(func(p r2.Vec) r2.Vec { return geom.Reflect(p, a, b) })
	if e.IsArc() {
		e.Clockwise = !e.Clockwise
	}
	if e.IsComposite() {
		e.Angle = normalizeAngle(2*geom.Angle(r2.Sub(b, a)) - e.Angle)
	}
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
