package sketch

import (
	"math"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"
	"cad-service/internal/common/logging"

	"gonum.org/v1/gonum/spatial/r2"
)

// ============================================================
// Element Creation
// ============================================================

func finite(ps ...r2.Vec) bool {
	for _, p := range ps {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}

// AddLine добавляет отрезок. Координаты сохраняются без изменений.
func (s *Sketch) AddLine(start, end r2.Vec) (string, error) {
	if !finite(start, end) {
		return "", domain.Degenerate("line coordinates are not finite")
	}
	if geom.SamePoint(start, end, geom.Epsilon) {
		return "", domain.Degenerate("line has zero length")
	}
	t := s.begin()
	id := t.newID(Line)
	t.add(&Element{ID: id, Type: Line, Start: start, End: end})
	if err := t.commit(); err != nil {
		return "", err
	}
	logging.Logf("[SKETCH] %s: line %s (%.3f,%.3f)-(%.3f,%.3f)", s.ID, id, start.X, start.Y, end.X, end.Y)
	return id, nil
}

// AddCircle добавляет окружность.
func (s *Sketch) AddCircle(center r2.Vec, radius float64) (string, error) {
	if !finite(center) || !(radius > geom.Epsilon) || math.IsInf(radius, 0) {
		return "", domain.Degenerate("circle radius must be positive, got %g", radius)
	}
	t := s.begin()
	id := t.newID(Circle)
	t.add(&Element{ID: id, Type: Circle, Center: center, Radius: radius})
	if err := t.commit(); err != nil {
		return "", err
	}
	logging.Logf("[SKETCH] %s: circle %s r=%.3f", s.ID, id, radius)
	return id, nil
}

// AddArcThreePoints строит дугу через три точки, направление задаёт средняя.
func (s *Sketch) AddArcThreePoints(start, mid, end r2.Vec) (string, error) {
	if !finite(start, mid, end) {
		return "", domain.Degenerate("arc coordinates are not finite")
	}
	center, ok := geom.Circumcenter(start, mid, end)
	if !ok || geom.SamePoint(start, end, geom.Epsilon) {
		return "", domain.Degenerate("arc points are collinear")
	}
	cw := r2.Cross(r2.Sub(mid, start), r2.Sub(end, mid)) < 0
	return s.addArc(center, geom.Dist(start, center), start, end, cw)
}

// AddArcEndpoints строит дугу против часовой стрелки от start к end.
// largeArc выбирает дугу больше полуокружности.
func (s *Sketch) AddArcEndpoints(start, end r2.Vec, radius float64, largeArc bool) (string, error) {
	if !finite(start, end) {
		return "", domain.Degenerate("arc coordinates are not finite")
	}
	center, ok := geom.ArcCenter(start, end, radius, largeArc)
	if !ok {
		return "", domain.Degenerate("no arc of radius %g through the given endpoints", radius)
	}
	return s.addArc(center, radius, start, end, false)
}

// AddArcCenter строит дугу по центру и концам.
func (s *Sketch) AddArcCenter(center, start, end r2.Vec, clockwise bool) (string, error) {
	if !finite(center, start, end) {
		return "", domain.Degenerate("arc coordinates are not finite")
	}
	r1, r2n := geom.Dist(start, center), geom.Dist(end, center)
	if r1 <= geom.Epsilon || math.Abs(r1-r2n) > 1e-6*math.Max(1, r1) {
		return "", domain.Degenerate("arc endpoints are not equidistant from the center")
	}
	if geom.SamePoint(start, end, geom.Epsilon) {
		return "", domain.Degenerate("arc endpoints coincide")
	}
	return s.addArc(center, r1, start, end, clockwise)
}

func (s *Sketch) addArc(center r2.Vec, radius float64, start, end r2.Vec, cw bool) (string, error) {
	t := s.begin()
	id := t.newID(Arc)
	t.add(&Element{ID: id, Type: Arc, Center: center, Radius: radius, Start: start, End: end, Clockwise: cw})
	if err := t.commit(); err != nil {
		return "", err
	}
	logging.Logf("[SKETCH] %s: arc %s r=%.3f", s.ID, id, radius)
	return id, nil
}

// AddRectangle создаёт контейнер и четыре дочерние линии:
// низ, право, верх, лево (обход против часовой стрелки).
func (s *Sketch) AddRectangle(corner r2.Vec, width, height float64) (string, error) {
	if !finite(corner) || !(width > geom.Epsilon) || !(height > geom.Epsilon) {
		return "", domain.Degenerate("rectangle needs positive width and height, got %gx%g", width, height)
	}
	p1 := corner
	p2 := r2.Vec{X: corner.X + width, Y: corner.Y}
	p3 := r2.Vec{X: corner.X + width, Y: corner.Y + height}
	p4 := r2.Vec{X: corner.X, Y: corner.Y + height}

	t := s.begin()
	rect := &Element{ID: t.newID(Rectangle), Type: Rectangle, Corner: corner, Width: width, Height: height}
	t.add(rect)
	addOutline(t, rect, []r2.Vec{p1, p2, p3, p4})
	if err := t.commit(); err != nil {
		return "", err
	}
	logging.Logf("[SKETCH] %s: rectangle %s %.3fx%.3f, children %v", s.ID, rect.ID, width, height, rect.Children)
	return rect.ID, nil
}

// AddPolygon создаёт правильный многоугольник; вершина k лежит под углом 2πk/sides.
func (s *Sketch) AddPolygon(center r2.Vec, sides int, radius float64) (string, error) {
	if sides < 3 {
		return "", domain.Degenerate("polygon needs at least 3 sides, got %d", sides)
	}
	if !finite(center) || !(radius > geom.Epsilon) {
		return "", domain.Degenerate("polygon radius must be positive, got %g", radius)
	}
	t := s.begin()
	poly := &Element{ID: t.newID(Polygon), Type: Polygon, Center: center, Radius: radius, Sides: sides}
	t.add(poly)
	addOutline(t, poly, polygonVertices(center, sides, radius, 0))
	if err := t.commit(); err != nil {
		return "", err
	}
	logging.Logf("[SKETCH] %s: polygon %s sides=%d r=%.3f", s.ID, poly.ID, sides, radius)
	return poly.ID, nil
}

func polygonVertices(center r2.Vec, sides int, radius, phase float64) []r2.Vec {
	vs := make([]r2.Vec, sides)
	for k := range vs {
		vs[k] = geom.Polar(center, radius, phase+2*math.Pi*float64(k)/float64(sides))
	}
	return vs
}

// addOutline создаёт замкнутую цепочку дочерних линий контейнера.
func addOutline(t *tx, parent *Element, vs []r2.Vec) {
	for i, v := range vs {
		line := &Element{ID: t.newID(Line), Type: Line, Start: v, End: vs[(i+1)%len(vs)], ParentID: parent.ID}
		parent.Children = append(parent.Children, line.ID)
		t.add(line)
	}
}
