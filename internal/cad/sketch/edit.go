package sketch

import (
	"math"
	"slices"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"
	"cad-service/internal/common/logging"

	"gonum.org/v1/gonum/spatial/r2"
)

// ============================================================
// Trim / Extend
// ============================================================

func (t *tx) linear(id string) (*Element, error) {
	e, err := t.peek(id)
	if err != nil {
		return nil, err
	}
	if !e.IsLinear() {
		return nil, domain.Degenerate("element %q is a %s, not a line", id, e.Type)
	}
	return e, nil
}

// TrimLineToLine обрезает линию по пересечению с другой линией.
// keepStart оставляет участок от начала до точки пересечения.
func (s *Sketch) TrimLineToLine(trimID, cuttingID string, keepStart bool) error {
	t := s.begin()
	cut, err := t.linear(cuttingID)
	if err != nil {
		return err
	}
	line, err := t.linear(trimID)
	if err != nil {
		return err
	}
	if trimID == cuttingID {
		return domain.Degenerate("cannot trim a line by itself")
	}
	p, ok := geom.LineIntersection(line.Start, line.End, cut.Start, cut.End)
	if !ok {
		return domain.Degenerate("lines %q and %q are parallel", trimID, cuttingID)
	}
	if err := t.trimTo(trimID, p, keepStart); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		return err
	}
	logging.Logf("[SKETCH] %s: trimmed %s at (%.3f,%.3f) by %s", s.ID, trimID, p.X, p.Y, cuttingID)
	return nil
}

// TrimLineToGeometry обрезает линию по ближайшему пересечению с любой кривой
// эскиза: линией, окружностью, дугой или рёбрами контейнера.
func (s *Sketch) TrimLineToGeometry(trimID, geometryID string, keepStart bool) error {
	t := s.begin()
	line, err := t.linear(trimID)
	if err != nil {
		return err
	}
	if trimID == geometryID {
		return domain.Degenerate("cannot trim a line by itself")
	}
	params, err := t.intersections(line, geometryID)
	if err != nil {
		return err
	}
	const eps = 1e-9
	best, found := 0.0, false
	for _, tau := range params {
		if tau <= eps || tau >= 1-eps {
			continue
		}
		if !found || (keepStart && tau > best) || (!keepStart && tau < best) {
			best, found = tau, true
		}
	}
	if !found {
		return domain.Degenerate("line %q does not cross %q", trimID, geometryID)
	}
	p := pointAt(line, best)
	if err := t.trimTo(trimID, p, keepStart); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		return err
	}
	logging.Logf("[SKETCH] %s: trimmed %s at (%.3f,%.3f) by %s", s.ID, trimID, p.X, p.Y, geometryID)
	return nil
}

func (t *tx) trimTo(id string, p r2.Vec, keepStart bool) error {
	line, err := t.get(id)
	if err != nil {
		return err
	}
	if keepStart {
		if geom.SamePoint(line.Start, p, geom.Epsilon) {
			return domain.Degenerate("trim would leave %q with zero length", id)
		}
		line.End = p
		return nil
	}
	if geom.SamePoint(line.End, p, geom.Epsilon) {
		return domain.Degenerate("trim would leave %q with zero length", id)
	}
	line.Start = p
	return nil
}

// ExtendLineToLine продлевает линию до пересечения с целевой.
// Точка пересечения должна лежать за выбранным концом.
func (s *Sketch) ExtendLineToLine(extendID, targetID string, extendStart bool) error {
	t := s.begin()
	target, err := t.linear(targetID)
	if err != nil {
		return err
	}
	line, err := t.linear(extendID)
	if err != nil {
		return err
	}
	if extendID == targetID {
		return domain.Degenerate("cannot extend a line to itself")
	}
	p, ok := geom.LineIntersection(line.Start, line.End, target.Start, target.End)
	if !ok {
		return domain.Degenerate("lines %q and %q are parallel", extendID, targetID)
	}
	if !beyond(line, p, extendStart) {
		return domain.Degenerate("intersection does not lie beyond the %s of %q", endName(extendStart), extendID)
	}
	if err := t.extendTo(extendID, p, extendStart); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		return err
	}
	logging.Logf("[SKETCH] %s: extended %s to (%.3f,%.3f)", s.ID, extendID, p.X, p.Y)
	return nil
}

// ExtendLineToGeometry продлевает линию до ближайшего пересечения с кривой.
func (s *Sketch) ExtendLineToGeometry(extendID, geometryID string, extendStart bool) error {
	t := s.begin()
	line, err := t.linear(extendID)
	if err != nil {
		return err
	}
	if extendID == geometryID {
		return domain.Degenerate("cannot extend a line to itself")
	}
	params, err := t.intersections(line, geometryID)
	if err != nil {
		return err
	}
	const eps = 1e-9
	best, found := 0.0, false
	for _, tau := range params {
		switch {
		case extendStart && tau < -eps:
			if !found || tau > best {
				best, found = tau, true
			}
		case !extendStart && tau > 1+eps:
			if !found || tau < best {
				best, found = tau, true
			}
		}
	}
	if !found {
		return domain.Degenerate("%q is not reachable beyond the %s of %q", geometryID, endName(extendStart), extendID)
	}
	p := pointAt(line, best)
	if err := t.extendTo(extendID, p, extendStart); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		return err
	}
	logging.Logf("[SKETCH] %s: extended %s to (%.3f,%.3f)", s.ID, extendID, p.X, p.Y)
	return nil
}

func (t *tx) extendTo(id string, p r2.Vec, extendStart bool) error {
	line, err := t.get(id)
	if err != nil {
		return err
	}
	if extendStart {
		line.Start = p
	} else {
		line.End = p
	}
	return nil
}

func endName(start bool) string {
	if start {
		return "start"
	}
	return "end"
}

// beyond проверяет, что p лежит на продолжении линии за выбранным концом.
func beyond(line *Element, p r2.Vec, atStart bool) bool {
	d := r2.Sub(line.End, line.Start)
	if atStart {
		return r2.Dot(r2.Sub(p, line.Start), d) < -geom.Epsilon
	}
	return r2.Dot(r2.Sub(p, line.End), d) > geom.Epsilon
}

func pointAt(line *Element, tau float64) r2.Vec {
	return r2.Add(line.Start, r2.Scale(tau, r2.Sub(line.End, line.Start)))
}

// intersections возвращает параметры τ точек line.Start + τ·(End-Start), где
// бесконечная прямая линии пересекает кривую geometryID.
func (t *tx) intersections(line *Element, geometryID string) ([]float64, error) {
	g, err := t.peek(geometryID)
	if err != nil {
		return nil, err
	}
	p, d := line.Start, r2.Sub(line.End, line.Start)
	const tol = 1e-9
	switch {
	case g.IsLinear():
		tau, u, ok := geom.LineParams(p, d, g.Start, r2.Sub(g.End, g.Start))
		if !ok || u < -tol || u > 1+tol {
			return nil, nil
		}
		return []float64{tau}, nil
	case g.Type == Circle:
		return geom.LineCircleParams(p, d, g.Center, g.Radius), nil
	case g.IsArc():
		var out []float64
		for _, tau := range geom.LineCircleParams(p, d, g.Center, g.Radius) {
			if g.OnArc(r2.Add(p, r2.Scale(tau, d))) {
				out = append(out, tau)
			}
		}
		return out, nil
	case g.IsComposite():
		var out []float64
		for _, child := range g.Children {
			if child == line.ID {
				continue
			}
			ps, err := t.intersections(line, child)
			if err != nil {
				return nil, err
			}
			out = append(out, ps...)
		}
		slices.Sort(out)
		return out, nil
	}
	return nil, domain.Degenerate("cannot intersect with %s %q", g.Type, geometryID)
}

// ============================================================
// Fillet / Chamfer
// ============================================================

// corner описывает угол, образованный двумя линиями.
type corner struct {
	at         r2.Vec
	atStart    [2]bool
	dir        [2]r2.Vec
	reach      [2]float64
	halfAngle  float64
	lineLength [2]float64
}

// findCorner требует, чтобы ближние концы обеих линий (почти) совпадали
// с точкой пересечения их продолжений.
func findCorner(l1, l2 *Element) (corner, error) {
	var c corner
	p, ok := geom.LineIntersection(l1.Start, l1.End, l2.Start, l2.End)
	if !ok {
		return c, domain.Degenerate("lines %q and %q are parallel", l1.ID, l2.ID)
	}
	c.at = p
	tol := math.Max(1e-6, 0.05*math.Min(l1.Length(), l2.Length()))
	for i, l := range [2]*Element{l1, l2} {
		ds, de := geom.Dist(l.Start, p), geom.Dist(l.End, p)
		near, far := de, l.Start
		if ds <= de {
			near, far = ds, l.End
			c.atStart[i] = true
		}
		if near > tol {
			return c, domain.Degenerate("lines %q and %q do not share a vertex", l1.ID, l2.ID)
		}
		dir, ok := geom.Unit(r2.Sub(far, p))
		if !ok {
			return c, domain.Degenerate("line %q collapses onto the corner", l.ID)
		}
		c.dir[i] = dir
		c.reach[i] = geom.Dist(far, p)
		c.lineLength[i] = l.Length()
	}
	angle := math.Atan2(math.Abs(r2.Cross(c.dir[0], c.dir[1])), r2.Dot(c.dir[0], c.dir[1]))
	c.halfAngle = angle / 2
	return c, nil
}

// cut переносит угловой конец i-й линии на расстояние dist от вершины.
func (c corner) cut(line *Element, i int, dist float64) r2.Vec {
	q := r2.Add(c.at, r2.Scale(dist, c.dir[i]))
	if c.atStart[i] {
		line.Start = q
	} else {
		line.End = q
	}
	return q
}

// AddFillet скругляет угол между двумя линиями дугой радиуса radius.
// Угловые концы линий переносятся в точки касания. Возвращает
// [id скругления, line1, line2].
func (s *Sketch) AddFillet(line1ID, line2ID string, radius float64) ([]string, error) {
	if !(radius > geom.Epsilon) || math.IsInf(radius, 0) {
		return nil, domain.Degenerate("fillet radius must be positive, got %g", radius)
	}
	t := s.begin()
	l1, l2, c, err := t.cornerLines(line1ID, line2ID)
	if err != nil {
		return nil, err
	}
	if c.halfAngle < 1e-9 || c.halfAngle > math.Pi/2-1e-9 {
		return nil, domain.Degenerate("lines %q and %q are collinear", line1ID, line2ID)
	}
	tangent := radius / math.Tan(c.halfAngle)
	for i := range 2 {
		if tangent >= c.reach[i]-geom.Epsilon {
			return nil, domain.Degenerate("fillet radius %g needs %.6g along each line, line %q is too short",
				radius, tangent, [2]string{line1ID, line2ID}[i])
		}
	}
	bisector, _ := geom.Unit(r2.Add(c.dir[0], c.dir[1]))
	center := r2.Add(c.at, r2.Scale(radius/math.Sin(c.halfAngle), bisector))

	t1 := c.cut(l1, 0, tangent)
	t2 := c.cut(l2, 1, tangent)
	fillet := &Element{
		ID:        t.newID(Fillet),
		Type:      Fillet,
		Center:    center,
		Radius:    radius,
		Start:     t1,
		End:       t2,
		Clockwise: r2.Cross(r2.Sub(t1, center), r2.Sub(t2, center)) < 0,
		Refs:      []string{line1ID, line2ID},
	}
	t.add(fillet)
	if err := t.commit(); err != nil {
		return nil, err
	}
	logging.Logf("[SKETCH] %s: fillet %s r=%.3f between %s and %s", s.ID, fillet.ID, radius, line1ID, line2ID)
	return []string{fillet.ID, line1ID, line2ID}, nil
}

// AddChamfer срезает угол отрезком, отступая distance от вершины по каждой линии.
func (s *Sketch) AddChamfer(line1ID, line2ID string, distance float64) ([]string, error) {
	if !(distance > geom.Epsilon) || math.IsInf(distance, 0) {
		return nil, domain.Degenerate("chamfer distance must be positive, got %g", distance)
	}
	t := s.begin()
	l1, l2, c, err := t.cornerLines(line1ID, line2ID)
	if err != nil {
		return nil, err
	}
	for i := range 2 {
		if distance >= c.reach[i]-geom.Epsilon {
			return nil, domain.Degenerate("chamfer distance %g exceeds line %q", distance, [2]string{line1ID, line2ID}[i])
		}
	}
	p1 := c.cut(l1, 0, distance)
	p2 := c.cut(l2, 1, distance)
	chamfer := &Element{
		ID:    t.newID(Chamfer),
		Type:  Chamfer,
		Start: p1,
		End:   p2,
		Refs:  []string{line1ID, line2ID},
	}
	t.add(chamfer)
	if err := t.commit(); err != nil {
		return nil, err
	}
	logging.Logf("[SKETCH] %s: chamfer %s d=%.3f between %s and %s", s.ID, chamfer.ID, distance, line1ID, line2ID)
	return []string{chamfer.ID, line1ID, line2ID}, nil
}

func (t *tx) cornerLines(line1ID, line2ID string) (*Element, *Element, corner, error) {
	if line1ID == line2ID {
		return nil, nil, corner{}, domain.Degenerate("a corner needs two different lines")
	}
	for _, id := range []string{line1ID, line2ID} {
		e, err := t.peek(id)
		if err != nil {
			return nil, nil, corner{}, err
		}
		if e.Type != Line {
			return nil, nil, corner{}, domain.Degenerate("element %q is a %s, not a line", id, e.Type)
		}
	}
	l1, _ := t.get(line1ID)
	l2, _ := t.get(line2ID)
	c, err := findCorner(l1, l2)
	return l1, l2, c, err
}
