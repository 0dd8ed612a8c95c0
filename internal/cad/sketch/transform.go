package sketch

import (
	"math"
	"slices"
	"strings"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"
	"cad-service/internal/common/logging"

	"gonum.org/v1/gonum/spatial/r2"
)

// ============================================================
// Selection helpers
// ============================================================

// selection возвращает верхнеуровневые элементы выборки без повторов:
// дочерняя линия, чей контейнер тоже выбран, обрабатывается вместе с ним.
// Скругления и фаски между двумя сторонами выбранного контейнера
// добавляются в выборку, чтобы контур оставался замкнутым.
func (t *tx) selection(ids []string) ([]*Element, error) {
	if len(ids) == 0 {
		return nil, domain.Degenerate("no elements selected")
	}
	chosen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, err := t.peek(id); err != nil {
			return nil, err
		}
		chosen[id] = true
	}
	var out []*Element
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		e, _ := t.peek(id)
		if e.ParentID != "" && chosen[e.ParentID] {
			continue
		}
		out = append(out, e)
	}
	for _, c := range slices.Clone(out) {
		if !c.IsComposite() {
			continue
		}
		for _, b := range t.bridges(c) {
			if !seen[b.ID] {
				seen[b.ID] = true
				out = append(out, b)
			}
		}
	}
	return out, nil
}

// bridges: элементы, обе ссылки которых указывают на стороны контейнера c.
func (t *tx) bridges(c *Element) []*Element {
	var out []*Element
	for _, id := range t.s.order {
		o, err := t.peek(id)
		if err != nil || len(o.Refs) != 2 {
			continue
		}
		if slices.Contains(c.Children, o.Refs[0]) && slices.Contains(c.Children, o.Refs[1]) {
			out = append(out, o)
		}
	}
	return out
}

// transformInPlace применяет f к выбранным элементам и детям контейнеров.
func (t *tx) transformInPlace(sel []*Element, f func(*Element)) ([]string, error) {
	out := make([]string, 0, len(sel))
	for _, e := range sel {
		w, err := t.get(e.ID)
		if err != nil {
			return nil, err
		}
		f(w)
		for _, child := range w.Children {
			cw, err := t.get(child)
			if err != nil {
				return nil, err
			}
			f(cw)
		}
		out = append(out, e.ID)
	}
	return out, nil
}

// duplicate создаёт копии выбранных элементов (контейнеры вместе с детьми)
// и применяет к ним f. Ссылки скругления и фаски переносятся на копии линий,
// если те скопированы в этой же операции, иначе копия становится обычной
// дугой или линией.
func (t *tx) duplicate(sel []*Element, f func(*Element)) ([]string, error) {
	mapping := make(map[string]string)
	var created []*Element
	var out []string
	for _, e := range sel {
		c := e.clone()
		c.ID = t.newID(c.Type)
		c.ParentID = ""
		c.Children = nil
		f(c)
		mapping[e.ID] = c.ID
		created = append(created, c)
		for _, childID := range e.Children {
			child, err := t.peek(childID)
			if err != nil {
				return nil, err
			}
			cc := child.clone()
			cc.ID = t.newID(cc.Type)
			cc.ParentID = c.ID
			f(cc)
			mapping[childID] = cc.ID
			c.Children = append(c.Children, cc.ID)
			created = append(created, cc)
		}
		out = append(out, c.ID)
	}
	for _, c := range created {
		if len(c.Refs) == 0 {
			continue
		}
		refs := make([]string, 0, len(c.Refs))
		for _, ref := range c.Refs {
			if mapped, ok := mapping[ref]; ok {
				refs = append(refs, mapped)
			}
		}
		if len(refs) == len(c.Refs) {
			c.Refs = refs
			continue
		}
		c.Refs = nil
		c.Type = plainType(c.Type)
	}
	for _, c := range created {
		t.add(c)
	}
	return out, nil
}

func plainType(t Type) Type {
	switch t {
	case Fillet:
		return Arc
	case Chamfer:
		return Line
	}
	return t
}

// ============================================================
// Mirror
// ============================================================

// MirrorByTwoPoints отражает элементы относительно прямой через p1 и p2.
// keepOriginal создаёт отражённые копии, иначе элементы меняются на месте.
func (s *Sketch) MirrorByTwoPoints(ids []string, p1, p2 r2.Vec, keepOriginal bool) ([]string, error) {
	if !finite(p1, p2) || geom.SamePoint(p1, p2, geom.Epsilon) {
		return nil, domain.Degenerate("mirror axis points coincide")
	}
	return s.mirror(ids, p1, p2, keepOriginal)
}

// MirrorByLine отражает элементы относительно прямой, продолжающей линию эскиза.
func (s *Sketch) MirrorByLine(ids []string, lineID string, keepOriginal bool) ([]string, error) {
	axis, err := s.begin().linear(lineID)
	if err != nil {
		return nil, err
	}
	rest := slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == lineID })
	return s.mirror(rest, axis.Start, axis.End, keepOriginal)
}

func (s *Sketch) mirror(ids []string, a, b r2.Vec, keepOriginal bool) ([]string, error) {
	t := s.begin()
	sel, err := t.selection(ids)
	if err != nil {
		return nil, err
	}
	reflect := func(e *Element) { e.reflect(a, b) }
	var out []string
	if keepOriginal {
		out, err = t.duplicate(sel, reflect)
	} else {
		out, err = t.transformInPlace(sel, reflect)
	}
	if err != nil {
		return nil, err
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	logging.Logf("[SKETCH] %s: mirrored %v -> %v (keep=%t)", s.ID, ids, out, keepOriginal)
	return out, nil
}

// ============================================================
// Move / Copy / Arrays
// ============================================================

func translation(dirX, dirY, distance float64) (r2.Vec, error) {
	u, ok := geom.Unit(r2.Vec{X: dirX, Y: dirY})
	if !ok || !finite(u) {
		return r2.Vec{}, domain.Degenerate("direction has zero length")
	}
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return r2.Vec{}, domain.Degenerate("distance is not finite")
	}
	return r2.Scale(distance, u), nil
}

// Move сдвигает элемент (контейнер вместе с детьми) на distance вдоль направления.
func (s *Sketch) Move(id string, dirX, dirY, distance float64) error {
	d, err := translation(dirX, dirY, distance)
	if err != nil {
		return err
	}
	t := s.begin()
	sel, err := t.selection([]string{id})
	if err != nil {
		return err
	}
	if _, err := t.transformInPlace(sel, func(e *Element) { e.translate(d) }); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		return err
	}
	logging.Logf("[SKETCH] %s: moved %s by (%.3f,%.3f)", s.ID, id, d.X, d.Y)
	return nil
}

// Copy создаёт count копий; k-я сдвинута на k·distance вдоль направления.
func (s *Sketch) Copy(id string, count int, dirX, dirY, distance float64) ([]string, error) {
	if count < 1 {
		return nil, domain.Degenerate("copy count must be at least 1, got %d", count)
	}
	d, err := translation(dirX, dirY, distance)
	if err != nil {
		return nil, err
	}
	t := s.begin()
	sel, err := t.selection([]string{id})
	if err != nil {
		return nil, err
	}
	var out []string
	for k := 1; k <= count; k++ {
		step := r2.Scale(float64(k), d)
		ids, err := t.duplicate(sel, func(e *Element) { e.translate(step) })
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	logging.Logf("[SKETCH] %s: copied %s x%d -> %v", s.ID, id, count, out)
	return out, nil
}

// CircularArray раскладывает count копий по дуге totalAngle вокруг center.
// При полном обороте копии и исходный элемент делят круг поровну.
func (s *Sketch) CircularArray(id string, count int, center r2.Vec, totalAngle float64) ([]string, error) {
	if count < 1 {
		return nil, domain.Degenerate("array count must be at least 1, got %d", count)
	}
	if !finite(center) || math.Abs(totalAngle) <= geom.Epsilon || math.IsInf(totalAngle, 0) {
		return nil, domain.Degenerate("array angle must be non-zero")
	}
	step := totalAngle / float64(count)
	if math.Abs(math.Abs(totalAngle)-2*math.Pi) <= 1e-9 {
		step = totalAngle / float64(count+1)
	}
	t := s.begin()
	sel, err := t.selection([]string{id})
	if err != nil {
		return nil, err
	}
	var out []string
	for k := 1; k <= count; k++ {
		a := step * float64(k)
		ids, err := t.duplicate(sel, func(e *Element) { e.rotate(center, a) })
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	logging.Logf("[SKETCH] %s: circular array of %s x%d -> %v", s.ID, id, count, out)
	return out, nil
}

// ============================================================
// Offset
// ============================================================

type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// ParseSide разбирает "left"/"right".
func ParseSide(s string) (Side, error) {
	switch side := Side(strings.ToLower(strings.TrimSpace(s))); side {
	case Left, Right:
		return side, nil
	}
	return "", domain.Degenerate("offset direction must be left or right, got %q", s)
}

// OffsetDirectional создаёт параллельную копию линии или дуги со стороны side
// относительно направления обхода. Исходный элемент остаётся.
func (s *Sketch) OffsetDirectional(id string, distance float64, side Side) (string, error) {
	if !(distance > geom.Epsilon) || math.IsInf(distance, 0) {
		return "", domain.Degenerate("offset distance must be positive, got %g", distance)
	}
	sign := 1.0
	switch side {
	case Left:
	case Right:
		sign = -1
	default:
		return "", domain.Degenerate("offset direction must be left or right, got %q", side)
	}
	t := s.begin()
	e, err := t.peek(id)
	if err != nil {
		return "", err
	}
	var c *Element
	switch {
	case e.IsLinear():
		c, err = offsetLine(e, sign*distance)
	case e.IsArc():
		// слева от направления обхода лежит центр дуги против часовой стрелки
		delta := -sign * distance
		if e.Clockwise {
			delta = sign * distance
		}
		c, err = offsetRadius(e, delta)
	default:
		return "", domain.Degenerate("%s %q has no direction to offset along", e.Type, id)
	}
	if err != nil {
		return "", err
	}
	c.ID = t.newID(c.Type)
	t.add(c)
	if err := t.commit(); err != nil {
		return "", err
	}
	logging.Logf("[SKETCH] %s: offset %s %s by %.3f -> %s", s.ID, id, side, distance, c.ID)
	return c.ID, nil
}

// Offset создаёт эквидистанту: линия сдвигается влево, у окружностей и дуг
// меняется радиус, контур прямоугольника или многоугольника расширяется
// наружу (отрицательное расстояние сжимает).
func (s *Sketch) Offset(id string, distance float64) (string, error) {
	if math.Abs(distance) <= geom.Epsilon || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return "", domain.Degenerate("offset distance must be non-zero, got %g", distance)
	}
	t := s.begin()
	e, err := t.peek(id)
	if err != nil {
		return "", err
	}
	if e.IsComposite() {
		newID, err := t.offsetOutline(e, distance)
		if err != nil {
			return "", err
		}
		if err := t.commit(); err != nil {
			return "", err
		}
		logging.Logf("[SKETCH] %s: offset %s by %.3f -> %s", s.ID, id, distance, newID)
		return newID, nil
	}
	var c *Element
	switch {
	case e.IsLinear():
		c, err = offsetLine(e, distance)
	case e.Type == Circle, e.IsArc():
		c, err = offsetRadius(e, distance)
	default:
		err = domain.Degenerate("cannot offset %s %q", e.Type, id)
	}
	if err != nil {
		return "", err
	}
	c.ID = t.newID(c.Type)
	t.add(c)
	if err := t.commit(); err != nil {
		return "", err
	}
	logging.Logf("[SKETCH] %s: offset %s by %.3f -> %s", s.ID, id, distance, c.ID)
	return c.ID, nil
}

// offsetLine сдвигает отрезок на d вдоль левой нормали.
func offsetLine(e *Element, d float64) (*Element, error) {
	dir, ok := geom.Unit(r2.Sub(e.End, e.Start))
	if !ok {
		return nil, domain.Degenerate("line %q has zero length", e.ID)
	}
	shift := r2.Scale(d, geom.Perp(dir))
	return &Element{Type: Line, Start: r2.Add(e.Start, shift), End: r2.Add(e.End, shift)}, nil
}

// offsetRadius меняет радиус окружности или дуги на delta.
func offsetRadius(e *Element, delta float64) (*Element, error) {
	r := e.Radius + delta
	if r <= geom.Epsilon {
		return nil, domain.Degenerate("offset collapses %s %q (radius %g)", e.Type, e.ID, r)
	}
	c := &Element{Type: plainType(e.Type), Center: e.Center, Radius: r, Clockwise: e.Clockwise}
	if e.IsArc() {
		k := r / e.Radius
		c.Start = r2.Add(e.Center, r2.Scale(k, r2.Sub(e.Start, e.Center)))
		c.End = r2.Add(e.Center, r2.Scale(k, r2.Sub(e.End, e.Center)))
	}
	return c, nil
}

// offsetOutline строит новый контейнер, каждая сторона которого сдвинута
// наружу на distance.
func (t *tx) offsetOutline(e *Element, distance float64) (string, error) {
	vs, err := t.outline(e)
	if err != nil {
		return "", err
	}
	n := len(vs)
	area := signedArea(vs)
	// внешняя нормаль смотрит вправо при обходе против часовой стрелки
	outward := -1.0
	if area < 0 {
		outward = 1
	}
	type edge struct{ p, d r2.Vec }
	edges := make([]edge, n)
	for i := range vs {
		d, ok := geom.Unit(r2.Sub(vs[(i+1)%n], vs[i]))
		if !ok {
			return "", domain.Degenerate("%s %q has a zero-length side", e.Type, e.ID)
		}
		edges[i] = edge{p: r2.Add(vs[i], r2.Scale(outward*distance, geom.Perp(d))), d: d}
	}
	next := make([]r2.Vec, n)
	for i := range edges {
		prev := edges[(i-1+n)%n]
		tau, _, ok := geom.LineParams(prev.p, prev.d, edges[i].p, edges[i].d)
		if !ok {
			next[i] = edges[i].p
			continue
		}
		next[i] = r2.Add(prev.p, r2.Scale(tau, prev.d))
	}
	if math.Signbit(signedArea(next)) != math.Signbit(area) || math.Abs(signedArea(next)) <= geom.Epsilon {
		return "", domain.Degenerate("offset %g collapses %s %q", distance, e.Type, e.ID)
	}

	c := &Element{ID: t.newID(e.Type), Type: e.Type, Angle: e.Angle, Sides: e.Sides, Center: e.Center}
	switch e.Type {
	case Rectangle:
		c.Width = e.Width + 2*distance
		c.Height = e.Height + 2*distance
		c.Corner = r2.Add(e.Corner, geom.Rotate(r2.Vec{X: -distance, Y: -distance}, r2.Vec{}, e.Angle))
		if c.Width <= geom.Epsilon || c.Height <= geom.Epsilon {
			return "", domain.Degenerate("offset %g collapses rectangle %q", distance, e.ID)
		}
	case Polygon:
		c.Radius = e.Radius + distance/math.Cos(math.Pi/float64(max(e.Sides, 3)))
	}
	t.add(c)
	addOutline(t, c, next)
	return c.ID, nil
}

// outline возвращает вершины контура контейнера в порядке дочерних линий.
func (t *tx) outline(e *Element) ([]r2.Vec, error) {
	lines := make([]*Element, 0, len(e.Children))
	for _, id := range e.Children {
		l, err := t.peek(id)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if len(lines) < 3 {
		return nil, domain.Degenerate("%s %q has fewer than 3 sides", e.Type, e.ID)
	}
	vs := make([]r2.Vec, len(lines))
	for i, l := range lines {
		next := lines[(i+1)%len(lines)]
		if !geom.SamePoint(l.End, next.Start, 1e-7) {
			return nil, domain.Degenerate("%s %q outline is no longer closed", e.Type, e.ID)
		}
		vs[i] = l.Start
	}
	return vs, nil
}

func signedArea(vs []r2.Vec) float64 {
	var a float64
	for i := range vs {
		a += r2.Cross(vs[i], vs[(i+1)%len(vs)])
	}
	return a / 2
}

// ============================================================
// Remove
// ============================================================

// Remove удаляет элемент. Контейнер удаляется с детьми; контейнер без
// оставшихся детей удаляется тоже; ссылки скруглений на удалённые линии
// очищаются. Возвращает id всех удалённых элементов.
func (s *Sketch) Remove(id string) ([]string, error) {
	t := s.begin()
	e, err := t.peek(id)
	if err != nil {
		return nil, err
	}
	removed := []string{id}
	removed = append(removed, e.Children...)
	if e.ParentID != "" {
		parent, err := t.get(e.ParentID)
		if err != nil {
			return nil, err
		}
		parent.Children = slices.DeleteFunc(parent.Children, func(c string) bool { return c == id })
		if len(parent.Children) == 0 {
			removed = append(removed, parent.ID)
		}
	}
	for _, r := range removed {
		t.remove(r)
	}
	gone := func(ref string) bool { return slices.Contains(removed, ref) }
	for _, other := range s.order {
		o, err := t.peek(other)
		if err != nil || len(o.Refs) == 0 || !slices.ContainsFunc(o.Refs, gone) {
			continue
		}
		w, _ := t.get(other)
		w.Refs = nil
		w.Type = plainType(w.Type)
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	logging.Logf("[SKETCH] %s: removed %v", s.ID, removed)
	return removed, nil
}
