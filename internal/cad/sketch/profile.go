package sketch

import (
	"math"
	"slices"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"

	"gonum.org/v1/gonum/spatial/r2"
)

// ============================================================
// Profile
// ============================================================

// Segment: участок замкнутого контура, отрезок или дуга.
type Segment struct {
	Arc        bool
	Start      r2.Vec
	End        r2.Vec
	Center     r2.Vec
	Radius     float64
	StartAngle float64
	Sweep      float64 // знаковый, ±2π для полной окружности
}

// Reverse меняет направление обхода участка.
func (g Segment) Reverse() Segment {
	g.Start, g.End = g.End, g.Start
	if g.Arc {
		g.StartAngle += g.Sweep
		g.Sweep = -g.Sweep
	}
	return g
}

// Polyline аппроксимирует участок ломаной; последняя точка не включается.
func (g Segment) Polyline() []r2.Vec {
	if !g.Arc {
		return []r2.Vec{g.Start}
	}
	n := max(4, int(math.Ceil(math.Abs(g.Sweep)/(math.Pi/32))))
	pts := make([]r2.Vec, n)
	pts[0] = g.Start
	for i := 1; i < n; i++ {
		pts[i] = geom.Polar(g.Center, g.Radius, g.StartAngle+g.Sweep*float64(i)/float64(n))
	}
	return pts
}

// Loop: замкнутая цепочка участков, конец каждого совпадает с началом следующего.
type Loop struct {
	Segments []Segment
}

// Polyline: вершины аппроксимирующего многоугольника.
func (l Loop) Polyline() []r2.Vec {
	var pts []r2.Vec
	for _, g := range l.Segments {
		pts = append(pts, g.Polyline()...)
	}
	return pts
}

// Area: знаковая площадь (положительная при обходе против часовой стрелки).
func (l Loop) Area() float64 {
	return signedArea(l.Polyline())
}

// Reverse меняет направление обхода контура.
func (l Loop) Reverse() Loop {
	out := make([]Segment, len(l.Segments))
	for i, g := range l.Segments {
		out[len(out)-1-i] = g.Reverse()
	}
	return Loop{Segments: out}
}

// Contains: точка строго внутри аппроксимирующего многоугольника.
func (l Loop) Contains(p r2.Vec) bool {
	pts := l.Polyline()
	inside := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Region: внешний контур и отверстия в нём.
type Region struct {
	Outer Loop
	Holes []Loop
}

// Profile: плоская грань эскиза из одной или нескольких областей.
type Profile struct {
	Regions []Region
}

// ============================================================
// Face building
// ============================================================

const chainTolerance = 1e-6

func segmentOf(e *Element) (Segment, bool) {
	switch {
	case e.IsLinear():
		return Segment{Start: e.Start, End: e.End}, true
	case e.IsArc():
		start, sweep := e.ArcAngles()
		return Segment{Arc: true, Start: e.Start, End: e.End, Center: e.Center, Radius: e.Radius, StartAngle: start, Sweep: sweep}, true
	case e.Type == Circle:
		p := geom.Polar(e.Center, e.Radius, 0)
		return Segment{Arc: true, Start: p, End: p, Center: e.Center, Radius: e.Radius, Sweep: 2 * math.Pi}, true
	}
	return Segment{}, false
}

// FaceFromElement строит плоскую грань по одному элементу: окружность или
// контур контейнера вместе со скруглениями и фасками, соединяющими его стороны.
func (s *Sketch) FaceFromElement(id string) (Profile, error) {
	e, ok := s.elements[id]
	if !ok {
		return Profile{}, domain.NotFound("element", id)
	}
	switch {
	case e.Type == Circle:
		g, _ := segmentOf(e)
		return Profile{Regions: []Region{{Outer: Loop{Segments: []Segment{g}}}}}, nil
	case e.IsComposite():
		curves := make([]Segment, 0, len(e.Children)+2)
		for _, child := range e.Children {
			g, _ := segmentOf(s.elements[child])
			curves = append(curves, g)
		}
		for _, other := range s.order {
			o := s.elements[other]
			if len(o.Refs) == 2 && slices.Contains(e.Children, o.Refs[0]) && slices.Contains(e.Children, o.Refs[1]) {
				g, _ := segmentOf(o)
				curves = append(curves, g)
			}
		}
		loops, used := chainLoops(curves)
		if len(loops) != 1 || used != len(curves) {
			return Profile{}, domain.Degenerate("%s %q does not bound a single closed outline", e.Type, id)
		}
		return Profile{Regions: []Region{{Outer: ccw(loops[0])}}}, nil
	}
	return Profile{}, domain.Degenerate("%s %q is not a closed element", e.Type, id)
}

// Face собирает все кривые эскиза в замкнутые контуры. Контур внутри
// нечётного числа других контуров становится отверстием ближайшего внешнего.
// Разомкнутые цепочки игнорируются.
func (s *Sketch) Face() (Profile, error) {
	var curves []Segment
	var loops []Loop
	for _, id := range s.order {
		e := s.elements[id]
		if e.IsComposite() {
			continue
		}
		g, ok := segmentOf(e)
		if !ok {
			continue
		}
		if e.Type == Circle {
			loops = append(loops, Loop{Segments: []Segment{g}})
			continue
		}
		curves = append(curves, g)
	}
	chained, _ := chainLoops(curves)
	loops = append(loops, chained...)
	if len(loops) == 0 {
		return Profile{}, domain.Degenerate("sketch %q has no closed outline", s.ID)
	}
	return nest(loops), nil
}

// chainLoops сцепляет участки по совпадающим концам. Возвращает замкнутые
// контуры и число участков, вошедших в них.
func chainLoops(curves []Segment) ([]Loop, int) {
	used := make([]bool, len(curves))
	var loops []Loop
	total := 0
	for first := range curves {
		if used[first] {
			continue
		}
		used[first] = true
		chain, ok := closeChain(curves, used, []Segment{curves[first]})
		if !ok {
			// разомкнутая цепочка: участок остаётся доступным для других контуров
			used[first] = false
			continue
		}
		loops = append(loops, Loop{Segments: chain})
		total += len(chain)
	}
	return loops, total
}

// closeChain продолжает цепочку до замыкания, перебирая ветви в развилках.
// При успехе участки цепочки остаются помеченными в used.
func closeChain(curves []Segment, used []bool, chain []Segment) ([]Segment, bool) {
	last := chain[len(chain)-1]
	if geom.SamePoint(last.End, chain[0].Start, chainTolerance) {
		return chain, true
	}
	for i, g := range curves {
		if used[i] {
			continue
		}
		switch {
		case geom.SamePoint(g.Start, last.End, chainTolerance):
		case geom.SamePoint(g.End, last.End, chainTolerance):
			g = g.Reverse()
		default:
			continue
		}
		used[i] = true
		if out, ok := closeChain(curves, used, append(chain, g)); ok {
			return out, true
		}
		used[i] = false
	}
	return nil, false
}

func ccw(l Loop) Loop {
	if l.Area() < 0 {
		return l.Reverse()
	}
	return l
}

// nest раскладывает контуры по глубине вложенности.
func nest(loops []Loop) Profile {
	for i := range loops {
		loops[i] = ccw(loops[i])
	}
	n := len(loops)
	depth := make([]int, n)
	parent := make([]int, n)
	for i := range loops {
		parent[i] = -1
		probe := loops[i].Segments[0].Start
		area := math.Abs(loops[i].Area())
		for j := range loops {
			if i == j || math.Abs(loops[j].Area()) <= area {
				continue
			}
			if loops[j].Contains(probe) {
				depth[i]++
				if parent[i] < 0 || math.Abs(loops[j].Area()) < math.Abs(loops[parent[i]].Area()) {
					parent[i] = j
				}
			}
		}
	}
	var p Profile
	index := make(map[int]int)
	for i := range loops {
		if depth[i]%2 == 0 {
			index[i] = len(p.Regions)
			p.Regions = append(p.Regions, Region{Outer: loops[i]})
		}
	}
	for i := range loops {
		if depth[i]%2 == 1 {
			if r, ok := index[parent[i]]; ok {
				p.Regions[r].Holes = append(p.Regions[r].Holes, loops[i])
			}
		}
	}
	return p
}
