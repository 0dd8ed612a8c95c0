package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Edges
// ============================================================

// DefaultDeflection: хордовое отклонение, если качество не задано.
const DefaultDeflection = 0.1

const maxSegmentsPerTurn = 1024

// Edge: кривая границы грани. Sample(n) возвращает n+1 точку, первая и
// последняя точно совпадают с концами кривой.
type Edge interface {
	Segments(deflection float64) int
	Sample(n int) []r3.Vec
	Reverse() Edge
	Translate(v r3.Vec) Edge
}

// LineEdge: отрезок.
type LineEdge struct {
	A, B r3.Vec
}

func (e LineEdge) Segments(float64) int { return 1 }

func (e LineEdge) Sample(n int) []r3.Vec {
	n = max(n, 1)
	pts := make([]r3.Vec, n+1)
	d := r3.Sub(e.B, e.A)
	for i := range pts {
		pts[i] = r3.Add(e.A, r3.Scale(float64(i)/float64(n), d))
	}
	pts[n] = e.B
	return pts
}

func (e LineEdge) Reverse() Edge { return LineEdge{A: e.B, B: e.A} }

func (e LineEdge) Translate(v r3.Vec) Edge { return LineEdge{A: r3.Add(e.A, v), B: r3.Add(e.B, v)} }

// ArcEdge: дуга окружности в плоскости (U, V) с центром Center.
// Угол отсчитывается от U к V; Sweep знаковый, ±2π означает полную окружность.
// From/To: точные концы, SampleRadius (если > 0) задаёт радиус для расчёта
// числа сегментов, чтобы согласовать разбиение соседних кривых.
type ArcEdge struct {
	Center       r3.Vec
	U, V         r3.Vec
	Radius       float64
	Start        float64
	Sweep        float64
	From, To     r3.Vec
	SampleRadius float64
}

// NewArcEdge вычисляет концы дуги по углам.
func NewArcEdge(center, u, v r3.Vec, radius, start, sweep float64) ArcEdge {
	e := ArcEdge{Center: center, U: u, V: v, Radius: radius, Start: start, Sweep: sweep}
	e.From = e.at(start)
	e.To = e.at(start + sweep)
	if math.Abs(math.Abs(sweep)-2*math.Pi) < 1e-12 {
		e.To = e.From
	}
	return e
}

func (e ArcEdge) at(a float64) r3.Vec {
	s, c := math.Sincos(a)
	return r3.Add(e.Center, r3.Add(r3.Scale(e.Radius*c, e.U), r3.Scale(e.Radius*s, e.V)))
}

func (e ArcEdge) Segments(deflection float64) int {
	r := e.Radius
	if e.SampleRadius > 0 {
		r = e.SampleRadius
	}
	return arcSegments(r, e.Sweep, deflection)
}

func (e ArcEdge) Sample(n int) []r3.Vec {
	n = max(n, 1)
	pts := make([]r3.Vec, n+1)
	for i := range pts {
		pts[i] = e.at(e.Start + e.Sweep*float64(i)/float64(n))
	}
	pts[0], pts[n] = e.From, e.To
	return pts
}

func (e ArcEdge) Reverse() Edge {
	r := e
	r.Start = e.Start + e.Sweep
	r.Sweep = -e.Sweep
	r.From, r.To = e.To, e.From
	return r
}

func (e ArcEdge) Translate(v r3.Vec) Edge {
	t := e
	t.Center = r3.Add(e.Center, v)
	t.From = r3.Add(e.From, v)
	t.To = r3.Add(e.To, v)
	return t
}

// arcSegments: число хорд, при котором отклонение от дуги не превышает deflection.
func arcSegments(radius, sweep, deflection float64) int {
	a := math.Abs(sweep)
	if a == 0 || radius <= 0 {
		return 1
	}
	if !(deflection > 0) {
		deflection = DefaultDeflection
	}
	step := math.Pi / 4
	if deflection < radius {
		step = math.Min(step, 2*math.Acos(1-deflection/radius))
	}
	n := int(math.Ceil(a/step - 1e-9))
	limit := int(math.Ceil(a / (2 * math.Pi) * maxSegmentsPerTurn))
	return min(max(n, 1), max(limit, 1))
}

// loopPoints собирает вершины замкнутого контура без повторов на стыках.
func loopPoints(edges []Edge, deflection float64) []r3.Vec {
	var pts []r3.Vec
	for _, e := range edges {
		s := e.Sample(e.Segments(deflection))
		pts = append(pts, s[:len(s)-1]...)
	}
	return pts
}

func reverseLoop(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[len(edges)-1-i] = e.Reverse()
	}
	return out
}
