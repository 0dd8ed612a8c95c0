package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Tolerances
// ============================================================

const (
	// Epsilon: общий допуск на длины и совпадение точек.
	Epsilon = 1e-9
	// ParallelTolerance: порог знаменателя при пересечении прямых.
	ParallelTolerance = 1e-10
)

// Near сравнивает числа с допуском Epsilon.
func Near(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}

// SamePoint сравнивает точки с допуском tol.
func SamePoint(a, b r2.Vec, tol float64) bool {
	return r2.Norm(r2.Sub(a, b)) <= tol
}

// Dist: расстояние между точками на плоскости.
func Dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Perp поворачивает вектор на 90° против часовой стрелки.
func Perp(v r2.Vec) r2.Vec {
	return r2.Vec{X: -v.Y, Y: v.X}
}

// Unit нормирует вектор, false для нулевого.
func Unit(v r2.Vec) (r2.Vec, bool) {
	n := r2.Norm(v)
	if n <= Epsilon {
		return r2.Vec{}, false
	}
	return r2.Scale(1/n, v), true
}

// Angle возвращает полярный угол вектора.
func Angle(v r2.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}

// Polar строит точку на окружности.
func Polar(center r2.Vec, radius, angle float64) r2.Vec {
	return r2.Vec{X: center.X + radius*math.Cos(angle), Y: center.Y + radius*math.Sin(angle)}
}

// Rotate поворачивает p вокруг center на angle радиан.
func Rotate(p, center r2.Vec, angle float64) r2.Vec {
	s, c := math.Sincos(angle)
	d := r2.Sub(p, center)
	return r2.Vec{X: center.X + d.X*c - d.Y*s, Y: center.Y + d.X*s + d.Y*c}
}

// Reflect отражает p относительно прямой через a и b.
func Reflect(p, a, b r2.Vec) r2.Vec {
	d := r2.Sub(b, a)
	n2 := r2.Dot(d, d)
	if n2 <= Epsilon*Epsilon {
		return p
	}
	t := r2.Dot(r2.Sub(p, a), d) / n2
	foot := r2.Add(a, r2.Scale(t, d))
	return r2.Sub(r2.Scale(2, foot), p)
}

// ============================================================
// Intersections
// ============================================================

// LineIntersection пересекает бесконечные прямые (a1,a2) и (b1,b2).
// Возвращает false для параллельных прямых.
func LineIntersection(a1, a2, b1, b2 r2.Vec) (r2.Vec, bool) {
	denom := (a1.X-a2.X)*(b1.Y-b2.Y) - (a1.Y-a2.Y)*(b1.X-b2.X)
	if math.Abs(denom) < ParallelTolerance {
		return r2.Vec{}, false
	}
	t := ((a1.X-b1.X)*(b1.Y-b2.Y) - (a1.Y-b1.Y)*(b1.X-b2.X)) / denom
	return r2.Add(a1, r2.Scale(t, r2.Sub(a2, a1))), true
}

// LineParams возвращает параметры пересечения прямой p+t·d с прямой q+u·e.
func LineParams(p, d, q, e r2.Vec) (t, u float64, ok bool) {
	denom := r2.Cross(d, e)
	if math.Abs(denom) < ParallelTolerance {
		return 0, 0, false
	}
	w := r2.Sub(q, p)
	return r2.Cross(w, e) / denom, r2.Cross(w, d) / denom, true
}

// LineCircleParams возвращает параметры t пересечений прямой p+t·d с окружностью.
func LineCircleParams(p, d, center r2.Vec, radius float64) []float64 {
	a := r2.Dot(d, d)
	if a <= Epsilon*Epsilon {
		return nil
	}
	f := r2.Sub(p, center)
	b := 2 * r2.Dot(f, d)
	c := r2.Dot(f, f) - radius*radius
	disc := b*b - 4*a*c
	switch {
	case disc < -Epsilon:
		return nil
	case disc <= Epsilon:
		return []float64{-b / (2 * a)}
	}
	sq := math.Sqrt(disc)
	return []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)}
}

// ============================================================
// Arcs
// ============================================================

// Circumcenter: центр окружности через три точки, false для коллинеарных.
func Circumcenter(a, b, c r2.Vec) (r2.Vec, bool) {
	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	if math.Abs(d) < ParallelTolerance {
		return r2.Vec{}, false
	}
	a2 := r2.Dot(a, a)
	b2 := r2.Dot(b, b)
	c2 := r2.Dot(c, c)
	return r2.Vec{
		X: (a2*(b.Y-c.Y) + b2*(c.Y-a.Y) + c2*(a.Y-b.Y)) / d,
		Y: (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / d,
	}, true
}

// ArcCenter находит центр дуги радиуса r, идущей против часовой стрелки
// от start к end. large выбирает большую из двух дуг.
func ArcCenter(start, end r2.Vec, radius float64, large bool) (r2.Vec, bool) {
	chord := r2.Sub(end, start)
	d := r2.Norm(chord)
	if d <= Epsilon || radius <= Epsilon || d > 2*radius+Epsilon {
		return r2.Vec{}, false
	}
	h := math.Sqrt(math.Max(0, radius*radius-d*d/4))
	mid := r2.Scale(0.5, r2.Add(start, end))
	left := Perp(r2.Scale(1/d, chord))
	if large {
		return r2.Sub(mid, r2.Scale(h, left)), true
	}
	return r2.Add(mid, r2.Scale(h, left)), true
}

// CCWSweep: угол против часовой стрелки от from до to в диапазоне (0, 2π].
func CCWSweep(from, to float64) float64 {
	s := math.Mod(to-from, 2*math.Pi)
	if s <= Epsilon {
		s += 2 * math.Pi
	}
	return s
}

// ============================================================
// 3D helpers
// ============================================================

// Finite3 проверяет, что координаты конечны.
func Finite3(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Unit3 нормирует вектор, false для нулевого.
func Unit3(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if n <= Epsilon || !Finite3(v) {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}

// Orthonormal строит пару осей (u, v), дополняющих n до правой тройки.
// Опорной берётся мировая ось, наименее параллельная n.
func Orthonormal(n r3.Vec) (u, v r3.Vec) {
	ref := r3.Vec{X: 1}
	ax, ay, az := math.Abs(n.X), math.Abs(n.Y), math.Abs(n.Z)
	switch {
	case ax <= ay && ax <= az:
		ref = r3.Vec{X: 1}
	case ay <= az:
		ref = r3.Vec{Y: 1}
	default:
		ref = r3.Vec{Z: 1}
	}
	u, _ = Unit3(r3.Sub(ref, r3.Scale(r3.Dot(ref, n), n)))
	v = r3.Cross(n, u)
	return u, v
}
