package kernel

import (
	"math"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"

	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Solid
// ============================================================

// Solid: замкнутая оболочка из граней. После построения не меняется.
type Solid struct {
	Faces []Face
}

// Prism выдавливает плоский контур loop с нормалью normal на вектор vec.
// Контур приводится к обходу против часовой стрелки вокруг normal, торцы и
// боковые грани ориентируются наружу по знаку vec·normal.
func Prism(loop []Edge, normal, vec r3.Vec) (*Solid, error) {
	n, ok := geom.Unit3(normal)
	if !ok {
		return nil, domain.Degenerate("profile normal has zero length")
	}
	if len(loop) == 0 {
		return nil, domain.Degenerate("profile has no edges")
	}
	length := r3.Norm(vec)
	along := r3.Dot(vec, n)
	if !geom.Finite3(vec) || length <= geom.Epsilon || math.Abs(along) <= 1e-9*length {
		return nil, domain.Degenerate("sweep vector is zero or parallel to the profile")
	}
	if loopArea(loop, n) < 0 {
		loop = reverseLoop(loop)
	}
	if math.Abs(loopArea(loop, n)) <= geom.Epsilon {
		return nil, domain.Degenerate("profile encloses no area")
	}

	side := Forward
	if along < 0 {
		side = Reversed
	}
	top := make([]Edge, len(loop))
	faces := make([]Face, 0, len(loop)+2)
	for i, e := range loop {
		top[i] = e.Translate(vec)
		faces = append(faces, &RuledFace{Bottom: e, Top: top[i], Orient: side})
	}
	faces = append(faces,
		&PlanarFace{Normal: n, Edges: loop, Orient: side.flip()},
		&PlanarFace{Normal: n, Edges: top, Orient: side},
	)
	return &Solid{Faces: faces}, nil
}

// loopArea: знаковая площадь контура вокруг n.
func loopArea(loop []Edge, n r3.Vec) float64 {
	pts := loopPoints(loop, DefaultDeflection)
	var sum r3.Vec
	for i := range pts {
		sum = r3.Add(sum, r3.Cross(pts[i], pts[(i+1)%len(pts)]))
	}
	return r3.Dot(sum, n) / 2
}

// ============================================================
// Primitives
// ============================================================

// Box: параллелепипед от origin с размерами по X, Y, Z.
func Box(origin r3.Vec, width, height, depth float64) (*Solid, error) {
	if !(width > geom.Epsilon) || !(height > geom.Epsilon) || !(depth > geom.Epsilon) {
		return nil, domain.Degenerate("box dimensions must be positive, got %gx%gx%g", width, height, depth)
	}
	p0 := origin
	p1 := r3.Add(origin, r3.Vec{X: width})
	p2 := r3.Add(origin, r3.Vec{X: width, Y: height})
	p3 := r3.Add(origin, r3.Vec{Y: height})
	loop := []Edge{LineEdge{p0, p1}, LineEdge{p1, p2}, LineEdge{p2, p3}, LineEdge{p3, p0}}
	return Prism(loop, r3.Vec{Z: 1}, r3.Vec{Z: depth})
}

// Cylinder: цилиндр с основанием в base вдоль оси axis.
func Cylinder(base, axis r3.Vec, radius, height float64) (*Solid, error) {
	return Cone(base, axis, radius, radius, height)
}

// Cone: усечённый конус; один из радиусов может быть нулевым (вершина).
func Cone(base, axis r3.Vec, r1, r2, height float64) (*Solid, error) {
	a, ok := geom.Unit3(axis)
	if !ok {
		return nil, domain.Degenerate("axis has zero length")
	}
	if r1 < 0 || r2 < 0 || math.Max(r1, r2) <= geom.Epsilon || !(height > geom.Epsilon) {
		return nil, domain.Degenerate("invalid cone radii %g/%g or height %g", r1, r2, height)
	}
	u, v := geom.Orthonormal(a)
	top := r3.Add(base, r3.Scale(height, a))
	sample := math.Max(r1, r2)

	bottomEdge := NewArcEdge(base, u, v, r1, 0, 2*math.Pi)
	bottomEdge.SampleRadius = sample
	topEdge := NewArcEdge(top, u, v, r2, 0, 2*math.Pi)
	topEdge.SampleRadius = sample

	faces := []Face{&RuledFace{Bottom: bottomEdge, Top: topEdge, Orient: Forward}}
	if r1 > geom.Epsilon {
		faces = append(faces, &PlanarFace{Normal: a, Edges: []Edge{bottomEdge}, Orient: Reversed})
	}
	if r2 > geom.Epsilon {
		faces = append(faces, &PlanarFace{Normal: a, Edges: []Edge{topEdge}, Orient: Forward})
	}
	return &Solid{Faces: faces}, nil
}

// Sphere: сфера.
func Sphere(center r3.Vec, radius float64) (*Solid, error) {
	if !(radius > geom.Epsilon) || !geom.Finite3(center) {
		return nil, domain.Degenerate("sphere radius must be positive, got %g", radius)
	}
	return &Solid{Faces: []Face{&SphereFace{Center: center, Radius: radius}}}, nil
}

// ============================================================
// Inspection
// ============================================================

// Check проверяет оболочку: непустая, конечные координаты, замкнутость
// (сумма векторных площадей ≈ 0) и положительный объём.
func Check(s *Solid, deflection float64) error {
	if s == nil || len(s.Faces) == 0 {
		return domain.InvalidTopology("shape is empty")
	}
	var vecArea r3.Vec
	var total, volume float64
	count := 0
	for _, f := range s.Faces {
		pts, tris := outward(f, deflection)
		for _, p := range pts {
			if !geom.Finite3(p) {
				return domain.InvalidTopology("shape has non-finite coordinates")
			}
		}
		for _, t := range tris {
			a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
			cr := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
			vecArea = r3.Add(vecArea, cr)
			total += r3.Norm(cr)
			volume += r3.Dot(a, r3.Cross(b, c))
			count++
		}
	}
	if count == 0 || total <= 0 {
		return domain.InvalidTopology("shape is empty")
	}
	if r3.Norm(vecArea) > 1e-4*total {
		return domain.InvalidTopology("shell is not closed")
	}
	if volume/6 <= 1e-12 {
		return domain.InvalidTopology("shell encloses no volume")
	}
	return nil
}

// Volume: объём по теореме о дивергенции.
func Volume(s *Solid, deflection float64) float64 {
	var v float64
	for _, f := range s.Faces {
		pts, tris := outward(f, deflection)
		for _, t := range tris {
			v += r3.Dot(pts[t[0]], r3.Cross(pts[t[1]], pts[t[2]]))
		}
	}
	return v / 6
}

// Vertices: все вершины триангуляции.
func Vertices(s *Solid, deflection float64) []r3.Vec {
	var out []r3.Vec
	for _, f := range s.Faces {
		pts, _ := f.Triangulate(deflection)
		out = append(out, pts...)
	}
	return out
}

// Bounds: габаритный параллелепипед.
func Bounds(s *Solid, deflection float64) (r3.Box, bool) {
	pts := Vertices(s, deflection)
	if len(pts) == 0 {
		return r3.Box{}, false
	}
	b := r3.Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b, true
}
