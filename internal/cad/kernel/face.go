package kernel

import (
	"math"

	"cad-service/internal/cad/geom"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Faces
// ============================================================

type Orientation int

const (
	Forward Orientation = iota
	Reversed
)

func (o Orientation) flip() Orientation {
	if o == Forward {
		return Reversed
	}
	return Forward
}

type Surface string

const (
	SurfacePlane   Surface = "plane"
	SurfaceRuled   Surface = "ruled"
	SurfaceSphere  Surface = "sphere"
	SurfaceFaceted Surface = "faceted"
)

// Face: грань оболочки. Triangulate возвращает треугольники в естественном
// обходе грани; Reversed означает, что внешняя нормаль противоположна ему.
type Face interface {
	Triangulate(deflection float64) ([]r3.Vec, [][3]int)
	Orientation() Orientation
	Surface() Surface
}

// PlanarFace: плоская грань, ограниченная замкнутым контуром. Естественный
// обход: против часовой стрелки вокруг Normal.
type PlanarFace struct {
	Normal r3.Vec
	Edges  []Edge
	Orient Orientation
}

func (f *PlanarFace) Orientation() Orientation { return f.Orient }
func (f *PlanarFace) Surface() Surface         { return SurfacePlane }

func (f *PlanarFace) Triangulate(deflection float64) ([]r3.Vec, [][3]int) {
	pts := loopPoints(f.Edges, deflection)
	if len(pts) < 3 {
		return nil, nil
	}
	u, v := geom.Orthonormal(f.Normal)
	flat := make([]r2.Vec, len(pts))
	for i, p := range pts {
		flat[i] = r2.Vec{X: r3.Dot(p, u), Y: r3.Dot(p, v)}
	}
	return pts, earClip(flat)
}

// RuledFace: линейчатая поверхность между двумя кривыми с одинаковым
// разбиением: боковые грани призм, цилиндров и конусов.
type RuledFace struct {
	Bottom Edge
	Top    Edge
	Orient Orientation
}

func (f *RuledFace) Orientation() Orientation { return f.Orient }
func (f *RuledFace) Surface() Surface         { return SurfaceRuled }

func (f *RuledFace) Triangulate(deflection float64) ([]r3.Vec, [][3]int) {
	n := max(f.Bottom.Segments(deflection), f.Top.Segments(deflection))
	b := f.Bottom.Sample(n)
	t := f.Top.Sample(n)
	pts := append(append(make([]r3.Vec, 0, 2*(n+1)), b...), t...)
	top := n + 1
	var tris [][3]int
	for i := range n {
		for _, tri := range [2][3]int{{i, i + 1, top + i + 1}, {i, top + i + 1, top + i}} {
			if !degenerate(pts[tri[0]], pts[tri[1]], pts[tri[2]]) {
				tris = append(tris, tri)
			}
		}
	}
	return pts, tris
}

// SphereFace: полная сфера, сетка по широте и долготе.
type SphereFace struct {
	Center r3.Vec
	Radius float64
}

func (f *SphereFace) Orientation() Orientation { return Forward }
func (f *SphereFace) Surface() Surface         { return SurfaceSphere }

func (f *SphereFace) Triangulate(deflection float64) ([]r3.Vec, [][3]int) {
	nLat := max(4, arcSegments(f.Radius, math.Pi, deflection))
	nLon := max(8, arcSegments(f.Radius, 2*math.Pi, deflection))
	at := func(theta, phi float64) r3.Vec {
		st, ct := math.Sincos(theta)
		sp, cp := math.Sincos(phi)
		return r3.Add(f.Center, r3.Scale(f.Radius, r3.Vec{X: st * cp, Y: st * sp, Z: ct}))
	}
	pts := []r3.Vec{r3.Add(f.Center, r3.Vec{Z: f.Radius})}
	for i := 1; i < nLat; i++ {
		theta := math.Pi * float64(i) / float64(nLat)
		for j := range nLon {
			pts = append(pts, at(theta, 2*math.Pi*float64(j)/float64(nLon)))
		}
	}
	south := len(pts)
	pts = append(pts, r3.Add(f.Center, r3.Vec{Z: -f.Radius}))

	ring := func(i, j int) int { return 1 + (i-1)*nLon + (j % nLon) }
	var tris [][3]int
	for j := range nLon {
		tris = append(tris, [3]int{0, ring(1, j), ring(1, j+1)})
	}
	for i := 1; i < nLat-1; i++ {
		for j := range nLon {
			a0, a1 := ring(i, j), ring(i, j+1)
			b0, b1 := ring(i+1, j), ring(i+1, j+1)
			tris = append(tris, [3]int{a0, b0, b1}, [3]int{a0, b1, a1})
		}
	}
	for j := range nLon {
		tris = append(tris, [3]int{south, ring(nLat-1, j+1), ring(nLat-1, j)})
	}
	return pts, tris
}

// MeshFace: грань, заданная готовыми треугольниками (результат булевых
// операций). Треугольники уже ориентированы наружу.
type MeshFace struct {
	Points    []r3.Vec
	Triangles [][3]int
	Kind      Surface
}

func (f *MeshFace) Orientation() Orientation { return Forward }
func (f *MeshFace) Surface() Surface         { return f.Kind }

func (f *MeshFace) Triangulate(float64) ([]r3.Vec, [][3]int) {
	return f.Points, f.Triangles
}

// ============================================================
// Helpers
// ============================================================

func degenerate(a, b, c r3.Vec) bool {
	return r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a))) <= 1e-14
}

// outward возвращает треугольники грани, ориентированные наружу.
func outward(f Face, deflection float64) ([]r3.Vec, [][3]int) {
	pts, tris := f.Triangulate(deflection)
	if f.Orientation() == Reversed {
		flipped := make([][3]int, len(tris))
		for i, t := range tris {
			flipped[i] = [3]int{t[0], t[2], t[1]}
		}
		tris = flipped
	}
	return pts, tris
}

// FacePlane возвращает центр и внешнюю нормаль плоской грани.
func FacePlane(f Face, deflection float64) (centroid, normal r3.Vec, ok bool) {
	pts, tris := outward(f, deflection)
	var sum r3.Vec
	var area float64
	for _, t := range tris {
		a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
		cr := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		w := r3.Norm(cr) / 2
		normal = r3.Add(normal, cr)
		sum = r3.Add(sum, r3.Scale(w/3, r3.Add(a, r3.Add(b, c))))
		area += w
	}
	n, ok := geom.Unit3(normal)
	if !ok || area <= 0 {
		return r3.Vec{}, r3.Vec{}, false
	}
	for _, t := range tris {
		a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
		cr := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		tn, ok := geom.Unit3(cr)
		if ok && r3.Dot(tn, n) < 1-1e-6 {
			return r3.Vec{}, r3.Vec{}, false
		}
	}
	return r3.Scale(1/area, sum), n, true
}
