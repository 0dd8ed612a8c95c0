package kernel

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Boolean operations (BSP trees)
// ============================================================

const csgEpsilon = 1e-5

type bspPlane struct {
	n r3.Vec
	w float64
}

func planeThrough(a, b, c r3.Vec) (bspPlane, bool) {
	cr := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	l := r3.Norm(cr)
	if l <= 1e-14 {
		return bspPlane{}, false
	}
	n := r3.Scale(1/l, cr)
	return bspPlane{n: n, w: r3.Dot(n, a)}, true
}

func (p bspPlane) flipped() bspPlane { return bspPlane{n: r3.Scale(-1, p.n), w: -p.w} }

// polygon: выпуклый многоугольник; tag хранит номер исходной грани.
type polygon struct {
	verts []r3.Vec
	plane bspPlane
	tag   int
}

func (p polygon) flipped() polygon {
	v := slices.Clone(p.verts)
	slices.Reverse(v)
	return polygon{verts: v, plane: p.plane.flipped(), tag: p.tag}
}

const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = 3
)

// split раскладывает многоугольник относительно плоскости.
func (p bspPlane) split(poly polygon, coFront, coBack, fr, bk *[]polygon) {
	types := make([]int, len(poly.verts))
	kind := 0
	for i, v := range poly.verts {
		t := r3.Dot(p.n, v) - p.w
		switch {
		case t < -csgEpsilon:
			types[i] = back
		case t > csgEpsilon:
			types[i] = front
		default:
			types[i] = coplanar
		}
		kind |= types[i]
	}
	switch kind {
	case coplanar:
		if r3.Dot(p.n, poly.plane.n) > 0 {
			*coFront = append(*coFront, poly)
		} else {
			*coBack = append(*coBack, poly)
		}
	case front:
		*fr = append(*fr, poly)
	case back:
		*bk = append(*bk, poly)
	default:
		var f, b []r3.Vec
		n := len(poly.verts)
		for i := range n {
			j := (i + 1) % n
			ti, tj := types[i], types[j]
			vi, vj := poly.verts[i], poly.verts[j]
			if ti != back {
				f = append(f, vi)
			}
			if ti != front {
				b = append(b, vi)
			}
			if ti|tj == spanning {
				t := (p.w - r3.Dot(p.n, vi)) / r3.Dot(p.n, r3.Sub(vj, vi))
				v := r3.Add(vi, r3.Scale(t, r3.Sub(vj, vi)))
				f = append(f, v)
				b = append(b, v)
			}
		}
		if len(f) >= 3 {
			*fr = append(*fr, polygon{verts: f, plane: poly.plane, tag: poly.tag})
		}
		if len(b) >= 3 {
			*bk = append(*bk, polygon{verts: b, plane: poly.plane, tag: poly.tag})
		}
	}
}

type bspNode struct {
	plane *bspPlane
	front *bspNode
	back  *bspNode
	polys []polygon
}

func newNode(polys []polygon) *bspNode {
	n := &bspNode{}
	n.build(polys)
	return n
}

func (n *bspNode) build(polys []polygon) {
	if len(polys) == 0 {
		return
	}
	if n.plane == nil {
		p := polys[0].plane
		n.plane = &p
	}
	var fr, bk []polygon
	for _, poly := range polys {
		n.plane.split(poly, &n.polys, &n.polys, &fr, &bk)
	}
	if len(fr) > 0 {
		if n.front == nil {
			n.front = &bspNode{}
		}
		n.front.build(fr)
	}
	if len(bk) > 0 {
		if n.back == nil {
			n.back = &bspNode{}
		}
		n.back.build(bk)
	}
}

func (n *bspNode) invert() {
	for i, p := range n.polys {
		n.polys[i] = p.flipped()
	}
	if n.plane != nil {
		f := n.plane.flipped()
		n.plane = &f
	}
	if n.front != nil {
		n.front.invert()
	}
	if n.back != nil {
		n.back.invert()
	}
	n.front, n.back = n.back, n.front
}

func (n *bspNode) clipPolygons(polys []polygon) []polygon {
	if n.plane == nil {
		return slices.Clone(polys)
	}
	var fr, bk []polygon
	for _, p := range polys {
		n.plane.split(p, &fr, &bk, &fr, &bk)
	}
	if n.front != nil {
		fr = n.front.clipPolygons(fr)
	}
	if n.back != nil {
		bk = n.back.clipPolygons(bk)
	} else {
		bk = nil
	}
	return append(fr, bk...)
}

func (n *bspNode) clipTo(other *bspNode) {
	n.polys = other.clipPolygons(n.polys)
	if n.front != nil {
		n.front.clipTo(other)
	}
	if n.back != nil {
		n.back.clipTo(other)
	}
}

func (n *bspNode) all() []polygon {
	out := slices.Clone(n.polys)
	if n.front != nil {
		out = append(out, n.front.all()...)
	}
	if n.back != nil {
		out = append(out, n.back.all()...)
	}
	return out
}

// ============================================================
// Solid booleans
// ============================================================

// Union объединяет тела.
func Union(a, b *Solid, deflection float64) *Solid {
	pa, pb, kinds := toPolygons(a, b, deflection)
	na, nb := newNode(pa), newNode(pb)
	na.clipTo(nb)
	nb.clipTo(na)
	nb.invert()
	nb.clipTo(na)
	nb.invert()
	na.build(nb.all())
	return fromPolygons(na.all(), kinds)
}

// Subtract вычитает b из a.
func Subtract(a, b *Solid, deflection float64) *Solid {
	pa, pb, kinds := toPolygons(a, b, deflection)
	na, nb := newNode(pa), newNode(pb)
	na.invert()
	na.clipTo(nb)
	nb.clipTo(na)
	nb.invert()
	nb.clipTo(na)
	nb.invert()
	na.build(nb.all())
	na.invert()
	return fromPolygons(na.all(), kinds)
}

// Intersect оставляет общую часть тел.
func Intersect(a, b *Solid, deflection float64) *Solid {
	pa, pb, kinds := toPolygons(a, b, deflection)
	na, nb := newNode(pa), newNode(pb)
	na.invert()
	nb.clipTo(na)
	nb.invert()
	na.clipTo(nb)
	nb.clipTo(na)
	na.build(nb.all())
	na.invert()
	return fromPolygons(na.all(), kinds)
}

// toPolygons переводит грани обоих тел в треугольники, помеченные номером
// грани в общей нумерации.
func toPolygons(a, b *Solid, deflection float64) ([]polygon, []polygon, []Surface) {
	var kinds []Surface
	conv := func(s *Solid) []polygon {
		var out []polygon
		for _, f := range s.Faces {
			tag := len(kinds)
			kinds = append(kinds, f.Surface())
			pts, tris := outward(f, deflection)
			for _, t := range tris {
				v := []r3.Vec{pts[t[0]], pts[t[1]], pts[t[2]]}
				pl, ok := planeThrough(v[0], v[1], v[2])
				if !ok {
					continue
				}
				out = append(out, polygon{verts: v, plane: pl, tag: tag})
			}
		}
		return out
	}
	return conv(a), conv(b), kinds
}

// fromPolygons собирает грани результата: многоугольники с одной исходной
// гранью объединяются в MeshFace с общими вершинами.
func fromPolygons(polys []polygon, kinds []Surface) *Solid {
	type key struct{ x, y, z int64 }
	q := func(v r3.Vec) key {
		const scale = 1e9
		return key{int64(math.Round(v.X * scale)), int64(math.Round(v.Y * scale)), int64(math.Round(v.Z * scale))}
	}
	faces := make(map[int]*MeshFace)
	index := make(map[int]map[key]int)
	var order []int
	for _, p := range polys {
		f, ok := faces[p.tag]
		if !ok {
			kind := SurfaceFaceted
			if kinds[p.tag] == SurfacePlane {
				kind = SurfacePlane
			}
			f = &MeshFace{Kind: kind}
			faces[p.tag] = f
			index[p.tag] = make(map[key]int)
			order = append(order, p.tag)
		}
		ids := make([]int, len(p.verts))
		for i, v := range p.verts {
			k := q(v)
			id, seen := index[p.tag][k]
			if !seen {
				id = len(f.Points)
				f.Points = append(f.Points, v)
				index[p.tag][k] = id
			}
			ids[i] = id
		}
		for i := 1; i+1 < len(ids); i++ {
			t := [3]int{ids[0], ids[i], ids[i+1]}
			if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
				continue
			}
			if degenerate(f.Points[t[0]], f.Points[t[1]], f.Points[t[2]]) {
				continue
			}
			f.Triangles = append(f.Triangles, t)
		}
	}
	slices.Sort(order)
	s := &Solid{}
	for _, tag := range order {
		if f := faces[tag]; len(f.Triangles) > 0 {
			s.Faces = append(s.Faces, f)
		}
	}
	return s
}
