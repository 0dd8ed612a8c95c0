package kernel

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// earClip триангулирует простой многоугольник отсечением ушей.
// Треугольники возвращаются против часовой стрелки.
func earClip(pts []r2.Vec) [][3]int {
	n := len(pts)
	if n < 3 {
		return nil
	}
	idx := make([]int, n)
	var area float64
	for i := range pts {
		area += r2.Cross(pts[i], pts[(i+1)%n])
	}
	for i := range idx {
		if area >= 0 {
			idx[i] = i
		} else {
			idx[i] = n - 1 - i
		}
	}

	const eps = 1e-12
	var tris [][3]int
	for guard := 0; len(idx) > 3 && guard < n*n; guard++ {
		m := len(idx)
		clipped := false
		for i := range m {
			prev, cur, next := idx[(i-1+m)%m], idx[i], idx[(i+1)%m]
			a, b, c := pts[prev], pts[cur], pts[next]
			cross := r2.Cross(r2.Sub(b, a), r2.Sub(c, b))
			if cross <= eps {
				if cross >= -eps {
					// вершина на прямой: убираем без треугольника
					idx = append(idx[:i], idx[i+1:]...)
					clipped = true
					break
				}
				continue
			}
			if containsAny(pts, idx, a, b, c, prev, cur, next) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			break
		}
	}
	if len(idx) == 3 {
		a, b, c := pts[idx[0]], pts[idx[1]], pts[idx[2]]
		if r2.Cross(r2.Sub(b, a), r2.Sub(c, a)) > eps {
			tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
		}
	}
	return tris
}

func containsAny(pts []r2.Vec, idx []int, a, b, c r2.Vec, skip ...int) bool {
	for _, j := range idx {
		if j == skip[0] || j == skip[1] || j == skip[2] {
			continue
		}
		p := pts[j]
		if p == a || p == b || p == c {
			continue
		}
		if inTriangle(p, a, b, c) {
			return true
		}
	}
	return false
}

func inTriangle(p, a, b, c r2.Vec) bool {
	d1 := r2.Cross(r2.Sub(b, a), r2.Sub(p, a))
	d2 := r2.Cross(r2.Sub(c, b), r2.Sub(p, b))
	d3 := r2.Cross(r2.Sub(a, c), r2.Sub(p, c))
	return d1 >= 0 && d2 >= 0 && d3 >= 0
}
