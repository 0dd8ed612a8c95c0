package kernel

import (
	"cad-service/internal/cad/geom"

	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Tessellation
// ============================================================

type MeshMetadata struct {
	VertexCount int     `json:"vertex_count"`
	FaceCount   int     `json:"face_count"`
	Quality     float64 `json:"tessellation_quality"`
}

// MeshData: треугольная сетка для отображения, плоские массивы координат,
// нормалей и индексов.
type MeshData struct {
	Vertices []float32    `json:"vertices"`
	Normals  []float32    `json:"normals"`
	Faces    []uint32     `json:"faces"`
	Metadata MeshMetadata `json:"metadata"`
}

// EmptyMesh: сетка без треугольников с заданным качеством.
func EmptyMesh(quality float64) MeshData {
	return MeshData{
		Vertices: []float32{},
		Normals:  []float32{},
		Faces:    []uint32{},
		Metadata: MeshMetadata{Quality: quality},
	}
}

// Tessellate триангулирует каждую грань с отклонением quality. Нормали
// вершин считаются после триангуляции по площадям треугольников грани;
// у обратных граней меняются местами второй и третий индексы.
func Tessellate(s *Solid, quality float64) MeshData {
	if !(quality > 0) {
		quality = DefaultDeflection
	}
	m := EmptyMesh(quality)
	if s == nil {
		return m
	}
	for _, f := range s.Faces {
		pts, tris := f.Triangulate(quality)
		if len(tris) == 0 {
			continue
		}
		base := uint32(len(m.Vertices) / 3)
		normals := vertexNormals(pts, tris)
		reversed := f.Orientation() == Reversed
		for i, p := range pts {
			n := normals[i]
			if reversed {
				n = r3.Scale(-1, n)
			}
			m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		for _, t := range tris {
			a, b, c := base+uint32(t[0]), base+uint32(t[1]), base+uint32(t[2])
			if reversed {
				b, c = c, b
			}
			m.Faces = append(m.Faces, a, b, c)
		}
	}
	m.Metadata.VertexCount = len(m.Vertices) / 3
	m.Metadata.FaceCount = len(m.Faces) / 3
	return m
}

func vertexNormals(pts []r3.Vec, tris [][3]int) []r3.Vec {
	acc := make([]r3.Vec, len(pts))
	var total r3.Vec
	for _, t := range tris {
		a, b, c := pts[t[0]], pts[t[1]], pts[t[2]]
		cr := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		total = r3.Add(total, cr)
		for _, i := range t {
			acc[i] = r3.Add(acc[i], cr)
		}
	}
	fallback, _ := geom.Unit3(total)
	for i, n := range acc {
		if u, ok := geom.Unit3(n); ok {
			acc[i] = u
		} else {
			acc[i] = fallback
		}
	}
	return acc
}

// Volume: объём по сетке (для проверок результата).
func (m MeshData) Volume() float64 {
	var v float64
	at := func(i uint32) r3.Vec {
		return r3.Vec{X: float64(m.Vertices[3*i]), Y: float64(m.Vertices[3*i+1]), Z: float64(m.Vertices[3*i+2])}
	}
	for i := 0; i+2 < len(m.Faces); i += 3 {
		a, b, c := at(m.Faces[i]), at(m.Faces[i+1]), at(m.Faces[i+2])
		v += r3.Dot(a, r3.Cross(b, c))
	}
	return v / 6
}
