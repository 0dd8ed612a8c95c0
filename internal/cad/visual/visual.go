package visual

import (
	"math"

	"cad-service/internal/cad/geom"
	"cad-service/internal/cad/plane"
	"cad-service/internal/cad/sketch"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Display payloads
// ============================================================

const (
	circleSegments = 16
	arcSegments    = 16
	filletSegments = 8
)

// PlanePayload: рамка плоскости для отрисовки на клиенте.
type PlanePayload struct {
	PlaneID   string     `json:"plane_id"`
	PlaneType string     `json:"plane_type"`
	Origin    [3]float64 `json:"origin"`
	Normal    [3]float64 `json:"normal"`
	UAxis     [3]float64 `json:"u_axis"`
	VAxis     [3]float64 `json:"v_axis"`
	Size      float64    `json:"size"`
}

// SketchPayload: рамка плоскости эскиза и число элементов.
type SketchPayload struct {
	SketchID string `json:"sketch_id"`
	PlanePayload
	ElementCount int `json:"element_count"`
}

// ElementPayload: ломаная элемента в мировых координатах (x, y, z подряд)
// и его параметры в координатах плоскости.
type ElementPayload struct {
	ElementID    string             `json:"element_id"`
	SketchID     string             `json:"sketch_id"`
	ElementType  string             `json:"element_type"`
	ParentID     string             `json:"parent_id,omitempty"`
	Points3D     []float64          `json:"points_3d"`
	Parameters2D map[string]float64 `json:"parameters_2d"`
}

// Projector строит payload'ы. Size задаёт сторону отображаемого квадрата плоскости.
type Projector struct {
	Size float64
}

func New(size float64) *Projector {
	if !(size > 0) {
		size = 100
	}
	return &Projector{Size: size}
}

func vec(v r3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func (p *Projector) Plane(pl *plane.Plane) PlanePayload {
	return PlanePayload{
		PlaneID:   pl.ID,
		PlaneType: string(pl.Type),
		Origin:    vec(pl.Origin),
		Normal:    vec(pl.Normal),
		UAxis:     vec(pl.U),
		VAxis:     vec(pl.V),
		Size:      p.Size,
	}
}

func (p *Projector) Sketch(s *sketch.Sketch, pl *plane.Plane) SketchPayload {
	return SketchPayload{
		SketchID:     s.ID,
		PlanePayload: p.Plane(pl),
		ElementCount: s.Len(),
	}
}

// Element проецирует элемент на плоскость эскиза.
func (p *Projector) Element(s *sketch.Sketch, pl *plane.Plane, id string) (ElementPayload, error) {
	e, err := s.Element(id)
	if err != nil {
		return ElementPayload{}, err
	}

	pts, err := outline(s, e)
	if err != nil {
		return ElementPayload{}, err
	}

	flat := make([]float64, 0, 3*len(pts))
	for _, q := range pts {
		w := pl.To3D(q)
		flat = append(flat, w.X, w.Y, w.Z)
	}
	return ElementPayload{
		ElementID:    e.ID,
		SketchID:     s.ID,
		ElementType:  string(e.Type),
		ParentID:     e.ParentID,
		Points3D:     flat,
		Parameters2D: e.Params(),
	}, nil
}

// outline: ломаная элемента в координатах эскиза. Контейнер обходится
// по началам своих линий и замыкается.
func outline(s *sketch.Sketch, e sketch.Element) ([]r2.Vec, error) {
	var pts []r2.Vec
	switch e.Type {
	case sketch.Line, sketch.Chamfer:
		pts = []r2.Vec{e.Start, e.End}
	case sketch.Circle:
		pts = arc(e.Center, e.Radius, 0, 2*math.Pi, circleSegments)
		pts[len(pts)-1] = pts[0]
	case sketch.Arc, sketch.Fillet:
		n := arcSegments
		if e.Type == sketch.Fillet {
			n = filletSegments
		}
		start, sweep := e.ArcAngles()
		pts = arc(e.Center, e.Radius, start, sweep, n)
		pts[0], pts[len(pts)-1] = e.Start, e.End
	case sketch.Rectangle, sketch.Polygon:
		for _, child := range e.Children {
			c, err := s.Element(child)
			if err != nil {
				return nil, err
			}
			pts = append(pts, c.Start)
		}
		if len(pts) > 0 {
			pts = append(pts, pts[0])
		}
	}
	return pts, nil
}

func arc(center r2.Vec, radius, start, sweep float64, n int) []r2.Vec {
	pts := make([]r2.Vec, n+1)
	for i := range pts {
		a := start + sweep*float64(i)/float64(n)
		pts[i] = geom.Polar(center, radius, a)
	}
	return pts
}
