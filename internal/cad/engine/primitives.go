package engine

import (
	"strings"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/kernel"
	"cad-service/internal/common/logging"

	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Primitives
// ============================================================

// PrimitiveParams: параметры примитива. Axis == 0 означает +Z.
//
//	box:      Origin, Width, Height, Depth
//	cylinder: Origin (центр основания), Axis, Radius, Height
//	cone:     Origin, Axis, Radius (основание), Radius2 (вершина), Height
//	sphere:   Origin (центр), Radius
type PrimitiveParams struct {
	Origin  r3.Vec
	Axis    r3.Vec
	Width   float64
	Height  float64
	Depth   float64
	Radius  float64
	Radius2 float64
}

// CreatePrimitive строит примитив, проверяет его и регистрирует как новое тело.
func (e *Engine) CreatePrimitive(kind string, p PrimitiveParams) (string, error) {
	axis := p.Axis
	if axis == (r3.Vec{}) {
		axis = r3.Vec{Z: 1}
	}

	var s *kernel.Solid
	var err error
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "box":
		s, err = kernel.Box(p.Origin, p.Width, p.Height, p.Depth)
	case "cylinder":
		s, err = kernel.Cylinder(p.Origin, axis, p.Radius, p.Height)
	case "cone":
		s, err = kernel.Cone(p.Origin, axis, p.Radius, p.Radius2, p.Height)
	case "sphere":
		s, err = kernel.Sphere(p.Origin, p.Radius)
	default:
		return "", domain.Unsupported("primitive %q", kind)
	}
	if err != nil {
		return "", err
	}
	if err := kernel.Check(s, e.opts.BooleanDeflection); err != nil {
		return "", err
	}

	id := e.nextID("shape", e.hasShape)
	e.registerShape(&Shape{ID: id, Solid: s, Valid: true, Source: kind})
	logging.Logf("[ENGINE] %s created as %s", kind, id)
	return id, nil
}
