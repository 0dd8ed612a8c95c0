package engine

import (
	"strconv"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/kernel"
	"cad-service/internal/cad/plane"
	"cad-service/internal/common/logging"

	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Planes
// ============================================================

// CreatePlane создаёт каноническую плоскость XY, XZ или YZ.
func (e *Engine) CreatePlane(t plane.Type, origin r3.Vec) (string, error) {
	p, err := plane.New("", t, origin)
	if err != nil {
		return "", err
	}
	return e.addPlane(p), nil
}

// CreateCustomPlane создаёт плоскость по точке и нормали.
func (e *Engine) CreateCustomPlane(origin, normal r3.Vec) (string, error) {
	p, err := plane.FromNormal("", origin, normal)
	if err != nil {
		return "", err
	}
	return e.addPlane(p), nil
}

// CreatePlaneOnFace строит плоскость на плоской грани тела: начало в центре
// грани, нормаль наружу.
func (e *Engine) CreatePlaneOnFace(shapeID string, faceIndex int) (string, error) {
	sh, err := e.Shape(shapeID)
	if err != nil {
		return "", err
	}
	if faceIndex < 0 || faceIndex >= len(sh.Solid.Faces) {
		return "", domain.NotFound("face", shapeID+"#"+strconv.Itoa(faceIndex))
	}
	center, normal, ok := kernel.FacePlane(sh.Solid.Faces[faceIndex], e.opts.BooleanDeflection)
	if !ok {
		return "", domain.Degenerate("face %d of shape %q is not planar", faceIndex, shapeID)
	}
	return e.CreateCustomPlane(center, normal)
}

func (e *Engine) hasPlane(id string) bool {
	_, ok := e.planes[id]
	return ok
}

func (e *Engine) addPlane(p *plane.Plane) string {
	p.ID = e.nextID("plane", e.hasPlane)
	e.planes[p.ID] = p
	e.planeOrder = append(e.planeOrder, p.ID)
	logging.Logf("[PLANE] created %s", p)
	return p.ID
}
