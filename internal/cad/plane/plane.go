package plane

import (
	"fmt"
	"strings"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Plane Types
// ============================================================

type Type string

const (
	XY     Type = "XY"
	XZ     Type = "XZ"
	YZ     Type = "YZ"
	Custom Type = "CUSTOM"
)

// ParseType принимает "XY", "xz", "custom" и т.п.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case XY, XZ, YZ, Custom:
		return t, nil
	}
	return "", domain.Degenerate("unknown plane type %q", s)
}

// ============================================================
// Plane
// ============================================================

// Plane: неизменяемая правая ортонормированная система координат эскиза.
type Plane struct {
	ID     string
	Type   Type
	Origin r3.Vec
	Normal r3.Vec
	U      r3.Vec
	V      r3.Vec
}

// New создаёт каноническую плоскость. Custom требует нормаль, см. FromNormal.
func New(id string, t Type, origin r3.Vec) (*Plane, error) {
	if !geom.Finite3(origin) {
		return nil, domain.Degenerate("plane origin is not finite")
	}
	p := &Plane{ID: id, Type: t, Origin: origin}
	switch t {
	case XY:
		p.U, p.V, p.Normal = r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1}
	case XZ:
		p.U, p.V, p.Normal = r3.Vec{X: 1}, r3.Vec{Z: -1}, r3.Vec{Y: 1}
	case YZ:
		p.U, p.V, p.Normal = r3.Vec{Y: 1}, r3.Vec{Z: 1}, r3.Vec{X: 1}
	case Custom:
		return nil, domain.Degenerate("custom plane %q needs a normal", id)
	default:
		return nil, domain.Degenerate("unknown plane type %q", t)
	}
	return p, nil
}

// FromNormal создаёт произвольную плоскость по точке и нормали.
func FromNormal(id string, origin, normal r3.Vec) (*Plane, error) {
	if !geom.Finite3(origin) {
		return nil, domain.Degenerate("plane origin is not finite")
	}
	n, ok := geom.Unit3(normal)
	if !ok {
		return nil, domain.Degenerate("plane normal has zero length")
	}
	u, v := geom.Orthonormal(n)
	return &Plane{ID: id, Type: Custom, Origin: origin, Normal: n, U: u, V: v}, nil
}

// To3D переводит локальные координаты эскиза в мировые.
func (p *Plane) To3D(q r2.Vec) r3.Vec {
	return r3.Add(p.Origin, r3.Add(r3.Scale(q.X, p.U), r3.Scale(q.Y, p.V)))
}

// Dir3D переводит локальное направление в мировое (без сдвига в origin).
func (p *Plane) Dir3D(d r2.Vec) r3.Vec {
	return r3.Add(r3.Scale(d.X, p.U), r3.Scale(d.Y, p.V))
}

// To2D проецирует мировую точку в координаты плоскости.
func (p *Plane) To2D(q r3.Vec) r2.Vec {
	d := r3.Sub(q, p.Origin)
	return r2.Vec{X: r3.Dot(d, p.U), Y: r3.Dot(d, p.V)}
}

// Distance: знаковое расстояние точки от плоскости вдоль нормали.
func (p *Plane) Distance(q r3.Vec) float64 {
	return r3.Dot(r3.Sub(q, p.Origin), p.Normal)
}

func (p *Plane) String() string {
	return fmt.Sprintf("%s(%s @ %.3g,%.3g,%.3g)", p.ID, p.Type, p.Origin.X, p.Origin.Y, p.Origin.Z)
}
