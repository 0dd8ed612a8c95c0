package engine

import (
	"fmt"
	"slices"
	"strings"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/feature"
	"cad-service/internal/cad/kernel"
	"cad-service/internal/common/logging"

	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Extrude
// ============================================================

// ExtrudeResult: id операции и созданного тела.
type ExtrudeResult struct {
	FeatureID string
	ShapeID   string
}

// Extrude выдавливает эскиз (или один его элемент, если elementID не пуст)
// и регистрирует результат как новое тело. Неудачная операция тоже
// записывается, с Valid=false и без тела; её id возвращается вместе с ошибкой.
func (e *Engine) Extrude(sketchID, elementID string, p feature.Params) (ExtrudeResult, error) {
	s, pl, err := e.Sketch(sketchID)
	if err != nil {
		return ExtrudeResult{}, err
	}
	f := feature.New("", sketchID, elementID, p)
	solid, err := f.Execute(feature.Source{Sketch: s, Plane: pl}, solids{e}, e.opts.BooleanDeflection)
	f.ID = e.nextID("extrude", func(id string) bool {
		_, ok := e.features[id]
		return ok
	})
	e.features[f.ID] = f
	e.featureOrder = append(e.featureOrder, f.ID)
	if err != nil {
		logging.Logf("[ENGINE] %s failed: %v", f, err)
		return ExtrudeResult{FeatureID: f.ID}, fmt.Errorf("%s: %w", f.ID, err)
	}

	f.ResultShapeID = e.nextID("shape", e.hasShape)
	e.registerShape(&Shape{ID: f.ResultShapeID, Solid: solid, Valid: f.Valid, Source: f.ID})
	logging.Logf("[ENGINE] %s -> %s", f, f.ResultShapeID)
	return ExtrudeResult{FeatureID: f.ID, ShapeID: f.ResultShapeID}, nil
}

// ============================================================
// Booleans
// ============================================================

// BooleanKind: вид булевой операции.
type BooleanKind string

const (
	Union     BooleanKind = "union"
	Cut       BooleanKind = "cut"
	Intersect BooleanKind = "intersect"
)

// ParseBooleanKind принимает также "subtract", "difference" и "intersection".
func ParseBooleanKind(s string) (BooleanKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "union", "fuse":
		return Union, nil
	case "cut", "subtract", "difference":
		return Cut, nil
	case "intersect", "intersection", "common":
		return Intersect, nil
	}
	return "", domain.Unsupported("boolean operation %q", s)
}

// Boolean выполняет операцию над телами a и b. При пустом resultID выдаётся новый id;
// существующий id заменяется только при overwrite.
func (e *Engine) Boolean(kind BooleanKind, a, b, resultID string, overwrite bool) (string, error) {
	sa, err := e.Shape(a)
	if err != nil {
		return "", err
	}
	sb, err := e.Shape(b)
	if err != nil {
		return "", err
	}
	if resultID != "" && e.hasShape(resultID) && !overwrite {
		return "", domain.AlreadyExists("shape", resultID)
	}

	d := e.opts.BooleanDeflection
	var out *kernel.Solid
	switch kind {
	case Union:
		out = kernel.Union(sa.Solid, sb.Solid, d)
	case Cut:
		out = kernel.Subtract(sa.Solid, sb.Solid, d)
	case Intersect:
		out = kernel.Intersect(sa.Solid, sb.Solid, d)
	default:
		return "", domain.Unsupported("boolean operation %q", kind)
	}
	if err := kernel.Check(out, d); err != nil {
		logging.Logf("[ENGINE] %s(%s, %s) failed: %v", kind, a, b, err)
		return "", err
	}

	if resultID == "" {
		resultID = e.nextID("shape", e.hasShape)
	}
	e.registerShape(&Shape{ID: resultID, Solid: out, Valid: true, Source: string(kind)})
	logging.Logf("[ENGINE] %s(%s, %s) -> %s", kind, a, b, resultID)
	return resultID, nil
}

func (e *Engine) Union(a, b, resultID string) (string, error) {
	return e.Boolean(Union, a, b, resultID, false)
}

func (e *Engine) Cut(a, b, resultID string) (string, error) {
	return e.Boolean(Cut, a, b, resultID, false)
}

func (e *Engine) Intersect(a, b, resultID string) (string, error) {
	return e.Boolean(Intersect, a, b, resultID, false)
}

// ============================================================
// Inspection
// ============================================================

// Tessellate триангулирует тело. Неизвестный id даёт пустую сетку, а не ошибку.
// quality <= 0 означает качество по умолчанию.
func (e *Engine) Tessellate(shapeID string, quality float64) kernel.MeshData {
	if !(quality > 0) {
		quality = e.opts.DefaultQuality
	}
	sh, ok := e.shapes[shapeID]
	if !ok {
		logging.Logf("[ENGINE] tessellate: unknown shape %q, returning empty mesh", shapeID)
		return kernel.EmptyMesh(quality)
	}
	return kernel.Tessellate(sh.Solid, quality)
}

// ShapeInfo: сводка по телу.
type ShapeInfo struct {
	ID        string
	Source    string
	Valid     bool
	Volume    float64
	Bounds    r3.Box
	FaceCount int
}

func (e *Engine) ShapeInfo(id string) (ShapeInfo, error) {
	sh, err := e.Shape(id)
	if err != nil {
		return ShapeInfo{}, err
	}
	d := e.opts.DefaultQuality
	b, _ := kernel.Bounds(sh.Solid, d)
	return ShapeInfo{
		ID:        sh.ID,
		Source:    sh.Source,
		Valid:     sh.Valid,
		Volume:    kernel.Volume(sh.Solid, d),
		Bounds:    b,
		FaceCount: len(sh.Solid.Faces),
	}, nil
}

// RemoveShape удаляет тело. Операции, создавшие его, остаются в истории.
func (e *Engine) RemoveShape(id string) error {
	if !e.hasShape(id) {
		return domain.NotFound("shape", id)
	}
	delete(e.shapes, id)
	e.shapeOrder = slices.DeleteFunc(e.shapeOrder, func(s string) bool { return s == id })
	logging.Logf("[ENGINE] removed %s", id)
	return nil
}
