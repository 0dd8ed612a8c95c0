package sketch

import (
	"strings"

	"cad-service/internal/cad/domain"

	"gonum.org/v1/gonum/spatial/r2"
)

// ============================================================
// Add dispatch
// ============================================================

type ArcMode string

const (
	ArcThreePoints     ArcMode = "three_points"
	ArcEndpointsRadius ArcMode = "endpoints_radius"
	ArcCenterPoints    ArcMode = "center"
)

// AddRequest: параметры добавления элемента; используемые поля зависят от Type.
type AddRequest struct {
	Type Type

	Start  r2.Vec
	End    r2.Vec
	Mid    r2.Vec
	Center r2.Vec
	Corner r2.Vec

	Radius float64
	Width  float64
	Height float64
	Sides  int

	ArcMode   ArcMode
	LargeArc  bool
	Clockwise bool
}

// Add создаёт элемент по запросу и возвращает его id.
func (s *Sketch) Add(req AddRequest) (string, error) {
	switch req.Type {
	case Line:
		return s.AddLine(req.Start, req.End)
	case Circle:
		return s.AddCircle(req.Center, req.Radius)
	case Rectangle:
		return s.AddRectangle(req.Corner, req.Width, req.Height)
	case Polygon:
		return s.AddPolygon(req.Center, req.Sides, req.Radius)
	case Arc:
		mode := req.ArcMode
		if mode == "" {
			mode = ArcThreePoints
			if req.Radius > 0 {
				mode = ArcEndpointsRadius
			}
		}
		switch mode {
		case ArcThreePoints:
			return s.AddArcThreePoints(req.Start, req.Mid, req.End)
		case ArcEndpointsRadius:
			return s.AddArcEndpoints(req.Start, req.End, req.Radius, req.LargeArc)
		case ArcCenterPoints:
			return s.AddArcCenter(req.Center, req.Start, req.End, req.Clockwise)
		}
		return "", domain.Degenerate("unknown arc mode %q", mode)
	case Fillet, Chamfer:
		return "", domain.Degenerate("%s is created by editing two lines", req.Type)
	}
	return "", domain.Degenerate("unknown element type %q", req.Type)
}

// ============================================================
// Edit dispatch
// ============================================================

type EditOp string

const (
	OpTrim              EditOp = "trim"
	OpTrimToGeometry    EditOp = "trim_to_geometry"
	OpExtend            EditOp = "extend"
	OpExtendToGeometry  EditOp = "extend_to_geometry"
	OpFillet            EditOp = "fillet"
	OpChamfer           EditOp = "chamfer"
	OpMirror            EditOp = "mirror"
	OpMirrorByPoints    EditOp = "mirror_by_points"
	OpOffset            EditOp = "offset"
	OpOffsetDirectional EditOp = "offset_directional"
	OpCopy              EditOp = "copy"
	OpMove              EditOp = "move"
	OpCircularArray     EditOp = "circular_array"
	OpRemove            EditOp = "remove"
)

// ParseEditOp разбирает имя операции, допуская дефисы.
func ParseEditOp(s string) (EditOp, error) {
	op := EditOp(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch op {
	case OpTrim, OpTrimToGeometry, OpExtend, OpExtendToGeometry, OpFillet, OpChamfer,
		OpMirror, OpMirrorByPoints, OpOffset, OpOffsetDirectional, OpCopy, OpMove,
		OpCircularArray, OpRemove:
		return op, nil
	}
	return "", domain.Degenerate("unknown edit operation %q", s)
}

// EditRequest: параметры правки. IDs: изменяемые элементы, Target:
// режущая, целевая или зеркальная линия.
type EditRequest struct {
	Op     EditOp
	IDs    []string
	Target string

	KeepStart    bool
	ExtendStart  bool
	KeepOriginal bool
	Side         Side

	Radius    float64
	Distance  float64
	Count     int
	Angle     float64
	Direction r2.Vec
	Point1    r2.Vec
	Point2    r2.Vec
	Center    r2.Vec
}

// Edit применяет правку и возвращает id затронутых элементов.
func (s *Sketch) Edit(req EditRequest) ([]string, error) {
	need := 1
	switch req.Op {
	case OpFillet, OpChamfer:
		need = 2
	}
	if len(req.IDs) < need {
		return nil, domain.Degenerate("%s needs %d element id(s), got %d", req.Op, need, len(req.IDs))
	}
	id := req.IDs[0]
	switch req.Op {
	case OpTrim:
		return one(id, s.TrimLineToLine(id, req.Target, req.KeepStart))
	case OpTrimToGeometry:
		return one(id, s.TrimLineToGeometry(id, req.Target, req.KeepStart))
	case OpExtend:
		return one(id, s.ExtendLineToLine(id, req.Target, req.ExtendStart))
	case OpExtendToGeometry:
		return one(id, s.ExtendLineToGeometry(id, req.Target, req.ExtendStart))
	case OpFillet:
		return s.AddFillet(req.IDs[0], req.IDs[1], req.Radius)
	case OpChamfer:
		return s.AddChamfer(req.IDs[0], req.IDs[1], req.Distance)
	case OpMirror:
		return s.MirrorByLine(req.IDs, req.Target, req.KeepOriginal)
	case OpMirrorByPoints:
		return s.MirrorByTwoPoints(req.IDs, req.Point1, req.Point2, req.KeepOriginal)
	case OpOffset:
		newID, err := s.Offset(id, req.Distance)
		return one(newID, err)
	case OpOffsetDirectional:
		newID, err := s.OffsetDirectional(id, req.Distance, req.Side)
		return one(newID, err)
	case OpCopy:
		return s.Copy(id, req.Count, req.Direction.X, req.Direction.Y, req.Distance)
	case OpMove:
		return one(id, s.Move(id, req.Direction.X, req.Direction.Y, req.Distance))
	case OpCircularArray:
		return s.CircularArray(id, req.Count, req.Center, req.Angle)
	case OpRemove:
		return s.Remove(id)
	}
	return nil, domain.Degenerate("unknown edit operation %q", req.Op)
}

func one(id string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{id}, nil
}
