package models

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3) Vec() r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

func FromVec(v r3.Vec) Point3 { return Point3{X: v.X, Y: v.Y, Z: v.Z} }

// ============================================================
// Requests
// ============================================================

// Session: поле session_id, общее для всех запросов. Заголовок
// X-Session-ID используется, если поле пустое.
type Session struct {
	SessionID string `json:"session_id,omitempty"`
}

type PrimitiveRequest struct {
	Session
	Type    string  `json:"type"`
	Origin  Point3  `json:"origin"`
	Axis    *Point3 `json:"axis,omitempty"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Depth   float64 `json:"depth"`
	Radius  float64 `json:"radius"`
	Radius2 float64 `json:"radius2"`
}

type BooleanRequest struct {
	Session
	Operation string `json:"operation"`
	ShapeA    string `json:"shape_a"`
	ShapeB    string `json:"shape_b"`
	ResultID  string `json:"result_id,omitempty"`
	Overwrite bool   `json:"overwrite,omitempty"`
}

type TessellateRequest struct {
	Session
	ShapeID string  `json:"shape_id"`
	Quality float64 `json:"quality"`
}

// PlaneRequest: plane_type XY/XZ/YZ, CUSTOM с normal, либо shape_id + face_index
// для плоскости на грани тела.
type PlaneRequest struct {
	Session
	PlaneType string  `json:"plane_type"`
	Origin    Point3  `json:"origin"`
	Normal    *Point3 `json:"normal,omitempty"`
	ShapeID   string  `json:"shape_id,omitempty"`
	FaceIndex int     `json:"face_index,omitempty"`
}

type SketchRequest struct {
	Session
	PlaneID string `json:"plane_id"`
}

type ElementRequest struct {
	Session
	SketchID    string  `json:"sketch_id"`
	ElementType string  `json:"element_type"`
	Start       Point   `json:"start"`
	End         Point   `json:"end"`
	Mid         Point   `json:"mid"`
	Center      Point   `json:"center"`
	Corner      Point   `json:"corner"`
	Radius      float64 `json:"radius"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Sides       int     `json:"sides"`
	ArcMode     string  `json:"arc_mode,omitempty"`
	LargeArc    bool    `json:"large_arc,omitempty"`
	Clockwise   bool    `json:"clockwise,omitempty"`
}

type EditRequest struct {
	Session
	SketchID     string   `json:"sketch_id"`
	Operation    string   `json:"operation"`
	ElementIDs   []string `json:"element_ids"`
	Target       string   `json:"target_id,omitempty"`
	KeepStart    bool     `json:"keep_start,omitempty"`
	ExtendStart  bool     `json:"extend_start,omitempty"`
	KeepOriginal bool     `json:"keep_original,omitempty"`
	Side         string   `json:"side,omitempty"`
	Radius       float64  `json:"radius,omitempty"`
	Distance     float64  `json:"distance,omitempty"`
	Count        int      `json:"count,omitempty"`
	Angle        float64  `json:"angle,omitempty"`
	Direction    Point    `json:"direction"`
	Point1       Point    `json:"point1"`
	Point2       Point    `json:"point2"`
	Center       Point    `json:"center"`
}

type ImportRequest struct {
	Session
	SketchID string `json:"sketch_id"`
	Path     string `json:"path"`
}

type ExtrudeRequest struct {
	Session
	SketchID      string  `json:"sketch_id"`
	ElementID     string  `json:"element_id,omitempty"`
	ExtrudeType   string  `json:"extrude_type,omitempty"`
	Distance      float64 `json:"distance"`
	Distance2     float64 `json:"distance2,omitempty"`
	Direction     *Point3 `json:"direction,omitempty"`
	Reverse       bool    `json:"reverse,omitempty"`
	TaperAngle    float64 `json:"taper_angle,omitempty"`
	TargetShapeID string  `json:"target_shape_id,omitempty"`
}

// ============================================================
// Responses
// ============================================================

type ShapeInfo struct {
	ShapeID   string  `json:"shape_id"`
	Source    string  `json:"source"`
	Valid     bool    `json:"valid"`
	Volume    float64 `json:"volume"`
	BoundsMin Point3  `json:"bounds_min"`
	BoundsMax Point3  `json:"bounds_max"`
	FaceCount int     `json:"face_count"`
}

// Operation: запись журнала операций сессии.
type Operation struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Operation string `json:"operation"`
	Target    string `json:"target"`
	OK        bool   `json:"ok"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at"`
}
