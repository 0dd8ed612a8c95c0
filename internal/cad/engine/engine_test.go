package engine

import (
	"errors"
	"math"
	"strings"
	"testing"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/feature"
	"cad-service/internal/cad/plane"
	"cad-service/internal/cad/sketch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func newSketch(t *testing.T, e *Engine, pt plane.Type) string {
	t.Helper()
	pid, err := e.CreatePlane(pt, r3.Vec{})
	require.NoError(t, err)
	sid, err := e.CreateSketch(pid)
	require.NoError(t, err)
	return sid
}

func TestFilletScenarioOnXZ(t *testing.T) {
	e := New(Options{})
	sid := newSketch(t, e, plane.XZ)

	l1, err := e.AddElement(sid, sketch.AddRequest{Type: sketch.Line, Start: r2.Vec{}, End: r2.Vec{X: 10}})
	require.NoError(t, err)
	l2, err := e.AddElement(sid, sketch.AddRequest{Type: sketch.Line, Start: r2.Vec{X: 10}, End: r2.Vec{X: 10, Y: 10}})
	require.NoError(t, err)

	ids, err := e.EditElement(sid, sketch.EditRequest{Op: sketch.OpFillet, IDs: []string{l1, l2}, Radius: 2})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, []string{l1, l2}, ids[1:])

	s, _, err := e.Sketch(sid)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.Validate())

	first, err := s.Element(l1)
	require.NoError(t, err)
	second, err := s.Element(l2)
	require.NoError(t, err)
	assert.InDelta(t, 8, first.Length(), 1e-9)
	assert.InDelta(t, 8, second.Length(), 1e-9)
	assert.InDelta(t, 8, first.End.X, 1e-9)
	assert.InDelta(t, 2, second.Start.Y, 1e-9)

	fillet, err := s.Element(ids[0])
	require.NoError(t, err)
	assert.Equal(t, sketch.Fillet, fillet.Type)
	assert.Equal(t, r2.Vec{X: 8, Y: 2}, roundVec(fillet.Center))
}

func roundVec(v r2.Vec) r2.Vec {
	return r2.Vec{X: math.Round(v.X*1e9) / 1e9, Y: math.Round(v.Y*1e9) / 1e9}
}

func TestRectangleExtrudeVolume(t *testing.T) {
	e := New(Options{})
	sid := newSketch(t, e, plane.XY)
	_, err := e.AddElement(sid, sketch.AddRequest{Type: sketch.Rectangle, Width: 10, Height: 5})
	require.NoError(t, err)

	res, err := e.Extrude(sid, "", feature.Params{Type: feature.Blind, Distance: 20})
	require.NoError(t, err)
	assert.Equal(t, "extrude_1", res.FeatureID)
	assert.Equal(t, "shape_1", res.ShapeID)

	info, err := e.ShapeInfo(res.ShapeID)
	require.NoError(t, err)
	assert.InDelta(t, 1000, info.Volume, 1e-6)
	assert.True(t, info.Valid)
	assert.Equal(t, "extrude_1", info.Source)
	assert.Equal(t, r3.Vec{X: 10, Y: 5, Z: 20}, info.Bounds.Max)

	mesh := e.Tessellate(res.ShapeID, 0)
	assert.InDelta(t, 1000, mesh.Volume(), 1e-3)
	assert.Equal(t, e.Options().DefaultQuality, mesh.Metadata.Quality)

	f, err := e.Feature(res.FeatureID)
	require.NoError(t, err)
	assert.True(t, f.Valid)
	assert.Equal(t, res.ShapeID, f.ResultShapeID)
}

func TestFailedExtrudeIsRecordedInvalid(t *testing.T) {
	e := New(Options{})
	sid := newSketch(t, e, plane.XY)
	_, err := e.AddElement(sid, sketch.AddRequest{Type: sketch.Line, End: r2.Vec{X: 1}})
	require.NoError(t, err)

	res, err := e.Extrude(sid, "", feature.Params{Distance: 1})
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	assert.Equal(t, "extrude_1", res.FeatureID)
	assert.Empty(t, res.ShapeID)
	assert.Empty(t, e.ShapeIDs())
	assert.Equal(t, []string{"extrude_1"}, e.FeatureIDs())
	f, err := e.Feature("extrude_1")
	require.NoError(t, err)
	assert.False(t, f.Valid)
	assert.Empty(t, f.ResultShapeID)

	_, err = e.Extrude("sketch_9", "", feature.Params{Distance: 1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUnionOfDisjointUnitBoxes(t *testing.T) {
	e := New(Options{})
	a, err := e.CreatePrimitive("box", PrimitiveParams{Width: 1, Height: 1, Depth: 1})
	require.NoError(t, err)
	b, err := e.CreatePrimitive("box", PrimitiveParams{Origin: r3.Vec{X: 3}, Width: 1, Height: 1, Depth: 1})
	require.NoError(t, err)

	u, err := e.Union(a, b, "")
	require.NoError(t, err)
	assert.Equal(t, "shape_3", u)
	info, err := e.ShapeInfo(u)
	require.NoError(t, err)
	assert.InDelta(t, 2, info.Volume, 1e-9)
	assert.Equal(t, []string{a, b, u}, e.ShapeIDs())

	_, err = e.Intersect(a, b, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidTopology))
	assert.Len(t, e.ShapeIDs(), 3)
}

func TestBooleanResultID(t *testing.T) {
	e := New(Options{})
	a, err := e.CreatePrimitive("box", PrimitiveParams{Width: 2, Height: 2, Depth: 2})
	require.NoError(t, err)
	b, err := e.CreatePrimitive("sphere", PrimitiveParams{Origin: r3.Vec{X: 2, Y: 2, Z: 2}, Radius: 1})
	require.NoError(t, err)

	id, err := e.Cut(a, b, "body")
	require.NoError(t, err)
	assert.Equal(t, "body", id)

	_, err = e.Cut(a, b, "body")
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
	_, err = e.Boolean(Cut, a, b, a, false)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	id, err = e.Boolean(Union, a, b, "body", true)
	require.NoError(t, err)
	sh, err := e.Shape(id)
	require.NoError(t, err)
	assert.Equal(t, "union", sh.Source)

	_, err = e.Union(a, "shape_42", "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = e.Boolean("xor", a, b, "", false)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMode))

	next, err := e.CreatePrimitive("box", PrimitiveParams{Width: 1, Height: 1, Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, "shape_3", next)
}

func TestTessellateUnknownShape(t *testing.T) {
	e := New(Options{})
	mesh := e.Tessellate("nope", 0.5)
	assert.Empty(t, mesh.Vertices)
	assert.Empty(t, mesh.Faces)
	assert.Zero(t, mesh.Metadata.FaceCount)
	assert.Equal(t, 0.5, mesh.Metadata.Quality)
}

func TestPrimitives(t *testing.T) {
	e := New(Options{BooleanDeflection: 0.01, DefaultQuality: 0.01})
	tests := []struct {
		kind   string
		params PrimitiveParams
		volume float64
	}{
		{"box", PrimitiveParams{Width: 2, Height: 3, Depth: 4}, 24},
		{"Cylinder", PrimitiveParams{Radius: 1, Height: 2}, 2 * math.Pi},
		{"cone", PrimitiveParams{Axis: r3.Vec{X: 1}, Radius: 1, Height: 3}, math.Pi},
		{"sphere", PrimitiveParams{Radius: 1}, 4 * math.Pi / 3},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			id, err := e.CreatePrimitive(tt.kind, tt.params)
			require.NoError(t, err)
			info, err := e.ShapeInfo(id)
			require.NoError(t, err)
			assert.InEpsilon(t, tt.volume, info.Volume, 3e-2)
		})
	}

	_, err := e.CreatePrimitive("torus", PrimitiveParams{Radius: 1})
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMode))
	_, err = e.CreatePrimitive("box", PrimitiveParams{Width: 1})
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	assert.Len(t, e.ShapeIDs(), 4)
}

func TestPlanes(t *testing.T) {
	e := New(Options{})
	id, err := e.CreatePlane(plane.XY, r3.Vec{Z: 1})
	require.NoError(t, err)
	assert.Equal(t, "plane_1", id)

	_, err = e.CreatePlane(plane.Custom, r3.Vec{})
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	_, err = e.CreateCustomPlane(r3.Vec{}, r3.Vec{})
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))

	id, err = e.CreateCustomPlane(r3.Vec{}, r3.Vec{X: 1, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, "plane_2", id)

	box, err := e.CreatePrimitive("box", PrimitiveParams{Width: 2, Height: 2, Depth: 3})
	require.NoError(t, err)
	sh, err := e.Shape(box)
	require.NoError(t, err)
	top := len(sh.Solid.Faces) - 1
	id, err = e.CreatePlaneOnFace(box, top)
	require.NoError(t, err)
	p, err := e.Plane(id)
	require.NoError(t, err)
	assert.Equal(t, plane.Custom, p.Type)
	assert.InDelta(t, 3, p.Origin.Z, 1e-9)
	assert.InDelta(t, 1, p.Normal.Z, 1e-9)

	_, err = e.CreatePlaneOnFace(box, 99)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = e.CreatePlaneOnFace("shape_9", 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, []string{"plane_1", "plane_2", "plane_3"}, e.PlaneIDs())

	_, err = e.CreateSketch("plane_9")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSketchOnFaceExtrudesOutward(t *testing.T) {
	e := New(Options{})
	box, err := e.CreatePrimitive("box", PrimitiveParams{Width: 4, Height: 4, Depth: 4})
	require.NoError(t, err)
	sh, _ := e.Shape(box)
	pid, err := e.CreatePlaneOnFace(box, len(sh.Solid.Faces)-1)
	require.NoError(t, err)
	sid, err := e.CreateSketch(pid)
	require.NoError(t, err)
	_, err = e.AddElement(sid, sketch.AddRequest{Type: sketch.Circle, Radius: 1})
	require.NoError(t, err)

	res, err := e.Extrude(sid, "", feature.Params{Distance: 2})
	require.NoError(t, err)
	info, err := e.ShapeInfo(res.ShapeID)
	require.NoError(t, err)
	assert.InDelta(t, 4, info.Bounds.Min.Z, 1e-9)
	assert.InDelta(t, 6, info.Bounds.Max.Z, 1e-9)

	body, err := e.Union(box, res.ShapeID, "")
	require.NoError(t, err)
	info, err = e.ShapeInfo(body)
	require.NoError(t, err)
	assert.InEpsilon(t, 64+2*math.Pi, info.Volume, 2e-2)
}

func TestImportPath(t *testing.T) {
	e := New(Options{})
	sid := newSketch(t, e, plane.XY)

	ids, err := e.ImportPath(sid, "M0 0 H10 V10 H0 Z")
	require.NoError(t, err)
	assert.Len(t, ids, 4)

	res, err := e.Extrude(sid, "", feature.Params{Distance: 1})
	require.NoError(t, err)
	info, err := e.ShapeInfo(res.ShapeID)
	require.NoError(t, err)
	assert.InDelta(t, 100, info.Volume, 1e-9)

	_, err = e.ImportPath(sid, "M0 0 L0 0")
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	_, err = e.ImportPath(sid, "Q 1 2")
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	s, _, _ := e.Sketch(sid)
	assert.Equal(t, 4, s.Len())
}

func TestImportSVGWithHole(t *testing.T) {
	e := New(Options{})
	sid := newSketch(t, e, plane.XY)

	doc := `<svg><rect x="0" y="0" width="10" height="10"/><path d="M3 3 H5 V5 H3 Z"/></svg>`
	ids, err := e.ImportSVG(sid, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, ids, 8)

	res, err := e.Extrude(sid, "", feature.Params{Distance: 1})
	require.NoError(t, err)
	info, err := e.ShapeInfo(res.ShapeID)
	require.NoError(t, err)
	assert.InDelta(t, 96, info.Volume, 1e-9)

	_, err = e.ImportSVG(sid, strings.NewReader("<svg/>"))
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	_, err = e.ImportSVG("sketch_9", strings.NewReader(doc))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRemoveShapeAndClear(t *testing.T) {
	e := New(Options{})
	id, err := e.CreatePrimitive("sphere", PrimitiveParams{Radius: 1})
	require.NoError(t, err)
	require.NoError(t, e.RemoveShape(id))
	assert.True(t, errors.Is(e.RemoveShape(id), domain.ErrNotFound))
	assert.Empty(t, e.ShapeIDs())

	newSketch(t, e, plane.YZ)
	e.Clear()
	assert.Empty(t, e.PlaneIDs())
	assert.Empty(t, e.SketchIDs())

	pid, err := e.CreatePlane(plane.XY, r3.Vec{})
	require.NoError(t, err)
	assert.Equal(t, "plane_1", pid)
}
