package feature

import (
	"errors"
	"math"
	"sort"
	"testing"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/kernel"
	"cad-service/internal/cad/plane"
	"cad-service/internal/cad/sketch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const deflection = 0.01

type shapes map[string]*kernel.Solid

func (m shapes) Solid(id string) (*kernel.Solid, bool) {
	s, ok := m[id]
	return s, ok
}

func (m shapes) SolidIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func rectangleSource(t *testing.T, pt plane.Type) (Source, string) {
	t.Helper()
	pl, err := plane.New("plane_1", pt, r3.Vec{})
	require.NoError(t, err)
	sk := sketch.New("sketch_1", pl.ID)
	id, err := sk.AddRectangle(r2.Vec{}, 10, 5)
	require.NoError(t, err)
	return Source{Sketch: sk, Plane: pl}, id
}

func boxAt(t *testing.T, z0, depth float64) *kernel.Solid {
	t.Helper()
	s, err := kernel.Box(r3.Vec{X: -50, Y: -50, Z: z0}, 100, 100, depth)
	require.NoError(t, err)
	return s
}

func TestBlindRectangle(t *testing.T) {
	src, _ := rectangleSource(t, plane.XY)
	f := New("extrude_1", "sketch_1", "", Params{Type: Blind, Distance: 20})

	s, err := f.Execute(src, shapes{}, deflection)
	require.NoError(t, err)
	assert.True(t, f.Valid)
	assert.InDelta(t, 1000, kernel.Volume(s, deflection), 1e-6)
}

func TestBlindOnElement(t *testing.T) {
	src, id := rectangleSource(t, plane.XZ)
	circle, err := src.Sketch.AddCircle(r2.Vec{X: 30}, 2)
	require.NoError(t, err)

	rect := New("extrude_1", "sketch_1", id, Params{Distance: 2})
	s, err := rect.Execute(src, shapes{}, deflection)
	require.NoError(t, err)
	assert.InDelta(t, 100, kernel.Volume(s, deflection), 1e-6)

	b, ok := kernel.Bounds(s, deflection)
	require.True(t, ok)
	assert.InDelta(t, 0, b.Min.Y, 1e-9)
	assert.InDelta(t, 2, b.Max.Y, 1e-9)
	assert.InDelta(t, -5, b.Min.Z, 1e-9)

	cyl := New("extrude_2", "sketch_1", circle, Params{Distance: 3})
	s, err = cyl.Execute(src, shapes{}, deflection)
	require.NoError(t, err)
	assert.InEpsilon(t, math.Pi*4*3, kernel.Volume(s, deflection), 1e-2)
}

func TestSymmetricAndReverse(t *testing.T) {
	src, _ := rectangleSource(t, plane.XY)

	sym := New("extrude_1", "sketch_1", "", Params{Type: Symmetric, Distance: 5, Distance2: 3})
	s, err := sym.Execute(src, shapes{}, deflection)
	require.NoError(t, err)
	assert.InDelta(t, 400, kernel.Volume(s, deflection), 1e-6)
	b, _ := kernel.Bounds(s, deflection)
	assert.InDelta(t, -3, b.Min.Z, 1e-9)
	assert.InDelta(t, 5, b.Max.Z, 1e-9)

	rev := New("extrude_2", "sketch_1", "", Params{Distance: 20, Reverse: true})
	s, err = rev.Execute(src, shapes{}, deflection)
	require.NoError(t, err)
	assert.InDelta(t, 1000, kernel.Volume(s, deflection), 1e-6)
	b, _ = kernel.Bounds(s, deflection)
	assert.InDelta(t, -20, b.Min.Z, 1e-9)
	assert.InDelta(t, 0, b.Max.Z, 1e-9)
}

func TestObliqueDirection(t *testing.T) {
	src, _ := rectangleSource(t, plane.XY)
	f := New("extrude_1", "sketch_1", "", Params{Distance: 10, Direction: &r3.Vec{X: 1, Z: 1}})
	s, err := f.Execute(src, shapes{}, deflection)
	require.NoError(t, err)
	assert.InDelta(t, 50*10/math.Sqrt2, kernel.Volume(s, deflection), 1e-6)
}

func TestProfileWithHole(t *testing.T) {
	pl, err := plane.New("plane_1", plane.XY, r3.Vec{})
	require.NoError(t, err)
	sk := sketch.New("sketch_1", pl.ID)
	_, err = sk.AddRectangle(r2.Vec{}, 10, 10)
	require.NoError(t, err)
	_, err = sk.AddCircle(r2.Vec{X: 5, Y: 5}, 2)
	require.NoError(t, err)

	f := New("extrude_1", "sketch_1", "", Params{Distance: 2})
	s, err := f.Execute(Source{Sketch: sk, Plane: pl}, shapes{}, deflection)
	require.NoError(t, err)
	assert.InEpsilon(t, (100-math.Pi*4)*2, kernel.Volume(s, deflection), 2e-2)
}

func TestThroughAllAndToSurface(t *testing.T) {
	src, _ := rectangleSource(t, plane.XY)
	registered := shapes{"shape_1": boxAt(t, 5, 3)}

	through := New("extrude_1", "sketch_1", "", Params{Type: ThroughAll})
	s, err := through.Execute(src, registered, deflection)
	require.NoError(t, err)
	b, _ := kernel.Bounds(s, deflection)
	assert.Greater(t, b.Max.Z, 8.0)

	upTo := New("extrude_2", "sketch_1", "", Params{Type: ToSurface, TargetShapeID: "shape_1"})
	s, err = upTo.Execute(src, registered, deflection)
	require.NoError(t, err)
	assert.InDelta(t, 250, kernel.Volume(s, deflection), 1e-6)

	behind := New("extrude_3", "sketch_1", "", Params{Type: ToSurface, TargetShapeID: "shape_1", Reverse: true})
	_, err = behind.Execute(src, registered, deflection)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
}

func TestRejected(t *testing.T) {
	src, _ := rectangleSource(t, plane.XY)
	cases := []struct {
		name   string
		params Params
		shapes shapes
		want   error
	}{
		{"zero distance", Params{Type: Blind}, nil, domain.ErrDegenerateInput},
		{"symmetric without second distance", Params{Type: Symmetric, Distance: 1}, nil, domain.ErrDegenerateInput},
		{"taper", Params{Distance: 1, TaperAngle: 5}, nil, domain.ErrUnsupportedMode},
		{"parallel direction", Params{Distance: 1, Direction: &r3.Vec{X: 1}}, nil, domain.ErrDegenerateInput},
		{"zero direction", Params{Distance: 1, Direction: &r3.Vec{}}, nil, domain.ErrDegenerateInput},
		{"through all without shapes", Params{Type: ThroughAll}, shapes{}, domain.ErrDegenerateInput},
		{"missing target", Params{Type: ToSurface, TargetShapeID: "shape_9"}, shapes{}, domain.ErrNotFound},
		{"unknown type", Params{Type: "draft", Distance: 1}, nil, domain.ErrUnsupportedMode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := New("extrude_1", "sketch_1", "", tc.params)
			assert.False(t, f.CanExtrude(src, tc.shapes, deflection))
			_, err := f.Execute(src, tc.shapes, deflection)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.False(t, f.Valid)
		})
	}
}

func TestEmptySketch(t *testing.T) {
	pl, err := plane.New("plane_1", plane.XY, r3.Vec{})
	require.NoError(t, err)
	sk := sketch.New("sketch_1", pl.ID)
	_, err = sk.AddLine(r2.Vec{}, r2.Vec{X: 1})
	require.NoError(t, err)

	f := New("extrude_1", "sketch_1", "", Params{Distance: 1})
	err = f.Validate(Source{Sketch: sk, Plane: pl}, shapes{}, deflection)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))

	err = New("extrude_2", "sketch_1", "line_9", Params{Distance: 1}).Validate(Source{Sketch: sk, Plane: pl}, shapes{}, deflection)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("Through-All")
	require.NoError(t, err)
	assert.Equal(t, ThroughAll, typ)
	typ, err = ParseType("")
	require.NoError(t, err)
	assert.Equal(t, Blind, typ)
	_, err = ParseType("taper")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMode))
}
