package sketch

import (
	"errors"
	"math"
	"testing"

	"cad-service/internal/cad/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func v(x, y float64) r2.Vec { return r2.Vec{X: x, Y: y} }

func assertPoint(t *testing.T, want, got r2.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
}

func mustElement(t *testing.T, s *Sketch, id string) Element {
	t.Helper()
	e, err := s.Element(id)
	require.NoError(t, err)
	return e
}

func TestAddLineStoresExactCoordinates(t *testing.T) {
	s := New("sketch_1", "plane_1")
	id, err := s.AddLine(v(0.1, 0.2), v(3.3, -7.7))
	require.NoError(t, err)

	e := mustElement(t, s, id)
	assert.Equal(t, Line, e.Type)
	assert.Equal(t, v(0.1, 0.2), e.Start)
	assert.Equal(t, v(3.3, -7.7), e.End)
	assert.Equal(t, "line_1", id)
}

func TestAddRejectsDegenerateInput(t *testing.T) {
	s := New("s", "p")
	cases := map[string]func() error{
		"zero line":     func() error { _, err := s.AddLine(v(1, 1), v(1, 1)); return err },
		"zero radius":   func() error { _, err := s.AddCircle(v(0, 0), 0); return err },
		"flat rect":     func() error { _, err := s.AddRectangle(v(0, 0), 10, 0); return err },
		"two sides":     func() error { _, err := s.AddPolygon(v(0, 0), 2, 5); return err },
		"collinear arc": func() error { _, err := s.AddArcThreePoints(v(0, 0), v(1, 0), v(2, 0)); return err },
		"short radius":  func() error { _, err := s.AddArcEndpoints(v(0, 0), v(10, 0), 2, false); return err },
		"nan line":      func() error { _, err := s.AddLine(v(math.NaN(), 0), v(1, 0)); return err },
	}
	for name, add := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errors.Is(add(), domain.ErrDegenerateInput))
		})
	}
	assert.Zero(t, s.Len())
}

func TestRectangleHierarchy(t *testing.T) {
	s := New("s", "p")
	id, err := s.AddRectangle(v(1, 2), 10, 5)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	rect := mustElement(t, s, id)
	require.Len(t, rect.Children, 4)
	assert.Equal(t, 5, s.Len())

	want := [][2]r2.Vec{
		{v(1, 2), v(11, 2)},
		{v(11, 2), v(11, 7)},
		{v(11, 7), v(1, 7)},
		{v(1, 7), v(1, 2)},
	}
	for i, child := range rect.Children {
		line := mustElement(t, s, child)
		assert.Equal(t, Line, line.Type)
		assert.Equal(t, id, line.ParentID)
		assert.Equal(t, want[i][0], line.Start)
		assert.Equal(t, want[i][1], line.End)
	}
}

func TestPolygonVertices(t *testing.T) {
	s := New("s", "p")
	id, err := s.AddPolygon(v(0, 0), 6, 2)
	require.NoError(t, err)
	poly := mustElement(t, s, id)
	require.Len(t, poly.Children, 6)

	first := mustElement(t, s, poly.Children[0])
	assertPoint(t, v(2, 0), first.Start)
	assertPoint(t, v(1, math.Sqrt(3)), first.End)
	require.NoError(t, s.Validate())
}

func TestArcs(t *testing.T) {
	s := New("s", "p")

	id, err := s.AddArcThreePoints(v(1, 0), v(0, 1), v(-1, 0))
	require.NoError(t, err)
	arc := mustElement(t, s, id)
	assertPoint(t, v(0, 0), arc.Center)
	assert.InDelta(t, 1, arc.Radius, 1e-12)
	assert.False(t, arc.Clockwise)
	_, sweep := arc.ArcAngles()
	assert.InDelta(t, math.Pi, sweep, 1e-9)

	id, err = s.AddArcThreePoints(v(-1, 0), v(0, 1), v(1, 0))
	require.NoError(t, err)
	assert.True(t, mustElement(t, s, id).Clockwise)

	id, err = s.AddArcEndpoints(v(1, 0), v(0, 1), 1, false)
	require.NoError(t, err)
	arc = mustElement(t, s, id)
	assertPoint(t, v(0, 0), arc.Center)
	_, sweep = arc.ArcAngles()
	assert.InDelta(t, math.Pi/2, sweep, 1e-9)

	id, err = s.AddArcEndpoints(v(1, 0), v(0, 1), 1, true)
	require.NoError(t, err)
	_, sweep = mustElement(t, s, id).ArcAngles()
	assert.InDelta(t, 3*math.Pi/2, sweep, 1e-9)

	_, err = s.AddArcCenter(v(0, 0), v(1, 0), v(0, 2), false)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
}

func TestTrimLineToLine(t *testing.T) {
	s := New("s", "p")
	l1, _ := s.AddLine(v(0, 0), v(10, 0))
	l2, _ := s.AddLine(v(5, -5), v(5, 5))

	require.NoError(t, s.TrimLineToLine(l1, l2, true))
	line := mustElement(t, s, l1)
	assertPoint(t, v(0, 0), line.Start)
	assertPoint(t, v(5, 0), line.End)

	require.NoError(t, s.TrimLineToLine(l2, l1, false))
	assertPoint(t, v(5, 0), mustElement(t, s, l2).Start)
}

func TestParallelTrimAndExtendDoNotMutate(t *testing.T) {
	s := New("s", "p")
	l1, _ := s.AddLine(v(0, 0), v(10, 0))
	l2, _ := s.AddLine(v(0, 1), v(10, 1))
	before := s.Elements()

	err := s.TrimLineToLine(l1, l2, true)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	err = s.ExtendLineToLine(l1, l2, false)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))

	assert.Equal(t, before, s.Elements())
}

func TestExtendLineToLine(t *testing.T) {
	s := New("s", "p")
	l1, _ := s.AddLine(v(0, 0), v(4, 0))
	l2, _ := s.AddLine(v(5, -5), v(5, 5))

	err := s.ExtendLineToLine(l1, l2, true)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput), "intersection is behind the end, not the start")
	assertPoint(t, v(0, 0), mustElement(t, s, l1).Start)

	require.NoError(t, s.ExtendLineToLine(l1, l2, false))
	assertPoint(t, v(5, 0), mustElement(t, s, l1).End)
}

func TestTrimAndExtendToGeometry(t *testing.T) {
	s := New("s", "p")
	line, _ := s.AddLine(v(-10, 0), v(10, 0))
	circle, _ := s.AddCircle(v(0, 0), 2)

	require.NoError(t, s.TrimLineToGeometry(line, circle, true))
	assertPoint(t, v(2, 0), mustElement(t, s, line).End)

	short, _ := s.AddLine(v(20, 1), v(30, 1))
	rect, _ := s.AddRectangle(v(40, -5), 10, 10)
	require.NoError(t, s.ExtendLineToGeometry(short, rect, false))
	assertPoint(t, v(40, 1), mustElement(t, s, short).End)

	err := s.ExtendLineToGeometry(short, circle, false)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
}

func cornerSketch(t *testing.T) (*Sketch, string, string) {
	t.Helper()
	s := New("s", "p")
	l1, err := s.AddLine(v(0, 0), v(10, 0))
	require.NoError(t, err)
	l2, err := s.AddLine(v(10, 0), v(10, 10))
	require.NoError(t, err)
	return s, l1, l2
}

func TestFillet(t *testing.T) {
	s, l1, l2 := cornerSketch(t)

	ids, err := s.AddFillet(l1, l2, 2)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, []string{l1, l2}, ids[1:])
	assert.Equal(t, 3, s.Len())

	assertPoint(t, v(8, 0), mustElement(t, s, l1).End)
	assertPoint(t, v(10, 2), mustElement(t, s, l2).Start)

	fillet := mustElement(t, s, ids[0])
	assert.Equal(t, Fillet, fillet.Type)
	assert.Equal(t, []string{l1, l2}, fillet.Refs)
	assertPoint(t, v(8, 2), fillet.Center)
	assertPoint(t, v(8, 0), fillet.Start)
	assertPoint(t, v(10, 2), fillet.End)
	_, sweep := fillet.ArcAngles()
	assert.InDelta(t, math.Pi/2, sweep, 1e-9)
	require.NoError(t, s.Validate())
}

func TestFilletFailuresDoNotMutate(t *testing.T) {
	s, l1, l2 := cornerSketch(t)
	far, _ := s.AddLine(v(20, 5), v(20, 15))
	before := s.Elements()

	_, err := s.AddFillet(l1, far, 1)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput), "no shared vertex")
	_, err = s.AddChamfer(l1, far, 1)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput), "no shared vertex")
	_, err = s.AddFillet(l1, l2, 20)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput), "radius too large")
	_, err = s.AddFillet(l1, "line_99", 1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.Equal(t, before, s.Elements())
}

func TestChamfer(t *testing.T) {
	s, l1, l2 := cornerSketch(t)

	ids, err := s.AddChamfer(l1, l2, 3)
	require.NoError(t, err)
	chamfer := mustElement(t, s, ids[0])
	assert.Equal(t, Chamfer, chamfer.Type)
	assertPoint(t, v(7, 0), chamfer.Start)
	assertPoint(t, v(10, 3), chamfer.End)
	assertPoint(t, v(7, 0), mustElement(t, s, l1).End)
	assertPoint(t, v(10, 3), mustElement(t, s, l2).Start)
}

func TestMirror(t *testing.T) {
	s := New("s", "p")
	arc, _ := s.AddArcEndpoints(v(1, 0), v(0, 1), 1, false)

	ids, err := s.MirrorByTwoPoints([]string{arc}, v(0, 0), v(0, 1), true)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	m := mustElement(t, s, ids[0])
	assertPoint(t, v(-1, 0), m.Start)
	assertPoint(t, v(0, 1), m.End)
	assert.True(t, m.Clockwise)
	_, sweep := m.ArcAngles()
	assert.InDelta(t, -math.Pi/2, sweep, 1e-9)

	rect, _ := s.AddRectangle(v(1, 1), 2, 2)
	axis, _ := s.AddLine(v(0, -10), v(0, 10))
	ids, err = s.MirrorByLine([]string{rect}, axis, false)
	require.NoError(t, err)
	assert.Equal(t, []string{rect}, ids)
	bottom := mustElement(t, s, mustElement(t, s, rect).Children[0])
	assertPoint(t, v(-1, 1), bottom.Start)
	assertPoint(t, v(-3, 1), bottom.End)
	require.NoError(t, s.Validate())

	_, err = s.MirrorByTwoPoints([]string{rect}, v(1, 1), v(1, 1), true)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
}

func TestMirrorCopyRemapsFilletRefs(t *testing.T) {
	s, l1, l2 := cornerSketch(t)
	ids, err := s.AddFillet(l1, l2, 2)
	require.NoError(t, err)

	copies, err := s.MirrorByTwoPoints([]string{l1, l2, ids[0]}, v(0, 20), v(1, 20), true)
	require.NoError(t, err)
	require.Len(t, copies, 3)
	f := mustElement(t, s, copies[2])
	assert.Equal(t, Fillet, f.Type)
	assert.Equal(t, copies[:2], f.Refs)

	alone, err := s.MirrorByTwoPoints([]string{ids[0]}, v(0, 20), v(1, 20), true)
	require.NoError(t, err)
	assert.Equal(t, Arc, mustElement(t, s, alone[0]).Type)
}

func TestOffsetDirectional(t *testing.T) {
	s := New("s", "p")
	line, _ := s.AddLine(v(0, 0), v(10, 0))

	left, err := s.OffsetDirectional(line, 2, Left)
	require.NoError(t, err)
	l := mustElement(t, s, left)
	assertPoint(t, v(0, 2), l.Start)
	assertPoint(t, v(10, 2), l.End)

	right, err := s.OffsetDirectional(line, 2, Right)
	require.NoError(t, err)
	assertPoint(t, v(0, -2), mustElement(t, s, right).Start)

	arc, _ := s.AddArcEndpoints(v(5, 0), v(0, 5), 5, false)
	inner, err := s.OffsetDirectional(arc, 1, Left)
	require.NoError(t, err)
	a := mustElement(t, s, inner)
	assert.InDelta(t, 4, a.Radius, 1e-12)
	assertPoint(t, v(4, 0), a.Start)

	circle, _ := s.AddCircle(v(0, 0), 1)
	_, err = s.OffsetDirectional(circle, 1, Left)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	assertPoint(t, v(0, 0), mustElement(t, s, line).Start)
}

func TestOffsetOutline(t *testing.T) {
	s := New("s", "p")
	rect, _ := s.AddRectangle(v(0, 0), 10, 5)

	id, err := s.Offset(rect, 1)
	require.NoError(t, err)
	grown := mustElement(t, s, id)
	assert.Equal(t, Rectangle, grown.Type)
	assert.InDelta(t, 12, grown.Width, 1e-12)
	assert.InDelta(t, 7, grown.Height, 1e-12)
	assertPoint(t, v(-1, -1), grown.Corner)
	bottom := mustElement(t, s, grown.Children[0])
	assertPoint(t, v(-1, -1), bottom.Start)
	assertPoint(t, v(11, -1), bottom.End)

	_, err = s.Offset(rect, -3)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))

	circle, _ := s.AddCircle(v(0, 0), 2)
	id, err = s.Offset(circle, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, mustElement(t, s, id).Radius, 1e-12)
	require.NoError(t, s.Validate())
}

func TestCopyAndMove(t *testing.T) {
	s := New("s", "p")
	circle, _ := s.AddCircle(v(0, 0), 1)

	ids, err := s.Copy(circle, 3, 2, 0, 5)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	for k, id := range ids {
		assertPoint(t, v(5*float64(k+1), 0), mustElement(t, s, id).Center)
	}

	rect, _ := s.AddRectangle(v(0, 0), 1, 1)
	before := s.Len()
	ids, err = s.Copy(rect, 1, 0, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, before+5, s.Len())
	assertPoint(t, v(0, 3), mustElement(t, s, mustElement(t, s, ids[0]).Children[0]).Start)

	require.NoError(t, s.Move(rect, 1, 1, math.Sqrt2))
	assertPoint(t, v(1, 1), mustElement(t, s, rect).Corner)
	assertPoint(t, v(2, 1), mustElement(t, s, mustElement(t, s, rect).Children[0]).End)

	_, err = s.Copy(circle, 0, 1, 0, 1)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	err = s.Move(circle, 0, 0, 1)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	require.NoError(t, s.Validate())
}

func TestTransformsCarryContainerFillets(t *testing.T) {
	s := New("s", "p")
	rect, err := s.AddRectangle(v(0, 0), 10, 5)
	require.NoError(t, err)
	sides := mustElement(t, s, rect).Children
	ids, err := s.AddFillet(sides[0], sides[1], 1)
	require.NoError(t, err)
	fillet := ids[0]
	assertPoint(t, v(9, 0), mustElement(t, s, fillet).Start)

	require.NoError(t, s.Move(rect, 1, 0, 20))
	assertPoint(t, v(29, 0), mustElement(t, s, fillet).Start)
	assertPoint(t, v(30, 1), mustElement(t, s, fillet).End)
	_, err = s.FaceFromElement(rect)
	require.NoError(t, err)

	copies, err := s.Copy(rect, 1, 0, 1, 10)
	require.NoError(t, err)
	require.Len(t, copies, 2)
	copied := mustElement(t, s, copies[1])
	assert.Equal(t, Fillet, copied.Type)
	assert.Equal(t, mustElement(t, s, copies[0]).Children[:2], copied.Refs)
	assertPoint(t, v(29, 10), copied.Start)
	_, err = s.FaceFromElement(copies[0])
	require.NoError(t, err)

	arrayed, err := s.CircularArray(rect, 1, v(0, 0), math.Pi)
	require.NoError(t, err)
	require.Len(t, arrayed, 2)
	_, err = s.FaceFromElement(arrayed[0])
	require.NoError(t, err)
	require.NoError(t, s.Validate())
}

func TestCircularArray(t *testing.T) {
	s := New("s", "p")
	line, _ := s.AddLine(v(1, 0), v(2, 0))

	ids, err := s.CircularArray(line, 3, v(0, 0), 2*math.Pi)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	first := mustElement(t, s, ids[0])
	assertPoint(t, v(0, 1), first.Start)
	assertPoint(t, v(0, 2), first.End)
	assertPoint(t, v(0, -1), mustElement(t, s, ids[2]).Start)
}

func TestRemove(t *testing.T) {
	s := New("s", "p")
	rect, _ := s.AddRectangle(v(0, 0), 10, 10)
	children := mustElement(t, s, rect).Children
	ids, err := s.AddFillet(children[0], children[1], 1)
	require.NoError(t, err)

	removed, err := s.Remove(children[0])
	require.NoError(t, err)
	assert.Equal(t, []string{children[0]}, removed)
	assert.Len(t, mustElement(t, s, rect).Children, 3)
	fillet := mustElement(t, s, ids[0])
	assert.Equal(t, Arc, fillet.Type)
	assert.Empty(t, fillet.Refs)
	require.NoError(t, s.Validate())

	removed, err = s.Remove(rect)
	require.NoError(t, err)
	assert.Len(t, removed, 4)
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Validate())
}

func TestFaceFromElement(t *testing.T) {
	s := New("s", "p")
	rect, _ := s.AddRectangle(v(0, 0), 10, 5)
	children := mustElement(t, s, rect).Children
	_, err := s.AddFillet(children[0], children[1], 1)
	require.NoError(t, err)

	p, err := s.FaceFromElement(rect)
	require.NoError(t, err)
	require.Len(t, p.Regions, 1)
	outer := p.Regions[0].Outer
	assert.Len(t, outer.Segments, 5)
	assert.Greater(t, outer.Area(), 0.0)
	assert.InDelta(t, 50-(1-math.Pi/4), outer.Area(), 1e-2)

	circle, _ := s.AddCircle(v(20, 0), 2)
	p, err = s.FaceFromElement(circle)
	require.NoError(t, err)
	assert.InDelta(t, 4*math.Pi, p.Regions[0].Outer.Area(), 5e-2)

	line, _ := s.AddLine(v(0, 0), v(1, 1))
	_, err = s.FaceFromElement(line)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
	_, err = s.FaceFromElement("nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, s.Move(children[2], 0, 1, 1))
	_, err = s.FaceFromElement(rect)
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput), "outline no longer closed")
}

func TestFaceNestsLoops(t *testing.T) {
	s := New("s", "p")
	_, _ = s.AddRectangle(v(0, 0), 10, 10)
	_, _ = s.AddCircle(v(5, 5), 2)
	_, _ = s.AddCircle(v(30, 0), 1)
	_, _ = s.AddLine(v(50, 50), v(60, 60))

	p, err := s.Face()
	require.NoError(t, err)
	require.Len(t, p.Regions, 2)

	var withHole Region
	for _, r := range p.Regions {
		if len(r.Holes) > 0 {
			withHole = r
		}
	}
	require.Len(t, withHole.Holes, 1)
	assert.InDelta(t, 100, withHole.Outer.Area(), 1e-9)

	empty := New("e", "p")
	_, _ = empty.AddLine(v(0, 0), v(1, 0))
	_, err = empty.Face()
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
}

func TestFaceSkipsDanglingBranch(t *testing.T) {
	s := New("s", "p")
	for _, seg := range [][2]r2.Vec{
		{v(0, 0), v(10, 0)},
		{v(10, 0), v(10, -5)},
		{v(10, 0), v(5, 5)},
		{v(5, 5), v(0, 0)},
	} {
		_, err := s.AddLine(seg[0], seg[1])
		require.NoError(t, err)
	}

	p, err := s.Face()
	require.NoError(t, err)
	require.Len(t, p.Regions, 1)
	assert.Len(t, p.Regions[0].Outer.Segments, 3)
	assert.InDelta(t, 25, p.Regions[0].Outer.Area(), 1e-9)
}

func TestEditDispatch(t *testing.T) {
	s, l1, l2 := cornerSketch(t)

	op, err := ParseEditOp("Offset-Directional")
	require.NoError(t, err)
	assert.Equal(t, OpOffsetDirectional, op)

	ids, err := s.Edit(EditRequest{Op: OpFillet, IDs: []string{l1, l2}, Radius: 1})
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	_, err = s.Edit(EditRequest{Op: OpChamfer, IDs: []string{l1}})
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))

	ids, err = s.Edit(EditRequest{Op: OpMove, IDs: []string{l1}, Direction: v(0, 1), Distance: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{l1}, ids)

	id, err := s.Add(AddRequest{Type: Arc, Start: v(1, 0), End: v(-1, 0), Radius: 1})
	require.NoError(t, err)
	assert.Equal(t, Arc, mustElement(t, s, id).Type)

	_, err = s.Add(AddRequest{Type: Fillet})
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
}
