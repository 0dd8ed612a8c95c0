package visual

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/plane"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestPlotSketch(t *testing.T) {
	s, _ := setup(t, plane.XY)
	_, err := s.AddRectangle(r2.Vec{}, 4, 2)
	require.NoError(t, err)
	_, err = s.AddCircle(r2.Vec{X: 2, Y: 1}, 0.5)
	require.NoError(t, err)

	dir := t.TempDir()
	for _, name := range []string{"sketch.png", "sketch.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, PlotSketch(s, path))
		st, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}

	assert.Error(t, PlotSketch(s, filepath.Join(dir, "sketch.unknown")))
}

func TestWriteSketchPlot(t *testing.T) {
	s, _ := setup(t, plane.XY)
	_, err := s.AddLine(r2.Vec{}, r2.Vec{X: 3, Y: 1})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteSketchPlot(s, buf, "svg"))
	assert.Contains(t, buf.String(), "<svg")

	err = WriteSketchPlot(s, &bytes.Buffer{}, "bmp3d")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMode))
}

func TestPlotEmptySketch(t *testing.T) {
	s, _ := setup(t, plane.XY)
	err := PlotSketch(s, filepath.Join(t.TempDir(), "empty.png"))
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))
}
