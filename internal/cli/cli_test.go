package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boxesScript = `
[[step]]
op = "plane"
type = "XY"
as = "base"

[[step]]
op = "sketch"
plane = "$base"
as = "s"

[[step]]
op = "element"
sketch = "$s"
type = "rectangle"
corner = [0.0, 0.0]
width = 10.0
height = 10.0
as = "rect"

[[step]]
op = "extrude"
sketch = "$s"
element = "$rect"
distance = 10.0
as = "body"

[[step]]
op = "primitive"
type = "box"
origin = [5.0, 5.0, 5.0]
width = 10.0
height = 10.0
depth = 10.0
as = "tool"

[[step]]
op = "boolean"
type = "union"
a = "$body"
b = "$tool"
as = "merged"

[[step]]
op = "tessellate"
shape = "$merged"
quality = 0.5
`

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", stdout)
}

func TestRunScript(t *testing.T) {
	stdout, _, err := executeCLI(t, "run", writeScript(t, boxesScript), "--summary")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "1 plane plane_1", lines[0])
	assert.Equal(t, "2 sketch sketch_1", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "3 element "))
	assert.Equal(t, "4 extrude extrude_1 shape_1", lines[3])
	assert.Equal(t, "5 primitive shape_2", lines[4])
	assert.Equal(t, "6 boolean shape_3", lines[5])
	assert.True(t, strings.HasPrefix(lines[6], "7 tessellate shape_3 vertices="))
	assert.True(t, strings.HasSuffix(lines[6], "quality=0.5"))
	assert.True(t, strings.HasPrefix(lines[7], "shape shape_1 "))
	assert.Contains(t, lines[7], "volume=1000.0000")
	assert.True(t, strings.HasPrefix(lines[9], "shape shape_3 "))
}

func TestRunnerAliasesAndVolumes(t *testing.T) {
	script, err := ParseScript([]byte(boxesScript))
	require.NoError(t, err)

	e := engine.New(engine.Options{})
	out := &bytes.Buffer{}
	r := NewRunner(e, out)
	require.NoError(t, r.Run(script))

	merged, ok := r.Alias("merged")
	require.True(t, ok)
	info, err := e.ShapeInfo(merged)
	require.NoError(t, err)
	assert.InDelta(t, 1875, info.Volume, 1e-6)

	_, ok = r.Alias("missing")
	assert.False(t, ok)
}

func TestRunImportsSVG(t *testing.T) {
	dir := t.TempDir()
	svg := filepath.Join(dir, "outline.svg")
	require.NoError(t, os.WriteFile(svg, []byte(`<svg><polygon points="0,0 4,0 4,3"/></svg>`), 0o644))

	script := "[[step]]\nop = \"plane\"\ntype = \"XY\"\nas = \"p\"\n\n" +
		"[[step]]\nop = \"sketch\"\nplane = \"$p\"\nas = \"s\"\n\n" +
		"[[step]]\nop = \"import\"\nsketch = \"$s\"\nsvg = '" + svg + "'\n\n" +
		"[[step]]\nop = \"extrude\"\nsketch = \"$s\"\ndistance = 2.0\nas = \"prism\"\n\n" +
		"[[step]]\nop = \"plot\"\nsketch = \"$s\"\nfile = '" + filepath.Join(dir, "outline.png") + "'\n"

	stdout, _, err := executeCLI(t, "run", writeScript(t, script), "--summary")
	require.NoError(t, err)
	assert.Contains(t, stdout, "4 extrude extrude_1 shape_1")
	assert.Contains(t, stdout, "5 plot sketch_1 ")
	assert.Contains(t, stdout, "volume=12.0000")
	assert.FileExists(t, filepath.Join(dir, "outline.png"))
}

func TestRunScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "unknown alias",
			script: "[[step]]\nop = \"plane\"\ntype = \"XY\"\n\n[[step]]\nop = \"sketch\"\nplane = \"$nope\"\n",
			want:   `step 2 (sketch): unknown alias "$nope"`,
		},
		{
			name:   "unknown op",
			script: "[[step]]\nop = \"loft\"\n",
			want:   `step 1 (loft): unknown op "loft"`,
		},
		{
			name:   "bad coordinates",
			script: "[[step]]\nop = \"plane\"\ntype = \"XY\"\norigin = [1.0, 2.0]\n",
			want:   "origin: want 3 coordinates, got 2",
		},
		{
			name:   "custom plane without normal",
			script: "[[step]]\nop = \"plane\"\ntype = \"custom\"\n",
			want:   "custom plane requires normal",
		},
		{
			name:   "empty script",
			script: "title = \"nothing\"\n",
			want:   "no [[step]] entries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCLI(t, "run", writeScript(t, tt.script))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunScriptKeepsDomainErrors(t *testing.T) {
	script, err := ParseScript([]byte("[[step]]\nop = \"primitive\"\ntype = \"torus\"\n"))
	require.NoError(t, err)

	err = NewRunner(engine.New(engine.Options{}), &bytes.Buffer{}).Run(script)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMode))
}

func TestRunMissingFile(t *testing.T) {
	_, _, err := executeCLI(t, "run", filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read script")
}

func TestPrimitiveCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, "primitive", "box", "--width", "2", "--height", "3", "--depth", "4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "shape_1 box volume=24.0000 "))
	assert.Contains(t, stdout, "faces=12")

	_, _, err = executeCLI(t, "primitive", "box", "--width", "0", "--height", "1", "--depth", "1")
	assert.True(t, errors.Is(err, domain.ErrDegenerateInput))

	_, _, err = executeCLI(t, "primitive", "torus")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMode))
}
