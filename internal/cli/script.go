package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"cad-service/internal/cad/engine"
	"cad-service/internal/cad/feature"
	"cad-service/internal/cad/plane"
	"cad-service/internal/cad/sketch"
	"cad-service/internal/cad/visual"

	"github.com/pelletier/go-toml/v2"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ============================================================
// Script Format
// ============================================================

// Script: сценарий моделирования, последовательность шагов [[step]].
type Script struct {
	Steps []Step `toml:"step"`
}

// Step: один шаг сценария. Op выбирает операцию, As задаёт псевдоним
// результата, на который следующие шаги ссылаются как "$имя".
type Step struct {
	Op string `toml:"op"`
	As string `toml:"as"`

	Type    string   `toml:"type"`
	Plane   string   `toml:"plane"`
	Sketch  string   `toml:"sketch"`
	Element string   `toml:"element"`
	IDs     []string `toml:"ids"`
	Target  string   `toml:"target"`
	Shape   string   `toml:"shape"`
	ShapeA  string   `toml:"a"`
	ShapeB  string   `toml:"b"`
	Result  string   `toml:"result"`
	Face    int      `toml:"face"`
	Path    string   `toml:"path"`
	SVG     string   `toml:"svg"`
	File    string   `toml:"file"`

	Origin    []float64 `toml:"origin"`
	Normal    []float64 `toml:"normal"`
	Axis      []float64 `toml:"axis"`
	Direction []float64 `toml:"direction"`
	Start     []float64 `toml:"start"`
	End       []float64 `toml:"end"`
	Mid       []float64 `toml:"mid"`
	Center    []float64 `toml:"center"`
	Corner    []float64 `toml:"corner"`
	Point1    []float64 `toml:"point1"`
	Point2    []float64 `toml:"point2"`

	Radius    float64 `toml:"radius"`
	Radius2   float64 `toml:"radius2"`
	Width     float64 `toml:"width"`
	Height    float64 `toml:"height"`
	Depth     float64 `toml:"depth"`
	Distance  float64 `toml:"distance"`
	Distance2 float64 `toml:"distance2"`
	Angle     float64 `toml:"angle"`
	Quality   float64 `toml:"quality"`
	Sides     int     `toml:"sides"`
	Count     int     `toml:"count"`

	ArcMode      string `toml:"arc_mode"`
	Side         string `toml:"side"`
	LargeArc     bool   `toml:"large_arc"`
	Clockwise    bool   `toml:"clockwise"`
	KeepStart    bool   `toml:"keep_start"`
	ExtendStart  bool   `toml:"extend_start"`
	KeepOriginal bool   `toml:"keep_original"`
	Reverse      bool   `toml:"reverse"`
	Overwrite    bool   `toml:"overwrite"`
}

// ParseScript декодирует TOML-сценарий.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("script has no [[step]] entries")
	}
	return &s, nil
}

// ============================================================
// Runner
// ============================================================

// Runner выполняет шаги сценария на одном движке и печатает по строке на шаг.
type Runner struct {
	engine  *engine.Engine
	aliases map[string]string
	out     io.Writer
}

func NewRunner(e *engine.Engine, out io.Writer) *Runner {
	return &Runner{engine: e, aliases: make(map[string]string), out: out}
}

// Run останавливается на первом неудачном шаге.
func (r *Runner) Run(s *Script) error {
	for i, step := range s.Steps {
		line, id, err := r.step(step)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
		if step.As != "" && id != "" {
			r.aliases[step.As] = id
		}
		if _, err := fmt.Fprintf(r.out, "%d %s %s\n", i+1, step.Op, line); err != nil {
			return err
		}
	}
	return nil
}

// Alias возвращает id, сохранённый под псевдонимом.
func (r *Runner) Alias(name string) (string, bool) {
	id, ok := r.aliases[name]
	return id, ok
}

func (r *Runner) resolve(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, "$")
	if !ok {
		return ref, nil
	}
	id, ok := r.aliases[name]
	if !ok {
		return "", fmt.Errorf("unknown alias %q", ref)
	}
	return id, nil
}

func (r *Runner) resolveAll(refs []string) ([]string, error) {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := r.resolve(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// step возвращает строку для печати и id, который запоминается под As.
func (r *Runner) step(s Step) (string, string, error) {
	switch strings.ToLower(s.Op) {
	case "plane":
		return r.plane(s)
	case "sketch":
		planeID, err := r.resolve(s.Plane)
		if err != nil {
			return "", "", err
		}
		id, err := r.engine.CreateSketch(planeID)
		return id, id, err
	case "element":
		return r.element(s)
	case "edit":
		return r.edit(s)
	case "import":
		sketchID, err := r.resolve(s.Sketch)
		if err != nil {
			return "", "", err
		}
		ids, err := r.importLines(sketchID, s)
		if err != nil {
			return "", "", err
		}
		return strings.Join(ids, " "), first(ids), nil
	case "extrude":
		return r.extrude(s)
	case "primitive":
		p, err := primitiveParams(s)
		if err != nil {
			return "", "", err
		}
		id, err := r.engine.CreatePrimitive(s.Type, p)
		return id, id, err
	case "boolean":
		return r.boolean(s)
	case "plot":
		sketchID, err := r.resolve(s.Sketch)
		if err != nil {
			return "", "", err
		}
		sk, _, err := r.engine.Sketch(sketchID)
		if err != nil {
			return "", "", err
		}
		if err := visual.PlotSketch(sk, s.File); err != nil {
			return "", "", err
		}
		return sketchID + " " + s.File, sketchID, nil
	case "tessellate":
		shapeID, err := r.resolve(s.Shape)
		if err != nil {
			return "", "", err
		}
		m := r.engine.Tessellate(shapeID, s.Quality)
		return fmt.Sprintf("%s vertices=%d faces=%d quality=%g",
			shapeID, m.Metadata.VertexCount, m.Metadata.FaceCount, m.Metadata.Quality), shapeID, nil
	}
	return "", "", fmt.Errorf("unknown op %q", s.Op)
}

// importLines берёт линии из svg-файла, если он задан, иначе из path.
func (r *Runner) importLines(sketchID string, s Step) ([]string, error) {
	if s.SVG == "" {
		return r.engine.ImportPath(sketchID, s.Path)
	}
	f, err := os.Open(s.SVG)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return r.engine.ImportSVG(sketchID, f)
}

func (r *Runner) plane(s Step) (string, string, error) {
	if s.Shape != "" {
		shapeID, err := r.resolve(s.Shape)
		if err != nil {
			return "", "", err
		}
		id, err := r.engine.CreatePlaneOnFace(shapeID, s.Face)
		return id, id, err
	}
	t, err := plane.ParseType(s.Type)
	if err != nil {
		return "", "", err
	}
	origin, err := vec3(s.Origin)
	if err != nil {
		return "", "", fmt.Errorf("origin: %w", err)
	}
	var id string
	if t == plane.Custom {
		if s.Normal == nil {
			return "", "", fmt.Errorf("custom plane requires normal")
		}
		normal, err := vec3(s.Normal)
		if err != nil {
			return "", "", fmt.Errorf("normal: %w", err)
		}
		id, err = r.engine.CreateCustomPlane(origin, normal)
		if err != nil {
			return "", "", err
		}
		return id, id, nil
	}
	id, err = r.engine.CreatePlane(t, origin)
	return id, id, err
}

func (r *Runner) element(s Step) (string, string, error) {
	sketchID, err := r.resolve(s.Sketch)
	if err != nil {
		return "", "", err
	}
	t, err := sketch.ParseType(s.Type)
	if err != nil {
		return "", "", err
	}
	req := sketch.AddRequest{
		Type:      t,
		Radius:    s.Radius,
		Width:     s.Width,
		Height:    s.Height,
		Sides:     s.Sides,
		ArcMode:   sketch.ArcMode(s.ArcMode),
		LargeArc:  s.LargeArc,
		Clockwise: s.Clockwise,
	}
	for _, f := range []struct {
		name string
		src  []float64
		dst  *r2.Vec
	}{
		{"start", s.Start, &req.Start},
		{"end", s.End, &req.End},
		{"mid", s.Mid, &req.Mid},
		{"center", s.Center, &req.Center},
		{"corner", s.Corner, &req.Corner},
	} {
		if *f.dst, err = vec2(f.src); err != nil {
			return "", "", fmt.Errorf("%s: %w", f.name, err)
		}
	}
	id, err := r.engine.AddElement(sketchID, req)
	return id, id, err
}

func (r *Runner) edit(s Step) (string, string, error) {
	sketchID, err := r.resolve(s.Sketch)
	if err != nil {
		return "", "", err
	}
	op, err := sketch.ParseEditOp(s.Type)
	if err != nil {
		return "", "", err
	}
	ids, err := r.resolveAll(s.IDs)
	if err != nil {
		return "", "", err
	}
	target, err := r.resolve(s.Target)
	if err != nil {
		return "", "", err
	}
	req := sketch.EditRequest{
		Op:           op,
		IDs:          ids,
		Target:       target,
		KeepStart:    s.KeepStart,
		ExtendStart:  s.ExtendStart,
		KeepOriginal: s.KeepOriginal,
		Radius:       s.Radius,
		Distance:     s.Distance,
		Count:        s.Count,
		Angle:        s.Angle,
	}
	for _, f := range []struct {
		name string
		src  []float64
		dst  *r2.Vec
	}{
		{"direction", s.Direction, &req.Direction},
		{"point1", s.Point1, &req.Point1},
		{"point2", s.Point2, &req.Point2},
		{"center", s.Center, &req.Center},
	} {
		if *f.dst, err = vec2(f.src); err != nil {
			return "", "", fmt.Errorf("%s: %w", f.name, err)
		}
	}
	if op == sketch.OpOffsetDirectional {
		if req.Side, err = sketch.ParseSide(s.Side); err != nil {
			return "", "", err
		}
	}
	out, err := r.engine.EditElement(sketchID, req)
	if err != nil {
		return "", "", err
	}
	return strings.Join(out, " "), first(out), nil
}

func (r *Runner) extrude(s Step) (string, string, error) {
	sketchID, err := r.resolve(s.Sketch)
	if err != nil {
		return "", "", err
	}
	elementID, err := r.resolve(s.Element)
	if err != nil {
		return "", "", err
	}
	target, err := r.resolve(s.Target)
	if err != nil {
		return "", "", err
	}
	t, err := feature.ParseType(s.Type)
	if err != nil {
		return "", "", err
	}
	p := feature.Params{
		Type:          t,
		Distance:      s.Distance,
		Distance2:     s.Distance2,
		Reverse:       s.Reverse,
		TaperAngle:    s.Angle,
		TargetShapeID: target,
	}
	if s.Direction != nil {
		d, err := vec3(s.Direction)
		if err != nil {
			return "", "", fmt.Errorf("direction: %w", err)
		}
		p.Direction = &d
	}
	res, err := r.engine.Extrude(sketchID, elementID, p)
	if err != nil {
		return "", "", err
	}
	return res.FeatureID + " " + res.ShapeID, res.ShapeID, nil
}

func (r *Runner) boolean(s Step) (string, string, error) {
	kind, err := engine.ParseBooleanKind(s.Type)
	if err != nil {
		return "", "", err
	}
	ids, err := r.resolveAll([]string{s.ShapeA, s.ShapeB, s.Result})
	if err != nil {
		return "", "", err
	}
	id, err := r.engine.Boolean(kind, ids[0], ids[1], ids[2], s.Overwrite)
	return id, id, err
}

// ============================================================
// Helpers
// ============================================================

func primitiveParams(s Step) (engine.PrimitiveParams, error) {
	p := engine.PrimitiveParams{
		Width:   s.Width,
		Height:  s.Height,
		Depth:   s.Depth,
		Radius:  s.Radius,
		Radius2: s.Radius2,
	}
	var err error
	if p.Origin, err = vec3(s.Origin); err != nil {
		return p, fmt.Errorf("origin: %w", err)
	}
	if p.Axis, err = vec3(s.Axis); err != nil {
		return p, fmt.Errorf("axis: %w", err)
	}
	return p, nil
}

// vec2 и vec3 принимают пустой список как нулевой вектор.
func vec2(v []float64) (r2.Vec, error) {
	switch len(v) {
	case 0:
		return r2.Vec{}, nil
	case 2:
		return r2.Vec{X: v[0], Y: v[1]}, nil
	}
	return r2.Vec{}, fmt.Errorf("want 2 coordinates, got %d", len(v))
}

func vec3(v []float64) (r3.Vec, error) {
	switch len(v) {
	case 0:
		return r3.Vec{}, nil
	case 3:
		return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, nil
	}
	return r3.Vec{}, fmt.Errorf("want 3 coordinates, got %d", len(v))
}

func first(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
