package parser

import (
	"encoding/xml"
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r2"
)

// ============================================================
// XML Structures
// ============================================================

type SVG struct {
	XMLName xml.Name `xml:"svg"`
	Group
}

// Group: содержимое <svg> или <g>.
type Group struct {
	Rects    []Rect     `xml:"rect"`
	Paths    []Path     `xml:"path"`
	Polygons []Polygon  `xml:"polygon"`
	Lines    []LineElem `xml:"line"`
	Groups   []Group    `xml:"g"`
}

type Rect struct {
	ID     string  `xml:"id,attr"`
	X      float64 `xml:"x,attr"`
	Y      float64 `xml:"y,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
}

type Path struct {
	ID string `xml:"id,attr"`
	D  string `xml:"d,attr"`
}

type Polygon struct {
	ID     string `xml:"id,attr"`
	Points string `xml:"points,attr"`
}

type LineElem struct {
	ID string  `xml:"id,attr"`
	X1 float64 `xml:"x1,attr"`
	Y1 float64 `xml:"y1,attr"`
	X2 float64 `xml:"x2,attr"`
	Y2 float64 `xml:"y2,attr"`
}

// ============================================================
// Parser
// ============================================================

// ParseSVG читает SVG-документ и возвращает ломаные всех rect, path,
// polygon и line, включая вложенные в <g>. Трансформации и стили
// не учитываются, координаты берутся как есть.
func ParseSVG(r io.Reader) ([]Polyline, error) {
	var svg SVG
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&svg); err != nil {
		return nil, fmt.Errorf("decode svg: %w", err)
	}

	out, err := collect(svg.Group)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("svg has no supported shapes")
	}
	return out, nil
}

func collect(svg Group) ([]Polyline, error) {
	var out []Polyline

	for _, rect := range svg.Rects {
		if rect.Width <= 0 || rect.Height <= 0 {
			continue
		}
		x0, y0 := rect.X, rect.Y
		x1, y1 := rect.X+rect.Width, rect.Y+rect.Height
		out = append(out, Polyline{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}})
	}

	for _, path := range svg.Paths {
		pls, err := ParsePath(path.D)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path.ID, err)
		}
		out = append(out, pls...)
	}

	for _, poly := range svg.Polygons {
		coords, err := parseCoords(poly.Points)
		if err != nil {
			return nil, fmt.Errorf("polygon %q: %w", poly.ID, err)
		}
		if len(coords) < 6 || len(coords)%2 != 0 {
			return nil, fmt.Errorf("polygon %q needs at least three points", poly.ID)
		}
		var pl Polyline
		for i := 0; i < len(coords); i += 2 {
			pl = append(pl, r2.Vec{X: coords[i], Y: coords[i+1]})
		}
		if pl[0] != pl[len(pl)-1] {
			pl = append(pl, pl[0])
		}
		out = append(out, pl)
	}

	for _, l := range svg.Lines {
		out = append(out, Polyline{{X: l.X1, Y: l.Y1}, {X: l.X2, Y: l.Y2}})
	}

	for _, g := range svg.Groups {
		nested, err := collect(g)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}
