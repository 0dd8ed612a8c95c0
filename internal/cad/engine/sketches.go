package engine

import (
	"errors"
	"io"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/geom"
	"cad-service/internal/cad/parser"
	"cad-service/internal/cad/sketch"
	"cad-service/internal/common/logging"
)

// ============================================================
// Sketches
// ============================================================

// CreateSketch создаёт пустой эскиз на существующей плоскости.
func (e *Engine) CreateSketch(planeID string) (string, error) {
	if _, err := e.Plane(planeID); err != nil {
		return "", err
	}
	id := e.nextID("sketch", func(id string) bool {
		_, ok := e.sketches[id]
		return ok
	})
	e.sketches[id] = sketch.New(id, planeID)
	e.sketchOrder = append(e.sketchOrder, id)
	logging.Logf("[SKETCH] created %s on %s", id, planeID)
	return id, nil
}

// AddElement добавляет элемент в эскиз.
func (e *Engine) AddElement(sketchID string, req sketch.AddRequest) (string, error) {
	s, _, err := e.Sketch(sketchID)
	if err != nil {
		return "", err
	}
	id, err := s.Add(req)
	if err != nil {
		logging.Logf("[SKETCH] %s: add %s rejected: %v", sketchID, req.Type, err)
		return "", err
	}
	logging.Logf("[SKETCH] %s: added %s", sketchID, id)
	return id, nil
}

// EditElement применяет правку и возвращает id затронутых элементов.
func (e *Engine) EditElement(sketchID string, req sketch.EditRequest) ([]string, error) {
	s, _, err := e.Sketch(sketchID)
	if err != nil {
		return nil, err
	}
	ids, err := s.Edit(req)
	if err != nil {
		logging.Logf("[SKETCH] %s: %s %v rejected: %v", sketchID, req.Op, req.IDs, err)
		return nil, err
	}
	logging.Logf("[SKETCH] %s: %s -> %v", sketchID, req.Op, ids)
	return ids, nil
}

// ImportPath добавляет в эскиз по линии на каждый невырожденный участок
// SVG path. Либо добавляются все линии, либо ни одной.
func (e *Engine) ImportPath(sketchID, d string) ([]string, error) {
	s, _, err := e.Sketch(sketchID)
	if err != nil {
		return nil, err
	}
	paths, err := parser.ParsePath(d)
	if err != nil {
		return nil, domain.Degenerate("path: %v", err)
	}
	return importPolylines(s, paths)
}

// ImportSVG делает то же для всех фигур SVG-документа.
func (e *Engine) ImportSVG(sketchID string, r io.Reader) ([]string, error) {
	s, _, err := e.Sketch(sketchID)
	if err != nil {
		return nil, err
	}
	paths, err := parser.ParseSVG(r)
	if err != nil {
		return nil, domain.Degenerate("svg: %v", err)
	}
	return importPolylines(s, paths)
}

func importPolylines(s *sketch.Sketch, paths []parser.Polyline) ([]string, error) {
	var ids []string
	for _, pl := range paths {
		for i := 1; i < len(pl); i++ {
			if geom.SamePoint(pl[i-1], pl[i], geom.Epsilon) {
				continue
			}
			id, err := s.AddLine(pl[i-1], pl[i])
			if err != nil {
				for _, added := range ids {
					_, rerr := s.Remove(added)
					err = errors.Join(err, rerr)
				}
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, domain.Degenerate("path has no non-degenerate segments")
	}
	logging.Logf("[SKETCH] %s: imported %d line(s) from %d subpath(s)", s.ID, len(ids), len(paths))
	return ids, nil
}
