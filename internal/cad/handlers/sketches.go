package handlers

import (
	"bytes"
	"encoding/json"

	"cad-service/internal/cad/engine"
	"cad-service/internal/cad/feature"
	"cad-service/internal/cad/models"
	"cad-service/internal/cad/plane"
	"cad-service/internal/cad/sketch"
	"cad-service/internal/cad/visual"
	"cad-service/internal/common/logging"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Planes
// ============================================================

// CreatePlane создаёт плоскость эскиза: каноническую, CUSTOM по нормали
// или на плоской грани тела (shape_id + face_index).
func (h *CADHandler) CreatePlane(c fiber.Ctx) error {
	var req models.PlaneRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}

	var typ plane.Type
	if req.ShapeID == "" {
		var err error
		if typ, err = plane.ParseType(req.PlaneType); err != nil {
			return fail(c, err)
		}
		if typ == plane.Custom && req.Normal == nil {
			return badRequest(c, "normal required for CUSTOM plane")
		}
	}

	s := h.session(c, req.SessionID)
	var payload visual.PlanePayload
	err := h.do(s, "createPlane", req.PlaneType+req.ShapeID, func(e *engine.Engine) error {
		var id string
		var err error
		switch {
		case req.ShapeID != "":
			id, err = e.CreatePlaneOnFace(req.ShapeID, req.FaceIndex)
		case typ == plane.Custom:
			id, err = e.CreateCustomPlane(req.Origin.Vec(), req.Normal.Vec())
		default:
			id, err = e.CreatePlane(typ, req.Origin.Vec())
		}
		if err != nil {
			return err
		}
		p, err := e.Plane(id)
		if err != nil {
			return err
		}
		payload = h.projector.Plane(p)
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "plane_id": payload.PlaneID, "visualization": payload})
}

// GetPlane возвращает рамку плоскости.
func (h *CADHandler) GetPlane(c fiber.Ctx) error {
	s := h.session(c, "")
	var payload visual.PlanePayload
	err := s.Do(func(e *engine.Engine) error {
		p, err := e.Plane(c.Params("id"))
		if err != nil {
			return err
		}
		payload = h.projector.Plane(p)
		return nil
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(payload)
}

// ============================================================
// Sketches
// ============================================================

// CreateSketch создаёт пустой эскиз на плоскости.
func (h *CADHandler) CreateSketch(c fiber.Ctx) error {
	var req models.SketchRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.PlaneID == "" {
		return badRequest(c, "plane_id required")
	}

	s := h.session(c, req.SessionID)
	var payload visual.SketchPayload
	err := h.do(s, "createSketch", req.PlaneID, func(e *engine.Engine) error {
		id, err := e.CreateSketch(req.PlaneID)
		if err != nil {
			return err
		}
		payload, err = h.sketchPayload(e, id)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "sketch_id": payload.SketchID, "visualization": payload})
}

// GetSketch возвращает рамку эскиза и число элементов.
func (h *CADHandler) GetSketch(c fiber.Ctx) error {
	s := h.session(c, "")
	var payload visual.SketchPayload
	err := s.Do(func(e *engine.Engine) error {
		var err error
		payload, err = h.sketchPayload(e, c.Params("id"))
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(payload)
}

// PlotSketch отдаёт картинку эскиза; ?format=svg|png|pdf, по умолчанию svg.
func (h *CADHandler) PlotSketch(c fiber.Ctx) error {
	format := c.Query("format", "svg")
	s := h.session(c, "")
	buf := &bytes.Buffer{}
	err := s.Do(func(e *engine.Engine) error {
		sk, _, err := e.Sketch(c.Params("id"))
		if err != nil {
			return err
		}
		return visual.WriteSketchPlot(sk, buf, format)
	})
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, plotContentType(format))
	return c.Send(buf.Bytes())
}

func plotContentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "pdf":
		return "application/pdf"
	}
	return fiber.MIMEOctetStream
}

func (h *CADHandler) sketchPayload(e *engine.Engine, id string) (visual.SketchPayload, error) {
	sk, pl, err := e.Sketch(id)
	if err != nil {
		return visual.SketchPayload{}, err
	}
	return h.projector.Sketch(sk, pl), nil
}

func (h *CADHandler) elementPayloads(e *engine.Engine, sketchID string, ids []string) ([]visual.ElementPayload, error) {
	sk, pl, err := e.Sketch(sketchID)
	if err != nil {
		return nil, err
	}
	out := make([]visual.ElementPayload, 0, len(ids))
	for _, id := range ids {
		p, err := h.projector.Element(sk, pl, id)
		if err != nil {
			// удалённые правкой элементы не отображаются
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ============================================================
// Elements
// ============================================================

// AddElement добавляет элемент в эскиз.
func (h *CADHandler) AddElement(c fiber.Ctx) error {
	var req models.ElementRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.SketchID == "" {
		return badRequest(c, "sketch_id required")
	}
	typ, err := sketch.ParseType(req.ElementType)
	if err != nil {
		return fail(c, err)
	}

	add := sketch.AddRequest{
		Type:      typ,
		Start:     req.Start.Vec(),
		End:       req.End.Vec(),
		Mid:       req.Mid.Vec(),
		Center:    req.Center.Vec(),
		Corner:    req.Corner.Vec(),
		Radius:    req.Radius,
		Width:     req.Width,
		Height:    req.Height,
		Sides:     req.Sides,
		ArcMode:   sketch.ArcMode(req.ArcMode),
		LargeArc:  req.LargeArc,
		Clockwise: req.Clockwise,
	}

	s := h.session(c, req.SessionID)
	var payloads []visual.ElementPayload
	err = h.do(s, "addElement", req.SketchID, func(e *engine.Engine) error {
		id, err := e.AddElement(req.SketchID, add)
		if err != nil {
			return err
		}
		payloads, err = h.elementPayloads(e, req.SketchID, []string{id})
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "element_id": payloads[0].ElementID, "visualization": payloads[0]})
}

// GetElement возвращает ломаную и параметры элемента.
func (h *CADHandler) GetElement(c fiber.Ctx) error {
	s := h.session(c, "")
	var payload visual.ElementPayload
	err := s.Do(func(e *engine.Engine) error {
		sk, pl, err := e.Sketch(c.Params("id"))
		if err != nil {
			return err
		}
		payload, err = h.projector.Element(sk, pl, c.Params("eid"))
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(payload)
}

// EditElement применяет правку и возвращает затронутые элементы.
func (h *CADHandler) EditElement(c fiber.Ctx) error {
	var req models.EditRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.SketchID == "" || len(req.ElementIDs) == 0 {
		return badRequest(c, "sketch_id and element_ids required")
	}
	op, err := sketch.ParseEditOp(req.Operation)
	if err != nil {
		return fail(c, err)
	}
	edit := sketch.EditRequest{
		Op:           op,
		IDs:          req.ElementIDs,
		Target:       req.Target,
		KeepStart:    req.KeepStart,
		ExtendStart:  req.ExtendStart,
		KeepOriginal: req.KeepOriginal,
		Radius:       req.Radius,
		Distance:     req.Distance,
		Count:        req.Count,
		Angle:        req.Angle,
		Direction:    req.Direction.Vec(),
		Point1:       req.Point1.Vec(),
		Point2:       req.Point2.Vec(),
		Center:       req.Center.Vec(),
	}
	if op == sketch.OpOffsetDirectional {
		if edit.Side, err = sketch.ParseSide(req.Side); err != nil {
			return fail(c, err)
		}
	}

	s := h.session(c, req.SessionID)
	var ids []string
	var payloads []visual.ElementPayload
	err = h.do(s, "editElement:"+string(op), req.SketchID, func(e *engine.Engine) error {
		var err error
		if ids, err = e.EditElement(req.SketchID, edit); err != nil {
			return err
		}
		payloads, err = h.elementPayloads(e, req.SketchID, ids)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "affected_ids": ids, "visualization": payloads})
}

// ImportPath добавляет линии из SVG path.
func (h *CADHandler) ImportPath(c fiber.Ctx) error {
	var req models.ImportRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.SketchID == "" || req.Path == "" {
		return badRequest(c, "sketch_id and path required")
	}

	s := h.session(c, req.SessionID)
	var ids []string
	err := h.do(s, "importPath", req.SketchID, func(e *engine.Engine) error {
		var err error
		ids, err = e.ImportPath(req.SketchID, req.Path)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "element_ids": ids})
}

// ImportSVG добавляет линии всех фигур SVG-файла из multipart/form-data.
func (h *CADHandler) ImportSVG(c fiber.Ctx) error {
	sketchID := c.Params("id")
	file, err := c.FormFile("file")
	if err != nil {
		logging.Logf("[IMPORT] FormFile error: %v", err)
		return badRequest(c, "file required in multipart/form-data")
	}
	logging.Logf("[IMPORT] %s: file %s, size %d", sketchID, file.Filename, file.Size)

	f, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer f.Close()

	s := h.session(c, c.FormValue("session_id"))
	var ids []string
	err = h.do(s, "importSVG", sketchID, func(e *engine.Engine) error {
		var err error
		ids, err = e.ImportSVG(sketchID, f)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "element_ids": ids})
}

// ============================================================
// Extrude
// ============================================================

// Extrude выдавливает эскиз или один его элемент.
func (h *CADHandler) Extrude(c fiber.Ctx) error {
	var req models.ExtrudeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.SketchID == "" {
		return badRequest(c, "sketch_id required")
	}
	typ, err := feature.ParseType(req.ExtrudeType)
	if err != nil {
		return fail(c, err)
	}
	params := feature.Params{
		Type:          typ,
		Distance:      req.Distance,
		Distance2:     req.Distance2,
		Reverse:       req.Reverse,
		TaperAngle:    req.TaperAngle,
		TargetShapeID: req.TargetShapeID,
	}
	if req.Direction != nil {
		d := req.Direction.Vec()
		params.Direction = &d
	}

	s := h.session(c, req.SessionID)
	var res engine.ExtrudeResult
	err = h.do(s, "extrude", req.SketchID, func(e *engine.Engine) error {
		var err error
		res, err = e.Extrude(req.SketchID, req.ElementID, params)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "extrude_id": res.FeatureID, "shape_id": res.ShapeID})
}
