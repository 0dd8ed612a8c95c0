package handlers

import (
	"encoding/json"

	"cad-service/internal/cad/engine"
	"cad-service/internal/cad/kernel"
	"cad-service/internal/cad/models"
	"cad-service/internal/common/logging"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Shapes
// ============================================================

// CreatePrimitive строит box, cylinder, cone или sphere.
func (h *CADHandler) CreatePrimitive(c fiber.Ctx) error {
	var req models.PrimitiveRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.Type == "" {
		return badRequest(c, "type required")
	}

	params := engine.PrimitiveParams{
		Origin:  req.Origin.Vec(),
		Width:   req.Width,
		Height:  req.Height,
		Depth:   req.Depth,
		Radius:  req.Radius,
		Radius2: req.Radius2,
	}
	if req.Axis != nil {
		params.Axis = req.Axis.Vec()
	}

	s := h.session(c, req.SessionID)
	var id string
	err := h.do(s, "createPrimitive", req.Type, func(e *engine.Engine) error {
		var err error
		id, err = e.CreatePrimitive(req.Type, params)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "shape_id": id})
}

// BooleanOp выполняет union, cut или intersect.
func (h *CADHandler) BooleanOp(c fiber.Ctx) error {
	var req models.BooleanRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if req.ShapeA == "" || req.ShapeB == "" {
		return badRequest(c, "shape_a and shape_b required")
	}
	kind, err := engine.ParseBooleanKind(req.Operation)
	if err != nil {
		return fail(c, err)
	}

	s := h.session(c, req.SessionID)
	var id string
	err = h.do(s, "booleanOp", string(kind)+" "+req.ShapeA+" "+req.ShapeB, func(e *engine.Engine) error {
		var err error
		id, err = e.Boolean(kind, req.ShapeA, req.ShapeB, req.ResultID, req.Overwrite)
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "shape_id": id})
}

// Tessellate возвращает треугольную сетку тела. Для неизвестного id
// отдаёт пустую сетку с кодом 200.
func (h *CADHandler) Tessellate(c fiber.Ctx) error {
	var req models.TessellateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}

	s := h.session(c, req.SessionID)
	var mesh kernel.MeshData
	_ = s.Do(func(e *engine.Engine) error {
		mesh = e.Tessellate(req.ShapeID, req.Quality)
		return nil
	})
	logging.Logf("[TESSELLATE] %s/%s: %d vertices, %d triangles", s.ID, req.ShapeID, mesh.Metadata.VertexCount, mesh.Metadata.FaceCount)
	return c.JSON(mesh)
}

// ListShapes перечисляет тела сессии.
func (h *CADHandler) ListShapes(c fiber.Ctx) error {
	s := h.session(c, "")
	var ids []string
	_ = s.Do(func(e *engine.Engine) error {
		ids = e.ShapeIDs()
		return nil
	})
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(fiber.Map{"shape_ids": ids})
}

// GetShape возвращает объём, габариты и число граней тела.
func (h *CADHandler) GetShape(c fiber.Ctx) error {
	s := h.session(c, "")
	var info engine.ShapeInfo
	err := s.Do(func(e *engine.Engine) error {
		var err error
		info, err = e.ShapeInfo(c.Params("id"))
		return err
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(models.ShapeInfo{
		ShapeID:   info.ID,
		Source:    info.Source,
		Valid:     info.Valid,
		Volume:    info.Volume,
		BoundsMin: models.FromVec(info.Bounds.Min),
		BoundsMax: models.FromVec(info.Bounds.Max),
		FaceCount: info.FaceCount,
	})
}

// DeleteShape удаляет тело.
func (h *CADHandler) DeleteShape(c fiber.Ctx) error {
	s := h.session(c, "")
	id := c.Params("id")
	err := h.do(s, "removeShape", id, func(e *engine.Engine) error {
		return e.RemoveShape(id)
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
