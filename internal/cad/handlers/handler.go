package handlers

import (
	"errors"
	"net/http"

	"cad-service/internal/cad/domain"
	"cad-service/internal/cad/engine"
	"cad-service/internal/cad/repository"
	"cad-service/internal/cad/session"
	"cad-service/internal/cad/visual"
	"cad-service/internal/common/middleware"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// CAD Handler
// ============================================================

type CADHandler struct {
	sessions  *session.Registry
	journal   *repository.Journal
	projector *visual.Projector
}

// NewCADHandler; при journal == nil история не ведётся.
func NewCADHandler(sessions *session.Registry, journal *repository.Journal, projector *visual.Projector) *CADHandler {
	return &CADHandler{
		sessions:  sessions,
		journal:   journal,
		projector: projector,
	}
}

// Register подключает маршруты к группе /api/v1 и пробы здоровья к app.
func (h *CADHandler) Register(app *fiber.App) {
	app.Get("/health/live", LivenessProbe)
	app.Get("/health/ready", h.Ready)

	api := app.Group("/api/v1", middleware.Session())

	api.Post("/models", h.CreatePrimitive)
	api.Post("/operations", h.BooleanOp)
	api.Post("/tessellate", h.Tessellate)

	api.Post("/sketch-planes", h.CreatePlane)
	api.Get("/sketch-planes/:id", h.GetPlane)
	api.Post("/sketches", h.CreateSketch)
	api.Get("/sketches/:id", h.GetSketch)
	api.Get("/sketches/:id/plot", h.PlotSketch)
	api.Post("/sketch-elements", h.AddElement)
	api.Get("/sketches/:id/elements/:eid", h.GetElement)
	api.Post("/sketch-edits", h.EditElement)
	api.Post("/sketch-imports", h.ImportPath)
	api.Post("/sketches/:id/svg", h.ImportSVG)
	api.Post("/extrude", h.Extrude)

	api.Get("/shapes", h.ListShapes)
	api.Get("/shapes/:id", h.GetShape)
	api.Delete("/shapes/:id", h.DeleteShape)

	api.Get("/sessions/:id", h.GetSession)
	api.Get("/sessions/:id/history", h.GetHistory)
	api.Delete("/sessions/:id", h.DeleteSession)
	api.Delete("/sessions", h.ClearSessions)
}

// session выбирает сессию запроса: поле session_id тела важнее заголовка.
func (h *CADHandler) session(c fiber.Ctx, bodyID string) *session.Session {
	id := middleware.SessionID(c)
	if bodyID != "" && bodyID != id {
		id = bodyID
		middleware.SetSessionID(c, id)
	}
	s, _ := h.sessions.GetOrCreate(id)
	if s.ID != id {
		middleware.SetSessionID(c, s.ID)
	}
	return s
}

// do выполняет fn под замком сессии и пишет результат в журнал.
func (h *CADHandler) do(s *session.Session, operation, target string, fn func(e *engine.Engine) error) error {
	err := s.Do(fn)
	h.journal.Record(s.ID, operation, target, err)
	return err
}

// statusOf переводит ошибку ядра в HTTP-статус.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDegenerateInput), errors.Is(err, domain.ErrInvalidTopology):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnsupportedMode):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func fail(c fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
