package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// LivenessProbe проверяет, что приложение работает
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// Ready проверяет готовность: реестр сессий создан.
func (h *CADHandler) Ready(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ready",
		"sessions": h.sessions.Count(),
	})
}
