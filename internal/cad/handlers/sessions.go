package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Sessions
// ============================================================

// GetSession возвращает сводку по сессии.
func (h *CADHandler) GetSession(c fiber.Ctx) error {
	info, err := h.sessions.Info(c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(info)
}

// GetHistory возвращает журнал операций сессии (?limit=N).
func (h *CADHandler) GetHistory(c fiber.Ctx) error {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		limit = n
	}
	id := c.Params("id")
	ops, err := h.journal.History(id, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"session_id": id, "operations": ops})
}

// DeleteSession удаляет сессию и её журнал.
func (h *CADHandler) DeleteSession(c fiber.Ctx) error {
	id := c.Params("id")
	if err := h.sessions.Evict(id); err != nil {
		return fail(c, err)
	}
	h.journal.Forget(id)
	return c.JSON(fiber.Map{"success": true})
}

// ClearSessions удаляет все сессии вместе с их журналами.
func (h *CADHandler) ClearSessions(c fiber.Ctx) error {
	ids := h.sessions.Clear()
	for _, id := range ids {
		h.journal.Forget(id)
	}
	return c.JSON(fiber.Map{"success": true, "cleared": len(ids)})
}

// SweepIdle удаляет сессии без обращений дольше ttl и их журналы.
func (h *CADHandler) SweepIdle(ttl time.Duration) []string {
	ids := h.sessions.EvictIdle(ttl)
	for _, id := range ids {
		h.journal.Forget(id)
	}
	return ids
}
