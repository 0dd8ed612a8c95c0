package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// ============================================================
// Session Middleware
// ============================================================

const (
	SessionHeader = "X-Session-ID"
	sessionLocal  = "session_id"
)

// Session берёт id сессии из заголовка X-Session-ID или параметра
// ?session_id=, а если его нет, выдаёт новый. Id возвращается в ответе.
func Session() fiber.Handler {
	return func(c fiber.Ctx) error {
		id := c.Get(SessionHeader)
		if id == "" {
			id = c.Query("session_id")
		}
		if id == "" {
			id = uuid.NewString()
		}
		SetSessionID(c, id)
		return c.Next()
	}
}

// SessionID возвращает id сессии текущего запроса.
func SessionID(c fiber.Ctx) string {
	id, _ := c.Locals(sessionLocal).(string)
	return id
}

// SetSessionID заменяет id сессии, например на указанный в теле запроса.
func SetSessionID(c fiber.Ctx, id string) {
	c.Locals(sessionLocal, id)
	c.Set(SessionHeader, id)
}
