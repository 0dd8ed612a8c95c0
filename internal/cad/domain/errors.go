package domain

import (
	"errors"
	"fmt"
)

// ============================================================
// Error Taxonomy
// ============================================================

// Все ошибки ядра "мягкие": операция возвращает нулевое значение и ошибку,
// состояние сессии при этом не меняется.
var (
	ErrNotFound        = errors.New("not found")
	ErrDegenerateInput = errors.New("degenerate input")
	ErrInvalidTopology = errors.New("invalid topology")
	ErrUnsupportedMode = errors.New("unsupported mode")
	ErrAlreadyExists   = errors.New("already exists")
)

// NotFound сообщает об отсутствующем объекте: kind равен "plane", "sketch", "element" и т.д.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// Degenerate оборачивает ErrDegenerateInput с пояснением.
func Degenerate(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDegenerateInput, fmt.Sprintf(format, args...))
}

// InvalidTopology оборачивает ErrInvalidTopology с пояснением.
func InvalidTopology(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTopology, fmt.Sprintf(format, args...))
}

// Unsupported оборачивает ErrUnsupportedMode с пояснением.
func Unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedMode, fmt.Sprintf(format, args...))
}

// AlreadyExists сообщает о конфликте идентификаторов.
func AlreadyExists(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrAlreadyExists, kind, id)
}
