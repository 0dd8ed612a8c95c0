package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"cad-service/internal/cad/models"
)

// ============================================================
// SQLite Journal
// ============================================================

//go:embed migrations/*.sql
var migrations embed.FS

// Repository: журнал операций сессий.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Init применяет миграции.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (r *Repository) stamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

// Touch регистрирует сессию или обновляет время последнего обращения.
func (r *Repository) Touch(ctx context.Context, sessionID string) error {
	now := r.stamp()
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO sessions (id, created_at, last_seen)
        VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET last_seen = excluded.last_seen
    `, sessionID, now, now)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Record добавляет запись об операции.
func (r *Repository) Record(ctx context.Context, op models.Operation) error {
	if op.CreatedAt == "" {
		op.CreatedAt = r.stamp()
	}
	ok := 0
	if op.OK {
		ok = 1
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO operations (session_id, operation, target, ok, message, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, op.SessionID, op.Operation, op.Target, ok, op.Message, op.CreatedAt)
	if err != nil {
		return fmt.Errorf("record operation: %w", err)
	}
	return nil
}

// History возвращает последние limit операций сессии в порядке выполнения.
// limit <= 0 означает все.
func (r *Repository) History(ctx context.Context, sessionID string, limit int) ([]models.Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, session_id, operation, target, ok, message, created_at
        FROM operations
        WHERE session_id = ?
        ORDER BY id DESC
        LIMIT ?
    `, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	ops := []models.Operation{}
	for rows.Next() {
		var op models.Operation
		var ok int
		if err := rows.Scan(&op.ID, &op.SessionID, &op.Operation, &op.Target, &ok, &op.Message, &op.CreatedAt); err != nil {
			return nil, err
		}
		op.OK = ok != 0
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}

// Forget удаляет сессию и её журнал.
func (r *Repository) Forget(ctx context.Context, sessionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM operations WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("forget operations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	return tx.Commit()
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context) error {
	names, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, entry := range names {
		data, err := migrations.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
