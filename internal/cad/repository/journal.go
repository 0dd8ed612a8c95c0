package repository

import (
	"context"
	"time"

	"cad-service/internal/cad/models"
	"cad-service/internal/common/logging"
)

// Journal: обёртка для обработчиков, ошибки журнала только логируются.
// Нулевой *Journal ничего не делает.
type Journal struct {
	repo    *Repository
	timeout time.Duration
}

func NewJournal(repo *Repository) *Journal {
	return &Journal{repo: repo, timeout: 2 * time.Second}
}

// Record сохраняет результат операции и отмечает сессию.
func (j *Journal) Record(sessionID, operation, target string, err error) {
	if j == nil || j.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	op := models.Operation{SessionID: sessionID, Operation: operation, Target: target, OK: err == nil}
	if err != nil {
		op.Message = err.Error()
	}
	if terr := j.repo.Touch(ctx, sessionID); terr != nil {
		logging.Logf("[JOURNAL] %v", terr)
	}
	if rerr := j.repo.Record(ctx, op); rerr != nil {
		logging.Logf("[JOURNAL] %v", rerr)
	}
}

// History возвращает журнал сессии; без базы возвращает пустой список.
func (j *Journal) History(sessionID string, limit int) ([]models.Operation, error) {
	if j == nil || j.repo == nil {
		return []models.Operation{}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.repo.History(ctx, sessionID, limit)
}

// Forget удаляет журнал сессии.
func (j *Journal) Forget(sessionID string) {
	if j == nil || j.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if err := j.repo.Forget(ctx, sessionID); err != nil {
		logging.Logf("[JOURNAL] %v", err)
	}
}
