package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// ScheduleHistoryRepository persists solved schedules.
type ScheduleHistoryRepository struct {
	db *sqlx.DB
}

// NewScheduleHistoryRepository constructs a ScheduleHistoryRepository.
func NewScheduleHistoryRepository(db *sqlx.DB) *ScheduleHistoryRepository {
	return &ScheduleHistoryRepository{db: db}
}

// Insert stores a schedule and returns its history id.
func (r *ScheduleHistoryRepository) Insert(ctx context.Context, history *models.ScheduleHistory) (string, error) {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_history (id, created_at, cost, schedule_json) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, history.ID, history.CreatedAt, history.Cost, history.ScheduleJSON); err != nil {
		return "", fmt.Errorf("insert schedule history: %w", err)
	}
	return history.ID, nil
}

// FindByID fetches one stored schedule.
func (r *ScheduleHistoryRepository) FindByID(ctx context.Context, id string) (*models.ScheduleHistory, error) {
	const query = `SELECT id, created_at, cost, schedule_json FROM schedule_history WHERE id = $1`
	var history models.ScheduleHistory
	if err := r.db.GetContext(ctx, &history, query, id); err != nil {
		return nil, err
	}
	return &history, nil
}

// List returns history metadata, newest first.
func (r *ScheduleHistoryRepository) List(ctx context.Context, limit int) ([]models.ScheduleHistoryMeta, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, created_at, cost FROM schedule_history ORDER BY created_at DESC LIMIT $1`
	var metas []models.ScheduleHistoryMeta
	if err := r.db.SelectContext(ctx, &metas, query, limit); err != nil {
		return nil, fmt.Errorf("list schedule history: %w", err)
	}
	return metas, nil
}

// Delete removes a stored schedule.
func (r *ScheduleHistoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM schedule_history WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete schedule history: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule history: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
