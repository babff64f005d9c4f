package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

func TestScheduleHistoryInsertAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleHistoryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_history")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Insert(context.Background(), &models.ScheduleHistory{
		Cost:         3.5,
		ScheduleJSON: types.JSONText(`{"assignments":[]}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleHistoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleHistoryRepository(db)
	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "created_at", "cost", "schedule_json"}).
		AddRow("hist-1", created, 2.0, []byte(`{"assignments":[]}`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, cost, schedule_json FROM schedule_history WHERE id = $1")).
		WithArgs("hist-1").
		WillReturnRows(rows)

	history, err := repo.FindByID(context.Background(), "hist-1")
	require.NoError(t, err)
	require.Equal(t, "hist-1", history.ID)
	require.Equal(t, 2.0, history.Cost)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleHistoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleHistoryRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, cost, schedule_json FROM schedule_history")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleHistoryListClampsLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleHistoryRepository(db)
	rows := sqlmock.NewRows([]string{"id", "created_at", "cost"}).
		AddRow("hist-1", time.Now(), 1.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, cost FROM schedule_history ORDER BY created_at DESC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(rows)

	metas, err := repo.List(context.Background(), -5)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleHistoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewScheduleHistoryRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_history WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
