package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemore-app/lemore-api/internal/models"
)

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "scenario", "title", "status", "move_date", "region", "trade_method", "ai_plan_generated", "created_at", "updated_at"}).
		AddRow("sess-1", "u1", "item-triage", "Spare room", "active", nil, nil, nil, false, time.Now(), time.Now())
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{UserID: "u1", Scenario: models.ScenarioItemTriage, Title: "Spare room", Status: models.SessionStatusActive}
	err := repo.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID, "id assigned before insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByIDForUser(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT .* FROM sessions WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("sess-1", "u1").
		WillReturnRows(sessionRows())

	session, err := repo.FindByIDForUser(context.Background(), "sess-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, models.ScenarioItemTriage, session.Scenario)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindByIDForUserNotOwned(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT .* FROM sessions WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("sess-1", "intruder").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByIDForUser(context.Background(), "sess-1", "intruder")
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestSessionRepositoryList(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT .* FROM sessions WHERE user_id = \\$1 AND status = \\$2").
		WithArgs("u1", models.SessionStatusActive).
		WillReturnRows(sessionRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM sessions WHERE user_id = \\$1 AND status = \\$2").
		WithArgs("u1", models.SessionStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{UserID: "u1", Status: models.SessionStatusActive})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateStatusOneWay(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	// The WHERE clause pins status = 'active'; a closed session matches no rows.
	mock.ExpectExec("UPDATE sessions SET status = \\$1, updated_at = \\$2").
		WithArgs(models.SessionStatusCompleted, sqlmock.AnyArg(), "sess-1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "sess-1", "u1", models.SessionStatusCompleted)
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryAggregates(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"item_count", "decided_count", "expected_revenue"}).AddRow(4, 2, 120.5)
	mock.ExpectQuery("SELECT\nCOUNT\\(\\*\\) AS item_count").
		WithArgs("sess-1").
		WillReturnRows(rows)

	agg, err := repo.Aggregates(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 4, agg.ItemCount)
	assert.Equal(t, 2, agg.DecidedCount)
	assert.Equal(t, 120.5, agg.ExpectedRevenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCountPlansGenerated(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM sessions WHERE user_id = \\$1 AND ai_plan_generated = TRUE").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountPlansGenerated(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
