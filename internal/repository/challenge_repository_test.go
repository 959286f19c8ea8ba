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

func newChallengeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func challengeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "session_id", "name", "scheduled_at", "completed",
		"completed_at", "reflection", "tip", "created_at", "updated_at"})
}

func TestChallengeRepositoryCreateBatchAssignsIDs(t *testing.T) {
	db, mock, cleanup := newChallengeMock(t)
	defer cleanup()
	repo := NewChallengeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO challenge_tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO challenge_tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tasks := []models.ChallengeTask{
		{UserID: "u1", Name: "Sort the bookshelf", ScheduledAt: time.Now()},
		{UserID: "u1", Name: "Clear one drawer", ScheduledAt: time.Now().Add(24 * time.Hour)},
	}
	err := repo.CreateBatch(context.Background(), tasks)
	require.NoError(t, err)
	assert.NotEmpty(t, tasks[0].ID)
	assert.NotEmpty(t, tasks[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChallengeRepositoryCreateBatchRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newChallengeMock(t)
	defer cleanup()
	repo := NewChallengeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO challenge_tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO challenge_tasks").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	tasks := []models.ChallengeTask{
		{UserID: "u1", Name: "Sort the bookshelf", ScheduledAt: time.Now()},
		{UserID: "u1", Name: "Clear one drawer", ScheduledAt: time.Now().Add(24 * time.Hour)},
	}
	err := repo.CreateBatch(context.Background(), tasks)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChallengeRepositoryListAppliesWindow(t *testing.T) {
	db, mock, cleanup := newChallengeMock(t)
	defer cleanup()
	repo := NewChallengeRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM challenge_tasks WHERE user_id = \\$1 AND scheduled_at >= \\$2 AND scheduled_at <= \\$3").
		WithArgs("u1", from, to).
		WillReturnRows(challengeRows().
			AddRow("t1", "u1", nil, "Sort the bookshelf", from.Add(24*time.Hour), false, nil, nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM challenge_tasks WHERE user_id = \\$1 AND scheduled_at >= \\$2 AND scheduled_at <= \\$3").
		WithArgs("u1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	tasks, total, err := repo.List(context.Background(), models.ChallengeTaskFilter{UserID: "u1", From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChallengeRepositoryUpcomingSkipsCompleted(t *testing.T) {
	db, mock, cleanup := newChallengeMock(t)
	defer cleanup()
	repo := NewChallengeRepository(db)

	mock.ExpectQuery("WHERE user_id = \\$1 AND completed = FALSE\\s+ORDER BY scheduled_at ASC LIMIT 5").
		WithArgs("u1").
		WillReturnRows(challengeRows().
			AddRow("t1", "u1", nil, "Clear one drawer", time.Now(), false, nil, nil, nil, time.Now(), time.Now()))

	tasks, err := repo.Upcoming(context.Background(), "u1", 5)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestChallengeRepositoryComplete(t *testing.T) {
	db, mock, cleanup := newChallengeMock(t)
	defer cleanup()
	repo := NewChallengeRepository(db)

	reflection := "felt lighter already"
	mock.ExpectExec("UPDATE challenge_tasks SET completed = TRUE").
		WithArgs(sqlmock.AnyArg(), reflection, sqlmock.AnyArg(), "t1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Complete(context.Background(), "t1", "u1", &reflection)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChallengeRepositoryCompleteUnowned(t *testing.T) {
	db, mock, cleanup := newChallengeMock(t)
	defer cleanup()
	repo := NewChallengeRepository(db)

	mock.ExpectExec("UPDATE challenge_tasks SET completed = TRUE").
		WithArgs(sqlmock.AnyArg(), nil, sqlmock.AnyArg(), "t1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), "t1", "intruder", nil)
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestChallengeRepositoryDeleteUnowned(t *testing.T) {
	db, mock, cleanup := newChallengeMock(t)
	defer cleanup()
	repo := NewChallengeRepository(db)

	mock.ExpectExec("DELETE FROM challenge_tasks WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("t1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "t1", "intruder")
	assert.Equal(t, sql.ErrNoRows, err)
}
