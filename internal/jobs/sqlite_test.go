package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := NewSQLiteStore(mockDB)
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS anonymization_jobs`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.Init(ctx))

	mock.ExpectExec(`INSERT INTO anonymization_jobs .* ON CONFLICT\(job_id\) DO UPDATE`).
		WithArgs("j1", "clients", "anonymized_clients", "2024-06-01T10:00:00Z", "", "CURRENT CHUNK: 1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, s.Save(ctx, Record{JobID: "j1", SourceTable: "clients", Target: "anonymized_clients", Status: Running(1), StartedAt: t0}))

	cols := []string{"job_id", "table_name", "target", "started_at", "ended_at", "status"}
	mock.ExpectQuery(`SELECT .* FROM anonymization_jobs WHERE job_id = \?`).WithArgs("j1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("j1", "clients", "anonymized_clients", "2024-06-01T10:00:00Z", "2024-06-01T10:05:00Z", "FINISHED"))
	rec, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, rec.Status)
	assert.Equal(t, 5*time.Minute, rec.EndedAt.Sub(rec.StartedAt))

	mock.ExpectQuery(`SELECT .* FROM anonymization_jobs WHERE job_id = \?`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(cols))
	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(`SELECT .* FROM anonymization_jobs ORDER BY started_at, job_id`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("j1", "clients", "anonymized_clients", "2024-06-01T10:00:00Z", nil, "STARTED").
			AddRow("j2", "orders", "anonymized_orders", "2024-06-01T10:01:00Z", "", "FAILED: boom"))
	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].EndedAt.IsZero())
	assert.Equal(t, "boom", all[1].FailureReason())

	mock.ExpectClose()
	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
