/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const (
	jobsTable     = "anonymization_jobs"
	sqliteOptions = "?_txlock=exclusive&_timeout=30000"
)

// SQLiteStore keeps records in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (and initializes) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+sqliteOptions)
	if err != nil {
		return nil, fmt.Errorf("error while opening job db: %w", err)
	}
	s := NewSQLiteStore(db)
	if err := s.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		job_id TEXT PRIMARY KEY,
		table_name TEXT NOT NULL,
		target TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		status TEXT NOT NULL
	);`, jobsTable)

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("error creating %s table: %w", jobsTable, err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	query := fmt.Sprintf(`INSERT INTO %s (job_id, table_name, target, started_at, ended_at, status) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(job_id) DO UPDATE SET table_name = excluded.table_name, target = excluded.target,
		started_at = excluded.started_at, ended_at = excluded.ended_at, status = excluded.status`, jobsTable)
	_, err := s.db.ExecContext(ctx, query,
		rec.JobID, rec.SourceTable, rec.Target, formatTime(rec.StartedAt), formatTime(rec.EndedAt), rec.Status)
	if err != nil {
		return fmt.Errorf("save job %s: %w", rec.JobID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, jobID string) (Record, error) {
	query := fmt.Sprintf(`SELECT job_id, table_name, target, started_at, ended_at, status FROM %s WHERE job_id = ?`, jobsTable)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("lookup job %s: %w", jobID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`SELECT job_id, table_name, target, started_at, ended_at, status FROM %s ORDER BY started_at, job_id`, jobsTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var start string
	var end sql.NullString
	if err := row.Scan(&rec.JobID, &rec.SourceTable, &rec.Target, &start, &end, &rec.Status); err != nil {
		return Record{}, err
	}
	var err error
	if rec.StartedAt, err = parseTime(start); err != nil {
		return Record{}, err
	}
	if end.Valid {
		if rec.EndedAt, err = parseTime(end.String); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}
