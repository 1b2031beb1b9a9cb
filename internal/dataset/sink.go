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
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/lo"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database"
)

// Sink receives anonymized rows.
type Sink interface {
	Exists(ctx context.Context, target string) (bool, error)
	Drop(ctx context.Context, target string) error
	// EnsureSchema creates target with the layout of like unless it exists.
	EnsureSchema(ctx context.Context, like, target string, columns []ColumnDescriptor) error
	AppendRows(ctx context.Context, target string, columns []ColumnDescriptor, rows []Row) error
}

// DBSink writes to tables of the same database.
type DBSink struct {
	DB database.DBAdapter
}

var _ Sink = (*DBSink)(nil)

func NewDBSink(db database.DBAdapter) *DBSink {
	return &DBSink{DB: db}
}

func (s *DBSink) Exists(ctx context.Context, target string) (bool, error) {
	return s.DB.TableExists(ctx, target)
}

func (s *DBSink) Drop(ctx context.Context, target string) error {
	return s.DB.DropTable(ctx, target)
}

func (s *DBSink) EnsureSchema(ctx context.Context, like, target string, _ []ColumnDescriptor) error {
	exists, err := s.DB.TableExists(ctx, target)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.DB.CreateTableLike(ctx, like, target)
}

func (s *DBSink) AppendRows(ctx context.Context, target string, columns []ColumnDescriptor, rows []Row) error {
	names := lo.Map(columns, func(c ColumnDescriptor, _ int) string { return c.Name })
	values := lo.Map(rows, func(r Row, _ int) []any {
		return lo.Map(r, func(v Value, _ int) any { return v.Driver() })
	})
	return s.DB.InsertRows(ctx, target, names, values)
}

// CSVSink writes one CSV file per target into Dir. NULL is written as an empty field.
type CSVSink struct {
	Dir string
	mu  sync.Mutex
}

var _ Sink = (*CSVSink)(nil)

func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{Dir: dir}
}

// Path is the file backing target.
func (s *CSVSink) Path(target string) string {
	return filepath.Join(s.Dir, target+".csv")
}

func (s *CSVSink) Exists(_ context.Context, target string) (bool, error) {
	_, err := os.Stat(s.Path(target))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *CSVSink) Drop(_ context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path(target)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", s.Path(target), err)
	}
	return nil
}

// EnsureSchema writes the header row when the file does not exist yet.
func (s *CSVSink) EnsureSchema(ctx context.Context, _ string, target string, columns []ColumnDescriptor) error {
	exists, err := s.Exists(ctx, target)
	if err != nil || exists {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", s.Dir, err)
	}
	header := lo.Map(columns, func(c ColumnDescriptor, _ int) string { return c.Name })
	return s.write(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, [][]string{header})
}

func (s *CSVSink) AppendRows(_ context.Context, target string, _ []ColumnDescriptor, rows []Row) error {
	records := lo.Map(rows, func(r Row, _ int) []string {
		return lo.Map(r, func(v Value, _ int) string { return v.String() })
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(target, os.O_APPEND|os.O_WRONLY, records)
}

func (s *CSVSink) write(target string, flag int, records [][]string) error {
	f, err := os.OpenFile(s.Path(target), flag, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.Path(target), err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", s.Path(target), err)
	}
	return f.Close()
}
