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
	"fmt"

	"github.com/samber/lo"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database"
)

// Source is a paged, read-only view of tables.
type Source interface {
	TableExists(ctx context.Context, table string) (bool, error)
	ColumnTypes(ctx context.Context, table string) ([]ColumnDescriptor, error)
	ForeignKeyColumns(ctx context.Context, table string) ([]string, error)
	RowCount(ctx context.Context, table string) (int64, error)
	// Page returns at most limit rows starting at offset. A short or empty page
	// means the table is exhausted.
	Page(ctx context.Context, table string, columns []ColumnDescriptor, offset, limit int) (Page, error)
}

// DBSource reads tables through a database adapter.
type DBSource struct {
	DB database.DBAdapter
}

var _ Source = (*DBSource)(nil)

func NewDBSource(db database.DBAdapter) *DBSource {
	return &DBSource{DB: db}
}

func (s *DBSource) TableExists(ctx context.Context, table string) (bool, error) {
	return s.DB.TableExists(ctx, table)
}

func (s *DBSource) ColumnTypes(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	infos, err := s.DB.ListColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	return lo.Map(infos, func(c database.ColumnInfo, _ int) ColumnDescriptor {
		return NewColumn(c.Name, c.DataType)
	}), nil
}

func (s *DBSource) ForeignKeyColumns(ctx context.Context, table string) ([]string, error) {
	return s.DB.ListForeignKeyColumns(ctx, table)
}

func (s *DBSource) RowCount(ctx context.Context, table string) (int64, error) {
	return s.DB.CountRows(ctx, table)
}

func (s *DBSource) Page(ctx context.Context, table string, columns []ColumnDescriptor, offset, limit int) (Page, error) {
	names := lo.Map(columns, func(c ColumnDescriptor, _ int) string { return c.Name })
	raw, err := s.DB.FetchRows(ctx, table, names, offset, limit)
	if err != nil {
		return Page{}, err
	}
	page := Page{Columns: columns, Rows: make([]Row, 0, len(raw))}
	for _, values := range raw {
		row := make(Row, len(columns))
		for i, c := range columns {
			row[i] = FromDriver(values[i], c.DeclaredType)
		}
		page.Rows = append(page.Rows, row)
	}
	return page, nil
}

// FromDriver wraps a value scanned by database/sql.
func FromDriver(v any, t DeclaredType) Value {
	switch x := v.(type) {
	case nil:
		return NullValue(t)
	case []byte:
		return Value{Type: t, Raw: string(x)}
	default:
		return Value{Type: t, Raw: x}
	}
}

// Driver returns the value to bind when writing it back.
func (v Value) Driver() any {
	if v.Null {
		return nil
	}
	return v.Raw
}
