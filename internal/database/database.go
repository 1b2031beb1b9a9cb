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
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
)

// DBAdapter defines the database operations needed by the anonymizer and profiler.
type DBAdapter interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, tableName string) ([]ColumnInfo, error)
	ListForeignKeyColumns(ctx context.Context, tableName string) ([]string, error)
	TableExists(ctx context.Context, tableName string) (bool, error)
	CountRows(ctx context.Context, tableName string) (int64, error)
	FetchRows(ctx context.Context, tableName string, columns []string, offset, limit int) ([][]any, error)
	CreateTableLike(ctx context.Context, sourceTable, targetTable string) error
	DropTable(ctx context.Context, tableName string) error
	InsertRows(ctx context.Context, tableName string, columns []string, rows [][]any) error
	ExecuteSQLStatements(ctx context.Context, sqlStatements []string) error
	Ping(ctx context.Context) error
	Close() error
	GetConfig() config.DatabaseConfig
}

var _ DBAdapter = (*DB)(nil)

// DB holds the database connection pool and dialect handler.
type DB struct {
	Pool    *sql.DB
	Handler DialectHandler
	Config  config.DatabaseConfig
}

// ColumnInfo holds basic information about a database column.
type ColumnInfo struct {
	Name     string
	DataType string
}

// DialectHandler carries the SQL that differs between database engines.
type DialectHandler interface {
	CreateCloudSQLPool(cfg config.DatabaseConfig) (*sql.DB, error)
	CreateStandardPool(cfg config.DatabaseConfig) (*sql.DB, error)
	QuoteIdentifier(name string) string
	// Placeholder returns the bind parameter for the n-th (1-based) argument.
	Placeholder(n int) string
	ListTables(ctx context.Context, db *DB) ([]string, error)
	ListColumns(ctx context.Context, db *DB, tableName string) ([]ColumnInfo, error)
	ListForeignKeyColumns(ctx context.Context, db *DB, tableName string) ([]string, error)
	// PageQuery selects columns of tableName skipping offset rows and returning at most limit.
	PageQuery(tableName string, columns []string, offset, limit int) string
	// CreateTableLikeSQL copies column names and types of sourceTable into a new, empty targetTable.
	CreateTableLikeSQL(sourceTable, targetTable string) string
}

var (
	dialectHandlers = make(map[string]DialectHandler)
	mu              sync.RWMutex
)

func RegisterDialectHandler(dialect string, handler DialectHandler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := dialectHandlers[dialect]; exists {
		zap.S().Warnf("WARN: Dialect handler for '%s' is being overwritten.", dialect)
	}
	dialectHandlers[dialect] = handler
}

func GetDialectHandler(dialect string) (DialectHandler, error) {
	mu.RLock()
	defer mu.RUnlock()
	handler, ok := dialectHandlers[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	return handler, nil
}

func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	handler, err := GetDialectHandler(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var pool *sql.DB
	if strings.HasPrefix(cfg.Dialect, "cloudsql") {
		pool, err = handler.CreateCloudSQLPool(cfg)
	} else {
		pool, err = handler.CreateStandardPool(cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create database pool for dialect %s: %w", cfg.Dialect, err)
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database (ping failed) for dialect %s: %w", cfg.Dialect, err)
	}

	return &DB{
		Pool:    pool,
		Handler: handler,
		Config:  cfg,
	}, nil
}

func (db *DB) GetConfig() config.DatabaseConfig {
	return db.Config
}

func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	return db.Pool.PingContext(ctx)
}

func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	zap.S().Warn("WARN: Attempted to close a nil database connection pool.")
	return nil
}

func (db *DB) ready() error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	if db.Handler == nil {
		return fmt.Errorf("dialect handler not initialized")
	}
	return nil
}

func (db *DB) ListTables(ctx context.Context) ([]string, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	return db.Handler.ListTables(ctx, db)
}

func (db *DB) ListColumns(ctx context.Context, tableName string) ([]ColumnInfo, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	return db.Handler.ListColumns(ctx, db, tableName)
}

func (db *DB) ListForeignKeyColumns(ctx context.Context, tableName string) ([]string, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	return db.Handler.ListForeignKeyColumns(ctx, db, tableName)
}

func (db *DB) TableExists(ctx context.Context, tableName string) (bool, error) {
	tables, err := db.ListTables(ctx)
	if err != nil {
		return false, err
	}
	return lo.Contains(tables, tableName), nil
}

func (db *DB) CountRows(ctx context.Context, tableName string) (int64, error) {
	if err := db.ready(); err != nil {
		return 0, err
	}
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", db.Handler.QuoteIdentifier(tableName))
	if err := db.Pool.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", tableName, err)
	}
	return n, nil
}

// FetchRows returns one page of raw driver values in column order.
func (db *DB) FetchRows(ctx context.Context, tableName string, columns []string, offset, limit int) ([][]any, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns requested from %s", tableName)
	}
	query := db.Handler.PageQuery(tableName, columns, offset, limit)
	rows, err := db.Pool.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying page of %s at offset %d: %w", tableName, offset, err)
	}
	defer rows.Close()
	return scanValues(rows, len(columns))
}

func (db *DB) CreateTableLike(ctx context.Context, sourceTable, targetTable string) error {
	if err := db.ready(); err != nil {
		return err
	}
	return db.ExecuteSQLStatements(ctx, []string{db.Handler.CreateTableLikeSQL(sourceTable, targetTable)})
}

func (db *DB) DropTable(ctx context.Context, tableName string) error {
	if err := db.ready(); err != nil {
		return err
	}
	return db.ExecuteSQLStatements(ctx, []string{fmt.Sprintf("DROP TABLE %s", db.Handler.QuoteIdentifier(tableName))})
}

// InsertRows appends rows in a single transaction.
func (db *DB) InsertRows(ctx context.Context, tableName string, columns []string, rows [][]any) error {
	if err := db.ready(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	quoted := lo.Map(columns, func(c string, _ int) string { return db.Handler.QuoteIdentifier(c) })
	params := lo.Times(len(columns), func(i int) string { return db.Handler.Placeholder(i + 1) })
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		db.Handler.QuoteIdentifier(tableName), strings.Join(quoted, ", "), strings.Join(params, ", "))

	tx, err := db.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", tableName, err)
	}
	defer prepared.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row #%d has %d values for %d columns", i+1, len(row), len(columns))
		}
		if _, err := prepared.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed inserting row #%d into %s: %w", i+1, tableName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (db *DB) ExecuteSQLStatements(ctx context.Context, sqlStatements []string) error {
	if db.Pool == nil {
		return fmt.Errorf("database connection pool is not initialized")
	}
	if len(sqlStatements) == 0 {
		zap.S().Info("INFO: No SQL statements provided to ExecuteSQLStatements.")
		return nil
	}

	tx, err := db.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range sqlStatements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		_, err = tx.ExecContext(ctx, trimmedStmt)
		if err != nil {
			zap.S().Errorf("ERROR: Failed executing statement #%d: %s\nError: %v", i+1, trimmedStmt, err)
			return fmt.Errorf("failed executing statement #%d: %w", i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
