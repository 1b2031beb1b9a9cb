package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
)

// fakeHandler speaks a postgres-like dialect against whatever pool the test provides.
type fakeHandler struct {
	pool    *sql.DB
	poolErr error
	tables  []string
	tblErr  error
}

func (f *fakeHandler) CreateCloudSQLPool(config.DatabaseConfig) (*sql.DB, error) {
	return f.pool, f.poolErr
}

func (f *fakeHandler) CreateStandardPool(config.DatabaseConfig) (*sql.DB, error) {
	return f.pool, f.poolErr
}

func (f *fakeHandler) QuoteIdentifier(name string) string { return `"` + name + `"` }

func (f *fakeHandler) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (f *fakeHandler) ListTables(context.Context, *DB) ([]string, error) {
	return f.tables, f.tblErr
}

func (f *fakeHandler) ListColumns(context.Context, *DB, string) ([]ColumnInfo, error) {
	return []ColumnInfo{{Name: "id", DataType: "integer"}}, nil
}

func (f *fakeHandler) ListForeignKeyColumns(context.Context, *DB, string) ([]string, error) {
	return nil, nil
}

func (f *fakeHandler) PageQuery(tableName string, columns []string, offset, limit int) string {
	return fmt.Sprintf("SELECT %s FROM %s LIMIT %d OFFSET %d", QuoteAll(columns, f.QuoteIdentifier), f.QuoteIdentifier(tableName), limit, offset)
}

func (f *fakeHandler) CreateTableLikeSQL(source, target string) string {
	return fmt.Sprintf("CREATE TABLE %s AS TABLE %s WITH NO DATA", f.QuoteIdentifier(target), f.QuoteIdentifier(source))
}

func newMockDB(t *testing.T, h *fakeHandler) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return &DB{Pool: mockDB, Handler: h}, mock
}

func TestRegisterAndGetDialectHandler(t *testing.T) {
	h := &fakeHandler{}
	RegisterDialectHandler("fake", h)
	got, err := GetDialectHandler("fake")
	require.NoError(t, err)
	assert.Same(t, h, got)

	_, err = GetDialectHandler("oracle")
	assert.ErrorContains(t, err, "unsupported database dialect: oracle")
}

func TestNew(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	RegisterDialectHandler("fakenew", &fakeHandler{pool: mockDB})
	db, err := New(context.Background(), config.DatabaseConfig{Dialect: "fakenew"})
	require.NoError(t, err)
	assert.Equal(t, "fakenew", db.GetConfig().Dialect)

	RegisterDialectHandler("fakebroken", &fakeHandler{poolErr: errors.New("no route")})
	_, err = New(context.Background(), config.DatabaseConfig{Dialect: "fakebroken"})
	assert.ErrorContains(t, err, "failed to create database pool")
}

func TestTableExists(t *testing.T) {
	db, _ := newMockDB(t, &fakeHandler{tables: []string{"users", "orders"}})
	ok, err := db.TableExists(context.Background(), "orders")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.TableExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	broken, _ := newMockDB(t, &fakeHandler{tblErr: errors.New("boom")})
	_, err = broken.TableExists(context.Background(), "users")
	assert.Error(t, err)
}

func TestCountRows(t *testing.T) {
	db, mock := newMockDB(t, &fakeHandler{})
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(250))

	n, err := db.CountRows(context.Background(), "users")
	require.NoError(t, err)
	assert.EqualValues(t, 250, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchRows(t *testing.T) {
	db, mock := newMockDB(t, &fakeHandler{})
	mock.ExpectQuery(`SELECT "id", "name" FROM "users" LIMIT 2 OFFSET 4`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(5, []byte("Иван")).
			AddRow(6, nil))

	rows, err := db.FetchRows(context.Background(), "users", []string{"id", "name"}, 4, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 5, rows[0][0])
	assert.Equal(t, []byte("Иван"), rows[0][1])
	assert.Nil(t, rows[1][1])
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = db.FetchRows(context.Background(), "users", nil, 0, 1)
	assert.ErrorContains(t, err, "no columns requested")
}

func TestCreateAndDropTable(t *testing.T) {
	db, mock := newMockDB(t, &fakeHandler{})
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE "users_anon" AS TABLE "users" WITH NO DATA`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE "users_anon"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, db.CreateTableLike(context.Background(), "users", "users_anon"))
	require.NoError(t, db.DropTable(context.Background(), "users_anon"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRows(t *testing.T) {
	db, mock := newMockDB(t, &fakeHandler{})
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO "t" \("id", "name"\) VALUES \(\$1, \$2\)`)
	prep.ExpectExec().WithArgs(1, "[PER]").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(2, nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := db.InsertRows(context.Background(), "t", []string{"id", "name"}, [][]any{{1, "[PER]"}, {2, nil}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowsRollsBackOnFailure(t *testing.T) {
	db, mock := newMockDB(t, &fakeHandler{})
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO "t"`)
	prep.ExpectExec().WithArgs(1).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := db.InsertRows(context.Background(), "t", []string{"id"}, [][]any{{1}})
	assert.ErrorContains(t, err, "failed inserting row #1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowsWidthMismatch(t *testing.T) {
	db, mock := newMockDB(t, &fakeHandler{})
	mock.ExpectBegin()
	mock.ExpectPrepare(`INSERT INTO "t"`)
	mock.ExpectRollback()

	err := db.InsertRows(context.Background(), "t", []string{"id", "name"}, [][]any{{1}})
	assert.ErrorContains(t, err, "has 1 values for 2 columns")
}

func TestExecuteSQLStatements(t *testing.T) {
	db, mock := newMockDB(t, &fakeHandler{})
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE b").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	err := db.ExecuteSQLStatements(context.Background(), []string{"UPDATE a", "  ", "UPDATE b"})
	assert.ErrorContains(t, err, "failed executing statement #3")
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.NoError(t, db.ExecuteSQLStatements(context.Background(), nil))
}

func TestUninitializedDB(t *testing.T) {
	db := &DB{}
	_, err := db.ListTables(context.Background())
	assert.Error(t, err)
	assert.Error(t, db.Ping(context.Background()))
	assert.NoError(t, db.Close())
}

func TestQuoteAll(t *testing.T) {
	q := func(s string) string { return "[" + s + "]" }
	assert.Equal(t, "[a], [b]", QuoteAll([]string{"a", "b"}, q))
	assert.Equal(t, "", QuoteAll(nil, q))
}
