package sqlserver

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database"
)

func TestSQLServerListForeignKeyColumns(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery(`FROM sys\.foreign_key_columns fkc`).WithArgs("orders").
		WillReturnRows(sqlmock.NewRows([]string{"column"}).AddRow("customer_id"))

	got, err := sqlServerHandler{}.ListForeignKeyColumns(context.Background(), &database.DB{Pool: mockDB}, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLServerListColumns(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT COLUMN_NAME, DATA_TYPE\s+FROM INFORMATION_SCHEMA\.COLUMNS`).WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME", "DATA_TYPE"}).AddRow("name", "nvarchar"))

	cols, err := sqlServerHandler{}.ListColumns(context.Background(), &database.DB{Pool: mockDB}, "users")
	require.NoError(t, err)
	assert.Equal(t, []database.ColumnInfo{{Name: "name", DataType: "nvarchar"}}, cols)
}

func TestSQLServerSQLGeneration(t *testing.T) {
	h := sqlServerHandler{}
	assert.Equal(t, "[a]]b]", h.QuoteIdentifier("a]b"))
	assert.Equal(t, "@p2", h.Placeholder(2))
	assert.Equal(t, "SELECT [id] FROM [users] ORDER BY (SELECT NULL) OFFSET 100 ROWS FETCH NEXT 50 ROWS ONLY",
		h.PageQuery("users", []string{"id"}, 100, 50))
	assert.Equal(t, "SELECT * INTO [users_anon] FROM [users] WHERE 1=0", h.CreateTableLikeSQL("users", "users_anon"))
}
