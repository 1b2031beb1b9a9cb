package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database"
)

func TestPostgresListForeignKeyColumns(t *testing.T) {
	tests := []struct {
		name          string
		tableName     string
		expected      []string
		expectedError string
		mockSetup     func(sqlmock.Sqlmock)
	}{
		{
			name:      "Foreign keys found",
			tableName: "orders",
			expected:  []string{"customer_id", "product_id"},
			mockSetup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"column_name"}).AddRow("customer_id").AddRow("product_id")
				mock.ExpectQuery(`SELECT DISTINCT kcu\.column_name\s+FROM information_schema\.table_constraints`).
					WithArgs("orders").WillReturnRows(rows)
			},
		},
		{
			name:      "No foreign keys",
			tableName: "customers",
			expected:  nil,
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FOREIGN KEY`).WithArgs("customers").
					WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
			},
		},
		{
			name:          "Query error",
			tableName:     "orders",
			expectedError: "failed to execute foreign key detection query",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FOREIGN KEY`).WithArgs("orders").WillReturnError(errors.New("connection reset"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer mockDB.Close()
			tt.mockSetup(mock)

			db := &database.DB{Pool: mockDB}
			got, err := postgresHandler{}.ListForeignKeyColumns(context.Background(), db, tt.tableName)
			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresListColumns(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT column_name, data_type\s+FROM information_schema\.columns`).WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("id", "integer").
			AddRow("full_name", "character varying"))

	cols, err := postgresHandler{}.ListColumns(context.Background(), &database.DB{Pool: mockDB}, "users")
	require.NoError(t, err)
	assert.Equal(t, []database.ColumnInfo{{Name: "id", DataType: "integer"}, {Name: "full_name", DataType: "character varying"}}, cols)
}

func TestPostgresSQLGeneration(t *testing.T) {
	h := postgresHandler{}
	assert.Equal(t, `"we""ird"`, h.QuoteIdentifier(`we"ird`))
	assert.Equal(t, "$3", h.Placeholder(3))
	assert.Equal(t, `SELECT "id", "name" FROM "users" LIMIT 100 OFFSET 200`, h.PageQuery("users", []string{"id", "name"}, 200, 100))
	assert.Equal(t, `CREATE TABLE "users_anon" AS TABLE "users" WITH NO DATA`, h.CreateTableLikeSQL("users", "users_anon"))
}

func TestPostgresRegistered(t *testing.T) {
	for _, d := range []string{"postgres", "cloudsqlpostgres"} {
		h, err := database.GetDialectHandler(d)
		require.NoError(t, err)
		assert.IsType(t, postgresHandler{}, h)
	}
}
