package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSink(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewCSVSink(dir)
	cols := []ColumnDescriptor{NewColumn("id", "integer"), NewColumn("note", "text")}

	exists, err := sink.Exists(ctx, "clients_anon")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, sink.EnsureSchema(ctx, "clients", "clients_anon", cols))
	require.NoError(t, sink.EnsureSchema(ctx, "clients", "clients_anon", cols))
	require.NoError(t, sink.AppendRows(ctx, "clients_anon", cols, []Row{
		{{Type: Integer, Raw: int64(1)}, {Type: Text, Raw: "[PER], hello"}},
		{{Type: Integer, Raw: int64(2)}, NullValue(Text)},
	}))
	require.NoError(t, sink.AppendRows(ctx, "clients_anon", cols, []Row{
		{{Type: Integer, Raw: int64(3)}, {Type: Text, Raw: "plain"}},
	}))

	data, err := os.ReadFile(sink.Path("clients_anon"))
	require.NoError(t, err)
	assert.Equal(t, "id,note\n1,\"[PER], hello\"\n2,\n3,plain\n", string(data))

	exists, err = sink.Exists(ctx, "clients_anon")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, sink.Drop(ctx, "clients_anon"))
	require.NoError(t, sink.Drop(ctx, "clients_anon"))
	exists, _ = sink.Exists(ctx, "clients_anon")
	assert.False(t, exists)
}

func TestCSVSinkAppendWithoutSchema(t *testing.T) {
	sink := NewCSVSink(t.TempDir())
	err := sink.AppendRows(context.Background(), "nowhere", nil, []Row{{{Type: Text, Raw: "x"}}})
	assert.ErrorContains(t, err, "failed to open")
}

func TestDBSink(t *testing.T) {
	db, mock := newPostgresMock(t)
	sink := NewDBSink(db)
	ctx := context.Background()
	cols := []ColumnDescriptor{NewColumn("id", "integer"), NewColumn("name", "text")}

	mock.ExpectQuery(`FROM information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("clients"))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE "clients_anon" AS TABLE "clients" WITH NO DATA`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	require.NoError(t, sink.EnsureSchema(ctx, "clients", "clients_anon", cols))

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO "clients_anon" \("id", "name"\) VALUES \(\$1, \$2\)`)
	prep.ExpectExec().WithArgs(int64(1), "[PER]").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(int64(2), nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	require.NoError(t, sink.AppendRows(ctx, "clients_anon", cols, []Row{
		{{Type: Integer, Raw: int64(1)}, {Type: Text, Raw: "[PER]"}},
		{{Type: Integer, Raw: int64(2)}, NullValue(Text)},
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
