package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHelpers(t *testing.T) {
	rec := Record{Status: Running(3)}
	assert.Equal(t, "CURRENT CHUNK: 3", rec.Status)
	n, ok := rec.Chunk()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.False(t, rec.Done())

	rec.Status = Failed("sink write failed")
	assert.Equal(t, "FAILED: sink write failed", rec.Status)
	assert.True(t, rec.Done())
	assert.True(t, rec.IsFailed())
	assert.Equal(t, "sink write failed", rec.FailureReason())
	_, ok = rec.Chunk()
	assert.False(t, ok)

	assert.True(t, Record{Status: StatusFinished}.Done())
	assert.False(t, Record{Status: StatusStarted}.Done())
}

func storeContract(t *testing.T, s Store) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, Record{JobID: "b", SourceTable: "orders", Target: "anonymized_orders", Status: StatusStarted, StartedAt: t0.Add(time.Minute)}))
	require.NoError(t, s.Save(ctx, Record{JobID: "a", SourceTable: "clients", Target: "anonymized_clients", Status: StatusStarted, StartedAt: t0}))
	require.NoError(t, s.Save(ctx, Record{JobID: "a", SourceTable: "clients", Target: "anonymized_clients", Status: Running(2), StartedAt: t0}))
	require.NoError(t, s.Save(ctx, Record{JobID: "a", SourceTable: "clients", Target: "anonymized_clients", Status: StatusFinished, StartedAt: t0, EndedAt: t0.Add(time.Hour)}))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, got.Status)
	assert.True(t, got.EndedAt.Equal(t0.Add(time.Hour)))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].JobID)
	assert.Equal(t, "b", all[1].JobID)
	assert.True(t, all[1].EndedAt.IsZero())
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs_log.csv")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	storeContract(t, s)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	all, err := reopened.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFileStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestStoresAreSafeForConcurrentJobs(t *testing.T) {
	stores := map[string]Store{"memory": NewMemoryStore()}
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "jobs.csv"))
	require.NoError(t, err)
	stores["file"] = fs

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("job-%d", i)
					for c := 0; c < 5; c++ {
						assert.NoError(t, s.Save(context.Background(), Record{JobID: id, Status: Running(c)}))
					}
					assert.NoError(t, s.Save(context.Background(), Record{JobID: id, Status: StatusFinished}))
				}(i)
			}
			wg.Wait()
			all, err := s.List(context.Background())
			require.NoError(t, err)
			assert.Len(t, all, 8)
			for _, r := range all {
				assert.Equal(t, StatusFinished, r.Status)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("file", filepath.Join(t.TempDir(), "j.csv"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open("redis", "")
	assert.ErrorContains(t, err, "unsupported job store")
}
