package anonymizer

import (
	"context"
	"errors"
	"sync"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/classifier"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/jobs"
)

type table struct {
	columns []dataset.ColumnDescriptor
	rows    []dataset.Row
}

type pull struct {
	table         string
	offset, limit int
}

type fakeSource struct {
	mu     sync.Mutex
	tables map[string]table
	pulls  []pull
	err    error
}

func (s *fakeSource) TableExists(_ context.Context, name string) (bool, error) {
	_, ok := s.tables[name]
	return ok, nil
}

func (s *fakeSource) ColumnTypes(_ context.Context, name string) ([]dataset.ColumnDescriptor, error) {
	return s.tables[name].columns, nil
}

func (s *fakeSource) ForeignKeyColumns(context.Context, string) ([]string, error) { return nil, nil }

func (s *fakeSource) RowCount(_ context.Context, name string) (int64, error) {
	return int64(len(s.tables[name].rows)), nil
}

func (s *fakeSource) Page(_ context.Context, name string, columns []dataset.ColumnDescriptor, offset, limit int) (dataset.Page, error) {
	s.mu.Lock()
	s.pulls = append(s.pulls, pull{table: name, offset: offset, limit: limit})
	s.mu.Unlock()
	if s.err != nil {
		return dataset.Page{}, s.err
	}
	rows := s.tables[name].rows
	end := min(offset+limit, len(rows))
	if offset >= end {
		return dataset.Page{Columns: columns}, nil
	}
	out := make([]dataset.Row, 0, end-offset)
	for _, r := range rows[offset:end] {
		out = append(out, append(dataset.Row(nil), r...))
	}
	return dataset.Page{Columns: columns, Rows: out}, nil
}

func (s *fakeSource) pullsFor(name string) []pull {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []pull
	for _, p := range s.pulls {
		if p.table == name {
			out = append(out, p)
		}
	}
	return out
}

type fakeSink struct {
	mu       sync.Mutex
	tables   map[string][]dataset.Row
	dropped  []string
	failAt   int
	appended int
}

func newFakeSink(existing ...string) *fakeSink {
	s := &fakeSink{tables: map[string][]dataset.Row{}}
	for _, t := range existing {
		s.tables[t] = nil
	}
	return s
}

func (s *fakeSink) Exists(_ context.Context, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[target]
	return ok, nil
}

func (s *fakeSink) Drop(_ context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, target)
	s.dropped = append(s.dropped, target)
	return nil
}

func (s *fakeSink) EnsureSchema(_ context.Context, _, target string, _ []dataset.ColumnDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[target]; !ok {
		s.tables[target] = []dataset.Row{}
	}
	return nil
}

func (s *fakeSink) AppendRows(_ context.Context, target string, _ []dataset.ColumnDescriptor, rows []dataset.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended++
	if s.failAt > 0 && s.appended >= s.failAt {
		return errors.New("disk full")
	}
	s.tables[target] = append(s.tables[target], rows...)
	return nil
}

func (s *fakeSink) rows(target string) []dataset.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[target]
}

// recordingStore keeps every status written per job.
type recordingStore struct {
	*jobs.MemoryStore
	mu      sync.Mutex
	history map[string][]string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: jobs.NewMemoryStore(), history: map[string][]string{}}
}

func (s *recordingStore) Save(ctx context.Context, rec jobs.Record) error {
	s.mu.Lock()
	s.history[rec.JobID] = append(s.history[rec.JobID], rec.Status)
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, rec)
}

type fakeClassifier struct {
	calls int
	fn    func(texts []string) ([][]classifier.Prediction, error)
}

func (c *fakeClassifier) ClassifyBatch(_ context.Context, texts []string) ([][]classifier.Prediction, error) {
	c.calls++
	return c.fn(texts)
}

func (c *fakeClassifier) Close() error { return nil }
