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
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

var fileHeader = []string{"job_id", "table_name", "target", "start", "end", "status"}

// FileStore keeps records in a CSV file. Each Save rewrites the file so that a
// job id appears on exactly one line.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore uses path, creating it with a header if missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("job store path is empty")
	}
	s := &FileStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.writeAll(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat job store %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.readAll()
	if err != nil {
		return err
	}
	replaced := false
	for i := range recs {
		if recs[i].JobID == rec.JobID {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return s.writeAll(recs)
}

func (s *FileStore) Get(_ context.Context, jobID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.readAll()
	if err != nil {
		return Record{}, err
	}
	for _, r := range recs {
		if r.JobID == jobID {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *FileStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	sortRecords(recs)
	return recs, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) readAll() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store %s: %w", s.path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = len(fileHeader)
	lines, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read job store %s: %w", s.path, err)
	}
	var recs []Record
	for i, line := range lines {
		if i == 0 {
			continue
		}
		rec := Record{JobID: line[0], SourceTable: line[1], Target: line[2], Status: line[5]}
		if rec.StartedAt, err = parseTime(line[3]); err != nil {
			zap.S().Warnf("WARN: Job store %s line %d: bad start time: %v", s.path, i+1, err)
		}
		if rec.EndedAt, err = parseTime(line[4]); err != nil {
			zap.S().Warnf("WARN: Job store %s line %d: bad end time: %v", s.path, i+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *FileStore) writeAll(recs []Record) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to write job store %s: %w", s.path, err)
	}
	w := csv.NewWriter(f)
	lines := [][]string{fileHeader}
	for _, r := range recs {
		lines = append(lines, []string{r.JobID, r.SourceTable, r.Target, formatTime(r.StartedAt), formatTime(r.EndedAt), r.Status})
	}
	if err := w.WriteAll(lines); err != nil {
		f.Close()
		return fmt.Errorf("failed to write job store %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeLayout, s)
}
