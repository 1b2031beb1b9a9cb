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

// Package jobs records the progress of anonymization jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status strings as they are stored and displayed.
const (
	StatusStarted      = "STARTED"
	StatusFinished     = "FINISHED"
	chunkStatusPrefix  = "CURRENT CHUNK: "
	failedStatusPrefix = "FAILED: "
)

// TimeLayout is used for the start and end columns of persisted records.
const TimeLayout = time.RFC3339

// ErrNotFound is returned by Get for an unknown job id.
var ErrNotFound = errors.New("job not found")

// Record is the progress of one job. A job id has a single writer.
type Record struct {
	JobID       string    `json:"job_id" yaml:"job_id"`
	SourceTable string    `json:"table_name" yaml:"table_name"`
	Target      string    `json:"target" yaml:"target"`
	Status      string    `json:"status" yaml:"status"`
	StartedAt   time.Time `json:"start" yaml:"start"`
	EndedAt     time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

// Running formats the status of the n-th processed chunk.
func Running(chunk int) string {
	return chunkStatusPrefix + strconv.Itoa(chunk)
}

// Failed formats a failure status.
func Failed(reason string) string {
	return failedStatusPrefix + reason
}

// Chunk returns the chunk number of a running status.
func (r Record) Chunk() (int, bool) {
	if !strings.HasPrefix(r.Status, chunkStatusPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(r.Status, chunkStatusPrefix))
	return n, err == nil
}

// Done reports whether the job reached a terminal status.
func (r Record) Done() bool {
	return r.Status == StatusFinished || strings.HasPrefix(r.Status, failedStatusPrefix)
}

// FailureReason returns the reason of a FAILED status, or "".
func (r Record) FailureReason() string {
	return strings.TrimPrefix(r.Status, failedStatusPrefix)
}

// IsFailed reports whether the job ended in FAILED.
func (r Record) IsFailed() bool {
	return strings.HasPrefix(r.Status, failedStatusPrefix)
}

// Store persists job records. Implementations are safe for concurrent use.
type Store interface {
	// Save inserts or replaces the record with the same JobID.
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, jobID string) (Record, error)
	// List returns all records ordered by start time.
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Open returns the store selected by kind ("memory", "file" or "sqlite").
func Open(kind, path string) (Store, error) {
	switch strings.ToLower(kind) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file", "csv":
		return NewFileStore(path)
	case "sqlite":
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported job store %q", kind)
	}
}
