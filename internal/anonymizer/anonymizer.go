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

// Package anonymizer copies tables page by page while replacing sensitive
// values, and tracks each copy as a job.
package anonymizer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/classifier"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/detector"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/jobs"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/pseudo"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/strategy"
)

// Options configure every job run by an Anonymizer.
type Options struct {
	PageSize int
	// RowLimit caps the rows copied per job; 0 means no limit.
	RowLimit      int
	ExistingTable ExistingTablePolicy
	// Columns restricts transformation to these columns; empty means all.
	Columns   []string
	Overrides map[string]string
	Hide      entity.Set
	// Placeholder replaces hidden spans unless UseGenerator is set.
	Placeholder  string
	UseGenerator bool
	// StrictClassifier fails the job when a batch cannot be classified
	// instead of leaving the page's text columns as they are.
	StrictClassifier bool
	Merge            detector.MergeOptions
	// OnChunk is called after every page written.
	OnChunk func(job Job, chunk, rows int)
}

// DefaultOptions mirror the configuration defaults.
func DefaultOptions() Options {
	return Options{
		PageSize:      100,
		ExistingTable: SuffixExisting,
		Merge:         detector.DefaultMergeOptions(),
	}
}

// Job names one table copy.
type Job struct {
	ID          string
	SourceTable string
	Target      string
	// Columns replaces Options.Columns for this job when non-nil.
	Columns []string
	// Overrides are layered over Options.Overrides.
	Overrides map[string]string
}

// Anonymizer runs jobs from a source into a sink.
type Anonymizer struct {
	source     dataset.Source
	sink       dataset.Sink
	detector   *detector.Detector
	classifier classifier.TextClassifier
	store      jobs.Store
	opts       Options

	now          func() time.Time
	newGenerator func() *pseudo.Generator
}

// New wires an Anonymizer. A nil classifier is replaced by classifier.Nop and
// a nil store by an in-memory one.
func New(src dataset.Source, sink dataset.Sink, det *detector.Detector, cls classifier.TextClassifier, store jobs.Store, opts Options) *Anonymizer {
	if cls == nil {
		cls = classifier.Nop{}
	}
	if store == nil {
		store = jobs.NewMemoryStore()
	}
	if det == nil {
		det = detector.New(detector.Options{})
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultOptions().PageSize
	}
	if opts.ExistingTable == "" {
		opts.ExistingTable = SuffixExisting
	}
	return &Anonymizer{
		source:       src,
		sink:         sink,
		detector:     det,
		classifier:   cls,
		store:        store,
		opts:         opts,
		now:          time.Now,
		newGenerator: pseudo.New,
	}
}

// Run copies one table and returns the terminal job record. Failures are
// reported through the record's status; pages already written stay written.
func (a *Anonymizer) Run(ctx context.Context, job Job) jobs.Record {
	logPrefix := fmt.Sprintf("Table[%s]", job.SourceTable)
	rec := jobs.Record{
		JobID:       job.ID,
		SourceTable: job.SourceTable,
		Target:      job.Target,
		Status:      jobs.StatusStarted,
		StartedAt:   a.now(),
	}
	a.save(ctx, rec)

	fail := func(err error) jobs.Record {
		zap.S().Errorf("ERROR: %s Job %s failed: %v", logPrefix, job.ID, err)
		rec.Status = jobs.Failed(err.Error())
		rec.EndedAt = a.now()
		a.save(ctx, rec)
		return rec
	}

	exists, err := a.source.TableExists(ctx, job.SourceTable)
	if err != nil {
		return fail(fmt.Errorf("failed to look up %s: %w", job.SourceTable, err))
	}
	if !exists {
		return fail(&ErrSourceNotFound{Msg: fmt.Sprintf("table %s does not exist", job.SourceTable)})
	}
	columns, err := a.source.ColumnTypes(ctx, job.SourceTable)
	if err != nil {
		return fail(err)
	}
	target, err := a.prepareTarget(ctx, job.SourceTable, job.Target, columns)
	if err != nil {
		return fail(err)
	}
	rec.Target = target

	include := a.opts.Columns
	if job.Columns != nil {
		include = job.Columns
	}
	strategies := strategy.BuildMap(columns, include, mergeOverrides(a.opts.Overrides, job.Overrides))
	t := a.newTransformer(strategies)
	zap.S().Infof("INFO: %s Anonymizing into %s (classify: %v, generate: %v)", logPrefix, target,
		strategies.Columns(strategy.Classify), strategies.Columns(strategy.Generate))

	offset, chunk := 0, 0
	for {
		limit := a.opts.PageSize
		if a.opts.RowLimit > 0 {
			remaining := a.opts.RowLimit - offset
			if remaining <= 0 {
				break
			}
			limit = min(limit, remaining)
		}

		page, err := a.source.Page(ctx, job.SourceTable, columns, offset, limit)
		if err != nil {
			return fail(fmt.Errorf("failed to read page at offset %d: %w", offset, err))
		}
		if page.Len() == 0 {
			break
		}

		rec.Status = jobs.Running(chunk)
		a.save(ctx, rec)
		zap.S().Debugf("DEBUG: %s Processing chunk %d (%d rows)", logPrefix, chunk, page.Len())

		out, err := t.apply(ctx, page)
		if err != nil {
			return fail(err)
		}
		if err := a.sink.AppendRows(ctx, target, columns, out.Rows); err != nil {
			return fail(&ErrSinkWrite{Msg: fmt.Sprintf("chunk %d into %s", chunk, target), Err: err})
		}
		if a.opts.OnChunk != nil {
			a.opts.OnChunk(job, chunk, page.Len())
		}

		offset += page.Len()
		chunk++
		if page.Len() < limit {
			break
		}
	}

	rec.Status = jobs.StatusFinished
	rec.EndedAt = a.now()
	a.save(ctx, rec)
	zap.S().Infof("INFO: %s Anonymized %d rows into %s in %s", logPrefix, offset, target, rec.EndedAt.Sub(rec.StartedAt))
	return rec
}

// RunAll runs independent jobs concurrently, at most parallelism at a time
// (0 means unbounded). Each job gets its own generator. Records are returned
// in job order.
func (a *Anonymizer) RunAll(ctx context.Context, jobList []Job, parallelism int) []jobs.Record {
	records := make([]jobs.Record, len(jobList))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, job := range jobList {
		i, job := i, job
		g.Go(func() error {
			records[i] = a.Run(gctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return records
}

func mergeOverrides(base, job map[string]string) map[string]string {
	if len(job) == 0 {
		return base
	}
	merged := make(map[string]string, len(base)+len(job))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range job {
		merged[k] = v
	}
	return merged
}

func (a *Anonymizer) save(ctx context.Context, rec jobs.Record) {
	if err := a.store.Save(ctx, rec); err != nil {
		zap.S().Warnf("WARN: Failed to record status %q for job %s: %v", rec.Status, rec.JobID, err)
	}
}
