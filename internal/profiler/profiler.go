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

// Package profiler samples tables and recommends a strategy per column.
package profiler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/classifier"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/detector"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/strategy"
)

// Kind is the value kind inferred for a column.
type Kind string

const (
	KindText  Kind = "text"
	KindDate  Kind = "date"
	KindInt   Kind = "int"
	KindFloat Kind = "float"
	KindBool  Kind = "bool"
)

// ValueCount is one of a column's most frequent values.
type ValueCount struct {
	Value string `json:"value" yaml:"value"`
	Count int    `json:"count" yaml:"count"`
}

// Result is the profile of one column.
type Result struct {
	Column           string            `json:"column" yaml:"column"`
	DetectedEntities []entity.Type     `json:"detected_entities" yaml:"detected_entities"`
	InferredKind     Kind              `json:"inferred_kind" yaml:"inferred_kind"`
	IsReference      bool              `json:"is_reference" yaml:"is_reference"`
	Excluded         bool              `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	TopValues        []ValueCount      `json:"top_values" yaml:"top_values"`
	UniqueCount      int               `json:"unique_count" yaml:"unique_count"`
	MeanLength       float64           `json:"mean_length" yaml:"mean_length"`
	Enumerable       bool              `json:"enumerable" yaml:"enumerable"`
	Recommended      strategy.Strategy `json:"recommended_strategy" yaml:"recommended_strategy"`
}

// Options tune sampling and the enumerable heuristic.
type Options struct {
	SampleSize int
	TopN       int
	// ExcludedColumns only get statistics.
	ExcludedColumns []string
	// A column is enumerable with fewer than EnumerableMaxTypes entity types
	// and a mean value length below EnumerableMaxMeanLength.
	EnumerableMaxTypes      int
	EnumerableMaxMeanLength float64
	Merge                   detector.MergeOptions
}

func DefaultOptions() Options {
	return Options{
		SampleSize:              1000,
		TopN:                    4,
		ExcludedColumns:         []string{"id", "created_at", "updated_at"},
		EnumerableMaxTypes:      3,
		EnumerableMaxMeanLength: 30,
		Merge:                   detector.DefaultMergeOptions(),
	}
}

// Profiler inspects a sample of each table.
type Profiler struct {
	source     dataset.Source
	detector   *detector.Detector
	classifier classifier.TextClassifier
	opts       Options
}

func New(src dataset.Source, det *detector.Detector, cls classifier.TextClassifier, opts Options) *Profiler {
	if det == nil {
		det = detector.New(detector.Options{})
	}
	if cls == nil {
		cls = classifier.Nop{}
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultOptions().SampleSize
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultOptions().TopN
	}
	return &Profiler{source: src, detector: det, classifier: cls, opts: opts}
}

// Profile samples the first page of table and profiles every column.
func (p *Profiler) Profile(ctx context.Context, table string) (map[string]Result, error) {
	exists, err := p.source.TableExists(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", table, err)
	}
	if !exists {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	columns, err := p.source.ColumnTypes(ctx, table)
	if err != nil {
		return nil, err
	}
	fks, err := p.source.ForeignKeyColumns(ctx, table)
	if err != nil {
		zap.S().Warnf("WARN: Table[%s] Failed to read foreign keys, none will be flagged: %v", table, err)
	}
	page, err := p.source.Page(ctx, table, columns, 0, p.opts.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s: %w", table, err)
	}

	results := make(map[string]Result, len(columns))
	for ci, col := range columns {
		values := make([]string, 0, page.Len())
		for _, row := range page.Rows {
			if !row[ci].Null {
				values = append(values, row[ci].String())
			}
		}
		res := p.profileColumn(ctx, col, values)
		res.IsReference = lo.Contains(fks, col.Name)
		res.Excluded = lo.ContainsBy(p.opts.ExcludedColumns, func(e string) bool { return strings.EqualFold(e, col.Name) })
		if res.IsReference || res.Excluded {
			res.DetectedEntities = nil
			res.Enumerable = false
			res.Recommended = strategy.Strategy{Kind: strategy.Skip}
		}
		results[col.Name] = res
	}
	zap.S().Infof("INFO: Table[%s] Profiled %d column(s) over %d sampled row(s)", table, len(columns), page.Len())
	return results, nil
}

func (p *Profiler) profileColumn(ctx context.Context, col dataset.ColumnDescriptor, values []string) Result {
	res := Result{Column: col.Name, InferredKind: inferKind(col.DeclaredType, values)}
	res.UniqueCount, res.TopValues = frequencies(values, p.opts.TopN)
	if len(values) > 0 {
		total := lo.SumBy(values, func(v string) int { return utf8.RuneCountInString(v) })
		res.MeanLength = float64(total) / float64(len(values))
	}

	switch res.InferredKind {
	case KindDate:
		res.DetectedEntities = []entity.Type{entity.Date}
	case KindInt, KindFloat:
		res.DetectedEntities = []entity.Type{entity.SensitiveNumber}
	case KindBool:
	default:
		res.DetectedEntities = p.detectText(ctx, col.Name, values)
	}
	res.Enumerable = len(res.DetectedEntities) < p.opts.EnumerableMaxTypes && res.MeanLength < p.opts.EnumerableMaxMeanLength
	res.Recommended = recommend(res)
	return res
}

// Two line breaks keep single-whitespace patterns from pairing words of
// adjacent values, and exceed the default merge proximity.
const sampleSeparator = "\n\n"

// detectText runs the detector over the concatenated sample. When the
// standard pass finds nothing, one aggressive pass that also asks the
// classifier decides whether the column holds anything sensitive at all.
func (p *Profiler) detectText(ctx context.Context, column string, values []string) []entity.Type {
	if len(values) == 0 {
		return nil
	}
	joined := strings.Join(values, sampleSeparator)
	spans := detector.Merge(p.detector.DetectWithSensitivity(joined, detector.Standard), p.opts.Merge)
	if len(spans) > 0 {
		return typesOf(spans)
	}

	deep := p.detector.DetectWithSensitivity(joined, detector.Aggressive)
	preds, err := p.classifier.ClassifyBatch(ctx, []string{joined})
	switch {
	case err != nil:
		zap.S().Warnf("WARN: Column[%s] Deep pass classifier failed: %v", column, err)
	case len(preds) != 1:
		zap.S().Warnf("WARN: Column[%s] Deep pass classifier returned %d results for 1 text", column, len(preds))
	default:
		modelSpans, _ := classifier.ToSpans(joined, preds[0])
		deep = append(deep, modelSpans...)
	}
	if len(deep) > 0 {
		return []entity.Type{entity.SensitiveNumber}
	}
	return nil
}

func typesOf(spans []entity.Span) []entity.Type {
	types := lo.Uniq(lo.Map(spans, func(s entity.Span, _ int) entity.Type { return s.Label }))
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func recommend(res Result) strategy.Strategy {
	switch res.InferredKind {
	case KindDate:
		return strategy.Strategy{Kind: strategy.Generate, Entity: entity.Date}
	case KindInt, KindFloat:
		return strategy.Strategy{Kind: strategy.Generate, Entity: entity.SensitiveNumber}
	case KindBool:
		return strategy.Strategy{Kind: strategy.Skip}
	}
	switch {
	case len(res.DetectedEntities) == 0:
		return strategy.Strategy{Kind: strategy.Skip}
	case res.Enumerable && len(res.DetectedEntities) == 1:
		return strategy.Strategy{Kind: strategy.Generate, Entity: res.DetectedEntities[0]}
	default:
		return strategy.Strategy{Kind: strategy.Classify}
	}
}

// inferKind trusts the declared type and only looks at values when the type is unknown.
func inferKind(t dataset.DeclaredType, values []string) Kind {
	switch t {
	case dataset.Text, dataset.Varchar:
		return KindText
	case dataset.Date:
		return KindDate
	case dataset.Integer:
		return KindInt
	case dataset.Float, dataset.Numeric:
		return KindFloat
	case dataset.Boolean:
		return KindBool
	}
	if len(values) == 0 {
		return KindText
	}
	all := func(ok func(string) bool) bool { return lo.EveryBy(values, ok) }
	switch {
	case all(func(v string) bool { _, err := strconv.ParseInt(v, 10, 64); return err == nil }):
		return KindInt
	case all(func(v string) bool { _, err := strconv.ParseFloat(v, 64); return err == nil }):
		return KindFloat
	case all(func(v string) bool { _, err := strconv.ParseBool(v); return err == nil }):
		return KindBool
	case all(func(v string) bool { _, err := dataset.Convert(v, dataset.Date); return err == nil }):
		return KindDate
	}
	return KindText
}

func frequencies(values []string, topN int) (int, []ValueCount) {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	top := lo.MapToSlice(counts, func(v string, n int) ValueCount { return ValueCount{Value: v, Count: n} })
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Value < top[j].Value
	})
	if len(top) > topN {
		top = top[:topN]
	}
	return len(counts), top
}

// Recommend turns profiles into column=strategy overrides.
func Recommend(results map[string]Result) map[string]string {
	return lo.MapValues(results, func(r Result, _ string) string { return r.Recommended.String() })
}

// Report is table name to column profiles.
type Report map[string]map[string]Result

// ProfileAll profiles tables concurrently, at most parallelism at a time (0
// means unbounded). Tables that fail are logged and left out; the error lists
// every failure.
func (p *Profiler) ProfileAll(ctx context.Context, tables []string, parallelism int) (Report, error) {
	startTime := time.Now()
	report := make(Report, len(tables))
	var mu sync.Mutex
	var allErrors []error

	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for _, table := range tables {
		table := table
		g.Go(func() error {
			res, err := p.Profile(gctx, table)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.S().Errorf("ERROR: Table[%s] Profiling failed: %v", table, err)
				allErrors = append(allErrors, fmt.Errorf("table %s: %w", table, err))
				return nil
			}
			report[table] = res
			return nil
		})
	}
	_ = g.Wait()

	zap.S().Infof("INFO: Profiled %d of %d table(s) in %s", len(report), len(tables), time.Since(startTime))
	if len(allErrors) > 0 {
		messages := lo.Map(allErrors, func(e error, _ int) string { return e.Error() })
		sort.Strings(messages)
		return report, fmt.Errorf("encountered %d error(s) during profiling:\n- %s", len(allErrors), strings.Join(messages, "\n- "))
	}
	return report, nil
}
