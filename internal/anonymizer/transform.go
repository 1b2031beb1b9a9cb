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
package anonymizer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/classifier"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/detector"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/pseudo"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/redact"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/strategy"
)

// transformer applies a job's strategies to pages. It owns the job's generator.
type transformer struct {
	detector   *detector.Detector
	classifier classifier.TextClassifier
	strategies strategy.Map
	generator  *pseudo.Generator
	policy     redact.Policy
	merge      detector.MergeOptions
	strict     bool
}

func (a *Anonymizer) newTransformer(strategies strategy.Map) *transformer {
	gen := a.newGenerator()
	return &transformer{
		detector:   a.detector,
		classifier: a.classifier,
		strategies: strategies,
		generator:  gen,
		policy: redact.Policy{
			Hide:         a.opts.Hide,
			Placeholder:  a.opts.Placeholder,
			UseGenerator: a.opts.UseGenerator,
			Generator:    gen,
		},
		merge:  a.opts.Merge,
		strict: a.opts.StrictClassifier,
	}
}

type cell struct {
	row, col int
}

// apply returns a transformed copy of page. NULLs pass through unchanged.
func (t *transformer) apply(ctx context.Context, page dataset.Page) (dataset.Page, error) {
	out := dataset.Page{Columns: page.Columns, Rows: make([]dataset.Row, len(page.Rows))}
	for i, row := range page.Rows {
		out.Rows[i] = append(dataset.Row(nil), row...)
	}

	var texts []string
	var cells []cell
	for ci, col := range page.Columns {
		s := t.strategies.Get(col.Name)
		for ri, row := range page.Rows {
			v := row[ci]
			if v.Null {
				continue
			}
			switch s.Kind {
			case strategy.Classify:
				texts = append(texts, v.String())
				cells = append(cells, cell{row: ri, col: ci})
			case strategy.Generate:
				synthetic := t.generator.Generate(v.String(), s.Entity)
				out.Rows[ri][ci] = convert(col, synthetic)
			}
		}
	}

	if len(texts) == 0 {
		return out, nil
	}
	preds, err := t.classify(ctx, texts)
	if err != nil {
		if t.strict {
			return dataset.Page{}, err
		}
		zap.S().Warnf("WARN: %v; text columns of this chunk are left untransformed", err)
		return out, nil
	}
	for i, text := range texts {
		c := cells[i]
		col := page.Columns[c.col]
		redacted := t.redact(col.Name, text, preds[i])
		out.Rows[c.row][c.col] = convert(col, redacted)
	}
	return out, nil
}

// classify runs one batch call for all texts of a page.
func (t *transformer) classify(ctx context.Context, texts []string) ([][]classifier.Prediction, error) {
	preds, err := t.classifier.ClassifyBatch(ctx, texts)
	if err != nil {
		var cf *classifier.ErrClassifierFailure
		if errors.As(err, &cf) {
			return nil, err
		}
		return nil, &classifier.ErrClassifierFailure{Msg: "batch classification failed", Err: err}
	}
	if len(preds) != len(texts) {
		return nil, &classifier.ErrClassifierFailure{Msg: fmt.Sprintf("classifier returned %d results for %d texts", len(preds), len(texts))}
	}
	return preds, nil
}

func (t *transformer) redact(column, text string, preds []classifier.Prediction) string {
	spans := t.detector.Detect(text)
	modelSpans, errs := classifier.ToSpans(text, preds)
	for _, err := range errs {
		zap.S().Debugf("DEBUG: Column[%s] %v", column, err)
	}
	merged := detector.Merge(append(spans, modelSpans...), t.merge)
	redacted, errs := redact.Redact(text, merged, t.policy)
	for _, err := range errs {
		zap.S().Warnf("WARN: Column[%s] %v", column, err)
	}
	return redacted
}

// convert stores s in the column's type, writing NULL when it does not fit.
func convert(col dataset.ColumnDescriptor, s string) dataset.Value {
	v, err := dataset.Convert(s, col.DeclaredType)
	if err != nil {
		zap.S().Warnf("WARN: Column[%s] %v; writing NULL", col.Name, err)
	}
	return v
}
