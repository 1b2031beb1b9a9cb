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

// Package classifier wraps an external named-entity model behind the
// TextClassifier capability.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// Prediction is one entity found by a classifier. Start and End are byte
// offsets into the classified text.
type Prediction struct {
	Start int
	End   int
	Label entity.Type
	Text  string
}

// TextClassifier labels entities in a batch of texts. The result has exactly
// one prediction slice per input text, in input order.
type TextClassifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([][]Prediction, error)
	Close() error
}

// Nop finds nothing. It stands in when no model is configured.
type Nop struct{}

func (Nop) ClassifyBatch(_ context.Context, texts []string) ([][]Prediction, error) {
	return make([][]Prediction, len(texts)), nil
}

func (Nop) Close() error { return nil }

// Config selects and configures a classifier.
type Config struct {
	Provider string // "none" or "gemini"
	APIKey   string
	Model    string
}

// New builds the classifier named by cfg.Provider.
func New(ctx context.Context, cfg Config) (TextClassifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none", "nop":
		return Nop{}, nil
	case "gemini":
		return NewGemini(ctx, cfg)
	}
	return nil, fmt.Errorf("unsupported classifier provider: %q", cfg.Provider)
}

// ToSpans converts predictions for text into spans, dropping predictions
// that do not address a valid substring.
func ToSpans(text string, preds []Prediction) ([]entity.Span, []error) {
	spans := make([]entity.Span, 0, len(preds))
	var errs []error
	for _, p := range preds {
		s := entity.Span{Start: p.Start, End: p.End, Label: p.Label}
		if !s.Valid(text) {
			errs = append(errs, fmt.Errorf("prediction %q at [%d,%d) does not align with the text", p.Text, p.Start, p.End))
			continue
		}
		spans = append(spans, s)
	}
	return spans, errs
}
