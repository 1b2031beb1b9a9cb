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

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/classifier"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/strategy"
)

// RedactTexts replaces the entities of a batch of free texts under the
// Anonymizer's hide set and replacement options. One generator serves the
// whole batch, so a value repeated across texts gets the same substitute.
// When the classifier fails the texts are redacted with the detector alone,
// unless StrictClassifier is set.
func (a *Anonymizer) RedactTexts(ctx context.Context, texts []string) ([]string, error) {
	t := a.newTransformer(strategy.Map{})
	preds, err := t.classify(ctx, texts)
	if err != nil {
		if t.strict {
			return nil, err
		}
		zap.S().Warnf("WARN: %v; using rule-based detection only", err)
		preds = nil
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		var p []classifier.Prediction
		if preds != nil {
			p = preds[i]
		}
		out[i] = t.redact("text", text, p)
	}
	return out, nil
}
