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
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

const defaultGeminiModel = "gemini-1.5-flash-latest"

// Gemini classifies texts by prompting a Gemini model for the entities it sees
// and locating them in the original text.
type Gemini struct {
	client *genai.Client
	model  string
	retry  RetryOptions
	// generate sends a prompt and returns the first text part of the reply.
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewGemini creates a Gemini-backed classifier.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cannot create Gemini classifier: API key is missing")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
		zap.S().Infof("INFO: Gemini model not specified, defaulting to %s", cfg.Model)
	}
	g := &Gemini{client: client, model: cfg.Model, retry: DefaultRetryOptions}
	g.generate = g.callModel
	return g, nil
}

// Close cleans up the underlying Gemini client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// IsAPIKeyValid checks the key by listing one model.
func (g *Gemini) IsAPIKeyValid(ctx context.Context) error {
	if g.client == nil {
		return fmt.Errorf("gemini client not initialized")
	}
	_, err := g.client.ListModels(ctx).Next()
	if err != nil {
		if st, ok := status.FromError(err); ok {
			if st.Code() == codes.Unauthenticated || st.Code() == codes.PermissionDenied {
				return fmt.Errorf("invalid Gemini API key or insufficient permissions: %w", err)
			}
		}
		return fmt.Errorf("failed to verify Gemini API key by listing models: %w", err)
	}
	return nil
}

type geminiEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type geminiItem struct {
	Index    int            `json:"index"`
	Entities []geminiEntity `json:"entities"`
}

// ClassifyBatch sends all texts in one prompt.
func (g *Gemini) ClassifyBatch(ctx context.Context, texts []string) ([][]Prediction, error) {
	out := make([][]Prediction, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	prompt, err := buildPrompt(texts)
	if err != nil {
		return nil, &ErrClassifierFailure{Msg: "failed to build prompt", Err: err}
	}

	reply, err := withRetry(ctx, g.retry, func(ctx context.Context) (string, error) {
		return g.generate(ctx, prompt)
	})
	if err != nil {
		return nil, &ErrClassifierFailure{Msg: "Gemini API call failed", Err: err}
	}

	body, found := extractContentBetween(reply, "<result>", "</result>")
	if !found {
		return nil, &ErrClassifierFailure{Msg: "result tags not found in model reply"}
	}
	var items []geminiItem
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, &ErrClassifierFailure{Msg: "model reply is not valid JSON", Err: err}
	}
	if len(items) != len(texts) {
		return nil, &ErrClassifierFailure{Msg: fmt.Sprintf("model returned %d results for %d texts", len(items), len(texts))}
	}

	for _, item := range items {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, &ErrClassifierFailure{Msg: fmt.Sprintf("model returned out-of-range index %d", item.Index)}
		}
		out[item.Index] = locate(texts[item.Index], item.Entities)
	}
	return out, nil
}

// locate finds each entity in text. Repeated mentions of the same string map
// to successive occurrences; entities not present in text are dropped.
func locate(text string, ents []geminiEntity) []Prediction {
	var preds []Prediction
	next := map[string]int{}
	for _, e := range ents {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		label, err := entity.Parse(e.Label)
		if err != nil {
			zap.S().Debugf("dropping entity %q with unknown label %q", e.Text, e.Label)
			continue
		}
		from := next[e.Text]
		idx := strings.Index(text[from:], e.Text)
		if idx == -1 && from > 0 {
			from = 0
			idx = strings.Index(text, e.Text)
		}
		if idx == -1 {
			zap.S().Debugf("dropping entity %q not found in text", e.Text)
			continue
		}
		start := from + idx
		end := start + len(e.Text)
		next[e.Text] = end
		preds = append(preds, Prediction{Start: start, End: end, Label: label, Text: e.Text})
	}
	return preds
}

func buildPrompt(texts []string) (string, error) {
	type input struct {
		Index int    `json:"index"`
		Text  string `json:"text"`
	}
	inputs := make([]input, len(texts))
	for i, t := range texts {
		inputs[i] = input{Index: i, Text: t}
	}
	encoded, err := json.Marshal(inputs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
	You are a named-entity recognizer for data anonymization. For every input text below, list the personal or sensitive entities it contains.

	********** Input Texts (JSON) **********
	%s
	********** End Input Texts **********

	**Instructions:**
	1. Use ONLY these labels: PERSON, LOCATION, ORGANIZATION, DATE, CONTACT, EMAIL, PHONE, URL, SENSITIVE_NUMBER.
	2. Copy each entity's text EXACTLY as it appears in the input, without changing case or spacing.
	3. Return one object per input text, in the same order, even when it has no entities.
	4. Output ONLY a JSON array of the form [{"index": 0, "entities": [{"text": "...", "label": "PERSON"}]}] within <result></result> tags.
	`, encoded), nil
}

func (g *Gemini) callModel(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0)
	model.SetTopP(0.9)
	model.SetTopK(40)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if st, ok := status.FromError(err); ok {
			switch st.Code() {
			case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
				return "", &ErrUnavailable{Msg: "Gemini API call failed", Err: err}
			}
		}
		return "", err
	}
	return getFirstTextPart(resp)
}

// getFirstTextPart extracts the first text part from a Gemini response.
func getFirstTextPart(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if resp != nil && len(resp.Candidates) > 0 {
			finishReason = resp.Candidates[0].FinishReason.String()
		}
		return "", fmt.Errorf("empty or incomplete response from Gemini API. FinishReason: %s", finishReason)
	}
	part := resp.Candidates[0].Content.Parts[0]
	text, ok := part.(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part type: %T", part)
	}
	return string(text), nil
}

// extractContentBetween extracts content between start and end tags from a string.
func extractContentBetween(text, startTag, endTag string) (string, bool) {
	startIndex := strings.Index(text, startTag)
	if startIndex == -1 {
		return "", false
	}
	startIndex += len(startTag)
	endIndex := strings.Index(text[startIndex:], endTag)
	if endIndex == -1 {
		return "", false
	}
	return strings.TrimSpace(text[startIndex : startIndex+endIndex]), true
}
