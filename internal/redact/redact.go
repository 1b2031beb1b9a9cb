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

// Package redact replaces labeled spans of a text with placeholders or
// synthetic substitutes.
package redact

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// ErrMisalignedSpan reports a span that does not address a valid substring.
type ErrMisalignedSpan struct {
	Msg  string
	Span entity.Span
}

func (e *ErrMisalignedSpan) Error() string {
	return fmt.Sprintf("misaligned span [%d,%d) %s: %s", e.Span.Start, e.Span.End, e.Span.Label, e.Msg)
}

// Substituter produces a consistent substitute for a value. *pseudo.Generator
// implements it.
type Substituter interface {
	Generate(value string, typ entity.Type) string
}

// Policy decides which spans are replaced and with what.
type Policy struct {
	// Hide lists the labels to replace; empty means all.
	Hide entity.Set
	// Placeholder replaces every hidden span when set and the generator is not used.
	Placeholder string
	// UseGenerator replaces hidden spans with Generator output.
	UseGenerator bool
	Generator    Substituter
}

func (p Policy) replacement(value string, label entity.Type) string {
	if p.UseGenerator && p.Generator != nil {
		return p.Generator.Generate(value, label)
	}
	if p.Placeholder != "" {
		return p.Placeholder
	}
	return "[" + label.String() + "]"
}

// Redact returns text with every hidden span replaced. Bytes outside replaced
// spans are copied unchanged. Spans that do not fall on rune boundaries are
// skipped and reported; spans overlapping an already replaced one are skipped
// silently. Neither text nor spans is modified.
func Redact(text string, spans []entity.Span, policy Policy) (string, []error) {
	if len(spans) == 0 {
		return text, nil
	}
	ordered := make([]entity.Span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	var errs []error
	out := text
	boundary := len(text)
	for _, s := range ordered {
		if !s.Valid(text) {
			errs = append(errs, &ErrMisalignedSpan{Msg: "span is out of range or splits a character", Span: s})
			continue
		}
		if !policy.Hide.Contains(s.Label) {
			continue
		}
		if s.End > boundary {
			zap.S().Debugf("skipping span [%d,%d) overlapping a replaced span", s.Start, s.End)
			continue
		}
		out = out[:s.Start] + policy.replacement(s.Text(text), s.Label) + out[s.End:]
		boundary = s.Start
	}
	return out, errs
}
