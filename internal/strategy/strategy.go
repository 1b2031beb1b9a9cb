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

// Package strategy decides, per column, how values are anonymized.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// Kind is what happens to a column's values.
type Kind int

const (
	// Skip copies values unchanged.
	Skip Kind = iota
	// Classify runs detection and redaction over free text.
	Classify
	// Generate replaces the whole value with a synthetic one of Entity type.
	Generate
)

func (k Kind) String() string {
	switch k {
	case Classify:
		return "classify"
	case Generate:
		return "generate"
	default:
		return "skip"
	}
}

// Strategy is the resolved treatment of one column.
type Strategy struct {
	Kind   Kind
	Entity entity.Type
}

func (s Strategy) String() string {
	if s.Kind == Generate {
		return s.Entity.String()
	}
	return s.Kind.String()
}

// MarshalText renders the strategy the way ParseOverride reads it back.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseOverride reads an override token: "skip", "classify" (also "model" and
// the TEXT alias) or any entity type name, which selects the generator.
func ParseOverride(token string) (Strategy, error) {
	t := strings.TrimSpace(token)
	switch strings.ToLower(t) {
	case "skip", "none", "keep":
		return Strategy{Kind: Skip}, nil
	case "classify", "model", "text", "generic_text":
		return Strategy{Kind: Classify}, nil
	}
	typ, err := entity.Parse(t)
	if err != nil {
		return Strategy{}, fmt.Errorf("unrecognized strategy %q: %w", token, err)
	}
	return Strategy{Kind: Generate, Entity: typ}, nil
}

// Default is the strategy implied by a declared column type.
func Default(t dataset.DeclaredType) (Strategy, bool) {
	switch t {
	case dataset.Text, dataset.Varchar:
		return Strategy{Kind: Classify}, true
	case dataset.Date:
		return Strategy{Kind: Generate, Entity: entity.Date}, true
	case dataset.Integer, dataset.Float, dataset.Numeric:
		return Strategy{Kind: Generate, Entity: entity.SensitiveNumber}, true
	default:
		return Strategy{Kind: Skip}, false
	}
}

// Resolve picks the strategy for a column. A valid override always wins; an
// unrecognized one falls back to the type default.
func Resolve(col dataset.ColumnDescriptor, override string) Strategy {
	if override == "" {
		override = col.ExplicitStrategy
	}
	if override != "" {
		s, err := ParseOverride(override)
		if err == nil {
			return s
		}
		zap.S().Warnf("WARN: Column[%s]: %v, using the default for type %s", col.Name, err, col.DeclaredType)
	}
	s, ok := Default(col.DeclaredType)
	if !ok {
		zap.S().Infof("INFO: Column[%s]: no strategy for type %q, values are copied unchanged", col.Name, col.RawType)
	}
	return s
}

// Map is column name to resolved strategy, built once per job.
type Map map[string]Strategy

// Get returns the strategy for a column; unknown columns are skipped.
func (m Map) Get(column string) Strategy {
	if s, ok := m[column]; ok {
		return s
	}
	return Strategy{Kind: Skip}
}

// Columns lists the columns with the given kind, sorted.
func (m Map) Columns(kind Kind) []string {
	out := lo.Filter(lo.Keys(m), func(c string, _ int) bool { return m[c].Kind == kind })
	sort.Strings(out)
	return out
}

// BuildMap resolves every column. When include is non-empty, columns outside it
// are skipped. Overrides naming unknown columns are logged.
func BuildMap(columns []dataset.ColumnDescriptor, include []string, overrides map[string]string) Map {
	m := make(Map, len(columns))
	names := lo.Map(columns, func(c dataset.ColumnDescriptor, _ int) string { return c.Name })
	for name := range overrides {
		if !lo.Contains(names, name) {
			zap.S().Warnf("WARN: Strategy override for unknown column %q ignored", name)
		}
	}
	for _, unknown := range lo.Without(include, names...) {
		zap.S().Warnf("WARN: Included column %q does not exist", unknown)
	}
	for _, col := range columns {
		if len(include) > 0 && !lo.Contains(include, col.Name) {
			m[col.Name] = Strategy{Kind: Skip}
			continue
		}
		m[col.Name] = Resolve(col, overrides[col.Name])
	}
	return m
}
