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
package detector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// LabelPolicy decides which label a merged span keeps.
type LabelPolicy int

const (
	// LabelByPriority keeps the highest-priority label among the merged spans.
	LabelByPriority LabelPolicy = iota
	// LabelFirstSeen keeps the label of the span that opened the group.
	LabelFirstSeen
)

// ParseLabelPolicy accepts "priority" and "first_seen" (or "first-seen").
func ParseLabelPolicy(s string) (LabelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "priority":
		return LabelByPriority, nil
	case "first_seen", "first-seen", "first":
		return LabelFirstSeen, nil
	}
	return LabelByPriority, fmt.Errorf("unknown merge label policy: %q", s)
}

// MergeOptions configures Merge.
type MergeOptions struct {
	// ProximityThreshold is the largest gap, in bytes, between two spans that
	// still joins them into one.
	ProximityThreshold int
	LabelPolicy        LabelPolicy
}

// DefaultMergeOptions joins spans separated by at most one byte and resolves
// labels by priority.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{ProximityThreshold: 1, LabelPolicy: LabelByPriority}
}

// labelRank lists labels from most to least specific.
var labelRank = map[entity.Type]int{
	entity.Contact:         0,
	entity.Email:           1,
	entity.Phone:           2,
	entity.URL:             3,
	entity.Date:            4,
	entity.Person:          5,
	entity.Organization:    6,
	entity.Location:        7,
	entity.SensitiveNumber: 8,
	entity.GenericText:     9,
}

func rank(t entity.Type) int {
	if r, ok := labelRank[t]; ok {
		return r
	}
	return len(labelRank)
}

// Merge collapses overlapping or nearly adjacent spans. The result is sorted by
// start, pairwise non-overlapping, and covers every byte the input covered.
// The input slice is not modified.
func Merge(spans []entity.Span, opts MergeOptions) []entity.Span {
	if len(spans) == 0 {
		return nil
	}
	threshold := opts.ProximityThreshold
	if threshold < 0 {
		threshold = 0
	}

	sorted := make([]entity.Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		if sorted[i].End != sorted[j].End {
			return sorted[i].End > sorted[j].End
		}
		return rank(sorted[i].Label) < rank(sorted[j].Label)
	})

	merged := make([]entity.Span, 0, len(sorted))
	current := sorted[0]
	for _, s := range sorted[1:] {
		if s.Start-current.End > threshold {
			merged = append(merged, current)
			current = s
			continue
		}
		if s.End > current.End {
			current.End = s.End
		}
		if opts.LabelPolicy == LabelByPriority && rank(s.Label) < rank(current.Label) {
			current.Label = s.Label
		}
	}
	return append(merged, current)
}
