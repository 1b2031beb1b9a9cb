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

// Package detector finds sensitive entities in free text with a fixed cascade
// of rule-based matchers, and merges overlapping findings into clean spans.
package detector

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// Sensitivity selects how eagerly person names are reported.
type Sensitivity int

const (
	// Standard drops name candidates containing a false-positive root.
	Standard Sensitivity = iota
	// Aggressive keeps every name candidate.
	Aggressive
)

func (s Sensitivity) String() string {
	if s == Aggressive {
		return "aggressive"
	}
	return "standard"
}

// ParseSensitivity accepts "standard" and "aggressive".
func ParseSensitivity(s string) (Sensitivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return Standard, nil
	case "aggressive":
		return Aggressive, nil
	}
	return Standard, fmt.Errorf("unknown sensitivity: %q", s)
}

// Options configures a Detector. The zero value is usable.
type Options struct {
	// Orgs is the organization gazetteer; nil disables list matching.
	Orgs *NameList
	// Locations replaces the built-in city gazetteer when set.
	Locations *NameList
	// FilterRoots replaces DefaultFilterRoots when non-nil.
	FilterRoots []string
	// FuzzyMatch compares filter roots case-insensitively and tolerates one edit
	// for roots of five or more runes.
	FuzzyMatch  bool
	Sensitivity Sensitivity
}

// Detector runs the matcher cascade. It is safe for concurrent use.
type Detector struct {
	orgs        *NameList
	locations   *NameList
	filterRoots []string
	fuzzy       bool
	sensitivity Sensitivity
}

// New creates a detector from opts.
func New(opts Options) *Detector {
	d := &Detector{
		orgs:        opts.Orgs,
		locations:   opts.Locations,
		filterRoots: opts.FilterRoots,
		fuzzy:       opts.FuzzyMatch,
		sensitivity: opts.Sensitivity,
	}
	if d.locations == nil {
		d.locations = NewNameList(entity.Location, DefaultLocations)
	}
	if d.filterRoots == nil {
		d.filterRoots = DefaultFilterRoots
	}
	return d
}

// Detect runs every matcher with the configured sensitivity. The result is the
// union of all matcher output ordered by start; spans may overlap until Merge.
func (d *Detector) Detect(text string) []entity.Span {
	return d.DetectWithSensitivity(text, d.sensitivity)
}

// DetectWithSensitivity is Detect with an explicit sensitivity mode.
func (d *Detector) DetectWithSensitivity(text string, sensitivity Sensitivity) []entity.Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var spans []entity.Span
	spans = append(spans, d.findContacts(text)...)
	spans = append(spans, findAll(text, datePatterns)...)
	spans = append(spans, d.findLocations(text)...)
	spans = append(spans, d.findOrgs(text)...)
	spans = append(spans, findAll(text, sensitivePatterns)...)
	spans = append(spans, d.findNames(text, sensitivity)...)

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	return spans
}

func (d *Detector) findContacts(text string) []entity.Span {
	spans := findAll(text, phoneWithExtension)
	return append(spans, findAll(text, contactPatterns)...)
}

func (d *Detector) findLocations(text string) []entity.Span {
	spans := d.locations.Find(text)
	return append(spans, findAll(text, regionPatterns)...)
}

func (d *Detector) findOrgs(text string) []entity.Span {
	spans := findAll(text, orgPatterns)
	return append(spans, d.orgs.Find(text)...)
}

func (d *Detector) findNames(text string, sensitivity Sensitivity) []entity.Span {
	candidates := findAll(text, namePatterns)
	if sensitivity == Standard {
		kept := candidates[:0]
		for _, c := range candidates {
			if !d.filtered(c.Text(text)) {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}
	return Merge(candidates, MergeOptions{ProximityThreshold: 1, LabelPolicy: LabelFirstSeen})
}

// filtered reports whether any word of candidate starts with a filter root.
func (d *Detector) filtered(candidate string) bool {
	words := strings.FieldsFunc(candidate, func(r rune) bool { return !isWordRune(r) })
	for _, w := range words {
		for _, root := range d.filterRoots {
			if d.rootMatches(w, root) {
				return true
			}
		}
	}
	return false
}

func (d *Detector) rootMatches(word, root string) bool {
	if root == "" {
		return false
	}
	if strings.HasPrefix(word, root) {
		return true
	}
	if !d.fuzzy {
		return false
	}
	lw, lr := strings.ToLower(word), strings.ToLower(root)
	if strings.HasPrefix(lw, lr) {
		return true
	}
	rootLen := utf8.RuneCountInString(lr)
	if rootLen < 5 {
		return false
	}
	head := []rune(lw)
	if len(head) > rootLen {
		head = head[:rootLen]
	}
	return levenshtein.ComputeDistance(string(head), lr) <= 1
}
