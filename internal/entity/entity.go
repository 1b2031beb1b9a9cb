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

// Package entity defines the categories of sensitive information and the
// labeled spans that locate them inside a text.
package entity

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Type is the category of sensitive information a span represents.
type Type int

const (
	Unknown Type = iota
	Person
	Location
	Organization
	Date
	Contact
	SensitiveNumber
	Email
	Phone
	URL
	GenericText
)

// All lists every known entity type in declaration order.
var All = []Type{Person, Location, Organization, Date, Contact, SensitiveNumber, Email, Phone, URL, GenericText}

var typeNames = map[Type]string{
	Person:          "PERSON",
	Location:        "LOCATION",
	Organization:    "ORGANIZATION",
	Date:            "DATE",
	Contact:         "CONTACT",
	SensitiveNumber: "SENSITIVE_NUMBER",
	Email:           "EMAIL",
	Phone:           "PHONE",
	URL:             "URL",
	GenericText:     "GENERIC_TEXT",
}

// aliases accepts the short tags used by older strategy files and NER models.
var aliases = map[string]Type{
	"PER":       Person,
	"PERSON":    Person,
	"LOC":       Location,
	"GPE":       Location,
	"ORG":       Organization,
	"CONTACTS":  Contact,
	"SENSITIVE": SensitiveNumber,
	"NUMBER":    SensitiveNumber,
	"TEXT":      GenericText,
	"MISC":      GenericText,
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText lets entity types appear as names in JSON and YAML reports.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses canonical names and aliases.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Parse converts a label token into a Type. Matching is case-insensitive and
// accepts the canonical names as well as short aliases like PER or CONTACTS.
func Parse(token string) (Type, error) {
	normalized := strings.ToUpper(strings.TrimSpace(token))
	for t, name := range typeNames {
		if name == normalized {
			return t, nil
		}
	}
	if t, ok := aliases[normalized]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("unknown entity type: %q", token)
}

// Set is a set of entity types. A nil or empty set is treated by callers as
// "every type".
type Set map[Type]bool

// NewSet builds a set from the given types.
func NewSet(types ...Type) Set {
	s := make(Set, len(types))
	for _, t := range types {
		s[t] = true
	}
	return s
}

// ParseSet parses a list of label tokens, skipping unknown ones.
func ParseSet(tokens []string) (Set, []error) {
	s := make(Set, len(tokens))
	var errs []error
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		t, err := Parse(tok)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s[t] = true
	}
	return s, errs
}

// Contains reports whether t is in the set; an empty set contains everything.
func (s Set) Contains(t Type) bool {
	if len(s) == 0 {
		return true
	}
	return s[t]
}

// Span is a labeled half-open byte range [Start, End) into one specific text.
type Span struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Label Type `json:"label"`
}

// Valid reports whether the span addresses a non-empty range of text whose
// ends fall on rune boundaries.
func (s Span) Valid(text string) bool {
	if s.Start < 0 || s.Start >= s.End || s.End > len(text) {
		return false
	}
	return runeBoundary(text, s.Start) && runeBoundary(text, s.End)
}

// Text returns the substring the span covers. The span must be valid.
func (s Span) Text(text string) string {
	return text[s.Start:s.End]
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

func runeBoundary(text string, i int) bool {
	if i == 0 || i == len(text) {
		return true
	}
	return utf8.RuneStart(text[i])
}
