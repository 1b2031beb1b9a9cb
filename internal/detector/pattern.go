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
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// boundary describes what must surround a pattern body. RE2's \b only knows
// ASCII word characters, so Unicode-aware boundaries are spelled out in the
// expression and the body is captured as group 1.
type boundary int

const (
	noBoundary boundary = iota
	// wordBoundary: the neighbouring rune is absent or not a letter, digit or underscore.
	wordBoundary
	// nonDigitBefore: the preceding rune must exist and must not be a digit.
	nonDigitBefore
)

const (
	wordRunes      = `\p{L}\p{N}_`
	leftWordExpr   = `(?:^|[^` + wordRunes + `])`
	rightWordExpr  = `(?:$|[^` + wordRunes + `])`
	nonDigitPrefix = `[^\p{Nd}]`
)

// pattern is one compiled regular expression producing spans of a single label.
type pattern struct {
	re    *regexp.Regexp
	label entity.Type
	left  boundary
	right boundary
}

func newPattern(body string, label entity.Type, left, right boundary) pattern {
	expr := "(" + body + ")"
	switch left {
	case wordBoundary:
		expr = leftWordExpr + expr
	case nonDigitBefore:
		expr = nonDigitPrefix + expr
	}
	if right == wordBoundary {
		expr += rightWordExpr
	}
	return pattern{re: regexp.MustCompile(expr), label: label, left: left, right: right}
}

// bounded is the common case of a body that must be a whole word sequence.
func bounded(body string, label entity.Type) pattern {
	return newPattern(body, label, wordBoundary, wordBoundary)
}

// unbounded matches the body anywhere.
func unbounded(body string, label entity.Type) pattern {
	return newPattern(body, label, noBoundary, noBoundary)
}

// find returns every non-overlapping body match, left to right.
func (p pattern) find(text string) []entity.Span {
	if text == "" {
		return nil
	}
	var spans []entity.Span
	pos := 0
	for pos < len(text) {
		loc := p.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[2], pos+loc[3]

		// "^" matches at the start of the slice, which is only a real boundary
		// if the rune before the slice is not a word rune.
		if p.left == wordBoundary && start == pos && pos > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:pos])
			if isWordRune(prev) {
				pos = advance(text, pos)
				continue
			}
		}

		if end > start {
			spans = append(spans, entity.Span{Start: start, End: end, Label: p.label})
		}

		// The trailing boundary rune is not consumed so that it can serve as
		// the leading boundary of the next match.
		next := end
		if next <= pos {
			next = advance(text, pos)
		}
		pos = next
	}
	return spans
}

func advance(text string, pos int) int {
	_, size := utf8.DecodeRuneInString(text[pos:])
	if size < 1 {
		size = 1
	}
	return pos + size
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func findAll(text string, patterns []pattern) []entity.Span {
	var spans []entity.Span
	for _, p := range patterns {
		spans = append(spans, p.find(text)...)
	}
	return spans
}
