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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

// minListEntryRunes drops very short entries read from list files; they match
// too much ordinary text.
const minListEntryRunes = 4

// NameList is an immutable gazetteer. Matching is case-insensitive and
// word-bounded; the pattern is compiled on first use.
type NameList struct {
	label entity.Type
	names []string

	once    sync.Once
	matcher *pattern
}

// NewNameList builds a list from in-memory names. Blank and duplicate names are dropped.
func NewNameList(label entity.Type, names []string) *NameList {
	cleaned := lo.Uniq(lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != ""
	}))
	// Longest first so that "Ростов-на-Дону" wins over "Ростов".
	sort.SliceStable(cleaned, func(i, j int) bool {
		return utf8.RuneCountInString(cleaned[i]) > utf8.RuneCountInString(cleaned[j])
	})
	return &NameList{label: label, names: cleaned}
}

// LoadNameList reads one entry per line from each path and appends them to base.
// Missing or unreadable files are logged and reported but do not stop loading.
func LoadNameList(label entity.Type, base []string, paths ...string) (*NameList, []error) {
	names := append([]string(nil), base...)
	var errs []error
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				zap.S().Warnf("WARN: name list file %s not found, skipping", path)
			} else {
				zap.S().Warnf("WARN: could not read name list file %s: %v", path, err)
			}
			errs = append(errs, fmt.Errorf("name list %s: %w", path, err))
			continue
		}
		before := len(names)
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || utf8.RuneCountInString(line) < minListEntryRunes {
				continue
			}
			names = append(names, line)
		}
		zap.S().Infof("INFO: loaded %d %s names from %s", len(names)-before, label, path)
	}
	return NewNameList(label, names), errs
}

// Len returns the number of distinct names.
func (l *NameList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}

// Names returns a copy of the list.
func (l *NameList) Names() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.names...)
}

// Find returns every occurrence of a listed name in text.
func (l *NameList) Find(text string) []entity.Span {
	if l.Len() == 0 || text == "" {
		return nil
	}
	l.once.Do(func() {
		quoted := lo.Map(l.names, func(n string, _ int) string { return regexp.QuoteMeta(n) })
		p := bounded(`(?i)(?:`+strings.Join(quoted, "|")+`)`, l.label)
		l.matcher = &p
	})
	return l.matcher.find(text)
}
