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
package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
)

// ConfirmAction asks a yes/no question on out and reads the answer from in.
func ConfirmAction(in io.Reader, out io.Writer, actionDescription string) bool {
	reader := bufio.NewReader(in)
	fmt.Fprintf(out, "\n-------------------------------------------------------------\n")
	fmt.Fprintf(out, "%s\n", actionDescription)
	fmt.Fprint(out, "Do you want to continue? (yes/no): ")
	text, _ := reader.ReadString('\n')
	action := strings.TrimSpace(strings.ToLower(text))
	return action == "yes" || action == "y"
}

// ParseTablesFlag parses "table1[col1,col2],table2" into table -> included
// columns. A table without brackets maps to nil, meaning all columns.
func ParseTablesFlag(tablesFlag string) (map[string][]string, error) {
	tableColumns := make(map[string][]string)
	if tablesFlag == "" {
		return tableColumns, nil
	}

	// strip any whitespace
	tablesFlag = strings.ReplaceAll(tablesFlag, " ", "")

	for _, part := range SplitOutsideBrackets(tablesFlag) {
		if part == "" {
			continue
		}
		bracketStart := strings.Index(part, "[")
		if bracketStart == -1 {
			tableColumns[part] = nil
			continue
		}
		bracketEnd := strings.Index(part, "]")
		if bracketEnd == -1 {
			return nil, fmt.Errorf("missing closing bracket in: %s", part)
		}
		tableName := part[:bracketStart]
		if tableName == "" {
			return nil, fmt.Errorf("missing table name in: %s", part)
		}
		columns := lo.Filter(strings.Split(part[bracketStart+1:bracketEnd], ","), func(c string, _ int) bool {
			return c != ""
		})
		tableColumns[tableName] = columns
	}

	return tableColumns, nil
}

// SplitOutsideBrackets splits s by commas that are not within brackets.
func SplitOutsideBrackets(s string) []string {
	var result []string
	var current strings.Builder
	inBrackets := false

	for _, char := range s {
		switch char {
		case '[':
			inBrackets = true
			current.WriteRune(char)
		case ']':
			inBrackets = false
			current.WriteRune(char)
		case ',':
			if inBrackets {
				current.WriteRune(char)
			} else {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// ParseStrategyOverrides turns "column=STRATEGY" pairs into a map. Later pairs
// win over earlier ones for the same column.
func ParseStrategyOverrides(pairs []string) (map[string]string, error) {
	overrides := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		column, token, ok := strings.Cut(pair, "=")
		column, token = strings.TrimSpace(column), strings.TrimSpace(token)
		if !ok || column == "" || token == "" {
			return nil, fmt.Errorf("invalid override %q (want column=STRATEGY)", pair)
		}
		overrides[column] = token
	}
	return overrides, nil
}

// SplitList splits a comma separated flag value, dropping blanks.
func SplitList(s string) []string {
	return lo.Filter(lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	}), func(p string, _ int) bool { return p != "" })
}
