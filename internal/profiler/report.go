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
package profiler

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// WriteReport encodes the report as "yaml" (default) or "json".
func WriteReport(w io.Writer, report Report, format string) error {
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return fmt.Errorf("unsupported report format %q", format)
}

// ReadOverrides reads the per-column recommendations of one table from a
// YAML or JSON report written by WriteReport.
func ReadOverrides(r io.Reader, table string) (map[string]string, error) {
	var raw map[string]map[string]struct {
		Recommended string `yaml:"recommended_strategy"`
	}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	cols, ok := raw[table]
	if !ok {
		return nil, fmt.Errorf("report has no profile for table %s", table)
	}
	out := make(map[string]string, len(cols))
	for name, c := range cols {
		out[name] = c.Recommended
	}
	return out, nil
}
