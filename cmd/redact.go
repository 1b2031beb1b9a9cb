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
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/anonymizer"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/redact"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/utils"
)

var redactFlags struct {
	hide         string
	placeholder  string
	useGenerator bool
	stripHTML    bool
	inputFile    string
}

var redactCmd = &cobra.Command{
	Use:   "redact [text...]",
	Short: "Redact personal data in free text",
	Long: `Replaces the entities found in each text with labels, a fixed placeholder or
consistent synthetic values. Texts are taken from the arguments, or one per line
from --in or standard input. No database connection is needed.`,
	Example: `echo "Иван Иванов, тел. 8-495-123-45-67" | ./db_pii_anonymizer redact --hide PERSON,CONTACT`,
	RunE:    runRedact,
}

func runRedact(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	ac := cfg.Anonymize
	flags := cmd.Flags()
	if flags.Changed("hide") {
		ac.Hide = utils.SplitList(redactFlags.hide)
	}
	if flags.Changed("placeholder") {
		ac.Placeholder = redactFlags.placeholder
	}
	if flags.Changed("use-generator") {
		ac.UseGenerator = redactFlags.useGenerator
	}

	texts := args
	if len(texts) == 0 {
		in := cmd.InOrStdin()
		if redactFlags.inputFile != "" {
			f, err := os.Open(redactFlags.inputFile)
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer f.Close()
			in = f
		}
		var err error
		if texts, err = readLines(in); err != nil {
			return err
		}
	}
	if redactFlags.stripHTML {
		for i, t := range texts {
			stripped, err := redact.StripHTML(t)
			if err != nil {
				zap.S().Warnf("WARN: Text #%d: could not strip HTML, using it as is: %v", i+1, err)
				continue
			}
			texts[i] = stripped
		}
	}

	ctx := cmd.Context()
	det, merge, err := buildDetector(cfg.Detector)
	if err != nil {
		return err
	}
	cls, err := buildClassifier(ctx, cfg.Classifier)
	if err != nil {
		return err
	}
	defer cls.Close()

	opts := anonymizer.DefaultOptions()
	opts.Hide = parseHideSet(ac.Hide)
	opts.Placeholder = ac.Placeholder
	opts.UseGenerator = ac.UseGenerator
	opts.StrictClassifier = ac.StrictClassifier
	opts.Merge = merge

	out, err := anonymizer.New(nil, nil, det, cls, nil, opts).RedactTexts(ctx, texts)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, line := range out {
		fmt.Fprintln(w, line)
	}
	return nil
}

// readLines returns the non-empty lines of r. Lines may be long free-text notes.
func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var lines []string
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}

func init() {
	f := &redactFlags
	redactCmd.Flags().StringVar(&f.hide, "hide", "", "Comma separated entity labels to replace (default all)")
	redactCmd.Flags().StringVar(&f.placeholder, "placeholder", "", "Fixed replacement for hidden entities (default [LABEL])")
	redactCmd.Flags().BoolVar(&f.useGenerator, "use-generator", false, "Replace hidden entities with consistent synthetic values")
	redactCmd.Flags().BoolVar(&f.stripHTML, "strip-html", false, "Strip HTML tags before detection")
	redactCmd.Flags().StringVar(&f.inputFile, "in", "", "Read texts from this file, one per line")
}
