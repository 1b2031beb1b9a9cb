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
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/profiler"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/utils"
)

var profileFlags struct {
	tables      string
	allTables   bool
	sampleSize  int
	format      string
	outFile     string
	parallelism int
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile tables and recommend a strategy per column",
	Long: `Samples each table, reports the entity types found per column, value
statistics and a recommended anonymization strategy. The report can be passed
to anonymize with --profile-report.`,
	Example: `./db_pii_anonymizer profile --dialect mysql --host localhost --port 3306 --username user --password pass --database crm --all-tables --out crm_profile.yaml`,
	RunE:    runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if profileFlags.tables == "" && !profileFlags.allTables {
		return fmt.Errorf("either --tables or --all-tables is required")
	}

	ctx := cmd.Context()
	db, err := setupDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var tables []string
	if profileFlags.allTables {
		if tables, err = db.ListTables(ctx); err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
	} else {
		parsed, err := utils.ParseTablesFlag(profileFlags.tables)
		if err != nil {
			return err
		}
		tables = lo.Keys(parsed)
	}

	det, merge, err := buildDetector(cfg.Detector)
	if err != nil {
		return err
	}
	cls, err := buildClassifier(ctx, cfg.Classifier)
	if err != nil {
		return err
	}
	defer cls.Close()

	opts := profiler.DefaultOptions()
	opts.SampleSize = profileFlags.sampleSize
	opts.Merge = merge
	report, profileErr := profiler.New(dataset.NewDBSource(db), det, cls, opts).ProfileAll(ctx, tables, profileFlags.parallelism)
	if len(report) == 0 && profileErr != nil {
		return profileErr
	}

	var w io.Writer = cmd.OutOrStdout()
	if profileFlags.outFile != "" {
		f, err := os.Create(profileFlags.outFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := profiler.WriteReport(w, report, profileFlags.format); err != nil {
		return err
	}
	if profileFlags.outFile != "" {
		zap.S().Infof("INFO: Profile report written to %s", profileFlags.outFile)
	}
	return profileErr
}

func init() {
	f := &profileFlags
	profileCmd.Flags().StringVar(&f.tables, "tables", "", `Comma separated tables to profile, e.g. "clients,orders"`)
	profileCmd.Flags().BoolVar(&f.allTables, "all-tables", false, "Profile every table in the database")
	profileCmd.Flags().IntVar(&f.sampleSize, "sample-size", profiler.DefaultOptions().SampleSize, "Rows sampled per table")
	profileCmd.Flags().StringVar(&f.format, "format", "yaml", "Report format (yaml, json)")
	profileCmd.Flags().StringVar(&f.outFile, "out", "", "Write the report to this file instead of standard output")
	profileCmd.Flags().IntVar(&f.parallelism, "parallelism", 4, "Tables profiled at the same time (0 = unbounded)")
}
