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
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/anonymizer"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/jobs"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/profiler"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/utils"
)

var anonymizeFlags struct {
	tables        string
	allTables     bool
	pageSize      int
	rowLimit      int
	existingTable string
	overrides     []string
	hide          string
	placeholder   string
	useGenerator  bool
	strict        bool
	destType      string
	destPrefix    string
	outputDir     string
	parallelism   int
	profileReport string
	yes           bool
	noProgress    bool
}

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize",
	Short: "Copy tables into anonymized destinations",
	Long: `Streams each selected table page by page, replaces personal data column by
column, and appends the result to a destination table or CSV file. Progress of
every table is recorded in the job store.`,
	Example: `./db_pii_anonymizer anonymize --dialect postgres --host localhost --port 5432 --username user --password pass --database crm --tables "clients[name,notes],orders" --override email=EMAIL --use-generator`,
	RunE:    runAnonymize,
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	applyAnonymizeFlags(cmd, &cfg.Anonymize)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if anonymizeFlags.tables == "" && !anonymizeFlags.allTables {
		return fmt.Errorf("either --tables or --all-tables is required")
	}
	ac := cfg.Anonymize

	policy, err := anonymizer.ParseExistingTablePolicy(ac.ExistingTable)
	if err != nil {
		return err
	}
	if policy == anonymizer.DropExisting && !anonymizeFlags.yes &&
		!utils.ConfirmAction(os.Stdin, os.Stdout, "Existing destination tables will be dropped and recreated.") {
		return fmt.Errorf("aborted by user")
	}
	overrides, err := utils.ParseStrategyOverrides(ac.Overrides)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	zap.S().Infow("INFO: Starting anonymize operation", "dialect", cfg.Database.Dialect, "database", cfg.Database.DBName)

	db, err := setupDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tableColumns, err := selectTables(ctx, db)
	if err != nil {
		return err
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

	store, err := jobs.Open(cfg.Jobs.Store, cfg.Jobs.Path)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	defer store.Close()

	var sink dataset.Sink = dataset.NewDBSink(db)
	if ac.DestType == "csv" {
		sink = dataset.NewCSVSink(ac.OutputDir)
	}

	jobList, err := buildJobs(tableColumns, ac.DestPrefix, overrides)
	if err != nil {
		return err
	}

	src := dataset.NewDBSource(db)
	opts := anonymizer.Options{
		PageSize:         ac.PageSize,
		RowLimit:         ac.RowLimit,
		ExistingTable:    policy,
		Hide:             parseHideSet(ac.Hide),
		Placeholder:      ac.Placeholder,
		UseGenerator:     ac.UseGenerator,
		StrictClassifier: ac.StrictClassifier,
		Merge:            merge,
	}
	if !anonymizeFlags.noProgress {
		bar := newProgressBar(ctx, src, jobList, ac.RowLimit)
		defer bar.Finish()
		opts.OnChunk = func(_ anonymizer.Job, _ int, rows int) {
			_ = bar.Add(rows)
		}
	}

	records := anonymizer.New(src, sink, det, cls, store, opts).RunAll(ctx, jobList, ac.Parallelism)

	failed := lo.Filter(records, func(r jobs.Record, _ int) bool { return r.IsFailed() })
	for _, r := range records {
		fmt.Printf("%s\t%s -> %s\t%s\n", r.JobID, r.SourceTable, r.Target, r.Status)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d table(s) failed", len(failed), len(records))
	}
	zap.S().Info("INFO: Anonymize operation completed")
	return nil
}

func applyAnonymizeFlags(cmd *cobra.Command, ac *config.AnonymizeConfig) {
	flags := cmd.Flags()
	f := &anonymizeFlags
	if flags.Changed("page-size") {
		ac.PageSize = f.pageSize
	}
	if flags.Changed("row-limit") {
		ac.RowLimit = f.rowLimit
	}
	if flags.Changed("existing-table") {
		ac.ExistingTable = f.existingTable
	}
	if flags.Changed("override") {
		ac.Overrides = append(ac.Overrides, f.overrides...)
	}
	if flags.Changed("hide") {
		ac.Hide = utils.SplitList(f.hide)
	}
	if flags.Changed("placeholder") {
		ac.Placeholder = f.placeholder
	}
	if flags.Changed("use-generator") {
		ac.UseGenerator = f.useGenerator
	}
	if flags.Changed("strict-classifier") {
		ac.StrictClassifier = f.strict
	}
	if flags.Changed("dest-type") {
		ac.DestType = f.destType
	}
	if flags.Changed("dest-prefix") {
		ac.DestPrefix = f.destPrefix
	}
	if flags.Changed("output-dir") {
		ac.OutputDir = f.outputDir
	}
	if flags.Changed("parallelism") {
		ac.Parallelism = f.parallelism
	}
}

// selectTables resolves --tables or --all-tables into table -> included columns.
func selectTables(ctx context.Context, db database.DBAdapter) (map[string][]string, error) {
	if anonymizeFlags.allTables {
		tables, err := db.ListTables(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		return lo.Associate(tables, func(t string) (string, []string) { return t, nil }), nil
	}
	return utils.ParseTablesFlag(anonymizeFlags.tables)
}

// buildJobs creates one job per table in name order. Recommendations from a
// profile report are applied first; explicit overrides win over them.
func buildJobs(tableColumns map[string][]string, prefix string, overrides map[string]string) ([]anonymizer.Job, error) {
	var report []byte
	if anonymizeFlags.profileReport != "" {
		data, err := os.ReadFile(anonymizeFlags.profileReport)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile report: %w", err)
		}
		report = data
	}

	tables := lo.Keys(tableColumns)
	sort.Strings(tables)
	jobList := make([]anonymizer.Job, 0, len(tables))
	for _, table := range tables {
		jobOverrides := map[string]string{}
		if report != nil {
			recommended, err := profiler.ReadOverrides(bytes.NewReader(report), table)
			if err != nil {
				zap.S().Warnf("WARN: Table[%s] %v", table, err)
			}
			for k, v := range recommended {
				jobOverrides[k] = v
			}
		}
		for k, v := range overrides {
			jobOverrides[k] = v
		}
		jobList = append(jobList, anonymizer.Job{
			ID:          uuid.NewString(),
			SourceTable: table,
			Target:      anonymizer.TargetName(prefix, table),
			Columns:     tableColumns[table],
			Overrides:   jobOverrides,
		})
	}
	return jobList, nil
}

// newProgressBar sizes the bar by the rows the jobs are expected to copy.
func newProgressBar(ctx context.Context, src dataset.Source, jobList []anonymizer.Job, rowLimit int) *progressbar.ProgressBar {
	total := lo.SumBy(jobList, func(j anonymizer.Job) int64 {
		n, err := src.RowCount(ctx, j.SourceTable)
		if err != nil {
			zap.S().Debugf("DEBUG: Table[%s] Could not count rows: %v", j.SourceTable, err)
			return 0
		}
		if rowLimit > 0 && n > int64(rowLimit) {
			return int64(rowLimit)
		}
		return n
	})
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("anonymizing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
}

func init() {
	f := &anonymizeFlags
	anonymizeCmd.Flags().StringVar(&f.tables, "tables", "", `Tables to anonymize with optional included columns, e.g. "clients[name,notes],orders"`)
	anonymizeCmd.Flags().BoolVar(&f.allTables, "all-tables", false, "Anonymize every table in the database")
	anonymizeCmd.Flags().IntVar(&f.pageSize, "page-size", 100, "Rows pulled from the source per chunk")
	anonymizeCmd.Flags().IntVar(&f.rowLimit, "row-limit", 0, "Maximum rows copied per table (0 = all)")
	anonymizeCmd.Flags().StringVar(&f.existingTable, "existing-table", "suffix", "What to do when the destination exists (drop, suffix, reject)")
	anonymizeCmd.Flags().StringArrayVar(&f.overrides, "override", nil, "Per-column strategy as column=STRATEGY (repeatable), e.g. email=EMAIL or notes=skip")
	anonymizeCmd.Flags().StringVar(&f.hide, "hide", "", "Comma separated entity labels to replace in free text (default all)")
	anonymizeCmd.Flags().StringVar(&f.placeholder, "placeholder", "", "Fixed replacement for hidden entities (default [LABEL])")
	anonymizeCmd.Flags().BoolVar(&f.useGenerator, "use-generator", false, "Replace hidden entities with consistent synthetic values")
	anonymizeCmd.Flags().BoolVar(&f.strict, "strict-classifier", false, "Fail the table when the text classifier fails")
	anonymizeCmd.Flags().StringVar(&f.destType, "dest-type", "db", "Destination type (db, csv)")
	anonymizeCmd.Flags().StringVar(&f.destPrefix, "dest-prefix", "anonymized", "Prefix of destination table or file names")
	anonymizeCmd.Flags().StringVar(&f.outputDir, "output-dir", ".", "Directory for CSV destinations")
	anonymizeCmd.Flags().IntVar(&f.parallelism, "parallelism", 4, "Tables processed at the same time (0 = unbounded)")
	anonymizeCmd.Flags().StringVar(&f.profileReport, "profile-report", "", "Profile report whose recommended strategies are used as overrides")
	anonymizeCmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Do not ask before dropping existing destination tables")
	anonymizeCmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "Disable the progress bar")
}
