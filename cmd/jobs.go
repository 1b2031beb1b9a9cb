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
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/jobs"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect anonymization job records",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every recorded job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfiguredStore()
		if err != nil {
			return err
		}
		defer store.Close()
		records, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		writeRecords(cmd.OutOrStdout(), records)
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get JOB_ID",
	Short: "Show one job record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfiguredStore()
		if err != nil {
			return err
		}
		defer store.Close()
		rec, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get job %s: %w", args[0], err)
		}
		writeRecords(cmd.OutOrStdout(), []jobs.Record{rec})
		return nil
	},
}

func openConfiguredStore() (jobs.Store, error) {
	cfg := config.Get().Jobs
	store, err := jobs.Open(cfg.Store, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}
	return store, nil
}

func writeRecords(w io.Writer, records []jobs.Record) {
	fmt.Fprintln(w, strings.Join([]string{"JOB ID", "TABLE", "TARGET", "START", "END", "STATUS"}, "\t"))
	for _, r := range records {
		end := ""
		if !r.EndedAt.IsZero() {
			end = r.EndedAt.Format(jobs.TimeLayout)
		}
		fmt.Fprintln(w, strings.Join([]string{r.JobID, r.SourceTable, r.Target, r.StartedAt.Format(jobs.TimeLayout), end, r.Status}, "\t"))
	}
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsGetCmd)
}
