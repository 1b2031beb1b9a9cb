package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/detector"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/jobs"
)

// execute runs the root command with args after resetting the flags touched
// by earlier runs.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, c := range []*cobra.Command{rootCmd, redactCmd, jobsListCmd, jobsGetCmd} {
		for _, fs := range []*pflag.FlagSet{c.PersistentFlags(), c.Flags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
	}
	t.Cleanup(func() { config.SetConfig(nil) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRedactCommandArgs(t *testing.T) {
	out, err := execute(t, "", "redact", "Иван Иванов встретил Петра Петрова")
	require.NoError(t, err)
	assert.Equal(t, "[PERSON] встретил [PERSON]\n", out)
}

func TestRedactCommandStdinHideAndPlaceholder(t *testing.T) {
	stdin := "Иван Иванов, звонить 8-495-123-45-67\n\n<p>Петра Петрова</p>\n"
	out, err := execute(t, stdin, "redact", "--hide", "CONTACT", "--placeholder", "***", "--strip-html")
	require.NoError(t, err)
	assert.Contains(t, out, "Иван Иванов, звонить ***")
	assert.Contains(t, out, "Петра Петрова")
	assert.NotContains(t, out, "<p>")
}

func TestEnvFile(t *testing.T) {
	_, err := execute(t, "", "redact", "text", "--env-file", filepath.Join(t.TempDir(), "none.env"))
	assert.ErrorContains(t, err, "failed to load env file")

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ANONYMIZER_ANONYMIZE_PLACEHOLDER=<hidden>\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ANONYMIZER_ANONYMIZE_PLACEHOLDER") })
	out, err := execute(t, "", "redact", "Иван Иванов пришёл", "--env-file", envFile)
	require.NoError(t, err)
	assert.Equal(t, "<hidden> пришёл\n", out)
}

func TestJobsCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs_log.csv")
	store, err := jobs.NewFileStore(path)
	require.NoError(t, err)
	started := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(context.Background(), jobs.Record{
		JobID: "job-1", SourceTable: "clients", Target: "anonymized_clients",
		Status: jobs.StatusFinished, StartedAt: started, EndedAt: started.Add(time.Minute),
	}))

	out, err := execute(t, "", "jobs", "list", "--jobs-store", "file", "--jobs-path", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "job-1\tclients\tanonymized_clients\t2024-03-05T12:00:00Z\t2024-03-05T12:01:00Z\tFINISHED", lines[1])

	out, err = execute(t, "", "jobs", "get", "job-1", "--jobs-store", "file", "--jobs-path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "FINISHED")

	_, err = execute(t, "", "jobs", "get", "missing", "--jobs-store", "file", "--jobs-path", path)
	assert.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestBuildDetector(t *testing.T) {
	dir := t.TempDir()
	orgs := filepath.Join(dir, "orgs.txt")
	require.NoError(t, os.WriteFile(orgs, []byte("Рога и Копыта\n"), 0o644))

	det, merge, err := buildDetector(config.DetectorConfig{
		Sensitivity:      "aggressive",
		MergeLabelPolicy: "first_seen",
		ProximityBytes:   2,
		OrgListFiles:     []string{orgs},
	})
	require.NoError(t, err)
	assert.Equal(t, detector.MergeOptions{ProximityThreshold: 2, LabelPolicy: detector.LabelFirstSeen}, merge)

	text := "контракт с Рога и Копыта"
	found := false
	for _, s := range det.Detect(text) {
		if s.Label == entity.Organization && s.Text(text) == "Рога и Копыта" {
			found = true
		}
	}
	assert.True(t, found)

	_, _, err = buildDetector(config.DetectorConfig{Sensitivity: "extreme"})
	assert.Error(t, err)
	_, _, err = buildDetector(config.DetectorConfig{MergeLabelPolicy: "random"})
	assert.Error(t, err)
	_, _, err = buildDetector(config.DetectorConfig{ProximityBytes: -1})
	assert.Error(t, err)
}

func TestBuildJobs(t *testing.T) {
	report := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, os.WriteFile(report, []byte(`
clients:
  email:
    recommended_strategy: CONTACT
  notes:
    recommended_strategy: classify
`), 0o644))
	anonymizeFlags.profileReport = report
	defer func() { anonymizeFlags.profileReport = "" }()

	jobList, err := buildJobs(map[string][]string{"orders": nil, "clients": {"email", "notes"}}, "anonymized",
		map[string]string{"notes": "skip"})
	require.NoError(t, err)
	require.Len(t, jobList, 2)

	clients := jobList[0]
	assert.Equal(t, "clients", clients.SourceTable)
	assert.Equal(t, "anonymized_clients", clients.Target)
	assert.Equal(t, []string{"email", "notes"}, clients.Columns)
	assert.Equal(t, map[string]string{"email": "CONTACT", "notes": "skip"}, clients.Overrides)
	assert.NotEmpty(t, clients.ID)

	orders := jobList[1]
	assert.Equal(t, "orders", orders.SourceTable)
	assert.Nil(t, orders.Columns)
	assert.Equal(t, map[string]string{"notes": "skip"}, orders.Overrides)
	assert.NotEqual(t, clients.ID, orders.ID)
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("one\r\n\n  \ntwo"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestValidateDialect(t *testing.T) {
	assert.NoError(t, validateDialect("cloudsqlmysql"))
	assert.ErrorContains(t, validateDialect("oracle"), "unsupported dialect")
}
