package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Anonymize.PageSize)
	assert.Equal(t, 0, cfg.Anonymize.RowLimit)
	assert.Equal(t, "suffix", cfg.Anonymize.ExistingTable)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "priority", cfg.Detector.MergeLabelPolicy)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anonymizer.yaml")
	yaml := `
database:
  dialect: mysql
  port: 3306
anonymize:
  page_size: 250
  columns: [name, email]
  overrides:
    - email=EMAIL
    - notes=skip
  existing_table: reject
detector:
  fuzzy_match: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("ANONYMIZER_DATABASE_HOST", "db.internal")
	t.Setenv("ANONYMIZER_ANONYMIZE_ROW_LIMIT", "1000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Dialect)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 250, cfg.Anonymize.PageSize)
	assert.Equal(t, 1000, cfg.Anonymize.RowLimit)
	assert.Equal(t, []string{"name", "email"}, cfg.Anonymize.Columns)
	assert.Equal(t, []string{"email=EMAIL", "notes=skip"}, cfg.Anonymize.Overrides)
	assert.Equal(t, "reject", cfg.Anonymize.ExistingTable)
	assert.True(t, cfg.Detector.FuzzyMatch)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anonymize:\n  existing_table: overwrite\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "anonymize.existing_table")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidatePageSize(t *testing.T) {
	cfg := GetConfig()
	cfg.Anonymize.PageSize = 0
	assert.Error(t, cfg.Validate())
}

func TestGetFallsBackToDefaults(t *testing.T) {
	SetConfig(nil)
	assert.Equal(t, 100, Get().Anonymize.PageSize)
	custom := GetConfig()
	custom.Anonymize.PageSize = 7
	SetConfig(custom)
	defer SetConfig(nil)
	assert.Equal(t, 7, Get().Anonymize.PageSize)
}
