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
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load, e.g.
// ANONYMIZER_DATABASE_HOST or ANONYMIZER_ANONYMIZE_PAGE_SIZE.
const EnvPrefix = "ANONYMIZER"

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Anonymize  AnonymizeConfig  `mapstructure:"anonymize"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	LogLevel   string           `mapstructure:"log_level"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Dialect                        string `mapstructure:"dialect"`
	Host                           string `mapstructure:"host"`
	Port                           int    `mapstructure:"port"`
	User                           string `mapstructure:"user"`
	Password                       string `mapstructure:"password"`
	DBName                         string `mapstructure:"dbname"`
	SSLMode                        string `mapstructure:"sslmode"`
	CloudSQLInstanceConnectionName string `mapstructure:"cloudsql_instance_connection_name"`
	UsePrivateIP                   bool   `mapstructure:"use_private_ip"`
}

// AnonymizeConfig is the per-run surface of the streaming anonymizer.
type AnonymizeConfig struct {
	PageSize int `mapstructure:"page_size"`
	// RowLimit caps the rows copied per table; 0 means no limit.
	RowLimit int `mapstructure:"row_limit"`
	// Columns restricts transformation to these columns; empty means all.
	Columns []string `mapstructure:"columns"`
	// Overrides are "column=STRATEGY" pairs, e.g. "email=EMAIL" or "notes=skip".
	Overrides []string `mapstructure:"overrides"`
	// ExistingTable is what to do when the destination exists: drop, suffix or reject.
	ExistingTable    string   `mapstructure:"existing_table"`
	Hide             []string `mapstructure:"hide"`
	Placeholder      string   `mapstructure:"placeholder"`
	UseGenerator     bool     `mapstructure:"use_generator"`
	StrictClassifier bool     `mapstructure:"strict_classifier"`
	// DestType is "db" (table in the same database) or "csv".
	DestType   string `mapstructure:"dest_type"`
	DestPrefix string `mapstructure:"dest_prefix"`
	OutputDir  string `mapstructure:"output_dir"`
	// Parallelism bounds how many tables are processed at once.
	Parallelism int `mapstructure:"parallelism"`
}

// DetectorConfig configures the rule-based detector.
type DetectorConfig struct {
	FuzzyMatch        bool     `mapstructure:"fuzzy_match"`
	Sensitivity       string   `mapstructure:"sensitivity"`
	OrgListFiles      []string `mapstructure:"org_list_files"`
	LocationListFiles []string `mapstructure:"location_list_files"`
	FilterRootFiles   []string `mapstructure:"filter_root_files"`
	MergeLabelPolicy  string   `mapstructure:"merge_label_policy"`
	ProximityBytes    int      `mapstructure:"proximity_bytes"`
}

// ClassifierConfig selects the external text classifier.
type ClassifierConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

// JobsConfig selects where job status records are kept.
type JobsConfig struct {
	// Store is "memory", "file" (CSV) or "sqlite".
	Store string `mapstructure:"store"`
	Path  string `mapstructure:"path"`
}

var globalConfig *Config

// GetConfig returns a default configuration. Load and command flags refine it.
func GetConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect: "postgres",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Anonymize: AnonymizeConfig{
			PageSize:      100,
			ExistingTable: "suffix",
			DestType:      "db",
			DestPrefix:    "anonymized",
			OutputDir:     ".",
			Parallelism:   4,
		},
		Detector: DetectorConfig{
			Sensitivity:      "standard",
			MergeLabelPolicy: "priority",
			ProximityBytes:   1,
		},
		Classifier: ClassifierConfig{
			Provider: "none",
		},
		Jobs: JobsConfig{
			Store: "file",
			Path:  "jobs_log.csv",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from the optional YAML file at path and from
// ANONYMIZER_* environment variables, on top of GetConfig defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, GetConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("database.dialect", d.Database.Dialect)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.dbname", d.Database.DBName)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.cloudsql_instance_connection_name", d.Database.CloudSQLInstanceConnectionName)
	v.SetDefault("database.use_private_ip", d.Database.UsePrivateIP)

	v.SetDefault("anonymize.page_size", d.Anonymize.PageSize)
	v.SetDefault("anonymize.row_limit", d.Anonymize.RowLimit)
	v.SetDefault("anonymize.columns", d.Anonymize.Columns)
	v.SetDefault("anonymize.overrides", d.Anonymize.Overrides)
	v.SetDefault("anonymize.existing_table", d.Anonymize.ExistingTable)
	v.SetDefault("anonymize.hide", d.Anonymize.Hide)
	v.SetDefault("anonymize.placeholder", d.Anonymize.Placeholder)
	v.SetDefault("anonymize.use_generator", d.Anonymize.UseGenerator)
	v.SetDefault("anonymize.strict_classifier", d.Anonymize.StrictClassifier)
	v.SetDefault("anonymize.dest_type", d.Anonymize.DestType)
	v.SetDefault("anonymize.dest_prefix", d.Anonymize.DestPrefix)
	v.SetDefault("anonymize.output_dir", d.Anonymize.OutputDir)
	v.SetDefault("anonymize.parallelism", d.Anonymize.Parallelism)

	v.SetDefault("detector.fuzzy_match", d.Detector.FuzzyMatch)
	v.SetDefault("detector.sensitivity", d.Detector.Sensitivity)
	v.SetDefault("detector.org_list_files", d.Detector.OrgListFiles)
	v.SetDefault("detector.location_list_files", d.Detector.LocationListFiles)
	v.SetDefault("detector.filter_root_files", d.Detector.FilterRootFiles)
	v.SetDefault("detector.merge_label_policy", d.Detector.MergeLabelPolicy)
	v.SetDefault("detector.proximity_bytes", d.Detector.ProximityBytes)

	v.SetDefault("classifier.provider", d.Classifier.Provider)
	v.SetDefault("classifier.api_key", d.Classifier.APIKey)
	v.SetDefault("classifier.model", d.Classifier.Model)

	v.SetDefault("jobs.store", d.Jobs.Store)
	v.SetDefault("jobs.path", d.Jobs.Path)
}

// Validate checks values that have a closed set of options.
func (c *Config) Validate() error {
	if c.Anonymize.PageSize <= 0 {
		return fmt.Errorf("anonymize.page_size must be positive, got %d", c.Anonymize.PageSize)
	}
	if c.Anonymize.RowLimit < 0 {
		return fmt.Errorf("anonymize.row_limit must not be negative, got %d", c.Anonymize.RowLimit)
	}
	if err := oneOf("anonymize.existing_table", c.Anonymize.ExistingTable, "drop", "suffix", "reject"); err != nil {
		return err
	}
	if err := oneOf("anonymize.dest_type", c.Anonymize.DestType, "db", "csv"); err != nil {
		return err
	}
	if err := oneOf("jobs.store", c.Jobs.Store, "memory", "file", "sqlite"); err != nil {
		return err
	}
	return oneOf("classifier.provider", c.Classifier.Provider, "none", "gemini")
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (allowed: %s)", key, value, strings.Join(allowed, ", "))
}

// SetConfig sets the global configuration.
func SetConfig(cfg *Config) {
	globalConfig = cfg
}

// Get returns the configuration installed by SetConfig, or the defaults.
func Get() *Config {
	if globalConfig == nil {
		return GetConfig()
	}
	return globalConfig
}
