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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/config"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database"
	_ "github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database/mysql"
	_ "github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database/postgres"
	_ "github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/database/sqlserver"
)

var supportedDialects = []string{"postgres", "cloudsqlpostgres", "mysql", "cloudsqlmysql", "sqlserver", "cloudsqlsqlserver"}

var (
	cfgFile  string
	envFile  string
	logLevel string

	// Database connection flags
	dialect                        string
	host                           string
	port                           int
	username                       string
	password                       string
	dbName                         string
	sslMode                        string
	cloudSQLInstanceConnectionName string
	cloudSQLUsePrivateIP           bool

	// Classifier flags
	classifierProvider string
	geminiAPIKey       string
	geminiModel        string

	// Job store flags
	jobsStore string
	jobsPath  string
)

var rootCmd = &cobra.Command{
	Use:   "db_pii_anonymizer",
	Short: "A tool to find and replace personal data in database tables",
	Long: `db_pii_anonymizer copies database tables page by page into anonymized
destinations, replacing names, contacts, dates and other personal data with
placeholders or consistent synthetic values.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initFlagsAndConfig,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return syncLogger() },
}

// initFlagsAndConfig loads .env, the config file and ANONYMIZER_* variables,
// then applies the flags the user set explicitly.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !(errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file")) {
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyRootFlags(cmd, cfg)
	if cfg.Classifier.APIKey == "" {
		cfg.Classifier.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.SetConfig(cfg)

	return initLogger(cfg.LogLevel)
}

func applyRootFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	setString("log-level", &cfg.LogLevel, logLevel)

	dbCfg := &cfg.Database
	setString("dialect", &dbCfg.Dialect, dialect)
	setString("host", &dbCfg.Host, host)
	setString("username", &dbCfg.User, username)
	setString("password", &dbCfg.Password, password)
	setString("database", &dbCfg.DBName, dbName)
	setString("sslmode", &dbCfg.SSLMode, sslMode)
	setString("cloudsql-instance-connection-name", &dbCfg.CloudSQLInstanceConnectionName, cloudSQLInstanceConnectionName)
	if flags.Changed("port") {
		dbCfg.Port = port
	}
	if flags.Changed("cloudsql-use-private-ip") {
		dbCfg.UsePrivateIP = cloudSQLUsePrivateIP
	}

	setString("classifier", &cfg.Classifier.Provider, classifierProvider)
	setString("gemini-api-key", &cfg.Classifier.APIKey, geminiAPIKey)
	setString("gemini-model", &cfg.Classifier.Model, geminiModel)

	setString("jobs-store", &cfg.Jobs.Store, jobsStore)
	setString("jobs-path", &cfg.Jobs.Path, jobsPath)
}

// initLogger installs the global sugared logger every package logs through.
func initLogger(level string) error {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.DisableStacktrace = true
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return nil
}

func syncLogger() error {
	// Sync fails with EINVAL on terminals.
	_ = zap.L().Sync()
	return nil
}

func validateDialect(dialect string) error {
	if !lo.Contains(supportedDialects, dialect) {
		return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(supportedDialects, ", "))
	}
	return nil
}

func setupDatabase(ctx context.Context) (*database.DB, error) {
	dbConfig := config.Get().Database
	if err := validateDialect(dbConfig.Dialect); err != nil {
		return nil, err
	}
	db, err := database.New(ctx, dbConfig)
	if err != nil {
		zap.S().Errorf("ERROR: Failed to connect to database: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded before configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Database connection flags
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "", fmt.Sprintf("Database dialect (%s)", strings.Join(supportedDialects, ", ")))
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Database host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Database port")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Database username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "database", "", "Database name")
	rootCmd.PersistentFlags().StringVar(&sslMode, "sslmode", "", "PostgreSQL sslmode")
	rootCmd.PersistentFlags().StringVar(&cloudSQLInstanceConnectionName, "cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	rootCmd.PersistentFlags().BoolVar(&cloudSQLUsePrivateIP, "cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")

	// Classifier flags
	rootCmd.PersistentFlags().StringVar(&classifierProvider, "classifier", "", "Text classifier provider (none, gemini)")
	rootCmd.PersistentFlags().StringVar(&geminiAPIKey, "gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")
	rootCmd.PersistentFlags().StringVar(&geminiModel, "gemini-model", "", "Gemini model name")

	// Job store flags
	rootCmd.PersistentFlags().StringVar(&jobsStore, "jobs-store", "", "Where job status records are kept (memory, file, sqlite)")
	rootCmd.PersistentFlags().StringVar(&jobsPath, "jobs-path", "", "Path of the job status file or SQLite database")

	rootCmd.AddCommand(anonymizeCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(jobsCmd)
}
