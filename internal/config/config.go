// Package config provides configuration loading and validation for the observer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the raw configuration as read from the environment or a JSON file.
// All fields are optional; empty values are filled by MergeWithDefaults.
type Config struct {
	// Outputs
	TopicARN string `json:"output_sns_topic_arn,omitempty"` // Topic receiving reports

	// Job store
	StoreBackend string `json:"job_store_backend,omitempty"` // dynamodb, postgres or memory
	JobTable     string `json:"job_table_name,omitempty"`    // DynamoDB table name
	DatabaseURL  string `json:"database_url,omitempty"`      // PostgreSQL connection URL

	// Artifact
	TestActionName string `json:"test_action_name,omitempty"` // Action whose output artifact holds the reports
	LintFile       string `json:"lint_file,omitempty"`
	TestFile       string `json:"test_file,omitempty"`
	CoverageFile   string `json:"coverage_file,omitempty"`
	ScratchDir     string `json:"scratch_dir,omitempty"` // Where archives are downloaded and unpacked

	// Timing
	ReadAttempts      int    `json:"read_attempts,omitempty"`
	ReadRetryInterval string `json:"read_retry_interval,omitempty"`   // e.g. "2s"
	GracePeriod       string `json:"report_grace_period,omitempty"`   // e.g. "2s"
	SettleTimeout     string `json:"report_settle_timeout,omitempty"` // "0s" disables the settle wait
}

// Defaults returns the built-in configuration values.
func Defaults() Config {
	return Config{
		StoreBackend:      BackendDynamoDB,
		TestActionName:    "Test",
		LintFile:          "pylint.out",
		TestFile:          "pytest.out",
		CoverageFile:      "coverage.out",
		ScratchDir:        os.TempDir(),
		ReadAttempts:      5,
		ReadRetryInterval: "2s",
		GracePeriod:       "2s",
		SettleTimeout:     "0s",
	}
}

// FromEnv reads the configuration from environment variables.
// Unset variables are left empty.
func FromEnv() (Config, error) {
	cfg := Config{
		TopicARN:          os.Getenv("OUTPUT_SNS_TOPIC_ARN"),
		StoreBackend:      os.Getenv("JOB_STORE_BACKEND"),
		JobTable:          os.Getenv("JOB_TABLE_NAME"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		TestActionName:    os.Getenv("TEST_ACTION_NAME"),
		LintFile:          os.Getenv("LINT_FILE"),
		TestFile:          os.Getenv("TEST_FILE"),
		CoverageFile:      os.Getenv("COVERAGE_FILE"),
		ScratchDir:        os.Getenv("SCRATCH_DIR"),
		ReadRetryInterval: os.Getenv("READ_RETRY_INTERVAL"),
		GracePeriod:       os.Getenv("REPORT_GRACE_PERIOD"),
		SettleTimeout:     os.Getenv("REPORT_SETTLE_TIMEOUT"),
	}

	if s := os.Getenv("READ_ATTEMPTS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, fmt.Errorf("invalid READ_ATTEMPTS: %v", err)
		}
		cfg.ReadAttempts = n
	}
	return cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&result.TopicARN, defaults.TopicARN)
	fill(&result.StoreBackend, defaults.StoreBackend)
	fill(&result.JobTable, defaults.JobTable)
	fill(&result.DatabaseURL, defaults.DatabaseURL)
	fill(&result.TestActionName, defaults.TestActionName)
	fill(&result.LintFile, defaults.LintFile)
	fill(&result.TestFile, defaults.TestFile)
	fill(&result.CoverageFile, defaults.CoverageFile)
	fill(&result.ScratchDir, defaults.ScratchDir)
	fill(&result.ReadRetryInterval, defaults.ReadRetryInterval)
	fill(&result.GracePeriod, defaults.GracePeriod)
	fill(&result.SettleTimeout, defaults.SettleTimeout)

	// Int fields: use default if zero
	if result.ReadAttempts == 0 {
		result.ReadAttempts = defaults.ReadAttempts
	}

	return result
}
