package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ObserverConfig is the validated configuration the observer runs with.
type ObserverConfig struct {
	TopicARN string

	StoreBackend string `validate:"oneof=dynamodb postgres memory"`
	JobTable     string `validate:"required_if=StoreBackend dynamodb"`
	DatabaseURL  string `validate:"required_if=StoreBackend postgres"`

	TestActionName string `validate:"required"`
	LintFile       string `validate:"required"`
	TestFile       string `validate:"required"`
	CoverageFile   string `validate:"required"`
	ScratchDir     string

	ReadAttempts      int `validate:"min=1"`
	ReadRetryInterval time.Duration
	GracePeriod       time.Duration
	SettleTimeout     time.Duration
}

// ErrTopicRequired is returned when reports must be published but no topic is set.
var ErrTopicRequired = errors.New("OUTPUT_SNS_TOPIC_ARN is required but not set")

var validate = validator.New()

// NewObserverConfig builds the configuration from environment variables and defaults.
func NewObserverConfig() (*ObserverConfig, error) {
	env, err := FromEnv()
	if err != nil {
		return nil, err
	}
	merged := env.MergeWithDefaults(Defaults())
	return merged.Build()
}

// Build parses and validates c.
func (c Config) Build() (*ObserverConfig, error) {
	cfg := &ObserverConfig{
		TopicARN:       c.TopicARN,
		StoreBackend:   strings.ToLower(strings.TrimSpace(c.StoreBackend)),
		JobTable:       c.JobTable,
		DatabaseURL:    c.DatabaseURL,
		TestActionName: c.TestActionName,
		LintFile:       c.LintFile,
		TestFile:       c.TestFile,
		CoverageFile:   c.CoverageFile,
		ScratchDir:     c.ScratchDir,
		ReadAttempts:   c.ReadAttempts,
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"read_retry_interval", c.ReadRetryInterval, &cfg.ReadRetryInterval},
		{"report_grace_period", c.GracePeriod, &cfg.GracePeriod},
		{"report_settle_timeout", c.SettleTimeout, &cfg.SettleTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("config error: invalid %s: %v", d.name, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *ObserverConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config error: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"read_retry_interval":   c.ReadRetryInterval,
		"report_grace_period":   c.GracePeriod,
		"report_settle_timeout": c.SettleTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}
	return nil
}

// RequirePublishing returns ErrTopicRequired when no topic is configured.
func (c *ObserverConfig) RequirePublishing() error {
	if c.TopicARN == "" {
		return ErrTopicRequired
	}
	return nil
}
