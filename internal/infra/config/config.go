package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Checks lists what is monitored. It can be loaded from a YAML file; every
// field left empty falls back to its default.
type Checks struct {
	Regions          []string `yaml:"regions" default:"[\"en-gb\",\"en-us\"]" validate:"min=1,dive,required"`
	Brackets         []string `yaml:"brackets" default:"[\"shuffle\",\"2v2\",\"3v3\",\"rbg\"]" validate:"min=1,dive,required"`
	ThresholdMinutes int64    `yaml:"threshold_minutes" default:"210" validate:"gt=0"`
}

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken      string        `validate:"required"`
	TelegramChatID     string        `validate:"required"`
	TelegramAPIURL     string        `default:"https://api.telegram.org" validate:"required,url"`
	TelegramClient     string        `default:"http" validate:"oneof=http telebot"`
	TelegramRatePerSec float64       `default:"1" validate:"gt=0"`
	ActivityAPIURL     string        `default:"https://pvpq.net" validate:"required,url"`
	SiteURL            string        `default:"https://pvpq.net" validate:"required,url"`
	HTTPTimeout        time.Duration `default:"10s" validate:"gt=0"`
	PushgatewayURL     string        `validate:"omitempty,url"`
	LogLevel           string        `default:"info"`
	Environment        string        `default:"development"`
	Checks             Checks
}

var validate = validator.New()

// Load reads configuration from an optional checks file, environment variables
// and .env file (if present). Secrets are not required here; call Validate once
// command-line flags have been applied.
func Load(checksPath string) (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	if checksPath == "" {
		checksPath = os.Getenv("CHECKS_FILE")
	}
	if checksPath != "" {
		b, err := os.ReadFile(checksPath)
		if err != nil {
			return nil, fmt.Errorf("read checks file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg.Checks); err != nil {
			return nil, fmt.Errorf("parse checks file %s: %w", checksPath, err)
		}
		// A zero threshold would otherwise be replaced by the default.
		var explicit struct {
			ThresholdMinutes *int64 `yaml:"threshold_minutes"`
		}
		if err := yaml.Unmarshal(b, &explicit); err != nil {
			return nil, fmt.Errorf("parse checks file %s: %w", checksPath, err)
		}
		if explicit.ThresholdMinutes != nil && *explicit.ThresholdMinutes <= 0 {
			return nil, fmt.Errorf("invalid checks file %s: threshold_minutes must be positive, got %d", checksPath, *explicit.ThresholdMinutes)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.TelegramClient = strings.ToLower(cfg.TelegramClient)

	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.TelegramAPIURL = os.Getenv("TELEGRAM_API_URL")
	cfg.TelegramClient = os.Getenv("TELEGRAM_CLIENT")
	cfg.ActivityAPIURL = os.Getenv("ACTIVITY_API_URL")
	cfg.SiteURL = os.Getenv("SITE_URL")
	cfg.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	cfg.Environment = os.Getenv("ENVIRONMENT")

	if v := os.Getenv("TELEGRAM_RATE_PER_SECOND"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_RATE_PER_SECOND: %w", err)
		}
		if rate <= 0 {
			return fmt.Errorf("invalid TELEGRAM_RATE_PER_SECOND: must be positive, got %s", v)
		}
		cfg.TelegramRatePerSec = rate
	}

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		if timeout <= 0 {
			return fmt.Errorf("invalid HTTP_TIMEOUT: must be positive, got %s", v)
		}
		cfg.HTTPTimeout = timeout
	}

	if v := os.Getenv("CHECK_REGIONS"); v != "" {
		cfg.Checks.Regions = splitList(v)
	}
	if v := os.Getenv("CHECK_BRACKETS"); v != "" {
		cfg.Checks.Brackets = splitList(v)
	}
	if v := os.Getenv("STALE_THRESHOLD_MINUTES"); v != "" {
		minutes, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid STALE_THRESHOLD_MINUTES: %w", err)
		}
		if minutes <= 0 {
			return fmt.Errorf("invalid STALE_THRESHOLD_MINUTES: must be positive, got %d", minutes)
		}
		cfg.Checks.ThresholdMinutes = minutes
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the merged configuration.
func (c *AppConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
