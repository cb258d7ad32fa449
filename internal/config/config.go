package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
)

// DefaultHTTPAddr is used by the serve command when httpAddr is not set
const DefaultHTTPAddr = ":8080"

// MissionOverride changes a mission's staffing on the dates matching RRule
type MissionOverride struct {
	RRule     string `yaml:"rrule" validate:"required"`
	MissionID string `yaml:"missionID" validate:"required"`
	Min       *int   `yaml:"min,omitempty"`
	Max       *int   `yaml:"max,omitempty" validate:"omitempty,min=0"`
	Closed    bool   `yaml:"closed,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL      string            `yaml:"databaseURL" validate:"required"`
	RedisAddr        string            `yaml:"redisAddr,omitempty" validate:"omitempty,hostname_port"`
	LockTTL          time.Duration     `yaml:"lockTTL,omitempty" validate:"gte=0"`
	PlanningSheetID  string            `yaml:"planningSheetID,omitempty"`
	HTTPAddr         string            `yaml:"httpAddr,omitempty"`
	MetricsNamespace string            `yaml:"metricsNamespace,omitempty"`
	BigWeekDays      []string          `yaml:"bigWeekDays,omitempty" validate:"omitempty,len=5,dive,required"`
	Recurrence       bool              `yaml:"recurrence,omitempty"`
	MissionOverrides []MissionOverride `yaml:"missionOverrides,omitempty" validate:"dive"`
}

// WeekDays returns the configured big week days, or the default set
func (c *Config) WeekDays() calendar.BigWeekDays {
	days, err := calendar.ParseBigWeekDays(c.BigWeekDays)
	if err != nil {
		// Validate rejects bad names, so only an unvalidated config gets here
		return calendar.DefaultBigWeekDays
	}
	return days
}

// ListenAddr returns the HTTP listen address
func (c *Config) ListenAddr() string {
	if c.HTTPAddr == "" {
		return DefaultHTTPAddr
	}
	return c.HTTPAddr
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// env="test" looks for planner_config.test.yaml, an empty env for planner_config.yaml.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the big week days and the override rules
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := calendar.ParseBigWeekDays(cfg.BigWeekDays); err != nil {
		return fmt.Errorf("invalid bigWeekDays: %w", err)
	}

	for i, override := range cfg.MissionOverrides {
		if _, err := rrule.StrToRRule(override.RRule); err != nil {
			return fmt.Errorf("invalid rrule in missionOverrides[%d]: %w", i, err)
		}
		if !override.Closed && override.Min == nil && override.Max == nil {
			return fmt.Errorf("missionOverrides[%d] must set min, max or closed", i)
		}
	}

	return nil
}

// findConfigFile searches for the config file in the current directory and the home directory
func findConfigFile(env string) (string, error) {
	configFileName := "planner_config.yaml"
	if env != "" {
		configFileName = "planner_config." + env + ".yaml"
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", configFileName)
}
