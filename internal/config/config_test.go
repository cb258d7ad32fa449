package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/caregiver-planner/pkg/core/calendar"
)

func intPtr(i int) *int { return &i }

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		DatabaseURL:     "postgres://planner@localhost/planner",
		RedisAddr:       "localhost:6379",
		LockTTL:         2 * time.Minute,
		PlanningSheetID: "sheet123",
		BigWeekDays:     []string{"mon", "tue", "wed", "sat", "sun"},
		MissionOverrides: []MissionOverride{
			{RRule: "FREQ=WEEKLY;BYDAY=SU", MissionID: "m1", Min: intPtr(1)},
			{RRule: "FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=25", MissionID: "m2", Closed: true},
		},
	}

	assert.NoError(t, Validate(cfg))
}

func TestValidate_MinimalConfig(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/planner"}

	assert.NoError(t, Validate(cfg))
	assert.Equal(t, calendar.DefaultBigWeekDays, cfg.WeekDays())
	assert.Equal(t, DefaultHTTPAddr, cfg.ListenAddr())
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	err := Validate(&Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_InvalidRedisAddr(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/planner", RedisAddr: "not an address"}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_NegativeLockTTL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://localhost/planner", LockTTL: -time.Second}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_BigWeekDays(t *testing.T) {
	tests := []struct {
		name    string
		days    []string
		wantErr string
	}{
		{name: "four days", days: []string{"mon", "tue", "wed", "sat"}, wantErr: "validation failed"},
		{name: "duplicate", days: []string{"mon", "monday", "wed", "sat", "sun"}, wantErr: "duplicate big week day"},
		{name: "unknown", days: []string{"mon", "tue", "wed", "sat", "someday"}, wantErr: "unknown weekday"},
		{name: "custom valid", days: []string{"Thursday", "Friday", "Saturday", "Sunday", "Monday"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{DatabaseURL: "postgres://localhost/planner", BigWeekDays: tt.days}
			err := Validate(cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.WeekDays().Contains(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)), "Thursday")
		})
	}
}

func TestValidate_InvalidRRule(t *testing.T) {
	cfg := &Config{
		DatabaseURL: "postgres://localhost/planner",
		MissionOverrides: []MissionOverride{
			{RRule: "FREQ=WEEKLY;BYDAY=SU", MissionID: "m1", Closed: true},
			{RRule: "INVALID_RRULE", MissionID: "m2", Closed: true},
		},
	}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rrule in missionOverrides[1]")
}

func TestValidate_OverrideWithoutEffect(t *testing.T) {
	cfg := &Config{
		DatabaseURL:      "postgres://localhost/planner",
		MissionOverrides: []MissionOverride{{RRule: "FREQ=WEEKLY;BYDAY=SU", MissionID: "m1"}},
	}

	err := Validate(cfg)
	assert.ErrorContains(t, err, "must set min, max or closed")
}

func TestValidate_OverrideMissingFields(t *testing.T) {
	cfg := &Config{
		DatabaseURL:      "postgres://localhost/planner",
		MissionOverrides: []MissionOverride{{RRule: "", MissionID: "m1", Closed: true}},
	}
	assert.ErrorContains(t, Validate(cfg), "validation failed")

	cfg.MissionOverrides = []MissionOverride{{RRule: "FREQ=DAILY", Closed: true}}
	assert.ErrorContains(t, Validate(cfg), "validation failed")

	cfg.MissionOverrides = []MissionOverride{{RRule: "FREQ=DAILY", MissionID: "m1", Max: intPtr(-1)}}
	assert.ErrorContains(t, Validate(cfg), "validation failed")
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "planner_config.yaml")

	validConfig := `
databaseURL: "postgres://planner@localhost/planner"
redisAddr: "localhost:6379"
lockTTL: 90s
planningSheetID: "sheet123"
httpAddr: ":9090"
metricsNamespace: "caregivers"
recurrence: true
bigWeekDays: [mon, tue, wed, sat, sun]
missionOverrides:
  - rrule: "FREQ=WEEKLY;BYDAY=SU"
    missionID: "m1"
    min: 3
  - rrule: "FREQ=YEARLY;BYMONTH=12;BYMONTHDAY=25"
    missionID: "m2"
    closed: true
`

	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://planner@localhost/planner", cfg.DatabaseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 90*time.Second, cfg.LockTTL)
	assert.Equal(t, "sheet123", cfg.PlanningSheetID)
	assert.Equal(t, ":9090", cfg.ListenAddr())
	assert.Equal(t, "caregivers", cfg.MetricsNamespace)
	assert.True(t, cfg.Recurrence)
	assert.Equal(t, calendar.DefaultBigWeekDays, cfg.WeekDays())

	require.Len(t, cfg.MissionOverrides, 2)
	first := cfg.MissionOverrides[0]
	assert.Equal(t, "m1", first.MissionID)
	require.NotNil(t, first.Min)
	assert.Equal(t, 3, *first.Min)
	assert.Nil(t, first.Max)
	assert.False(t, first.Closed)
	assert.True(t, cfg.MissionOverrides[1].Closed)
}

func TestLoadFromPath_InvalidRRule(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_rrule.yaml")

	invalidConfig := `
databaseURL: "postgres://localhost/planner"
missionOverrides:
  - rrule: "INVALID_RRULE_SYNTAX"
    missionID: "m1"
    closed: true
`

	err := os.WriteFile(configPath, []byte(invalidConfig), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rrule")
}

func TestLoadFromPath_MinimalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minimal_config.yaml")

	err := os.WriteFile(configPath, []byte(`databaseURL: "postgres://localhost/planner"`), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Empty(t, cfg.RedisAddr)
	assert.Zero(t, cfg.LockTTL)
	assert.False(t, cfg.Recurrence)
	assert.Empty(t, cfg.MissionOverrides)
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_yaml.yaml")

	invalidYAML := `
databaseURL: "postgres://localhost/planner"
  invalid indentation
redisAddr: "localhost:6379"
`

	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestFindConfigFile_UsesEnvSuffix(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv("HOME", tmpDir)

	_, err := findConfigFile("staging")
	assert.ErrorContains(t, err, "planner_config.staging.yaml not found")

	require.NoError(t, os.WriteFile("planner_config.staging.yaml", []byte(`databaseURL: "x"`), 0644))

	path, err := findConfigFile("staging")
	require.NoError(t, err)
	assert.Equal(t, "planner_config.staging.yaml", path)

	cfg, err := LoadWithEnv("staging")
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.DatabaseURL)
}
