package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// mockConfigPaths points both layers at tempDir and restores them afterwards.
func mockConfigPaths(t *testing.T, userPath, projectPath string) {
	t.Helper()
	originalGetUserConfigPath := getUserConfigPath
	originalGetProjectConfigPath := getProjectConfigPath
	t.Cleanup(func() {
		getUserConfigPath = originalGetUserConfigPath
		getProjectConfigPath = originalGetProjectConfigPath
	})

	getUserConfigPath = func() (string, error) { return userPath, nil }
	getProjectConfigPath = func() (string, error) { return projectPath, nil }
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	tempDir := t.TempDir()
	mockConfigPaths(t,
		filepath.Join(tempDir, "non-existent-user-config.yaml"),
		filepath.Join(tempDir, "non-existent-project-config.yaml"))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
	assert.NoError(t, loaded.Validate())
}

func TestLoadConfig_UserAndProjectOverride(t *testing.T) {
	tempDir := t.TempDir()

	userPath := createTempConfigFile(t, filepath.Join(tempDir, userConfigDir), `
serial:
  port: /dev/ttyUSB0
timing:
  reply_timeout: 1500ms
limits:
  analog:
    3: {lower: 1000, upper: 1500}
`)
	projectPath := createTempConfigFile(t, filepath.Join(tempDir, projectConfigDir), `
serial:
  baud_rate: 57600
output:
  color: true
  report_dir: /tmp/reports
`)
	mockConfigPaths(t, userPath, projectPath)

	loaded, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 57600, loaded.Serial.BaudRate)
	assert.Equal(t, 1500*time.Millisecond, loaded.Timing.ReplyTimeout)
	assert.Equal(t, 5*time.Second, loaded.Timing.AggregateTimeout, "untouched keys keep their default")
	assert.Equal(t, Range{Lower: 1000, Upper: 1500}, loaded.Limits.Analog[3])
	assert.Equal(t, Range{Lower: 2375, Upper: 2750}, loaded.Limits.Analog[2], "map entries merge per channel")
	assert.True(t, loaded.Output.Color)
	assert.Equal(t, "/tmp/reports", loaded.Output.ReportDir)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	userPath := createTempConfigFile(t, tempDir, "serial: [unterminated")
	mockConfigPaths(t, userPath, filepath.Join(tempDir, "missing.yaml"))

	_, err := LoadConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "error loading user config")
}

func TestLoadConfigFile(t *testing.T) {
	path := createTempConfigFile(t, t.TempDir(), `
cuff:
  threshold: 55
  attempts: 5
safeguard:
  enabled: true
`)

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(55), loaded.Cuff.Threshold)
	assert.Equal(t, 5, loaded.Cuff.Attempts)
	assert.Equal(t, 3*time.Second, loaded.Cuff.RetryDelay)
	assert.True(t, loaded.Safeguard.Enabled)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetUserConfigDir(t *testing.T) {
	original := osUserHomeDir
	defer func() { osUserHomeDir = original }()
	osUserHomeDir = func() (string, error) { return "/home/operator", nil }

	dir, err := GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/home/operator/.config/ioctest", dir)
}

func TestPSORange(t *testing.T) {
	limits := GetDefaultConfig().Limits
	assert.Equal(t, Range{Lower: 48600, Upper: 59400}, limits.PSORange())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty port", func(c *Config) { c.Serial.Port = "" }, "serial.port"},
		{"zero baud", func(c *Config) { c.Serial.BaudRate = 0 }, "serial.baud_rate"},
		{"zero reply timeout", func(c *Config) { c.Timing.ReplyTimeout = 0 }, "timing.reply_timeout"},
		{"negative settle", func(c *Config) { c.Timing.SettleDelay = -time.Second }, "timing.settle_delay"},
		{"bad tolerance", func(c *Config) { c.Limits.PSOTolerance = 1.5 }, "limits.pso_tolerance"},
		{"inverted pulse range", func(c *Config) { c.Limits.PulseDriver = Range{Lower: 10, Upper: 10} }, "limits.pulse_driver"},
		{"inverted analog range", func(c *Config) { c.Limits.Analog[4] = Range{Lower: 3000, Upper: 2000} }, "limits.analog[4]"},
		{"no attempts", func(c *Config) { c.Cuff.Attempts = 0 }, "cuff.attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
