package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ioctest/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/ioctest"
	projectConfigDir = ".ioctest"
	configFileName   = "config.yaml"
)

// LoadConfig loads the ioctest configuration by layering default, user, and project settings.
func LoadConfig() (Config, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		logging.Warn("Config", "could not determine user config path: %v", err)
	} else if err := applyIfExists(&config, userConfigPath); err != nil {
		return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "could not determine project config path: %v", err)
	} else if err := applyIfExists(&config, projectConfigPath); err != nil {
		return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	return config, nil
}

// LoadConfigFile applies a single explicit file over the defaults.
func LoadConfigFile(path string) (Config, error) {
	config := GetDefaultConfig()
	if err := applyFile(&config, path); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func applyIfExists(config *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	logging.Debug("Config", "applying %s", path)
	return applyFile(config, path)
}

// applyFile decodes a YAML file on top of config. Keys missing from the
// file keep their current value and maps are merged per key.
func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
