package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

const (
	ConfigDirName  = ".ga4cli"
	ConfigFileName = "config.yaml"
	DotEnvFileName = ".env"
)

// Keys accepted by Set, in the order 'config show' lists them.
var SettableKeys = []string{
	"client_id",
	"client_secret",
	"default_property",
	"output_format",
	"requests_per_second",
}

// GetConfigDir returns the path to the config directory (~/.ga4cli).
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", wrap.Error(err, "failed to get user home directory")
	}
	return filepath.Join(homeDir, ConfigDirName), nil
}

func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// EnsureConfigDir creates the config directory, readable by the current user only.
func EnsureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return wrap.Errorf(err, "failed to create config directory '%s'", configDir)
	}
	return nil
}

// LoadConfig reads the config file. A missing file gives an empty config.
func LoadConfig() (*AppConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		now := time.Now()
		return &AppConfig{CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, wrap.Error(err, "failed to read config file")
	}

	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, wrap.Errorf(err, "failed to parse config file '%s'", configPath)
	}
	return &config, nil
}

func SaveConfig(config *AppConfig) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	config.UpdatedAt = time.Now()
	if config.CreatedAt.IsZero() {
		config.CreatedAt = config.UpdatedAt
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return wrap.Error(err, "failed to marshal config to YAML")
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return wrap.Error(err, "failed to write config file")
	}
	return nil
}

// Update loads the config, applies change and saves the result.
func Update(change func(config *AppConfig) error) error {
	config, err := LoadConfig()
	if err != nil {
		return wrap.Error(err, "failed to load config")
	}
	if err := change(config); err != nil {
		return err
	}
	if err := SaveConfig(config); err != nil {
		return wrap.Error(err, "failed to save config")
	}
	return nil
}

// Set assigns one of SettableKeys from its string form.
func Set(key string, value string) error {
	if !slices.Contains(SettableKeys, key) {
		return fmt.Errorf("unknown config key '%s' (expected one of: %s)", key, strings.Join(SettableKeys, ", "))
	}

	return Update(func(config *AppConfig) error {
		switch key {
		case "client_id":
			config.ClientID = strings.TrimSpace(value)
		case "client_secret":
			config.ClientSecret = strings.TrimSpace(value)
		case "default_property":
			config.DefaultProperty = strings.TrimSpace(value)
		case "output_format":
			config.OutputFormat = strings.ToLower(strings.TrimSpace(value))
		case "requests_per_second":
			rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return wrap.Errorf(err, "invalid requests_per_second '%s'", value)
			}
			config.RequestsPerSecond = rate
		}
		return nil
	})
}

// Get returns the string form of one of SettableKeys. The client secret is masked.
func (config *AppConfig) Get(key string) string {
	switch key {
	case "client_id":
		return config.ClientID
	case "client_secret":
		if config.ClientSecret == "" {
			return ""
		}
		return "********"
	case "default_property":
		return config.DefaultProperty
	case "output_format":
		return config.OutputFormat
	case "requests_per_second":
		if config.RequestsPerSecond == 0 {
			return ""
		}
		return strconv.FormatFloat(config.RequestsPerSecond, 'f', -1, 64)
	default:
		return ""
	}
}

func SetClientCredentials(clientID, clientSecret string) error {
	return Update(func(config *AppConfig) error {
		config.ClientID = strings.TrimSpace(clientID)
		config.ClientSecret = strings.TrimSpace(clientSecret)
		return nil
	})
}

func SetActivePreset(presetName string) error {
	return Update(func(config *AppConfig) error {
		config.ActivePreset = presetName
		return nil
	})
}

func GetActivePreset() (string, error) {
	config, err := LoadConfig()
	if err != nil {
		return "", wrap.Error(err, "failed to load config")
	}
	return config.ActivePreset, nil
}

func SetDefaultProperty(property string) error {
	return Update(func(config *AppConfig) error {
		config.DefaultProperty = property
		return nil
	})
}

// LoadDotEnv loads variables from a .env file in the working directory, if
// one exists. Variables already set in the environment are kept.
func LoadDotEnv() error {
	if _, err := os.Stat(DotEnvFileName); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return wrap.Error(err, "failed to check for .env file")
	}

	if err := godotenv.Load(DotEnvFileName); err != nil {
		return wrap.Error(err, "failed to load .env file")
	}
	log.Debug("Loaded environment from .env file")
	return nil
}

func ReadEnv() (EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return EnvOverrides{}, wrap.Error(err, "failed to parse environment variables")
	}
	return overrides, nil
}

// Resolve combines the config file with environment overrides.
func Resolve() (Settings, error) {
	if err := LoadDotEnv(); err != nil {
		return Settings{}, err
	}

	config, err := LoadConfig()
	if err != nil {
		return Settings{}, wrap.Error(err, "failed to load config")
	}

	overrides, err := ReadEnv()
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		AppConfig:        *config,
		AccessToken:      overrides.AccessToken,
		DataAPIURL:       overrides.DataAPIURL,
		DataAPIAlphaURL:  overrides.DataAPIAlphaURL,
		AdminAPIURL:      overrides.AdminAPIURL,
		AdminAPIAlphaURL: overrides.AdminAPIAlphaURL,
	}
	if overrides.ClientID != "" {
		settings.ClientID = overrides.ClientID
	}
	if overrides.ClientSecret != "" {
		settings.ClientSecret = overrides.ClientSecret
	}
	if overrides.Property != "" {
		settings.DefaultProperty = overrides.Property
	}
	if overrides.Preset != "" {
		settings.ActivePreset = overrides.Preset
	}
	if overrides.RequestsPerSecond != 0 {
		settings.RequestsPerSecond = overrides.RequestsPerSecond
	}
	return settings, nil
}
