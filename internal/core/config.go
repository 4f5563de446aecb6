// Package core provides configuration loading for teamsbridge.
//
// Configuration comes from a YAML file with ${VAR} environment expansion, or
// entirely from the environment when no file is given. The recognized
// environment keys are the credential material handed to the protocol
// transport:
//
//	BOT_APP_ID, BOT_CLIENT_SECRET, BOT_APP_TYPE, BOT_TENANT_ID
//
// plus BOT_SERVICE_URL, the optional explicit outbound endpoint used when
// creating proactive conversations.
package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/keepmind9/teamsbridge/pkg/constants"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel        = "info"
	DefaultLogCompress     = true
	DefaultLogEnableStdout = true
	DefaultBotName         = "teamsbridge"
)

// LoadConfig loads configuration from a YAML file, expands environment
// variables, applies BOT_* environment overrides, and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&config)
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// FromEnv builds a configuration entirely from environment variables and
// defaults, for deployments that skip the YAML file.
func FromEnv() (*Config, error) {
	var config Config
	applyEnvOverrides(&config)
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}
	return result, nil
}

// applyEnvOverrides lets the BOT_* keys win over the file values, so the
// credential material can live outside the config file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("BOT_APP_ID"); v != "" {
		config.Bot.AppID = v
	}
	if v := os.Getenv("BOT_CLIENT_SECRET"); v != "" {
		config.Bot.ClientSecret = v
	}
	if v := os.Getenv("BOT_APP_TYPE"); v != "" {
		config.Bot.AppType = v
	}
	if v := os.Getenv("BOT_TENANT_ID"); v != "" {
		config.Bot.TenantID = v
	}
	if v := os.Getenv("BOT_SERVICE_URL"); v != "" {
		config.Bot.ServiceURL = v
	}
}

// validateConfig applies defaults and performs basic validation.
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		config.Server.Port = constants.DefaultServerPort
	}
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", config.Server.Port)
	}

	if config.Bot.Name == "" {
		config.Bot.Name = DefaultBotName
	}
	if config.Bot.AppType == "" {
		config.Bot.AppType = constants.DefaultAppType
	}

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = constants.DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = constants.DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = constants.DefaultLogMaxAge
	}
	if !config.Logging.Compress {
		config.Logging.Compress = DefaultLogCompress
	}
	if !config.Logging.EnableStdout {
		config.Logging.EnableStdout = DefaultLogEnableStdout
	}

	return nil
}
