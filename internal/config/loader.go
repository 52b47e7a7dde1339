package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v2"
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// DefaultConfigPaths defines the default locations to search for configuration files
var DefaultConfigPaths = []string{
	"./devserver.yaml",
	"./devserver.yml",
	"./configs/devserver.yaml",
	"./configs/devserver.yml",
	"/etc/clubapp/devserver.yaml",
}

// Load loads the configuration from the specified file or default locations
func Load(configPath string) (*Config, error) {
	config := Default()
	log := slog.Default().With(slog.String("component", "config"))

	// If no config path is provided, search in default locations
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if !fileExists(configPath) {
			return nil, fmt.Errorf("config file %s not found", configPath)
		}
		log.Info("loading config", slog.String("path", configPath))
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(expandEnvVars(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		log.Info("no config file found, using defaults")
	}

	// The signing key may come from the environment alone
	if config.Auth.JWT.SigningKey == "" {
		config.Auth.JWT.SigningKey = os.Getenv("CLUBAPP_JWT_SIGNING_KEY")
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// findConfigFile searches for a configuration file in default locations
func findConfigFile() string {
	for _, path := range DefaultConfigPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
