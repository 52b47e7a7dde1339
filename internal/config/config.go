package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config represents the dev server configuration
type Config struct {
	Server      ServerConfig `yaml:"server"`
	Auth        AuthConfig   `yaml:"auth"`
	IDs         IDConfig     `yaml:"ids"`
	Environment string       `yaml:"environment" default:"local"` // local, dev, test
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Host string `yaml:"host" default:"localhost"`
	Port int    `yaml:"port" default:"8080"`
}

// AuthConfig holds token issuing configuration
type AuthConfig struct {
	JWT              JWTConfig     `yaml:"jwt"`
	RefreshHeader    string        `yaml:"refresh_header" default:"Authorization-Refresh"`
	VerificationCode string        `yaml:"verification_code" default:"123456"` // Fixed code accepted for every phone (development only)
	CodeLifetime     time.Duration `yaml:"code_lifetime" default:"10m"`        // How long a requested code stays usable
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	SigningKey      string        `yaml:"signing_key"`                     // Secret key for signing JWTs
	AccessLifetime  time.Duration `yaml:"access_lifetime" default:"15m"`   // Short on purpose so clients refresh
	RefreshLifetime time.Duration `yaml:"refresh_lifetime" default:"720h"` // 30 days
}

// IDConfig holds Snowflake ID configuration
type IDConfig struct {
	Node int64 `yaml:"node" default:"1"`
}

// Address returns the host:port the server listens on
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				AccessLifetime:  15 * time.Minute,
				RefreshLifetime: 720 * time.Hour,
			},
			RefreshHeader:    "Authorization-Refresh",
			VerificationCode: "123456",
			CodeLifetime:     10 * time.Minute,
		},
		IDs:         IDConfig{Node: 1},
		Environment: "local",
	}
}

// validate performs basic validation on the configuration
func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if len(config.Auth.JWT.SigningKey) < 16 {
		return fmt.Errorf("auth.jwt.signing_key must be at least 16 characters")
	}
	if config.Auth.JWT.AccessLifetime <= 0 {
		return fmt.Errorf("auth.jwt.access_lifetime must be positive")
	}
	if config.Auth.JWT.RefreshLifetime <= config.Auth.JWT.AccessLifetime {
		return fmt.Errorf("auth.jwt.refresh_lifetime must be longer than access_lifetime")
	}
	if config.Auth.RefreshHeader == "" {
		return fmt.Errorf("auth.refresh_header is required")
	}
	if config.Auth.VerificationCode == "" {
		return fmt.Errorf("auth.verification_code is required")
	}
	if config.Auth.CodeLifetime <= 0 {
		return fmt.Errorf("auth.code_lifetime must be positive")
	}
	if config.IDs.Node < 0 || config.IDs.Node > 1023 {
		return fmt.Errorf("ids.node must be between 0 and 1023")
	}
	return nil
}
