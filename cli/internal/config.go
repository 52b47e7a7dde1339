package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/courtside/clubapp/internal/client"
	"github.com/courtside/clubapp/internal/tokenstore"
)

// ConfigPathEnv overrides the location of the config file
const ConfigPathEnv = "CLUBCTL_CONFIG"

// RedisSettings configures the redis session store
type RedisSettings struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// Context represents a named configuration context (like kubectl contexts)
type Context struct {
	Server struct {
		BaseURL string        `yaml:"base-url"`
		Timeout time.Duration `yaml:"timeout,omitempty"`
	} `yaml:"server"`
	Session struct {
		Store           string        `yaml:"store"` // file, redis or memory
		CredentialsFile string        `yaml:"credentials-file,omitempty"`
		Redis           RedisSettings `yaml:"redis,omitempty"`
	} `yaml:"session"`
}

// Config represents the CLI configuration with multiple contexts
type Config struct {
	CurrentContext string              `yaml:"current-context"`
	Contexts       map[string]*Context `yaml:"contexts"`
}

// NewContext creates a context for baseURL with a file session store
func NewContext(baseURL string) *Context {
	ctx := &Context{}
	ctx.Server.BaseURL = baseURL
	ctx.Server.Timeout = client.DefaultTimeout
	ctx.Session.Store = tokenstore.BackendFile
	return ctx
}

// DefaultConfig returns the default configuration with "dev" and "prod" contexts
func DefaultConfig() *Config {
	return &Config{
		CurrentContext: "dev",
		Contexts: map[string]*Context{
			"dev":  NewContext("http://localhost:8080"),
			"prod": NewContext("https://api.courtside.club"),
		},
	}
}

// GetCurrentContext returns the current active context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}

	ctx, ok := c.Contexts[c.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("current context %q not found", c.CurrentContext)
	}

	return ctx, nil
}

// SetCurrentContext sets the current active context
func (c *Config) SetCurrentContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q does not exist", name)
	}
	c.CurrentContext = name
	return nil
}

// AddContext adds or updates a context
func (c *Config) AddContext(name string, ctx *Context) {
	if c.Contexts == nil {
		c.Contexts = make(map[string]*Context)
	}
	c.Contexts[name] = ctx
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if name == c.CurrentContext {
		return fmt.Errorf("cannot delete current context %q", name)
	}
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q does not exist", name)
	}
	delete(c.Contexts, name)
	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".clubctl"), nil
}

// LoadConfig loads configuration from ~/.clubctl
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultConfig := DefaultConfig()
		if err := SaveConfig(defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure we have a valid current context
	if config.CurrentContext == "" && len(config.Contexts) > 0 {
		for name := range config.Contexts {
			config.CurrentContext = name
			break
		}
	}

	return &config, nil
}

// SaveConfig saves configuration to ~/.clubctl
func SaveConfig(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ClientConfig returns the API client settings for this context
func (ctx *Context) ClientConfig() client.Config {
	return client.Config{
		BaseURL: ctx.Server.BaseURL,
		Timeout: ctx.Server.Timeout,
	}
}

// StoreConfig returns the session store settings for the context called name
func (ctx *Context) StoreConfig(name string) (tokenstore.Config, error) {
	cfg := tokenstore.Config{
		Backend:       ctx.Session.Store,
		Path:          ctx.Session.CredentialsFile,
		RedisAddr:     ctx.Session.Redis.Addr,
		RedisPassword: ctx.Session.Redis.Password,
		RedisDB:       ctx.Session.Redis.DB,
		RedisPrefix:   ctx.Session.Redis.Prefix,
	}
	if cfg.Backend == "" {
		cfg.Backend = tokenstore.BackendFile
	}
	if cfg.Backend == tokenstore.BackendFile && cfg.Path == "" {
		path, err := defaultCredentialsPath(name)
		if err != nil {
			return cfg, err
		}
		cfg.Path = path
	}
	if cfg.Backend == tokenstore.BackendRedis && cfg.RedisPrefix == "" {
		cfg.RedisPrefix = tokenstore.DefaultRedisPrefix + ":" + name
	}
	return cfg, nil
}

// defaultCredentialsPath keeps one credentials file per context
func defaultCredentialsPath(name string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "clubctl", name, "credentials.json"), nil
}

// SessionDescription summarizes where the context keeps its tokens
func (ctx *Context) SessionDescription(name string) string {
	cfg, err := ctx.StoreConfig(name)
	if err != nil {
		return "invalid: " + err.Error()
	}
	switch cfg.Backend {
	case tokenstore.BackendFile:
		return "file " + cfg.Path
	case tokenstore.BackendRedis:
		addr := cfg.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		return fmt.Sprintf("redis %s/%d %s", addr, cfg.RedisDB, cfg.RedisPrefix)
	default:
		return cfg.Backend
	}
}
