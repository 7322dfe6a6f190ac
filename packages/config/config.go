// Package config holds the harness configuration: where the system under
// test listens, how to reach its backing store, and run-level knobs.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables for backing store credentials.
const (
	EnvDBUsername = "POSTGRESQL_USERNAME"
	EnvDBPassword = "POSTGRESQL_PASSWORD"
)

// Config is the harness configuration.
type Config struct {
	BaseURL         string  `json:"baseUrl" yaml:"baseUrl"`
	HealthURL       string  `json:"healthUrl" yaml:"healthUrl"`
	Timeout         int     `json:"timeout" yaml:"timeout"` // milliseconds
	RateLimit       float64 `json:"rateLimit" yaml:"rateLimit"`
	DatabaseURL     string  `json:"databaseUrl" yaml:"databaseUrl"`
	ResourceDir     string  `json:"resourceDir" yaml:"resourceDir"`
	DefaultPassword string  `json:"defaultPassword" yaml:"defaultPassword"`
	Seed            int64   `json:"seed" yaml:"seed"`
	Verbose         bool    `json:"verbose" yaml:"verbose"`
	NoColor         bool    `json:"noColor" yaml:"noColor"`
}

// ConfigFilenames contains the possible config file names, checked in order.
var ConfigFilenames = []string{
	"harness.config.json",
	"harness.config.yaml",
	"harness.config.yml",
	".harnessrc",
}

// DefaultConfig returns a configuration matching the system under test's
// local defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "http://localhost:9090/api/employees",
		HealthURL:       "http://localhost:9090/actuator/health",
		Timeout:         20000, // 20 seconds
		DefaultPassword: "fun123",
	}
}

// Load loads configuration from the given path, or searches the current
// directory for a config file when path is empty. A .env file, when
// present, supplies backing store credentials.
func Load(path string) (*Config, error) {
	// Credentials may live in a .env file; missing is fine.
	_ = godotenv.Load()

	var cfg *Config
	var err error
	if path != "" {
		cfg, err = loadFromFile(path)
	} else {
		cfg, err = findAndLoad(".")
	}
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func findAndLoad(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadFromFile(configPath)
		}
	}
	return DefaultConfig(), nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	return cfg, nil
}

// applyEnv fills the database URL from environment credentials when the
// config did not set one explicitly.
func (c *Config) applyEnv() {
	if c.DatabaseURL != "" {
		return
	}
	user := os.Getenv(EnvDBUsername)
	pass := os.Getenv(EnvDBPassword)
	if user == "" {
		return
	}
	c.DatabaseURL = fmt.Sprintf("postgres://%s:%s@localhost:5432/employeeDB?sslmode=disable",
		url.QueryEscape(user), url.QueryEscape(pass))
}
