package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/victorlunam/schemacmp/internal/compare"
)

type EndpointConfig struct {
	Server   string `json:"server"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

func (e EndpointConfig) Endpoint() compare.Endpoint {
	return compare.Endpoint(e)
}

type Config struct {
	Source EndpointConfig `json:"source"`
	Target EndpointConfig `json:"target"`
}

const DefaultFileName = "schemacmp.config.json"

// Load reads the config file and applies environment overrides. A missing
// file is not an error when the environment supplies both endpoints; a .env
// file in the working directory is honored if present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	applyEnv(&cfg.Source, "SCHEMACMP_SOURCE")
	applyEnv(&cfg.Target, "SCHEMACMP_TARGET")
	applyDefaults(&cfg.Source)
	applyDefaults(&cfg.Target)

	return cfg, nil
}

// Validate checks that both endpoints name a database.
func (c Config) Validate() error {
	if c.Source.Database == "" {
		return fmt.Errorf("the source database name is required")
	}
	if c.Target.Database == "" {
		return fmt.Errorf("the target database name is required")
	}
	return nil
}

func applyEnv(e *EndpointConfig, prefix string) {
	setFromEnv(&e.Server, prefix+"_SERVER")
	setFromEnv(&e.Port, prefix+"_PORT")
	setFromEnv(&e.User, prefix+"_USER")
	setFromEnv(&e.Password, prefix+"_PASSWORD")
	setFromEnv(&e.Database, prefix+"_DATABASE")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(e *EndpointConfig) {
	if e.Server == "" {
		e.Server = "localhost"
	}
	if e.Port == "" {
		e.Port = "1433"
	}
}
