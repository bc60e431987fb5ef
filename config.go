package pomosync

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
	LogLevel    string `yaml:"log_level"`
}

// LoadConfig layers defaults, an optional YAML file (POMOSYNC_CONFIG_PATH),
// and POMOSYNC_* environment variables, highest last. A .env file is loaded
// first when present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		Addr:        ":8964",
		DatabaseURL: "pomosync.db",
		LogLevel:    "info",
	}

	if path := os.Getenv("POMOSYNC_CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if addr := os.Getenv("POMOSYNC_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if dbURL := os.Getenv("POMOSYNC_DB_PATH"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if level := os.Getenv("POMOSYNC_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}
