package core

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the file form of a connection: driver, DSN and Options.
//
//	driver: mysql
//	dsn: ${DB_USER}:${DB_PASS}@tcp(localhost:3306)/app?parseTime=true
//	max_open_conns: 20
//	conn_max_lifetime: 30m
//	log_level: warn
//	slow_threshold: 200ms
type Config struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Options `yaml:",inline"`
}

// LoadConfig reads a YAML config file. Environment variables in the DSN are expanded.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config data.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Driver == "" {
		return nil, errors.New("config: driver is required")
	}
	cfg.DSN = os.ExpandEnv(cfg.DSN)
	return &cfg, nil
}

// Open opens the DB the config describes.
func (c *Config) Open() (*DB, error) {
	return Open(c.Driver, c.DSN, &c.Options)
}
