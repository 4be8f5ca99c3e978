package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPort overrides the listen port when set. A non-numeric value is a
	// startup failure, not a fallback to the default.
	EnvPort = "PORT"

	// EnvConfigPath names an optional yaml config file.
	EnvConfigPath = "CONFIG_PATH"

	DefaultPort = 8080
	DefaultHost = "0.0.0.0"
)

type Config struct {
	APIConf APIConf `yaml:"APIConf"`
}

type APIConf struct {
	Port int    `yaml:"Port" validate:"gte=1,lte=65535"`
	Host string `yaml:"Host" validate:"required"`
}

func Default() Config {
	return Config{
		APIConf: APIConf{
			Port: DefaultPort,
			Host: DefaultHost,
		},
	}
}

// Load resolves the configuration: compiled defaults, then the yaml file
// named by CONFIG_PATH (skipped when the variable is unset), then the PORT
// environment variable.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigPath); path != "" {
		yamlFile, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config file %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s value %q: %w", EnvPort, v, err)
		}
		cfg.APIConf.Port = port
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}
