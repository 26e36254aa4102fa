package observability

import (
	"strings"

	appconfig "github.com/smallbiznis/propoza/internal/config"
)

// Config narrows application config to what the logging and metrics
// layers need.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	LogLevel    string
	LogFormat   string
}

func LoadConfig(cfg appconfig.Config) Config {
	return Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
		Version:     cfg.AppVersion,
		LogLevel:    cfg.LogLevel,
		LogFormat:   cfg.LogFormat,
	}
}

func (c Config) Debug() bool {
	return strings.EqualFold(c.Environment, "development")
}
