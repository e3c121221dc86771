package config

import (
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	Host                   string        `env:"HOST" envDefault:"0.0.0.0"`
	Port                   string        `env:"PORT" envDefault:"8080"`
	OpenAiBaseUrl          string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	UpstreamRequestTimeout time.Duration `env:"UPSTREAM_REQUEST_TIMEOUT" envDefault:"0s"`
	TelemetryProvider      string        `env:"TELEMETRY_PROVIDER"`
	StatsEnabled           bool          `env:"STATS_ENABLED" envDefault:"false"`
	StatsAddress           string        `env:"STATS_ADDRESS" envDefault:"127.0.0.1:8125"`
	OpenTelemetryEnabled   bool          `env:"OPEN_TELEMETRY_ENABLED" envDefault:"false"`
	OpenTelemetryEndpoint  string        `env:"OPEN_TELEMETRY_ENDPOINT"`
}

func ParseEnvVariables() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
