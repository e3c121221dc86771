package telemetry

import (
	"time"

	configPkg "github.com/bricks-cloud/byokllm/internal/config"
	"github.com/bricks-cloud/byokllm/internal/telemetry/stats"
)

type ProviderType string

const (
	PROVIDER_DATADOG ProviderType = "statsd"
)

type Provider interface {
	Incr(name string, tags []string, rate float64)
	Timing(name string, value time.Duration, tags []string, rate float64)
}

type Client struct {
	Provider Provider
}

var Singleton *Client

// Init wires the configured metrics provider. Leaving the provider
// unconfigured is valid; Incr and Timing become no-ops.
func Init(cfg *configPkg.Config) error {
	if cfg == nil || cfg.TelemetryProvider == "" {
		return nil
	}

	if cfg.TelemetryProvider == string(PROVIDER_DATADOG) {
		c, err := stats.InitializeClient(stats.Config{
			Enabled: cfg.StatsEnabled,
			Address: cfg.StatsAddress,
		})

		if err != nil {
			return err
		}

		Singleton = &Client{
			Provider: c,
		}
	}

	return nil
}

func Incr(name string, tags []string, rate float64) {
	if Singleton != nil {
		Singleton.Provider.Incr(name, tags, rate)
	}
}

func Timing(name string, value time.Duration, tags []string, rate float64) {
	if Singleton != nil {
		Singleton.Provider.Timing(name, value, tags, rate)
	}
}
