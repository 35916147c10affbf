package main

import (
	"os"

	"github.com/signalsfoundry/topocentric/internal/logging"
	"github.com/signalsfoundry/topocentric/internal/observability"
)

// Config gathers the ambient settings of one invocation. The conversion
// itself is driven only by positional arguments.
type Config struct {
	Log         logging.Config
	Tracing     observability.TracingConfig
	MetricsFile string
}

// ConfigFromEnv reads LOG_*, ECEF2SEZ_TRACING_*, ECEF2SEZ_OTLP_ENDPOINT and
// ECEF2SEZ_METRICS_FILE.
func ConfigFromEnv() Config {
	return Config{
		Log:         logging.ConfigFromEnv("warn"),
		Tracing:     observability.TracingConfigFromEnv(),
		MetricsFile: os.Getenv("ECEF2SEZ_METRICS_FILE"),
	}
}
