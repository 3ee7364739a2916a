package config

import (
	"os"
	"strconv"
	"time"

	"sempower/internal"
	"sempower/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Sweep    SweepConfig
	Server   ServerConfig
	LogLevel internal.LogLevel
}

// AnalysisConfig holds power-analysis defaults
type AnalysisConfig struct {
	Alpha             float64
	TargetPower       float64
	RescaleCovariance bool
	MaxPlanIterations int
}

// SweepConfig holds parameter-grid execution settings
type SweepConfig struct {
	Workers int
	Timeout time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Analysis: *loadAnalysisConfig(),
		Sweep:    *loadSweepConfig(),
		Server:   *loadServerConfig(),
		LogLevel: internal.ParseLogLevel(os.Getenv("LOG_LEVEL")),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration used when no environment is set
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Alpha:             0.05,
			TargetPower:       0.8,
			RescaleCovariance: true,
			MaxPlanIterations: 10000,
		},
		Sweep: SweepConfig{
			Workers: 4,
			Timeout: 5 * time.Minute,
		},
		Server: ServerConfig{
			Port:    "8080",
			GinMode: "release",
		},
		LogLevel: internal.LogLevelInfo,
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	def := Default().Analysis
	return &AnalysisConfig{
		Alpha:             getEnvFloatOrDefault("SEMPOWER_ALPHA", def.Alpha),
		TargetPower:       getEnvFloatOrDefault("SEMPOWER_TARGET_POWER", def.TargetPower),
		RescaleCovariance: getEnvBoolOrDefault("SEMPOWER_RESCALE_COV", def.RescaleCovariance),
		MaxPlanIterations: getEnvIntOrDefault("SEMPOWER_MAX_PLAN_ITERATIONS", def.MaxPlanIterations),
	}
}

func loadSweepConfig() *SweepConfig {
	def := Default().Sweep
	return &SweepConfig{
		Workers: getEnvIntOrDefault("SEMPOWER_SWEEP_WORKERS", def.Workers),
		Timeout: getEnvDurationOrDefault("SEMPOWER_SWEEP_TIMEOUT", def.Timeout),
	}
}

func loadServerConfig() *ServerConfig {
	def := Default().Server
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", def.Port),
		GinMode: getEnvOrDefault("GIN_MODE", def.GinMode),
	}
}

func validateConfig(config *Config) error {
	if !(config.Analysis.Alpha > 0 && config.Analysis.Alpha < 1) {
		return errors.ConfigInvalid("SEMPOWER_ALPHA must be in (0,1)")
	}
	if !(config.Analysis.TargetPower > 0 && config.Analysis.TargetPower < 1) {
		return errors.ConfigInvalid("SEMPOWER_TARGET_POWER must be in (0,1)")
	}
	if config.Analysis.MaxPlanIterations < 1 {
		return errors.ConfigInvalid("SEMPOWER_MAX_PLAN_ITERATIONS must be positive")
	}
	if config.Sweep.Workers < 1 {
		return errors.ConfigInvalid("SEMPOWER_SWEEP_WORKERS must be positive")
	}
	if config.Sweep.Timeout <= 0 {
		return errors.ConfigInvalid("SEMPOWER_SWEEP_TIMEOUT must be positive")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
