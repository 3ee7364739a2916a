package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sempower/internal"
	"sempower/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SEMPOWER_ALPHA", "SEMPOWER_TARGET_POWER", "SEMPOWER_RESCALE_COV",
		"SEMPOWER_MAX_PLAN_ITERATIONS", "SEMPOWER_SWEEP_WORKERS", "SEMPOWER_SWEEP_TIMEOUT",
		"PORT", "GIN_MODE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SEMPOWER_ALPHA", "0.01")
	t.Setenv("SEMPOWER_TARGET_POWER", "0.9")
	t.Setenv("SEMPOWER_RESCALE_COV", "false")
	t.Setenv("SEMPOWER_SWEEP_WORKERS", "8")
	t.Setenv("SEMPOWER_SWEEP_TIMEOUT", "30s")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Analysis.Alpha)
	assert.Equal(t, 0.9, cfg.Analysis.TargetPower)
	assert.False(t, cfg.Analysis.RescaleCovariance)
	assert.Equal(t, 8, cfg.Sweep.Workers)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Timeout)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, internal.LogLevelDebug, cfg.LogLevel)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SEMPOWER_ALPHA":         "1.5",
		"SEMPOWER_TARGET_POWER":  "0",
		"SEMPOWER_SWEEP_WORKERS": "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
