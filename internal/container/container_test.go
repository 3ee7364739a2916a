package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sempower/domain/model"
	"sempower/internal/api"
	"sempower/internal/config"
)

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_WiresServices(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Alpha = 0.01

	c, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, c.PowerService)
	require.NotNil(t, c.SweepService)
	require.NotNil(t, c.Moments)
	assert.Equal(t, 0.01, c.Calculator.Alpha())

	design, err := model.OneSampleTTest(0.5, 40)
	require.NoError(t, err)
	analysis, err := c.PowerService.Analyze(context.Background(), design, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.01, analysis.Result.Query.Alpha, "configured alpha is the default")

	assert.NotNil(t, c.NewAPIServer(api.ServerOptions{}).Handler())
}

func TestNew_InvalidAlpha(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.Alpha = 2
	_, err := New(cfg)
	assert.Error(t, err)
}
