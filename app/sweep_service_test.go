package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sempower/adapters/sem"
	"sempower/domain/core"
	"sempower/domain/model"
)

func TestGrid_CartesianProduct(t *testing.T) {
	base := model.DesignParams{Kind: model.DesignPaired, EffectSize: 0.5, Correlation: 0.5, N: 30}
	points := Grid(base, float(0.05), nil, []float64{0.1, 0.5, 0.9}, []int{20, 40})

	require.Len(t, points, 6)
	assert.Equal(t, 0.1, points[0].Params.Correlation)
	assert.Equal(t, 20, points[0].Params.N)
	assert.Equal(t, 40, points[1].Params.N)
	assert.Equal(t, 0.9, points[5].Params.Correlation)
	for _, p := range points {
		assert.Equal(t, 0.5, p.Params.EffectSize, "empty axis keeps base value")
		require.NotNil(t, p.Alpha)
		assert.Equal(t, 0.05, *p.Alpha)
	}
}

func TestGrid_KeepsAllocationRatio(t *testing.T) {
	base := model.DesignParams{Kind: model.DesignIndependent, EffectSize: 0.5, N: 20, N2: 40}
	points := Grid(base, nil, nil, nil, []int{30})
	require.Len(t, points, 1)
	assert.Equal(t, 60, points[0].Params.N2)
}

func TestGrid_AllocationRatioRoundsAndKeepsMinimum(t *testing.T) {
	base := model.DesignParams{Kind: model.DesignIndependent, EffectSize: 0.5, N: 30, N2: 20}
	points := Grid(base, nil, nil, nil, []int{2, 5, 31})
	require.Len(t, points, 3)
	assert.Equal(t, 2, points[0].Params.N2, "1.33 would fall below the smallest group")
	assert.Equal(t, 3, points[1].Params.N2, "3.33 rounds to 3")
	assert.Equal(t, 21, points[2].Params.N2, "20.67 rounds up")
	assert.Nil(t, points[0].Alpha)

	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	sweep, err := NewSweepService(svc, 2, time.Minute, nil).Run(context.Background(), points)
	require.NoError(t, err)
	assert.Len(t, sweep.Results, 3)
}

func TestSweep_PairedCorrelationGrid(t *testing.T) {
	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	sweeper := NewSweepService(svc, 3, time.Minute, nil)

	base := model.DesignParams{Kind: model.DesignPaired, EffectSize: 0.4, N: 40}
	correlations := []float64{0, 0.2, 0.4, 0.6, 0.8}
	sweep, err := sweeper.Run(context.Background(), Grid(base, nil, nil, correlations, nil))
	require.NoError(t, err)
	require.Len(t, sweep.Results, len(correlations))

	for i, res := range sweep.Results {
		assert.Equal(t, correlations[i], res.Point.Params.Correlation, "results keep input order")
		require.NotNil(t, res.Point.Alpha)
		assert.Equal(t, 0.05, *res.Point.Alpha, "default alpha is filled in")
		if i > 0 {
			assert.Greater(t, res.Result.Power, sweep.Results[i-1].Result.Power)
		}
	}
}

func TestSweep_FirstErrorFailsRun(t *testing.T) {
	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	sweeper := NewSweepService(svc, 2, 0, nil)

	base := model.DesignParams{Kind: model.DesignPaired, EffectSize: 0.4, N: 40}
	_, err := sweeper.Run(context.Background(), Grid(base, float(0.05), nil, []float64{0.5, 1.5}, nil))
	require.Error(t, err)
	assert.True(t, core.IsInvalidArgument(err))

	_, err = sweeper.Run(context.Background(), nil)
	assert.True(t, core.IsInvalidArgument(err))
}

func TestSweep_CancelledContext(t *testing.T) {
	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	sweeper := NewSweepService(svc, 1, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	base := model.DesignParams{Kind: model.DesignOneSample, EffectSize: 0.4, N: 40}
	_, err := sweeper.Run(ctx, Grid(base, float(0.05), nil, nil, []int{10, 20, 30}))
	assert.ErrorIs(t, err, context.Canceled)
}
