package app

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sempower/adapters/sem"
	"sempower/domain/core"
	"sempower/domain/model"
	domainPower "sempower/domain/power"
	"sempower/internal/power"
	"sempower/ports"
)

// MockFitter is a testify mock of ports.ModelFitter
type MockFitter struct {
	mock.Mock
}

func (m *MockFitter) Fit(ctx context.Context, spec model.Spec, groups []model.GroupMoments) (domainPower.FitResult, error) {
	args := m.Called(ctx, spec, groups)
	return args.Get(0).(domainPower.FitResult), args.Error(1)
}

// linearFitter returns a chi-square proportional to the total sample size
type linearFitter struct {
	perObservation float64
	calls          int
}

func (f *linearFitter) Fit(ctx context.Context, spec model.Spec, groups []model.GroupMoments) (domainPower.FitResult, error) {
	f.calls++
	return domainPower.FitResult{ChiSquare: f.perObservation * float64(model.TotalN(groups)), DegreesOfFreedom: 1}, nil
}

func newService(t *testing.T, fitter ports.ModelFitter, opts PowerServiceOptions) *PowerService {
	t.Helper()
	calc, err := power.NewCalculator(power.DefaultAlpha, nil)
	require.NoError(t, err)
	return NewPowerService(fitter, calc, nil, opts)
}

func float(v float64) *float64 { return &v }

func mustDesign(t *testing.T) func(model.Design, error) model.Design {
	t.Helper()
	return func(d model.Design, err error) model.Design {
		t.Helper()
		require.NoError(t, err)
		return d
	}
}

func TestAnalyze_IndependentTTest(t *testing.T) {
	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	design := mustDesign(t)(model.IndependentTTest(0.5, 64, 64))

	analysis, err := svc.Analyze(context.Background(), design, nil)
	require.NoError(t, err)

	assert.Equal(t, "independent_t", analysis.Model)
	assert.Equal(t, []int{64, 64}, analysis.Sizes)
	assert.Equal(t, 0.05, analysis.Result.Query.Alpha)
	assert.InDelta(t, 0.80, analysis.Result.Power, 0.01)
	assert.False(t, analysis.DesignHash == "")
	_, err = uuid.Parse(analysis.RunID.String())
	assert.NoError(t, err)
}

func TestAnalyze_UpstreamFailureIsNotRetried(t *testing.T) {
	fitter := new(MockFitter)
	fitter.On("Fit", mock.Anything, mock.Anything, mock.Anything).
		Return(domainPower.FitResult{}, core.NewUpstreamFitError("paired_t", errors.New("did not converge")))

	svc := newService(t, fitter, PowerServiceOptions{})
	design := mustDesign(t)(model.PairedTTest(0.5, 0.5, 30))

	_, err := svc.Analyze(context.Background(), design, nil)
	require.Error(t, err)
	assert.True(t, core.IsUpstreamFitFailure(err))
	fitter.AssertNumberOfCalls(t, "Fit", 1)
}

func TestAnalyze_NonFiniteChiSquareIsUpstreamFailure(t *testing.T) {
	fitter := new(MockFitter)
	fitter.On("Fit", mock.Anything, mock.Anything, mock.Anything).
		Return(domainPower.FitResult{ChiSquare: math.Inf(1), DegreesOfFreedom: 1}, nil)

	svc := newService(t, fitter, PowerServiceOptions{})
	design := mustDesign(t)(model.OneSampleTTest(0.2, 30))

	_, err := svc.Analyze(context.Background(), design, float(0.05))
	assert.True(t, core.IsUpstreamFitFailure(err), "got %v", err)
	fitter.AssertExpectations(t)
}

func TestPlan_ReachesTargetWithRealFitter(t *testing.T) {
	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	design := mustDesign(t)(model.IndependentTTest(0.5, 20, 20))

	plan, err := svc.Plan(context.Background(), design, float(0.05), float(0.8))
	require.NoError(t, err)

	assert.Equal(t, []int{20, 20}, plan.InitialSizes)
	assert.Equal(t, []int{64, 64}, plan.PlannedSizes, "classical answer for d=0.5 is 64 per group")
	assert.InDelta(t, 3.09, plan.Multiplier, 0.01)
	assert.GreaterOrEqual(t, plan.Achieved.Power, 0.8)
	assert.Less(t, plan.Initial.Power, 0.8)
	assert.Equal(t, 2, plan.Iterations, "rule of thumb, then one exact rescale")
	assert.Equal(t, []int{20, 20}, model.Sizes(design.Groups), "planning must not mutate the design")
}

func TestPlan_SingleStepWhenNcpIsLinear(t *testing.T) {
	fitter := &linearFitter{perObservation: 0.1}
	svc := newService(t, fitter, PowerServiceOptions{})
	design := mustDesign(t)(model.OneSampleTTest(0.3, 20))

	plan, err := svc.Plan(context.Background(), design, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.8, plan.TargetPower, "service default target")
	assert.Equal(t, 1, plan.Iterations)
	assert.Equal(t, 2, fitter.calls)
	assert.GreaterOrEqual(t, plan.Achieved.Power, 0.8)
	assert.InDelta(t, 0.80, plan.Achieved.Power, 0.01)
}

func TestPlan_AlreadyPowered(t *testing.T) {
	svc := newService(t, &linearFitter{perObservation: 1}, PowerServiceOptions{})
	design := mustDesign(t)(model.OneSampleTTest(0.3, 50))

	plan, err := svc.Plan(context.Background(), design, float(0.05), float(0.8))
	require.NoError(t, err)
	assert.Equal(t, 1.0, plan.Multiplier)
	assert.Equal(t, 0, plan.Iterations)
	assert.Equal(t, plan.InitialSizes, plan.PlannedSizes)
}

func TestPlan_NoEffectIsUnreachable(t *testing.T) {
	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	design := mustDesign(t)(model.PairedTTest(0, 0.5, 30))

	_, err := svc.Plan(context.Background(), design, float(0.05), float(0.8))
	assert.ErrorIs(t, err, core.ErrTargetUnreachable)
}

func TestPlan_GivesUpAfterMaxIterations(t *testing.T) {
	fitter := new(MockFitter)
	fitter.On("Fit", mock.Anything, mock.Anything, mock.Anything).
		Return(domainPower.FitResult{ChiSquare: 2, DegreesOfFreedom: 1}, nil)

	svc := newService(t, fitter, PowerServiceOptions{MaxPlanIterations: 3})
	design := mustDesign(t)(model.OneSampleTTest(0.3, 20))

	_, err := svc.Plan(context.Background(), design, float(0.05), float(0.8))
	assert.ErrorIs(t, err, core.ErrTargetUnreachable)
	fitter.AssertNumberOfCalls(t, "Fit", 4)
}

func TestPlan_RejectsInvalidTarget(t *testing.T) {
	svc := newService(t, &linearFitter{perObservation: 0.1}, PowerServiceOptions{})
	design := mustDesign(t)(model.OneSampleTTest(0.3, 20))

	_, err := svc.Plan(context.Background(), design, float(0.05), float(1.2))
	assert.True(t, core.IsInvalidArgument(err))
}

func TestPlan_RescalesWhenRuleOfThumbUndershoots(t *testing.T) {
	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	design := mustDesign(t)(model.OneSampleTTest(0.03, 20))

	plan, err := svc.Plan(context.Background(), design, float(0.001), float(0.8))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, plan.Achieved.Power, 0.8)
	assert.InDelta(t, 18980, plan.PlannedSizes[0], 50)
	assert.LessOrEqual(t, plan.Iterations, 5)
}

func TestPlan_RejectsExplicitZeroTarget(t *testing.T) {
	svc := newService(t, &linearFitter{perObservation: 0.1}, PowerServiceOptions{})
	design := mustDesign(t)(model.OneSampleTTest(0.3, 20))

	_, err := svc.Plan(context.Background(), design, nil, float(0))
	assert.True(t, core.IsInvalidArgument(err))

	_, err = svc.Analyze(context.Background(), design, float(0))
	assert.True(t, core.IsInvalidArgument(err))
}
