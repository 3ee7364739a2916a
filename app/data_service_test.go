package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sempower/adapters/sem"
	"sempower/domain/core"
	"sempower/domain/model"
	"sempower/ports"
)

type MockReader struct {
	mock.Mock
}

func (m *MockReader) ReadGroups(variables []string, groupColumn string) ([]ports.ObservationGroup, error) {
	args := m.Called(variables, groupColumn)
	if groups, ok := args.Get(0).([]ports.ObservationGroup); ok {
		return groups, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestDesignFromData_Paired(t *testing.T) {
	reader := new(MockReader)
	reader.On("ReadGroups", []string{"pre", "post"}, "").Return([]ports.ObservationGroup{{
		Name: "all",
		Columns: [][]float64{
			{1, 2, 3, 4, 5, 6},
			{2, 2, 4, 5, 7, 7},
		},
	}}, nil)

	design, err := DesignFromData(reader, sem.MomentEstimator{}, DataRequest{Constraint: model.ConstraintMeansEqual, Variables: []string{"pre", "post"}})
	require.NoError(t, err)
	assert.Equal(t, "observed", design.Spec.Name)
	require.Len(t, design.Groups, 1)
	assert.Equal(t, 6, design.Groups[0].N)
	assert.InDeltaSlice(t, []float64{3.5, 4.5}, design.Groups[0].Mean, 1e-12)

	svc := newService(t, sem.NewMeanStructureFitter(true, nil), PowerServiceOptions{})
	analysis, err := svc.Analyze(context.Background(), design, float(0.05))
	require.NoError(t, err)
	assert.Greater(t, analysis.Fit.ChiSquare, 0.0)
	reader.AssertExpectations(t)
}

type MockEstimator struct {
	mock.Mock
}

func (m *MockEstimator) Moments(name string, columns [][]float64) (model.GroupMoments, error) {
	args := m.Called(name, columns)
	return args.Get(0).(model.GroupMoments), args.Error(1)
}

func TestDesignFromData_UsesEstimatorPerGroup(t *testing.T) {
	reader := new(MockReader)
	reader.On("ReadGroups", []string{"y"}, "arm").Return([]ports.ObservationGroup{
		{Name: "control", Columns: [][]float64{{1, 2, 3}}},
		{Name: "treated", Columns: [][]float64{{2, 3, 4}}},
	}, nil)

	estimator := new(MockEstimator)
	estimator.On("Moments", "control", mock.Anything).Return(model.GroupMoments{
		Name: "control", N: 3, Mean: []float64{2}, Cov: [][]float64{{1}},
	}, nil)
	estimator.On("Moments", "treated", mock.Anything).Return(model.GroupMoments{
		Name: "treated", N: 3, Mean: []float64{3}, Cov: [][]float64{{1}},
	}, nil)

	design, err := DesignFromData(reader, estimator, DataRequest{Constraint: model.ConstraintGroupMeansEqual, Variables: []string{"y"}, GroupColumn: "arm"})
	require.NoError(t, err)
	require.Len(t, design.Groups, 2)
	assert.Equal(t, []float64{3}, design.Groups[1].Mean)
	estimator.AssertExpectations(t)
}

func TestDesignFromData_EstimatorErrorStops(t *testing.T) {
	reader := new(MockReader)
	reader.On("ReadGroups", []string{"y"}, "").Return([]ports.ObservationGroup{
		{Name: "all", Columns: [][]float64{{1}}},
	}, nil)

	estimator := new(MockEstimator)
	estimator.On("Moments", "all", mock.Anything).Return(model.GroupMoments{},
		core.NewInvalidArgumentError("observations", "group %q needs at least 2 rows", "all"))

	_, err := DesignFromData(reader, estimator, DataRequest{Constraint: model.ConstraintMeanFixed, Variables: []string{"y"}})
	assert.True(t, core.IsInvalidArgument(err))
}

func TestDesignFromData_GroupsNeedColumn(t *testing.T) {
	reader := new(MockReader)
	_, err := DesignFromData(reader, sem.MomentEstimator{}, DataRequest{Constraint: model.ConstraintGroupMeansEqual, Variables: []string{"y"}})
	assert.True(t, core.IsInvalidArgument(err))
	reader.AssertNotCalled(t, "ReadGroups", mock.Anything, mock.Anything)
}

func TestDesignFromData_TooFewGroups(t *testing.T) {
	reader := new(MockReader)
	reader.On("ReadGroups", []string{"y"}, "arm").Return([]ports.ObservationGroup{
		{Name: "a", Columns: [][]float64{{1, 2, 3}}},
	}, nil)

	_, err := DesignFromData(reader, sem.MomentEstimator{}, DataRequest{Constraint: model.ConstraintGroupMeansEqual, Variables: []string{"y"}, GroupColumn: "arm"})
	assert.True(t, core.IsInvalidArgument(err))
}
