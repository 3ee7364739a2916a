package sem

import (
	"math"

	"github.com/montanaflynn/stats"

	"sempower/domain/core"
	"sempower/domain/model"
	"sempower/ports"
)

// MomentEstimator is the ports.MomentEstimator backed by MomentsFromObservations
type MomentEstimator struct{}

var _ ports.MomentEstimator = MomentEstimator{}

func (MomentEstimator) Moments(name string, columns [][]float64) (model.GroupMoments, error) {
	return MomentsFromObservations(name, columns)
}

// MomentsFromObservations summarizes raw observations (one slice per variable)
// into a mean vector and an unbiased covariance matrix.
func MomentsFromObservations(name string, columns [][]float64) (model.GroupMoments, error) {
	p := len(columns)
	if p == 0 {
		return model.GroupMoments{}, core.NewInvalidArgumentError("columns", "group %q has no variables", name)
	}
	n := len(columns[0])
	if n < 2 {
		return model.GroupMoments{}, core.NewInvalidArgumentError("columns", "group %q needs at least 2 observations, got %d", name, n)
	}
	for i, col := range columns {
		if len(col) != n {
			return model.GroupMoments{}, core.NewInvalidArgumentError("columns", "group %q column %d has %d rows, expected %d", name, i, len(col), n)
		}
		for r, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return model.GroupMoments{}, core.NewInvalidArgumentError("columns", "group %q column %d row %d is not finite", name, i, r)
			}
		}
	}

	mean := make([]float64, p)
	for i, col := range columns {
		m, err := stats.Mean(col)
		if err != nil {
			return model.GroupMoments{}, core.NewInvalidArgumentError("columns", "mean of group %q column %d: %v", name, i, err)
		}
		mean[i] = m
	}

	cov := make([][]float64, p)
	for i := range cov {
		cov[i] = make([]float64, p)
	}
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			c, err := stats.Covariance(columns[i], columns[j])
			if err != nil {
				return model.GroupMoments{}, core.NewInvalidArgumentError("columns", "covariance of group %q columns %d,%d: %v", name, i, j, err)
			}
			cov[i][j] = c
			cov[j][i] = c
		}
	}

	return model.GroupMoments{Name: name, N: n, Mean: mean, Cov: cov}, nil
}
