package ports

import (
	"context"

	"sempower/domain/model"
	"sempower/domain/power"
)

// ModelFitter fits a constrained moment-structure model to summary statistics.
// Implementations wrap an SEM engine; a failed or non-finite fit is reported
// as core.ErrUpstreamFit and is not retried by callers.
type ModelFitter interface {
	Fit(ctx context.Context, spec model.Spec, groups []model.GroupMoments) (power.FitResult, error)
}

// MomentEstimator summarizes the raw columns of one group into moments
type MomentEstimator interface {
	Moments(name string, columns [][]float64) (model.GroupMoments, error)
}

// ObservationReader loads raw observations grouped by an optional group column
type ObservationReader interface {
	// ReadGroups returns, per group name, one column slice per requested variable
	ReadGroups(variables []string, groupColumn string) ([]ObservationGroup, error)
}

// ObservationGroup holds the raw columns of one group
type ObservationGroup struct {
	Name    string
	Columns [][]float64
}
