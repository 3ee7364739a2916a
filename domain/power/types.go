package power

import (
	"math"

	"sempower/domain/core"
	"sempower/domain/model"
)

// FitResult is the outcome of a constrained model fit. It is consumed
// immediately and never mutated.
type FitResult struct {
	ChiSquare        float64 `json:"chi_square"`
	DegreesOfFreedom int     `json:"df"`
}

// Validate reports non-finite or out-of-range fit output as an upstream failure
func (f FitResult) Validate() error {
	if math.IsNaN(f.ChiSquare) || math.IsInf(f.ChiSquare, 0) {
		return core.NewUpstreamFitError("fit", nil)
	}
	if f.ChiSquare < 0 {
		// Tiny negatives are rounding noise from a perfectly fitting model
		if f.ChiSquare > -1e-9 {
			return nil
		}
		return core.NewUpstreamFitError("fit", nil)
	}
	if f.DegreesOfFreedom < 1 {
		return core.NewUpstreamFitError("fit", nil)
	}
	return nil
}

// Ncp returns the chi-square as a non-centrality parameter, clamping rounding noise to zero
func (f FitResult) Ncp() float64 {
	if f.ChiSquare < 0 {
		return 0
	}
	return f.ChiSquare
}

// PowerQuery is a caller-built request for a single power computation
type PowerQuery struct {
	Alpha            float64 `json:"alpha"`
	DegreesOfFreedom int     `json:"df"`
	Ncp              float64 `json:"ncp"`
}

// PowerResult carries the query alongside its critical value and power
type PowerResult struct {
	Query         PowerQuery `json:"query"`
	CriticalValue float64    `json:"critical_value"`
	Power         float64    `json:"power"`
}

// Analysis is the result of fitting a design and converting its chi-square to power
type Analysis struct {
	RunID      core.RunID       `json:"run_id"`
	Model      string           `json:"model"`
	Constraint model.Constraint `json:"constraint"`
	DesignHash core.Hash        `json:"design_hash"`
	Sizes      []int            `json:"sizes"`
	Fit        FitResult        `json:"fit"`
	Result     PowerResult      `json:"result"`
	CreatedAt  core.Timestamp   `json:"created_at"`
}

// Plan records how group sizes were scaled to reach a target power
type Plan struct {
	RunID        core.RunID     `json:"run_id"`
	Model        string         `json:"model"`
	DesignHash   core.Hash      `json:"design_hash"`
	Alpha        float64        `json:"alpha"`
	TargetPower  float64        `json:"target_power"`
	Initial      PowerResult    `json:"initial"`
	Multiplier   float64        `json:"multiplier"`
	InitialSizes []int          `json:"initial_sizes"`
	PlannedSizes []int          `json:"planned_sizes"`
	Achieved     PowerResult    `json:"achieved"`
	Iterations   int            `json:"iterations"`
	CreatedAt    core.Timestamp `json:"created_at"`
}

// SweepPoint is one tuple of a parameter grid. A nil Alpha uses the
// configured default and is filled in on the result.
type SweepPoint struct {
	Params model.DesignParams `json:"params"`
	Alpha  *float64           `json:"alpha,omitempty"`
}

// SweepResult pairs a grid tuple with its fit and power
type SweepResult struct {
	Point  SweepPoint  `json:"point"`
	Fit    FitResult   `json:"fit"`
	Result PowerResult `json:"result"`
}

// Sweep is an ordered set of grid results
type Sweep struct {
	RunID     core.RunID     `json:"run_id"`
	Results   []SweepResult  `json:"results"`
	CreatedAt core.Timestamp `json:"created_at"`
}
