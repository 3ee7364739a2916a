// Package power converts the chi-square of a constrained fit into statistical
// power using the non-central chi-square distribution (Satorra-Saris).
package power

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"sempower/domain/core"
	domainPower "sempower/domain/power"
	"sempower/internal"
)

const (
	// DefaultAlpha is the conventional significance threshold
	DefaultAlpha = 0.05
	// DefaultTargetPower is the target the rule of thumb is calibrated for
	DefaultTargetPower = 0.8
	// RuleOfThumbQuantile: the ncp needed for 80% power is close to the
	// central chi-square quantile at this probability (calibrated for df=1).
	RuleOfThumbQuantile = 0.995

	bisectionIterations = 200
	maxRequiredNcp      = 1e7
)

// CriticalValue returns x such that P(X <= x) = 1 - alpha for a central chi-square with df degrees of freedom
func CriticalValue(alpha float64, df int) (float64, error) {
	if err := checkAlpha(alpha); err != nil {
		return 0, err
	}
	if err := checkDF(df); err != nil {
		return 0, err
	}
	return distuv.ChiSquared{K: float64(df)}.Quantile(1 - alpha), nil
}

// Power returns the probability that a chi-square test with df degrees of
// freedom rejects at level alpha when the true non-centrality is ncp.
// ncp = 0 returns alpha exactly.
func Power(ncp float64, df int, alpha float64) (float64, error) {
	if err := checkNcp("ncp", ncp); err != nil {
		return 0, err
	}
	crit, err := CriticalValue(alpha, df)
	if err != nil {
		return 0, err
	}
	if ncp == 0 {
		return alpha, nil
	}
	return NonCentralChiSquared{K: float64(df), Lambda: ncp}.Survival(crit), nil
}

// RequiredNcp solves Power(ncp, df, alpha) = targetPower by bisection.
// Targets at or below alpha need no non-centrality and return 0.
func RequiredNcp(targetPower float64, df int, alpha float64) (float64, error) {
	if err := checkProbability("target_power", targetPower); err != nil {
		return 0, err
	}
	crit, err := CriticalValue(alpha, df)
	if err != nil {
		return 0, err
	}
	if targetPower <= alpha {
		return 0, nil
	}

	dist := func(ncp float64) float64 {
		return NonCentralChiSquared{K: float64(df), Lambda: ncp}.Survival(crit)
	}

	lo, hi := 0.0, math.Max(1, crit)
	for dist(hi) < targetPower {
		lo = hi
		hi *= 2
		if hi > maxRequiredNcp {
			return 0, core.NewInvalidArgumentError("target_power", "%v is not reachable for df=%d", targetPower, df)
		}
	}
	for i := 0; i < bisectionIterations && hi-lo > 1e-10*hi; i++ {
		mid := (lo + hi) / 2
		if dist(mid) < targetPower {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, nil
}

// SampleSizeMultiplier approximates the factor m such that scaling the sample
// size (and so the ncp) by m gives targetPower. For the default 0.8 target it
// uses the rule of thumb desiredNcp = chi-square quantile at 0.995; any other
// target is solved exactly at the rule's 0.05 calibration alpha. The result is
// a heuristic: achieved power must be re-checked after rounding sizes.
func SampleSizeMultiplier(currentNcp, targetPower float64, df int) (float64, error) {
	if err := checkNcp("current_ncp", currentNcp); err != nil {
		return 0, err
	}
	if currentNcp == 0 {
		return 0, core.NewInvalidArgumentError("current_ncp", "must be positive to scale, got 0")
	}
	if err := checkProbability("target_power", targetPower); err != nil {
		return 0, err
	}
	if err := checkDF(df); err != nil {
		return 0, err
	}

	var desired float64
	if math.Abs(targetPower-DefaultTargetPower) < 1e-12 {
		desired = distuv.ChiSquared{K: float64(df)}.Quantile(RuleOfThumbQuantile)
	} else {
		var err error
		desired, err = RequiredNcp(targetPower, df, DefaultAlpha)
		if err != nil {
			return 0, err
		}
	}
	return desired / currentNcp, nil
}

// CurvePoint is the power at one total sample size
type CurvePoint struct {
	N     int     `json:"n"`
	Ncp   float64 `json:"ncp"`
	Power float64 `json:"power"`
}

// Curve evaluates power over total sample sizes, using ncp = ncpPerObservation * N
func Curve(ncpPerObservation float64, df int, alpha float64, sizes []int) ([]CurvePoint, error) {
	if err := checkNcp("ncp_per_observation", ncpPerObservation); err != nil {
		return nil, err
	}
	points := make([]CurvePoint, 0, len(sizes))
	for _, n := range sizes {
		if n < 1 {
			return nil, core.NewInvalidArgumentError("n", "sample size must be positive, got %d", n)
		}
		ncp := ncpPerObservation * float64(n)
		p, err := Power(ncp, df, alpha)
		if err != nil {
			return nil, err
		}
		points = append(points, CurvePoint{N: n, Ncp: ncp, Power: p})
	}
	return points, nil
}

// Calculator evaluates power queries with a configured default alpha
type Calculator struct {
	alpha  float64
	logger *internal.Logger
}

// NewCalculator creates a calculator; alpha is used when a query leaves it at zero
func NewCalculator(alpha float64, logger *internal.Logger) (*Calculator, error) {
	if err := checkAlpha(alpha); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Calculator{alpha: alpha, logger: logger}, nil
}

// Alpha returns the default significance threshold
func (c *Calculator) Alpha() float64 {
	return c.alpha
}

// AlphaOrDefault returns *alpha, or the configured default when alpha is nil.
// An explicit value is returned as is and validated by Evaluate.
func (c *Calculator) AlphaOrDefault(alpha *float64) float64 {
	if alpha == nil {
		return c.alpha
	}
	return *alpha
}

// Evaluate computes the critical value and power for a query. Every field
// is used as given.
func (c *Calculator) Evaluate(q domainPower.PowerQuery) (domainPower.PowerResult, error) {
	crit, err := CriticalValue(q.Alpha, q.DegreesOfFreedom)
	if err != nil {
		return domainPower.PowerResult{}, err
	}
	p, err := Power(q.Ncp, q.DegreesOfFreedom, q.Alpha)
	if err != nil {
		return domainPower.PowerResult{}, err
	}
	c.logger.Trace("power(ncp=%.4f, df=%d, alpha=%.4g) = %.6f (crit=%.4f)", q.Ncp, q.DegreesOfFreedom, q.Alpha, p, crit)
	return domainPower.PowerResult{Query: q, CriticalValue: crit, Power: p}, nil
}

// FromFit turns a validated fit into a power result
func (c *Calculator) FromFit(fit domainPower.FitResult, alpha float64) (domainPower.PowerResult, error) {
	if err := fit.Validate(); err != nil {
		return domainPower.PowerResult{}, err
	}
	return c.Evaluate(domainPower.PowerQuery{
		Alpha:            alpha,
		DegreesOfFreedom: fit.DegreesOfFreedom,
		Ncp:              fit.Ncp(),
	})
}

func checkAlpha(alpha float64) error {
	if !(alpha > 0 && alpha < 1) {
		return core.NewInvalidArgumentError("alpha", "must be in (0,1), got %v", alpha)
	}
	return nil
}

func checkProbability(field string, p float64) error {
	if !(p > 0 && p < 1) {
		return core.NewInvalidArgumentError(field, "must be in (0,1), got %v", p)
	}
	return nil
}

func checkDF(df int) error {
	if df < 1 {
		return core.NewInvalidArgumentError("df", "must be at least 1, got %d", df)
	}
	return nil
}

func checkNcp(field string, ncp float64) error {
	if math.IsNaN(ncp) || math.IsInf(ncp, 0) || ncp < 0 {
		return core.NewInvalidArgumentError(field, "must be finite and non-negative, got %v", ncp)
	}
	return nil
}
