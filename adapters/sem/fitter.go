// Package sem provides the closed-form moment-structure fitter used for the
// t-test family: mean constraints with a saturated covariance, where the ML
// likelihood-ratio chi-square has an analytic solution.
package sem

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"sempower/domain/core"
	"sempower/domain/model"
	"sempower/domain/power"
	"sempower/internal"
)

// MeanStructureFitter computes the ML chi-square of a mean-constrained model
// against the same model with free means. It is not a general SEM engine.
type MeanStructureFitter struct {
	rescale bool
	logger  *internal.Logger
}

// NewMeanStructureFitter creates a fitter. With rescale set, each group
// covariance is treated as unbiased and multiplied by (N-1)/N before fitting.
func NewMeanStructureFitter(rescale bool, logger *internal.Logger) *MeanStructureFitter {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MeanStructureFitter{rescale: rescale, logger: logger}
}

// Fit returns the chi-square and degrees of freedom of the constrained model
func (f *MeanStructureFitter) Fit(ctx context.Context, spec model.Spec, groups []model.GroupMoments) (power.FitResult, error) {
	if err := ctx.Err(); err != nil {
		return power.FitResult{}, err
	}
	if err := spec.Validate(groups); err != nil {
		return power.FitResult{}, err
	}

	var (
		chi float64
		df  int
		err error
	)
	switch spec.Constraint {
	case model.ConstraintMeanFixed:
		p := len(spec.Variables)
		chi, df, err = f.fitSingleGroup(groups[0], identity(p), spec.Fixed)
	case model.ConstraintMeansEqual:
		p := len(spec.Variables)
		chi, df, err = f.fitSingleGroup(groups[0], successiveDifferences(p), make([]float64, p-1))
	case model.ConstraintGroupMeansEqual:
		chi, df, err = f.fitGroups(groups)
	}
	if err != nil {
		return power.FitResult{}, core.NewUpstreamFitError(spec.Name, err)
	}
	if math.IsNaN(chi) || math.IsInf(chi, 0) {
		return power.FitResult{}, core.NewUpstreamFitError(spec.Name, fmt.Errorf("non-finite chi-square %v", chi))
	}

	f.logger.Debug("fit %s (%s): chi-square=%.4f df=%d N=%d", spec.Name, spec.Constraint, chi, df, model.TotalN(groups))
	return power.FitResult{ChiSquare: chi, DegreesOfFreedom: df}, nil
}

// fitSingleGroup handles H0: C mu = c with free covariance. The constrained
// ML discrepancy is ln(1 + q) with q = (Cm - c)' (C S C')^-1 (Cm - c).
func (f *MeanStructureFitter) fitSingleGroup(g model.GroupMoments, c *mat.Dense, target []float64) (float64, int, error) {
	k, p := c.Dims()
	s := f.covariance(g)

	var sChol mat.Cholesky
	if ok := sChol.Factorize(s); !ok {
		return 0, 0, fmt.Errorf("covariance of group %q is not positive definite", g.Name)
	}

	var diff mat.VecDense
	diff.MulVec(c, mat.NewVecDense(p, append([]float64(nil), g.Mean...)))
	diff.SubVec(&diff, mat.NewVecDense(k, append([]float64(nil), target...)))

	var cs, csc mat.Dense
	cs.Mul(c, s)
	csc.Mul(&cs, c.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(symmetrize(&csc)); !ok {
		return 0, 0, fmt.Errorf("constrained covariance of group %q is not positive definite", g.Name)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, &diff); err != nil {
		return 0, 0, fmt.Errorf("solve constrained system: %w", err)
	}
	q := mat.Dot(&diff, &x)

	return float64(g.N) * math.Log1p(q), k, nil
}

// fitGroups handles equal mean vectors across groups with a pooled covariance.
// chi-square = N ln(det T / det W), W the pooled within and T the total covariance.
func (f *MeanStructureFitter) fitGroups(groups []model.GroupMoments) (float64, int, error) {
	p := len(groups[0].Mean)
	total := float64(model.TotalN(groups))

	grand := make([]float64, p)
	within := mat.NewSymDense(p, nil)
	for _, g := range groups {
		n := float64(g.N)
		s := f.covariance(g)
		for i := 0; i < p; i++ {
			grand[i] += n * g.Mean[i] / total
			for j := i; j < p; j++ {
				within.SetSym(i, j, within.At(i, j)+n*s.At(i, j)/total)
			}
		}
	}

	between := mat.NewSymDense(p, nil)
	for _, g := range groups {
		n := float64(g.N)
		for i := 0; i < p; i++ {
			di := g.Mean[i] - grand[i]
			for j := i; j < p; j++ {
				dj := g.Mean[j] - grand[j]
				between.SetSym(i, j, between.At(i, j)+n*di*dj/total)
			}
		}
	}

	var totalCov mat.SymDense
	totalCov.AddSym(within, between)

	var wChol, tChol mat.Cholesky
	if ok := wChol.Factorize(within); !ok {
		return 0, 0, fmt.Errorf("pooled within-group covariance is not positive definite")
	}
	if ok := tChol.Factorize(&totalCov); !ok {
		return 0, 0, fmt.Errorf("total covariance is not positive definite")
	}

	chi := total * (tChol.LogDet() - wChol.LogDet())
	return chi, p * (len(groups) - 1), nil
}

func (f *MeanStructureFitter) covariance(g model.GroupMoments) *mat.SymDense {
	p := len(g.Cov)
	scale := 1.0
	if f.rescale {
		scale = float64(g.N-1) / float64(g.N)
	}
	s := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			s.SetSym(i, j, scale*g.Cov[i][j])
		}
	}
	return s
}

func identity(p int) *mat.Dense {
	c := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		c.Set(i, i, 1)
	}
	return c
}

// successiveDifferences builds the (p-1) x p contrast mu_i - mu_{i+1}
func successiveDifferences(p int) *mat.Dense {
	c := mat.NewDense(p-1, p, nil)
	for i := 0; i < p-1; i++ {
		c.Set(i, i, 1)
		c.Set(i, i+1, -1)
	}
	return c
}

func symmetrize(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return s
}
