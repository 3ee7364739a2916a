package app

import (
	"context"
	"fmt"
	"math"

	"sempower/domain/core"
	"sempower/domain/model"
	domainPower "sempower/domain/power"
	"sempower/internal"
	"sempower/internal/power"
	"sempower/ports"
)

// PowerService fits designs through a ModelFitter and converts the chi-square to power
type PowerService struct {
	fitter            ports.ModelFitter
	calc              *power.Calculator
	logger            *internal.Logger
	targetPower       float64
	maxPlanIterations int
}

// PowerServiceOptions holds planning defaults
type PowerServiceOptions struct {
	TargetPower       float64
	MaxPlanIterations int
}

// NewPowerService creates a power service
func NewPowerService(fitter ports.ModelFitter, calc *power.Calculator, logger *internal.Logger, opts PowerServiceOptions) *PowerService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	if opts.TargetPower == 0 {
		opts.TargetPower = power.DefaultTargetPower
	}
	if opts.MaxPlanIterations <= 0 {
		opts.MaxPlanIterations = 10000
	}
	return &PowerService{
		fitter:            fitter,
		calc:              calc,
		logger:            logger,
		targetPower:       opts.TargetPower,
		maxPlanIterations: opts.MaxPlanIterations,
	}
}

// Calculator exposes the underlying calculator
func (s *PowerService) Calculator() *power.Calculator {
	return s.calc
}

// Analyze fits the design at its current sample sizes and reports power.
// A nil alpha uses the calculator default.
func (s *PowerService) Analyze(ctx context.Context, design model.Design, alpha *float64) (*domainPower.Analysis, error) {
	fit, result, err := s.evaluate(ctx, design.Spec, design.Groups, s.calc.AlphaOrDefault(alpha))
	if err != nil {
		return nil, err
	}
	return &domainPower.Analysis{
		RunID:      core.NewRunID(),
		Model:      design.Spec.Name,
		Constraint: design.Spec.Constraint,
		DesignHash: model.Fingerprint(design.Spec, design.Groups),
		Sizes:      model.Sizes(design.Groups),
		Fit:        fit,
		Result:     result,
		CreatedAt:  core.Now(),
	}, nil
}

// Plan scales group sizes until the design reaches the target power. The
// first step uses the sample-size multiplier heuristic. If the refit falls
// short, sizes are rescaled once by the exact required ncp over the achieved
// ncp, then grown one observation per group until the refitted power reaches
// the target. Nil alpha or target use the configured defaults.
func (s *PowerService) Plan(ctx context.Context, design model.Design, alpha, target *float64) (*domainPower.Plan, error) {
	targetPower := s.targetPower
	if target != nil {
		targetPower = *target
	}
	if !(targetPower > 0 && targetPower < 1) {
		return nil, core.NewInvalidArgumentError("target_power", "must be in (0,1), got %v", targetPower)
	}

	fit, initial, err := s.evaluate(ctx, design.Spec, design.Groups, s.calc.AlphaOrDefault(alpha))
	if err != nil {
		return nil, err
	}

	plan := &domainPower.Plan{
		RunID:        core.NewRunID(),
		Model:        design.Spec.Name,
		DesignHash:   model.Fingerprint(design.Spec, design.Groups),
		Alpha:        initial.Query.Alpha,
		TargetPower:  targetPower,
		Initial:      initial,
		Multiplier:   1,
		InitialSizes: model.Sizes(design.Groups),
		PlannedSizes: model.Sizes(design.Groups),
		Achieved:     initial,
		CreatedAt:    core.Now(),
	}
	if initial.Power >= targetPower {
		s.logger.Info("plan %s: power %.4f already meets target %.2f", design.Spec.Name, initial.Power, targetPower)
		return plan, nil
	}
	if fit.Ncp() == 0 {
		return nil, fmt.Errorf("%w: %s has no effect under the alternative, power stays at alpha", core.ErrTargetUnreachable, design.Spec.Name)
	}

	multiplier, err := power.SampleSizeMultiplier(fit.Ncp(), targetPower, fit.DegreesOfFreedom)
	if err != nil {
		return nil, err
	}
	plan.Multiplier = multiplier

	sizes := make([]int, len(design.Groups))
	for i, g := range design.Groups {
		sizes[i] = int(math.Ceil(float64(g.N) * multiplier))
		if sizes[i] < g.N {
			sizes[i] = g.N
		}
	}
	s.logger.Debug("plan %s: ncp=%.4f multiplier=%.4f sizes %v -> %v", design.Spec.Name, fit.Ncp(), multiplier, plan.InitialSizes, sizes)

	rescaled := false
	for iter := 1; iter <= s.maxPlanIterations; iter++ {
		groups, err := model.Resize(design.Groups, sizes)
		if err != nil {
			return nil, err
		}
		refit, achieved, err := s.evaluate(ctx, design.Spec, groups, plan.Alpha)
		if err != nil {
			return nil, err
		}
		if achieved.Power >= targetPower {
			plan.PlannedSizes = sizes
			plan.Achieved = achieved
			plan.Iterations = iter
			s.logger.Info("plan %s: sizes %v reach power %.4f after %d fits", design.Spec.Name, sizes, achieved.Power, iter)
			return plan, nil
		}

		// One exact correction, then single steps
		if !rescaled && refit.Ncp() > 0 {
			rescaled = true
			required, err := power.RequiredNcp(targetPower, refit.DegreesOfFreedom, plan.Alpha)
			if err != nil {
				return nil, err
			}
			if factor := required / refit.Ncp(); factor > 1 {
				for i := range sizes {
					sizes[i] = int(math.Ceil(float64(sizes[i]) * factor))
				}
				s.logger.Debug("plan %s: ncp %.4f short of %.4f, rescaled sizes to %v", design.Spec.Name, refit.Ncp(), required, sizes)
				continue
			}
		}
		for i := range sizes {
			sizes[i]++
		}
	}

	return nil, fmt.Errorf("%w: %s after %d refits (last sizes %v)", core.ErrTargetUnreachable, design.Spec.Name, s.maxPlanIterations, sizes)
}

func (s *PowerService) evaluate(ctx context.Context, spec model.Spec, groups []model.GroupMoments, alpha float64) (domainPower.FitResult, domainPower.PowerResult, error) {
	if err := ctx.Err(); err != nil {
		return domainPower.FitResult{}, domainPower.PowerResult{}, err
	}
	fit, err := s.fitter.Fit(ctx, spec, groups)
	if err != nil {
		return domainPower.FitResult{}, domainPower.PowerResult{}, fmt.Errorf("fit %s: %w", spec.Name, err)
	}
	if err := fit.Validate(); err != nil {
		return domainPower.FitResult{}, domainPower.PowerResult{}, fmt.Errorf("fit %s (chi-square=%v, df=%d): %w", spec.Name, fit.ChiSquare, fit.DegreesOfFreedom, err)
	}
	result, err := s.calc.FromFit(fit, alpha)
	if err != nil {
		return domainPower.FitResult{}, domainPower.PowerResult{}, err
	}
	return fit, result, nil
}
