package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"sempower/domain/core"
	"sempower/domain/model"
	domainPower "sempower/domain/power"
	"sempower/internal"
)

// minGroupSize is the smallest group a design builder accepts
const minGroupSize = 2

// SweepService evaluates independent grid points concurrently
type SweepService struct {
	power   *PowerService
	workers int
	timeout time.Duration
	logger  *internal.Logger
}

// NewSweepService creates a sweep service with a worker limit and overall timeout
func NewSweepService(powerService *PowerService, workers int, timeout time.Duration, logger *internal.Logger) *SweepService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SweepService{power: powerService, workers: workers, timeout: timeout, logger: logger}
}

// Run evaluates every point; results keep input order. The first failing
// point cancels the rest.
func (s *SweepService) Run(ctx context.Context, points []domainPower.SweepPoint) (*domainPower.Sweep, error) {
	if len(points) == 0 {
		return nil, core.NewInvalidArgumentError("points", "sweep has no grid points")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]domainPower.SweepResult, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, pt := range points {
		i, pt := i, pt
		g.Go(func() error {
			design, err := pt.Params.Build()
			if err != nil {
				return fmt.Errorf("point %d: %w", i, err)
			}
			analysis, err := s.power.Analyze(gctx, design, pt.Alpha)
			if err != nil {
				return fmt.Errorf("point %d: %w", i, err)
			}
			resolved := analysis.Result.Query.Alpha
			pt.Alpha = &resolved
			results[i] = domainPower.SweepResult{Point: pt, Fit: analysis.Fit, Result: analysis.Result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	s.logger.Info("sweep evaluated %d points with %d workers in %s", len(points), s.workers, time.Since(start).Round(time.Millisecond))
	return &domainPower.Sweep{RunID: core.NewRunID(), Results: results, CreatedAt: core.Now()}, nil
}

// Grid expands base parameters over effect sizes, correlations and sample
// sizes. An empty axis keeps the base value. A nil alpha uses the default.
func Grid(base model.DesignParams, alpha *float64, effectSizes, correlations []float64, sizes []int) []domainPower.SweepPoint {
	if len(effectSizes) == 0 {
		effectSizes = []float64{base.EffectSize}
	}
	if len(correlations) == 0 {
		correlations = []float64{base.Correlation}
	}
	if len(sizes) == 0 {
		sizes = []int{base.N}
	}

	points := make([]domainPower.SweepPoint, 0, len(effectSizes)*len(correlations)*len(sizes))
	for _, d := range effectSizes {
		for _, r := range correlations {
			for _, n := range sizes {
				p := base
				p.EffectSize = d
				p.Correlation = r
				p.N = n
				if base.N2 != 0 && base.N != 0 {
					// Keep the allocation ratio between groups
					p.N2 = int(math.Round(float64(n) * float64(base.N2) / float64(base.N)))
					if p.N2 < minGroupSize {
						p.N2 = minGroupSize
					}
				}
				if len(base.Means) > 0 {
					p.Means = append([]float64(nil), base.Means...)
				}
				pt := domainPower.SweepPoint{Params: p}
				if alpha != nil {
					a := *alpha
					pt.Alpha = &a
				}
				points = append(points, pt)
			}
		}
	}
	return points
}
