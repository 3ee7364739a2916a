package model

import (
	"fmt"
	"math"

	"sempower/domain/core"
)

// DesignKind selects one of the canned t-test family designs
type DesignKind string

const (
	DesignOneSample   DesignKind = "one_sample"
	DesignPaired      DesignKind = "paired"
	DesignIndependent DesignKind = "independent"
	DesignRepeated    DesignKind = "repeated"
)

// DesignParams are the population parameters of a canned design.
// Effect sizes are standardized (Cohen's d, unit variance).
type DesignParams struct {
	Kind        DesignKind `json:"kind" yaml:"kind"`
	EffectSize  float64    `json:"effect_size,omitempty" yaml:"effect_size,omitempty"`
	Correlation float64    `json:"correlation,omitempty" yaml:"correlation,omitempty"`
	N           int        `json:"n" yaml:"n"`
	N2          int        `json:"n2,omitempty" yaml:"n2,omitempty"`
	Means       []float64  `json:"means,omitempty" yaml:"means,omitempty"`
	SD          float64    `json:"sd,omitempty" yaml:"sd,omitempty"`
}

// Design is a constrained model spec paired with the population moments it is fitted to
type Design struct {
	Kind   DesignKind     `json:"kind"`
	Spec   Spec           `json:"spec"`
	Groups []GroupMoments `json:"groups"`
}

// Build dispatches DesignParams to the matching builder
func (p DesignParams) Build() (Design, error) {
	switch p.Kind {
	case DesignOneSample:
		return OneSampleTTest(p.EffectSize, p.N)
	case DesignPaired:
		return PairedTTest(p.EffectSize, p.Correlation, p.N)
	case DesignIndependent:
		n2 := p.N2
		if n2 == 0 {
			n2 = p.N
		}
		return IndependentTTest(p.EffectSize, p.N, n2)
	case DesignRepeated:
		sd := p.SD
		if sd == 0 {
			sd = 1
		}
		return RepeatedMeasures(p.Means, sd, p.Correlation, p.N)
	default:
		return Design{}, core.NewInvalidArgumentError("kind", "unknown design kind %q", p.Kind)
	}
}

// OneSampleTTest tests H0: mu = 0 for a single unit-variance variable with true mean d
func OneSampleTTest(d float64, n int) (Design, error) {
	if err := checkEffect(d); err != nil {
		return Design{}, err
	}
	if err := checkN("n", n); err != nil {
		return Design{}, err
	}

	spec, err := NewSpecBuilder("one_sample_t").Variables("y").MeansFixed(0).Build()
	if err != nil {
		return Design{}, err
	}
	return Design{
		Kind: DesignOneSample,
		Spec: spec,
		Groups: []GroupMoments{{
			Name: "sample",
			N:    n,
			Mean: []float64{d},
			Cov:  [][]float64{{1}},
		}},
	}, nil
}

// PairedTTest tests equal means of two unit-variance measurements correlated r,
// with a mean difference of d.
func PairedTTest(d, r float64, n int) (Design, error) {
	design, err := RepeatedMeasures([]float64{0, d}, 1, r, n)
	if err != nil {
		return Design{}, err
	}
	design.Kind = DesignPaired
	design.Spec.Name = "paired_t"
	design.Spec.Variables = []string{"pre", "post"}
	return design, nil
}

// IndependentTTest tests equal means of two groups with unit variance and a mean difference of d
func IndependentTTest(d float64, n1, n2 int) (Design, error) {
	if err := checkEffect(d); err != nil {
		return Design{}, err
	}
	if err := checkN("n", n1); err != nil {
		return Design{}, err
	}
	if err := checkN("n2", n2); err != nil {
		return Design{}, err
	}

	spec, err := NewSpecBuilder("independent_t").Variables("y").GroupMeansEqual().Build()
	if err != nil {
		return Design{}, err
	}
	return Design{
		Kind: DesignIndependent,
		Spec: spec,
		Groups: []GroupMoments{
			{Name: "control", N: n1, Mean: []float64{0}, Cov: [][]float64{{1}}},
			{Name: "treatment", N: n2, Mean: []float64{d}, Cov: [][]float64{{1}}},
		},
	}, nil
}

// RepeatedMeasures tests equal means across k occasions with a compound-symmetric
// covariance (common sd, common correlation r).
func RepeatedMeasures(means []float64, sd, r float64, n int) (Design, error) {
	k := len(means)
	if k < 2 {
		return Design{}, core.NewInvalidArgumentError("means", "need at least 2 occasions, got %d", k)
	}
	for _, m := range means {
		if err := checkEffect(m); err != nil {
			return Design{}, err
		}
	}
	if !(sd > 0) || math.IsInf(sd, 0) {
		return Design{}, core.NewInvalidArgumentError("sd", "must be positive and finite, got %v", sd)
	}
	// Compound symmetry is positive definite only for r in (-1/(k-1), 1)
	lower := -1 / float64(k-1)
	if !(r > lower && r < 1) {
		return Design{}, core.NewInvalidArgumentError("correlation", "must be in (%.4g, 1) for %d occasions, got %v", lower, k, r)
	}
	if err := checkN("n", n); err != nil {
		return Design{}, err
	}

	vars := make([]string, k)
	cov := make([][]float64, k)
	for i := range cov {
		vars[i] = fmt.Sprintf("t%d", i+1)
		cov[i] = make([]float64, k)
		for j := range cov[i] {
			if i == j {
				cov[i][j] = sd * sd
			} else {
				cov[i][j] = r * sd * sd
			}
		}
	}

	spec, err := NewSpecBuilder("repeated_measures").Variables(vars...).MeansEqual().Build()
	if err != nil {
		return Design{}, err
	}
	return Design{
		Kind: DesignRepeated,
		Spec: spec,
		Groups: []GroupMoments{{
			Name: "subjects",
			N:    n,
			Mean: append([]float64(nil), means...),
			Cov:  cov,
		}},
	}, nil
}

func checkEffect(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return core.NewInvalidArgumentError("effect_size", "must be finite, got %v", d)
	}
	return nil
}

func checkN(field string, n int) error {
	if n < 2 {
		return core.NewInvalidArgumentError(field, "sample size must be at least 2, got %d", n)
	}
	return nil
}
