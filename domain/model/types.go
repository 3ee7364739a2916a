package model

import (
	"fmt"
	"math"
	"strings"

	"sempower/domain/core"
)

// Constraint names the hypothesis a constrained moment-structure fit encodes
type Constraint string

const (
	// ConstraintMeanFixed fixes every variable mean of a single group to Spec.Fixed (one-sample test)
	ConstraintMeanFixed Constraint = "mean_fixed"
	// ConstraintMeansEqual equates all variable means within a single group (paired / repeated measures)
	ConstraintMeansEqual Constraint = "means_equal"
	// ConstraintGroupMeansEqual equates the mean vectors of two or more groups (independent groups)
	ConstraintGroupMeansEqual Constraint = "group_means_equal"
)

// Spec is a structured description of the constrained model.
// Covariances are always free; only the mean structure is restricted.
type Spec struct {
	Name       string     `json:"name" yaml:"name"`
	Constraint Constraint `json:"constraint" yaml:"constraint"`
	Variables  []string   `json:"variables" yaml:"variables"`
	Fixed      []float64  `json:"fixed,omitempty" yaml:"fixed,omitempty"`
}

// GroupMoments holds per-group summary statistics. Cov is the unbiased
// (N-1 divisor) covariance matrix unless the fitter is told otherwise.
type GroupMoments struct {
	Name string      `json:"name" yaml:"name"`
	N    int         `json:"n" yaml:"n"`
	Mean []float64   `json:"mean" yaml:"mean"`
	Cov  [][]float64 `json:"cov" yaml:"cov"`
}

// Validate checks the spec against the groups it will be fitted to
func (s Spec) Validate(groups []GroupMoments) error {
	p := len(s.Variables)
	if p == 0 {
		return core.NewInvalidArgumentError("variables", "model %q declares no variables", s.Name)
	}
	for i, v := range s.Variables {
		if strings.TrimSpace(v) == "" {
			return core.NewInvalidArgumentError("variables", "variable %d of model %q has an empty name", i, s.Name)
		}
	}

	switch s.Constraint {
	case ConstraintMeanFixed:
		if len(groups) != 1 {
			return core.NewInvalidArgumentError("groups", "%s needs exactly one group, got %d", s.Constraint, len(groups))
		}
		if len(s.Fixed) != p {
			return core.NewInvalidArgumentError("fixed", "need %d fixed means, got %d", p, len(s.Fixed))
		}
	case ConstraintMeansEqual:
		if len(groups) != 1 {
			return core.NewInvalidArgumentError("groups", "%s needs exactly one group, got %d", s.Constraint, len(groups))
		}
		if p < 2 {
			return core.NewInvalidArgumentError("variables", "%s needs at least two variables", s.Constraint)
		}
	case ConstraintGroupMeansEqual:
		if len(groups) < 2 {
			return core.NewInvalidArgumentError("groups", "%s needs at least two groups, got %d", s.Constraint, len(groups))
		}
	default:
		return core.NewInvalidArgumentError("constraint", "unknown constraint %q", s.Constraint)
	}

	for _, g := range groups {
		if err := g.Validate(p); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks dimensions and finiteness of the moments for p variables
func (g GroupMoments) Validate(p int) error {
	if g.N < 2 {
		return core.NewInvalidArgumentError("n", "group %q needs at least 2 observations, got %d", g.Name, g.N)
	}
	if len(g.Mean) != p {
		return core.NewInvalidArgumentError("mean", "group %q has %d means for %d variables", g.Name, len(g.Mean), p)
	}
	if len(g.Cov) != p {
		return core.NewInvalidArgumentError("cov", "group %q covariance has %d rows for %d variables", g.Name, len(g.Cov), p)
	}
	for i, row := range g.Cov {
		if len(row) != p {
			return core.NewInvalidArgumentError("cov", "group %q covariance row %d has %d columns", g.Name, i, len(row))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.NewInvalidArgumentError("cov", "group %q covariance[%d][%d] is not finite", g.Name, i, j)
			}
			if math.Abs(v-g.Cov[j][i]) > 1e-9*math.Max(1, math.Abs(v)) {
				return core.NewInvalidArgumentError("cov", "group %q covariance is not symmetric at [%d][%d]", g.Name, i, j)
			}
		}
	}
	for i, m := range g.Mean {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			return core.NewInvalidArgumentError("mean", "group %q mean[%d] is not finite", g.Name, i)
		}
	}
	return nil
}

// TotalN returns the summed sample size across groups
func TotalN(groups []GroupMoments) int {
	total := 0
	for _, g := range groups {
		total += g.N
	}
	return total
}

// Sizes returns the per-group sample sizes in order
func Sizes(groups []GroupMoments) []int {
	sizes := make([]int, len(groups))
	for i, g := range groups {
		sizes[i] = g.N
	}
	return sizes
}

// Resize returns a copy of groups with new sample sizes; moments are shared
// read-only between the copies.
func Resize(groups []GroupMoments, sizes []int) ([]GroupMoments, error) {
	if len(sizes) != len(groups) {
		return nil, core.NewInvalidArgumentError("sizes", "got %d sizes for %d groups", len(sizes), len(groups))
	}
	out := make([]GroupMoments, len(groups))
	for i, g := range groups {
		if sizes[i] < 2 {
			return nil, core.NewInvalidArgumentError("sizes", "group %q size %d is below 2", g.Name, sizes[i])
		}
		g.N = sizes[i]
		out[i] = g
	}
	return out, nil
}

// Fingerprint identifies a spec and its population moments, ignoring sample sizes
func Fingerprint(spec Spec, groups []GroupMoments) core.Hash {
	parts := []interface{}{spec.Name, spec.Constraint, spec.Variables, spec.Fixed}
	for _, g := range groups {
		parts = append(parts, g.Name, g.Mean, g.Cov)
	}
	return core.ComputeHash(parts...)
}

func (c Constraint) String() string { return string(c) }

// SpecBuilder assembles a Spec step by step
type SpecBuilder struct {
	spec Spec
	err  error
}

// NewSpecBuilder starts a spec with the given model name
func NewSpecBuilder(name string) *SpecBuilder {
	return &SpecBuilder{spec: Spec{Name: name}}
}

// Variables sets the observed variables in column order
func (b *SpecBuilder) Variables(names ...string) *SpecBuilder {
	b.spec.Variables = append([]string(nil), names...)
	return b
}

// MeansEqual constrains all variable means of one group to be equal
func (b *SpecBuilder) MeansEqual() *SpecBuilder {
	return b.constrain(ConstraintMeansEqual)
}

// GroupMeansEqual constrains mean vectors to be equal across groups
func (b *SpecBuilder) GroupMeansEqual() *SpecBuilder {
	return b.constrain(ConstraintGroupMeansEqual)
}

// MeansFixed fixes the variable means to the given values
func (b *SpecBuilder) MeansFixed(values ...float64) *SpecBuilder {
	b.spec.Fixed = append([]float64(nil), values...)
	return b.constrain(ConstraintMeanFixed)
}

func (b *SpecBuilder) constrain(c Constraint) *SpecBuilder {
	if b.spec.Constraint != "" && b.spec.Constraint != c {
		b.err = fmt.Errorf("%w: constraint already set to %s", core.ErrInvalidArgument, b.spec.Constraint)
	}
	b.spec.Constraint = c
	return b
}

// Build returns the assembled spec
func (b *SpecBuilder) Build() (Spec, error) {
	if b.err != nil {
		return Spec{}, b.err
	}
	if b.spec.Constraint == "" {
		return Spec{}, core.NewInvalidArgumentError("constraint", "model %q has no constraint", b.spec.Name)
	}
	return b.spec, nil
}
