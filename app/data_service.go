package app

import (
	"sempower/domain/core"
	"sempower/domain/model"
	"sempower/ports"
)

// DataRequest describes a model to fit to observed data
type DataRequest struct {
	Name        string
	Constraint  model.Constraint
	Variables   []string
	Fixed       []float64
	GroupColumn string
}

// DesignFromData reads raw observations and summarizes each group into
// moments, so observed effects can be fed to Analyze or Plan.
func DesignFromData(reader ports.ObservationReader, estimator ports.MomentEstimator, req DataRequest) (model.Design, error) {
	if req.Name == "" {
		req.Name = "observed"
	}

	b := model.NewSpecBuilder(req.Name).Variables(req.Variables...)
	switch req.Constraint {
	case model.ConstraintMeanFixed:
		fixed := req.Fixed
		if len(fixed) == 0 {
			fixed = make([]float64, len(req.Variables))
		}
		b = b.MeansFixed(fixed...)
	case model.ConstraintMeansEqual:
		b = b.MeansEqual()
	case model.ConstraintGroupMeansEqual:
		if req.GroupColumn == "" {
			return model.Design{}, core.NewInvalidArgumentError("group", "%s needs a group column", req.Constraint)
		}
		b = b.GroupMeansEqual()
	default:
		return model.Design{}, core.NewInvalidArgumentError("constraint", "unknown constraint %q", req.Constraint)
	}
	spec, err := b.Build()
	if err != nil {
		return model.Design{}, err
	}

	observed, err := reader.ReadGroups(req.Variables, req.GroupColumn)
	if err != nil {
		return model.Design{}, err
	}
	groups := make([]model.GroupMoments, 0, len(observed))
	for _, og := range observed {
		g, err := estimator.Moments(og.Name, og.Columns)
		if err != nil {
			return model.Design{}, err
		}
		groups = append(groups, g)
	}

	if err := spec.Validate(groups); err != nil {
		return model.Design{}, err
	}
	return model.Design{Kind: "observed", Spec: spec, Groups: groups}, nil
}
