package testkit

import (
	"time"

	"sempower/adapters/sem"
	"sempower/app"
	"sempower/domain/model"
	"sempower/internal"
	"sempower/internal/power"
)

// TestKit wires the real fitter and services with default settings
type TestKit struct {
	Logger       *internal.Logger
	Calculator   *power.Calculator
	PowerService *app.PowerService
	SweepService *app.SweepService
}

// NewTestKit creates a kit at alpha 0.05 with covariance rescaling on
func NewTestKit() (*TestKit, error) {
	logger := internal.NewLogger(internal.LogLevelError)
	calc, err := power.NewCalculator(power.DefaultAlpha, logger)
	if err != nil {
		return nil, err
	}
	svc := app.NewPowerService(sem.NewMeanStructureFitter(true, logger), calc, logger, app.PowerServiceOptions{})
	return &TestKit{
		Logger:       logger,
		Calculator:   calc,
		PowerService: svc,
		SweepService: app.NewSweepService(svc, 2, time.Minute, logger),
	}, nil
}

// ReferenceCase is a design with its published two-sided t-test power at alpha 0.05
type ReferenceCase struct {
	Name   string
	Params model.DesignParams
	Power  float64
}

// ReferenceCases returns textbook power values the chi-square route must reproduce
func ReferenceCases() []ReferenceCase {
	return []ReferenceCase{
		{Name: "independent d=0.5 n=64+64", Params: model.DesignParams{Kind: model.DesignIndependent, EffectSize: 0.5, N: 64}, Power: 0.80},
		{Name: "independent d=0.8 n=26+26", Params: model.DesignParams{Kind: model.DesignIndependent, EffectSize: 0.8, N: 26}, Power: 0.807},
		{Name: "paired d=0.5 r=0.5 n=34", Params: model.DesignParams{Kind: model.DesignPaired, EffectSize: 0.5, Correlation: 0.5, N: 34}, Power: 0.797},
		{Name: "one sample d=0.5 n=34", Params: model.DesignParams{Kind: model.DesignOneSample, EffectSize: 0.5, N: 34}, Power: 0.797},
	}
}
