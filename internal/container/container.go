package container

import (
	"fmt"

	"sempower/adapters/sem"
	"sempower/app"
	"sempower/internal"
	"sempower/internal/api"
	"sempower/internal/config"
	"sempower/internal/power"
	"sempower/ports"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Fitting and calculation
	Fitter     ports.ModelFitter
	Moments    ports.MomentEstimator
	Calculator *power.Calculator

	// Services
	PowerService *app.PowerService
	SweepService *app.SweepService
}

// New creates a container wired from cfg
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(cfg.LogLevel),
	}

	if err := c.initCalculation(); err != nil {
		return nil, err
	}
	c.initServices()

	c.Logger.Debug("container initialized: alpha=%.4g target=%.2f rescale=%t workers=%d",
		cfg.Analysis.Alpha, cfg.Analysis.TargetPower, cfg.Analysis.RescaleCovariance, cfg.Sweep.Workers)
	return c, nil
}

func (c *Container) initCalculation() error {
	calc, err := power.NewCalculator(c.Config.Analysis.Alpha, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create calculator: %w", err)
	}
	c.Calculator = calc
	c.Fitter = sem.NewMeanStructureFitter(c.Config.Analysis.RescaleCovariance, c.Logger)
	c.Moments = sem.MomentEstimator{}
	return nil
}

func (c *Container) initServices() {
	c.PowerService = app.NewPowerService(c.Fitter, c.Calculator, c.Logger, app.PowerServiceOptions{
		TargetPower:       c.Config.Analysis.TargetPower,
		MaxPlanIterations: c.Config.Analysis.MaxPlanIterations,
	})
	c.SweepService = app.NewSweepService(c.PowerService, c.Config.Sweep.Workers, c.Config.Sweep.Timeout, c.Logger)
}

// NewAPIServer builds the HTTP server over the container's services
func (c *Container) NewAPIServer(opts api.ServerOptions) *api.Server {
	if opts.TargetPower == 0 {
		opts.TargetPower = c.Config.Analysis.TargetPower
	}
	return api.NewServer(c.PowerService, c.Logger, opts)
}
