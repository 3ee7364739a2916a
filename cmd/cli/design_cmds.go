package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sempower/adapters/designfile"
	"sempower/adapters/excel"
	"sempower/app"
	"sempower/domain/core"
	"sempower/domain/model"
	"sempower/internal/api"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [design.yaml]",
		Short: "Fit a design and report its power",
		Long: `Fit the constrained model of a design file to its population moments and
convert the chi-square to power.

Example: sempower analyze examples/paired.yaml --format markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args[0])
		},
	}
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *rootOptions, path string) error {
	doc, err := designfile.Load(path)
	if err != nil {
		return err
	}
	design, err := doc.Resolve()
	if err != nil {
		return err
	}
	c, err := loadContainer()
	if err != nil {
		return err
	}
	analysis, err := c.PowerService.Analyze(cmd.Context(), design, doc.Alpha)
	if err != nil {
		return err
	}
	return opts.write(cmd, analysis)
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var target float64

	cmd := &cobra.Command{
		Use:   "plan [design.yaml]",
		Short: "Find group sizes that reach a target power",
		Long: `Scale the group sizes of a design with the sample-size multiplier, then
refit and grow the groups until the target power is reached.

Example: sempower plan examples/independent.yaml --target 0.9`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := designfile.Load(args[0])
			if err != nil {
				return err
			}
			design, err := doc.Resolve()
			if err != nil {
				return err
			}
			targetPower := doc.TargetPower
			if t := optionalFloat(cmd, "target", target); t != nil {
				targetPower = t
			}
			c, err := loadContainer()
			if err != nil {
				return err
			}
			plan, err := c.PowerService.Plan(cmd.Context(), design, doc.Alpha, targetPower)
			if err != nil {
				return err
			}
			return opts.write(cmd, plan)
		},
	}

	cmd.Flags().Float64Var(&target, "target", 0, "Target power (default from the design file or SEMPOWER_TARGET_POWER)")
	return cmd
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	var (
		kind         string
		alpha        float64
		n2           int
		effectSizes  []float64
		correlations []float64
		sizes        []int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate power over a grid of design parameters",
		Long: `Evaluate every combination of effect size, correlation and sample size for
one design kind. Points run concurrently (SEMPOWER_SWEEP_WORKERS).

Example: sempower sweep --kind paired --effect-sizes 0.2,0.5 --correlations 0.3,0.6 --sizes 20,40,80 --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sizes) == 0 {
				return core.NewInvalidArgumentError("sizes", "at least one sample size is required")
			}
			base := model.DesignParams{Kind: model.DesignKind(kind), N: sizes[0], N2: n2}
			points := app.Grid(base, optionalFloat(cmd, "alpha", alpha), effectSizes, correlations, sizes)

			c, err := loadContainer()
			if err != nil {
				return err
			}
			sweep, err := c.SweepService.Run(cmd.Context(), points)
			if err != nil {
				return err
			}
			return opts.write(cmd, sweep)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(model.DesignPaired), "Design kind: one_sample|paired|independent|repeated")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Significance threshold (default from SEMPOWER_ALPHA)")
	cmd.Flags().IntVar(&n2, "n2", 0, "Second group size for independent designs at the first --sizes value; the ratio is kept")
	cmd.Flags().Float64SliceVar(&effectSizes, "effect-sizes", []float64{0.2, 0.5, 0.8}, "Standardized effect sizes")
	cmd.Flags().Float64SliceVar(&correlations, "correlations", []float64{0.5}, "Correlations between repeated measurements")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{20, 50, 100}, "Sample sizes (per group)")
	return cmd
}

func newDataCmd(opts *rootOptions) *cobra.Command {
	var (
		variables   []string
		fixed       []float64
		groupColumn string
		constraint  string
		alpha       float64
		plan        bool
	)

	cmd := &cobra.Command{
		Use:   "data [file.xlsx|file.csv]",
		Short: "Estimate power from observed data",
		Long: `Summarize raw observations into group moments, fit the constrained model
and report the power of a study with the same effect and sample size.

Example: sempower data pilot.csv --vars pre,post --constraint means_equal --plan`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			reader := excel.NewDataReader(args[0], c.Logger)
			design, err := app.DesignFromData(reader, c.Moments, app.DataRequest{
				Name:        strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])),
				Constraint:  model.Constraint(constraint),
				Variables:   variables,
				Fixed:       fixed,
				GroupColumn: groupColumn,
			})
			if err != nil {
				return err
			}
			if plan {
				p, err := c.PowerService.Plan(cmd.Context(), design, optionalFloat(cmd, "alpha", alpha), nil)
				if err != nil {
					return err
				}
				return opts.write(cmd, p)
			}
			analysis, err := c.PowerService.Analyze(cmd.Context(), design, optionalFloat(cmd, "alpha", alpha))
			if err != nil {
				return err
			}
			return opts.write(cmd, analysis)
		},
	}

	cmd.Flags().StringSliceVar(&variables, "vars", nil, "Variable columns")
	cmd.Flags().Float64SliceVar(&fixed, "fixed", nil, "Hypothesized means for mean_fixed (default 0)")
	cmd.Flags().StringVar(&groupColumn, "group", "", "Group column for group_means_equal")
	cmd.Flags().StringVar(&constraint, "constraint", string(model.ConstraintMeansEqual), "mean_fixed|means_equal|group_means_equal")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Significance threshold (default from SEMPOWER_ALPHA)")
	cmd.Flags().BoolVar(&plan, "plan", false, "Plan sample sizes for the target power instead of analyzing")
	_ = cmd.MarkFlagRequired("vars")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			gin.SetMode(c.Config.Server.GinMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.NewAPIServer(api.ServerOptions{}).Run(ctx, ":"+c.Config.Server.Port)
		},
	}
}
