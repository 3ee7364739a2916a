package main

import (
	"github.com/spf13/cobra"

	domainPower "sempower/domain/power"
	"sempower/internal/power"
)

func newCriticalCmd(opts *rootOptions) *cobra.Command {
	var alpha float64
	var df int

	cmd := &cobra.Command{
		Use:   "critical",
		Short: "Critical value of the central chi-square",
		Long: `Print the chi-square value exceeded with probability alpha under the null.

Example: sempower critical --alpha 0.05 --df 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			crit, err := power.CriticalValue(alpha, df)
			if err != nil {
				return err
			}
			return opts.write(cmd, map[string]interface{}{"alpha": alpha, "df": df, "critical_value": crit})
		},
	}

	cmd.Flags().Float64Var(&alpha, "alpha", power.DefaultAlpha, "Significance threshold")
	cmd.Flags().IntVar(&df, "df", 1, "Degrees of freedom")
	return cmd
}

func newPowerCmd(opts *rootOptions) *cobra.Command {
	var alpha, ncp float64
	var df int

	cmd := &cobra.Command{
		Use:   "power",
		Short: "Power for a non-centrality parameter",
		Long: `Compute power from the chi-square of a constrained fit, used as the
non-centrality parameter.

Example: sempower power --ncp 7.849 --df 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPower(cmd, opts, optionalFloat(cmd, "alpha", alpha), df, ncp)
		},
	}

	cmd.Flags().Float64Var(&ncp, "ncp", 0, "Non-centrality parameter (chi-square of the constrained fit)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Significance threshold (default from SEMPOWER_ALPHA)")
	cmd.Flags().IntVar(&df, "df", 1, "Degrees of freedom")
	return cmd
}

func runPower(cmd *cobra.Command, opts *rootOptions, alpha *float64, df int, ncp float64) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}
	result, err := c.Calculator.Evaluate(domainPower.PowerQuery{
		Alpha:            c.Calculator.AlphaOrDefault(alpha),
		DegreesOfFreedom: df,
		Ncp:              ncp,
	})
	if err != nil {
		return err
	}
	return opts.write(cmd, result)
}

func newMultiplierCmd(opts *rootOptions) *cobra.Command {
	var ncp, target float64
	var df int

	cmd := &cobra.Command{
		Use:   "multiplier",
		Short: "Sample-size multiplier to reach a target power",
		Long: `Estimate the factor by which every group size should be scaled so the
non-centrality reaches the value needed for the target power. This is a
heuristic; verify with 'sempower plan'.

Example: sempower multiplier --ncp 3.84 --df 1 --target 0.8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := power.SampleSizeMultiplier(ncp, target, df)
			if err != nil {
				return err
			}
			return opts.write(cmd, map[string]interface{}{"ncp": ncp, "target_power": target, "df": df, "multiplier": m})
		},
	}

	cmd.Flags().Float64Var(&ncp, "ncp", 0, "Current non-centrality parameter")
	cmd.Flags().Float64Var(&target, "target", power.DefaultTargetPower, "Target power")
	cmd.Flags().IntVar(&df, "df", 1, "Degrees of freedom")
	return cmd
}

func newRequiredNcpCmd(opts *rootOptions) *cobra.Command {
	var alpha, target float64
	var df int

	cmd := &cobra.Command{
		Use:   "required-ncp",
		Short: "Exact non-centrality needed for a target power",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ncp, err := power.RequiredNcp(target, df, alpha)
			if err != nil {
				return err
			}
			return opts.write(cmd, map[string]interface{}{"alpha": alpha, "target_power": target, "df": df, "ncp": ncp})
		},
	}

	cmd.Flags().Float64Var(&alpha, "alpha", power.DefaultAlpha, "Significance threshold")
	cmd.Flags().Float64Var(&target, "target", power.DefaultTargetPower, "Target power")
	cmd.Flags().IntVar(&df, "df", 1, "Degrees of freedom")
	return cmd
}

func newCurveCmd(opts *rootOptions) *cobra.Command {
	var alpha, perObs float64
	var df int
	var sizes []int

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Power over a range of total sample sizes",
		Long: `Tabulate power assuming the non-centrality grows linearly with N.

Example: sempower curve --ncp-per-obs 0.06 --sizes 50,100,150,200 --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := power.Curve(perObs, df, alpha, sizes)
			if err != nil {
				return err
			}
			return opts.write(cmd, points)
		},
	}

	cmd.Flags().Float64Var(&perObs, "ncp-per-obs", 0, "Non-centrality contributed by each observation")
	cmd.Flags().Float64Var(&alpha, "alpha", power.DefaultAlpha, "Significance threshold")
	cmd.Flags().IntVar(&df, "df", 1, "Degrees of freedom")
	cmd.Flags().IntSliceVar(&sizes, "sizes", []int{50, 100, 200, 400}, "Total sample sizes")
	return cmd
}

// optionalFloat returns a pointer to value when the flag was set, nil otherwise
func optionalFloat(cmd *cobra.Command, name string, value float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
