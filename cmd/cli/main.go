package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sempower/adapters/report"
	"sempower/internal/config"
	"sempower/internal/container"
)

func main() {
	// A missing .env is fine; the environment still applies
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	format string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "sempower",
		Short:         "Statistical power from the non-centrality of constrained SEM fits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.format, "format", "json", "Output format: json|markdown|html")

	rootCmd.AddCommand(
		newCriticalCmd(opts),
		newPowerCmd(opts),
		newMultiplierCmd(opts),
		newRequiredNcpCmd(opts),
		newCurveCmd(opts),
		newAnalyzeCmd(opts),
		newPlanCmd(opts),
		newSweepCmd(opts),
		newDataCmd(opts),
		newServeCmd(),
	)
	return rootCmd
}

func (o *rootOptions) write(cmd *cobra.Command, v interface{}) error {
	format, err := report.ParseFormat(o.format)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), format, v)
}

func loadContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}
