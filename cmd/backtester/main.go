// main.go
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"swarmbt/internal"
	"swarmbt/internal/app/backtester"
	"swarmbt/internal/backtest"
)

var (
	configPath string
	dataPath   string
	outputPath string
	seed       int64
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "backtester",
		Short: "Deterministic multi-asset signal and portfolio backtester",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "return matrix file (.json or .csv); synthetic data when empty")
	root.PersistentFlags().Int64Var(&seed, "seed", 0, "override RNG seed (0 keeps the config value)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [variant]",
		Short: "Run a single backtest variant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant := backtest.VariantHybrid
			if len(args) == 1 {
				variant = backtest.Variant(args[0])
			}
			cfg, matrix, logger, err := setup()
			if err != nil {
				return err
			}
			runner := backtester.NewVariantRunner(cfg, nil, logger)
			res, err := runner.RunVariant(matrix, variant)
			if err != nil {
				return err
			}
			backtester.NewConsolePrinter().PrintComparison([]backtester.VariantResult{*res})
			return nil
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Run all configured variants and print a comparison table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, matrix, logger, err := setup()
			if err != nil {
				return err
			}
			runner := backtester.NewVariantRunner(cfg, backtester.NewConsolePrinter(), logger)
			if _, err := runner.RunAllVariants(matrix); err != nil {
				return err
			}
			if outputPath != "" {
				traces, err := runner.RunTraces(matrix)
				if err != nil {
					return err
				}
				return backtester.NewFileSaver().SaveResults(traces, outputPath)
			}
			return nil
		},
	}
	compareCmd.Flags().StringVarP(&outputPath, "output", "o", "", "save full traces to this JSON file")

	root.AddCommand(runCmd, compareCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (backtester.Config, *internal.ReturnMatrix, zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	cfg, err := backtester.LoadConfig(configPath)
	if err != nil {
		return cfg, nil, logger, err
	}
	if seed != 0 {
		cfg.Seed = seed
	}

	var matrix *internal.ReturnMatrix
	if dataPath != "" {
		matrix, _, err = backtester.LoadReturns(dataPath)
		if err != nil {
			return cfg, nil, logger, err
		}
	} else {
		logger.Info().Msg("no data file given, using a synthetic 5-asset universe")
		matrix = backtester.SyntheticReturns(5, 252, cfg.Seed)
	}
	return cfg, matrix, logger, nil
}
