package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ricesearch/irtools/internal/app"
	"github.com/ricesearch/irtools/internal/baseline"
	"github.com/ricesearch/irtools/internal/config"
	"github.com/ricesearch/irtools/internal/pkg/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(errors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "run-baselines",
		Short: "Run search baselines and score them",
		Long: `Runs the TREC-COVID round 4 BM25 baselines, or any plan file with the same
shape, and reports the metrics scraped from the evaluation tools.

Run 'run-baselines run' from the toolkit root, or set baseline.work_dir.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().String("plan", "", "plan file (defaults to the built-in round 4 plan)")
	rootCmd.PersistentFlags().Bool("builtin-eval", false, "use the in-process evaluation tools")
	rootCmd.PersistentFlags().Int("workers", 0, "concurrent evaluations (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	rootCmd.AddCommand(
		runCmd(),
		evaluateCmd(),
		planCmd(),
		versionCmd(),
	)

	return rootCmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the search sections, then evaluate every run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			plan, err := resolvePlan(cmd, cfg)
			if err != nil {
				return err
			}
			return execute(cmd, cfg, plan)
		},
	}
}

func evaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <run-file>...",
		Short: "Score existing run files without searching",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			plan := baseline.EvaluationPlan(cfg.Baseline, args, cfg.Baseline.BuiltinEval)
			return execute(cmd, cfg, plan)
		},
	}
}

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved plan as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			plan, err := resolvePlan(cmd, cfg)
			if err != nil {
				return err
			}
			data, err := plan.Marshal()
			if err != nil {
				return errors.InternalError("encoding plan", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("run-baselines %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("plan") {
		cfg.Baseline.PlanFile, _ = flags.GetString("plan")
	}
	if flags.Changed("builtin-eval") {
		cfg.Baseline.BuiltinEval, _ = flags.GetBool("builtin-eval")
	}
	if flags.Changed("workers") {
		cfg.Baseline.EvalWorkers, _ = flags.GetInt("workers")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolvePlan(_ *cobra.Command, cfg *config.Config) (*baseline.Plan, error) {
	if cfg.Baseline.PlanFile != "" {
		return baseline.LoadPlan(cfg.Baseline.PlanFile)
	}
	return baseline.DefaultPlan(cfg.Baseline, cfg.Baseline.BuiltinEval), nil
}

// execute runs plan from the configured working directory and prints the
// report table.
func execute(cmd *cobra.Command, cfg *config.Config, plan *baseline.Plan) error {
	if dir := cfg.Baseline.WorkDir; dir != "" && dir != "." {
		if err := os.Chdir(dir); err != nil {
			return errors.DirectoryNotFoundError(dir)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Start(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			rt.Log.Warn("Shutdown incomplete", "error", closeErr)
		}
	}()

	out := cmd.OutOrStdout()
	runner := baseline.NewRunner(
		baseline.RunnerConfig{Workers: cfg.Baseline.EvalWorkers, Stdout: out},
		baseline.NewExecExecutor(""),
		rt.Log,
		rt.Bus,
		rt.Metrics,
	)

	report, err := runner.Run(ctx, plan)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	return report.WriteTable(out)
}
