package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gozunis/adapters/excel"
	"gozunis/app"
	"gozunis/domain/core"
	"gozunis/domain/integration"
	"gozunis/domain/run"
	"gozunis/internal/config"
	"gozunis/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gozunis-cli",
		Short: "Adaptive importance-sampling integration on the unit hypercube",
	}

	rootCmd.AddCommand(
		newIntegrateCmd(),
		newBenchmarkCmd(),
		newExportCmd(),
		newPoolCmd(),
		newBatchCmd(),
		newIntegrandsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads .env and the environment configuration and wires the services
func setup(ctx context.Context) (*container.Container, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// planFlags are the integrator settings shared by integrate and benchmark.
// Zero values keep the environment defaults.
type planFlags struct {
	variant       string
	nIter         int
	nPoints       int
	nIterSurvey   int
	nIterRefine   int
	nPointsSurvey int
	nPointsRefine int
	useSurvey     bool
	timeout       time.Duration
	verbosity     string
	seed          int64
	bins          int
	learningRate  float64
	epochs        int
	floor         float64
}

func (p *planFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&p.variant, "variant", "posterior", "Survey strategy: posterior or flat")
	f.IntVar(&p.nIter, "n-iter", 0, "Iterations per phase")
	f.IntVar(&p.nPoints, "n-points", 0, "Points per iteration")
	f.IntVar(&p.nIterSurvey, "n-iter-survey", -1, "Survey iterations (overrides --n-iter)")
	f.IntVar(&p.nIterRefine, "n-iter-refine", -1, "Refine iterations (overrides --n-iter)")
	f.IntVar(&p.nPointsSurvey, "n-points-survey", 0, "Survey points per iteration (overrides --n-points)")
	f.IntVar(&p.nPointsRefine, "n-points-refine", 0, "Refine points per iteration (overrides --n-points)")
	f.BoolVar(&p.useSurvey, "use-survey", false, "Pool survey iterations into the result")
	f.DurationVar(&p.timeout, "timeout", 0, "Wall-clock budget; the run stops between iterations when it elapses")
	f.StringVar(&p.verbosity, "verbosity", "", "error|warn|info|debug|trace")
	f.Int64Var(&p.seed, "seed", 0, "Base seed (0 keeps ZUNIS_SEED)")
	f.IntVar(&p.bins, "bins", 0, "Histogram bins per dimension")
	f.Float64Var(&p.learningRate, "learning-rate", 0, "Histogram learning rate")
	f.IntVar(&p.epochs, "epochs", 0, "Histogram epochs per survey iteration")
	f.Float64Var(&p.floor, "floor", 0, "Uniform mass mixed into every marginal")
}

func (p *planFlags) apply(c *container.Container, cmd *cobra.Command) (*integration.Config, *int64, error) {
	cfg := c.Config.IntegrationConfig(0)
	if p.nIter > 0 {
		cfg.NIter = p.nIter
	}
	if p.nPoints > 0 {
		cfg.NPoints = p.nPoints
	}
	if p.nIterSurvey >= 0 {
		cfg.NIterSurvey = integration.Int(p.nIterSurvey)
	}
	if p.nIterRefine >= 0 {
		cfg.NIterRefine = integration.Int(p.nIterRefine)
	}
	if p.nPointsSurvey > 0 {
		cfg.NPointsSurvey = integration.Int(p.nPointsSurvey)
	}
	if p.nPointsRefine > 0 {
		cfg.NPointsRefine = integration.Int(p.nPointsRefine)
	}
	if cmd.Flags().Changed("use-survey") {
		cfg.UseSurvey = p.useSurvey
	}
	if p.timeout > 0 {
		cfg.Timeout = p.timeout
	}
	if p.verbosity != "" {
		cfg.Verbosity = p.verbosity
	}

	hist := &c.Config.Posterior
	if p.bins > 0 {
		hist.Bins = p.bins
	}
	if p.learningRate > 0 {
		hist.LearningRate = p.learningRate
	}
	if p.epochs > 0 {
		hist.Epochs = p.epochs
	}
	if p.floor > 0 {
		hist.Floor = p.floor
	}
	if err := hist.Validate(); err != nil {
		return nil, nil, err
	}

	var seed *int64
	if p.seed != 0 {
		seed = &p.seed
	}
	return &cfg, seed, nil
}

func newIntegrateCmd() *cobra.Command {
	var plan planFlags
	var dims int
	var params map[string]string
	var xlsxOut, jsonOut string

	cmd := &cobra.Command{
		Use:   "integrate [integrand]",
		Short: "Integrate a built-in integrand and record the run",
		Long: `Integrate a built-in integrand over the unit hypercube.

Example: gozunis-cli integrate camel --dims 4 --param s1=0.1 --param s2=0.1 --n-iter 10 --n-points 50000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := setup(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			parsed, err := parseParams(params)
			if err != nil {
				return err
			}
			cfg, seed, err := plan.apply(c, cmd)
			if err != nil {
				return err
			}
			posterior := c.Config.Posterior

			resp, runErr := c.Integrations.Run(ctx, app.RunRequest{
				Integrand: run.IntegrandSpec{Name: args[0], Dims: dims, Params: parsed},
				Variant:   plan.variant,
				Config:    cfg,
				Posterior: &posterior,
				Seed:      seed,
			})
			if resp == nil {
				return runErr
			}

			printRun(cmd, resp)
			if xlsxOut != "" {
				if err := excel.NewWriter().WriteRun(xlsxOut, resp.Run); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "History written to %s\n", xlsxOut)
			}
			if jsonOut != "" {
				if err := writeJSON(jsonOut, resp.Run); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Run written to %s\n", jsonOut)
			}
			return runErr
		},
	}

	plan.register(cmd)
	cmd.Flags().IntVar(&dims, "dims", 2, "Number of dimensions")
	cmd.Flags().StringToStringVar(&params, "param", nil, "Integrand parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "Write the run history to an xlsx workbook")
	cmd.Flags().StringVar(&jsonOut, "json", "", "Write the run as JSON (importable with gozunis-migrate)")

	return cmd
}

func newBenchmarkCmd() *cobra.Command {
	var plan planFlags
	var suite string
	var dims []int
	var widths []float64
	var cutoff float64
	var xlsxOut string

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare adaptive integration with flat Monte Carlo on camel integrands",
		Long: `Run the camel benchmark grid and compare every run with flat sampling at equal budget.

Example: gozunis-cli benchmark --dims 2,4,8 --widths 0.1,0.3 --n-points 20000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := setup(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			cfg, seed, err := plan.apply(c, cmd)
			if err != nil {
				return err
			}
			posterior := c.Config.Posterior

			report, err := c.Benchmarks.Camel(ctx, app.BenchmarkRequest{
				Suite:       suite,
				Dims:        dims,
				Widths:      widths,
				Variant:     plan.variant,
				Config:      cfg,
				Posterior:   &posterior,
				Seed:        seed,
				SigmaCutoff: cutoff,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-4s %-6s %-14s %-24s %-24s %-8s %-6s %s\n", "d", "s", "target", "adaptive", "flat", "pull", "match", "ratio")
			for _, r := range report.Rows {
				fmt.Fprintf(out, "%-4d %-6g %-14.6e %-24s %-24s %-8.2f %-6t %.2f\n",
					r.Dims, r.Params["s1"], r.Target,
					fmt.Sprintf("%.5e+/-%.1e", r.Value, r.Error),
					fmt.Sprintf("%.5e+/-%.1e", r.FlatValue, r.FlatError),
					r.Pull, r.Match, r.FlatVarianceRatio)
			}
			s := report.Summary
			fmt.Fprintf(out, "\n%d/%d matched, mean pull %.2f, max pull %.2f, median variance ratio %.2f\n",
				s.Matches, s.Rows, s.MeanPull, s.MaxPull, s.MedianVarianceRatio)

			if xlsxOut != "" {
				if err := excel.NewWriter().WriteBenchmarks(xlsxOut, report.Rows); err != nil {
					return err
				}
				fmt.Fprintf(out, "Benchmarks written to %s\n", xlsxOut)
			}
			return nil
		},
	}

	plan.register(cmd)
	cmd.Flags().StringVar(&suite, "suite", "camel", "Suite name stored with every row")
	cmd.Flags().IntSliceVar(&dims, "dims", []int{2, 4}, "Dimensions to benchmark")
	cmd.Flags().Float64SliceVar(&widths, "widths", []float64{0.1, 0.3}, "Camel hump widths")
	cmd.Flags().Float64Var(&cutoff, "sigma-cutoff", app.DefaultSigmaCutoff, "Pull below which a row matches")
	cmd.Flags().StringVar(&xlsxOut, "xlsx", "", "Write the rows to an xlsx workbook")

	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [run-id] [out.xlsx]",
		Short: "Export a stored run's history to an xlsx workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			c, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			stored, err := c.Integrations.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := excel.NewWriter().WriteRun(args[1], stored); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s written to %s\n", id, args[1])
			return nil
		},
	}
}

func newPoolCmd() *cobra.Command {
	var useSurvey bool

	cmd := &cobra.Command{
		Use:   "pool [history.xlsx|history.csv]",
		Short: "Re-pool an exported integration history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := excel.NewHistoryReader(args[0]).ReadHistory()
			if err != nil {
				return err
			}
			selected := integration.SelectRecords(records, useSurvey)
			value, stdErr, err := integration.Pool(selected)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pooled %d of %d records: %.5e +/- %.5e\n", len(selected), len(records), value, stdErr)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useSurvey, "use-survey", false, "Include survey records")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var jsonOut string

	cmd := &cobra.Command{
		Use:   "batch [requests.yaml|requests.json]",
		Short: "Run every integration and benchmark listed in a request file",
		Long: `Run a YAML or JSON request file with "runs" and "benchmarks" lists.
Each entry takes the same fields as the HTTP API request bodies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := app.LoadRequestFile(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := setup(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			result, runErr := app.RunBatch(ctx, c.Integrations, c.Benchmarks, file)
			out := cmd.OutOrStdout()
			for _, resp := range result.Runs {
				printRun(cmd, resp)
			}
			for _, report := range result.Benchmarks {
				s := report.Summary
				fmt.Fprintf(out, "Benchmark %s: %d/%d matched, mean pull %.2f\n", report.Suite, s.Matches, s.Rows, s.MeanPull)
			}
			if jsonOut != "" {
				if err := writeJSON(jsonOut, result); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&jsonOut, "json", "", "Write all responses as JSON")
	return cmd
}

func newIntegrandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "integrands",
		Short: "List the built-in integrands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range app.NewIntegrandFactory().Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func parseParams(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

func printRun(cmd *cobra.Command, resp *app.RunResponse) {
	out := cmd.OutOrStdout()
	r := resp.Run
	fmt.Fprintf(out, "Run %s (%s, fingerprint %s)\n", r.Manifest.RunID, r.Manifest.Variant, r.Manifest.Fingerprint.Fingerprint.Short())
	for _, rec := range r.History {
		fmt.Fprintf(out, "  %3d %-6s %.5e +/- %.3e (%d points)\n", rec.Step, rec.Phase, rec.Integral, rec.Error, rec.NPoints)
	}
	fmt.Fprintf(out, "Result: %.5e +/- %.5e\n", r.Value, r.Error)
	fmt.Fprintf(out, "Exact:  %.5e", resp.Target)
	if resp.Pull != nil {
		fmt.Fprintf(out, " (pull %.2f)", *resp.Pull)
	}
	fmt.Fprintln(out)
	if r.Interrupted {
		fmt.Fprintln(out, "Run was interrupted; the result pools the completed iterations only")
	}
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
