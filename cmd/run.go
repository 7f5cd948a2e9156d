package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ioctest/internal/checks"
	"ioctest/internal/config"
	"ioctest/internal/harness"
	"ioctest/internal/metrics"
	"ioctest/internal/reporting"
	"ioctest/internal/safeguard"
	"ioctest/pkg/logging"
)

type runOptions struct {
	pso         []uint
	pulseDriver []uint
	analog      []uint
	gpoECG      []uint
	gpio        []uint
	cuff        bool
}

func (o runOptions) selection() checks.Selection {
	return checks.Selection{
		PSO:         toChannels(o.pso),
		PulseDriver: toChannels(o.pulseDriver),
		Analog:      toChannels(o.analog),
		GPOECG:      toChannels(o.gpoECG),
		GPIO:        toChannels(o.gpio),
		Cuff:        o.cuff,
	}
}

func toChannels(in []uint) []uint16 {
	if len(in) == 0 {
		return nil
	}
	out := make([]uint16, len(in))
	for i, v := range in {
		if v > 0xffff {
			// out of range for every test; let channel validation reject it
			v = 0xffff
		}
		out[i] = uint16(v)
	}
	return out
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the production test sequence",
		Long: `Runs the selected tests against the IO controller, in order, and prints
a report when all of them have completed.

Without a selector the full sequence runs: PSO 1-6, pulse driver 1-6,
analog inputs 2-5, GPO/ECG 1-3 and GPIO 0-1. The cuff test needs an operator
at the pump and only runs with --cuff.

The command exits non-zero when any test failed.`,
		Example: `  ioctest run
  ioctest run --analog 2,3 --gpio 0
  ioctest run --cuff --com-port /dev/ttyUSB0
  ioctest run --simulate -c -f --report-dir /tmp/reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := runSuite(ctx, cmd.OutOrStdout(), cfg, opts.selection(), globals.simulate)
			if err != nil {
				return err
			}
			if !summary.AllPassed() {
				return ErrTestsFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.UintSliceVar(&opts.pso, "pso", nil, "Test PSO channel(s) 1-6")
	flags.UintSliceVar(&opts.pulseDriver, "pulse-driver", nil, "Test pulse driver channel(s) 1-6")
	flags.UintSliceVar(&opts.analog, "analog", nil, "Test analog input(s) 2-5")
	flags.UintSliceVar(&opts.gpoECG, "gpo-ecg", nil, "Test GPO channel(s) 1-2 or the ECG output (3)")
	flags.UintSliceVar(&opts.gpio, "gpio", nil, "Test GPIO loopback with read line 0 or 1")
	flags.BoolVar(&opts.cuff, "cuff", false, "Test the cuff pressure sensor (needs an operator)")

	return cmd
}

// runSuite connects to the board, runs the selection and reports. An error
// means the run could not happen; failed tests are in the summary.
func runSuite(ctx context.Context, out io.Writer, cfg config.Config, sel checks.Selection, simulate bool) (harness.RunSummary, error) {
	sess, err := openSession(ctx, cfg, simulate)
	if err != nil {
		return harness.RunSummary{}, err
	}
	defer sess.Close()

	env := sess.env(cfg)
	var tests []harness.TestCase
	if sel.Empty() {
		tests, err = checks.FullSuite(env)
	} else {
		tests, err = checks.Select(env, sel)
	}
	if err != nil {
		return harness.RunSummary{}, err
	}

	guard := safeguard.New(sess.ctrl, cfg.Safeguard)
	if err := guard.Apply("before run"); err != nil {
		return harness.RunSummary{}, err
	}

	text := reporting.NewTextReporter(reporting.Options{
		Out:        out,
		Color:      cfg.Output.Color,
		FileOutput: cfg.Output.FileOutput,
		ReportDir:  cfg.Output.ReportDir,
	})
	reporter := reporting.Tee(text, reporting.NewConsoleReporter())

	var runnerOpts []harness.RunnerOption
	var recorder *metrics.Recorder
	if cfg.Output.MetricsFile != "" {
		recorder = metrics.NewRecorder()
		runnerOpts = append(runnerOpts, harness.WithResultHook(recorder.ObserveResult))
	}

	runner := harness.NewRunner(reporter, runnerOpts...)
	for _, tc := range tests {
		if err := runner.AddTest(tc); err != nil {
			return harness.RunSummary{}, err
		}
	}

	logging.Info("Run", "running %d test(s)", runner.Len())
	summary, flushErr := runner.Run(ctx)
	if flushErr != nil {
		logging.Error("Run", flushErr, "failed to write report")
	}
	for _, f := range text.Files() {
		logging.Info("Run", "report written to %s", f)
	}

	if err := guard.Apply("after run"); err != nil {
		logging.Error("Run", err, "safeguard after run failed")
	}

	if recorder != nil {
		recorder.ObserveRun(summary)
		recorder.ObserveDispatch(sess.ctrl.Stats())
		if err := recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			logging.Error("Run", err, "failed to write metrics")
		}
	}

	if flushErr != nil {
		return summary, fmt.Errorf("run %s completed but the report failed: %w", summary.RunID, flushErr)
	}
	return summary, nil
}
