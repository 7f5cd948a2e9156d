package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"ioctest/internal/color"
	"ioctest/internal/poll"
	"ioctest/pkg/logging"
)

func newPollCmd() *cobra.Command {
	var (
		interval time.Duration
		count    int
		plain    bool
	)

	cmd := &cobra.Command{
		Use:   "poll <gpio|pso|analog> <channel>",
		Short: "Read one channel repeatedly",
		Long: `Polls a single channel of the IO controller at a fixed interval and shows
each reading. Useful when probing a board on the bench.

By default a live status view is shown; --plain prints one line per reading
instead. Press q or Ctrl+C to stop.`,
		Example: `  ioctest poll gpio 0
  ioctest poll analog 6 --interval 200ms
  ioctest poll pso 3 --plain --count 10`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			names := make([]string, len(poll.Sources))
			for i, s := range poll.Sources {
				names[i] = string(s)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			channel, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid channel %q: %w", args[1], err)
			}
			target, err := poll.ParseTarget(args[0], uint16(channel))
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := openSession(ctx, cfg, globals.simulate)
			if err != nil {
				return err
			}
			defer sess.Close()

			poller := poll.NewPoller(sess.ctrl, target, poll.Options{
				Interval: interval,
				Timeout:  cfg.Timing.ReplyTimeout,
				Count:    count,
			})

			if plain {
				return poll.RunPlain(ctx, poller, cmd.OutOrStdout())
			}

			level := logging.LevelInfo
			if globals.debug {
				level = logging.LevelDebug
			}
			logs := logging.InitForTUI(level)
			defer logging.CloseTUIChannel()

			styles := color.Plain()
			if cfg.Output.Color {
				styles = color.NewStyles(lipgloss.DefaultRenderer())
			}
			return poll.RunView(ctx, poller, logs, styles)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Time between readings")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many readings (0 polls until stopped)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print readings as lines instead of the status view")

	return cmd
}
