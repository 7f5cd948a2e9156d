package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ioctest/internal/iocomm"
)

func newFirmwareCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "fw",
		Aliases: []string{"firmware"},
		Short:   "Print the firmware version of the IO controller",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), cfg, globals.simulate)
			if err != nil {
				return err
			}
			defer sess.Close()

			version, err := iocomm.QueryFirmware(cmd.Context(), sess.ctrl, cfg.Timing.ReplyTimeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "IO controller firmware: %s\n", version)
			return nil
		},
	}
}
