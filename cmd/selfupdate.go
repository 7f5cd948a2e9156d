package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// githubRepoSlug can be overridden at build time with
// -ldflags "-X ioctest/cmd.githubRepoSlug=owner/repo".
var githubRepoSlug = "ioctest/ioctest"

func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "self-update",
		Short: "Update ioctest to the latest release",
		Long: `Checks for the latest release of ioctest on GitHub and replaces the
running binary with it when it is newer. Release checksums are verified
before the binary is replaced.`,
		Args: cobra.NoArgs,
		RunE: runSelfUpdate,
	}
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	current := rootCmd.Version
	if current == "" || current == "dev" {
		return errors.New("cannot self-update a development version")
	}

	ctx := context.Background()
	out := rootCmd.OutOrStdout()
	if cmd != nil {
		ctx = cmd.Context()
		out = cmd.OutOrStdout()
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Validator: &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})
	if err != nil {
		return fmt.Errorf("failed to create updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(githubRepoSlug))
	if err != nil {
		return fmt.Errorf("failed to detect latest release: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", githubRepoSlug)
	}
	if latest.LessOrEqual(current) {
		fmt.Fprintf(out, "ioctest %s is up to date\n", current)
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return fmt.Errorf("failed to update to %s: %w", latest.Version(), err)
	}
	fmt.Fprintf(out, "Updated ioctest %s -> %s\n", current, latest.Version())
	return nil
}
