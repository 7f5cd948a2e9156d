package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeRoot runs the real command tree with args and returns its output.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestSetVersion(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", rootCmd.Version)
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "ioctest", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)

	for _, name := range []string{"config", "com-port", "baud", "color", "file", "report-dir", "metrics-file", "simulate", "debug"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "c", rootCmd.PersistentFlags().Lookup("color").Shorthand)
	assert.Equal(t, "f", rootCmd.PersistentFlags().Lookup("file").Shorthand)
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "ioctest version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())

	assert.Equal(t, "ioctest version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		found[cmd.Name()] = true
	}
	for _, expected := range []string{"run", "poll", "fw", "version", "self-update"} {
		assert.True(t, found[expected], "expected subcommand %s to be registered", expected)
	}
}

func TestVersionCommand(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()
	SetVersion("0.4.0")

	out, err := executeRoot(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ioctest version 0.4.0\n", out)
}

func TestFirmwareCommand_Simulated(t *testing.T) {
	path := writeConfig(t, "timing:\n  reply_timeout: 500ms\n")

	out, err := executeRoot(t, "fw", "--simulate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "IO controller firmware: sim-1.0.0")
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeConfig(t, "cuff:\n  attempts: 0\n")

	_, err := executeRoot(t, "fw", "--simulate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
