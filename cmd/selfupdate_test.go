package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelfUpdateCmd(t *testing.T) {
	cmd := newSelfUpdateCmd()

	assert.Equal(t, "self-update", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.NotNil(t, cmd.RunE)
}

func TestRunSelfUpdate_DevelopmentVersions(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()

	for _, version := range []string{"dev", ""} {
		rootCmd.Version = version
		err := runSelfUpdate(nil, []string{})
		require.Error(t, err, "version %q", version)
		assert.Contains(t, err.Error(), "cannot self-update a development version")
	}
}

func TestSelfUpdateCommandHelp(t *testing.T) {
	cmd := newSelfUpdateCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Checks for the latest release")
	assert.Contains(t, buf.String(), "self-update")
}

func TestGithubRepoSlug(t *testing.T) {
	parts := strings.Split(githubRepoSlug, "/")
	require.Len(t, parts, 2)
	assert.NotEmpty(t, parts[0])
	assert.NotEmpty(t, parts[1])
}
