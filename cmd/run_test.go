package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ioctest/internal/checks"
	"ioctest/internal/config"
	"ioctest/pkg/logging"
)

func fastConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Timing.ReplyTimeout = 500 * time.Millisecond
	cfg.Timing.SettleDelay = time.Millisecond
	cfg.Output.ReportDir = t.TempDir()
	return cfg
}

func TestRunSuite_FullSuiteSimulated(t *testing.T) {
	cfg := fastConfig(t)
	cfg.Output.FileOutput = true
	cfg.Output.MetricsFile = filepath.Join(t.TempDir(), "ioctest.prom")
	cfg.Safeguard.Enabled = true

	var out bytes.Buffer
	summary, err := runSuite(context.Background(), &out, cfg, checks.Selection{}, true)
	require.NoError(t, err)

	assert.Equal(t, 21, summary.Total)
	assert.True(t, summary.AllPassed(), out.String())
	assert.NotEmpty(t, summary.RunID)
	assert.Contains(t, out.String(), "RESULT: PASS")
	assert.Contains(t, out.String(), "MCU_GPIO1")

	metrics, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `ioctest_tests_total{result="PASSED"} 21`)
	assert.Contains(t, string(metrics), summary.RunID)

	reports, err := filepath.Glob(filepath.Join(cfg.Output.ReportDir, "ioctest-report-*"))
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestRunSuite_LogsQueueAndReportFiles(t *testing.T) {
	var logs bytes.Buffer
	logging.InitForCLI(logging.LevelInfo, &logs)
	t.Cleanup(func() { logging.InitForCLI(logging.LevelInfo, io.Discard) })

	cfg := fastConfig(t)
	cfg.Output.FileOutput = true

	_, err := runSuite(context.Background(), &bytes.Buffer{}, cfg, checks.Selection{Analog: []uint16{2}, PSO: []uint16{1}}, true)
	require.NoError(t, err)

	reports, err := filepath.Glob(filepath.Join(cfg.Output.ReportDir, "ioctest-report-*"))
	require.NoError(t, err)
	require.Len(t, reports, 2)

	out := logs.String()
	assert.Contains(t, out, "running 2 test(s)")
	for _, f := range reports {
		assert.Contains(t, out, filepath.Base(f))
	}
}

func TestRunSuite_Selection(t *testing.T) {
	cfg := fastConfig(t)

	var out bytes.Buffer
	summary, err := runSuite(context.Background(), &out, cfg, checks.Selection{
		Analog: []uint16{3},
		GPIO:   []uint16{0},
	}, true)
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "Analog_in3", summary.Results[0].Name)
	assert.Equal(t, "MCU_GPIO0", summary.Results[1].Name)
}

func TestRunSuite_InvalidChannel(t *testing.T) {
	_, err := runSuite(context.Background(), &bytes.Buffer{}, fastConfig(t), checks.Selection{PSO: []uint16{7}}, true)
	assert.ErrorIs(t, err, checks.ErrInvalidChannel)
}

func TestRunSuite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	summary, err := runSuite(ctx, &out, fastConfig(t), checks.Selection{Analog: []uint16{2}, PSO: []uint16{1}}, true)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Failed)
	for _, res := range summary.Results {
		assert.Contains(t, res.Reason, "interrupted")
	}
	assert.Contains(t, out.String(), "RESULT: FAIL")
}

func TestRunCommand_FailingTestExitsNonZero(t *testing.T) {
	path := writeConfig(t, `
timing:
  reply_timeout: 500ms
  settle_delay: 1ms
limits:
  analog:
    2: {lower: 3000, upper: 4000}
`)

	out, err := executeRoot(t, "run", "--simulate", "--config", path, "--analog", "2", "--gpio", "0")
	assert.ErrorIs(t, err, ErrTestsFailed)
	assert.Contains(t, out, "Read value outside range. Got 2560, Expected range (3000-4000)")
	assert.True(t, strings.Contains(out, "MCU_GPIO0"), out)
}

func TestToChannels(t *testing.T) {
	assert.Nil(t, toChannels(nil))
	assert.Equal(t, []uint16{1, 6, 0xffff}, toChannels([]uint{1, 6, 70000}))
}
