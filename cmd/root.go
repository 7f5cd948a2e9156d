package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ioctest/internal/color"
	"ioctest/internal/config"
	"ioctest/pkg/logging"
)

// ErrTestsFailed is returned by run when at least one test failed, so the
// process exits non-zero.
var ErrTestsFailed = errors.New("one or more tests failed")

// globalOptions holds the persistent flags. They override the loaded
// configuration only when set on the command line.
type globalOptions struct {
	configFile  string
	comPort     string
	baudRate    int
	color       bool
	fileOutput  bool
	reportDir   string
	metricsFile string
	simulate    bool
	debug       bool
}

var globals globalOptions

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ioctest",
	Short: "Production test tool for the IO controller board",
	Long: `ioctest drives the IO controller over its serial command channel and runs
the production test sequence: PSO and pulse driver channels, analog inputs,
GPO and ECG outputs, GPIO loopback and the cuff pressure sensor.

Each test reports its reading and a pass or fail verdict; a summary is
printed when the run completes. With --simulate the tests run against an
in-memory board instead of a serial port.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed tests, unreachable board)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if globals.debug {
			level = logging.LevelDebug
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
		color.Initialize(true)
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ioctest version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPollCmd())
	rootCmd.AddCommand(newFirmwareCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.configFile, "config", "", "Load this config file instead of ~/.config/ioctest/config.yaml and ./.ioctest/config.yaml")
	flags.StringVar(&globals.comPort, "com-port", config.DefaultSerialPort, "Serial port of the IO controller")
	flags.IntVar(&globals.baudRate, "baud", config.DefaultBaudRate, "Serial baud rate")
	flags.BoolVarP(&globals.color, "color", "c", false, "Colorize the report")
	flags.BoolVarP(&globals.fileOutput, "file", "f", false, "Also write the report to text and JSON files")
	flags.StringVar(&globals.reportDir, "report-dir", ".", "Directory for report files")
	flags.StringVar(&globals.metricsFile, "metrics-file", "", "Write Prometheus metrics for the run to this textfile")
	flags.BoolVar(&globals.simulate, "simulate", false, "Run against a simulated IO controller")
	flags.BoolVar(&globals.debug, "debug", false, "Enable debug logging")
}

// loadConfig loads the configuration and applies the flags that were set
// explicitly on cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if globals.configFile != "" {
		cfg, err = config.LoadConfigFile(globals.configFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("com-port") {
		cfg.Serial.Port = globals.comPort
	}
	if flags.Changed("baud") {
		cfg.Serial.BaudRate = globals.baudRate
	}
	if flags.Changed("color") {
		cfg.Output.Color = globals.color
	}
	if flags.Changed("file") {
		cfg.Output.FileOutput = globals.fileOutput
	}
	if flags.Changed("report-dir") {
		cfg.Output.ReportDir = globals.reportDir
	}
	if flags.Changed("metrics-file") {
		cfg.Output.MetricsFile = globals.metricsFile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
