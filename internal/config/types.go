package config

import (
	"time"
)

// Config is the top-level configuration structure for ioctest.
type Config struct {
	Serial    SerialSettings    `yaml:"serial"`
	Timing    TimingSettings    `yaml:"timing"`
	Limits    LimitSettings     `yaml:"limits"`
	Cuff      CuffSettings      `yaml:"cuff"`
	ECG       ECGSettings       `yaml:"ecg"`
	Output    OutputSettings    `yaml:"output"`
	Safeguard SafeguardSettings `yaml:"safeguard"`
}

// SerialSettings describes the port the IO controller is attached to.
type SerialSettings struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// TimingSettings bounds the waits inside test cases.
type TimingSettings struct {
	// ReplyTimeout bounds a single command/response exchange.
	ReplyTimeout time.Duration `yaml:"reply_timeout"`
	// AggregateTimeout bounds each attempt of a multi-sample detection.
	AggregateTimeout time.Duration `yaml:"aggregate_timeout"`
	// SettleDelay is the pause between applying a stimulus and measuring.
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// Range is an open interval of raw readings: a value passes when
// Lower < value < Upper.
type Range struct {
	Lower uint32 `yaml:"lower"`
	Upper uint32 `yaml:"upper"`
}

// LimitSettings holds the pass windows per channel.
type LimitSettings struct {
	PSONominal uint32 `yaml:"pso_nominal"`
	// PSOTolerance is a fraction of the nominal value, e.g. 0.1 for ±10%.
	PSOTolerance float64          `yaml:"pso_tolerance"`
	PulseDriver  Range            `yaml:"pulse_driver"`
	Analog       map[uint16]Range `yaml:"analog"`
	// GPO is keyed by GPO test channel; channel 3 is the ECG output.
	GPO map[uint16]Range `yaml:"gpo"`
}

// PSORange returns the window derived from the nominal value and tolerance.
func (l LimitSettings) PSORange() Range {
	delta := uint32(float64(l.PSONominal) * l.PSOTolerance)
	lower := uint32(0)
	if delta < l.PSONominal {
		lower = l.PSONominal - delta
	}
	return Range{Lower: lower, Upper: l.PSONominal + delta}
}

// CuffSettings configures the cuff pressure detection.
type CuffSettings struct {
	Threshold uint32 `yaml:"threshold"`
	Attempts  int    `yaml:"attempts"`
	// RetryDelay is the wait between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// OperatorPause gives the operator time to read the inflation prompt.
	OperatorPause time.Duration `yaml:"operator_pause"`
}

// ECGSettings locates the ECG PWM output.
type ECGSettings struct {
	SysfsPath string `yaml:"sysfs_path"`
}

// OutputSettings controls reporting.
type OutputSettings struct {
	Color bool `yaml:"color"`
	// FileOutput persists the report in ReportDir.
	FileOutput  bool   `yaml:"file_output"`
	ReportDir   string `yaml:"report_dir"`
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// SafeguardSettings configures the power safeguard run around a test run.
type SafeguardSettings struct {
	Enabled   bool   `yaml:"enabled"`
	PowerLine uint16 `yaml:"power_line"`
}
