package config

import "time"

// Default values for the VitalSim base unit production fixture.
const (
	DefaultSerialPort = "/dev/ttymxc3"
	DefaultBaudRate   = 115200
	DefaultECGPath    = "/sys/devices/platform/pwm-manikin@0/period"
)

// GetDefaultConfig returns the production defaults.
func GetDefaultConfig() Config {
	return Config{
		Serial: SerialSettings{
			Port:        DefaultSerialPort,
			BaudRate:    DefaultBaudRate,
			ReadTimeout: 100 * time.Millisecond,
		},
		Timing: TimingSettings{
			ReplyTimeout:     1000 * time.Millisecond,
			AggregateTimeout: 5000 * time.Millisecond,
			SettleDelay:      100 * time.Millisecond,
		},
		Limits: LimitSettings{
			PSONominal:   54000,
			PSOTolerance: 0.10,
			PulseDriver:  Range{Lower: 2000, Upper: 2500}, // ~1.81V
			Analog: map[uint16]Range{
				2: {Lower: 2375, Upper: 2750}, // ~2.06V
				3: {Lower: 1170, Upper: 1430}, // ~1.05V
				4: {Lower: 2234, Upper: 2730}, // ~2V
				5: {Lower: 2792, Upper: 3413}, // ~2.5V
			},
			GPO: map[uint16]Range{
				1: {Lower: 2520, Upper: 3080}, // ~2.25V
				2: {Lower: 2520, Upper: 3080},
				3: {Lower: 1845, Upper: 2255}, // ECG ~1.65V
			},
		},
		Cuff: CuffSettings{
			Threshold:     40,
			Attempts:      3,
			RetryDelay:    3 * time.Second,
			OperatorPause: 1 * time.Second,
		},
		ECG: ECGSettings{
			SysfsPath: DefaultECGPath,
		},
		Output: OutputSettings{
			ReportDir: ".",
		},
		Safeguard: SafeguardSettings{
			Enabled:   false,
			PowerLine: 6,
		},
	}
}
