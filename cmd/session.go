package cmd

import (
	"context"

	"ioctest/internal/checks"
	"ioctest/internal/config"
	"ioctest/internal/iocomm"
	"ioctest/pkg/logging"
)

// session is an open connection to a real or simulated board.
type session struct {
	ctrl *iocomm.Controller
	ecg  checks.ECGSwitch
	// sim is set when running with --simulate
	sim  *iocomm.Simulator
}

func openSession(ctx context.Context, cfg config.Config, simulate bool) (*session, error) {
	s := &session{}

	var transport iocomm.Transport
	if simulate {
		logging.Info("Session", "using simulated IO controller")
		s.sim = iocomm.NewSimulator()
		transport = s.sim
		s.ecg = s.sim
	} else {
		st, err := iocomm.OpenSerial(iocomm.SerialConfig{
			Port:        cfg.Serial.Port,
			BaudRate:    cfg.Serial.BaudRate,
			ReadTimeout: cfg.Serial.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		transport = st
		s.ecg = checks.SysfsECG{Path: cfg.ECG.SysfsPath}
	}

	s.ctrl = iocomm.NewController(transport)
	s.ctrl.Start(ctx)
	return s, nil
}

func (s *session) env(cfg config.Config) checks.Env {
	return checks.Env{Channel: s.ctrl, ECG: s.ecg, Config: cfg}
}

func (s *session) Close() {
	if err := s.ctrl.Close(); err != nil {
		logging.Warn("Session", "closing controller: %v", err)
	}
}
