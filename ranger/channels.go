package main

import (
	"fmt"
	"time"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/config"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/hw"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/sensor"
	"github.com/mbuhidar/ultrasonic-detection-model/pkg/uart"
)

// buildChannels wires the two sensor channels from configuration. The
// returned cleanup parks GPIO outputs at idle and closes serial ports;
// it is safe to call after a partial build failure.
func buildChannels(cfg *config.Config, mock bool) (a, b *sensor.Channel, cleanup func(), err error) {
	if len(cfg.Sensors) != 2 {
		return nil, nil, nil, fmt.Errorf("exactly two sensors must be configured, got %d", len(cfg.Sensors))
	}

	if mock {
		a, b = mockChannels(cfg)
		return a, b, func() {}, nil
	}

	ctx, err := hw.NewContext()
	if err != nil {
		return nil, nil, nil, err
	}

	var ports []*uart.Port
	cleanup = func() {
		for _, p := range ports {
			p.Close()
		}
		ctx.Close()
	}

	channels := make([]*sensor.Channel, 2)
	for i, sc := range cfg.Sensors {
		ch, port, buildErr := buildChannel(cfg, sc, ctx)
		if buildErr != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("sensor %s: %w", sc.Name, buildErr)
		}
		if port != nil {
			ports = append(ports, port)
		}
		channels[i] = ch
	}
	return channels[0], channels[1], cleanup, nil
}

func buildChannel(cfg *config.Config, sc config.SensorConfig, ctx *hw.Context) (*sensor.Channel, *uart.Port, error) {
	mode, err := sensor.ParseMode(sc.Mode)
	if err != nil {
		return nil, nil, err
	}

	id := sensor.Identity{Name: sc.Name, TriggerPin: sc.TriggerPin, SensePin: sc.SensePin}
	pulse := triggerPulse(cfg.Trigger)
	cal := calibration(cfg)

	if mode == sensor.ModeHardwareSerial {
		port, err := uart.Open(sc.SerialPort, cfg.Serial.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		return sensor.NewHardwareSerial(id, port, cal, cfg.Capture.HistoryCapacity), port, nil
	}

	var trigger hw.OutputPin
	if sc.TriggerPin != "" {
		out, err := ctx.Output(sc.TriggerPin, pulse.Idle())
		if err != nil {
			return nil, nil, err
		}
		trigger = out
	}
	sense, err := ctx.Input(sc.SensePin)
	if err != nil {
		return nil, nil, err
	}

	if mode == sensor.ModeSoftwareSerial {
		return sensor.NewSoftwareSerial(id, trigger, sense, pulse, cal, cfg.Capture.HistoryCapacity), nil, nil
	}
	return sensor.NewPulseWidth(id, trigger, sense, pulse, cal, cfg.Capture.HistoryCapacity), nil, nil
}

// mockChannels builds hardware-free channels fed by scripted serial
// reports, for development on a machine with no sensors attached.
func mockChannels(cfg *config.Config) (a, b *sensor.Channel) {
	cal := calibration(cfg)
	mk := func(sc config.SensorConfig, lines ...string) *sensor.Channel {
		src := uart.NewMock(lines...)
		src.Loop = true
		src.Delay = 10 * time.Millisecond // the MB1300 ranges at ~10 Hz
		id := sensor.Identity{Name: sc.Name}
		return sensor.NewHardwareSerial(id, src, cal, cfg.Capture.HistoryCapacity)
	}
	a = mk(cfg.Sensors[0], "R100", "R101", "R099", "R102", "R100")
	b = mk(cfg.Sensors[1], "R250", "R249", "R251", "R252", "R250")
	return a, b
}

func triggerPulse(tc config.TriggerConfig) sensor.TriggerPulse {
	active := hw.High
	if tc.ActiveLow {
		active = hw.Low
	}
	return sensor.TriggerPulse{Duration: tc.Duration, Active: active}
}

func calibration(cfg *config.Config) sensor.Calibration {
	return sensor.Calibration{
		MicrosPerUnit: cfg.Calibration.MicrosPerUnit,
		SerialDivisor: cfg.Calibration.SerialDivisor,
		PulseFloor:    cfg.Calibration.MinPulse,
		MaxWait:       cfg.Calibration.MaxWait,
		ReadingGap:    cfg.Capture.ReadingGap,
		Baud:          cfg.Serial.BaudRate,
	}
}
