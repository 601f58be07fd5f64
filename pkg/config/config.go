package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Sensors     []SensorConfig    `yaml:"sensors"`
	Trigger     TriggerConfig     `yaml:"trigger"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Capture     CaptureConfig     `yaml:"capture"`
	Serial      SerialConfig      `yaml:"serial"`
	Export      ExportConfig      `yaml:"export"`
	Publish     PublishConfig     `yaml:"publish"`
}

// SensorConfig wires one physical sensor.
type SensorConfig struct {
	Name string `yaml:"name"`
	// TriggerPin is the output pin whose pulse starts ranging. Empty
	// means the sensor free-runs.
	TriggerPin string `yaml:"trigger_pin"`
	// SensePin carries the pulse-width signal or the serial bit
	// stream. Unused in hardware_serial mode.
	SensePin string `yaml:"sense_pin"`
	// Mode is pulse_width, software_serial, or hardware_serial.
	Mode string `yaml:"mode"`
	// SerialPort is the device node for hardware_serial mode.
	SerialPort string `yaml:"serial_port"`
}

// TriggerConfig shapes the ranging-start pulse.
type TriggerConfig struct {
	// Duration of the pulse. The MB1300 needs at least 20 us.
	Duration time.Duration `yaml:"duration"`
	// ActiveLow selects an active-low pulse with the line idling
	// HIGH, the MB1300 wiring. False selects active-high.
	ActiveLow bool `yaml:"active_low"`
}

// CalibrationConfig pins the unit conversions per sensor model
// explicitly instead of inferring them per decode mode.
type CalibrationConfig struct {
	MicrosPerUnit float64       `yaml:"us_per_unit"`    // pulse width microseconds per range unit
	SerialDivisor float64       `yaml:"serial_divisor"` // serial token units per range unit
	MinPulse      time.Duration `yaml:"min_pulse"`      // signal-integrity floor
	MaxWait       time.Duration `yaml:"max_wait"`       // per-reading bound
}

// CaptureConfig tunes the alternating scheduling discipline.
type CaptureConfig struct {
	ReadingsPerTrigger int           `yaml:"readings_per_trigger"`
	ReadingGap         time.Duration `yaml:"reading_gap"`
	QuietInterval      time.Duration `yaml:"quiet_interval"`
	CycleDelay         time.Duration `yaml:"cycle_delay"`
	HistoryCapacity    int           `yaml:"history_capacity"`
}

// SerialConfig contains serial line parameters shared by the software
// and hardware decode paths.
type SerialConfig struct {
	BaudRate int `yaml:"baud_rate"`
}

// ExportConfig controls CSV persistence.
type ExportConfig struct {
	DataDir string `yaml:"data_dir"`
}

// PublishConfig controls optional live measurement streaming.
type PublishConfig struct {
	Enabled bool   `yaml:"enabled"`
	Broker  string `yaml:"broker"`
	Topic   string `yaml:"topic"`
}

// Default returns a default configuration matching two MB1300 sensors
// wired to an Orange Pi 5 header.
func Default() *Config {
	return &Config{
		Sensors: []SensorConfig{
			{Name: "Sensor_1", TriggerPin: "16", SensePin: "12", Mode: "pulse_width"},
			{Name: "Sensor_2", TriggerPin: "22", SensePin: "18", Mode: "pulse_width"},
		},
		Trigger: TriggerConfig{
			Duration:  25 * time.Microsecond,
			ActiveLow: true,
		},
		Calibration: CalibrationConfig{
			MicrosPerUnit: 147,  // 147 us per inch
			SerialDivisor: 2.54, // serial reports centimeters, output is inches
			MinPulse:      100 * time.Microsecond,
			MaxWait:       50 * time.Millisecond,
		},
		Capture: CaptureConfig{
			ReadingsPerTrigger: 10,
			ReadingGap:         time.Millisecond,
			QuietInterval:      10 * time.Millisecond,
			CycleDelay:         200 * time.Millisecond,
			HistoryCapacity:    1000,
		},
		Serial: SerialConfig{
			BaudRate: 9600,
		},
		Export: ExportConfig{
			DataDir: "data",
		},
		Publish: PublishConfig{
			Enabled: false,
			Broker:  "tcp://127.0.0.1:1883",
			Topic:   "ultrasonic",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if len(c.Sensors) == 0 {
		c.Sensors = def.Sensors
	}
	for i := range c.Sensors {
		if c.Sensors[i].Name == "" {
			c.Sensors[i].Name = fmt.Sprintf("Sensor_%d", i+1)
		}
		if c.Sensors[i].Mode == "" {
			c.Sensors[i].Mode = "pulse_width"
		}
	}

	if c.Trigger.Duration == 0 {
		c.Trigger.Duration = def.Trigger.Duration
	}

	if c.Calibration.MicrosPerUnit == 0 {
		c.Calibration.MicrosPerUnit = def.Calibration.MicrosPerUnit
	}
	if c.Calibration.SerialDivisor == 0 {
		c.Calibration.SerialDivisor = def.Calibration.SerialDivisor
	}
	if c.Calibration.MinPulse == 0 {
		c.Calibration.MinPulse = def.Calibration.MinPulse
	}
	if c.Calibration.MaxWait == 0 {
		c.Calibration.MaxWait = def.Calibration.MaxWait
	}

	if c.Capture.ReadingsPerTrigger == 0 {
		c.Capture.ReadingsPerTrigger = def.Capture.ReadingsPerTrigger
	}
	if c.Capture.QuietInterval == 0 {
		c.Capture.QuietInterval = def.Capture.QuietInterval
	}
	if c.Capture.CycleDelay == 0 {
		c.Capture.CycleDelay = def.Capture.CycleDelay
	}
	if c.Capture.HistoryCapacity == 0 {
		c.Capture.HistoryCapacity = def.Capture.HistoryCapacity
	}

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Export.DataDir == "" {
		c.Export.DataDir = def.Export.DataDir
	}

	if c.Publish.Broker == "" {
		c.Publish.Broker = def.Publish.Broker
	}
	if c.Publish.Topic == "" {
		c.Publish.Topic = def.Publish.Topic
	}
}
