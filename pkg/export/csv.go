// Package export persists measurement histories as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mbuhidar/ultrasonic-detection-model/pkg/sensor"
)

// Header is the fixed CSV column order.
var Header = []string{"Sensor", "Cycle", "Pulse_Number", "Distance", "Raw_Timing_Value", "Timestamp"}

// Write emits one row per measurement in the fixed column order,
// visiting sensors in the given order so output is deterministic. The
// cycle column is derived per sensor: a reading with sequence number 1
// opens a new cycle.
func Write(w io.Writer, order []string, bySensor map[string][]sensor.Measurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	cycle := 0
	for _, name := range order {
		for _, m := range bySensor[name] {
			if m.Sequence == 1 {
				cycle++
			}
			row := []string{
				m.SensorName,
				fmt.Sprintf("%d", cycle),
				fmt.Sprintf("%d", m.Sequence),
				fmt.Sprintf("%.3f", m.Distance),
				fmt.Sprintf("%.1f", m.RawTiming),
				formatTimestamp(m.Wall),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// Save writes the histories to dir under a capture-start epoch file
// name and returns the path. dir is created if missing.
func Save(dir string, order []string, bySensor map[string][]sensor.Measurement) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("ultrasonic_data_%d.csv", time.Now().Unix()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, order, bySensor); err != nil {
		return "", err
	}
	return path, nil
}

// formatTimestamp renders seconds with microsecond precision without
// the float64 precision loss of converting nanoseconds directly.
func formatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}
