package capture

import "github.com/mbuhidar/ultrasonic-detection-model/pkg/sensor"

// Stats summarizes the distances in a measurement history.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// Compute derives summary statistics from a history snapshot. An
// empty snapshot yields the zero Stats.
func Compute(ms []sensor.Measurement) Stats {
	if len(ms) == 0 {
		return Stats{}
	}
	st := Stats{
		Count: len(ms),
		Min:   ms[0].Distance,
		Max:   ms[0].Distance,
	}
	var sum float64
	for _, m := range ms {
		if m.Distance < st.Min {
			st.Min = m.Distance
		}
		if m.Distance > st.Max {
			st.Max = m.Distance
		}
		sum += m.Distance
	}
	st.Mean = sum / float64(len(ms))
	return st
}
