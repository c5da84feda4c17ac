package reading

import "time"

// Kind tags which device produced a Reading.
type Kind int

const (
	Thermometer Kind = iota
	Co2Meter
)

func (k Kind) String() string {
	switch k {
	case Thermometer:
		return "thermometer"
	case Co2Meter:
		return "co2meter"
	default:
		return "unknown"
	}
}

// Reading is one timestamped sample. It is owned by the relay queue from the
// moment a poller pushes it until the sink writer consumes it exactly once.
// Time is the capture timestamp, assigned when the raw value was obtained, so
// queue or sink latency never skews the recorded time.
type Reading struct {
	Kind        Kind
	Time        time.Time
	Temperature float32

	// Humidity is set for Thermometer readings only.
	Humidity float32

	// Co2 is set for Co2Meter readings only, in ppm.
	Co2 uint16
}

func NewThermometer(ts time.Time, temperature, humidity float32) Reading {
	return Reading{
		Kind:        Thermometer,
		Time:        ts,
		Temperature: temperature,
		Humidity:    humidity,
	}
}

func NewCo2Meter(ts time.Time, temperature float32, co2 uint16) Reading {
	return Reading{
		Kind:        Co2Meter,
		Time:        ts,
		Temperature: temperature,
		Co2:         co2,
	}
}
