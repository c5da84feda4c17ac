package sink

import (
	"encoding/json"
	"time"

	"github.com/ubiklab/envrelay/internal/reading"
)

// ISO8601Time renders as RFC 3339 in JSON and in the relational timestamp
// columns.
type ISO8601Time time.Time

func (t ISO8601Time) format() string {
	return time.Time(t).Format(time.RFC3339)
}

func (t ISO8601Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.format())
}

// Record is the serialized form of a reading used by the JSON-bearing sinks.
// Humidity and Co2 are present only for the variant that carries them.
type Record struct {
	Timestamp   ISO8601Time `json:"timestamp"`
	Kind        string      `json:"kind"`
	Temperature float32     `json:"temperature"`
	Humidity    *float32    `json:"humidity,omitempty"`
	Co2         *uint16     `json:"co2,omitempty"`
}

func newRecord(r reading.Reading) Record {
	rec := Record{
		Timestamp:   ISO8601Time(r.Time),
		Kind:        r.Kind.String(),
		Temperature: r.Temperature,
	}
	switch r.Kind {
	case reading.Thermometer:
		humidity := r.Humidity
		rec.Humidity = &humidity
	case reading.Co2Meter:
		co2 := r.Co2
		rec.Co2 = &co2
	}
	return rec
}
