package sink

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ubiklab/envrelay/internal/reading"
)

func TestRecordJSONThermometer(t *testing.T) {
	ts := time.Date(2023, 6, 16, 14, 30, 0, 0, time.UTC)
	b, err := json.Marshal(newRecord(reading.NewThermometer(ts, 21.7, 45.2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"timestamp":"2023-06-16T14:30:00Z","kind":"thermometer","temperature":21.7,"humidity":45.2}`
	if string(b) != want {
		t.Fatalf("unexpected JSON\n got: %s\nwant: %s", b, want)
	}
}

func TestRecordJSONCo2Meter(t *testing.T) {
	ts := time.Date(2023, 6, 16, 14, 30, 0, 0, time.UTC)
	b, err := json.Marshal(newRecord(reading.NewCo2Meter(ts, 26.4, 1140)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"timestamp":"2023-06-16T14:30:00Z","kind":"co2meter","temperature":26.4,"co2":1140}`
	if string(b) != want {
		t.Fatalf("unexpected JSON\n got: %s\nwant: %s", b, want)
	}
}

func TestFixedPoint(t *testing.T) {
	cases := []struct {
		in   float32
		want int64
	}{
		{21.73, 2173},
		{45.18, 4518},
		{0, 0},
		{-3.456, -346},
	}
	for _, c := range cases {
		if got := fixedPoint(c.in); got != c.want {
			t.Fatalf("fixedPoint(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
