package sink

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ubiklab/envrelay/internal/reading"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "readings.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite sink: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoresFixedPoint(t *testing.T) {
	s := openTestSQLite(t)

	ts := time.Date(2023, 6, 16, 14, 30, 0, 0, time.UTC)
	r := reading.NewThermometer(ts, 21.73, 45.18)
	if err := s.Write(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var timestamp string
	var temperature, humidity int64
	row := s.db.QueryRow(`SELECT timestamp, temperature, humidity FROM thermometer`)
	if err := row.Scan(&timestamp, &temperature, &humidity); err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if timestamp != "2023-06-16T14:30:00Z" {
		t.Fatalf("unexpected timestamp %q", timestamp)
	}
	if temperature != 2173 || humidity != 4518 {
		t.Fatalf("expected fixed-point 2173/4518, got %d/%d", temperature, humidity)
	}
}

func TestSQLiteStoresCo2Meter(t *testing.T) {
	s := openTestSQLite(t)

	ts := time.Date(2023, 6, 16, 14, 30, 0, 0, time.UTC)
	if err := s.Write(context.Background(), reading.NewCo2Meter(ts, 26.4, 1140)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var temperature, co2ppm int64
	row := s.db.QueryRow(`SELECT temperature, co2 FROM co2meter`)
	if err := row.Scan(&temperature, &co2ppm); err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if temperature != 2640 || co2ppm != 1140 {
		t.Fatalf("expected 2640/1140, got %d/%d", temperature, co2ppm)
	}
}

func TestSQLiteMaintainsHourlyAndDailyAverages(t *testing.T) {
	s := openTestSQLite(t)

	base := time.Date(2023, 6, 16, 14, 0, 0, 0, time.UTC)
	// 20.00C and 22.00C within the same hour.
	for i, temperature := range []float32{20, 22} {
		r := reading.NewThermometer(base.Add(time.Duration(i+1)*10*time.Minute), temperature, 45)
		if err := s.Write(context.Background(), r); err != nil {
			t.Fatalf("write %d: unexpected error: %v", i, err)
		}
	}

	var timestamp string
	var temperature int64
	row := s.db.QueryRow(`SELECT timestamp, temperature FROM thermometer_hourly_avg`)
	if err := row.Scan(&timestamp, &temperature); err != nil {
		t.Fatalf("failed to read hourly average: %v", err)
	}
	if timestamp != "2023-06-16T14:00:00Z" {
		t.Fatalf("unexpected hourly bucket %q", timestamp)
	}
	if temperature != 2100 {
		t.Fatalf("expected hourly average 2100, got %d", temperature)
	}

	row = s.db.QueryRow(`SELECT timestamp, temperature FROM thermometer_daily_avg`)
	if err := row.Scan(&timestamp, &temperature); err != nil {
		t.Fatalf("failed to read daily average: %v", err)
	}
	if timestamp != "2023-06-16T00:00:00Z" {
		t.Fatalf("unexpected daily bucket %q", timestamp)
	}
	if temperature != 2100 {
		t.Fatalf("expected daily average 2100, got %d", temperature)
	}
}

func TestSQLiteCo2RollupUsesOwnTable(t *testing.T) {
	s := openTestSQLite(t)

	ts := time.Date(2023, 6, 16, 14, 30, 0, 0, time.UTC)
	if err := s.Write(context.Background(), reading.NewCo2Meter(ts, 26.4, 1140)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var co2ppm int64
	if err := s.db.QueryRow(`SELECT co2 FROM co2meter_hourly_avg`).Scan(&co2ppm); err != nil {
		t.Fatalf("failed to read co2 hourly average: %v", err)
	}
	if co2ppm != 1140 {
		t.Fatalf("expected co2 average 1140, got %d", co2ppm)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM thermometer_hourly_avg`).Scan(&count); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 0 {
		t.Fatalf("co2 write must not touch thermometer rollups, found %d rows", count)
	}
}

func TestSQLiteDuplicateTimestampIgnored(t *testing.T) {
	s := openTestSQLite(t)

	ts := time.Date(2023, 6, 16, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if err := s.Write(context.Background(), reading.NewThermometer(ts, 21.7, 45.2)); err != nil {
			t.Fatalf("write %d: unexpected error: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM thermometer`).Scan(&count); err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}
