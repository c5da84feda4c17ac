package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ubiklab/envrelay/internal/reading"
)

// SQLite stores readings in two per-variant tables, keyed by capture
// timestamp, and maintains hourly and daily average rollups alongside them.
// Values are stored fixed-point (see fixedPoint); CO2 ppm is already
// integral.
type SQLite struct {
	db           *sql.DB
	insertThermo *sql.Stmt
	insertCo2    *sql.Stmt
	rollupThermo *sql.Stmt
	rollupCo2    *sql.Stmt
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite sink: %w", err)
	}
	return s, nil
}

func (s *SQLite) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS thermometer (
			timestamp   TEXT PRIMARY KEY,
			temperature INTEGER NOT NULL,
			humidity    INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS thermometer_hourly_avg (
			timestamp   TEXT PRIMARY KEY,
			temperature INTEGER NOT NULL,
			humidity    INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS thermometer_daily_avg (
			timestamp   TEXT PRIMARY KEY,
			temperature INTEGER NOT NULL,
			humidity    INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS co2meter (
			timestamp   TEXT PRIMARY KEY,
			temperature INTEGER NOT NULL,
			co2         INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS co2meter_hourly_avg (
			timestamp   TEXT PRIMARY KEY,
			temperature INTEGER NOT NULL,
			co2         INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS co2meter_daily_avg (
			timestamp   TEXT PRIMARY KEY,
			temperature INTEGER NOT NULL,
			co2         INTEGER NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	s.insertThermo, err = s.db.Prepare(`
		INSERT OR IGNORE INTO thermometer (timestamp, temperature, humidity)
		VALUES ($timestamp, $temperature, $humidity);
	`)
	if err != nil {
		return err
	}

	s.insertCo2, err = s.db.Prepare(`
		INSERT OR IGNORE INTO co2meter (timestamp, temperature, co2)
		VALUES ($timestamp, $temperature, $co2);
	`)
	if err != nil {
		return err
	}

	s.rollupThermo, err = s.db.Prepare(`
		-- allows indexes to be used in LIKE clauses
		PRAGMA case_sensitive_like = ON;

		INSERT
		INTO thermometer_hourly_avg (timestamp, temperature, humidity)
		SELECT $ts_hour, CAST(ROUND(AVG(temperature)) AS INTEGER), CAST(ROUND(AVG(humidity)) AS INTEGER)
		FROM thermometer
		WHERE thermometer.timestamp LIKE $ts_pattern_hour
		ON CONFLICT (timestamp) DO UPDATE SET temperature = excluded.temperature,
											  humidity    = excluded.humidity;

		INSERT
		INTO thermometer_daily_avg (timestamp, temperature, humidity)
		SELECT $ts_day, CAST(ROUND(AVG(temperature)) AS INTEGER), CAST(ROUND(AVG(humidity)) AS INTEGER)
		FROM thermometer
		WHERE thermometer.timestamp LIKE $ts_pattern_day
		ON CONFLICT (timestamp) DO UPDATE SET temperature = excluded.temperature,
											  humidity    = excluded.humidity;
	`)
	if err != nil {
		return err
	}

	s.rollupCo2, err = s.db.Prepare(`
		PRAGMA case_sensitive_like = ON;

		INSERT
		INTO co2meter_hourly_avg (timestamp, temperature, co2)
		SELECT $ts_hour, CAST(ROUND(AVG(temperature)) AS INTEGER), CAST(ROUND(AVG(co2)) AS INTEGER)
		FROM co2meter
		WHERE co2meter.timestamp LIKE $ts_pattern_hour
		ON CONFLICT (timestamp) DO UPDATE SET temperature = excluded.temperature,
											  co2         = excluded.co2;

		INSERT
		INTO co2meter_daily_avg (timestamp, temperature, co2)
		SELECT $ts_day, CAST(ROUND(AVG(temperature)) AS INTEGER), CAST(ROUND(AVG(co2)) AS INTEGER)
		FROM co2meter
		WHERE co2meter.timestamp LIKE $ts_pattern_day
		ON CONFLICT (timestamp) DO UPDATE SET temperature = excluded.temperature,
											  co2         = excluded.co2;
	`)
	if err != nil {
		return err
	}

	return nil
}

func (s *SQLite) Write(ctx context.Context, r reading.Reading) error {
	ts := r.Time.UTC()
	timestamp := ISO8601Time(ts).format()

	var (
		res    sql.Result
		rollup *sql.Stmt
		err    error
	)
	switch r.Kind {
	case reading.Thermometer:
		res, err = s.insertThermo.ExecContext(ctx,
			sql.Named("timestamp", timestamp),
			sql.Named("temperature", fixedPoint(r.Temperature)),
			sql.Named("humidity", fixedPoint(r.Humidity)),
		)
		rollup = s.rollupThermo
	case reading.Co2Meter:
		res, err = s.insertCo2.ExecContext(ctx,
			sql.Named("timestamp", timestamp),
			sql.Named("temperature", fixedPoint(r.Temperature)),
			sql.Named("co2", int64(r.Co2)),
		)
		rollup = s.rollupCo2
	default:
		return fmt.Errorf("unknown reading kind %v", r.Kind)
	}
	if err != nil {
		return err
	}

	ra, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if ra > 0 {
		if err := s.updateAverageTables(ctx, rollup, ts); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLite) updateAverageTables(ctx context.Context, rollup *sql.Stmt, ts time.Time) error {
	tsHour := ISO8601Time(ts.Truncate(time.Hour)).format()
	tsDay := ISO8601Time(ts.Truncate(24 * time.Hour)).format()

	_, err := rollup.ExecContext(ctx,
		// 2023-06-16T14:00:00Z
		sql.Named("ts_hour", tsHour),
		// 2023-06-16T14:%
		sql.Named("ts_pattern_hour", tsHour[:14]+"%"),
		// 2023-06-16T00:00:00Z
		sql.Named("ts_day", tsDay),
		// 2023-06-16T%
		sql.Named("ts_pattern_day", tsDay[:11]+"%"),
	)
	return err
}

func (s *SQLite) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertThermo, s.insertCo2, s.rollupThermo, s.rollupCo2} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				return err
			}
		}
	}
	return s.db.Close()
}
