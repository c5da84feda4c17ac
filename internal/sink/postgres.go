package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/ubiklab/envrelay/internal/reading"
)

// Postgres stores all readings in one table with nullable per-variant
// columns. The pool is clamped to a single connection: the writer is the only
// client, and one connection makes pool exhaustion impossible to hit from
// this process.
type Postgres struct {
	db     *sql.DB
	insert *sql.Stmt
}

func OpenPostgres(dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres sink requires POSTGRES_DSN")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize postgres sink: %w", err)
	}
	return p, nil
}

func (p *Postgres) init(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS readings (
			captured_at TIMESTAMPTZ NOT NULL,
			kind        TEXT NOT NULL,
			temperature INTEGER NOT NULL,
			humidity    INTEGER,
			co2         INTEGER,
			PRIMARY KEY (captured_at, kind)
		);
	`)
	if err != nil {
		return err
	}

	p.insert, err = p.db.PrepareContext(ctx, `
		INSERT INTO readings (captured_at, kind, temperature, humidity, co2)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING;
	`)
	return err
}

func (p *Postgres) Write(ctx context.Context, r reading.Reading) error {
	var humidity, co2 sql.NullInt64
	switch r.Kind {
	case reading.Thermometer:
		humidity = sql.NullInt64{Int64: fixedPoint(r.Humidity), Valid: true}
	case reading.Co2Meter:
		co2 = sql.NullInt64{Int64: int64(r.Co2), Valid: true}
	default:
		return fmt.Errorf("unknown reading kind %v", r.Kind)
	}

	_, err := p.insert.ExecContext(ctx,
		r.Time.UTC(),
		r.Kind.String(),
		fixedPoint(r.Temperature),
		humidity,
		co2,
	)
	return err
}

func (p *Postgres) Close() error {
	if p.insert != nil {
		if err := p.insert.Close(); err != nil {
			return err
		}
	}
	return p.db.Close()
}
