// Package sink maps readings onto the configured persistence backend. One
// sink instance exists per process, owned exclusively by the relay writer, so
// implementations never see concurrent Write calls.
package sink

import (
	"context"
	"fmt"
	"math"

	"github.com/ubiklab/envrelay/internal/config"
	"github.com/ubiklab/envrelay/internal/reading"
)

// Sink durably stores readings. Write maps one reading onto a sink-specific
// operation keyed by the reading's variant.
type Sink interface {
	Write(ctx context.Context, r reading.Reading) error
	Close() error
}

// New builds the sink selected by cfg. A failure here aborts the process;
// everything after startup is non-fatal.
func New(cfg config.Config) (Sink, error) {
	switch cfg.Sink {
	case "influx":
		return NewInflux(cfg.InfluxURL, cfg.HostTag), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(cfg.PostgresDSN)
	case "datadog":
		return NewDatadog(), nil
	case "mqtt":
		return NewMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}
}

// fixedPoint is the storage form the relational sinks use: values are rounded
// to hundredths and stored as integers. The transport sinks carry raw floats.
func fixedPoint(v float32) int64 {
	return int64(math.Round(float64(v) * 100))
}
