package relay

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ubiklab/envrelay/internal/co2"
	"github.com/ubiklab/envrelay/internal/metrics"
	"github.com/ubiklab/envrelay/internal/reading"
	"github.com/ubiklab/envrelay/internal/sensor"
)

// SerialSensor is the per-cycle request/response capability of the line
// protocol thermometer.
type SerialSensor interface {
	Call(ctx context.Context, cmd sensor.Command) (*sensor.Reading, error)
}

// Co2Device is the opaque synchronous read the CO2 monitor exposes.
type Co2Device interface {
	Read() (co2.Measurement, error)
}

// SerialPoller samples the thermometer on a fixed interval. Each tick runs
// one cycle (sensor read + enqueue) under Timeout; a failed or timed-out
// cycle produces zero readings and the next tick proceeds unaffected. No
// retry happens within a tick.
type SerialPoller struct {
	Sensor   SerialSensor
	Queue    *Queue
	Interval time.Duration
	Timeout  time.Duration
}

func (p *SerialPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	p.run(ctx, ticker.C)
}

func (p *SerialPoller) run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}

		if err := p.cycle(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				metrics.CycleTimeouts.Inc()
				log.WithError(err).Warn("sensor cycle timed out")
			} else {
				metrics.CycleFailures.Inc()
				log.WithError(err).Warn("sensor cycle failed")
			}
			continue
		}
		metrics.ReadingsCollected.WithLabelValues(reading.Thermometer.String()).Inc()
	}
}

// cycle performs one sample and enqueue under the cycle deadline. On expiry
// the in-flight read is abandoned; the buffered channel lets the stray
// goroutine finish and its eventual result is discarded, never enqueued.
func (p *SerialPoller) cycle(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	type outcome struct {
		r   *sensor.Reading
		at  time.Time
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := p.Sensor.Call(ctx, sensor.Measure)
		// Capture time is stamped the moment the value is obtained, not at
		// enqueue or write time.
		done <- outcome{r: r, at: time.Now(), err: err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case o := <-done:
		if o.err != nil {
			return o.err
		}
		p.Queue.Push(reading.NewThermometer(o.at, o.r.Temperature, o.r.Humidity))
		return nil
	}
}

// Co2Poller samples the CO2 monitor on its own interval, not phase-aligned
// with the serial poller. The device read deliberately has no deadline: a
// read that never returns stalls this loop only, never the serial loop.
type Co2Poller struct {
	Device   Co2Device
	Queue    *Queue
	Interval time.Duration
}

func (p *Co2Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	p.run(ctx, ticker.C)
}

func (p *Co2Poller) run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}

		m, err := p.Device.Read()
		if err != nil {
			metrics.CycleFailures.Inc()
			log.WithError(err).Warn("co2 read failed")
			continue
		}
		p.Queue.Push(reading.NewCo2Meter(time.Now(), m.Temperature, m.Co2))
		metrics.ReadingsCollected.WithLabelValues(reading.Co2Meter.String()).Inc()
	}
}
