package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"

	"github.com/ubiklab/envrelay/internal/co2"
	"github.com/ubiklab/envrelay/internal/config"
	"github.com/ubiklab/envrelay/internal/metrics"
	"github.com/ubiklab/envrelay/internal/relay"
	"github.com/ubiklab/envrelay/internal/sensor"
	"github.com/ubiklab/envrelay/internal/sink"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

func main() {
	cfg := config.Load()
	if len(os.Args) > 1 {
		cfg.SerialDevice = os.Args[1]
	}

	// The sink is the only startup-fatal resource. Everything after this
	// point logs and carries on.
	snk, err := sink.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to build sink")
	}
	defer snk.Close()
	log.WithField("sink", cfg.Sink).Info("sink ready")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	queue := relay.NewQueue()
	var pollers sync.WaitGroup

	client := sensor.NewClient(sensor.SerialDialer(cfg.SerialDevice))
	serialPoller := &relay.SerialPoller{
		Sensor:   client,
		Queue:    queue,
		Interval: cfg.PollInterval,
		Timeout:  cfg.CycleTimeout,
	}
	pollers.Add(1)
	go func() {
		defer pollers.Done()
		serialPoller.Run(ctx)
	}()
	log.WithField("device", cfg.SerialDevice).Info("serial poller started")

	startCo2Poller(ctx, cfg, queue, &pollers)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
				log.WithError(err).Error("metrics endpoint failed")
			}
		}()
		log.WithField("addr", cfg.MetricsAddr).Info("metrics endpoint started")
	}

	// The writer is not tied to the signal context: it stops when the
	// queue closes, after draining whatever the pollers left behind.
	writer := &relay.Writer{Sink: snk, Queue: queue}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writer.Run(context.Background())
	}()

	<-ctx.Done()
	pollers.Wait()
	queue.Close()
	<-writerDone
	log.Info("shut down")
}

// startCo2Poller opens the CO2 monitor once for the process lifetime. A
// missing device is not an error: the poller simply does not start.
func startCo2Poller(ctx context.Context, cfg config.Config, queue *relay.Queue, wg *sync.WaitGroup) {
	path := cfg.Co2Device
	if path == "" {
		var err error
		path, err = co2.FindDevice(cfg.SerialDevice)
		if errors.Is(err, co2.ErrNoDevice) {
			log.Info("co2 monitor not present, poller disabled")
			return
		} else if err != nil {
			log.WithError(err).Warn("co2 device probe failed, poller disabled")
			return
		}
	}

	dev, err := co2.Open(path)
	if err != nil {
		log.WithError(err).WithField("device", path).Warn("failed to start co2 monitor, poller disabled")
		return
	}

	poller := &relay.Co2Poller{
		Device:   dev,
		Queue:    queue,
		Interval: cfg.Co2Interval,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			// Send the stop command before the process exits so the device
			// does not keep streaming into a closed port.
			if err := dev.Close(); err != nil {
				log.WithError(err).Warn("failed to stop co2 monitor")
			}
		}()
		poller.Run(ctx)
	}()
	log.WithField("device", path).Info("co2 poller started")
}
