package relay

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ubiklab/envrelay/internal/metrics"
	"github.com/ubiklab/envrelay/internal/sink"
)

// Writer is the single consumer of the queue and the sole owner of the sink
// client, so no concurrent sink writes ever occur. Readings are written one
// at a time; a failed write is logged and the next queued reading is
// attempted, with no retry of the failed one.
type Writer struct {
	Sink  sink.Sink
	Queue *Queue
}

func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-w.Queue.Out():
			if !ok {
				return
			}
			if err := w.Sink.Write(ctx, r); err != nil {
				metrics.SinkWriteFailures.Inc()
				log.WithError(err).WithField("kind", r.Kind.String()).Warn("sink write failed")
				continue
			}
			metrics.ReadingsWritten.Inc()
		}
	}
}
