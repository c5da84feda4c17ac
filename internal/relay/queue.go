package relay

import "github.com/ubiklab/envrelay/internal/reading"

// Queue is an unbounded multi-producer single-consumer reading queue. Push
// never blocks on the consumer: a buffering goroutine absorbs whatever the
// pollers produce and hands it to Out in FIFO order per producer. There is no
// cross-producer ordering; every reading carries its own capture timestamp.
type Queue struct {
	in  chan reading.Reading
	out chan reading.Reading
}

func NewQueue() *Queue {
	q := &Queue{
		in:  make(chan reading.Reading),
		out: make(chan reading.Reading),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	var buf []reading.Reading
	for {
		if len(buf) == 0 {
			r, ok := <-q.in
			if !ok {
				close(q.out)
				return
			}
			buf = append(buf, r)
		}
		select {
		case r, ok := <-q.in:
			if !ok {
				for _, r := range buf {
					q.out <- r
				}
				close(q.out)
				return
			}
			buf = append(buf, r)
		case q.out <- buf[0]:
			buf = buf[1:]
		}
	}
}

// Push enqueues r. The buffering goroutine is always ready to receive, so a
// slow or failing sink never blocks a poller.
func (q *Queue) Push(r reading.Reading) {
	q.in <- r
}

// Out is the single-consumer side. It is closed after Close once the buffer
// has drained.
func (q *Queue) Out() <-chan reading.Reading {
	return q.out
}

// Close stops accepting readings. Pending readings are still delivered.
func (q *Queue) Close() {
	close(q.in)
}
