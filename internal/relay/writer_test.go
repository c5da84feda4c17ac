package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ubiklab/envrelay/internal/reading"
)

type recordingSink struct {
	mu       sync.Mutex
	attempts []reading.Reading
	stored   []reading.Reading
	failOn   map[int]error
}

func (s *recordingSink) Write(_ context.Context, r reading.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.attempts)
	s.attempts = append(s.attempts, r)
	if err, ok := s.failOn[n]; ok {
		return err
	}
	s.stored = append(s.stored, r)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) waitForAttempts(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		got := len(s.attempts)
		s.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d write attempts", n)
}

func TestWriterFailureDoesNotBlockNextReading(t *testing.T) {
	q := NewQueue()
	snk := &recordingSink{failOn: map[int]error{0: errors.New("sink unavailable")}}
	w := &Writer{Sink: snk, Queue: q}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	q.Push(thermoAt(1))
	q.Push(thermoAt(2))

	snk.waitForAttempts(t, 2)

	snk.mu.Lock()
	defer snk.mu.Unlock()
	if len(snk.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(snk.attempts))
	}
	if len(snk.stored) != 1 || snk.stored[0].Temperature != 2 {
		t.Fatalf("expected only the second reading stored, got %+v", snk.stored)
	}
}

func TestWriterDrainsInOrder(t *testing.T) {
	q := NewQueue()
	snk := &recordingSink{}
	w := &Writer{Sink: snk, Queue: q}

	for i := 0; i < 5; i++ {
		q.Push(thermoAt(float32(i)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	snk.waitForAttempts(t, 5)

	snk.mu.Lock()
	defer snk.mu.Unlock()
	for i, r := range snk.stored {
		if r.Temperature != float32(i) {
			t.Fatalf("reading %d written out of order: %+v", i, snk.stored)
		}
	}
}

func TestWriterDrainsBufferedReadingsAfterClose(t *testing.T) {
	q := NewQueue()
	snk := &recordingSink{}
	w := &Writer{Sink: snk, Queue: q}

	for i := 0; i < 3; i++ {
		q.Push(thermoAt(float32(i)))
	}
	q.Close()

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer did not finish draining the closed queue")
	}

	snk.mu.Lock()
	defer snk.mu.Unlock()
	if len(snk.stored) != 3 {
		t.Fatalf("expected 3 buffered readings written on shutdown, got %d", len(snk.stored))
	}
}

func TestWriterStopsWhenQueueCloses(t *testing.T) {
	q := NewQueue()
	w := &Writer{Sink: &recordingSink{}, Queue: q}

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer did not stop after queue close")
	}
}
