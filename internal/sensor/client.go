package sensor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// ErrReadFailed reports a connection that ended before a complete frame
// arrived. Distinct from ErrInvalidLine, which means a frame arrived but did
// not parse.
var ErrReadFailed = errors.New("read failed")

// Dialer opens one serial connection. Each Call dials afresh and closes the
// port at the end of the cycle, so a device that re-enumerates between cycles
// (USB replug) is picked up on the next open at the cost of per-cycle open
// latency.
type Dialer func() (io.ReadWriteCloser, error)

// SerialDialer dials path at the fixed sensor baud rate, 9600 8N1.
func SerialDialer(path string) Dialer {
	return func() (io.ReadWriteCloser, error) {
		return serial.Open(path, &serial.Mode{
			BaudRate: 9600,
			DataBits: 8,
			StopBits: serial.OneStopBit,
			Parity:   serial.NoParity,
		})
	}
}

// Client issues one request/response exchange per Call. It holds no
// connection between calls.
type Client struct {
	dial  Dialer
	codec Codec
}

func NewClient(dial Dialer) *Client {
	return &Client{dial: dial}
}

// Call sends cmd and waits for the next decoded frame from the same
// connection. Cancellation closes the port, which unblocks an in-flight
// read, so the handle is always released by the end of the cycle.
func (c *Client) Call(ctx context.Context, cmd Command) (*Reading, error) {
	port, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("open serial port: %w", err)
	}
	defer port.Close()

	// Closing is the only way to interrupt a blocked serial read. A port
	// held open past the deadline would make every later cycle's fresh
	// open fail on an exclusively-opened device.
	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()

	var frame bytes.Buffer
	if err := c.codec.Encode(cmd, &frame); err != nil {
		return nil, err
	}
	if _, err := port.Write(frame.Bytes()); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	var buf bytes.Buffer
	chunk := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := port.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			r, derr := c.codec.Decode(&buf)
			if derr != nil {
				return nil, derr
			}
			if r != nil {
				return r, nil
			}
		}
		if err != nil {
			// A read failing because cancellation closed the port reports
			// the cancellation, not the port error.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, io.EOF) {
				return nil, ErrReadFailed
			}
			return nil, fmt.Errorf("read response: %w", err)
		}
		if n == 0 {
			// go.bug.st/serial reports an expired read timeout as (0, nil);
			// either way the stream ended without a frame.
			return nil, ErrReadFailed
		}
	}
}
