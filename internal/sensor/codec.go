package sensor

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Command is an outbound protocol request to the thermometer.
type Command byte

// Measure asks the sensor for one humidity/temperature sample. It is the
// complete wire vocabulary; the device understands nothing else.
const Measure Command = 'M'

// ErrInvalidLine reports a complete but malformed response line. The line has
// already been consumed from the buffer, so the next decode starts fresh.
var ErrInvalidLine = errors.New("invalid string")

// Reading is one decoded humidity/temperature sample from the thermometer.
type Reading struct {
	Temperature float32
	Humidity    float32
}

// Codec frames the sensor wire protocol: a single command byte out, one
// newline-terminated "<humidity> <temperature>" line in.
type Codec struct{}

// Encode appends the wire form of cmd to dst.
func (Codec) Encode(cmd Command, dst *bytes.Buffer) error {
	switch cmd {
	case Measure:
		dst.Grow(1)
		dst.WriteByte(byte(Measure))
		return nil
	default:
		return fmt.Errorf("unknown command %q", byte(cmd))
	}
}

// Decode scans src for the first complete line. Without a newline it returns
// (nil, nil) and leaves src byte-for-byte unchanged. With one, exactly that
// line (newline included) is removed from src whether or not it parses.
func (Codec) Decode(src *bytes.Buffer) (*Reading, error) {
	i := bytes.IndexByte(src.Bytes(), '\n')
	if i < 0 {
		return nil, nil
	}
	line := string(src.Next(i + 1))

	// Wire order is humidity first, then temperature.
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, ErrInvalidLine
	}
	humidity, ok := parseFinite32(fields[0])
	if !ok {
		return nil, ErrInvalidLine
	}
	temperature, ok := parseFinite32(fields[1])
	if !ok {
		return nil, ErrInvalidLine
	}
	return &Reading{Temperature: temperature, Humidity: humidity}, nil
}

func parseFinite32(s string) (float32, bool) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return float32(v), true
}
