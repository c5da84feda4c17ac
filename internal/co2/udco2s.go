// Package co2 drives a UD-CO2S USB CO2 monitor. The device streams
// "CO2=<ppm>,HUM=<pct>,TMP=<degc>" lines after an STA command; unlike the
// thermometer it is opened once at process start and held for the process
// lifetime.
package co2

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

// ErrNoDevice reports that no CO2 monitor could be located. Callers treat
// this as non-fatal: the CO2 poller simply does not start.
var ErrNoDevice = errors.New("no co2 device found")

// Measurement is one sample from the CO2 monitor.
type Measurement struct {
	Temperature float32
	Co2         uint16
}

// Device is an open CO2 monitor. Read is synchronous and has no internal
// timeout; it blocks until the device emits its next data line.
type Device struct {
	port    io.ReadWriteCloser
	scanner *bufio.Scanner
}

// FindDevice locates the monitor via the default serial port list, skipping
// the port the thermometer occupies.
func FindDevice(exclude string) (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	for _, p := range ports {
		if p == exclude {
			continue
		}
		if strings.Contains(p, "ttyUSB") || strings.Contains(p, "ttyACM") {
			return p, nil
		}
	}
	return "", ErrNoDevice
}

// Open opens the monitor at path and starts its measurement stream.
func Open(path string) (*Device, error) {
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	})
	if err != nil {
		return nil, fmt.Errorf("open co2 device `%v`: %w", path, err)
	}
	if err := port.SetReadTimeout(10 * time.Second); err != nil {
		port.Close()
		return nil, err
	}

	d := newDevice(port)
	if err := d.start(); err != nil {
		port.Close()
		return nil, fmt.Errorf("start co2 device: %w", err)
	}
	return d, nil
}

func newDevice(rw io.ReadWriteCloser) *Device {
	return &Device{port: rw, scanner: bufio.NewScanner(rw)}
}

// start resets the device and begins the measurement stream. STP first in
// case a previous run left the stream running.
func (d *Device) start() error {
	for _, c := range []string{"STP", "STA"} {
		if err := d.sendCommand(c); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) sendCommand(command string) error {
	if _, err := d.port.Write([]byte(command + "\r\n")); err != nil {
		return err
	}

	for d.scanner.Scan() {
		t := d.scanner.Text()
		if strings.HasPrefix(t, "OK") {
			break
		} else if strings.HasPrefix(t, "NG") {
			return fmt.Errorf("co2 device rejected command `%v`", command)
		}
	}
	return d.scanner.Err()
}

// Read blocks until the next data line and returns its measurement. Status
// lines interleaved with the stream are skipped.
func (d *Device) Read() (Measurement, error) {
	for d.scanner.Scan() {
		m, err := parseLine(d.scanner.Text())
		if err != nil {
			continue
		}
		return m, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Measurement{}, fmt.Errorf("read co2 device: %w", err)
	}
	return Measurement{}, errors.New("co2 device stream ended")
}

// Close stops the measurement stream and releases the port.
func (d *Device) Close() error {
	if _, err := d.port.Write([]byte("STP\r\n")); err != nil {
		d.port.Close()
		return err
	}
	return d.port.Close()
}

var lineRegexp = regexp.MustCompile(`CO2=(\d+),HUM=([\d.]+),TMP=([\d.-]+)`)

func parseLine(text string) (Measurement, error) {
	m := lineRegexp.FindStringSubmatch(text)
	if m == nil {
		return Measurement{}, fmt.Errorf("line does not match expected pattern")
	}

	ppm, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return Measurement{}, err
	}
	temperature, err := strconv.ParseFloat(m[3], 32)
	if err != nil {
		return Measurement{}, err
	}

	return Measurement{
		Temperature: float32(temperature),
		Co2:         uint16(ppm),
	}, nil
}
