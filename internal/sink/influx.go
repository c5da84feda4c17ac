package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ubiklab/envrelay/internal/reading"
)

// Influx posts readings to an InfluxDB write endpoint as line protocol, two
// metrics per reading with Unix-second timestamps. The endpoint expects a
// form-urlencoded content type and one request per reading.
type Influx struct {
	url    string
	host   string
	client *http.Client
}

func NewInflux(url, host string) *Influx {
	return &Influx{
		url:    url,
		host:   host,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Influx) Write(ctx context.Context, r reading.Reading) error {
	ts := r.Time.Unix()
	var body string
	switch r.Kind {
	case reading.Thermometer:
		body = fmt.Sprintf("temperature,host=%s value=%v %d\nhumidity,host=%s value=%v %d\n",
			s.host, r.Temperature, ts,
			s.host, r.Humidity, ts)
	case reading.Co2Meter:
		body = fmt.Sprintf("temperature,host=%s value=%v %d\nco2,host=%s value=%d %d\n",
			s.host, r.Temperature, ts,
			s.host, r.Co2, ts)
	default:
		return fmt.Errorf("unknown reading kind %v", r.Kind)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Close = true

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to influx: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("influx returned %v", resp.Status)
	}
	return nil
}

func (s *Influx) Close() error {
	return nil
}
