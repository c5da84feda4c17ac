package sink

import (
	"context"
	"fmt"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"github.com/ubiklab/envrelay/internal/reading"
)

// Datadog submits each reading as gauge metric series through the
// authenticated metrics API. Credentials come from the environment
// (DD_API_KEY, DD_SITE) via the client's default context.
type Datadog struct {
	api *datadogV2.MetricsApi
}

func NewDatadog() *Datadog {
	configuration := datadog.NewConfiguration()
	apiClient := datadog.NewAPIClient(configuration)
	return &Datadog{api: datadogV2.NewMetricsApi(apiClient)}
}

func (s *Datadog) Write(ctx context.Context, r reading.Reading) error {
	ctx = datadog.NewDefaultContext(ctx)

	timestamp := datadog.PtrInt64(r.Time.Unix())
	var series []datadogV2.MetricSeries
	switch r.Kind {
	case reading.Thermometer:
		series = []datadogV2.MetricSeries{
			gaugeSeries("sensor.thermometer.temperature", "degree celsius", timestamp, float64(r.Temperature)),
			gaugeSeries("sensor.thermometer.humidity", "percent", timestamp, float64(r.Humidity)),
		}
	case reading.Co2Meter:
		// NOTE: no unit on the CO2 series because ppm is not supported in
		// Datadog: https://docs.datadoghq.com/metrics/units/
		series = []datadogV2.MetricSeries{
			gaugeSeries("sensor.co2meter.co2", "", timestamp, float64(r.Co2)),
			gaugeSeries("sensor.co2meter.temperature", "degree celsius", timestamp, float64(r.Temperature)),
		}
	default:
		return fmt.Errorf("unknown reading kind %v", r.Kind)
	}

	_, _, err := s.api.SubmitMetrics(ctx, datadogV2.MetricPayload{Series: series})
	if err != nil {
		return fmt.Errorf("submit metrics to datadog: %w", err)
	}
	return nil
}

func gaugeSeries(metric, unit string, timestamp *int64, value float64) datadogV2.MetricSeries {
	s := datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{
				Timestamp: timestamp,
				Value:     datadog.PtrFloat64(value),
			},
		},
	}
	if unit != "" {
		s.Unit = datadog.PtrString(unit)
	}
	return s
}

func (s *Datadog) Close() error {
	return nil
}
