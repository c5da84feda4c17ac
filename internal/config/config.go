package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the daemon reads from the environment. Sink
// credentials beyond these (for example Datadog API keys) are consumed
// directly by the sink clients from their own variables.
type Config struct {
	// SerialDevice is the thermometer's serial path. Also settable as the
	// first positional argument.
	SerialDevice string

	// Co2Device is the CO2 monitor's serial path. Empty means probe the
	// default device list at startup.
	Co2Device string

	PollInterval time.Duration
	Co2Interval  time.Duration
	CycleTimeout time.Duration

	// Sink selects the persistence backend: influx, sqlite, postgres,
	// datadog or mqtt.
	Sink string

	InfluxURL   string
	HostTag     string
	SQLitePath  string
	PostgresDSN string

	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	// MetricsAddr serves prometheus metrics when non-empty.
	MetricsAddr string
}

func Load() Config {
	return Config{
		SerialDevice: getEnv("SERIAL_DEVICE", "/dev/ttyACM0"),
		Co2Device:    os.Getenv("CO2_DEVICE"),

		PollInterval: getEnvDuration("POLL_INTERVAL", 10*time.Second),
		Co2Interval:  getEnvDuration("CO2_POLL_INTERVAL", 10*time.Second),
		CycleTimeout: getEnvDuration("CYCLE_TIMEOUT", 6*time.Second),

		Sink: getEnv("SINK", "influx"),

		InfluxURL:   getEnv("INFLUX_URL", "http://127.0.0.1:8086/write?db=temperature&precision=s"),
		HostTag:     getEnv("HOST_TAG", "ubik"),
		SQLitePath:  getEnv("SQLITE_PATH", "readings.db"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		MQTTBroker:      getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "envrelay"),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "envrelay"),

		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare numbers are read as seconds.
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
