package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type CoverageCfg struct {
	BaseURL  string
	Timeout  time.Duration
	Retries  int
	Backoff  time.Duration
	Jitter   float64
	MaxBytes int64
}

type SamplingCfg struct {
	Offset   string
	Band     int
	MaxCells int
}

type StatsEventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	Queue   int
	Dedupe  int
}

type Config struct {
	Addr           string
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	MetricsEnabled bool
	MaxBodyBytes   int64
	ShutdownGrace  time.Duration
	Coverage       CoverageCfg
	Sampling       SamplingCfg
	StatsEvents    StatsEventsCfg
}

func FromEnv() Config {
	retries := getint("COVERAGE_RETRIES", 3)
	if retries < 0 {
		retries = 0
	}
	jitter := getfloat("COVERAGE_JITTER", 0.25)
	if jitter < 0 || jitter > 1 {
		jitter = 0.25
	}
	band := getint("SAMPLE_BAND", 1)
	if band < 1 {
		band = 1
	}

	return Config{
		Addr:           getenv("ADDR", ":8000"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		MetricsEnabled: getbool("METRICS_ENABLED", true),
		MaxBodyBytes:   getint64("MAX_BODY_BYTES", 10<<20),
		ShutdownGrace:  getduration("SHUTDOWN_GRACE", 10*time.Second),
		Coverage: CoverageCfg{
			BaseURL:  getenv("SOILGRIDS_URL", "https://maps.isric.org/mapserv"),
			Timeout:  getduration("COVERAGE_TIMEOUT", 30*time.Second),
			Retries:  retries,
			Backoff:  getduration("COVERAGE_BACKOFF", 250*time.Millisecond),
			Jitter:   jitter,
			MaxBytes: getint64("COVERAGE_MAX_BYTES", 64<<20),
		},
		Sampling: SamplingCfg{
			Offset:   getenv("SAMPLE_OFFSET", "center"),
			Band:     band,
			MaxCells: getint("RASTER_MAX_CELLS", 1<<24),
		},
		StatsEvents: StatsEventsCfg{
			Enabled: getbool("STATS_EVENTS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("STATS_EVENTS_TOPIC", "soil-stats"),
			Queue:   getint("STATS_EVENTS_QUEUE", 1024),
			Dedupe:  getint("STATS_EVENTS_DEDUPE", 4096),
		},
	}
}

// BrokerList splits the comma separated KAFKA_BROKERS value.
func (c StatsEventsCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
