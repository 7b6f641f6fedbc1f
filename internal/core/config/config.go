package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HitEventsCfg struct {
	Enabled   bool
	Topic     string
	QueueSize int
}

type TaggingCfg struct {
	Enabled     bool
	InputTopic  string
	OutputTopic string
	GroupID     string
}

type Config struct {
	Addr            string
	LogLevel        string
	LogConsole      bool
	LogSampleN      int
	PixelWidth      string
	PixelUnit       string
	RedisAddr       string
	KafkaBrokers    string
	CellCacheEnable bool
	CellCacheSize   int
	CellCacheTTL    time.Duration
	CacheOpTimeout  time.Duration
	HotThreshold    float64
	HotHalfLife     time.Duration
	HotPruneEvery   time.Duration
	MetricsEnabled  bool
	MetricsAddr     string
	MetricsPath     string
	HitEvents       HitEventsCfg
	Tagging         TaggingCfg
}

func FromEnv() Config {
	return Config{
		Addr:            getenv("ADDR", ":8090"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		LogSampleN:      getint("LOG_SAMPLE_N", 0),
		PixelWidth:      getenv("PIXEL_WIDTH", "1000"),
		PixelUnit:       getenv("PIXEL_UNIT", "meters"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		KafkaBrokers:    getenv("KAFKA_BROKERS", "localhost:9092"),
		CellCacheEnable: getbool("CELL_CACHE_ENABLED", true),
		CellCacheSize:   getint("CELL_CACHE_SIZE", 4096),
		CellCacheTTL:    getduration("CELL_CACHE_TTL", time.Hour),
		CacheOpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		HotThreshold:    getfloat("HOT_THRESHOLD", 5.0),
		HotHalfLife:     getduration("HOT_HALF_LIFE", time.Minute),
		HotPruneEvery:   getduration("HOT_PRUNE_INTERVAL", time.Minute),
		MetricsEnabled:  getbool("METRICS_ENABLED", false),
		MetricsAddr:     getenv("METRICS_ADDR", ":9090"),
		MetricsPath:     getenv("METRICS_PATH", "/metrics"),
		HitEvents: HitEventsCfg{
			Enabled:   getbool("HIT_EVENTS_ENABLED", false),
			Topic:     getenv("HIT_EVENTS_TOPIC", "pixel-hits"),
			QueueSize: getint("HIT_EVENTS_QUEUE", 1024),
		},
		Tagging: TaggingCfg{
			Enabled:     getbool("TAGGING_ENABLED", false),
			InputTopic:  getenv("TAGGING_INPUT_TOPIC", "locations"),
			OutputTopic: getenv("TAGGING_OUTPUT_TOPIC", "locations-tagged"),
			GroupID:     getenv("TAGGING_GROUP_ID", "earthpixel-tagger"),
		},
	}
}

// LoadDotEnv loads the given .env files (default ".env") without overriding
// variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Brokers splits KafkaBrokers on commas.
func (c Config) Brokers() []string {
	var out []string
	for p := range strings.SplitSeq(c.KafkaBrokers, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
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
