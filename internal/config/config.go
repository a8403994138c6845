package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultPeakPaths are the forecast pages scraped when PEAK_PATHS is unset.
var DefaultPeakPaths = []string{
	"peaks/Mount-Brew-Lillooet-Ranges/forecasts/2891",
	"peaks/Mount-Matier/forecasts/2783",
	"peaks/Brandywine-Mountain/forecasts/1500",
	"peaks/Stawamus-Chief/forecasts/702",
	"peaks/Mount-Seymour/forecasts/1449",
	"peaks/Slesse-Peak/forecasts/2393",
	"peaks/Hozomeen-Mountain/forecasts/2458",
	"peaks/Yak-Peak/forecasts/2039",
}

// Dataset storage backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables
// and an optional .env file.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Source pages.
	BaseURL       string
	PeakPaths     []string
	URLsFile      string
	AllElevations bool
	ForecastDays  int
	RequestDelay  time.Duration
	FetchTimeout  time.Duration
	UserAgent     string

	ElevationCacheSize int

	// Dataset persistence.
	DatasetBackend string
	DataDir        string
	SQLitePath     string

	ResolveMonthRollover bool
	FailFast             bool
	RunInterval          time.Duration

	// Optional Kafka publishing of scraped records.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	requestDelay, err := parseDuration("REQUEST_DELAY", "1s", true)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "15s", false)
	if err != nil {
		return nil, err
	}
	runInterval, err := parseDuration("RUN_INTERVAL", "6h", false)
	if err != nil {
		return nil, err
	}

	forecastDays, err := parsePositiveInt("FORECAST_DAYS", 6)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("ELEVATION_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BaseURL:       sharedcfg.EnvOrDefault("BASE_URL", "https://www.mountain-forecast.com/"),
		PeakPaths:     parseList(sharedcfg.EnvOrDefault("PEAK_PATHS", strings.Join(DefaultPeakPaths, ","))),
		URLsFile:      sharedcfg.EnvOrDefault("URLS_FILE", "mountains_urls.json"),
		AllElevations: os.Getenv("ALL_ELEVATIONS") == "true",
		ForecastDays:  forecastDays,
		RequestDelay:  requestDelay,
		FetchTimeout:  fetchTimeout,
		UserAgent:     sharedcfg.EnvOrDefault("USER_AGENT", "mountain-forecast-etl/1.0"),

		ElevationCacheSize: cacheSize,

		DatasetBackend: strings.ToLower(sharedcfg.EnvOrDefault("DATASET_BACKEND", BackendCSV)),
		DataDir:        sharedcfg.EnvOrDefault("DATA_DIR", "."),
		SQLitePath:     sharedcfg.EnvOrDefault("SQLITE_PATH", "mountain_forecasts.db"),

		ResolveMonthRollover: os.Getenv("RESOLVE_MONTH_ROLLOVER") == "true",
		FailFast:             os.Getenv("FAIL_FAST") == "true",
		RunInterval:          runInterval,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "mountain-forecasts"),
	}

	if len(cfg.PeakPaths) == 0 {
		return nil, errors.New("PEAK_PATHS is required")
	}
	if cfg.DatasetBackend != BackendCSV && cfg.DatasetBackend != BackendSQLite {
		return nil, fmt.Errorf("invalid DATASET_BACKEND %q: want csv or sqlite", cfg.DatasetBackend)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
