package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // SCHEDULE_TZ must resolve on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// ErrMissingCredential is returned when no API key can be found.
var ErrMissingCredential = errors.New("aemet api key not found")

// keyName is the entry holding the API key in the key file.
const keyName = "key"

type AppConfig struct {
	BaseURL string `validate:"required,url"`
	APIKey  string `validate:"required"`
	KeyFile string

	// Dataset locations.
	DataDir      string `validate:"required"`
	RealtimeDir  string `validate:"required"`
	StationsFile string `validate:"required"`

	// Metadata-stage retry policy of the windowed endpoints.
	DailyMaxAttempts int           `validate:"min=1"`
	DailyRetryDelay  time.Duration `validate:"min=0"`
	DailyHTTPTimeout time.Duration `validate:"min=0"` // 0 = no timeout

	// Metadata-stage retry policy of the real-time endpoint.
	RealtimeMaxAttempts int           `validate:"min=1"`
	RealtimeRetryDelay  time.Duration `validate:"min=0"`
	RealtimeHTTPTimeout time.Duration `validate:"min=0"`

	BreakerFailureThreshold int `validate:"min=0"`
	WindowDays              int `validate:"min=1"`

	LogLevel  logrus.Level
	LogFormat string `validate:"oneof=text json"`

	// Scheduler.
	ScheduleTZ        *time.Location `validate:"required"`
	RealtimeAt        string         `validate:"datetime=15:04"`
	DailyAt           string         `validate:"datetime=15:04"`
	DailyLookbackDays int            `validate:"min=1"`

	// In-memory report retention.
	StoreMaxHistory int           // max number of reports per job (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)

	Port string `validate:"required,numeric"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults. The
// API key comes from AEMET_API_KEY or, when unset, from the key file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.BaseURL = getenvDefault("AEMET_BASE_URL", "https://opendata.aemet.es/opendata")
	cfg.KeyFile = getenvDefault("AEMET_KEY_FILE", "key.txt")
	cfg.APIKey = os.Getenv("AEMET_API_KEY")

	cfg.DataDir = getenvDefault("DATA_DIR", "dataset_daily")
	cfg.RealtimeDir = getenvDefault("REALTIME_DIR", "real_time")
	cfg.StationsFile = getenvDefault("STATIONS_FILE", "todas_estacoes.csv")

	cfg.DailyMaxAttempts = getenvInt("DAILY_MAX_ATTEMPTS", 5)
	if cfg.DailyRetryDelay, err = getenvDuration("DAILY_RETRY_DELAY", "10s"); err != nil {
		return nil, err
	}
	if cfg.DailyHTTPTimeout, err = getenvDuration("DAILY_HTTP_TIMEOUT", "0s"); err != nil {
		return nil, err
	}

	cfg.RealtimeMaxAttempts = getenvInt("REALTIME_MAX_ATTEMPTS", 3)
	if cfg.RealtimeRetryDelay, err = getenvDuration("REALTIME_RETRY_DELAY", "90s"); err != nil {
		return nil, err
	}
	if cfg.RealtimeHTTPTimeout, err = getenvDuration("REALTIME_HTTP_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	cfg.BreakerFailureThreshold = getenvInt("BREAKER_FAILURE_THRESHOLD", 20)
	cfg.WindowDays = getenvInt("WINDOW_DAYS", 14)

	if cfg.LogLevel, err = logrus.ParseLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))

	if cfg.ScheduleTZ, err = time.LoadLocation(getenvDefault("SCHEDULE_TZ", "Europe/Madrid")); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TZ: %w", err)
	}
	cfg.RealtimeAt = getenvDefault("REALTIME_AT", "12:00")
	cfg.DailyAt = getenvDefault("DAILY_AT", "06:00")
	cfg.DailyLookbackDays = getenvInt("DAILY_LOOKBACK_DAYS", 14)

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 50)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "720h"); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.APIKey == "" {
		key, err := ReadKeyFile(cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		cfg.APIKey = key
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ReadKeyFile returns the API key stored as `key = "..."` in path.
func ReadKeyFile(path string) (string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrMissingCredential, path, err)
	}
	key := strings.TrimSpace(values[keyName])
	if key == "" {
		return "", fmt.Errorf("%w: no %q entry in %s", ErrMissingCredential, keyName, path)
	}
	return key, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
