// Package aemet is a client for the AEMET OpenData API. Every endpoint is
// served in two stages: a metadata call that answers with a "datos"
// pointer, and a payload call to that pointer.
package aemet

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the public AEMET OpenData root.
const DefaultBaseURL = "https://opendata.aemet.es/opendata"

var (
	// ErrRetriesExhausted is returned when every metadata attempt failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrMissingPointer is returned when a metadata response has no "datos" URL.
	ErrMissingPointer = errors.New("response has no datos pointer")
	// ErrPayload is returned when the payload stage fails.
	ErrPayload = errors.New("payload unavailable")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker open")

	errNoHTTPClient = errors.New("http client not configured")
	errNoAPIKey     = errors.New("api key not configured")
)

// RetryPolicy controls the metadata stage of one endpoint family.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration

	// RetryMissingPointer makes a response without "datos" consume an
	// attempt instead of ending the fetch.
	RetryMissingPointer bool
}

// DailyRetry is the policy of the windowed climatological endpoints.
func DailyRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Delay: 10 * time.Second}
}

// RealtimeRetry is the policy of the real-time radiation endpoint.
func RealtimeRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 90 * time.Second, RetryMissingPointer: true}
}

// Config bundles HTTP client and resilience settings.
type Config struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Retry   RetryPolicy

	// BreakerThreshold is the number of consecutive failed metadata calls
	// after which the breaker opens. Zero disables tripping.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration

	Logger *logrus.Entry
}

// Client talks to the AEMET OpenData API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   RetryPolicy
	cb      *gobreaker.CircuitBreaker
	log     *logrus.Entry
}

// NewClient creates a new Client. name identifies the client in logs and
// breaker state changes.
func NewClient(name string, cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.WithField("component", "aemet")
	}
	log = log.WithField("client", name)

	threshold := cfg.BreakerThreshold
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	st := gobreaker.Settings{
		Name:    "aemet-" + name,
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("breaker %s: %s -> %s", name, from, to)
		},
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    cfg.Client,
		retry:   cfg.Retry,
		cb:      gobreaker.NewCircuitBreaker(st),
		log:     log,
	}
}
