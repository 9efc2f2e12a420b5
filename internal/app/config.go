package app

import "time"

// Config holds all configurable parameters for the application.
type Config struct {
	ModelDir    string
	Port        int
	HistorySize int
	LogLevel    string

	RateLimit       float64 // trace checks per second per client, 0 = unlimited
	RateBurst       int
	RateLimiterTTL  time.Duration
	WatcherDebounce time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Workers       int
	CacheSize     int
	TracesPath    string
	DefaultEngine string // "expr" or "jinja2"
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		ModelDir:    "./model",
		Port:        8080,
		HistorySize: 200,
		LogLevel:    "info",

		RateLimit:       50,
		RateBurst:       100,
		RateLimiterTTL:  10 * time.Minute,
		WatcherDebounce: 500 * time.Millisecond,

		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		Workers:       4,
		CacheSize:     1024,
		TracesPath:    "$.traces",
		DefaultEngine: "jinja2",
	}
}
