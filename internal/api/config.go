package api

import "time"

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string      // CORS and WebSocket origins (empty or "*" = allow all)
	CacheSize      int           // Rendered words kept in memory (0 = no cache)
	HealthTTL      time.Duration // How long /health reuses its database counts
	Version        string

	// WebSocket limits
	MaxMessageSize int64 // bytes per client message
	MaxMessageRate int   // client messages per second
}

// DefaultConfig returns the configuration used by serve when nothing is set.
func DefaultConfig() Config {
	return Config{
		Port:           8000,
		AllowedOrigins: []string{"*"},
		CacheSize:      4096,
		HealthTTL:      5 * time.Second,
		Version:        "dev",
		MaxMessageSize: 1024,
		MaxMessageRate: 20,
	}
}

func (c Config) allowAllOrigins() bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}
