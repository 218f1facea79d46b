package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule is the limit for one endpoint. Paths ending in "/" match by prefix.
type Rule struct {
	Path   string
	Method string
	Limit  int // requests per Window; <= 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity; defaults to Limit
}

func (r Rule) key() string {
	return r.Method + " " + r.Path
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration // buckets unused this long are dropped
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	Unlimited       []string // exact paths that are never limited
	Rules           []Rule
}

// DefaultConfig returns the built-in limits without consulting the environment.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		Unlimited:       []string{"/health"},
		Rules:           DefaultRules(60),
	}
}

// DefaultRules returns the endpoint limits. renderPerMinute sets the budget
// for full PDF renders; the cheaper image endpoints scale from it.
func DefaultRules(renderPerMinute int) []Rule {
	return []Rule{
		// CPU-heavy: PDF layout and serialization
		{Path: "/render", Method: http.MethodPost, Limit: renderPerMinute, Window: time.Minute, Burst: max(1, renderPerMinute/6)},

		// Image work: decode, scale and dither
		{Path: "/dither/preview", Method: http.MethodPost, Limit: 2 * renderPerMinute, Window: time.Minute, Burst: max(1, renderPerMinute/3)},
		{Path: "/watermarks", Method: http.MethodPost, Limit: renderPerMinute, Window: time.Minute, Burst: max(1, renderPerMinute/6)},
		{Path: "/pages", Method: http.MethodPost, Limit: 2 * renderPerMinute, Window: time.Minute, Burst: max(1, renderPerMinute/3)},

		// Cached reads
		{Path: "/watermarks/", Method: http.MethodGet, Limit: 5 * renderPerMinute, Window: time.Minute},
	}
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = getEnvBool("RATE_LIMIT_ENABLED", cfg.Enabled)
	if !cfg.Enabled {
		return cfg
	}

	cfg.DefaultLimit = getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.CleanupInterval = getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.Whitelist = parseIPList(os.Getenv("RATE_LIMIT_WHITELIST"))
	cfg.Blacklist = parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST"))
	cfg.Rules = DefaultRules(getEnvInt("RATE_LIMIT_RENDER_PER_MINUTE", 60))
	return cfg
}

// match returns the rule for a request, falling back to the default limit.
func (c *Config) match(path, method string) Rule {
	for _, p := range c.Unlimited {
		if p == path {
			return Rule{Path: path}
		}
	}

	var prefix *Rule
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Method != method {
			continue
		}
		if r.Path == path {
			return *r
		}
		if prefix == nil && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			prefix = r
		}
	}
	if prefix != nil {
		return *prefix
	}

	window := c.DefaultWindow
	if window <= 0 {
		window = time.Minute
	}
	return Rule{Path: "*", Method: "*", Limit: c.DefaultLimit, Window: window, Burst: c.DefaultLimit}
}

func (c *Config) idleTTL() time.Duration {
	if c.IdleTTL > 0 {
		return c.IdleTTL
	}
	return time.Hour
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
