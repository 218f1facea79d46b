// Package config provides configuration loading and validation for the render service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// maxConfigSize caps config files; anything larger is a mistake.
const maxConfigSize = 1 << 20

// Duration is a time.Duration written as a Go duration string ("15s") in config files.
type Duration time.Duration

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the service configuration. Files may be YAML or JSON; zero values
// fall back to Defaults.
type Config struct {
	// Server
	Port            int      `yaml:"port,omitempty"`
	CORSOrigins     []string `yaml:"cors_origins,omitempty"`
	MaxConnections  int      `yaml:"max_connections,omitempty"`  // accepted connections held open at once
	MaxUploadBytes  int64    `yaml:"max_upload_bytes,omitempty"` // request body cap for images and documents
	MaxImagePixels  int      `yaml:"max_image_pixels,omitempty"` // largest canvas an uploaded image may declare
	ShutdownTimeout Duration `yaml:"shutdown_timeout,omitempty"`

	// Resources
	FontDir      string `yaml:"font_dir,omitempty"`      // empty uses the built-in Go fonts
	WatermarkDir string `yaml:"watermark_dir,omitempty"` // source photos for GET /watermarks

	// Rendering
	PageSize             string   `yaml:"page_size,omitempty"`
	Margin               float64  `yaml:"margin,omitempty"`           // points
	WatermarkPixels      int      `yaml:"watermark_pixels,omitempty"` // dither resolution N
	WatermarkSize        float64  `yaml:"watermark_size,omitempty"`   // printed edge length in points
	WatermarkOpacity     float64  `yaml:"watermark_opacity,omitempty"`
	MaxConcurrentRenders int      `yaml:"max_concurrent_renders,omitempty"`
	RenderQueueTimeout   Duration `yaml:"render_queue_timeout,omitempty"` // how long a request waits for a render slot
	WarmupTimeout        Duration `yaml:"warmup_timeout,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                 8080,
		CORSOrigins:          []string{"*"},
		MaxConnections:       256,
		MaxUploadBytes:       10 << 20,
		MaxImagePixels:       40_000_000,
		ShutdownTimeout:      Duration(30 * time.Second),
		PageSize:             "Letter",
		Margin:               36,
		WatermarkPixels:      200,
		WatermarkSize:        144,
		WatermarkOpacity:     0.18,
		MaxConcurrentRenders: 4,
		RenderQueueTimeout:   Duration(10 * time.Second),
		WarmupTimeout:        Duration(15 * time.Second),
	}
}

// LoadConfig loads configuration from a YAML or JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigSize)
	}

	var cfg Config
	if len(strings.TrimSpace(string(data))) == 0 {
		return &cfg, nil
	}
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: the file at path (optional), then
// environment overrides, then defaults for anything still unset.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv()
	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	c.Port = getEnvInt("PORT", c.Port)
	c.FontDir = getEnvString("FONT_DIR", c.FontDir)
	c.WatermarkDir = getEnvString("WATERMARK_DIR", c.WatermarkDir)
	c.PageSize = getEnvString("PAGE_SIZE", c.PageSize)
	c.WatermarkPixels = getEnvInt("WATERMARK_PIXELS", c.WatermarkPixels)
	c.MaxConcurrentRenders = getEnvInt("MAX_CONCURRENT_RENDERS", c.MaxConcurrentRenders)
	c.MaxConnections = getEnvInt("MAX_CONNECTIONS", c.MaxConnections)
	c.MaxImagePixels = getEnvInt("MAX_IMAGE_PIXELS", c.MaxImagePixels)
	c.WarmupTimeout = Duration(getEnvDuration("WARMUP_TIMEOUT", c.WarmupTimeout.Std()))
	c.RenderQueueTimeout = Duration(getEnvDuration("RENDER_QUEUE_TIMEOUT", c.RenderQueueTimeout.Std()))
	if origins := getEnvString("CORS_ORIGINS", ""); origins != "" {
		c.CORSOrigins = splitList(origins)
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config error: 'port' must be between 0 and 65535"))
	}
	if c.MaxConcurrentRenders < 0 {
		errs = append(errs, fmt.Errorf("config error: 'max_concurrent_renders' must be non-negative"))
	}
	if c.MaxImagePixels < 0 {
		errs = append(errs, fmt.Errorf("config error: 'max_image_pixels' must be non-negative"))
	}
	if c.WatermarkPixels < 0 {
		errs = append(errs, fmt.Errorf("config error: 'watermark_pixels' must be non-negative"))
	}
	if c.WatermarkOpacity < 0 || c.WatermarkOpacity > 1 {
		errs = append(errs, fmt.Errorf("config error: 'watermark_opacity' must be between 0 and 1"))
	}
	if c.PageSize != "" && !validPageSize(c.PageSize) {
		errs = append(errs, fmt.Errorf("config error: unsupported page size %q", c.PageSize))
	}

	// Validate directories exist (if specified)
	if c.FontDir != "" {
		if info, err := os.Stat(c.FontDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("config error: font directory not found: %s", c.FontDir))
		}
	}
	if c.WatermarkDir != "" {
		if info, err := os.Stat(c.WatermarkDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("config error: watermark directory not found: %s", c.WatermarkDir))
		}
	}

	return errors.Join(errs...)
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if len(result.CORSOrigins) == 0 {
		result.CORSOrigins = defaults.CORSOrigins
	}
	if result.MaxConnections == 0 {
		result.MaxConnections = defaults.MaxConnections
	}
	if result.MaxUploadBytes == 0 {
		result.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if result.MaxImagePixels == 0 {
		result.MaxImagePixels = defaults.MaxImagePixels
	}
	if result.ShutdownTimeout == 0 {
		result.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if result.FontDir == "" {
		result.FontDir = defaults.FontDir
	}
	if result.WatermarkDir == "" {
		result.WatermarkDir = defaults.WatermarkDir
	}
	if result.PageSize == "" {
		result.PageSize = defaults.PageSize
	}
	if result.Margin == 0 {
		result.Margin = defaults.Margin
	}
	if result.WatermarkPixels == 0 {
		result.WatermarkPixels = defaults.WatermarkPixels
	}
	if result.WatermarkSize == 0 {
		result.WatermarkSize = defaults.WatermarkSize
	}
	if result.WatermarkOpacity == 0 {
		result.WatermarkOpacity = defaults.WatermarkOpacity
	}
	if result.MaxConcurrentRenders == 0 {
		result.MaxConcurrentRenders = defaults.MaxConcurrentRenders
	}
	if result.RenderQueueTimeout == 0 {
		result.RenderQueueTimeout = defaults.RenderQueueTimeout
	}
	if result.WarmupTimeout == 0 {
		result.WarmupTimeout = defaults.WarmupTimeout
	}

	return result
}

func validPageSize(s string) bool {
	switch strings.ToLower(s) {
	case "letter", "legal", "a4", "a5":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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
