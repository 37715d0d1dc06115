// Package config provides configuration loading and management for edgarbridge.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/c360studio/edgarbridge/edgar"
	"github.com/c360studio/edgarbridge/mcp"
	"github.com/c360studio/edgarbridge/output/publisher"
	"github.com/c360studio/edgarbridge/source/weburl"
	"gopkg.in/yaml.v3"
)

// DefaultServerURL is the MCP server used when nothing else is configured.
const DefaultServerURL = mcp.DefaultServerURL

// Config represents the complete edgarbridge configuration
type Config struct {
	MCP     MCPConfig     `yaml:"mcp"`
	SEC     SECConfig     `yaml:"sec"`
	NATS    NATSConfig    `yaml:"nats"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// MCPConfig configures the browser-automation server connection
type MCPConfig struct {
	// ServerURL is the MCP server base URL (local service policy applies)
	ServerURL string `yaml:"server_url"`
	// Timeout bounds each MCP command
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit is the maximum navigations per second (0 = unlimited)
	RateLimit float64 `yaml:"rate_limit"`
	// Burst is the navigation burst size
	Burst int `yaml:"burst"`
	// UserAgent is sent with every MCP request
	UserAgent string `yaml:"user_agent"`
}

// SECConfig configures filing lookup
type SECConfig struct {
	// DocumentPatterns are doublestar path patterns a document link must match
	DocumentPatterns []string `yaml:"document_patterns"`
	// MaxCandidates caps the filings listed from one browse page
	MaxCandidates int `yaml:"max_candidates"`
}

// NATSConfig configures filing publication
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled)
	URL string `yaml:"url"`
	// SubjectPrefix is prepended to "<cik>.<form>" subjects
	SubjectPrefix string `yaml:"subject_prefix"`
}

// LoggingConfig configures the slog handler
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is text or json
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MCP: MCPConfig{
			ServerURL: DefaultServerURL,
			Timeout:   mcp.DefaultTimeout,
			RateLimit: mcp.DefaultRateLimit,
			Burst:     mcp.DefaultBurst,
			UserAgent: mcp.DefaultUserAgent,
		},
		SEC: SECConfig{
			DocumentPatterns: append([]string(nil), edgar.DefaultDocumentPatterns...),
			MaxCandidates:    edgar.DefaultMaxCandidates,
		},
		NATS: NATSConfig{
			URL:           "",
			SubjectPrefix: publisher.DefaultSubjectPrefix,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.MCP.ServerURL == "" {
		return fmt.Errorf("mcp.server_url is required")
	}
	policy := weburl.LocalServicePolicy()
	if res := weburl.Validate(context.Background(), c.MCP.ServerURL, policy); !res.OK() {
		return fmt.Errorf("mcp.server_url: %w", res.Err(c.MCP.ServerURL, policy))
	}
	if c.MCP.Timeout <= 0 {
		return fmt.Errorf("mcp.timeout must be positive")
	}
	if c.MCP.RateLimit < 0 {
		return fmt.Errorf("mcp.rate_limit must not be negative")
	}
	if c.MCP.RateLimit > 0 && c.MCP.Burst < 1 {
		return fmt.Errorf("mcp.burst must be at least 1 when mcp.rate_limit is set")
	}

	if len(c.SEC.DocumentPatterns) == 0 {
		return fmt.Errorf("sec.document_patterns must not be empty")
	}
	for _, p := range c.SEC.DocumentPatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("sec.document_patterns: invalid pattern %q", p)
		}
	}
	if c.SEC.MaxCandidates < 1 || c.SEC.MaxCandidates > 100 {
		return fmt.Errorf("sec.max_candidates must be between 1 and 100")
	}

	if c.NATS.URL != "" && !validSubjectPrefix(c.NATS.SubjectPrefix) {
		return fmt.Errorf("nats.subject_prefix %q is not a valid subject", c.NATS.SubjectPrefix)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

// validSubjectPrefix rejects empty tokens, whitespace and wildcards.
func validSubjectPrefix(prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, tok := range strings.Split(prefix, ".") {
		if tok == "" || strings.ContainsAny(tok, " \t\r\n*>") {
			return false
		}
	}
	return true
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// MCP
	if other.MCP.ServerURL != "" {
		c.MCP.ServerURL = other.MCP.ServerURL
	}
	if other.MCP.Timeout != 0 {
		c.MCP.Timeout = other.MCP.Timeout
	}
	if other.MCP.RateLimit != 0 {
		c.MCP.RateLimit = other.MCP.RateLimit
	}
	if other.MCP.Burst != 0 {
		c.MCP.Burst = other.MCP.Burst
	}
	if other.MCP.UserAgent != "" {
		c.MCP.UserAgent = other.MCP.UserAgent
	}

	// SEC
	if len(other.SEC.DocumentPatterns) > 0 {
		c.SEC.DocumentPatterns = other.SEC.DocumentPatterns
	}
	if other.SEC.MaxCandidates != 0 {
		c.SEC.MaxCandidates = other.SEC.MaxCandidates
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
