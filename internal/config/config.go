package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	NATS      NATSConfig      `yaml:"nats"`
	JWT       JWTConfig       `yaml:"jwt"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig represents server identity
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents the REST API listener
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// UpstreamConfig represents the panel datastore the gateway reads device
// profiles from and writes customer metadata to
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// GatewayConfig represents device-facing connection policy
type GatewayConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LegacyPort     int           `yaml:"legacy_port"`
	LegacyTLSPort  int           `yaml:"legacy_tls_port"`
}

// TelemetryConfig represents the traffic rate engine
type TelemetryConfig struct {
	WindowSize  int           `yaml:"window_size"`
	MinInterval time.Duration `yaml:"min_interval"`
	NATSSubject string        `yaml:"nats_subject"`
}

// TerminalConfig represents the terminal bridge
type TerminalConfig struct {
	SSHPort     int           `yaml:"ssh_port"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// NATSConfig represents the optional NATS connection for telemetry fan-out
type NATSConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// AdminConfig represents the panel operator account
type AdminConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from a YAML file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if base := os.Getenv("UPSTREAM_URL"); base != "" {
		c.Upstream.BaseURL = base
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
}

// setDefaults fills unset fields with working defaults
func (c *Config) setDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8088
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 10 * time.Second
	}
	if c.Gateway.RequestTimeout == 0 {
		c.Gateway.RequestTimeout = 15 * time.Second
	}
	if c.Gateway.LegacyPort == 0 {
		c.Gateway.LegacyPort = 8728
	}
	if c.Gateway.LegacyTLSPort == 0 {
		c.Gateway.LegacyTLSPort = 8729
	}
	if c.Telemetry.WindowSize == 0 {
		c.Telemetry.WindowSize = 60
	}
	if c.Telemetry.MinInterval == 0 {
		c.Telemetry.MinInterval = 100 * time.Millisecond
	}
	if c.Telemetry.NATSSubject == "" {
		c.Telemetry.NATSSubject = "telemetry.device"
	}
	if c.Terminal.SSHPort == 0 {
		c.Terminal.SSHPort = 22
	}
	if c.Terminal.DialTimeout == 0 {
		c.Terminal.DialTimeout = 10 * time.Second
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
