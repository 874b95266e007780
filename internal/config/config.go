package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the daemon config stored at <data>/config.toml.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `toml:"listen_addr"`
	// BusinessNumber is the phone number of the business side of every
	// conversation.
	BusinessNumber string `toml:"business_number"`
	// DeliveredDelay is how long after a send the message is marked delivered.
	DeliveredDelay duration `toml:"delivered_delay"`
	// ReadDelay is how long after a send the message is marked read.
	ReadDelay duration `toml:"read_delay"`
	// RateLimitPerMinute caps HTTP requests per client IP. 0 disables.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// duration wraps time.Duration for TOML string encoding ("1s", "500ms").
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the config used when no file exists.
func Default() *Config {
	return &Config{
		ListenAddr:         "127.0.0.1:5050",
		BusinessNumber:     "918329446654",
		DeliveredDelay:     duration(time.Second),
		ReadDelay:          duration(3 * time.Second),
		RateLimitPerMinute: 300,
	}
}

// DeliveredAfter returns the delivered delay as a time.Duration.
func (c *Config) DeliveredAfter() time.Duration { return time.Duration(c.DeliveredDelay) }

// ReadAfter returns the read delay as a time.Duration.
func (c *Config) ReadAfter() time.Duration { return time.Duration(c.ReadDelay) }

// Load reads config from the given path, filling unset fields with defaults.
// A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = Default().ListenAddr
	}
	if cfg.BusinessNumber == "" {
		cfg.BusinessNumber = Default().BusinessNumber
	}
	if cfg.DeliveredDelay <= 0 {
		cfg.DeliveredDelay = Default().DeliveredDelay
	}
	if cfg.ReadDelay <= 0 {
		cfg.ReadDelay = Default().ReadDelay
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
