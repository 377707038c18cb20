package config

import "time"

// Config holds runtime settings for the license CLI.
//
// Fields:
//   - ServerAddr: host:port of the license listener.
//   - DialTimeout: bound on establishing the connection.
//   - ReplyTimeout: bound on waiting for a response or the payload.
type Config struct {
	ServerAddr   string
	DialTimeout  time.Duration
	ReplyTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:8401"
	c.DialTimeout = 5 * time.Second
	c.ReplyTimeout = 30 * time.Second
}

// LoadConfig constructs a Config from defaults, then overlays the JSON file
// at path when path is not empty. Command-line flags are applied by the
// caller on top.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path == "" {
		return cfg, nil
	}
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
