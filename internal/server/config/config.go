// Package config handles configuration for the license server, including
// defaults, a JSON or YAML file overlay, environment variables and
// command-line flags. Later sources take precedence over earlier ones.
package config

import "time"

// Config holds runtime settings for the license server.
//
// Fields:
//   - ListenAddr: bind address for the license request listener.
//   - DatabaseDriver / DatabaseDSN: "sqlite" (file path DSN) or "postgres" (pgx DSN).
//   - AdminName / AdminPassword: shared secret gating ADDKEY and VALIDATE.
//     The defaults are for development only; rotate them through the
//     environment or flags.
//   - RequestTimeout: deadline for reading one request record.
//   - OpTimeout: deadline for store work and writing the response.
//   - DeliveryTimeout: deadline for streaming the payload after a login.
//   - AcceptRate / AcceptBurst: token bucket applied to accepted connections.
//   - Liveness*: session probe cadence, per-probe deadline and fan-out.
//   - Expiry*: expiry sweeper wake-up interval, re-run threshold and key age.
//   - PayloadImage / PayloadOffsets: local paths or s3://bucket/key locations.
//   - S3*: credentials and endpoint for the S3-compatible payload backend.
//   - MetricsAddr: Prometheus and admin HTTP endpoint ("" disables it).
//   - EndpointAddrGRPC: gRPC health endpoint ("" disables it).
//   - NatsURL: lifecycle event bus ("" disables publication).
//   - LogLevel: debug, info, warn or error.
//   - ConnLogPath: append-only connection log file ("" disables it).
type Config struct {
	ListenAddr          string
	DatabaseDriver      string
	DatabaseDSN         string
	AdminName           string
	AdminPassword       string
	RequestTimeout      time.Duration
	OpTimeout           time.Duration
	DeliveryTimeout     time.Duration
	AcceptRate          float64
	AcceptBurst         int
	LivenessInterval    time.Duration
	LivenessTimeout     time.Duration
	LivenessParallelism int
	ExpiryCheckInterval time.Duration
	ExpiryThreshold     time.Duration
	KeyMaxAge           time.Duration
	PayloadImage        string
	PayloadOffsets      string
	S3RootUser          string
	S3RootPassword      string
	S3Region            string
	S3BaseEndpoint      string
	MetricsAddr         string
	EndpointAddrGRPC    string
	NatsURL             string
	LogLevel            string
	ConnLogPath         string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the admin credentials are insecure and must be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8401"
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "data.db"
	c.AdminName = "admin"
	c.AdminPassword = "changeme"
	c.RequestTimeout = 10 * time.Second
	c.OpTimeout = 10 * time.Second
	c.DeliveryTimeout = 2 * time.Minute
	c.AcceptRate = 50
	c.AcceptBurst = 100
	c.LivenessInterval = 1 * time.Second
	c.LivenessTimeout = 3 * time.Second
	c.LivenessParallelism = 16
	c.ExpiryCheckInterval = 1 * time.Hour
	c.ExpiryThreshold = 4 * time.Hour
	c.KeyMaxAge = 30 * 24 * time.Hour
	c.PayloadImage = "payload/client.exe"
	c.PayloadOffsets = "payload/offsets.txt"
	c.S3RootUser = ""
	c.S3RootPassword = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
	c.MetricsAddr = ":9090"
	c.EndpointAddrGRPC = ":50051"
	c.NatsURL = ""
	c.LogLevel = "info"
	c.ConnLogPath = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line
// flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
