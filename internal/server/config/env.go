package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces the environment, e.g. LICENSED_ADMIN_PASSWORD.
const envPrefix = "LICENSED"

// EnvConfig mirrors Config for envconfig. It is pre-filled from the current
// Config so variables that are not set leave values untouched.
type EnvConfig struct {
	ListenAddr          string        `envconfig:"LISTEN_ADDR"`
	DatabaseDriver      string        `envconfig:"DATABASE_DRIVER"`
	DatabaseDSN         string        `envconfig:"DATABASE_DSN"`
	AdminName           string        `envconfig:"ADMIN_NAME"`
	AdminPassword       string        `envconfig:"ADMIN_PASSWORD"`
	RequestTimeout      time.Duration `envconfig:"REQUEST_TIMEOUT"`
	OpTimeout           time.Duration `envconfig:"OP_TIMEOUT"`
	DeliveryTimeout     time.Duration `envconfig:"DELIVERY_TIMEOUT"`
	AcceptRate          float64       `envconfig:"ACCEPT_RATE"`
	AcceptBurst         int           `envconfig:"ACCEPT_BURST"`
	LivenessInterval    time.Duration `envconfig:"LIVENESS_INTERVAL"`
	LivenessTimeout     time.Duration `envconfig:"LIVENESS_TIMEOUT"`
	LivenessParallelism int           `envconfig:"LIVENESS_PARALLELISM"`
	ExpiryCheckInterval time.Duration `envconfig:"EXPIRY_CHECK_INTERVAL"`
	ExpiryThreshold     time.Duration `envconfig:"EXPIRY_THRESHOLD"`
	KeyMaxAge           time.Duration `envconfig:"KEY_MAX_AGE"`
	PayloadImage        string        `envconfig:"PAYLOAD_IMAGE"`
	PayloadOffsets      string        `envconfig:"PAYLOAD_OFFSETS"`
	S3RootUser          string        `envconfig:"S3_ROOT_USER"`
	S3RootPassword      string        `envconfig:"S3_ROOT_PASSWORD"`
	S3Region            string        `envconfig:"S3_REGION"`
	S3BaseEndpoint      string        `envconfig:"S3_BASE_ENDPOINT"`
	MetricsAddr         string        `envconfig:"METRICS_ADDR"`
	EndpointAddrGRPC    string        `envconfig:"GRPC_ADDR"`
	NatsURL             string        `envconfig:"NATS_URL"`
	LogLevel            string        `envconfig:"LOG_LEVEL"`
	ConnLogPath         string        `envconfig:"CONN_LOG_PATH"`
}

// parseEnv overlays LICENSED_* environment variables onto config.
// A malformed value (e.g. a bad duration) panics.
func parseEnv(config *Config) {
	ec := EnvConfig(*config)
	if err := envconfig.Process(envPrefix, &ec); err != nil {
		panic(err)
	}
	*config = Config(ec)
}
