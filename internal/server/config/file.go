package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/flagx"
	"github.com/dmitrijs2005/gophlicense/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Duration fields accept
// strings such as "4h" or integer nanoseconds. Absent fields keep the value
// already present in Config.
type FileConfig struct {
	ListenAddr          string         `json:"listen_addr" yaml:"listen_addr"`
	DatabaseDriver      string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN         string         `json:"database_dsn" yaml:"database_dsn"`
	AdminName           string         `json:"admin_name" yaml:"admin_name"`
	AdminPassword       string         `json:"admin_password" yaml:"admin_password"`
	RequestTimeout      timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	OpTimeout           timex.Duration `json:"op_timeout" yaml:"op_timeout"`
	DeliveryTimeout     timex.Duration `json:"delivery_timeout" yaml:"delivery_timeout"`
	AcceptRate          float64        `json:"accept_rate" yaml:"accept_rate"`
	AcceptBurst         int            `json:"accept_burst" yaml:"accept_burst"`
	LivenessInterval    timex.Duration `json:"liveness_interval" yaml:"liveness_interval"`
	LivenessTimeout     timex.Duration `json:"liveness_timeout" yaml:"liveness_timeout"`
	LivenessParallelism int            `json:"liveness_parallelism" yaml:"liveness_parallelism"`
	ExpiryCheckInterval timex.Duration `json:"expiry_check_interval" yaml:"expiry_check_interval"`
	ExpiryThreshold     timex.Duration `json:"expiry_threshold" yaml:"expiry_threshold"`
	KeyMaxAge           timex.Duration `json:"key_max_age" yaml:"key_max_age"`
	PayloadImage        string         `json:"payload_image" yaml:"payload_image"`
	PayloadOffsets      string         `json:"payload_offsets" yaml:"payload_offsets"`
	S3RootUser          string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Region            string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	MetricsAddr         *string        `json:"metrics_addr" yaml:"metrics_addr"`
	EndpointAddrGRPC    *string        `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	NatsURL             string         `json:"nats_url" yaml:"nats_url"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
	ConnLogPath         string         `json:"conn_log_path" yaml:"conn_log_path"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON. A missing flag
// means no file; an unreadable or malformed file panics, like a bad flag.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.ListenAddr, fc.ListenAddr)
	setString(&c.DatabaseDriver, fc.DatabaseDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.AdminName, fc.AdminName)
	setString(&c.AdminPassword, fc.AdminPassword)
	setDuration(&c.RequestTimeout, fc.RequestTimeout)
	setDuration(&c.OpTimeout, fc.OpTimeout)
	setDuration(&c.DeliveryTimeout, fc.DeliveryTimeout)
	if fc.AcceptRate > 0 {
		c.AcceptRate = fc.AcceptRate
	}
	if fc.AcceptBurst > 0 {
		c.AcceptBurst = fc.AcceptBurst
	}
	setDuration(&c.LivenessInterval, fc.LivenessInterval)
	setDuration(&c.LivenessTimeout, fc.LivenessTimeout)
	if fc.LivenessParallelism > 0 {
		c.LivenessParallelism = fc.LivenessParallelism
	}
	setDuration(&c.ExpiryCheckInterval, fc.ExpiryCheckInterval)
	setDuration(&c.ExpiryThreshold, fc.ExpiryThreshold)
	setDuration(&c.KeyMaxAge, fc.KeyMaxAge)
	setString(&c.PayloadImage, fc.PayloadImage)
	setString(&c.PayloadOffsets, fc.PayloadOffsets)
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	// pointers: an explicit "" disables the endpoint
	if fc.MetricsAddr != nil {
		c.MetricsAddr = *fc.MetricsAddr
	}
	if fc.EndpointAddrGRPC != nil {
		c.EndpointAddrGRPC = *fc.EndpointAddrGRPC
	}
	setString(&c.NatsURL, fc.NatsURL)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.ConnLogPath, fc.ConnLogPath)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
