package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophlicense/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify timeouts either as
// strings like "3s" or as integer nanoseconds. Absent fields keep the
// value already in Config.
type JsonConfig struct {
	ServerAddr   *string         `json:"server_addr"`
	DialTimeout  *timex.Duration `json:"dial_timeout"`
	ReplyTimeout *timex.Duration `json:"reply_timeout"`
}

// parseJson overlays cfg with values loaded from the JSON file at path.
func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerAddr != nil {
		cfg.ServerAddr = *jc.ServerAddr
	}
	if jc.DialTimeout != nil {
		cfg.DialTimeout = time.Duration(jc.DialTimeout.Duration)
	}
	if jc.ReplyTimeout != nil {
		cfg.ReplyTimeout = time.Duration(jc.ReplyTimeout.Duration)
	}
	return nil
}
