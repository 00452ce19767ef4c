package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/ojtauth/internal/flagx"
	"github.com/dmitrijs2005/ojtauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations may
// be strings like "3s" or integer nanoseconds. Absent keys leave the current
// value alone.
type JsonConfig struct {
	ServerURL           *string         `json:"server_url"`
	HealthAddr          *string         `json:"health_addr"`
	DataDir             *string         `json:"data_dir"`
	LogLevel            *string         `json:"log_level"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config, or $OJT_CONFIG.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	for dst, v := range map[*string]*string{
		&cfg.ServerURL:  jc.ServerURL,
		&cfg.HealthAddr: jc.HealthAddr,
		&cfg.DataDir:    jc.DataDir,
		&cfg.LogLevel:   jc.LogLevel,
	} {
		if v != nil {
			*dst = *v
		}
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	return nil
}
