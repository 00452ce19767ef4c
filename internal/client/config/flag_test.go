package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{name: "all flags", args: []string{"-a", "http://h:9090", "-g", "h:1", "-d", "/data", "-l", "debug", "-t", "5", "-i", "10"},
			expected: &Config{ServerURL: "http://h:9090", HealthAddr: "h:1", DataDir: "/data", LogLevel: "debug", RequestTimeout: 5 * time.Second, OnlineCheckInterval: 10 * time.Second}},
		{name: "unknown flags ignored", args: []string{"login", "-x", "1"},
			expected: &Config{}},
		{name: "incorrect check interval", args: []string{"-i", "abc"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}
			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(config, tt.expected))
		})
	}
}
