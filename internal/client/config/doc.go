// Package config loads runtime configuration for the ojtauth client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config, or $OJT_CONFIG.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "data_dir": ".ojtauth",
//	  "request_timeout": "10s",
//	  "online_check_interval": "3s"
//	}
package config
