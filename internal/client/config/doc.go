// Package config loads runtime configuration for the license CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file passed with -c / --config.
//  3. Command-line flags (-a / --addr, -t / --timeout), bound by the CLI,
//     which override earlier values.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for timeouts, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_addr": "127.0.0.1:8401",
//	  "dial_timeout": "5s",
//	  "reply_timeout": "30s"
//	}
package config
