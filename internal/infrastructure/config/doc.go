// Package config handles loading and validating devicehub configuration.
//
// Configuration is layered: hardcoded defaults, then the YAML file, then
// DEVICEHUB_* environment variables. Validate reports every problem at once
// so a misconfigured deployment fails fast with a complete list.
//
// Secrets (database DSN, MQTT password, InfluxDB token, JWT secret) should
// be supplied through the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config
