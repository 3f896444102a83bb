package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Plugin names accepted by PLUGIN_ORDER.
const (
	PluginShizukuDB = "shizukudb"
	PluginSIATA     = "siata"
	PluginInflux    = "influx"
)

var knownPlugins = []string{PluginShizukuDB, PluginSIATA, PluginInflux}

// InfluxConfig locates the telemetry bucket. The plugin is enabled when URL is set.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Config holds environment-driven settings for the synthesis API.
type Config struct {
	Port        int
	BearerToken string
	LogLevel    string

	DatabaseURL string

	SIATAEnabled        bool
	SIATACurrentURL     string
	SIATARequestTimeout time.Duration

	Influx InfluxConfig

	// PluginOrder is the registration order of the enabled plugins.
	PluginOrder []string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:                8080,
		LogLevel:            "INFO",
		SIATAEnabled:        true,
		SIATARequestTimeout: 15 * time.Second,
		Influx: InfluxConfig{
			Bucket:      "precipitation",
			Measurement: "gauges",
		},
		PluginOrder: knownPlugins,
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToUpper(level)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if enabled := os.Getenv("SIATA_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return cfg, fmt.Errorf("invalid SIATA_ENABLED: %s", enabled)
		}
		cfg.SIATAEnabled = v
	}
	cfg.SIATACurrentURL = os.Getenv("SIATA_CURRENT_URL")
	if timeout := os.Getenv("SIATA_REQUEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("invalid SIATA_REQUEST_TIMEOUT: %s", timeout)
		}
		cfg.SIATARequestTimeout = d
	}

	cfg.Influx.URL = os.Getenv("INFLUXDB_URL")
	cfg.Influx.Token = os.Getenv("INFLUXDB_TOKEN")
	cfg.Influx.Org = os.Getenv("INFLUXDB_ORG")
	if bucket := os.Getenv("INFLUXDB_BUCKET"); bucket != "" {
		cfg.Influx.Bucket = bucket
	}
	if measurement := os.Getenv("INFLUXDB_MEASUREMENT"); measurement != "" {
		cfg.Influx.Measurement = measurement
	}
	if cfg.Influx.URL != "" && cfg.Influx.Org == "" {
		return cfg, errors.New("INFLUXDB_ORG is required when INFLUXDB_URL is set")
	}

	if order := os.Getenv("PLUGIN_ORDER"); order != "" {
		names, err := parsePluginOrder(order)
		if err != nil {
			return cfg, err
		}
		cfg.PluginOrder = names
	}

	if len(cfg.EnabledPlugins()) == 0 {
		return cfg, errors.New("no datasource enabled: set DATABASE_URL, SIATA_ENABLED or INFLUXDB_URL")
	}

	return cfg, nil
}

func parsePluginOrder(order string) ([]string, error) {
	names := make([]string, 0, len(knownPlugins))
	for _, part := range strings.Split(order, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		known := false
		for _, k := range knownPlugins {
			known = known || k == name
		}
		if !known {
			return nil, fmt.Errorf("invalid PLUGIN_ORDER entry: %s", part)
		}
		for _, n := range names {
			if n == name {
				return nil, fmt.Errorf("duplicate PLUGIN_ORDER entry: %s", name)
			}
		}
		names = append(names, name)
	}
	return names, nil
}

// Enabled reports whether the named plugin has the settings it needs.
func (c Config) Enabled(name string) bool {
	switch name {
	case PluginShizukuDB:
		return c.DatabaseURL != ""
	case PluginSIATA:
		return c.SIATAEnabled
	case PluginInflux:
		return c.Influx.URL != ""
	}
	return false
}

// EnabledPlugins returns the enabled plugins in registration order.
func (c Config) EnabledPlugins() []string {
	out := make([]string, 0, len(c.PluginOrder))
	for _, name := range c.PluginOrder {
		if c.Enabled(name) {
			out = append(out, name)
		}
	}
	return out
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
