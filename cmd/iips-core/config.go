package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	listenAddr      string
	listenExplicit  bool
	peerAddr        string
	peerExplicit    bool
	settingsPath    string
	planDir         string
	watchdogTO      time.Duration
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	redisAddr       string
	redisPassword   string
	redisDB         int
	redisChannel    string
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":8001", "UDP listen address (overrides the settings file's qgcPort when set)")
	peer := flag.String("peer", "", "Restrict traffic to this peer address (host:port); overrides the settings file's iipsIp/iipsPort when set; an explicitly empty value accepts any")
	settingsPath := flag.String("settings", "iips-settings.yaml", "Path to the IIPS settings YAML file")
	planDir := flag.String("plan-dir", ".", "Directory mission .plan files are written to")
	watchdogTO := flag.Duration("watchdog-timeout", 3*time.Second, "Heartbeat watchdog timeout")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	redisAddr := flag.String("redis-addr", "", "Redis address for external event publishing; empty disables")
	redisPassword := flag.String("redis-password", "", "Redis password")
	redisDB := flag.Int("redis-db", 0, "Redis database index")
	redisChannel := flag.String("redis-channel", "iips-events", "Redis pub/sub channel for published events")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS advertisement of the UDP port")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default iips-core-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.listenAddr = *listen
	_, cfg.listenExplicit = setFlags["listen"]
	cfg.peerAddr = *peer
	_, cfg.peerExplicit = setFlags["peer"]
	cfg.settingsPath = *settingsPath
	cfg.planDir = *planDir
	cfg.watchdogTO = *watchdogTO
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.redisAddr = *redisAddr
	cfg.redisPassword = *redisPassword
	cfg.redisDB = *redisDB
	cfg.redisChannel = *redisChannel
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.watchdogTO <= 0 {
		return fmt.Errorf("watchdog-timeout must be > 0")
	}
	if c.redisDB < 0 {
		return fmt.Errorf("redis-db must be >= 0")
	}
	return nil
}

// applyEnvOverrides maps IIPS_CORE_* environment variables to config fields
// unless a corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["listen"]; !ok {
		if v, ok := get("IIPS_CORE_LISTEN"); ok && v != "" {
			c.listenAddr = v
			c.listenExplicit = true
		}
	}
	if _, ok := set["peer"]; !ok {
		if v, ok := get("IIPS_CORE_PEER"); ok {
			c.peerAddr = v
			c.peerExplicit = true
		}
	}
	if _, ok := set["settings"]; !ok {
		if v, ok := get("IIPS_CORE_SETTINGS"); ok && v != "" {
			c.settingsPath = v
		}
	}
	if _, ok := set["plan-dir"]; !ok {
		if v, ok := get("IIPS_CORE_PLAN_DIR"); ok && v != "" {
			c.planDir = v
		}
	}
	if _, ok := set["watchdog-timeout"]; !ok {
		if v, ok := get("IIPS_CORE_WATCHDOG_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.watchdogTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid IIPS_CORE_WATCHDOG_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("IIPS_CORE_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("IIPS_CORE_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("IIPS_CORE_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["redis-addr"]; !ok {
		if v, ok := get("IIPS_CORE_REDIS_ADDR"); ok {
			c.redisAddr = v
		}
	}
	if _, ok := set["redis-password"]; !ok {
		if v, ok := get("IIPS_CORE_REDIS_PASSWORD"); ok {
			c.redisPassword = v
		}
	}
	if _, ok := set["redis-db"]; !ok {
		if v, ok := get("IIPS_CORE_REDIS_DB"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				c.redisDB = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid IIPS_CORE_REDIS_DB: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("IIPS_CORE_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("IIPS_CORE_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("IIPS_CORE_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid IIPS_CORE_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	return firstErr
}
