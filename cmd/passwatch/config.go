package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"runtime"
	"strconv"
	"time"

	"github.com/star/passwatch/internal/auth"
	"github.com/star/passwatch/internal/httputil"
	"github.com/star/passwatch/internal/logging"
	"github.com/star/passwatch/internal/passes"
	"github.com/star/passwatch/internal/tle"
)

// config is everything the server reads from the environment.
type config struct {
	Addr           string
	Satellites     []tle.Definition
	TLEURL         string
	TLEMaxAge      time.Duration
	TLERetry       time.Duration
	TLECacheDir    string
	Pass           passes.Config
	ResponseTTL    time.Duration
	MaxSearches    int
	Workers        int
	Auth           auth.Config
	TrustedProxies []netip.Prefix
}

// env reads one variable. ok distinguishes unset from set to the empty string;
// os.LookupEnv satisfies it.
type env func(name string) (value string, ok bool)

func (e env) get(name string) string {
	v, _ := e(name)
	return v
}

func loadLogConfig(getenv env) logging.Config {
	return logging.Config{
		Level: getenv.get("PASSWATCH_LOG_LEVEL"),
		File:  getenv.get("PASSWATCH_LOG_FILE"),
	}
}

// loadConfig reads the PASSWATCH_* variables. Malformed tuning values log a warning
// and keep their default; malformed satellites, auth or proxy settings are errors.
func loadConfig(getenv env, logger *slog.Logger) (config, error) {
	cfg := config{
		Addr:        ":5000",
		TLEURL:      tle.DefaultSourceURL,
		TLEMaxAge:   180 * time.Minute,
		TLERetry:    60 * time.Second,
		TLECacheDir: "/tmp/passwatch/tle",
		Pass: passes.Config{
			CoarseStep:  60 * time.Second,
			Tolerance:   time.Second,
			MaxRefine:   64,
			TwilightDeg: passes.DefaultTwilightDeg,
		},
		ResponseTTL: 30 * time.Second,
		MaxSearches: 4,
		Workers:     runtime.NumCPU(),
	}

	if v := getenv.get("PASSWATCH_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	sats := getenv.get("PASSWATCH_SATELLITES")
	if sats == "" {
		sats = tle.DefaultDefinitions
	}
	defs, err := tle.ParseDefinitions(sats)
	if err != nil {
		return cfg, fmt.Errorf("PASSWATCH_SATELLITES: %w", err)
	}
	cfg.Satellites = defs

	if v := getenv.get("PASSWATCH_TLE_URL"); v != "" {
		cfg.TLEURL = v
	}

	// An explicitly empty cache dir disables the disk cache.
	if v, ok := getenv("PASSWATCH_TLE_CACHE_DIR"); ok {
		cfg.TLECacheDir = v
	}

	cfg.TLEMaxAge = secondsEnv(getenv, logger, "PASSWATCH_TLE_MAX_AGE", cfg.TLEMaxAge, 1)
	cfg.TLERetry = secondsEnv(getenv, logger, "PASSWATCH_TLE_RETRY", cfg.TLERetry, 0)
	cfg.Pass.CoarseStep = secondsEnv(getenv, logger, "PASSWATCH_PASS_COARSE_STEP", cfg.Pass.CoarseStep, 1)
	cfg.Pass.Tolerance = secondsEnv(getenv, logger, "PASSWATCH_PASS_TOLERANCE", cfg.Pass.Tolerance, 1)
	cfg.Pass.MaxRefine = intEnv(getenv, logger, "PASSWATCH_PASS_MAX_REFINE", cfg.Pass.MaxRefine, 1)
	cfg.ResponseTTL = secondsEnv(getenv, logger, "PASSWATCH_RESPONSE_TTL", cfg.ResponseTTL, 0)
	cfg.MaxSearches = intEnv(getenv, logger, "PASSWATCH_MAX_SEARCHES_PER_IP", cfg.MaxSearches, 0)
	cfg.Workers = intEnv(getenv, logger, "PASSWATCH_WORKERS", cfg.Workers, 1)

	if v := getenv.get("PASSWATCH_TWILIGHT_DEG"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < -18 || f >= 0 {
			logger.Warn("invalid PASSWATCH_TWILIGHT_DEG value, using default", "value", v, "default", cfg.Pass.TwilightDeg)
		} else {
			cfg.Pass.TwilightDeg = f
		}
	}

	if cfg.Auth, err = loadAuthConfig(getenv, logger); err != nil {
		return cfg, err
	}

	if v := getenv.get("PASSWATCH_TRUSTED_PROXIES"); v != "" {
		if cfg.TrustedProxies, err = httputil.ParsePrefixes(v); err != nil {
			return cfg, fmt.Errorf("PASSWATCH_TRUSTED_PROXIES: %w", err)
		}
	}

	logger.Info("config",
		"addr", cfg.Addr,
		"satellites", len(cfg.Satellites),
		"tle_url", cfg.TLEURL,
		"tle_max_age_seconds", cfg.TLEMaxAge.Seconds(),
		"tle_retry_seconds", cfg.TLERetry.Seconds(),
		"tle_cache_dir", cfg.TLECacheDir,
		"pass_coarse_step_seconds", cfg.Pass.CoarseStep.Seconds(),
		"pass_tolerance_seconds", cfg.Pass.Tolerance.Seconds(),
		"pass_max_refine", cfg.Pass.MaxRefine,
		"twilight_deg", cfg.Pass.TwilightDeg,
		"response_ttl_seconds", cfg.ResponseTTL.Seconds(),
		"max_searches_per_ip", cfg.MaxSearches,
		"workers", cfg.Workers,
		"trusted_proxies", len(cfg.TrustedProxies),
	)
	return cfg, nil
}

func loadAuthConfig(getenv env, logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := getenv.get("PASSWATCH_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("PASSWATCH_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = getenv.get("PASSWATCH_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("PASSWATCH_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func secondsEnv(getenv env, logger *slog.Logger, name string, def time.Duration, lo int) time.Duration {
	v := getenv.get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo {
		logger.Warn("invalid "+name+" value, using default", "value", v, "default", int(def.Seconds()))
		return def
	}
	return time.Duration(n) * time.Second
}

func intEnv(getenv env, logger *slog.Logger, name string, def, lo int) int {
	v := getenv.get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo {
		logger.Warn("invalid "+name+" value, using default", "value", v, "default", def)
		return def
	}
	return n
}
