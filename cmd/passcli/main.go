// Command passcli prints upcoming passes of the configured satellites over one
// observer and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/star/passwatch/internal/ephem"
	"github.com/star/passwatch/internal/logging"
	"github.com/star/passwatch/internal/passes"
	"github.com/star/passwatch/internal/propagation"
	"github.com/star/passwatch/internal/tle"
)

func main() {
	var (
		lat      = flag.Float64("lat", 33.5207, "observer latitude, degrees")
		lon      = flag.Float64("lon", -86.8025, "observer longitude, degrees")
		elev     = flag.Float64("elev", 180, "observer elevation, meters")
		minEl    = flag.Float64("min-el", 10, "minimum peak elevation, degrees")
		hours    = flag.Float64("hours", 48, "search window, hours")
		limit    = flag.Int("limit", 5, "passes per satellite")
		sats     = flag.String("sats", envOr("PASSWATCH_SATELLITES", tle.DefaultDefinitions), "comma list of key=label")
		url      = flag.String("tle-url", envOr("PASSWATCH_TLE_URL", tle.DefaultSourceURL), "TLE URL template, %s is the key")
		cacheDir = flag.String("cache-dir", envOr("PASSWATCH_TLE_CACHE_DIR", "/tmp/passwatch/tle"), "TLE disk cache, empty disables")
		utc      = flag.Bool("utc", false, "print times in UTC instead of local time")
		logLevel = flag.String("log-level", "error", "stderr log level: debug, info, warn or error")
	)
	flag.Parse()

	lvl, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "passcli:", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	defs, err := tle.ParseDefinitions(*sats)
	if err != nil {
		fmt.Fprintln(os.Stderr, "passcli:", err)
		os.Exit(2)
	}
	obs := passes.Observer{LatDeg: *lat, LonDeg: *lon, ElevationM: *elev, MinElevationDeg: *minEl}
	horizon := time.Duration(*hours * float64(time.Hour))
	if err := passes.ValidateRequest(obs, horizon, *limit); err != nil {
		fmt.Fprintln(os.Stderr, "passcli:", err)
		os.Exit(2)
	}

	var cache *tle.Cache
	if *cacheDir != "" {
		cache = tle.NewCache(*cacheDir, 3)
	}
	store := tle.NewStore(defs, tle.NewFetcher(*url, logger), tle.StoreConfig{Cache: cache}, logger)
	store.LoadCached()

	finder := passes.NewFinder(store, propagation.SGP4{}, ephem.Meeus{}, passes.Config{}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	reports := collect(ctx, finder, defs, obs, horizon, *limit, runtime.NumCPU())

	loc := time.Local
	if *utc {
		loc = time.UTC
	}
	render(os.Stdout, obs, reports, loc)

	for _, r := range reports {
		if r.err != nil {
			os.Exit(1)
		}
	}
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

