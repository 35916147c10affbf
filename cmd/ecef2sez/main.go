// Command ecef2sez converts a target's ECEF position into the
// South-East-Zenith frame of an observer whose ECEF position is also given.
//
//	ecef2sez o_x_km o_y_km o_z_km x_km y_km z_km
//
// The S, E and Z components (km) are printed one per line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/topocentric/core"
	"github.com/signalsfoundry/topocentric/internal/logging"
	"github.com/signalsfoundry/topocentric/internal/observability"
	"github.com/signalsfoundry/topocentric/internal/topocentric"
)

const usageLine = "Usage: ecef2sez o_x_km o_y_km o_z_km x_km y_km z_km"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// Outcomes counted before a conversion starts.
const (
	outcomeUsageError = "usage_error"
	outcomeParseError = "parse_error"
)

var argNames = [6]string{"o_x_km", "o_y_km", "o_z_km", "x_km", "y_km", "z_km"}

func main() {
	os.Exit(run(context.Background(), ConfigFromEnv(), os.Args[1:], os.Stdout, os.Stderr))
}

// run performs one invocation and returns the process exit code. stdout only
// ever receives the usage line or the three result lines.
func run(ctx context.Context, cfg Config, args []string, stdout, stderr io.Writer) int {
	if cfg.Log.Output == nil {
		cfg.Log.Output = stderr
	}
	if cfg.Tracing.Writer == nil {
		cfg.Tracing.Writer = stderr
	}

	ctx, log := logging.WithRunLogger(ctx, logging.New(cfg.Log))

	shutdown, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		fmt.Fprintf(stderr, "ecef2sez: %v\n", err)
		return exitError
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	collector, err := observability.NewConversionCollector(prometheus.NewRegistry())
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		fmt.Fprintf(stderr, "ecef2sez: %v\n", err)
		return exitError
	}
	defer func() {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "metrics textfile not written", logging.String("error", err.Error()))
		}
	}()

	if len(args) != len(argNames) {
		collector.IncOutcome(outcomeUsageError)
		log.Debug(ctx, "wrong argument count", logging.Int("got", len(args)), logging.Int("want", len(argNames)))
		fmt.Fprintln(stdout, usageLine)
		return exitUsage
	}

	observer, target, err := parseArgs(args)
	if err != nil {
		collector.IncOutcome(outcomeParseError)
		log.Debug(ctx, "argument parse failed", logging.String("error", err.Error()))
		fmt.Fprintf(stderr, "ecef2sez: %v\n", err)
		return exitError
	}

	conv := topocentric.NewConverter(log, topocentric.WithMetricsRecorder(collector))
	res, err := conv.Convert(ctx, observer, target)
	if err != nil {
		fmt.Fprintf(stderr, "ecef2sez: %v\n", err)
		return exitError
	}

	for _, v := range [3]float64{res.SEZ.S, res.SEZ.E, res.SEZ.Z} {
		fmt.Fprintln(stdout, formatKm(v))
	}
	return exitOK
}

// parseArgs reads observer and target ECEF coordinates (km) from exactly six
// positional arguments.
func parseArgs(args []string) (observer, target core.Vec3, err error) {
	var vals [6]float64
	for i, raw := range args {
		v, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		// Overflowing literals become ±Inf and flow through like any other
		// non-finite input.
		if perr != nil && !errors.Is(perr, strconv.ErrRange) {
			var numErr *strconv.NumError
			if errors.As(perr, &numErr) {
				perr = numErr.Err
			}
			return core.Vec3{}, core.Vec3{}, fmt.Errorf("invalid %s %q: %w", argNames[i], raw, perr)
		}
		vals[i] = v
	}
	observer = core.Vec3{X: vals[0], Y: vals[1], Z: vals[2]}
	target = core.Vec3{X: vals[3], Y: vals[4], Z: vals[5]}
	return observer, target, nil
}
