// Package topocentric runs observer-relative ECEF->SEZ conversions with the
// logging, metrics and tracing that surround the pure geometry in core.
package topocentric

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/topocentric/core"
	"github.com/signalsfoundry/topocentric/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Conversion outcomes reported to the MetricsRecorder.
const (
	OutcomeOK          = "ok"
	OutcomeDomainError = "domain_error"
)

// MetricsRecorder receives one observation per conversion attempt.
type MetricsRecorder interface {
	ObserveConversion(outcome string, iterations int, converged bool, d time.Duration)
}

// Result is the outcome of a single conversion.
type Result struct {
	Observer     core.Geodetic
	Displacement core.Vec3
	SEZ          core.SEZ
}

// Option customises Converter construction.
type Option func(*Converter)

// WithMetricsRecorder attaches a recorder that observes every conversion.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(c *Converter) {
		c.metrics = m
	}
}

// WithClock overrides the time source used for duration measurements.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		if now != nil {
			c.now = now
		}
	}
}

// Converter turns observer and target ECEF positions into the observer's SEZ
// frame.
type Converter struct {
	log     logging.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// NewConverter builds a Converter. A nil logger discards all logs.
func NewConverter(log logging.Logger, opts ...Option) *Converter {
	if log == nil {
		log = logging.Noop()
	}
	c := &Converter{
		log: log,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Convert expresses target relative to observer in the observer's
// South-East-Zenith frame. The observer's geodetic latitude and longitude are
// solved first; the rotation is applied only once that loop has finished.
//
// Errors wrap core.ErrDegenerateGeometry when the observer sits at the origin
// or on the polar axis.
func (c *Converter) Convert(ctx context.Context, observer, target core.Vec3) (Result, error) {
	start := c.now()
	log := c.logger(ctx)

	ctx, span := startSpan(ctx, "topocentric.Convert",
		append(vecAttrs("observer", observer), vecAttrs("target", target)...)...)
	defer span.End()

	_, geoSpan := startSpan(ctx, "core.GeodeticFromECEF")
	g, err := core.GeodeticFromECEF(observer)
	if err != nil {
		geoSpan.RecordError(err)
		geoSpan.SetStatus(codes.Error, err.Error())
		geoSpan.End()
		span.RecordError(err)
		span.SetStatus(codes.Error, "degenerate observer geometry")

		c.observe(OutcomeDomainError, 0, false, start)
		log.Warn(ctx, "observer position rejected",
			logging.Float("observer_x_km", observer.X),
			logging.Float("observer_y_km", observer.Y),
			logging.Float("observer_z_km", observer.Z),
			logging.String("error", err.Error()),
		)
		return Result{}, fmt.Errorf("observer geodetic position: %w", err)
	}
	geoSpan.SetAttributes(
		attribute.Float64("geodetic.lat_rad", g.LatRad),
		attribute.Float64("geodetic.lon_rad", g.LonRad),
		attribute.Float64("geodetic.height_km", g.HeightKm),
		attribute.Int("geodetic.iterations", g.Iterations),
		attribute.Bool("geodetic.converged", g.Converged),
	)
	geoSpan.End()

	if !g.Converged {
		log.Warn(ctx, "latitude iteration stopped at pass limit without converging",
			logging.Int("iterations", g.Iterations),
			logging.Float("tolerance_rad", core.LatitudeTolerance),
			logging.Float("lat_rad", g.LatRad),
		)
	} else {
		log.Debug(ctx, "observer geodetic position solved",
			logging.Float("lat_rad", g.LatRad),
			logging.Float("lon_rad", g.LonRad),
			logging.Float("height_km", g.HeightKm),
			logging.Int("iterations", g.Iterations),
		)
	}

	d := target.Sub(observer)

	_, rotSpan := startSpan(ctx, "core.RotateToSEZ")
	sez := core.RotateToSEZ(d, g.LatRad, g.LonRad)
	rotSpan.SetAttributes(
		attribute.Float64("sez.s_km", sez.S),
		attribute.Float64("sez.e_km", sez.E),
		attribute.Float64("sez.z_km", sez.Z),
	)
	rotSpan.End()

	c.observe(OutcomeOK, g.Iterations, g.Converged, start)
	log.Debug(ctx, "conversion complete",
		logging.Float("s_km", sez.S),
		logging.Float("e_km", sez.E),
		logging.Float("z_km", sez.Z),
	)

	return Result{Observer: g, Displacement: d, SEZ: sez}, nil
}

// IsDomainError reports whether err comes from degenerate observer geometry.
func IsDomainError(err error) bool {
	return errors.Is(err, core.ErrDegenerateGeometry)
}

func (c *Converter) observe(outcome string, iterations int, converged bool, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveConversion(outcome, iterations, converged, c.now().Sub(start))
}

func (c *Converter) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return c.log
}
