package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConversionCollector bundles Prometheus metrics for ECEF->SEZ conversions.
//
// A one-shot process cannot be scraped, so the collected series are written
// out with WriteTextfile for the node_exporter textfile collector.
type ConversionCollector struct {
	gatherer prometheus.Gatherer

	Conversions         *prometheus.CounterVec
	ConversionDurations prometheus.Histogram
	GeodeticIterations  prometheus.Histogram
	GeodeticUnconverged prometheus.Counter
}

// NewConversionCollector registers conversion metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewConversionCollector(reg prometheus.Registerer) (*ConversionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	conversions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecef2sez_conversions_total",
		Help: "Total number of conversion attempts, labeled by outcome.",
	}, []string{"outcome"})
	conversions, err := registerCounterVec(reg, conversions, "ecef2sez_conversions_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ecef2sez_conversion_duration_seconds",
		Help:    "Wall time spent converting one observer/target pair.",
		Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 1e-2},
	}), "ecef2sez_conversion_duration_seconds")
	if err != nil {
		return nil, err
	}

	iterations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ecef2sez_geodetic_iterations",
		Help:    "Latitude fixed-point passes needed for the observer position.",
		Buckets: prometheus.LinearBuckets(1, 1, 5),
	}), "ecef2sez_geodetic_iterations")
	if err != nil {
		return nil, err
	}

	unconverged, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ecef2sez_geodetic_unconverged_total",
		Help: "Geodetic conversions that exhausted the pass budget before meeting the latitude tolerance.",
	}), "ecef2sez_geodetic_unconverged_total")
	if err != nil {
		return nil, err
	}

	return &ConversionCollector{
		gatherer:            gatherer,
		Conversions:         conversions,
		ConversionDurations: durations,
		GeodeticIterations:  iterations,
		GeodeticUnconverged: unconverged,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ConversionCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// IncOutcome counts an attempt that ended before any geometry was computed.
func (c *ConversionCollector) IncOutcome(outcome string) {
	if c == nil || c.Conversions == nil {
		return
	}
	c.Conversions.WithLabelValues(outcome).Inc()
}

// ObserveConversion records one conversion attempt. iterations is ignored
// when zero, which is the case for rejected geometry.
func (c *ConversionCollector) ObserveConversion(outcome string, iterations int, converged bool, d time.Duration) {
	if c == nil {
		return
	}
	c.IncOutcome(outcome)
	if c.ConversionDurations != nil {
		c.ConversionDurations.Observe(d.Seconds())
	}
	if iterations == 0 {
		return
	}
	if c.GeodeticIterations != nil {
		c.GeodeticIterations.Observe(float64(iterations))
	}
	if !converged && c.GeodeticUnconverged != nil {
		c.GeodeticUnconverged.Inc()
	}
}

// WriteTextfile writes every series of the collector's gatherer to path in
// the Prometheus text format. The file is replaced atomically.
func (c *ConversionCollector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
