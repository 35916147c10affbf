package topocentric

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/topocentric/core"
	"github.com/signalsfoundry/topocentric/internal/logging"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type observation struct {
	outcome    string
	iterations int
	converged  bool
	d          time.Duration
}

type capturingRecorder struct {
	observations []observation
}

func (r *capturingRecorder) ObserveConversion(outcome string, iterations int, converged bool, d time.Duration) {
	r.observations = append(r.observations, observation{outcome, iterations, converged, d})
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	t := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestConvert_EquatorOffsetNorth(t *testing.T) {
	rec := &capturingRecorder{}
	c := NewConverter(nil, WithMetricsRecorder(rec), WithClock(steppingClock(time.Millisecond)))

	res, err := c.Convert(context.Background(),
		core.Vec3{X: 6378.137},
		core.Vec3{X: 6378.137, Z: 1},
	)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.SEZ != (core.SEZ{S: -1, E: 0, Z: 0}) {
		t.Fatalf("SEZ = %+v, want {-1 0 0}", res.SEZ)
	}
	if res.Displacement != (core.Vec3{Z: 1}) {
		t.Fatalf("displacement = %+v, want {0 0 1}", res.Displacement)
	}
	if res.Observer.LatRad != 0 || res.Observer.LonRad != 0 || !res.Observer.Converged {
		t.Fatalf("observer = %+v, want converged lat=lon=0", res.Observer)
	}

	if len(rec.observations) != 1 {
		t.Fatalf("observations = %d, want 1", len(rec.observations))
	}
	got := rec.observations[0]
	if got.outcome != OutcomeOK || got.iterations != 1 || !got.converged || got.d != time.Millisecond {
		t.Fatalf("observation = %+v", got)
	}
}

func TestConvert_ObserverEqualsTarget(t *testing.T) {
	c := NewConverter(nil)
	for _, p := range []core.Vec3{
		{X: 6378.137},
		{X: -2700, Y: -4300, Z: 3850},
		{X: 1200, Y: -6500, Z: -1500},
	} {
		res, err := c.Convert(context.Background(), p, p)
		if err != nil {
			t.Fatalf("%+v: %v", p, err)
		}
		if res.SEZ != (core.SEZ{}) {
			t.Fatalf("%+v: SEZ = %+v, want zero", p, res.SEZ)
		}
	}
}

func TestConvert_StraightUp(t *testing.T) {
	c := NewConverter(nil)
	res, err := c.Convert(context.Background(),
		core.Vec3{X: core.RadiusEquatorialKm},
		core.Vec3{X: core.RadiusEquatorialKm + 100},
	)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if math.Abs(res.SEZ.Z-100) > 1e-6 || math.Abs(res.SEZ.S) > 1e-6 || math.Abs(res.SEZ.E) > 1e-6 {
		t.Fatalf("SEZ = %+v, want {0 0 100}", res.SEZ)
	}
}

func TestConvert_DegenerateObserver(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "warn", Output: &buf})
	rec := &capturingRecorder{}
	c := NewConverter(log, WithMetricsRecorder(rec))

	_, err := c.Convert(context.Background(), core.Vec3{Z: 6356.752}, core.Vec3{X: 1})
	if !errors.Is(err, core.ErrOnPolarAxis) {
		t.Fatalf("err = %v, want ErrOnPolarAxis", err)
	}
	if !IsDomainError(err) {
		t.Fatalf("IsDomainError(%v) = false", err)
	}
	if len(rec.observations) != 1 || rec.observations[0].outcome != OutcomeDomainError {
		t.Fatalf("observations = %+v, want one domain_error", rec.observations)
	}
	if rec.observations[0].iterations != 0 {
		t.Fatalf("rejected geometry should report 0 iterations, got %d", rec.observations[0].iterations)
	}
	if !strings.Contains(buf.String(), "observer position rejected") {
		t.Fatalf("expected warn log, got %q", buf.String())
	}

	if _, err := c.Convert(context.Background(), core.Vec3{}, core.Vec3{X: 1}); !errors.Is(err, core.ErrAtOrigin) {
		t.Fatalf("origin err = %v, want ErrAtOrigin", err)
	}
}

func TestConvert_WarnsWhenIterationCapHit(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "warn", Output: &buf})
	rec := &capturingRecorder{}
	c := NewConverter(log, WithMetricsRecorder(rec))

	res, err := c.Convert(context.Background(), core.Vec3{X: 10, Z: 10}, core.Vec3{X: 11, Z: 10})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Observer.Converged {
		t.Fatalf("expected unconverged observer")
	}
	if !strings.Contains(buf.String(), "without converging") {
		t.Fatalf("expected warn log for pass limit, got %q", buf.String())
	}
	if got := rec.observations[0]; got.outcome != OutcomeOK || got.converged || got.iterations != core.MaxGeodeticIterations {
		t.Fatalf("observation = %+v", got)
	}
}

func TestConvert_UsesRunLoggerFromContext(t *testing.T) {
	var base, scoped bytes.Buffer
	c := NewConverter(logging.New(logging.Config{Level: "debug", Output: &base}))

	ctx, _ := logging.WithRunLogger(context.Background(),
		logging.New(logging.Config{Level: "debug", Output: &scoped}))
	if _, err := c.Convert(ctx, core.Vec3{X: 6378.137}, core.Vec3{X: 6378.137, Y: 1}); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if base.Len() != 0 {
		t.Fatalf("base logger should be bypassed, got %q", base.String())
	}
	if !strings.Contains(scoped.String(), "run_id="+logging.RunIDFromContext(ctx)) {
		t.Fatalf("scoped log lines missing run_id: %q", scoped.String())
	}
}

func TestConvert_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	ctx, _ := logging.EnsureRunID(context.Background())
	c := NewConverter(nil)
	if _, err := c.Convert(ctx, core.Vec3{X: 6378.137}, core.Vec3{X: 6478.137}); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	names := map[string]bool{}
	for _, s := range sr.Ended() {
		names[s.Name()] = true
		if s.Name() != "topocentric.Convert" && !s.Parent().HasSpanID() {
			t.Fatalf("span %s should have a parent", s.Name())
		}
	}
	for _, want := range []string{"topocentric.Convert", "core.GeodeticFromECEF", "core.RotateToSEZ"} {
		if !names[want] {
			t.Fatalf("missing span %q, got %v", want, names)
		}
	}
}
