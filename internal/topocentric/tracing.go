package topocentric

import (
	"context"

	"github.com/signalsfoundry/topocentric/core"
	"github.com/signalsfoundry/topocentric/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/topocentric/internal/topocentric"

// startSpan starts a span for one conversion step, tagged with the run ID
// when the context carries one.
func startSpan(ctx context.Context, name string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	attrs := make([]attribute.KeyValue, 0, len(extra)+1)
	if runID := logging.RunIDFromContext(ctx); runID != "" {
		attrs = append(attrs, attribute.String("run_id", runID))
	}
	attrs = append(attrs, extra...)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func vecAttrs(prefix string, v core.Vec3) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64(prefix+".x_km", v.X),
		attribute.Float64(prefix+".y_km", v.Y),
		attribute.Float64(prefix+".z_km", v.Z),
	}
}
