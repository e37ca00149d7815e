// Package region runs a piece of work inside its own trace span.
package region

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxAttrSize is the longest string attribute value recorded on a span.
const MaxAttrSize = 4096

// Fn is the work done in a region. The attributes it returns are added to
// the region's span.
type Fn func(ctx context.Context) ([]attribute.KeyValue, error)

type Region struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func New(tracer trace.Tracer, attrs ...attribute.KeyValue) *Region {
	return &Region{tracer: tracer, attrs: clip(attrs)}
}

// Attr returns a copy of the region with more attributes.
func (r *Region) Attr(attrs ...attribute.KeyValue) *Region {
	cp := make([]attribute.KeyValue, 0, len(r.attrs)+len(attrs))
	cp = append(cp, r.attrs...)
	return &Region{tracer: r.tracer, attrs: append(cp, clip(attrs)...)}
}

// Run calls fn with a context carrying a new span named name. The error
// from fn is recorded on the span and returned.
func (r *Region) Run(ctx context.Context, name string, fn Fn) error {
	ctx, span := r.tracer.Start(ctx, name, trace.WithAttributes(r.attrs...))
	defer span.End()
	attrs, err := fn(ctx)
	if len(attrs) > 0 {
		span.SetAttributes(clip(attrs)...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func clip(attrs []attribute.KeyValue) []attribute.KeyValue {
	res := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Value.Type() == attribute.STRING {
			if v := attr.Value.AsString(); len(v) > MaxAttrSize {
				attr = attr.Key.String(v[:MaxAttrSize])
			}
		}
		res = append(res, attr)
	}
	return res
}
