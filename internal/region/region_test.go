package region

import (
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestRun(t *testing.T) {
	is := is.New(t)
	r := New(trace.NewNoopTracerProvider().Tracer("test"), attribute.String("requirement", "simple"))
	called := false
	err := r.Attr(attribute.Int("n", 1)).Run(context.Background(), "work", func(ctx context.Context) ([]attribute.KeyValue, error) {
		called = true
		return []attribute.KeyValue{attribute.Bool("ok", true)}, nil
	})
	is.NoErr(err)
	is.True(called)
	is.Equal(len(r.attrs), 1) // Attr does not change the original

	boom := errors.New("boom")
	err = r.Run(context.Background(), "fail", func(context.Context) ([]attribute.KeyValue, error) {
		return nil, boom
	})
	is.True(err == boom)
}

func TestClip(t *testing.T) {
	is := is.New(t)
	attrs := clip([]attribute.KeyValue{
		attribute.String("long", strings.Repeat("a", MaxAttrSize+10)),
		attribute.Int("n", 3),
	})
	is.Equal(len(attrs[0].Value.AsString()), MaxAttrSize)
	is.Equal(attrs[1].Value.AsInt64(), int64(3))
}
