package tracing

import (
	"context"
	"testing"

	"github.com/harrybrwn/scout/cmd"
	"github.com/matryer/is"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func TestProvider(t *testing.T) {
	is := is.New(t)
	res := Resource("scout", "abc", &cmd.Config{})
	tp, err := Provider(&cmd.TracerConfig{}, res)
	is.NoErr(err)
	is.True(tp == nil) // tracing is off by default

	_, err = Provider(&cmd.TracerConfig{Type: "datadog"}, res)
	is.True(err != nil)

	tp, err = Provider(&cmd.TracerConfig{Type: "zipkin", Endpoint: "http://localhost:9411/api/v2/spans"}, res)
	is.NoErr(err)
	is.True(tp != nil)
	is.NoErr(tp.Shutdown(context.Background()))
}

func TestResource(t *testing.T) {
	is := is.New(t)
	conf := &cmd.Config{
		IndexURL:   "https://pypi.example.com/simple/",
		Workers:    10,
		UseMirrors: true,
		Cache:      cmd.CacheConfig{Type: "badger"},
	}
	set := Resource("scout", "session-1", conf).Set()
	for _, tt := range []struct {
		key  attribute.Key
		want string
	}{
		{semconv.ServiceNameKey, "scout"},
		{semconv.ServiceInstanceIDKey, "session-1"},
		{"scout.session", "session-1"},
		{"scout.cache", "badger"},
	} {
		v, ok := set.Value(tt.key)
		is.True(ok)
		is.Equal(v.AsString(), tt.want)
	}
	v, ok := set.Value("scout.workers")
	is.True(ok)
	is.Equal(v.AsInt64(), int64(10))
	v, ok = set.Value("scout.index_urls")
	is.True(ok)
	is.Equal(v.AsStringSlice(), []string{"https://pypi.example.com/simple/"})
}
