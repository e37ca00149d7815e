package logging

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harrybrwn/scout/internal/httputil"
	"github.com/matryer/is"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func newTestLogger(buf *bytes.Buffer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&PrefixedFormatter{NoColor: true, TimeFormat: time.Kitchen})
	return l
}

func TestPrefixedFormatter(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.WithFields(logrus.Fields{"url": "http://a.com/", "n": 3, "msg": "two words"}).Info("fetched")
	line := buf.String()
	is.True(strings.Contains(line, "INFO"))
	is.True(strings.Contains(line, "fetched"))
	is.True(strings.Contains(line, " msg=\"two words\" n=3 url=http://a.com/\n")) // sorted keys
	is.True(!strings.Contains(line, "\x1b["))

	buf.Reset()
	f := NewPrefixedFormatter("scout", "")
	f.NoColor = true
	l.SetFormatter(f)
	l.Warn("slow")
	is.True(strings.Contains(buf.String(), "WARNING scout: slow"))
}

func TestSilentFormatter(t *testing.T) {
	is := is.New(t)
	b, err := (&SilentFormatter{}).Format(logrus.NewEntry(logrus.New()))
	is.NoErr(err)
	is.Equal(len(b), 0)
}

func TestHooks(t *testing.T) {
	is := is.New(t)
	var out, file bytes.Buffer
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})
	l.AddHook(&Hook{Writer: &out, LogLevels: logrus.AllLevels[:logrus.InfoLevel+1]})
	l.AddHook(NewLogFileHook(&file, &logrus.JSONFormatter{}))
	l.Debug("quiet")
	l.Info("loud")
	is.True(!strings.Contains(out.String(), "quiet"))
	is.True(strings.Contains(out.String(), "loud"))
	is.Equal(strings.Count(file.String(), "\n"), 2)
	is.True(strings.Contains(file.String(), `"msg":"quiet"`))
	is.True(!IsTerm(&out))
}

func TestContext(t *testing.T) {
	is := is.New(t)
	is.True(FromContext(context.Background()) == logrus.StandardLogger())
	l := logrus.New().WithField("worker", 1)
	is.True(FromContext(Stash(context.Background(), l)) == l)
}

func TestLogRoundTrips(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(rw, r)
		}
	}))
	defer srv.Close()
	var buf bytes.Buffer
	client := &http.Client{Transport: LogRoundTrips(newTestLogger(&buf))(nil)}

	resp, err := client.Get(srv.URL + "/ok")
	is.NoErr(err)
	resp.Body.Close()
	is.True(strings.Contains(buf.String(), "DEBUG"))
	is.True(strings.Contains(buf.String(), "status=200"))

	buf.Reset()
	resp, err = client.Get(srv.URL + "/missing")
	is.NoErr(err)
	resp.Body.Close()
	is.True(strings.Contains(buf.String(), "WARN"))
	is.True(strings.Contains(buf.String(), "status=404"))

	buf.Reset()
	failing := LogRoundTrips(newTestLogger(&buf))(httputil.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}))
	req, _ := http.NewRequest("GET", "http://example.com/", nil)
	_, err = failing.RoundTrip(req)
	is.True(err != nil)
	is.True(strings.Contains(buf.String(), "request failed"))
}
