package logging

import (
	"net/http"
	"time"

	"github.com/harrybrwn/scout/internal/httputil"
	"github.com/sirupsen/logrus"
)

// LogRoundTrips wraps a transport so that every request it sends is logged
// at debug level with its latency.
func LogRoundTrips(l logrus.FieldLogger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		if next == nil {
			next = http.DefaultTransport
		}
		return httputil.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			LogRoundTrip(l.WithField("latency", time.Since(start)), resp, err, r)
			return resp, err
		})
	}
}

func LogRoundTrip(
	l logrus.FieldLogger,
	resp *http.Response,
	err error,
	req *http.Request,
) {
	l = l.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})
	if err != nil {
		l.WithError(err).Warn("request failed")
		return
	}
	l = l.WithField("status", resp.StatusCode)
	if resp.StatusCode < 400 {
		l.Debug("request")
	} else {
		l.Warn("request")
	}
}
