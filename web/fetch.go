package web

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrybrwn/scout/internal/httputil"
	"github.com/harrybrwn/scout/link"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HttpClient is the default client used by fetchers created with a nil
// client.
var HttpClient = &http.Client{
	Transport: otelhttp.NewTransport(http.DefaultTransport),
	Timeout:   time.Second * 15,
}

const DefaultUserAgent = "scout/0.1"

// HTTPFetcher fetches http(s) urls with an http client and reads file://
// urls directly from disk.
type HTTPFetcher struct {
	Client    httputil.Doer
	UserAgent string
}

func NewFetcher(client httputil.Doer) *HTTPFetcher {
	if client == nil {
		client = HttpClient
	}
	return &HTTPFetcher{Client: client, UserAgent: DefaultUserAgent}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL) (*Response, error) {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	case "file":
		return fetchFile(u)
	default:
		return nil, &TransportError{URL: u.String(), Err: ErrUnsupportedScheme}
	}
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, u *url.URL) (*Response, error) {
	var ua = f.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req := &http.Request{
		Method:     "GET",
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Host:       u.Host,
		URL:        u,
		Body:       http.NoBody,
		GetBody:    defaultGetBody,
		Header: http.Header{
			"Accept":     {"text/html"},
			"User-Agent": {ua},
		},
	}
	client := f.Client
	if client == nil {
		client = HttpClient
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &TransportError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		log.WithFields(logHeader(resp.Header)).Warn(resp.Status)
	}
	if resp.StatusCode >= 400 {
		return nil, &TransportError{
			URL:    u.String(),
			Status: resp.StatusCode,
			Err:    errors.New(resp.Status),
		}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: u.String(), Status: resp.StatusCode, Err: err}
	}
	final := u
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	if wasRedirected(resp) {
		log.WithFields(logrus.Fields{
			"from": u.String(),
			"to":   final.String(),
		}).Debug("page redirected")
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
		URL:    final,
	}, nil
}

// fetchFile reads a local file. A directory is read as its index.html.
func fetchFile(u *url.URL) (*Response, error) {
	path, err := link.URLToPath(u.String())
	if err != nil {
		return nil, &TransportError{URL: u.String(), Err: err}
	}
	final := *u
	info, err := os.Stat(path)
	if err != nil {
		return nil, &TransportError{URL: u.String(), Err: err}
	}
	if info.IsDir() {
		path = filepath.Join(path, "index.html")
		if !strings.HasSuffix(final.Path, "/") {
			final.Path += "/"
		}
		final.Path += "index.html"
		final.RawPath = ""
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, &TransportError{URL: final.String(), Err: err}
	}
	// Local files carry no charset, guessed types only name the media type.
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	ct, _ = mediaType(ct)
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {ct}},
		Body:   body,
		URL:    &final,
	}, nil
}

func wasRedirected(resp *http.Response) bool {
	for resp != nil {
		switch resp.StatusCode {
		case 301, 302, 303, 307, 308:
			return true
		}
		if resp.Request == nil {
			break
		}
		resp = resp.Request.Response
	}
	return false
}

func defaultGetBody() (io.ReadCloser, error) { return http.NoBody, nil }
