package web

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

func SetLogger(l *logrus.Logger) { log = l }

// Fetcher is the transport used to retrieve index pages.
type Fetcher interface {
	// Fetch retrieves the resource at a url. It should return a
	// *TransportError for network and file system failures.
	Fetch(context.Context, *url.URL) (*Response, error)
}

// FetcherFunc is a function that implements the Fetcher interface.
type FetcherFunc func(context.Context, *url.URL) (*Response, error)

func (ff FetcherFunc) Fetch(ctx context.Context, u *url.URL) (*Response, error) { return ff(ctx, u) }

// Response is a fully read response from a Fetcher.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	// URL is the final url of the response after any redirects.
	URL *url.URL
}

// ContentType returns the raw Content-Type header.
func (r *Response) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

var htmlTypes = map[string]struct{}{
	"text/html":             {},
	"application/xhtml+xml": {},
}

// IsHTML returns true if the content type names an html media type.
func IsHTML(contentType string) bool {
	mt, _ := mediaType(contentType)
	_, ok := htmlTypes[mt]
	return ok
}

func mediaType(contentType string) (string, map[string]string) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err == nil {
		return mt, params
	}
	// Fall back to a more forgiving parse for malformed parameters.
	parts := strings.Split(contentType, ";")
	params = make(map[string]string)
	for _, p := range parts[1:] {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		params[strings.ToLower(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"'`)
	}
	return strings.ToLower(strings.TrimSpace(parts[0])), params
}

func logHeader(h http.Header) logrus.Fields {
	f := make(logrus.Fields, len(h))
	for key, list := range h {
		f[key] = list
	}
	return f
}
