package web

import (
	"context"

	"github.com/harrybrwn/scout/internal/logging"
	"github.com/harrybrwn/scout/link"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	KeyPageURL     = attribute.Key("page.url")
	KeyRequirement = attribute.Key("page.requirement")
	KeyContentType = attribute.Key("page.content_type")
)

var tracer = otel.Tracer("scout/web")

// GetPage returns the html page for a link. Cached results, including
// negative ones, are returned without touching the network. Pages that are
// not html are cached as nil and returned as a nil page with a nil error.
//
// Transport errors are returned as is and never cached. A charset given by
// the content type that fails to decode the body is returned as a
// *DecodeError.
func GetPage(
	ctx context.Context,
	l *link.Link,
	requirement string,
	cache PageCache,
	fetcher Fetcher,
) (*HTMLPage, error) {
	key := l.Key()
	if cache != nil {
		page, ok, err := cache.Get(ctx, key)
		if err != nil {
			return nil, errors.Wrap(err, "could not read page cache")
		}
		if ok {
			return page, nil
		}
	}

	ctx, span := tracer.Start(ctx, "web.GetPage", trace.WithAttributes(
		KeyPageURL.String(key),
		KeyRequirement.String(requirement),
	))
	defer span.End()
	logger := logging.FromContext(ctx).WithFields(logrus.Fields{
		"url": key, "requirement": requirement,
	})

	resp, err := fetcher.Fetch(ctx, l.URL())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	ct := resp.ContentType()
	span.SetAttributes(KeyContentType.String(ct))
	if !IsHTML(ct) {
		logger.WithField("content_type", ct).Debug("skipping page that is not html")
		return nil, set(ctx, cache, key, nil)
	}

	text, err := Decode(resp.Body, ct)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) && de.URL == "" {
			de.URL = key
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, err
	}
	u := resp.URL
	if u == nil {
		u = l.URL()
	}
	page := NewHTMLPage(text, u)
	logger.Trace("got page")
	return page, set(ctx, cache, key, page)
}

func set(ctx context.Context, cache PageCache, key string, page *HTMLPage) error {
	if cache == nil {
		return nil
	}
	return errors.Wrap(cache.Set(ctx, key, page), "could not write page cache")
}
