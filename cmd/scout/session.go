package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/harrybrwn/scout/cmd"
	"github.com/harrybrwn/scout/internal/logging"
	"github.com/harrybrwn/scout/storage"
	"github.com/harrybrwn/scout/web"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// session holds everything that lives for one run of the command: the page
// cache backend and the transport.
type session struct {
	cache   web.PageCache
	fetcher *web.HTTPFetcher
	closers []func() error
}

func newSession(ctx context.Context, conf *cmd.Config) (*session, error) {
	s := &session{
		fetcher: web.NewFetcher(&http.Client{
			Transport: otelhttp.NewTransport(logging.LogRoundTrips(log)(http.DefaultTransport)),
			Timeout:   conf.Timeout,
		}),
	}
	id := sessionID
	if id == "" {
		id = storage.NewSessionID()
	}
	switch strings.ToLower(conf.Cache.Type) {
	case "", "memory":
		s.cache = web.NewPageCache()
	case "badger":
		db, err := storage.OpenBadger(conf.Cache.Dir)
		if err != nil {
			return nil, err
		}
		cache := storage.NewBadgerPageCache(db, id)
		s.closers = append(s.closers, db.Close, s.clear(cache))
		s.cache = cache
		logBadger(db, conf.Cache.Dir, id)
	case "redis":
		client := redis.NewClient(conf.RedisOpts())
		client.AddHook(redisotel.NewTracingHook())
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, errors.Wrap(err, "could not ping redis server")
		}
		cache := storage.NewRedisPageCache(client, id, conf.Cache.Redis.TTL)
		s.closers = append(s.closers, client.Close, s.clear(cache))
		s.cache = cache
	default:
		return nil, errors.Errorf("unknown cache type %q", conf.Cache.Type)
	}
	return s, nil
}

func (s *session) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// clear drops the session's entries before the store is closed.
func (s *session) clear(c storage.SessionCache) func() error {
	return func() error { return c.Clear(context.Background()) }
}

func logBadger(db *badger.DB, dir, id string) {
	lsm, vlog := db.Size()
	log.WithFields(logrus.Fields{
		"dir":      dir,
		"session":  id,
		"in_mem":   dir == "",
		"lsm_size": lsm,
		"vlog":     vlog,
	}).Debug("opened badger page cache")
}
