// Package storage holds persistent backends for the crawl session state:
// page caches and seen-url sets.
package storage

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/harrybrwn/scout/link"
	"github.com/harrybrwn/scout/web"
	"github.com/pkg/errors"
)

// URLSet is a set of normalized link urls.
type URLSet interface {
	Put(context.Context, *link.Link) error
	Has(context.Context, *link.Link) bool
}

// Redis is the subset of the redis client used by the redis backends.
type Redis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionCache is a page cache that only sees the entries of one crawl
// session even when the backing store is shared.
type SessionCache interface {
	web.PageCache
	// Clear removes every entry written by the session.
	Clear(context.Context) error
}

// NewSessionID returns a new random crawl session id.
func NewSessionID() string { return uuid.New().String() }

func sessionPrefix(session string) string { return "page_" + session + "_" }

func NewInMemoryURLSet() URLSet {
	return &inMemoryURLSet{m: make(map[string]struct{})}
}

type inMemoryURLSet struct {
	mu sync.Mutex
	m  map[string]struct{}
}

func (s *inMemoryURLSet) Has(_ context.Context, l *link.Link) bool {
	s.mu.Lock()
	_, ok := s.m[l.Key()]
	s.mu.Unlock()
	return ok
}

func (s *inMemoryURLSet) Put(_ context.Context, l *link.Link) error {
	s.mu.Lock()
	s.m[l.Key()] = struct{}{}
	s.mu.Unlock()
	return nil
}

func key(prefix, k string) []byte {
	b := make([]byte, len(prefix), len(prefix)+len(k))
	copy(b, prefix)
	return append(b, k...)
}

// cachedPage is the stored form of a page cache entry.
type cachedPage struct {
	Missing bool   `json:"missing,omitempty"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content,omitempty"`
}

func encodePage(page *web.HTMLPage) ([]byte, error) {
	if page == nil {
		return json.Marshal(&cachedPage{Missing: true})
	}
	return json.Marshal(&cachedPage{
		URL:     page.URL().String(),
		Content: page.Content(),
	})
}

func decodePage(raw []byte) (*web.HTMLPage, error) {
	var c cachedPage
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Wrap(err, "could not decode cached page")
	}
	if c.Missing {
		return nil, nil
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse cached page url")
	}
	return web.NewHTMLPage(c.Content, u), nil
}

// NewBadgerPageCache stores the pages of one session in a badger database.
// Pages decoded from the database are new values on every Get.
func NewBadgerPageCache(db *badger.DB, session string) SessionCache {
	return &badgerPageCache{db: db, prefix: sessionPrefix(session)}
}

type badgerPageCache struct {
	db     *badger.DB
	prefix string
}

func (c *badgerPageCache) Get(_ context.Context, k string) (*web.HTMLPage, bool, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(c.prefix, k))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	page, err := decodePage(raw)
	if err != nil {
		return nil, false, err
	}
	return page, true, nil
}

func (c *badgerPageCache) Clear(context.Context) error {
	return c.db.DropPrefix([]byte(c.prefix))
}

func (c *badgerPageCache) Set(_ context.Context, k string, page *web.HTMLPage) error {
	raw, err := encodePage(page)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(c.prefix, k), raw)
	})
}

// NewRedisPageCache stores the pages of one session in redis. Entries
// expire after ttl so a session that never calls Clear does not leak them,
// a ttl of zero keeps them until Clear.
func NewRedisPageCache(client Redis, session string, ttl time.Duration) SessionCache {
	return &redisPageCache{
		client: client,
		prefix: sessionPrefix(session),
		ttl:    ttl,
		keys:   make(map[string]struct{}),
	}
}

type redisPageCache struct {
	client Redis
	prefix string
	ttl    time.Duration

	mu   sync.Mutex
	keys map[string]struct{}
}

func (c *redisPageCache) Get(ctx context.Context, k string) (*web.HTMLPage, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+k).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	page, err := decodePage(raw)
	if err != nil {
		return nil, false, err
	}
	return page, true, nil
}

func (c *redisPageCache) Set(ctx context.Context, k string, page *web.HTMLPage) error {
	raw, err := encodePage(page)
	if err != nil {
		return err
	}
	if err = c.client.Set(ctx, c.prefix+k, raw, c.ttl).Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.keys[c.prefix+k] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *redisPageCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	keys := make([]string, 0, len(c.keys))
	for k := range c.keys {
		keys = append(keys, k)
	}
	c.keys = make(map[string]struct{})
	c.mu.Unlock()
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// OpenBadger opens a badger database at dir or an in-memory database when dir
// is empty.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts.InMemory = true
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "could not open badger database")
	}
	return db, nil
}
