package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/go-redis/redis/v8"
	"github.com/harrybrwn/scout/link"
	"github.com/harrybrwn/scout/web"
	"github.com/matryer/is"
)

func inMemDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := OpenBadger("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type redisMock struct {
	mu sync.Mutex
	m  map[string]string
}

func newRedisMock() *redisMock { return &redisMock{m: make(map[string]string)} }

func (rm *redisMock) Get(_ context.Context, k string) *redis.StringCmd {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	v, ok := rm.m[k]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (rm *redisMock) Set(_ context.Context, k string, v interface{}, _ time.Duration) *redis.StatusCmd {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	switch val := v.(type) {
	case []byte:
		rm.m[k] = string(val)
	default:
		rm.m[k] = fmt.Sprint(val)
	}
	return redis.NewStatusResult("OK", nil)
}

func (rm *redisMock) Del(_ context.Context, keys ...string) *redis.IntCmd {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := rm.m[k]; ok {
			delete(rm.m, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func testCaches(t *testing.T) map[string]web.PageCache {
	caches := map[string]web.PageCache{
		"memory":     web.NewPageCache(),
		"badger":     NewBadgerPageCache(inMemDB(t), NewSessionID()),
		"redis-mock": NewRedisPageCache(newRedisMock(), NewSessionID(), 0),
	}
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	t.Cleanup(func() { client.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err == nil {
		t.Log("adding redis to tests")
		caches["redis"] = NewRedisPageCache(client, NewSessionID(), time.Minute)
	}
	return caches
}

func TestPageCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	u, err := url.Parse("https://pypi.python.org/simple/foo/")
	if err != nil {
		t.Fatal(err)
	}
	for name, cache := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			key := fmt.Sprintf("https://pypi.python.org/simple/foo/%d/", time.Now().UnixNano())
			_, ok, err := cache.Get(ctx, key)
			is.NoErr(err)
			is.True(!ok) // nothing stored yet

			page := web.NewHTMLPage(`<a href="foo-1.0.tar.gz">foo</a>`, u)
			is.NoErr(cache.Set(ctx, key, page))
			got, ok, err := cache.Get(ctx, key)
			is.NoErr(err)
			is.True(ok)
			is.Equal(got.Content(), page.Content())
			is.Equal(got.URL().String(), page.URL().String())
			is.Equal(len(got.Links()), 1)

			negative := key + "foo-1.0.tar.gz"
			is.NoErr(cache.Set(ctx, negative, nil))
			got, ok, err = cache.Get(ctx, negative)
			is.NoErr(err)
			is.True(ok)
			is.True(got == nil)
		})
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	page := web.NewHTMLPageFromString(`<a href="foo-1.0.tar.gz">foo</a>`, "https://pypi.python.org/simple/foo/")
	for name, open := range map[string]func() (SessionCache, SessionCache){
		"badger": func() (SessionCache, SessionCache) {
			db := inMemDB(t)
			return NewBadgerPageCache(db, NewSessionID()), NewBadgerPageCache(db, NewSessionID())
		},
		"redis-mock": func() (SessionCache, SessionCache) {
			rm := newRedisMock()
			return NewRedisPageCache(rm, NewSessionID(), 0), NewRedisPageCache(rm, NewSessionID(), 0)
		},
	} {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			first, second := open()
			key := "https://pypi.python.org/simple/foo/"
			is.NoErr(first.Set(ctx, key, page))
			is.NoErr(second.Set(ctx, key+"bar.tar.gz", nil))

			_, ok, err := second.Get(ctx, key)
			is.NoErr(err)
			is.True(!ok) // written by another session
			_, ok, err = first.Get(ctx, key+"bar.tar.gz")
			is.NoErr(err)
			is.True(!ok)

			is.NoErr(first.Clear(ctx))
			_, ok, err = first.Get(ctx, key)
			is.NoErr(err)
			is.True(!ok)
			_, ok, err = second.Get(ctx, key+"bar.tar.gz")
			is.NoErr(err)
			is.True(ok) // untouched by the other session's Clear
		})
	}
}

func TestMemoryCacheIdentity(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c := web.NewPageCache()
	page := web.NewHTMLPageFromString("", "http://example.com/")
	is.NoErr(c.Set(ctx, "k", page))
	got, ok, err := c.Get(ctx, "k")
	is.NoErr(err)
	is.True(ok)
	is.True(got == page)
	is.Equal(c.Len(), 1)
}

func TestURLSet(t *testing.T) {
	ctx := context.Background()
	is := is.New(t)
	s := NewInMemoryURLSet()
	l := link.MustParse("https://pypi.python.org/simple/")
	is.True(!s.Has(ctx, l))
	is.NoErr(s.Put(ctx, l))
	is.True(s.Has(ctx, l))
	is.True(s.Has(ctx, link.MustParse("https://PYPI.python.org/simple/#other-part-of-same-page")))
	is.True(!s.Has(ctx, link.MustParse("https://pypi.python.org/simple/foo/")))
}
