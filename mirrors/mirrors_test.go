package mirrors

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func init() {
	l := logrus.New()
	l.SetOutput(io.Discard)
	SetLogger(l)
}

type lookupFunc func(ctx context.Context, host string) (string, error)

func (f lookupFunc) LookupCNAME(ctx context.Context, host string) (string, error) { return f(ctx, host) }

func cname(name string) Lookup {
	return lookupFunc(func(context.Context, string) (string, error) { return name, nil })
}

func TestGetMirrors(t *testing.T) {
	is := is.New(t)
	r := NewResolver(cname("g.pypi.python.org."))
	mirrors, err := r.Get(context.Background(), DefaultHostname)
	is.NoErr(err)
	is.Equal(len(mirrors), 7)
	for i, c := range "abcdefg" {
		is.Equal(mirrors[i], string(c)+".pypi.python.org")
	}
}

func TestGetMirrorsNoCNAME(t *testing.T) {
	is := is.New(t)
	// some resolvers echo the query back
	r := NewResolver(cname(DefaultHostname + "."))
	mirrors, err := r.Get(context.Background(), "")
	is.NoErr(err)
	is.Equal(len(mirrors), 26)
	for i, c := range "abcdefghijklmnopqrstuvwxyz" {
		is.Equal(mirrors[i], string(c)+".pypi.python.org")
	}
}

func TestGetMirrorsNoLetter(t *testing.T) {
	is := is.New(t)
	r := NewResolver(cname("mirror-host.example.com"))
	mirrors, err := r.Get(context.Background(), DefaultHostname)
	is.NoErr(err)
	is.Equal(len(mirrors), 26)
	is.Equal(mirrors[25], "z.pypi.python.org")
}

func TestGetMirrorsUppercase(t *testing.T) {
	is := is.New(t)
	r := NewResolver(cname("C.Mirrors.Example.com"))
	mirrors, err := r.Get(context.Background(), "last.mirrors.example.com")
	is.NoErr(err)
	is.Equal(mirrors, []string{"a.Mirrors.Example.com", "b.Mirrors.Example.com", "c.Mirrors.Example.com"})
}

func TestGetMirrorsDNSError(t *testing.T) {
	is := is.New(t)
	cause := &net.DNSError{Err: "no such host", Name: DefaultHostname, IsNotFound: true}
	calls := 0
	r := NewResolver(lookupFunc(func(context.Context, string) (string, error) {
		calls++
		return "", cause
	}))
	_, err := r.Get(context.Background(), DefaultHostname)
	var de *DNSError
	is.True(errors.As(err, &de))
	is.Equal(de.Host, DefaultHostname)
	is.True(errors.Is(err, cause))
	is.Equal(calls, 1) // no retries
}

func TestMirrorURLFormats(t *testing.T) {
	formats := []string{
		"some_mirror",
		"some_mirror/",
		"some_mirror/simple",
		"some_mirror/simple/",
	}
	for _, scheme := range []string{"http://", "https://", "file://", ""} {
		t.Run(scheme, func(t *testing.T) {
			is := is.New(t)
			want := scheme
			if want == "" {
				want = "http://"
			}
			want += "some_mirror/simple/"
			mirrors := make([]string, len(formats))
			for i, f := range formats {
				mirrors[i] = scheme + f
			}
			urls := URLs(mirrors)
			is.Equal(urls, []string{want}) // every format collapses to one url
		})
	}
}

func TestURLsKeepsOrder(t *testing.T) {
	is := is.New(t)
	urls := URLs([]string{"b.pypi.python.org", "a.pypi.python.org", "b.pypi.python.org/"})
	is.Equal(strings.Join(urls, " "), "http://b.pypi.python.org/simple/ http://a.pypi.python.org/simple/")
}
