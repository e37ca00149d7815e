package link

import (
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoURL is returned when trying to build a link from an empty string.
var ErrNoURL = errors.New("link: empty url")

// Link is a reference to a candidate package source. Two links are the same
// link when their keys are equal, the comment is ignored.
type Link struct {
	// Comment is free text attached to the link, usually the anchor text
	// or the page that the link was found on.
	Comment string

	u   *url.URL
	key string
	inf bool
}

// InfLink compares greater than every other link.
var InfLink = &Link{inf: true}

// Parse will create a new link from a raw url.
func Parse(raw string) (*Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse link")
	}
	return New(u, ""), nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) *Link {
	l, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return l
}

// New creates a link from a url. The url is copied.
func New(u *url.URL, comment string) *Link {
	cp := *u
	if u.User != nil {
		user := *u.User
		cp.User = &user
	}
	return &Link{
		Comment: comment,
		u:       &cp,
		key:     Key(&cp),
	}
}

// Key returns the normalized form of a url used for link identity. The
// fragment is dropped, scheme and host are lower-cased and an empty path on
// a url with a host becomes "/".
func Key(u *url.URL) string {
	var l = *u
	l.Fragment = ""
	l.RawFragment = ""
	l.Scheme = strings.ToLower(l.Scheme)
	l.Host = strings.ToLower(l.Host)
	if l.Host != "" && l.Path == "" && l.Opaque == "" {
		l.Path = "/"
		l.RawPath = ""
	}
	return l.String()
}

// KeyString is the same as Key but for raw strings. Strings that do not
// parse are returned trimmed.
func KeyString(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return Key(u)
}

// URL returns a copy of the link's url.
func (l *Link) URL() *url.URL {
	if l.inf {
		return nil
	}
	cp := *l.u
	return &cp
}

// Key returns the normalized url string.
func (l *Link) Key() string { return l.key }

// String returns the link's url. The comment is never included so the
// result can be parsed back into an equal link.
func (l *Link) String() string {
	if l.inf {
		return "<InfLink>"
	}
	return l.u.String()
}

// Equal returns true if the two links point to the same normalized url.
func (l *Link) Equal(other *Link) bool {
	if l == nil || other == nil {
		return l == other
	}
	if l.inf || other.inf {
		return l.inf == other.inf
	}
	return l.key == other.key
}

// Less reports whether l sorts before other.
func (l *Link) Less(other *Link) bool { return Compare(l, other) < 0 }

// Compare gives a total order over links. InfLink is greater than every
// concrete link and equal only to itself.
func Compare(a, b *Link) int {
	switch {
	case a.inf && b.inf:
		return 0
	case a.inf:
		return 1
	case b.inf:
		return -1
	}
	return strings.Compare(a.key, b.key)
}

// Filename returns the last unescaped segment of the link's path.
func (l *Link) Filename() string {
	if l.inf {
		return ""
	}
	_, name := path.Split(strings.TrimRight(l.u.Path, "/"))
	return name
}

// IsLocalFile returns true for file:// links.
func (l *Link) IsLocalFile() bool {
	return !l.inf && strings.EqualFold(l.u.Scheme, "file")
}

// Links is a sortable list of links.
type Links []*Link

func (ls Links) Len() int           { return len(ls) }
func (ls Links) Less(i, j int) bool { return Compare(ls[i], ls[j]) < 0 }
func (ls Links) Swap(i, j int)      { ls[i], ls[j] = ls[j], ls[i] }
