package link

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFileURL is returned when a url given to URLToPath does not use the
// file scheme.
var ErrNotFileURL = errors.New("not a file:// url")

// PathToURL converts a filesystem path into an absolute file:// url.
func PathToURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		// windows drive letters
		u.Path = "/" + u.Path
	}
	return u.String()
}

// URLToPath converts a file:// url into a filesystem path. A host segment is
// treated as the first element of the path.
func URLToPath(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "could not parse file url")
	}
	if !strings.EqualFold(u.Scheme, "file") {
		return "", errors.Wrapf(ErrNotFileURL, "%q", raw)
	}
	p := u.Path
	if u.Host != "" && !strings.EqualFold(u.Host, "localhost") {
		p = "/" + u.Host + p
	}
	if p == "" {
		p = "/"
	}
	return filepath.FromSlash(p), nil
}
