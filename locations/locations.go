// Package locations splits configured package locations into directories that
// can be listed on disk and pages that have to be fetched.
package locations

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harrybrwn/scout/link"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

func SetLogger(l *logrus.Logger) { log = l }

// Kind is the way a location is read.
type Kind int

const (
	// Remote locations are fetched and scraped.
	Remote Kind = iota
	// Listable locations are directories read straight from disk.
	Listable
)

func (k Kind) String() string {
	switch k {
	case Listable:
		return "listable"
	default:
		return "remote"
	}
}

// Lister reads the entry names of a directory.
type Lister interface {
	ListDir(path string) ([]string, error)
}

// OSLister lists directories on the local file system.
type OSLister struct{}

func (OSLister) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// Locations is the result of sorting a list of locations.
type Locations struct {
	// Dirs are the directories that were listed.
	Dirs []string
	// Listings holds the raw entry names of each listed directory.
	Listings map[string][]string
	// Files are links to local files found in listed directories or named
	// directly.
	Files []*link.Link
	// Pages are links that need to be fetched.
	Pages []*link.Link
}

// Classify decides how a location should be read. Local paths and file://
// urls naming an existing directory are listable, everything else including
// a file:// url to a single file is a remote page.
func Classify(loc string) (Kind, error) {
	path, local, err := localPath(loc)
	if err != nil {
		return Remote, err
	}
	if !local {
		return Remote, nil
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return Remote, nil
	case err != nil:
		return Remote, errors.Wrapf(err, "could not stat %s", path)
	case info.IsDir():
		return Listable, nil
	default:
		return Remote, nil
	}
}

// Sort classifies every location. Listable directories are listed with the
// lister and each entry becomes a file link, unless its extension says it
// is html in which case it becomes a page link. Local paths to regular
// files are sorted the same way. The rest are page links.
func Sort(ctx context.Context, locs []string, lister Lister) (*Locations, error) {
	if lister == nil {
		lister = OSLister{}
	}
	result := &Locations{Listings: make(map[string][]string)}
	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind, err := Classify(loc)
		if err != nil {
			return nil, err
		}
		path, local, _ := localPath(loc)
		switch {
		case kind == Listable:
			if err = result.list(path, lister); err != nil {
				return nil, err
			}
		case local:
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				log.WithField("location", loc).Warn("skipping local location that does not exist")
				continue
			}
			if err = result.addPath(path); err != nil {
				return nil, err
			}
		default:
			l, err := link.Parse(loc)
			if err != nil {
				return nil, errors.Wrapf(err, "bad location %q", loc)
			}
			result.Pages = append(result.Pages, l)
		}
	}
	return result, nil
}

func (l *Locations) list(dir string, lister Lister) error {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	names, err := lister.ListDir(dir)
	if err != nil {
		return errors.Wrapf(err, "could not list %s", dir)
	}
	sort.Strings(names)
	log.WithFields(logrus.Fields{"dir": dir, "entries": len(names)}).Debug("listed directory")
	l.Dirs = append(l.Dirs, dir)
	l.Listings[dir] = names
	for _, name := range names {
		if err = l.addPath(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Locations) addPath(path string) error {
	lnk, err := link.Parse(link.PathToURL(path))
	if err != nil {
		return err
	}
	if isHTMLFile(path) {
		l.Pages = append(l.Pages, lnk)
	} else {
		l.Files = append(l.Files, lnk)
	}
	return nil
}

func isHTMLFile(path string) bool {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "text/html"
}

// localPath returns the file system path for a location and whether the
// location refers to the local file system at all.
func localPath(loc string) (string, bool, error) {
	switch scheme(loc) {
	case "file":
		p, err := link.URLToPath(loc)
		if err != nil {
			return "", false, err
		}
		return p, true, nil
	case "":
		if _, err := os.Stat(loc); err == nil {
			return loc, true, nil
		}
		return "", false, nil
	default:
		return "", false, nil
	}
}

// scheme returns the lower-cased scheme of a location or an empty string
// for anything that looks like a path. Single letter schemes are windows
// drive letters.
func scheme(loc string) string {
	i := strings.Index(loc, ":")
	if i < 2 {
		return ""
	}
	s := loc[:i]
	for j, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case j > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return ""
		}
	}
	return strings.ToLower(s)
}
