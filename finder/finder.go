// Package finder assembles the locations for a requirement, fetches them and
// returns every candidate link that was found.
package finder

import (
	"context"
	"math/rand"
	"net/url"
	"sort"
	"strings"

	"github.com/harrybrwn/scout/internal/region"
	"github.com/harrybrwn/scout/link"
	"github.com/harrybrwn/scout/locations"
	"github.com/harrybrwn/scout/mirrors"
	"github.com/harrybrwn/scout/web"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("scout/finder")

// DefaultIndexURL is the main package index.
const DefaultIndexURL = "https://pypi.python.org/simple/"

// ErrNoRequirement is returned when FindLinks is called without a name.
var ErrNoRequirement = errors.New("no requirement name")

// Getter fetches a batch of pages. *crawler.PageGetter implements it.
type Getter interface {
	GetPages(ctx context.Context, locations []string, requirement string) ([]*web.HTMLPage, error)
}

// Finder looks up the links for a requirement across the configured indexes,
// find-links locations and mirrors.
type Finder struct {
	// IndexURLs are the index roots, the first one is the main index.
	IndexURLs []string
	// FindLinkURLs are extra pages and local directories to search.
	FindLinkURLs []string
	NoIndex      bool

	UseMirrors bool
	// Mirrors are used as given. When empty, MirrorHostname is resolved to
	// find them.
	Mirrors        []string
	MirrorHostname string

	// FollowRel is the number of rounds of homepage and download links that
	// are fetched after the index pages.
	FollowRel int

	Getter   Getter
	Resolver *mirrors.Resolver
	Lister   locations.Lister
	Logger   logrus.FieldLogger

	shuffle func([]string)
}

// Result is the output of a search for one requirement.
type Result struct {
	// Links are the candidate links without duplicates. Local files come
	// first followed by the links on each fetched page, pages in url order.
	Links []*link.Link
	// Listings holds the raw entries of every local directory that was read.
	Listings map[string][]string
}

// FindLinks searches every location for the requirement.
func (f *Finder) FindLinks(ctx context.Context, requirement string) (*Result, error) {
	name := projectName(requirement)
	if name == "" {
		return nil, ErrNoRequirement
	}
	if f.Getter == nil {
		return nil, errors.New("finder has no page getter")
	}
	logger := f.logger().WithFields(logrus.Fields{"requirement": requirement, "project": name})

	var (
		mirrorURLs []string
		sorted     *locations.Locations
		reg        = region.New(tracer, attribute.String("requirement", requirement))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if !f.UseMirrors || f.NoIndex {
			return nil
		}
		return reg.Run(gctx, "finder.mirrors", func(ctx context.Context) ([]attribute.KeyValue, error) {
			mirrorURLs = f.mirrorURLs(ctx, logger)
			return []attribute.KeyValue{attribute.Int("mirrors", len(mirrorURLs))}, nil
		})
	})
	g.Go(func() error {
		return reg.Run(gctx, "finder.sort", func(ctx context.Context) ([]attribute.KeyValue, error) {
			var err error
			sorted, err = locations.Sort(ctx, f.locations(name), f.Lister)
			if err != nil {
				return nil, err
			}
			return []attribute.KeyValue{
				attribute.Int("dirs", len(sorted.Dirs)),
				attribute.Int("files", len(sorted.Files)),
				attribute.Int("pages", len(sorted.Pages)),
			}, nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pageURLs := make([]string, 0, len(sorted.Pages)+len(mirrorURLs))
	for _, p := range sorted.Pages {
		pageURLs = append(pageURLs, p.URL().String())
	}
	for _, m := range mirrorURLs {
		pageURLs = append(pageURLs, packageURL(m, name))
	}
	logger.WithFields(logrus.Fields{
		"pages":   len(pageURLs),
		"files":   len(sorted.Files),
		"mirrors": len(mirrorURLs),
	}).Debug("searching locations")

	pages, err := f.Getter.GetPages(ctx, pageURLs, requirement)
	if err != nil {
		return nil, err
	}
	all := pages
	for round := 0; round < f.FollowRel && len(pages) > 0; round++ {
		var rel []string
		for _, p := range pages {
			for _, l := range p.RelLinks() {
				rel = append(rel, l.URL().String())
			}
		}
		if len(rel) == 0 {
			break
		}
		logger.WithFields(logrus.Fields{"round": round + 1, "links": len(rel)}).Debug("following rel links")
		pages, err = f.Getter.GetPages(ctx, rel, requirement)
		var te *web.TransportError
		if errors.As(err, &te) {
			// homepages are often dead, keep what the indexes gave us
			logger.WithError(err).Warn("could not follow rel links")
			break
		} else if err != nil {
			return nil, err
		}
		all = append(all, pages...)
	}
	return collect(sorted, all), nil
}

func collect(sorted *locations.Locations, pages []*web.HTMLPage) *Result {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].URL().String() < pages[j].URL().String()
	})
	var (
		res  = &Result{Listings: sorted.Listings}
		seen = make(map[string]struct{})
		add  = func(l *link.Link) {
			if _, ok := seen[l.Key()]; ok {
				return
			}
			seen[l.Key()] = struct{}{}
			res.Links = append(res.Links, l)
		}
	)
	for _, l := range sorted.Files {
		add(l)
	}
	for _, p := range pages {
		for _, l := range p.Links() {
			add(l)
		}
	}
	return res
}

// locations returns the package page of every index followed by the
// find-links locations.
func (f *Finder) locations(name string) []string {
	locs := make([]string, 0, len(f.IndexURLs)+len(f.FindLinkURLs))
	if !f.NoIndex {
		for _, index := range f.indexURLs() {
			locs = append(locs, packageURL(index, name))
		}
	}
	return append(locs, f.FindLinkURLs...)
}

func (f *Finder) indexURLs() []string {
	if len(f.IndexURLs) == 0 {
		return []string{DefaultIndexURL}
	}
	return f.IndexURLs
}

// mirrorURLs returns the index urls of every mirror except the main index.
// Discovery failures only cost the mirrors so they are logged and dropped.
func (f *Finder) mirrorURLs(ctx context.Context, logger logrus.FieldLogger) []string {
	hosts := f.Mirrors
	if len(hosts) == 0 {
		resolver := f.Resolver
		if resolver == nil {
			resolver = mirrors.NewResolver(nil)
		}
		var err error
		hosts, err = resolver.Get(ctx, f.MirrorHostname)
		if err != nil {
			logger.WithError(err).Warn("could not find mirrors")
			return nil
		}
	}
	shuffle := f.shuffle
	if shuffle == nil {
		shuffle = func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		}
	}
	hosts = append([]string(nil), hosts...)
	shuffle(hosts)

	main := link.KeyString(f.indexURLs()[0])
	urls := mirrors.URLs(hosts)
	out := urls[:0]
	for _, u := range urls {
		if link.KeyString(u) == main {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (f *Finder) logger() logrus.FieldLogger {
	if f.Logger == nil {
		return logrus.StandardLogger()
	}
	return f.Logger
}

// packageURL joins an index root and a project name into the project's page
// url, always with a trailing slash.
func packageURL(index, name string) string {
	return strings.TrimRight(index, "/") + "/" + url.PathEscape(name) + "/"
}

// projectName strips version specifiers, extras and markers from a
// requirement.
func projectName(req string) string {
	req = strings.TrimSpace(req)
	if i := strings.IndexAny(req, "<>=!~[;@ "); i >= 0 {
		req = req[:i]
	}
	return req
}
