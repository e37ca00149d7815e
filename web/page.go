package web

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/harrybrwn/scout/link"
	"golang.org/x/net/html"
)

// HTMLPage is a fetched and decoded index page. Pages are immutable and safe
// to share between goroutines.
type HTMLPage struct {
	content string
	url     *url.URL

	once sync.Once
	doc  *goquery.Document
	base *url.URL
}

// NewHTMLPage creates a page from decoded text and the url it was
// retrieved from.
func NewHTMLPage(content string, u *url.URL) *HTMLPage {
	var cp url.URL
	if u != nil {
		cp = *u
	}
	return &HTMLPage{content: content, url: &cp}
}

// NewHTMLPageFromString is like NewHTMLPage but takes a raw url. It returns
// nil if the url cannot be parsed.
func NewHTMLPageFromString(content, rawurl string) *HTMLPage {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil
	}
	return NewHTMLPage(content, u)
}

// Content returns the decoded text of the page.
func (p *HTMLPage) Content() string { return p.content }

// URL returns the url the page was retrieved from after redirects.
func (p *HTMLPage) URL() *url.URL {
	cp := *p.url
	return &cp
}

// Base returns the url that relative links are resolved against. This is
// the page's <base href> when it has one.
func (p *HTMLPage) Base() *url.URL {
	p.parse()
	cp := *p.base
	return &cp
}

func (p *HTMLPage) String() string { return p.url.String() }

func (p *HTMLPage) parse() {
	p.once.Do(func() {
		root, err := html.Parse(strings.NewReader(p.content))
		if err != nil {
			log.WithError(err).WithField("url", p.url.String()).Warn("could not parse page")
			root = &html.Node{Type: html.DocumentNode}
		}
		p.doc = goquery.NewDocumentFromNode(root)
		p.base = p.url
		if href, ok := p.doc.Find("base[href]").First().Attr("href"); ok {
			if b, err := p.url.Parse(strings.TrimSpace(href)); err == nil {
				p.base = b
			}
		}
	})
}

// Links returns every anchor on the page resolved against the base url.
// Links that appear more than once on the page are returned more than once.
func (p *HTMLPage) Links() []*link.Link {
	p.parse()
	var (
		sel   = p.doc.Find("a[href]")
		links = make([]*link.Link, 0, sel.Length())
	)
	sel.Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		l := p.resolve(href, strings.TrimSpace(s.Text()))
		if l != nil {
			links = append(links, l)
		}
	})
	return links
}

var (
	relTypes   = []string{"homepage", "download"}
	hrefRe     = regexp.MustCompile(`(?is)href=(?:"([^"]*)"|'([^']*)'|([^>\s\n]*))`)
	homepageRe = regexp.MustCompile(`(?i)<th>\s*home\s*page`)
	downloadRe = regexp.MustCompile(`(?i)<th>\s*download\s+url`)
	cleanRe    = regexp.MustCompile(`(?i)[^a-z0-9$&+,/:;=?@.#%_\\|-]`)
)

// RelLinks returns the links that hint at other pages worth looking at for
// a package: anchors marked rel="homepage" or rel="download" followed by the
// links scraped from "Home Page" and "Download URL" table headers.
func (p *HTMLPage) RelLinks() []*link.Link {
	links := p.ExplicitRelLinks(relTypes...)
	return append(links, p.ScrapedRelLinks()...)
}

// ExplicitRelLinks returns the links for anchors with a rel attribute
// containing one of the given rel types.
func (p *HTMLPage) ExplicitRelLinks(rels ...string) []*link.Link {
	p.parse()
	links := make([]*link.Link, 0)
	p.doc.Find("a[rel][href]").Each(func(_ int, s *goquery.Selection) {
		rel, _ := s.Attr("rel")
		if !hasRel(rel, rels) {
			return
		}
		href, _ := s.Attr("href")
		if l := p.resolve(href, rel); l != nil {
			links = append(links, l)
		}
	})
	return links
}

// ScrapedRelLinks finds the first href after a "Home Page" or "Download URL"
// table header. This works on the raw text so that headers hidden in
// comments are still found.
func (p *HTMLPage) ScrapedRelLinks() []*link.Link {
	links := make([]*link.Link, 0)
	for _, re := range []*regexp.Regexp{homepageRe, downloadRe} {
		loc := re.FindStringIndex(p.content)
		if loc == nil {
			continue
		}
		m := hrefRe.FindStringSubmatch(p.content[loc[1]:])
		if m == nil {
			continue
		}
		href := m[1] + m[2] + m[3] // at most one group matches
		if href == "" {
			continue
		}
		if l := p.resolve(href, ""); l != nil {
			links = append(links, l)
		}
	}
	return links
}

func (p *HTMLPage) resolve(href, comment string) *link.Link {
	p.parse()
	href = strings.Trim(href, "\t \n")
	if href == "" {
		return nil
	}
	u, err := url.Parse(href)
	if err != nil {
		// Skip invalid hyperlinks
		return nil
	}
	u, err = url.Parse(cleanLink(p.base.ResolveReference(u).String()))
	if err != nil {
		return nil
	}
	return link.New(u, comment)
}

// cleanLink percent-escapes characters that should not appear in a url.
func cleanLink(s string) string {
	return cleanRe.ReplaceAllStringFunc(s, func(c string) string {
		var b strings.Builder
		for i := 0; i < len(c); i++ {
			fmt.Fprintf(&b, "%%%02x", c[i])
		}
		return b.String()
	})
}

func hasRel(rel string, want []string) bool {
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		for _, w := range want {
			if r == w {
				return true
			}
		}
	}
	return false
}
