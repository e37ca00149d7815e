// Package mirrors discovers the hostnames of package index mirrors.
//
// Mirrors follow a round-robin naming convention where each mirror is named
// <letter>.<domain> and the name DefaultHostname is a CNAME for the last live
// mirror. Resolving it gives the highest letter in use.
package mirrors

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultHostname is the name that points to the last mirror.
const DefaultHostname = "last.pypi.python.org"

var log = logrus.StandardLogger()

func SetLogger(l *logrus.Logger) { log = l }

// Lookup resolves the canonical name of a host. *net.Resolver satisfies
// this interface.
type Lookup interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// DNSError is returned when the mirror hostname cannot be resolved.
type DNSError struct {
	Host string
	Err  error
}

func (e *DNSError) Error() string {
	return fmt.Sprintf("could not resolve mirror host %s: %v", e.Host, e.Err)
}

func (e *DNSError) Unwrap() error { return e.Err }

// Resolver expands one mirror hostname into the list of mirrors.
type Resolver struct {
	Lookup Lookup
}

// NewResolver creates a Resolver. A nil lookup uses net.DefaultResolver.
func NewResolver(lookup Lookup) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	return &Resolver{Lookup: lookup}
}

// Get resolves hostname and returns the mirror hostnames from a up to the
// letter of its canonical name. When the canonical name does not reveal a
// letter, every letter from a to z is returned. Lookup failures are returned
// as a *DNSError and never retried.
func (r *Resolver) Get(ctx context.Context, hostname string) ([]string, error) {
	if hostname == "" {
		hostname = DefaultHostname
	}
	lookup := r.Lookup
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	cname, err := lookup.LookupCNAME(ctx, hostname)
	if err != nil {
		return nil, &DNSError{Host: hostname, Err: err}
	}
	cname = strings.TrimSuffix(cname, ".")
	query := strings.TrimSuffix(hostname, ".")

	if !strings.EqualFold(cname, query) {
		if letter, domain, ok := split(cname); ok && isLetter(letter) {
			return expand(letter[0]|0x20, domain), nil
		}
	}
	// DNS gave nothing useful, err on the side of too many mirrors
	_, domain, _ := split(query)
	log.WithFields(logrus.Fields{
		"host":  query,
		"cname": cname,
	}).Debug("mirror cname has no letter, using every mirror")
	return expand('z', domain), nil
}

func split(host string) (first, rest string, ok bool) {
	return strings.Cut(host, ".")
}

func isLetter(s string) bool {
	return len(s) == 1 && (s[0] >= 'a' && s[0] <= 'z' || s[0] >= 'A' && s[0] <= 'Z')
}

func expand(last byte, domain string) []string {
	hosts := make([]string, 0, last-'a'+1)
	for c := byte('a'); c <= last; c++ {
		hosts = append(hosts, string(c)+"."+domain)
	}
	return hosts
}
