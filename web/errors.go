package web

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownCharset is returned when a content type names a charset that
	// has no decoder.
	ErrUnknownCharset = errors.New("unknown charset")
	// ErrUnsupportedScheme is returned by HTTPFetcher for urls it cannot fetch.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// TransportError is a network or file system failure. These are never cached
// so a later request for the same url will try again.
type TransportError struct {
	URL    string
	Status int // zero when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("could not fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("could not fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is returned when a page declares a charset and its content
// cannot be decoded with it.
type DecodeError struct {
	URL     string
	Charset string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("could not decode content as %q: %v", e.Charset, e.Err)
	}
	return fmt.Sprintf("could not decode %s as %q: %v", e.URL, e.Charset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
