package web

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	errInvalidUTF8  = errors.New("invalid utf-8")
	errInvalidASCII = errors.New("byte outside of us-ascii")
	errInvalidInput = errors.New("invalid byte sequence")
)

// Decode turns a response body into text.
//
// When the content type carries a charset parameter the body is decoded with
// exactly that charset and a failure is returned as a *DecodeError. Without
// one the body is read as utf-8 and, if that is not valid, as latin-1 which
// accepts any sequence of bytes.
func Decode(body []byte, contentType string) (string, error) {
	_, params := mediaType(contentType)
	label := strings.TrimSpace(params["charset"])
	if label == "" {
		if utf8.Valid(body) {
			return string(body), nil
		}
		return decodeLatin1(body), nil
	}

	enc, name := lookupCharset(label)
	if enc == nil {
		return "", &DecodeError{Charset: label, Err: ErrUnknownCharset}
	}
	var (
		b   []byte
		err error
	)
	switch name {
	case "utf-8":
		if !utf8.Valid(body) {
			return "", &DecodeError{Charset: label, Err: errInvalidUTF8}
		}
		return string(body), nil
	case "us-ascii":
		for _, c := range body {
			if c >= utf8.RuneSelf {
				return "", &DecodeError{Charset: label, Err: errInvalidASCII}
			}
		}
		return string(body), nil
	case "utf-16", "utf-16le", "utf-16be":
		// a byte order mark overrides the label's endianness
		b, _, err = transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), body)
	default:
		b, err = enc.NewDecoder().Bytes(body)
	}
	if err != nil {
		return "", &DecodeError{Charset: label, Err: err}
	}
	if replaced(enc, body, b) {
		return "", &DecodeError{Charset: label, Err: errInvalidInput}
	}
	return string(b), nil
}

// lookupCharset resolves a label by its IANA name first so that labels like
// iso-8859-1 keep their exact meaning. Labels that only browsers know fall
// back to the html label table.
func lookupCharset(label string) (encoding.Encoding, string) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err == nil && enc != nil {
		if name, err := ianaindex.IANA.Name(enc); err == nil {
			return enc, strings.ToLower(name)
		}
	}
	return charset.Lookup(label)
}

// replaced reports whether the decoder substituted U+FFFD for input it could
// not decode. Replacement characters that were encoded in the body itself
// are not counted.
func replaced(enc encoding.Encoding, body, decoded []byte) bool {
	n := bytes.Count(decoded, []byte(string(utf8.RuneError)))
	if n == 0 {
		return false
	}
	want, err := enc.NewEncoder().Bytes([]byte(string(utf8.RuneError)))
	if err != nil || len(want) == 0 {
		return true
	}
	// utf-16 encoders may write a byte order mark first
	want = bytes.TrimPrefix(bytes.TrimPrefix(want, []byte{0xfe, 0xff}), []byte{0xff, 0xfe})
	return bytes.Count(body, want) < n
}

func decodeLatin1(body []byte) string {
	// every byte is a valid latin-1 code point so this cannot fail
	b, _ := charmap.ISO8859_1.NewDecoder().Bytes(body)
	return string(b)
}
