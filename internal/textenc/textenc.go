// Package textenc converts archive entry names between UTF-8 and the
// legacy character sets some archives are written in.
package textenc

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrUnknownEncoding is returned for character set names that are not
// registered with IANA or have no decoder.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Lookup resolves an IANA character set name. Empty and UTF-8 names
// return a nil encoding, meaning names pass through unchanged.
func Lookup(name string) (encoding.Encoding, error) {
	if IsUTF8(name) {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: %q has no codec", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// IsUTF8 reports whether name denotes the default UTF-8 encoding.
func IsUTF8(name string) bool {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// Decode converts a raw name in the named character set to UTF-8.
func Decode(name, raw string) (string, error) {
	enc, err := Lookup(name)
	if err != nil || enc == nil {
		return raw, err
	}
	return enc.NewDecoder().String(raw)
}

// Encode converts a UTF-8 name to the named character set.
func Encode(name, s string) (string, error) {
	enc, err := Lookup(name)
	if err != nil || enc == nil {
		return s, err
	}
	out, err := enc.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("encode %q as %s: %w", s, name, err)
	}
	return out, nil
}
