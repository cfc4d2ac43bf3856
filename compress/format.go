// Package compress wraps single-stream compression formats (gzip, bzip2,
// xz, deflate, lz4, snappy, zstd, and read-only brotli) around resources
// and build targets.
//
// A Packer compresses one resource into one target and an Unpacker does
// the reverse. [Target] presents a compressed file as a plain target so an
// archive build can write "app.tar.gz" directly, and [Job] chains a pack
// step behind an archive build or another pack step.
package compress

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/meigma/arkive"
)

// Format is a single-stream compression format.
type Format interface {
	// Name is the canonical format name.
	Name() string

	// Extension is the conventional file extension including the dot.
	Extension() string

	// SupportsConcatenated reports whether the decoder can be told to
	// read every back-to-back compressed member instead of the first one.
	SupportsConcatenated() bool

	// NewReader decompresses r. With concatenated false the reader stops
	// after the first member on formats that support the switch.
	NewReader(r io.Reader, concatenated bool) (io.ReadCloser, error)

	// NewWriter compresses into w. Closing the writer flushes the stream
	// but does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

// format is a Format assembled from constructor functions.
type format struct {
	name      string
	ext       string
	aliases   []string
	concat    bool
	newReader func(r io.Reader, concatenated bool) (io.ReadCloser, error)
	newWriter func(w io.Writer) (io.WriteCloser, error)
}

func (f *format) Name() string               { return f.name }
func (f *format) Extension() string          { return f.ext }
func (f *format) SupportsConcatenated() bool { return f.concat }

func (f *format) NewReader(r io.Reader, concatenated bool) (io.ReadCloser, error) {
	if concatenated && !f.concat {
		return nil, fmt.Errorf("%s: %w", f.name, arkive.ErrConcatenatedUnsupported)
	}
	return f.newReader(r, concatenated)
}

func (f *format) NewWriter(w io.Writer) (io.WriteCloser, error) {
	if f.newWriter == nil {
		return nil, fmt.Errorf("%s: %w", f.name, arkive.ErrReadOnlyFormat)
	}
	return f.newWriter(w)
}

// ReadOnly reports whether f cannot compress.
func ReadOnly(f Format) bool {
	if ff, ok := f.(*format); ok {
		return ff.newWriter == nil
	}
	return false
}

// All returns every built-in format sorted by name.
func All() []Format {
	out := builtin()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Lookup returns the built-in format registered under name or one of its
// aliases.
func Lookup(name string) (Format, error) {
	for _, f := range builtin() {
		ff := f.(*format)
		if strings.EqualFold(ff.name, name) {
			return f, nil
		}
		for _, a := range ff.aliases {
			if strings.EqualFold(a, name) {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", arkive.ErrUnsupportedFormat, name)
}

// ForPath returns the built-in format whose extension matches the file
// name p. Short forms such as ".tgz" resolve to their compression format.
func ForPath(p string) (Format, error) {
	ext := strings.ToLower(path.Ext(p))
	if name, ok := shortExts[ext]; ok {
		return Lookup(name)
	}
	for _, f := range builtin() {
		if f.Extension() == ext {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: no compression format for %q", arkive.ErrUnsupportedFormat, p)
}

// Strip removes the compression extension of f from name, mapping short
// forms such as ".tgz" back to ".tar".
func Strip(name string, f Format) string {
	ext := path.Ext(name)
	lower := strings.ToLower(ext)
	if shortExts[lower] == f.Name() {
		return strings.TrimSuffix(name, ext) + ".tar"
	}
	if lower == f.Extension() {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

var shortExts = map[string]string{
	".tgz":  "gzip",
	".tbz2": "bzip2",
	".txz":  "xz",
	".tzst": "zstd",
}
