// Package formats looks up archive formats by name or file extension.
package formats

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/formats/ar"
	"github.com/meigma/arkive/formats/arj"
	"github.com/meigma/arkive/formats/cpio"
	"github.com/meigma/arkive/formats/sevenz"
	"github.com/meigma/arkive/formats/tar"
	"github.com/meigma/arkive/formats/zip"
)

// Info describes a registered format.
type Info struct {
	// Name is the canonical format name.
	Name string

	// Extensions lists file extensions including the leading dot.
	Extensions []string

	// ReadOnly reports whether the format can only be read.
	ReadOnly bool

	// New constructs the format.
	New func() arkive.Format
}

var registry = []Info{
	{Name: "zip", Extensions: []string{".zip", ".jar", ".war", ".ear", ".apk"}, New: func() arkive.Format { return zip.Format() }},
	{Name: "tar", Extensions: []string{".tar"}, New: tar.Format},
	{Name: "ar", Extensions: []string{".ar", ".a", ".deb"}, New: ar.Format},
	{Name: "cpio", Extensions: []string{".cpio"}, New: cpio.Format},
	{Name: "arj", Extensions: []string{".arj"}, ReadOnly: true, New: arj.Format},
	{Name: "7z", Extensions: []string{".7z"}, ReadOnly: true, New: sevenz.Format},
}

// All returns every registered format sorted by name.
func All() []Info {
	out := make([]Info, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the format registered under name.
func Lookup(name string) (arkive.Format, error) {
	for _, info := range registry {
		if strings.EqualFold(info.Name, name) {
			return info.New(), nil
		}
	}
	return arkive.Format{}, fmt.Errorf("%w: %q", arkive.ErrUnsupportedFormat, name)
}

// ForPath returns the format whose extension matches the file name p.
func ForPath(p string) (arkive.Format, error) {
	ext := strings.ToLower(path.Ext(p))
	for _, info := range registry {
		for _, e := range info.Extensions {
			if e == ext {
				return info.New(), nil
			}
		}
	}
	return arkive.Format{}, fmt.Errorf("%w: no format for %q", arkive.ErrUnsupportedFormat, p)
}
