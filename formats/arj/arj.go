// Package arj reads ARJ archives.
//
// Only stored entries can be extracted; entries packed with one of the
// ARJ compression methods, garbled entries, and multi-volume continuations
// are listed but reported as unreadable. Writing is not supported.
package arj

import (
	"io"
	"time"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/internal/textenc"
)

// Granularity is the timestamp resolution of ARJ headers written by DOS hosts.
const Granularity = 2 * time.Second

// Format returns the ARJ format. Builds fail with arkive.ErrReadOnlyFormat
// when the writer is requested; scanning and archive sets work.
func Format() arkive.Format {
	c := Codec()
	return arkive.Format{
		Codec:   c,
		Entries: arkive.EntryBuilderFunc(BuildEntry),
		Sets:    arkive.CodecSets{Codec: c},
	}
}

type codec struct{}

// interface guard
var _ arkive.Codec = codec{}

// Codec returns the ARJ codec.
func Codec() arkive.Codec { return codec{} }

func (codec) Kind() arkive.Kind { return arkive.KindArj }

func (codec) NewReader(r io.Reader, opts arkive.CodecOptions) (arkive.Reader, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	return newReader(r, opts.Encoding)
}

func (codec) NewWriter(io.Writer, arkive.CodecOptions) (arkive.Writer, error) {
	return nil, arkive.ErrReadOnlyFormat
}

// BuildEntry builds an ARJ entry. Ownership is dropped.
func BuildEntry(it arkive.Item, opts arkive.EntryOptions) (*arkive.Entry, error) {
	e := arkive.BaseEntry(it, arkive.KindArj, Granularity, opts)
	e.UID = arkive.None[int]()
	e.GID = arkive.None[int]()
	e.UserName = arkive.None[string]()
	e.GroupName = arkive.None[string]()
	return e, nil
}
