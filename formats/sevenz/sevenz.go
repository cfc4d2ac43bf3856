// Package sevenz reads 7z archives on top of github.com/bodgit/sevenzip.
//
// 7z archives are random access: the header index sits at the end of the
// file, so the codec is file-aware and streams are buffered in memory.
// Writing is not supported.
package sevenz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bodgit/sevenzip"

	"github.com/meigma/arkive"
)

// Granularity is the timestamp resolution of 7z headers.
const Granularity = 100 * time.Nanosecond

// unixExtension marks attributes whose high word holds a unix mode.
const unixExtension = 0x8000

// Format returns the 7z format. Builds fail with arkive.ErrReadOnlyFormat
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
var _ arkive.FileCodec = codec{}

// Codec returns the 7z codec.
func Codec() arkive.FileCodec { return codec{} }

func (codec) Kind() arkive.Kind { return arkive.KindSevenZ }

func (codec) NewWriter(io.Writer, arkive.CodecOptions) (arkive.Writer, error) {
	return nil, arkive.ErrReadOnlyFormat
}

func (codec) OpenFile(path string, _ arkive.CodecOptions) (arkive.FileReader, error) {
	rc, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)
	}
	return &fileReader{index: newIndex(rc.File), closer: rc}, nil
}

func (codec) NewReader(r io.Reader, _ arkive.CodecOptions) (arkive.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	zr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)
	}
	return &streamReader{index: newIndex(zr.File), pos: -1}, nil
}

type index struct {
	entries []*arkive.Entry
	files   map[*arkive.Entry]*sevenzip.File
}

func newIndex(files []*sevenzip.File) *index {
	idx := &index{
		entries: make([]*arkive.Entry, 0, len(files)),
		files:   make(map[*arkive.Entry]*sevenzip.File, len(files)),
	}
	for _, f := range files {
		e := toEntry(f)
		idx.entries = append(idx.entries, e)
		idx.files[e] = f
	}
	return idx
}

func toEntry(f *sevenzip.File) *arkive.Entry {
	name := strings.ReplaceAll(f.Name, "\\", "/")
	dir := f.FileInfo().IsDir()
	if dir && !strings.HasSuffix(name, "/") {
		name += "/"
	}
	e := &arkive.Entry{
		Name:    name,
		Kind:    arkive.KindSevenZ,
		ModTime: f.Modified,
		SevenZ:  &arkive.SevenZExtra{},
	}
	if !dir {
		e.Size = int64(f.UncompressedSize) //nolint:gosec // sizes beyond int64 are rejected by the reader
	}
	if f.Attributes&unixExtension != 0 {
		e.Mode = arkive.Some(f.Attributes >> 16)
	}
	return e
}

func (idx *index) open(e *arkive.Entry) (io.ReadCloser, error) {
	f, ok := idx.files[e]
	if !ok {
		return nil, fmt.Errorf("%w: entry %s is not part of this archive", arkive.ErrUnreadableEntry, e.Name)
	}
	return f.Open()
}

func (idx *index) canRead(e *arkive.Entry) bool {
	_, ok := idx.files[e]
	return ok
}

type fileReader struct {
	*index
	closer io.Closer
}

func (r *fileReader) Entries() []*arkive.Entry                   { return r.entries }
func (r *fileReader) CanReadData(e *arkive.Entry) bool           { return r.canRead(e) }
func (r *fileReader) Open(e *arkive.Entry) (io.ReadCloser, error) { return r.open(e) }
func (r *fileReader) Close() error                               { return r.closer.Close() }

type streamReader struct {
	*index
	pos int
	cur io.ReadCloser
}

func (r *streamReader) Next() (*arkive.Entry, error) {
	if r.cur != nil {
		r.cur.Close()
		r.cur = nil
	}
	r.pos++
	if r.pos >= len(r.entries) {
		return nil, io.EOF
	}
	return r.entries[r.pos], nil
}

func (r *streamReader) Read(p []byte) (int, error) {
	if r.pos < 0 || r.pos >= len(r.entries) {
		return 0, errors.New("7z: read outside of an entry")
	}
	if r.cur == nil {
		rc, err := r.open(r.entries[r.pos])
		if err != nil {
			return 0, err
		}
		r.cur = rc
	}
	return r.cur.Read(p)
}

func (r *streamReader) CanReadData(e *arkive.Entry) bool { return r.canRead(e) }

// BuildEntry builds a 7z entry carrying the content methods of a source
// entry. Ownership is dropped.
func BuildEntry(it arkive.Item, opts arkive.EntryOptions) (*arkive.Entry, error) {
	e := arkive.BaseEntry(it, arkive.KindSevenZ, Granularity, opts)
	e.UID = arkive.None[int]()
	e.GID = arkive.None[int]()
	e.UserName = arkive.None[string]()
	e.GroupName = arkive.None[string]()
	e.SevenZ = &arkive.SevenZExtra{ContentMethods: it.Flags.ContentMethods.OrElse(nil)}
	return e, nil
}
