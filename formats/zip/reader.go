package zip

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	kzip "github.com/klauspost/compress/zip"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/internal/textenc"
)

// index converts the central directory of zr into entries.
type index struct {
	entries []*arkive.Entry
	files   map[*arkive.Entry]*kzip.File
}

func newIndex(zr *kzip.Reader, encoding string) (*index, error) {
	idx := &index{
		entries: make([]*arkive.Entry, 0, len(zr.File)),
		files:   make(map[*arkive.Entry]*kzip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		e, err := toEntry(f, encoding)
		if err != nil {
			return nil, err
		}
		idx.entries = append(idx.entries, e)
		idx.files[e] = f
		if e.Type() == arkive.ModeSymlink && readable(f) {
			if err := readLink(f, e); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

// maxLinkLength bounds the stored target of a symbolic link.
const maxLinkLength = 4096

// readLink loads the target of a symbolic link, which zip stores as the
// entry content.
func readLink(f *kzip.File, e *arkive.Entry) error {
	rc, err := f.Open()
	if err != nil {
		return &arkive.EntryError{Op: "read link", Name: e.Name, Err: fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)}
	}
	defer rc.Close()
	target, err := io.ReadAll(io.LimitReader(rc, maxLinkLength+1))
	if err != nil {
		return &arkive.EntryError{Op: "read link", Name: e.Name, Err: fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)}
	}
	if len(target) > maxLinkLength {
		return &arkive.EntryError{Op: "read link", Name: e.Name, Err: fmt.Errorf("%w: link target exceeds %d bytes", arkive.ErrCorruptArchive, maxLinkLength)}
	}
	e.LinkName = string(target)
	e.Size = 0
	return nil
}

func (idx *index) canRead(e *arkive.Entry) bool {
	f, ok := idx.files[e]
	if !ok {
		return false
	}
	return readable(f) && !e.IsSpecial()
}

// readable reports whether the content of f can be decompressed.
func readable(f *kzip.File) bool {
	return f.Flags&flagEncrypted == 0 && methodSupported(f.Method)
}

func (idx *index) open(e *arkive.Entry) (io.ReadCloser, error) {
	f, ok := idx.files[e]
	if !ok {
		return nil, fmt.Errorf("%w: entry %s is not part of this archive", arkive.ErrUnreadableEntry, e.Name)
	}
	if !idx.canRead(e) {
		return nil, &arkive.EntryError{Op: "open", Name: e.Name, Err: arkive.ErrUnreadableEntry}
	}
	return f.Open()
}

func toEntry(f *kzip.File, encoding string) (*arkive.Entry, error) {
	name := f.Name
	if f.Flags&flagUTF8 == 0 && !textenc.IsUTF8(encoding) {
		decoded, err := textenc.Decode(encoding, name)
		if err != nil {
			return nil, fmt.Errorf("decode name %q: %w", name, err)
		}
		name = decoded
	}
	name = strings.ReplaceAll(name, "\\", "/")

	extra, err := arkive.ParseExtraFields(nil, f.Extra)
	if err != nil {
		return nil, &arkive.EntryError{Op: "read extra fields", Name: name, Err: err}
	}

	e := &arkive.Entry{
		Name:    name,
		Kind:    arkive.KindZip,
		ModTime: f.Modified,
		Zip:     &arkive.ZipExtra{Method: f.Method, Extra: extra},
	}
	dir := e.IsDir()
	if !dir {
		e.Size = int64(f.UncompressedSize64) //nolint:gosec // sizes beyond int64 are rejected by the reader
	}
	if f.CreatorVersion>>8 == creatorUnix {
		mode := f.ExternalAttrs >> 16
		if dir && mode&arkive.ModeTypeMask == 0 {
			mode |= arkive.ModeDir
		}
		e.Mode = arkive.Some(mode)
	}
	return e, nil
}

// fileReader reads a zip archive on disk through its central directory.
type fileReader struct {
	f   *os.File
	idx *index
}

func (c *codec) OpenFile(path string, opts arkive.CodecOptions) (arkive.FileReader, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	zr, err := kzip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)
	}
	registerDecompressors(zr)
	idx, err := newIndex(zr, opts.Encoding)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileReader{f: f, idx: idx}, nil
}

func (r *fileReader) Entries() []*arkive.Entry                   { return r.idx.entries }
func (r *fileReader) CanReadData(e *arkive.Entry) bool           { return r.idx.canRead(e) }
func (r *fileReader) Open(e *arkive.Entry) (io.ReadCloser, error) { return r.idx.open(e) }
func (r *fileReader) Close() error                               { return r.f.Close() }

// streamReader adapts a zip stream to the forward-only Reader. The central
// directory sits at the end of the archive, so the stream is buffered.
type streamReader struct {
	idx *index
	pos int
	cur io.ReadCloser
	err error
}

func (c *codec) NewReader(r io.Reader, opts arkive.CodecOptions) (arkive.Reader, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	zr, err := kzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)
	}
	registerDecompressors(zr)
	idx, err := newIndex(zr, opts.Encoding)
	if err != nil {
		return nil, err
	}
	return &streamReader{idx: idx, pos: -1}, nil
}

func (r *streamReader) Next() (*arkive.Entry, error) {
	if r.cur != nil {
		r.cur.Close()
		r.cur = nil
	}
	r.err = nil
	r.pos++
	if r.pos >= len(r.idx.entries) {
		return nil, io.EOF
	}
	return r.idx.entries[r.pos], nil
}

func (r *streamReader) Read(p []byte) (int, error) {
	if r.pos < 0 || r.pos >= len(r.idx.entries) {
		return 0, errors.New("zip: read outside of an entry")
	}
	if r.err != nil {
		return 0, r.err
	}
	if r.cur == nil {
		rc, err := r.idx.open(r.idx.entries[r.pos])
		if err != nil {
			r.err = err
			return 0, err
		}
		r.cur = rc
	}
	return r.cur.Read(p)
}

func (r *streamReader) CanReadData(e *arkive.Entry) bool { return r.idx.canRead(e) }
