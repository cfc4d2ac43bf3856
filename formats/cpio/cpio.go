// Package cpio provides the SVR4 "newc" cpio format on top of
// github.com/cavaliergopher/cpio.
package cpio

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cavaliergopher/cpio"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/internal/textenc"
)

// Granularity is the timestamp resolution of cpio headers.
const Granularity = time.Second

// Format returns the cpio format.
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

// Codec returns the cpio codec.
func Codec() arkive.Codec { return codec{} }

func (codec) Kind() arkive.Kind { return arkive.KindCpio }

func (codec) NewReader(r io.Reader, opts arkive.CodecOptions) (arkive.Reader, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	return &reader{cr: cpio.NewReader(r), encoding: opts.Encoding}, nil
}

func (codec) NewWriter(w io.Writer, opts arkive.CodecOptions) (arkive.Writer, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	return &writer{cw: cpio.NewWriter(w), encoding: opts.Encoding}, nil
}

type reader struct {
	cr       *cpio.Reader
	encoding string
}

func (r *reader) Next() (*arkive.Entry, error) {
	hdr, err := r.cr.Next()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)
	}

	name, err := textenc.Decode(r.encoding, hdr.Name)
	if err != nil {
		return nil, fmt.Errorf("decode name %q: %w", hdr.Name, err)
	}
	mode := uint32(hdr.Mode)
	e := &arkive.Entry{
		Name:    name,
		Kind:    arkive.KindCpio,
		ModTime: hdr.ModTime,
		Mode:    arkive.Some(mode),
		UID:     arkive.Some(hdr.Uid),
		GID:     arkive.Some(hdr.Guid),
	}
	switch mode & arkive.ModeTypeMask {
	case arkive.ModeDir:
		if !strings.HasSuffix(e.Name, "/") {
			e.Name += "/"
		}
	case arkive.ModeSymlink:
		if e.LinkName, err = textenc.Decode(r.encoding, hdr.Linkname); err != nil {
			return nil, fmt.Errorf("decode link %q: %w", hdr.Linkname, err)
		}
	default:
		e.Size = hdr.Size
	}
	return e, nil
}

func (r *reader) Read(p []byte) (int, error) {
	return r.cr.Read(p)
}

// CanReadData reports true for regular files and directories.
func (r *reader) CanReadData(e *arkive.Entry) bool {
	if e.IsSpecial() {
		return false
	}
	switch e.Type() {
	case arkive.ModeRegular, arkive.ModeDir:
		return true
	}
	return false
}

type writer struct {
	cw       *cpio.Writer
	encoding string
}

// WriteHeader writes the header of e. A symbolic link stores its target
// as the entry body, which is written here.
func (w *writer) WriteHeader(e *arkive.Entry) error {
	dir := e.IsDir()
	name, err := textenc.Encode(w.encoding, strings.TrimSuffix(e.Name, "/"))
	if err != nil {
		return err
	}
	link, err := textenc.Encode(w.encoding, e.LinkName)
	if err != nil {
		return err
	}
	hdr := &cpio.Header{
		Name:    name,
		Mode:    cpio.FileMode(arkive.UnixMode(e.Perm(), dir)),
		Uid:     e.UID.OrElse(0),
		Guid:    e.GID.OrElse(0),
		ModTime: e.ModTime,
		Links:   1,
	}
	switch typ := e.Type(); {
	case dir:
		hdr.Links = 2
	case typ == arkive.ModeSymlink:
		hdr.Mode = cpio.FileMode(typ | e.Perm())
		hdr.Size = int64(len(link))
	case typ == arkive.ModeFIFO, typ == arkive.ModeCharDevice, typ == arkive.ModeBlockDevice:
		hdr.Mode = cpio.FileMode(typ | e.Perm())
	case e.LinkName != "":
		return &arkive.EntryError{Op: "write header", Name: e.Name, Err: arkive.ErrSpecialUnsupported}
	default:
		hdr.Size = e.Size
	}
	if err := w.cw.WriteHeader(hdr); err != nil {
		return err
	}
	if hdr.Mode&cpio.ModeType == cpio.TypeSymlink {
		if _, err := io.WriteString(w.cw, link); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) Write(p []byte) (int, error) {
	return w.cw.Write(p)
}

func (w *writer) CloseEntry() error { return nil }

// Close writes the trailer record.
func (w *writer) Close() error {
	return w.cw.Close()
}

// BuildEntry builds a cpio entry. Symbolic owner names are dropped, and
// hard links are rejected because newc records them by inode, not name.
// Device numbers are not stored.
func BuildEntry(it arkive.Item, opts arkive.EntryOptions) (*arkive.Entry, error) {
	e := arkive.BaseEntry(it, arkive.KindCpio, Granularity, opts)
	if e.LinkName != "" && e.Type() != arkive.ModeSymlink {
		return nil, fmt.Errorf("%w: hard link %s", arkive.ErrSpecialUnsupported, it.Name)
	}
	e.UserName = arkive.None[string]()
	e.GroupName = arkive.None[string]()
	return e, nil
}
