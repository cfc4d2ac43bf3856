// Package tar provides the tar archive format.
//
// Tar stores the full metadata model: unix mode, numeric and symbolic
// ownership, and one-second timestamps.
package tar

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/internal/textenc"
)

// Granularity is the timestamp resolution of tar headers.
const Granularity = time.Second

// Format returns the tar format.
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

// Codec returns the tar codec.
func Codec() arkive.Codec { return codec{} }

func (codec) Kind() arkive.Kind { return arkive.KindTar }

func (codec) NewReader(r io.Reader, opts arkive.CodecOptions) (arkive.Reader, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	return &reader{tr: tar.NewReader(r), encoding: opts.Encoding}, nil
}

func (codec) NewWriter(w io.Writer, opts arkive.CodecOptions) (arkive.Writer, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	return &writer{tw: tar.NewWriter(w), encoding: opts.Encoding}, nil
}

type reader struct {
	tr       *tar.Reader
	encoding string
}

func (r *reader) Next() (*arkive.Entry, error) {
	hdr, err := r.tr.Next()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)
	}
	return r.toEntry(hdr)
}

func (r *reader) toEntry(hdr *tar.Header) (*arkive.Entry, error) {
	name, err := r.decode(hdr.Name, "path", hdr)
	if err != nil {
		return nil, err
	}
	link, err := r.decode(hdr.Linkname, "linkpath", hdr)
	if err != nil {
		return nil, err
	}

	// Entry types without a unix equivalent (GNU sparse, volume labels)
	// carry no type bits and are reported unreadable.
	var typ uint32
	switch hdr.Typeflag {
	case tar.TypeDir:
		typ = arkive.ModeDir
		if !strings.HasSuffix(name, "/") {
			name += "/"
		}
	case tar.TypeReg, '\x00':
		typ = arkive.ModeRegular
	case tar.TypeLink:
		typ = arkive.ModeRegular
	case tar.TypeSymlink:
		typ = arkive.ModeSymlink
	case tar.TypeFifo:
		typ = arkive.ModeFIFO
	case tar.TypeChar:
		typ = arkive.ModeCharDevice
	case tar.TypeBlock:
		typ = arkive.ModeBlockDevice
	}

	e := &arkive.Entry{
		Name:    name,
		Kind:    arkive.KindTar,
		ModTime: hdr.ModTime,
		Mode:    arkive.Some(typ | uint32(hdr.Mode)&arkive.ModePermMask), //nolint:gosec // masked to permission bits
		UID:     arkive.Some(hdr.Uid),
		GID:     arkive.Some(hdr.Gid),
	}
	switch hdr.Typeflag {
	case tar.TypeReg, '\x00':
		e.Size = hdr.Size
	case tar.TypeLink, tar.TypeSymlink:
		e.LinkName = link
	case tar.TypeChar, tar.TypeBlock:
		e.DevMajor = hdr.Devmajor
		e.DevMinor = hdr.Devminor
	}
	if hdr.Uname != "" {
		e.UserName = arkive.Some(hdr.Uname)
	}
	if hdr.Gname != "" {
		e.GroupName = arkive.Some(hdr.Gname)
	}
	return e, nil
}

// decode converts a header name from the archive encoding unless a PAX
// record already supplies it in UTF-8.
func (r *reader) decode(raw, paxKey string, hdr *tar.Header) (string, error) {
	if raw == "" || textenc.IsUTF8(r.encoding) {
		return raw, nil
	}
	if _, pax := hdr.PAXRecords[paxKey]; pax {
		return raw, nil
	}
	decoded, err := textenc.Decode(r.encoding, raw)
	if err != nil {
		return "", fmt.Errorf("decode name %q: %w", raw, err)
	}
	return decoded, nil
}

func (r *reader) Read(p []byte) (int, error) {
	return r.tr.Read(p)
}

// CanReadData reports true for regular files and directories. Links and
// device nodes have no content that could be extracted as a file; they
// are copied as metadata only.
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
	tw       *tar.Writer
	encoding string
}

func (w *writer) WriteHeader(e *arkive.Entry) error {
	name, link := e.Name, e.LinkName
	format := tar.FormatUnknown
	if !textenc.IsUTF8(w.encoding) {
		var err error
		if name, err = textenc.Encode(w.encoding, name); err != nil {
			return err
		}
		if link, err = textenc.Encode(w.encoding, link); err != nil {
			return err
		}
		format = tar.FormatGNU
	}

	hdr := &tar.Header{
		Name:     name,
		ModTime:  e.ModTime,
		Mode:     int64(e.Perm()),
		Uid:      e.UID.OrElse(0),
		Gid:      e.GID.OrElse(0),
		Uname:    e.UserName.OrElse(""),
		Gname:    e.GroupName.OrElse(""),
		Typeflag: tar.TypeReg,
		Size:     e.Size,
		Format:   format,
	}
	switch {
	case e.IsDir():
		hdr.Typeflag = tar.TypeDir
	case e.Type() == arkive.ModeSymlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = link
	case e.LinkName != "":
		hdr.Typeflag = tar.TypeLink
		hdr.Linkname = link
	case e.Type() == arkive.ModeFIFO:
		hdr.Typeflag = tar.TypeFifo
	case e.Type() == arkive.ModeCharDevice:
		hdr.Typeflag = tar.TypeChar
	case e.Type() == arkive.ModeBlockDevice:
		hdr.Typeflag = tar.TypeBlock
	}
	if hdr.Typeflag != tar.TypeReg {
		hdr.Size = 0
	}
	if hdr.Typeflag == tar.TypeChar || hdr.Typeflag == tar.TypeBlock {
		hdr.Devmajor = e.DevMajor
		hdr.Devminor = e.DevMinor
	}
	return w.tw.WriteHeader(hdr)
}

func (w *writer) Write(p []byte) (int, error) {
	return w.tw.Write(p)
}

// CloseEntry pads the entry and reports a short write.
func (w *writer) CloseEntry() error {
	return w.tw.Flush()
}

func (w *writer) Close() error {
	return w.tw.Close()
}

// BuildEntry builds a tar entry. Tar keeps every merged attribute.
func BuildEntry(it arkive.Item, opts arkive.EntryOptions) (*arkive.Entry, error) {
	return arkive.BaseEntry(it, arkive.KindTar, Granularity, opts), nil
}
