// Package ar provides the unix ar archive format on top of
// github.com/blakesmith/ar.
//
// Ar holds files only, with names of at most 16 bytes, numeric ownership,
// permissions, and one-second timestamps.
package ar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/blakesmith/ar"

	"github.com/meigma/arkive"
	"github.com/meigma/arkive/internal/textenc"
)

// Granularity is the timestamp resolution of ar headers.
const Granularity = time.Second

// MaxNameLength is the longest entry name an ar header can hold.
const MaxNameLength = 16

// Format returns the ar format.
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

// Codec returns the ar codec.
func Codec() arkive.Codec { return codec{} }

func (codec) Kind() arkive.Kind { return arkive.KindAr }

func (codec) NewReader(r io.Reader, opts arkive.CodecOptions) (arkive.Reader, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	return &reader{ar: ar.NewReader(r), encoding: opts.Encoding}, nil
}

func (codec) NewWriter(w io.Writer, opts arkive.CodecOptions) (arkive.Writer, error) {
	if _, err := textenc.Lookup(opts.Encoding); err != nil {
		return nil, err
	}
	aw := ar.NewWriter(w)
	if err := aw.WriteGlobalHeader(); err != nil {
		return nil, fmt.Errorf("write ar header: %w", err)
	}
	return &writer{aw: aw, encoding: opts.Encoding}, nil
}

type reader struct {
	ar       *ar.Reader
	encoding string
}

func (r *reader) Next() (*arkive.Entry, error) {
	for {
		hdr, err := r.next()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", arkive.ErrCorruptArchive, err)
		}
		name := strings.TrimSpace(hdr.Name)
		if isSymbolTable(name) {
			continue
		}
		decoded, err := textenc.Decode(r.encoding, strings.TrimSuffix(name, "/"))
		if err != nil {
			return nil, fmt.Errorf("decode name %q: %w", name, err)
		}
		return &arkive.Entry{
			Name:    decoded,
			Kind:    arkive.KindAr,
			Size:    hdr.Size,
			ModTime: hdr.ModTime,
			Mode:    arkive.Some(arkive.ModeRegular | uint32(hdr.Mode)&arkive.ModePermMask), //nolint:gosec // masked to permission bits
			UID:     arkive.Some(hdr.Uid),
			GID:     arkive.Some(hdr.Gid),
		}, nil
	}
}

// next reads one header. The library panics on mode fields shorter than
// its three-digit type prefix.
func (r *reader) next() (hdr *ar.Header, err error) {
	defer func() {
		if p := recover(); p != nil {
			hdr, err = nil, fmt.Errorf("malformed header: %v", p)
		}
	}()
	return r.ar.Next()
}

// isSymbolTable reports whether name is a GNU or BSD index member.
func isSymbolTable(name string) bool {
	switch name {
	case "/", "//", "/SYM64/", "__.SYMDEF", "__.SYMDEF SORTED":
		return true
	}
	return false
}

func (r *reader) Read(p []byte) (int, error) {
	return r.ar.Read(p)
}

func (r *reader) CanReadData(*arkive.Entry) bool { return true }

type writer struct {
	aw        *ar.Writer
	encoding  string
	name      string
	remaining int64
	held      byte
	hasHeld   bool
}

func (w *writer) WriteHeader(e *arkive.Entry) error {
	if e.IsSpecial() {
		return &arkive.EntryError{Op: "write header", Name: e.Name, Err: arkive.ErrSpecialUnsupported}
	}
	name, err := textenc.Encode(w.encoding, e.Name)
	if err != nil {
		return &arkive.EntryError{Op: "write header", Name: e.Name, Err: err}
	}
	if err := checkName(name, e.IsDir()); err != nil {
		return &arkive.EntryError{Op: "write header", Name: e.Name, Err: err}
	}
	w.name = e.Name
	w.remaining = e.Size
	w.hasHeld = false
	// The library writes the regular-file type digits itself.
	return w.aw.WriteHeader(&ar.Header{
		Name:    name,
		ModTime: e.ModTime,
		Uid:     e.UID.OrElse(0),
		Gid:     e.GID.OrElse(0),
		Mode:    int64(e.Perm()),
		Size:    e.Size,
	})
}

// Write hands content to the library in even-sized chunks. The library
// pads after every odd-sized write, so a trailing odd byte is held until
// the next Write or CloseEntry.
func (w *writer) Write(p []byte) (int, error) {
	n := len(p)
	if int64(n) > w.remaining {
		return 0, &arkive.EntryError{Op: "write", Name: w.name, Err: ar.ErrWriteTooLong}
	}
	w.remaining -= int64(n)
	if w.hasHeld && len(p) > 0 {
		if _, err := w.aw.Write([]byte{w.held, p[0]}); err != nil {
			return 0, err
		}
		w.hasHeld = false
		p = p[1:]
	}
	if len(p)%2 == 1 {
		w.held = p[len(p)-1]
		w.hasHeld = true
		p = p[:len(p)-1]
	}
	if len(p) > 0 {
		if _, err := w.aw.Write(p); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// CloseEntry flushes a held byte and reports a short write.
func (w *writer) CloseEntry() error {
	if w.remaining > 0 {
		return &arkive.EntryError{Op: "close", Name: w.name, Err: fmt.Errorf("missed writing %d bytes", w.remaining)}
	}
	if w.hasHeld {
		w.hasHeld = false
		if _, err := w.aw.Write([]byte{w.held}); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) Close() error { return nil }

func checkName(name string, dir bool) error {
	if dir {
		return arkive.ErrDirectoryUnsupported
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes, ar allows %d", arkive.ErrNameTooLong, len(name), MaxNameLength)
	}
	return nil
}

// BuildEntry builds an ar entry. Directories, links, device nodes, and
// names longer than MaxNameLength are rejected; symbolic owner names are
// dropped.
func BuildEntry(it arkive.Item, opts arkive.EntryOptions) (*arkive.Entry, error) {
	if err := checkName(it.Name, it.IsDir()); err != nil {
		return nil, err
	}
	e := arkive.BaseEntry(it, arkive.KindAr, Granularity, opts)
	if e.IsSpecial() {
		return nil, fmt.Errorf("%w: %s", arkive.ErrSpecialUnsupported, it.Name)
	}
	e.UserName = arkive.None[string]()
	e.GroupName = arkive.None[string]()
	return e, nil
}
