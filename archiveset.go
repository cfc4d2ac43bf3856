package arkive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

// ArchiveResource is a lazily readable handle on one entry of an archive file.
//
// Creating the handle reads no content; Open reopens the archive and
// positions on the entry, and closing the returned reader releases the
// archive again.
type ArchiveResource struct {
	archive  string
	codec    Codec
	opts     CodecOptions
	entry    *Entry
	seq      int
	readable bool
}

// Name returns the entry name without a trailing slash.
func (r *ArchiveResource) Name() string { return strings.TrimSuffix(r.entry.Name, "/") }

func (r *ArchiveResource) IsDir() bool        { return r.entry.IsDir() }
func (r *ArchiveResource) Size() int64        { return r.entry.Size }
func (r *ArchiveResource) ModTime() time.Time { return r.entry.ModTime }
func (r *ArchiveResource) Exists() bool       { return true }

// Entry returns the entry metadata. Callers must not modify it.
func (r *ArchiveResource) Entry() *Entry { return r.entry }

// Archive returns the path of the archive holding the entry.
func (r *ArchiveResource) Archive() string { return r.archive }

// Readable reports whether the codec can extract the entry's data.
func (r *ArchiveResource) Readable() bool { return r.readable }

// Open returns the entry content.
func (r *ArchiveResource) Open() (io.ReadCloser, error) {
	if r.entry.IsDir() {
		return nil, &EntryError{Op: "open", Name: r.entry.Name, Err: errors.New("is a directory")}
	}
	if !r.readable {
		return nil, &EntryError{Op: "open", Name: r.entry.Name, Err: ErrUnreadableEntry}
	}
	if fc, ok := r.codec.(FileCodec); ok {
		return r.openFile(fc)
	}
	return r.openStream()
}

func (r *ArchiveResource) openFile(fc FileCodec) (io.ReadCloser, error) {
	fr, err := fc.OpenFile(r.archive, r.opts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.archive, err)
	}
	entries := fr.Entries()
	if r.seq >= len(entries) || entries[r.seq].Name != r.entry.Name {
		fr.Close()
		return nil, &EntryError{Op: "open", Name: r.entry.Name, Err: fmt.Errorf("%w: entry moved in %s", ErrCorruptArchive, r.archive)}
	}
	rc, err := fr.Open(entries[r.seq])
	if err != nil {
		fr.Close()
		return nil, &EntryError{Op: "open", Name: r.entry.Name, Err: err}
	}
	return &chainCloser{Reader: rc, closers: []io.Closer{rc, fr}}, nil
}

func (r *ArchiveResource) openStream() (io.ReadCloser, error) {
	f, err := os.Open(r.archive)
	if err != nil {
		return nil, err
	}
	ar, err := r.codec.NewReader(f, r.opts)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", r.archive, err)
	}
	for i := 0; ; i++ {
		e, err := ar.Next()
		if err != nil {
			f.Close()
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: entry vanished from %s", ErrCorruptArchive, r.archive)
			}
			return nil, &EntryError{Op: "open", Name: r.entry.Name, Err: err}
		}
		if i == r.seq {
			if e.Name != r.entry.Name {
				f.Close()
				return nil, &EntryError{Op: "open", Name: r.entry.Name, Err: fmt.Errorf("%w: entry moved in %s", ErrCorruptArchive, r.archive)}
			}
			return &chainCloser{Reader: ar, closers: []io.Closer{f}}, nil
		}
	}
}

// chainCloser closes each closer in order and reports the first error.
type chainCloser struct {
	io.Reader
	closers []io.Closer
}

func (c *chainCloser) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ArchiveSet is a collection backed by the entries of an archive file.
//
// Used as a build source it yields the matched files (and directories)
// of the archive; the build engine also uses it to snapshot an existing
// destination.
type ArchiveSet struct {
	Path           string
	Codec          Codec
	Selector       Selector
	Encoding       string
	SkipUnreadable bool
	Logger         *slog.Logger
}

// Snapshot scans the archive.
func (s *ArchiveSet) Snapshot(ctx context.Context) (*Snapshot, error) {
	return Scan(ctx, s.Path, s.Codec,
		ScanWithSelector(s.Selector),
		ScanWithEncoding(s.Encoding),
		ScanWithSkipUnreadable(s.SkipUnreadable),
		ScanWithLogger(s.Logger),
	)
}

// Resources returns the matched entries of the archive ordered by name.
func (s *ArchiveSet) Resources(ctx context.Context) ([]Resource, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Resource, 0, len(snap.MatchedFiles)+len(snap.MatchedDirs))
	for _, r := range snap.MatchedDirs {
		out = append(out, r)
	}
	for _, r := range snap.MatchedFiles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// SetBuilder produces the archive-backed collection of a format.
type SetBuilder interface {
	NewArchiveSet(path string) *ArchiveSet
}

// CodecSets is the SetBuilder shared by every format: it anchors an
// ArchiveSet on the given codec.
type CodecSets struct {
	Codec Codec
}

// NewArchiveSet returns an ArchiveSet reading path with the codec.
func (c CodecSets) NewArchiveSet(path string) *ArchiveSet {
	return &ArchiveSet{Path: path, Codec: c.Codec}
}
