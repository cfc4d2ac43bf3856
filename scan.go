package arkive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Snapshot is the scanned content of one archive.
//
// Maps are keyed by entry name without a trailing slash, so a directory
// is found by its bare name. When an archive holds several entries with
// the same name, the last one wins.
type Snapshot struct {
	Files        map[string]*ArchiveResource
	MatchedFiles map[string]*ArchiveResource
	Dirs         map[string]*ArchiveResource
	MatchedDirs  map[string]*ArchiveResource
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		Files:        make(map[string]*ArchiveResource),
		MatchedFiles: make(map[string]*ArchiveResource),
		Dirs:         make(map[string]*ArchiveResource),
		MatchedDirs:  make(map[string]*ArchiveResource),
	}
}

// Lookup returns the entry stored under name, checking files first.
func (s *Snapshot) Lookup(name string) (*ArchiveResource, bool) {
	key := strings.TrimSuffix(name, "/")
	if r, ok := s.Files[key]; ok {
		return r, true
	}
	r, ok := s.Dirs[key]
	return r, ok
}

// Len returns the number of distinct entries.
func (s *Snapshot) Len() int {
	return len(s.Files) + len(s.Dirs)
}

type scanConfig struct {
	selector       Selector
	encoding       string
	skipUnreadable bool
	logger         *slog.Logger
}

// ScanOption configures Scan.
type ScanOption func(*scanConfig)

// ScanWithSelector sets the predicate deciding membership in the matched maps.
// By default every entry matches.
func ScanWithSelector(s Selector) ScanOption {
	return func(c *scanConfig) {
		c.selector = s
	}
}

// ScanWithEncoding sets the character set of entry names.
func ScanWithEncoding(enc string) ScanOption {
	return func(c *scanConfig) {
		c.encoding = enc
	}
}

// ScanWithSkipUnreadable excludes entries whose data the codec cannot
// extract instead of including them. Skipped entries are logged.
func ScanWithSkipUnreadable(skip bool) ScanOption {
	return func(c *scanConfig) {
		c.skipUnreadable = skip
	}
}

// ScanWithLogger sets the logger used while scanning.
func ScanWithLogger(l *slog.Logger) ScanOption {
	return func(c *scanConfig) {
		c.logger = l
	}
}

func (c *scanConfig) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// Scan reads the archive at path and classifies its entries.
//
// Entry content is not read; each returned resource reopens the archive
// when its content is requested. An empty archive yields empty maps.
func Scan(ctx context.Context, path string, codec Codec, opts ...ScanOption) (*Snapshot, error) {
	cfg := scanConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.selector == nil {
		cfg.selector = MatchAll
	}
	codecOpts := CodecOptions{Encoding: cfg.encoding}

	var (
		entries []*Entry
		canRead func(*Entry) bool
		err     error
	)
	if fc, ok := codec.(FileCodec); ok {
		entries, canRead, err = scanFile(fc, path, codecOpts)
	} else {
		entries, canRead, err = scanStream(ctx, codec, path, codecOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	snap := newSnapshot()
	for seq, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		readable := canRead(e)
		// Links and device nodes have no data but are copied as metadata.
		if cfg.skipUnreadable && !readable && !e.IsSpecial() {
			cfg.log().Warn("skipping unreadable entry", "archive", path, "entry", e.Name)
			continue
		}
		res := &ArchiveResource{archive: path, codec: codec, opts: codecOpts, entry: e, seq: seq, readable: readable}
		key := strings.TrimSuffix(e.Name, "/")
		matched := cfg.selector.Match(key)
		if e.IsDir() {
			snap.Dirs[key] = res
			if matched {
				snap.MatchedDirs[key] = res
			}
			continue
		}
		snap.Files[key] = res
		if matched {
			snap.MatchedFiles[key] = res
		}
	}
	cfg.log().Debug("scanned archive", "archive", path, "files", len(snap.Files), "dirs", len(snap.Dirs))
	return snap, nil
}

func scanFile(fc FileCodec, path string, opts CodecOptions) ([]*Entry, func(*Entry) bool, error) {
	fr, err := fc.OpenFile(path, opts)
	if err != nil {
		return nil, nil, err
	}
	defer fr.Close()

	entries := fr.Entries()
	unreadable := make(map[*Entry]bool)
	for _, e := range entries {
		if !fr.CanReadData(e) {
			unreadable[e] = true
		}
	}
	return entries, func(e *Entry) bool { return !unreadable[e] }, nil
}

func scanStream(ctx context.Context, codec Codec, path string, opts CodecOptions) ([]*Entry, func(*Entry) bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r, err := codec.NewReader(f, opts)
	if err != nil {
		return nil, nil, err
	}
	var entries []*Entry
	unreadable := make(map[*Entry]bool)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if !r.CanReadData(e) {
			unreadable[e] = true
		}
		entries = append(entries, e)
	}
	return entries, func(e *Entry) bool { return !unreadable[e] }, nil
}
