package arkive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/arkive/internal/pathutil"
)

// Builder writes archives of one format from source collections.
//
// A Builder is immutable after construction and may be reused for any
// number of builds.
type Builder struct {
	format Format
	cfg    buildConfig
}

// NewBuilder returns a Builder for format. Options are validated eagerly.
func NewBuilder(format Format, opts ...BuildOption) (*Builder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Builder{format: format, cfg: cfg}, nil
}

// Format returns the builder's format.
func (b *Builder) Format() Format {
	return b.format
}

// Result describes the outcome of a build.
type Result struct {
	// Mode is the mode the build ran in after resolution; a missing
	// destination always builds in ModeCreate.
	Mode Mode

	// UpToDate is true when the destination was current and nothing was written.
	UpToDate bool

	// Skipped is true when no source qualified and WhenEmptySkip applied.
	Skipped bool

	// Entries is the number of entries written, including synthesized directories.
	Entries int

	// Digest is the digest of the written archive bytes.
	Digest digest.Digest
}

// Written reports whether the destination was rewritten.
func (r *Result) Written() bool {
	return !r.UpToDate && !r.Skipped
}

// log returns the logger, falling back to a discard logger if nil.
func (b *Builder) log() *slog.Logger {
	if b.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.cfg.logger
}

// reportProgress sends a progress event if a callback is configured.
func (b *Builder) reportProgress(stage ProgressStage, path string, done, total int) {
	if b.cfg.progress == nil {
		return
	}
	b.cfg.progress(ProgressEvent{Stage: stage, Path: path, FilesDone: done, FilesTotal: total})
}

// Build writes dest from sources.
//
// The build either fully succeeds or returns an error; on error the
// previous content of dest is left in place.
func (b *Builder) Build(ctx context.Context, dest Target, sources ...Source) (*Result, error) {
	if err := b.validate(dest, sources); err != nil {
		return nil, err
	}

	exists, _, err := dest.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dest.Name(), err)
	}
	mode := b.cfg.mode
	if !exists {
		mode = ModeCreate
	}
	result := &Result{Mode: mode}
	b.log().Info("building archive", "dest", dest.Name(), "format", b.format.Name(), "mode", mode.String())

	b.reportProgress(StageGathering, "", 0, 0)
	items, err := b.gather(ctx, sources)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		switch b.cfg.whenEmpty {
		case WhenEmptySkip:
			b.log().Warn("no resources to archive, skipping", "dest", dest.Name())
			result.Skipped = true
			return result, nil
		case WhenEmptyFail:
			return nil, fmt.Errorf("%w: %s", ErrEmptyArchive, dest.Name())
		case WhenEmptyCreate:
		}
	}

	var snap *Snapshot
	if exists && mode != ModeForceCreate {
		tmp, err := copyToTemp(dest)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)

		b.reportProgress(StageScanning, dest.Name(), 0, 0)
		set := b.format.Sets.NewArchiveSet(tmp)
		set.Encoding = b.cfg.encoding
		set.SkipUnreadable = b.cfg.skipUnreadable
		set.Logger = b.cfg.logger
		snap, err = set.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("read existing %s: %w", dest.Name(), err)
		}
	}

	toAdd := items
	if snap != nil && !mode.forced() && len(items) > 0 {
		stale := outOfDate(items, snap)
		if len(stale) == 0 {
			b.log().Info("archive is up to date", "dest", dest.Name())
			result.UpToDate = true
			return result, nil
		}
		if mode == ModeUpdate {
			toAdd = stale
		}
	}

	final := toAdd
	if snap != nil && !mode.creates() {
		final = append(append([]Item(nil), toAdd...), retained(snap, toAdd)...)
	}
	sort.SliceStable(final, func(i, j int) bool { return final[i].Name < final[j].Name })

	n, dgst, err := b.write(ctx, dest, final)
	if err != nil {
		return nil, err
	}
	result.Entries = n
	result.Digest = dgst
	b.log().Info("archive written", "dest", dest.Name(), "entries", n, "digest", dgst.String())
	return result, nil
}

func (b *Builder) validate(dest Target, sources []Source) error {
	if dest == nil {
		return ErrNoDestination
	}
	if err := b.format.Validate(); err != nil {
		return err
	}
	if len(sources) == 0 {
		return ErrNoSources
	}
	for i, src := range sources {
		if src.Collection == nil {
			return fmt.Errorf("%w: source %d has no collection", ErrNoSources, i)
		}
		if src.Flags.Prefix.IsSet() && src.Flags.FullPath.IsSet() {
			return fmt.Errorf("%w: source %d sets both prefix and fullpath", ErrConflictingSource, i)
		}
	}
	return nil
}

// gather flattens the sources into items, applying the files-only filter,
// computing output names, and enforcing the duplicate policy.
func (b *Builder) gather(ctx context.Context, sources []Source) ([]Item, error) {
	keepLeading := b.cfg.preserveLeadingSlashes
	seen := make(map[string]struct{})
	var items []Item
	for i, src := range sources {
		cf := src.Flags.Normalized(keepLeading)
		resources, err := b.sourceCollection(src.Collection).Resources(ctx)
		if err != nil {
			return nil, fmt.Errorf("read source %d: %w", i, err)
		}
		if cf.FullPath.IsSet() && len(resources) > 1 {
			return nil, fmt.Errorf("%w: fullpath on source %d with %d resources", ErrConflictingSource, i, len(resources))
		}

		for _, r := range resources {
			if !r.Exists() {
				return nil, fmt.Errorf("source %d: %s: %w", i, r.Name(), fs.ErrNotExist)
			}
			if r.IsDir() && b.cfg.filesOnly {
				continue
			}
			name := OutputName(r.Name(), r.IsDir(), cf, keepLeading)
			if IsRootName(name) {
				continue
			}
			if _, dup := seen[name]; dup {
				switch b.cfg.duplicate {
				case DuplicateFail:
					return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
				case DuplicatePreserve:
					b.log().Info("duplicate entry, keeping first", "entry", name)
					continue
				case DuplicateAdd:
					b.log().Debug("duplicate entry, adding", "entry", name)
				}
			}
			seen[name] = struct{}{}
			items = append(items, Item{
				Name:       name,
				Resource:   r,
				Collection: cf,
				Flags:      ResourceFlagsOf(r),
			})
		}
	}
	return items, nil
}

// sourceCollection applies build-wide codec settings to archive sources
// that do not set their own.
func (b *Builder) sourceCollection(c Collection) Collection {
	set, ok := c.(*ArchiveSet)
	if !ok {
		return c
	}
	cp := *set
	if cp.Encoding == "" {
		cp.Encoding = b.cfg.encoding
	}
	cp.SkipUnreadable = cp.SkipUnreadable || b.cfg.skipUnreadable
	if cp.Logger == nil {
		cp.Logger = b.cfg.logger
	}
	return &cp
}

// outOfDate returns the items that have no counterpart in snap or are
// newer than it.
func outOfDate(items []Item, snap *Snapshot) []Item {
	var stale []Item
	for _, it := range items {
		existing, ok := snap.Lookup(it.Name)
		if !ok || it.Resource.ModTime().After(existing.ModTime()) {
			stale = append(stale, it)
		}
	}
	return stale
}

// retained returns the entries of snap that no item replaces.
func retained(snap *Snapshot, items []Item) []Item {
	replaced := make(map[string]struct{}, len(items))
	for _, it := range items {
		replaced[strings.TrimSuffix(it.Name, "/")] = struct{}{}
	}
	var keep []Item
	add := func(m map[string]*ArchiveResource) {
		for key, r := range m {
			if _, ok := replaced[key]; ok || IsRootName(r.Entry().Name) {
				continue
			}
			keep = append(keep, Item{
				Name:       r.Entry().Name,
				Resource:   r,
				Collection: CollectionFlags{KeepCompression: true},
				Flags:      ResourceFlagsOf(r),
			})
		}
	}
	add(snap.Files)
	add(snap.Dirs)
	return keep
}

// planned pairs an item with the entry built for it.
type planned struct {
	item  Item
	entry *Entry
}

// plan builds the entry of every item, synthesizing missing parent
// directories unless the build is files-only. Format constraints surface
// here, before the destination is touched.
func (b *Builder) plan(items []Item) ([]planned, error) {
	opts := EntryOptions{
		RoundUp:              b.cfg.roundUp,
		Preserve0Permissions: b.cfg.preserve0Permissions,
		Now:                  b.cfg.now(),
	}
	emitted := make(map[string]struct{})
	out := make([]planned, 0, len(items))
	add := func(it Item) error {
		entry, err := b.format.Entries.BuildEntry(it, opts)
		if err != nil {
			return &EntryError{Op: "build", Name: it.Name, Err: err}
		}
		out = append(out, planned{item: it, entry: entry})
		return nil
	}

	for _, it := range items {
		if !b.cfg.filesOnly {
			for _, parent := range pathutil.Parents(it.Name) {
				if _, ok := emitted[parent]; ok {
					continue
				}
				// Synthesized directories inherit collection defaults only.
				if err := add(Item{Name: parent, Collection: it.Collection}); err != nil {
					return nil, err
				}
				emitted[parent] = struct{}{}
			}
		}
		if it.IsDir() {
			if _, ok := emitted[it.Name]; ok {
				continue
			}
			emitted[it.Name] = struct{}{}
		}
		if err := add(it); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// write streams items into a new archive on dest.
func (b *Builder) write(ctx context.Context, dest Target, items []Item) (int, digest.Digest, error) {
	entries, err := b.plan(items)
	if err != nil {
		return 0, "", err
	}

	tw, err := dest.Create()
	if err != nil {
		return 0, "", fmt.Errorf("create %s: %w", dest.Name(), err)
	}
	committed := false
	defer func() {
		if !committed {
			if err := tw.Abort(); err != nil {
				b.log().Warn("discard partial archive", "dest", dest.Name(), "error", err)
			}
		}
	}()

	digester := digest.Canonical.Digester()
	aw, err := b.format.Codec.NewWriter(io.MultiWriter(tw, digester.Hash()), CodecOptions{Encoding: b.cfg.encoding})
	if err != nil {
		return 0, "", fmt.Errorf("create %s writer: %w", b.format.Name(), err)
	}

	for i, p := range entries {
		if err := ctx.Err(); err != nil {
			return 0, "", err
		}
		if err := b.writeEntry(aw, p); err != nil {
			return 0, "", err
		}
		b.reportProgress(StageWriting, p.item.Name, i+1, len(entries))
	}

	if err := aw.Close(); err != nil {
		return 0, "", fmt.Errorf("finish %s: %w", dest.Name(), err)
	}
	if err := tw.Commit(); err != nil {
		return 0, "", fmt.Errorf("commit %s: %w", dest.Name(), err)
	}
	committed = true
	return len(entries), digester.Digest(), nil
}

// writeEntry writes one entry and, for regular files, its content.
func (b *Builder) writeEntry(aw Writer, p planned) error {
	name := p.item.Name
	if err := aw.WriteHeader(p.entry); err != nil {
		return &EntryError{Op: "write header", Name: name, Err: err}
	}
	if !p.entry.IsDir() && !p.entry.IsSpecial() && p.item.Resource != nil {
		if err := copyContent(aw, p.item.Resource); err != nil {
			return &EntryError{Op: "write", Name: name, Err: err}
		}
	}
	if err := aw.CloseEntry(); err != nil {
		return &EntryError{Op: "close", Name: name, Err: err}
	}
	b.log().Debug("wrote entry", "entry", name, "size", p.entry.Size)
	return nil
}

func copyContent(w io.Writer, r Resource) (err error) {
	rc, err := r.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(w, rc)
	return err
}

// Job is a build bound to its sources, runnable against any target.
type Job struct {
	Builder *Builder
	Sources []Source
}

// Execute builds dest from the job's sources.
func (j *Job) Execute(ctx context.Context, dest Target) error {
	if j.Builder == nil {
		return fmt.Errorf("%w: job has no builder", ErrNoFormat)
	}
	_, err := j.Builder.Build(ctx, dest, j.Sources...)
	return err
}
