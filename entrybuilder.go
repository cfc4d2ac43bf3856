package arkive

import (
	"strings"
	"time"
)

// Item is one entry the build engine is about to write.
type Item struct {
	// Name is the output name; directories end in "/".
	Name string

	// Resource supplies content and timestamps. It is nil for parent
	// directories synthesized by the engine.
	Resource Resource

	// Collection holds the defaults of the originating collection.
	Collection CollectionFlags

	// Flags holds the resource's own overrides.
	Flags ResourceFlags
}

// IsDir reports whether the item is a directory.
func (it Item) IsDir() bool {
	return strings.HasSuffix(it.Name, "/")
}

// EntryOptions carries build-wide settings that affect entry construction.
type EntryOptions struct {
	// RoundUp rounds modification times up to the format's granularity.
	RoundUp bool

	// Preserve0Permissions keeps an explicit zero mode instead of
	// substituting the default.
	Preserve0Permissions bool

	// Now is the modification time of synthesized directories.
	Now time.Time
}

// EntryBuilder turns an Item into a format-specific Entry.
type EntryBuilder interface {
	BuildEntry(it Item, opts EntryOptions) (*Entry, error)
}

// EntryBuilderFunc adapts a function to EntryBuilder.
type EntryBuilderFunc func(it Item, opts EntryOptions) (*Entry, error)

// BuildEntry calls f.
func (f EntryBuilderFunc) BuildEntry(it Item, opts EntryOptions) (*Entry, error) {
	return f(it, opts)
}

// RoundModTime adjusts t to the granularity of a format.
//
// With roundUp, a time that is not already on a granularity boundary moves
// to the next boundary so that a rebuilt archive never looks older than
// its sources; a time exactly on a boundary is kept. Without roundUp the
// time is truncated, which is what the format would store anyway.
func RoundModTime(t time.Time, granularity time.Duration, roundUp bool) time.Time {
	if granularity <= 0 || t.IsZero() {
		return t
	}
	truncated := t.Truncate(granularity)
	if roundUp && !truncated.Equal(t) {
		return truncated.Add(granularity)
	}
	return truncated
}

// BaseEntry builds the format-neutral part of an entry for it: name,
// size, rounded modification time, and merged attributes. Format entry
// builders start from it and drop the attributes their format lacks.
func BaseEntry(it Item, kind Kind, granularity time.Duration, opts EntryOptions) *Entry {
	dir := it.IsDir()
	modTime := opts.Now
	var size int64
	if it.Resource != nil {
		modTime = it.Resource.ModTime()
		if !dir {
			size = it.Resource.Size()
		}
	}
	if modTime.IsZero() {
		modTime = time.Now()
	}

	attrs := MergeAttributes(dir, it.Flags, it.Collection, opts.Preserve0Permissions)
	e := &Entry{
		Name:      it.Name,
		Kind:      kind,
		Size:      size,
		ModTime:   RoundModTime(modTime, granularity, opts.RoundUp),
		Mode:      Some(attrs.Mode),
		UID:       attrs.UID,
		GID:       attrs.GID,
		UserName:  attrs.UserName,
		GroupName: attrs.GroupName,
	}
	if src := sourceEntry(it.Resource); src != nil && src.IsSpecial() {
		// Links and device nodes keep their type and carry no content.
		typ := src.Type()
		if typ == 0 {
			typ = ModeRegular
		}
		e.Mode = Some(typ | attrs.Mode&ModePermMask)
		e.LinkName = src.LinkName
		e.DevMajor = src.DevMajor
		e.DevMinor = src.DevMinor
		e.Size = 0
	}
	return e
}

// sourceEntry returns the archive entry behind r, or nil when r does not
// come from an archive.
func sourceEntry(r Resource) *Entry {
	switch v := r.(type) {
	case *FlaggedResource:
		return sourceEntry(v.Resource)
	case *ArchiveResource:
		return v.Entry()
	}
	return nil
}
