package arkive

import (
	"strings"

	"github.com/meigma/arkive/internal/pathutil"
)

// ResourceFlags are explicit metadata overrides attached to one resource.
//
// Every attribute is optional; an unset attribute defers to the collection
// and then to the format default.
type ResourceFlags struct {
	Mode              Optional[uint32]
	UID               Optional[int]
	GID               Optional[int]
	UserName          Optional[string]
	GroupName         Optional[string]
	ZipExtra          Optional[[]ExtraField]
	CompressionMethod Optional[uint16]
	ContentMethods    Optional[[]string]
}

// Over returns f with every unset attribute taken from base.
func (f ResourceFlags) Over(base ResourceFlags) ResourceFlags {
	return ResourceFlags{
		Mode:              f.Mode.Or(base.Mode),
		UID:               f.UID.Or(base.UID),
		GID:               f.GID.Or(base.GID),
		UserName:          f.UserName.Or(base.UserName),
		GroupName:         f.GroupName.Or(base.GroupName),
		ZipExtra:          f.ZipExtra.Or(base.ZipExtra),
		CompressionMethod: f.CompressionMethod.Or(base.CompressionMethod),
		ContentMethods:    f.ContentMethods.Or(base.ContentMethods),
	}
}

// CollectionFlags are metadata defaults shared by every resource of a
// source collection.
type CollectionFlags struct {
	// Prefix is prepended to every resource name.
	Prefix Optional[string]

	// FullPath replaces the name of the collection's single resource.
	FullPath Optional[string]

	FileMode  Optional[uint32]
	DirMode   Optional[uint32]
	UID       Optional[int]
	GID       Optional[int]
	UserName  Optional[string]
	GroupName Optional[string]

	// KeepCompression retains the compression method recorded on
	// resources read from zip archives instead of choosing a new one.
	KeepCompression bool
}

// Normalized returns c with Prefix and FullPath converted to slash form and
// stripped of leading slashes unless preserveLeadingSlashes is set. A
// non-empty prefix always ends in "/".
func (c CollectionFlags) Normalized(preserveLeadingSlashes bool) CollectionFlags {
	if p, ok := c.Prefix.Get(); ok {
		c.Prefix = Some(pathutil.DirPrefix(normalizeFlagPath(p, preserveLeadingSlashes)))
	}
	if fp, ok := c.FullPath.Get(); ok {
		c.FullPath = Some(normalizeFlagPath(fp, preserveLeadingSlashes))
	}
	return c
}

func normalizeFlagPath(p string, preserveLeadingSlashes bool) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !preserveLeadingSlashes {
		p = strings.TrimLeft(p, "/")
	}
	return p
}

// ResourceFlagsOf extracts the metadata a resource carries on its own.
//
// Resources read from archives expose exactly the attributes their format
// stores; attributes a format cannot represent stay unset rather than
// defaulting to zero. Explicit overrides from a FlaggedResource take
// precedence over whatever the wrapped resource carries.
func ResourceFlagsOf(r Resource) ResourceFlags {
	switch v := r.(type) {
	case *FlaggedResource:
		return v.Flags.Over(ResourceFlagsOf(v.Resource))
	case *ArchiveResource:
		return entryFlags(v.Entry())
	default:
		return ResourceFlags{}
	}
}

func entryFlags(e *Entry) ResourceFlags {
	var f ResourceFlags
	if m, ok := e.Mode.Get(); ok {
		f.Mode = Some(m & ModePermMask)
	}
	switch e.Kind {
	case KindZip:
		if e.Zip != nil {
			f.CompressionMethod = Some(e.Zip.Method)
			if len(e.Zip.Extra) > 0 {
				f.ZipExtra = Some(cloneExtra(e.Zip.Extra))
			}
		}
	case KindTar:
		f.UID = e.UID
		f.GID = e.GID
		f.UserName = e.UserName
		f.GroupName = e.GroupName
	case KindAr, KindCpio, KindDump:
		f.UID = e.UID
		f.GID = e.GID
	case KindSevenZ:
		if e.SevenZ != nil && len(e.SevenZ.ContentMethods) > 0 {
			f.ContentMethods = Some(append([]string(nil), e.SevenZ.ContentMethods...))
		}
	case KindArj, KindUnknown:
	}
	return f
}

func cloneExtra(fields []ExtraField) []ExtraField {
	out := make([]ExtraField, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// Attributes are the effective metadata of an entry about to be written.
type Attributes struct {
	// Mode holds unix type and permission bits.
	Mode      uint32
	UID       Optional[int]
	GID       Optional[int]
	UserName  Optional[string]
	GroupName Optional[string]
}

// MergeAttributes resolves effective attributes for one entry.
//
// Resource overrides win over collection defaults, which win over the
// format defaults (0644 for files, 0755 for directories). Directories use
// the collection's DirMode and files its FileMode. A resource mode of zero
// counts as unset unless preserveZero is true.
func MergeAttributes(dir bool, rf ResourceFlags, cf CollectionFlags, preserveZero bool) Attributes {
	perm := DefaultFileMode
	collMode := cf.FileMode
	if dir {
		perm = DefaultDirMode
		collMode = cf.DirMode
	}
	if m, ok := collMode.Get(); ok {
		perm = m
	}
	if m, ok := rf.Mode.Get(); ok && (m&ModePermMask != 0 || preserveZero) {
		perm = m
	}

	return Attributes{
		Mode:      UnixMode(perm, dir),
		UID:       rf.UID.Or(cf.UID),
		GID:       rf.GID.Or(cf.GID),
		UserName:  rf.UserName.Or(cf.UserName),
		GroupName: rf.GroupName.Or(cf.GroupName),
	}
}
