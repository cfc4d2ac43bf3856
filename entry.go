package arkive

import (
	"io/fs"
	"strings"
	"time"
)

// Kind identifies the container format an entry belongs to.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindZip
	KindTar
	KindAr
	KindCpio
	KindArj
	KindDump
	KindSevenZ
)

// String returns the conventional name of the format.
func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindTar:
		return "tar"
	case KindAr:
		return "ar"
	case KindCpio:
		return "cpio"
	case KindArj:
		return "arj"
	case KindDump:
		return "dump"
	case KindSevenZ:
		return "7z"
	default:
		return "unknown"
	}
}

// Unix file type and permission bits as stored in archive headers.
const (
	ModeTypeMask    uint32 = 0o170000
	ModeFIFO        uint32 = 0o010000
	ModeCharDevice  uint32 = 0o020000
	ModeDir         uint32 = 0o040000
	ModeBlockDevice uint32 = 0o060000
	ModeRegular     uint32 = 0o100000
	ModeSymlink     uint32 = 0o120000
	ModePermMask    uint32 = 0o7777
)

// Default permission bits applied when neither the resource nor its
// collection supplies one.
const (
	DefaultFileMode uint32 = 0o644
	DefaultDirMode  uint32 = 0o755
)

// Entry is one member of an archive in format-neutral form.
//
// Directory entries have names ending in "/"; IsDir is derived from the
// name so the two can never disagree.
type Entry struct {
	// Name is the slash-separated path of the entry inside the archive.
	Name string

	// Kind is the container format the entry was read from or is destined for.
	Kind Kind

	// Size is the uncompressed content size. Directories report 0.
	Size int64

	// ModTime is the entry's modification time.
	ModTime time.Time

	// Mode holds unix permission and type bits when the format stores them.
	Mode Optional[uint32]

	// UID and GID hold numeric ownership when the format stores it.
	UID Optional[int]
	GID Optional[int]

	// UserName and GroupName are symbolic ownership (tar only).
	UserName  Optional[string]
	GroupName Optional[string]

	// LinkName is the target of a symbolic link, or of a hard link when
	// the type bits are those of a regular file.
	LinkName string

	// DevMajor and DevMinor identify the device of a device node.
	DevMajor int64
	DevMinor int64

	// Zip carries zip-specific metadata. Nil for other kinds.
	Zip *ZipExtra

	// SevenZ carries 7z-specific metadata. Nil for other kinds.
	SevenZ *SevenZExtra
}

// ZipExtra holds the zip-only parts of an entry.
type ZipExtra struct {
	// Method is the zip compression method (0 store, 8 deflate, 93 zstd).
	Method uint16

	// Extra holds the parsed extra fields.
	Extra []ExtraField
}

// SevenZExtra holds the 7z-only parts of an entry.
type SevenZExtra struct {
	// ContentMethods lists the coder chain used for the entry's content.
	ContentMethods []string
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// Type returns the unix file type bits of the entry, or zero when the
// format does not record them.
func (e *Entry) Type() uint32 {
	m, _ := e.Mode.Get()
	return m & ModeTypeMask
}

// IsSpecial reports whether the entry is a link, device node, or FIFO.
// Such entries consist of metadata only.
func (e *Entry) IsSpecial() bool {
	if e.IsDir() {
		return false
	}
	if e.LinkName != "" {
		return true
	}
	switch e.Type() {
	case ModeSymlink, ModeFIFO, ModeCharDevice, ModeBlockDevice:
		return true
	}
	return false
}

// Perm returns the permission bits of the entry, or zero when unset.
func (e *Entry) Perm() uint32 {
	m, _ := e.Mode.Get()
	return m & ModePermMask
}

// FileMode converts the entry's unix mode into an fs.FileMode.
func (e *Entry) FileMode() fs.FileMode {
	mode := fs.FileMode(e.Perm() & 0o777)
	if e.IsDir() {
		return mode | fs.ModeDir
	}
	switch e.Type() {
	case ModeSymlink:
		mode |= fs.ModeSymlink
	case ModeFIFO:
		mode |= fs.ModeNamedPipe
	case ModeCharDevice:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case ModeBlockDevice:
		mode |= fs.ModeDevice
	}
	return mode
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.Zip != nil {
		z := *e.Zip
		z.Extra = make([]ExtraField, len(e.Zip.Extra))
		for i, f := range e.Zip.Extra {
			z.Extra[i] = f.Clone()
		}
		c.Zip = &z
	}
	if e.SevenZ != nil {
		s := *e.SevenZ
		s.ContentMethods = append([]string(nil), e.SevenZ.ContentMethods...)
		c.SevenZ = &s
	}
	return &c
}

// UnixMode combines permission bits with the file type bits matching dir.
func UnixMode(perm uint32, dir bool) uint32 {
	perm &= ModePermMask
	if dir {
		return ModeDir | perm
	}
	return ModeRegular | perm
}
