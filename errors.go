package arkive

import (
	"errors"
	"fmt"
)

// Configuration errors. These are reported before any I/O happens.
var (
	// ErrNoDestination is returned when a build has no destination.
	ErrNoDestination = errors.New("no destination specified")

	// ErrNoFormat is returned when a format lacks a codec, entry builder, or set builder.
	ErrNoFormat = errors.New("incomplete archive format")

	// ErrNoSources is returned when a build has no source collections.
	ErrNoSources = errors.New("no source collections specified")

	// ErrConflictingSource is returned when a collection combines options
	// that cannot be honored together (prefix with fullpath, or fullpath
	// on a collection with more than one resource).
	ErrConflictingSource = errors.New("conflicting source options")

	// ErrInvalidOption is returned when an option value is not recognized.
	ErrInvalidOption = errors.New("invalid option")
)

// Policy errors. These abort a build.
var (
	// ErrDuplicateEntry is returned when two sources map to the same entry
	// name and the duplicate policy is DuplicateFail.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrEmptyArchive is returned when no sources qualify and the empty
	// policy is WhenEmptyFail.
	ErrEmptyArchive = errors.New("no resources to archive")

	// ErrDirectoryUnsupported is returned when a format cannot represent directories.
	ErrDirectoryUnsupported = errors.New("format does not support directories")

	// ErrNameTooLong is returned when an entry name exceeds the format's limit.
	ErrNameTooLong = errors.New("entry name too long for format")

	// ErrSpecialUnsupported is returned when a format cannot represent a
	// link, device node, or FIFO carried over from a source archive.
	ErrSpecialUnsupported = errors.New("format does not support special entries")
)

// Codec errors.
var (
	// ErrUnreadableEntry is returned when a codec cannot safely extract an entry's data.
	ErrUnreadableEntry = errors.New("entry data cannot be read")

	// ErrUnsupportedFormat is returned when no codec exists for a format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrReadOnlyFormat is returned when writing a format that can only be read.
	ErrReadOnlyFormat = errors.New("format is read-only")

	// ErrConcatenatedUnsupported is returned when concatenated-stream
	// decompression is requested for a format that cannot provide it.
	ErrConcatenatedUnsupported = errors.New("format does not support concatenated streams")

	// ErrCorruptArchive is returned when archive headers cannot be decoded.
	ErrCorruptArchive = errors.New("corrupt archive")
)

// EntryError records a failure on a single archive entry.
type EntryError struct {
	Op   string
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}
