package arkive

import (
	"io"
)

// Reader is a forward-only cursor over the entries of an archive stream.
//
// Content is available only for the entry most recently returned by Next;
// advancing the cursor invalidates any reader obtained for a prior entry.
type Reader interface {
	// Next advances to the next entry. It returns io.EOF after the last entry.
	Next() (*Entry, error)

	// Read reads content of the current entry.
	Read(p []byte) (int, error)

	// CanReadData reports whether the codec can extract the entry's data.
	CanReadData(e *Entry) bool
}

// Writer emits entries into an archive stream.
//
// Callers invoke WriteHeader, then Write for file content, then
// CloseEntry; Close finishes the archive. Close does not close the
// underlying stream.
type Writer interface {
	WriteHeader(e *Entry) error
	Write(p []byte) (int, error)
	CloseEntry() error
	Close() error
}

// FileReader provides random access to the entries of an archive file.
type FileReader interface {
	// Entries returns every entry in archive order.
	Entries() []*Entry

	// Open returns a reader for the content of e. Closing it releases
	// only the entry stream, not the archive.
	Open(e *Entry) (io.ReadCloser, error)

	// CanReadData reports whether the codec can extract the entry's data.
	CanReadData(e *Entry) bool

	// Close releases the archive file.
	Close() error
}

// CodecOptions carries settings shared by readers and writers.
type CodecOptions struct {
	// Encoding names the character set of entry names. Empty means the
	// format default (UTF-8 for most).
	Encoding string
}

// Codec is the seam between the build engine and a format's encoder and decoder.
type Codec interface {
	// Kind identifies the format.
	Kind() Kind

	// NewReader decodes an archive from r.
	NewReader(r io.Reader, opts CodecOptions) (Reader, error)

	// NewWriter encodes an archive to w.
	NewWriter(w io.Writer, opts CodecOptions) (Writer, error)
}

// FileCodec is implemented by codecs that can open an archive file for
// random access instead of streaming it.
type FileCodec interface {
	Codec

	// OpenFile opens the archive at path.
	OpenFile(path string, opts CodecOptions) (FileReader, error)
}

// IsFileAware reports whether c supports random access on archive files.
func IsFileAware(c Codec) bool {
	_, ok := c.(FileCodec)
	return ok
}
