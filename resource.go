package arkive

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meigma/arkive/internal/platform"
)

// Resource is a named, readable item that can be added to an archive.
type Resource interface {
	// Name is the slash-separated name relative to the owning collection.
	Name() string
	IsDir() bool
	Size() int64
	ModTime() time.Time
	Exists() bool

	// Open returns the resource content. The caller must close it.
	Open() (io.ReadCloser, error)
}

// FileResource is a file or directory on the local filesystem.
type FileResource struct {
	name string
	path string
	info fs.FileInfo
	err  error
}

// NewFileResource returns a resource for the file at path, named name
// within its collection. The file is stat'ed immediately; a missing file
// yields a resource whose Exists reports false.
func NewFileResource(path, name string) *FileResource {
	info, err := os.Lstat(path)
	return &FileResource{name: filepath.ToSlash(name), path: path, info: info, err: err}
}

func (r *FileResource) Name() string { return r.name }

// Path returns the filesystem path of the resource.
func (r *FileResource) Path() string { return r.path }

func (r *FileResource) IsDir() bool {
	return r.info != nil && r.info.IsDir()
}

func (r *FileResource) Size() int64 {
	if r.info == nil || r.info.IsDir() {
		return 0
	}
	return r.info.Size()
}

func (r *FileResource) ModTime() time.Time {
	if r.info == nil {
		return time.Time{}
	}
	return r.info.ModTime()
}

func (r *FileResource) Exists() bool {
	return r.err == nil && r.info != nil
}

func (r *FileResource) Open() (io.ReadCloser, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: r.path, Err: errors.New("is a directory")}
	}
	return platform.OpenNoFollow(r.path)
}

// BytesResource is an in-memory resource.
type BytesResource struct {
	name    string
	data    []byte
	modTime time.Time
}

// NewBytesResource returns a file resource holding data. A name ending in
// "/" yields a directory resource with no content.
func NewBytesResource(name string, data []byte, modTime time.Time) *BytesResource {
	return &BytesResource{name: name, data: data, modTime: modTime}
}

func (r *BytesResource) Name() string       { return strings.TrimSuffix(r.name, "/") }
func (r *BytesResource) IsDir() bool        { return strings.HasSuffix(r.name, "/") }
func (r *BytesResource) Size() int64        { return int64(len(r.data)) }
func (r *BytesResource) ModTime() time.Time { return r.modTime }
func (r *BytesResource) Exists() bool       { return true }

func (r *BytesResource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(r.data)), nil
}

// FlaggedResource attaches explicit per-resource metadata overrides to a resource.
type FlaggedResource struct {
	Resource
	Flags ResourceFlags
}

// WithFlags wraps r with explicit overrides.
func WithFlags(r Resource, flags ResourceFlags) *FlaggedResource {
	return &FlaggedResource{Resource: r, Flags: flags}
}
