package compress

import (
	"io"
	"time"

	"github.com/meigma/arkive"
)

// Decompressed returns a resource presenting the decompressed content of
// r. Its name drops the compression extension.
func Decompressed(r arkive.Resource, f Format, concatenated bool) arkive.Resource {
	return &decompressedResource{inner: r, format: f, concatenated: concatenated, size: -1}
}

type decompressedResource struct {
	inner        arkive.Resource
	format       Format
	concatenated bool
	size         int64
}

func (r *decompressedResource) Name() string       { return Strip(r.inner.Name(), r.format) }
func (r *decompressedResource) IsDir() bool        { return false }
func (r *decompressedResource) ModTime() time.Time { return r.inner.ModTime() }
func (r *decompressedResource) Exists() bool       { return r.inner.Exists() }

// Size decompresses the content once to learn its length. It returns -1
// when the content cannot be read.
func (r *decompressedResource) Size() int64 {
	if r.size < 0 {
		r.size = measure(r)
	}
	return r.size
}

func (r *decompressedResource) Open() (io.ReadCloser, error) {
	rc, err := r.inner.Open()
	if err != nil {
		return nil, err
	}
	dr, err := r.format.NewReader(rc, r.concatenated)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &stackedReader{ReadCloser: dr, under: rc}, nil
}

// Compressed returns a resource presenting the content of r compressed
// with f. Its name gains the format's extension. Content is compressed on
// the fly while it is read.
func Compressed(r arkive.Resource, f Format) arkive.Resource {
	return &compressedResource{inner: r, format: f, size: -1}
}

type compressedResource struct {
	inner  arkive.Resource
	format Format
	size   int64
}

func (r *compressedResource) Name() string       { return r.inner.Name() + r.format.Extension() }
func (r *compressedResource) IsDir() bool        { return false }
func (r *compressedResource) ModTime() time.Time { return r.inner.ModTime() }
func (r *compressedResource) Exists() bool       { return r.inner.Exists() }

// Size compresses the content once to learn its length. It returns -1
// when the content cannot be read.
func (r *compressedResource) Size() int64 {
	if r.size < 0 {
		r.size = measure(r)
	}
	return r.size
}

func (r *compressedResource) Open() (io.ReadCloser, error) {
	in, err := r.inner.Open()
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	go func() {
		defer in.Close()
		w, err := r.format.NewWriter(pw)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(w, in); err != nil {
			w.Close()
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(w.Close())
	}()
	return pr, nil
}

func measure(r arkive.Resource) int64 {
	rc, err := r.Open()
	if err != nil {
		return -1
	}
	defer rc.Close()
	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return -1
	}
	return n
}
