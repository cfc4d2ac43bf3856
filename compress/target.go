package compress

import (
	"errors"
	"io"
	"time"

	"github.com/meigma/arkive"
)

// Target returns a view of dest compressed with f. Reads decompress the
// current content and writes compress the new content.
func Target(dest arkive.Target, f Format) arkive.Target {
	return &compressedTarget{inner: dest, format: f}
}

type compressedTarget struct {
	inner        arkive.Target
	format       Format
	concatenated bool
}

func (t *compressedTarget) Name() string { return t.inner.Name() }

func (t *compressedTarget) Stat() (bool, time.Time, error) { return t.inner.Stat() }

func (t *compressedTarget) Open() (io.ReadCloser, error) {
	rc, err := t.inner.Open()
	if err != nil {
		return nil, err
	}
	r, err := t.format.NewReader(rc, t.concatenated)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &stackedReader{ReadCloser: r, under: rc}, nil
}

func (t *compressedTarget) Create() (arkive.TargetWriter, error) {
	tw, err := t.inner.Create()
	if err != nil {
		return nil, err
	}
	w, err := t.format.NewWriter(tw)
	if err != nil {
		return nil, errors.Join(err, tw.Abort())
	}
	return &compressedWriter{w: w, tw: tw}, nil
}

// compressedWriter finishes the compressed stream before committing the
// underlying target.
type compressedWriter struct {
	w    io.WriteCloser
	tw   arkive.TargetWriter
	done bool
}

func (c *compressedWriter) Write(p []byte) (int, error) {
	if c.done {
		return 0, errClosed
	}
	return c.w.Write(p)
}

func (c *compressedWriter) Commit() error {
	if c.done {
		return errClosed
	}
	c.done = true
	if err := c.w.Close(); err != nil {
		return errors.Join(err, c.tw.Abort())
	}
	return c.tw.Commit()
}

func (c *compressedWriter) Abort() error {
	if c.done {
		return nil
	}
	c.done = true
	c.w.Close()
	return c.tw.Abort()
}

// stackedReader closes a decoder and then the stream beneath it.
type stackedReader struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedReader) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.under.Close())
}
