// Package testutil holds helpers shared by arkive tests.
package testutil

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/meigma/arkive"
)

// Epoch is a fixed timestamp on every format's granularity boundary.
var Epoch = time.Date(2020, 1, 2, 3, 4, 6, 0, time.UTC)

// WriteTree creates files under root from a name-to-content map and sets
// every modification time to modTime. Names ending in "/" create directories.
func WriteTree(tb testing.TB, root string, files map[string]string, modTime time.Time) {
	tb.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			if err := os.MkdirAll(path, 0o755); err != nil {
				tb.Fatalf("mkdir %s: %v", path, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			tb.Fatalf("write %s: %v", path, err)
		}
	}
	for name := range files {
		Touch(tb, filepath.Join(root, filepath.FromSlash(name)), modTime)
	}
}

// Touch sets the access and modification times of path.
func Touch(tb testing.TB, path string, modTime time.Time) {
	tb.Helper()
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		tb.Fatalf("chtimes %s: %v", path, err)
	}
}

// ReadAll reads a resource's content.
func ReadAll(tb testing.TB, r arkive.Resource) string {
	tb.Helper()
	rc, err := r.Open()
	if err != nil {
		tb.Fatalf("open %s: %v", r.Name(), err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		tb.Fatalf("read %s: %v", r.Name(), err)
	}
	return string(data)
}

// MemTarget is an in-memory build target that counts commits.
type MemTarget struct {
	mu      sync.Mutex
	name    string
	data    []byte
	exists  bool
	modTime time.Time
	commits int
	now     func() time.Time
}

// NewMemTarget returns an empty target that does not exist yet.
func NewMemTarget(name string) *MemTarget {
	return &MemTarget{name: name, now: time.Now}
}

// SetContent makes the target exist with data modified at modTime.
func (t *MemTarget) SetContent(data []byte, modTime time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = bytes.Clone(data)
	t.exists = true
	t.modTime = modTime
}

// Bytes returns the committed content.
func (t *MemTarget) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return bytes.Clone(t.data)
}

// Commits returns how many times content was committed.
func (t *MemTarget) Commits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commits
}

func (t *MemTarget) Name() string { return t.name }

func (t *MemTarget) Stat() (bool, time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exists, t.modTime, nil
}

func (t *MemTarget) Open() (io.ReadCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.exists {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(t.data))), nil
}

func (t *MemTarget) Create() (arkive.TargetWriter, error) {
	return &memWriter{t: t}, nil
}

type memWriter struct {
	t    *MemTarget
	buf  bytes.Buffer
	done bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, errors.New("write after finish")
	}
	return w.buf.Write(p)
}

func (w *memWriter) Commit() error {
	if w.done {
		return errors.New("already finished")
	}
	w.done = true
	w.t.mu.Lock()
	defer w.t.mu.Unlock()
	w.t.data = w.buf.Bytes()
	w.t.exists = true
	w.t.modTime = w.t.now()
	w.t.commits++
	return nil
}

func (w *memWriter) Abort() error {
	w.done = true
	return nil
}

// LogBuffer collects log output and is safe for concurrent use.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Logger returns a debug-level text logger writing into the returned buffer.
func Logger() (*slog.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
