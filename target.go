package arkive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Target is the destination of a build.
type Target interface {
	// Name identifies the target in logs and errors.
	Name() string

	// Stat reports whether the target exists and when it was last modified.
	Stat() (exists bool, modTime time.Time, err error)

	// Open returns the current content of the target.
	Open() (io.ReadCloser, error)

	// Create starts writing new content. Nothing is replaced until Commit.
	Create() (TargetWriter, error)
}

// TargetWriter receives the new content of a target.
type TargetWriter interface {
	io.Writer

	// Commit makes the written content the target's content.
	Commit() error

	// Abort discards the written content. It is safe to call after Commit.
	Abort() error
}

// FileTarget is a target backed by a file on disk.
//
// Writes go to a temporary file in the same directory that replaces the
// target on Commit, so a failed build leaves the previous archive intact.
type FileTarget struct {
	path string
}

// File returns a target for the file at path.
func File(path string) *FileTarget {
	return &FileTarget{path: path}
}

func (t *FileTarget) Name() string { return t.path }

// Path returns the target's file path.
func (t *FileTarget) Path() string { return t.path }

func (t *FileTarget) Stat() (bool, time.Time, error) {
	info, err := os.Stat(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, err
	}
	if info.IsDir() {
		return false, time.Time{}, &fs.PathError{Op: "stat", Path: t.path, Err: errors.New("is a directory")}
	}
	return true, info.ModTime(), nil
}

func (t *FileTarget) Open() (io.ReadCloser, error) {
	return os.Open(t.path)
}

func (t *FileTarget) Create() (TargetWriter, error) {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create target directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".arkive-*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{f: tmp, target: t.path}, nil
}

// atomicFile writes to a temp file then renames to target,
// ensuring atomic replacement of the target file.
type atomicFile struct {
	f      *os.File
	target string
	done   bool
}

func (a *atomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *atomicFile) Commit() error {
	if a.done {
		return errors.New("target already finished")
	}
	a.done = true
	tmpPath := a.f.Name()
	if err := a.f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, a.target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (a *atomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	tmpPath := a.f.Name()
	a.f.Close()
	return os.Remove(tmpPath)
}

// copyToTemp copies the current content of t into a temporary file so the
// archive can still be read while the target is being rewritten. The
// caller removes the returned file.
func copyToTemp(t Target) (string, error) {
	src, err := t.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", t.Name(), err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "arkive-snapshot-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("copy %s: %w", t.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}
