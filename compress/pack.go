package compress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/arkive"
)

// Result describes the outcome of a pack or unpack.
type Result struct {
	// UpToDate is true when the destination was newer than the source and
	// nothing was written.
	UpToDate bool

	// Bytes is the number of bytes written to the destination.
	Bytes int64

	// Digest is the digest of the written bytes.
	Digest digest.Digest
}

// Packer compresses single resources with one format.
type Packer struct {
	format Format
	cfg    config
}

// NewPacker returns a Packer for f. Options are validated eagerly.
func NewPacker(f Format, opts ...Option) (*Packer, error) {
	if ReadOnly(f) {
		return nil, fmt.Errorf("%s: %w", f.Name(), arkive.ErrReadOnlyFormat)
	}
	cfg, err := newConfig(f, opts)
	if err != nil {
		return nil, err
	}
	return &Packer{format: f, cfg: cfg}, nil
}

// Format returns the packer's format.
func (p *Packer) Format() Format { return p.format }

// Pack compresses src into dest. It is a no-op when dest exists and is
// newer than src.
func (p *Packer) Pack(ctx context.Context, dest arkive.Target, src arkive.Resource) (*Result, error) {
	return transfer(ctx, &p.cfg, "pack", dest, src, func(w io.Writer) (io.WriteCloser, error) {
		return p.format.NewWriter(w)
	}, func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	})
}

// Target returns a view of dest that compresses on write and decompresses
// on read, so an archive build can target a compressed file.
func (p *Packer) Target(dest arkive.Target) arkive.Target {
	return &compressedTarget{inner: dest, format: p.format, concatenated: p.cfg.concatenated}
}

// Unpacker decompresses single resources with one format.
type Unpacker struct {
	format Format
	cfg    config
}

// NewUnpacker returns an Unpacker for f. Options are validated eagerly.
func NewUnpacker(f Format, opts ...Option) (*Unpacker, error) {
	cfg, err := newConfig(f, opts)
	if err != nil {
		return nil, err
	}
	return &Unpacker{format: f, cfg: cfg}, nil
}

// Format returns the unpacker's format.
func (u *Unpacker) Format() Format { return u.format }

// Unpack decompresses src into dest. It is a no-op when dest exists and is
// newer than src.
func (u *Unpacker) Unpack(ctx context.Context, dest arkive.Target, src arkive.Resource) (*Result, error) {
	return transfer(ctx, &u.cfg, "unpack", dest, src, func(w io.Writer) (io.WriteCloser, error) {
		return nopWriteCloser{w}, nil
	}, func(r io.Reader) (io.ReadCloser, error) {
		return u.format.NewReader(r, u.cfg.concatenated)
	})
}

// transfer streams src through wrapRead and wrapWrite into dest.
func transfer(
	ctx context.Context,
	cfg *config,
	op string,
	dest arkive.Target,
	src arkive.Resource,
	wrapWrite func(io.Writer) (io.WriteCloser, error),
	wrapRead func(io.Reader) (io.ReadCloser, error),
) (res *Result, err error) {
	if dest == nil {
		return nil, arkive.ErrNoDestination
	}
	if src == nil {
		return nil, arkive.ErrNoSources
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !src.Exists() {
		return nil, fmt.Errorf("%s %s: source does not exist", op, src.Name())
	}
	if src.IsDir() {
		return nil, fmt.Errorf("%w: %s source %s is a directory", arkive.ErrConflictingSource, op, src.Name())
	}

	exists, modTime, err := dest.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dest.Name(), err)
	}
	if exists && modTime.After(src.ModTime()) {
		cfg.log().Info("destination is up to date", "op", op, "source", src.Name(), "destination", dest.Name())
		return &Result{UpToDate: true}, nil
	}

	in, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer in.Close()

	r, err := wrapRead(in)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, src.Name(), err)
	}
	defer r.Close()

	tw, err := dest.Create()
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", dest.Name(), err)
	}
	defer func() {
		if err != nil {
			if abortErr := tw.Abort(); abortErr != nil {
				cfg.log().Warn("abort failed", "destination", dest.Name(), "error", abortErr)
			}
		}
	}()

	digester := digest.Canonical.Digester()
	counter := &countingWriter{}
	w, err := wrapWrite(io.MultiWriter(tw, digester.Hash(), counter))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, src.Name(), err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return nil, fmt.Errorf("%s %s: %w", op, src.Name(), err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, src.Name(), err)
	}
	if err = tw.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", dest.Name(), err)
	}

	cfg.log().Debug(op+" complete",
		slog.String("source", src.Name()),
		slog.String("destination", dest.Name()),
		slog.Int64("bytes", counter.n))
	return &Result{Bytes: counter.n, Digest: digester.Digest()}, nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// errClosed is returned by views used after Close.
var errClosed = errors.New("compress: use of closed stream")
